// Package auth builds Authorization header values from server challenges.
package auth

import (
	"encoding/base64"
	"strings"
)

// Negotiator answers a WWW-Authenticate challenge. It reports false when
// it cannot produce a header for the challenge.
type Negotiator interface {
	Negotiate(challenge, username, password, method, path string) (string, bool)
}

// NegotiatorFunc adapts a function to the Negotiator interface.
type NegotiatorFunc func(challenge, username, password, method, path string) (string, bool)

// Negotiate calls f.
func (f NegotiatorFunc) Negotiate(challenge, username, password, method, path string) (string, bool) {
	return f(challenge, username, password, method, path)
}

// Default answers Basic and Digest challenges.
func Default() Negotiator {
	return NegotiatorFunc(negotiate)
}

// DigestOnly passes Digest challenges to next and declines everything
// else.
func DigestOnly(next Negotiator) Negotiator {
	return NegotiatorFunc(func(challenge, username, password, method, path string) (string, bool) {
		if !strings.EqualFold(Scheme(challenge), "digest") {
			return "", false
		}
		return next.Negotiate(challenge, username, password, method, path)
	})
}

func negotiate(challenge, username, password, method, path string) (string, bool) {
	switch strings.ToLower(Scheme(challenge)) {
	case "basic":
		return Basic(username, password), true
	case "digest":
		return Digest(challenge, username, password, method, path)
	default:
		return "", false
	}
}

// Scheme returns the auth scheme token that leads a challenge.
func Scheme(challenge string) string {
	scheme, _, _ := strings.Cut(strings.TrimSpace(challenge), " ")
	return scheme
}

// Basic returns a Basic Authorization header value.
func Basic(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
