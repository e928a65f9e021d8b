package download

import (
	"errors"
	"hash"
)

// Option configures an output File.
//
// WithChecksum verifies the stored bytes against a hex-encoded digest.
// h is a hash.Hash instance such as sha256.New().
//
// WithProgress logs write progress at most once per second through the
// logger supplied to Create.
//
// WithSkipExisting leaves an existing destination untouched.
type Option func(*options) error

type options struct {
	checksum     *checksumVerifier
	progress     bool
	skipExisting bool
}

func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}

		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.checksum = &checksumVerifier{hash: h, expected: expected}
		return nil
	}
}

func WithProgress() Option {
	return func(opts *options) error {
		opts.progress = true
		return nil
	}
}

func WithSkipExisting() Option {
	return func(opts *options) error {
		opts.skipExisting = true
		return nil
	}
}
