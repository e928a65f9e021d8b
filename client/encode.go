package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
)

// encoder renders a request body and its default Content-Type.
type encoder func() ([]byte, string, error)

// Part is one field of a multipart/form-data body. Parts with a Filename
// are sent as file uploads.
type Part struct {
	Name        string
	Filename    string
	ContentType string
	Content     []byte
}

// WithPayload sets the JSON-encoded request body.
func WithPayload(body any) RequestOption {
	return func(opts *requestOpts) error {
		opts.body = func() ([]byte, string, error) {
			b, err := json.Marshal(body)
			if err != nil {
				return nil, "", fmt.Errorf("encoding request payload: %w", err)
			}
			return b, "application/json", nil
		}
		return nil
	}
}

// WithForm sets a URL-encoded form body.
func WithForm(values url.Values) RequestOption {
	return func(opts *requestOpts) error {
		opts.body = func() ([]byte, string, error) {
			return []byte(values.Encode()), "application/x-www-form-urlencoded", nil
		}
		return nil
	}
}

// WithBody sends b unchanged. No Content-Type is implied.
func WithBody(b []byte) RequestOption {
	return func(opts *requestOpts) error {
		opts.body = func() ([]byte, string, error) {
			return b, "", nil
		}
		return nil
	}
}

// WithMultipart sets a multipart/form-data body.
func WithMultipart(parts ...Part) RequestOption {
	return func(opts *requestOpts) error {
		if len(parts) == 0 {
			return errors.New("multipart body needs at least one part")
		}
		opts.body = func() ([]byte, string, error) {
			return encodeMultipart(parts)
		}
		return nil
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(parts []Part) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range parts {
		if p.Name == "" {
			return nil, "", errors.New("multipart part needs a name")
		}

		h := make(textproto.MIMEHeader)
		disposition := fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(p.Name))
		if p.Filename != "" {
			disposition += fmt.Sprintf(`; filename="%s"`, quoteEscaper.Replace(p.Filename))
			if p.ContentType == "" {
				p.ContentType = "application/octet-stream"
			}
		}
		h.Set("Content-Disposition", disposition)
		if p.ContentType != "" {
			h.Set("Content-Type", p.ContentType)
		}

		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating part %s: %w", p.Name, err)
		}
		if _, err := pw.Write(p.Content); err != nil {
			return nil, "", fmt.Errorf("writing part %s: %w", p.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
