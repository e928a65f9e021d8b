package pipeline

import (
	"mime"
	"regexp"
	"strings"
)

// DefaultCharset is assumed when a Content-Type carries no usable charset.
const DefaultCharset = "iso-8859-1"

var utf8Label = regexp.MustCompile(`(?i)utf-?8$`)

// ContentType is a parsed Content-Type header.
type ContentType struct {
	MediaType string
	Charset   string
}

// ParseContentType parses a Content-Type header value. An empty header
// yields the zero value; otherwise Charset falls back to [DefaultCharset].
func ParseContentType(header string) ContentType {
	if strings.TrimSpace(header) == "" {
		return ContentType{}
	}

	ct := ContentType{Charset: DefaultCharset}

	mediaType, params, err := mime.ParseMediaType(header)
	if mediaType == "" {
		mediaType, _, _ = strings.Cut(header, ";")
		mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	}
	ct.MediaType = mediaType

	if err == nil {
		if cs := strings.TrimSpace(params["charset"]); cs != "" {
			ct.Charset = cs
		}
	}

	return ct
}

// IsText reports whether the media type is textual.
func (c ContentType) IsText() bool {
	return strings.HasPrefix(c.MediaType, "text/")
}

// IsUTF8 reports whether Charset names UTF-8.
func (c ContentType) IsUTF8() bool {
	return utf8Label.MatchString(c.Charset)
}
