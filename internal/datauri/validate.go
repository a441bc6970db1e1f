// Package datauri validates and measures inline image payloads of the form
// data:<media>/<subtype>;base64,<body>.
package datauri

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// MaxDecodedBytes is the upper bound on decoded payload size (10 MiB).
const MaxDecodedBytes = 10 * 1024 * 1024

// MaxSubtypeLen matches the width of the stored image_type columns.
const MaxSubtypeLen = 50

const (
	scheme = "data:"

	// DefaultField is the request field carrying the payload.
	DefaultField = "image_base64"
)

type Kind string

const (
	NotADataURI          Kind = "NotADataUri"
	UnsupportedMediaType Kind = "UnsupportedMediaType"
	MalformedEncoding    Kind = "MalformedEncoding"
	PayloadTooLarge      Kind = "PayloadTooLarge"
)

// ValidationError reports why a payload was rejected. Field names the request
// field the payload came from.
type ValidationError struct {
	Field  string
	Kind   Kind
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Field, e.Kind, e.Detail)
}

func invalid(k Kind, format string, args ...any) *ValidationError {
	return &ValidationError{Field: DefaultField, Kind: k, Detail: fmt.Sprintf(format, args...)}
}

// Decoded is the result of a successful Validate. Raw is the untouched input,
// which is what gets persisted.
type Decoded struct {
	Raw       string
	MediaType string // e.g. image/png
	Subtype   string // lower-cased, e.g. png
	Data      []byte
}

// Size is the decoded byte length.
func (d Decoded) Size() int { return len(d.Data) }

// Validate parses raw and decodes its base64 body. It has no side effects.
func Validate(raw string) (Decoded, error) {
	if !strings.HasPrefix(raw, scheme) {
		return Decoded{}, invalid(NotADataURI, "payload must start with %q", scheme)
	}

	header, body, ok := strings.Cut(raw, ",")
	if !ok {
		return Decoded{}, invalid(MalformedEncoding, "missing ',' between header and body")
	}

	mime := strings.TrimPrefix(header, scheme)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	media, subtype, ok := strings.Cut(mime, "/")
	if !ok || media != "image" || subtype == "" {
		return Decoded{}, invalid(UnsupportedMediaType, "media type %q is not image/*", mime)
	}
	if len(subtype) > MaxSubtypeLen {
		return Decoded{}, invalid(UnsupportedMediaType, "subtype is %d characters, limit is %d", len(subtype), MaxSubtypeLen)
	}

	// Cheap rejection before decoding; the decoded length below stays authoritative.
	if est := estimateDecodedLen(body); est > MaxDecodedBytes {
		return Decoded{}, invalid(PayloadTooLarge, "payload exceeds %d bytes", MaxDecodedBytes)
	}

	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return Decoded{}, invalid(MalformedEncoding, "invalid base64 body: %v", err)
	}
	if len(data) > MaxDecodedBytes {
		return Decoded{}, invalid(PayloadTooLarge, "payload is %d bytes, limit is %d", len(data), MaxDecodedBytes)
	}

	return Decoded{Raw: raw, MediaType: mime, Subtype: subtype, Data: data}, nil
}

// estimateDecodedLen returns a lower bound of the decoded size, or 0 when the
// body contains line breaks (which the decoder skips, so length says little).
func estimateDecodedLen(body string) int {
	if strings.ContainsAny(body, "\r\n") {
		return 0
	}
	n := base64.StdEncoding.DecodedLen(len(body)) - 2
	if n < 0 {
		return 0
	}
	return n
}

// Encode builds a payload string from raw bytes.
func Encode(mediaType string, data []byte) string {
	return scheme + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
