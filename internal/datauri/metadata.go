package datauri

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/webp"
)

// Metadata is what gets derived from a payload. Width and Height stay nil
// when the format can't be probed (svg, truncated headers, unknown formats).
type Metadata struct {
	Subtype  string
	ByteSize int64
	Width    *int
	Height   *int
}

// Extract validates raw and derives its metadata.
func Extract(raw string) (Metadata, error) {
	d, err := Validate(raw)
	if err != nil {
		return Metadata{}, err
	}
	return FromDecoded(d), nil
}

func FromDecoded(d Decoded) Metadata {
	m := Metadata{Subtype: d.Subtype, ByteSize: int64(d.Size())}
	if d.Subtype == "svg" || d.Subtype == "svg+xml" {
		return m
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(d.Data))
	if err != nil {
		return m
	}
	w, h := cfg.Width, cfg.Height
	m.Width, m.Height = &w, &h
	return m
}

// SizeMB rounds a byte count to megabytes with two decimals.
func SizeMB(size int64) float64 {
	return math.Round(float64(size)/(1024*1024)*100) / 100
}
