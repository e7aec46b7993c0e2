// Package imaging reads signature images from data URLs and checks that
// they can be embedded.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

// ErrEmpty is returned for zero-length image data.
var ErrEmpty = errors.New("image data is empty")

// Image is encoded signature data whose format and size are known. The
// bytes are embedded as they are; the PDF writer picks the filter.
type Image struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Probe checks that data is a PNG, JPEG or WebP image with a non-empty
// size without decoding its pixels.
func Probe(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	switch format {
	case "png", "jpeg", "webp":
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has no pixels (%dx%d)", cfg.Width, cfg.Height)
	}
	return &Image{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// DecodeDataURL extracts the payload of a base64 data URL. Bare base64
// without the data: prefix is accepted as well. The returned media type is
// empty when the input carried none.
func DecodeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", ErrEmpty
	}

	mediaType := ""
	payload := s
	if strings.HasPrefix(s, "data:") {
		meta, rest, ok := strings.Cut(s[len("data:"):], ",")
		if !ok {
			return nil, "", fmt.Errorf("data URL has no payload separator")
		}
		params := strings.Split(meta, ";")
		mediaType = params[0]
		isBase64 := false
		for _, p := range params[1:] {
			if p == "base64" {
				isBase64 = true
			}
		}
		if !isBase64 {
			return nil, "", fmt.Errorf("data URL for %q is not base64 encoded", mediaType)
		}
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some encoders drop the padding.
		if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr == nil {
			return raw, mediaType, nil
		}
		return nil, "", fmt.Errorf("decode base64 image: %w", err)
	}
	return data, mediaType, nil
}
