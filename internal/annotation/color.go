package annotation

import (
	"fmt"
	"strconv"
	"strings"
)

// RGBHex is a colour written as #RRGGBB.
type RGBHex string

// RGB is a colour with channels in [0,1].
type RGB struct {
	R, G, B float64
}

// Black is the fallback fill.
var Black = RGB{}

// Parse converts h into channel values. The short #RGB form is accepted.
func (h RGBHex) Parse() (RGB, error) {
	s := strings.TrimSpace(string(h))
	if !strings.HasPrefix(s, "#") {
		return RGB{}, fmt.Errorf("colour %q: missing leading #", h)
	}
	s = s[1:]
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("colour %q: want 6 hex digits", h)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("colour %q: %w", h, err)
	}
	return RGB{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
	}, nil
}

// RGBOrBlack parses h, falling back to black for anything unparseable.
func (h RGBHex) RGBOrBlack() RGB {
	c, err := h.Parse()
	if err != nil {
		return Black
	}
	return c
}

// Equal compares two hex colours case-insensitively.
func (h RGBHex) Equal(o RGBHex) bool {
	return strings.EqualFold(strings.TrimSpace(string(h)), strings.TrimSpace(string(o)))
}
