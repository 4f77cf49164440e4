package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a display RGB triple for a user.
type Color struct {
	R, G, B uint8
}

// DefaultColor is assigned to accounts that never picked one.
var DefaultColor = Color{R: 0x80, G: 0x80, B: 0x80}

// ParseColor reads a "#RRGGBB" hex string, case-insensitive.
func ParseColor(s string) (Color, error) {
	if len(s) != 7 || !strings.HasPrefix(s, "#") {
		return Color{}, fmt.Errorf("malformed color %q", s)
	}

	var channels [3]uint8
	for i := range channels {
		v, err := strconv.ParseUint(s[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("malformed color %q", s)
		}
		channels[i] = uint8(v)
	}
	return Color{R: channels[0], G: channels[1], B: channels[2]}, nil
}

// String renders the color back as "#rrggbb".
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
