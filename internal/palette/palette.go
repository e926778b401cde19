// Package palette resolves stage color tokens to concrete swatches and holds
// the light/dark theme colors used by the raster and HTML renderers.
package palette

import (
	"fmt"
	"image/color"
	"regexp"
	"strconv"
	"strings"

	"festgrid/internal/model"
)

// Fallback is used for any token the table does not know.
const Fallback = "#cccccc"

var tokenPattern = regexp.MustCompile(`bg-([a-z]+)-(\d+)`)

// swatches is intentionally partial: only the shades the stage registry uses.
var swatches = map[string]map[int]string{
	"red":    {500: "#ef4444", 700: "#b91c1c"},
	"blue":   {700: "#1d4ed8"},
	"green":  {500: "#22c55e"},
	"yellow": {400: "#facc15"},
	"purple": {300: "#d8b4fe"},
	"pink":   {500: "#ec4899"},
	"orange": {200: "#fed7aa", 300: "#fdba74"},
	"sky":    {400: "#38bdf8"},
	"lime":   {400: "#a3e635"},
	"amber":  {700: "#b45309"},
}

// Resolve maps a "bg-{name}-{intensity}" token to "#rrggbb", or Fallback.
func Resolve(token string) string {
	m := tokenPattern.FindStringSubmatch(token)
	if m == nil {
		return Fallback
	}
	intensity, err := strconv.Atoi(m[2])
	if err != nil {
		return Fallback
	}
	if hex, ok := swatches[m[1]][intensity]; ok {
		return hex
	}
	return Fallback
}

// StageSwatch returns the stage's explicit swatch when set and parseable,
// otherwise the token lookup.
func StageSwatch(s model.Stage) string {
	if s.Swatch != "" {
		if _, err := Hex(s.Swatch); err == nil {
			return strings.ToLower(s.Swatch)
		}
	}
	return Resolve(s.Color)
}

// Hex parses "#rgb" or "#rrggbb" into an opaque color.
func Hex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("palette: invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("palette: invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// MustHex is Hex for compile-time constants.
func MustHex(s string) color.NRGBA {
	c, err := Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Scheme is the set of colors one theme draws with.
type Scheme struct {
	Background color.NRGBA
	Card       color.NRGBA
	Text       color.NRGBA
	Subtext    color.NRGBA
	Divider    color.NRGBA
	Watermark  color.NRGBA
}

var (
	light = Scheme{
		Background: MustHex("#ffffff"),
		Card:       MustHex("#f3f4f6"),
		Text:       MustHex("#000000"),
		Subtext:    MustHex("#4b5563"),
		Divider:    MustHex("#d1d5db"),
		Watermark:  color.NRGBA{A: 0x80},
	}
	dark = Scheme{
		Background: MustHex("#1f2937"),
		Card:       MustHex("#374151"),
		Text:       MustHex("#ffffff"),
		Subtext:    MustHex("#d1d5db"),
		Divider:    MustHex("#4b5563"),
		Watermark:  color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x80},
	}
)

// For returns the scheme for a theme.
func For(t model.Theme) Scheme {
	if t == model.ThemeDark {
		return dark
	}
	return light
}

// CSS renders c as "#rrggbb".
func CSS(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
