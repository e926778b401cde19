package render

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	appLog "festgrid/internal/log"
)

// Fonts holds the parsed regular and bold typefaces. Parsed fonts are safe
// to share; faces are created per composition.
type Fonts struct {
	Regular *opentype.Font
	Bold    *opentype.Font
}

// LoadFonts parses the TrueType/OpenType files at the given paths. An empty
// path selects the bundled Go font, which has no CJK glyphs; that case is
// logged because the default labels and dataset names are Chinese.
func LoadFonts(regularPath, boldPath string) (*Fonts, error) {
	if regularPath == "" {
		appLog.Warn("no export font configured, CJK text will render as missing glyphs",
			"setting", "export.font_path", "env", "FESTGRID_FONT_PATH")
	}
	return loadFonts(regularPath, boldPath)
}

// DefaultFonts returns the bundled Go fonts.
func DefaultFonts() *Fonts {
	f, err := loadFonts("", "")
	if err != nil {
		// The bundled TTFs are compiled in and always parse.
		panic(err)
	}
	return f
}

func loadFonts(regularPath, boldPath string) (*Fonts, error) {
	regular, err := parseFont(regularPath, goregular.TTF)
	if err != nil {
		return nil, err
	}
	if boldPath == "" && regularPath != "" {
		boldPath = regularPath
	}
	bold, err := parseFont(boldPath, gobold.TTF)
	if err != nil {
		return nil, err
	}
	return &Fonts{Regular: regular, Bold: bold}, nil
}

func parseFont(path string, fallback []byte) (*opentype.Font, error) {
	data := fallback
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("render: read font %s: %w", path, err)
		}
		data = b
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("render: parse font %q: %w", path, err)
	}
	return f, nil
}

func (f *Fonts) face(bold bool, size float64) (font.Face, error) {
	tf := f.Regular
	if bold {
		tf = f.Bold
	}
	face, err := opentype.NewFace(tf, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("render: new face %.0fpx: %w", size, err)
	}
	return face, nil
}

// measure returns the advance width of s in pixels.
func measure(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64
}
