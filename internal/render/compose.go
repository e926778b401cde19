// Package render rasterizes a favorites list into a shareable PNG schedule.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"festgrid/internal/convert"
	appLog "festgrid/internal/log"
	"festgrid/internal/model"
	"festgrid/internal/palette"
	"festgrid/internal/schedule"
)

// Options are the fixed texts and resolution of rendered images.
type Options struct {
	Title      string
	RangeLabel string // subheading in compact (multi-day) mode
	Watermark  string
	Scale      int
}

// DefaultOptions matches the festival's share card.
func DefaultOptions() Options {
	return Options{
		Title:      "我的大港聽團行程",
		RangeLabel: "3/29 (六) - 3/30 (日)",
		Watermark:  "Festva 用心製作",
		Scale:      2,
	}
}

// Input is one composition request.
type Input struct {
	Performances []schedule.Resolved
	Stages       []model.Stage
	Theme        model.Theme
	// Compact renders the multi-day layout: range subheading and dated
	// footers.
	Compact      bool
	SelectedDate string
	// DayNumber maps a date to its festival day for the "Day N" label, so a
	// schedule holding only the second festival day reads "Day 2". Nil, or
	// zero for a date, falls back to counting rendered dates from 1.
	DayNumber func(date string) int
}

// Compositor renders schedule images. Calls are serialized; a second call
// waits for the one in flight.
type Compositor struct {
	fonts *Fonts
	opts  Options
	mu    sync.Mutex
}

// New returns a Compositor. Nil fonts selects the bundled Go fonts.
func New(fonts *Fonts, opts Options) *Compositor {
	if fonts == nil {
		fonts = DefaultFonts()
	}
	if opts.Scale <= 0 {
		opts.Scale = 2
	}
	return &Compositor{fonts: fonts, opts: opts}
}

type faces struct {
	measure   font.Face
	title     font.Face
	subtitle  font.Face
	dayMarker font.Face
	cardTitle font.Face
	footer    font.Face
	watermark font.Face
}

type faceSpec struct {
	dst  *font.Face
	bold bool
	size float64
}

func (c *Compositor) newFaces() (*faces, error) {
	s := float64(c.opts.Scale)
	f := &faces{}
	specs := []faceSpec{
		{&f.measure, true, cardTitleSize},
		{&f.title, true, titleSize * s},
		{&f.subtitle, false, subtitleSize * s},
		{&f.dayMarker, true, dayMarkerSize * s},
		{&f.cardTitle, true, cardTitleSize * s},
		{&f.footer, false, footerSize * s},
		{&f.watermark, false, watermarkSize * s},
	}
	for _, sp := range specs {
		face, err := c.fonts.face(sp.bold, sp.size)
		if err != nil {
			f.Close()
			return nil, err
		}
		*sp.dst = face
	}
	return f, nil
}

func (f *faces) Close() {
	for _, face := range []font.Face{f.measure, f.title, f.subtitle, f.dayMarker, f.cardTitle, f.footer, f.watermark} {
		if face != nil {
			face.Close()
		}
	}
}

// canvas draws in unscaled coordinates onto a scaled bitmap.
type canvas struct {
	img   *image.NRGBA
	scale float64
}

func (cv *canvas) px(v float64) int { return int(math.Round(v * cv.scale)) }

func (cv *canvas) fillRect(x, y, w, h float64, c color.NRGBA) {
	r := image.Rect(cv.px(x), cv.px(y), cv.px(x+w), cv.px(y+h))
	draw.Draw(cv.img, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// text draws s with its baseline at (x, y).
func (cv *canvas) text(face font.Face, s string, x, y float64, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  cv.img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(cv.px(x), cv.px(y)),
	}
	d.DrawString(s)
}

// centeredText draws s centered on x.
func (cv *canvas) centeredText(face font.Face, s string, x, y float64, c color.NRGBA) {
	w := measure(face, s) / cv.scale
	cv.text(face, s, x-w/2, y, c)
}

// Compose lays out and draws the schedule. Panics from drawing are turned
// into errors.
func (c *Compositor) Compose(in Input) (img *image.NRGBA, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("render: compose panicked: %v", r)
		}
	}()

	f, err := c.newFaces()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	subtitle := c.opts.RangeLabel
	if !in.Compact {
		subtitle, err = longDate(in.SelectedDate)
		if err != nil {
			return nil, err
		}
	}

	p := measurePlan(f.measure, in.Performances, in.Stages, in.DayNumber)
	scheme := palette.For(in.Theme)
	scale := c.opts.Scale

	cv := &canvas{
		img:   image.NewNRGBA(image.Rect(0, 0, BaseWidth*scale, p.height*scale)),
		scale: float64(scale),
	}
	height := float64(p.height)

	cv.fillRect(0, 0, BaseWidth, height, scheme.Background)
	cv.text(f.title, c.opts.Title, 50, 60, scheme.Text)
	cv.text(f.subtitle, subtitle, 50, 100, scheme.Text)

	y := float64(HeaderHeight)
	for _, e := range p.entries {
		if e.newDay {
			cv.centeredText(f.dayMarker, fmt.Sprintf("Day %d", e.dayNumber), BaseWidth/2, y+dayMarkerHeight-5, scheme.Text)
			y += dayMarkerHeight + markerDividerPadding
			cv.fillRect(50, y, BaseWidth-100, 2, scheme.Divider)
			y += dividerBottomPadding
		}

		ch := float64(e.height)
		bar, herr := palette.Hex(palette.StageSwatch(e.stage))
		if herr != nil {
			bar = palette.MustHex(palette.Fallback)
		}
		cv.fillRect(50, y, 15, ch, bar)
		cv.fillRect(75, y, BaseWidth-125, ch, scheme.Card)

		for i, line := range e.lines {
			cv.text(f.cardTitle, line, 90, y+30+float64(i*lineStep), scheme.Text)
		}

		datePrefix := ""
		if in.Compact {
			datePrefix = shortDate(e.perf.Date) + " | "
		}
		footer := fmt.Sprintf("%s%s - %s | %s", datePrefix, e.perf.StartTime, e.perf.EndTime, e.stage.Name)
		cv.text(f.footer, footer, 90, y+ch-20, scheme.Subtext)

		y += ch + CardSpacing
	}

	cv.text(f.watermark, c.opts.Watermark, BaseWidth-170, height-20, scheme.Watermark)
	return cv.img, nil
}

// PNG composes and encodes the image.
func (c *Compositor) PNG(in Input) ([]byte, error) {
	img, err := c.Compose(in)
	if err != nil {
		return nil, err
	}
	return convert.EncodePNG(img)
}

// DataURL composes the image as a "data:image/png;base64,..." URL. Failures
// are logged and reported as ok=false so callers can show a retry state.
func (c *Compositor) DataURL(in Input) (string, bool) {
	data, err := c.PNG(in)
	if err != nil {
		appLog.Error("schedule image generation failed", err,
			"performances", len(in.Performances),
			"theme", string(in.Theme),
			"compact", in.Compact,
		)
		return "", false
	}
	return convert.PNGDataURL(data), true
}
