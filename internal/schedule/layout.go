package schedule

import (
	"fmt"
	"math"
	"time"

	"festgrid/internal/model"
)

// DefaultMinCardHeight keeps very short performances tappable.
const DefaultMinCardHeight = 50.0

// Frame is the shared time→pixel reference for every column of one date.
type Frame struct {
	First int64 // epoch ms of the first tick
	Last  int64 // epoch ms of the last tick
	Count int
	Step  time.Duration
}

// NewFrame captures the reference frame of a slot list. step is taken from
// the first two ticks when there are at least two.
func NewFrame(slots []model.TimeSlotInfo) Frame {
	if len(slots) == 0 {
		return Frame{}
	}
	f := Frame{
		First: slots[0].Timestamp,
		Last:  slots[len(slots)-1].Timestamp,
		Count: len(slots),
	}
	if len(slots) > 1 {
		f.Step = time.Duration(slots[1].Timestamp-slots[0].Timestamp) * time.Millisecond
	}
	return f
}

// RangeMillis is last - first.
func (f Frame) RangeMillis() int64 { return f.Last - f.First }

// PixelHeight is the total column height for rowHeight.
func (f Frame) PixelHeight(rowHeight float64) float64 {
	return float64(f.Count) * rowHeight
}

// Offset maps an instant (epoch ms) linearly onto the column.
func (f Frame) Offset(ms int64, rowHeight float64) (float64, error) {
	if f.Count < 2 || f.RangeMillis() <= 0 {
		return 0, ErrEmptyFrame
	}
	return float64(ms-f.First) / float64(f.RangeMillis()) * f.PixelHeight(rowHeight), nil
}

// Placement is where a card sits in its stage column.
type Placement struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Height float64 `json:"height"`
}

// Place computes the card span for r. Performances outside the frame are
// not clipped; callers filter by date first.
func (f Frame) Place(r Resolved, rowHeight, minHeight float64) (Placement, error) {
	top, err := f.Offset(r.StartMillis(), rowHeight)
	if err != nil {
		return Placement{}, err
	}
	bottom, err := f.Offset(r.EndMillis(), rowHeight)
	if err != nil {
		return Placement{}, err
	}
	return Placement{
		Top:    top,
		Bottom: bottom,
		Height: math.Max(bottom-top, minHeight),
	}, nil
}

// Card is one placed performance.
type Card struct {
	Resolved
	Placement
	Favorite bool `json:"favorite"`
}

// Column is a stage and its cards in input order. Overlapping cards on the
// same stage are not split into lanes; later cards draw over earlier ones.
type Column struct {
	Stage model.Stage `json:"stage"`
	Cards []Card      `json:"cards"`
}

// Grid is the laid-out schedule of one date.
type Grid struct {
	Date        string               `json:"date"`
	Slots       []model.TimeSlotInfo `json:"slots"`
	RowHeight   float64              `json:"rowHeight"`
	TotalHeight float64              `json:"totalHeight"`
	Columns     []Column             `json:"columns"`
}

// GridOptions controls BuildGrid.
type GridOptions struct {
	Date      string
	RowHeight float64
	MinHeight float64
	Filter    Filter
	Favorites *model.Favorites
}

// BuildGrid places every matching performance of opts.Date into its stage
// column. Performances referencing an unknown stage are skipped.
func BuildGrid(slots []model.TimeSlotInfo, stages []model.Stage, perfs []Resolved, opts GridOptions) (Grid, error) {
	frame := NewFrame(slots)
	if frame.Count < 2 {
		return Grid{}, fmt.Errorf("build grid %s: %w", opts.Date, ErrEmptyFrame)
	}
	if opts.MinHeight <= 0 {
		opts.MinHeight = DefaultMinCardHeight
	}

	dayPerfs := opts.Filter.Apply(ForDate(perfs, opts.Date), opts.Favorites)
	shown := StagesToDisplay(stages, dayPerfs, opts.Favorites, opts.Filter.FavoritesOnly)

	byStage := make(map[string]int, len(shown))
	cols := make([]Column, 0, len(shown))
	for _, s := range shown {
		if !opts.Filter.StageVisible(s.ID) {
			continue
		}
		byStage[s.ID] = len(cols)
		cols = append(cols, Column{Stage: s, Cards: []Card{}})
	}

	for _, r := range dayPerfs {
		idx, ok := byStage[r.StageID]
		if !ok {
			continue
		}
		pl, err := frame.Place(r, opts.RowHeight, opts.MinHeight)
		if err != nil {
			return Grid{}, fmt.Errorf("build grid %s: %w", opts.Date, err)
		}
		cols[idx].Cards = append(cols[idx].Cards, Card{
			Resolved:  r,
			Placement: pl,
			Favorite:  opts.Favorites.Has(r.ID),
		})
	}

	return Grid{
		Date:        opts.Date,
		Slots:       slots,
		RowHeight:   opts.RowHeight,
		TotalHeight: frame.PixelHeight(opts.RowHeight),
		Columns:     cols,
	}, nil
}
