package render

import (
	"math"

	"golang.org/x/image/font"

	"festgrid/internal/model"
	"festgrid/internal/schedule"
)

// Layout constants in unscaled pixels.
const (
	BaseWidth      = 500
	TextMaxWidth   = BaseWidth - 150
	HeaderHeight   = 150
	CardHeight     = 100
	CardHeightTall = 120
	CardSpacing    = 20
	MinHeight      = 300
	BottomPadding  = 30

	dayMarkerHeight      = 25
	markerDividerPadding = 15
	dividerBottomPadding = 20
	// DayHeaderHeight is the block added before the first card of each date.
	DayHeaderHeight = dayMarkerHeight + markerDividerPadding + dividerBottomPadding

	titleSize     = 32
	subtitleSize  = 24
	cardTitleSize = 24
	dayMarkerSize = 20
	footerSize    = 18
	watermarkSize = 16
	lineStep      = 25
)

// entry is one measured card.
type entry struct {
	perf      schedule.Resolved
	stage     model.Stage
	lines     []string
	height    int
	newDay    bool
	dayNumber int
}

// plan is the measured layout of a whole image.
type plan struct {
	entries    []entry
	height     int
	dayHeaders int
}

// wrapChars breaks text per character so scripts without spaces wrap too.
func wrapChars(face font.Face, text string, maxWidth float64) []string {
	var lines []string
	line := ""
	for _, r := range text {
		test := line + string(r)
		if measure(face, test) > maxWidth && line != "" {
			lines = append(lines, line)
			line = string(r)
			continue
		}
		line = test
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

func cardHeightFor(lines []string) int {
	if len(lines) > 1 {
		return CardHeightTall
	}
	return CardHeight
}

// measurePlan sorts, drops cards without a stage, wraps titles and sums the
// canvas height. dayNumber resolves the "Day N" label; zero falls back to a
// running count of dates.
func measurePlan(measureFace font.Face, perfs []schedule.Resolved, stages []model.Stage, dayNumber func(string) int) plan {
	byID := make(map[string]model.Stage, len(stages))
	for _, s := range stages {
		byID[s.ID] = s
	}

	p := plan{}
	total := HeaderHeight
	prevDate := ""
	counter := 0
	for _, r := range schedule.SortByStart(perfs) {
		stage, ok := byID[r.StageID]
		if !ok {
			continue
		}
		e := entry{perf: r, stage: stage}
		e.lines = wrapChars(measureFace, r.Name, TextMaxWidth)
		e.height = cardHeightFor(e.lines)
		total += e.height + CardSpacing

		if len(p.entries) == 0 || r.Date != prevDate {
			counter++
			e.newDay = true
			e.dayNumber = counter
			if dayNumber != nil {
				if n := dayNumber(r.Date); n > 0 {
					e.dayNumber = n
				}
			}
			total += DayHeaderHeight
			p.dayHeaders++
		}
		prevDate = r.Date
		p.entries = append(p.entries, e)
	}
	p.height = int(math.Max(MinHeight, float64(total+BottomPadding)))
	return p
}
