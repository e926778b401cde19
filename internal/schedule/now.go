package schedule

import (
	"time"
)

// DefaultDebugHour pins the debug clock to noon of the selected date.
const DefaultDebugHour = 12

// NowIndicator locates the current-time marker in a Frame.
type NowIndicator struct {
	Frame     Frame
	RowHeight float64
	// Zoom scales RowHeight for pinch/zoomed views; zero means 1.
	Zoom float64
	// Debug pins the clock to DebugHour:00 of the selected date and shows
	// the marker on any date. Hours outside 0-23 fall back to noon.
	Debug     bool
	DebugHour int
	Location  *time.Location
}

// Locate returns the marker's top offset for now on selectedDate, or false
// when no marker should be drawn.
//
// The zero point is moved back one step from the first tick so the marker
// lines up with the grid rules rather than sitting one row low. The visible
// window is [first-step, first+count*step).
func (n NowIndicator) Locate(now time.Time, selectedDate string) (float64, bool) {
	f := n.Frame
	if f.Count < 2 || f.RangeMillis() <= 0 || f.Step <= 0 {
		return 0, false
	}
	loc := n.Location
	if loc == nil {
		loc = time.Local
	}

	if n.Debug {
		hour := n.DebugHour
		if hour < 0 || hour > 23 {
			hour = DefaultDebugHour
		}
		d, err := time.ParseInLocation(dateLayout, selectedDate, loc)
		if err != nil {
			return 0, false
		}
		now = time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc)
	} else if DateOf(now, loc) != selectedDate {
		return 0, false
	}

	stepMs := f.Step.Milliseconds()
	adjustedFirst := f.First - stepMs
	effectiveEnd := f.First + int64(f.Count)*stepMs

	ms := now.UnixMilli()
	if ms < adjustedFirst || ms >= effectiveEnd {
		return 0, false
	}

	zoom := n.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	height := f.PixelHeight(n.RowHeight * zoom)
	return float64(ms-adjustedFirst) / float64(f.RangeMillis()) * height, true
}
