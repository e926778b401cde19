package schedule

import (
	"fmt"
	"time"

	appLog "festgrid/internal/log"
	"festgrid/internal/model"
)

// Resolved is a performance with its absolute venue-local instants attached.
type Resolved struct {
	model.Performance
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// StartMillis and EndMillis expose the instants as epoch milliseconds, the
// unit the grid math works in.
func (r Resolved) StartMillis() int64 { return r.Start.UnixMilli() }
func (r Resolved) EndMillis() int64   { return r.End.UnixMilli() }

// Resolve attaches start/end instants to p, interpreting its date and
// clock strings in loc.
func Resolve(p model.Performance, loc *time.Location) (Resolved, error) {
	start, err := LocalInstant(p.Date, p.StartTime, loc)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve %s: %w", p.ID, err)
	}
	end, err := LocalInstant(p.Date, p.EndTime, loc)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve %s: %w", p.ID, err)
	}
	if !end.After(start) {
		return Resolved{}, fmt.Errorf("resolve %s: %w (%s-%s)", p.ID, ErrNonPositiveSpan, p.StartTime, p.EndTime)
	}
	return Resolved{Performance: p, Start: start, End: end}, nil
}

// ResolveAll resolves every performance, logging and dropping the ones that
// cannot be placed on a grid. Input order is preserved.
func ResolveAll(perfs []model.Performance, loc *time.Location) []Resolved {
	out := make([]Resolved, 0, len(perfs))
	for _, p := range perfs {
		r, err := Resolve(p, loc)
		if err != nil {
			appLog.Warn("skipping unrenderable performance", "id", p.ID, "err", err)
			continue
		}
		out = append(out, r)
	}
	return out
}
