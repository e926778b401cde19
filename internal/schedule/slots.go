package schedule

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"festgrid/internal/model"
)

// DefaultStepMinutes is the grid cadence.
const DefaultStepMinutes = 10

// SlotSequence is the finite, fixed-cadence run of ticks between a start and
// an end clock time on one date. It is immutable; every Iterator call starts
// again from the first tick.
type SlotSequence struct {
	rule  *rrule.RRule
	loc   *time.Location
	start time.Time
	end   time.Time
	step  time.Duration
}

// GenerateSlots builds the tick sequence for date covering [start, end]. The
// final tick is included when it lands exactly on end.
func GenerateSlots(start, end string, stepMinutes int, date string, loc *time.Location) (*SlotSequence, error) {
	if stepMinutes <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidStep, stepMinutes)
	}
	if loc == nil {
		loc = time.Local
	}
	from, err := LocalInstant(date, start, loc)
	if err != nil {
		return nil, err
	}
	until, err := LocalInstant(date, end, loc)
	if err != nil {
		return nil, err
	}
	if until.Before(from) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvertedRange, start, end)
	}

	// rrule's Until is inclusive, which is exactly the "tick on end" rule.
	// Stepping in UTC keeps ticks evenly spaced across DST changes in loc.
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:     rrule.MINUTELY,
		Interval: stepMinutes,
		Dtstart:  from.UTC(),
		Until:    until.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("schedule: build slot rule: %w", err)
	}

	return &SlotSequence{
		rule:  r,
		loc:   loc,
		start: from,
		end:   until,
		step:  time.Duration(stepMinutes) * time.Minute,
	}, nil
}

// Step is the cadence between ticks.
func (s *SlotSequence) Step() time.Duration { return s.step }

// Location is the venue location the ticks are expressed in.
func (s *SlotSequence) Location() *time.Location { return s.loc }

// Iterator returns a fresh lazy iterator over the ticks.
func (s *SlotSequence) Iterator() func() (model.TimeSlotInfo, bool) {
	next := s.rule.Iterator()
	index := 0
	return func() (model.TimeSlotInfo, bool) {
		t, ok := next()
		if !ok || t.After(s.end) {
			return model.TimeSlotInfo{}, false
		}
		info := model.TimeSlotInfo{
			Time:      ClockOf(t, s.loc),
			Index:     index,
			Timestamp: t.UnixMilli(),
		}
		index++
		return info, true
	}
}

// Slots materializes the whole sequence.
func (s *SlotSequence) Slots() []model.TimeSlotInfo {
	n := int(s.end.Sub(s.start)/s.step) + 1
	out := make([]model.TimeSlotInfo, 0, n)
	next := s.Iterator()
	for {
		info, ok := next()
		if !ok {
			return out
		}
		out = append(out, info)
	}
}
