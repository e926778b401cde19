// Package dataset holds the embedded festival data: the stage and event
// type registries, the default performance list, and the festival days.
package dataset

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "festgrid/internal/log"
	"festgrid/internal/model"
	"festgrid/internal/palette"
)

//go:embed data/*.json
var embedded embed.FS

// Dataset is the static festival data for one run.
type Dataset struct {
	Stages       []model.Stage
	EventTypes   []model.EventType
	Performances []model.Performance
	Days         []model.FestivalDay
}

// Default loads the embedded dataset. Days are generated from opening and
// dayCount in loc.
func Default(opening string, dayCount int, loc *time.Location) (*Dataset, error) {
	var ds Dataset
	if err := readEmbedded("data/stages.json", &ds.Stages); err != nil {
		return nil, err
	}
	if err := readEmbedded("data/event_types.json", &ds.EventTypes); err != nil {
		return nil, err
	}
	if err := readEmbedded("data/performances.json", &ds.Performances); err != nil {
		return nil, err
	}
	for i := range ds.Stages {
		ds.Stages[i].Swatch = palette.StageSwatch(ds.Stages[i])
	}
	days, err := FestivalDays(opening, dayCount, loc)
	if err != nil {
		return nil, err
	}
	ds.Days = days
	return &ds, nil
}

func readEmbedded(name string, v any) error {
	data, err := embedded.ReadFile(name)
	if err != nil {
		return fmt.Errorf("dataset: read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("dataset: decode %s: %w", name, err)
	}
	return nil
}

// FestivalDays expands the opening date into count consecutive days named
// "Day N (Month D)".
func FestivalDays(opening string, count int, loc *time.Location) ([]model.FestivalDay, error) {
	if count <= 0 {
		return nil, fmt.Errorf("dataset: festival day count must be positive, got %d", count)
	}
	if loc == nil {
		loc = time.Local
	}
	start, err := time.ParseInLocation("2006-01-02", opening, loc)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening date %q: %w", opening, err)
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   count,
		Dtstart: start,
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: day rule: %w", err)
	}

	days := make([]model.FestivalDay, 0, count)
	for i, d := range r.All() {
		days = append(days, model.FestivalDay{
			ID:   fmt.Sprintf("day%d", i+1),
			Date: d.Format("2006-01-02"),
			Name: fmt.Sprintf("Day %d (%s %d)", i+1, d.Month(), d.Day()),
		})
	}
	return days, nil
}

// Stage looks a stage up by id.
func (ds *Dataset) Stage(id string) (model.Stage, bool) {
	for _, s := range ds.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return model.Stage{}, false
}

// EventType looks an event type up by id.
func (ds *Dataset) EventType(id string) (model.EventType, bool) {
	for _, et := range ds.EventTypes {
		if et.ID == id {
			return et, true
		}
	}
	return model.EventType{}, false
}

// DayNumber returns the 1-based festival day of date, or 0.
func (ds *Dataset) DayNumber(date string) int {
	for i, d := range ds.Days {
		if d.Date == date {
			return i + 1
		}
	}
	return 0
}

// HasDay reports whether date is a festival day.
func (ds *Dataset) HasDay(date string) bool {
	return ds.DayNumber(date) > 0
}

// WithPerformances returns a shallow copy using perfs instead of the
// embedded list.
func (ds *Dataset) WithPerformances(perfs []model.Performance) *Dataset {
	cp := *ds
	cp.Performances = perfs
	return &cp
}

// ValidationError is returned by Validate for the first bad item.
type ValidationError struct {
	Index int
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("item at index %d is missing %s", e.Index, e.Field)
}

// Validate checks the required fields of an imported list.
func Validate(perfs []model.Performance) error {
	for i, p := range perfs {
		switch {
		case p.ID == "":
			return &ValidationError{Index: i, Field: "an id"}
		case p.Name == "":
			return &ValidationError{Index: i, Field: "a name"}
		case p.StageID == "":
			return &ValidationError{Index: i, Field: "a stageId"}
		case p.StartTime == "":
			return &ValidationError{Index: i, Field: "a startTime"}
		case p.EndTime == "":
			return &ValidationError{Index: i, Field: "an endTime"}
		}
	}
	return nil
}

var (
	ErrInvalidJSON = errors.New("invalid JSON data")
	ErrNotArray    = errors.New("data must be an array of performances")
)

// Decode parses and validates an imported JSON performance list.
func Decode(data []byte) ([]model.Performance, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, ErrInvalidJSON
	}
	if trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var perfs []model.Performance
	if err := json.Unmarshal(trimmed, &perfs); err != nil {
		return nil, fmt.Errorf("dataset: invalid performance list: %w", err)
	}
	if err := Validate(perfs); err != nil {
		return nil, err
	}
	return perfs, nil
}

// Override swaps in a previously saved performance list. Anything that
// does not decode is logged and the embedded list is kept.
func (ds *Dataset) Override(saved []byte) *Dataset {
	if len(saved) == 0 {
		return ds
	}
	perfs, err := Decode(saved)
	if err != nil {
		appLog.Error("ignoring saved performances", err)
		return ds
	}
	return ds.WithPerformances(perfs)
}
