package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "festgrid/internal/log"
	"festgrid/internal/model"
	"festgrid/internal/schedule"
)

// ErrEmptyBody is returned for an empty payload.
var ErrEmptyBody = errors.New("ics: empty body")

// Parse reads VEVENTs back into performances in the venue's local time.
// The stage comes from X-FESTGRID-STAGE, else from LOCATION matched against
// stage names. Events that cannot be mapped are logged and skipped.
func Parse(body []byte, stages []model.Stage, loc *time.Location) ([]model.Performance, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse calendar: %w", err)
	}

	byName := make(map[string]string, len(stages))
	known := make(map[string]bool, len(stages))
	for _, s := range stages {
		byName[strings.ToLower(s.Name)] = s.ID
		known[s.ID] = true
	}

	perfs := make([]model.Performance, 0)
	for _, ve := range cal.Events() {
		p, perr := parseEvent(ve, byName, known, loc)
		if perr != nil {
			appLog.Warn("ics event skipped", "uid", propValue(ve, ical.ComponentPropertyUniqueId), "err", perr)
			continue
		}
		perfs = append(perfs, p)
	}
	appLog.Info("ics parse completed", "event_count", len(perfs))
	return perfs, nil
}

func parseEvent(ve *ical.VEvent, byName map[string]string, known map[string]bool, loc *time.Location) (model.Performance, error) {
	var p model.Performance

	p.Name = propValue(ve, ical.ComponentPropertySummary)
	if p.Name == "" {
		return p, errors.New("missing SUMMARY")
	}
	p.Description = propValue(ve, ical.ComponentPropertyDescription)
	p.EventTypeID = propValue(ve, propEventType)
	p.Artist = propValue(ve, propArtist)

	p.StageID = propValue(ve, propStage)
	if !known[p.StageID] {
		id, ok := byName[strings.ToLower(propValue(ve, ical.ComponentPropertyLocation))]
		if !ok {
			return p, fmt.Errorf("unknown stage %q", propValue(ve, ical.ComponentPropertyLocation))
		}
		p.StageID = id
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return p, fmt.Errorf("DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return p, fmt.Errorf("DTEND: %w", err)
	}
	start, end = start.In(loc), end.In(loc)
	if !end.After(start) {
		return p, schedule.ErrNonPositiveSpan
	}

	p.Date = schedule.DateOf(start, loc)
	p.StartTime = schedule.ClockOf(start, loc)
	p.EndTime = schedule.ClockOf(end, loc)

	if uid := propValue(ve, ical.ComponentPropertyUniqueId); uid != "" {
		p.ID = strings.TrimSuffix(uid, uidSuffix)
	} else {
		p.ID = derivedID(p)
	}
	return p, nil
}

// derivedID names an event that has no UID. Re-importing the same calendar
// yields the same ids, so favorites survive.
func derivedID(p model.Performance) string {
	key := strings.Join([]string{p.StageID, p.Date, p.StartTime, p.Name}, "|")
	return "ics-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if prop := ve.GetProperty(name); prop != nil {
		return prop.Value
	}
	return ""
}
