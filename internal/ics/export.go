// Package ics converts favorites to and from iCalendar, and fetches remote
// schedule files with HTTP caching.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"festgrid/internal/model"
	"festgrid/internal/schedule"
)

const (
	productID = "-//festgrid//schedule//EN"
	uidSuffix = "@festgrid"

	propStage     = ical.ComponentProperty("X-FESTGRID-STAGE")
	propEventType = ical.ComponentProperty("X-FESTGRID-TYPE")
	propArtist    = ical.ComponentProperty("X-FESTGRID-ARTIST")
)

// Export writes the performances as a PUBLISH calendar, one VEVENT each,
// ordered by start. stamp is used for DTSTAMP so output is reproducible.
func Export(perfs []schedule.Resolved, stages []model.Stage, calName string, stamp time.Time) []byte {
	byID := make(map[string]model.Stage, len(stages))
	for _, s := range stages {
		byID[s.ID] = s
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if calName != "" {
		cal.SetXWRCalName(calName)
	}

	for _, r := range schedule.SortByStart(perfs) {
		ev := cal.AddEvent(r.ID + uidSuffix)
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(r.Start)
		ev.SetEndAt(r.End)
		ev.SetSummary(r.Name)
		if s, ok := byID[r.StageID]; ok {
			ev.SetLocation(s.Name)
		}
		if r.Description != "" {
			ev.SetDescription(r.Description)
		}
		ev.SetProperty(propStage, r.StageID)
		if r.EventTypeID != "" {
			ev.SetProperty(propEventType, r.EventTypeID)
		}
		if r.Artist != "" {
			ev.SetProperty(propArtist, r.Artist)
		}
	}
	return []byte(cal.Serialize())
}

// Filename is the download name for a favorites calendar.
func Filename(date string) string {
	if date == "" {
		return "festival-favorites.ics"
	}
	return fmt.Sprintf("festival-favorites-%s.ics", strings.ReplaceAll(date, "-", ""))
}
