package model

import (
	"encoding/json"
	"sort"
	"time"
)

// Performance is one scheduled act as stored in the dataset. Times are local
// venue clock times; Date is "YYYY-MM-DD".
type Performance struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Artist      string `json:"artist" yaml:"artist"`
	StageID     string `json:"stageId" yaml:"stage_id"`
	StartTime   string `json:"startTime" yaml:"start_time"`
	EndTime     string `json:"endTime" yaml:"end_time"`
	Date        string `json:"date" yaml:"date"`
	EventTypeID string `json:"eventTypeId,omitempty" yaml:"event_type_id,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Stage is a column of the grid. Color is the original class-style token
// ("bg-lime-400"); Swatch is the resolved "#rrggbb" used for raster output.
type Stage struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Swatch string `json:"swatch,omitempty"`
}

// EventType tags a performance (music, talk, DJ set...).
type EventType struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon,omitempty"`
}

// TimeSlotInfo is a single tick of the grid.
type TimeSlotInfo struct {
	Time      string `json:"time"`
	Index     int    `json:"index"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// At returns the tick as a time.Time in loc.
func (s TimeSlotInfo) At(loc *time.Location) time.Time {
	return time.UnixMilli(s.Timestamp).In(loc)
}

// FestivalDay is one calendar day of the festival.
type FestivalDay struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
}

// Theme selects the palette for rendered output.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme maps anything other than "dark" to light.
func ParseTheme(s string) Theme {
	if s == string(ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}

// Favorites is the set of favorited performance ids.
type Favorites struct {
	ids map[string]struct{}
}

// NewFavorites builds a set from ids, ignoring blanks and duplicates.
func NewFavorites(ids ...string) *Favorites {
	f := &Favorites{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id == "" {
			continue
		}
		f.ids[id] = struct{}{}
	}
	return f
}

// Has reports whether id is favorited. A nil set has no favorites.
func (f *Favorites) Has(id string) bool {
	if f == nil {
		return false
	}
	_, ok := f.ids[id]
	return ok
}

// Toggle flips id and reports whether it is now favorited.
func (f *Favorites) Toggle(id string) bool {
	if _, ok := f.ids[id]; ok {
		delete(f.ids, id)
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

func (f *Favorites) Len() int {
	if f == nil {
		return 0
	}
	return len(f.ids)
}

// IDs returns the ids sorted, so persisted output is stable.
func (f *Favorites) IDs() []string {
	out := make([]string, 0, f.Len())
	if f == nil {
		return out
	}
	for id := range f.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a JSON array of ids.
func (f *Favorites) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.IDs())
}

// UnmarshalJSON decodes a JSON array of ids.
func (f *Favorites) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*f = *NewFavorites(ids...)
	return nil
}
