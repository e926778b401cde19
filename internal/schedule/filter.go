package schedule

import (
	"sort"
	"strings"

	"festgrid/internal/model"
)

// ForDate keeps performances on date, preserving order.
func ForDate(perfs []Resolved, date string) []Resolved {
	out := make([]Resolved, 0, len(perfs))
	for _, r := range perfs {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out
}

// SelectForExport picks the favorites that go into a shared image: only
// date's favorites, or every favorite when allDays is set.
func SelectForExport(perfs []Resolved, favs *model.Favorites, date string, allDays bool) []Resolved {
	out := make([]Resolved, 0)
	for _, r := range perfs {
		if !favs.Has(r.ID) {
			continue
		}
		if !allDays && r.Date != date {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Filter narrows what the grid shows. Nil sets mean "everything visible".
type Filter struct {
	Stages        map[string]bool
	EventTypes    map[string]bool
	FavoritesOnly bool
	Query         string
}

// StageVisible reports whether a stage column is shown.
func (f Filter) StageVisible(id string) bool {
	return f.Stages == nil || f.Stages[id]
}

func (f Filter) eventTypeVisible(id string) bool {
	if f.EventTypes == nil {
		return true
	}
	// Untagged performances stay visible while any type is selected.
	return id == "" || f.EventTypes[id]
}

func (f Filter) matches(p model.Performance) bool {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Artist), q)
}

// Apply returns the performances passing every criterion, in input order.
func (f Filter) Apply(perfs []Resolved, favs *model.Favorites) []Resolved {
	out := make([]Resolved, 0, len(perfs))
	for _, r := range perfs {
		if f.FavoritesOnly && !favs.Has(r.ID) {
			continue
		}
		if !f.StageVisible(r.StageID) || !f.eventTypeVisible(r.EventTypeID) || !f.matches(r.Performance) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// StagesToDisplay is the column list: every stage, or in favorites-only mode
// just the stages hosting a favorite.
func StagesToDisplay(stages []model.Stage, perfs []Resolved, favs *model.Favorites, favoritesOnly bool) []model.Stage {
	if !favoritesOnly {
		return stages
	}
	used := make(map[string]bool)
	for _, r := range perfs {
		if favs.Has(r.ID) {
			used[r.StageID] = true
		}
	}
	out := make([]model.Stage, 0, len(used))
	for _, s := range stages {
		if used[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// TimeGroup is the mobile list bucket for one start time.
type TimeGroup struct {
	StartTime    string     `json:"startTime"`
	Performances []Resolved `json:"performances"`
}

// GroupByStart buckets performances by date and start time, ordered by
// start instant.
func GroupByStart(perfs []Resolved) []TimeGroup {
	idx := make(map[string]int)
	groups := make([]TimeGroup, 0)
	for _, r := range perfs {
		key := r.Date + " " + r.StartTime
		i, ok := idx[key]
		if !ok {
			i = len(groups)
			idx[key] = i
			groups = append(groups, TimeGroup{StartTime: r.StartTime})
		}
		groups[i].Performances = append(groups[i].Performances, r)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Performances[0].Start.Before(groups[b].Performances[0].Start)
	})
	return groups
}

// SortByStart orders by (date, start) and keeps input order on ties.
func SortByStart(perfs []Resolved) []Resolved {
	out := append([]Resolved(nil), perfs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}
