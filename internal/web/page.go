package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	appLog "festgrid/internal/log"
	"festgrid/internal/model"
	"festgrid/internal/palette"
	"festgrid/internal/schedule"
)

// stageHeaderHeight is the column title above the first slot.
const stageHeaderHeight = 30

var pageFuncs = template.FuncMap{
	"px": func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"swatch": func(stages map[string]string, id string) string {
		if c, ok := stages[id]; ok {
			return c
		}
		return palette.Fallback
	},
}

type slotLabel struct {
	Time string
	Top  float64
}

type schemeCSS struct {
	Background, Card, Text, Subtext, Divider string
}

type gridPage struct {
	Title   string
	Date    string
	Theme   model.Theme
	Mobile  bool
	Days    []model.FestivalDay
	Grid    schedule.Grid
	Labels  []slotLabel
	Stages  map[string]string
	Scheme  schemeCSS
	ShowNow bool
	NowTop  float64
}

// handleGridPage renders the grid as static HTML with absolutely positioned
// cards. The root carries data-ready="true" for headless capture.
func (s *Server) handleGridPage(w http.ResponseWriter, r *http.Request) {
	date, ok := s.selectedDate(r)
	if !ok {
		http.Error(w, "unknown festival day", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	mobile := parseBool(q.Get("mobile"))
	theme := model.ParseTheme(q.Get("theme"))

	g, err := s.app.Grid(date, mobile, parseFilter(r))
	if err != nil {
		appLog.Error("grid page: layout failed", err, "date", date)
		http.Error(w, "failed to lay out grid", http.StatusInternalServerError)
		return
	}

	ds := s.app.Dataset()
	stages := make(map[string]string, len(ds.Stages))
	for _, st := range ds.Stages {
		stages[st.ID] = palette.StageSwatch(st)
	}
	sc := palette.For(theme)

	labels := make([]slotLabel, 0, len(g.Slots))
	for _, slot := range g.Slots {
		labels = append(labels, slotLabel{Time: slot.Time, Top: float64(slot.Index) * g.RowHeight})
	}

	page := gridPage{
		Title:  s.cfg.Export.Title,
		Date:   date,
		Theme:  theme,
		Mobile: mobile,
		Days:   ds.Days,
		Grid:   g,
		Labels: labels,
		Stages: stages,
		Scheme: schemeCSS{
			Background: palette.CSS(sc.Background),
			Card:       palette.CSS(sc.Card),
			Text:       palette.CSS(sc.Text),
			Subtext:    palette.CSS(sc.Subtext),
			Divider:    palette.CSS(sc.Divider),
		},
	}
	if top, shown, err := s.app.NowTop(s.now(), date, 1, mobile); err == nil && shown {
		page.ShowNow = true
		page.NowTop = top + stageHeaderHeight
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, page); err != nil {
		appLog.Error("grid page: template failed", err, "date", date)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
