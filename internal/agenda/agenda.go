// Package agenda prints a day-by-day terminal listing of the schedule.
package agenda

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"festgrid/internal/model"
	"festgrid/internal/palette"
	"festgrid/internal/schedule"
)

// Options control what Render lists.
type Options struct {
	Favorites     *model.Favorites
	FavoritesOnly bool
	// Now highlights performances in progress; zero disables it.
	Now  time.Time
	Days []model.FestivalDay
}

type styles struct {
	day     lipgloss.Style
	clock   lipgloss.Style
	stage   lipgloss.Style
	live    lipgloss.Style
	faint   lipgloss.Style
	divider lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		day:     r.NewStyle().Bold(true).Underline(true).MarginTop(1),
		clock:   r.NewStyle().Width(13),
		stage:   r.NewStyle().Width(8),
		live:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444")),
		faint:   r.NewStyle().Faint(true),
		divider: r.NewStyle().Foreground(lipgloss.Color("#4b5563")),
	}
}

// Render lists perfs by date then start time. A nil renderer uses the
// default terminal.
func Render(r *lipgloss.Renderer, perfs []schedule.Resolved, stages []model.Stage, opts Options) string {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	st := newStyles(r)

	byID := make(map[string]model.Stage, len(stages))
	for _, s := range stages {
		byID[s.ID] = s
	}
	dayNames := make(map[string]string, len(opts.Days))
	for _, d := range opts.Days {
		dayNames[d.Date] = d.Name
	}

	var b strings.Builder
	prevDate := ""
	count := 0
	for _, p := range schedule.SortByStart(perfs) {
		stage, ok := byID[p.StageID]
		if !ok {
			continue
		}
		fav := opts.Favorites.Has(p.ID)
		if opts.FavoritesOnly && !fav {
			continue
		}

		if p.Date != prevDate {
			title := p.Date
			if name, ok := dayNames[p.Date]; ok {
				title = name + "  " + p.Date
			}
			b.WriteString(st.day.Render(title))
			b.WriteString("\n")
			prevDate = p.Date
		}

		swatch := r.NewStyle().Foreground(lipgloss.Color(palette.StageSwatch(stage))).Render("█")
		mark := " "
		if fav {
			mark = "★"
		}
		name := p.Name
		if p.Artist != "" && p.Artist != p.Name {
			name += st.faint.Render(" · " + p.Artist)
		}
		line := fmt.Sprintf("%s %s %s %s %s",
			mark,
			st.clock.Render(p.StartTime+" - "+p.EndTime),
			swatch,
			st.stage.Render(stage.Name),
			name,
		)
		if !opts.Now.IsZero() && !opts.Now.Before(p.Start) && opts.Now.Before(p.End) {
			line += " " + st.live.Render("LIVE")
		}
		b.WriteString(line)
		b.WriteString("\n")
		count++
	}

	if count == 0 {
		return st.faint.Render("no performances") + "\n"
	}
	b.WriteString(st.divider.Render(strings.Repeat("─", 40)))
	b.WriteString(fmt.Sprintf("\n%d performances\n", count))
	return b.String()
}
