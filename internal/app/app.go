// Package app holds the running festival state: the dataset, the resolved
// performances and the persisted favorites. HTTP handlers and CLI commands
// both go through it; the layout functions it calls stay pure.
package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"festgrid/internal/config"
	"festgrid/internal/dataset"
	"festgrid/internal/ics"
	appLog "festgrid/internal/log"
	"festgrid/internal/model"
	"festgrid/internal/render"
	"festgrid/internal/schedule"
	"festgrid/internal/store"
)

var (
	ErrUnknownPerformance = errors.New("app: unknown performance")
	ErrUnknownDate        = errors.New("app: not a festival day")
	// ErrNothingToExport is the empty state of the export dialog.
	ErrNothingToExport = errors.New("app: no favorites to export")
	ErrExportFailed    = errors.New("app: image generation failed")
)

// App is shared by every request; methods are safe for concurrent use.
type App struct {
	cfg        *config.Config
	loc        *time.Location
	kv         *store.KVStore
	compositor *render.Compositor

	mu       sync.RWMutex
	ds       *dataset.Dataset
	resolved []schedule.Resolved
	favs     *model.Favorites
}

// New loads the embedded dataset, applies a saved performance override and
// restores favorites from kv.
func New(cfg *config.Config, kv *store.KVStore, fonts *render.Fonts) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Default(cfg.Festival.Opening, cfg.Festival.Days, loc)
	if err != nil {
		return nil, err
	}
	ds = ds.Override(kv.LoadPerformances())

	a := &App{
		cfg: cfg,
		loc: loc,
		kv:  kv,
		compositor: render.New(fonts, render.Options{
			Title:      cfg.Export.Title,
			RangeLabel: cfg.Export.RangeLabel,
			Watermark:  cfg.Export.Watermark,
			Scale:      cfg.Export.Scale,
		}),
		favs: kv.LoadFavorites(),
	}
	a.setDataset(ds)
	return a, nil
}

func (a *App) setDataset(ds *dataset.Dataset) {
	resolved := schedule.ResolveAll(ds.Performances, a.loc)
	a.mu.Lock()
	a.ds = ds
	a.resolved = resolved
	a.mu.Unlock()
	appLog.Info("dataset loaded",
		"stages", len(ds.Stages),
		"performances", len(ds.Performances),
		"resolved", len(resolved),
		"days", len(ds.Days),
	)
}

func (a *App) Config() *config.Config { return a.cfg }
func (a *App) Location() *time.Location { return a.loc }

// Dataset returns the current dataset. Callers must not modify it.
func (a *App) Dataset() *dataset.Dataset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ds
}

// Performances returns the resolved performance list.
func (a *App) Performances() []schedule.Resolved {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.resolved
}

// Favorites returns a copy of the favorites set.
func (a *App) Favorites() *model.Favorites {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return model.NewFavorites(a.favs.IDs()...)
}

// ToggleFavorite flips id and persists the set. It reports the new state.
func (a *App) ToggleFavorite(id string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	known := false
	for _, p := range a.ds.Performances {
		if p.ID == id {
			known = true
			break
		}
	}
	if !known {
		return false, fmt.Errorf("%w: %q", ErrUnknownPerformance, id)
	}

	on := a.favs.Toggle(id)
	if err := a.kv.SaveFavorites(a.favs); err != nil {
		// The in-memory set stays authoritative for this run.
		appLog.Error("persist favorites failed", err, "id", id)
	}
	return on, nil
}

// ImportPerformances validates perfs, saves them as the override and makes
// them current.
func (a *App) ImportPerformances(perfs []model.Performance) error {
	if err := dataset.Validate(perfs); err != nil {
		return err
	}
	if err := a.kv.SavePerformances(perfs); err != nil {
		return err
	}
	a.setDataset(a.Dataset().WithPerformances(perfs))
	return nil
}

// ResetPerformances drops the override and returns to the embedded list.
func (a *App) ResetPerformances() error {
	if err := a.kv.Delete(store.KeyPerformances); err != nil {
		return err
	}
	ds, err := dataset.Default(a.cfg.Festival.Opening, a.cfg.Festival.Days, a.loc)
	if err != nil {
		return err
	}
	a.setDataset(ds)
	return nil
}

// Slots is the configured tick sequence of date.
func (a *App) Slots(date string) (*schedule.SlotSequence, error) {
	s := a.cfg.Slots
	return schedule.GenerateSlots(s.Start, s.End, s.StepMinutes, date, a.loc)
}

func (a *App) rowHeight(mobile bool) float64 {
	if mobile {
		return a.cfg.Layout.MobileRowHeight
	}
	return a.cfg.Layout.RowHeight
}

// Grid lays out date for the desktop or mobile row height.
func (a *App) Grid(date string, mobile bool, filter schedule.Filter) (schedule.Grid, error) {
	seq, err := a.Slots(date)
	if err != nil {
		return schedule.Grid{}, err
	}
	a.mu.RLock()
	stages, perfs := a.ds.Stages, a.resolved
	a.mu.RUnlock()

	return schedule.BuildGrid(seq.Slots(), stages, perfs, schedule.GridOptions{
		Date:      date,
		RowHeight: a.rowHeight(mobile),
		MinHeight: a.cfg.Layout.MinCardHeight,
		Filter:    filter,
		Favorites: a.Favorites(),
	})
}

// NowTop is the now-indicator offset on date, or false when hidden.
func (a *App) NowTop(now time.Time, date string, zoom float64, mobile bool) (float64, bool, error) {
	seq, err := a.Slots(date)
	if err != nil {
		return 0, false, err
	}
	ind := schedule.NowIndicator{
		Frame:     schedule.NewFrame(seq.Slots()),
		RowHeight: a.rowHeight(mobile),
		Zoom:      zoom,
		Debug:     a.cfg.Debug,
		DebugHour: a.cfg.DebugHour,
		Location:  a.loc,
	}
	top, ok := ind.Locate(now, date)
	return top, ok, nil
}

// ExportInput assembles the compositor input for the favorites of date, or
// of every day when allDays is set.
func (a *App) ExportInput(date string, theme model.Theme, allDays bool) (render.Input, error) {
	ds := a.Dataset()
	if !allDays && !ds.HasDay(date) {
		return render.Input{}, fmt.Errorf("%w: %q", ErrUnknownDate, date)
	}
	perfs := schedule.SelectForExport(a.Performances(), a.Favorites(), date, allDays)
	if len(perfs) == 0 {
		return render.Input{}, ErrNothingToExport
	}
	return render.Input{
		Performances: perfs,
		Stages:       ds.Stages,
		Theme:        theme,
		Compact:      allDays,
		SelectedDate: date,
		DayNumber:    ds.DayNumber,
	}, nil
}

// ExportDataURL renders the share image as a data URL.
func (a *App) ExportDataURL(date string, theme model.Theme, allDays bool) (string, error) {
	in, err := a.ExportInput(date, theme, allDays)
	if err != nil {
		return "", err
	}
	url, ok := a.compositor.DataURL(in)
	if !ok {
		return "", ErrExportFailed
	}
	return url, nil
}

// ExportPNG renders the share image as PNG bytes.
func (a *App) ExportPNG(date string, theme model.Theme, allDays bool) ([]byte, error) {
	in, err := a.ExportInput(date, theme, allDays)
	if err != nil {
		return nil, err
	}
	data, err := a.compositor.PNG(in)
	if err != nil {
		appLog.Error("schedule image generation failed", err, "date", date)
		return nil, ErrExportFailed
	}
	return data, nil
}

// FavoritesICS exports favorites of date (all days when date is empty).
func (a *App) FavoritesICS(date string, stamp time.Time) []byte {
	perfs := schedule.SelectForExport(a.Performances(), a.Favorites(), date, date == "")
	return ics.Export(perfs, a.Dataset().Stages, a.cfg.Export.Title, stamp)
}
