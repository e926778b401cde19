package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"festgrid/internal/agenda"
	"festgrid/internal/capture"
	"festgrid/internal/dataset"
	"festgrid/internal/ics"
	"festgrid/internal/model"
	"festgrid/internal/schedule"
)

// defaultDate is the first festival day.
func (e *env) defaultDate(date string) string {
	if date != "" {
		return date
	}
	if days := e.app.Dataset().Days; len(days) > 0 {
		return days[0].Date
	}
	return ""
}

func newSlotsCmd(e *env) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the time slots of a festival day",
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := e.app.Slots(e.defaultDate(date))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			next := seq.Iterator()
			for {
				slot, ok := next()
				if !ok {
					return nil
				}
				fmt.Fprintf(out, "%3d  %s  %d\n", slot.Index, slot.Time, slot.Timestamp)
			}
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Festival day (YYYY-MM-DD); defaults to the first day")
	return cmd
}

func newAgendaCmd(e *env) *cobra.Command {
	var (
		date      string
		favorites bool
	)
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "List performances in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			perfs := e.app.Performances()
			if date != "" {
				perfs = schedule.ForDate(perfs, date)
			}
			ds := e.app.Dataset()
			out := agenda.Render(lipgloss.NewRenderer(cmd.OutOrStdout()), perfs, ds.Stages, agenda.Options{
				Favorites:     e.app.Favorites(),
				FavoritesOnly: favorites,
				Now:           time.Now(),
				Days:          ds.Days,
			})
			_, err := fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Only this day (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "Only favorites")
	return cmd
}

func newFavoriteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite [id...]",
		Short: "Toggle favorites by performance id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				on, err := e.app.ToggleFavorite(id)
				if err != nil {
					return err
				}
				state := "removed"
				if on {
					state = "added"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, id)
			}
			return nil
		},
	}
}

func newExportCmd(e *env) *cobra.Command {
	var (
		date    string
		theme   string
		allDays bool
		output  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the favorites schedule image as PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			png, err := e.app.ExportPNG(e.defaultDate(date), model.ParseTheme(theme), allDays)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, png, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", output, len(png))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Festival day (YYYY-MM-DD); defaults to the first day")
	cmd.Flags().StringVar(&theme, "theme", "light", "light or dark")
	cmd.Flags().BoolVar(&allDays, "all", false, "Every day in one compact image")
	cmd.Flags().StringVarP(&output, "output", "o", "schedule.png", "Output file")
	return cmd
}

func newICSCmd(e *env) *cobra.Command {
	var (
		date   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Export favorites as an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := e.app.FavoritesICS(date, time.Now())
			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			return os.WriteFile(output, body, 0o644)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Only this day; empty exports every day")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, - for stdout")
	return cmd
}

func newImportCmd(e *env) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "import [file|url]",
		Short: "Replace the performance list from a JSON or iCalendar file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reset {
				return e.app.ResetPerformances()
			}
			if len(args) == 0 {
				return fmt.Errorf("import needs a file or URL (or --reset)")
			}
			res, err := readSource(cmd.Context(), e, args[0])
			if err != nil {
				return err
			}

			var perfs []model.Performance
			if res.Format() == ics.FormatICS {
				perfs, err = ics.Parse(res.Body, e.app.Dataset().Stages, e.app.Location())
			} else {
				perfs, err = dataset.Decode(res.Body)
			}
			if err != nil {
				return err
			}
			if err := e.app.ImportPerformances(perfs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d performances\n", len(perfs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Drop the imported list and use the bundled one")
	return cmd
}

// readSource loads a local file, or fetches http(s) URLs through the caching
// fetcher.
func readSource(ctx context.Context, e *env, arg string) (ics.Result, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		f := ics.NewFetcher(e.cfg.CacheDir, nil)
		return f.Fetch(ctx, ics.Source{ID: "import", URL: arg})
	}
	body, err := os.ReadFile(arg)
	if err != nil {
		return ics.Result{}, err
	}
	return ics.Result{Source: ics.Source{ID: arg}, Body: body}, nil
}

func newCaptureCmd(e *env) *cobra.Command {
	var (
		url    string
		output string
	)
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Screenshot the grid page of a running server with headless Chromium",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = "http://" + e.cfg.Listen + "/grid"
			}
			c := e.cfg.Capture
			return capture.GridPNGToFile(cmd.Context(), capture.Options{
				URL:      url,
				Width:    c.Width,
				Height:   c.Height,
				Timeout:  time.Duration(c.TimeoutSec) * time.Second,
				ExecPath: c.ChromiumPath,
			}, output)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Page to capture; defaults to this server's /grid")
	cmd.Flags().StringVarP(&output, "output", "o", "grid.png", "Output file")
	return cmd
}
