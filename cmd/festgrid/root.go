package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"festgrid/internal/app"
	"festgrid/internal/config"
	"festgrid/internal/database"
	appLog "festgrid/internal/log"
	"festgrid/internal/render"
	"festgrid/internal/store"
)

const version = "0.1.0"

// env is what every subcommand needs: config, database and app state.
type env struct {
	configPath string
	cfg        *config.Config
	db         *sql.DB
	app        *app.App
}

func (e *env) open() error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", e.configPath, err)
	}
	appLog.SetLevel(appLog.Level(cfg.LogLevel))

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}

	fonts, err := render.LoadFonts(cfg.Export.FontPath, cfg.Export.BoldFontPath)
	if err != nil {
		db.Close()
		return err
	}

	a, err := app.New(cfg, store.NewKVStore(db), fonts)
	if err != nil {
		db.Close()
		return err
	}

	e.cfg, e.db, e.app = cfg, db, a
	return nil
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:           "festgrid",
		Short:         "Festival timetable grid, favorites and shareable schedule images",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.open()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			e.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&e.configPath, "config", "./festgrid.yaml", "Path to config file")

	rootCmd.AddCommand(
		newServeCmd(e),
		newSlotsCmd(e),
		newAgendaCmd(e),
		newFavoriteCmd(e),
		newExportCmd(e),
		newICSCmd(e),
		newImportCmd(e),
		newCaptureCmd(e),
	)
	return rootCmd
}
