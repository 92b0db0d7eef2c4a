package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/harvester/internal/config"
	"github.com/mvp-joe/harvester/internal/harvester"
)

var (
	projectDir string
	verbose    bool
)

// logger is configured by the root command before any subcommand runs.
var logger = zerolog.Nop()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Harvester - collect and wrap translatable text",
	Long: `Harvester finds translatable text in JavaScript, Lua and Handlebars sources.

It collects the keys of existing translation calls into PO catalogs, and
wraps plain literal text into translation calls so it can be translated.

Configuration is read from .harvester.yml in the project directory and
from HARVESTER_* environment variables (a .env file is honoured).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(cmd.ErrOrStderr(), verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "project directory holding .harvester.yml and the sources")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		Level(level).
		With().Timestamp().
		Logger()
}

// loadHarvester reads the project configuration and builds a harvester
// for it. The returned directory is absolute.
func loadHarvester() (*harvester.Harvester, string, error) {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	cfg, err := config.LoadConfigFromDir(dir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	// Relative output and vocabulary paths are relative to the project.
	if cfg.Catalog.Dir != "" && !filepath.IsAbs(cfg.Catalog.Dir) {
		cfg.Catalog.Dir = filepath.Join(dir, cfg.Catalog.Dir)
	}
	if cfg.Smart.ControlMessages != "" && !filepath.IsAbs(cfg.Smart.ControlMessages) {
		cfg.Smart.ControlMessages = filepath.Join(dir, cfg.Smart.ControlMessages)
	}

	h, err := harvester.New(cfg, harvester.WithLogger(logger))
	if err != nil {
		return nil, "", err
	}
	return h, dir, nil
}
