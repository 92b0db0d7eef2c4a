package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/harvester/internal/catalog"
	"github.com/mvp-joe/harvester/internal/fileset"
	"github.com/mvp-joe/harvester/internal/harvester"
	"github.com/mvp-joe/harvester/internal/keys"
	"github.com/mvp-joe/harvester/internal/watcher"
)

type collectFlags struct {
	pattern         string
	excludes        []string
	locales         []string
	poDir           string
	poBase          string
	jsonOut         bool
	watch           bool
	continueOnError bool
}

var collectOpts collectFlags

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect translation keys into PO catalogs",
	Long: `Collect finds every translation call in the project's file set and writes
one PO catalog per configured locale. Existing translations are kept.

Examples:
  # Collect with the project configuration
  harvester collect

  # Print the keys as JSON instead of writing catalogs
  harvester collect --json

  # Rebuild the catalogs whenever a source file changes
  harvester collect --watch
`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
	f := collectCmd.Flags()
	f.StringVar(&collectOpts.pattern, "pattern", "", "glob of files to scan, relative to the project (default from config)")
	f.StringSliceVar(&collectOpts.excludes, "exclude", nil, "globs of files to skip (default from config)")
	f.StringSliceVar(&collectOpts.locales, "locales", nil, "catalog locales (default from config)")
	f.StringVar(&collectOpts.poDir, "po-dir", "", "catalog directory (default from config)")
	f.StringVar(&collectOpts.poBase, "po-base", "", "catalog file name prefix (default from config)")
	f.BoolVar(&collectOpts.jsonOut, "json", false, "print the collected keys as JSON instead of writing catalogs")
	f.BoolVarP(&collectOpts.watch, "watch", "w", false, "watch for changes and rebuild the catalogs")
	f.BoolVar(&collectOpts.continueOnError, "continue-on-error", false, "report unparsable files and go on")
}

func runCollect(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	h, dir, err := loadHarvester()
	if err != nil {
		return err
	}
	if err := applyCollectFlags(h, collectOpts); err != nil {
		return err
	}

	opts := catalog.CollectOptions{
		Cwd:             dir,
		Pattern:         collectOpts.pattern,
		Excludes:        collectOpts.excludes,
		ContinueOnError: collectOpts.continueOnError,
	}

	if !collectOpts.watch {
		return collectOnce(ctx, h, opts, cmd.OutOrStdout())
	}

	cache, err := catalog.NewCache(catalog.DefaultCacheCapacity)
	if err != nil {
		return err
	}
	defer cache.Close()
	opts.Cache = cache

	if err := collectOnce(ctx, h, opts, cmd.OutOrStdout()); err != nil {
		logger.Error().Err(err).Msg("initial collection failed")
	}
	return watchCollect(ctx, h, opts, cmd.OutOrStdout())
}

func applyCollectFlags(h *harvester.Harvester, f collectFlags) error {
	cfg := h.Config()
	if len(f.locales) > 0 {
		cfg.Catalog.Locales = f.locales
	}
	if f.poDir != "" {
		abs, err := filepath.Abs(f.poDir)
		if err != nil {
			return err
		}
		cfg.Catalog.Dir = abs
	}
	if f.poBase != "" {
		cfg.Catalog.BaseName = f.poBase
	}
	return nil
}

// collectOnce collects the file set into a fresh map and emits it.
func collectOnce(ctx context.Context, h *harvester.Harvester, opts catalog.CollectOptions, out io.Writer) error {
	opts.KeyItems = keys.NewMap()
	m, err := h.CollectFromFiles(ctx, opts)
	if err != nil && !(opts.ContinueOnError || h.Config().Files.ContinueOnError) {
		return err
	}
	if err != nil {
		logger.Warn().Err(err).Msg("some files could not be collected")
	}
	logger.Info().Int("keys", m.Len()).Int("occurrences", m.Count()).Msg("collected keys")

	if collectOpts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}

	paths, err := h.BuildCatalogs(m)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintf(out, "✓ %s\n", p)
	}
	return nil
}

func watchCollect(ctx context.Context, h *harvester.Harvester, opts catalog.CollectOptions, out io.Writer) error {
	pattern, excludes := opts.Pattern, opts.Excludes
	if pattern == "" {
		pattern = h.Config().Files.Pattern
	}
	if excludes == nil {
		excludes = h.Config().Files.Excludes
	}
	set, err := fileset.NewDiscovery(opts.Cwd, pattern, excludes)
	if err != nil {
		return err
	}

	w, err := watcher.New(watcher.Options{Set: set, Logger: &logger})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	err = w.Start(ctx, func(changes []watcher.Change) {
		for _, c := range changes {
			logger.Debug().Str("file", c.Path).Bool("removed", c.Removed).Msg("changed")
			if c.Removed {
				opts.Cache.Invalidate(filepath.Join(opts.Cwd, filepath.FromSlash(c.Path)))
			}
		}
		if err := collectOnce(ctx, h, opts, out); err != nil {
			logger.Error().Err(err).Msg("collection failed")
		}
	})
	if err != nil {
		return err
	}

	logger.Info().Str("dir", opts.Cwd).Msg("watching for changes, press Ctrl+C to stop")
	<-ctx.Done()
	logger.Info().Msg("watch mode stopped")
	return nil
}
