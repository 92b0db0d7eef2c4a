package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/harvester/internal/fileset"
	"github.com/mvp-joe/harvester/internal/harvester"
	"github.com/mvp-joe/harvester/internal/parsers"
	"github.com/mvp-joe/harvester/internal/wrap"
)

type wrapFlags struct {
	pattern         string
	excludes        []string
	dryRun          bool
	prompt          bool
	noColor         bool
	controlMessages string
	continueOnError bool
	quiet           bool
}

var wrapOpts wrapFlags

// wrapCmd represents the wrap command
var wrapCmd = &cobra.Command{
	Use:   "wrap",
	Short: "Wrap literal text into translation calls",
	Long: `Wrap rewrites the project's file set so that literal text becomes
translation calls: tr.msg('...') in scripts and {{MSG '...'}} in templates.
Running it again on its own output changes nothing.

With control messages only the listed phrases are wrapped, and only where
they stand as whole words. With --prompt every candidate is confirmed:
y wraps, n skips, q stops the run (files already handled stay rewritten).

Examples:
  # Show what would change
  harvester wrap --dry-run

  # Wrap only known phrases, asking for each one
  harvester wrap --control-messages messages.yml --prompt
`,
	RunE: runWrap,
}

func init() {
	rootCmd.AddCommand(wrapCmd)
	f := wrapCmd.Flags()
	f.StringVar(&wrapOpts.pattern, "pattern", "", "glob of files to wrap, relative to the project (default from config)")
	f.StringSliceVar(&wrapOpts.excludes, "exclude", nil, "globs of files to skip (default from config)")
	f.BoolVar(&wrapOpts.dryRun, "dry-run", false, "report what would be wrapped without writing files")
	f.BoolVarP(&wrapOpts.prompt, "prompt", "p", false, "confirm every candidate")
	f.BoolVar(&wrapOpts.noColor, "no-color", false, "disable colors in prompts")
	f.StringVar(&wrapOpts.controlMessages, "control-messages", "", "YAML or JSON file of phrases to wrap (default from config)")
	f.BoolVar(&wrapOpts.continueOnError, "continue-on-error", false, "report unparsable files and go on")
	f.BoolVarP(&wrapOpts.quiet, "quiet", "q", false, "disable the progress bar and summary")
}

func runWrap(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	h, dir, err := loadHarvester()
	if err != nil {
		return err
	}
	if wrapOpts.controlMessages != "" {
		abs, err := filepath.Abs(wrapOpts.controlMessages)
		if err != nil {
			return err
		}
		h.Config().Smart.ControlMessages = abs
	}

	byDialect, msgs, err := wrapOptions(h, wrapOpts, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	// The progress bar would garble the prompts.
	reporter := NewCLIProgressReporter(cmd.ErrOrStderr(), wrapOpts.quiet || wrapOpts.prompt, logger)

	var runErr error
	h.WrapFiles(ctx, fileset.WrapOptions{
		Cwd:             dir,
		Pattern:         wrapOpts.pattern,
		Excludes:        wrapOpts.excludes,
		ByDialect:       byDialect,
		DryRun:          wrapOpts.dryRun,
		ContinueOnError: wrapOpts.continueOnError,
		Reporter:        reporter,
	}, func(err error, result *fileset.Result, abort bool) {
		if abort {
			logger.Warn().Int("files", len(result.Files)).Msg("wrap aborted, remaining files left untouched")
		}
		if result != nil && !wrapOpts.quiet {
			printWrapResult(out, result, wrapOpts.dryRun)
		}
		runErr = err
	})

	if len(msgs) > 0 && !wrapOpts.quiet {
		fmt.Fprintln(out)
		fmt.Fprint(out, wrap.Summarize(msgs).String())
	}
	return runErr
}

// wrapOptions builds the per-dialect options. All dialects share one set
// of control-message counters so the summary covers the whole run.
func wrapOptions(h *harvester.Harvester, f wrapFlags, in io.Reader, out io.Writer) (map[parsers.Dialect]wrap.Options, []*wrap.ControlMessage, error) {
	msgs, err := h.ControlMessages()
	if err != nil {
		return nil, nil, err
	}

	var prompter wrap.Prompter
	if f.prompt {
		prompter = newTerminalPrompter(in, out, f.noColor)
	}

	byDialect := make(map[parsers.Dialect]wrap.Options)
	for _, d := range h.Registry().Dialects() {
		opts, err := h.Options(d, func(o *wrap.Options) {
			o.ControlMessages = msgs
			o.Prompter = prompter
		})
		if err != nil {
			return nil, nil, err
		}
		byDialect[d] = opts
	}
	if len(byDialect) == 0 {
		return nil, nil, errors.New("no dialects configured")
	}
	return byDialect, msgs, nil
}

func printWrapResult(out io.Writer, result *fileset.Result, dryRun bool) {
	verb := "wrapped"
	if dryRun {
		verb = "would wrap"
	}
	for _, f := range result.Files {
		if f.Stat.Counts.WrappedTexts > 0 {
			fmt.Fprintf(out, "%s: %s %d\n", f.Name, verb, f.Stat.Counts.WrappedTexts)
		}
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "%s: %v\n", e.Name, e.Err)
	}
}
