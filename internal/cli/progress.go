package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/harvester/internal/fileset"
)

// CLIProgressReporter shows a wrap run as a progress bar.
type CLIProgressReporter struct {
	quiet     bool
	out       io.Writer
	log       zerolog.Logger
	fileBar   *progressbar.ProgressBar
	startTime time.Time
	failed    int
}

// NewCLIProgressReporter creates a new CLI progress reporter. Failures to
// draw the bar go to log at debug level and never stop the run.
func NewCLIProgressReporter(out io.Writer, quiet bool, log zerolog.Logger) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet:     quiet,
		out:       out,
		log:       log,
		startTime: time.Now(),
	}
}

func (c *CLIProgressReporter) OnDiscoveryComplete(totalFiles int) {
	if c.quiet {
		return
	}
	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Wrapping files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnFile(name string, wrappedTexts int, err error) bool {
	if err != nil {
		c.failed++
	}
	if c.quiet || c.fileBar == nil {
		return true
	}
	if err := c.fileBar.Add(1); err != nil {
		c.log.Debug().Err(err).Str("file", name).Msg("progress bar update failed")
	}
	return true
}

func (c *CLIProgressReporter) OnComplete(result *fileset.Result) {
	if c.quiet {
		return
	}
	if c.fileBar != nil {
		if err := c.fileBar.Finish(); err != nil {
			c.log.Debug().Err(err).Msg("progress bar finish failed")
		}
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "✓ Wrap complete: %d texts in %d files (%.1fs)\n",
		result.Stat.Counts.WrappedTexts, changedFiles(result), time.Since(c.startTime).Seconds())
	if c.failed > 0 {
		fmt.Fprintf(c.out, "  Failed files: %d\n", c.failed)
	}
}

func changedFiles(result *fileset.Result) int {
	n := 0
	for _, f := range result.Files {
		if f.Stat.Counts.WrappedTexts > 0 {
			n++
		}
	}
	return n
}
