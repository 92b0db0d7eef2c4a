package fileset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mvp-joe/harvester/internal/parsers"
	"github.com/mvp-joe/harvester/internal/wrap"
)

// ErrAborted is returned when a run stops before every file was handled.
var ErrAborted = wrap.ErrAborted

// WrapOptions configures a file-set wrap run.
type WrapOptions struct {
	// Cwd is the root that Pattern and Excludes are relative to.
	Cwd      string
	Pattern  string
	Excludes []string

	// ByDialect holds the wrap options per dialect. Files of a dialect
	// without options are skipped.
	ByDialect map[parsers.Dialect]wrap.Options

	// DryRun computes results without writing files.
	DryRun bool

	// ContinueOnError records per-file failures in Result.Errors instead of
	// stopping the run.
	ContinueOnError bool

	Reporter Reporter
	Logger   *zerolog.Logger
}

// FileResult is the outcome for one file.
type FileResult struct {
	Name string    `json:"name"`
	Stat wrap.Stat `json:"stat"`
}

// FileError is a failure tied to one file.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string { return e.Name + ": " + e.Err.Error() }
func (e *FileError) Unwrap() error { return e.Err }

// Result aggregates a file-set run. Stat is the sum of the per-file stats.
type Result struct {
	RunID  string       `json:"runId"`
	Files  []FileResult `json:"files"`
	Stat   wrap.Stat    `json:"stat"`
	Errors []*FileError `json:"-"`
}

func (r *Result) add(fr FileResult) {
	r.Files = append(r.Files, fr)
	r.Stat.Add(fr.Stat)
}

// Wrap wraps every file of the set, one at a time, in lexical order.
//
// On abort the partial result is returned together with ErrAborted; files
// handled before the abort keep their rewritten content and the file in
// flight is left untouched. With ContinueOnError the joined per-file errors
// are returned alongside the complete result.
func Wrap(ctx context.Context, reg *parsers.Registry, opts WrapOptions) (*Result, error) {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = NoOpReporter{}
	}
	result := &Result{RunID: uuid.NewString(), Files: []FileResult{}}

	base := zerolog.Nop()
	if opts.Logger != nil {
		base = *opts.Logger
	}
	log := base.With().Str("run", result.RunID).Logger()

	discovery, err := NewDiscovery(opts.Cwd, opts.Pattern, opts.Excludes)
	if err != nil {
		return nil, err
	}
	names, err := discovery.Discover()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	reporter.OnDiscoveryComplete(len(names))
	log.Debug().Int("files", len(names)).Str("pattern", opts.Pattern).Msg("discovered files")

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%w: %w", ErrAborted, err)
		}

		a := reg.ForFile(name)
		if a == nil {
			log.Debug().Str("file", name).Msg("no adapter, skipping")
			continue
		}
		wo, ok := opts.ByDialect[a.Dialect()]
		if !ok {
			log.Debug().Str("file", name).Str("dialect", string(a.Dialect())).Msg("no options for dialect, skipping")
			continue
		}
		wo.Source = name
		if wo.Logger == nil {
			wo.Logger = &log
		}

		fr, err := wrapFile(ctx, a, filepath.Join(opts.Cwd, filepath.FromSlash(name)), wo, opts.DryRun)
		if err != nil {
			if errors.Is(err, ErrAborted) {
				log.Info().Str("file", name).Msg("wrap aborted")
				return result, err
			}
			ferr := &FileError{Name: name, Err: err}
			if !opts.ContinueOnError {
				return result, ferr
			}
			log.Warn().Err(err).Str("file", name).Msg("failed to wrap file")
			result.Errors = append(result.Errors, ferr)
			if !reporter.OnFile(name, 0, ferr) {
				return result, ErrAborted
			}
			continue
		}

		fr.Name = name
		result.add(fr)
		log.Debug().Str("file", name).Int("wrapped", fr.Stat.Counts.WrappedTexts).Msg("wrapped file")

		if !reporter.OnFile(name, fr.Stat.Counts.WrappedTexts, nil) {
			log.Info().Str("file", name).Msg("wrap aborted by reporter")
			return result, ErrAborted
		}
	}

	reporter.OnComplete(result)
	log.Info().
		Int("files", len(result.Files)).
		Int("wrapped", result.Stat.Counts.WrappedTexts).
		Int("errors", len(result.Errors)).
		Msg("wrap complete")

	if len(result.Errors) > 0 {
		errs := make([]error, len(result.Errors))
		for i, e := range result.Errors {
			errs[i] = e
		}
		return result, errors.Join(errs...)
	}
	return result, nil
}

func wrapFile(ctx context.Context, a parsers.Adapter, path string, opts wrap.Options, dryRun bool) (FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileResult{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to read file: %w", err)
	}

	res, err := wrap.Wrap(ctx, a, string(content), opts)
	if err != nil {
		return FileResult{}, err
	}

	if !dryRun && res.Wrapped != string(content) {
		if err := os.WriteFile(path, []byte(res.Wrapped), info.Mode().Perm()); err != nil {
			return FileResult{}, fmt.Errorf("failed to write file: %w", err)
		}
	}
	return FileResult{Stat: res.Stat}, nil
}

// ResultCallback receives the outcome of WrapFiles. abort reports that the
// run stopped early; result then holds the files handled so far.
type ResultCallback func(err error, result *Result, abort bool)

// WrapFiles runs Wrap and reports through done, which is called exactly
// once. A panic during the run is delivered to done as an error.
func WrapFiles(ctx context.Context, reg *parsers.Registry, opts WrapOptions, done ResultCallback) {
	var once sync.Once
	call := func(err error, result *Result, abort bool) {
		once.Do(func() { done(err, result, abort) })
	}
	defer func() {
		if r := recover(); r != nil {
			call(fmt.Errorf("wrap files panicked: %v", r), nil, false)
		}
	}()

	result, err := Wrap(ctx, reg, opts)
	if errors.Is(err, ErrAborted) {
		call(nil, result, true)
		return
	}
	call(err, result, false)
}
