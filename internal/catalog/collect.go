// Package catalog aggregates translation keys across a file set and writes
// them out as PO message catalogs.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mvp-joe/harvester/internal/fileset"
	"github.com/mvp-joe/harvester/internal/keys"
	"github.com/mvp-joe/harvester/internal/parsers"
)

// CollectOptions configures a file-set collection.
type CollectOptions struct {
	// KeyItems receives the keys. Nil starts a fresh map.
	KeyItems *keys.Map

	Cwd      string
	Pattern  string
	Excludes []string

	// CallNames holds the translation call name per dialect, e.g. "tr.msg".
	// Files of a dialect without a call name are skipped.
	CallNames map[parsers.Dialect]string

	// ContinueOnError collects per-file failures into the returned error
	// instead of stopping at the first one.
	ContinueOnError bool

	// Cache reuses extraction results of unchanged files. Optional.
	Cache *Cache

	Logger *zerolog.Logger
}

// CollectSource extracts the keys of one text into m. src is recorded as
// the location of every key.
func CollectSource(a parsers.Adapter, callName string, m *keys.Map, input []byte, src string) (*keys.Map, error) {
	tree, err := a.Parse(input)
	if err != nil {
		return m, parsers.WithSrc(err, src)
	}
	return keys.Collect(tree, callName, m, src), nil
}

// Collect discovers the files of the set in lexical order and folds their
// keys into one map. Locations carry the slash path relative to Cwd.
//
// The map is returned even when an error is, holding everything collected
// up to that point.
func Collect(ctx context.Context, reg *parsers.Registry, opts CollectOptions) (*keys.Map, error) {
	m := opts.KeyItems
	if m == nil {
		m = keys.NewMap()
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	discovery, err := fileset.NewDiscovery(opts.Cwd, opts.Pattern, opts.Excludes)
	if err != nil {
		return m, err
	}
	names, err := discovery.Discover()
	if err != nil {
		return m, fmt.Errorf("failed to discover files: %w", err)
	}

	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return m, err
		}

		a := reg.ForFile(name)
		if a == nil {
			continue
		}
		callName, ok := opts.CallNames[a.Dialect()]
		if !ok {
			continue
		}

		fileKeys, err := collectFile(a, callName, filepath.Join(opts.Cwd, filepath.FromSlash(name)), name, opts.Cache)
		if err != nil {
			if !opts.ContinueOnError {
				return m, err
			}
			log.Warn().Err(err).Str("file", name).Msg("failed to collect keys")
			errs = append(errs, err)
			continue
		}
		log.Debug().Str("file", name).Int("keys", fileKeys.Count()).Msg("collected keys")
		m.Merge(fileKeys)
	}

	return m, errors.Join(errs...)
}

func collectFile(a parsers.Adapter, callName, path, name string, cache *Cache) (*keys.Map, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if cached, ok := cache.lookup(path, callName, info); ok {
		return cached, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	fileKeys, err := CollectSource(a, callName, nil, content, name)
	if err != nil {
		return nil, err
	}
	cache.store(path, callName, info, fileKeys)
	return fileKeys, nil
}
