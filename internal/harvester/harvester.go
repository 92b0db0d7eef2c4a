// Package harvester is the entry point for key collection and wrapping.
//
// A Harvester binds one configuration to the dialect adapters. It holds no
// state between calls beyond that, so several harvesters with different
// configurations can be used side by side.
package harvester

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/mvp-joe/harvester/internal/catalog"
	"github.com/mvp-joe/harvester/internal/config"
	"github.com/mvp-joe/harvester/internal/fileset"
	"github.com/mvp-joe/harvester/internal/keys"
	"github.com/mvp-joe/harvester/internal/parsers"
	"github.com/mvp-joe/harvester/internal/wrap"
)

// Harvester collects keys and wraps text under one configuration.
type Harvester struct {
	cfg      *config.Config
	registry *parsers.Registry
	logger   zerolog.Logger
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithLogger sets the logger handed to every run.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Harvester) { h.logger = l }
}

// WithRegistry replaces the default dialect adapters.
func WithRegistry(r *parsers.Registry) Option {
	return func(h *Harvester) { h.registry = r }
}

// New creates a harvester. A nil cfg uses config.Default().
func New(cfg *config.Config, opts ...Option) (*Harvester, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	h := &Harvester{
		cfg:      cfg,
		registry: parsers.DefaultRegistry(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Config returns the configuration in use.
func (h *Harvester) Config() *config.Config {
	return h.cfg
}

// Registry returns the dialect adapters in use.
func (h *Harvester) Registry() *parsers.Registry {
	return h.registry
}

func (h *Harvester) wrapConfig(d parsers.Dialect) (config.WrapConfig, error) {
	dc, ok := h.cfg.Dialect(string(d))
	if !ok {
		return config.WrapConfig{}, fmt.Errorf("unsupported dialect %q", d)
	}
	return dc.Wrap, nil
}

// CallName returns the translation call name of a dialect, e.g. "tr.msg".
func (h *Harvester) CallName(d parsers.Dialect) (string, error) {
	wc, err := h.wrapConfig(d)
	if err != nil {
		return "", err
	}
	a, err := h.registry.Get(d)
	if err != nil {
		return "", err
	}
	return a.CallName(wc.Translator, wc.Message), nil
}

// Options returns the wrap options of a dialect: the configured defaults
// with each override applied in turn. When a control-message file is
// configured, its messages are loaded fresh for every call.
func (h *Harvester) Options(d parsers.Dialect, overrides ...func(*wrap.Options)) (wrap.Options, error) {
	wc, err := h.wrapConfig(d)
	if err != nil {
		return wrap.Options{}, err
	}
	opts, err := wrap.FromConfig(wc)
	if err != nil {
		return wrap.Options{}, err
	}
	msgs, err := h.ControlMessages()
	if err != nil {
		return wrap.Options{}, err
	}
	opts.ControlMessages = msgs
	opts.Logger = &h.logger

	for _, o := range overrides {
		o(&opts)
	}
	return opts, nil
}

// ControlMessages loads the configured control-message vocabulary. Single
// characters are dropped. Nil when none is configured.
func (h *Harvester) ControlMessages() ([]*wrap.ControlMessage, error) {
	path := h.cfg.Smart.ControlMessages
	if path == "" {
		return nil, nil
	}
	phrases, err := wrap.LoadControlMessages(path)
	if err != nil {
		return nil, err
	}
	return wrap.PrepareControlMessages(phrases, wrap.PrepareOptions{
		Filter: func(m string) bool { return utf8.RuneCountInString(m) > 1 },
	}), nil
}

func (h *Harvester) collect(d parsers.Dialect, m *keys.Map, input, src string) (*keys.Map, error) {
	a, err := h.registry.Get(d)
	if err != nil {
		return m, err
	}
	callName, err := h.CallName(d)
	if err != nil {
		return m, err
	}
	return catalog.CollectSource(a, callName, m, []byte(input), src)
}

// CollectFromJS adds the keys of a JavaScript text to keyItems and returns
// it. A nil keyItems starts a fresh map. src names the text in locations
// and errors.
func (h *Harvester) CollectFromJS(keyItems *keys.Map, input, src string) (*keys.Map, error) {
	return h.collect(parsers.JavaScript, keyItems, input, src)
}

// CollectFromLua adds the keys of a Lua text to keyItems and returns it.
func (h *Harvester) CollectFromLua(keyItems *keys.Map, input, src string) (*keys.Map, error) {
	return h.collect(parsers.Lua, keyItems, input, src)
}

// CollectFromHandlebars adds the keys of a Handlebars template to keyItems
// and returns it.
func (h *Harvester) CollectFromHandlebars(keyItems *keys.Map, input, src string) (*keys.Map, error) {
	return h.collect(parsers.Handlebars, keyItems, input, src)
}

// CollectFromFiles collects the keys of a file set. Unset pattern, excludes
// and call names come from the configuration.
func (h *Harvester) CollectFromFiles(ctx context.Context, opts catalog.CollectOptions) (*keys.Map, error) {
	if opts.Pattern == "" {
		opts.Pattern = h.cfg.Files.Pattern
	}
	if opts.Excludes == nil {
		opts.Excludes = h.cfg.Files.Excludes
	}
	if opts.CallNames == nil {
		opts.CallNames = make(map[parsers.Dialect]string)
		for _, d := range h.registry.Dialects() {
			name, err := h.CallName(d)
			if err != nil {
				continue
			}
			opts.CallNames[d] = name
		}
	}
	opts.ContinueOnError = opts.ContinueOnError || h.cfg.Files.ContinueOnError
	if opts.Logger == nil {
		opts.Logger = &h.logger
	}
	return catalog.Collect(ctx, h.registry, opts)
}

// BuildCatalogs writes the configured PO catalogs for keyItems and returns
// their paths.
func (h *Harvester) BuildCatalogs(keyItems *keys.Map) ([]string, error) {
	return catalog.BuildPO(keyItems, catalog.BuildOptions{
		Locales:  h.cfg.Catalog.Locales,
		Dir:      h.cfg.Catalog.Dir,
		BaseName: h.cfg.Catalog.BaseName,
	})
}

func (h *Harvester) wrapText(ctx context.Context, d parsers.Dialect, input string, opts wrap.Options) (*wrap.Result, error) {
	a, err := h.registry.Get(d)
	if err != nil {
		return nil, err
	}
	return wrap.Wrap(ctx, a, input, opts)
}

// WrapJS wraps a JavaScript text. Use Options to start from the configured
// defaults.
func (h *Harvester) WrapJS(ctx context.Context, input string, opts wrap.Options) (*wrap.Result, error) {
	return h.wrapText(ctx, parsers.JavaScript, input, opts)
}

// WrapLua wraps a Lua text.
func (h *Harvester) WrapLua(ctx context.Context, input string, opts wrap.Options) (*wrap.Result, error) {
	return h.wrapText(ctx, parsers.Lua, input, opts)
}

// WrapHandlebars wraps a template in the background and reports through
// done, which is called exactly once from another goroutine. A panic in
// the run is delivered to done as an error; a panic in done is dropped.
func (h *Harvester) WrapHandlebars(ctx context.Context, input string, opts wrap.Options, done func(*wrap.Result, error)) {
	var once sync.Once
	call := func(res *wrap.Result, err error) {
		once.Do(func() { done(res, err) })
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				call(nil, fmt.Errorf("wrap panicked: %v", r))
			}
		}()
		res, err := h.wrapText(ctx, parsers.Handlebars, input, opts)
		call(res, err)
	}()
}

// WrapFiles wraps a file set and reports through done, exactly once. Unset
// pattern, excludes and per-dialect options come from the configuration;
// all dialects then share one set of control-message counters.
func (h *Harvester) WrapFiles(ctx context.Context, opts fileset.WrapOptions, done fileset.ResultCallback) {
	if opts.Pattern == "" {
		opts.Pattern = h.cfg.Files.Pattern
	}
	if opts.Excludes == nil {
		opts.Excludes = h.cfg.Files.Excludes
	}
	opts.ContinueOnError = opts.ContinueOnError || h.cfg.Files.ContinueOnError
	if opts.Logger == nil {
		opts.Logger = &h.logger
	}

	if opts.ByDialect == nil {
		byDialect, err := h.byDialect()
		if err != nil {
			done(err, nil, false)
			return
		}
		opts.ByDialect = byDialect
	}

	fileset.WrapFiles(ctx, h.registry, opts, done)
}

func (h *Harvester) byDialect() (map[parsers.Dialect]wrap.Options, error) {
	msgs, err := h.ControlMessages()
	if err != nil {
		return nil, err
	}
	out := make(map[parsers.Dialect]wrap.Options)
	for _, d := range h.registry.Dialects() {
		if _, err := h.wrapConfig(d); err != nil {
			continue
		}
		opts, err := h.Options(d, func(o *wrap.Options) { o.ControlMessages = msgs })
		if err != nil {
			return nil, err
		}
		out[d] = opts
	}
	return out, nil
}
