package harvester

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/harvester/internal/catalog"
	"github.com/mvp-joe/harvester/internal/config"
	"github.com/mvp-joe/harvester/internal/fileset"
	"github.com/mvp-joe/harvester/internal/keys"
	"github.com/mvp-joe/harvester/internal/parsers"
	"github.com/mvp-joe/harvester/internal/wrap"
)

// Test Plan for the harvester entry points:
// - New uses defaults for a nil config and rejects invalid ones
// - two harvesters with different configs do not influence each other
// - CollectFrom* accumulate every dialect into one map
// - CollectFromFiles and BuildCatalogs use the configured file set and catalog
// - WrapJS and WrapLua rewrite fixtures synchronously
// - WrapHandlebars reports its result through the callback
// - WrapHandlebars calls back once even when the callback panics
// - Options applies overrides on top of the configured defaults
// - a configured control-message file switches Options to smart mode
// - WrapFiles fills unset options from the configuration

func readFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newHarvester(t *testing.T, cfg *config.Config) *Harvester {
	t.Helper()
	h, err := New(cfg)
	require.NoError(t, err)
	return h
}

func TestNew(t *testing.T) {
	t.Parallel()

	h := newHarvester(t, nil)
	assert.Equal(t, config.Default(), h.Config())
	assert.Len(t, h.Registry().Dialects(), 3)

	cfg := config.Default()
	cfg.JS.Wrap.WrapTargetRegExp = "("
	_, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidRegExp)
}

func TestHarvester_IndependentConfigs(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.JS.Wrap.Translator = "i18n"
	custom := newHarvester(t, cfg)
	plain := newHarvester(t, nil)

	name, err := custom.CallName(parsers.JavaScript)
	require.NoError(t, err)
	assert.Equal(t, "i18n.msg", name)

	name, err = plain.CallName(parsers.JavaScript)
	require.NoError(t, err)
	assert.Equal(t, "tr.msg", name)

	name, err = plain.CallName(parsers.Handlebars)
	require.NoError(t, err)
	assert.Equal(t, "MSG", name)
}

func TestHarvester_CollectFromText(t *testing.T) {
	t.Parallel()

	h := newHarvester(t, nil)

	m, err := h.CollectFromJS(nil, readFixture(t, "../../testdata/collect/js/0.js"), "js/0.js")
	require.NoError(t, err)
	assert.Equal(t, 7, m.Count())

	ret, err := h.CollectFromLua(m, readFixture(t, "../../testdata/collect/lua/0.lua"), "lua/0.lua")
	require.NoError(t, err)
	require.Same(t, m, ret)

	_, err = h.CollectFromHandlebars(m, readFixture(t, "../../testdata/collect/templates/handlebars/0.handlebars"), "0.handlebars")
	require.NoError(t, err)
	assert.Equal(t, 20, m.Count())
	assert.Equal(t, 4, m.Len())

	_, err = h.CollectFromLua(m, "local = \n", "bad.lua")
	var pe *parsers.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad.lua", pe.Src)
	assert.Equal(t, 20, m.Count())
}

func TestHarvester_CollectAndBuild(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Catalog.Dir = t.TempDir()
	cfg.Catalog.Locales = []string{"ru"}
	h := newHarvester(t, cfg)

	m, err := h.CollectFromFiles(context.Background(), catalog.CollectOptions{Cwd: "../../testdata/collect"})
	require.NoError(t, err)
	assert.Equal(t, 20, m.Count())

	paths, err := h.BuildCatalogs(m)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(cfg.Catalog.Dir, "messages.ru.po")}, paths)

	entries, err := catalog.ReadPO(paths[0])
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.Contains(t, entries, "Ключ 0_1"+keys.ContextSeparator+"Контекст 0_1")
}

func TestHarvester_WrapScripts(t *testing.T) {
	t.Parallel()

	h := newHarvester(t, nil)

	tests := []struct {
		name    string
		dialect parsers.Dialect
		base    string
		wrap    func(context.Context, string, wrap.Options) (*wrap.Result, error)
		wrapped int
	}{
		{name: "js", dialect: parsers.JavaScript, base: "../../testdata/wrap/js/dirty", wrap: h.WrapJS, wrapped: 2},
		{name: "lua", dialect: parsers.Lua, base: "../../testdata/wrap/lua/dirty", wrap: h.WrapLua, wrapped: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts, err := h.Options(tt.dialect)
			require.NoError(t, err)

			ext := "." + tt.name
			res, err := tt.wrap(context.Background(), readFixture(t, tt.base+ext), opts)
			require.NoError(t, err)
			assert.Equal(t, readFixture(t, tt.base+"_wrapped"+ext), res.Wrapped)
			assert.Equal(t, tt.wrapped, res.Stat.Counts.WrappedTexts)
		})
	}
}

func TestHarvester_WrapHandlebars(t *testing.T) {
	t.Parallel()

	h := newHarvester(t, nil)
	opts, err := h.Options(parsers.Handlebars)
	require.NoError(t, err)

	type outcome struct {
		res *wrap.Result
		err error
	}
	ch := make(chan outcome, 1)

	base := "../../testdata/wrap/templates/handlebars/clean"
	h.WrapHandlebars(context.Background(), readFixture(t, base+".handlebars"), opts, func(res *wrap.Result, err error) {
		ch <- outcome{res: res, err: err}
	})

	select {
	case out := <-ch:
		require.NoError(t, out.err)
		assert.Equal(t, readFixture(t, base+"_wrapped.handlebars"), out.res.Wrapped)
		assert.Equal(t, 3, out.res.Stat.Counts.WrappedTexts)
	case <-time.After(10 * time.Second):
		t.Fatal("WrapHandlebars did not call back")
	}
}

func TestHarvester_WrapHandlebarsError(t *testing.T) {
	t.Parallel()

	h := newHarvester(t, nil)
	opts, err := h.Options(parsers.Handlebars)
	require.NoError(t, err)

	ch := make(chan error, 1)
	h.WrapHandlebars(context.Background(), "{{#if x}}\n", opts, func(res *wrap.Result, err error) {
		assert.Nil(t, res)
		ch <- err
	})

	select {
	case err := <-ch:
		assert.ErrorIs(t, err, parsers.ErrParse)
	case <-time.After(10 * time.Second):
		t.Fatal("WrapHandlebars did not call back")
	}
}

func TestHarvester_WrapHandlebarsPanickingCallback(t *testing.T) {
	t.Parallel()

	h := newHarvester(t, nil)
	opts, err := h.Options(parsers.Handlebars)
	require.NoError(t, err)

	var calls atomic.Int32
	called := make(chan struct{})
	h.WrapHandlebars(context.Background(), "<p>Привет</p>", opts, func(res *wrap.Result, err error) {
		if calls.Add(1) == 1 {
			close(called)
		}
		panic("callback failed")
	})

	select {
	case <-called:
	case <-time.After(10 * time.Second):
		t.Fatal("WrapHandlebars did not call back")
	}
	assert.Never(t, func() bool { return calls.Load() > 1 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestHarvester_Options(t *testing.T) {
	t.Parallel()

	h := newHarvester(t, nil)

	opts, err := h.Options(parsers.Lua, func(o *wrap.Options) { o.Translator = "L" }, func(o *wrap.Options) { o.CheckSpaces = false })
	require.NoError(t, err)
	assert.Equal(t, "L", opts.Translator)
	assert.Equal(t, "msg", opts.Message)
	assert.False(t, opts.CheckSpaces)
	assert.NotNil(t, opts.WrapTarget)
	assert.Nil(t, opts.ControlMessages)

	again, err := h.Options(parsers.Lua)
	require.NoError(t, err)
	assert.Equal(t, "tr", again.Translator)

	_, err = h.Options(parsers.Dialect("python"))
	assert.Error(t, err)
}

func TestHarvester_SmartOptions(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Smart.ControlMessages = "../../testdata/smart/control_messages.json"
	h := newHarvester(t, cfg)

	opts, err := h.Options(parsers.JavaScript, func(o *wrap.Options) {
		o.WrapTarget = regexp.MustCompile(`[a-zA-Z]`)
		o.CheckSpaces = false
		o.Excludes = wrap.Excludes{Callees: o.Excludes.Callees}
		o.BoundExcludeChar = `\.\-_a-zA-Z0-9`
	})
	require.NoError(t, err)
	// The single-character entry is dropped.
	assert.Len(t, opts.ControlMessages, 14)

	input := readFixture(t, "../../testdata/smart/js/control_messages_without_prompt.js")
	res, err := h.WrapJS(context.Background(), input, opts)
	require.NoError(t, err)
	assert.Equal(t, readFixture(t, "../../testdata/smart/js/control_messages_without_prompt_wrapped.js"), res.Wrapped)

	summary := wrap.Summarize(opts.ControlMessages)
	assert.Len(t, summary.NoWraps, 3)

	cfg.Smart.ControlMessages = filepath.Join(t.TempDir(), "missing.yml")
	_, err = newHarvester(t, cfg).Options(parsers.JavaScript)
	assert.Error(t, err)
}

func TestHarvester_WrapFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, os.DirFS("../../testdata/wrap")))

	h := newHarvester(t, nil)
	calls := 0
	h.WrapFiles(context.Background(), fileset.WrapOptions{Cwd: dir, DryRun: true}, func(err error, result *fileset.Result, abort bool) {
		calls++
		require.NoError(t, err)
		assert.False(t, abort)
		assert.Len(t, result.Files, 18)
		assert.Equal(t, 19, result.Stat.Counts.WrappedTexts)
	})
	assert.Equal(t, 1, calls)

	cfg := config.Default()
	cfg.Smart.ControlMessages = filepath.Join(t.TempDir(), "missing.yml")
	calls = 0
	newHarvester(t, cfg).WrapFiles(context.Background(), fileset.WrapOptions{Cwd: dir}, func(err error, result *fileset.Result, abort bool) {
		calls++
		assert.Error(t, err)
		assert.Nil(t, result)
	})
	assert.Equal(t, 1, calls)
}
