package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with the per-dialect wrap defaults
// - Default() returns an independent value on every call
// - Dialect() resolves every tag and rejects unknown ones
// - LoadConfig() uses defaults when no config file exists
// - LoadConfig() loads from .harvester.yml and merges with defaults
// - Environment variables override config file values
// - A .env file feeds HARVESTER_* variables
// - LoadConfig() returns error for malformed YAML
// - LoadConfig() returns error for invalid configuration values
// - Validate() rejects bad regexps, empty names, bad globs and empty locales
// - Validate() reports every problem at once

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".harvester.yml"), []byte(content), 0644))
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "tr", cfg.JS.Wrap.Translator)
	assert.Equal(t, "msg", cfg.JS.Wrap.Message)
	assert.Equal(t, `\p{L}`, cfg.JS.Wrap.WrapTargetRegExp)
	assert.Contains(t, cfg.JS.Wrap.Excludes.Callees, "require")
	assert.Contains(t, cfg.JS.Wrap.Excludes.Operators, "===")

	assert.Equal(t, "tr", cfg.Lua.Wrap.Translator)
	assert.Contains(t, cfg.Lua.Wrap.Excludes.Operators, "~=")

	assert.Equal(t, "MSG", cfg.Handlebars.Wrap.Message)
	assert.Empty(t, cfg.Handlebars.Wrap.TranslatorRequireTemplate)

	assert.NotEmpty(t, cfg.Files.Pattern)
	assert.Equal(t, []string{"en"}, cfg.Catalog.Locales)

	assert.NoError(t, Validate(cfg))
}

func TestDefault_IsIndependent(t *testing.T) {
	t.Parallel()

	a := Default()
	a.JS.Wrap.Translator = "i18n"
	a.JS.Wrap.Excludes.Callees[0] = "import"

	b := Default()
	assert.Equal(t, "tr", b.JS.Wrap.Translator)
	assert.Equal(t, "require", b.JS.Wrap.Excludes.Callees[0])
}

func TestDialect(t *testing.T) {
	t.Parallel()

	cfg := Default()
	for _, tag := range Dialects() {
		d, ok := cfg.Dialect(tag)
		require.True(t, ok, tag)
		assert.NotEmpty(t, d.Wrap.Message)
	}

	d, ok := cfg.Dialect(DialectLua)
	require.True(t, ok)
	d.Wrap.Message = "t"
	assert.Equal(t, "t", cfg.Lua.Wrap.Message)

	_, ok = cfg.Dialect("python")
	assert.False(t, ok)
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)

	expected := Default()
	assert.Equal(t, expected.JS.Wrap.Translator, cfg.JS.Wrap.Translator)
	assert.Equal(t, expected.JS.Wrap.Excludes.Properties, cfg.JS.Wrap.Excludes.Properties)
	assert.Equal(t, expected.Lua.Wrap.TranslatorRequireTemplate, cfg.Lua.Wrap.TranslatorRequireTemplate)
	assert.Equal(t, expected.Handlebars.Wrap.Message, cfg.Handlebars.Wrap.Message)
	assert.Equal(t, expected.Files.Pattern, cfg.Files.Pattern)
	assert.Equal(t, expected.Catalog, cfg.Catalog)
}

func TestLoadConfig_LoadsFromConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `
js:
  wrap:
    translator: i18n
    excludes:
      callees: ["require", "console.log"]
handlebars:
  wrap:
    message: T
catalog:
  locales: ["ru", "en"]
  base_name: app.
`)

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)

	assert.Equal(t, "i18n", cfg.JS.Wrap.Translator)
	assert.Equal(t, []string{"require", "console.log"}, cfg.JS.Wrap.Excludes.Callees)
	assert.Equal(t, "T", cfg.Handlebars.Wrap.Message)
	assert.Equal(t, []string{"ru", "en"}, cfg.Catalog.Locales)
	assert.Equal(t, "app.", cfg.Catalog.BaseName)

	// Untouched keys keep their defaults.
	assert.Equal(t, "msg", cfg.JS.Wrap.Message)
	assert.Equal(t, Default().JS.Wrap.Excludes.Operators, cfg.JS.Wrap.Excludes.Operators)
	assert.Equal(t, Default().Lua.Wrap.Excludes.Properties, cfg.Lua.Wrap.Excludes.Properties)
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	dir := t.TempDir()
	writeConfig(t, dir, `
lua:
  wrap:
    translator: file
    message: file_msg
`)

	t.Setenv("HARVESTER_LUA_WRAP_TRANSLATOR", "env")
	t.Setenv("HARVESTER_FILES_CONTINUE_ON_ERROR", "true")

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)

	assert.Equal(t, "env", cfg.Lua.Wrap.Translator)
	assert.Equal(t, "file_msg", cfg.Lua.Wrap.Message)
	assert.True(t, cfg.Files.ContinueOnError)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HARVESTER_CATALOG_DIR=from-dotenv\n"), 0644))

	// Registers a restore of the variable; godotenv never overrides set
	// variables, so clear it first.
	t.Setenv("HARVESTER_CATALOG_DIR", "")
	require.NoError(t, os.Unsetenv("HARVESTER_CATALOG_DIR"))

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Catalog.Dir)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "js: [unclosed\n")

	_, err := NewLoader(dir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `
js:
  wrap:
    wrap_target_regexp: "("
`)

	_, err := NewLoader(dir).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRegExp)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:    "bad wrap target",
			mutate:  func(c *Config) { c.Lua.Wrap.WrapTargetRegExp = "[" },
			wantErr: ErrInvalidRegExp,
		},
		{
			name:    "bad bound class",
			mutate:  func(c *Config) { c.JS.Wrap.BoundExcludeChar = `\p{Nope}` },
			wantErr: ErrInvalidRegExp,
		},
		{
			name:    "empty message",
			mutate:  func(c *Config) { c.Handlebars.Wrap.Message = " " },
			wantErr: ErrEmptyName,
		},
		{
			name:    "empty script translator",
			mutate:  func(c *Config) { c.JS.Wrap.Translator = "" },
			wantErr: ErrEmptyName,
		},
		{
			name:    "bad glob",
			mutate:  func(c *Config) { c.Files.Excludes = []string{"[a-"} },
			wantErr: ErrInvalidPattern,
		},
		{
			name:    "empty locale",
			mutate:  func(c *Config) { c.Catalog.Locales = []string{"en", ""} },
			wantErr: ErrEmptyLocale,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.JS.Wrap.Message = ""
	cfg.Lua.Wrap.WrapTargetRegExp = "("
	cfg.Catalog.Locales = []string{""}

	err := Validate(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyName))
	assert.True(t, errors.Is(err, ErrInvalidRegExp))
	assert.True(t, errors.Is(err, ErrEmptyLocale))
	assert.Contains(t, err.Error(), "validation failed")
}
