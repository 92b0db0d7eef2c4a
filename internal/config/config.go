// Package config holds the harvester configuration.
//
// A configuration is a plain value: Default() is the constant baseline and
// every entry point receives the Config it should use. Nothing here is
// process-wide, so restoring the defaults means passing Default() again.
//
// Configuration hierarchy (highest to lowest priority):
//  1. Environment variables (HARVESTER_*), including those from a .env file
//  2. Project file (.harvester.yml in the working directory)
//  3. Built-in defaults
//
// Nested fields map to underscores: js.wrap.translator is
// HARVESTER_JS_WRAP_TRANSLATOR.
package config

// Dialect tags as used in configuration keys.
const (
	DialectJS         = "js"
	DialectLua        = "lua"
	DialectHandlebars = "handlebars"
)

// Config represents the complete harvester configuration.
type Config struct {
	JS         DialectConfig `yaml:"js" mapstructure:"js"`
	Lua        DialectConfig `yaml:"lua" mapstructure:"lua"`
	Handlebars DialectConfig `yaml:"handlebars" mapstructure:"handlebars"`
	Files      FilesConfig   `yaml:"files" mapstructure:"files"`
	Catalog    CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Smart      SmartConfig   `yaml:"smart" mapstructure:"smart"`
}

// DialectConfig groups the settings of one dialect.
type DialectConfig struct {
	Wrap WrapConfig `yaml:"wrap" mapstructure:"wrap"`
}

// WrapConfig configures wrapping for one dialect.
type WrapConfig struct {
	WrapTargetRegExp string         `yaml:"wrap_target_regexp" mapstructure:"wrap_target_regexp"` // literal must match to be wrapped
	CheckSpaces      bool           `yaml:"check_spaces" mapstructure:"check_spaces"`             // skip whitespace-only literals
	Excludes         ExcludesConfig `yaml:"excludes" mapstructure:"excludes"`

	Translator                string `yaml:"translator" mapstructure:"translator"`                                   // e.g. "tr"
	Message                   string `yaml:"message" mapstructure:"message"`                                         // e.g. "msg" or "MSG"
	TranslatorRequire         string `yaml:"translator_require" mapstructure:"translator_require"`                   // module providing the translator
	TranslatorRequireTemplate string `yaml:"translator_require_template" mapstructure:"translator_require_template"` // prepended binding, empty disables
	BoundExcludeChar          string `yaml:"bound_exclude_char" mapstructure:"bound_exclude_char"`                   // regexp class body of word characters
}

// ExcludesConfig lists structural positions that are never wrapped.
type ExcludesConfig struct {
	Properties []string `yaml:"properties" mapstructure:"properties"`
	NodeTypes  []string `yaml:"node_types" mapstructure:"node_types"`
	Operators  []string `yaml:"operators" mapstructure:"operators"`
	Callees    []string `yaml:"callees" mapstructure:"callees"`
}

// FilesConfig defines which files a file-set run processes.
type FilesConfig struct {
	Pattern         string   `yaml:"pattern" mapstructure:"pattern"`                     // glob relative to the working directory
	Excludes        []string `yaml:"excludes" mapstructure:"excludes"`                   // globs to skip
	ContinueOnError bool     `yaml:"continue_on_error" mapstructure:"continue_on_error"` // report failing files and go on
}

// CatalogConfig configures catalog output.
type CatalogConfig struct {
	Locales  []string `yaml:"locales" mapstructure:"locales"`
	Dir      string   `yaml:"dir" mapstructure:"dir"`
	BaseName string   `yaml:"base_name" mapstructure:"base_name"` // file name prefix, locale and .po are appended
}

// SmartConfig configures smart wrapping.
type SmartConfig struct {
	ControlMessages string `yaml:"control_messages" mapstructure:"control_messages"` // path to a YAML or JSON vocabulary
}

// DefaultBoundExcludeChar treats letters, digits, '_', '.' and '-' as
// part of a word.
const DefaultBoundExcludeChar = `\p{L}\p{N}_.\-`

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		JS: DialectConfig{Wrap: WrapConfig{
			WrapTargetRegExp: `\p{L}`,
			CheckSpaces:      true,
			Excludes: ExcludesConfig{
				Properties: []string{"key", "index", "source"},
				NodeTypes:  []string{"regex", "template_string"},
				Operators:  []string{"==", "===", "!=", "!==", "in", "instanceof"},
				Callees:    []string{"require"},
			},
			Translator:                "tr",
			Message:                   "msg",
			TranslatorRequire:         "L10n",
			TranslatorRequireTemplate: "var {translator} = require('{translatorRequire}').translator;",
			BoundExcludeChar:          DefaultBoundExcludeChar,
		}},
		Lua: DialectConfig{Wrap: WrapConfig{
			WrapTargetRegExp: `\p{L}`,
			CheckSpaces:      true,
			Excludes: ExcludesConfig{
				Properties: []string{"name", "field"},
				Operators:  []string{"==", "~="},
				Callees:    []string{"require"},
			},
			Translator:                "tr",
			Message:                   "msg",
			TranslatorRequire:         "L10n",
			TranslatorRequireTemplate: "local {translator} = require('{translatorRequire}').translator",
			BoundExcludeChar:          DefaultBoundExcludeChar,
		}},
		Handlebars: DialectConfig{Wrap: WrapConfig{
			WrapTargetRegExp: `\p{L}`,
			CheckSpaces:      true,
			Message:          "MSG",
			BoundExcludeChar: DefaultBoundExcludeChar,
		}},
		Files: FilesConfig{
			Pattern: "**.{js,mjs,cjs,lua,handlebars,hbs}",
			Excludes: []string{
				"node_modules/**",
				".git/**",
				"vendor/**",
			},
		},
		Catalog: CatalogConfig{
			Locales:  []string{"en"},
			Dir:      "locales",
			BaseName: "messages.",
		},
	}
}

// Dialect returns the settings of a dialect tag.
func (c *Config) Dialect(tag string) (*DialectConfig, bool) {
	switch tag {
	case DialectJS:
		return &c.JS, true
	case DialectLua:
		return &c.Lua, true
	case DialectHandlebars:
		return &c.Handlebars, true
	}
	return nil, false
}

// Dialects returns the dialect tags in configuration order.
func Dialects() []string {
	return []string{DialectJS, DialectLua, DialectHandlebars}
}
