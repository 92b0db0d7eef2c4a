package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the project configuration file, without extension.
const FileName = ".harvester"

// EnvPrefix prefixes every configuration environment variable.
const EnvPrefix = "HARVESTER"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (HARVESTER_*), a .env file in the root included
// 2. Config file (.harvester.yml or .harvester.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	// Variables already set in the environment win over .env.
	if err := godotenv.Load(filepath.Join(l.rootDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(l.rootDir)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// HARVESTER_JS_WRAP_TRANSLATOR for js.wrap.translator
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every default with viper. Registering a key also
// makes AutomaticEnv consider it.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	for _, tag := range Dialects() {
		d, _ := defaults.Dialect(tag)
		setWrapDefaults(v, tag+".wrap", d.Wrap)
	}

	v.SetDefault("files.pattern", defaults.Files.Pattern)
	v.SetDefault("files.excludes", defaults.Files.Excludes)
	v.SetDefault("files.continue_on_error", defaults.Files.ContinueOnError)

	v.SetDefault("catalog.locales", defaults.Catalog.Locales)
	v.SetDefault("catalog.dir", defaults.Catalog.Dir)
	v.SetDefault("catalog.base_name", defaults.Catalog.BaseName)

	v.SetDefault("smart.control_messages", defaults.Smart.ControlMessages)
}

func setWrapDefaults(v *viper.Viper, prefix string, w WrapConfig) {
	v.SetDefault(prefix+".wrap_target_regexp", w.WrapTargetRegExp)
	v.SetDefault(prefix+".check_spaces", w.CheckSpaces)
	v.SetDefault(prefix+".excludes.properties", w.Excludes.Properties)
	v.SetDefault(prefix+".excludes.node_types", w.Excludes.NodeTypes)
	v.SetDefault(prefix+".excludes.operators", w.Excludes.Operators)
	v.SetDefault(prefix+".excludes.callees", w.Excludes.Callees)
	v.SetDefault(prefix+".translator", w.Translator)
	v.SetDefault(prefix+".message", w.Message)
	v.SetDefault(prefix+".translator_require", w.TranslatorRequire)
	v.SetDefault(prefix+".translator_require_template", w.TranslatorRequireTemplate)
	v.SetDefault(prefix+".bound_exclude_char", w.BoundExcludeChar)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
