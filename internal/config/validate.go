package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidRegExp indicates a wrap target or bound class that does not compile
	ErrInvalidRegExp = errors.New("invalid regular expression")

	// ErrEmptyName indicates a missing translator or message name
	ErrEmptyName = errors.New("empty name")

	// ErrInvalidPattern indicates a file glob that does not compile
	ErrInvalidPattern = errors.New("invalid file pattern")

	// ErrEmptyLocale indicates a blank entry in the locale list
	ErrEmptyLocale = errors.New("empty locale")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	for _, tag := range Dialects() {
		d, _ := cfg.Dialect(tag)
		if err := validateWrap(tag, &d.Wrap); err != nil {
			errs = append(errs, err)
		}
	}

	if err := validateFiles(&cfg.Files); err != nil {
		errs = append(errs, err)
	}

	if err := validateCatalog(&cfg.Catalog); err != nil {
		errs = append(errs, err)
	}

	return joinErrors(errs)
}

func validateWrap(tag string, cfg *WrapConfig) error {
	var errs []error

	if _, err := regexp.Compile(cfg.WrapTargetRegExp); err != nil {
		errs = append(errs, fmt.Errorf("%w: %s.wrap.wrap_target_regexp: %v", ErrInvalidRegExp, tag, err))
	}

	if cfg.BoundExcludeChar != "" {
		if _, err := regexp.Compile("[" + cfg.BoundExcludeChar + "]"); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s.wrap.bound_exclude_char: %v", ErrInvalidRegExp, tag, err))
		}
	}

	if strings.TrimSpace(cfg.Message) == "" {
		errs = append(errs, fmt.Errorf("%w: %s.wrap.message is required", ErrEmptyName, tag))
	}

	// Templates call a helper directly, scripts go through the translator.
	if tag != DialectHandlebars && strings.TrimSpace(cfg.Translator) == "" {
		errs = append(errs, fmt.Errorf("%w: %s.wrap.translator is required", ErrEmptyName, tag))
	}

	return joinErrors(errs)
}

func validateFiles(cfg *FilesConfig) error {
	var errs []error

	for _, pattern := range append([]string{cfg.Pattern}, cfg.Excludes...) {
		if pattern == "" {
			continue
		}
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	return joinErrors(errs)
}

func validateCatalog(cfg *CatalogConfig) error {
	var errs []error

	for i, locale := range cfg.Locales {
		if strings.TrimSpace(locale) == "" {
			errs = append(errs, fmt.Errorf("%w: catalog.locales[%d]", ErrEmptyLocale, i))
		}
	}

	return joinErrors(errs)
}

// joinErrors combines multiple errors into a single error that still
// matches each of them with errors.Is.
func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return fmt.Errorf("validation failed: %w", errors.Join(errs...))
}
