package wrap

import (
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/mvp-joe/harvester/internal/config"
	"github.com/mvp-joe/harvester/internal/parsers"
)

// Excludes lists structural positions whose subtrees are never wrapped.
type Excludes struct {
	// Properties are field names under a parent, e.g. "key".
	Properties []string
	// NodeTypes are grammar node types, e.g. "template_string".
	NodeTypes []string
	// Operators are binary operators whose operands are skipped, e.g. "==".
	Operators []string
	// Callees are call names whose arguments are skipped, e.g. "require".
	Callees []string
}

// Options controls one wrap run.
type Options struct {
	// CheckSpaces skips literals that are empty once trimmed.
	CheckSpaces bool
	// WrapTarget must match a literal's value for it to be wrapped.
	// Nil accepts every literal.
	WrapTarget *regexp.Regexp
	Excludes   Excludes

	// SkipNode and SkipProperty exclude a node and its subtree when they
	// return true.
	SkipNode     func(n *parsers.Node) bool
	SkipProperty func(property string, parent *parsers.Node) bool

	// ControlMessages switches to smart mode: only boundary-safe
	// occurrences of these phrases are wrapped. Without them every
	// eligible literal is wrapped whole.
	ControlMessages  []*ControlMessage
	BoundExcludeChar string

	// Prompter confirms every candidate. Nil accepts all.
	Prompter Prompter

	Translator string
	Message    string
	// TranslatorRequire is the module the translator comes from.
	TranslatorRequire string
	// TranslatorRequireTemplate is prepended when text was wrapped and the
	// translator is not bound yet. It may use {translator} and
	// {translatorRequire}. Empty disables the prepend.
	TranslatorRequireTemplate string

	// Context computes the context argument for a wrapped text. An empty
	// result omits the argument.
	Context func(text string, n *parsers.Node) string

	// Source names the input in prompts, errors and logs.
	Source string
	Logger *zerolog.Logger
}

// FromConfig builds options from a dialect's wrap configuration.
func FromConfig(wc config.WrapConfig) (Options, error) {
	opts := Options{
		CheckSpaces: wc.CheckSpaces,
		Excludes: Excludes{
			Properties: wc.Excludes.Properties,
			NodeTypes:  wc.Excludes.NodeTypes,
			Operators:  wc.Excludes.Operators,
			Callees:    wc.Excludes.Callees,
		},
		BoundExcludeChar:          wc.BoundExcludeChar,
		Translator:                wc.Translator,
		Message:                   wc.Message,
		TranslatorRequire:         wc.TranslatorRequire,
		TranslatorRequireTemplate: wc.TranslatorRequireTemplate,
	}
	if wc.WrapTargetRegExp != "" {
		re, err := regexp.Compile(wc.WrapTargetRegExp)
		if err != nil {
			return Options{}, fmt.Errorf("invalid wrap target %q: %w", wc.WrapTargetRegExp, err)
		}
		opts.WrapTarget = re
	}
	return opts, nil
}

func (o Options) logger() *zerolog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// set is a string lookup built from a list.
type set map[string]struct{}

func newSet(items []string) set {
	s := make(set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s set) has(item string) bool {
	if item == "" {
		return false
	}
	_, ok := s[item]
	return ok
}
