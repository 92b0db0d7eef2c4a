package parsers

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mvp-joe/harvester/internal/source"
)

// Dialect tags a source syntax.
type Dialect string

const (
	JavaScript Dialect = "js"
	Lua        Dialect = "lua"
	Handlebars Dialect = "handlebars"
)

// Range is a byte range inside a literal's content that should be wrapped.
type Range struct {
	Start int
	End   int
}

// Wrapper carries the rendered pieces of a translation call.
type Wrapper struct {
	Translator string
	Message    string
	// Contexts holds an optional context argument per wrapped range.
	// An empty string means no context.
	Contexts []string
}

func (w Wrapper) context(i int) string {
	if i < len(w.Contexts) {
		return w.Contexts[i]
	}
	return ""
}

// Adapter exposes one dialect to the extraction and wrapping engines.
type Adapter interface {
	// Dialect returns the dialect tag.
	Dialect() Dialect

	// Extensions returns the file extensions handled, with leading dot.
	Extensions() []string

	// Parse parses text into a tree. Malformed input yields a *ParseError.
	Parse(text []byte) (*Tree, error)

	// CallName returns the callee name under which translation calls appear.
	CallName(translator, message string) string

	// WrapEdits renders the edits that wrap the given content ranges of a
	// leaf node into translation calls. Ranges are in document order.
	WrapEdits(src []byte, n *Node, ranges []Range, w Wrapper) []source.Edit

	// Quote renders s as a string literal of the dialect.
	Quote(s string) string

	// Bound reports whether tree already declares or assigns the
	// translator. Dialects without bindings always report true.
	Bound(tree *Tree, translator string) bool
}

// Registry dispatches adapters by dialect tag and file extension.
type Registry struct {
	byDialect map[Dialect]Adapter
	byExt     map[string]Adapter
}

// NewRegistry creates a registry holding the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		byDialect: make(map[Dialect]Adapter),
		byExt:     make(map[string]Adapter),
	}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// DefaultRegistry returns a registry with the JavaScript, Lua and
// Handlebars adapters.
func DefaultRegistry() *Registry {
	return NewRegistry(NewJavaScript(), NewLua(), NewHandlebars())
}

// Register adds or replaces an adapter.
func (r *Registry) Register(a Adapter) {
	r.byDialect[a.Dialect()] = a
	for _, ext := range a.Extensions() {
		r.byExt[strings.ToLower(ext)] = a
	}
}

// Get returns the adapter for a dialect.
func (r *Registry) Get(d Dialect) (Adapter, error) {
	a, ok := r.byDialect[d]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q", d)
	}
	return a, nil
}

// ForFile returns the adapter matching the file's extension, or nil.
func (r *Registry) ForFile(path string) Adapter {
	return r.byExt[strings.ToLower(filepath.Ext(path))]
}

// Dialects returns the registered dialect tags in sorted order.
func (r *Registry) Dialects() []Dialect {
	out := make([]Dialect, 0, len(r.byDialect))
	for d := range r.byDialect {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Extensions returns every registered extension in sorted order.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
