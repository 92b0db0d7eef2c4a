package wrap

import (
	"regexp"
	"strings"

	"github.com/mvp-joe/harvester/internal/parsers"
)

// policy decides which leaves of a tree may be wrapped.
type policy struct {
	callName string

	nodeTypes  set
	properties set
	operators  set
	callees    set

	skipNode     func(n *parsers.Node) bool
	skipProperty func(property string, parent *parsers.Node) bool

	checkSpaces bool
	target      *regexp.Regexp
}

func newPolicy(a parsers.Adapter, opts Options) *policy {
	return &policy{
		callName:     a.CallName(opts.Translator, opts.Message),
		nodeTypes:    newSet(opts.Excludes.NodeTypes),
		properties:   newSet(opts.Excludes.Properties),
		operators:    newSet(opts.Excludes.Operators),
		callees:      newSet(opts.Excludes.Callees),
		skipNode:     opts.SkipNode,
		skipProperty: opts.SkipProperty,
		checkSpaces:  opts.CheckSpaces,
		target:       opts.WrapTarget,
	}
}

// enter reports whether the traversal may descend into n. A false answer
// excludes n and its whole subtree.
func (p *policy) enter(n *parsers.Node) bool {
	switch {
	case p.nodeTypes.has(n.Type):
		return false
	case p.properties.has(n.Property):
		return false
	case p.operators.has(n.EnclosingOperator()):
		return false
	case n.Kind == parsers.KindCall && n.Callee == p.callName:
		// Already translated.
		return false
	case p.callees.has(n.EnclosingCall()):
		return false
	case p.skipNode != nil && p.skipNode(n):
		return false
	case p.skipProperty != nil && p.skipProperty(n.Property, n.Parent):
		return false
	}
	return true
}

// accept reports whether an entered leaf holds text worth wrapping.
func (p *policy) accept(n *parsers.Node) bool {
	if p.checkSpaces && strings.TrimSpace(n.Value) == "" {
		return false
	}
	if p.target != nil && !p.target.MatchString(n.Value) {
		return false
	}
	return true
}

// leaves returns the wrappable leaves of tree in document order.
func (p *policy) leaves(tree *parsers.Tree) []*parsers.Node {
	var out []*parsers.Node
	parsers.Walk(tree, func(n *parsers.Node) bool {
		if n != tree.Root && !p.enter(n) {
			return false
		}
		if n.IsLeaf() && p.accept(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}
