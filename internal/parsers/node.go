package parsers

import (
	"github.com/mvp-joe/harvester/internal/source"
)

// Kind is the closed set of node tags shared by every dialect.
type Kind uint8

const (
	// KindOther is any node the engine has no special interest in.
	KindOther Kind = iota
	// KindString is a script string literal. It can be wrapped.
	KindString
	// KindText is a run of literal template text outside any directive. It can be wrapped.
	KindText
	// KindLiteral is a string literal that is never wrapped (helper
	// parameters, script directives) but can still be a translation key.
	KindLiteral
	// KindCall is a call site or a helper invocation.
	KindCall
	// KindBinary is a binary or logical operator expression.
	KindBinary
	// KindComment is a comment.
	KindComment
)

// String returns the tag name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindLiteral:
		return "literal"
	case KindCall:
		return "call"
	case KindBinary:
		return "binary"
	case KindComment:
		return "comment"
	default:
		return "other"
	}
}

// Node is a dialect-independent syntax tree node.
type Node struct {
	Kind Kind
	// Type is the grammar's own node type, e.g. "call_expression".
	Type string
	// Property is the field under which this node sits in its parent
	// ("arguments", "value", "left", ...). Empty for unnamed positions.
	Property string
	Parent   *Node
	Children []*Node

	// Callee is the normalized callee or helper name of a KindCall node.
	Callee string
	// Operator is the operator of a KindBinary node.
	Operator string

	// Value is the decoded literal value of string, literal and text nodes.
	Value string

	// Start and End delimit the whole node in bytes.
	Start, End int
	// TextStart and TextEnd delimit the literal content, without delimiters.
	TextStart, TextEnd int
	// Open and Close are the literal's delimiters, e.g. "'" or "[==[".
	Open, Close string
	// Bare marks a literal passed to a call without parentheses (Lua
	// `f "x"`); wrapping it needs parentheses to stay a call argument.
	Bare bool

	Span source.Span
}

// IsLeaf reports whether the node is a wrappable text leaf.
func (n *Node) IsLeaf() bool {
	return n.Kind == KindString || n.Kind == KindText
}

// IsLiteral reports whether the node carries a static string value.
func (n *Node) IsLiteral() bool {
	return n.Kind == KindString || n.Kind == KindLiteral
}

// EnclosingCall returns the callee name when the node is an argument of a call.
func (n *Node) EnclosingCall() string {
	if n.Parent == nil || n.Parent.Kind != KindCall {
		return ""
	}
	if n.Property != PropArguments && n.Property != PropParams && n.Property != PropHash {
		return ""
	}
	return n.Parent.Callee
}

// EnclosingOperator returns the operator when the node is an operand of a
// binary expression.
func (n *Node) EnclosingOperator() string {
	if n.Parent == nil || n.Parent.Kind != KindBinary {
		return ""
	}
	return n.Parent.Operator
}

// Arguments returns the call arguments of a KindCall node in order.
func (n *Node) Arguments() []*Node {
	var args []*Node
	for _, c := range n.Children {
		if c.Property == PropArguments || c.Property == PropParams {
			args = append(args, c)
		}
	}
	return args
}

// Property names produced by the adapters for call arguments.
const (
	PropArguments = "arguments"
	PropParams    = "params"
	PropHash      = "hash"
)

// Tree is a parsed source file.
type Tree struct {
	Dialect Dialect
	Root    *Node
	Source  []byte
	Index   *source.Index
}

// Text returns the source bytes covered by the node.
func (t *Tree) Text(n *Node) string {
	return string(t.Source[n.Start:n.End])
}

// Visitor is called for every node in depth-first pre-order.
// Returning false skips the node's children.
type Visitor func(n *Node) bool

// Walk traverses the tree depth-first, pre-order.
func Walk(t *Tree, visit Visitor) {
	if t == nil || t.Root == nil {
		return
	}
	walkNode(t.Root, visit)
}

// Find returns the first node in pre-order for which match is true, or nil.
func Find(t *Tree, match func(n *Node) bool) *Node {
	var found *Node
	Walk(t, func(n *Node) bool {
		if found != nil {
			return false
		}
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

func walkNode(n *Node, visit Visitor) {
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		walkNode(c, visit)
	}
}

// spanNodes fills in the Span of every node from its byte offsets.
func spanNodes(n *Node, ix *source.Index) {
	n.Span = ix.Span(n.Start, n.End)
	for _, c := range n.Children {
		spanNodes(c, ix)
	}
}
