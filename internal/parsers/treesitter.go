package parsers

import (
	"fmt"
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/harvester/internal/source"
)

// grammar classifies tree-sitter nodes of one language into generic nodes.
type grammar interface {
	// classify sets Kind and the literal fields of n. It returns true when
	// n is a leaf whose children must not be converted.
	classify(ts *sitter.Node, n *Node, src []byte) bool
}

// treeSitterParser provides common tree-sitter parsing functionality.
type treeSitterParser struct {
	language *sitter.Language
	dialect  Dialect
	grammar  grammar
}

// newTreeSitterParser creates a new tree-sitter parser for the given language.
func newTreeSitterParser(language *sitter.Language, dialect Dialect, g grammar) *treeSitterParser {
	return &treeSitterParser{
		language: language,
		dialect:  dialect,
		grammar:  g,
	}
}

// parse runs tree-sitter over src and converts the result into a generic tree.
func (p *treeSitterParser) parse(src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set %s language: %w", p.dialect, err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, &ParseError{Dialect: p.dialect, Msg: "parser returned no tree"}
	}
	defer tree.Close()

	ix := source.NewIndex(src)
	rootNode := tree.RootNode()
	if rootNode.HasError() {
		return nil, p.syntaxError(rootNode, src, ix)
	}

	c := &converter{src: src, grammar: p.grammar}
	root := c.convert(rootNode, nil, "")
	spanNodes(root, ix)

	return &Tree{
		Dialect: p.dialect,
		Root:    root,
		Source:  src,
		Index:   ix,
	}, nil
}

// syntaxError reports the first ERROR or MISSING node.
func (p *treeSitterParser) syntaxError(root *sitter.Node, src []byte, ix *source.Index) error {
	bad := firstErrorNode(root)
	if bad == nil {
		return &ParseError{Dialect: p.dialect, Msg: "syntax error"}
	}

	pos := ix.Position(int(bad.StartByte()))
	msg := "unexpected " + quoteSnippet(extractNodeText(bad, src))
	if bad.IsMissing() {
		msg = "missing " + bad.Kind()
	}
	return &ParseError{
		Dialect: p.dialect,
		Line:    pos.Line,
		Column:  pos.Column,
		Msg:     msg,
	}
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}

// converter turns tree-sitter nodes into generic nodes.
type converter struct {
	src     []byte
	grammar grammar
}

func (c *converter) convert(ts *sitter.Node, parent *Node, property string) *Node {
	n := &Node{
		Type:     ts.Kind(),
		Property: property,
		Parent:   parent,
		Start:    int(ts.StartByte()),
		End:      int(ts.EndByte()),
	}
	n.TextStart, n.TextEnd = n.Start, n.End

	if c.grammar.classify(ts, n, c.src) {
		return n
	}

	cursor := ts.Walk()
	defer cursor.Close()

	if !cursor.GotoFirstChild() {
		return n
	}
	for {
		child := cursor.Node()
		field := cursor.FieldName()

		switch {
		case field == PropArguments && child.Kind() == "arguments":
			c.hoistArguments(child, n)
		case child.IsNamed():
			conv := c.convert(child, n, field)
			if field == PropArguments && n.Kind == KindCall && conv.IsLiteral() {
				// f "x" / f {...}: an argument without parentheses.
				conv.Bare = true
			}
			n.Children = append(n.Children, conv)
		}

		if !cursor.GotoNextSibling() {
			break
		}
	}
	return n
}

// hoistArguments places the expressions of an arguments container directly
// under the call node, with the "arguments" property.
func (c *converter) hoistArguments(args *sitter.Node, call *Node) {
	parenthesized := false
	if first := args.Child(0); first != nil && first.Kind() == "(" {
		parenthesized = true
	}

	for i := uint(0); i < args.ChildCount(); i++ {
		child := args.Child(i)
		if child == nil || !child.IsNamed() {
			continue
		}
		conv := c.convert(child, call, PropArguments)
		if conv.Kind == KindComment {
			call.Children = append(call.Children, conv)
			continue
		}
		if !parenthesized && conv.IsLiteral() {
			conv.Bare = true
		}
		call.Children = append(call.Children, conv)
	}
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// operatorOf returns the operator token of a binary expression: the
// "operator" field when the grammar has one, else the first anonymous child.
func operatorOf(node *sitter.Node, source []byte) string {
	if op := node.ChildByFieldName("operator"); op != nil {
		return extractNodeText(op, source)
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.IsNamed() {
			continue
		}
		switch child.Kind() {
		case "(", ")":
			continue
		}
		return child.Kind()
	}
	return ""
}

// compactCallee strips whitespace from a callee expression so that
// `tr . msg` and `tr.msg` compare equal.
func compactCallee(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func quoteSnippet(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return fmt.Sprintf("%q", s)
}
