package parsers

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/mvp-joe/harvester/internal/source"
)

// javaScriptParser parses JavaScript with the TypeScript grammar, which
// accepts plain JavaScript.
type javaScriptParser struct {
	*treeSitterParser
	syntax scriptSyntax
}

// NewJavaScript creates the JavaScript adapter.
func NewJavaScript() Adapter {
	lang := sitter.NewLanguage(typescript.LanguageTypescript())
	return &javaScriptParser{
		treeSitterParser: newTreeSitterParser(lang, JavaScript, jsGrammar{}),
		syntax: scriptSyntax{
			concat:  " + ",
			quote:   quoteSingle,
			tighter: map[string]bool{"-": true, "*": true, "/": true, "%": true, "**": true},
		},
	}
}

func (p *javaScriptParser) Dialect() Dialect { return JavaScript }

func (p *javaScriptParser) Extensions() []string {
	return []string{".js", ".mjs", ".cjs"}
}

func (p *javaScriptParser) Parse(text []byte) (*Tree, error) {
	return p.parse(text)
}

func (p *javaScriptParser) CallName(translator, message string) string {
	return translator + "." + message
}

func (p *javaScriptParser) WrapEdits(src []byte, n *Node, ranges []Range, w Wrapper) []source.Edit {
	return p.syntax.wrapEdits(n, ranges, w)
}

func (p *javaScriptParser) Quote(s string) string {
	return quoteSingle(s)
}

// Bound looks for a declaration, destructuring pattern, import or
// assignment that binds the translator name anywhere in the file.
func (p *javaScriptParser) Bound(tree *Tree, translator string) bool {
	return Find(tree, func(n *Node) bool {
		switch n.Type {
		case "identifier", "shorthand_property_identifier_pattern":
			return tree.Text(n) == translator && jsBinds(n)
		}
		return false
	}) != nil
}

// jsBinds reports whether identifier n is the name introduced by the
// declaration, pattern, import or assignment around it.
func jsBinds(n *Node) bool {
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		parent := cur.Parent
		switch parent.Type {
		case "variable_declarator", "function_declaration":
			return cur.Property == "name"
		case "assignment_expression":
			return cur.Property == "left"
		case "import_clause", "namespace_import":
			return true
		case "import_specifier":
			return cur.Property == "alias" || !hasChild(parent, "alias")
		case "pair_pattern":
			// { key: tr } binds tr, not key.
			if cur.Property != "value" {
				return false
			}
		case "assignment_pattern", "object_assignment_pattern":
			if cur.Property != "left" {
				return false
			}
		case "object_pattern", "array_pattern", "rest_pattern":
		default:
			return false
		}
	}
	return false
}

func hasChild(n *Node, property string) bool {
	for _, c := range n.Children {
		if c.Property == property {
			return true
		}
	}
	return false
}

type jsGrammar struct{}

func (jsGrammar) classify(ts *sitter.Node, n *Node, src []byte) bool {
	switch n.Type {
	case "string":
		text := string(src[n.Start:n.End])
		n.Kind = KindString
		n.Open, n.Close = delimiters(text)
		n.TextStart = n.Start + len(n.Open)
		n.TextEnd = n.End - len(n.Close)
		n.Value = unescapeJS(string(src[n.TextStart:n.TextEnd]))
		if n.Parent != nil && n.Parent.Type == "expression_statement" {
			// 'use strict' and other directives.
			n.Kind = KindLiteral
		}
		return true

	case "call_expression":
		n.Kind = KindCall
		n.Callee = compactCallee(extractNodeText(ts.ChildByFieldName("function"), src))

	case "new_expression":
		n.Kind = KindCall
		n.Callee = compactCallee(extractNodeText(ts.ChildByFieldName("constructor"), src))

	case "binary_expression":
		n.Kind = KindBinary
		n.Operator = operatorOf(ts, src)

	case "comment":
		n.Kind = KindComment
		return true
	}
	return false
}
