package parsers

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_lua "github.com/tree-sitter-grammars/tree-sitter-lua/bindings/go"

	"github.com/mvp-joe/harvester/internal/source"
)

// luaParser parses Lua sources.
type luaParser struct {
	*treeSitterParser
	syntax scriptSyntax
}

// NewLua creates the Lua adapter.
func NewLua() Adapter {
	lang := sitter.NewLanguage(tree_sitter_lua.Language())
	return &luaParser{
		treeSitterParser: newTreeSitterParser(lang, Lua, luaGrammar{}),
		syntax: scriptSyntax{
			concat:  " .. ",
			quote:   quoteSingle,
			tighter: map[string]bool{"+": true, "-": true, "*": true, "/": true, "//": true, "%": true, "^": true},
		},
	}
}

func (p *luaParser) Dialect() Dialect { return Lua }

func (p *luaParser) Extensions() []string {
	return []string{".lua"}
}

func (p *luaParser) Parse(text []byte) (*Tree, error) {
	return p.parse(text)
}

func (p *luaParser) CallName(translator, message string) string {
	return translator + "." + message
}

func (p *luaParser) WrapEdits(src []byte, n *Node, ranges []Range, w Wrapper) []source.Edit {
	return p.syntax.wrapEdits(n, ranges, w)
}

func (p *luaParser) Quote(s string) string {
	return quoteSingle(s)
}

// Bound looks for a local or global assignment, or a function
// declaration, naming the translator.
func (p *luaParser) Bound(tree *Tree, translator string) bool {
	return Find(tree, func(n *Node) bool {
		if n.Type != "identifier" || n.Property != "name" || n.Parent == nil {
			return false
		}
		switch n.Parent.Type {
		case "variable_list", "function_declaration":
			return tree.Text(n) == translator
		}
		return false
	}) != nil
}

type luaGrammar struct{}

func (luaGrammar) classify(ts *sitter.Node, n *Node, src []byte) bool {
	switch n.Type {
	case "string":
		text := string(src[n.Start:n.End])
		n.Kind = KindString
		n.Open, n.Close = delimiters(text)
		n.TextStart = n.Start + len(n.Open)
		n.TextEnd = n.End - len(n.Close)
		raw := string(src[n.TextStart:n.TextEnd])
		if strings.HasPrefix(n.Open, "[") {
			// Long strings skip a first newline and have no escapes.
			raw = strings.TrimPrefix(strings.TrimPrefix(raw, "\r"), "\n")
			n.Value = raw
		} else {
			n.Value = unescapeLua(raw)
		}
		return true

	case "function_call":
		n.Kind = KindCall
		n.Callee = compactCallee(extractNodeText(ts.ChildByFieldName("name"), src))

	case "binary_expression":
		n.Kind = KindBinary
		n.Operator = operatorOf(ts, src)

	case "comment":
		n.Kind = KindComment
		return true
	}
	return false
}
