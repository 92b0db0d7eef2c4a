package keys

import (
	"github.com/mvp-joe/harvester/internal/parsers"
)

// concatOperators are the string concatenation operators of the script dialects.
var concatOperators = map[string]bool{
	"+":  true,
	"..": true,
}

// Collect records every translation call of tree into m and returns m.
// A nil m starts a fresh map.
//
// The first argument of a call named callName is the key and the second,
// when it is a static string, the context. Keys that are not statically
// resolvable are skipped. Each item is located at the key argument.
func Collect(tree *parsers.Tree, callName string, m *Map, src string) *Map {
	if m == nil {
		m = NewMap()
	}

	parsers.Walk(tree, func(n *parsers.Node) bool {
		if n.Kind != parsers.KindCall || n.Callee != callName {
			return true
		}

		args := n.Arguments()
		if len(args) == 0 {
			return true
		}

		key, ok := StaticString(args[0])
		if !ok {
			return true
		}

		item := KeyItem{
			Key:      key,
			Location: Location{Span: args[0].Span, Src: src},
		}
		if len(args) > 1 {
			if ctx, ok := StaticString(args[1]); ok {
				item.Context = &ctx
			}
		}
		m.Add(item)

		// Keep walking: template helpers may nest further calls.
		return true
	})

	return m
}

// StaticString resolves a literal or a concatenation of literals.
func StaticString(n *parsers.Node) (string, bool) {
	switch {
	case n.IsLiteral():
		return n.Value, true

	case n.Kind == parsers.KindBinary && concatOperators[n.Operator]:
		var operands []*parsers.Node
		for _, c := range n.Children {
			if c.Kind != parsers.KindComment {
				operands = append(operands, c)
			}
		}
		if len(operands) != 2 {
			return "", false
		}
		left, ok := StaticString(operands[0])
		if !ok {
			return "", false
		}
		right, ok := StaticString(operands[1])
		if !ok {
			return "", false
		}
		return left + right, true

	case n.Type == "parenthesized_expression" && len(n.Children) == 1:
		return StaticString(n.Children[0])
	}
	return "", false
}
