package parsers

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/aymerick/raymond/ast"
	hbsparser "github.com/aymerick/raymond/parser"
	"golang.org/x/net/html"

	"github.com/mvp-joe/harvester/internal/source"
)

// handlebarsParser parses Handlebars templates. Literal HTML text between
// directives is exposed as KindText leaves.
type handlebarsParser struct{}

// NewHandlebars creates the Handlebars adapter.
func NewHandlebars() Adapter {
	return &handlebarsParser{}
}

func (p *handlebarsParser) Dialect() Dialect { return Handlebars }

func (p *handlebarsParser) Extensions() []string {
	return []string{".handlebars", ".hbs"}
}

func (p *handlebarsParser) CallName(translator, message string) string {
	return message
}

func (p *handlebarsParser) Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// Bound is always true: helpers are looked up by name.
func (p *handlebarsParser) Bound(tree *Tree, translator string) bool {
	return true
}

// WrapEdits replaces each range with a helper call: {{MSG 'text'}}.
func (p *handlebarsParser) WrapEdits(src []byte, n *Node, ranges []Range, w Wrapper) []source.Edit {
	edits := make([]source.Edit, 0, len(ranges))
	for i, r := range ranges {
		var b strings.Builder
		b.WriteString("{{")
		b.WriteString(w.Message)
		b.WriteByte(' ')
		b.WriteString(p.Quote(string(src[r.Start:r.End])))
		if ctx := w.context(i); ctx != "" {
			b.WriteByte(' ')
			b.WriteString(p.Quote(ctx))
		}
		b.WriteString("}}")
		edits = append(edits, source.Edit{Start: r.Start, End: r.End, Text: b.String()})
	}
	return edits
}

var hbsErrorLine = regexp.MustCompile(`line (\d+)`)

func (p *handlebarsParser) Parse(text []byte) (*Tree, error) {
	program, err := hbsparser.Parse(string(text))
	if err != nil {
		pe := &ParseError{Dialect: Handlebars, Msg: firstLine(err.Error()), Err: err}
		if m := hbsErrorLine.FindStringSubmatch(err.Error()); m != nil {
			pe.Line, _ = strconv.Atoi(m[1])
		}
		return nil, pe
	}

	b := &hbsBuilder{src: text}
	root := b.program(program, nil, "")
	root.Start, root.End = 0, len(text)
	b.splitContent()

	ix := source.NewIndex(text)
	spanNodes(root, ix)

	return &Tree{
		Dialect: Handlebars,
		Root:    root,
		Source:  text,
		Index:   ix,
	}, nil
}

// hbsBuilder converts the raymond AST into generic nodes.
type hbsBuilder struct {
	src []byte
	// cursor is the end of the last located content statement.
	cursor   int
	contents []*Node
}

func (b *hbsBuilder) program(prog *ast.Program, parent *Node, property string) *Node {
	pos := prog.Location().Pos
	n := &Node{Type: "Program", Parent: parent, Property: property, Start: pos, End: pos}
	for _, stmt := range prog.Body {
		if child := b.statement(stmt, n); child != nil {
			n.Children = append(n.Children, child)
		}
	}
	if len(n.Children) > 0 {
		n.Start = min(n.Start, n.Children[0].Start)
		n.End = max(n.End, n.Children[len(n.Children)-1].End)
	}
	return n
}

func (b *hbsBuilder) statement(stmt ast.Node, parent *Node) *Node {
	pos := stmt.Location().Pos
	switch s := stmt.(type) {
	case *ast.ContentStatement:
		return b.content(s, parent)

	case *ast.MustacheStatement:
		n := &Node{Type: "MustacheStatement", Kind: KindCall, Parent: parent, Start: pos, End: pos}
		b.expression(s.Expression, n)
		return n

	case *ast.BlockStatement:
		n := &Node{Type: "BlockStatement", Kind: KindCall, Parent: parent, Start: pos, End: pos}
		b.expression(s.Expression, n)
		if s.Program != nil {
			n.Children = append(n.Children, b.program(s.Program, n, "program"))
		}
		if s.Inverse != nil {
			n.Children = append(n.Children, b.program(s.Inverse, n, "inverse"))
		}
		return n

	case *ast.PartialStatement:
		n := &Node{Type: "PartialStatement", Parent: parent, Start: pos, End: pos}
		for _, param := range s.Params {
			n.Children = append(n.Children, b.value(param, n, PropParams))
		}
		b.hash(s.Hash, n)
		return n

	case *ast.CommentStatement:
		return &Node{Type: "CommentStatement", Kind: KindComment, Parent: parent, Start: pos, End: pos}
	}
	return nil
}

// expression fills a call node from a helper expression: the callee
// name, then params and hash values as arguments.
func (b *hbsBuilder) expression(expr *ast.Expression, n *Node) {
	if expr == nil {
		return
	}
	if path, ok := expr.Path.(*ast.PathExpression); ok {
		n.Callee = path.Original
	}
	for _, param := range expr.Params {
		n.Children = append(n.Children, b.value(param, n, PropParams))
	}
	b.hash(expr.Hash, n)
}

func (b *hbsBuilder) hash(h *ast.Hash, n *Node) {
	if h == nil {
		return
	}
	for _, pair := range h.Pairs {
		n.Children = append(n.Children, b.value(pair.Val, n, PropHash))
	}
}

func (b *hbsBuilder) value(v ast.Node, parent *Node, property string) *Node {
	pos := v.Location().Pos
	switch val := v.(type) {
	case *ast.SubExpression:
		n := &Node{Type: "SubExpression", Kind: KindCall, Parent: parent, Property: property, Start: pos, End: pos}
		b.expression(val.Expression, n)
		return n

	case *ast.StringLiteral:
		n := &Node{Type: "StringLiteral", Kind: KindLiteral, Parent: parent, Property: property, Value: val.Value}
		b.locateString(n, pos)
		return n

	case *ast.PathExpression:
		return &Node{Type: "PathExpression", Parent: parent, Property: property, Value: val.Original, Start: pos, End: pos}
	}
	return &Node{Type: "Literal", Parent: parent, Property: property, Start: pos, End: pos}
}

// locateString finds the quoted token of a string literal. The parser
// reports the position of the value; the quote is at or just before it.
func (b *hbsBuilder) locateString(n *Node, pos int) {
	n.Start, n.End = pos, pos
	n.TextStart, n.TextEnd = pos, pos

	quoteAt := -1
	for _, at := range []int{pos - 1, pos} {
		if at >= 0 && at < len(b.src) && (b.src[at] == '"' || b.src[at] == '\'') {
			quoteAt = at
			break
		}
	}
	if quoteAt < 0 {
		// Fall back to the first quoted occurrence of the value after pos.
		from := max(pos, 0)
		for _, q := range []string{`"`, `'`} {
			if i := bytes.Index(b.src[min(from, len(b.src)):], []byte(q+n.Value)); i >= 0 && (quoteAt < 0 || from+i < quoteAt) {
				quoteAt = from + i
			}
		}
		if quoteAt < 0 {
			return
		}
	}

	delim := b.src[quoteAt]
	for i := quoteAt + 1; i < len(b.src); i++ {
		if b.src[i] == delim && b.src[i-1] != '\\' {
			n.Start, n.End = quoteAt, i+1
			n.TextStart, n.TextEnd = quoteAt+1, i
			n.Open, n.Close = string(delim), string(delim)
			return
		}
	}
}

// content locates a content statement in the source. Text runs are
// attached later by splitContent, once every content range is known.
func (b *hbsBuilder) content(s *ast.ContentStatement, parent *Node) *Node {
	original := s.Original
	if original == "" {
		original = s.Value
	}

	start := -1
	pos := s.Location().Pos
	if pos >= b.cursor && pos+len(original) <= len(b.src) && string(b.src[pos:pos+len(original)]) == original {
		start = pos
	} else if i := bytes.Index(b.src[b.cursor:], []byte(original)); i >= 0 {
		start = b.cursor + i
	}

	n := &Node{Type: "ContentStatement", Parent: parent, Start: pos, End: pos}
	if start < 0 || original == "" {
		return n
	}

	n.Start, n.End = start, start+len(original)
	n.TextStart, n.TextEnd = n.Start, n.End
	b.cursor = n.End
	b.contents = append(b.contents, n)
	return n
}

// splitContent attaches KindText leaves to every located content
// statement: runs that an HTML tokenizer sees as text, trimmed of
// surrounding whitespace.
func (b *hbsBuilder) splitContent() {
	if len(b.contents) == 0 {
		return
	}

	// Mask every directive so the tokenizer keeps its tag state across them.
	masked := bytes.Repeat([]byte{'x'}, len(b.src))
	for _, c := range b.contents {
		copy(masked[c.Start:c.End], b.src[c.Start:c.End])
	}
	isText := textMask(masked)

	for _, c := range b.contents {
		i := c.Start
		for i < c.End {
			if !isText[i] {
				i++
				continue
			}
			j := i
			for j < c.End && isText[j] {
				j++
			}
			if leaf := b.textRun(i, j, c); leaf != nil {
				c.Children = append(c.Children, leaf)
			}
			i = j
		}
	}
}

func (b *hbsBuilder) textRun(start, end int, parent *Node) *Node {
	run := string(b.src[start:end])
	trimmed := strings.TrimLeftFunc(run, unicode.IsSpace)
	start += len(run) - len(trimmed)
	trimmed = strings.TrimRightFunc(trimmed, unicode.IsSpace)
	end = start + len(trimmed)
	if trimmed == "" {
		return nil
	}
	return &Node{
		Type:      "TextRun",
		Kind:      KindText,
		Parent:    parent,
		Value:     trimmed,
		Start:     start,
		End:       end,
		TextStart: start,
		TextEnd:   end,
	}
}

// textMask marks the bytes an HTML tokenizer reports as character data,
// excluding the bodies of script and style elements.
func textMask(doc []byte) []bool {
	mask := make([]bool, len(doc))
	z := html.NewTokenizer(bytes.NewReader(doc))

	offset := 0
	rawText := false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		size := len(z.Raw())

		switch tt {
		case html.TextToken:
			if !rawText {
				for i := offset; i < offset+size && i < len(mask); i++ {
					mask[i] = true
				}
			}
			rawText = false
		case html.StartTagToken:
			name, _ := z.TagName()
			rawText = string(name) == "script" || string(name) == "style"
		default:
			rawText = false
		}
		offset += size
	}
	return mask
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
