package parsers

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mvp-joe/harvester/internal/source"
)

// scriptSyntax holds the pieces that differ between call-based dialects.
type scriptSyntax struct {
	concat string
	quote  func(string) string
	// tighter lists the binary operators that bind at least as tightly
	// as concat.
	tighter map[string]bool
}

// wrapEdits renders translation calls around content ranges of a string
// literal. A range covering the whole content wraps the literal itself;
// a partial range splits the literal with concatenations:
//
//	'a b c'  ->  'a ' + tr.msg('b') + ' c'
func (s scriptSyntax) wrapEdits(n *Node, ranges []Range, w Wrapper) []source.Edit {
	if len(ranges) == 0 {
		return nil
	}

	callOpen := w.Translator + "." + w.Message + "("
	partial := false
	var edits []source.Edit

	for i, r := range ranges {
		ctxArg := ""
		if ctx := w.context(i); ctx != "" {
			ctxArg = ", " + s.quote(ctx)
		}

		if r.Start == n.TextStart {
			edits = append(edits, source.Edit{Start: n.Start, End: n.Start, Text: callOpen})
		} else {
			partial = true
			edits = append(edits, source.Edit{Start: r.Start, End: r.Start, Text: n.Close + s.concat + callOpen + n.Open})
		}

		if r.End == n.TextEnd {
			edits = append(edits, source.Edit{Start: n.End, End: n.End, Text: ctxArg + ")"})
		} else {
			partial = true
			edits = append(edits, source.Edit{Start: r.End, End: r.End, Text: n.Close + ctxArg + ")" + s.concat + n.Open})
		}
	}

	if n.Bare || (partial && s.binds(n)) {
		edits = append([]source.Edit{{Start: n.Start, End: n.Start, Text: "("}}, edits...)
		edits = append(edits, source.Edit{Start: n.End, End: n.End, Text: ")"})
	}
	return edits
}

// binds reports whether the literal's parent binds tighter than the
// concatenation a split produces, so the split needs parentheses:
//
//	typeof 'a b'  ->  typeof ('a ' + tr.msg('b'))
//	#"a b"        ->  #("a " .. tr.msg("b"))
func (s scriptSyntax) binds(n *Node) bool {
	if isReceiver(n) {
		return true
	}
	if n.Parent == nil {
		return false
	}
	switch n.Parent.Type {
	case "unary_expression", "await_expression":
		return true
	}
	return n.Parent.Kind == KindBinary && s.tighter[n.Parent.Operator]
}

// isReceiver reports whether the literal is the object of a member access
// or call.
func isReceiver(n *Node) bool {
	switch n.Property {
	case "object", "function", "table":
		return true
	}
	return false
}

// quoteSingle renders a single-quoted literal with C-like escapes.
func quoteSingle(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// delimiters splits a literal's source text into its opening and closing
// delimiters. Long brackets ([[ ]], [==[ ]==]) are recognized.
func delimiters(text string) (open, close string) {
	if text == "" {
		return "", ""
	}
	switch text[0] {
	case '"', '\'', '`':
		return text[:1], text[len(text)-1:]
	case '[':
		level := 0
		for level+1 < len(text) && text[level+1] == '=' {
			level++
		}
		open = "[" + strings.Repeat("=", level) + "["
		close = "]" + strings.Repeat("=", level) + "]"
		return open, close
	}
	return "", ""
}

// unescapeJS decodes the escapes of a JavaScript string literal body.
func unescapeJS(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}

	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case '\r':
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		case 'x':
			if r, ok := parseHex(raw, i+1, 2); ok {
				b.WriteRune(r)
				i += 2
			} else {
				b.WriteByte('x')
			}
		case 'u':
			if i+1 < len(raw) && raw[i+1] == '{' {
				end := strings.IndexByte(raw[i:], '}')
				if end > 0 {
					if v, err := strconv.ParseUint(raw[i+2:i+end], 16, 32); err == nil {
						b.WriteRune(rune(v))
						i += end
						continue
					}
				}
				b.WriteByte('u')
			} else if r, ok := parseHex(raw, i+1, 4); ok {
				b.WriteRune(r)
				i += 4
			} else {
				b.WriteByte('u')
			}
		default:
			r, size := utf8.DecodeRuneInString(raw[i:])
			b.WriteRune(r)
			i += size - 1
		}
	}
	return b.String()
}

// unescapeLua decodes the escapes of a Lua short string body.
func unescapeLua(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}

	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := raw[i]; {
		case e == 'a':
			b.WriteByte('\a')
		case e == 'b':
			b.WriteByte('\b')
		case e == 'f':
			b.WriteByte('\f')
		case e == 'n', e == '\n':
			b.WriteByte('\n')
		case e == 'r':
			b.WriteByte('\r')
		case e == 't':
			b.WriteByte('\t')
		case e == 'v':
			b.WriteByte('\v')
		case e == 'z':
			for i+1 < len(raw) && strings.IndexByte(" \t\r\n\f\v", raw[i+1]) >= 0 {
				i++
			}
		case e == 'x':
			if r, ok := parseHex(raw, i+1, 2); ok {
				b.WriteByte(byte(r))
				i += 2
			} else {
				b.WriteByte('x')
			}
		case e == 'u' && i+1 < len(raw) && raw[i+1] == '{':
			end := strings.IndexByte(raw[i:], '}')
			if end > 0 {
				if v, err := strconv.ParseUint(raw[i+2:i+end], 16, 32); err == nil {
					b.WriteRune(rune(v))
					i += end
					continue
				}
			}
			b.WriteByte('u')
		case e >= '0' && e <= '9':
			j := i
			for j < len(raw) && j < i+3 && raw[j] >= '0' && raw[j] <= '9' {
				j++
			}
			v, _ := strconv.Atoi(raw[i:j])
			b.WriteByte(byte(v))
			i = j - 1
		default:
			b.WriteByte(e)
		}
	}
	return b.String()
}

func parseHex(s string, at, n int) (rune, bool) {
	if at+n > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[at:at+n], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}
