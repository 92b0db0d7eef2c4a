package catalog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mvp-joe/harvester/internal/keys"
)

// BuildOptions configures catalog output.
type BuildOptions struct {
	Locales []string
	// Dir receives the catalogs, created when missing.
	Dir string
	// BaseName prefixes every catalog file name: <Dir>/<BaseName><locale>.po
	BaseName string
}

// CatalogPath returns the file a locale's catalog is written to.
func (o BuildOptions) CatalogPath(locale string) string {
	return filepath.Join(o.Dir, o.BaseName+locale+".po")
}

// BuildPO writes one PO catalog per locale and returns the written paths.
// Translations already present in an existing catalog are kept; entries
// for keys no longer found are dropped.
func BuildPO(m *keys.Map, opts BuildOptions) ([]string, error) {
	if len(opts.Locales) == 0 {
		return nil, errors.New("no locales to build")
	}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog dir: %w", err)
		}
	}

	var written []string
	for _, locale := range opts.Locales {
		path := opts.CatalogPath(locale)

		existing, err := ReadPO(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return written, err
		}

		var buf bytes.Buffer
		writePO(&buf, m, locale, existing)
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writePO(buf *bytes.Buffer, m *keys.Map, locale string, existing map[string]string) {
	buf.WriteString("msgid \"\"\n")
	buf.WriteString("msgstr \"\"\n")
	buf.WriteString(quotePO("Content-Type: text/plain; charset=UTF-8\n") + "\n")
	buf.WriteString(quotePO("Content-Transfer-Encoding: 8bit\n") + "\n")
	buf.WriteString(quotePO("Language: "+locale+"\n") + "\n")

	m.Each(func(id string, items []keys.KeyItem) {
		if len(items) == 0 {
			return
		}
		buf.WriteByte('\n')

		var refs []string
		seen := make(map[string]bool)
		for _, it := range items {
			ref := reference(it)
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			refs = append(refs, ref)
		}
		if len(refs) > 0 {
			buf.WriteString("#: " + strings.Join(refs, " ") + "\n")
		}

		if ctx := items[0].Context; ctx != nil {
			buf.WriteString("msgctxt " + quotePO(*ctx) + "\n")
		}
		buf.WriteString("msgid " + quotePO(items[0].Key) + "\n")
		buf.WriteString("msgstr " + quotePO(existing[id]) + "\n")
	})
}

func reference(it keys.KeyItem) string {
	src := it.Location.Src
	if src == "" {
		return ""
	}
	// References are whitespace separated; gettext isolates names with spaces.
	if strings.ContainsAny(src, " \t") {
		src = "\u2068" + src + "\u2069"
	}
	return src + ":" + strconv.Itoa(it.Location.Start.Line)
}

func quotePO(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func unquotePO(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("not a quoted string: %s", s)
	}
	body := s[1 : len(s)-1]

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

// ReadPO reads the translations of a PO catalog, keyed by composite
// identity. The header entry is skipped. Plural forms are not supported;
// only msgstr is read.
func ReadPO(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]string)

	var (
		ctx, id, str   string
		hasCtx, inBody bool
		field          *string
	)
	flush := func() {
		if inBody && id != "" {
			var c *string
			if hasCtx {
				cv := ctx
				c = &cv
			}
			out[keys.CompositeKey(id, c)] = str
		}
		ctx, id, str = "", "", ""
		hasCtx, inBody = false, false
		field = nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "#"):
			if inBody {
				flush()
			}
		case strings.HasPrefix(line, "msgctxt "):
			if inBody {
				flush()
			}
			hasCtx = true
			field = &ctx
			if err := setField(field, line[len("msgctxt "):]); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
		case strings.HasPrefix(line, "msgid "):
			if inBody && field != &ctx {
				flush()
			}
			inBody = true
			field = &id
			if err := setField(field, line[len("msgid "):]); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
		case strings.HasPrefix(line, "msgstr "):
			field = &str
			if err := setField(field, line[len("msgstr "):]); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
		case strings.HasPrefix(line, `"`):
			if field == nil {
				return nil, fmt.Errorf("%s:%d: continuation outside an entry", path, lineNo)
			}
			s, err := unquotePO(line)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
			*field += s
		default:
			// msgid_plural, msgstr[n] and the like are ignored.
			field = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return out, nil
}

func setField(field *string, quoted string) error {
	s, err := unquotePO(strings.TrimSpace(quoted))
	if err != nil {
		return err
	}
	*field = s
	return nil
}
