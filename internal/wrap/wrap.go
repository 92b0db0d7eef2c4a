package wrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mvp-joe/harvester/internal/parsers"
	"github.com/mvp-joe/harvester/internal/source"
)

// StatCounts are the counters of a wrap result.
type StatCounts struct {
	WrappedTexts int `json:"wrappedTexts"`
}

// Stat holds the statistics of one or more wrap results.
type Stat struct {
	Counts StatCounts `json:"counts"`
}

// Add accumulates other into s.
func (s *Stat) Add(other Stat) {
	s.Counts.WrappedTexts += other.Counts.WrappedTexts
}

// Result is the outcome of wrapping one text. Wrapping Wrapped again with
// the same options yields the same text and zero WrappedTexts.
type Result struct {
	Wrapped string `json:"wrapped"`
	Stat    Stat   `json:"stat"`
}

// Wrap rewrites input so that eligible literal text becomes translation
// calls of the adapter's dialect.
//
// Control message counters in opts are updated in place. Wrapped counts
// change only once the rewrite succeeded. When the run is aborted, by the
// prompter or through ctx, Wrap returns ErrAborted and no result.
func Wrap(ctx context.Context, a parsers.Adapter, input string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAborted, err)
	}
	log := opts.logger()

	src := []byte(input)
	tree, err := a.Parse(src)
	if err != nil {
		return nil, parsers.WithSrc(err, opts.Source)
	}

	var matcher *Matcher
	if len(opts.ControlMessages) > 0 {
		matcher, err = NewMatcher(opts.ControlMessages, opts.BoundExcludeChar)
		if err != nil {
			return nil, err
		}
	}

	rw := &rewriter{
		adapter: a,
		tree:    tree,
		opts:    opts,
		matcher: matcher,
	}

	var edits []source.Edit
	var stat Stat
	var wrapped []*ControlMessage
	for _, n := range newPolicy(a, opts).leaves(tree) {
		ranges, contexts, msgs, err := rw.accepted(ctx, n)
		if err != nil {
			return nil, err
		}
		if len(ranges) == 0 {
			continue
		}

		w := parsers.Wrapper{
			Translator: opts.Translator,
			Message:    opts.Message,
			Contexts:   contexts,
		}
		edits = append(edits, a.WrapEdits(src, n, ranges, w)...)
		stat.Counts.WrappedTexts += len(ranges)
		wrapped = append(wrapped, msgs...)
	}

	out, err := source.Apply(src, edits)
	if err != nil {
		return nil, fmt.Errorf("failed to rewrite %s: %w", nameOf(opts.Source, a), err)
	}
	if stat.Counts.WrappedTexts > 0 {
		out = prependRequire(a, tree, out, opts)
	}
	for _, m := range wrapped {
		m.Counts.Wrapped++
	}

	log.Debug().
		Str("source", nameOf(opts.Source, a)).
		Int("wrapped_texts", stat.Counts.WrappedTexts).
		Msg("wrapped")

	return &Result{Wrapped: string(out), Stat: stat}, nil
}

// rewriter holds the per-text state of a Wrap call.
type rewriter struct {
	adapter parsers.Adapter
	tree    *parsers.Tree
	opts    Options
	matcher *Matcher
}

// accepted returns the ranges of n to wrap, with their contexts and the
// control messages they match. Each candidate goes through the prompter
// when one is set.
func (rw *rewriter) accepted(ctx context.Context, n *parsers.Node) ([]parsers.Range, []string, []*ControlMessage, error) {
	var matches []Match
	if rw.matcher != nil {
		matches = rw.matcher.Find(string(rw.tree.Source[n.TextStart:n.TextEnd]), n.TextStart)
	} else {
		matches = []Match{{Start: n.TextStart, End: n.TextEnd}}
	}

	var ranges []parsers.Range
	var contexts []string
	var msgs []*ControlMessage
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %w", ErrAborted, err)
		}

		text := string(rw.tree.Source[m.Start:m.End])
		if rw.opts.Prompter != nil {
			span := rw.tree.Index.Span(m.Start, m.End)
			decision, err := rw.opts.Prompter.Confirm(ctx, Candidate{
				Source:  rw.opts.Source,
				Text:    text,
				Span:    span,
				Line:    rw.tree.Index.Line(span.Start.Line),
				Message: m.Message,
			})
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, nil, nil, fmt.Errorf("%w: %w", ErrAborted, err)
			}
			if err != nil {
				return nil, nil, nil, fmt.Errorf("prompt failed: %w", err)
			}
			switch decision {
			case Abort:
				return nil, nil, nil, ErrAborted
			case Decline:
				continue
			}
		}

		ctxArg := ""
		if rw.opts.Context != nil {
			ctxArg = rw.opts.Context(text, n)
		}
		ranges = append(ranges, parsers.Range{Start: m.Start, End: m.End})
		contexts = append(contexts, ctxArg)
		if m.Message != nil {
			msgs = append(msgs, m.Message)
		}
	}
	return ranges, contexts, msgs, nil
}

// prependRequire adds the translator binding on top of out when the
// original tree has none. A shebang line stays first.
func prependRequire(a parsers.Adapter, tree *parsers.Tree, out []byte, opts Options) []byte {
	if opts.TranslatorRequireTemplate == "" || a.Bound(tree, opts.Translator) {
		return out
	}

	line := strings.NewReplacer(
		"{translator}", opts.Translator,
		"{translatorRequire}", opts.TranslatorRequire,
	).Replace(opts.TranslatorRequireTemplate) + "\n"

	at := 0
	if bytes.HasPrefix(out, []byte("#!")) {
		if i := bytes.IndexByte(out, '\n'); i >= 0 {
			at = i + 1
		} else {
			at = len(out)
			line = "\n" + line
		}
	}

	res := make([]byte, 0, len(out)+len(line))
	res = append(res, out[:at]...)
	res = append(res, line...)
	res = append(res, out[at:]...)
	return res
}

func nameOf(src string, a parsers.Adapter) string {
	if src != "" {
		return src
	}
	return "<" + string(a.Dialect()) + ">"
}
