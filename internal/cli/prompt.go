package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/colorstring"

	"github.com/mvp-joe/harvester/internal/wrap"
)

// terminalPrompter asks on the terminal whether a candidate gets wrapped.
// Answers: y wraps, n skips, q aborts the run.
type terminalPrompter struct {
	in    *bufio.Reader
	out   io.Writer
	color colorstring.Colorize
}

func newTerminalPrompter(in io.Reader, out io.Writer, noColor bool) *terminalPrompter {
	return &terminalPrompter{
		in:  bufio.NewReader(in),
		out: out,
		color: colorstring.Colorize{
			Colors:  colorstring.DefaultColors,
			Disable: noColor,
		},
	}
}

// paint wraps plain text in color codes without interpreting brackets in it.
func (p *terminalPrompter) paint(code, text string) string {
	return p.color.Color(code) + text + p.color.Color("[reset]")
}

func (p *terminalPrompter) Confirm(ctx context.Context, c wrap.Candidate) (wrap.Decision, error) {
	fmt.Fprintf(p.out, "\n%s\n", p.paint("[bold]", fmt.Sprintf("%s:%d:%d", c.Source, c.Span.Start.Line, c.Span.Start.Column+1)))
	fmt.Fprintln(p.out, highlight(p, c))

	for {
		if err := ctx.Err(); err != nil {
			return wrap.Abort, err
		}
		fmt.Fprint(p.out, p.paint("[cyan]", "Wrap? [y/n/q] "))

		answer, err := p.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && answer != "") {
			if errors.Is(err, io.EOF) {
				return wrap.Abort, nil
			}
			return wrap.Abort, err
		}

		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return wrap.Accept, nil
		case "n", "no":
			return wrap.Decline, nil
		case "q", "quit":
			return wrap.Abort, nil
		}
		if errors.Is(err, io.EOF) {
			return wrap.Abort, nil
		}
	}
}

// highlight renders the candidate's line with the candidate marked.
// Candidates spanning lines are shown from their start to the line end.
func highlight(p *terminalPrompter, c wrap.Candidate) string {
	line := []rune(c.Line)
	start := c.Span.Start.Column
	end := len(line)
	if c.Span.End.Line == c.Span.Start.Line {
		end = c.Span.End.Column
	}
	if start < 0 || start > len(line) || end > len(line) || end < start {
		return c.Line
	}
	return string(line[:start]) + p.paint("[yellow][bold]", string(line[start:end])) + string(line[end:])
}
