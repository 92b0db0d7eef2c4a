package wrap

import (
	"context"
	"errors"

	"github.com/mvp-joe/harvester/internal/source"
)

// ErrAborted is returned when a run is stopped before it finished. The
// text being rewritten at that moment is left untouched.
var ErrAborted = errors.New("wrap aborted")

// Decision is the answer to a wrap prompt.
type Decision int

const (
	// Accept wraps the candidate.
	Accept Decision = iota
	// Decline leaves the candidate as is. It stays counted as a candidate.
	Decline
	// Abort stops the run.
	Abort
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Decline:
		return "decline"
	case Abort:
		return "abort"
	}
	return "unknown"
}

// Candidate is a text offered for wrapping in prompt mode.
type Candidate struct {
	// Source names the file or input being rewritten.
	Source string
	// Text is the exact text that would be wrapped.
	Text string
	Span source.Span
	// Line is the full source line holding the start of the candidate.
	Line string
	// Message is the matched control message, nil in whole-literal mode.
	Message *ControlMessage
}

// Prompter asks for a decision on each candidate, in document order.
// Confirm blocks until the decision is known.
type Prompter interface {
	Confirm(ctx context.Context, c Candidate) (Decision, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, c Candidate) (Decision, error)

// Confirm calls f.
func (f PrompterFunc) Confirm(ctx context.Context, c Candidate) (Decision, error) {
	return f(ctx, c)
}
