package wrap

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Match is a boundary-safe occurrence of a control message. Start and End
// are byte offsets, shifted by the base passed to Find.
type Match struct {
	Start   int
	End     int
	Message *ControlMessage
}

// Matcher finds whole-token occurrences of control messages.
type Matcher struct {
	messages []*ControlMessage
	// bound matches a single rune that must not touch a match. Nil
	// disables the boundary check.
	bound *regexp.Regexp
}

// NewMatcher prepares a matcher. boundExcludeChar is the body of a regexp
// character class, e.g. `\p{L}\p{N}_.\-`.
func NewMatcher(messages []*ControlMessage, boundExcludeChar string) (*Matcher, error) {
	m := &Matcher{messages: byLengthDesc(messages)}
	if boundExcludeChar != "" {
		re, err := regexp.Compile(`^[` + boundExcludeChar + `]$`)
		if err != nil {
			return nil, fmt.Errorf("invalid bound exclude chars %q: %w", boundExcludeChar, err)
		}
		m.bound = re
	}
	return m, nil
}

// Find returns the matches in text in document order and increments the
// Candidate counter of every matched message. Longer messages win; a
// region taken by one match is not offered to shorter messages.
func (m *Matcher) Find(text string, base int) []Match {
	var taken []Match

	for _, cm := range m.messages {
		if cm.Message == "" {
			continue
		}
		from := 0
		for from <= len(text) {
			i := strings.Index(text[from:], cm.Message)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(cm.Message)

			if overlaps(taken, start, end) || !m.bounded(text, start, end) {
				_, size := utf8.DecodeRuneInString(text[start:])
				from = start + max(size, 1)
				continue
			}

			taken = append(taken, Match{Start: start, End: end, Message: cm})
			cm.Counts.Candidate++
			from = end
		}
	}

	sort.Slice(taken, func(i, j int) bool { return taken[i].Start < taken[j].Start })
	for i := range taken {
		taken[i].Start += base
		taken[i].End += base
	}
	return taken
}

func (m *Matcher) bounded(text string, start, end int) bool {
	if m.bound == nil {
		return true
	}
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if m.bound.MatchString(string(r)) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if m.bound.MatchString(string(r)) {
			return false
		}
	}
	return true
}

func overlaps(taken []Match, start, end int) bool {
	for _, t := range taken {
		if start < t.End && t.Start < end {
			return true
		}
	}
	return false
}
