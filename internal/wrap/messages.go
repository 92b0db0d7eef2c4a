package wrap

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// MessageCounts tracks how often a control message was seen and wrapped.
// Wrapped never exceeds Candidate.
type MessageCounts struct {
	Candidate int `json:"candidate"`
	Wrapped   int `json:"wrapped"`
}

// ControlMessage is a known phrase tracked across a wrap run. The same
// pointers are shared by every file of a run so the counts accumulate.
type ControlMessage struct {
	Message string        `json:"message"`
	Counts  MessageCounts `json:"counts"`
}

// PrepareOptions customizes PrepareControlMessages.
type PrepareOptions struct {
	// Filter drops messages for which it returns false.
	Filter func(message string) bool
	// Less orders the prepared list. Nil keeps input order.
	Less func(a, b string) bool
}

// PrepareControlMessages turns plain phrases into zeroed control messages.
// Empty and duplicate phrases are dropped.
func PrepareControlMessages(messages []string, opts PrepareOptions) []*ControlMessage {
	seen := make(map[string]bool, len(messages))
	var kept []string
	for _, m := range messages {
		if m == "" || seen[m] {
			continue
		}
		if opts.Filter != nil && !opts.Filter(m) {
			continue
		}
		seen[m] = true
		kept = append(kept, m)
	}

	if opts.Less != nil {
		sort.SliceStable(kept, func(i, j int) bool { return opts.Less(kept[i], kept[j]) })
	}

	out := make([]*ControlMessage, len(kept))
	for i, m := range kept {
		out[i] = &ControlMessage{Message: m}
	}
	return out
}

// LoadControlMessages reads a vocabulary file. The document is either a
// sequence of phrases or a mapping whose keys are the phrases (a catalog
// exported as JSON or YAML). Document order is kept.
func LoadControlMessages(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read control messages: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse control messages %s: %w", path, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	var out []string
	switch root.Kind {
	case yaml.SequenceNode:
		for _, item := range root.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%s:%d: control message must be a string", path, item.Line)
			}
			out = append(out, item.Value)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			out = append(out, root.Content[i].Value)
		}
	default:
		return nil, errors.New(path + ": control messages must be a list or a mapping")
	}
	return out, nil
}

// Summary reports the outcome of a run over a set of control messages.
type Summary struct {
	All []*ControlMessage `json:"all"`
	// NoWraps lists the messages that were never wrapped.
	NoWraps []*ControlMessage `json:"noWraps"`
	// ByMessage indexes All by phrase.
	ByMessage map[string]*ControlMessage `json:"-"`
}

// Summarize collects the counters of a run.
func Summarize(messages []*ControlMessage) Summary {
	s := Summary{
		All:       messages,
		ByMessage: make(map[string]*ControlMessage, len(messages)),
	}
	for _, m := range messages {
		s.ByMessage[m.Message] = m
		if m.Counts.Wrapped == 0 {
			s.NoWraps = append(s.NoWraps, m)
		}
	}
	return s
}

// String renders one line per message, unwrapped ones flagged.
func (s Summary) String() string {
	var b strings.Builder
	for _, m := range s.All {
		flag := " "
		if m.Counts.Wrapped == 0 {
			flag = "!"
		}
		fmt.Fprintf(&b, "%s %3d/%-3d %s\n", flag, m.Counts.Wrapped, m.Counts.Candidate, m.Message)
	}
	return b.String()
}

// byLengthDesc orders messages longest first; ties keep their order.
func byLengthDesc(messages []*ControlMessage) []*ControlMessage {
	out := make([]*ControlMessage, len(messages))
	copy(out, messages)
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(out[i].Message) > utf8.RuneCountInString(out[j].Message)
	})
	return out
}
