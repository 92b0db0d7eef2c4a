package source

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOverlappingEdits is returned when two edits touch the same bytes.
var ErrOverlappingEdits = errors.New("overlapping edits")

// Edit replaces the bytes in [Start, End) with Text.
// An insertion has Start == End.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Apply applies all edits to src in a single right-to-left pass and
// returns the new text. src is not modified.
//
// Edits at the same offset keep the order in which they were given, so a
// closing insertion for one match followed by an opening insertion for the
// next one come out in that order.
func Apply(src []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		out := make([]byte, len(src))
		copy(out, src)
		return out, nil
	}

	ordered := make([]Edit, len(edits))
	copy(ordered, edits)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})

	for i, e := range ordered {
		if e.Start < 0 || e.End < e.Start || e.End > len(src) {
			return nil, fmt.Errorf("edit [%d,%d) out of range (source length %d)", e.Start, e.End, len(src))
		}
		if i > 0 {
			prev := ordered[i-1]
			if e.Start < prev.End || (e.Start == prev.Start && e.End > e.Start && prev.End > prev.Start) {
				return nil, fmt.Errorf("%w: [%d,%d) and [%d,%d)", ErrOverlappingEdits, prev.Start, prev.End, e.Start, e.End)
			}
		}
	}

	out := make([]byte, len(src))
	copy(out, src)

	// Right-to-left, so offsets of edits still to apply stay valid.
	for i := len(ordered) - 1; i >= 0; i-- {
		e := ordered[i]
		tail := out[e.End:]
		next := make([]byte, 0, len(out)-(e.End-e.Start)+len(e.Text))
		next = append(next, out[:e.Start]...)
		next = append(next, e.Text...)
		next = append(next, tail...)
		out = next
	}

	return out, nil
}
