package source

import (
	"sort"
	"unicode/utf8"
)

// Position is a location in a source file.
// Line is 1-based, Column is 0-based and counted in runes.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`

	// Offset is the byte offset into the source. It is not part of the
	// public coordinates and is omitted from JSON.
	Offset int `json:"-"`
}

// Span is a half-open range between two positions.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Index maps byte offsets to line/column positions and back.
// It is built once per file.
type Index struct {
	src        []byte
	lineStarts []int
}

// NewIndex builds the line table for src.
func NewIndex(src []byte) *Index {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Index{src: src, lineStarts: starts}
}

// Lines returns the number of lines in the source.
func (ix *Index) Lines() int {
	return len(ix.lineStarts)
}

// Position converts a byte offset into a Position.
// Offsets outside the source are clamped.
func (ix *Index) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(ix.src) {
		offset = len(ix.src)
	}

	// First line whose start is beyond offset, minus one.
	line := sort.Search(len(ix.lineStarts), func(i int) bool {
		return ix.lineStarts[i] > offset
	}) - 1

	start := ix.lineStarts[line]
	return Position{
		Line:   line + 1,
		Column: utf8.RuneCount(ix.src[start:offset]),
		Offset: offset,
	}
}

// Span converts a byte range into a Span.
func (ix *Index) Span(start, end int) Span {
	return Span{Start: ix.Position(start), End: ix.Position(end)}
}

// Offset converts a line/column pair back into a byte offset.
// It returns false when the position does not exist in the source.
func (ix *Index) Offset(line, column int) (int, bool) {
	if line < 1 || line > len(ix.lineStarts) || column < 0 {
		return 0, false
	}

	offset := ix.lineStarts[line-1]
	end := ix.lineEnd(line)
	for i := 0; i < column; i++ {
		if offset >= end {
			return 0, false
		}
		_, size := utf8.DecodeRune(ix.src[offset:end])
		offset += size
	}
	return offset, true
}

// Line returns the text of the given 1-based line without its newline.
func (ix *Index) Line(line int) string {
	if line < 1 || line > len(ix.lineStarts) {
		return ""
	}
	return string(ix.src[ix.lineStarts[line-1]:ix.lineEnd(line)])
}

func (ix *Index) lineEnd(line int) int {
	if line < len(ix.lineStarts) {
		end := ix.lineStarts[line] - 1
		if end > 0 && ix.src[end-1] == '\r' {
			end--
		}
		return end
	}
	return len(ix.src)
}
