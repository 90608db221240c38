package indexer

import (
	"fmt"
	"strings"
	"unicode"
)

// Defaults for the transcript splitter, in runes.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Boundaries tried, in order, when choosing where a window ends.
var splitBoundaries = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("? "),
	[]rune("! "),
	[]rune(" "),
}

// Segment is one window of a transcript.
type Segment struct {
	Text   string
	Offset int // rune offset of Text within the source
}

// Splitter cuts text into overlapping fixed-size windows.
// Size and overlap are measured in runes.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a Splitter. overlap must be smaller than size.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Size returns the window size.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the overlap between consecutive windows.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the windows of text in order. Every window holds at most
// Size runes. A window ends on the last paragraph, line, sentence or word
// boundary that still leaves room for the overlap, otherwise it is cut hard.
// The next window starts Overlap runes before the previous end, moved
// forward to a word start when one exists inside the overlap.
func (s *Splitter) Split(text string) []Segment {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var segments []Segment
	emit := func(start, end int) {
		raw := runes[start:end]
		lead := 0
		for lead < len(raw) && unicode.IsSpace(raw[lead]) {
			lead++
		}
		trimmed := strings.TrimRightFunc(string(raw[lead:]), unicode.IsSpace)
		if trimmed != "" {
			segments = append(segments, Segment{Text: trimmed, Offset: start + lead})
		}
	}

	start := 0
	for start < n {
		end := start + s.size
		if end >= n {
			emit(start, n)
			break
		}

		cut := s.boundary(runes[start:end])
		emit(start, start+cut)

		next := start + cut - s.overlap
		for i := next; i < start+cut; i++ {
			if i > start && unicode.IsSpace(runes[i-1]) && !unicode.IsSpace(runes[i]) {
				next = i
				break
			}
		}
		if next <= start {
			next = start + cut
		}
		start = next
	}
	return segments
}

// boundary returns the length of the window to keep.
func (s *Splitter) boundary(window []rune) int {
	for _, sep := range splitBoundaries {
		if idx := lastIndexRunes(window, sep); idx != -1 {
			cut := idx + len(sep)
			if cut > s.overlap {
				return cut
			}
		}
	}
	return len(window)
}

func lastIndexRunes(s, sep []rune) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		match := true
		for j := range sep {
			if s[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
