package chunker

import (
	"github.com/perigee/recall/core"
)

// Default sliding-window parameters.
const (
	DefaultSize    = 500
	DefaultOverlap = 50
)

// Splitter splits document text into overlapping fixed-size windows.
// The zero value is not usable; construct with New.
type Splitter struct {
	size    int
	overlap int
}

// New creates a Splitter with the given window size and overlap, both in
// runes. Returns core.ErrInvalidChunkParams unless 0 <= overlap < size.
func New(size, overlap int) (*Splitter, error) {
	if err := core.ValidateChunkParams(size, overlap); err != nil {
		return nil, err
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Size returns the configured window size in runes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured window overlap in runes.
func (s *Splitter) Overlap() int { return s.overlap }

// Split splits text into an ordered sequence of chunks.
// Empty text yields an empty sequence. Text shorter than the window size
// yields exactly one chunk. The window start advances by size-overlap each
// step, so consecutive chunks share overlap runes; the final chunk may be
// shorter than size. Identical inputs always produce identical boundaries.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.size {
		return []string{text}
	}

	stride := s.size - s.overlap
	chunks := make([]string, 0, (len(runes)+stride-1)/stride)
	for start := 0; start < len(runes); start += stride {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Split is a convenience wrapper validating parameters and splitting in one
// call.
func Split(text string, size, overlap int) ([]string, error) {
	s, err := New(size, overlap)
	if err != nil {
		return nil, err
	}
	return s.Split(text), nil
}
