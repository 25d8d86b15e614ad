package chunker

import (
	"strings"
	"testing"

	"github.com/perigee/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidParams(t *testing.T) {
	t.Run("overlap equals size", func(t *testing.T) {
		_, err := New(10, 10)
		assert.ErrorIs(t, err, core.ErrInvalidChunkParams)
	})

	t.Run("overlap exceeds size", func(t *testing.T) {
		_, err := New(10, 20)
		assert.ErrorIs(t, err, core.ErrInvalidChunkParams)
	})

	t.Run("zero size", func(t *testing.T) {
		_, err := New(0, 0)
		assert.ErrorIs(t, err, core.ErrInvalidChunkParams)
	})
}

func TestSplit_EmptyText(t *testing.T) {
	s, err := New(10, 2)
	require.NoError(t, err)
	assert.Empty(t, s.Split(""))
}

func TestSplit_ShortText(t *testing.T) {
	s, err := New(100, 10)
	require.NoError(t, err)

	chunks := s.Split("short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplit_ExactSize(t *testing.T) {
	s, err := New(5, 1)
	require.NoError(t, err)

	chunks := s.Split("abcde")
	require.Len(t, chunks, 1)
	assert.Equal(t, "abcde", chunks[0])
}

func TestSplit_Windows(t *testing.T) {
	s, err := New(4, 2)
	require.NoError(t, err)

	// Stride 2 over 8 runes: [0:4] [2:6] [4:8]
	chunks := s.Split("abcdefgh")
	require.Equal(t, []string{"abcd", "cdef", "efgh"}, chunks)
}

func TestSplit_FinalChunkShorter(t *testing.T) {
	s, err := New(4, 1)
	require.NoError(t, err)

	// Stride 3 over 9 runes: [0:4] [3:7] [6:9]
	chunks := s.Split("abcdefghi")
	require.Equal(t, []string{"abcd", "defg", "ghi"}, chunks)
}

func TestSplit_RuneBoundaries(t *testing.T) {
	s, err := New(3, 1)
	require.NoError(t, err)

	chunks := s.Split("日本語のテキスト")
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.True(t, len([]rune(c)) <= 3)
		assert.Equal(t, c, string([]rune(c)), "chunk must not split a rune")
	}
}

func TestSplit_Deterministic(t *testing.T) {
	s, err := New(7, 3)
	require.NoError(t, err)

	text := strings.Repeat("determinism matters ", 50)
	first := s.Split(text)
	second := s.Split(text)
	assert.Equal(t, first, second)
}

// Concatenating each chunk's non-overlapping suffix reconstructs the input.
func TestSplit_Reconstruction(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
		text    string
	}{
		{"no overlap", 5, 0, "the quick brown fox jumps over the lazy dog"},
		{"small overlap", 8, 3, strings.Repeat("abcdefghij", 13)},
		{"large overlap", 10, 9, "incremental sliding windows"},
		{"unicode", 4, 2, "héllo wörld — ünïcode tèxt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(tc.size, tc.overlap)
			require.NoError(t, err)

			chunks := s.Split(tc.text)
			require.NotEmpty(t, chunks)

			var b strings.Builder
			b.WriteString(chunks[0])
			for _, c := range chunks[1:] {
				runes := []rune(c)
				if len(runes) > tc.overlap {
					b.WriteString(string(runes[tc.overlap:]))
				}
			}
			assert.Equal(t, tc.text, b.String())
		})
	}
}
