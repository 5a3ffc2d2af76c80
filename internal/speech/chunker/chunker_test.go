package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicegen/internal/domain/speech"
)

func contents(chunks []speech.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func requireWellFormed(t *testing.T, chunks []speech.Chunk, maxSize int) {
	t.Helper()
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index, "chunk indexes must be sequential")
		assert.NotEmpty(t, c.Content)
		assert.Equal(t, strings.TrimSpace(c.Content), c.Content, "chunk %d is not trimmed", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), maxSize, "chunk %d too long", i)
	}
}

func TestSplit_ShortTextIsSingleTrimmedChunk(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
	}{
		{"plain", "Hello world.", 100},
		{"exact fit", "abcde", 5},
		{"padded", "   Hello there!  ", 20},
		{"no punctuation", "just some words", 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Split(tt.text, tt.max)
			require.NoError(t, err)
			require.Len(t, chunks, 1)
			assert.Equal(t, strings.TrimSpace(tt.text), chunks[0].Content)
			assert.Equal(t, 0, chunks[0].Index)
		})
	}
}

func TestSplit_PacksSentencesGreedily(t *testing.T) {
	text := "One two. Three four! Five six? Seven eight."
	chunks, err := Split(text, 20)
	require.NoError(t, err)
	requireWellFormed(t, chunks, 20)

	assert.Equal(t, []string{"One two. Three four!", "Five six?", "Seven eight."}, contents(chunks))
}

func TestSplit_PreservesSourceOrder(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("Sentence number ")
		b.WriteString(strings.Repeat("x", i%7+1))
		b.WriteString(". ")
	}
	text := b.String()

	chunks, err := Split(text, 64)
	require.NoError(t, err)
	requireWellFormed(t, chunks, 64)

	// Rejoining on single spaces must reproduce the normalized source.
	joined := strings.Join(contents(chunks), " ")
	assert.Equal(t, strings.Join(strings.Fields(text), " "), joined)
}

func TestSplit_WhitespaceFallbackWithoutPunctuation(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("lorem ipsum dolor sit amet ", 40))
	chunks, err := Split(text, 50)
	require.NoError(t, err)
	requireWellFormed(t, chunks, 50)
	assert.Greater(t, len(chunks), 1)
	assert.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(contents(chunks), " "))
}

func TestSplit_OversizedSentenceBetweenShortOnes(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 30)) + "."
	text := "Short start. " + long + " Short end."
	chunks, err := Split(text, 40)
	require.NoError(t, err)
	requireWellFormed(t, chunks, 40)
	assert.Equal(t, "Short start.", chunks[0].Content)
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1].Content, "Short end."))
}

func TestSplit_HardSplitsUnbrokenToken(t *testing.T) {
	text := strings.Repeat("a", 95)
	chunks, err := Split(text, 30)
	require.NoError(t, err)
	requireWellFormed(t, chunks, 30)
	assert.Len(t, chunks, 4)
	assert.Equal(t, text, strings.Join(contents(chunks), ""))
}

func TestSplit_CountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("ünïcödé ", 10) // 80 characters, more bytes
	chunks, err := Split(text, 80)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
}

func TestSplit_KeepsRunsOfTerminalPunctuation(t *testing.T) {
	assert.Equal(t, []string{"Wait...", " Really?!", " Yes"}, sentences("Wait... Really?! Yes"))
}

func TestSplit_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
	}{
		{"empty", "", 10},
		{"whitespace", "  \n\t ", 10},
		{"invalid utf8", string([]byte{0xff, 0xfe, 'a'}), 10},
		{"zero max", "hello", 0},
		{"negative max", "hello", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Split(tt.text, tt.max)
			assert.Nil(t, chunks)
			assert.ErrorIs(t, err, speech.ErrInvalidInput)
		})
	}
}
