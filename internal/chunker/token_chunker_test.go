package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordTokenizer counts whitespace-separated words.
type wordTokenizer struct{}

func (wordTokenizer) Count(text, _ string) int { return len(strings.Fields(text)) }

func (wordTokenizer) Tokenize(text, _ string) []int {
	return make([]int, len(strings.Fields(text)))
}

// numbered returns n sentences of 16 words each, all longer than 60 characters.
func numbered(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Sentence %d is here and sentence %d is above sixty characters long with and without spaces.", i, i)
	}
	return out
}

func TestTokenChunker_Empty(t *testing.T) {
	c := NewTokenChunker(wordTokenizer{}, 0)
	assert.Empty(t, c.Build("", "m", 100, 2))
	assert.Empty(t, c.Build("  \n ", "m", 100, 2))
	assert.Empty(t, c.Chunks("", "m", 100, 2))
}

func TestTokenChunker_FitsInOneChunk(t *testing.T) {
	sentences := numbered(3)
	c := NewTokenChunker(wordTokenizer{}, 0)

	chunks := c.Chunks(strings.Join(sentences, " "), "m", 1000, 2)
	require.Len(t, chunks, 1)
	assert.Equal(t, sentences, chunks[0].Sentences)
	assert.Equal(t, 48, chunks[0].TokenCount)
	assert.Equal(t, 0, chunks[0].Overlap)
}

func TestTokenChunker_TwelveSentences(t *testing.T) {
	sentences := numbered(12)
	c := NewTokenChunker(wordTokenizer{}, 0)

	chunks := c.Chunks(strings.Join(sentences, " "), "gpt-3.5-turbo", 80, 2)
	require.Len(t, chunks, 4)

	assert.Equal(t, sentences[0:5], chunks[0].Sentences)
	assert.Equal(t, sentences[3:8], chunks[1].Sentences)
	assert.Equal(t, sentences[6:11], chunks[2].Sentences)
	assert.Equal(t, sentences[9:12], chunks[3].Sentences)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.LessOrEqual(t, wordTokenizer{}.Count(ch.Text, ""), 80)
		assert.Equal(t, ch.Sentences, Segment(ch.Text), "chunk %d re-segments differently", i)
		if i == 0 {
			assert.Equal(t, 0, ch.Overlap)
			continue
		}
		prev := chunks[i-1].Sentences
		assert.Equal(t, 2, ch.Overlap)
		assert.Equal(t, prev[len(prev)-2:], ch.Sentences[:2])
	}

	texts := c.Build(strings.Join(sentences, " "), "gpt-3.5-turbo", 80, 2)
	require.Len(t, texts, 4)
	for i := range texts {
		assert.Equal(t, chunks[i].Text, texts[i])
	}
}

func TestTokenChunker_OversizedSentence(t *testing.T) {
	short := numbered(2)
	long := "This one sentence rambles on " + strings.Repeat("and on ", 20) + "until it finally stops."
	text := short[0] + " " + long + " " + short[1]

	c := NewTokenChunker(wordTokenizer{}, 0).WithTrimmedOverlap(true)
	chunks := c.Chunks(text, "m", 20, 2)
	require.Len(t, chunks, 3)

	assert.Equal(t, []string{short[0]}, chunks[0].Sentences)
	assert.Equal(t, []string{long}, chunks[1].Sentences)
	assert.Equal(t, []string{short[1]}, chunks[2].Sentences)
	assert.Equal(t, 0, chunks[1].Overlap)
	assert.Equal(t, 0, chunks[2].Overlap)
	assert.Greater(t, chunks[1].TokenCount, 20)
}

func TestTokenChunker_OversizedSentenceKeepsOverlap(t *testing.T) {
	short := numbered(2)
	long := "This one sentence rambles on " + strings.Repeat("and on ", 20) + "until it finally stops."
	text := short[0] + " " + long + " " + short[1]

	chunks := NewTokenChunker(wordTokenizer{}, 0).Chunks(text, "m", 20, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{short[0]}, chunks[0].Sentences)
	assert.Equal(t, []string{short[0], long}, chunks[1].Sentences)
	assert.Equal(t, []string{short[0], long, short[1]}, chunks[2].Sentences)
	assert.Equal(t, 1, chunks[1].Overlap)
	assert.Equal(t, 2, chunks[2].Overlap)
}

func TestTokenChunker_ExactOverlapByDefault(t *testing.T) {
	sentences := numbered(4)
	c := NewTokenChunker(wordTokenizer{}, 0)

	chunks := c.Chunks(strings.Join(sentences, " "), "m", 40, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, sentences[0:2], chunks[0].Sentences)
	assert.Equal(t, sentences[0:3], chunks[1].Sentences)
	assert.Equal(t, sentences[1:4], chunks[2].Sentences)
	assert.Equal(t, 2, chunks[1].Overlap)
	assert.Equal(t, 2, chunks[2].Overlap)
	assert.Equal(t, 48, chunks[1].TokenCount)
}

func TestTokenChunker_OverlapYieldsToBudget(t *testing.T) {
	sentences := numbered(4)
	c := NewTokenChunker(wordTokenizer{}, 0).WithTrimmedOverlap(true)

	chunks := c.Chunks(strings.Join(sentences, " "), "m", 40, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, sentences[0:2], chunks[0].Sentences)
	assert.Equal(t, sentences[1:3], chunks[1].Sentences)
	assert.Equal(t, sentences[2:4], chunks[2].Sentences)
	assert.Equal(t, 1, chunks[1].Overlap)
	assert.Equal(t, 1, chunks[2].Overlap)
}

func TestTokenChunker_NoOverlap(t *testing.T) {
	sentences := numbered(6)
	c := NewTokenChunker(wordTokenizer{}, 0)

	for _, overlap := range []int{0, -3} {
		chunks := c.Chunks(strings.Join(sentences, " "), "m", 32, overlap)
		require.Len(t, chunks, 3)
		for i, ch := range chunks {
			assert.Equal(t, sentences[2*i:2*i+2], ch.Sentences)
			assert.Equal(t, 0, ch.Overlap)
		}
	}
}

func TestTokenChunker_Properties(t *testing.T) {
	var parts []string
	for i, n := range []int{10, 14, 25, 8, 3, 40, 12, 12, 9, 30, 11, 17} {
		parts = append(parts, fmt.Sprintf("Item %d %send.", i, strings.Repeat("alpha ", n)))
	}
	text := strings.Join(parts, " ")
	sentences := Segment(text)

	for _, trim := range []bool{false, true} {
		for _, budget := range []int{10, 20, 40, 80, 200} {
			for _, overlap := range []int{0, 1, 2, 3} {
				t.Run(fmt.Sprintf("trim=%t/budget=%d/overlap=%d", trim, budget, overlap), func(t *testing.T) {
					c := NewTokenChunker(wordTokenizer{}, 0).WithTrimmedOverlap(trim)
					chunks := c.Chunks(text, "m", budget, overlap)
					require.NotEmpty(t, chunks)

					seen := make(map[string]bool)
					for i, ch := range chunks {
						if trim {
							count := wordTokenizer{}.Count(ch.Text, "")
							assert.True(t, count <= budget || len(ch.Sentences) == 1,
								"chunk %d has %d tokens over budget %d", i, count, budget)
						}
						for _, s := range ch.Sentences {
							seen[s] = true
						}
						if i == 0 {
							continue
						}
						prev := chunks[i-1].Sentences
						if trim {
							assert.LessOrEqual(t, ch.Overlap, min(overlap, len(prev)))
						} else {
							assert.Equal(t, min(overlap, len(prev)), ch.Overlap)
						}
						assert.Equal(t, prev[len(prev)-ch.Overlap:], ch.Sentences[:ch.Overlap])
					}
					for _, s := range sentences {
						assert.True(t, seen[s], "sentence %q missing from chunks", s)
					}
				})
			}
		}
	}
}
