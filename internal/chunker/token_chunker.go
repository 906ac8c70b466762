// Package chunker splits documents into sentence-aligned chunks that fit a token budget.
package chunker

import (
	"slices"
	"strings"

	"companion/internal/domain"
)

// TokenChunker packs sentences greedily into chunks of at most budget tokens,
// repeating the trailing sentences of each chunk at the start of the next.
type TokenChunker struct {
	tokenizer        domain.Tokenizer
	minSentenceChars int
	trimOverlap      bool
}

func NewTokenChunker(tokenizer domain.Tokenizer, minSentenceChars int) *TokenChunker {
	if minSentenceChars <= 0 {
		minSentenceChars = DefaultMinSentenceChars
	}
	return &TokenChunker{tokenizer: tokenizer, minSentenceChars: minSentenceChars}
}

// WithTrimmedOverlap makes the overlap seed give way to the budget: when the
// seed plus the next sentence exceeds budget, the oldest seed sentences are
// dropped until it fits. By default the seed is always carried in full.
func (c *TokenChunker) WithTrimmedOverlap(on bool) *TokenChunker {
	c.trimOverlap = on
	return c
}

// Build returns the chunk texts for text.
func (c *TokenChunker) Build(text, modelID string, budget, overlap int) []string {
	chunks := c.Chunks(text, modelID, budget, overlap)
	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Text
	}
	return out
}

// Chunks segments text and packs the sentences into chunks.
//
// Each new chunk starts with the last min(overlap, len(previous)) sentences
// of the chunk before it. A sentence is never split, so a chunk may exceed
// budget when one sentence alone does, or when the seed plus the next
// sentence does and trimming is off.
func (c *TokenChunker) Chunks(text, modelID string, budget, overlap int) []domain.Chunk {
	sentences := SegmentWithMin(text, c.minSentenceChars)
	if len(sentences) == 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}

	var (
		chunks    []domain.Chunk
		cur       []string
		curTokens int
		seeded    int
	)
	flush := func() {
		chunks = append(chunks, domain.Chunk{
			Index:      len(chunks),
			Text:       strings.Join(cur, " "),
			Sentences:  slices.Clone(cur),
			TokenCount: curTokens,
			Overlap:    seeded,
		})
	}

	for _, s := range sentences {
		n := c.tokenizer.Count(s, modelID)
		if len(cur) == 0 || curTokens+n <= budget {
			cur = append(cur, s)
			curTokens += n
			continue
		}
		flush()

		seed := cur[len(cur)-min(overlap, len(cur)):]
		for {
			next := append(slices.Clone(seed), s)
			curTokens = c.tokenizer.Count(strings.Join(next, " "), modelID)
			if !c.trimOverlap || curTokens <= budget || len(seed) == 0 {
				cur = next
				seeded = len(seed)
				break
			}
			seed = seed[1:]
		}
	}
	flush()
	return chunks
}
