// Package summarizer provides extractive, model-free text reduction.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"companion/internal/chunker"
)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered).
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Summarize keeps the maxSentences highest scoring sentences in document order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	sentences := chunker.SegmentWithMin(text, 0)
	if len(sentences) == 0 {
		return ""
	}
	freq := s.frequencies(sentences)

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		sscore := 0.0
		for _, tok := range toks {
			sscore += freq[tok]
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(toks)); l > 0 {
			sscore /= math.Sqrt(l)
		}
		scores[i] = pair{i, sscore}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	// Keep original order among selected
	selected := make([]int, maxSentences)
	for i := 0; i < maxSentences; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " ")
}

// Keywords returns up to n of the most frequent non-stopwords, longest first on ties.
func (s *FrequencySummarizer) Keywords(text string, n int) []string {
	freq := s.frequencies(chunker.SegmentWithMin(text, 0))
	words := make([]string, 0, len(freq))
	for w := range freq {
		if len([]rune(w)) > 3 {
			words = append(words, w)
		}
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	if n > 0 && n < len(words) {
		words = words[:n]
	}
	return words
}

// SentenceFor returns the first sentence of text that mentions word.
func (s *FrequencySummarizer) SentenceFor(text, word string) string {
	for _, sent := range chunker.SegmentWithMin(text, 0) {
		for _, tok := range s.tokens(sent) {
			if tok == word {
				return sent
			}
		}
	}
	return ""
}

// frequencies counts non-stopword tokens, normalized so the top word scores 1.
func (s *FrequencySummarizer) frequencies(sentences []string) map[string]float64 {
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			if _, ok := s.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	return freq
}

func (s *FrequencySummarizer) tokens(text string) []string {
	return s.tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now", "they", "their", "there", "which", "what", "when", "also", "have", "has", "had", "not", "more", "most", "some", "many", "much",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
