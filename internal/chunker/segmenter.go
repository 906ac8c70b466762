package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// DefaultMinSentenceChars is the length a merged fragment must exceed before it is emitted.
const DefaultMinSentenceChars = 60

// Segment splits text into sentences using DefaultMinSentenceChars.
func Segment(text string) []string {
	return SegmentWithMin(text, DefaultMinSentenceChars)
}

// SegmentWithMin splits text on sentence boundaries and merges consecutive
// fragments until their space-joined length exceeds minChars runes.
// Blank input yields no sentences.
func SegmentWithMin(text string, minChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	var buf []string
	for _, frag := range splitBoundaries(text) {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}
		buf = append(buf, frag)
		joined := strings.Join(buf, " ")
		if utf8.RuneCountInString(joined) > minChars {
			sentences = append(sentences, joined)
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		sentences = append(sentences, strings.Join(buf, " "))
	}
	return sentences
}

// sentenceBreak matches the whitespace between two sentences: it follows
// terminal punctuation plus any closing quotes or brackets, unless the mark
// ends a lone capital initial, and precedes an upper-case letter, a digit or
// an opening parenthesis.
var sentenceBreak = regexp2.MustCompile(
	`(?<=[.!?]`+closers+`*)`+
		`(?<!(?:^|[^\p{L}\p{N}])\p{Lu}[.!?]`+closers+`*)`+
		`\s+(?=[\p{Lu}\p{Nd}(])`,
	regexp2.None)

const closers = `["')\]”’»]`

// splitBoundaries cuts text at every sentenceBreak.
func splitBoundaries(text string) []string {
	runes := []rune(text)
	var frags []string
	start := 0
	m, err := sentenceBreak.FindRunesMatch(runes)
	for err == nil && m != nil {
		frags = append(frags, string(runes[start:m.Index]))
		start = m.Index + m.Length
		m, err = sentenceBreak.FindNextMatch(m)
	}
	return append(frags, string(runes[start:]))
}
