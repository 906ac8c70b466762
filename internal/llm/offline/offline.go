// Package offline implements an extractive completer that needs no network access.
package offline

import (
	"context"
	"fmt"
	"strings"

	"companion/internal/domain"
	"companion/internal/summarizer"
)

// tokensPerSentence converts a MaxTokens cap into a sentence budget.
const tokensPerSentence = 40

// Completer answers completion requests by extracting sentences from the input.
type Completer struct {
	summarizer *summarizer.FrequencySummarizer
}

func New() *Completer {
	return &Completer{summarizer: summarizer.NewFrequencySummarizer()}
}

func (c *Completer) Name() string { return "offline" }

func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := req.Input
	if text == "" {
		text = req.User
	}

	switch req.Task {
	case domain.TaskExplain:
		var lines []string
		for _, w := range c.summarizer.Keywords(text, 5) {
			lines = append(lines, fmt.Sprintf("- **%s**: %s", w, c.summarizer.SentenceFor(text, w)))
		}
		return strings.Join(lines, "\n"), nil
	case domain.TaskQuestions:
		var lines []string
		for i, w := range c.summarizer.Keywords(text, 3) {
			lines = append(lines, fmt.Sprintf("%d. What does the text say about %s?", i+1, w))
		}
		return strings.Join(lines, "\n"), nil
	case domain.TaskAnswers:
		var lines []string
		for i, w := range c.summarizer.Keywords(text, 3) {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, c.summarizer.SentenceFor(text, w)))
		}
		return strings.Join(lines, "\n"), nil
	default:
		n := req.MaxTokens / tokensPerSentence
		if n < 3 {
			n = 3
		}
		return c.summarizer.Summarize(text, n), nil
	}
}
