// Package rewrite turns documents into prompts for a completion backend.
package rewrite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"companion/internal/domain"
)

// MarkerPrefix starts every inline error marker.
const MarkerPrefix = "⚠️ Error: "

const (
	chunkSystem = "You simplify/rewrite academic or technical text into clear, simpler, plain English while keeping key facts. " +
		"Write for a %s reader. Keep definitions for jargon, and use short paragraphs or bullet points when helpful."
	chunkUser = "Simplify the following text for a %s reader. Keep key claims, definitions, and numbers. " +
		"Avoid losing nuance. If there are sections, preserve their headings.\n\n%s"

	simplifySystem = "You are an assistant that rewrites academic or technical text into simpler, plain English."
	simplifyUser   = "Simplify the following text for a %s reader in less than 500 words:\n\n%s"

	explainSystem = "You are an assistant that explains academic or technical vocab into simpler, plain English definitions."
	explainUser   = "Pick out the technical words and give a simple definition for them for a 14-year-old reader:\n\n%s"

	tutorSystem   = "You are a teacher that checks a student's understanding of academic text."
	questionsUser = "Generate 3 comprehension questions based on the text for a 14 year old learner:\n\n%s"
	answersUser   = "You gave the students the 3 questions provided, now give them the answers in language that a 10 year old would understand:\n\n%s"
)

// Options tunes the requests a Simplifier sends.
type Options struct {
	// MaxTokens caps each response. Defaults to 400.
	MaxTokens int
	// ChunkTemperature is used for per-chunk rewrites. Defaults to 0.3.
	ChunkTemperature float64
	// Temperature is used for whole-document and study requests. Defaults to 0.7.
	Temperature float64
	// Timeout bounds each call. Zero leaves the caller's context alone.
	Timeout time.Duration
}

// Simplifier sends rewrite prompts to a completer. Every method returns the
// backend error unchanged; callers decide how to surface it.
type Simplifier struct {
	completer domain.Completer
	opts      Options
}

func New(completer domain.Completer, opts Options) *Simplifier {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 400
	}
	if opts.ChunkTemperature == 0 {
		opts.ChunkTemperature = 0.3
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	return &Simplifier{completer: completer, opts: opts}
}

// Rewrite simplifies one chunk for audience.
func (s *Simplifier) Rewrite(ctx context.Context, text, audience string) (string, error) {
	return s.complete(ctx, domain.CompletionRequest{
		Task:        domain.TaskRewrite,
		System:      fmt.Sprintf(chunkSystem, audience),
		User:        fmt.Sprintf(chunkUser, audience, text),
		Input:       text,
		Temperature: s.opts.ChunkTemperature,
	})
}

// Simplify rewrites a whole document for audience in one request.
func (s *Simplifier) Simplify(ctx context.Context, text, audience string) (string, error) {
	return s.complete(ctx, domain.CompletionRequest{
		Task:        domain.TaskSimplify,
		System:      simplifySystem,
		User:        fmt.Sprintf(simplifyUser, audience, text),
		Input:       text,
		Temperature: s.opts.Temperature,
	})
}

// ExplainTerms lists the technical words in text with plain definitions.
func (s *Simplifier) ExplainTerms(ctx context.Context, text string) (string, error) {
	return s.complete(ctx, domain.CompletionRequest{
		Task:        domain.TaskExplain,
		System:      explainSystem,
		User:        fmt.Sprintf(explainUser, text),
		Input:       text,
		Temperature: s.opts.Temperature,
	})
}

// Questions writes three comprehension questions about text.
func (s *Simplifier) Questions(ctx context.Context, text string) (string, error) {
	return s.complete(ctx, domain.CompletionRequest{
		Task:        domain.TaskQuestions,
		System:      tutorSystem,
		User:        fmt.Sprintf(questionsUser, text),
		Input:       text,
		Temperature: s.opts.Temperature,
	})
}

// Answers answers questions previously produced by Questions. source is the
// text the questions were asked about and may be empty.
func (s *Simplifier) Answers(ctx context.Context, questions, source string) (string, error) {
	input := source
	if input == "" {
		input = questions
	}
	return s.complete(ctx, domain.CompletionRequest{
		Task:        domain.TaskAnswers,
		System:      tutorSystem,
		User:        fmt.Sprintf(answersUser, questions),
		Input:       input,
		Temperature: s.opts.Temperature,
	})
}

func (s *Simplifier) complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	req.MaxTokens = s.opts.MaxTokens
	out, err := s.completer.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Marker renders err as the inline placeholder that replaces failed output.
func Marker(err error) string {
	return MarkerPrefix + err.Error()
}

// OrMarker returns out, or the marker for err when the call failed.
func OrMarker(out string, err error) string {
	if err != nil {
		return Marker(err)
	}
	return out
}

// IsMarker reports whether text is an inline error marker.
func IsMarker(text string) bool {
	return strings.HasPrefix(text, MarkerPrefix)
}
