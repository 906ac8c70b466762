package domain

import "context"

// Chunk is a sentence-aligned, token-bounded span of a document.
type Chunk struct {
	Index      int
	Text       string
	Sentences  []string
	TokenCount int
	// Overlap is the number of leading sentences shared with the previous chunk.
	// It equals min(K, len(previous.Sentences)) unless the chunker trims the
	// overlap to honour the token budget, in which case it may be smaller.
	Overlap int
}

// Result is the outcome of one simplification run.
// Parts are ordered by chunk index and Combined is Parts joined by blank lines.
// Overall is empty when the document fit the budget and was not chunked.
type Result struct {
	RunID    string
	Overall  string
	Combined string
	Parts    []string
	Chunked  bool
}

// Task names the kind of rewrite a completion request performs.
type Task string

const (
	TaskRewrite   Task = "rewrite"
	TaskSimplify  Task = "simplify"
	TaskExplain   Task = "explain"
	TaskQuestions Task = "questions"
	TaskAnswers   Task = "answers"
)

// CompletionRequest is a single prompt sent to a text-completion backend.
// Input carries the document text embedded in User, for backends that do not read prompts.
type CompletionRequest struct {
	Task        Task
	System      string
	User        string
	Input       string
	Temperature float64
	MaxTokens   int
}

// Tokenizer converts text into model-specific token units for budgeting.
type Tokenizer interface {
	Count(text, modelID string) int
	Tokenize(text, modelID string) []int
}

// Completer sends a prompt to an LLM backend and returns the generated text.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Rewriter rewrites text for a target reader.
type Rewriter interface {
	// Rewrite simplifies one chunk of a longer document for the audience.
	Rewrite(ctx context.Context, text, audience string) (string, error)
	// Simplify rewrites a whole document for the audience in a single call.
	Simplify(ctx context.Context, text, audience string) (string, error)
}

// Tutor produces study aids for a text.
type Tutor interface {
	ExplainTerms(ctx context.Context, text string) (string, error)
	Questions(ctx context.Context, text string) (string, error)
	Answers(ctx context.Context, questions, source string) (string, error)
}

// Chunker splits a document into chunks that fit a token budget.
type Chunker interface {
	Build(text, modelID string, budget, overlap int) []string
	Chunks(text, modelID string, budget, overlap int) []Chunk
}
