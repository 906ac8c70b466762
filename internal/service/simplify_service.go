package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"companion/internal/domain"
	"companion/internal/metrics"
	"companion/internal/rewrite"
)

const (
	DefaultTokenBudget = 3000
	DefaultOverlap     = 2
	DefaultAudience    = "10-year-old"
)

// Options configures a SimplifyService. Zero values select the defaults,
// except Overlap where zero disables the overlap window.
type Options struct {
	Audience    string
	ModelID     string
	TokenBudget int
	Overlap     int
	Concurrency int
	Tutor       domain.Tutor
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// Quiz holds generated comprehension questions and their answers.
type Quiz struct {
	Questions string
	Answers   string
}

type SimplifyService struct {
	tokenizer domain.Tokenizer
	chunker   domain.Chunker
	rewriter  domain.Rewriter
	tutor     domain.Tutor
	opts      Options
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewSimplifyService(tokenizer domain.Tokenizer, chunker domain.Chunker, rewriter domain.Rewriter, opts Options) *SimplifyService {
	if opts.Audience == "" {
		opts.Audience = DefaultAudience
	}
	if opts.TokenBudget <= 0 {
		opts.TokenBudget = DefaultTokenBudget
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SimplifyService{
		tokenizer: tokenizer,
		chunker:   chunker,
		rewriter:  rewriter,
		tutor:     opts.Tutor,
		opts:      opts,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// CountTokens returns the token count of text for modelID.
func (s *SimplifyService) CountTokens(text, modelID string) int {
	return s.tokenizer.Count(text, modelID)
}

// Simplify runs the pipeline with the configured audience, model and budget.
func (s *SimplifyService) Simplify(ctx context.Context, text string) (domain.Result, error) {
	return s.Run(ctx, text, s.opts.Audience, s.opts.ModelID, s.opts.TokenBudget)
}

// Chunks returns the chunks Run would map for text.
func (s *SimplifyService) Chunks(text, modelID string, budget int) []domain.Chunk {
	if budget <= 0 {
		budget = s.opts.TokenBudget
	}
	return s.chunker.Chunks(text, modelID, budget, s.opts.Overlap)
}

// Run simplifies text for audience.
//
// Text within budget is rewritten in a single call and Result.Chunked is
// false. Longer text is chunked, each chunk rewritten under a "## Part i"
// header, and the joined parts rewritten once more into Result.Overall.
// A failed call leaves an inline error marker in place of its output.
// The only error returned is the context's, checked between chunks.
func (s *SimplifyService) Run(ctx context.Context, text, audience, modelID string, budget int) (domain.Result, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Result{}, nil
	}
	if budget <= 0 {
		budget = s.opts.TokenBudget
	}
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID, "model", modelID)
	start := time.Now()

	tokens := s.tokenizer.Count(text, modelID)
	if tokens <= budget {
		logger.Info("simplifying in one call", "tokens", tokens, "budget", budget)
		simplified, err := s.rewriter.Simplify(ctx, text, audience)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.Result{}, ctxErr
			}
			logger.Warn("simplify failed", "err", err)
			simplified = rewrite.Marker(err)
		}
		s.metrics.ObserveRun(false, 0, tokens, time.Since(start))
		return domain.Result{RunID: runID, Combined: simplified}, nil
	}

	chunks := s.chunker.Build(text, modelID, budget, s.opts.Overlap)
	if len(chunks) == 0 {
		return domain.Result{}, nil
	}
	logger.Info("simplifying in parts", "tokens", tokens, "budget", budget, "chunks", len(chunks))

	parts, err := s.mapChunks(ctx, logger, chunks, audience)
	if err != nil {
		return domain.Result{}, err
	}
	combined := strings.Join(parts, "\n\n")

	overall, err := s.rewriter.Simplify(ctx, combined, audience)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Result{}, ctxErr
		}
		logger.Warn("reduce failed", "err", err)
		overall = rewrite.Marker(err)
	}

	s.metrics.ObserveRun(true, len(chunks), tokens, time.Since(start))
	logger.Info("run finished", "parts", len(parts), "elapsed", time.Since(start))
	return domain.Result{RunID: runID, Overall: overall, Combined: combined, Parts: parts, Chunked: true}, nil
}

// mapChunks rewrites every chunk, at most opts.Concurrency at a time.
// parts[i] always belongs to chunks[i].
func (s *SimplifyService) mapChunks(ctx context.Context, logger *slog.Logger, chunks []string, audience string) ([]string, error) {
	parts := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, chunk := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := s.rewriter.Rewrite(gctx, chunk, audience)
			if err != nil {
				logger.Warn("chunk rewrite failed", "part", i+1, "err", err)
				out = rewrite.Marker(err)
			} else {
				logger.Debug("chunk rewritten", "part", i+1)
			}
			parts[i] = fmt.Sprintf("## Part %d\n%s", i+1, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return parts, nil
}

// Explain lists technical terms in text with simple definitions.
func (s *SimplifyService) Explain(ctx context.Context, text string) string {
	if s.tutor == nil || strings.TrimSpace(text) == "" {
		return ""
	}
	return rewrite.OrMarker(s.tutor.ExplainTerms(ctx, text))
}

// Quiz generates three comprehension questions about text and answers them.
// Answers are skipped when the questions could not be generated.
func (s *SimplifyService) Quiz(ctx context.Context, text string) Quiz {
	if s.tutor == nil || strings.TrimSpace(text) == "" {
		return Quiz{}
	}
	questions, err := s.tutor.Questions(ctx, text)
	if err != nil {
		return Quiz{Questions: rewrite.Marker(err)}
	}
	return Quiz{
		Questions: questions,
		Answers:   rewrite.OrMarker(s.tutor.Answers(ctx, questions, text)),
	}
}
