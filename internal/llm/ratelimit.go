package llm

import (
	"context"

	"golang.org/x/time/rate"

	"companion/internal/domain"
)

// RateLimited paces calls to the wrapped completer. It does not retry.
type RateLimited struct {
	next    domain.Completer
	limiter *rate.Limiter
}

// NewRateLimited wraps next so that at most rps requests start per second.
// A non-positive rps returns next unchanged.
func NewRateLimited(next domain.Completer, rps float64) domain.Completer {
	if rps <= 0 {
		return next
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (r *RateLimited) Name() string { return r.next.Name() }

func (r *RateLimited) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.next.Complete(ctx, req)
}
