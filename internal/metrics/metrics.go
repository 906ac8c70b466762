// Package metrics provides Prometheus metrics for simplification runs.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"companion/internal/domain"
)

const namespace = "companion"

// Metrics holds the collectors for runs, completions and API requests.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	ChunksTotal        prometheus.Counter
	InputTokens        prometheus.Histogram
	CompletionsTotal   *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec
	RequestsTotal      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of simplification runs",
		}, []string{"chunked"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of simplification runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7min
		}),
		ChunksTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Total number of chunks sent to the map step",
		}),
		InputTokens: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "input_tokens",
			Help:      "Token count of submitted documents",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 12),
		}),
		CompletionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Total number of completion calls by task and status",
		}, []string{"provider", "task", "status"}),
		CompletionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Duration of completion calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"provider", "task"}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(chunked bool, chunks, inputTokens int, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(strconv.FormatBool(chunked)).Inc()
	m.RunDuration.Observe(d.Seconds())
	m.ChunksTotal.Add(float64(chunks))
	m.InputTokens.Observe(float64(inputTokens))
}

// ObserveRequest records one API response.
func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Instrument wraps c so every call is counted and timed.
func Instrument(c domain.Completer, m *Metrics) domain.Completer {
	if m == nil {
		return c
	}
	return &instrumented{next: c, m: m}
}

type instrumented struct {
	next domain.Completer
	m    *Metrics
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	start := time.Now()
	out, err := i.next.Complete(ctx, req)
	task := string(req.Task)
	i.m.CompletionDuration.WithLabelValues(i.next.Name(), task).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	i.m.CompletionsTotal.WithLabelValues(i.next.Name(), task, status).Inc()
	return out, err
}
