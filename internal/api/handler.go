// Package api exposes the simplification pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"companion/internal/domain"
	"companion/internal/metrics"
	"companion/internal/service"
	"companion/internal/source"
)

const maxBodyBytes = 10 << 20

// Pipeline is the part of the simplification service the API serves.
type Pipeline interface {
	Run(ctx context.Context, text, audience, modelID string, budget int) (domain.Result, error)
	CountTokens(text, modelID string) int
	Chunks(text, modelID string, budget int) []domain.Chunk
	Explain(ctx context.Context, text string) string
	Quiz(ctx context.Context, text string) service.Quiz
}

type Config struct {
	Audience    string
	ModelID     string
	TokenBudget int
}

type Handler struct {
	pipeline Pipeline
	resolver *source.Resolver
	cfg      Config
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

func NewHandler(pipeline Pipeline, resolver *source.Resolver, cfg Config, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{pipeline: pipeline, resolver: resolver, cfg: cfg, metrics: m, gatherer: gatherer, logger: logger}
}

// Router returns the HTTP routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CleanPath)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Heartbeat("/healthz"))
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.Post("/simplify", h.handleSimplify)
	r.Post("/chunks", h.handleChunks)
	r.Post("/tokens", h.handleTokens)
	r.Post("/explain", h.handleExplain)
	r.Post("/questions", h.handleQuestions)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type simplifyRequest struct {
	Text        string `json:"text"`
	Uploaded    bool   `json:"uploaded"`
	Audience    string `json:"audience"`
	Model       string `json:"model"`
	TokenBudget int    `json:"token_budget"`
}

type simplifyResponse struct {
	RunID    string   `json:"run_id,omitempty"`
	Tokens   int      `json:"tokens"`
	Chunked  bool     `json:"chunked"`
	Overall  string   `json:"overall,omitempty"`
	Combined string   `json:"combined"`
	Parts    []string `json:"parts"`
}

type chunkResponse struct {
	Index     int      `json:"index"`
	Text      string   `json:"text"`
	Tokens    int      `json:"tokens"`
	Overlap   int      `json:"overlap"`
	Sentences []string `json:"sentences"`
}

type tokensResponse struct {
	Model  string `json:"model"`
	Tokens int    `json:"tokens"`
}

type explainResponse struct {
	Terms string `json:"terms"`
}

type questionsResponse struct {
	Questions string `json:"questions"`
	Answers   string `json:"answers"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleSimplify(w http.ResponseWriter, r *http.Request) {
	var req simplifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	text, err := h.resolver.Decide(r.Context(), req.Text, req.Uploaded)
	if err != nil {
		h.writeInputError(w, err)
		return
	}
	model := h.model(req.Model)
	audience := req.Audience
	if audience == "" {
		audience = h.cfg.Audience
	}
	budget := req.TokenBudget
	if budget <= 0 {
		budget = h.cfg.TokenBudget
	}

	res, err := h.pipeline.Run(r.Context(), text, audience, model, budget)
	if err != nil {
		h.logger.Warn("simplify aborted", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	parts := res.Parts
	if parts == nil {
		parts = []string{}
	}
	writeJSON(w, http.StatusOK, simplifyResponse{
		RunID:    res.RunID,
		Tokens:   h.pipeline.CountTokens(text, model),
		Chunked:  res.Chunked,
		Overall:  res.Overall,
		Combined: res.Combined,
		Parts:    parts,
	})
}

func (h *Handler) handleChunks(w http.ResponseWriter, r *http.Request) {
	var req simplifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	chunks := h.pipeline.Chunks(req.Text, h.model(req.Model), req.TokenBudget)
	out := make([]chunkResponse, len(chunks))
	for i, ch := range chunks {
		out[i] = chunkResponse{Index: ch.Index, Text: ch.Text, Tokens: ch.TokenCount, Overlap: ch.Overlap, Sentences: ch.Sentences}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleTokens(w http.ResponseWriter, r *http.Request) {
	var req simplifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	model := h.model(req.Model)
	writeJSON(w, http.StatusOK, tokensResponse{Model: model, Tokens: h.pipeline.CountTokens(req.Text, model)})
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req simplifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Text == "" {
		h.writeInputError(w, source.ErrNoInput)
		return
	}
	writeJSON(w, http.StatusOK, explainResponse{Terms: h.pipeline.Explain(r.Context(), req.Text)})
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	var req simplifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Text == "" {
		h.writeInputError(w, source.ErrNoInput)
		return
	}
	q := h.pipeline.Quiz(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, questionsResponse{Questions: q.Questions, Answers: q.Answers})
}

func (h *Handler) model(requested string) string {
	if requested != "" {
		return requested
	}
	return h.cfg.ModelID
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func (h *Handler) writeInputError(w http.ResponseWriter, err error) {
	if errors.Is(err, source.ErrNoInput) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: source.NoInputWarning})
		return
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// unmatchedRoute labels requests that matched no route.
const unmatchedRoute = "unmatched"

// observe counts responses by route pattern and status.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.ObserveRequest(route, status)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
