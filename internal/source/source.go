// Package source decides which text a request should simplify.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"mvdan.cc/xurls/v2"
)

// NoInputWarning is shown to users who submit nothing.
const NoInputWarning = "Please upload a PDF, paste text, or provide a valid link first."

// ErrNoInput is returned when there is nothing to simplify.
var ErrNoInput = errors.New("no input to simplify")

// ErrUnsupportedContent is returned for responses that are not plain text.
var ErrUnsupportedContent = errors.New("unsupported content type")

// Fetcher retrieves the text behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Resolver struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func NewResolver(fetcher Fetcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{fetcher: fetcher, logger: logger}
}

// Decide picks the source text for input.
//
// Uploaded text is used as-is. Otherwise any URLs in input are fetched and
// the successful bodies joined with blank lines; if none succeed the typed
// text is used. Blank input yields ErrNoInput.
func (r *Resolver) Decide(ctx context.Context, input string, uploaded bool) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrNoInput
	}
	if uploaded || r.fetcher == nil {
		return input, nil
	}

	var fetched []string
	for _, u := range xurls.Strict().FindAllString(input, -1) {
		text, err := r.fetcher.Fetch(ctx, u)
		if err != nil {
			r.logger.Warn("skipping url", "url", u, "err", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			fetched = append(fetched, text)
		}
	}
	if len(fetched) > 0 {
		return strings.Join(fetched, "\n\n"), nil
	}
	return input, nil
}

// HTTPFetcher downloads plain-text documents.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}, maxBytes: maxBytes}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/plain" {
		return "", fmt.Errorf("fetch %s: %w %q", url, ErrUnsupportedContent, resp.Header.Get("Content-Type"))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
