package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapFetcher map[string]string

func (m mapFetcher) Fetch(_ context.Context, url string) (string, error) {
	if text, ok := m[url]; ok {
		return text, nil
	}
	return "", errors.New("not found")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolver_Decide(t *testing.T) {
	fetcher := mapFetcher{
		"https://example.com/a.txt": "First article.",
		"https://example.com/b.txt": "Second article.",
	}
	r := NewResolver(fetcher, quietLogger())

	tests := []struct {
		name     string
		input    string
		uploaded bool
		want     string
	}{
		{
			name:     "uploaded text wins",
			input:    "  see https://example.com/a.txt  ",
			uploaded: true,
			want:     "see https://example.com/a.txt",
		},
		{
			name:  "urls are fetched and joined",
			input: "read https://example.com/a.txt and https://example.com/b.txt",
			want:  "First article.\n\nSecond article.",
		},
		{
			name:  "failed urls are skipped",
			input: "https://example.com/missing https://example.com/b.txt",
			want:  "Second article.",
		},
		{
			name:  "all urls fail falls back to typed text",
			input: "https://example.com/missing",
			want:  "https://example.com/missing",
		},
		{
			name:  "plain text",
			input: "Just some pasted text.",
			want:  "Just some pasted text.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Decide(context.Background(), tt.input, tt.uploaded)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_DecideEmpty(t *testing.T) {
	r := NewResolver(mapFetcher{}, quietLogger())
	_, err := r.Decide(context.Background(), "   ", false)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestHTTPFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/doc.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("The quick brown fox."))
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<p>hi</p>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, 9)
	ctx := context.Background()

	text, err := f.Fetch(ctx, srv.URL+"/doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "The quick", text)

	_, err = f.Fetch(ctx, srv.URL+"/page.html")
	assert.ErrorIs(t, err, ErrUnsupportedContent)

	_, err = f.Fetch(ctx, srv.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")
}
