// Package tokenizer counts model-specific BPE tokens for budgeting chunk sizes.
package tokenizer

import (
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const (
	// DefaultEncoding is used when the requested model has no known encoding.
	DefaultEncoding = "cl100k_base"
	// DefaultCacheSize bounds the number of per-model encoders kept in memory.
	DefaultCacheSize = 16
)

var loaderOnce sync.Once

// encoder is the subset of *tiktoken.Tiktoken the adapter relies on.
type encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// Config configures the tiktoken adapter.
type Config struct {
	FallbackEncoding string
	CacheSize        int
	Logger           *slog.Logger
}

// Tiktoken counts tokens with the BPE encoding of the requested model.
// Unknown models fall back to FallbackEncoding, and if no BPE data can be
// loaded at all it degrades to a word/punctuation estimate. It never fails.
type Tiktoken struct {
	fallback string
	encoders *lru.Cache[string, encoder]
	logger   *slog.Logger
}

// New creates a tokenizer that loads BPE ranks from the embedded offline files.
func New(cfg Config) *Tiktoken {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	if cfg.FallbackEncoding == "" {
		cfg.FallbackEncoding = DefaultEncoding
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cache, _ := lru.New[string, encoder](cfg.CacheSize)
	return &Tiktoken{fallback: cfg.FallbackEncoding, encoders: cache, logger: cfg.Logger}
}

// Count returns the number of tokens text encodes to for modelID.
func (t *Tiktoken) Count(text, modelID string) int {
	return len(t.Tokenize(text, modelID))
}

// Tokenize returns the token ids of text for modelID.
func (t *Tiktoken) Tokenize(text, modelID string) []int {
	if text == "" {
		return []int{}
	}
	return t.encoderFor(modelID).Encode(text, nil, nil)
}

func (t *Tiktoken) encoderFor(modelID string) encoder {
	if enc, ok := t.encoders.Get(modelID); ok {
		return enc
	}
	var enc encoder
	if e, err := tiktoken.EncodingForModel(modelID); err == nil {
		enc = e
	} else if e, ferr := tiktoken.GetEncoding(t.fallback); ferr == nil {
		t.logger.Debug("no encoding for model, using fallback", "model", modelID, "encoding", t.fallback)
		enc = e
	} else {
		t.logger.Warn("bpe data unavailable, estimating tokens", "model", modelID, "err", ferr)
		enc = estimator{}
	}
	t.encoders.Add(modelID, enc)
	return enc
}

// Estimate approximates a token count by counting words and punctuation marks.
func Estimate(text string) int {
	return len(pieces(text))
}

type estimator struct{}

func (estimator) Encode(text string, _, _ []string) []int {
	ps := pieces(text)
	ids := make([]int, len(ps))
	for i, p := range ps {
		h := fnv.New32a()
		_, _ = h.Write([]byte(p))
		ids[i] = int(h.Sum32() >> 1)
	}
	return ids
}

// pieces splits text into runs of word characters and single punctuation marks.
func pieces(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			out = append(out, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}
