package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"companion/internal/app"
	"companion/internal/config"
	"companion/internal/domain"
	"companion/internal/source"
	"companion/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath  string
		audience string
		model    string
		budget   int
		plain    bool
		chunks   bool
		tokens   bool
		verbose  bool
		logPath  string
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/companion/config.yaml if not provided)")
	flag.StringVar(&audience, "audience", "", "Target reader, e.g. 10-year-old (overrides config)")
	flag.StringVar(&model, "model", "", "Model id used for token counting (overrides config)")
	flag.IntVar(&budget, "budget", 0, "Token budget per chunk (overrides config)")
	flag.BoolVar(&plain, "plain", false, "Print the result instead of opening the viewer")
	flag.BoolVar(&chunks, "chunks", false, "Only print the chunks that would be simplified")
	flag.BoolVar(&tokens, "tokens", false, "Only print the token count")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.StringVar(&logPath, "log", "", "Write logs to this file")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: companion [flags] <file.txt | - | URL | text>...")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if audience != "" {
		cfg.Pipeline.Audience = audience
	}
	if model != "" {
		cfg.Tokenizer.Model = model
	}
	if budget > 0 {
		cfg.Chunker.TokenBudget = budget
	}

	interactive := !plain && !chunks && !tokens
	logger, closeLog, err := newLogger(logPath, verbose, interactive)
	if err != nil {
		log.Fatalf("failed to open log: %v", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	input, uploaded, err := readInputs(inputs)
	if err != nil {
		log.Fatalf("failed to read input: %v", err)
	}
	resolver := source.NewResolver(source.NewHTTPFetcher(30*time.Second, 0), logger)
	text, err := resolver.Decide(ctx, input, uploaded)
	if errors.Is(err, source.ErrNoInput) {
		log.Fatal(source.NoInputWarning)
	}
	if err != nil {
		log.Fatalf("failed to resolve input: %v", err)
	}

	switch {
	case tokens:
		fmt.Println(app.NewTokenizer(cfg, logger).Count(text, cfg.Tokenizer.Model))
		return
	case chunks:
		tok := app.NewTokenizer(cfg, logger)
		for _, ch := range app.NewChunker(cfg, tok).Chunks(text, cfg.Tokenizer.Model, cfg.Chunker.TokenBudget, cfg.Chunker.OverlapSentences) {
			fmt.Printf("--- chunk %d (%d tokens, %d overlapping sentences)\n%s\n\n", ch.Index+1, ch.TokenCount, ch.Overlap, ch.Text)
		}
		return
	}

	svc, err := app.Build(ctx, cfg, logger, nil)
	if err != nil {
		log.Fatalf("pipeline init failed: %v", err)
	}

	res, err := svc.Simplify(ctx, text)
	if err != nil {
		log.Fatalf("simplify failed: %v", err)
	}
	if plain {
		printResult(os.Stdout, res)
		return
	}

	m := tui.New(svc, res)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}

// readInputs concatenates the arguments. Files and "-" (stdin) count as
// uploads; anything else is typed text that may contain URLs.
func readInputs(args []string) (string, bool, error) {
	var parts []string
	uploaded := false
	for _, a := range args {
		switch {
		case a == "-":
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return "", false, err
			}
			parts = append(parts, string(data))
			uploaded = true
		case isFile(a):
			data, err := os.ReadFile(a)
			if err != nil {
				return "", false, err
			}
			parts = append(parts, string(data))
			uploaded = true
		default:
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, "\n\n"), uploaded, nil
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

func newLogger(path string, verbose, interactive bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = os.Stderr
	closer := func() {}
	switch {
	case path != "":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		w, closer = f, func() { _ = f.Close() }
	case interactive:
		// stderr would draw over the viewer
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closer, nil
}

func printResult(w io.Writer, res domain.Result) {
	if res.Chunked {
		fmt.Fprintf(w, "# Overall summary\n\n%s\n\n# Parts\n\n", res.Overall)
	}
	fmt.Fprintln(w, res.Combined)
}
