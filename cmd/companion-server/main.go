package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"companion/internal/api"
	"companion/internal/app"
	"companion/internal/config"
	"companion/internal/metrics"
	"companion/internal/source"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, addr string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/companion/config.yaml if not provided)")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides config)")
	flag.Parse()

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
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc, err := app.Build(ctx, cfg, logger, m)
	if err != nil {
		log.Fatalf("pipeline init failed: %v", err)
	}
	resolver := source.NewResolver(source.NewHTTPFetcher(30*time.Second, 0), logger)
	h := api.NewHandler(svc, resolver, api.Config{
		Audience:    cfg.Pipeline.Audience,
		ModelID:     cfg.Tokenizer.Model,
		TokenBudget: cfg.Chunker.TokenBudget,
	}, m, reg, logger)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: h.Router(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
