package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/embedchat/widget-gateway/internal/config"
	"github.com/embedchat/widget-gateway/internal/gateway"
	"github.com/embedchat/widget-gateway/internal/upstream"
	"github.com/embedchat/widget-gateway/internal/upstream/gemini"
	"github.com/embedchat/widget-gateway/internal/upstream/openai"
)

func main() {
	cfg := config.Load()

	slog.Info("starting widget-gateway",
		"listen", cfg.ListenAddr,
		"provider", cfg.UpstreamProvider,
		"model", cfg.Model,
		"request_mode", cfg.RequestMode,
		"allowed_origins", len(cfg.AllowedOrigins),
		"allowed_origin_suffixes", len(cfg.AllowedOriginSuffixes),
	)
	if cfg.UpstreamAPIKey == "" {
		slog.Warn("UPSTREAM_API_KEY is not set; completion endpoints will answer 500 until configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		slog.Error("failed to create upstream provider", "error", err)
		os.Exit(1)
	}

	srv := gateway.New(cfg, provider)
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	case err := <-serveErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func buildProvider(ctx context.Context, cfg *config.Config) (upstream.Provider, error) {
	switch cfg.UpstreamProvider {
	case "gemini":
		return gemini.NewClient(ctx, cfg.UpstreamAPIKey)
	case "openai", "":
		return openai.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamAPIKey, cfg.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unknown upstream provider %q", cfg.UpstreamProvider)
	}
}
