// Command server is the composition root: it loads configuration, builds
// every core component, wires the HTTP API, and serves it. Mirrors the
// teacher's cmd/api/main.go wiring order (load env -> load prompt library ->
// build dependencies -> register routes -> listen), generalized onto the
// chi router in pkg/api and this system's 9-component composition.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"finagent/pkg/api"
	"finagent/pkg/config"
	"finagent/pkg/core/agent"
	"finagent/pkg/core/insights"
	"finagent/pkg/core/llm"
	"finagent/pkg/core/orchestrator"
	"finagent/pkg/core/prompt"
	"finagent/pkg/core/store"
	"finagent/pkg/core/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("FINAGENT_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.New(ctx, cfg.DBURL, cfg.DBPoolSize)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	prompts := prompt.New()
	resourcesPath := "resources"
	if _, err := os.Stat(resourcesPath); os.IsNotExist(err) {
		if exePath, err2 := os.Executable(); err2 == nil {
			resourcesPath = filepath.Join(filepath.Dir(exePath), "resources")
		}
	}
	if err := prompts.LoadFromDirectory(resourcesPath, log); err != nil {
		log.Warn("failed to load prompt library, falling back to hardcoded prompts", zap.Error(err))
	} else {
		log.Info("loaded prompt library", zap.String("path", resourcesPath))
	}

	registry := tools.NewRegistry()

	provider, err := llm.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("build llm provider: %w", err)
	}

	orch := orchestrator.New(st, cfg, log)

	controller := agent.New(provider, registry, st, prompts, cfg, log)
	defer controller.Close()

	insightsEngine := insights.New(st, registry, provider, prompts, cfg)

	handler := api.NewRouter(api.Deps{
		Store:        st,
		Orchestrator: orch,
		Controller:   controller,
		Insights:     insightsEngine,
		Logger:       log,
	})

	addr := ":8080"
	if v := os.Getenv("FINAGENT_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func buildLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	var lvl zapcore.Level
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	return zapCfg.Build()
}
