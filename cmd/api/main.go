package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/notescan/internal/adapters/http"
	"github.com/kirillkom/notescan/internal/bootstrap"
	"github.com/kirillkom/notescan/internal/config"
	"github.com/kirillkom/notescan/internal/observability/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "notescan: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser := logging.NewJSONLoggerWithFile("api", cfg.LogLevel, logging.FileOptions{Path: cfg.LogFile})
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	app.Retrieval.Probe(ctx)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	var consumers sync.WaitGroup
	consumers.Add(1)
	go func() {
		defer consumers.Done()
		if err := app.Consumer.Run(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("process_consumer_stopped", "error", err)
		}
	}()
	if app.QueueReady != nil {
		select {
		case <-app.QueueReady:
		case <-ctx.Done():
		}
	}

	router := httpadapter.NewRouter(cfg, app.Services).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			stopConsumer()
			consumers.Wait()
			return fmt.Errorf("api server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api_shutdown_failed", "error", err)
	}

	// In-flight runs finish before stores close.
	stopConsumer()
	consumers.Wait()
	slog.Info("api_stopped")
	return nil
}
