// Package main is the entry point for the registration admin API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/xinlong-d2/signup-admin/internal/app"
	"github.com/xinlong-d2/signup-admin/internal/config"
	"github.com/xinlong-d2/signup-admin/internal/handler"
	"github.com/xinlong-d2/signup-admin/internal/ingest"
	"github.com/xinlong-d2/signup-admin/internal/middleware"
	"github.com/xinlong-d2/signup-admin/internal/platform/clock"
	"github.com/xinlong-d2/signup-admin/internal/service"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use the default logger before ours is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger := app.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// --- Store ------------------------------------------------------------
	clk := clock.NewSystemClock()
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := app.OpenStore(startCtx, cfg, clk, logger)
	cancelStart()
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// --- Services ---------------------------------------------------------
	pipeline := ingest.NewPipeline(store.Registrants, store.Registrations, ingest.Options{
		Location: cfg.Location,
		Clock:    clk,
		Logger:   logger,
	})

	// A nil fetcher makes the sheets endpoint answer 503.
	var sheets service.SheetsFetcher
	if cfg.GoogleServiceAccountJSON != "" {
		src, err := ingest.NewSheetsSource(context.Background(), cfg.GoogleServiceAccountJSON)
		if err != nil {
			slog.Error("failed to create sheets client", "error", err)
			os.Exit(1)
		}
		sheets = src
		slog.Info("spreadsheet import enabled")
	}

	srv := handler.NewServer(
		service.NewRegistrantService(store.Registrants, store.Registrations),
		service.NewRegistrationService(store.Registrations),
		service.NewIngestService(pipeline, sheets),
		service.NewExportService(store.Registrants, store.Registrations),
		service.NewViewService(store.Registrants, store.Registrations, service.ViewOptions{
			Clock:    clk,
			Debounce: cfg.SearchDebounce,
			TTL:      cfg.ViewTTL,
		}),
	).WithMaxUpload(cfg.MaxUploadBytes)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → CORS → Recoverer.
	// RequestID generates a unique trace ID per request.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP (safe behind a proxy).
	// SlogLogger writes one structured JSON log line per request.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(chimiddleware.Recoverer)
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Uploads and exports move whole spreadsheets, so the write timeout is
	// longer than a plain JSON API would need.
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr, "store", store.Driver)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
