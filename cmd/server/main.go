package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Lllllllleong/formflow/internal/api"
	"github.com/Lllllllleong/formflow/internal/gcp"
	"github.com/Lllllllleong/formflow/internal/services"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	layout, err := services.LoadLayout()
	if err != nil {
		log.Error("invalid layout configuration", "error", err)
		os.Exit(1)
	}
	rateLimit, err := strconv.ParseFloat(gcp.GetEnv("RATE_LIMIT", "0"), 64)
	if err != nil {
		log.Error("RATE_LIMIT must be a number", "error", err)
		os.Exit(1)
	}
	burst, err := gcp.GetEnvInt("RATE_BURST", 10)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage-backed routes are enabled only when a project is configured.
	var exporter api.Exporter
	var batch api.BatchExporter
	if gcp.GetEnv("PROJECT_ID", "") != "" {
		exp, err := services.NewExporter(ctx)
		if err != nil {
			log.Error("failed to initialize exporter", "error", err)
			os.Exit(1)
		}
		b, err := services.NewBatchExporter(ctx)
		if err != nil {
			log.Error("failed to initialize batch exporter", "error", err)
			os.Exit(1)
		}
		exporter, batch = exp, b
	} else {
		log.Info("PROJECT_ID not set; serving local flatten and inspect only")
	}

	srv := api.NewServer(exporter, batch, log, api.Config{
		Layout:    layout,
		RateLimit: rateLimit,
		Burst:     burst,
	})

	port := gcp.GetEnv("PORT", "8080")
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      otelhttp.NewHandler(srv, "formflow"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting formflow", "port", port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
