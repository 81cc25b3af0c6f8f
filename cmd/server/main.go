package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/andresuchdata/roadreport-upload/internal/api"
	"github.com/andresuchdata/roadreport-upload/internal/audit"
	"github.com/andresuchdata/roadreport-upload/internal/config"
	"github.com/andresuchdata/roadreport-upload/internal/metrics"
	"github.com/andresuchdata/roadreport-upload/internal/pipeline"
	"github.com/andresuchdata/roadreport-upload/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Setup(cfg.Server.Mode)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.GCS.ProjectID == "" || cfg.GCS.KeyFile == "" || cfg.GCS.Bucket == "" {
		logger.Log.Warn().Msg("Google Cloud configuration incomplete; uploads will fail until it is set")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.New(reg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	auditLogger, closeAudit := audit.New(context.Background(), cfg, http.DefaultClient)
	defer func() {
		if err := closeAudit(); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to close audit sink")
		}
	}()

	uploads := pipeline.New(cfg.GCS, http.DefaultClient, auditLogger, pipeline.WithMetrics(recorder))

	router := api.NewRouter(&api.Services{
		Uploads:  uploads,
		Gatherer: reg,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Str("bucket", cfg.GCS.Bucket).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
