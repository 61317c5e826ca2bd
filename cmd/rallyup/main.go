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

	"go.uber.org/multierr"

	"github.com/ewhitaker/rallyup/internal/database"
	"github.com/ewhitaker/rallyup/internal/logging"
	"github.com/ewhitaker/rallyup/internal/photostore"
	"github.com/ewhitaker/rallyup/internal/refresh"
	"github.com/ewhitaker/rallyup/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("RALLYUP_LOG_LEVEL"))

	port := os.Getenv("RALLYUP_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("RALLYUP_DB_PATH")
	if dbPath == "" {
		dbPath = "rallyup.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	photos := photostore.New(photostore.Config{
		Endpoint:      os.Getenv("RALLYUP_S3_ENDPOINT"),
		Bucket:        os.Getenv("RALLYUP_S3_BUCKET"),
		Region:        os.Getenv("RALLYUP_S3_REGION"),
		AccessKey:     os.Getenv("RALLYUP_S3_ACCESS_KEY"),
		SecretKey:     os.Getenv("RALLYUP_S3_SECRET_KEY"),
		PublicBaseURL: os.Getenv("RALLYUP_S3_PUBLIC_URL"),
	})
	if !photos.Enabled() {
		slog.Info("photo uploads disabled; submissions must carry external URLs")
	}

	srv := server.New(db, photos, logger)

	refreshHour := 7
	if raw := os.Getenv("RALLYUP_REFRESH_HOUR"); raw != "" {
		if h, err := strconv.Atoi(raw); err == nil {
			refreshHour = h
		}
	}
	scheduler := refresh.NewScheduler(srv.Leaderboard(), refreshHour, logger.With("component", "refresh"))
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("rallyup starting", "addr", ":"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	scheduler.Stop()
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	shutdownErr := httpServer.Shutdown(ctx)
	shutdownErr = multierr.Append(shutdownErr, db.Close())
	if shutdownErr != nil {
		slog.Error("shutdown error", "error", shutdownErr)
		os.Exit(1)
	}
}
