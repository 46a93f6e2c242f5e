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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/riftarena/tournament-engine/config"
	"github.com/riftarena/tournament-engine/db"
	"github.com/riftarena/tournament-engine/handlers"
	"github.com/riftarena/tournament-engine/live"
	"github.com/riftarena/tournament-engine/repositories"
	api "github.com/riftarena/tournament-engine/routes"
	"github.com/riftarena/tournament-engine/services"
	"github.com/riftarena/tournament-engine/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Объектное хранилище для архивных снимков (опционально)
	var uploader storage.ObjectUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage not configured, archive snapshots disabled")
	}

	// WebSocket-хаб live-обновлений
	hub := live.NewHub(logger)
	go hub.Run()
	logger.Info("live hub started")

	// Репозитории
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	bracketRepo := repositories.NewPostgresBracketRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	auditRepo := repositories.NewPostgresAuditRepository(dbConn)
	logger.Info("repositories initialized")

	// Сервисы
	tournamentService := services.NewTournamentService(
		tournamentRepo, participantRepo, bracketRepo, matchRepo, auditRepo, logger)

	var snapshots services.SnapshotExporter
	if uploader != nil {
		snapshots = services.NewSnapshotService(tournamentService, uploader, logger)
	}

	lifecycleService := services.NewLifecycleService(
		dbConn, tournamentRepo, participantRepo, bracketRepo, matchRepo, auditRepo,
		snapshots, hub, logger)
	bracketService := services.NewBracketService(
		dbConn, tournamentRepo, participantRepo, bracketRepo, matchRepo, auditRepo, hub, logger)
	swissService := services.NewSwissService(
		dbConn, tournamentRepo, participantRepo, bracketRepo, matchRepo, auditRepo, hub, logger)
	progressionService := services.NewProgressionService(tournamentRepo, bracketService, swissService)
	seedingService := services.NewSeedingService(
		dbConn, tournamentRepo, participantRepo, auditRepo, hub, logger)
	seedingService.SetRegenerator(progressionService)
	matchService := services.NewMatchService(
		dbConn, tournamentRepo, matchRepo, auditRepo, hub, logger)
	logger.Info("services initialized")

	// HTTP-обработчики
	tournamentHandler := handlers.NewTournamentHandler(
		tournamentService, lifecycleService, progressionService, bracketService, logger)
	seedingHandler := handlers.NewSeedingHandler(seedingService, logger)
	matchHandler := handlers.NewMatchHandler(matchService, logger)
	webSocketHandler := handlers.NewWebSocketHandler(hub, tournamentService, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, cfg.JWTSecretKey, tournamentHandler, seedingHandler, matchHandler, webSocketHandler)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
