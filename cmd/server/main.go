package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coursekit/livequiz-backend/internal/config"
	"github.com/coursekit/livequiz-backend/internal/database"
	"github.com/coursekit/livequiz-backend/internal/handler"
	"github.com/coursekit/livequiz-backend/internal/logger"
	"github.com/coursekit/livequiz-backend/internal/middleware"
	"github.com/coursekit/livequiz-backend/internal/repository"
	"github.com/coursekit/livequiz-backend/internal/router"
	"github.com/coursekit/livequiz-backend/internal/service"
	"github.com/coursekit/livequiz-backend/internal/validator"
	"github.com/coursekit/livequiz-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("submit_policy", cfg.SubmitPolicy).
		Msg("Starting LiveQuiz Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	sessionRepo := repository.NewSessionRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	sessionService := service.NewQuizSessionService(sessionRepo, rdb, log)
	ledgerService := service.NewLedgerService(sessionRepo, answerRepo, cfg.SubmitPolicy, rdb, log)
	snapshotService := service.NewSnapshotService(sessionRepo, answerRepo, rdb, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Presenter: handler.NewPresenterHandler(sessionService, snapshotService, log),
		Student:   handler.NewStudentHandler(ledgerService, snapshotService, log),
		Projector: handler.NewProjectorHandler(snapshotService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	if cfg.TimerAutoReveal {
		timerWorker := worker.NewTimerWorker(sessionRepo, sessionService, cfg.TimerPollInterval, log)
		go timerWorker.Start(workerCtx)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	// Rate limiter for the student write surface. Polls stay unthrottled;
	// correctness there comes from 304s, not from limiting.
	submitLimiter := middleware.NewRateLimiter(cfg.SubmitRateLimit, time.Minute)
	r := router.SetupRouter(authService, handlers, submitLimiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	workerCancel()
	submitLimiter.Stop()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
