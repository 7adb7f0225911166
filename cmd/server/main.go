package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/config"
	"github.com/stemsi/exam-proctor/internal/database"
	"github.com/stemsi/exam-proctor/internal/handler"
	"github.com/stemsi/exam-proctor/internal/logger"
	"github.com/stemsi/exam-proctor/internal/middleware"
	"github.com/stemsi/exam-proctor/internal/repository"
	"github.com/stemsi/exam-proctor/internal/router"
	"github.com/stemsi/exam-proctor/internal/service"
	"github.com/stemsi/exam-proctor/internal/validator"
	"github.com/stemsi/exam-proctor/internal/worker"
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
		Int("max_violations", cfg.MaxViolations).
		Msg("Starting exam proctor")

	if cfg.InternalTokenSecret == "" {
		log.Warn().Msg("INTERNAL_TOKEN_SECRET is empty, absent-sweep endpoint is unauthenticated")
	}

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
	profileRepo := repository.NewProfileRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	logRepo := repository.NewProctorLogRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	examCache := service.NewExamCache(examRepo, rdb, cfg.ExamCacheTTL, log)
	logQueue := worker.NewProctorLogQueue(rdb, logRepo, log)

	examService := service.NewExamService(profileRepo, examRepo, attemptRepo, examCache, log)
	attemptService := service.NewAttemptService(profileRepo, examRepo, attemptRepo, examCache, cfg.MaxViolations, log)
	violationService := service.NewViolationService(attemptRepo, attemptService, logQueue, cfg.MaxViolations, log)
	sweeper := service.NewAbsenceSweeper(profileRepo, examRepo, attemptRepo, rdb, cfg.SweepLockTTL, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:        handler.NewExamHandler(examService, attemptService, log),
		Proctoring:  handler.NewProctoringHandler(violationService, log),
		Sweep:       handler.NewSweepHandler(sweeper, log),
		TeacherExam: handler.NewTeacherExamHandler(examService, log),
		ProctorWS:   handler.NewProctorWSHandler(violationService, log, cfg.AllowedOrigins),
		System: handler.NewSystemHandler(map[string]handler.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	logWorker := worker.NewProctorLogWorker(rdb, logRepo, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		logWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	limiter := middleware.NewRateLimiter(workerCtx, 30, time.Minute)
	r := router.SetupRouter(handlers, cfg, limiter)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the log worker and wait for its final flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
