package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/config"
	"github.com/stemsi/exam-proctor/internal/database"
	"github.com/stemsi/exam-proctor/internal/logger"
	"github.com/stemsi/exam-proctor/internal/middleware"
	"github.com/stemsi/exam-proctor/internal/repository"
	"github.com/stemsi/exam-proctor/internal/service"
)

// sweep runs the Absence Sweeper once. Cron invokes it either against a
// running server (-url) or directly against the database.
func main() {
	var baseURL string
	flag.StringVar(&baseURL, "url", "", "Base URL of a running server, e.g. http://localhost:8080 (empty runs in-process)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var (
		res *service.SweepResult
		err error
	)
	if baseURL != "" {
		res, err = sweepRemote(ctx, cfg, baseURL)
	} else {
		res, err = sweepLocal(ctx, cfg, log)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Absence sweep failed")
	}

	log.Info().
		Int("exams_scanned", res.ExamsScanned).
		Int("marked_count", res.MarkedCount).
		Msg("Absence sweep finished")
}

func sweepLocal(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*service.SweepResult, error) {
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer rdb.Close()

	sweeper := service.NewAbsenceSweeper(
		repository.NewProfileRepository(pool),
		repository.NewExamRepository(pool),
		repository.NewAttemptRepository(pool),
		rdb,
		cfg.SweepLockTTL,
		log,
	)
	return sweeper.Sweep(ctx)
}

func sweepRemote(ctx context.Context, cfg *config.Config, baseURL string) (*service.SweepResult, error) {
	endpoint := strings.TrimRight(baseURL, "/") + "/api/absent-sweep/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}

	if cfg.InternalTokenSecret != "" {
		token, err := middleware.MintInternalToken(cfg.InternalTokenSecret, middleware.SubjectAbsentSweep, cfg.InternalTokenTTL)
		if err != nil {
			return nil, fmt.Errorf("mint token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sweep returned %d: %s", resp.StatusCode, body)
	}

	var env struct {
		Data service.SweepResult `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env.Data, nil
}
