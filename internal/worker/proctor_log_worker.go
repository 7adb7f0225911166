package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/config"
	"github.com/stemsi/exam-proctor/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ProctorLogWorker drains the proctor log queue into the database in
// batches, falling back to row-by-row inserts and requeueing rows that
// failed for reasons other than bad data.
type ProctorLogWorker struct {
	rdb    *redis.Client
	writer LogWriter
	log    zerolog.Logger

	requeueBackoff time.Duration
}

// NewProctorLogWorker creates a new ProctorLogWorker.
func NewProctorLogWorker(rdb *redis.Client, writer LogWriter, log zerolog.Logger) *ProctorLogWorker {
	return &ProctorLogWorker{
		rdb:            rdb,
		writer:         writer,
		log:            log.With().Str("component", "proctor_log_worker").Logger(),
		requeueBackoff: 2 * time.Second,
	}
}

// Start runs the worker loop until ctx is cancelled. Call in a goroutine.
func (w *ProctorLogWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProctorLogWorker started")

	buffer := make([]model.ProctorLog, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			w.flush(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// Returns immediately when data exists, otherwise blocks up to PollTimeout.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistProctorLogsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			select {
			case <-ctx.Done():
			case <-time.After(3 * time.Second):
			}
			continue
		}

		if len(result) < 2 {
			continue
		}

		var entry model.ProctorLog
		if err := json.Unmarshal([]byte(result[1]), &entry); err != nil {
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed proctor log")
			continue
		}
		buffer = append(buffer, entry)
	}
}

// flush attempts a bulk insert, then row-by-row inserts, then requeues.
func (w *ProctorLogWorker) flush(ctx context.Context, batch []model.ProctorLog) {
	err := w.writer.AppendBatch(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Proctor logs persisted")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var requeue []model.ProctorLog
	for _, entry := range batch {
		err := w.writer.Append(ctx, entry)
		if err == nil {
			continue
		}
		if isDataError(err) {
			w.log.Error().Err(err).
				Int64("user_id", entry.StudentID).
				Int64("exam_id", entry.ExamID).
				Msg("Dropping proctor log rejected by the database")
			continue
		}
		w.log.Error().Err(err).Int64("user_id", entry.StudentID).Msg("Insert failed, requeueing")
		requeue = append(requeue, entry)
	}

	if len(requeue) > 0 {
		w.requeue(ctx, requeue)
	}
}

func (w *ProctorLogWorker) requeue(ctx context.Context, entries []model.ProctorLog) {
	pipe := w.rdb.Pipeline()
	for _, entry := range entries {
		data, _ := json.Marshal(entry)
		pipe.RPush(ctx, config.WorkerKey.PersistProctorLogsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(entries)).Msg("CRITICAL: Failed to requeue proctor logs. Data loss occurred.")
		return
	}

	w.log.Info().Int("count", len(entries)).Msg("Requeued failed proctor logs")
	// Avoid thrashing while the database is down.
	select {
	case <-ctx.Done():
	case <-time.After(w.requeueBackoff):
	}
}

func (w *ProctorLogWorker) shutdown(buffer []model.ProctorLog) {
	w.log.Info().Int("buffered", len(buffer)).Msg("Worker stopping, flushing remaining buffer")
	if len(buffer) == 0 {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w.flush(shutdownCtx, buffer)
}

// isDataError reports integrity and data exceptions, which no retry can fix.
func isDataError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "23") || strings.HasPrefix(pgErr.Code, "22")
}
