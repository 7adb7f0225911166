package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/config"
	"github.com/stemsi/exam-proctor/internal/model"
)

// LogWriter persists proctor log entries.
type LogWriter interface {
	Append(ctx context.Context, entry model.ProctorLog) error
	AppendBatch(ctx context.Context, entries []model.ProctorLog) error
}

// ProctorLogQueue hands proctor log entries to the ProctorLogWorker through
// a Redis list, keeping the database write off the request path. When Redis
// is absent or the push fails it writes the entry directly.
type ProctorLogQueue struct {
	rdb    *redis.Client
	direct LogWriter
	log    zerolog.Logger
}

// NewProctorLogQueue creates a new ProctorLogQueue.
func NewProctorLogQueue(rdb *redis.Client, direct LogWriter, log zerolog.Logger) *ProctorLogQueue {
	return &ProctorLogQueue{
		rdb:    rdb,
		direct: direct,
		log:    log.With().Str("component", "proctor_log_queue").Logger(),
	}
}

// Append enqueues the entry.
func (q *ProctorLogQueue) Append(ctx context.Context, entry model.ProctorLog) error {
	if q.rdb == nil {
		return q.direct.Append(ctx, entry)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal proctor log: %w", err)
	}

	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistProctorLogsQueue, data).Err(); err != nil {
		q.log.Warn().Err(err).
			Int64("user_id", entry.StudentID).
			Int64("exam_id", entry.ExamID).
			Msg("Enqueue failed, writing proctor log directly")
		return q.direct.Append(ctx, entry)
	}
	return nil
}
