package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-proctor/internal/model"
)

// ProctorLogRepository persists proctoring audit entries.
type ProctorLogRepository struct {
	pool *pgxpool.Pool
}

// NewProctorLogRepository creates a new ProctorLogRepository.
func NewProctorLogRepository(pool *pgxpool.Pool) *ProctorLogRepository {
	return &ProctorLogRepository{pool: pool}
}

// Append inserts a single entry.
func (r *ProctorLogRepository) Append(ctx context.Context, entry model.ProctorLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO proctor_logs (student_id, exam_id, event, timestamp)
		 VALUES ($1, $2, $3, $4)`,
		entry.StudentID, entry.ExamID, entry.Event, entry.Timestamp)
	return err
}

// AppendBatch bulk-inserts entries with COPY.
func (r *ProctorLogRepository) AppendBatch(ctx context.Context, entries []model.ProctorLog) error {
	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"proctor_logs"},
		[]string{"student_id", "exam_id", "event", "timestamp"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{e.StudentID, e.ExamID, e.Event, e.Timestamp}, nil
		}),
	)
	return err
}

// CountByAttempt returns how many entries a student produced for an exam.
func (r *ProctorLogRepository) CountByAttempt(ctx context.Context, examID, studentID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM proctor_logs WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID,
	).Scan(&n)
	return n, err
}
