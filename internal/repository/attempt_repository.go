package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-proctor/internal/model"
)

const attemptColumns = `id, student_id, exam_id, start_time, end_time, score, is_submitted, status, violation_count`

// AttemptRepository handles exam attempt and answer data access.
// Every state transition is a single conditional statement or a
// transaction holding the row lock.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := row.Scan(&a.ID, &a.StudentID, &a.ExamID, &a.StartTime, &a.EndTime,
		&a.Score, &a.IsSubmitted, &a.Status, &a.ViolationCount)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByExamAndStudent retrieves the attempt for a specific exam-student combination.
func (r *AttemptRepository) GetByExamAndStudent(ctx context.Context, examID, studentID int64) (*model.ExamAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID))
}

// ListSubmittedExamIDs returns the exams a student can no longer take.
func (r *AttemptRepository) ListSubmittedExamIDs(ctx context.Context, studentID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id FROM exam_attempts
		 WHERE student_id = $1 AND is_submitted = TRUE`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetOrCreate inserts an in-progress attempt or returns the existing one.
// The unique (student_id, exam_id) constraint settles concurrent starts.
func (r *AttemptRepository) GetOrCreate(ctx context.Context, examID, studentID int64, startTime time.Time) (*model.ExamAttempt, bool, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (student_id, exam_id, start_time, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (student_id, exam_id) DO NOTHING
		 RETURNING `+attemptColumns,
		studentID, examID, startTime, model.AttemptStatusInProgress))
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	a, err = r.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, false, err
	}
	return a, false, nil
}

// ForceSubmit closes an open attempt keeping its score.
func (r *AttemptRepository) ForceSubmit(ctx context.Context, attemptID int64, endTime time.Time) (*model.ExamAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`UPDATE exam_attempts
		 SET is_submitted = TRUE, status = $2, end_time = $3
		 WHERE id = $1 AND is_submitted = FALSE
		 RETURNING `+attemptColumns,
		attemptID, model.AttemptStatusSubmitted, endTime))
}

// SubmitGraded replaces the attempt's answers and stores the score.
func (r *AttemptRepository) SubmitGraded(ctx context.Context, attemptID int64, answers []model.Answer, score int, endTime time.Time) (*model.ExamAttempt, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var submitted bool
	err = tx.QueryRow(ctx,
		`SELECT is_submitted FROM exam_attempts WHERE id = $1 FOR UPDATE`, attemptID,
	).Scan(&submitted)
	if err != nil {
		return nil, err
	}
	if submitted {
		return nil, pgx.ErrNoRows
	}

	if _, err := tx.Exec(ctx, `DELETE FROM answers WHERE attempt_id = $1`, attemptID); err != nil {
		return nil, err
	}

	if len(answers) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"answers"},
			[]string{"attempt_id", "question_id", "selected_option"},
			pgx.CopyFromSlice(len(answers), func(i int) ([]any, error) {
				return []any{attemptID, answers[i].QuestionID, string(answers[i].SelectedOption)}, nil
			}),
		)
		if err != nil {
			return nil, err
		}
	}

	a, err := scanAttempt(tx.QueryRow(ctx,
		`UPDATE exam_attempts
		 SET score = $2, is_submitted = TRUE, status = $3, end_time = $4
		 WHERE id = $1
		 RETURNING `+attemptColumns,
		attemptID, score, model.AttemptStatusSubmitted, endTime))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// IncrementViolations bumps the violation counter of an open attempt.
func (r *AttemptRepository) IncrementViolations(ctx context.Context, attemptID int64) (*model.ExamAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`UPDATE exam_attempts
		 SET violation_count = violation_count + 1
		 WHERE id = $1 AND is_submitted = FALSE
		 RETURNING `+attemptColumns, attemptID))
}

// MarkAbsent records a zero-score absent attempt unless the student
// already submitted.
func (r *AttemptRepository) MarkAbsent(ctx context.Context, examID, studentID int64, endTime, now time.Time) (bool, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (student_id, exam_id, start_time, end_time, score, is_submitted, status)
		 VALUES ($1, $2, $3, $4, 0, TRUE, $5)
		 ON CONFLICT (student_id, exam_id) DO UPDATE
		 SET status = EXCLUDED.status, is_submitted = TRUE, score = 0, end_time = EXCLUDED.end_time
		 WHERE exam_attempts.is_submitted = FALSE
		 RETURNING id`,
		studentID, examID, now, endTime, model.AttemptStatusAbsent,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListAnswers returns the stored answers of an attempt.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID int64) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, question_id, selected_option
		 FROM answers WHERE attempt_id = $1
		 ORDER BY question_id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.SelectedOption); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
