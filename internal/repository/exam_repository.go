package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-proctor/internal/model"
)

const examColumns = `e.id, e.title, e.duration_minutes, e.department, e.allowed_batch,
	e.start_time, e.end_time, e.created_by, e.created_at,
	(SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id)`

// ExamRepository handles exam and question data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row pgx.Row, e *model.Exam) error {
	return row.Scan(&e.ID, &e.Title, &e.DurationMinutes, &e.Department, &e.AllowedBatch,
		&e.StartTime, &e.EndTime, &e.CreatedBy, &e.CreatedAt, &e.QuestionCount)
}

func (r *ExamRepository) listExams(ctx context.Context, query string, args ...any) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// GetByID retrieves an exam with its question count.
func (r *ExamRepository) GetByID(ctx context.Context, id int64) (*model.Exam, error) {
	e := &model.Exam{}
	row := r.pool.QueryRow(ctx, `SELECT `+examColumns+` FROM exams e WHERE e.id = $1`, id)
	if err := scanExam(row, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListOpenByDepartment returns the department's exams whose window contains now.
func (r *ExamRepository) ListOpenByDepartment(ctx context.Context, department string, now time.Time) ([]model.Exam, error) {
	return r.listExams(ctx,
		`SELECT `+examColumns+`
		 FROM exams e
		 WHERE e.department = $1 AND e.start_time <= $2 AND e.end_time >= $2
		 ORDER BY e.start_time, e.id`, department, now)
}

// ListExpired returns every exam whose end_time has passed.
func (r *ExamRepository) ListExpired(ctx context.Context, now time.Time) ([]model.Exam, error) {
	return r.listExams(ctx,
		`SELECT `+examColumns+`
		 FROM exams e
		 WHERE e.end_time < $1
		 ORDER BY e.end_time, e.id`, now)
}

// ListByAuthor returns the exams a teacher created, newest window first.
func (r *ExamRepository) ListByAuthor(ctx context.Context, authorID int64) ([]model.Exam, error) {
	return r.listExams(ctx,
		`SELECT `+examColumns+`
		 FROM exams e
		 WHERE e.created_by = $1
		 ORDER BY e.start_time DESC, e.id`, authorID)
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, duration_minutes, department, allowed_batch, start_time, end_time, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		e.Title, e.DurationMinutes, e.Department, e.AllowedBatch, e.StartTime, e.EndTime, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt)
}

// Update overwrites an exam's editable fields.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET title = $1, duration_minutes = $2, allowed_batch = $3, start_time = $4, end_time = $5
		 WHERE id = $6`,
		e.Title, e.DurationMinutes, e.AllowedBatch, e.StartTime, e.EndTime, e.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes an exam; questions, attempts, answers and logs cascade.
func (r *ExamRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListQuestions returns the exam's questions including correct options.
func (r *ExamRepository) ListQuestions(ctx context.Context, examID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_text, option_a, option_b, option_c, option_d, correct_option
		 FROM questions WHERE exam_id = $1
		 ORDER BY id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionText,
			&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectOption); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CountQuestions returns the exam's total marks.
func (r *ExamRepository) CountQuestions(ctx context.Context, examID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE exam_id = $1`, examID).Scan(&n)
	return n, err
}

// AddQuestion inserts a question.
func (r *ExamRepository) AddQuestion(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, question_text, option_a, option_b, option_c, option_d, correct_option)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		q.ExamID, q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectOption,
	).Scan(&q.ID)
}
