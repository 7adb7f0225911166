package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/config"
	"github.com/stemsi/exam-proctor/internal/model"
)

// ExamCache keeps each exam's student-facing question list and answer key in
// Redis. A nil client turns it into a pass-through to the catalog. Redis
// failures are logged and fall back to the catalog.
type ExamCache struct {
	exams ExamStore
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewExamCache creates a new ExamCache.
func NewExamCache(exams ExamStore, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *ExamCache {
	return &ExamCache{
		exams: exams,
		rdb:   rdb,
		ttl:   ttl,
		log:   log.With().Str("component", "exam_cache").Logger(),
	}
}

// StudentQuestions returns the question list without correct options.
func (c *ExamCache) StudentQuestions(ctx context.Context, examID int64) ([]model.QuestionForStudent, error) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID)).Bytes()
		switch {
		case err == nil:
			var questions []model.QuestionForStudent
			if jsonErr := json.Unmarshal(raw, &questions); jsonErr == nil {
				return questions, nil
			}
			c.log.Warn().Int64("exam_id", examID).Msg("Discarding malformed cached payload")
		case !errors.Is(err, redis.Nil):
			c.log.Warn().Err(err).Int64("exam_id", examID).Msg("Payload cache read failed")
		}
	}

	questions, _, err := c.Warm(ctx, examID)
	return questions, err
}

// AnswerKey returns the answer key used by the scoring path.
func (c *ExamCache) AnswerKey(ctx context.Context, examID int64) (AnswerKey, error) {
	if c.rdb != nil {
		key, ok, err := c.readAnswerKey(ctx, examID)
		if err != nil {
			c.log.Warn().Err(err).Int64("exam_id", examID).Msg("Answer key cache read failed")
		} else if ok {
			return key, nil
		}
	}

	_, key, err := c.Warm(ctx, examID)
	return key, err
}

// readAnswerKey uses the payload key as the warm marker, since an exam with
// no questions stores no hash at all.
func (c *ExamCache) readAnswerKey(ctx context.Context, examID int64) (AnswerKey, bool, error) {
	pipe := c.rdb.Pipeline()
	exists := pipe.Exists(ctx, config.CacheKey.ExamPayloadKey(examID))
	fields := pipe.HGetAll(ctx, config.CacheKey.ExamAnswerKey(examID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, false, err
	}
	if exists.Val() == 0 {
		return nil, false, nil
	}

	key := make(AnswerKey, len(fields.Val()))
	for qid, opt := range fields.Val() {
		id, err := strconv.ParseInt(qid, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse cached question id %q: %w", qid, err)
		}
		key[id] = model.Option(opt)
	}
	return key, true, nil
}

// Warm loads the exam's questions from the catalog and caches both views.
func (c *ExamCache) Warm(ctx context.Context, examID int64) ([]model.QuestionForStudent, AnswerKey, error) {
	questions, err := c.exams.ListQuestions(ctx, examID)
	if err != nil {
		return nil, nil, fmt.Errorf("list questions: %w", err)
	}

	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		studentQuestions[i] = questions[i].ForStudent()
	}
	key := NewAnswerKey(questions)

	if c.rdb == nil {
		return studentQuestions, key, nil
	}

	payloadJSON, err := json.Marshal(studentQuestions)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal payload: %w", err)
	}

	hash := make(map[string]interface{}, len(key))
	for qid, opt := range key {
		hash[strconv.FormatInt(qid, 10)] = string(opt)
	}

	keyKey := config.CacheKey.ExamAnswerKey(examID)
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, keyKey)
	if len(hash) > 0 {
		pipe.HSet(ctx, keyKey, hash)
		pipe.Expire(ctx, keyKey, c.ttl)
	}
	pipe.Set(ctx, config.CacheKey.ExamPayloadKey(examID), payloadJSON, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn().Err(err).Int64("exam_id", examID).Msg("Cache warm failed, serving from database")
		return studentQuestions, key, nil
	}

	c.log.Debug().
		Int64("exam_id", examID).
		Int("questions", len(questions)).
		Msg("Exam cache warmed")

	return studentQuestions, key, nil
}

// Invalidate drops both cached views after a catalog change.
func (c *ExamCache) Invalidate(ctx context.Context, examID int64) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx,
		config.CacheKey.ExamPayloadKey(examID),
		config.CacheKey.ExamAnswerKey(examID),
	).Err()
}
