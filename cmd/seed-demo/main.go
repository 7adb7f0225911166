package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/exam-proctor/internal/config"
	"github.com/stemsi/exam-proctor/internal/database"
	"github.com/stemsi/exam-proctor/internal/logger"
	"github.com/stemsi/exam-proctor/internal/model"
	"github.com/stemsi/exam-proctor/internal/repository"
	"github.com/stemsi/exam-proctor/internal/service"
)

var demoQuestions = []model.CreateQuestionRequest{
	{QuestionText: "Which data structure is LIFO?", OptionA: "Queue", OptionB: "Stack", OptionC: "Heap", OptionD: "Tree", CorrectOption: "B"},
	{QuestionText: "Average lookup in a hash table?", OptionA: "O(1)", OptionB: "O(log n)", OptionC: "O(n)", OptionD: "O(n log n)", CorrectOption: "A"},
	{QuestionText: "Which traversal visits the root first?", OptionA: "In-order", OptionB: "Post-order", OptionC: "Pre-order", OptionD: "Level-order", CorrectOption: "C"},
	{QuestionText: "Worst case of quicksort?", OptionA: "O(n)", OptionB: "O(n log n)", OptionC: "O(log n)", OptionD: "O(n^2)", CorrectOption: "D"},
	{QuestionText: "Which structure backs a priority queue?", OptionA: "Heap", OptionB: "Stack", OptionC: "Linked list", OptionD: "Trie", CorrectOption: "A"},
}

func main() {
	var (
		department string
		batch      string
		students   int
		duration   int
	)
	flag.StringVar(&department, "department", "CS", "Department of the seeded users and exam")
	flag.StringVar(&batch, "batch", "2025", "Batch of the seeded students")
	flag.IntVar(&students, "students", 20, "Number of students to create")
	flag.IntVar(&duration, "duration", 30, "Exam duration in minutes")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	profileRepo := repository.NewProfileRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	examService := service.NewExamService(profileRepo, examRepo, attemptRepo,
		service.NewExamCache(examRepo, nil, cfg.ExamCacheTTL, log), log)

	teacher := &model.StudentProfile{Username: "teacher." + department, Role: model.RoleTeacher, Department: department}
	if err := profileRepo.Create(ctx, teacher); err != nil {
		log.Fatal().Err(err).Msg("Failed to create teacher")
	}

	created := 0
	for i := 1; i <= students; i++ {
		p := &model.StudentProfile{
			Username:   fmt.Sprintf("student%02d.%s", i, department),
			Role:       model.RoleStudent,
			Department: department,
			Batch:      batch,
		}
		if err := profileRepo.Create(ctx, p); err != nil {
			log.Error().Err(err).Str("username", p.Username).Msg("Failed to create student")
			continue
		}
		created++
	}

	now := time.Now().UTC()
	exam, err := examService.CreateExam(ctx, &model.CreateExamRequest{
		UserID:       teacher.UserID,
		Title:        "Data Structures Quiz",
		Duration:     duration,
		AllowedBatch: batch,
		StartTime:    now.Add(-5 * time.Minute).Format(time.RFC3339),
		EndTime:      now.Add(2 * time.Hour).Format(time.RFC3339),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}

	for _, q := range demoQuestions {
		q.UserID = teacher.UserID
		if _, err := examService.AddQuestion(ctx, exam.ID, &q); err != nil {
			log.Fatal().Err(err).Msg("Failed to add question")
		}
	}

	log.Info().
		Int64("teacher_id", teacher.UserID).
		Int("students", created).
		Int64("exam_id", exam.ID).
		Int("questions", len(demoQuestions)).
		Msg("Demo data seeded")
}
