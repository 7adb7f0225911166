package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stemsi/exam-proctor/internal/config"
	"github.com/stemsi/exam-proctor/internal/handler"
	"github.com/stemsi/exam-proctor/internal/middleware"
	"github.com/stemsi/exam-proctor/internal/observability"
	"github.com/stemsi/exam-proctor/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam        *handler.ExamHandler
	Proctoring  *handler.ProctoringHandler
	Sweep       *handler.SweepHandler
	TeacherExam *handler.TeacherExamHandler
	ProctorWS   *handler.ProctorWSHandler
	System      *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// limiter may be nil to disable rate limiting of the authoring and sweep routes.
func SetupRouter(handlers *Handlers, cfg *config.Config, limiter *middleware.RateLimiter) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	observability.RegisterMetrics()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", handlers.System.Health)

	throttle := func(c *gin.Context) { c.Next() }
	if limiter != nil {
		throttle = limiter.Middleware()
	}

	api := router.Group("/api")
	api.Use(middleware.NoStore(), middleware.Brotli())

	// ─── 1. Student exam flow ──────────────────────────────────────────
	exams := api.Group("/exams")
	{
		exams.GET("/", handlers.Exam.ListExams)
		exams.GET("/:exam_id/questions/", handlers.Exam.GetQuestions)
		exams.POST("/:exam_id/start/", handlers.Exam.StartExam)
		exams.POST("/:exam_id/submit/", handlers.Exam.SubmitExam)
		exams.GET("/:exam_id/result/", handlers.Exam.GetResult)
	}

	// ─── 2. Proctoring ─────────────────────────────────────────────────
	proctoring := api.Group("/proctoring")
	{
		proctoring.POST("/log/", handlers.Proctoring.LogEvent)
		proctoring.GET("/violations/", handlers.Proctoring.GetViolations)
	}

	// ─── 3. Internal (cron) ────────────────────────────────────────────
	api.POST("/absent-sweep/",
		throttle,
		middleware.RequireInternalToken(cfg.InternalTokenSecret, middleware.SubjectAbsentSweep),
		handlers.Sweep.MarkAbsent,
	)

	// ─── 4. Teacher authoring ──────────────────────────────────────────
	teacher := api.Group("/teacher/exams")
	teacher.Use(throttle)
	{
		teacher.GET("/", handlers.TeacherExam.ListExams)
		teacher.POST("/", handlers.TeacherExam.CreateExam)
		teacher.PUT("/:exam_id/", handlers.TeacherExam.UpdateExam)
		teacher.DELETE("/:exam_id/", handlers.TeacherExam.DeleteExam)
		teacher.POST("/:exam_id/questions/", handlers.TeacherExam.AddQuestion)
	}

	// ─── 5. WebSocket ──────────────────────────────────────────────────
	router.GET("/ws/proctoring/:exam_id/", handlers.ProctorWS.Stream)

	return router
}
