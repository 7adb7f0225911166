package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/response"
	"github.com/stemsi/exam-proctor/internal/service"
)

// SweepHandler exposes the Absence Sweeper to cron.
type SweepHandler struct {
	sweeper *service.AbsenceSweeper
	log     zerolog.Logger
}

// NewSweepHandler creates a new SweepHandler.
func NewSweepHandler(sweeper *service.AbsenceSweeper, log zerolog.Logger) *SweepHandler {
	return &SweepHandler{
		sweeper: sweeper,
		log:     log.With().Str("component", "sweep_handler").Logger(),
	}
}

// MarkAbsent godoc
// POST /api/absent-sweep/
// Marks absent every eligible student who missed an expired exam.
func (h *SweepHandler) MarkAbsent(c *gin.Context) {
	res, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":       "Absent students marked",
		"marked_count":  res.MarkedCount,
		"exams_scanned": res.ExamsScanned,
	})
}
