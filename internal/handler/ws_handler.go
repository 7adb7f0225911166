package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-proctor/internal/response"
	"github.com/stemsi/exam-proctor/internal/service"
	ws "github.com/stemsi/exam-proctor/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ProctorWSHandler streams proctoring events from the exam client over a
// WebSocket, for clients that keep one connection open for the attempt.
type ProctorWSHandler struct {
	violationService *service.ViolationService
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewProctorWSHandler creates a new ProctorWSHandler.
func NewProctorWSHandler(violationService *service.ViolationService, log zerolog.Logger, allowedOrigins []string) *ProctorWSHandler {
	return &ProctorWSHandler{
		violationService: violationService,
		log:              log.With().Str("component", "proctor_ws_handler").Logger(),
		upgrader:         buildUpgrader(allowedOrigins),
	}
}

// Stream godoc
// WS /ws/proctoring/:exam_id/?user_id=
// Accepts violation and ping frames until the attempt is submitted.
func (h *ProctorWSHandler) Stream(c *gin.Context) {
	examID, ok := parseID(c, "exam_id")
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID < 1 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"user_id": "user_id is a required field"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(ws.MaxMessageSize)

	wsLog := h.log.With().Int64("user_id", userID).Int64("exam_id", examID).Logger()
	wsLog.Info().Msg("Proctoring stream connected")

	ctx := c.Request.Context()
	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})

		case ws.ActionViolation:
			event := strings.TrimSpace(msg.Event)
			if event == "" || len(event) > 100 {
				_ = ws.WriteError(conn, "event is required and at most 100 characters")
				continue
			}

			res, err := h.violationService.Record(ctx, userID, examID, event)
			if err != nil {
				if errors.Is(err, service.ErrAttemptNotFound) {
					_ = ws.WriteError(conn, "exam attempt not found")
					ws.CloseNormal(conn, "no attempt")
					return
				}
				wsLog.Error().Err(err).Msg("Recording violation failed")
				_ = ws.WriteError(conn, "violation could not be recorded")
				continue
			}

			out := ws.ViolationResponse{
				Event:         ws.EventViolation,
				Message:       res.Message,
				Violations:    res.Violations,
				Remaining:     res.Remaining,
				AutoSubmitted: res.AutoSubmitted,
			}
			if res.AutoSubmitted || res.AlreadySubmitted {
				out.Event = ws.EventAutoSubmitted
			}
			_ = ws.WriteTyped(conn, out)

			if out.Event == ws.EventAutoSubmitted {
				ws.CloseNormal(conn, "attempt submitted")
				return
			}

		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			_ = ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}
