package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionViolation Action = "violation"
	ActionPing      Action = "ping"
)

// RequestEnvelope is a client frame. Event is set for violation frames.
type RequestEnvelope struct {
	Action Action `json:"action"`
	Event  string `json:"event,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventViolation     Event = "violation"
	EventAutoSubmitted Event = "auto_submitted"
	EventError         Event = "error"
	EventPong          Event = "pong"
)

// ViolationResponse mirrors the HTTP proctoring log result.
type ViolationResponse struct {
	Event         Event  `json:"event"`
	Message       string `json:"message"`
	Violations    int    `json:"violations"`
	Remaining     int    `json:"remaining"`
	AutoSubmitted bool   `json:"auto_submitted"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
