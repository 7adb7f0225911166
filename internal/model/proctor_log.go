package model

import "time"

// Known proctoring event types reported by the browser client. Other event
// strings are accepted and stored verbatim.
const (
	EventTabSwitch          = "tab_switch"
	EventWindowBlur         = "window_blur"
	EventWebcamDenied       = "webcam_denied"
	EventWebcamDisconnected = "webcam_disconnected"
	EventMultipleFaces      = "multiple_faces"
	EventNoFace             = "no_face"
	EventSuspiciousMovement = "suspicious_movement"
)

var eventDescriptions = map[string]string{
	EventTabSwitch:          "Student switched browser tab",
	EventWindowBlur:         "Student clicked outside browser window",
	EventWebcamDenied:       "Student denied webcam access",
	EventWebcamDisconnected: "Webcam disconnected during exam",
	EventMultipleFaces:      "Multiple faces detected in webcam",
	EventNoFace:             "No face detected in webcam",
	EventSuspiciousMovement: "Suspicious movement detected",
}

// DescribeEvent returns a readable description, or the raw event when unknown.
func DescribeEvent(event string) string {
	if d, ok := eventDescriptions[event]; ok {
		return d
	}
	return event
}

// IsKnownEvent reports whether event is one of the client's built-in types.
func IsKnownEvent(event string) bool {
	_, ok := eventDescriptions[event]
	return ok
}

// ProctorLog is an append-only audit record of a proctoring event.
type ProctorLog struct {
	StudentID int64     `json:"student_id"`
	ExamID    int64     `json:"exam_id"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// ProctorLogRequest is the payload for logging a proctoring event.
type ProctorLogRequest struct {
	UserID int64  `json:"user_id" binding:"required,min=1"`
	ExamID int64  `json:"exam_id" binding:"required,min=1"`
	Event  string `json:"event" binding:"required,min=1,max=100"`
}

// ViolationsQuery carries the query parameters of the violations read.
type ViolationsQuery struct {
	UserID int64 `form:"user_id" binding:"required,min=1"`
	ExamID int64 `form:"exam_id" binding:"required,min=1"`
}
