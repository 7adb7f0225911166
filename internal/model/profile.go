package model

// Role is the account role held by a user profile.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// StudentProfile is the directory view of a user consumed by the exam core.
// Teachers and admins share the shape; Batch is empty for them.
type StudentProfile struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
	Batch      string `json:"batch"`
}
