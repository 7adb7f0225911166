package model

// Option is one of the four answer letters.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// Valid reports whether o is one of A, B, C, D.
func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Question represents a single multiple-choice question.
type Question struct {
	ID            int64  `json:"id"`
	ExamID        int64  `json:"exam"`
	QuestionText  string `json:"question_text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption Option `json:"correct_option"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID           int64  `json:"id"`
	ExamID       int64  `json:"exam"`
	QuestionText string `json:"question_text"`
	OptionA      string `json:"option_a"`
	OptionB      string `json:"option_b"`
	OptionC      string `json:"option_c"`
	OptionD      string `json:"option_d"`
}

// ForStudent strips the answer key.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:           q.ID,
		ExamID:       q.ExamID,
		QuestionText: q.QuestionText,
		OptionA:      q.OptionA,
		OptionB:      q.OptionB,
		OptionC:      q.OptionC,
		OptionD:      q.OptionD,
	}
}

// CreateQuestionRequest is the payload for adding a question to an exam.
type CreateQuestionRequest struct {
	UserID        int64  `json:"user_id" binding:"required,min=1"`
	QuestionText  string `json:"question_text" binding:"required,min=1,max=2000"`
	OptionA       string `json:"option_a" binding:"required,max=200"`
	OptionB       string `json:"option_b" binding:"required,max=200"`
	OptionC       string `json:"option_c" binding:"required,max=200"`
	OptionD       string `json:"option_d" binding:"required,max=200"`
	CorrectOption string `json:"correct_option" binding:"required,oneof=A B C D"`
}
