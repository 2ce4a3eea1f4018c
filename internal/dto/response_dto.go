package dto

import (
	"encoding/json"
	"time"
)

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// OptionViewDTO is a multiple_choice option as shown to the student taking
// the test. The correctness flag is deliberately absent.
type OptionViewDTO struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionViewDTO is a question as shown inside an active attempt.
type QuestionViewDTO struct {
	ID               uint            `json:"id"`
	MockTestID       uint            `json:"mock_test_id"`
	QuestionType     string          `json:"question_type"`
	QuestionText     string          `json:"question_text"`
	Options          []OptionViewDTO `json:"options,omitempty"`
	Marks            int             `json:"marks"`
	OrderInTest      int             `json:"order_in_test"`
	TimeLimitSeconds *int            `json:"time_limit_seconds,omitempty"`
}

// MockTestSummaryDTO lists tests available to students.
type MockTestSummaryDTO struct {
	ID              uint       `json:"id"`
	Title           string     `json:"title"`
	Category        string     `json:"category"`
	DurationMinutes int        `json:"duration_minutes"`
	TotalMarks      int        `json:"total_marks"`
	ScheduledDate   *time.Time `json:"scheduled_date,omitempty"`
	QuestionCount   int        `json:"question_count"`
	CreatedAt       time.Time  `json:"created_at"`
}

// MockTestDetailDTO is the full test a student opens before starting.
type MockTestDetailDTO struct {
	ID              uint              `json:"id"`
	Title           string            `json:"title"`
	Category        string            `json:"category"`
	DurationMinutes int               `json:"duration_minutes"`
	TotalMarks      int               `json:"total_marks"`
	ScheduledDate   *time.Time        `json:"scheduled_date,omitempty"`
	Questions       []QuestionViewDTO `json:"questions,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// AttemptStateDTO is the live session surface: everything the exam view needs
// to render and to survive a reload.
type AttemptStateDTO struct {
	AttemptID            uint      `json:"attempt_id"`
	MockTestID           uint      `json:"mock_test_id"`
	Status               string    `json:"status"`
	StartedAt            time.Time `json:"started_at"`
	RemainingSeconds     int       `json:"remaining_seconds"`
	CurrentQuestionIndex int       `json:"current_question_index"`
	AnsweredQuestionIDs  []uint    `json:"answered_question_ids"`
	QuestionCount        int       `json:"question_count"`
	Resumed              bool      `json:"resumed,omitempty"`
}

// ClockDTO reports the anchor-derived countdown.
type ClockDTO struct {
	AttemptID        uint `json:"attempt_id"`
	RemainingSeconds int  `json:"remaining_seconds"`
	Expired          bool `json:"expired"`
}

// RecordAnswerResultDTO acknowledges an optimistic answer write.
type RecordAnswerResultDTO struct {
	QuestionID          uint   `json:"question_id"`
	Accepted            bool   `json:"accepted"`
	AnsweredQuestionIDs []uint `json:"answered_question_ids"`
}

// ResponseViewDTO is one graded (or pending) answer within an attempt detail.
type ResponseViewDTO struct {
	QuestionID   uint            `json:"question_id"`
	QuestionType string          `json:"question_type"`
	OrderInTest  int             `json:"order_in_test"`
	Response     json.RawMessage `json:"response,omitempty"`
	Marks        int             `json:"marks"`
	Correct      *bool           `json:"correct,omitempty"` // nil while grading is pending
	Pending      bool            `json:"pending"`
	Score        *int            `json:"score,omitempty"`
	Feedback     *string         `json:"feedback,omitempty"`
	GradedAt     *time.Time      `json:"graded_at,omitempty"`
	GradedBy     *string         `json:"graded_by,omitempty"`
}

// AttemptDetailDTO is the full record of one attempt, including the
// recomputable score breakdown.
type AttemptDetailDTO struct {
	ID                 uint              `json:"id"`
	MockTestID         uint              `json:"mock_test_id"`
	MockTestTitle      string            `json:"mock_test_title,omitempty"`
	UserID             uint              `json:"user_id"`
	Status             string            `json:"status"`
	StartedAt          time.Time         `json:"started_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	TotalScore         *int              `json:"total_score,omitempty"`
	PercentageScore    *int              `json:"percentage_score,omitempty"`
	TotalPossibleScore int               `json:"total_possible_score"`
	PendingQuestionIDs []uint            `json:"pending_question_ids,omitempty"`
	Responses          []ResponseViewDTO `json:"responses,omitempty"`
}

// AttemptSummaryDTO lists a user's attempts for a test.
type AttemptSummaryDTO struct {
	ID              uint       `json:"id"`
	MockTestID      uint       `json:"mock_test_id"`
	UserID          uint       `json:"user_id"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	TotalScore      *int       `json:"total_score,omitempty"`
	PercentageScore *int       `json:"percentage_score,omitempty"`
}
