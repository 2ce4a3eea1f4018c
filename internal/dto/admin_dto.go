package dto

import "time"

// OptionCreateDTO is one multiple_choice option inside a question payload.
type OptionCreateDTO struct {
	ID        string `json:"id" binding:"required"`
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionCreateDTO is used within MockTestCreateDTO for admin test creation.
type QuestionCreateDTO struct {
	QuestionType     string            `json:"question_type" binding:"required,oneof=multiple_choice fill_blank short_answer essay speaking"`
	QuestionText     string            `json:"question_text" binding:"required"`
	Options          []OptionCreateDTO `json:"options,omitempty" binding:"omitempty,dive"`
	CorrectAnswers   []string          `json:"correct_answers,omitempty"`
	Marks            int               `json:"marks" binding:"required,gt=0"`
	OrderInTest      int               `json:"order_in_test" binding:"required,min=1"`
	TimeLimitSeconds *int              `json:"time_limit_seconds,omitempty"`
}

// MockTestCreateDTO is for admin to create a new mock test with all its questions.
type MockTestCreateDTO struct {
	Title           string              `json:"title" binding:"required"`
	Category        string              `json:"category" binding:"required"`
	DurationMinutes int                 `json:"duration_minutes" binding:"required,gt=0"`
	ScheduledDate   *time.Time          `json:"scheduled_date,omitempty"`
	Questions       []QuestionCreateDTO `json:"questions" binding:"required,min=1,dive"`
}
