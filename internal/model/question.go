package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeFillBlank      QuestionType = "fill_blank"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypeEssay          QuestionType = "essay"
	QuestionTypeSpeaking       QuestionType = "speaking"
)

// AutoGradable reports whether answers of this type are scored at submission
// time. Essay and speaking answers wait for a human or AI review pass.
func (t QuestionType) AutoGradable() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeFillBlank, QuestionTypeShortAnswer:
		return true
	default:
		return false
	}
}

// QuestionOption is one choice of a multiple_choice question. Options are
// stored serialized in a JSON column and decoded on demand.
type QuestionOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type Question struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	MockTestID       uint           `json:"mock_test_id" gorm:"not null;index"`
	QuestionType     QuestionType   `json:"question_type" gorm:"not null"`
	QuestionText     string         `json:"question_text" gorm:"type:text;not null"`
	Options          datatypes.JSON `json:"options,omitempty"`        // multiple_choice only
	CorrectAnswer    datatypes.JSON `json:"correct_answer,omitempty"` // fill_blank/short_answer: string or []string
	Marks            int            `json:"marks" gorm:"not null"`
	OrderInTest      int            `json:"order_in_test" gorm:"not null"`
	TimeLimitSeconds *int           `json:"time_limit_seconds,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// DecodeOptions deserializes the Options column.
func (q *Question) DecodeOptions() ([]QuestionOption, error) {
	if len(q.Options) == 0 {
		return nil, nil
	}
	var opts []QuestionOption
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil, fmt.Errorf("question %d has malformed options: %w", q.ID, err)
	}
	return opts, nil
}

// AcceptedAnswers deserializes CorrectAnswer, which holds either a single
// string or a list of acceptable strings.
func (q *Question) AcceptedAnswers() ([]string, error) {
	if len(q.CorrectAnswer) == 0 {
		return nil, nil
	}
	var single string
	if err := json.Unmarshal(q.CorrectAnswer, &single); err == nil {
		return []string{single}, nil
	}
	var many []string
	if err := json.Unmarshal(q.CorrectAnswer, &many); err != nil {
		return nil, fmt.Errorf("question %d has malformed correct_answer: %w", q.ID, err)
	}
	return many, nil
}
