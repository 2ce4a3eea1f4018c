package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StudentResponse is one student's answer to one question within one attempt.
// The (attempt_id, question_id) pair is unique: answers are created lazily on
// first record and updated thereafter, never duplicated.
type StudentResponse struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	AttemptID  uint           `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	QuestionID uint           `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	Question   Question       `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	Response   datatypes.JSON `json:"response" gorm:"not null"` // string, []string or object, per question type
	Score      *int           `json:"score,omitempty"`
	Feedback   *string        `json:"feedback,omitempty" gorm:"type:text"`
	GradedAt   *time.Time     `json:"graded_at,omitempty"`
	GradedBy   *string        `json:"graded_by,omitempty" gorm:"size:255"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
