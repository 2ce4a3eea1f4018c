package model

import (
	"time"

	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

type StudentAttempt struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	UserID          uint           `json:"user_id" gorm:"not null;index"`
	MockTestID      uint           `json:"mock_test_id" gorm:"not null;index"`
	MockTest        MockTest       `json:"mock_test,omitempty" gorm:"foreignKey:MockTestID"`
	SessionToken    string         `json:"session_token" gorm:"size:64"`
	StartedAt       time.Time      `json:"started_at" gorm:"not null"` // set once at creation, never updated
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Status          AttemptStatus  `json:"status" gorm:"default:'in_progress';index"`
	TotalScore      *int           `json:"total_score,omitempty"`
	PercentageScore *int           `json:"percentage_score,omitempty"`
	Responses       []StudentResponse `json:"responses,omitempty" gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
