package model

import (
	"time"

	"gorm.io/gorm"
)

type MockTest struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	Title           string         `json:"title" gorm:"not null;uniqueIndex"`
	Category        string         `json:"category" gorm:"not null;index"` // "ielts", "pte", "general"
	DurationMinutes int            `json:"duration_minutes" gorm:"not null"`
	TotalMarks      int            `json:"total_marks" gorm:"not null"`
	ScheduledDate   *time.Time     `json:"scheduled_date,omitempty"`
	IsActive        bool           `json:"is_active" gorm:"default:true;index"`
	Questions       []Question     `json:"questions,omitempty" gorm:"foreignKey:MockTestID"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
