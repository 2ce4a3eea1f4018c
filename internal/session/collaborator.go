package session

import (
	"context"

	"github.com/haitranq/prepline/internal/model"
	"gorm.io/datatypes"
)

// Collaborator is the minimal persistence contract the session engine needs.
// The engine never talks to storage directly; tests substitute a fake.
type Collaborator interface {
	GetAttempt(ctx context.Context, attemptID uint) (*model.StudentAttempt, error)
	GetQuestions(ctx context.Context, mockTestID uint) ([]model.Question, error)
	GetResponses(ctx context.Context, attemptID uint) ([]model.StudentResponse, error)
	CreateResponse(ctx context.Context, attemptID, questionID uint, value datatypes.JSON) (*model.StudentResponse, error)
	UpdateResponse(ctx context.Context, attemptID, questionID uint, value datatypes.JSON) (*model.StudentResponse, error)
	CompleteAttempt(ctx context.Context, attemptID uint, totalScore, percentageScore int) (*model.StudentAttempt, error)
}
