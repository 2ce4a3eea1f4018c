package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/haitranq/prepline/internal/model"
	"github.com/haitranq/prepline/internal/repository"
	"github.com/haitranq/prepline/internal/session"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// collaborator implements session.Collaborator over the gorm repositories.
// It is the only bridge between the in-memory session engine and durable
// attempt/response records.
type collaborator struct {
	attemptRepo  repository.AttemptRepository
	questionRepo repository.QuestionRepository
	responseRepo repository.ResponseRepository
}

func NewCollaborator(
	attemptRepo repository.AttemptRepository,
	questionRepo repository.QuestionRepository,
	responseRepo repository.ResponseRepository,
) session.Collaborator {
	return &collaborator{
		attemptRepo:  attemptRepo,
		questionRepo: questionRepo,
		responseRepo: responseRepo,
	}
}

func (c *collaborator) GetAttempt(_ context.Context, attemptID uint) (*model.StudentAttempt, error) {
	attempt, err := c.attemptRepo.FindByIDWithTest(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &session.NotFoundError{Resource: "attempt", ID: attemptID}
		}
		return nil, session.Transient("get attempt", err)
	}
	return attempt, nil
}

func (c *collaborator) GetQuestions(_ context.Context, mockTestID uint) ([]model.Question, error) {
	questions, err := c.questionRepo.FindByMockTestID(mockTestID)
	if err != nil {
		return nil, session.Transient("get questions", err)
	}
	return questions, nil
}

func (c *collaborator) GetResponses(_ context.Context, attemptID uint) ([]model.StudentResponse, error) {
	responses, err := c.responseRepo.FindByAttemptID(attemptID)
	if err != nil {
		return nil, session.Transient("get responses", err)
	}
	return responses, nil
}

func (c *collaborator) CreateResponse(_ context.Context, attemptID, questionID uint, value datatypes.JSON) (*model.StudentResponse, error) {
	response := &model.StudentResponse{
		AttemptID:  attemptID,
		QuestionID: questionID,
		Response:   value,
	}
	if err := c.responseRepo.Create(response); err != nil {
		return nil, session.Transient("create response", err)
	}
	return response, nil
}

func (c *collaborator) UpdateResponse(_ context.Context, attemptID, questionID uint, value datatypes.JSON) (*model.StudentResponse, error) {
	response, err := c.responseRepo.UpdateValue(attemptID, questionID, value)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no response to update for attempt %d question %d: %w", attemptID, questionID, err)
		}
		return nil, session.Transient("update response", err)
	}
	return response, nil
}

// CompleteAttempt persists the final record in one guarded update. The stored
// totals are the coordinator's own computation; nothing re-derives them from
// canonical question data here. If another submission already won the
// transition, session.ErrAttemptCompleted comes back and the caller absorbs
// it.
func (c *collaborator) CompleteAttempt(ctx context.Context, attemptID uint, totalScore, percentageScore int) (*model.StudentAttempt, error) {
	now := nowFunc()
	won, err := c.attemptRepo.Complete(attemptID, totalScore, percentageScore, now)
	if err != nil {
		return nil, session.Transient("complete attempt", err)
	}
	if !won {
		return nil, session.ErrAttemptCompleted
	}
	return c.GetAttempt(ctx, attemptID)
}
