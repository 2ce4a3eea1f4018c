package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/haitranq/prepline/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// fakeCollaborator is an in-memory Collaborator with the same contract as the
// database-backed one: at most one response row per (attempt, question),
// create fails on duplicates, complete fails once the attempt is terminal.
type fakeCollaborator struct {
	mu        sync.Mutex
	attempt   *model.StudentAttempt
	questions []model.Question
	responses map[uint]*model.StudentResponse
	creates   int
	updates   int
	completes int

	// writeErr, when set, fails every response write.
	writeErr error
	// gate, when set, blocks each response write until the channel is closed.
	gate chan struct{}
}

func newFakeCollaborator(attempt *model.StudentAttempt, questions []model.Question) *fakeCollaborator {
	return &fakeCollaborator{
		attempt:   attempt,
		questions: questions,
		responses: make(map[uint]*model.StudentResponse),
	}
}

func (f *fakeCollaborator) GetAttempt(_ context.Context, attemptID uint) (*model.StudentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempt == nil || f.attempt.ID != attemptID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.attempt
	return &copied, nil
}

func (f *fakeCollaborator) GetQuestions(_ context.Context, _ uint) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Question(nil), f.questions...), nil
}

func (f *fakeCollaborator) GetResponses(_ context.Context, attemptID uint) ([]model.StudentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.StudentResponse, 0, len(f.responses))
	for _, r := range f.responses {
		if r.AttemptID == attemptID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeCollaborator) CreateResponse(_ context.Context, attemptID, questionID uint, value datatypes.JSON) (*model.StudentResponse, error) {
	f.awaitGate()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	if _, exists := f.responses[questionID]; exists {
		return nil, fmt.Errorf("duplicate response for attempt %d question %d", attemptID, questionID)
	}
	r := &model.StudentResponse{
		ID:         uint(len(f.responses) + 1),
		AttemptID:  attemptID,
		QuestionID: questionID,
		Response:   value,
	}
	f.responses[questionID] = r
	copied := *r
	return &copied, nil
}

func (f *fakeCollaborator) UpdateResponse(_ context.Context, _, questionID uint, value datatypes.JSON) (*model.StudentResponse, error) {
	f.awaitGate()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	r, exists := f.responses[questionID]
	if !exists {
		return nil, gorm.ErrRecordNotFound
	}
	r.Response = value
	copied := *r
	return &copied, nil
}

func (f *fakeCollaborator) CompleteAttempt(_ context.Context, attemptID uint, totalScore, percentageScore int) (*model.StudentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes++
	if f.attempt == nil || f.attempt.ID != attemptID {
		return nil, gorm.ErrRecordNotFound
	}
	if f.attempt.Status != model.AttemptInProgress {
		return nil, ErrAttemptCompleted
	}
	now := time.Now().UTC()
	f.attempt.Status = model.AttemptCompleted
	f.attempt.CompletedAt = &now
	f.attempt.TotalScore = &totalScore
	f.attempt.PercentageScore = &percentageScore
	copied := *f.attempt
	return &copied, nil
}

func (f *fakeCollaborator) awaitGate() {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (f *fakeCollaborator) setWriteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *fakeCollaborator) counts() (creates, updates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.updates
}

func (f *fakeCollaborator) storedResponse(questionID uint) (model.StudentResponse, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.responses[questionID]
	if !ok {
		return model.StudentResponse{}, false
	}
	return *r, true
}

func jsonValue(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(raw)
}
