package service

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/haitranq/prepline/internal/dto"
	"github.com/haitranq/prepline/internal/model"
	"github.com/haitranq/prepline/internal/repository"
	"github.com/haitranq/prepline/internal/scoring"
	"github.com/haitranq/prepline/internal/session"
	"gorm.io/gorm"
)

// nowFunc is the wall clock used when stamping completion and grading times.
// Tests substitute it.
var nowFunc = time.Now

// loadAttemptDetail reloads an attempt with its test and responses and
// assembles the detail view.
func loadAttemptDetail(attemptRepo repository.AttemptRepository, questionRepo repository.QuestionRepository, attemptID uint) (*dto.AttemptDetailDTO, error) {
	attempt, err := attemptRepo.FindByIDWithDetails(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &session.NotFoundError{Resource: "attempt", ID: attemptID}
		}
		return nil, session.Transient("load attempt detail", err)
	}
	questions, err := questionRepo.FindByMockTestID(attempt.MockTestID)
	if err != nil {
		return nil, session.Transient("load questions", err)
	}
	return buildAttemptDetail(attempt, questions), nil
}

// buildAttemptDetail assembles the full attempt view, recomputing the score
// breakdown from questions and responses so correctness and pending flags are
// always consistent with what the scoring engine would report.
func buildAttemptDetail(attempt *model.StudentAttempt, questions []model.Question) *dto.AttemptDetailDTO {
	result := scoring.Score(questions, attempt.Responses)

	questionByID := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		questionByID[questions[i].ID] = &questions[i]
	}
	responseByQuestion := make(map[uint]*model.StudentResponse, len(attempt.Responses))
	for i := range attempt.Responses {
		responseByQuestion[attempt.Responses[i].QuestionID] = &attempt.Responses[i]
	}

	detail := &dto.AttemptDetailDTO{
		ID:                 attempt.ID,
		MockTestID:         attempt.MockTestID,
		MockTestTitle:      attempt.MockTest.Title,
		UserID:             attempt.UserID,
		Status:             string(attempt.Status),
		StartedAt:          attempt.StartedAt,
		CompletedAt:        attempt.CompletedAt,
		TotalScore:         attempt.TotalScore,
		PercentageScore:    attempt.PercentageScore,
		TotalPossibleScore: result.TotalPossibleScore,
		PendingQuestionIDs: result.PendingQuestionIDs,
	}

	for _, qr := range result.PerQuestion {
		q := questionByID[qr.QuestionID]
		if q == nil {
			continue
		}
		view := dto.ResponseViewDTO{
			QuestionID:   qr.QuestionID,
			QuestionType: string(q.QuestionType),
			OrderInTest:  q.OrderInTest,
			Marks:        q.Marks,
			Pending:      qr.Pending && qr.Answered,
		}
		if resp := responseByQuestion[qr.QuestionID]; resp != nil {
			view.Response = json.RawMessage(resp.Response)
			view.Score = resp.Score
			view.Feedback = resp.Feedback
			view.GradedAt = resp.GradedAt
			view.GradedBy = resp.GradedBy
		}
		if qr.Answered && q.QuestionType.AutoGradable() {
			correct := qr.Correct
			view.Correct = &correct
			score := qr.Awarded
			view.Score = &score
		}
		detail.Responses = append(detail.Responses, view)
	}

	sort.Slice(detail.Responses, func(i, j int) bool {
		return detail.Responses[i].OrderInTest < detail.Responses[j].OrderInTest
	})
	return detail
}
