package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/haitranq/prepline/internal/dto"
	"github.com/haitranq/prepline/internal/model"
	"github.com/haitranq/prepline/internal/repository"
	"github.com/haitranq/prepline/internal/session"
	"github.com/haitranq/prepline/internal/store"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AttemptService manages the lifecycle of timed attempts: starting (or
// resuming) a session, recording answers, navigation, the countdown surface,
// and attempt history.
type AttemptService interface {
	Start(ctx context.Context, mockTestID, userID uint) (*dto.AttemptStateDTO, error)
	State(ctx context.Context, attemptID uint) (*dto.AttemptStateDTO, error)
	Clock(ctx context.Context, attemptID uint) (*dto.ClockDTO, error)
	RecordAnswer(ctx context.Context, attemptID uint, req dto.RecordAnswerDTO) (*dto.RecordAnswerResultDTO, error)
	Navigate(ctx context.Context, attemptID uint, index int) (*dto.AttemptStateDTO, error)
	Detail(attemptID uint) (*dto.AttemptDetailDTO, error)
	ListByTest(mockTestID uint, userID *uint) ([]dto.AttemptSummaryDTO, error)
	Detach(attemptID uint)
}

type attemptService struct {
	registry     *session.Registry
	collab       session.Collaborator
	anchors      store.AnchorStore
	submission   SubmissionService
	mockTestRepo repository.MockTestRepository
	attemptRepo  repository.AttemptRepository
	questionRepo repository.QuestionRepository
}

func NewAttemptService(
	registry *session.Registry,
	collab session.Collaborator,
	anchors store.AnchorStore,
	submission SubmissionService,
	mockTestRepo repository.MockTestRepository,
	attemptRepo repository.AttemptRepository,
	questionRepo repository.QuestionRepository,
) AttemptService {
	return &attemptService{
		registry:     registry,
		collab:       collab,
		anchors:      anchors,
		submission:   submission,
		mockTestRepo: mockTestRepo,
		attemptRepo:  attemptRepo,
		questionRepo: questionRepo,
	}
}

// engineFor returns the live engine for an attempt, rebuilding it from
// storage after a reload or restart. New engines get the auto-submit hook on
// clock expiry and a running tick loop.
func (s *attemptService) engineFor(ctx context.Context, attemptID uint) (*session.Engine, error) {
	return s.registry.GetOrCreate(attemptID, func() (*session.Engine, error) {
		engine, err := session.NewEngine(ctx, attemptID, s.collab, s.anchors,
			session.WithOnExpired(func() {
				if _, err := s.submission.Submit(context.Background(), attemptID); err != nil {
					log.Error().Err(err).Uint("attemptID", attemptID).Msg("Auto-submit on expiry failed; attempt remains retryable")
				}
			}),
		)
		if err != nil {
			return nil, err
		}
		if !engine.Completed() {
			engine.StartClock(session.DefaultTickInterval)
		}
		return engine, nil
	})
}

func (s *attemptService) Start(ctx context.Context, mockTestID, userID uint) (*dto.AttemptStateDTO, error) {
	test, err := s.mockTestRepo.FindByIDWithQuestions(mockTestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &session.NotFoundError{Resource: "mock test", ID: mockTestID}
		}
		return nil, session.Transient("load mock test", err)
	}
	if !test.IsActive {
		return nil, &session.ValidationError{Field: "mock_test", Reason: "test is not active"}
	}
	if len(test.Questions) == 0 {
		return nil, &session.ValidationError{Field: "mock_test", Reason: "test has no questions"}
	}

	// An unfinished run resumes instead of spawning a second attempt; the
	// countdown picks up from the durable anchor, not from zero. Only a
	// definitive "no row" miss may fall through to creating a fresh attempt.
	existing, err := s.attemptRepo.FindInProgressByUserAndTest(userID, mockTestID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.Transient("find in-progress attempt", err)
	}
	if err == nil {
		engine, err := s.engineFor(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		log.Info().Uint("attemptID", existing.ID).Uint("userID", userID).Msg("Start: resuming in-progress attempt")
		return s.stateDTO(ctx, engine, true), nil
	}

	attempt := &model.StudentAttempt{
		UserID:       userID,
		MockTestID:   mockTestID,
		SessionToken: uuid.NewString(),
		StartedAt:    nowFunc().UTC(),
		Status:       model.AttemptInProgress,
	}
	if err := s.attemptRepo.Create(attempt); err != nil {
		return nil, session.Transient("create attempt", err)
	}

	engine, err := s.engineFor(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	engine.Clock().Initialize(ctx)

	log.Info().Uint("attemptID", attempt.ID).Uint("mockTestID", mockTestID).Uint("userID", userID).Int("durationMinutes", test.DurationMinutes).Msg("Start: attempt created")
	return s.stateDTO(ctx, engine, false), nil
}

func (s *attemptService) State(ctx context.Context, attemptID uint) (*dto.AttemptStateDTO, error) {
	engine, err := s.engineFor(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return s.stateDTO(ctx, engine, false), nil
}

func (s *attemptService) Clock(ctx context.Context, attemptID uint) (*dto.ClockDTO, error) {
	engine, err := s.engineFor(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	remaining := engine.RemainingSeconds(ctx)
	return &dto.ClockDTO{
		AttemptID:        attemptID,
		RemainingSeconds: remaining,
		Expired:          engine.Clock().HasExpired(),
	}, nil
}

func (s *attemptService) RecordAnswer(ctx context.Context, attemptID uint, req dto.RecordAnswerDTO) (*dto.RecordAnswerResultDTO, error) {
	engine, err := s.engineFor(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if err := engine.Record(req.QuestionID, datatypes.JSON(req.Response)); err != nil {
		return nil, err
	}
	return &dto.RecordAnswerResultDTO{
		QuestionID:          req.QuestionID,
		Accepted:            true,
		AnsweredQuestionIDs: engine.AnsweredQuestionIDs(),
	}, nil
}

func (s *attemptService) Navigate(ctx context.Context, attemptID uint, index int) (*dto.AttemptStateDTO, error) {
	engine, err := s.engineFor(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if err := engine.Navigate(index); err != nil {
		return nil, err
	}
	return s.stateDTO(ctx, engine, false), nil
}

func (s *attemptService) Detail(attemptID uint) (*dto.AttemptDetailDTO, error) {
	return loadAttemptDetail(s.attemptRepo, s.questionRepo, attemptID)
}

func (s *attemptService) ListByTest(mockTestID uint, userID *uint) ([]dto.AttemptSummaryDTO, error) {
	attempts, err := s.attemptRepo.FindAllByTestAndUser(mockTestID, userID)
	if err != nil {
		return nil, session.Transient("list attempts", err)
	}
	summaries := make([]dto.AttemptSummaryDTO, 0, len(attempts))
	for i := range attempts {
		var summary dto.AttemptSummaryDTO
		if err := copier.Copy(&summary, &attempts[i]); err != nil {
			return nil, fmt.Errorf("error preparing attempt summary: %w", err)
		}
		summary.Status = string(attempts[i].Status)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Detach drops the live engine when the student leaves the exam view. The
// tick loop stops; in-flight answer writes keep running until they settle.
func (s *attemptService) Detach(attemptID uint) {
	s.registry.Remove(attemptID)
}

func (s *attemptService) stateDTO(ctx context.Context, engine *session.Engine, resumed bool) *dto.AttemptStateDTO {
	attempt := engine.Attempt()
	status := attempt.Status
	if engine.Completed() {
		status = model.AttemptCompleted
	}
	return &dto.AttemptStateDTO{
		AttemptID:            attempt.ID,
		MockTestID:           attempt.MockTestID,
		Status:               string(status),
		StartedAt:            attempt.StartedAt,
		RemainingSeconds:     engine.RemainingSeconds(ctx),
		CurrentQuestionIndex: engine.CurrentQuestionIndex(),
		AnsweredQuestionIDs:  engine.AnsweredQuestionIDs(),
		QuestionCount:        engine.Navigator().Len(),
		Resumed:              resumed,
	}
}
