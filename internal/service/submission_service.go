package service

import (
	"context"
	"errors"
	"time"

	"github.com/haitranq/prepline/internal/dto"
	"github.com/haitranq/prepline/internal/model"
	"github.com/haitranq/prepline/internal/repository"
	"github.com/haitranq/prepline/internal/scoring"
	"github.com/haitranq/prepline/internal/session"
	"github.com/haitranq/prepline/internal/store"
	"github.com/rs/zerolog/log"
)

// flushTimeout bounds how long a submission waits for outstanding answer
// writes before giving up and leaving the attempt retryable.
const flushTimeout = 30 * time.Second

// SubmissionService drives the one-time in_progress -> completed transition.
// An explicit submit click and the clock's expiry event both land here; the
// attempt status is the idempotency key, so exactly one call completes the
// attempt and every other call is a quiet no-op.
type SubmissionService interface {
	Submit(ctx context.Context, attemptID uint) (*dto.AttemptDetailDTO, error)
}

type submissionService struct {
	registry     *session.Registry
	collab       session.Collaborator
	anchors      store.AnchorStore
	attemptRepo  repository.AttemptRepository
	questionRepo repository.QuestionRepository
}

func NewSubmissionService(
	registry *session.Registry,
	collab session.Collaborator,
	anchors store.AnchorStore,
	attemptRepo repository.AttemptRepository,
	questionRepo repository.QuestionRepository,
) SubmissionService {
	return &submissionService{
		registry:     registry,
		collab:       collab,
		anchors:      anchors,
		attemptRepo:  attemptRepo,
		questionRepo: questionRepo,
	}
}

func (s *submissionService) Submit(ctx context.Context, attemptID uint) (*dto.AttemptDetailDTO, error) {
	engine, err := s.registry.GetOrCreate(attemptID, func() (*session.Engine, error) {
		return session.NewEngine(ctx, attemptID, s.collab, s.anchors)
	})
	if err != nil {
		return nil, err
	}

	if err := engine.BeginSubmit(); err != nil {
		// Duplicate submit: already completed, or the other of the
		// click/expiry pair got here first. Absorbed, not an error.
		log.Info().Err(err).Uint("attemptID", attemptID).Msg("Submit: duplicate submission absorbed")
		return loadAttemptDetail(s.attemptRepo, s.questionRepo, attemptID)
	}

	success := false
	defer func() { engine.EndSubmit(success) }()

	// Scoring must causally follow every answer write issued before the
	// student hit submit.
	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := engine.Answers().Flush(flushCtx); err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Submit: timed out waiting for outstanding answer writes")
		return nil, session.Transient("flush answers", err)
	}

	responses, err := s.scoringResponses(ctx, attemptID, engine)
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Submit: failed to load recorded grades")
		return nil, err
	}
	result := scoring.Score(engine.Navigator().Questions(), responses)

	if _, err := s.collab.CompleteAttempt(ctx, attemptID, result.TotalScore, result.PercentageScore); err != nil {
		if errors.Is(err, session.ErrAttemptCompleted) {
			// Lost a cross-process race; the winner already persisted.
			log.Info().Uint("attemptID", attemptID).Msg("Submit: attempt completed by a concurrent submission")
			s.registry.Remove(attemptID)
			success = true
			return loadAttemptDetail(s.attemptRepo, s.questionRepo, attemptID)
		}
		// Attempt stays in_progress; if time already ran out the expiry
		// condition still holds, so a retry path remains reachable.
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Submit: failed to persist completed attempt")
		return nil, err
	}

	if err := engine.Clock().Clear(ctx); err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("Submit: failed to clear timer anchor after completion")
	}
	// The attempt is terminal; evict the engine so the registry does not
	// accumulate finished sessions. Eviction also stops the tick loop.
	s.registry.Remove(attemptID)
	success = true

	log.Info().
		Uint("attemptID", attemptID).
		Int("totalScore", result.TotalScore).
		Int("totalPossibleScore", result.TotalPossibleScore).
		Int("percentageScore", result.PercentageScore).
		Int("pendingCount", len(result.PendingQuestionIDs)).
		Msg("Submit: attempt completed")

	return loadAttemptDetail(s.attemptRepo, s.questionRepo, attemptID)
}

// scoringResponses combines the latest local answer values with any grades
// already recorded in storage. A review pass can run before submission; its
// scores belong in the submitted totals, not back in the pending set.
func (s *submissionService) scoringResponses(ctx context.Context, attemptID uint, engine *session.Engine) ([]model.StudentResponse, error) {
	local := engine.Answers().Snapshot()
	stored, err := s.collab.GetResponses(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[uint]*model.StudentResponse, len(stored))
	for i := range stored {
		byQuestion[stored[i].QuestionID] = &stored[i]
	}
	for i := range local {
		prev := byQuestion[local[i].QuestionID]
		if prev == nil {
			continue
		}
		local[i].ID = prev.ID
		local[i].Score = prev.Score
		local[i].Feedback = prev.Feedback
		local[i].GradedAt = prev.GradedAt
		local[i].GradedBy = prev.GradedBy
	}
	return local, nil
}
