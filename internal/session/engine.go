package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/haitranq/prepline/internal/model"
	"github.com/haitranq/prepline/internal/store"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Engine hosts one student's timed run through a mock test. It composes the
// clock, the answer store and the navigator for a single attempt and exposes
// the surface the presentation layer consumes: current index, remaining
// seconds, answered set, navigate, and the submission guard.
type Engine struct {
	attempt   *model.StudentAttempt
	questions map[uint]*model.Question

	clock   *Clock
	answers *AnswerStore
	nav     *Navigator

	submitInFlight atomic.Bool
	completed      atomic.Bool
}

// NewEngine loads the attempt, its questions and any responses recorded so
// far, and wires up the clock against the durable anchor. Works both for a
// fresh attempt and for re-attaching after a reload or process restart; in the
// second case remaining time comes out of the anchor, not a restarted counter.
func NewEngine(ctx context.Context, attemptID uint, collab Collaborator, anchors store.AnchorStore, clockOpts ...ClockOption) (*Engine, error) {
	attempt, err := collab.GetAttempt(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "attempt", ID: attemptID}
		}
		return nil, fmt.Errorf("load attempt %d: %w", attemptID, err)
	}

	questions, err := collab.GetQuestions(ctx, attempt.MockTestID)
	if err != nil {
		return nil, fmt.Errorf("load questions for mock test %d: %w", attempt.MockTestID, err)
	}

	answers := NewAnswerStore(attemptID, collab)
	if err := answers.Load(ctx); err != nil {
		return nil, err
	}

	fallback := store.Anchor{
		StartedAt:       attempt.StartedAt,
		DurationSeconds: attempt.MockTest.DurationMinutes * 60,
	}

	e := &Engine{
		attempt:   attempt,
		questions: make(map[uint]*model.Question, len(questions)),
		clock:     NewClock(attemptID, anchors, fallback, clockOpts...),
		answers:   answers,
		nav:       NewNavigator(questions),
	}
	for i := range questions {
		e.questions[questions[i].ID] = &questions[i]
	}
	if attempt.Status == model.AttemptCompleted {
		e.completed.Store(true)
	}
	return e, nil
}

func (e *Engine) Attempt() *model.StudentAttempt { return e.attempt }
func (e *Engine) Clock() *Clock                  { return e.clock }
func (e *Engine) Answers() *AnswerStore          { return e.answers }
func (e *Engine) Navigator() *Navigator          { return e.nav }

// RemainingSeconds derives the countdown from the durable anchor.
func (e *Engine) RemainingSeconds(ctx context.Context) int {
	return e.clock.Tick(ctx)
}

// CurrentQuestionIndex returns the zero-based position the student is on.
func (e *Engine) CurrentQuestionIndex() int {
	return e.nav.CurrentIndex()
}

// AnsweredQuestionIDs returns the set of questions with a recorded answer.
func (e *Engine) AnsweredQuestionIDs() []uint {
	return e.answers.AnsweredQuestionIDs()
}

// Navigate moves to the given question index.
func (e *Engine) Navigate(index int) error {
	return e.nav.Navigate(index)
}

// Record validates a response against its question and hands it to the
// answer store. Malformed shapes are rejected locally and never sent to the
// persistence collaborator.
func (e *Engine) Record(questionID uint, value datatypes.JSON) error {
	q, ok := e.questions[questionID]
	if !ok {
		return &ValidationError{Field: "question_id", Reason: fmt.Sprintf("question %d is not part of this mock test", questionID)}
	}
	if e.completed.Load() {
		return ErrAttemptCompleted
	}
	if err := validateResponseShape(q, value); err != nil {
		return err
	}
	return e.answers.Record(questionID, value)
}

// validateResponseShape checks the payload matches what the question type
// expects. Auto-gradable and essay answers are JSON strings; speaking answers
// may be structured (transcript, recording reference).
func validateResponseShape(q *model.Question, value datatypes.JSON) error {
	if len(value) == 0 || !json.Valid(value) {
		return &ValidationError{Field: "response", Reason: "value must be valid JSON"}
	}
	switch q.QuestionType {
	case model.QuestionTypeSpeaking:
		return nil
	default:
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return &ValidationError{Field: "response", Reason: fmt.Sprintf("%s answers must be a JSON string", q.QuestionType)}
		}
		return nil
	}
}

// StartClock runs the countdown loop.
func (e *Engine) StartClock(interval time.Duration) {
	e.clock.Run(interval)
}

// Detach stops the tick loop when the student leaves the exam view. In-flight
// answer writes are deliberately left running.
func (e *Engine) Detach() {
	e.clock.Stop()
}

// BeginSubmit claims the one submission slot for this attempt. The explicit
// submit click and the clock expiry can both land here; exactly one caller
// proceeds.
func (e *Engine) BeginSubmit() error {
	if e.completed.Load() {
		return ErrAttemptCompleted
	}
	if !e.submitInFlight.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	return nil
}

// EndSubmit releases the slot. On success the attempt is terminal and every
// later submit is a no-op; on failure the attempt stays in_progress and a
// retry can claim the slot again.
func (e *Engine) EndSubmit(success bool) {
	if success {
		e.completed.Store(true)
	}
	e.submitInFlight.Store(false)
}

// Completed reports whether this attempt has finished.
func (e *Engine) Completed() bool {
	return e.completed.Load()
}
