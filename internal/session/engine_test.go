package session

import (
	"context"
	"testing"
	"time"

	"github.com/haitranq/prepline/internal/model"
	"github.com/haitranq/prepline/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAttempt(startedAt time.Time) *model.StudentAttempt {
	return &model.StudentAttempt{
		ID:         1,
		UserID:     5,
		MockTestID: 3,
		MockTest:   model.MockTest{ID: 3, Title: "Practice Test 1", DurationMinutes: 1},
		StartedAt:  startedAt,
		Status:     model.AttemptInProgress,
	}
}

func sampleQuestions() []model.Question {
	return []model.Question{
		{ID: 10, MockTestID: 3, QuestionType: model.QuestionTypeMultipleChoice, Marks: 5, OrderInTest: 1},
		{ID: 20, MockTestID: 3, QuestionType: model.QuestionTypeShortAnswer, Marks: 5, OrderInTest: 2},
		{ID: 30, MockTestID: 3, QuestionType: model.QuestionTypeSpeaking, Marks: 10, OrderInTest: 3},
	}
}

func TestEngineNotFound(t *testing.T) {
	collab := newFakeCollaborator(nil, nil)
	_, err := NewEngine(context.Background(), 99, collab, store.NewMemoryAnchorStore())
	assert.True(t, IsNotFound(err))
}

func TestEngineReattachPreservesState(t *testing.T) {
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := newFakeNow(started.Add(10 * time.Second))
	anchors := store.NewMemoryAnchorStore()
	require.NoError(t, anchors.Put(ctx, 1, store.Anchor{StartedAt: started, DurationSeconds: 60}))

	collab := newFakeCollaborator(sampleAttempt(started), sampleQuestions())
	collab.responses[10] = &model.StudentResponse{ID: 1, AttemptID: 1, QuestionID: 10, Response: jsonValue("A")}

	engine, err := NewEngine(ctx, 1, collab, anchors, WithNow(now.Now))
	require.NoError(t, err)

	assert.Equal(t, []uint{10}, engine.AnsweredQuestionIDs())
	assert.Equal(t, 50, engine.RemainingSeconds(ctx), "countdown resumes from the stored anchor")
	assert.Equal(t, 0, engine.CurrentQuestionIndex())
	assert.Equal(t, 3, engine.Navigator().Len())
}

func TestEngineRecordValidation(t *testing.T) {
	ctx := context.Background()
	started := time.Now().UTC()
	collab := newFakeCollaborator(sampleAttempt(started), sampleQuestions())
	engine, err := NewEngine(ctx, 1, collab, store.NewMemoryAnchorStore())
	require.NoError(t, err)

	t.Run("rejects question outside the test", func(t *testing.T) {
		err := engine.Record(999, jsonValue("A"))
		assert.True(t, IsValidation(err))
	})

	t.Run("rejects non-string answer for choice question", func(t *testing.T) {
		err := engine.Record(10, jsonValue([]string{"A"}))
		assert.True(t, IsValidation(err))
	})

	t.Run("accepts string answer", func(t *testing.T) {
		require.NoError(t, engine.Record(10, jsonValue("A")))
	})

	t.Run("accepts structured speaking answer", func(t *testing.T) {
		require.NoError(t, engine.Record(30, jsonValue(map[string]string{"transcript": "hello"})))
	})

	flushed(t, engine.Answers())
}

func TestEngineRecordAfterCompletion(t *testing.T) {
	ctx := context.Background()
	attempt := sampleAttempt(time.Now().UTC())
	attempt.Status = model.AttemptCompleted
	collab := newFakeCollaborator(attempt, sampleQuestions())

	engine, err := NewEngine(ctx, 1, collab, store.NewMemoryAnchorStore())
	require.NoError(t, err)

	assert.True(t, engine.Completed())
	assert.ErrorIs(t, engine.Record(10, jsonValue("A")), ErrAttemptCompleted)
	assert.ErrorIs(t, engine.BeginSubmit(), ErrAttemptCompleted)
}

func TestEngineSubmissionGuard(t *testing.T) {
	ctx := context.Background()
	collab := newFakeCollaborator(sampleAttempt(time.Now().UTC()), sampleQuestions())
	engine, err := NewEngine(ctx, 1, collab, store.NewMemoryAnchorStore())
	require.NoError(t, err)

	require.NoError(t, engine.BeginSubmit())
	assert.ErrorIs(t, engine.BeginSubmit(), ErrSubmitInFlight, "the expiry path cannot race an explicit submit")

	// A failed submission releases the slot for a retry.
	engine.EndSubmit(false)
	require.NoError(t, engine.BeginSubmit())

	// A successful one makes the attempt terminal.
	engine.EndSubmit(true)
	assert.ErrorIs(t, engine.BeginSubmit(), ErrAttemptCompleted)
	assert.True(t, engine.Completed())
}
