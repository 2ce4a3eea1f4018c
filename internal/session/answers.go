package session

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/haitranq/prepline/internal/model"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// answerEntry tracks one question's answer state. value is always the latest
// thing the student typed; persisted advances only after the matching
// create/update call succeeded, so the create-vs-update branch can never pick
// wrong.
type answerEntry struct {
	value     datatypes.JSON
	persisted bool
	inflight  bool
	queued    *datatypes.JSON
	lastErr   error
}

// AnswerStore keeps the current answer per question and persists each one
// without ever producing a duplicate response record. Local state updates
// immediately; persistence runs in the background with at most one in-flight
// write per question. A second Record while a write is outstanding queues
// behind it rather than racing it, so an update can never overtake the create
// it depends on.
type AnswerStore struct {
	attemptID uint
	collab    Collaborator

	mu      sync.Mutex
	entries map[uint]*answerEntry
	wg      sync.WaitGroup
}

func NewAnswerStore(attemptID uint, collab Collaborator) *AnswerStore {
	return &AnswerStore{
		attemptID: attemptID,
		collab:    collab,
		entries:   make(map[uint]*answerEntry),
	}
}

// Load seeds answer values and persisted flags from the responses already
// stored for this attempt. Called once when the session is (re)built.
func (s *AnswerStore) Load(ctx context.Context) error {
	responses, err := s.collab.GetResponses(ctx, s.attemptID)
	if err != nil {
		return Transient("load responses", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range responses {
		s.entries[responses[i].QuestionID] = &answerEntry{
			value:     responses[i].Response,
			persisted: true,
		}
	}
	return nil
}

// Record updates local state for the question immediately and schedules
// exactly one persistence call. Only malformed values are rejected here;
// persistence failures surface later through LastErr and are retried by the
// next Record or an explicit Retry.
func (s *AnswerStore) Record(questionID uint, value datatypes.JSON) error {
	if len(value) == 0 || !json.Valid(value) {
		return &ValidationError{Field: "response", Reason: "value must be valid JSON"}
	}

	s.mu.Lock()
	e, ok := s.entries[questionID]
	if !ok {
		e = &answerEntry{}
		s.entries[questionID] = e
	}
	e.value = value
	if e.inflight {
		// Latest write wins once the outstanding one finishes.
		v := value
		e.queued = &v
		s.mu.Unlock()
		return nil
	}
	e.inflight = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.drain(questionID, value)
	return nil
}

// Retry re-issues the persistence call for a question whose last write
// failed, using the same create-or-update branch.
func (s *AnswerStore) Retry(questionID uint) {
	s.mu.Lock()
	e, ok := s.entries[questionID]
	if !ok || e.inflight || e.lastErr == nil {
		s.mu.Unlock()
		return
	}
	e.inflight = true
	value := e.value
	s.mu.Unlock()

	s.wg.Add(1)
	go s.drain(questionID, value)
}

// drain performs writes for one question until nothing is queued. Writes use
// a background context on purpose: detaching from the exam view must not lose
// an answer the student already typed.
func (s *AnswerStore) drain(questionID uint, value datatypes.JSON) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		persisted := s.entries[questionID].persisted
		s.mu.Unlock()

		var err error
		if persisted {
			_, err = s.collab.UpdateResponse(context.Background(), s.attemptID, questionID, value)
		} else {
			_, err = s.collab.CreateResponse(context.Background(), s.attemptID, questionID, value)
		}

		s.mu.Lock()
		e := s.entries[questionID]
		if err != nil {
			e.lastErr = Transient("persist response", err)
			log.Warn().Err(err).Uint("attemptID", s.attemptID).Uint("questionID", questionID).Bool("wasPersisted", persisted).Msg("AnswerStore: write failed, local answer retained")
		} else {
			e.persisted = true
			e.lastErr = nil
		}

		if e.queued != nil {
			value = *e.queued
			e.queued = nil
			s.mu.Unlock()
			continue
		}
		e.inflight = false
		s.mu.Unlock()
		return
	}
}

// Flush blocks until every outstanding write has settled, or ctx is done.
// Submission awaits this so scoring never under-counts answers typed just
// before the student hit submit.
func (s *AnswerStore) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AnsweredQuestionIDs returns the ids of all questions with a recorded
// answer, sorted ascending.
func (s *AnswerStore) AnsweredQuestionIDs() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Value returns the latest local answer for a question.
func (s *AnswerStore) Value(questionID uint) (datatypes.JSON, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[questionID]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// LastErr returns the most recent persistence failure for a question, nil if
// the last write succeeded.
func (s *AnswerStore) LastErr(questionID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[questionID]
	if !ok {
		return nil
	}
	return e.lastErr
}

// Snapshot materializes the latest known answers as response records, for
// scoring. Local values are used even when a write is still failing, so a
// flaky network cannot silently zero a question.
func (s *AnswerStore) Snapshot() []model.StudentResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	responses := make([]model.StudentResponse, 0, len(s.entries))
	for questionID, e := range s.entries {
		responses = append(responses, model.StudentResponse{
			AttemptID:  s.attemptID,
			QuestionID: questionID,
			Response:   e.value,
		})
	}
	sort.Slice(responses, func(i, j int) bool { return responses[i].QuestionID < responses[j].QuestionID })
	return responses
}
