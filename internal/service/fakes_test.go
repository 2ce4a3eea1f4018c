package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/haitranq/prepline/internal/model"
	"github.com/haitranq/prepline/internal/repository"
	"github.com/haitranq/prepline/internal/session"
	"github.com/haitranq/prepline/internal/store"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// memDB is shared in-memory state behind the fake repositories. It mirrors the
// contracts the gorm ones provide: unique (attempt, question) responses and a
// guarded at-most-once complete transition.
type memDB struct {
	mu             sync.Mutex
	tests          map[uint]*model.MockTest
	questions      map[uint][]model.Question
	attempts       map[uint]*model.StudentAttempt
	responses      map[uint]map[uint]*model.StudentResponse
	nextAttemptID  uint
	nextResponseID uint

	completeErr       error
	completeCalls     int
	findInProgressErr error
}

func newMemDB() *memDB {
	return &memDB{
		tests:     make(map[uint]*model.MockTest),
		questions: make(map[uint][]model.Question),
		attempts:  make(map[uint]*model.StudentAttempt),
		responses: make(map[uint]map[uint]*model.StudentResponse),
	}
}

func (db *memDB) seedTest(test model.MockTest, questions []model.Question) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t := test
	db.tests[t.ID] = &t
	db.questions[t.ID] = append([]model.Question(nil), questions...)
}

func (db *memDB) seedAttempt(attempt model.StudentAttempt) uint {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextAttemptID++
	a := attempt
	if a.ID == 0 {
		a.ID = db.nextAttemptID
	}
	db.attempts[a.ID] = &a
	return a.ID
}

func (db *memDB) attemptStatus(id uint) model.AttemptStatus {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.attempts[id].Status
}

func (db *memDB) attemptCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.attempts)
}

func (db *memDB) setCompleteErr(err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.completeErr = err
}

type fakeMockTestRepo struct{ db *memDB }

func (r *fakeMockTestRepo) Create(test *model.MockTest) error {
	r.db.seedTest(*test, test.Questions)
	return nil
}

func (r *fakeMockTestRepo) FindByID(id uint) (*model.MockTest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeMockTestRepo) FindByIDWithQuestions(id uint) (*model.MockTest, error) {
	test, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	test.Questions = append([]model.Question(nil), r.db.questions[id]...)
	return test, nil
}

func (r *fakeMockTestRepo) FindAllActive() ([]model.MockTest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]model.MockTest, 0, len(r.db.tests))
	for _, t := range r.db.tests {
		if t.IsActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeMockTestRepo) FindAllWithQuestionCount() ([]struct {
	model.MockTest
	QuestionCount int
}, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]struct {
		model.MockTest
		QuestionCount int
	}, 0, len(r.db.tests))
	for id, t := range r.db.tests {
		out = append(out, struct {
			model.MockTest
			QuestionCount int
		}{MockTest: *t, QuestionCount: len(r.db.questions[id])})
	}
	return out, nil
}

type fakeQuestionRepo struct{ db *memDB }

func (r *fakeQuestionRepo) Create(q *model.Question) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.questions[q.MockTestID] = append(r.db.questions[q.MockTestID], *q)
	return nil
}

func (r *fakeQuestionRepo) FindByID(id uint) (*model.Question, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, qs := range r.db.questions {
		for i := range qs {
			if qs[i].ID == id {
				copied := qs[i]
				return &copied, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeQuestionRepo) FindByMockTestID(mockTestID uint) ([]model.Question, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := append([]model.Question(nil), r.db.questions[mockTestID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].OrderInTest < out[j].OrderInTest })
	return out, nil
}

func (r *fakeQuestionRepo) Update(q *model.Question) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	qs := r.db.questions[q.MockTestID]
	for i := range qs {
		if qs[i].ID == q.ID {
			qs[i] = *q
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeQuestionRepo) Delete(id uint) error { return nil }

type fakeAttemptRepo struct{ db *memDB }

func (r *fakeAttemptRepo) Create(attempt *model.StudentAttempt) error {
	attempt.ID = r.db.seedAttempt(*attempt)
	return nil
}

func (r *fakeAttemptRepo) FindByID(id uint) (*model.StudentAttempt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAttemptRepo) FindByIDWithTest(id uint) (*model.StudentAttempt, error) {
	attempt, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if t, ok := r.db.tests[attempt.MockTestID]; ok {
		attempt.MockTest = *t
	}
	return attempt, nil
}

func (r *fakeAttemptRepo) FindByIDWithDetails(id uint) (*model.StudentAttempt, error) {
	attempt, err := r.FindByIDWithTest(id)
	if err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, resp := range r.db.responses[id] {
		attempt.Responses = append(attempt.Responses, *resp)
	}
	sort.Slice(attempt.Responses, func(i, j int) bool {
		return attempt.Responses[i].QuestionID < attempt.Responses[j].QuestionID
	})
	return attempt, nil
}

func (r *fakeAttemptRepo) FindInProgressByUserAndTest(userID, mockTestID uint) (*model.StudentAttempt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.findInProgressErr != nil {
		return nil, r.db.findInProgressErr
	}
	for _, a := range r.db.attempts {
		if a.UserID == userID && a.MockTestID == mockTestID && a.Status == model.AttemptInProgress {
			copied := *a
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAttemptRepo) FindAllByTestAndUser(mockTestID uint, userID *uint) ([]model.StudentAttempt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.StudentAttempt
	for _, a := range r.db.attempts {
		if a.MockTestID != mockTestID {
			continue
		}
		if userID != nil && a.UserID != *userID {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (r *fakeAttemptRepo) Complete(id uint, totalScore, percentageScore int, completedAt time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.completeCalls++
	if r.db.completeErr != nil {
		return false, r.db.completeErr
	}
	a, ok := r.db.attempts[id]
	if !ok || a.Status != model.AttemptInProgress {
		return false, nil
	}
	a.Status = model.AttemptCompleted
	a.CompletedAt = &completedAt
	a.TotalScore = &totalScore
	a.PercentageScore = &percentageScore
	return true, nil
}

func (r *fakeAttemptRepo) UpdateTotals(id uint, totalScore, percentageScore int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.TotalScore = &totalScore
	a.PercentageScore = &percentageScore
	return nil
}

type fakeResponseRepo struct{ db *memDB }

func (r *fakeResponseRepo) FindByAttemptID(attemptID uint) ([]model.StudentResponse, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.StudentResponse
	for _, resp := range r.db.responses[attemptID] {
		out = append(out, *resp)
	}
	return out, nil
}

func (r *fakeResponseRepo) FindByAttemptAndQuestion(attemptID, questionID uint) (*model.StudentResponse, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	resp, ok := r.db.responses[attemptID][questionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *resp
	return &copied, nil
}

func (r *fakeResponseRepo) Create(response *model.StudentResponse) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.responses[response.AttemptID][response.QuestionID]; exists {
		return fmt.Errorf("duplicate response for attempt %d question %d", response.AttemptID, response.QuestionID)
	}
	r.db.nextResponseID++
	response.ID = r.db.nextResponseID
	if r.db.responses[response.AttemptID] == nil {
		r.db.responses[response.AttemptID] = make(map[uint]*model.StudentResponse)
	}
	copied := *response
	r.db.responses[response.AttemptID][response.QuestionID] = &copied
	return nil
}

func (r *fakeResponseRepo) UpdateValue(attemptID, questionID uint, value datatypes.JSON) (*model.StudentResponse, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	resp, ok := r.db.responses[attemptID][questionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	resp.Response = value
	copied := *resp
	return &copied, nil
}

func (r *fakeResponseRepo) UpdateGrade(id uint, score int, feedback, gradedBy string, gradedAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, byQuestion := range r.db.responses {
		for _, resp := range byQuestion {
			if resp.ID == id {
				resp.Score = &score
				resp.Feedback = &feedback
				resp.GradedBy = &gradedBy
				resp.GradedAt = &gradedAt
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

// testEnv wires the real services over the fakes, the way cmd wires them over
// gorm and Redis.
type testEnv struct {
	db         *memDB
	registry   *session.Registry
	anchors    *store.MemoryAnchorStore
	collab     session.Collaborator
	submission SubmissionService
	attempts   AttemptService

	mockTestRepo repository.MockTestRepository
	attemptRepo  repository.AttemptRepository
	questionRepo repository.QuestionRepository
	responseRepo repository.ResponseRepository
}

func newTestEnv() *testEnv {
	db := newMemDB()
	env := &testEnv{
		db:           db,
		registry:     session.NewRegistry(),
		anchors:      store.NewMemoryAnchorStore(),
		mockTestRepo: &fakeMockTestRepo{db: db},
		attemptRepo:  &fakeAttemptRepo{db: db},
		questionRepo: &fakeQuestionRepo{db: db},
		responseRepo: &fakeResponseRepo{db: db},
	}
	env.collab = NewCollaborator(env.attemptRepo, env.questionRepo, env.responseRepo)
	env.submission = NewSubmissionService(env.registry, env.collab, env.anchors, env.attemptRepo, env.questionRepo)
	env.attempts = NewAttemptService(env.registry, env.collab, env.anchors, env.submission, env.mockTestRepo, env.attemptRepo, env.questionRepo)
	return env
}

func (env *testEnv) seedStandardTest() {
	correctA := []model.QuestionOption{
		{ID: "a", Text: "Paris", IsCorrect: true},
		{ID: "b", Text: "London"},
	}
	correctB := []model.QuestionOption{
		{ID: "a", Text: "Mars", IsCorrect: true},
		{ID: "b", Text: "Venus"},
	}
	env.db.seedTest(
		model.MockTest{ID: 3, Title: "General Practice Test", Category: "general", DurationMinutes: 60, TotalMarks: 20, IsActive: true},
		[]model.Question{
			{ID: 10, MockTestID: 3, QuestionType: model.QuestionTypeMultipleChoice, QuestionText: "Capital of France?", Options: rawJSON(correctA), Marks: 5, OrderInTest: 1},
			{ID: 20, MockTestID: 3, QuestionType: model.QuestionTypeMultipleChoice, QuestionText: "Red planet?", Options: rawJSON(correctB), Marks: 5, OrderInTest: 2},
			{ID: 30, MockTestID: 3, QuestionType: model.QuestionTypeEssay, QuestionText: "Describe your last trip.", Marks: 10, OrderInTest: 3},
		},
	)
}

func rawJSON(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(raw)
}
