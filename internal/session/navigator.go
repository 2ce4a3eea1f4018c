package session

import (
	"sync"

	"github.com/haitranq/prepline/internal/model"
)

// Navigator tracks which question the student is looking at. Questions are
// held in display order; progress itself is derived from the AnswerStore, not
// duplicated here.
type Navigator struct {
	mu        sync.Mutex
	questions []model.Question
	index     int
}

func NewNavigator(questions []model.Question) *Navigator {
	return &Navigator{questions: questions}
}

// Navigate moves to the question at the given zero-based index.
func (n *Navigator) Navigate(index int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if index < 0 || index >= len(n.questions) {
		return &ValidationError{Field: "question index", Reason: "out of range"}
	}
	n.index = index
	return nil
}

// CurrentIndex returns the zero-based index of the current question.
func (n *Navigator) CurrentIndex() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index
}

// CurrentQuestion returns the question at the current index, or nil when the
// test has no questions.
func (n *Navigator) CurrentQuestion() *model.Question {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.questions) == 0 {
		return nil
	}
	q := n.questions[n.index]
	return &q
}

// Questions returns the full ordered question list.
func (n *Navigator) Questions() []model.Question {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.questions
}

// Len returns the number of questions.
func (n *Navigator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.questions)
}
