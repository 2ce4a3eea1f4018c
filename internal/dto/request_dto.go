package dto

import "encoding/json"

// StartAttemptDTO begins a timed run through a mock test.
type StartAttemptDTO struct {
	UserID uint `json:"user_id" binding:"required"`
}

// RecordAnswerDTO saves (or revises) the answer to one question. The response
// payload shape depends on the question type: a JSON string for written
// answers, optionally structured for speaking.
type RecordAnswerDTO struct {
	QuestionID uint            `json:"question_id" binding:"required"`
	Response   json.RawMessage `json:"response" binding:"required"`
}

// NavigateDTO moves the session to a question by zero-based index.
type NavigateDTO struct {
	Index *int `json:"index" binding:"required"`
}
