package scoring

import (
	"encoding/json"
	"math"

	"github.com/haitranq/prepline/internal/model"
)

// QuestionResult is the grading outcome for a single question.
type QuestionResult struct {
	QuestionID uint
	Marks      int
	Answered   bool
	Correct    bool
	// Pending marks essay/speaking answers that have no recorded score yet.
	// They are excluded from the aggregate instead of being counted wrong.
	Pending bool
	// Awarded is the contribution to the total: full marks for a correct
	// auto-graded answer, or whatever a later review pass recorded.
	Awarded int
}

// Result is the deterministic aggregate for one attempt. Safe to recompute at
// any time for audit or display.
type Result struct {
	TotalScore         int
	TotalPossibleScore int
	PercentageScore    int
	PerQuestion        []QuestionResult
	PendingQuestionIDs []uint
}

// gradeFunc decides whether a response to one question is correct. Grading is
// exact string equality throughout; no case or whitespace normalization.
type gradeFunc func(q *model.Question, responseText string) bool

// gradeTable indexes grading rules by question type. Types absent from the
// table (essay, speaking) are not auto-graded.
var gradeTable = map[model.QuestionType]gradeFunc{
	model.QuestionTypeMultipleChoice: gradeMultipleChoice,
	model.QuestionTypeFillBlank:      gradeAcceptedAnswers,
	model.QuestionTypeShortAnswer:    gradeAcceptedAnswers,
}

func gradeMultipleChoice(q *model.Question, responseText string) bool {
	opts, err := q.DecodeOptions()
	if err != nil {
		return false
	}
	for _, opt := range opts {
		if opt.IsCorrect {
			return responseText == opt.Text
		}
	}
	return false
}

func gradeAcceptedAnswers(q *model.Question, responseText string) bool {
	accepted, err := q.AcceptedAnswers()
	if err != nil {
		return false
	}
	for _, ans := range accepted {
		if responseText == ans {
			return true
		}
	}
	return false
}

// responseText extracts the comparable text from a stored response payload,
// which is a JSON-encoded string for all auto-gradable types.
func responseText(raw json.RawMessage) (string, bool) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", false
	}
	return text, true
}

// Score computes the attempt aggregate from the full question set and the
// responses recorded so far. Pure function, no side effects.
//
// The possible total covers auto-gradable questions plus any essay/speaking
// question that already carries a reviewed score, so recomputing after a
// review pass folds the new scores in. Ungraded essay/speaking questions stay
// out of both sides of the ratio and are reported as pending.
func Score(questions []model.Question, responses []model.StudentResponse) Result {
	byQuestion := make(map[uint]*model.StudentResponse, len(responses))
	for i := range responses {
		byQuestion[responses[i].QuestionID] = &responses[i]
	}

	result := Result{PerQuestion: make([]QuestionResult, 0, len(questions))}
	for i := range questions {
		q := &questions[i]
		qr := QuestionResult{QuestionID: q.ID, Marks: q.Marks}
		resp := byQuestion[q.ID]
		qr.Answered = resp != nil

		if grade, auto := gradeTable[q.QuestionType]; auto {
			result.TotalPossibleScore += q.Marks
			if resp != nil {
				if text, ok := responseText(json.RawMessage(resp.Response)); ok && grade(q, text) {
					qr.Correct = true
					qr.Awarded = q.Marks
					result.TotalScore += q.Marks
				}
			}
		} else if resp != nil && resp.Score != nil {
			// Reviewed essay/speaking answer: recorded score counts as-is.
			result.TotalPossibleScore += q.Marks
			qr.Awarded = *resp.Score
			result.TotalScore += *resp.Score
		} else {
			qr.Pending = true
			result.PendingQuestionIDs = append(result.PendingQuestionIDs, q.ID)
		}

		result.PerQuestion = append(result.PerQuestion, qr)
	}

	result.PercentageScore = Percentage(result.TotalScore, result.TotalPossibleScore)
	return result
}

// Percentage rounds 100*score/possible to the nearest integer, guarding
// against a zero possible total.
func Percentage(totalScore, totalPossibleScore int) int {
	if totalPossibleScore == 0 {
		return 0
	}
	return int(math.Round(100 * float64(totalScore) / float64(totalPossibleScore)))
}
