package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/haitranq/prepline/config"
	"github.com/haitranq/prepline/internal/dto"
	"github.com/haitranq/prepline/internal/model"
	"github.com/haitranq/prepline/internal/repository"
	"github.com/haitranq/prepline/internal/scoring"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

const reviewGrader = "gemini-1.5-flash"

// ReviewService runs the deferred grading pass for essay and speaking
// responses, which the submission path leaves pending. Each reviewed response
// gets a score and feedback, and the attempt aggregate is recomputed so the
// new scores fold into the stored totals.
type ReviewService interface {
	ReviewPending(ctx context.Context, attemptID uint) (*dto.AttemptDetailDTO, error)
}

type reviewService struct {
	client       *genai.GenerativeModel
	attemptRepo  repository.AttemptRepository
	questionRepo repository.QuestionRepository
	responseRepo repository.ResponseRepository
}

func NewReviewService(
	cfg *config.Config,
	attemptRepo repository.AttemptRepository,
	questionRepo repository.QuestionRepository,
	responseRepo repository.ResponseRepository,
) (ReviewService, error) {
	s := &reviewService{
		attemptRepo:  attemptRepo,
		questionRepo: questionRepo,
		responseRepo: responseRepo,
	}
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. ReviewService will be non-functional.")
		return s, nil
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	s.client = client.GenerativeModel(reviewGrader)
	return s, nil
}

func (s *reviewService) ReviewPending(ctx context.Context, attemptID uint) (*dto.AttemptDetailDTO, error) {
	if s.client == nil {
		return nil, fmt.Errorf("review service unavailable: gemini client not initialized")
	}

	attempt, err := s.attemptRepo.FindByIDWithDetails(attemptID)
	if err != nil {
		return nil, fmt.Errorf("attempt %d not found: %w", attemptID, err)
	}
	questions, err := s.questionRepo.FindByMockTestID(attempt.MockTestID)
	if err != nil {
		return nil, fmt.Errorf("load questions for mock test %d: %w", attempt.MockTestID, err)
	}
	questionByID := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		questionByID[questions[i].ID] = &questions[i]
	}

	reviewed := 0
	for i := range attempt.Responses {
		resp := &attempt.Responses[i]
		q := questionByID[resp.QuestionID]
		if q == nil || q.QuestionType.AutoGradable() || resp.Score != nil {
			continue
		}

		answerText := extractAnswerText(resp)
		if answerText == "" {
			log.Warn().Uint("responseID", resp.ID).Msg("ReviewPending: response has no reviewable text, skipping")
			continue
		}

		feedback, score, err := s.scoreAndFeedback(ctx, q, answerText)
		if err != nil {
			log.Error().Err(err).Uint("responseID", resp.ID).Uint("questionID", q.ID).Msg("ReviewPending: grading failed for response")
			continue
		}
		if err := s.responseRepo.UpdateGrade(resp.ID, score, feedback, reviewGrader, nowFunc()); err != nil {
			log.Error().Err(err).Uint("responseID", resp.ID).Msg("ReviewPending: failed to store grade")
			continue
		}
		reviewed++
	}

	if reviewed > 0 {
		// Fold the new scores into the stored aggregate.
		refreshed, err := s.attemptRepo.FindByIDWithDetails(attemptID)
		if err != nil {
			return nil, fmt.Errorf("reload attempt %d after review: %w", attemptID, err)
		}
		result := scoring.Score(questions, refreshed.Responses)
		if err := s.attemptRepo.UpdateTotals(attemptID, result.TotalScore, result.PercentageScore); err != nil {
			return nil, fmt.Errorf("update totals for attempt %d: %w", attemptID, err)
		}
		log.Info().Uint("attemptID", attemptID).Int("reviewed", reviewed).Int("totalScore", result.TotalScore).Msg("ReviewPending: attempt totals recomputed")
	}

	return loadAttemptDetail(s.attemptRepo, s.questionRepo, attemptID)
}

// extractAnswerText pulls the student's text out of the stored payload:
// either a JSON string, or a structured speaking payload with a transcript.
func extractAnswerText(resp *model.StudentResponse) string {
	raw := []byte(resp.Response)
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var structured struct {
		Transcript string `json:"transcript"`
		Text       string `json:"text"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil {
		if structured.Transcript != "" {
			return structured.Transcript
		}
		return structured.Text
	}
	return ""
}

func (s *reviewService) scoreAndFeedback(ctx context.Context, question *model.Question, answerText string) (string, int, error) {
	prompt := fmt.Sprintf(`You are an examiner grading a test-preparation %s response.

Question:
%s

Student response:
%s

Grade the response out of %d marks. Provide your evaluation in two distinct parts:
1. Score: an integer from 0 to %d.
2. Feedback: constructive feedback naming strong points and specific weaknesses.

Format exactly as:
Score: <number>
Feedback: <text>`,
		question.QuestionType, question.QuestionText, answerText, question.Marks, question.Marks)

	resp, err := s.client.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", 0, fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", 0, fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	scoreStr, feedback, err := parseScoreAndFeedback(sb.String())
	if err != nil {
		return feedback, 0, err
	}
	score, err := strconv.Atoi(strings.TrimSuffix(scoreStr, "."))
	if err != nil {
		parsed, ferr := strconv.ParseFloat(scoreStr, 64)
		if ferr != nil {
			return feedback, 0, fmt.Errorf("could not parse score %q: %w", scoreStr, err)
		}
		score = int(parsed)
	}
	if score < 0 {
		score = 0
	}
	if score > question.Marks {
		score = question.Marks
	}
	return feedback, score, nil
}

// parseScoreAndFeedback splits the model output on its Score:/Feedback:
// markers, tolerating missing or reordered feedback.
func parseScoreAndFeedback(rawResponse string) (scoreStr string, feedbackStr string, err error) {
	scorePrefix := "Score:"
	feedbackPrefix := "Feedback:"

	scoreIndex := strings.Index(rawResponse, scorePrefix)
	feedbackIndex := strings.Index(rawResponse, feedbackPrefix)

	if scoreIndex == -1 {
		return "", rawResponse, fmt.Errorf("response does not contain 'Score:' prefix")
	}

	endOfScoreLine := strings.Index(rawResponse[scoreIndex:], "\n")
	if endOfScoreLine == -1 {
		scoreStr = strings.TrimSpace(rawResponse[scoreIndex+len(scorePrefix):])
	} else {
		scoreStr = strings.TrimSpace(rawResponse[scoreIndex+len(scorePrefix) : scoreIndex+endOfScoreLine])
	}

	if feedbackIndex != -1 && feedbackIndex > scoreIndex {
		feedbackStr = strings.TrimSpace(rawResponse[feedbackIndex+len(feedbackPrefix):])
	} else if endOfScoreLine != -1 && len(rawResponse) > scoreIndex+endOfScoreLine+1 {
		feedbackStr = strings.TrimSpace(rawResponse[scoreIndex+endOfScoreLine+1:])
	}

	if parts := strings.Fields(scoreStr); len(parts) > 0 {
		scoreStr = parts[0]
	}
	return scoreStr, feedbackStr, nil
}
