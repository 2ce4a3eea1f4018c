package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/haitranq/prepline/internal/dto"
	"github.com/haitranq/prepline/internal/model"
	"github.com/haitranq/prepline/internal/repository"
	"github.com/haitranq/prepline/internal/session"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CatalogService covers the mock test catalog: admin creation and the
// listings students browse before starting an attempt.
type CatalogService interface {
	CreateMockTest(req dto.MockTestCreateDTO) (*dto.MockTestDetailDTO, error)
	GetAllMockTests() ([]dto.MockTestSummaryDTO, error)
	GetMockTestDetails(mockTestID uint) (*dto.MockTestDetailDTO, error)
}

type catalogService struct {
	mockTestRepo repository.MockTestRepository
}

func NewCatalogService(mockTestRepo repository.MockTestRepository) CatalogService {
	return &catalogService{mockTestRepo: mockTestRepo}
}

func (s *catalogService) CreateMockTest(req dto.MockTestCreateDTO) (*dto.MockTestDetailDTO, error) {
	test := model.MockTest{
		Title:           req.Title,
		Category:        req.Category,
		DurationMinutes: req.DurationMinutes,
		ScheduledDate:   req.ScheduledDate,
		IsActive:        true,
	}

	totalMarks := 0
	for i, qReq := range req.Questions {
		question, err := buildQuestion(qReq)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		totalMarks += question.Marks
		test.Questions = append(test.Questions, *question)
	}
	test.TotalMarks = totalMarks

	if err := s.mockTestRepo.Create(&test); err != nil {
		log.Error().Err(err).Str("title", req.Title).Msg("CreateMockTest: repository create failed")
		return nil, fmt.Errorf("failed to create mock test: %w", err)
	}

	log.Info().Uint("mockTestID", test.ID).Int("questionCount", len(test.Questions)).Int("totalMarks", totalMarks).Msg("Mock test created")
	return mockTestDetailDTO(&test), nil
}

// buildQuestion validates one question payload against its type and encodes
// the option/answer JSON columns.
func buildQuestion(req dto.QuestionCreateDTO) (*model.Question, error) {
	question := &model.Question{
		QuestionType:     model.QuestionType(req.QuestionType),
		QuestionText:     req.QuestionText,
		Marks:            req.Marks,
		OrderInTest:      req.OrderInTest,
		TimeLimitSeconds: req.TimeLimitSeconds,
	}

	switch question.QuestionType {
	case model.QuestionTypeMultipleChoice:
		if len(req.Options) < 2 {
			return nil, &session.ValidationError{Field: "options", Reason: "multiple_choice needs at least two options"}
		}
		correctCount := 0
		options := make([]model.QuestionOption, 0, len(req.Options))
		for _, opt := range req.Options {
			if opt.IsCorrect {
				correctCount++
			}
			options = append(options, model.QuestionOption{ID: opt.ID, Text: opt.Text, IsCorrect: opt.IsCorrect})
		}
		if correctCount != 1 {
			return nil, &session.ValidationError{Field: "options", Reason: "exactly one option must be marked correct"}
		}
		encoded, err := json.Marshal(options)
		if err != nil {
			return nil, fmt.Errorf("encode options: %w", err)
		}
		question.Options = datatypes.JSON(encoded)

	case model.QuestionTypeFillBlank, model.QuestionTypeShortAnswer:
		if len(req.CorrectAnswers) == 0 {
			return nil, &session.ValidationError{Field: "correct_answers", Reason: fmt.Sprintf("%s needs at least one acceptable answer", req.QuestionType)}
		}
		encoded, err := json.Marshal(req.CorrectAnswers)
		if err != nil {
			return nil, fmt.Errorf("encode correct answers: %w", err)
		}
		question.CorrectAnswer = datatypes.JSON(encoded)

	case model.QuestionTypeEssay, model.QuestionTypeSpeaking:
		// Graded later by a review pass, nothing stored up front.

	default:
		return nil, &session.ValidationError{Field: "question_type", Reason: fmt.Sprintf("unknown type %q", req.QuestionType)}
	}

	return question, nil
}

func (s *catalogService) GetAllMockTests() ([]dto.MockTestSummaryDTO, error) {
	testsWithCount, err := s.mockTestRepo.FindAllWithQuestionCount()
	if err != nil {
		log.Error().Err(err).Msg("GetAllMockTests: repository error")
		return nil, fmt.Errorf("error fetching mock tests: %w", err)
	}

	summaries := make([]dto.MockTestSummaryDTO, 0, len(testsWithCount))
	for _, twc := range testsWithCount {
		summaries = append(summaries, dto.MockTestSummaryDTO{
			ID:              twc.MockTest.ID,
			Title:           twc.MockTest.Title,
			Category:        twc.MockTest.Category,
			DurationMinutes: twc.MockTest.DurationMinutes,
			TotalMarks:      twc.MockTest.TotalMarks,
			ScheduledDate:   twc.MockTest.ScheduledDate,
			QuestionCount:   twc.QuestionCount,
			CreatedAt:       twc.MockTest.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *catalogService) GetMockTestDetails(mockTestID uint) (*dto.MockTestDetailDTO, error) {
	test, err := s.mockTestRepo.FindByIDWithQuestions(mockTestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &session.NotFoundError{Resource: "mock test", ID: mockTestID}
		}
		log.Error().Err(err).Uint("mockTestID", mockTestID).Msg("GetMockTestDetails: repository error")
		return nil, fmt.Errorf("error fetching mock test %d: %w", mockTestID, err)
	}
	return mockTestDetailDTO(test), nil
}

// mockTestDetailDTO maps a test with its questions to the student-facing
// view. Options are re-encoded without the correctness flag.
func mockTestDetailDTO(test *model.MockTest) *dto.MockTestDetailDTO {
	var detail dto.MockTestDetailDTO
	if err := copier.Copy(&detail, test); err != nil {
		log.Warn().Err(err).Uint("mockTestID", test.ID).Msg("mockTestDetailDTO: copier failed, building manually")
	}
	detail.Questions = make([]dto.QuestionViewDTO, 0, len(test.Questions))
	for i := range test.Questions {
		q := &test.Questions[i]
		view := dto.QuestionViewDTO{
			ID:               q.ID,
			MockTestID:       q.MockTestID,
			QuestionType:     string(q.QuestionType),
			QuestionText:     q.QuestionText,
			Marks:            q.Marks,
			OrderInTest:      q.OrderInTest,
			TimeLimitSeconds: q.TimeLimitSeconds,
		}
		if opts, err := q.DecodeOptions(); err == nil {
			for _, opt := range opts {
				view.Options = append(view.Options, dto.OptionViewDTO{ID: opt.ID, Text: opt.Text})
			}
		}
		detail.Questions = append(detail.Questions, view)
	}
	return &detail
}
