package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/haitranq/prepline/internal/dto"
	"github.com/haitranq/prepline/internal/service"
	"github.com/haitranq/prepline/internal/session"
	"github.com/rs/zerolog/log"
)

type AttemptController struct {
	attemptService    service.AttemptService
	submissionService service.SubmissionService
	reviewService     service.ReviewService
}

func NewAttemptController(
	attemptService service.AttemptService,
	submissionService service.SubmissionService,
	reviewService service.ReviewService,
) *AttemptController {
	return &AttemptController{
		attemptService:    attemptService,
		submissionService: submissionService,
		reviewService:     reviewService,
	}
}

// respondError maps the session error taxonomy onto HTTP statuses.
func respondError(ctx *gin.Context, err error, fallbackMsg string) {
	switch {
	case session.IsNotFound(err):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: err.Error()})
	case session.IsValidation(err):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, session.ErrAttemptCompleted):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "attempt is already completed"})
	case session.IsTransient(err):
		ctx.JSON(http.StatusBadGateway, dto.ErrorResponse{Message: fallbackMsg, Details: []string{err.Error()}})
	default:
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: fallbackMsg, Details: []string{err.Error()}})
	}
}

func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}

// StartAttempt godoc
// @Summary Start (or resume) a timed attempt
// @Description Creates a new in_progress attempt for the mock test, persists the timer anchor, and returns the live session state. An unfinished attempt by the same user resumes instead.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param test_id path int true "Mock Test ID"
// @Param body body dto.StartAttemptDTO true "Student starting the attempt"
// @Success 201 {object} dto.AttemptStateDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Mock test not found"
// @Router /mock-tests/{test_id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	mockTestID, ok := parseIDParam(ctx, "test_id")
	if !ok {
		return
	}
	var req dto.StartAttemptDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	state, err := c.attemptService.Start(ctx.Request.Context(), mockTestID, req.UserID)
	if err != nil {
		log.Error().Err(err).Uint("mockTestID", mockTestID).Uint("userID", req.UserID).Msg("StartAttempt: service error")
		respondError(ctx, err, "Failed to start attempt")
		return
	}
	if state.Resumed {
		ctx.JSON(http.StatusOK, state)
		return
	}
	ctx.JSON(http.StatusCreated, state)
}

// GetAttemptState godoc
// @Summary Live session state for an attempt
// @Description Current question index, remaining seconds and answered set; correct after reloads because time derives from the durable anchor.
// @Tags Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptStateDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /attempts/{attempt_id}/state [get]
func (c *AttemptController) GetAttemptState(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	state, err := c.attemptService.State(ctx.Request.Context(), attemptID)
	if err != nil {
		respondError(ctx, err, "Failed to load attempt state")
		return
	}
	ctx.JSON(http.StatusOK, state)
}

// GetClock godoc
// @Summary Remaining seconds for an attempt
// @Tags Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.ClockDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /attempts/{attempt_id}/clock [get]
func (c *AttemptController) GetClock(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	clock, err := c.attemptService.Clock(ctx.Request.Context(), attemptID)
	if err != nil {
		respondError(ctx, err, "Failed to read attempt clock")
		return
	}
	ctx.JSON(http.StatusOK, clock)
}

// RecordAnswer godoc
// @Summary Save an answer for one question
// @Description Optimistic write: local state updates immediately and persistence happens in the background, one in-flight write per question.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.RecordAnswerDTO true "Answer payload"
// @Success 202 {object} dto.RecordAnswerResultDTO
// @Failure 400 {object} dto.ErrorResponse "Malformed response payload"
// @Failure 409 {object} dto.ErrorResponse "Attempt already completed"
// @Router /attempts/{attempt_id}/answers [put]
func (c *AttemptController) RecordAnswer(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.RecordAnswerDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	result, err := c.attemptService.RecordAnswer(ctx.Request.Context(), attemptID, req)
	if err != nil {
		respondError(ctx, err, "Failed to record answer")
		return
	}
	ctx.JSON(http.StatusAccepted, result)
}

// Navigate godoc
// @Summary Move to a question by index
// @Tags Attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.NavigateDTO true "Zero-based question index"
// @Success 200 {object} dto.AttemptStateDTO
// @Failure 400 {object} dto.ErrorResponse "Index out of range"
// @Router /attempts/{attempt_id}/navigate [post]
func (c *AttemptController) Navigate(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.NavigateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Index == nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body"})
		return
	}

	state, err := c.attemptService.Navigate(ctx.Request.Context(), attemptID, *req.Index)
	if err != nil {
		respondError(ctx, err, "Failed to navigate")
		return
	}
	ctx.JSON(http.StatusOK, state)
}

// SubmitAttempt godoc
// @Summary Submit an attempt
// @Description Idempotent: the first call (explicit click or timer expiry) completes the attempt; any later call returns the already-completed record unchanged.
// @Tags Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptDetailDTO
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse "Persistence failure, attempt still in progress; retry"
// @Router /attempts/{attempt_id}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	detail, err := c.submissionService.Submit(ctx.Request.Context(), attemptID)
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("SubmitAttempt: service error")
		respondError(ctx, err, "Failed to submit attempt; please retry")
		return
	}
	ctx.JSON(http.StatusOK, detail)
}

// GetAttemptDetails godoc
// @Summary Full record of an attempt
// @Tags Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptDetailDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /attempts/{attempt_id} [get]
func (c *AttemptController) GetAttemptDetails(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	detail, err := c.attemptService.Detail(attemptID)
	if err != nil {
		respondError(ctx, err, "Failed to load attempt")
		return
	}
	ctx.JSON(http.StatusOK, detail)
}

// DetachAttempt godoc
// @Summary Leave the exam view
// @Description Stops the countdown loop for this session. Answer writes already in flight still reach storage.
// @Tags Attempts
// @Param attempt_id path int true "Attempt ID"
// @Success 204 "Detached"
// @Router /attempts/{attempt_id}/detach [post]
func (c *AttemptController) DetachAttempt(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	c.attemptService.Detach(attemptID)
	ctx.Status(http.StatusNoContent)
}

// ReviewAttempt godoc
// @Summary Grade pending essay/speaking responses
// @Description Runs the AI review pass over pending responses and folds the resulting scores into the attempt totals.
// @Tags Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptDetailDTO
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse "Review service unavailable"
// @Router /attempts/{attempt_id}/review [post]
func (c *AttemptController) ReviewAttempt(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	detail, err := c.reviewService.ReviewPending(ctx.Request.Context(), attemptID)
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("ReviewAttempt: service error")
		ctx.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Message: "Failed to review attempt", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, detail)
}

// GetUserAttempts godoc
// @Summary List attempts for a mock test
// @Tags Attempts
// @Produce json
// @Param test_id path int true "Mock Test ID"
// @Param user_id query int false "Filter by user"
// @Success 200 {array} dto.AttemptSummaryDTO
// @Failure 400 {object} dto.ErrorResponse
// @Router /mock-tests/{test_id}/attempts [get]
func (c *AttemptController) GetUserAttempts(ctx *gin.Context) {
	mockTestID, ok := parseIDParam(ctx, "test_id")
	if !ok {
		return
	}
	var userID *uint
	if userIDStr := ctx.Query("user_id"); userIDStr != "" {
		val, err := strconv.ParseUint(userIDStr, 10, 32)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid user_id format in query"})
			return
		}
		uID := uint(val)
		userID = &uID
	}

	summaries, err := c.attemptService.ListByTest(mockTestID, userID)
	if err != nil {
		respondError(ctx, err, "Failed to list attempts")
		return
	}
	ctx.JSON(http.StatusOK, summaries)
}
