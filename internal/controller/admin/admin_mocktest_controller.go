package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haitranq/prepline/internal/dto"
	"github.com/haitranq/prepline/internal/service"
	"github.com/haitranq/prepline/internal/session"
	"github.com/rs/zerolog/log"
)

type AdminMockTestController struct {
	catalogService service.CatalogService
}

func NewAdminMockTestController(catalogService service.CatalogService) *AdminMockTestController {
	return &AdminMockTestController{catalogService: catalogService}
}

// CreateMockTest godoc
// @Summary (Admin) Create a mock test with its questions
// @Description Creates a new mock test. Question payloads are validated per type: multiple_choice needs options with exactly one correct, fill_blank/short_answer need acceptable answers, essay/speaking need neither.
// @Tags Admin - Mock Tests
// @Accept json
// @Produce json
// @Param test_data body dto.MockTestCreateDTO true "Mock test with questions"
// @Success 201 {object} dto.MockTestDetailDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid test or question payload"
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/mock-tests [post]
func (c *AdminMockTestController) CreateMockTest(ctx *gin.Context) {
	var req dto.MockTestCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Admin CreateMockTest: Failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	test, err := c.catalogService.CreateMockTest(req)
	if err != nil {
		log.Error().Err(err).Str("title", req.Title).Msg("Admin CreateMockTest: Service error")
		if session.IsValidation(err) {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid mock test", Details: []string{err.Error()}})
			return
		}
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to create mock test", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusCreated, test)
}
