package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haitranq/prepline/internal/dto"
	"github.com/haitranq/prepline/internal/service"
	"github.com/rs/zerolog/log"
)

type MockTestController struct {
	catalogService service.CatalogService
}

func NewMockTestController(catalogService service.CatalogService) *MockTestController {
	return &MockTestController{catalogService: catalogService}
}

// GetAllMockTests godoc
// @Summary List available mock tests
// @Tags Mock Tests
// @Produce json
// @Success 200 {array} dto.MockTestSummaryDTO
// @Failure 500 {object} dto.ErrorResponse
// @Router /mock-tests [get]
func (c *MockTestController) GetAllMockTests(ctx *gin.Context) {
	tests, err := c.catalogService.GetAllMockTests()
	if err != nil {
		log.Error().Err(err).Msg("GetAllMockTests: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to retrieve mock tests", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, tests)
}

// GetMockTestDetails godoc
// @Summary Full details of a mock test
// @Description Returns the test with its questions in display order, ready for a student to start an attempt. Correct answers are not included.
// @Tags Mock Tests
// @Produce json
// @Param test_id path int true "Mock Test ID"
// @Success 200 {object} dto.MockTestDetailDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /mock-tests/{test_id} [get]
func (c *MockTestController) GetMockTestDetails(ctx *gin.Context) {
	mockTestID, ok := parseIDParam(ctx, "test_id")
	if !ok {
		return
	}
	test, err := c.catalogService.GetMockTestDetails(mockTestID)
	if err != nil {
		respondError(ctx, err, "Failed to retrieve mock test")
		return
	}
	ctx.JSON(http.StatusOK, test)
}
