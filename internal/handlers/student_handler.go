package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/proctor-service/internal/services"
	"github.com/SAP-F-2025/proctor-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type StudentHandler struct {
	BaseHandler
	catalogService services.CatalogService
}

func NewStudentHandler(catalogService services.CatalogService, logger utils.Logger) *StudentHandler {
	return &StudentHandler{
		BaseHandler:    NewBaseHandler(logger),
		catalogService: catalogService,
	}
}

// GetDashboard lists available, upcoming and completed tests for the caller
// @Router /student/dashboard [get]
func (h *StudentHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.catalogService.ListForStudent(c.Request.Context(), currentIdentity(c).UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// GetExamDetails returns a test with the mcq answers stripped
// @Router /exam/details/{test_id} [get]
func (h *StudentHandler) GetExamDetails(c *gin.Context) {
	testID := ParseStringIDParam(c, "test_id")
	if testID == "" {
		return
	}

	test, err := h.catalogService.GetForStudent(c.Request.Context(), testID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}
