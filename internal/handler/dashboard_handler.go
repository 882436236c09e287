package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/annelaughry/FFYM/internal/service"
	appErrors "github.com/annelaughry/FFYM/pkg/errors"
	"github.com/annelaughry/FFYM/pkg/response"
)

// DashboardHandler serves the landing view.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Dashboard godoc
// @Summary User dashboard
// @Description Classrooms the caller teaches and attends, plus upcoming assignments
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard [get]
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	dashboard, err := h.service.Load(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dashboard, nil)
}
