package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/annelaughry/FFYM/internal/service"
	appErrors "github.com/annelaughry/FFYM/pkg/errors"
	"github.com/annelaughry/FFYM/pkg/response"
)

// PlannerHandler wires the research-project planner endpoints.
type PlannerHandler struct {
	service *service.PlannerService
}

// NewPlannerHandler creates a new handler.
func NewPlannerHandler(svc *service.PlannerService) *PlannerHandler {
	return &PlannerHandler{service: svc}
}

// Home godoc
// @Summary Planner home
// @Description The caller's active project and its group, if any
// @Tags Planner
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /planner [get]
func (h *PlannerHandler) Home(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	home, err := h.service.Home(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, home, nil)
}

// StartProject godoc
// @Summary Start a project
// @Description Retires the caller's active project and starts a new one with its group
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body service.StartProjectRequest true "Project payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /planner/projects [post]
func (h *PlannerHandler) StartProject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.StartProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid project payload"))
		return
	}

	home, err := h.service.StartProject(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, home)
}

// BackgroundResearch godoc
// @Summary Background research worksheet
// @Tags Planner
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Security BearerAuth
// @Router /planner/background-research [get]
func (h *PlannerHandler) BackgroundResearch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	section, err := h.service.BackgroundResearch(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, section, nil)
}

// SaveBackgroundResearch godoc
// @Summary Save background research worksheet
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body service.BackgroundResearchRequest true "Worksheet payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /planner/background-research [put]
func (h *PlannerHandler) SaveBackgroundResearch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.BackgroundResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid worksheet payload"))
		return
	}

	section, err := h.service.SaveBackgroundResearch(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, section, nil)
}

// ResearchQuestions godoc
// @Summary Research questions worksheet
// @Tags Planner
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Security BearerAuth
// @Router /planner/research-questions [get]
func (h *PlannerHandler) ResearchQuestions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	section, err := h.service.ResearchQuestions(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, section, nil)
}

// SaveResearchQuestions godoc
// @Summary Save research questions worksheet
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body service.ResearchQuestionsRequest true "Worksheet payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /planner/research-questions [put]
func (h *PlannerHandler) SaveResearchQuestions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ResearchQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid worksheet payload"))
		return
	}

	section, err := h.service.SaveResearchQuestions(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, section, nil)
}

// Hypothesis godoc
// @Summary Hypothesis worksheet
// @Tags Planner
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Security BearerAuth
// @Router /planner/hypothesis [get]
func (h *PlannerHandler) Hypothesis(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	section, err := h.service.Hypothesis(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, section, nil)
}

// SaveHypothesis godoc
// @Summary Save hypothesis worksheet
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body service.HypothesisRequest true "Worksheet payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /planner/hypothesis [put]
func (h *PlannerHandler) SaveHypothesis(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.HypothesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid worksheet payload"))
		return
	}

	section, err := h.service.SaveHypothesis(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, section, nil)
}

// Document godoc
// @Summary Full project document
// @Description Project, group and all three stage worksheets (staff only)
// @Tags Planner
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /planner/projects/{id}/document [get]
func (h *PlannerHandler) Document(c *gin.Context) {
	doc, err := h.service.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doc, nil)
}

// DocumentPDF godoc
// @Summary Project document as PDF
// @Tags Planner
// @Produce application/pdf
// @Param id path string true "Project ID"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /planner/projects/{id}/document/pdf [get]
func (h *PlannerHandler) DocumentPDF(c *gin.Context) {
	content, filename, err := h.service.DocumentPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", content)
}
