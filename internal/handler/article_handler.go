package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/annelaughry/FFYM/internal/service"
	appErrors "github.com/annelaughry/FFYM/pkg/errors"
	"github.com/annelaughry/FFYM/pkg/response"
)

// ArticleHandler wires the shared article pool endpoints.
type ArticleHandler struct {
	service *service.ArticleService
}

// NewArticleHandler creates a new handler.
func NewArticleHandler(svc *service.ArticleService) *ArticleHandler {
	return &ArticleHandler{service: svc}
}

// List godoc
// @Summary List articles
// @Tags Articles
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /articles [get]
func (h *ArticleHandler) List(c *gin.Context) {
	articles, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, articles, nil)
}

// Get godoc
// @Summary Fetch one article
// @Tags Articles
// @Produce json
// @Param id path string true "Article ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /articles/{id} [get]
func (h *ArticleHandler) Get(c *gin.Context) {
	article, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, article, nil)
}

// Create godoc
// @Summary Add an article
// @Tags Articles
// @Accept json
// @Produce json
// @Param payload body service.CreateArticleRequest true "Article payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/articles [post]
func (h *ArticleHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid article payload"))
		return
	}

	article, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, article)
}
