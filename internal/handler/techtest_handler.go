package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studiklab/portal-api/internal/dto"
	"github.com/studiklab/portal-api/internal/service"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
	"github.com/studiklab/portal-api/pkg/response"
)

// TechTestHandler runs technical test taking.
type TechTestHandler struct {
	service *service.TechTestService
}

// NewTechTestHandler creates a new handler.
func NewTechTestHandler(svc *service.TechTestService) *TechTestHandler {
	return &TechTestHandler{service: svc}
}

// List godoc
// @Summary List published technical tests
// @Tags TechTests
// @Produce json
// @Param track query string false "Filter by track"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tech-tests [get]
func (h *TechTestHandler) List(c *gin.Context) {
	tests, err := h.service.ListTests(c.Request.Context(), c.Query("track"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tests, nil)
}

// Start godoc
// @Summary Start or resume a test attempt
// @Tags TechTests
// @Produce json
// @Param id path string true "Test ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /tech-tests/{id}/attempts [post]
func (h *TechTestHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	view, err := h.service.StartAttempt(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Submit godoc
// @Summary Submit answers for an attempt
// @Tags TechTests
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param payload body dto.SubmitAttemptRequest true "Answers"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /tech-tests/attempts/{id} [post]
func (h *TechTestHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid answers payload"))
		return
	}

	summary, err := h.service.SubmitAttempt(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Attempts godoc
// @Summary List own attempts
// @Tags TechTests
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tech-tests/attempts [get]
func (h *TechTestHandler) Attempts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	attempts, err := h.service.ListAttempts(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}
