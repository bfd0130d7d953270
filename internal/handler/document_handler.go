package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studiklab/portal-api/internal/dto"
	"github.com/studiklab/portal-api/internal/models"
	"github.com/studiklab/portal-api/internal/service"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
	"github.com/studiklab/portal-api/pkg/response"
)

// DocumentHandler serves learning documents and labs.
type DocumentHandler struct {
	service *service.DocumentService
}

// NewDocumentHandler creates a new handler.
func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// List godoc
// @Summary List documents and labs
// @Tags Documents
// @Produce json
// @Param type query string false "document or lab"
// @Param track query string false "Filter by track"
// @Param search query string false "Search title or summary"
// @Param tags query string false "Comma separated tags"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.DocumentFilter{
		Track:    c.Query("track"),
		Search:   c.Query("search"),
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "pageSize", 0),
	}
	if raw := c.Query("type"); raw != "" {
		docType := models.DocumentType(raw)
		if docType != models.DocumentTypeDocument && docType != models.DocumentTypeLab {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type must be document or lab"))
			return
		}
		filter.Type = &docType
	}
	if raw := c.Query("tags"); raw != "" {
		filter.Tags = strings.Split(raw, ",")
	}

	items, pagination, err := h.service.List(c.Request.Context(), claims.Role, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, &pagination)
}

// Create godoc
// @Summary Author a document or lab
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.UpsertDocumentRequest true "Document payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpsertDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
		return
	}

	detail, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Update godoc
// @Summary Edit a document or lab
// @Tags Documents
// @Accept json
// @Produce json
// @Param slug path string true "Document slug"
// @Param payload body dto.UpsertDocumentRequest true "Document payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{slug} [put]
func (h *DocumentHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpsertDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
		return
	}

	detail, err := h.service.Update(c.Request.Context(), c.Param("slug"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Get godoc
// @Summary Fetch one document by slug
// @Tags Documents
// @Produce json
// @Param slug path string true "Document slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{slug} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.service.GetBySlug(c.Request.Context(), claims.Role, c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
