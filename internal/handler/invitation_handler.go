package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studiklab/portal-api/internal/dto"
	"github.com/studiklab/portal-api/internal/ics"
	"github.com/studiklab/portal-api/internal/service"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
	"github.com/studiklab/portal-api/pkg/response"
)

type dashboardInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// InvitationHandler exposes the calendar invitation workflow.
type InvitationHandler struct {
	invitations *service.InvitationService
	dashboards  dashboardInvalidator
	metrics     *service.MetricsService
}

// NewInvitationHandler creates a new handler.
func NewInvitationHandler(invitations *service.InvitationService, dashboards dashboardInvalidator, metrics *service.MetricsService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, dashboards: dashboards, metrics: metrics}
}

// List godoc
// @Summary List calendar invitations
// @Description List the caller's invitation occurrences within a date range, excluding events they organize
// @Tags Calendar
// @Produce json
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /calendar/invitations [get]
func (h *InvitationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.ListInvitationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}

	items, pagination, err := h.invitations.List(c.Request.Context(), claims.UserID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, &pagination)
}

// Respond godoc
// @Summary Respond to an invitation
// @Description Accept, decline or propose a new time for one invited event. Recurring events require responseOption.
// @Tags Calendar
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.RespondRequest true "Response payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /calendar/events/{id}/response [patch]
func (h *InvitationHandler) Respond(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid response payload"))
		return
	}

	out, err := h.invitations.Respond(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveInvitationResponse(out.ResponseStatus, out.ResponseOption)
	}
	if h.dashboards != nil {
		h.dashboards.Invalidate(c.Request.Context(), claims.UserID)
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// BulkRespond godoc
// @Summary Respond to several invitations
// @Description Accept or decline several invitations at once. Recurring events without a scope fail per item.
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body dto.BulkResponseRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /calendar/invitations/bulk-response [post]
func (h *InvitationHandler) BulkRespond(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.BulkResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk payload"))
		return
	}

	outcomes := h.invitations.BulkRespond(c.Request.Context(), claims.UserID, req)
	applied := false
	for _, outcome := range outcomes {
		if outcome.OK {
			applied = true
			break
		}
	}
	if applied && h.dashboards != nil {
		h.dashboards.Invalidate(c.Request.Context(), claims.UserID)
	}
	response.JSON(c, http.StatusOK, outcomes, nil)
}

// Feed godoc
// @Summary Invitation feed as iCalendar
// @Description Export the caller's upcoming invitations as an ICS document for calendar subscriptions
// @Tags Calendar
// @Produce plain
// @Param token query string true "Access token"
// @Success 200 {string} string "text/calendar"
// @Failure 401 {object} response.Envelope
// @Router /calendar/invitations/feed.ics [get]
func (h *InvitationHandler) Feed(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	now := time.Now().UTC()
	items, _, err := h.invitations.List(c.Request.Context(), claims.UserID, dto.ListInvitationsQuery{
		From:     now,
		To:       now.AddDate(0, 3, 0),
		Page:     1,
		PageSize: 500,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	document := ics.Feed(claims.FullName, items, now)
	c.Header("Content-Disposition", `attachment; filename="invitations.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(document))
}
