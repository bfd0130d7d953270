package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studiklab/portal-api/internal/dto"
	"github.com/studiklab/portal-api/internal/models"
	"github.com/studiklab/portal-api/internal/recurrence"
	"github.com/studiklab/portal-api/internal/repository"
	"github.com/studiklab/portal-api/pkg/config"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
)

// InvitationEventRepo is the slice of event persistence the invitation
// workflow needs.
type InvitationEventRepo interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	ListInvitedInRange(ctx context.Context, userID string, from, to time.Time) ([]models.Event, error)
	AttendeeCounts(ctx context.Context, eventIDs []string) (map[string]int, error)
}

// InvitationRepo is the invitation persistence the workflow needs.
type InvitationRepo interface {
	FindBase(ctx context.Context, eventID, userID string) (*models.Invitation, error)
	ListForUser(ctx context.Context, userID string, eventIDs []string) ([]models.Invitation, error)
	ApplyResponse(ctx context.Context, p repository.ResponseParams) (*models.Invitation, error)
}

// InvitationLocker guards against duplicate in-flight submissions.
type InvitationLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// InvitationAuditor records response submissions.
type InvitationAuditor interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// InvitationService lists pending invitations and records responses.
type InvitationService struct {
	events      InvitationEventRepo
	invitations InvitationRepo
	locker      InvitationLocker
	auditor     InvitationAuditor
	cfg         config.CalendarConfig
	logger      *zap.Logger
}

// NewInvitationService wires the invitation workflow.
func NewInvitationService(events InvitationEventRepo, invitations InvitationRepo, locker InvitationLocker, auditor InvitationAuditor, cfg config.CalendarConfig, logger *zap.Logger) *InvitationService {
	return &InvitationService{
		events:      events,
		invitations: invitations,
		locker:      locker,
		auditor:     auditor,
		cfg:         cfg,
		logger:      logger,
	}
}

// List returns the user's invitation occurrences within the query range,
// paginated. Events the user organizes are filtered out before pagination, so
// page counts always reflect the visible list.
func (s *InvitationService) List(ctx context.Context, userID string, query dto.ListInvitationsQuery) ([]dto.InvitationItem, models.Pagination, error) {
	from, to := query.From, query.To
	if from.IsZero() {
		now := time.Now().UTC()
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() || !to.After(from) {
		to = from.AddDate(0, 1, 0)
	}

	events, err := s.events.ListInvitedInRange(ctx, userID, from, to)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	invited := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if ev.OrganizerID == userID {
			continue
		}
		invited = append(invited, ev)
	}

	occurrences, err := recurrence.ExpandAll(invited, from, to, s.cfg.MaxExpandedOccurrences)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	eventIDs := make([]string, 0, len(invited))
	for _, ev := range invited {
		eventIDs = append(eventIDs, ev.ID)
	}
	rows, err := s.invitations.ListForUser(ctx, userID, eventIDs)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	responses := groupInvitations(rows)

	counts, err := s.events.AttendeeCounts(ctx, eventIDs)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	items := make([]dto.InvitationItem, 0, len(occurrences))
	for _, occ := range occurrences {
		items = append(items, buildItem(occ, responses[occ.Event.ID], counts[occ.Event.ID]))
	}

	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	page, totalPages := clampPage(query.Page, len(items), pageSize)

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	pagination := models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: len(items),
		TotalPages: totalPages,
	}
	return items[start:end], pagination, nil
}

// clampPage derives totalPages for a fully loaded list and clamps the
// requested page into [1, totalPages]. An empty list still has one page.
func clampPage(requested, totalCount, pageSize int) (page, totalPages int) {
	totalPages = (totalCount + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	page = requested
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return page, totalPages
}

// Respond records one invitee's answer to one event and returns the stored
// response.
func (s *InvitationService) Respond(ctx context.Context, userID, eventID string, req dto.RespondRequest) (*dto.InvitationResponse, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, err
	}
	if event.OrganizerID == userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "organizers do not respond to their own events")
	}
	if _, err := s.invitations.FindBase(ctx, eventID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not invited to this event")
		}
		return nil, err
	}

	lockKey := fmt.Sprintf("invitation:submit:%s:%s", eventID, userID)
	acquired, err := s.locker.AcquireLock(ctx, lockKey, s.cfg.SubmissionLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, appErrors.ErrSubmissionInFlight
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
			s.logger.Warn("release submission lock", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	resolver := NewResponseResolver(*event)
	if err := resolver.Choose(models.ResponseStatus(req.ResponseStatus)); err != nil {
		return nil, err
	}
	if req.ResponseOption != "" {
		occStart := event.StartTime
		if req.OccurrenceStart != nil {
			occStart = *req.OccurrenceStart
		}
		if err := resolver.SelectScope(models.UpdateScope(req.ResponseOption), occStart); err != nil {
			return nil, err
		}
	}
	if req.ProposedTime != nil {
		proposal := models.ProposedTime{Start: req.ProposedTime.Start, End: req.ProposedTime.End, Reason: req.ProposedTime.Reason}
		if err := resolver.AttachProposal(proposal); err != nil {
			return nil, err
		}
	}

	params, err := resolver.Begin()
	if err != nil {
		return nil, err
	}
	params.UserID = userID

	stored, err := s.invitations.ApplyResponse(ctx, params)
	if err != nil {
		resolver.Fail(err)
		s.logger.Error("apply invitation response",
			zap.String("event_id", eventID),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, err
	}
	resolver.Complete()

	if s.auditor != nil {
		entry := &models.AuditLog{
			UserID:     &userID,
			Action:     models.AuditActionInviteResponse,
			Resource:   "invitation",
			ResourceID: &stored.ID,
		}
		if err := s.auditor.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("audit invitation response", zap.Error(err))
		}
	}

	out := dto.NewInvitationResponse(stored)
	return &out, nil
}

// BulkRespond answers several invitations with accept or decline. Proposals
// are out of scope for bulk; each recurring event still requires its own
// scope and fails individually when one is missing.
func (s *InvitationService) BulkRespond(ctx context.Context, userID string, req dto.BulkResponseRequest) []dto.BulkOutcome {
	outcomes := make([]dto.BulkOutcome, 0, len(req.Items))
	for _, item := range req.Items {
		outcome := dto.BulkOutcome{EventID: item.EventID}
		if models.ResponseStatus(item.ResponseStatus) == models.ResponseProposedNewTime {
			outcome.ErrorCode = appErrors.ErrValidation.Code
			outcome.Message = "proposals cannot be submitted in bulk"
			outcomes = append(outcomes, outcome)
			continue
		}
		_, err := s.Respond(ctx, userID, item.EventID, dto.RespondRequest{
			ResponseStatus:  item.ResponseStatus,
			ResponseOption:  item.ResponseOption,
			OccurrenceStart: item.OccurrenceStart,
		})
		if err != nil {
			appErr := appErrors.FromError(err)
			outcome.ErrorCode = appErr.Code
			outcome.Message = appErr.Message
		} else {
			outcome.OK = true
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// groupInvitations indexes invitation rows by event.
func groupInvitations(rows []models.Invitation) map[string][]models.Invitation {
	grouped := make(map[string][]models.Invitation, len(rows))
	for _, row := range rows {
		grouped[row.EventID] = append(grouped[row.EventID], row)
	}
	return grouped
}

// effectiveResponse picks the row governing one occurrence. An exact
// occurrence override wins, then the latest forward override at or before the
// occurrence, then the base row.
func effectiveResponse(rows []models.Invitation, occurrenceStart time.Time) *models.Invitation {
	var base *models.Invitation
	var forward *models.Invitation
	for i := range rows {
		row := &rows[i]
		if row.OccurrenceStart == nil {
			base = row
			continue
		}
		if row.OccurrenceStart.Equal(occurrenceStart) && !row.AppliesForward {
			return row
		}
		if row.AppliesForward && !row.OccurrenceStart.After(occurrenceStart) {
			if forward == nil || row.OccurrenceStart.After(*forward.OccurrenceStart) {
				forward = row
			}
		}
	}
	if forward != nil {
		return forward
	}
	return base
}

func buildItem(occ recurrence.Occurrence, rows []models.Invitation, acceptedCount int) dto.InvitationItem {
	item := dto.InvitationItem{
		EventID:       occ.Event.ID,
		Title:         occ.Event.Title,
		Description:   occ.Event.Description,
		Start:         occ.Start,
		End:           occ.End,
		OrganizerID:   occ.Event.OrganizerID,
		LocationType:  string(occ.Event.LocationType),
		Recurring:     occ.Event.IsRecurring(),
		Status:        string(models.ResponseNeedsAction),
		AcceptedCount: acceptedCount,
	}
	if occ.Event.LocationLink != nil {
		item.LocationLink = *occ.Event.LocationLink
	}
	if row := effectiveResponse(rows, occ.Start); row != nil {
		item.Status = string(row.Status)
		if p := row.Proposal(); p != nil {
			item.ProposedTime = &dto.ProposedTimePayload{Start: p.Start, End: p.End, Reason: p.Reason}
		}
	}
	return item
}
