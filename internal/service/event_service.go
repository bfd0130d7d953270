package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/studiklab/portal-api/internal/dto"
	"github.com/studiklab/portal-api/internal/models"
	"github.com/studiklab/portal-api/internal/recurrence"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
)

type eventRepository interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	ListByOrganizer(ctx context.Context, organizerID string, from, to time.Time) ([]models.Event, error)
	Create(ctx context.Context, ev *models.Event) error
	Update(ctx context.Context, ev *models.Event) error
	Delete(ctx context.Context, id string) error
}

type eventInvitationRepo interface {
	Create(ctx context.Context, inv *models.Invitation) error
	ListByEvent(ctx context.Context, eventID string) ([]models.Invitation, error)
}

type eventCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// EventService covers the organizer side: creating events, inviting
// participants and reading back attendee standing.
type EventService struct {
	events      eventRepository
	invitations eventInvitationRepo
	cache       eventCacheInvalidator
	logger      *zap.Logger
}

// NewEventService constructs an EventService.
func NewEventService(events eventRepository, invitations eventInvitationRepo, cache eventCacheInvalidator, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{events: events, invitations: invitations, cache: cache, logger: logger}
}

// invalidateDashboards drops every cached dashboard. Event mutations change
// the upcoming-event sections of an unknown set of invitees.
func (s *EventService) invalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("invalidate dashboards", zap.Error(err))
	}
}

// Create persists an event and invites the listed users. The RRULE, when
// present, must parse.
func (s *EventService) Create(ctx context.Context, organizerID string, req dto.CreateEventRequest) (*models.Event, error) {
	if !req.End.After(req.Start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event end must be after start")
	}
	if err := recurrence.ValidRule(req.RRule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurrence rule")
	}

	locationType := models.LocationType(req.LocationType)
	switch locationType {
	case models.LocationMeet, models.LocationZoom, models.LocationCall, models.LocationCustom:
	case "":
		locationType = models.LocationUnknown
	default:
		locationType = models.LocationUnknown
	}

	ev := &models.Event{
		Title:        req.Title,
		Description:  req.Description,
		StartTime:    req.Start,
		EndTime:      req.End,
		OrganizerID:  organizerID,
		LocationType: locationType,
	}
	if req.LocationLink != "" {
		ev.LocationLink = &req.LocationLink
	}
	if req.RRule != "" {
		ev.RRule = &req.RRule
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return nil, err
	}

	for _, inviteeID := range req.InviteeIDs {
		if inviteeID == organizerID {
			continue
		}
		inv := &models.Invitation{EventID: ev.ID, UserID: inviteeID}
		if err := s.invitations.Create(ctx, inv); err != nil {
			s.logger.Error("invite user", zap.String("event_id", ev.ID), zap.String("user_id", inviteeID), zap.Error(err))
			return nil, err
		}
	}
	s.invalidateDashboards(ctx)
	return ev, nil
}

// Update edits an event owned by the caller.
func (s *EventService) Update(ctx context.Context, organizerID, eventID string, req dto.UpdateEventRequest) (*models.Event, error) {
	ev, err := s.ownedEvent(ctx, organizerID, eventID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		ev.Title = *req.Title
	}
	if req.Description != nil {
		ev.Description = *req.Description
	}
	if req.Start != nil {
		ev.StartTime = *req.Start
	}
	if req.End != nil {
		ev.EndTime = *req.End
	}
	if !ev.EndTime.After(ev.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event end must be after start")
	}
	if req.LocationType != nil {
		ev.LocationType = models.LocationType(*req.LocationType)
	}
	if req.LocationLink != nil {
		ev.LocationLink = req.LocationLink
	}
	if req.RRule != nil {
		if err := recurrence.ValidRule(*req.RRule); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurrence rule")
		}
		if *req.RRule == "" {
			ev.RRule = nil
		} else {
			ev.RRule = req.RRule
		}
	}

	if err := s.events.Update(ctx, ev); err != nil {
		return nil, err
	}
	s.invalidateDashboards(ctx)
	return ev, nil
}

// Delete removes an event owned by the caller.
func (s *EventService) Delete(ctx context.Context, organizerID, eventID string) error {
	if _, err := s.ownedEvent(ctx, organizerID, eventID); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, eventID); err != nil {
		return err
	}
	s.invalidateDashboards(ctx)
	return nil
}

// ListOwn returns the caller's organized events within a range.
func (s *EventService) ListOwn(ctx context.Context, organizerID string, from, to time.Time) ([]models.Event, error) {
	if from.IsZero() {
		from = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if to.IsZero() || !to.After(from) {
		to = from.AddDate(0, 1, 0)
	}
	return s.events.ListByOrganizer(ctx, organizerID, from, to)
}

// Attendees returns every invitee's standing for one owned event.
func (s *EventService) Attendees(ctx context.Context, organizerID, eventID string) ([]dto.EventAttendee, error) {
	if _, err := s.ownedEvent(ctx, organizerID, eventID); err != nil {
		return nil, err
	}
	rows, err := s.invitations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	attendees := make([]dto.EventAttendee, 0, len(rows))
	for _, row := range rows {
		attendees = append(attendees, dto.EventAttendee{
			UserID:         row.UserID,
			ResponseStatus: string(row.Status),
			RespondedAt:    row.RespondedAt,
		})
	}
	return attendees, nil
}

func (s *EventService) ownedEvent(ctx context.Context, organizerID, eventID string) (*models.Event, error) {
	ev, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, err
	}
	if ev.OrganizerID != organizerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "event belongs to another organizer")
	}
	return ev, nil
}
