package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studiklab/portal-api/internal/dto"
	"github.com/studiklab/portal-api/internal/models"
	"github.com/studiklab/portal-api/pkg/config"
	appErrors "github.com/studiklab/portal-api/pkg/errors"
)

type progressRepository interface {
	ProgressByUser(ctx context.Context, userID string) ([]models.ProgressSummary, error)
	ListEnrollments(ctx context.Context, userID string) ([]models.Enrollment, error)
}

type attemptReader interface {
	ListAttemptsByUser(ctx context.Context, userID string) ([]models.TestAttempt, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type invitationLister interface {
	List(ctx context.Context, userID string, query dto.ListInvitationsQuery) ([]dto.InvitationItem, models.Pagination, error)
}

// DashboardService assembles the student landing page. The assembled payload
// is cached per user for a short TTL.
type DashboardService struct {
	progress    progressRepository
	attempts    attemptReader
	invitations invitationLister
	cache       dashboardCache
	cfg         config.DashboardConfig
	logger      *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(progress progressRepository, attempts attemptReader, invitations invitationLister, cache dashboardCache, cfg config.DashboardConfig, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		progress:    progress,
		attempts:    attempts,
		invitations: invitations,
		cache:       cache,
		cfg:         cfg,
		logger:      logger,
	}
}

const maxRecentAttempts = 5
const maxUpcomingEvents = 5

func dashboardCacheKey(userID string) string {
	return fmt.Sprintf("dashboard:%s", userID)
}

// Get returns the user's dashboard, from cache when fresh.
func (s *DashboardService) Get(ctx context.Context, userID string) (*dto.Dashboard, error) {
	if s.cache != nil {
		var cached dto.Dashboard
		err := s.cache.Get(ctx, dashboardCacheKey(userID), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read", zap.Error(err))
		}
	}

	dashboard, err := s.build(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey(userID), dashboard, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write", zap.Error(err))
		}
	}
	return dashboard, nil
}

// Invalidate drops the cached dashboard, for example after a response
// submission changes the pending invitation count.
func (s *DashboardService) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardCacheKey(userID)); err != nil {
		s.logger.Warn("dashboard cache invalidate", zap.Error(err))
	}
}

func (s *DashboardService) build(ctx context.Context, userID string) (*dto.Dashboard, error) {
	summaries, err := s.progress.ProgressByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.progress.ListEnrollments(ctx, userID)
	if err != nil {
		return nil, err
	}
	statusByProgram := make(map[string]models.EnrollmentStatus, len(enrollments))
	for _, enrollment := range enrollments {
		statusByProgram[enrollment.ProgramID] = enrollment.Status
	}

	programs := make([]dto.ProgramProgress, 0, len(summaries))
	for _, summary := range summaries {
		card := dto.NewProgramProgress(summary)
		card.EnrollmentStatus = string(statusByProgram[summary.ProgramID])
		programs = append(programs, card)
	}

	now := time.Now().UTC()
	items, _, err := s.invitations.List(ctx, userID, dto.ListInvitationsQuery{
		From:     now,
		To:       now.AddDate(0, 0, 14),
		Page:     1,
		PageSize: 50,
	})
	if err != nil {
		return nil, err
	}
	pending := 0
	upcoming := make([]dto.InvitationItem, 0, maxUpcomingEvents)
	for _, item := range items {
		if item.Status == string(models.ResponseNeedsAction) {
			pending++
		}
		if len(upcoming) < maxUpcomingEvents {
			upcoming = append(upcoming, item)
		}
	}

	attempts, err := s.attempts.ListAttemptsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent := make([]dto.AttemptSummary, 0, maxRecentAttempts)
	for _, attempt := range attempts {
		if len(recent) == maxRecentAttempts {
			break
		}
		recent = append(recent, dto.NewAttemptSummary(attempt))
	}

	return &dto.Dashboard{
		Programs:           programs,
		PendingInvitations: pending,
		UpcomingEvents:     upcoming,
		RecentAttempts:     recent,
		GeneratedAt:        now,
	}, nil
}
