package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studiklab/portal-api/internal/models"
)

// InvitationRepository persists invitation rows, including the per-occurrence
// override rows a recurring series accumulates.
type InvitationRepository struct {
	db *sqlx.DB
}

// NewInvitationRepository constructs an invitation repository.
func NewInvitationRepository(db *sqlx.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

const invitationColumns = "id, event_id, user_id, occurrence_start, applies_forward, status, response_option, proposed_start, proposed_end, proposed_reason, responded_at, created_at, updated_at"

// ResponseParams describes one response write. Scope is nil for standalone
// events; OccurrenceStart identifies the occurrence for thisEvent and
// thisAndFollowing scopes.
type ResponseParams struct {
	EventID         string
	UserID          string
	Status          models.ResponseStatus
	Scope           *models.UpdateScope
	OccurrenceStart *time.Time
	Proposal        *models.ProposedTime
}

// Create inserts the base invitation row for a newly invited user.
func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Status == "" {
		inv.Status = models.ResponseNeedsAction
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	query := `INSERT INTO invitations (id, event_id, user_id, occurrence_start, applies_forward, status, created_at, updated_at)
VALUES (:id, :event_id, :user_id, :occurrence_start, :applies_forward, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

// FindBase fetches the series-wide row for an (event, user) pair.
func (r *InvitationRepository) FindBase(ctx context.Context, eventID, userID string) (*models.Invitation, error) {
	var inv models.Invitation
	query := fmt.Sprintf("SELECT %s FROM invitations WHERE event_id = $1 AND user_id = $2 AND occurrence_start IS NULL", invitationColumns)
	if err := r.db.GetContext(ctx, &inv, query, eventID, userID); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListForUser returns every invitation row, base and overrides, the user holds
// across the given events.
func (r *InvitationRepository) ListForUser(ctx context.Context, userID string, eventIDs []string) ([]models.Invitation, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT %s FROM invitations WHERE user_id = ? AND event_id IN (?) ORDER BY event_id, occurrence_start NULLS FIRST", invitationColumns),
		userID, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	query = r.db.Rebind(query)
	var invitations []models.Invitation
	if err := r.db.SelectContext(ctx, &invitations, query, args...); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, nil
}

// ListByEvent returns every invitee's base row for one event.
func (r *InvitationRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Invitation, error) {
	var invitations []models.Invitation
	query := fmt.Sprintf("SELECT %s FROM invitations WHERE event_id = $1 AND occurrence_start IS NULL ORDER BY created_at ASC", invitationColumns)
	if err := r.db.SelectContext(ctx, &invitations, query, eventID); err != nil {
		return nil, fmt.Errorf("list event invitations: %w", err)
	}
	return invitations, nil
}

// ApplyResponse writes one response according to its scope and returns the
// row the write produced.
//
// Standalone and allEvents writes land on the base row; allEvents also clears
// every override so the whole series reads uniformly afterwards. thisEvent
// upserts a single-occurrence override. thisAndFollowing upserts a forward
// override and removes now-superseded overrides at or after that occurrence.
func (r *InvitationRepository) ApplyResponse(ctx context.Context, p ResponseParams) (*models.Invitation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("apply response: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var written *models.Invitation

	switch {
	case p.Scope == nil || *p.Scope == models.ScopeAllEvents:
		if p.Scope != nil {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM invitations WHERE event_id = $1 AND user_id = $2 AND occurrence_start IS NOT NULL",
				p.EventID, p.UserID); err != nil {
				return nil, fmt.Errorf("apply response: clear overrides: %w", err)
			}
		}
		written, err = r.updateBase(ctx, tx, p, now)
	case *p.Scope == models.ScopeThisEvent:
		written, err = r.upsertOverride(ctx, tx, p, false, now)
	case *p.Scope == models.ScopeThisAndFollowing:
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM invitations WHERE event_id = $1 AND user_id = $2 AND occurrence_start IS NOT NULL AND occurrence_start >= $3",
			p.EventID, p.UserID, p.OccurrenceStart); err != nil {
			return nil, fmt.Errorf("apply response: supersede overrides: %w", err)
		}
		written, err = r.upsertOverride(ctx, tx, p, true, now)
	default:
		return nil, fmt.Errorf("apply response: unknown scope %q", *p.Scope)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("apply response: commit: %w", err)
	}
	return written, nil
}

func (r *InvitationRepository) updateBase(ctx context.Context, tx *sqlx.Tx, p ResponseParams, now time.Time) (*models.Invitation, error) {
	query := fmt.Sprintf(`UPDATE invitations
SET status = $3, response_option = $4, proposed_start = $5, proposed_end = $6, proposed_reason = $7, responded_at = $8, updated_at = $8
WHERE event_id = $1 AND user_id = $2 AND occurrence_start IS NULL
RETURNING %s`, invitationColumns)
	var inv models.Invitation
	err := tx.GetContext(ctx, &inv, query,
		p.EventID, p.UserID, string(p.Status), scopeValue(p.Scope),
		proposalStart(p.Proposal), proposalEnd(p.Proposal), proposalReason(p.Proposal), now)
	if err != nil {
		return nil, fmt.Errorf("apply response: update base: %w", err)
	}
	return &inv, nil
}

func (r *InvitationRepository) upsertOverride(ctx context.Context, tx *sqlx.Tx, p ResponseParams, appliesForward bool, now time.Time) (*models.Invitation, error) {
	query := fmt.Sprintf(`INSERT INTO invitations
(id, event_id, user_id, occurrence_start, applies_forward, status, response_option, proposed_start, proposed_end, proposed_reason, responded_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11, $11)
ON CONFLICT (event_id, user_id, occurrence_start) WHERE occurrence_start IS NOT NULL
DO UPDATE SET applies_forward = EXCLUDED.applies_forward, status = EXCLUDED.status, response_option = EXCLUDED.response_option,
proposed_start = EXCLUDED.proposed_start, proposed_end = EXCLUDED.proposed_end, proposed_reason = EXCLUDED.proposed_reason,
responded_at = EXCLUDED.responded_at, updated_at = EXCLUDED.updated_at
RETURNING %s`, invitationColumns)
	var inv models.Invitation
	err := tx.GetContext(ctx, &inv, query,
		uuid.NewString(), p.EventID, p.UserID, p.OccurrenceStart, appliesForward,
		string(p.Status), scopeValue(p.Scope),
		proposalStart(p.Proposal), proposalEnd(p.Proposal), proposalReason(p.Proposal), now)
	if err != nil {
		return nil, fmt.Errorf("apply response: upsert override: %w", err)
	}
	return &inv, nil
}

func scopeValue(scope *models.UpdateScope) sql.NullString {
	if scope == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*scope), Valid: true}
}

func proposalStart(p *models.ProposedTime) *time.Time {
	if p == nil {
		return nil
	}
	return &p.Start
}

func proposalEnd(p *models.ProposedTime) *time.Time {
	if p == nil {
		return nil
	}
	return &p.End
}

func proposalReason(p *models.ProposedTime) *string {
	if p == nil {
		return nil
	}
	return &p.Reason
}
