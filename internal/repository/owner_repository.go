package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/salon-management/internal/database"
	"github.com/iliyamo/salon-management/internal/model"
)

const ownerProfileSelect = `SELECT op.id, op.salon_id, op.principal_id, p.email, p.first_name, p.last_name,
		op.invitation_sent, op.invitation_consumed_at, op.created_at
	FROM owner_profiles op
	JOIN principals p ON p.id = op.principal_id`

// OwnerProfileRepo persists the salon/owner links.  A profile id is also
// the invitation id handed to the owner.
type OwnerProfileRepo struct{ db database.DBTX }

func NewOwnerProfileRepo(db database.DBTX) *OwnerProfileRepo { return &OwnerProfileRepo{db: db} }

// GetByID fetches one profile with the owner's contact fields.
func (r *OwnerProfileRepo) GetByID(ctx context.Context, id string) (*model.OwnerProfile, error) {
	row := r.db.QueryRowContext(ctx, ownerProfileSelect+" WHERE op.id=? LIMIT 1", id)
	op, err := scanOwnerProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return op, err
}

// ListBySalon returns the owners of a salon, oldest first.
func (r *OwnerProfileRepo) ListBySalon(ctx context.Context, salonID string) ([]model.OwnerProfile, error) {
	rows, err := r.db.QueryContext(ctx, ownerProfileSelect+" WHERE op.salon_id=? ORDER BY op.created_at ASC", salonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.OwnerProfile{}
	for rows.Next() {
		op, err := scanOwnerProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *op)
	}
	return out, rows.Err()
}

// MarkInvitationConsumed stamps the first time the invitation was used.
// Later calls keep the original timestamp.
func (r *OwnerProfileRepo) MarkInvitationConsumed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE owner_profiles SET invitation_consumed_at = COALESCE(invitation_consumed_at, UTC_TIMESTAMP()) WHERE id=?", id)
	return err
}

func insertOwnerProfile(ctx context.Context, tx database.DBTX, salonID, principalID string, o model.NewOwner) (model.OwnerProfile, error) {
	op := model.OwnerProfile{
		ID:             uuid.NewString(),
		SalonID:        salonID,
		PrincipalID:    principalID,
		Email:          normalizeEmail(o.Email),
		FirstName:      o.FirstName,
		LastName:       o.LastName,
		InvitationSent: o.InvitationSent,
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO owner_profiles (id, salon_id, principal_id, invitation_sent) VALUES (?,?,?,?)",
		op.ID, op.SalonID, op.PrincipalID, op.InvitationSent)
	if err != nil {
		if isDuplicate(err) {
			return op, ErrDuplicate
		}
		return op, err
	}
	return op, nil
}

func scanOwnerProfile(row rowScanner) (*model.OwnerProfile, error) {
	var (
		op       model.OwnerProfile
		consumed sql.NullTime
	)
	if err := row.Scan(&op.ID, &op.SalonID, &op.PrincipalID, &op.Email, &op.FirstName, &op.LastName,
		&op.InvitationSent, &consumed, &op.CreatedAt); err != nil {
		return nil, err
	}
	if consumed.Valid {
		t := consumed.Time
		op.InvitationConsumedAt = &t
	}
	return &op, nil
}
