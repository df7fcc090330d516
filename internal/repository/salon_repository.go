package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/salon-management/internal/database"
	"github.com/iliyamo/salon-management/internal/model"
)

const salonColumns = `s.id, s.name, s.business_type, s.vta_number, s.employee_count, s.email, s.phone_number,
		s.country, s.province, s.city, s.zip_code, s.status, s.plan, s.trial_ends_at,
		s.created_by, s.updated_by, s.created_at, s.updated_at, s.deleted_at`

// SalonRepo encapsulates the salon queries.  Multi-statement operations
// open their own transaction, so it needs the pool rather than a DBTX.
type SalonRepo struct {
	db *sql.DB
}

func NewSalonRepo(db *sql.DB) *SalonRepo { return &SalonRepo{db: db} }

// Create inserts s together with its owners in one transaction.  Each owner
// is connected to the principal holding its email, or a new password-less
// SALON_OWNER is created.  A reused VTA number or email yields ErrDuplicate.
func (r *SalonRepo) Create(ctx context.Context, s *model.Salon, owners []model.NewOwner) ([]model.OwnerProfile, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Email = normalizeEmail(s.Email)
	s.VTANumber = strings.TrimSpace(s.VTANumber)

	var profiles []model.OwnerProfile
	err := database.WithTx(ctx, r.db, nil, func(ctx context.Context, tx database.DBTX) error {
		var taken int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM salons WHERE vta_number=? OR email=?", s.VTANumber, s.Email).Scan(&taken); err != nil {
			return err
		}
		if taken > 0 {
			return ErrDuplicate
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO salons
			(id, name, business_type, vta_number, employee_count, email, phone_number,
			 country, province, city, zip_code, status, plan, trial_ends_at, created_by)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			s.ID, s.Name, s.BusinessType, s.VTANumber, s.EmployeeCount, s.Email, s.PhoneNumber,
			s.Country, s.Province, s.City, s.ZipCode, string(s.Status), string(s.Plan), s.TrialEndsAt, s.CreatedBy)
		if err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		for _, o := range owners {
			pid, err := connectOrCreateOwner(ctx, tx, o)
			if err != nil {
				return err
			}
			op, err := insertOwnerProfile(ctx, tx, s.ID, pid, o)
			if err != nil {
				return err
			}
			profiles = append(profiles, op)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Owners = profiles
	return profiles, nil
}

// GetByID fetches a live salon with its owners.  Soft-deleted salons are
// reported as ErrNotFound.
func (r *SalonRepo) GetByID(ctx context.Context, id string) (*model.Salon, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+salonColumns+" FROM salons s WHERE s.id=? AND s.deleted_at IS NULL LIMIT 1", id)
	s, err := scanSalon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	owners, err := NewOwnerProfileRepo(r.db).ListBySalon(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Owners = owners
	return s, nil
}

// Update applies the non-nil fields of u and records the acting principal.
func (r *SalonRepo) Update(ctx context.Context, id string, u model.SalonUpdate, actorID string) error {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.BusinessType != nil {
		add("business_type", *u.BusinessType)
	}
	if u.EmployeeCount != nil {
		add("employee_count", *u.EmployeeCount)
	}
	if u.PhoneNumber != nil {
		add("phone_number", *u.PhoneNumber)
	}
	if u.Country != nil {
		add("country", *u.Country)
	}
	if u.Province != nil {
		add("province", *u.Province)
	}
	if u.City != nil {
		add("city", *u.City)
	}
	if u.ZipCode != nil {
		add("zip_code", *u.ZipCode)
	}
	if u.Status != nil {
		add("status", string(*u.Status))
	}
	if u.Plan != nil {
		add("plan", string(*u.Plan))
	}
	if u.TrialEndsAt != nil {
		add("trial_ends_at", *u.TrialEndsAt)
	}
	var updatedBy any
	if actorID != "" {
		updatedBy = actorID
	}
	add("updated_by", updatedBy)
	args = append(args, id)

	return database.WithTx(ctx, r.db, nil, func(ctx context.Context, tx database.DBTX) error {
		var one int
		err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM salons WHERE id=? AND deleted_at IS NULL FOR UPDATE", id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE salons SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
		return err
	})
}

// SoftDelete hides the salon from reads without removing any rows.
func (r *SalonRepo) SoftDelete(ctx context.Context, id, actorID string) error {
	var updatedBy any
	if actorID != "" {
		updatedBy = actorID
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE salons SET deleted_at=UTC_TIMESTAMP(), updated_by=? WHERE id=? AND deleted_at IS NULL", updatedBy, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDelete removes the salon and its owner profiles.  Principals are kept.
func (r *SalonRepo) HardDelete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, nil, func(ctx context.Context, tx database.DBTX) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM owner_profiles WHERE salon_id=?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM salons WHERE id=?", id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func scanSalon(row rowScanner) (*model.Salon, error) {
	var (
		s                    model.Salon
		status, plan         string
		trialEnds, deletedAt sql.NullTime
		createdBy, updatedBy sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &s.BusinessType, &s.VTANumber, &s.EmployeeCount, &s.Email, &s.PhoneNumber,
		&s.Country, &s.Province, &s.City, &s.ZipCode, &status, &plan, &trialEnds,
		&createdBy, &updatedBy, &s.CreatedAt, &s.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	s.Status = model.SalonStatus(status)
	s.Plan = model.Plan(plan)
	if trialEnds.Valid {
		t := trialEnds.Time
		s.TrialEndsAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		s.DeletedAt = &t
	}
	if createdBy.Valid {
		v := createdBy.String
		s.CreatedBy = &v
	}
	if updatedBy.Valid {
		v := updatedBy.String
		s.UpdatedBy = &v
	}
	return &s, nil
}
