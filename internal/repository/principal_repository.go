package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/salon-management/internal/database"
	"github.com/iliyamo/salon-management/internal/model"
)

const principalColumns = "id,email,first_name,last_name,password_hash,role,is_active,session_version,created_at,updated_at"

// PrincipalRepo persists principals.  It works against a pool or a
// transaction alike.
type PrincipalRepo struct{ db database.DBTX }

func NewPrincipalRepo(db database.DBTX) *PrincipalRepo { return &PrincipalRepo{db: db} }

// Create inserts p, assigning a UUID when p.ID is empty.  The email is
// normalized in place.  A taken email yields ErrDuplicate.
func (r *PrincipalRepo) Create(ctx context.Context, p *model.Principal) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Email = normalizeEmail(p.Email)
	var hash sql.NullString
	if p.PasswordHash != "" {
		hash = sql.NullString{String: p.PasswordHash, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO principals (id, email, first_name, last_name, password_hash, role, is_active) VALUES (?,?,?,?,?,?,?)",
		p.ID, p.Email, p.FirstName, p.LastName, hash, string(p.Role), p.IsActive)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByEmail fetches a principal by normalized email.
func (r *PrincipalRepo) GetByEmail(ctx context.Context, email string) (*model.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+principalColumns+" FROM principals WHERE email=? LIMIT 1", normalizeEmail(email))
	return scanPrincipal(row)
}

// GetByID fetches a principal by id.
func (r *PrincipalRepo) GetByID(ctx context.Context, id string) (*model.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+principalColumns+" FROM principals WHERE id=? LIMIT 1", id)
	return scanPrincipal(row)
}

// SetPassword stores a new hash and role for the principal.
func (r *PrincipalRepo) SetPassword(ctx context.Context, id, hash string, role model.Role) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE principals SET password_hash=?, role=? WHERE id=?", hash, string(role), id)
	if err != nil {
		return err
	}
	return principalExists(ctx, r.db, res, id)
}

// SetActive flips the presence flag.  Unknown ids are ignored.
func (r *PrincipalRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, "UPDATE principals SET is_active=? WHERE id=?", active, id)
	return err
}

// BumpSessionVersion increments the revocation counter, which invalidates
// every token minted before the call.  Unknown ids yield ErrNotFound.
func (r *PrincipalRepo) BumpSessionVersion(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE principals SET session_version = session_version + 1 WHERE id=?", id)
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

// connectOrCreateOwner returns the id of the principal owning email,
// creating a password-less SALON_OWNER when none exists.  The row is locked
// for the rest of the transaction.  An email held by an admin or employee
// yields ErrEmailNotOwner.
func connectOrCreateOwner(ctx context.Context, tx database.DBTX, o model.NewOwner) (string, error) {
	email := normalizeEmail(o.Email)
	var (
		id   string
		role sql.NullString
	)
	err := tx.QueryRowContext(ctx,
		"SELECT id, role FROM principals WHERE email=? LIMIT 1 FOR UPDATE", email).Scan(&id, &role)
	switch {
	case err == nil:
		if model.Role(role.String) != model.RoleSalonOwner {
			return "", ErrEmailNotOwner
		}
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", err
	}
	p := &model.Principal{
		Email:     email,
		FirstName: o.FirstName,
		LastName:  o.LastName,
		Role:      model.RoleSalonOwner,
	}
	if err := NewPrincipalRepo(tx).Create(ctx, p); err != nil {
		return "", err
	}
	return p.ID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row rowScanner) (*model.Principal, error) {
	var (
		p    model.Principal
		hash sql.NullString
		role string
	)
	err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &hash, &role,
		&p.IsActive, &p.SessionVersion, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.PasswordHash = hash.String
	p.Role = model.Role(role)
	return &p, nil
}

// principalExists turns a zero-row UPDATE into ErrNotFound.  MySQL reports zero
// affected rows when the new values equal the old ones, so a zero count is
// confirmed with a lookup before it is treated as missing.
func principalExists(ctx context.Context, db database.DBTX, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = db.QueryRowContext(ctx, "SELECT 1 FROM principals WHERE id=?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
