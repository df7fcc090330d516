package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/salon-management/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var principalCols = []string{"id", "email", "first_name", "last_name", "password_hash", "role", "is_active", "session_version", "created_at", "updated_at"}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, isDuplicate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, isDuplicate(errors.New("Error 1062: Duplicate entry")))
	assert.False(t, isDuplicate(&mysql.MySQLError{Number: 1213}))
	assert.False(t, isDuplicate(nil))
}

func TestPrincipalRepo_CreateAssignsIDAndNormalizesEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPrincipalRepo(db)

	mock.ExpectExec(`INSERT INTO principals`).
		WithArgs(sqlmock.AnyArg(), "admin@x.com", "", "", "hash", "ADMIN", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &model.Principal{Email: "  Admin@X.com ", PasswordHash: "hash", Role: model.RolePlatformAdmin}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "admin@x.com", p.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipalRepo_CreateWithoutPasswordStoresNull(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPrincipalRepo(db)

	mock.ExpectExec(`INSERT INTO principals`).
		WithArgs("p-1", "owner@x.com", "Ann", "Lee", nil, "SALON_OWNER", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &model.Principal{ID: "p-1", Email: "owner@x.com", FirstName: "Ann", LastName: "Lee", Role: model.RoleSalonOwner}
	require.NoError(t, repo.Create(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipalRepo_CreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPrincipalRepo(db)

	mock.ExpectExec(`INSERT INTO principals`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@x.com'"})

	err := repo.Create(context.Background(), &model.Principal{Email: "a@x.com", Role: model.RolePlatformAdmin})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPrincipalRepo_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPrincipalRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM principals WHERE email=\? LIMIT 1`).
		WithArgs("owner@x.com").
		WillReturnRows(sqlmock.NewRows(principalCols).
			AddRow("p-1", "owner@x.com", "Ann", "Lee", nil, "SALON_OWNER", false, int64(3), now, now))

	p, err := repo.GetByEmail(context.Background(), "OWNER@x.com")
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, model.RoleSalonOwner, p.Role)
	assert.False(t, p.HasPassword())
	assert.EqualValues(t, 3, p.SessionVersion)
}

func TestPrincipalRepo_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPrincipalRepo(db)

	mock.ExpectQuery(`SELECT .* FROM principals WHERE id=\?`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(principalCols))

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPrincipalRepo_SetPassword(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPrincipalRepo(db)

	mock.ExpectExec(`UPDATE principals SET password_hash=\?, role=\? WHERE id=\?`).
		WithArgs("h", "SALON_OWNER", "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetPassword(context.Background(), "p-1", "h", model.RoleSalonOwner))

	mock.ExpectExec(`UPDATE principals SET password_hash`).
		WithArgs("h", "SALON_OWNER", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM principals WHERE id=\?`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	err := repo.SetPassword(context.Background(), "ghost", "h", model.RoleSalonOwner)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipalRepo_BumpSessionVersion(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPrincipalRepo(db)

	mock.ExpectExec(`UPDATE principals SET session_version = session_version \+ 1 WHERE id=\?`).
		WithArgs("p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.BumpSessionVersion(context.Background(), "p-1"))

	mock.ExpectExec(`UPDATE principals SET session_version`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.BumpSessionVersion(context.Background(), "ghost"), ErrNotFound)
}

func TestOwnerProfileRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOwnerProfileRepo(db)
	now := time.Now().UTC()
	cols := []string{"id", "salon_id", "principal_id", "email", "first_name", "last_name", "invitation_sent", "invitation_consumed_at", "created_at"}

	mock.ExpectQuery(`FROM owner_profiles op\s+JOIN principals p ON p.id = op.principal_id WHERE op.id=\?`).
		WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("inv-1", "s-1", "p-1", "owner@x.com", "Ann", "Lee", true, nil, now))

	op, err := repo.GetByID(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", op.PrincipalID)
	assert.Nil(t, op.InvitationConsumedAt)

	mock.ExpectQuery(`FROM owner_profiles`).WithArgs("nope").WillReturnRows(sqlmock.NewRows(cols))
	_, err = repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOwnerProfileRepo_MarkInvitationConsumedKeepsFirstStamp(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`SET invitation_consumed_at = COALESCE\(invitation_consumed_at, UTC_TIMESTAMP\(\)\)`).
		WithArgs("inv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, NewOwnerProfileRepo(db).MarkInvitationConsumed(context.Background(), "inv-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalonRepo_CreateWithNewOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSalonRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM salons WHERE vta_number=\? OR email=\?`).
		WithArgs("BE123", "salon@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO salons`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, role FROM principals WHERE email=\? LIMIT 1 FOR UPDATE`).
		WithArgs("owner@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}))
	mock.ExpectExec(`INSERT INTO principals`).
		WithArgs(sqlmock.AnyArg(), "owner@x.com", "Ann", "Lee", nil, "SALON_OWNER", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO owner_profiles`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := &model.Salon{Name: "Cut", VTANumber: " BE123 ", Email: "Salon@x.com", Status: model.SalonStatusTrial, Plan: model.PlanBasic}
	profiles, err := repo.Create(context.Background(), s, []model.NewOwner{{FirstName: "Ann", LastName: "Lee", Email: "Owner@x.com", InvitationSent: true}})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, s.ID, profiles[0].SalonID)
	assert.NotEmpty(t, profiles[0].PrincipalID)
	assert.Equal(t, "owner@x.com", profiles[0].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalonRepo_CreateConnectsExistingOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSalonRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM salons`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO salons`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, role FROM principals WHERE email=\?`).
		WithArgs("owner@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow("p-existing", "SALON_OWNER"))
	mock.ExpectExec(`INSERT INTO owner_profiles`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "p-existing", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	profiles, err := repo.Create(context.Background(), &model.Salon{Name: "Cut", VTANumber: "BE1", Email: "s@x.com"},
		[]model.NewOwner{{Email: "owner@x.com"}})
	require.NoError(t, err)
	assert.Equal(t, "p-existing", profiles[0].PrincipalID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalonRepo_CreateRefusesAdminEmailAsOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSalonRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM salons`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO salons`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, role FROM principals WHERE email=\?`).
		WithArgs("boss@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow("admin-1", "ADMIN"))
	mock.ExpectRollback()

	profiles, err := repo.Create(context.Background(), &model.Salon{Name: "Cut", VTANumber: "BE1", Email: "s@x.com"},
		[]model.NewOwner{{Email: "Boss@x.com"}})
	assert.ErrorIs(t, err, ErrEmailNotOwner)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Empty(t, profiles)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalonRepo_CreateDuplicateRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSalonRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM salons`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), &model.Salon{Name: "Cut", VTANumber: "BE1", Email: "s@x.com"}, nil)
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalonRepo_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM salons s WHERE s.id=\? AND s.deleted_at IS NULL`).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewSalonRepo(db).GetByID(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSalonRepo_UpdateOnlyTouchesGivenFields(t *testing.T) {
	db, mock := newMock(t)
	name := "New Name"
	status := model.SalonStatusActive

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM salons WHERE id=\? AND deleted_at IS NULL FOR UPDATE`).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(`UPDATE salons SET name=\?, status=\?, updated_by=\? WHERE id=\?`).
		WithArgs("New Name", "ACTIVE", "admin-1", "s-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewSalonRepo(db).Update(context.Background(), "s-1", model.SalonUpdate{Name: &name, Status: &status}, "admin-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalonRepo_UpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	name := "x"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM salons`).WithArgs("gone").WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectRollback()

	err := NewSalonRepo(db).Update(context.Background(), "gone", model.SalonUpdate{Name: &name}, "admin-1")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalonRepo_SoftDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSalonRepo(db)

	mock.ExpectExec(`UPDATE salons SET deleted_at=UTC_TIMESTAMP\(\), updated_by=\? WHERE id=\? AND deleted_at IS NULL`).
		WithArgs("admin-1", "s-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SoftDelete(context.Background(), "s-1", "admin-1"))

	mock.ExpectExec(`UPDATE salons SET deleted_at`).
		WithArgs("admin-1", "s-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SoftDelete(context.Background(), "s-1", "admin-1"), ErrNotFound)
}

func TestSalonRepo_HardDelete(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM owner_profiles WHERE salon_id=\?`).WithArgs("s-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM salons WHERE id=\?`).WithArgs("s-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewSalonRepo(db).HardDelete(context.Background(), "s-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalonRepo_Search(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	cols := []string{"id", "name", "business_type", "vta_number", "employee_count", "email", "phone_number",
		"country", "province", "city", "zip_code", "status", "plan", "trial_ends_at",
		"created_by", "updated_by", "created_at", "updated_at", "deleted_at"}

	f := model.SalonFilter{Page: 2, Limit: 1, Status: "ACTIVE", City: "ghent"}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM salons s WHERE s.deleted_at IS NULL AND s.status = \? AND LOWER\(s.city\) = \?`).
		WithArgs("ACTIVE", "ghent").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectQuery(`LIMIT \? OFFSET \?`).
		WithArgs("ACTIVE", "ghent", 1, 1).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("s-2", "Cut", "hair", "BE2", 4, "s2@x.com", "",
			"BE", "VOV", "Ghent", "9000", "ACTIVE", "BASIC", nil, "admin-1", nil, now, now, nil))
	mock.ExpectCommit()

	got, total, err := NewSalonRepo(db).Search(context.Background(), f)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, got, 1)
	assert.Equal(t, model.SalonStatusActive, got[0].Status)
	require.NotNil(t, got[0].CreatedBy)
	assert.Equal(t, "admin-1", *got[0].CreatedBy)
	assert.Nil(t, got[0].UpdatedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalonRepo_SearchFreeText(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`LOWER\(s.name\) LIKE \? ESCAPE '\\\\' OR LOWER\(s.email\) LIKE \? ESCAPE`).
		WithArgs("%cut%", "%cut%", "%cut%").
		WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	_, _, err := NewSalonRepo(db).Search(context.Background(), model.SalonFilter{Page: 1, Limit: 10, Search: "cut"})
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSalonRepo_SearchEscapesLikeWildcards(t *testing.T) {
	db, mock := newMock(t)

	want := `%50\%\_off\\%`
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM salons s WHERE .*LIKE \? ESCAPE`).
		WithArgs(want, want, want).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY s.created_at DESC`).
		WithArgs(want, want, want, 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	got, total, err := NewSalonRepo(db).Search(context.Background(), model.SalonFilter{Page: 1, Limit: 10, Search: `50%_off\`})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
