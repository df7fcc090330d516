package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/salon-management/internal/database"
	"github.com/iliyamo/salon-management/internal/model"
)

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns one page of live salons matching f plus the total match
// count.  Both queries run in one read-only transaction so the count and
// the page agree.  f is expected to be normalized already.
func (r *SalonRepo) Search(ctx context.Context, f model.SalonFilter) ([]model.Salon, int64, error) {
	where := []string{"s.deleted_at IS NULL"}
	args := []any{}

	if f.Search != "" {
		like := "%" + likeEscaper.Replace(f.Search) + "%"
		where = append(where, `(LOWER(s.name) LIKE ? ESCAPE '\\' OR LOWER(s.email) LIKE ? ESCAPE '\\' OR LOWER(s.vta_number) LIKE ? ESCAPE '\\')`)
		args = append(args, like, like, like)
	}
	if f.Status != "" {
		where = append(where, "s.status = ?")
		args = append(args, f.Status)
	}
	if f.Plan != "" {
		where = append(where, "s.plan = ?")
		args = append(args, f.Plan)
	}
	if f.Country != "" {
		where = append(where, "LOWER(s.country) = ?")
		args = append(args, f.Country)
	}
	if f.Province != "" {
		where = append(where, "LOWER(s.province) = ?")
		args = append(args, f.Province)
	}
	if f.City != "" {
		where = append(where, "LOWER(s.city) = ?")
		args = append(args, f.City)
	}
	cond := strings.Join(where, " AND ")

	var (
		total int64
		out   []model.Salon
	)
	err := database.WithTx(ctx, r.db, database.ReadOnly, func(ctx context.Context, tx database.DBTX) error {
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM salons s WHERE "+cond, args...).Scan(&total); err != nil {
			return err
		}

		dataSQL := "SELECT " + salonColumns + `
			FROM salons s
			WHERE ` + cond + `
			ORDER BY s.created_at DESC, s.id ASC
			LIMIT ? OFFSET ?`
		argsData := append(append([]any{}, args...), f.Limit, f.Offset())

		rows, err := tx.QueryContext(ctx, dataSQL, argsData...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]model.Salon, 0, f.Limit)
		for rows.Next() {
			s, err := scanSalon(rows)
			if err != nil {
				return err
			}
			out = append(out, *s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
