package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/party-logger/internal/model"
)

// GuestRepo is the MySQL GuestRepository.
type GuestRepo struct{ q Querier }

// NewGuestRepo returns a GuestRepo bound to q.
func NewGuestRepo(q Querier) *GuestRepo { return &GuestRepo{q: q} }

// List returns guests ordered by name with the guarantor joined when set.
func (r *GuestRepo) List(ctx context.Context) ([]model.Guest, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT g.id, g.last_name, g.first_name, g.guarantor_id,
		        s.id, s.student_id, s.last_name, s.first_name, s.speciality, s.is_member
		   FROM guests g
		   LEFT JOIN students s ON s.id = g.guarantor_id
		  ORDER BY g.last_name, g.first_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Guest{}
	for rows.Next() {
		var (
			g           model.Guest
			guarantorID sql.NullInt64
			sID, sNum   sql.NullInt64
			sLast       sql.NullString
			sFirst      sql.NullString
			sSpec       sql.NullString
			sMember     sql.NullBool
		)
		if err := rows.Scan(&g.ID, &g.LastName, &g.FirstName, &guarantorID,
			&sID, &sNum, &sLast, &sFirst, &sSpec, &sMember); err != nil {
			return nil, err
		}
		if guarantorID.Valid {
			id := uint64(guarantorID.Int64)
			g.GuarantorID = &id
		}
		if sID.Valid {
			g.Guarantor = &model.Student{
				ID:         uint64(sID.Int64),
				StudentID:  uint64(sNum.Int64),
				LastName:   sLast.String,
				FirstName:  sFirst.String,
				Speciality: sSpec.String,
				IsMember:   sMember.Bool,
			}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetByID fetches a guest without the guarantor joined.
func (r *GuestRepo) GetByID(ctx context.Context, id uint64) (*model.Guest, error) {
	var (
		g           model.Guest
		guarantorID sql.NullInt64
	)
	err := r.q.QueryRowContext(ctx,
		"SELECT id, last_name, first_name, guarantor_id FROM guests WHERE id=? LIMIT 1", id).
		Scan(&g.ID, &g.LastName, &g.FirstName, &guarantorID)
	if err != nil {
		return nil, translate(err)
	}
	if guarantorID.Valid {
		gid := uint64(guarantorID.Int64)
		g.GuarantorID = &gid
	}
	return &g, nil
}

// Create inserts a guest and sets its ID.
func (r *GuestRepo) Create(ctx context.Context, g *model.Guest) error {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO guests (last_name, first_name, guarantor_id) VALUES (?,?,?)",
		g.LastName, g.FirstName, g.GuarantorID)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

// Count returns the number of registered guests.
func (r *GuestRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM guests").Scan(&n)
	return n, err
}
