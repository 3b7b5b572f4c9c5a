package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/party-logger/internal/model"
)

// PartyRepo is the MySQL PartyRepository. The schema's active_slot column
// enforces that at most one party is active and not closed; a second
// activation outside the controller's transaction fails with ErrDuplicate.
type PartyRepo struct{ q Querier }

// NewPartyRepo returns a PartyRepo bound to q.
func NewPartyRepo(q Querier) *PartyRepo { return &PartyRepo{q: q} }

const partyColumns = "id, name, description, date, start_time, end_time, location, is_active, is_closed, created_by, created_at, updated_at"

func scanParty(row rowScanner) (*model.Party, error) {
	var (
		p          model.Party
		desc, loc  sql.NullString
		start, end sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Name, &desc, &p.Date, &start, &end, &loc,
		&p.IsActive, &p.IsClosed, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		p.Description = &desc.String
	}
	if loc.Valid {
		p.Location = &loc.String
	}
	if start.Valid {
		t := start.Time
		p.StartTime = &t
	}
	if end.Valid {
		t := end.Time
		p.EndTime = &t
	}
	return &p, nil
}

// Create inserts a draft party and sets its ID and timestamps.
func (r *PartyRepo) Create(ctx context.Context, p *model.Party) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO parties (name, description, date, start_time, end_time, location, is_active, is_closed, created_by)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Description, p.Date, p.StartTime, p.EndTime, p.Location, p.IsActive, p.IsClosed, p.CreatedBy)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

// GetByID fetches a party with its stats snapshot when present.
func (r *PartyRepo) GetByID(ctx context.Context, id uint64) (*model.Party, error) {
	p, err := scanParty(r.q.QueryRowContext(ctx,
		"SELECT "+partyColumns+" FROM parties WHERE id=? LIMIT 1", id))
	if err != nil {
		return nil, translate(err)
	}
	stats, err := r.GetStats(ctx, id)
	switch {
	case err == nil:
		p.Stats = stats
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	return p, nil
}

// GetActive fetches the party that is active and not closed.
func (r *PartyRepo) GetActive(ctx context.Context) (*model.Party, error) {
	p, err := scanParty(r.q.QueryRowContext(ctx,
		"SELECT "+partyColumns+" FROM parties WHERE is_active=1 AND is_closed=0 LIMIT 1"))
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// List returns every party, newest date first.
func (r *PartyRepo) List(ctx context.Context) ([]model.Party, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+partyColumns+" FROM parties ORDER BY date DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Party{}
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Update writes the descriptive columns. Lifecycle flags go through
// SetState and DeactivateAll.
func (r *PartyRepo) Update(ctx context.Context, p *model.Party) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE parties SET name=?, description=?, date=?, start_time=?, end_time=?, location=?, updated_at=UTC_TIMESTAMP(3)
		 WHERE id=?`,
		p.Name, p.Description, p.Date, p.StartTime, p.EndTime, p.Location, p.ID)
	if err != nil {
		return translate(err)
	}
	return expectRow(res)
}

// DeactivateAll clears the active flag of every party.
func (r *PartyRepo) DeactivateAll(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE parties SET is_active=0, updated_at=UTC_TIMESTAMP(3) WHERE is_active=1")
	return err
}

// SetState writes the lifecycle flags. A nil endTime leaves end_time as is.
func (r *PartyRepo) SetState(ctx context.Context, id uint64, active, closed bool, endTime *time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE parties SET is_active=?, is_closed=?, end_time=COALESCE(?, end_time), updated_at=UTC_TIMESTAMP(3)
		 WHERE id=?`,
		active, closed, endTime, id)
	if err != nil {
		return translate(err)
	}
	return expectRow(res)
}

// Delete removes a party with its tickets. The stats row cascades and log
// rows keep a NULL party reference. Call it inside a transaction.
func (r *PartyRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM tickets WHERE party_id=?", id); err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, "DELETE FROM parties WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// GetStats fetches the stats snapshot of a party.
func (r *PartyRepo) GetStats(ctx context.Context, partyID uint64) (*model.PartyStats, error) {
	var s model.PartyStats
	err := r.q.QueryRowContext(ctx,
		`SELECT party_id, total_students, total_guests, total_tickets, members_count,
		        non_members_count, peak_attendance, updated_at
		   FROM party_stats WHERE party_id=?`, partyID).
		Scan(&s.PartyID, &s.TotalStudents, &s.TotalGuests, &s.TotalTickets,
			&s.MembersCount, &s.NonMembersCount, &s.PeakAttendance, &s.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// UpsertStats writes the snapshot, creating the row when missing.
func (r *PartyRepo) UpsertStats(ctx context.Context, s *model.PartyStats) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO party_stats (party_id, total_students, total_guests, total_tickets, members_count,
		                          non_members_count, peak_attendance, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		   total_students=VALUES(total_students), total_guests=VALUES(total_guests),
		   total_tickets=VALUES(total_tickets), members_count=VALUES(members_count),
		   non_members_count=VALUES(non_members_count), peak_attendance=VALUES(peak_attendance),
		   updated_at=VALUES(updated_at)`,
		s.PartyID, s.TotalStudents, s.TotalGuests, s.TotalTickets, s.MembersCount,
		s.NonMembersCount, s.PeakAttendance, s.UpdatedAt)
	return translate(err)
}
