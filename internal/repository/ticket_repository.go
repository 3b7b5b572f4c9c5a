package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/party-logger/internal/model"
)

// TicketRepo is the MySQL TicketRepository. Uniqueness per holder and
// party scope is enforced by the schema (party_scope = IFNULL(party_id, 0)),
// so a concurrent duplicate insert surfaces as ErrDuplicate.
type TicketRepo struct{ q Querier }

// NewTicketRepo returns a TicketRepo bound to q.
func NewTicketRepo(q Querier) *TicketRepo { return &TicketRepo{q: q} }

const ticketColumns = "id, student_id, guest_id, party_id, created_at, entry_at, exit_at"

func scanTicket(row rowScanner) (*model.Ticket, error) {
	var (
		t                 model.Ticket
		student, guest, p sql.NullInt64
	)
	if err := row.Scan(&t.ID, &student, &guest, &p, &t.CreatedAt, &t.EntryAt, &t.ExitAt); err != nil {
		return nil, err
	}
	t.StudentID = nullID(student)
	t.GuestID = nullID(guest)
	t.PartyID = nullID(p)
	return &t, nil
}

func nullID(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}

// Find returns the ticket of one holder in one party scope.
func (r *TicketRepo) Find(ctx context.Context, key model.TicketKey) (*model.Ticket, error) {
	holderCol, holderID := "student_id", key.StudentID
	if key.GuestID != nil {
		holderCol, holderID = "guest_id", key.GuestID
	}
	if holderID == nil {
		return nil, ErrNotFound
	}
	var scope uint64
	if key.PartyID != nil {
		scope = *key.PartyID
	}
	t, err := scanTicket(r.q.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE "+holderCol+"=? AND party_scope=? LIMIT 1",
		*holderID, scope))
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

// Create inserts a ticket and sets its ID.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO tickets (student_id, guest_id, party_id, created_at, entry_at, exit_at) VALUES (?,?,?,?,?,?)",
		t.StudentID, t.GuestID, t.PartyID, t.CreatedAt, t.EntryAt, t.ExitAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// SetExit writes the exit time of a ticket.
func (r *TicketRepo) SetExit(ctx context.Context, id uint64, exitAt time.Time) error {
	res, err := r.q.ExecContext(ctx, "UPDATE tickets SET exit_at=? WHERE id=?", exitAt, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// Delete removes a ticket.
func (r *TicketRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM tickets WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *TicketRepo) list(ctx context.Context, query string, args ...any) ([]model.Ticket, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ListByParty returns the tickets of one party scope ordered by entry.
func (r *TicketRepo) ListByParty(ctx context.Context, partyID *uint64) ([]model.Ticket, error) {
	if partyID == nil {
		return r.list(ctx, "SELECT "+ticketColumns+" FROM tickets WHERE party_id IS NULL ORDER BY entry_at, id")
	}
	return r.list(ctx, "SELECT "+ticketColumns+" FROM tickets WHERE party_id=? ORDER BY entry_at, id", *partyID)
}

// ListAll returns every ticket ordered by entry.
func (r *TicketRepo) ListAll(ctx context.Context) ([]model.Ticket, error) {
	return r.list(ctx, "SELECT "+ticketColumns+" FROM tickets ORDER BY entry_at, id")
}
