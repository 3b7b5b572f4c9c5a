package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/party-logger/internal/model"
)

// LogRepo is the append-only audit log.
type LogRepo struct{ q Querier }

// NewLogRepo returns a LogRepo bound to q.
func NewLogRepo(q Querier) *LogRepo { return &LogRepo{q: q} }

// Append inserts a log row and sets its ID.
func (r *LogRepo) Append(ctx context.Context, l *model.Log) error {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO logs (student_id, guest_id, party_id, action, timestamp) VALUES (?,?,?,?,?)",
		l.StudentID, l.GuestID, l.PartyID, string(l.Action), l.Timestamp)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// List returns log entries newest first with students and guests joined.
func (r *LogRepo) List(ctx context.Context, f LogFilter) ([]model.LogEntry, error) {
	query := `SELECT l.id, l.student_id, l.guest_id, l.party_id, l.action, l.timestamp,
	                 s.student_id, s.last_name, s.first_name, s.speciality, s.is_member,
	                 g.last_name, g.first_name, g.guarantor_id
	            FROM logs l
	            LEFT JOIN students s ON s.id = l.student_id
	            LEFT JOIN guests g ON g.id = l.guest_id`
	var args []any
	if f.PartyID != nil {
		query += " WHERE l.party_id = ?"
		args = append(args, *f.PartyID)
	}
	query += " ORDER BY l.timestamp DESC, l.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.LogEntry{}
	for rows.Next() {
		var (
			e                    model.LogEntry
			studentID, guestID   sql.NullInt64
			partyID, sNum        sql.NullInt64
			action               string
			sLast, sFirst, sSpec sql.NullString
			sMember              sql.NullBool
			gLast, gFirst        sql.NullString
			gGuarantor           sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &studentID, &guestID, &partyID, &action, &e.Timestamp,
			&sNum, &sLast, &sFirst, &sSpec, &sMember,
			&gLast, &gFirst, &gGuarantor); err != nil {
			return nil, err
		}
		e.Action = model.LogAction(action)
		e.StudentID = nullID(studentID)
		e.GuestID = nullID(guestID)
		e.PartyID = nullID(partyID)
		if e.StudentID != nil && sNum.Valid {
			e.Student = &model.Student{
				ID:         *e.StudentID,
				StudentID:  uint64(sNum.Int64),
				LastName:   sLast.String,
				FirstName:  sFirst.String,
				Speciality: sSpec.String,
				IsMember:   sMember.Bool,
			}
		}
		if e.GuestID != nil && gLast.Valid {
			e.Guest = &model.Guest{
				ID:          *e.GuestID,
				LastName:    gLast.String,
				FirstName:   gFirst.String,
				GuarantorID: nullID(gGuarantor),
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
