package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/party-logger/internal/model"
)

// StudentRepo is the MySQL StudentRepository.
type StudentRepo struct{ q Querier }

// NewStudentRepo returns a StudentRepo bound to q.
func NewStudentRepo(q Querier) *StudentRepo { return &StudentRepo{q: q} }

const studentColumns = "id, student_id, last_name, first_name, speciality, is_member"

func scanStudents(rows *sql.Rows) ([]model.Student, error) {
	defer rows.Close()
	out := []model.Student{}
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.StudentID, &s.LastName, &s.FirstName, &s.Speciality, &s.IsMember); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// List returns students ordered by name, optionally filtered.
func (r *StudentRepo) List(ctx context.Context, search string) ([]model.Student, error) {
	search = strings.TrimSpace(search)
	if search == "" {
		rows, err := r.q.QueryContext(ctx,
			"SELECT "+studentColumns+" FROM students ORDER BY last_name, first_name")
		if err != nil {
			return nil, err
		}
		return scanStudents(rows)
	}
	like := "%" + search + "%"
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students
		  WHERE last_name LIKE ? OR first_name LIKE ? OR CAST(student_id AS CHAR) LIKE ?
		  ORDER BY last_name, first_name`,
		like, like, search+"%")
	if err != nil {
		return nil, err
	}
	return scanStudents(rows)
}

func (r *StudentRepo) getOne(ctx context.Context, where string, arg any) (*model.Student, error) {
	var s model.Student
	err := r.q.QueryRowContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE "+where+" LIMIT 1", arg).
		Scan(&s.ID, &s.StudentID, &s.LastName, &s.FirstName, &s.Speciality, &s.IsMember)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// GetByID fetches a student by row id.
func (r *StudentRepo) GetByID(ctx context.Context, id uint64) (*model.Student, error) {
	return r.getOne(ctx, "id=?", id)
}

// GetByStudentNumber fetches a student by the number on the card.
func (r *StudentRepo) GetByStudentNumber(ctx context.Context, number uint64) (*model.Student, error) {
	return r.getOne(ctx, "student_id=?", number)
}

// ListByIDs fetches the students with the given row ids. Unknown ids are
// skipped.
func (r *StudentRepo) ListByIDs(ctx context.Context, ids []uint64) ([]model.Student, error) {
	if len(ids) == 0 {
		return []model.Student{}, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	return scanStudents(rows)
}

// Create inserts a student; a taken student number yields ErrDuplicate.
func (r *StudentRepo) Create(ctx context.Context, s *model.Student) error {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO students (student_id, last_name, first_name, speciality, is_member) VALUES (?,?,?,?,?)",
		s.StudentID, s.LastName, s.FirstName, s.Speciality, s.IsMember)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// Count returns the number of registered students.
func (r *StudentRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM students").Scan(&n)
	return n, err
}
