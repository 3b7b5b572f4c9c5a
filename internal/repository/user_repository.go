package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/party-logger/internal/model"
)

// UserRepo is the MySQL UserRepository.
type UserRepo struct{ q Querier }

// NewUserRepo returns a UserRepo bound to q.
func NewUserRepo(q Querier) *UserRepo { return &UserRepo{q: q} }

const userColumns = "id, username, email, password_hash, first_name, last_name, role_id, is_active, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName,
		&u.LastName, &u.RoleID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// attachRoles loads each distinct role once and links it to the users.
func (r *UserRepo) attachRoles(ctx context.Context, users ...*model.User) error {
	roles := NewRoleRepo(r.q)
	cache := make(map[uint64]*model.Role)
	for _, u := range users {
		role, ok := cache[u.RoleID]
		if !ok {
			var err error
			role, err = roles.GetByID(ctx, u.RoleID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			cache[u.RoleID] = role
		}
		u.Role = role
	}
	return nil
}

// Create inserts u and sets its ID and timestamps. Username and email are
// stored trimmed, the email lowercased.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, first_name, last_name, role_id, is_active)
		 VALUES (?,?,?,?,?,?,?)`,
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.RoleID, u.IsActive)
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
	*u = *created
	return nil
}

// GetByID fetches a user by id with role and permissions.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if err != nil {
		return nil, translate(err)
	}
	if err := r.attachRoles(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByLogin fetches a user whose username or email equals login.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	login = strings.TrimSpace(login)
	u, err := scanUser(r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? OR email=? LIMIT 1",
		login, strings.ToLower(login)))
	if err != nil {
		return nil, translate(err)
	}
	if err := r.attachRoles(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns every user ordered by username.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ptrs []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachRoles(ctx, ptrs...); err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(ptrs))
	for _, u := range ptrs {
		out = append(out, *u)
	}
	return out, nil
}

// Count returns the number of users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// Update writes the mutable profile columns of u.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET username=?, email=?, first_name=?, last_name=?, role_id=?, is_active=?, updated_at=UTC_TIMESTAMP(3)
		 WHERE id=?`,
		strings.TrimSpace(u.Username), strings.ToLower(strings.TrimSpace(u.Email)),
		u.FirstName, u.LastName, u.RoleID, u.IsActive, u.ID)
	if err != nil {
		return translate(err)
	}
	return expectRow(res)
}

// UpdatePassword replaces the stored bcrypt hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.q.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=UTC_TIMESTAMP(3) WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// Delete removes the user; sessions cascade.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectRow(res)
}
