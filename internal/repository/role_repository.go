package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/party-logger/internal/model"
)

// RoleRepo is the MySQL RoleRepository.
type RoleRepo struct{ q Querier }

// NewRoleRepo returns a RoleRepo bound to q.
func NewRoleRepo(q Querier) *RoleRepo { return &RoleRepo{q: q} }

func (r *RoleRepo) permissionsOf(ctx context.Context, roleID uint64) ([]model.Permission, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT p.id, p.name, p.description
		   FROM role_permissions rp
		   JOIN permissions p ON p.id = rp.permission_id
		  WHERE rp.role_id = ?
		  ORDER BY p.id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	perms := []model.Permission{}
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *RoleRepo) getBy(ctx context.Context, where string, arg any) (*model.Role, error) {
	var role model.Role
	err := r.q.QueryRowContext(ctx,
		"SELECT id, name, description FROM roles WHERE "+where+" LIMIT 1", arg).
		Scan(&role.ID, &role.Name, &role.Description)
	if err != nil {
		return nil, translate(err)
	}
	if role.Permissions, err = r.permissionsOf(ctx, role.ID); err != nil {
		return nil, err
	}
	return &role, nil
}

// GetByID fetches a role with its permissions.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (*model.Role, error) {
	return r.getBy(ctx, "id=?", id)
}

// GetByName fetches a role with its permissions.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (*model.Role, error) {
	return r.getBy(ctx, "name=?", name)
}

// List returns every role with its permissions.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT id, name, description FROM roles ORDER BY id")
	if err != nil {
		return nil, err
	}
	roles, err := scanRoles(rows)
	if err != nil {
		return nil, err
	}
	for i := range roles {
		if roles[i].Permissions, err = r.permissionsOf(ctx, roles[i].ID); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// scanRoles drains rows before the caller issues the per-role permission
// queries.
func scanRoles(rows *sql.Rows) ([]model.Role, error) {
	defer rows.Close()
	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func scanIDs(rows *sql.Rows) ([]any, error) {
	defer rows.Close()
	var ids []any
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Create inserts a role without permissions.
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) error {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO roles (name, description) VALUES (?,?)", role.Name, role.Description)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	role.ID = uint64(id)
	return nil
}

// ListPermissions returns the whole catalog.
func (r *RoleRepo) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT id, name, description FROM permissions ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []model.Permission
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// EnsurePermission inserts p by name if missing and loads its id.
func (r *RoleRepo) EnsurePermission(ctx context.Context, p *model.Permission) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT IGNORE INTO permissions (name, description) VALUES (?,?)", p.Name, p.Description)
	if err != nil {
		return err
	}
	return r.q.QueryRowContext(ctx, "SELECT id FROM permissions WHERE name=?", p.Name).Scan(&p.ID)
}

// SetPermissions replaces the permission set of a role.
func (r *RoleRepo) SetPermissions(ctx context.Context, roleID uint64, names []string) error {
	var exists int
	if err := r.q.QueryRowContext(ctx, "SELECT 1 FROM roles WHERE id=?", roleID).Scan(&exists); err != nil {
		return translate(err)
	}
	var ids []any
	if len(names) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
		args := make([]any, 0, len(names))
		for _, n := range names {
			args = append(args, n)
		}
		rows, err := r.q.QueryContext(ctx,
			"SELECT id FROM permissions WHERE name IN ("+placeholders+")", args...)
		if err != nil {
			return err
		}
		if ids, err = scanIDs(rows); err != nil {
			return err
		}
		if len(ids) != len(uniqueStrings(names)) {
			return ErrNotFound
		}
	}

	if _, err := r.q.ExecContext(ctx, "DELETE FROM role_permissions WHERE role_id=?", roleID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	query := "INSERT INTO role_permissions (role_id, permission_id) VALUES "
	args := make([]any, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, roleID, id)
	}
	_, err := r.q.ExecContext(ctx, query, args...)
	return err
}

func uniqueStrings(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		out[s] = struct{}{}
	}
	return out
}
