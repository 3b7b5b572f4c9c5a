package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/repository"
)

type userRepo struct{ s *Store }

func (st *state) roleWithPermissions(id uint64) *model.Role {
	r, ok := st.roles[id]
	if !ok {
		return nil
	}
	r.Permissions = []model.Permission{}
	for _, pid := range sortedKeys(st.rolePerms[id]) {
		r.Permissions = append(r.Permissions, st.perms[pid])
	}
	return &r
}

func (st *state) loadUser(u model.User) *model.User {
	u.Role = st.roleWithPermissions(u.RoleID)
	return &u
}

func (st *state) userTaken(exceptID uint64, username, email string) bool {
	for id, u := range st.users {
		if id == exceptID {
			continue
		}
		if u.Username == username || u.Email == email {
			return true
		}
	}
	return false
}

func (r userRepo) Create(ctx context.Context, u *model.User) error {
	return r.s.do(ctx, func(st *state) error {
		u.Username = strings.TrimSpace(u.Username)
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		if st.userTaken(0, u.Username, u.Email) {
			return repository.ErrDuplicate
		}
		if _, ok := st.roles[u.RoleID]; !ok {
			return repository.ErrNotFound
		}
		now := r.s.now()
		row := *u
		row.ID = st.nextID()
		row.Role = nil
		row.CreatedAt, row.UpdatedAt = now, now
		st.users[row.ID] = row
		*u = *st.loadUser(row)
		return nil
	})
}

func (r userRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var out *model.User
	err := r.s.do(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = st.loadUser(u)
		return nil
	})
	return out, err
}

func (r userRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	login = strings.TrimSpace(login)
	email := strings.ToLower(login)
	var out *model.User
	err := r.s.do(ctx, func(st *state) error {
		for _, id := range sortedKeys(st.users) {
			u := st.users[id]
			if u.Username == login || u.Email == email {
				out = st.loadUser(u)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r userRepo) List(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := r.s.do(ctx, func(st *state) error {
		out = make([]model.User, 0, len(st.users))
		for _, u := range st.users {
			out = append(out, *st.loadUser(u))
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
		return nil
	})
	return out, err
}

func (r userRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.s.do(ctx, func(st *state) error {
		n = len(st.users)
		return nil
	})
	return n, err
}

func (r userRepo) Update(ctx context.Context, u *model.User) error {
	return r.s.do(ctx, func(st *state) error {
		row, ok := st.users[u.ID]
		if !ok {
			return repository.ErrNotFound
		}
		username := strings.TrimSpace(u.Username)
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if st.userTaken(u.ID, username, email) {
			return repository.ErrDuplicate
		}
		if _, ok := st.roles[u.RoleID]; !ok {
			return repository.ErrNotFound
		}
		row.Username, row.Email = username, email
		row.FirstName, row.LastName = u.FirstName, u.LastName
		row.RoleID, row.IsActive = u.RoleID, u.IsActive
		row.UpdatedAt = r.s.now()
		st.users[row.ID] = row
		return nil
	})
}

func (r userRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return r.s.do(ctx, func(st *state) error {
		row, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		row.PasswordHash = hash
		row.UpdatedAt = r.s.now()
		st.users[id] = row
		return nil
	})
}

func (r userRepo) Delete(ctx context.Context, id uint64) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.users, id)
		for token, sess := range st.sessions {
			if sess.UserID == id {
				delete(st.sessions, token)
			}
		}
		return nil
	})
}

type roleRepo struct{ s *Store }

func (r roleRepo) List(ctx context.Context) ([]model.Role, error) {
	var out []model.Role
	err := r.s.do(ctx, func(st *state) error {
		for _, id := range sortedKeys(st.roles) {
			out = append(out, *st.roleWithPermissions(id))
		}
		return nil
	})
	return out, err
}

func (r roleRepo) GetByID(ctx context.Context, id uint64) (*model.Role, error) {
	var out *model.Role
	err := r.s.do(ctx, func(st *state) error {
		out = st.roleWithPermissions(id)
		if out == nil {
			return repository.ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r roleRepo) GetByName(ctx context.Context, name string) (*model.Role, error) {
	var out *model.Role
	err := r.s.do(ctx, func(st *state) error {
		for id, role := range st.roles {
			if role.Name == name {
				out = st.roleWithPermissions(id)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r roleRepo) Create(ctx context.Context, role *model.Role) error {
	return r.s.do(ctx, func(st *state) error {
		for _, existing := range st.roles {
			if existing.Name == role.Name {
				return repository.ErrDuplicate
			}
		}
		role.ID = st.nextID()
		st.roles[role.ID] = model.Role{ID: role.ID, Name: role.Name, Description: role.Description}
		return nil
	})
}

func (r roleRepo) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	var out []model.Permission
	err := r.s.do(ctx, func(st *state) error {
		for _, id := range sortedKeys(st.perms) {
			out = append(out, st.perms[id])
		}
		return nil
	})
	return out, err
}

func (r roleRepo) EnsurePermission(ctx context.Context, p *model.Permission) error {
	return r.s.do(ctx, func(st *state) error {
		for id, existing := range st.perms {
			if existing.Name == p.Name {
				p.ID = id
				return nil
			}
		}
		p.ID = st.nextID()
		st.perms[p.ID] = *p
		return nil
	})
}

func (r roleRepo) SetPermissions(ctx context.Context, roleID uint64, names []string) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.roles[roleID]; !ok {
			return repository.ErrNotFound
		}
		byName := make(map[string]uint64, len(st.perms))
		for id, p := range st.perms {
			byName[p.Name] = id
		}
		set := make(map[uint64]struct{}, len(names))
		for _, n := range names {
			id, ok := byName[n]
			if !ok {
				return repository.ErrNotFound
			}
			set[id] = struct{}{}
		}
		st.rolePerms[roleID] = set
		return nil
	})
}

type sessionRepo struct{ s *Store }

func (r sessionRepo) Create(ctx context.Context, sess *model.Session) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.sessions[sess.ID]; ok {
			return repository.ErrDuplicate
		}
		if _, ok := st.users[sess.UserID]; !ok {
			return repository.ErrNotFound
		}
		st.sessions[sess.ID] = *sess
		return nil
	})
}

func (r sessionRepo) Get(ctx context.Context, id string) (*model.Session, error) {
	var out *model.Session
	err := r.s.do(ctx, func(st *state) error {
		sess, ok := st.sessions[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &sess
		return nil
	})
	return out, err
}

func (r sessionRepo) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	return r.s.do(ctx, func(st *state) error {
		sess, ok := st.sessions[id]
		if !ok {
			return repository.ErrNotFound
		}
		sess.ExpiresAt = expiresAt
		st.sessions[id] = sess
		return nil
	})
}

func (r sessionRepo) Delete(ctx context.Context, id string) error {
	return r.s.do(ctx, func(st *state) error {
		delete(st.sessions, id)
		return nil
	})
}

func (r sessionRepo) DeleteByUser(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.s.do(ctx, func(st *state) error {
		for id, sess := range st.sessions {
			if sess.UserID == userID {
				delete(st.sessions, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r sessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.do(ctx, func(st *state) error {
		for id, sess := range st.sessions {
			if sess.Expired(now) {
				delete(st.sessions, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
