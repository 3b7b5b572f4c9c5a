package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/repository"
)

type studentRepo struct{ s *Store }

func sortStudents(out []model.Student) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
}

func (r studentRepo) List(ctx context.Context, search string) ([]model.Student, error) {
	search = strings.ToLower(strings.TrimSpace(search))
	out := []model.Student{}
	err := r.s.do(ctx, func(st *state) error {
		for _, s := range st.students {
			if search != "" &&
				!strings.Contains(strings.ToLower(s.LastName), search) &&
				!strings.Contains(strings.ToLower(s.FirstName), search) &&
				!strings.HasPrefix(strconv.FormatUint(s.StudentID, 10), search) {
				continue
			}
			out = append(out, s)
		}
		return nil
	})
	sortStudents(out)
	return out, err
}

func (r studentRepo) GetByID(ctx context.Context, id uint64) (*model.Student, error) {
	var out *model.Student
	err := r.s.do(ctx, func(st *state) error {
		s, ok := st.students[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

func (r studentRepo) GetByStudentNumber(ctx context.Context, number uint64) (*model.Student, error) {
	var out *model.Student
	err := r.s.do(ctx, func(st *state) error {
		for _, s := range st.students {
			if s.StudentID == number {
				out = &s
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r studentRepo) ListByIDs(ctx context.Context, ids []uint64) ([]model.Student, error) {
	out := []model.Student{}
	err := r.s.do(ctx, func(st *state) error {
		for _, id := range ids {
			if s, ok := st.students[id]; ok {
				out = append(out, s)
			}
		}
		return nil
	})
	return out, err
}

func (r studentRepo) Create(ctx context.Context, s *model.Student) error {
	return r.s.do(ctx, func(st *state) error {
		for _, existing := range st.students {
			if existing.StudentID == s.StudentID {
				return repository.ErrDuplicate
			}
		}
		s.ID = st.nextID()
		st.students[s.ID] = *s
		return nil
	})
}

func (r studentRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.s.do(ctx, func(st *state) error {
		n = len(st.students)
		return nil
	})
	return n, err
}

type guestRepo struct{ s *Store }

func (r guestRepo) List(ctx context.Context) ([]model.Guest, error) {
	out := []model.Guest{}
	err := r.s.do(ctx, func(st *state) error {
		for _, g := range st.guests {
			g.GuarantorID = copyID(g.GuarantorID)
			if g.GuarantorID != nil {
				if s, ok := st.students[*g.GuarantorID]; ok {
					g.Guarantor = &s
				}
			}
			out = append(out, g)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, err
}

func (r guestRepo) GetByID(ctx context.Context, id uint64) (*model.Guest, error) {
	var out *model.Guest
	err := r.s.do(ctx, func(st *state) error {
		g, ok := st.guests[id]
		if !ok {
			return repository.ErrNotFound
		}
		g.GuarantorID = copyID(g.GuarantorID)
		out = &g
		return nil
	})
	return out, err
}

func (r guestRepo) Create(ctx context.Context, g *model.Guest) error {
	return r.s.do(ctx, func(st *state) error {
		if g.GuarantorID != nil {
			if _, ok := st.students[*g.GuarantorID]; !ok {
				return repository.ErrNotFound
			}
		}
		g.ID = st.nextID()
		row := model.Guest{ID: g.ID, LastName: g.LastName, FirstName: g.FirstName, GuarantorID: copyID(g.GuarantorID)}
		st.guests[g.ID] = row
		return nil
	})
}

func (r guestRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.s.do(ctx, func(st *state) error {
		n = len(st.guests)
		return nil
	})
	return n, err
}
