package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/repository"
)

type partyRepo struct{ s *Store }

func copyParty(p model.Party) model.Party {
	p.Description = copyString(p.Description)
	p.Location = copyString(p.Location)
	p.StartTime = copyTime(p.StartTime)
	p.EndTime = copyTime(p.EndTime)
	p.Stats = nil
	return p
}

// activeSlotTaken mirrors the unique active_slot column.
func (st *state) activeSlotTaken(exceptID uint64) bool {
	for id, p := range st.parties {
		if id != exceptID && p.Current() {
			return true
		}
	}
	return false
}

func (r partyRepo) Create(ctx context.Context, p *model.Party) error {
	return r.s.do(ctx, func(st *state) error {
		if p.Current() && st.activeSlotTaken(0) {
			return repository.ErrDuplicate
		}
		now := r.s.now()
		row := copyParty(*p)
		row.ID = st.nextID()
		row.CreatedAt, row.UpdatedAt = now, now
		st.parties[row.ID] = row
		*p = copyParty(row)
		return nil
	})
}

func (r partyRepo) GetByID(ctx context.Context, id uint64) (*model.Party, error) {
	var out *model.Party
	err := r.s.do(ctx, func(st *state) error {
		p, ok := st.parties[id]
		if !ok {
			return repository.ErrNotFound
		}
		cp := copyParty(p)
		if s, ok := st.stats[id]; ok {
			cp.Stats = &s
		}
		out = &cp
		return nil
	})
	return out, err
}

func (r partyRepo) GetActive(ctx context.Context) (*model.Party, error) {
	var out *model.Party
	err := r.s.do(ctx, func(st *state) error {
		for _, p := range st.parties {
			if p.Current() {
				cp := copyParty(p)
				out = &cp
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r partyRepo) List(ctx context.Context) ([]model.Party, error) {
	out := []model.Party{}
	err := r.s.do(ctx, func(st *state) error {
		for _, p := range st.parties {
			out = append(out, copyParty(p))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r partyRepo) Update(ctx context.Context, p *model.Party) error {
	return r.s.do(ctx, func(st *state) error {
		row, ok := st.parties[p.ID]
		if !ok {
			return repository.ErrNotFound
		}
		row.Name = p.Name
		row.Description = copyString(p.Description)
		row.Date = p.Date
		row.StartTime = copyTime(p.StartTime)
		row.EndTime = copyTime(p.EndTime)
		row.Location = copyString(p.Location)
		row.UpdatedAt = r.s.now()
		st.parties[row.ID] = row
		return nil
	})
}

func (r partyRepo) DeactivateAll(ctx context.Context) error {
	return r.s.do(ctx, func(st *state) error {
		now := r.s.now()
		for id, p := range st.parties {
			if p.IsActive {
				p.IsActive = false
				p.UpdatedAt = now
				st.parties[id] = p
			}
		}
		return nil
	})
}

func (r partyRepo) SetState(ctx context.Context, id uint64, active, closed bool, endTime *time.Time) error {
	return r.s.do(ctx, func(st *state) error {
		row, ok := st.parties[id]
		if !ok {
			return repository.ErrNotFound
		}
		if active && !closed && st.activeSlotTaken(id) {
			return repository.ErrDuplicate
		}
		row.IsActive, row.IsClosed = active, closed
		if endTime != nil {
			row.EndTime = copyTime(endTime)
		}
		row.UpdatedAt = r.s.now()
		st.parties[id] = row
		return nil
	})
}

func (r partyRepo) Delete(ctx context.Context, id uint64) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.parties[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.parties, id)
		delete(st.stats, id)
		for tid, t := range st.tickets {
			if t.PartyID != nil && *t.PartyID == id {
				delete(st.tickets, tid)
			}
		}
		for i, l := range st.logs {
			if l.PartyID != nil && *l.PartyID == id {
				st.logs[i].PartyID = nil
			}
		}
		return nil
	})
}

func (r partyRepo) GetStats(ctx context.Context, partyID uint64) (*model.PartyStats, error) {
	var out *model.PartyStats
	err := r.s.do(ctx, func(st *state) error {
		s, ok := st.stats[partyID]
		if !ok {
			return repository.ErrNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

func (r partyRepo) UpsertStats(ctx context.Context, s *model.PartyStats) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.parties[s.PartyID]; !ok {
			return repository.ErrNotFound
		}
		st.stats[s.PartyID] = *s
		return nil
	})
}
