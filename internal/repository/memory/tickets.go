package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/repository"
)

type ticketRepo struct{ s *Store }

func copyTicket(t model.Ticket) model.Ticket {
	t.StudentID = copyID(t.StudentID)
	t.GuestID = copyID(t.GuestID)
	t.PartyID = copyID(t.PartyID)
	return t
}

func sameHolder(t model.Ticket, studentID, guestID *uint64) bool {
	if studentID != nil {
		return t.StudentID != nil && *t.StudentID == *studentID
	}
	if guestID != nil {
		return t.GuestID != nil && *t.GuestID == *guestID
	}
	return false
}

func (r ticketRepo) Find(ctx context.Context, key model.TicketKey) (*model.Ticket, error) {
	var out *model.Ticket
	err := r.s.do(ctx, func(st *state) error {
		for _, t := range st.tickets {
			if sameHolder(t, key.StudentID, key.GuestID) && model.SamePartyScope(t.PartyID, key.PartyID) {
				cp := copyTicket(t)
				out = &cp
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r ticketRepo) Create(ctx context.Context, t *model.Ticket) error {
	return r.s.do(ctx, func(st *state) error {
		if (t.StudentID == nil) == (t.GuestID == nil) {
			return repository.ErrNotFound
		}
		if t.StudentID != nil {
			if _, ok := st.students[*t.StudentID]; !ok {
				return repository.ErrNotFound
			}
		}
		if t.GuestID != nil {
			if _, ok := st.guests[*t.GuestID]; !ok {
				return repository.ErrNotFound
			}
		}
		for _, existing := range st.tickets {
			if sameHolder(existing, t.StudentID, t.GuestID) && model.SamePartyScope(existing.PartyID, t.PartyID) {
				return repository.ErrDuplicate
			}
		}
		t.ID = st.nextID()
		st.tickets[t.ID] = copyTicket(*t)
		return nil
	})
}

func (r ticketRepo) SetExit(ctx context.Context, id uint64, exitAt time.Time) error {
	return r.s.do(ctx, func(st *state) error {
		t, ok := st.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		t.ExitAt = exitAt
		st.tickets[id] = t
		return nil
	})
}

func (r ticketRepo) Delete(ctx context.Context, id uint64) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.tickets[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.tickets, id)
		return nil
	})
}

func (r ticketRepo) collect(ctx context.Context, keep func(model.Ticket) bool) ([]model.Ticket, error) {
	out := []model.Ticket{}
	err := r.s.do(ctx, func(st *state) error {
		for _, t := range st.tickets {
			if keep(t) {
				out = append(out, copyTicket(t))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryAt.Equal(out[j].EntryAt) {
			return out[i].EntryAt.Before(out[j].EntryAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r ticketRepo) ListByParty(ctx context.Context, partyID *uint64) ([]model.Ticket, error) {
	return r.collect(ctx, func(t model.Ticket) bool { return model.SamePartyScope(t.PartyID, partyID) })
}

func (r ticketRepo) ListAll(ctx context.Context) ([]model.Ticket, error) {
	return r.collect(ctx, func(model.Ticket) bool { return true })
}

type logRepo struct{ s *Store }

func (r logRepo) Append(ctx context.Context, l *model.Log) error {
	return r.s.do(ctx, func(st *state) error {
		l.ID = st.nextID()
		row := *l
		row.StudentID = copyID(l.StudentID)
		row.GuestID = copyID(l.GuestID)
		row.PartyID = copyID(l.PartyID)
		st.logs = append(st.logs, row)
		return nil
	})
}

func (r logRepo) List(ctx context.Context, f repository.LogFilter) ([]model.LogEntry, error) {
	out := []model.LogEntry{}
	err := r.s.do(ctx, func(st *state) error {
		for i := len(st.logs) - 1; i >= 0; i-- {
			l := st.logs[i]
			if f.PartyID != nil && !model.SamePartyScope(l.PartyID, f.PartyID) {
				continue
			}
			e := model.LogEntry{Log: l}
			e.StudentID, e.GuestID, e.PartyID = copyID(l.StudentID), copyID(l.GuestID), copyID(l.PartyID)
			if l.StudentID != nil {
				if s, ok := st.students[*l.StudentID]; ok {
					e.Student = &s
				}
			}
			if l.GuestID != nil {
				if g, ok := st.guests[*l.GuestID]; ok {
					g.GuarantorID = copyID(g.GuarantorID)
					e.Guest = &g
				}
			}
			out = append(out, e)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, err
}
