package service

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/party-logger/internal/metrics"
	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/queue"
	"github.com/iliyamo/party-logger/internal/repository"
)

// TicketManager drives the ticket state machine
// NoTicket -> Present -> Exited, with deletion from either state. Every
// transition runs in one transaction together with its audit log row.
// Tickets are scoped to the active party, or to the "no party" bucket when
// none is active.
type TicketManager struct {
	store  repository.Store
	logger *log.Logger
	now    Clock
	events EventPublisher
}

// NewTicketManager returns a TicketManager. A nil events publisher drops
// events.
func NewTicketManager(store repository.Store, logger *log.Logger, now Clock, events EventPublisher) *TicketManager {
	if events == nil {
		events = NopPublisher{}
	}
	return &TicketManager{store: store, logger: logger, now: now, events: events}
}

// holder is a resolved subject inside a transaction.
type holder struct {
	key  model.TicketKey
	name string
}

// resolve maps a subject to its row id and the current party scope.
func resolve(ctx context.Context, tx repository.Store, subj model.Subject) (holder, error) {
	if !subj.Type.Valid() {
		return holder{}, validation("unknown subject type %q", subj.Type)
	}
	if subj.ID == 0 {
		return holder{}, validation("missing %s id", subj.Type)
	}

	var h holder
	party, err := tx.Parties().GetActive(ctx)
	switch {
	case err == nil:
		h.key.PartyID = &party.ID
	case !isNotFound(err):
		return holder{}, unexpected("load active party", err)
	}

	switch subj.Type {
	case model.SubjectStudent:
		s, err := tx.Students().GetByStudentNumber(ctx, subj.ID)
		if isNotFound(err) {
			return holder{}, notFound("student %d not found", subj.ID)
		}
		if err != nil {
			return holder{}, unexpected("load student", err)
		}
		h.key.StudentID = &s.ID
		h.name = model.FullName(s.FirstName, s.LastName)
	case model.SubjectGuest:
		g, err := tx.Guests().GetByID(ctx, subj.ID)
		if isNotFound(err) {
			return holder{}, notFound("guest %d not found", subj.ID)
		}
		if err != nil {
			return holder{}, unexpected("load guest", err)
		}
		h.key.GuestID = &g.ID
		h.name = model.FullName(g.FirstName, g.LastName)
	}
	return h, nil
}

func (m *TicketManager) findTicket(ctx context.Context, tx repository.Store, subj model.Subject) (holder, *model.Ticket, error) {
	h, err := resolve(ctx, tx, subj)
	if err != nil {
		return holder{}, nil, err
	}
	t, err := tx.Tickets().Find(ctx, h.key)
	if isNotFound(err) {
		return holder{}, nil, notFound("no ticket for %s %d", subj.Type, subj.ID)
	}
	if err != nil {
		return holder{}, nil, unexpected("find ticket", err)
	}
	return h, t, nil
}

func appendLog(ctx context.Context, tx repository.Store, t *model.Ticket, action model.LogAction, at time.Time) error {
	l := &model.Log{StudentID: t.StudentID, GuestID: t.GuestID, PartyID: t.PartyID, Action: action, Timestamp: at}
	if err := tx.Logs().Append(ctx, l); err != nil {
		return unexpected("append log", err)
	}
	return nil
}

// createIn issues a ticket inside an open transaction.
func (m *TicketManager) createIn(ctx context.Context, tx repository.Store, subj model.Subject) (*model.Ticket, string, error) {
	h, err := resolve(ctx, tx, subj)
	if err != nil {
		return nil, "", err
	}
	if _, err := tx.Tickets().Find(ctx, h.key); err == nil {
		return nil, "", conflict("%s already has a ticket", h.name)
	} else if !isNotFound(err) {
		return nil, "", unexpected("find ticket", err)
	}

	now := stamp(m.now)
	t := &model.Ticket{
		StudentID: h.key.StudentID,
		GuestID:   h.key.GuestID,
		PartyID:   h.key.PartyID,
		CreatedAt: now,
		EntryAt:   now,
		ExitAt:    now,
	}
	if err := tx.Tickets().Create(ctx, t); err != nil {
		if isDuplicate(err) {
			return nil, "", conflict("%s already has a ticket", h.name)
		}
		return nil, "", unexpected("create ticket", err)
	}
	if err := appendLog(ctx, tx, t, model.ActionEntry, now); err != nil {
		return nil, "", err
	}
	return t, h.name, nil
}

// Create issues a ticket for subj in the current scope and records its
// entry. The holder is present from now on.
func (m *TicketManager) Create(ctx context.Context, subj model.Subject) (*model.Ticket, error) {
	var (
		t    *model.Ticket
		name string
	)
	err := m.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		t, name, err = m.createIn(ctx, tx, subj)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.committed(ctx, model.ActionEntry, subj, t, name, t.EntryAt)
	return t, nil
}

// RecordExit marks the holder of subj as gone. Leaving twice is a
// conflict. The exit time is strictly after the entry time.
func (m *TicketManager) RecordExit(ctx context.Context, subj model.Subject) (*model.Ticket, error) {
	var (
		t    *model.Ticket
		name string
	)
	err := m.store.WithTx(ctx, func(tx repository.Store) error {
		h, found, err := m.findTicket(ctx, tx, subj)
		if err != nil {
			return err
		}
		if !found.Present() {
			return conflict("%s already left", h.name)
		}
		exit := stamp(m.now)
		if !exit.After(found.EntryAt) {
			exit = found.EntryAt.Add(time.Millisecond)
		}
		if err := tx.Tickets().SetExit(ctx, found.ID, exit); err != nil {
			return unexpected("set exit", err)
		}
		found.ExitAt = exit
		if err := appendLog(ctx, tx, found, model.ActionExit, exit); err != nil {
			return err
		}
		t, name = found, h.name
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.committed(ctx, model.ActionExit, subj, t, name, t.ExitAt)
	return t, nil
}

// Delete removes the ticket of subj in the current scope.
func (m *TicketManager) Delete(ctx context.Context, subj model.Subject) error {
	var (
		t    *model.Ticket
		name string
		at   time.Time
	)
	err := m.store.WithTx(ctx, func(tx repository.Store) error {
		h, found, err := m.findTicket(ctx, tx, subj)
		if err != nil {
			return err
		}
		if err := tx.Tickets().Delete(ctx, found.ID); err != nil {
			return unexpected("delete ticket", err)
		}
		at = stamp(m.now)
		if err := appendLog(ctx, tx, found, model.ActionDeleteTicket, at); err != nil {
			return err
		}
		t, name = found, h.name
		return nil
	})
	if err != nil {
		return err
	}
	m.committed(ctx, model.ActionDeleteTicket, subj, t, name, at)
	return nil
}

// Get returns the ticket of subj in the current scope.
func (m *TicketManager) Get(ctx context.Context, subj model.Subject) (*model.Ticket, error) {
	var t *model.Ticket
	err := m.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		_, t, err = m.findTicket(ctx, tx, subj)
		return err
	})
	return t, err
}

// committed runs the post-commit side effects: the transition counter and
// a best-effort broker event that never blocks the request.
func (m *TicketManager) committed(ctx context.Context, action model.LogAction, subj model.Subject, t *model.Ticket, name string, at time.Time) {
	metrics.TicketTransitions.WithLabelValues(string(action), string(subj.Type)).Inc()

	ev := queue.TicketEvent{
		TicketID:    t.ID,
		Action:      string(action),
		SubjectType: string(subj.Type),
		SubjectID:   subj.ID,
		DisplayName: name,
		PartyID:     t.PartyID,
		OccurredAt:  at.UTC().Format(time.RFC3339Nano),
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		pctx, cancel := context.WithTimeout(bg, 5*time.Second)
		defer cancel()
		if err := m.events.PublishTicketEvent(pctx, ev); err != nil {
			metrics.EventPublishFailures.Inc()
			m.logger.Warnf("ticket: event %s for ticket %d dropped: %v", ev.Action, ev.TicketID, err)
		}
	}()
}
