package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/party-logger/internal/metrics"
	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/repository"
)

// HourScope selects the tickets fed into TicketsByHour.
type HourScope string

const (
	// ScopeActiveParty restricts the histogram to the active party. With
	// no active party the histogram is empty.
	ScopeActiveParty HourScope = "party"
	// ScopeAll counts every ticket ever issued.
	ScopeAll HourScope = "all"
)

// Attendance compares ticket holders of the active party against the
// registered population.
type Attendance struct {
	PartyID            *uint64 `json:"partyId"`
	StudentsWithTicket int     `json:"studentsWithTicket"`
	StudentsCount      int     `json:"studentsCount"`
	GuestsWithTicket   int     `json:"guestsWithTicket"`
	GuestsCount        int     `json:"guestsCount"`
	Present            int     `json:"present"`
}

// PartyReport is the detail view of one party.
type PartyReport struct {
	PartyID         uint64      `json:"partyId"`
	TotalTickets    int         `json:"totalTickets"`
	StudentTickets  int         `json:"studentTickets"`
	GuestTickets    int         `json:"guestTickets"`
	PresentStudents int         `json:"presentStudents"`
	PresentGuests   int         `json:"presentGuests"`
	TicketsByHour   map[int]int `json:"ticketsByHour"`
}

// StatsAggregator derives read-only figures from tickets. Every operation
// fails soft: a store error is logged, counted in
// partylogger_stats_soft_failures_total and answered with empty data.
type StatsAggregator struct {
	store  repository.Store
	logger *log.Logger
	loc    *time.Location
}

// NewStatsAggregator returns an aggregator bucketing hours in loc (the
// server's local zone when nil).
func NewStatsAggregator(store repository.Store, logger *log.Logger, loc *time.Location) *StatsAggregator {
	if loc == nil {
		loc = time.Local
	}
	return &StatsAggregator{store: store, logger: logger, loc: loc}
}

type degradedKey struct{}

// TrackDegraded returns a context that records soft failures of the
// aggregator, and a func reporting whether any occurred. Handlers use it
// to flag figures that are empty because a read failed.
func TrackDegraded(ctx context.Context) (context.Context, func() bool) {
	flag := new(atomic.Bool)
	return context.WithValue(ctx, degradedKey{}, flag), flag.Load
}

func (a *StatsAggregator) soft(ctx context.Context, op string, err error) {
	metrics.StatsSoftFailures.WithLabelValues(op).Inc()
	a.logger.Errorf("stats: %s failed: %v", op, err)
	if flag, ok := ctx.Value(degradedKey{}).(*atomic.Bool); ok {
		flag.Store(true)
	}
}

// activeParty returns the active party id, nil when none. ok is false when
// the lookup itself failed.
func (a *StatsAggregator) activeParty(ctx context.Context, op string) (id *uint64, ok bool) {
	p, err := a.store.Parties().GetActive(ctx)
	if err == nil {
		return &p.ID, true
	}
	if isNotFound(err) {
		return nil, true
	}
	a.soft(ctx, op, err)
	return nil, false
}

func (a *StatsAggregator) histogram(tickets []model.Ticket) map[int]int {
	hours := make(map[int]int)
	for _, t := range tickets {
		hours[t.CreatedAt.In(a.loc).Hour()]++
	}
	return hours
}

// TicketsByHour counts ticket creations per local hour (0-23). Hours
// without tickets are absent from the map.
func (a *StatsAggregator) TicketsByHour(ctx context.Context, scope HourScope) map[int]int {
	const op = "tickets_by_hour"
	var (
		tickets []model.Ticket
		err     error
	)
	switch scope {
	case ScopeAll:
		tickets, err = a.store.Tickets().ListAll(ctx)
	default:
		partyID, ok := a.activeParty(ctx, op)
		if !ok || partyID == nil {
			return map[int]int{}
		}
		tickets, err = a.store.Tickets().ListByParty(ctx, partyID)
	}
	if err != nil {
		a.soft(ctx, op, err)
		return map[int]int{}
	}
	return a.histogram(tickets)
}

// Attendance counts distinct ticket holders of the active party. Without
// an active party only the registered totals are filled in.
func (a *StatsAggregator) Attendance(ctx context.Context) Attendance {
	const op = "attendance"
	var out Attendance

	students, err := a.store.Students().Count(ctx)
	if err != nil {
		a.soft(ctx, op, err)
		return Attendance{}
	}
	guests, err := a.store.Guests().Count(ctx)
	if err != nil {
		a.soft(ctx, op, err)
		return Attendance{}
	}
	out.StudentsCount, out.GuestsCount = students, guests

	partyID, ok := a.activeParty(ctx, op)
	if !ok {
		return Attendance{}
	}
	if partyID == nil {
		return out
	}
	tickets, err := a.store.Tickets().ListByParty(ctx, partyID)
	if err != nil {
		a.soft(ctx, op, err)
		return Attendance{}
	}
	out.PartyID = partyID
	seenStudents := map[uint64]struct{}{}
	seenGuests := map[uint64]struct{}{}
	for _, t := range tickets {
		if t.StudentID != nil {
			seenStudents[*t.StudentID] = struct{}{}
		}
		if t.GuestID != nil {
			seenGuests[*t.GuestID] = struct{}{}
		}
		if t.Present() {
			out.Present++
		}
	}
	out.StudentsWithTicket = len(seenStudents)
	out.GuestsWithTicket = len(seenGuests)
	return out
}

// PartyReport summarizes the tickets of one party. An unknown party yields
// a report with zero counts.
func (a *StatsAggregator) PartyReport(ctx context.Context, partyID uint64) PartyReport {
	const op = "party_report"
	out := PartyReport{PartyID: partyID, TicketsByHour: map[int]int{}}
	tickets, err := a.store.Tickets().ListByParty(ctx, &partyID)
	if err != nil {
		a.soft(ctx, op, err)
		return out
	}
	out.TotalTickets = len(tickets)
	for _, t := range tickets {
		switch {
		case t.StudentID != nil:
			out.StudentTickets++
			if t.Present() {
				out.PresentStudents++
			}
		case t.GuestID != nil:
			out.GuestTickets++
			if t.Present() {
				out.PresentGuests++
			}
		}
	}
	out.TicketsByHour = a.histogram(tickets)
	return out
}
