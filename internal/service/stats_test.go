package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iliyamo/party-logger/internal/metrics"
	"github.com/iliyamo/party-logger/internal/model"
)

func TestTicketsByHour(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, 1, "A", "B", false)
	e.addStudent(t, 2, "C", "D", false)
	e.addStudent(t, 3, "E", "F", false)
	stu := func(n uint64) model.Subject { return model.Subject{Type: model.SubjectStudent, ID: n} }

	// before any party: counted by ScopeAll only
	e.tickets.Create(e.ctx, stu(1))

	if got := e.stats.TicketsByHour(e.ctx, ScopeActiveParty); len(got) != 0 {
		t.Fatalf("histogram without active party = %v, want empty", got)
	}

	p := e.addParty(t, "Gala")
	e.parties.Activate(e.ctx, p.ID)
	e.tickets.Create(e.ctx, stu(2))
	e.clock.Advance(time.Hour)
	e.tickets.Create(e.ctx, stu(3))

	if got := e.stats.TicketsByHour(e.ctx, ScopeActiveParty); got[21] != 1 || got[22] != 1 || len(got) != 2 {
		t.Fatalf("party histogram = %v", got)
	}
	if got := e.stats.TicketsByHour(e.ctx, ScopeAll); got[21] != 2 || got[22] != 1 {
		t.Fatalf("global histogram = %v", got)
	}
}

func TestAttendance(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, 1, "A", "B", false)
	e.addStudent(t, 2, "C", "D", false)
	e.guests.Create(e.ctx, GuestInput{LastName: "G", FirstName: "H"})

	got := e.stats.Attendance(e.ctx)
	if got.PartyID != nil || got.StudentsCount != 2 || got.GuestsCount != 1 || got.StudentsWithTicket != 0 {
		t.Fatalf("attendance without party = %+v", got)
	}

	p := e.addParty(t, "Gala")
	e.parties.Activate(e.ctx, p.ID)
	e.tickets.Create(e.ctx, model.Subject{Type: model.SubjectStudent, ID: 1})
	e.guests.CreateAndAdmit(e.ctx, GuestInput{LastName: "I", FirstName: "J"})
	e.clock.Advance(time.Minute)
	e.tickets.RecordExit(e.ctx, model.Subject{Type: model.SubjectStudent, ID: 1})

	got = e.stats.Attendance(e.ctx)
	want := Attendance{PartyID: &p.ID, StudentsWithTicket: 1, StudentsCount: 2, GuestsWithTicket: 1, GuestsCount: 2, Present: 1}
	if got.PartyID == nil || *got.PartyID != p.ID {
		t.Fatalf("attendance party = %v", got.PartyID)
	}
	got.PartyID = want.PartyID
	if got != want {
		t.Fatalf("attendance = %+v, want %+v", got, want)
	}
}

func TestPartyReport(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, 1, "A", "B", false)
	p := e.addParty(t, "Gala")
	e.parties.Activate(e.ctx, p.ID)
	e.tickets.Create(e.ctx, model.Subject{Type: model.SubjectStudent, ID: 1})
	e.guests.CreateAndAdmit(e.ctx, GuestInput{LastName: "I", FirstName: "J"})

	r := e.stats.PartyReport(e.ctx, p.ID)
	if r.TotalTickets != 2 || r.StudentTickets != 1 || r.GuestTickets != 1 || r.PresentStudents != 1 || r.PresentGuests != 1 {
		t.Fatalf("report = %+v", r)
	}
	if r.TicketsByHour[21] != 2 {
		t.Fatalf("report histogram = %v", r.TicketsByHour)
	}
	if empty := e.stats.PartyReport(e.ctx, 9999); empty.TotalTickets != 0 || empty.TicketsByHour == nil {
		t.Fatalf("unknown party report = %+v", empty)
	}
}

func TestStatsFailSoft(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, 1, "A", "B", false)
	p := e.addParty(t, "Gala")
	e.parties.Activate(e.ctx, p.ID)
	e.tickets.Create(e.ctx, model.Subject{Type: model.SubjectStudent, ID: 1})

	agg := NewStatsAggregator(brokenStore{e.store}, e.logger, time.UTC)
	before := testutil.ToFloat64(metrics.StatsSoftFailures.WithLabelValues("tickets_by_hour"))

	if got := agg.TicketsByHour(e.ctx, ScopeAll); len(got) != 0 {
		t.Fatalf("histogram on failure = %v, want empty", got)
	}
	if got := agg.Attendance(e.ctx); got != (Attendance{}) {
		t.Fatalf("attendance on failure = %+v, want zero", got)
	}
	if got := agg.PartyReport(e.ctx, p.ID); got.TotalTickets != 0 {
		t.Fatalf("report on failure = %+v", got)
	}

	after := testutil.ToFloat64(metrics.StatsSoftFailures.WithLabelValues("tickets_by_hour"))
	if after != before+1 {
		t.Fatalf("soft failure counter moved by %v, want 1", after-before)
	}
}

func TestTrackDegraded(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, 1, "A", "B", false)
	if _, err := e.tickets.Create(e.ctx, model.Subject{Type: model.SubjectStudent, ID: 1}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ctx, degraded := TrackDegraded(e.ctx)
	if got := e.stats.TicketsByHour(ctx, ScopeAll); len(got) != 1 {
		t.Fatalf("histogram = %v, want one hour", got)
	}
	if degraded() {
		t.Fatal("healthy read flagged as degraded")
	}

	agg := NewStatsAggregator(brokenStore{e.store}, e.logger, time.UTC)
	ctx, degraded = TrackDegraded(e.ctx)
	agg.TicketsByHour(ctx, ScopeAll)
	if !degraded() {
		t.Fatal("failed read not flagged as degraded")
	}

	// untracked contexts still fail soft
	if got := agg.TicketsByHour(e.ctx, ScopeAll); len(got) != 0 {
		t.Fatalf("histogram on failure = %v, want empty", got)
	}
}
