package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/queue"
	"github.com/iliyamo/party-logger/internal/repository"
)

func logsOf(t *testing.T, e *env) []model.LogEntry {
	t.Helper()
	entries, err := e.store.Logs().List(e.ctx, repository.LogFilter{})
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	return entries
}

func countActions(entries []model.LogEntry) map[model.LogAction]int {
	out := map[model.LogAction]int{}
	for _, l := range entries {
		out[l.Action]++
	}
	return out
}

func TestTicketLifecycle(t *testing.T) {
	e := newEnv(t)
	st := e.addStudent(t, 12345, "Jane", "Doe", true)
	p := e.addParty(t, "Gala")
	if _, err := e.parties.Activate(e.ctx, p.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	subj := model.Subject{Type: model.SubjectStudent, ID: 12345}

	tk, err := e.tickets.Create(e.ctx, subj)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !tk.EntryAt.Equal(tk.ExitAt) || !tk.EntryAt.Equal(tk.CreatedAt) {
		t.Fatalf("new ticket times differ: %+v", tk)
	}
	if tk.StudentID == nil || *tk.StudentID != st.ID {
		t.Fatalf("ticket holder = %v, want row %d", tk.StudentID, st.ID)
	}
	if tk.PartyID == nil || *tk.PartyID != p.ID {
		t.Fatalf("ticket party = %v, want %d", tk.PartyID, p.ID)
	}
	if got := countActions(logsOf(t, e)); got[model.ActionEntry] != 1 || len(got) != 1 {
		t.Fatalf("logs after create = %v", got)
	}

	e.clock.Advance(90 * time.Minute)
	out, err := e.tickets.RecordExit(e.ctx, subj)
	if err != nil {
		t.Fatalf("RecordExit: %v", err)
	}
	if !out.ExitAt.After(out.EntryAt) {
		t.Fatalf("exit %v not after entry %v", out.ExitAt, out.EntryAt)
	}
	if got := countActions(logsOf(t, e)); got[model.ActionExit] != 1 {
		t.Fatalf("logs after exit = %v", got)
	}

	if err := e.tickets.Delete(e.ctx, subj); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := e.tickets.Get(e.ctx, subj); KindOf(err) != KindNotFound {
		t.Fatalf("ticket still there: %v", err)
	}
	entries := logsOf(t, e)
	if len(entries) != 3 {
		t.Fatalf("got %d log rows, want 3", len(entries))
	}
	got := countActions(entries)
	if got[model.ActionEntry] != 1 || got[model.ActionExit] != 1 || got[model.ActionDeleteTicket] != 1 {
		t.Fatalf("log actions = %v", got)
	}
	for _, l := range entries {
		if l.StudentID == nil || *l.StudentID != st.ID {
			t.Fatalf("log row for wrong subject: %+v", l.Log)
		}
	}
}

func TestTicketCreateTwiceConflicts(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, 1, "A", "B", false)
	subj := model.Subject{Type: model.SubjectStudent, ID: 1}

	if _, err := e.tickets.Create(e.ctx, subj); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := e.tickets.Create(e.ctx, subj)
	wantKind(t, err, KindConflict)
	if n := len(logsOf(t, e)); n != 1 {
		t.Fatalf("failed create wrote a log row: %d rows", n)
	}
}

func TestTicketErrors(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, 1, "A", "B", false)

	tests := []struct {
		name string
		run  func() error
		want Kind
	}{
		{"unknown student", func() error {
			_, err := e.tickets.Create(e.ctx, model.Subject{Type: model.SubjectStudent, ID: 99})
			return err
		}, KindNotFound},
		{"unknown guest", func() error {
			_, err := e.tickets.Create(e.ctx, model.Subject{Type: model.SubjectGuest, ID: 99})
			return err
		}, KindNotFound},
		{"bad subject type", func() error {
			_, err := e.tickets.Create(e.ctx, model.Subject{Type: "staff", ID: 1})
			return err
		}, KindValidation},
		{"exit without ticket", func() error {
			_, err := e.tickets.RecordExit(e.ctx, model.Subject{Type: model.SubjectStudent, ID: 1})
			return err
		}, KindNotFound},
		{"delete without ticket", func() error {
			return e.tickets.Delete(e.ctx, model.Subject{Type: model.SubjectStudent, ID: 1})
		}, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantKind(t, tt.run(), tt.want)
		})
	}
	if n := len(logsOf(t, e)); n != 0 {
		t.Fatalf("failed operations wrote %d log rows", n)
	}
}

func TestRecordExitTwiceConflicts(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, 1, "A", "B", false)
	subj := model.Subject{Type: model.SubjectStudent, ID: 1}
	e.tickets.Create(e.ctx, subj)
	e.clock.Advance(time.Minute)

	if _, err := e.tickets.RecordExit(e.ctx, subj); err != nil {
		t.Fatalf("RecordExit: %v", err)
	}
	_, err := e.tickets.RecordExit(e.ctx, subj)
	wantKind(t, err, KindConflict)
	if got := countActions(logsOf(t, e)); got[model.ActionExit] != 1 {
		t.Fatalf("exit rows = %d, want 1", got[model.ActionExit])
	}
}

func TestRecordExitAtEntryInstant(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, 1, "A", "B", false)
	subj := model.Subject{Type: model.SubjectStudent, ID: 1}
	tk, _ := e.tickets.Create(e.ctx, subj)

	out, err := e.tickets.RecordExit(e.ctx, subj)
	if err != nil {
		t.Fatalf("RecordExit: %v", err)
	}
	if want := tk.EntryAt.Add(time.Millisecond); !out.ExitAt.Equal(want) {
		t.Fatalf("exit = %v, want %v", out.ExitAt, want)
	}
	if out.Present() {
		t.Fatal("holder still present after exit")
	}
}

func TestTicketsAreScopedPerParty(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, 1, "A", "B", false)
	subj := model.Subject{Type: model.SubjectStudent, ID: 1}

	// no active party: the ticket lands in the unscoped bucket
	loose, err := e.tickets.Create(e.ctx, subj)
	if err != nil {
		t.Fatalf("Create without party: %v", err)
	}
	if loose.PartyID != nil {
		t.Fatalf("ticket scoped to %d without an active party", *loose.PartyID)
	}

	first := e.addParty(t, "First")
	e.parties.Activate(e.ctx, first.ID)
	if _, err := e.tickets.Create(e.ctx, subj); err != nil {
		t.Fatalf("Create in first party: %v", err)
	}

	second := e.addParty(t, "Second")
	e.parties.Activate(e.ctx, second.ID)
	if _, err := e.tickets.Create(e.ctx, subj); err != nil {
		t.Fatalf("Create in second party: %v", err)
	}
	_, err = e.tickets.Create(e.ctx, subj)
	wantKind(t, err, KindConflict)

	all, _ := e.store.Tickets().ListAll(e.ctx)
	if len(all) != 3 {
		t.Fatalf("got %d tickets, want 3", len(all))
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.TicketEvent
	done   chan struct{}
}

func (p *recordingPublisher) PublishTicketEvent(_ context.Context, ev queue.TicketEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

func TestTicketEventsPublished(t *testing.T) {
	e := newEnv(t)
	pub := &recordingPublisher{done: make(chan struct{}, 4)}
	e.tickets = NewTicketManager(e.store, e.logger, e.clock.Now, pub)
	e.addStudent(t, 5, "Jane", "Doe", false)

	if _, err := e.tickets.Create(e.ctx, model.Subject{Type: model.SubjectStudent, ID: 5}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event not published")
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	ev := pub.events[0]
	if ev.Action != "entry" || ev.SubjectType != "student" || ev.SubjectID != 5 || ev.DisplayName != "Jane DOE" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestGuestCreateAndAdmit(t *testing.T) {
	e := newEnv(t)
	sponsor := e.addStudent(t, 7, "Ann", "Lee", true)

	g, tk, err := e.guests.CreateAndAdmit(e.ctx, GuestInput{LastName: "Roe", FirstName: "Rick", GuarantorID: &sponsor.ID})
	if err != nil {
		t.Fatalf("CreateAndAdmit: %v", err)
	}
	if tk.GuestID == nil || *tk.GuestID != g.ID {
		t.Fatalf("ticket holder = %v, want guest %d", tk.GuestID, g.ID)
	}

	missing := uint64(404)
	_, _, err = e.guests.CreateAndAdmit(e.ctx, GuestInput{LastName: "X", FirstName: "Y", GuarantorID: &missing})
	wantKind(t, err, KindValidation)
	if n, _ := e.store.Guests().Count(e.ctx); n != 1 {
		t.Fatalf("guest count = %d, want 1", n)
	}
}

func TestTicketChangeAndLogCommitTogether(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, 12345, "Jane", "Doe", true)
	subj := model.Subject{Type: model.SubjectStudent, ID: 12345}
	noLogs := NewTicketManager(faultyStore{Store: e.store, logsDown: true}, e.logger, e.clock.Now, nil)

	_, err := noLogs.Create(e.ctx, subj)
	wantKind(t, err, KindUnexpected)
	_, err = e.tickets.Get(e.ctx, subj)
	wantKind(t, err, KindNotFound)

	if _, err := e.tickets.Create(e.ctx, subj); err != nil {
		t.Fatalf("Create: %v", err)
	}
	e.clock.Advance(time.Minute)

	_, err = noLogs.RecordExit(e.ctx, subj)
	wantKind(t, err, KindUnexpected)
	tk, err := e.tickets.Get(e.ctx, subj)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !tk.Present() {
		t.Fatal("exit stored without its log row")
	}

	wantKind(t, noLogs.Delete(e.ctx, subj), KindUnexpected)
	if _, err := e.tickets.Get(e.ctx, subj); err != nil {
		t.Fatalf("ticket deleted without its log row: %v", err)
	}

	entries := logsOf(t, e)
	if got := countActions(entries); len(entries) != 1 || got[model.ActionEntry] != 1 {
		t.Fatalf("log actions = %v, want only the committed entry", got)
	}
}
