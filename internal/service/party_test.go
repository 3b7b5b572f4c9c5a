package service

import (
	"testing"
	"time"

	"github.com/iliyamo/party-logger/internal/model"
)

func activeCount(t *testing.T, e *env) int {
	t.Helper()
	parties, err := e.parties.List(e.ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	n := 0
	for _, p := range parties {
		if p.Current() {
			n++
		}
	}
	return n
}

func TestActivateKeepsSingleActiveParty(t *testing.T) {
	e := newEnv(t)
	a := e.addParty(t, "A")
	b := e.addParty(t, "B")
	c := e.addParty(t, "C")

	for _, id := range []uint64{a.ID, b.ID, b.ID, c.ID, a.ID} {
		p, err := e.parties.Activate(e.ctx, id)
		if err != nil {
			t.Fatalf("Activate(%d): %v", id, err)
		}
		if !p.Current() {
			t.Fatalf("party %d not active after activation", id)
		}
		if n := activeCount(t, e); n != 1 {
			t.Fatalf("after activating %d: %d active parties", id, n)
		}
		if got := e.parties.Active(e.ctx); got == nil || got.ID != id {
			t.Fatalf("Active() = %+v, want %d", got, id)
		}
	}
}

func TestClosedPartyLifecycle(t *testing.T) {
	e := newEnv(t)
	p := e.addParty(t, "Gala")
	e.parties.Activate(e.ctx, p.ID)

	e.clock.Advance(3 * time.Hour)
	closed, err := e.parties.Close(e.ctx, p.ID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.IsActive || !closed.IsClosed {
		t.Fatalf("closed party flags: active=%v closed=%v", closed.IsActive, closed.IsClosed)
	}
	if closed.EndTime == nil || !closed.EndTime.Equal(e.clock.Now()) {
		t.Fatalf("end time = %v, want %v", closed.EndTime, e.clock.Now())
	}
	if e.parties.Active(e.ctx) != nil {
		t.Fatal("closed party still active")
	}

	_, err = e.parties.Close(e.ctx, p.ID)
	wantKind(t, err, KindConflict)
	_, err = e.parties.Activate(e.ctx, p.ID)
	wantKind(t, err, KindConflict)
	_, err = e.parties.Activate(e.ctx, 9999)
	wantKind(t, err, KindNotFound)
}

func TestPartyValidation(t *testing.T) {
	e := newEnv(t)
	start := e.clock.Now()
	end := start.Add(-time.Hour)

	tests := []struct {
		name string
		in   PartyInput
	}{
		{"missing name", PartyInput{Name: "  ", Date: start}},
		{"missing date", PartyInput{Name: "X"}},
		{"ends before start", PartyInput{Name: "X", Date: start, StartTime: &start, EndTime: &end}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.parties.Create(e.ctx, tt.in, 1)
			wantKind(t, err, KindValidation)
		})
	}
}

func TestUpdateKeepsLifecycle(t *testing.T) {
	e := newEnv(t)
	p := e.addParty(t, "Old")
	e.parties.Activate(e.ctx, p.ID)
	loc := "  Hall B "

	got, err := e.parties.Update(e.ctx, p.ID, PartyInput{Name: "New", Date: e.clock.Now(), Location: &loc})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != "New" || got.Location == nil || *got.Location != "Hall B" {
		t.Fatalf("update not applied: %+v", got)
	}
	if !got.Current() {
		t.Fatal("update changed the lifecycle")
	}
}

func TestDeletePartyRemovesTickets(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, 1, "A", "B", false)
	p := e.addParty(t, "Gala")
	e.parties.Activate(e.ctx, p.ID)
	e.tickets.Create(e.ctx, model.Subject{Type: model.SubjectStudent, ID: 1})

	if err := e.parties.Delete(e.ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	left, _ := e.store.Tickets().ListAll(e.ctx)
	if len(left) != 0 {
		t.Fatalf("%d tickets survived their party", len(left))
	}
	if len(logsOf(t, e)) != 1 {
		t.Fatal("audit log lost with the party")
	}
	wantKind(t, e.parties.Delete(e.ctx, p.ID), KindNotFound)
}

func TestRefreshStats(t *testing.T) {
	e := newEnv(t)
	e.addStudent(t, 1, "A", "One", true)
	e.addStudent(t, 2, "B", "Two", false)
	e.addStudent(t, 3, "C", "Three", true)
	p := e.addParty(t, "Gala")
	e.parties.Activate(e.ctx, p.ID)

	stu := func(n uint64) model.Subject { return model.Subject{Type: model.SubjectStudent, ID: n} }
	e.tickets.Create(e.ctx, stu(1))
	e.clock.Advance(10 * time.Minute)
	e.tickets.Create(e.ctx, stu(2))
	e.clock.Advance(10 * time.Minute)
	e.tickets.RecordExit(e.ctx, stu(1))
	e.tickets.Create(e.ctx, stu(3))
	e.clock.Advance(time.Minute)
	if _, _, err := e.guests.CreateAndAdmit(e.ctx, GuestInput{LastName: "G", FirstName: "Guest"}); err != nil {
		t.Fatalf("CreateAndAdmit: %v", err)
	}

	st, err := e.parties.RefreshStats(e.ctx, p.ID)
	if err != nil {
		t.Fatalf("RefreshStats: %v", err)
	}
	want := model.PartyStats{
		PartyID:         p.ID,
		TotalStudents:   3,
		TotalGuests:     1,
		TotalTickets:    4,
		MembersCount:    2,
		NonMembersCount: 1,
		PeakAttendance:  3,
	}
	if !st.UpdatedAt.Equal(e.clock.Now()) {
		t.Fatalf("stats stamped %v, want %v", st.UpdatedAt, e.clock.Now())
	}
	want.UpdatedAt = st.UpdatedAt
	if *st != want {
		t.Fatalf("stats = %+v\nwant %+v", *st, want)
	}
	got, _ := e.parties.Get(e.ctx, p.ID)
	if got.Stats == nil || *got.Stats != want {
		t.Fatalf("stored stats = %+v", got.Stats)
	}
}

func TestPeakAttendance(t *testing.T) {
	base := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return base.Add(time.Duration(m) * time.Minute) }
	tk := func(in, out int) model.Ticket { return model.Ticket{EntryAt: at(in), ExitAt: at(out)} }

	tests := []struct {
		name    string
		tickets []model.Ticket
		want    int
	}{
		{"empty", nil, 0},
		{"all present", []model.Ticket{tk(0, 0), tk(5, 5), tk(9, 9)}, 3},
		{"disjoint stays", []model.Ticket{tk(0, 10), tk(20, 30)}, 1},
		{"exit before entry at same instant", []model.Ticket{tk(0, 10), tk(10, 20)}, 1},
		{"overlap", []model.Ticket{tk(0, 30), tk(5, 10), tk(8, 40), tk(35, 35)}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := peakAttendance(tt.tickets); got != tt.want {
				t.Fatalf("peakAttendance = %d, want %d", got, tt.want)
			}
		})
	}
}
