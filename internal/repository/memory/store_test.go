package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/repository"
)

func seedStudent(t *testing.T, s *Store, number uint64) *model.Student {
	t.Helper()
	st := &model.Student{StudentID: number, LastName: "Doe", FirstName: "Jane", IsMember: true}
	if err := s.Students().Create(context.Background(), st); err != nil {
		t.Fatalf("create student: %v", err)
	}
	return st
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Students().Create(ctx, &model.Student{StudentID: 1, LastName: "A", FirstName: "B"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}
	n, _ := s.Students().Count(ctx)
	if n != 0 {
		t.Fatalf("student survived rollback: count=%d", n)
	}
}

func TestWithTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Students().Create(ctx, &model.Student{StudentID: 7, LastName: "A", FirstName: "B"}); err != nil {
			return err
		}
		// nested calls reuse the outer transaction
		return tx.WithTx(ctx, func(inner repository.Store) error {
			_, err := inner.Students().GetByStudentNumber(ctx, 7)
			return err
		})
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	if _, err := s.Students().GetByStudentNumber(ctx, 7); err != nil {
		t.Fatalf("committed student missing: %v", err)
	}
}

func TestTicketUniquePerPartyScope(t *testing.T) {
	s := New()
	ctx := context.Background()
	st := seedStudent(t, s, 42)
	now := time.Date(2024, 5, 1, 21, 0, 0, 0, time.UTC)
	p1, p2 := uint64(100), uint64(200)

	mk := func(party *uint64) *model.Ticket {
		id := st.ID
		return &model.Ticket{StudentID: &id, PartyID: party, CreatedAt: now, EntryAt: now, ExitAt: now}
	}
	if err := s.Tickets().Create(ctx, mk(&p1)); err != nil {
		t.Fatalf("first ticket: %v", err)
	}
	if err := s.Tickets().Create(ctx, mk(&p1)); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("second ticket same party = %v, want ErrDuplicate", err)
	}
	if err := s.Tickets().Create(ctx, mk(&p2)); err != nil {
		t.Fatalf("ticket in other party: %v", err)
	}
	if err := s.Tickets().Create(ctx, mk(nil)); err != nil {
		t.Fatalf("ticket without party: %v", err)
	}
	if err := s.Tickets().Create(ctx, mk(nil)); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("second ticket without party = %v, want ErrDuplicate", err)
	}
}

func TestSingleActivePartySlot(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := &model.Party{Name: "A", Date: time.Now()}
	b := &model.Party{Name: "B", Date: time.Now()}
	for _, p := range []*model.Party{a, b} {
		if err := s.Parties().Create(ctx, p); err != nil {
			t.Fatalf("create party: %v", err)
		}
	}
	if err := s.Parties().SetState(ctx, a.ID, true, false, nil); err != nil {
		t.Fatalf("activate a: %v", err)
	}
	if err := s.Parties().SetState(ctx, b.ID, true, false, nil); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("activate b while a active = %v, want ErrDuplicate", err)
	}
}

func TestUserReadsCarryRolePermissions(t *testing.T) {
	s := New()
	ctx := context.Background()
	role := &model.Role{Name: "user"}
	if err := s.Roles().Create(ctx, role); err != nil {
		t.Fatal(err)
	}
	if err := s.Roles().EnsurePermission(ctx, &model.Permission{Name: "view_stats"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Roles().SetPermissions(ctx, role.ID, []string{"view_stats"}); err != nil {
		t.Fatal(err)
	}
	u := &model.User{Username: "door", Email: "Door@Example.org", RoleID: role.ID, IsActive: true}
	if err := s.Users().Create(ctx, u); err != nil {
		t.Fatal(err)
	}

	got, err := s.Users().GetByLogin(ctx, "door@example.org")
	if err != nil {
		t.Fatalf("GetByLogin by email: %v", err)
	}
	if got.Role == nil || len(got.Role.Permissions) != 1 || got.Role.Permissions[0].Name != "view_stats" {
		t.Fatalf("role graph not loaded: %+v", got.Role)
	}
	if err := s.Roles().SetPermissions(ctx, role.ID, []string{"nope"}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown permission = %v, want ErrNotFound", err)
	}
	dup := &model.User{Username: "door", Email: "other@example.org", RoleID: role.ID}
	if err := s.Users().Create(ctx, dup); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("duplicate username = %v, want ErrDuplicate", err)
	}
}

func TestDeleteUserCascadesSessions(t *testing.T) {
	s := New()
	ctx := context.Background()
	role := &model.Role{Name: "user"}
	_ = s.Roles().Create(ctx, role)
	u := &model.User{Username: "a", Email: "a@x", RoleID: role.ID}
	if err := s.Users().Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	exp := time.Now().Add(time.Hour)
	if err := s.Sessions().Create(ctx, &model.Session{ID: "tok", UserID: u.ID, ExpiresAt: exp}); err != nil {
		t.Fatal(err)
	}
	if err := s.Users().Delete(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Sessions().Get(ctx, "tok"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("session survived user delete: %v", err)
	}
}
