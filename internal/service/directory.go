package service

import (
	"context"
	"strings"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/repository"
)

// StudentService manages the student register.
type StudentService struct {
	store  repository.Store
	logger *log.Logger
}

// NewStudentService returns a StudentService over store.
func NewStudentService(store repository.Store, logger *log.Logger) *StudentService {
	return &StudentService{store: store, logger: logger}
}

// List returns students, optionally filtered by name or number prefix.
func (s *StudentService) List(ctx context.Context, search string) ([]model.Student, error) {
	students, err := s.store.Students().List(ctx, search)
	if err != nil {
		return nil, unexpected("list students", err)
	}
	return students, nil
}

// GetByStudentID looks a student up by the number on their card.
func (s *StudentService) GetByStudentID(ctx context.Context, number uint64) (*model.Student, error) {
	st, err := s.store.Students().GetByStudentNumber(ctx, number)
	if isNotFound(err) {
		return nil, notFound("student %d not found", number)
	}
	if err != nil {
		return nil, unexpected("load student", err)
	}
	return st, nil
}

// Create registers a student. A taken student number is a conflict.
func (s *StudentService) Create(ctx context.Context, st model.Student) (*model.Student, error) {
	st.LastName = strings.TrimSpace(st.LastName)
	st.FirstName = strings.TrimSpace(st.FirstName)
	st.Speciality = strings.TrimSpace(st.Speciality)
	switch {
	case st.StudentID == 0:
		return nil, validation("student number is required")
	case st.LastName == "" || st.FirstName == "":
		return nil, validation("first and last name are required")
	}
	if err := s.store.Students().Create(ctx, &st); err != nil {
		if isDuplicate(err) {
			return nil, conflict("student %d already exists", st.StudentID)
		}
		return nil, unexpected("create student", err)
	}
	return &st, nil
}

// GuestService manages guests and their optional guarantor.
type GuestService struct {
	store   repository.Store
	tickets *TicketManager
	logger  *log.Logger
}

// NewGuestService returns a GuestService. tickets is used by
// CreateAndAdmit.
func NewGuestService(store repository.Store, tickets *TicketManager, logger *log.Logger) *GuestService {
	return &GuestService{store: store, tickets: tickets, logger: logger}
}

// GuestInput describes a new guest. GuarantorID is a student row id.
type GuestInput struct {
	LastName    string
	FirstName   string
	GuarantorID *uint64
}

// List returns guests with their guarantor.
func (s *GuestService) List(ctx context.Context) ([]model.Guest, error) {
	guests, err := s.store.Guests().List(ctx)
	if err != nil {
		return nil, unexpected("list guests", err)
	}
	return guests, nil
}

func createGuest(ctx context.Context, tx repository.Store, in GuestInput) (*model.Guest, error) {
	in.LastName = strings.TrimSpace(in.LastName)
	in.FirstName = strings.TrimSpace(in.FirstName)
	if in.LastName == "" || in.FirstName == "" {
		return nil, validation("first and last name are required")
	}
	if in.GuarantorID != nil && *in.GuarantorID == 0 {
		in.GuarantorID = nil
	}
	g := &model.Guest{LastName: in.LastName, FirstName: in.FirstName, GuarantorID: in.GuarantorID}
	if g.GuarantorID != nil {
		guarantor, err := tx.Students().GetByID(ctx, *g.GuarantorID)
		if isNotFound(err) {
			return nil, validation("guarantor %d is not a registered student", *g.GuarantorID)
		}
		if err != nil {
			return nil, unexpected("load guarantor", err)
		}
		g.Guarantor = guarantor
	}
	if err := tx.Guests().Create(ctx, g); err != nil {
		return nil, unexpected("create guest", err)
	}
	return g, nil
}

// Create registers a guest. A guarantor, when given, must be an existing
// student.
func (s *GuestService) Create(ctx context.Context, in GuestInput) (*model.Guest, error) {
	var g *model.Guest
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		g, err = createGuest(ctx, tx, in)
		return err
	})
	return g, err
}

// CreateAndAdmit registers a guest and issues their ticket atomically:
// either both rows exist afterwards or neither does.
func (s *GuestService) CreateAndAdmit(ctx context.Context, in GuestInput) (*model.Guest, *model.Ticket, error) {
	var (
		g    *model.Guest
		t    *model.Ticket
		name string
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		if g, err = createGuest(ctx, tx, in); err != nil {
			return err
		}
		t, name, err = s.tickets.createIn(ctx, tx, model.Subject{Type: model.SubjectGuest, ID: g.ID})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.tickets.committed(ctx, model.ActionEntry, model.Subject{Type: model.SubjectGuest, ID: g.ID}, t, name, t.EntryAt)
	return g, t, nil
}
