package model

import (
	"fmt"
	"time"
)

// SubjectType names the kind of attendee a ticket belongs to.
type SubjectType string

const (
	SubjectStudent SubjectType = "student"
	SubjectGuest   SubjectType = "guest"
)

// Valid reports whether t is one of the known subject types.
func (t SubjectType) Valid() bool {
	return t == SubjectStudent || t == SubjectGuest
}

// Subject identifies an attendee. For students ID is the student number,
// for guests it is the guest row id.
type Subject struct {
	Type SubjectType `json:"type"`
	ID   uint64      `json:"id"`
}

func (s Subject) String() string {
	return fmt.Sprintf("%s:%d", s.Type, s.ID)
}

// Ticket records the attendance of exactly one student or guest at one
// party. EntryAt equal to ExitAt means the holder is still inside.
//
// Fields:
//  ID        – primary key identifier.
//  StudentID – students.id of the holder (nullable).
//  GuestID   – guests.id of the holder (nullable).
//  PartyID   – party the ticket is scoped to (nullable when no party was active).
//  CreatedAt – issue time.
//  EntryAt   – entry time, equal to CreatedAt.
//  ExitAt    – exit time; equals EntryAt while present.
type Ticket struct {
	ID        uint64    `json:"id"`        // tickets.id
	StudentID *uint64   `json:"studentId"` // tickets.student_id (nullable)
	GuestID   *uint64   `json:"guestId"`   // tickets.guest_id (nullable)
	PartyID   *uint64   `json:"partyId"`   // tickets.party_id (nullable)
	CreatedAt time.Time `json:"createdAt"` // tickets.created_at
	EntryAt   time.Time `json:"entryAt"`   // tickets.entry_at
	ExitAt    time.Time `json:"exitAt"`    // tickets.exit_at
}

// Present reports whether the holder has not left yet.
func (t *Ticket) Present() bool {
	return t.EntryAt.Equal(t.ExitAt)
}

// TicketKey addresses a ticket by holder row id and party scope. Exactly
// one of StudentID and GuestID is set.
type TicketKey struct {
	StudentID *uint64
	GuestID   *uint64
	PartyID   *uint64
}

// SamePartyScope compares two nullable party ids.
func SamePartyScope(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
