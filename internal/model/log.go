package model

import "time"

// LogAction is the audit action recorded in `logs.action`.
type LogAction string

const (
	ActionEntry        LogAction = "entry"
	ActionExit         LogAction = "exit"
	ActionDeleteTicket LogAction = "delete_ticket"
)

// Log is an immutable audit record. Rows are only ever appended.
//
// Fields:
//  ID        – primary key identifier.
//  StudentID – students.id concerned (nullable).
//  GuestID   – guests.id concerned (nullable).
//  PartyID   – party in effect at the time (nullable).
//  Action    – entry, exit or delete_ticket.
//  Timestamp – when the action happened.
type Log struct {
	ID        uint64    `json:"id"`        // logs.id
	StudentID *uint64   `json:"studentId"` // logs.student_id (nullable)
	GuestID   *uint64   `json:"guestId"`   // logs.guest_id (nullable)
	PartyID   *uint64   `json:"partyId"`   // logs.party_id (nullable)
	Action    LogAction `json:"action"`    // logs.action
	Timestamp time.Time `json:"timestamp"` // logs.timestamp
}

// LogEntry is a Log joined with the display names of the people involved.
type LogEntry struct {
	Log
	Student *Student `json:"student,omitempty"`
	Guest   *Guest   `json:"guest,omitempty"`
}
