package model

import "time"

// Party is an event at which tickets are issued. Its lifecycle is
// draft (neither flag set) -> active -> closed. At most one party may be
// active and not closed at any time.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name.
//  Description – optional free text.
//  Date        – calendar day of the event.
//  StartTime   – optional start timestamp.
//  EndTime     – optional end timestamp; stamped when the party is closed.
//  Location    – optional venue.
//  IsActive    – the party currently accepting tickets.
//  IsClosed    – the party is over; it can no longer be activated.
//  CreatedBy   – user that created the party.
//  Stats       – one-to-one aggregate snapshot.
type Party struct {
	ID          uint64      `json:"id"`          // parties.id
	Name        string      `json:"name"`        // parties.name
	Description *string     `json:"description"` // parties.description (nullable)
	Date        time.Time   `json:"date"`        // parties.date
	StartTime   *time.Time  `json:"startTime"`   // parties.start_time (nullable)
	EndTime     *time.Time  `json:"endTime"`     // parties.end_time (nullable)
	Location    *string     `json:"location"`    // parties.location (nullable)
	IsActive    bool        `json:"isActive"`    // parties.is_active
	IsClosed    bool        `json:"isClosed"`    // parties.is_closed
	CreatedBy   uint64      `json:"createdBy"`   // parties.created_by
	CreatedAt   time.Time   `json:"createdAt"`   // parties.created_at
	UpdatedAt   time.Time   `json:"updatedAt"`   // parties.updated_at
	Stats       *PartyStats `json:"stats,omitempty"`
}

// Current reports whether the party is the one tickets are scoped to.
func (p *Party) Current() bool {
	return p != nil && p.IsActive && !p.IsClosed
}

// PartyStats is the aggregate snapshot kept in `party_stats`. It is
// recomputed on demand and may lag behind the tickets table.
type PartyStats struct {
	PartyID         uint64    `json:"partyId"`         // party_stats.party_id
	TotalStudents   int       `json:"totalStudents"`   // party_stats.total_students
	TotalGuests     int       `json:"totalGuests"`     // party_stats.total_guests
	TotalTickets    int       `json:"totalTickets"`    // party_stats.total_tickets
	MembersCount    int       `json:"membersCount"`    // party_stats.members_count
	NonMembersCount int       `json:"nonMembersCount"` // party_stats.non_members_count
	PeakAttendance  int       `json:"peakAttendance"`  // party_stats.peak_attendance
	UpdatedAt       time.Time `json:"updatedAt"`       // party_stats.updated_at
}
