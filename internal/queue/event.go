// Package queue carries ticket events over RabbitMQ: the payload type, a
// publisher used by the ticket service after commit and a background
// consumer that appends each event to logs/checkin.log.
package queue

// TicketQueueName is the durable queue ticket events are routed to.
const TicketQueueName = "tickets.events"

// TicketEvent is published after a ticket transition commits. It carries
// enough for downstream consumers to log or count check-ins without
// querying the database.
type TicketEvent struct {
	TicketID    uint64  `json:"ticket_id"`
	Action      string  `json:"action"`       // entry, exit or delete_ticket
	SubjectType string  `json:"subject_type"` // student or guest
	SubjectID   uint64  `json:"subject_id"`   // student number or guest id
	DisplayName string  `json:"display_name"`
	PartyID     *uint64 `json:"party_id,omitempty"`
	OccurredAt  string  `json:"occurred_at"` // RFC 3339, UTC
}
