package service

import (
	"context"
	"time"

	"github.com/iliyamo/party-logger/internal/queue"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// stamp normalizes a clock reading to UTC with millisecond precision, the
// resolution of DATETIME(3), so equality checks survive a round trip.
func stamp(c Clock) time.Time {
	return c().UTC().Truncate(time.Millisecond)
}

// EventPublisher hands ticket events to the broker. Implementations must be
// safe for concurrent use.
type EventPublisher interface {
	PublishTicketEvent(ctx context.Context, ev queue.TicketEvent) error
}

// NopPublisher drops every event. It is used when EVENTS_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) PublishTicketEvent(context.Context, queue.TicketEvent) error { return nil }
