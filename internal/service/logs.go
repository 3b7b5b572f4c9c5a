package service

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/repository"
)

// LogMessage is an audit entry rendered for display.
type LogMessage struct {
	ID        uint64          `json:"id"`
	Type      model.LogAction `json:"type"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	PartyID   *uint64         `json:"partyId"`
}

// LogService reads the audit log.
type LogService struct {
	store  repository.Store
	logger *log.Logger
	loc    *time.Location
}

// NewLogService returns a LogService rendering times in loc (local when
// nil).
func NewLogService(store repository.Store, logger *log.Logger, loc *time.Location) *LogService {
	if loc == nil {
		loc = time.Local
	}
	return &LogService{store: store, logger: logger, loc: loc}
}

// List returns the newest entries first, optionally for one party.
func (s *LogService) List(ctx context.Context, partyID *uint64, limit int) ([]LogMessage, error) {
	entries, err := s.store.Logs().List(ctx, repository.LogFilter{PartyID: partyID, Limit: limit})
	if err != nil {
		return nil, unexpected("list logs", err)
	}
	out := make([]LogMessage, 0, len(entries))
	for _, e := range entries {
		out = append(out, LogMessage{
			ID:        e.ID,
			Type:      e.Action,
			Message:   s.Render(e),
			Timestamp: e.Timestamp,
			PartyID:   e.PartyID,
		})
	}
	return out, nil
}

// Render formats one entry, e.g. "Jane DOE entered at 21:04".
func (s *LogService) Render(e model.LogEntry) string {
	name := "someone"
	switch {
	case e.Student != nil:
		name = model.FullName(e.Student.FirstName, e.Student.LastName)
	case e.Guest != nil:
		name = model.FullName(e.Guest.FirstName, e.Guest.LastName)
	}
	at := e.Timestamp.In(s.loc).Format("15:04")
	switch e.Action {
	case model.ActionEntry:
		return fmt.Sprintf("%s entered at %s", name, at)
	case model.ActionExit:
		return fmt.Sprintf("%s left at %s", name, at)
	case model.ActionDeleteTicket:
		return fmt.Sprintf("Ticket of %s deleted at %s", name, at)
	default:
		return fmt.Sprintf("%s performed an unknown action", name)
	}
}
