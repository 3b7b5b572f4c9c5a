package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/gommon/log"
)

func TestHandleMessageAppendsLine(t *testing.T) {
	dir := t.TempDir()
	c := &Consumer{Dir: dir, Logger: log.New("test")}
	party := uint64(3)
	events := []TicketEvent{
		{TicketID: 1, Action: "entry", SubjectType: "student", SubjectID: 12345, DisplayName: "Jane DOE", PartyID: &party, OccurredAt: "2024-05-01T21:04:00Z"},
		{TicketID: 1, Action: "exit", SubjectType: "student", SubjectID: 12345, DisplayName: "Jane DOE", PartyID: &party, OccurredAt: "2024-05-01T23:00:00Z"},
	}
	for _, ev := range events {
		body, _ := json.Marshal(ev)
		if err := c.HandleMessage(body); err != nil {
			t.Fatalf("HandleMessage: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "checkin.log"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], "entry | ticket_id=1 | student=12345") || !strings.Contains(lines[0], "party=3") {
		t.Errorf("unexpected first line %q", lines[0])
	}
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	c := &Consumer{Dir: t.TempDir(), Logger: log.New("test")}
	if err := c.HandleMessage([]byte("{not json")); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestFormatLineWithoutParty(t *testing.T) {
	line := FormatLine(TicketEvent{Action: "delete_ticket", SubjectType: "guest", SubjectID: 9, DisplayName: "Bob MARLEY", OccurredAt: "t"})
	if !strings.Contains(line, "party=none") || !strings.HasSuffix(line, "\n") {
		t.Errorf("unexpected line %q", line)
	}
}
