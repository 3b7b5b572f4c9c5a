package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/repository"
)

// PartyInput carries the descriptive fields of a party.
type PartyInput struct {
	Name        string
	Description *string
	Date        time.Time
	StartTime   *time.Time
	EndTime     *time.Time
	Location    *string
}

func (in *PartyInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return validation("party name is required")
	}
	if in.Date.IsZero() {
		return validation("party date is required")
	}
	if in.StartTime != nil && in.EndTime != nil && in.EndTime.Before(*in.StartTime) {
		return validation("party cannot end before it starts")
	}
	in.Description = trimmedOrNil(in.Description)
	in.Location = trimmedOrNil(in.Location)
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// PartyController owns the party lifecycle Draft -> Active -> Closed. At
// most one party is active and not closed; activation deactivates every
// other party in the same serializable transaction and the schema rejects
// a second active row.
type PartyController struct {
	store  repository.Store
	logger *log.Logger
	now    Clock
}

// NewPartyController returns a PartyController over store.
func NewPartyController(store repository.Store, logger *log.Logger, now Clock) *PartyController {
	return &PartyController{store: store, logger: logger, now: now}
}

func getParty(ctx context.Context, tx repository.Store, id uint64) (*model.Party, error) {
	p, err := tx.Parties().GetByID(ctx, id)
	if isNotFound(err) {
		return nil, notFound("party %d not found", id)
	}
	if err != nil {
		return nil, unexpected("load party", err)
	}
	return p, nil
}

// Create inserts a draft party with an empty stats snapshot.
func (c *PartyController) Create(ctx context.Context, in PartyInput, creatorID uint64) (*model.Party, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	var p *model.Party
	err := c.store.WithTx(ctx, func(tx repository.Store) error {
		p = &model.Party{
			Name:        in.Name,
			Description: in.Description,
			Date:        in.Date.UTC(),
			StartTime:   utcPtr(in.StartTime),
			EndTime:     utcPtr(in.EndTime),
			Location:    in.Location,
			CreatedBy:   creatorID,
		}
		if err := tx.Parties().Create(ctx, p); err != nil {
			return unexpected("create party", err)
		}
		stats := &model.PartyStats{PartyID: p.ID, UpdatedAt: stamp(c.now)}
		if err := tx.Parties().UpsertStats(ctx, stats); err != nil {
			return unexpected("create party stats", err)
		}
		p.Stats = stats
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Infof("party: created %d %q", p.ID, p.Name)
	return p, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// Activate makes id the only active party. A closed party cannot be
// reactivated.
func (c *PartyController) Activate(ctx context.Context, id uint64) (*model.Party, error) {
	var p *model.Party
	err := c.store.WithTx(ctx, func(tx repository.Store) error {
		target, err := getParty(ctx, tx, id)
		if err != nil {
			return err
		}
		if target.IsClosed {
			return conflict("party %q is closed and cannot be activated", target.Name)
		}
		if err := tx.Parties().DeactivateAll(ctx); err != nil {
			return unexpected("deactivate parties", err)
		}
		if err := tx.Parties().SetState(ctx, id, true, false, nil); err != nil {
			if isDuplicate(err) {
				return conflict("another party is already active")
			}
			return unexpected("activate party", err)
		}
		p, err = getParty(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Infof("party: activated %d", id)
	return p, nil
}

// Close ends a party and stamps its end time.
func (c *PartyController) Close(ctx context.Context, id uint64) (*model.Party, error) {
	var p *model.Party
	err := c.store.WithTx(ctx, func(tx repository.Store) error {
		target, err := getParty(ctx, tx, id)
		if err != nil {
			return err
		}
		if target.IsClosed {
			return conflict("party %q is already closed", target.Name)
		}
		end := stamp(c.now)
		if err := tx.Parties().SetState(ctx, id, false, true, &end); err != nil {
			return unexpected("close party", err)
		}
		p, err = getParty(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Infof("party: closed %d", id)
	return p, nil
}

// Delete removes a party in any state, together with its tickets.
func (c *PartyController) Delete(ctx context.Context, id uint64) error {
	err := c.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := getParty(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Parties().Delete(ctx, id); err != nil {
			return unexpected("delete party", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.logger.Infof("party: deleted %d", id)
	return nil
}

// Update rewrites the descriptive fields. Lifecycle flags are untouched.
func (c *PartyController) Update(ctx context.Context, id uint64, in PartyInput) (*model.Party, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	var p *model.Party
	err := c.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := getParty(ctx, tx, id)
		if err != nil {
			return err
		}
		current.Name = in.Name
		current.Description = in.Description
		current.Date = in.Date.UTC()
		current.StartTime = utcPtr(in.StartTime)
		current.EndTime = utcPtr(in.EndTime)
		current.Location = in.Location
		if err := tx.Parties().Update(ctx, current); err != nil {
			return unexpected("update party", err)
		}
		p, err = getParty(ctx, tx, id)
		return err
	})
	return p, err
}

// Get returns one party with its stats snapshot.
func (c *PartyController) Get(ctx context.Context, id uint64) (*model.Party, error) {
	return getParty(ctx, c.store, id)
}

// List returns every party, newest first.
func (c *PartyController) List(ctx context.Context) ([]model.Party, error) {
	parties, err := c.store.Parties().List(ctx)
	if err != nil {
		return nil, unexpected("list parties", err)
	}
	return parties, nil
}

// Active returns the current party or nil. Store failures are logged and
// read as "no active party".
func (c *PartyController) Active(ctx context.Context) *model.Party {
	p, err := c.store.Parties().GetActive(ctx)
	if err != nil {
		if !isNotFound(err) {
			c.logger.Errorf("party: load active party: %v", err)
		}
		return nil
	}
	return p
}

// RefreshStats recomputes and stores the stats snapshot of a party.
func (c *PartyController) RefreshStats(ctx context.Context, id uint64) (*model.PartyStats, error) {
	var stats *model.PartyStats
	err := c.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := getParty(ctx, tx, id); err != nil {
			return err
		}
		tickets, err := tx.Tickets().ListByParty(ctx, &id)
		if err != nil {
			return unexpected("list party tickets", err)
		}
		students, err := tx.Students().ListByIDs(ctx, studentIDs(tickets))
		if err != nil {
			return unexpected("load ticket holders", err)
		}
		stats = computePartyStats(tickets, students)
		stats.PartyID = id
		stats.UpdatedAt = stamp(c.now)
		if err := tx.Parties().UpsertStats(ctx, stats); err != nil {
			return unexpected("store party stats", err)
		}
		return nil
	})
	return stats, err
}

func studentIDs(tickets []model.Ticket) []uint64 {
	ids := make([]uint64, 0, len(tickets))
	for _, t := range tickets {
		if t.StudentID != nil {
			ids = append(ids, *t.StudentID)
		}
	}
	return ids
}

// computePartyStats derives the snapshot from a party's tickets and the
// students holding them.
func computePartyStats(tickets []model.Ticket, students []model.Student) *model.PartyStats {
	member := make(map[uint64]bool, len(students))
	for _, s := range students {
		member[s.ID] = s.IsMember
	}
	st := &model.PartyStats{TotalTickets: len(tickets)}
	for _, t := range tickets {
		switch {
		case t.StudentID != nil:
			st.TotalStudents++
			if member[*t.StudentID] {
				st.MembersCount++
			} else {
				st.NonMembersCount++
			}
		case t.GuestID != nil:
			st.TotalGuests++
		}
	}
	st.PeakAttendance = peakAttendance(tickets)
	return st
}

// peakAttendance sweeps entry and exit instants and returns the largest
// number of holders inside at once. A holder still present never leaves;
// an exit at the same instant as another entry is processed first.
func peakAttendance(tickets []model.Ticket) int {
	type edge struct {
		at    time.Time
		delta int
	}
	edges := make([]edge, 0, 2*len(tickets))
	for _, t := range tickets {
		edges = append(edges, edge{t.EntryAt, +1})
		if !t.Present() {
			edges = append(edges, edge{t.ExitAt, -1})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if !edges[i].at.Equal(edges[j].at) {
			return edges[i].at.Before(edges[j].at)
		}
		return edges[i].delta < edges[j].delta
	})
	cur, peak := 0, 0
	for _, e := range edges {
		cur += e.delta
		if cur > peak {
			peak = cur
		}
	}
	return peak
}
