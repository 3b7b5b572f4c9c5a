package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-logger/internal/middleware"
	"github.com/iliyamo/party-logger/internal/service"
)

const dateLayout = "2006-01-02"

// PartyHandler serves the party administration endpoints.
type PartyHandler struct {
	Parties *service.PartyController
	Stats   *service.StatsAggregator
}

func NewPartyHandler(p *service.PartyController, s *service.StatsAggregator) *PartyHandler {
	return &PartyHandler{Parties: p, Stats: s}
}

// partyReq is the body of create and update. Times are RFC 3339.
type partyReq struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Description *string    `json:"description"`
	Date        string     `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
}

func (r partyReq) input() (service.PartyInput, error) {
	day, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return service.PartyInput{}, err
	}
	return service.PartyInput{
		Name:        r.Name,
		Description: r.Description,
		Date:        day,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Location:    r.Location,
	}, nil
}

// List returns every party, newest first.
func (h *PartyHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	parties, err := h.Parties.List(ctx)
	if err != nil {
		c.Logger().Errorf("parties: list: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch parties"})
	}
	return c.JSON(http.StatusOK, parties)
}

// Get returns one party with its stats snapshot and the live report.
func (h *PartyHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid party id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Parties.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	ctx, degraded := service.TrackDegraded(ctx)
	report := h.Stats.PartyReport(ctx, id)
	markDegraded(c, degraded)
	return c.JSON(http.StatusOK, echo.Map{"party": p, "report": report})
}

// Active returns the party tickets are currently scoped to, or null.
func (h *PartyHandler) Active(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	return c.JSON(http.StatusOK, h.Parties.Active(ctx))
}

func (h *PartyHandler) Create(c echo.Context) error {
	var req partyReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	in, err := req.input()
	if err != nil {
		return badRequest(c, "invalid date")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Parties.Create(ctx, in, middleware.CurrentUser(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusCreated, "party created", p)
}

func (h *PartyHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid party id")
	}
	var req partyReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	in, err := req.input()
	if err != nil {
		return badRequest(c, "invalid date")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Parties.Update(ctx, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, "party updated", p)
}

func (h *PartyHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid party id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Parties.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, "party deleted", nil)
}

func (h *PartyHandler) Activate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid party id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Parties.Activate(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, "party activated", p)
}

func (h *PartyHandler) Close(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid party id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Parties.Close(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, "party closed", p)
}

// RefreshStats recomputes the stored snapshot of a party.
func (h *PartyHandler) RefreshStats(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid party id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	stats, err := h.Parties.RefreshStats(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, "stats refreshed", stats)
}
