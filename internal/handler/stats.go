package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-logger/internal/middleware"
	"github.com/iliyamo/party-logger/internal/service"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

// ReportHandler serves the dashboard figures and the activity log.
type ReportHandler struct {
	Stats *service.StatsAggregator
	Logs  *service.LogService
}

func NewReportHandler(s *service.StatsAggregator, l *service.LogService) *ReportHandler {
	return &ReportHandler{Stats: s, Logs: l}
}

func hourScope(c echo.Context) service.HourScope {
	if service.HourScope(c.QueryParam("scope")) == service.ScopeAll {
		return service.ScopeAll
	}
	return service.ScopeActiveParty
}

// Dashboard returns attendance of the active party with its hourly
// histogram. Figures are best effort and never fail the request.
func (h *ReportHandler) Dashboard(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ctx, degraded := service.TrackDegraded(ctx)
	body := echo.Map{
		"attendance":    h.Stats.Attendance(ctx),
		"ticketsByHour": h.Stats.TicketsByHour(ctx, hourScope(c)),
	}
	markDegraded(c, degraded)
	return c.JSON(http.StatusOK, body)
}

// Hourly returns the ticket histogram; ?scope=all covers every party.
func (h *ReportHandler) Hourly(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ctx, degraded := service.TrackDegraded(ctx)
	hours := h.Stats.TicketsByHour(ctx, hourScope(c))
	markDegraded(c, degraded)
	return c.JSON(http.StatusOK, hours)
}

// markDegraded flags figures that are empty because a read failed, which
// keeps them out of the response cache.
func markDegraded(c echo.Context, degraded func() bool) {
	if degraded() {
		c.Response().Header().Set(middleware.HeaderDegraded, "1")
	}
}

// ListLogs returns rendered log entries, newest first. ?partyId= narrows them
// to one party and ?limit= caps the page.
func (h *ReportHandler) ListLogs(c echo.Context) error {
	var partyID *uint64
	if raw := c.QueryParam("partyId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return badRequest(c, "invalid partyId")
		}
		partyID = &id
	}
	limit := defaultLogLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return badRequest(c, "invalid limit")
		}
		limit = min(n, maxLogLimit)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	msgs, err := h.Logs.List(ctx, partyID, limit)
	if err != nil {
		c.Logger().Errorf("logs: list: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch logs"})
	}
	return c.JSON(http.StatusOK, msgs)
}
