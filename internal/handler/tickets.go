package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/service"
)

// TicketHandler exposes the check-in desk operations.
type TicketHandler struct {
	Tickets *service.TicketManager
}

func NewTicketHandler(t *service.TicketManager) *TicketHandler {
	return &TicketHandler{Tickets: t}
}

// subjectReq names an attendee: a student by card number or a guest by id.
type subjectReq struct {
	Type string `json:"type" validate:"required,oneof=student guest"`
	ID   uint64 `json:"id" validate:"required,gt=0"`
}

func (r subjectReq) subject() model.Subject {
	return model.Subject{Type: model.SubjectType(r.Type), ID: r.ID}
}

// Create issues a ticket and records the entry.
func (h *TicketHandler) Create(c echo.Context) error {
	var req subjectReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tickets.Create(ctx, req.subject())
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusCreated, "ticket created", t)
}

// Leave records the exit of the ticket holder.
func (h *TicketHandler) Leave(c echo.Context) error {
	var req subjectReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tickets.RecordExit(ctx, req.subject())
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, "exit recorded", t)
}

// Delete removes the ticket of the holder in the current scope.
func (h *TicketHandler) Delete(c echo.Context) error {
	var req subjectReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tickets.Delete(ctx, req.subject()); err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, "ticket deleted", nil)
}

// Status returns the ticket of ?type=&id= in the current scope, so the
// desk can tell whether the holder is inside.
func (h *TicketHandler) Status(c echo.Context) error {
	id, err := strconv.ParseUint(c.QueryParam("id"), 10, 64)
	if err != nil || id == 0 {
		return badRequest(c, "invalid id")
	}
	req := subjectReq{Type: c.QueryParam("type"), ID: id}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tickets.Get(ctx, req.subject())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket": t, "present": t.Present()})
}
