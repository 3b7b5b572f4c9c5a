package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/service"
)

// DirectoryHandler serves the student register and the guest list.
type DirectoryHandler struct {
	Students *service.StudentService
	Guests   *service.GuestService
}

func NewDirectoryHandler(s *service.StudentService, g *service.GuestService) *DirectoryHandler {
	return &DirectoryHandler{Students: s, Guests: g}
}

// ListStudents returns students, optionally filtered with ?q=.
func (h *DirectoryHandler) ListStudents(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	students, err := h.Students.List(ctx, c.QueryParam("q"))
	if err != nil {
		c.Logger().Errorf("students: list: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch students"})
	}
	return c.JSON(http.StatusOK, students)
}

// GetStudent looks a student up by card number.
func (h *DirectoryHandler) GetStudent(c echo.Context) error {
	number, err := strconv.ParseUint(c.Param("studentId"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid student number")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Students.GetByStudentID(ctx, number)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

type studentReq struct {
	StudentID  uint64 `json:"studentId" validate:"required,gt=0"`
	LastName   string `json:"lastName" validate:"required,max=100"`
	FirstName  string `json:"firstName" validate:"required,max=100"`
	Speciality string `json:"speciality" validate:"max=100"`
	IsMember   bool   `json:"isMember"`
}

// CreateStudent registers a student.
func (h *DirectoryHandler) CreateStudent(c echo.Context) error {
	var req studentReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Students.Create(ctx, model.Student{
		StudentID:  req.StudentID,
		LastName:   req.LastName,
		FirstName:  req.FirstName,
		Speciality: req.Speciality,
		IsMember:   req.IsMember,
	})
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusCreated, "student created", s)
}

// ListGuests returns guests with their guarantor.
func (h *DirectoryHandler) ListGuests(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	guests, err := h.Guests.List(ctx)
	if err != nil {
		c.Logger().Errorf("guests: list: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch guests"})
	}
	return c.JSON(http.StatusOK, guests)
}

type guestReq struct {
	LastName    string  `json:"lastName" validate:"required,max=100"`
	FirstName   string  `json:"firstName" validate:"required,max=100"`
	GuarantorID *uint64 `json:"guarantorId"`
	// Admit also issues the guest's ticket in the same transaction.
	Admit bool `json:"admit"`
}

// CreateGuest registers a guest, and admits them when asked to.
func (h *DirectoryHandler) CreateGuest(c echo.Context) error {
	var req guestReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	in := service.GuestInput{LastName: req.LastName, FirstName: req.FirstName, GuarantorID: req.GuarantorID}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if req.Admit {
		g, t, err := h.Guests.CreateAndAdmit(ctx, in)
		if err != nil {
			return respondError(c, err)
		}
		return success(c, http.StatusCreated, "guest created and admitted", echo.Map{"guest": g, "ticket": t})
	}
	g, err := h.Guests.Create(ctx, in)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusCreated, "guest created", g)
}
