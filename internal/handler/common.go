package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-logger/internal/service"
)

const requestTimeout = 5 * time.Second

// reqCtx bounds every store call made on behalf of a request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

var kindStatus = map[service.Kind]int{
	service.KindNotFound:         http.StatusNotFound,
	service.KindConflict:         http.StatusConflict,
	service.KindPermissionDenied: http.StatusForbidden,
	service.KindValidation:       http.StatusBadRequest,
	service.KindUnauthenticated:  http.StatusUnauthorized,
	service.KindUnexpected:       http.StatusInternalServerError,
}

// respondError maps a service error onto {"error","kind"} with the status
// of its kind. Unexpected errors are logged with their cause and answered
// with a generic message.
func respondError(c echo.Context, err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		se = &service.Error{Kind: service.KindUnexpected, Message: "internal error", Err: err}
	}
	if se.Kind == service.KindUnexpected {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "kind": se.Kind})
	}
	status, ok := kindStatus[se.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, echo.Map{"error": se.Message, "kind": se.Kind})
}

// success answers a mutation.
func success(c echo.Context, status int, message string, data any) error {
	body := echo.Map{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "kind": service.KindValidation})
}

// bind decodes and validates the request body into dst. It writes the 400
// response itself and reports false when the body is unusable.
func bind(c echo.Context, dst any) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, badRequest(c, "invalid body")
	}
	if err := c.Validate(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "invalid input",
			"kind":   service.KindValidation,
			"fields": fieldErrors(err),
		})
	}
	return true, nil
}

func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
