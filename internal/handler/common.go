// Package handler implements the HTTP endpoints of the menu, booking and
// token APIs.  Each resource handler depends on a small store interface
// satisfied by the MySQL repositories.
package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/littlelemon/restaurant/internal/repository"
	"github.com/littlelemon/restaurant/internal/serializer"
)

// dbTimeout bounds the store calls of a single request.
const dbTimeout = 5 * time.Second

// maxBodyBytes caps request bodies read by bindInput.
const maxBodyBytes = 1 << 20

func dbContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// parseID reads the :id path parameter.  Anything other than a positive
// integer can never match a record.
func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// bindInput decodes a JSON or form-encoded body into a presence-aware
// serializer.Input.
func bindInput(c echo.Context) (serializer.Input, error) {
	req := c.Request()
	ctype := req.Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ctype, echo.MIMEApplicationForm) || strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		values, err := c.FormParams()
		if err != nil {
			return nil, serializer.ValidationError{serializer.NonFieldErrors: {"Malformed form data."}}
		}
		return serializer.FromForm(values), nil
	}
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return serializer.DecodeJSON(body)
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
}

// respondError maps the error taxonomy onto HTTP: validation failures
// are 400 with field messages, unknown ids 404, anything else 500.
func respondError(c echo.Context, op string, err error) error {
	var verr serializer.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, verr)
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c)
	}
	log.Printf("%s %s: %s failed: %v", c.Request().Method, c.Request().URL.Path, op, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": op + " failed"})
}
