// Package handler contains the HTTP handlers of the booking API.  Handlers
// depend on small interfaces so tests can drive them with mocks.
package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/flavor-entertainers/booking-platform/internal/booking"
	"github.com/flavor-entertainers/booking-platform/internal/logging"
	"github.com/flavor-entertainers/booking-platform/internal/middleware"
	"github.com/flavor-entertainers/booking-platform/internal/repository"
	"github.com/flavor-entertainers/booking-platform/internal/service"
	"github.com/flavor-entertainers/booking-platform/internal/utils"
)

var errInvalidBody = errors.New("invalid request body")

// errorStatus maps sentinel errors to HTTP statuses.  Order matters: the
// first match wins.
var errorStatus = []struct {
	err    error
	status int
}{
	{errInvalidBody, http.StatusBadRequest},
	{utils.ErrWeakPassword, http.StatusBadRequest},
	{service.ErrInvalidWebhook, http.StatusBadRequest},
	{repository.ErrNotFound, http.StatusNotFound},
	{repository.ErrForbidden, http.StatusForbidden},
	{booking.ErrNotAllowed, http.StatusForbidden},
	{service.ErrClientBlocked, http.StatusForbidden},
	{repository.ErrEmailExists, http.StatusConflict},
	{repository.ErrConflict, http.StatusConflict},
	{repository.ErrStaleStatus, http.StatusConflict},
	{booking.ErrInvalidTransition, http.StatusConflict},
	{service.ErrInvalidRequest, http.StatusUnprocessableEntity},
	{service.ErrReasonRequired, http.StatusUnprocessableEntity},
	{service.ErrReceiptRequired, http.StatusUnprocessableEntity},
	{service.ErrPerformerUnavailable, http.StatusUnprocessableEntity},
	{booking.ErrNoServices, http.StatusUnprocessableEntity},
	{booking.ErrInvalidDuration, http.StatusUnprocessableEntity},
	{booking.ErrServiceNotOffered, http.StatusUnprocessableEntity},
	{booking.ErrUnknownRateType, http.StatusUnprocessableEntity},
	{booking.ErrUnknownAction, http.StatusBadRequest},
	{service.ErrPaymentsDisabled, http.StatusServiceUnavailable},
}

// writeError responds with the status of the first sentinel err wraps.
// The message starts at the sentinel so operation prefixes never reach the
// client.  Unknown errors are logged and reported as 500.
func writeError(c echo.Context, err error) error {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		fields := make(map[string]string, len(verr))
		for _, fe := range verr {
			fields[fe.Field()] = fe.Tag()
		}
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": fields})
	}
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return c.JSON(m.status, echo.Map{"error": fromSentinel(err, m.err)})
		}
	}
	slog.ErrorContext(c.Request().Context(), "request failed",
		slog.String("method", c.Request().Method),
		slog.String("path", c.Path()),
		logging.Err(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func fromSentinel(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()); i >= 0 {
		return msg[i:]
	}
	return sentinel.Error()
}

// normalizer is implemented by request bodies that clean up their fields
// (trim, lower-case) before validation.
type normalizer interface {
	Normalize()
}

// bindAndValidate decodes the request body into dst, normalizes it and runs
// the echo validator over it.
func bindAndValidate(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return errInvalidBody
	}
	if n, ok := dst.(normalizer); ok {
		n.Normalize()
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(dst)
}

// actorFrom builds the workflow actor from the identity set by JWTAuth.
func actorFrom(c echo.Context) service.Actor {
	id, _ := middleware.UserID(c)
	return service.Actor{UserID: id, Role: booking.Role(middleware.Role(c))}
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", errInvalidBody, name)
	}
	return id, nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid %s", errInvalidBody, name)
	}
	return n, nil
}
