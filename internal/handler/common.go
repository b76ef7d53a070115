// Package handler maps HTTP requests onto the reservation services and
// their results onto JSON.  Error bodies are {"error": message} like the
// rest of the API; validation failures add "code" and, for conflicts, the
// conflicting reservations.
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Mateusbmelzi/hub-entidades/internal/middleware"
	"github.com/Mateusbmelzi/hub-entidades/internal/model"
	"github.com/Mateusbmelzi/hub-entidades/internal/service"
)

// statusFor maps a validation code onto an HTTP status.
func statusFor(code service.Code) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeInvalidInput:
		return http.StatusBadRequest
	case service.CodeCapacity, service.CodeNotApproved:
		return http.StatusUnprocessableEntity
	default:
		// invalid_state, conflict, already_linked, not_linked
		return http.StatusConflict
	}
}

// writeError answers with the validation failure carried by err, or with
// a 500 and the fallback message for anything else.
func writeError(c echo.Context, log *slog.Logger, err error, fallback string) error {
	if ve, ok := service.AsValidation(err); ok {
		body := echo.Map{"error": ve.Message, "code": ve.Code}
		if len(ve.Conflicts) > 0 {
			body["conflicts"] = ve.Conflicts
		}
		return c.JSON(statusFor(ve.Code), body)
	}
	log.ErrorContext(c.Request().Context(), fallback,
		slog.String("path", c.Path()), slog.String("actor", middleware.Actor(c)), slog.Any("err", err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
}

// queryID parses an optional UUID query parameter.
func queryID(c echo.Context, name string) (*uuid.UUID, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c echo.Context, name string) (*model.Date, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil, nil
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func loggerOr(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}
