package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Mateusbmelzi/hub-entidades/internal/middleware"
	"github.com/Mateusbmelzi/hub-entidades/internal/service"
)

// PhaseHandler manages the reservations attached to a selection-process
// phase.
type PhaseHandler struct {
	Phases *service.PhaseLinks
	Log    *slog.Logger
}

func NewPhaseHandler(phases *service.PhaseLinks, log *slog.Logger) *PhaseHandler {
	if phases == nil {
		panic("nil service passed to NewPhaseHandler")
	}
	return &PhaseHandler{Phases: phases, Log: loggerOr(log)}
}

// List handles GET /v1/phases/:id/reservations.
func (h *PhaseHandler) List(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid phase id"})
	}
	items, err := h.Phases.List(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err, "failed to load phase reservations")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

type attachRequest struct {
	ReservationIDs []uuid.UUID `json:"reservation_ids"`
}

// Attach handles POST /v1/phases/:id/reservations with
// {"reservation_ids": [...]}.  Pairs that already exist come back under
// "skipped" with a warning; nothing is written when any candidate fails.
func (h *PhaseHandler) Attach(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid phase id"})
	}
	var body attachRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Phases.Attach(c.Request().Context(), middleware.Actor(c), id, body.ReservationIDs)
	if err != nil {
		return writeError(c, h.Log, err, "failed to attach reservations")
	}
	return c.JSON(http.StatusOK, res)
}

// Detach handles DELETE /v1/phases/:id/reservations/:reservation_id.
func (h *PhaseHandler) Detach(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid phase id"})
	}
	resID, err := uuid.Parse(c.Param("reservation_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Phases.Detach(c.Request().Context(), middleware.Actor(c), id, resID); err != nil {
		return writeError(c, h.Log, err, "failed to detach reservation")
	}
	return c.NoContent(http.StatusNoContent)
}
