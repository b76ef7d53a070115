package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Mateusbmelzi/hub-entidades/internal/middleware"
	"github.com/Mateusbmelzi/hub-entidades/internal/model"
	"github.com/Mateusbmelzi/hub-entidades/internal/service"
)

// EventHandler exposes the event listing and the event-reservation link.
type EventHandler struct {
	Links *service.EventLinks
	Log   *slog.Logger
}

func NewEventHandler(links *service.EventLinks, log *slog.Logger) *EventHandler {
	if links == nil {
		panic("nil service passed to NewEventHandler")
	}
	return &EventHandler{Links: links, Log: loggerOr(log)}
}

// List handles GET /v1/events?organization_id=&page=&page_size=.
func (h *EventHandler) List(c echo.Context) error {
	var f model.EventFilter
	org, err := queryID(c, "organization_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organization_id"})
	}
	f.OrganizationID = org
	f.Page, _ = strconv.Atoi(c.QueryParam("page"))
	f.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))

	page, err := h.Links.ListEvents(c.Request().Context(), f)
	if err != nil {
		return writeError(c, h.Log, err, "failed to load events")
	}
	return c.JSON(http.StatusOK, page)
}

type linkRequest struct {
	ReservationID uuid.UUID `json:"reservation_id"`
}

// Link handles PUT /v1/events/:id/reservation with {"reservation_id": ...}.
// Both sides are written or neither is.
func (h *EventHandler) Link(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var body linkRequest
	if err := c.Bind(&body); err != nil || body.ReservationID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Links.Link(c.Request().Context(), middleware.Actor(c), eventID, body.ReservationID); err != nil {
		return writeError(c, h.Log, err, "failed to link event")
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": eventID, "reservation_id": body.ReservationID})
}

// Unlink handles DELETE /v1/events/:id/reservation/:reservation_id.
func (h *EventHandler) Unlink(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	resID, err := uuid.Parse(c.Param("reservation_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Links.Unlink(c.Request().Context(), middleware.Actor(c), eventID, resID); err != nil {
		return writeError(c, h.Log, err, "failed to unlink event")
	}
	return c.NoContent(http.StatusNoContent)
}
