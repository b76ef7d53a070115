package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Mateusbmelzi/hub-entidades/internal/middleware"
	"github.com/Mateusbmelzi/hub-entidades/internal/model"
	"github.com/Mateusbmelzi/hub-entidades/internal/service"
)

// ReservationHandler serves reservation intake for members and the
// approval dashboard for admins.
type ReservationHandler struct {
	Reservations *service.Reservations
	Log          *slog.Logger
}

// NewReservationHandler panics on a nil service.
func NewReservationHandler(svc *service.Reservations, log *slog.Logger) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: svc, Log: loggerOr(log)}
}

// Create handles POST /v1/reservations.  The reservation is filed as
// pending on behalf of the caller; 201 with the stored reservation.
func (h *ReservationHandler) Create(c echo.Context) error {
	actor := middleware.Actor(c)
	if actor == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body service.NewReservation
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	r, err := h.Reservations.Create(c.Request().Context(), actor, body)
	if err != nil {
		return writeError(c, h.Log, err, "failed to create reservation")
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": r})
}

// Get handles GET /v1/reservations/:id.  Students only see their own
// requests; entities and admins see any.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	r, err := h.Reservations.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err, "failed to fetch reservation")
	}
	if role, _ := c.Get(middleware.RoleKey).(string); role == model.RoleStudent && r.RequesterID != middleware.Actor(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": r})
}

// Validate handles POST /v1/reservations/validate: capacity and conflict
// checks for a slot, without writing.  Always 200 when the input is well
// formed; the verdict is in the body.
func (h *ReservationHandler) Validate(c echo.Context) error {
	var body service.SlotQuery
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Reservations.ValidateSlot(c.Request().Context(), body)
	if err != nil {
		return writeError(c, h.Log, err, "failed to validate slot")
	}
	return c.JSON(http.StatusOK, res)
}

// List handles GET /v1/admin/reservations.  Query parameters: status,
// room_id, organization_id, requester_id, from, to (YYYY-MM-DD), limit,
// offset.
func (h *ReservationHandler) List(c echo.Context) error {
	var f model.ReservationFilter
	if v := strings.TrimSpace(c.QueryParam("status")); v != "" {
		st, err := model.ParseStatus(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		f.Status = st
	}
	var err error
	if f.RoomID, err = queryID(c, "room_id"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room_id"})
	}
	if f.OrganizationID, err = queryID(c, "organization_id"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organization_id"})
	}
	f.RequesterID = strings.TrimSpace(c.QueryParam("requester_id"))
	if f.From, err = queryDate(c, "from"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from date"})
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to date"})
	}
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	f.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	items, err := h.Reservations.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, h.Log, err, "failed to load reservations")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

type approveRequest struct {
	RoomID *uuid.UUID `json:"room_id"`
}

// Approve handles POST /v1/admin/reservations/:id/approve with an optional
// {"room_id": ...}.  A room that is too small answers 422; an overlapping
// approved reservation answers 409 with the conflicts.
func (h *ReservationHandler) Approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body approveRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	r, err := h.Reservations.Approve(c.Request().Context(), middleware.Actor(c), id, body.RoomID)
	if err != nil {
		return writeError(c, h.Log, err, "failed to approve reservation")
	}
	return c.JSON(http.StatusOK, echo.Map{"item": r})
}

type rejectRequest struct {
	Comment string `json:"comment"`
}

// Reject handles POST /v1/admin/reservations/:id/reject with
// {"comment": ...}.
func (h *ReservationHandler) Reject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body rejectRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	r, err := h.Reservations.Reject(c.Request().Context(), middleware.Actor(c), id, body.Comment)
	if err != nil {
		return writeError(c, h.Log, err, "failed to reject reservation")
	}
	return c.JSON(http.StatusOK, echo.Map{"item": r})
}

// Cancel handles POST /v1/admin/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	r, err := h.Reservations.Cancel(c.Request().Context(), middleware.Actor(c), id)
	if err != nil {
		return writeError(c, h.Log, err, "failed to cancel reservation")
	}
	return c.JSON(http.StatusOK, echo.Map{"item": r})
}
