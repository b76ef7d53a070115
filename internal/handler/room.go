package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Mateusbmelzi/hub-entidades/internal/repository"
)

// RoomHandler serves the read-only room catalogue.
type RoomHandler struct {
	Store repository.Store
	Log   *slog.Logger
}

func NewRoomHandler(store repository.Store, log *slog.Logger) *RoomHandler {
	return &RoomHandler{Store: store, Log: loggerOr(log)}
}

// List handles GET /v1/rooms.
func (h *RoomHandler) List(c echo.Context) error {
	rooms, err := h.Store.ListRooms(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err, "failed to load rooms")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rooms, "count": len(rooms)})
}

// Get handles GET /v1/rooms/:id.
func (h *RoomHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	room, err := h.Store.GetRoom(c.Request().Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	}
	if err != nil {
		return writeError(c, h.Log, err, "failed to load room")
	}
	return c.JSON(http.StatusOK, room)
}
