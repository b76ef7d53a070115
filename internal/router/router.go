// Package router registers the HTTP routes of the reservation API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Mateusbmelzi/hub-entidades/internal/handler"
)

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, store handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(store))
}

// RegisterPublic registers the browse endpoints that need no token: the
// room catalogue and the event listing.
func RegisterPublic(e *echo.Echo, rooms *handler.RoomHandler, events *handler.EventHandler) {
	e.GET("/v1/rooms", rooms.List)
	e.GET("/v1/rooms/:id", rooms.Get)
	e.GET("/v1/events", events.List)
}
