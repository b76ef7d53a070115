package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Mateusbmelzi/hub-entidades/internal/handler"
	"github.com/Mateusbmelzi/hub-entidades/internal/middleware"
	"github.com/Mateusbmelzi/hub-entidades/internal/model"
)

// RegisterMember registers reservation intake for any signed-in member.
// limit guards the write routes.
func RegisterMember(e *echo.Echo, r *handler.ReservationHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/reservations",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent, model.RoleEntity, model.RoleAdmin),
	)
	g.POST("", r.Create, limit)
	g.POST("/validate", r.Validate)
	g.GET("/:id", r.Get)
}

// RegisterEntity registers the organisation-board endpoints: linking
// events to reservations and managing selection-phase reservations.
func RegisterEntity(e *echo.Echo, ev *handler.EventHandler, ph *handler.PhaseHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	mw := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleEntity, model.RoleAdmin),
		limit,
	}

	events := e.Group("/v1/events", mw...)
	events.PUT("/:id/reservation", ev.Link)
	events.DELETE("/:id/reservation/:reservation_id", ev.Unlink)

	phases := e.Group("/v1/phases", mw...)
	phases.GET("/:id/reservations", ph.List)
	phases.POST("/:id/reservations", ph.Attach)
	phases.DELETE("/:id/reservations/:reservation_id", ph.Detach)
}
