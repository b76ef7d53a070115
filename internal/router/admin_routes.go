package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Mateusbmelzi/hub-entidades/internal/handler"
	"github.com/Mateusbmelzi/hub-entidades/internal/middleware"
	"github.com/Mateusbmelzi/hub-entidades/internal/model"
)

// RegisterAdmin registers the approval dashboard.  Every route requires
// the ADMIN role.
func RegisterAdmin(e *echo.Echo, r *handler.ReservationHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/reservations", r.List)
	g.POST("/reservations/:id/approve", r.Approve, limit)
	g.POST("/reservations/:id/reject", r.Reject, limit)
	g.POST("/reservations/:id/cancel", r.Cancel, limit)
}
