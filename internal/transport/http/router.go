package http

import (
	"github.com/gin-gonic/gin"

	"github.com/Dracarys0904/ServiceGo/internal/domain"
)

// Router wires the dashboard-facing API. Role middleware only gates which
// actions are reachable; ownership and transition rules live in the
// components themselves.
func Router(sh *ServiceHandler, bh *BookingHandler, nh *NotificationHandler) *gin.Engine {
	r := gin.Default()

	v1 := r.Group("/v1")
	{
		v1.GET("/services", sh.List)
		v1.GET("/services/categories", sh.Categories)

		provider := v1.Group("/services")
		provider.Use(JWTAuth(), RequireRole(domain.RoleProvider))
		provider.POST("", sh.Create)
		provider.PATCH("/:id", sh.Update)

		secured := v1.Group("")
		secured.Use(JWTAuth())
		{
			secured.GET("/bookings", bh.List)
			secured.GET("/bookings/summary", bh.Summary)
			secured.POST("/bookings/:id/status", bh.UpdateStatus)

			customer := secured.Group("")
			customer.Use(RequireRole(domain.RoleCustomer))
			customer.POST("/bookings", bh.Create)

			secured.GET("/notifications", nh.List)
			secured.GET("/notifications/stream", nh.Stream)
			secured.POST("/notifications/:id/read", nh.MarkRead)
			secured.POST("/notifications/read-all", nh.MarkAllRead)
		}
	}
	return r
}
