package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/growvest/growvest_backend/controllers"
	"github.com/growvest/growvest_backend/middleware"
)

// RegisterAdminRoutes sets up admin-only routes
func RegisterAdminRoutes(e *echo.Echo, adminController *controllers.AdminController) {
	admin := e.Group("/api/admin")
	admin.Use(middleware.JWTMiddleware())
	admin.Use(middleware.RequireUserType("admin"))

	// Transaction review
	admin.POST("/transactions/:id/approve", adminController.ApproveTransaction)
	admin.POST("/transactions/:id/reject", adminController.RejectTransaction)

	// Reward review
	admin.POST("/rewards/:id/approve", adminController.ApproveReward)
	admin.POST("/rewards/:id/reject", adminController.RejectReward)

	// Profit distribution and maintenance
	admin.POST("/distribution/run", adminController.RunDistribution)
	admin.POST("/reconcile", adminController.Reconcile)
	admin.POST("/profit-schedule", adminController.SaveProfitSchedule)
}
