package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/growvest/growvest_backend/controllers"
)

// RegisterAuthRoutes sets up public authentication routes
func RegisterAuthRoutes(e *echo.Echo, authController *controllers.AuthController) {
	auth := e.Group("/api/auth")
	auth.POST("/signup", authController.Signup)
	auth.POST("/login", authController.Login)
}
