package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/growvest/growvest_backend/controllers"
	"github.com/growvest/growvest_backend/middleware"
	"github.com/growvest/growvest_backend/models"
	"github.com/growvest/growvest_backend/websocket"
)

// RegisterUserRoutes sets up all user-facing protected routes
func RegisterUserRoutes(e *echo.Echo,
	balanceController *controllers.BalanceController,
	referralController *controllers.ReferralController,
	rankController *controllers.RankController,
	transactionController *controllers.TransactionController,
	notificationController *controllers.NotificationController,
	hub *websocket.Hub,
) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	// Balances and transaction history
	r.GET("/balances", balanceController.GetBalances)
	r.GET("/transactions", balanceController.GetTransactions)
	r.POST("/transactions/deposit", transactionController.CreateDeposit)
	r.POST("/transactions/withdraw", transactionController.CreateWithdrawal)

	// Referral network
	r.GET("/referrals", referralController.GetReferrals)
	r.GET("/referrals/data", referralController.GetReferralData)
	r.GET("/referrals/qrcode", referralController.GetReferralQRCode)

	// Rank and rewards
	r.GET("/rank", rankController.GetRankInfo)
	r.POST("/rank/claim", rankController.ClaimReward)
	r.GET("/rewards", rankController.GetRewards)

	// Notifications
	r.GET("/notifications", notificationController.GetNotifications)
	r.PUT("/notifications/:id/read", notificationController.MarkRead)
	r.PUT("/notifications/read-all", notificationController.MarkAllRead)

	// Live event stream
	r.GET("/ws", func(c echo.Context) error {
		userID, err := controllers.CurrentUserID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, models.Response{
				Status:  http.StatusUnauthorized,
				Message: "Invalid user ID in token",
			})
		}
		return websocket.HandleWebSocket(c, hub, userID)
	})
}
