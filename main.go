package main

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/growvest/growvest_backend/config"
	"github.com/growvest/growvest_backend/controllers"
	"github.com/growvest/growvest_backend/middleware"
	"github.com/growvest/growvest_backend/repositories"
	"github.com/growvest/growvest_backend/routes"
	"github.com/growvest/growvest_backend/services"
	"github.com/growvest/growvest_backend/websocket"

	"github.com/jonboulle/clockwork"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Initialize Firebase
	config.InitFirebase()

	// Connect to Redis
	config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()
	db := client.Database(config.DBName())

	// Create WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{
		AllowedDomains: []string{"*"},
		AllowInlineJS:  false,
		AllowEval:      false,
	}))

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Growvest Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	ledgerRepo := repositories.NewLedgerRepository(db)
	rewardRepo := repositories.NewRewardRepository(db)
	programRepo := repositories.NewProgramRepository(db)
	rankRepo := repositories.NewRankRepository(db)

	// Initialize services
	clock := clockwork.NewRealClock()
	notifier := services.NewNotificationService(db, wsHub)
	rankCache := services.NewRankCache(config.GetRedisClient(), 10*time.Minute)
	referralService := services.NewReferralService(userRepo)
	balanceService := services.NewBalanceService(ledgerRepo, rewardRepo, userRepo, programRepo, referralService)
	distributionService := services.NewDistributionService(userRepo, ledgerRepo, balanceService, referralService, programRepo, programRepo, rankCache, notifier, clock)
	ledgerService := services.NewLedgerService(ledgerRepo, userRepo, balanceService, distributionService, notifier, clock)
	rankService := services.NewRankService(rewardRepo, rankRepo, ledgerRepo, userRepo, referralService, balanceService, rankCache, notifier, clock)

	// Initialize controllers
	authController := controllers.NewAuthController(userRepo, referralService)
	balanceController := controllers.NewBalanceController(balanceService, ledgerService)
	referralController := controllers.NewReferralController(userRepo, referralService)
	rankController := controllers.NewRankController(rankService, rewardRepo)
	transactionController := controllers.NewTransactionController(ledgerService)
	notificationController := controllers.NewNotificationController(notifier)
	adminController := controllers.NewAdminController(ledgerService, distributionService, rankService, rewardRepo, programRepo, notifier)

	// Register routes
	routes.RegisterAuthRoutes(e, authController)
	routes.RegisterUserRoutes(e, balanceController, referralController, rankController, transactionController, notificationController, wsHub)
	routes.RegisterAdminRoutes(e, adminController)

	// Get port from environment variable or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start the server
	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
