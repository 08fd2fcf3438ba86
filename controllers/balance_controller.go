package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/growvest/growvest_backend/models"
	"github.com/growvest/growvest_backend/services"
)

type BalanceController struct {
	balances *services.BalanceService
	ledger   *services.LedgerService
}

func NewBalanceController(balances *services.BalanceService, ledger *services.LedgerService) *BalanceController {
	return &BalanceController{balances: balances, ledger: ledger}
}

// GetBalances returns every derived balance for the authenticated user.
// An unknown user gets zeros, not an error.
func (bc *BalanceController) GetBalances(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userID, err := CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	balances, err := bc.balances.Balances(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to compute balances",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Balances retrieved successfully",
		Data:    balances,
	})
}

// GetTransactions pages the authenticated user's ledger history
func (bc *BalanceController) GetTransactions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	pageSize, _ := strconv.ParseInt(c.QueryParam("pageSize"), 10, 64)

	transactions, err := bc.ledger.Transactions(ctx, userID, page, pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load transactions",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Transactions retrieved successfully",
		Data:    transactions,
	})
}
