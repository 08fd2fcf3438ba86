package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/growvest/growvest_backend/models"
	"github.com/growvest/growvest_backend/services"
)

type TransactionController struct {
	ledger *services.LedgerService
}

func NewTransactionController(ledger *services.LedgerService) *TransactionController {
	return &TransactionController{ledger: ledger}
}

// CreateDeposit records a pending deposit for the authenticated user.
// The fee split is fixed at creation so later rate changes never touch
// in-flight transactions.
func (tc *TransactionController) CreateDeposit(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	var req models.DepositRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Amount must be greater than zero",
		})
	}

	tx, err := tc.ledger.CreateDeposit(ctx, userID, req.Amount)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create deposit",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Deposit created successfully",
		Data:    tx,
	})
}

// CreateWithdrawal records a pending withdrawal against one balance
// bucket. The bucket is debited synchronously so a second request cannot
// spend the same funds while the first awaits review.
func (tc *TransactionController) CreateWithdrawal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userID, err := CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	var req models.WithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid withdrawal request",
		})
	}

	tx, err := tc.ledger.CreateWithdrawal(ctx, userID, req.Amount, req.WithdrawalType)
	if err != nil {
		if err == models.ErrInsufficientBalance {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Insufficient balance",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create withdrawal",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Withdrawal created successfully",
		Data:    tx,
	})
}
