package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/growvest/growvest_backend/models"
	"github.com/growvest/growvest_backend/services"
)

type AdminController struct {
	ledger       *services.LedgerService
	distribution *services.DistributionService
	ranks        *services.RankService
	rewards      services.RewardStore
	schedules    services.ProfitScheduleStore
	notifier     services.Notifier
}

func NewAdminController(ledger *services.LedgerService, distribution *services.DistributionService, ranks *services.RankService, rewards services.RewardStore, schedules services.ProfitScheduleStore, notifier services.Notifier) *AdminController {
	return &AdminController{
		ledger:       ledger,
		distribution: distribution,
		ranks:        ranks,
		rewards:      rewards,
		schedules:    schedules,
		notifier:     notifier,
	}
}

func pathObjectID(c echo.Context, name string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.Param(name))
}

// ApproveTransaction settles a pending transaction. An approved deposit
// also triggers referral-credit fan-out to the depositor's upline.
func (ac *AdminController) ApproveTransaction(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	txID, err := pathObjectID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid transaction ID",
		})
	}

	tx, err := ac.ledger.ApproveTransaction(ctx, txID)
	if err != nil {
		if err == models.ErrStaleTransition {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Transaction is not pending",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to approve transaction",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Transaction approved successfully",
		Data:    tx,
	})
}

func (ac *AdminController) RejectTransaction(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	txID, err := pathObjectID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid transaction ID",
		})
	}

	var req models.RejectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	tx, err := ac.ledger.RejectTransaction(ctx, txID, req.Reason)
	if err != nil {
		switch err {
		case models.ErrRejectionReason:
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Rejection reason is required",
			})
		case models.ErrStaleTransition:
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Transaction is not pending",
			})
		default:
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to reject transaction",
			})
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Transaction rejected successfully",
		Data:    tx,
	})
}

// ApproveReward settles a pending reward record. The amount was already
// credited when the reward was created, so approval only fixes the status.
func (ac *AdminController) ApproveReward(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rewardID, err := pathObjectID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid reward ID",
		})
	}

	reward, err := ac.rewards.Settle(ctx, rewardID, models.StatusApproved, "")
	if err != nil {
		if err == models.ErrStaleTransition {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Reward is not pending",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to approve reward",
		})
	}

	ac.notifier.Notify(reward.UserID, models.NotificationRewardProcessed,
		"Reward approved", "Your rank reward has been approved", reward)

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Reward approved successfully",
		Data:    reward,
	})
}

// RejectReward settles a pending reward as rejected and reverses the
// balance credit made at creation time. A reward whose amount was already
// withdrawn from the reward bucket cannot be rejected, the reversal would
// leave a negative balance.
func (ac *AdminController) RejectReward(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rewardID, err := pathObjectID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid reward ID",
		})
	}

	var req models.RejectRequest
	if err := c.Bind(&req); err != nil || req.Reason == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Rejection reason is required",
		})
	}

	reward, err := ac.ranks.RejectReward(ctx, rewardID, req.Reason)
	if err != nil {
		switch err {
		case models.ErrStaleTransition:
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Reward is not pending",
			})
		case models.ErrRewardSpent:
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Reward amount was already withdrawn",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to reject reward",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Reward rejected successfully",
		Data:    reward,
	})
}

// RunDistribution kicks off a daily profit run over invested users.
// Period defaults to today (UTC); re-running the same period is safe,
// already-credited users are skipped.
func (ac *AdminController) RunDistribution(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	period := c.QueryParam("period")
	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	pageSize, _ := strconv.ParseInt(c.QueryParam("pageSize"), 10, 64)

	result, err := ac.distribution.RunDaily(ctx, period, page, pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Distribution run failed",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Distribution run completed",
		Data:    result,
	})
}

// Reconcile recomputes denormalized balances from the ledger and referral
// graph and repairs any drift.
func (ac *AdminController) Reconcile(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	pageSize, _ := strconv.ParseInt(c.QueryParam("pageSize"), 10, 64)

	corrected, err := ac.distribution.Reconcile(ctx, page, pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Reconciliation failed",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Reconciliation completed",
		Data:    map[string]int{"corrected": corrected},
	})
}

// SaveProfitSchedule stores a new profit-percentage schedule version.
// Running distributions keep the schedule they loaded at start.
func (ac *AdminController) SaveProfitSchedule(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var schedule models.ProfitSchedule
	if err := c.Bind(&schedule); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if len(schedule.Percentages) == 0 {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Schedule must define at least one percentage",
		})
	}

	id, err := ac.schedules.SaveSchedule(ctx, &schedule)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to save schedule",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Profit schedule saved successfully",
		Data:    map[string]string{"id": id.Hex()},
	})
}
