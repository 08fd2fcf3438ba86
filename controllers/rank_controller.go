package controllers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/growvest/growvest_backend/models"
	"github.com/growvest/growvest_backend/services"
)

type RankController struct {
	ranks   *services.RankService
	rewards services.RewardStore
}

func NewRankController(ranks *services.RankService, rewards services.RewardStore) *RankController {
	return &RankController{ranks: ranks, rewards: rewards}
}

// GetRankInfo returns the authenticated user's current period aggregates
// and matched rank. An elapsed period is settled here as a side effect:
// routine rank-status requests are what drive automatic reward creation.
func (rc *RankController) GetRankInfo(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	userID, err := CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	if _, err := rc.ranks.EvaluatePeriod(ctx, userID); err != nil {
		// The status read still works; settlement will retry next request.
		log.Printf("automatic period evaluation failed for user %s: %v", userID.Hex(), err)
	}

	info, err := rc.ranks.GetUserRankInfo(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to evaluate rank",
		})
	}
	if info == nil {
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "No active rank period",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Rank info retrieved successfully",
		Data:    info,
	})
}

// ClaimReward settles the current period with a claimed reward
func (rc *RankController) ClaimReward(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	userID, err := CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	reward, err := rc.ranks.ClaimReward(ctx, userID)
	if err != nil {
		switch err {
		case models.ErrRankPeriodNotStarted:
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Rank period not started",
			})
		case models.ErrRankNotReached:
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Rank not reached",
			})
		default:
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to claim reward",
			})
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Reward claimed successfully",
		Data:    reward,
	})
}

// GetRewards pages the authenticated user's reward history
func (rc *RankController) GetRewards(c echo.Context) error {
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

	rewards, err := rc.rewards.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load rewards",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Rewards retrieved successfully",
		Data:    rewards,
	})
}
