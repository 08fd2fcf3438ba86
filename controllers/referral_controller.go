package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/growvest/growvest_backend/models"
	"github.com/growvest/growvest_backend/services"
	"github.com/growvest/growvest_backend/utils"
)

type ReferralController struct {
	users     services.UserStore
	referrals *services.ReferralService
}

func NewReferralController(users services.UserStore, referrals *services.ReferralService) *ReferralController {
	return &ReferralController{users: users, referrals: referrals}
}

// GetReferrals lists the authenticated user's referrals. type=DIRECT
// returns immediate referrals only; type=INDIRECT returns the whole
// downline, depth annotated (1 = direct). An optional level query param
// caps the INDIRECT traversal, returning depths 1 through level.
func (rc *ReferralController) GetReferrals(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userID, err := CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	refType := strings.ToUpper(c.QueryParam("type"))
	if refType == "" {
		refType = "DIRECT"
	}
	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	pageSize, _ := strconv.ParseInt(c.QueryParam("pageSize"), 10, 64)

	maxDepth := services.MaxReferralDepth
	if refType == "DIRECT" {
		maxDepth = 1
	}
	if levelStr := c.QueryParam("level"); levelStr != "" {
		if level, err := strconv.Atoi(levelStr); err == nil && level >= 1 && level <= services.MaxReferralDepth {
			maxDepth = level
		}
	}

	referrals, err := rc.referrals.AllReferrals(ctx, userID, maxDepth, page, pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load referrals",
		})
	}

	for i := range referrals {
		referrals[i].User.Password = ""
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referrals retrieved successfully",
		Data:    referrals,
	})
}

// GetReferralData returns the user's referral code and downline counts
func (rc *ReferralController) GetReferralData(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userID, err := CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	user, err := rc.users.Get(ctx, userID)
	if err != nil || user == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	direct, err := rc.referrals.DirectCount(ctx, userID, services.ReferralFilter{})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to count referrals",
		})
	}
	indirect, err := rc.referrals.IndirectCount(ctx, userID, services.ReferralFilter{}, services.MaxReferralDepth)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to count referrals",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referral data retrieved successfully",
		Data: map[string]interface{}{
			"referralCode":  user.ReferralCode,
			"directCount":   direct,
			"indirectCount": indirect,
		},
	})
}

// GetReferralQRCode returns the user's referral code as a QR data URI
func (rc *ReferralController) GetReferralQRCode(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	user, err := rc.users.Get(ctx, userID)
	if err != nil || user == nil || user.ReferralCode == "" {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Referral code not found",
		})
	}

	qrCode, err := utils.GenerateReferralQRCode(user.ReferralCode)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate QR code",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "QR code generated successfully",
		Data: map[string]string{
			"referralCode": user.ReferralCode,
			"qrCode":       qrCode,
		},
	})
}
