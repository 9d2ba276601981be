package credits

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"profilephoto-backend/internal/models"
	"profilephoto-backend/internal/services"
	"profilephoto-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type TopUpRequest struct {
	ProfileID uint `json:"profile_id" binding:"required"`
	Credits   int  `json:"credits" binding:"required,min=1,max=10000"`
}

type GrantPackageRequest struct {
	ProfileID uint `json:"profile_id" binding:"required"`
	Credits   int  `json:"credits" binding:"required,min=1,max=10000"`
	ValidDays int  `json:"valid_days" binding:"required,min=1,max=3650"`
}

func currentProfile(c *gin.Context) (models.Profile, bool) {
	value, exists := c.Get("profile")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Not authenticated"))
		return models.Profile{}, false
	}
	profile, ok := value.(models.Profile)
	if !ok {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Invalid profile in context"))
		return models.Profile{}, false
	}
	return profile, true
}

// GetCreditStatus godoc
// @Summary Get the current profile's credit balances
// @Description Weekly balance reflects a lazy reset when the period has elapsed
// @Tags credits
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=services.CreditStatusView}
// @Router /credits [get]
func GetCreditStatus(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	status, err := services.GetCreditStatus(profile.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Credit status retrieved", status))
}

// GetUsageLogs godoc
// @Summary List the current profile's usage log entries
// @Tags credits
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "Max entries" default(50)
// @Success 200 {object} utils.Response{data=[]models.UsageLog}
// @Router /credits/usage [get]
func GetUsageLogs(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	logs, err := services.GetUsageLogs(profile.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Usage logs retrieved", logs))
}

// TopUp godoc
// @Summary Add purchased credits to a profile
// @Tags credits
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body TopUpRequest true "Top-up"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /admin/credits/topup [post]
func TopUp(c *gin.Context) {
	var req TopUpRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if err := services.AddPurchasedCredits(req.ProfileID, req.Credits); err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Credits added", nil))
}

// GrantPackage godoc
// @Summary Grant a time-limited credit package to a profile
// @Description Replaces any existing package balance and expiry
// @Tags credits
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body GrantPackageRequest true "Package grant"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /admin/credits/package [post]
func GrantPackage(c *gin.Context) {
	var req GrantPackageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	expiresAt := time.Now().AddDate(0, 0, req.ValidDays)
	if err := services.GrantPackage(req.ProfileID, req.Credits, expiresAt); err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Package granted", nil))
}
