package generation

import (
	"errors"
	"net/http"

	"profilephoto-backend/internal/models"
	"profilephoto-backend/internal/provider"
	"profilephoto-backend/internal/services"
	"profilephoto-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

var providerClient *provider.Client

type GenerateRequest struct {
	Style string `json:"style" binding:"required,min=1,max=100"`
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

// Generate godoc
// @Summary Generate images in a style from the trained model
// @Description Charges one credit (package, then weekly, then purchased) before
// @Description calling the provider; a provider rejection refunds the charge
// @Tags generation
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body GenerateRequest true "Generation request"
// @Success 200 {object} utils.Response{data=provider.PredictionResult}
// @Failure 402 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /generations [post]
func Generate(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	var req GenerateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	prediction, consumed, err := services.RequestGeneration(c.Request.Context(), providerClient, profile.ID, req.Style)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrModelNotTrained):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		case errors.Is(err, services.ErrStyleNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
		default:
			c.JSON(http.StatusBadGateway, utils.NewErrorResponse(http.StatusBadGateway, err.Error()))
		}
		return
	}
	if !consumed {
		c.JSON(http.StatusPaymentRequired, utils.NewErrorResponse(http.StatusPaymentRequired, "Insufficient credits"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Generation started", prediction))
}

// GetGeneration godoc
// @Summary Get the status of a generation run
// @Description Reads the provider's view of the prediction; finished outputs
// @Description are stored even if the completion webhook never arrived
// @Tags generation
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Prediction ID"
// @Success 200 {object} utils.Response{data=provider.PredictionResult}
// @Failure 404 {object} utils.Response
// @Router /generations/{id} [get]
func GetGeneration(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	predictionID := c.Param("id")
	if predictionID == "" {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Prediction ID is required"))
		return
	}

	result, err := services.GetGenerationStatus(c.Request.Context(), providerClient, profile.ID, predictionID)
	if err != nil {
		if errors.Is(err, services.ErrPredictionNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusBadGateway, utils.NewErrorResponse(http.StatusBadGateway, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Generation status", result))
}
