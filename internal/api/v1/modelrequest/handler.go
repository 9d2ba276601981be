package modelrequest

import (
	"errors"
	"net/http"
	"strconv"

	"profilephoto-backend/internal/models"
	"profilephoto-backend/internal/provider"
	"profilephoto-backend/internal/services"
	"profilephoto-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

var providerClient *provider.Client

type CreateModelRequestRequest struct {
	ModelName         string `json:"model_name" binding:"required,min=1,max=100"`
	TrainingBundleURL string `json:"training_bundle_url" binding:"required,url"`
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

// CreateModelRequest godoc
// @Summary Start provisioning and training a custom model
// @Description The upload flow calls this once the training bundle is assembled
// @Tags models
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body CreateModelRequestRequest true "Model creation request"
// @Success 200 {object} utils.Response{data=models.ModelCreationRequest}
// @Failure 400 {object} utils.Response
// @Router /model-requests [post]
func CreateModelRequest(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	var req CreateModelRequestRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	request, err := services.CreateModelRequest(c.Request.Context(), providerClient,
		profile.ID, req.ModelName, req.TrainingBundleURL)
	if err != nil {
		// The row exists even when the provider rejected the create; return
		// it so the UI can show the failed state.
		c.JSON(http.StatusBadGateway, utils.NewResponse(http.StatusBadGateway, err.Error(), request))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Model creation started", request))
}

// GetModelRequest godoc
// @Summary Get one model creation request
// @Tags models
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Request ID"
// @Success 200 {object} utils.Response{data=models.ModelCreationRequest}
// @Failure 404 {object} utils.Response
// @Router /model-requests/{id} [get]
func GetModelRequest(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid request ID"))
		return
	}

	request, err := services.GetModelRequestByID(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrModelRequestNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	// Ownership reads as not found, not as denied
	if request.ProfileID != profile.ID && profile.Role != "admin" {
		c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, services.ErrModelRequestNotFound.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Request retrieved", request))
}

// ListModelRequests godoc
// @Summary List the current profile's model creation requests
// @Tags models
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=[]models.ModelCreationRequest}
// @Router /model-requests [get]
func ListModelRequests(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	requests, err := services.GetModelRequestsByProfile(profile.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Requests retrieved", requests))
}
