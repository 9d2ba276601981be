package profile

import (
	"net/http"

	"profilephoto-backend/internal/models"
	"profilephoto-backend/internal/services"
	"profilephoto-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type UpdateDemographicsRequest struct {
	Gender    string `json:"gender" binding:"max=30"`
	AgeRange  string `json:"age_range" binding:"max=30"`
	Ethnicity string `json:"ethnicity" binding:"max=50"`
}

type SelectStylesRequest struct {
	Styles []string `json:"styles" binding:"required,min=1,max=10"`
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

// GetProfile godoc
// @Summary Get the current profile
// @Tags profile
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=models.Profile}
// @Router /profile [get]
func GetProfile(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Profile retrieved", profile))
}

// UpdateDemographics godoc
// @Summary Update demographic prompt hints
// @Tags profile
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body UpdateDemographicsRequest true "Demographic hints"
// @Success 200 {object} utils.Response
// @Router /profile/demographics [put]
func UpdateDemographics(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	var req UpdateDemographicsRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if err := services.UpdateDemographics(profile.ID, req.Gender, req.AgeRange, req.Ethnicity); err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Demographics updated", nil))
}

// SelectStyles godoc
// @Summary Choose styles generated automatically after training
// @Tags profile
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body SelectStylesRequest true "Style selection"
// @Success 200 {object} utils.Response
// @Router /profile/styles [put]
func SelectStyles(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	var req SelectStylesRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if err := services.SetSelectedStyles(profile.ID, req.Styles); err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Styles selected", nil))
}

// ListStyles godoc
// @Summary List the active style catalog
// @Tags profile
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=[]models.Style}
// @Router /styles [get]
func ListStyles(c *gin.Context) {
	styles, err := services.ListStyles()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Styles retrieved", styles))
}
