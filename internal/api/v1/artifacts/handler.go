package artifacts

import (
	"errors"
	"net/http"
	"strconv"

	"profilephoto-backend/internal/models"
	"profilephoto-backend/internal/services"
	"profilephoto-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

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

func artifactID(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid artifact ID"))
		return 0, false
	}
	return uint(id), true
}

// ListScheduled godoc
// @Summary List the current profile's artifacts pending deletion
// @Description Ordered by how soon each artifact will be deleted
// @Tags artifacts
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=[]models.GeneratedArtifact}
// @Router /artifacts/scheduled [get]
func ListScheduled(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	items, err := services.ScheduledForDeletion(profile.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Artifacts retrieved", items))
}

// GetRetentionInfo godoc
// @Summary Get retention details for one artifact
// @Tags artifacts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Artifact ID"
// @Success 200 {object} utils.Response{data=services.RetentionInfo}
// @Failure 404 {object} utils.Response
// @Router /artifacts/{id}/retention [get]
func GetRetentionInfo(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}
	id, ok := artifactID(c)
	if !ok {
		return
	}

	info, err := services.GetRetentionInfo(profile.ID, id)
	if err != nil {
		if errors.Is(err, services.ErrArtifactNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Retention info retrieved", info))
}

// DeleteArtifact godoc
// @Summary Request deletion of one artifact
// @Description Marks the artifact for deletion; it stays restorable for 24 hours
// @Tags artifacts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Artifact ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /artifacts/{id} [delete]
func DeleteArtifact(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}
	id, ok := artifactID(c)
	if !ok {
		return
	}

	if err := services.RequestArtifactDeletion(profile.ID, id); err != nil {
		if errors.Is(err, services.ErrArtifactNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Artifact marked for deletion", nil))
}

// DeleteAllArtifacts godoc
// @Summary Request deletion of all the current profile's artifacts
// @Tags artifacts
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response
// @Router /artifacts [delete]
func DeleteAllArtifacts(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	count, err := services.RequestAllArtifactsDeletion(profile.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Artifacts marked for deletion", gin.H{"marked": count}))
}

// RestoreArtifact godoc
// @Summary Restore an artifact the user marked for deletion
// @Description Only succeeds within 24 hours of the deletion request
// @Tags artifacts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Artifact ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /artifacts/{id}/restore [post]
func RestoreArtifact(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}
	id, ok := artifactID(c)
	if !ok {
		return
	}

	restored, err := services.RestoreArtifact(profile.ID, id)
	if err != nil {
		if errors.Is(err, services.ErrArtifactNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	if !restored {
		c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, "Artifact can no longer be restored"))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Artifact restored", nil))
}
