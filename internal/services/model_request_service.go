package services

import (
	"context"
	"errors"
	"time"

	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"
	"profilephoto-backend/internal/provider"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrModelRequestNotFound = errors.New("model creation request not found")

// CreateModelRequest records a new model-creation attempt and asks the
// provider to provision the remote placeholder. The provider resource is
// eventually consistent: the row stays in creating until the poller (or a
// webhook) observes it resolve. A rejected create call fails the request
// immediately.
func CreateModelRequest(ctx context.Context, client *provider.Client, profileID uint, modelName, bundleURL string) (*models.ModelCreationRequest, error) {
	request := models.ModelCreationRequest{
		ProfileID:         profileID,
		ModelName:         modelName,
		Status:            models.ModelRequestStatusCreating,
		TrainingBundleURL: bundleURL,
	}
	if err := database.DB.Create(&request).Error; err != nil {
		return nil, err
	}

	remoteID, err := client.CreateModel(ctx, profileID, modelName)
	if err != nil {
		now := time.Now()
		request.Status = models.ModelRequestStatusFailed
		request.CompletedAt = &now
		request.ErrorMessage = "provider rejected model creation: " + err.Error()
		if saveErr := database.DB.Save(&request).Error; saveErr != nil {
			zap.L().Error("failed to persist rejected model request",
				zap.Uint("request_id", request.ID), zap.Error(saveErr))
		}
		return &request, err
	}

	request.RemoteModelID = remoteID
	if err := database.DB.Save(&request).Error; err != nil {
		return nil, err
	}

	zap.L().Info("model creation request submitted",
		zap.Uint("request_id", request.ID),
		zap.Uint("profile_id", profileID),
		zap.String("remote_model_id", remoteID))
	return &request, nil
}

// GetModelRequestByID returns one request for UI polling.
func GetModelRequestByID(id uint) (*models.ModelCreationRequest, error) {
	var request models.ModelCreationRequest
	if err := database.DB.First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

// GetModelRequestsByProfile returns every request a profile owns, newest
// first. Requests are never deleted, so this is the full audit trail.
func GetModelRequestsByProfile(profileID uint) ([]models.ModelCreationRequest, error) {
	var requests []models.ModelCreationRequest
	err := database.DB.Where("profile_id = ?", profileID).
		Order("created_at desc").Find(&requests).Error
	return requests, err
}

// LatestModelRequest returns the most recent request for a profile, or
// ErrModelRequestNotFound when the profile never created one.
func LatestModelRequest(profileID uint) (*models.ModelCreationRequest, error) {
	var request models.ModelCreationRequest
	err := database.DB.Where("profile_id = ?", profileID).
		Order("created_at desc").First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}
