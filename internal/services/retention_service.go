package services

import (
	"errors"
	"time"

	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"

	"gorm.io/gorm"
)

// Retention lifetimes. Schedules are fixed at creation and never recomputed.
const (
	UploadRetention    = 7 * 24 * time.Hour  // original uploads
	GeneratedRetention = 30 * 24 * time.Hour // generated images
	SoftDeleteLag      = 24 * time.Hour      // past the original schedule, not past marking
	RestoreWindow      = 24 * time.Hour      // after a user-requested deletion
)

var ErrArtifactNotFound = errors.New("artifact not found")

// RetentionScheduleFor computes the fixed deletion schedule for a new artifact.
func RetentionScheduleFor(isOriginalUpload bool, createdAt time.Time) time.Time {
	if isOriginalUpload {
		return createdAt.Add(UploadRetention)
	}
	return createdAt.Add(GeneratedRetention)
}

// NewGeneratedArtifact builds an artifact row with its retention schedule
// already applied. The caller persists it.
func NewGeneratedArtifact(profileID uint, sourceURL, style, predictionID string, isOriginalUpload bool) models.GeneratedArtifact {
	now := time.Now()
	return models.GeneratedArtifact{
		CreatedAt:             now,
		ProfileID:             profileID,
		SourceURL:             sourceURL,
		Style:                 style,
		PredictionID:          predictionID,
		IsOriginalUpload:      isOriginalUpload,
		IsGenerated:           !isOriginalUpload,
		ScheduledDeletionDate: RetentionScheduleFor(isOriginalUpload, now),
	}
}

// RequestArtifactDeletion marks one artifact for deletion immediately,
// bypassing the schedule. Ownership is part of the lookup: someone else's
// artifact reads as not found, not as denied.
func RequestArtifactDeletion(profileID, artifactID uint) error {
	now := time.Now()
	res := database.DB.Model(&models.GeneratedArtifact{}).
		Where("id = ? AND profile_id = ? AND is_deleted = ?", artifactID, profileID, false).
		Updates(map[string]interface{}{
			"is_marked_for_deletion":       true,
			"user_requested_deletion_date": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrArtifactNotFound
	}
	return nil
}

// RequestAllArtifactsDeletion marks every non-deleted artifact the profile
// owns. Returns how many were marked.
func RequestAllArtifactsDeletion(profileID uint) (int64, error) {
	now := time.Now()
	res := database.DB.Model(&models.GeneratedArtifact{}).
		Where("profile_id = ? AND is_deleted = ?", profileID, false).
		Updates(map[string]interface{}{
			"is_marked_for_deletion":       true,
			"user_requested_deletion_date": now,
		})
	return res.RowsAffected, res.Error
}

// RestoreArtifact undoes a user-requested deletion within the grace window.
// Returns false (no error) when the artifact is outside the window, already
// soft-deleted, or was marked by policy rather than by the user — a normal
// refusal the caller renders as "not allowed".
func RestoreArtifact(profileID, artifactID uint) (bool, error) {
	var artifact models.GeneratedArtifact
	err := database.DB.Where("id = ? AND profile_id = ?", artifactID, profileID).First(&artifact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrArtifactNotFound
		}
		return false, err
	}

	if artifact.IsDeleted || !artifact.IsMarkedForDeletion || artifact.UserRequestedDeletionDate == nil {
		return false, nil
	}
	if time.Since(*artifact.UserRequestedDeletionDate) > RestoreWindow {
		return false, nil
	}

	res := database.DB.Model(&models.GeneratedArtifact{}).
		Where("id = ? AND is_deleted = ?", artifactID, false).
		Updates(map[string]interface{}{
			"is_marked_for_deletion":       false,
			"user_requested_deletion_date": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ScheduledForDeletion lists artifacts that are marked but not yet
// soft-deleted, for UI display.
func ScheduledForDeletion(profileID uint) ([]models.GeneratedArtifact, error) {
	var artifacts []models.GeneratedArtifact
	err := database.DB.
		Where("profile_id = ? AND is_marked_for_deletion = ? AND is_deleted = ?", profileID, true, false).
		Order("scheduled_deletion_date asc").
		Find(&artifacts).Error
	return artifacts, err
}

// RetentionInfo is the full per-artifact retention status, soft-deleted state
// included.
type RetentionInfo struct {
	ArtifactID                uint       `json:"artifact_id"`
	ScheduledDeletionDate     time.Time  `json:"scheduled_deletion_date"`
	IsMarkedForDeletion       bool       `json:"is_marked_for_deletion"`
	UserRequestedDeletionDate *time.Time `json:"user_requested_deletion_date,omitempty"`
	IsDeleted                 bool       `json:"is_deleted"`
	DeletedAt                 *time.Time `json:"deleted_at,omitempty"`
	Restorable                bool       `json:"restorable"`
}

// GetRetentionInfo returns the retention status of one owned artifact.
func GetRetentionInfo(profileID, artifactID uint) (*RetentionInfo, error) {
	var artifact models.GeneratedArtifact
	err := database.DB.Where("id = ? AND profile_id = ?", artifactID, profileID).First(&artifact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArtifactNotFound
		}
		return nil, err
	}

	info := &RetentionInfo{
		ArtifactID:                artifact.ID,
		ScheduledDeletionDate:     artifact.ScheduledDeletionDate,
		IsMarkedForDeletion:       artifact.IsMarkedForDeletion,
		UserRequestedDeletionDate: artifact.UserRequestedDeletionDate,
		IsDeleted:                 artifact.IsDeleted,
		DeletedAt:                 artifact.DeletedAt,
	}
	info.Restorable = !artifact.IsDeleted &&
		artifact.IsMarkedForDeletion &&
		artifact.UserRequestedDeletionDate != nil &&
		time.Since(*artifact.UserRequestedDeletionDate) <= RestoreWindow
	return info, nil
}
