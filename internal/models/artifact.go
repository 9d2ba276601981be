package models

import "time"

// GeneratedArtifact is a stored image record, either an original upload or a
// provider-generated result. Retention is computed once at creation and then
// driven through scheduled -> marked -> soft-deleted by the retention sweep.
// Soft-deleted rows are never physically removed here.
type GeneratedArtifact struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProfileID uint   `gorm:"index;not null" json:"profile_id"`
	SourceURL string `gorm:"not null" json:"source_url"`
	MirrorURL string `json:"mirror_url"`
	Style     string `gorm:"index" json:"style"`

	// Provider prediction that produced this artifact, empty for uploads
	PredictionID string `gorm:"index" json:"prediction_id"`

	IsOriginalUpload bool `json:"is_original_upload"`
	IsGenerated      bool `json:"is_generated"`

	// Retention sub-record. ScheduledDeletionDate is fixed at creation:
	// uploads keep 7 days, generated images 30 days.
	ScheduledDeletionDate     time.Time  `gorm:"index;not null" json:"scheduled_deletion_date"`
	IsMarkedForDeletion       bool       `gorm:"index;not null;default:false" json:"is_marked_for_deletion"`
	UserRequestedDeletionDate *time.Time `json:"user_requested_deletion_date,omitempty"`
	IsDeleted                 bool       `gorm:"index;not null;default:false" json:"is_deleted"`
	DeletedAt                 *time.Time `json:"deleted_at,omitempty"`
}

func (GeneratedArtifact) TableName() string {
	return "generated_artifacts"
}
