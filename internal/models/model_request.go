package models

import "time"

// ModelRequestStatus tracks the lifecycle of provisioning and training one
// user's custom model. Transitions only move forward:
// creating -> ready -> training, creating -> failed, ready -> failed.
type ModelRequestStatus string

const (
	ModelRequestStatusCreating ModelRequestStatus = "creating"
	ModelRequestStatusReady    ModelRequestStatus = "ready"
	ModelRequestStatusTraining ModelRequestStatus = "training"
	ModelRequestStatusFailed   ModelRequestStatus = "failed"
)

// ModelCreationRequest records one attempt to create and train a per-user
// model on the provider. Rows are never deleted; they are the audit trail.
type ModelCreationRequest struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProfileID uint   `gorm:"index;not null" json:"profile_id"`
	ModelName string `gorm:"not null" json:"model_name"`

	// Provider-assigned identifier, empty until the create call succeeds
	RemoteModelID string `gorm:"index" json:"remote_model_id"`

	Status ModelRequestStatus `gorm:"index;not null;default:'creating'" json:"status"`

	// URL of the zipped training images; training starts once the remote
	// model resolves and this is non-empty
	TrainingBundleURL string `json:"training_bundle_url"`

	RemoteTrainingID    string `gorm:"index" json:"remote_training_id"`
	TrainedModelVersion string `json:"trained_model_version"`

	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message"`
}

func (ModelCreationRequest) TableName() string {
	return "model_creation_requests"
}
