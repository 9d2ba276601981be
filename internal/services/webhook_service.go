package services

import (
	"encoding/json"
	"time"

	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"
	"profilephoto-backend/internal/provider"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Webhook event types as used in the dedup table.
const (
	WebhookEventTrainingComplete   = "training-complete"
	WebhookEventPredictionComplete = "prediction-complete"
)

// HandleTrainingComplete applies a training-complete push. It reaches the
// same terminal state the poller's training-status read would: the trained
// model version lands on the request and the profile, and the user's
// selected styles are queued for generation. Replays of a processed event
// are no-ops; a delivery that failed mid-apply returns an error so the
// provider redelivers, and the next delivery processes it again.
func HandleTrainingComplete(raw []byte) error {
	var payload provider.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}

	process, err := recordWebhookEvent(WebhookEventTrainingComplete, payload.ID, raw)
	if err != nil {
		return err
	}
	if !process {
		zap.L().Info("duplicate training-complete delivery ignored", zap.String("event_id", payload.ID))
		return nil
	}

	profileID, ok := payload.ProfileID()
	if !ok {
		// No addressable consumer; logged and dropped, never retried.
		zap.L().Warn("training-complete payload missing profile id", zap.String("event_id", payload.ID))
		return finishWebhookEvent(WebhookEventTrainingComplete, payload.ID, "payload missing profile_id")
	}

	if payload.Status != provider.StatusSucceeded {
		if err := applyTrainingFailure(profileID, &payload); err != nil {
			markWebhookEventFailed(WebhookEventTrainingComplete, payload.ID, err.Error())
			return err
		}
		return finishWebhookEvent(WebhookEventTrainingComplete, payload.ID, "")
	}

	version := payload.TrainedVersion()
	if version == "" {
		zap.L().Warn("training-complete succeeded without a model version",
			zap.String("event_id", payload.ID), zap.Uint("profile_id", profileID))
		return finishWebhookEvent(WebhookEventTrainingComplete, payload.ID, "no model version in output")
	}

	if err := applyTrainingSuccess(profileID, &payload, version); err != nil {
		zap.L().Error("failed to apply training-complete",
			zap.String("event_id", payload.ID), zap.Error(err))
		markWebhookEventFailed(WebhookEventTrainingComplete, payload.ID, err.Error())
		return err
	}
	return finishWebhookEvent(WebhookEventTrainingComplete, payload.ID, "")
}

func applyTrainingSuccess(profileID uint, payload *provider.WebhookPayload, version string) error {
	request, err := findTrainingRequest(profileID, payload.ID)
	if err != nil {
		return err
	}
	return persistTrainingSuccess(request, profileID, version)
}

func applyTrainingFailure(profileID uint, payload *provider.WebhookPayload) error {
	request, err := findTrainingRequest(profileID, payload.ID)
	if err != nil {
		return err
	}
	message := payload.Error
	if message == "" {
		message = "training reported status " + payload.Status
	}
	return persistTrainingFailure(request, message)
}

// persistTrainingSuccess writes the trained version onto the request (when
// one is known) and the profile, then queues the user's selected styles for
// generation. Both observers of training completion — the webhook and the
// poller's training-status read — land here, so whichever arrives first wins
// and the other repeats the same writes.
func persistTrainingSuccess(request *models.ModelCreationRequest, profileID uint, version string) error {
	if request != nil {
		updates := map[string]interface{}{
			"trained_model_version": version,
			"status":                models.ModelRequestStatusTraining,
		}
		if request.CompletedAt == nil {
			updates["completed_at"] = time.Now()
		}
		// Guard against regressing a request that already failed.
		err := database.DB.Model(&models.ModelCreationRequest{}).
			Where("id = ? AND status <> ?", request.ID, models.ModelRequestStatusFailed).
			Updates(updates).Error
		if err != nil {
			return err
		}
	}

	var profile models.Profile
	if err := database.DB.First(&profile, profileID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			zap.L().Info("training completion for deleted profile ignored", zap.Uint("profile_id", profileID))
			return nil
		}
		return err
	}

	if err := database.DB.Model(&profile).
		UpdateColumn("trained_model_version", version).Error; err != nil {
		return err
	}

	zap.L().Info("trained model version persisted",
		zap.Uint("profile_id", profileID),
		zap.String("version", version))

	// Kick off generation for the styles the user picked up front.
	styles := decodeSelectedStyles(profile.SelectedStyles)
	if len(styles) == 0 {
		return nil
	}
	if err := EnqueueStyles(profileID, styles); err != nil {
		// Generation can still be requested manually; don't fail the delivery.
		zap.L().Error("failed to enqueue selected styles",
			zap.Uint("profile_id", profileID), zap.Error(err))
	}
	return nil
}

func persistTrainingFailure(request *models.ModelCreationRequest, message string) error {
	if request == nil {
		return nil
	}
	now := time.Now()
	err := database.DB.Model(&models.ModelCreationRequest{}).
		Where("id = ? AND status <> ?", request.ID, models.ModelRequestStatusFailed).
		Updates(map[string]interface{}{
			"status":        models.ModelRequestStatusFailed,
			"completed_at":  now,
			"error_message": message,
		}).Error
	if err != nil {
		return err
	}
	zap.L().Warn("training failed",
		zap.Uint("request_id", request.ID),
		zap.String("reason", message))
	return nil
}

// findTrainingRequest locates the request a training webhook addresses,
// preferring the exact training id. When the provider echoes an id the
// poller never recorded, it falls back to the profile's latest request
// still awaiting a result (ready or training) — never a failed or still
// provisioning one, which a stale completion must not touch.
func findTrainingRequest(profileID uint, trainingID string) (*models.ModelCreationRequest, error) {
	var request models.ModelCreationRequest
	if trainingID != "" {
		err := database.DB.Where("remote_training_id = ?", trainingID).First(&request).Error
		if err == nil {
			return &request, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	err := database.DB.
		Where("profile_id = ? AND status IN ?", profileID,
			[]models.ModelRequestStatus{models.ModelRequestStatusReady, models.ModelRequestStatusTraining}).
		Order("created_at desc").First(&request).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// HandlePredictionComplete turns a prediction-complete push into artifact
// rows, one per output URL, each entering the retention schedule immediately.
// A deleted account makes this a silent no-op; replays create nothing. A
// partially applied delivery returns an error so the provider redelivers,
// and the retry skips the rows already written.
func HandlePredictionComplete(raw []byte) error {
	var payload provider.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}

	process, err := recordWebhookEvent(WebhookEventPredictionComplete, payload.ID, raw)
	if err != nil {
		return err
	}
	if !process {
		zap.L().Info("duplicate prediction-complete delivery ignored", zap.String("event_id", payload.ID))
		return nil
	}

	profileID, ok := payload.ProfileID()
	if !ok {
		zap.L().Warn("prediction-complete payload missing profile id", zap.String("event_id", payload.ID))
		return finishWebhookEvent(WebhookEventPredictionComplete, payload.ID, "payload missing profile_id")
	}

	var profile models.Profile
	if err := database.DB.First(&profile, profileID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			// Account deleted between request and completion.
			return finishWebhookEvent(WebhookEventPredictionComplete, payload.ID, "")
		}
		markWebhookEventFailed(WebhookEventPredictionComplete, payload.ID, err.Error())
		return err
	}

	if payload.Status != provider.StatusSucceeded {
		zap.L().Warn("prediction failed",
			zap.String("event_id", payload.ID),
			zap.Uint("profile_id", profileID),
			zap.String("error", payload.Error))
		return finishWebhookEvent(WebhookEventPredictionComplete, payload.ID, "")
	}

	style, _ := payload.StyleName()
	urls := payload.OutputURLs()
	created := 0
	var firstErr error
	for _, url := range urls {
		// An earlier delivery may have died mid-batch; don't duplicate its rows.
		var existing int64
		err := database.DB.Model(&models.GeneratedArtifact{}).
			Where("prediction_id = ? AND source_url = ?", payload.ID, url).
			Count(&existing).Error
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if existing > 0 {
			continue
		}

		artifact := NewGeneratedArtifact(profileID, url, style, payload.ID, false)
		if err := database.DB.Create(&artifact).Error; err != nil {
			zap.L().Error("failed to store generated artifact",
				zap.Uint("profile_id", profileID),
				zap.String("url", url),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		created++
		MirrorArtifactAsync(artifact.ID)
	}
	if firstErr != nil {
		markWebhookEventFailed(WebhookEventPredictionComplete, payload.ID, firstErr.Error())
		return firstErr
	}

	zap.L().Info("prediction outputs stored",
		zap.String("event_id", payload.ID),
		zap.Uint("profile_id", profileID),
		zap.String("style", style),
		zap.Int("artifacts", created))
	return finishWebhookEvent(WebhookEventPredictionComplete, payload.ID, "")
}

// recordWebhookEvent registers a delivery in the dedup table. It returns
// false only when the same event was already processed to completion; a row
// left unprocessed by a delivery that failed mid-apply is handed back for
// another attempt. An empty provider event id cannot be deduplicated and is
// always processed.
func recordWebhookEvent(eventType, providerEventID string, raw []byte) (bool, error) {
	if providerEventID == "" {
		return true, nil
	}

	var existing models.WebhookEvent
	err := database.DB.
		Where("event_type = ? AND provider_event_id = ?", eventType, providerEventID).
		First(&existing).Error
	if err == nil {
		if existing.ProcessedAt != nil {
			return false, nil
		}
		zap.L().Info("reprocessing webhook event that never completed",
			zap.String("event_type", eventType),
			zap.String("event_id", providerEventID),
			zap.String("last_error", existing.ProcessingError))
		return true, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}

	event := models.WebhookEvent{
		EventType:       eventType,
		ProviderEventID: providerEventID,
		Payload:         string(raw),
	}
	if createErr := database.DB.Create(&event).Error; createErr != nil {
		// Either the unique index caught a concurrent delivery of the same
		// event, or the insert genuinely failed. Re-read to tell them apart.
		err := database.DB.
			Where("event_type = ? AND provider_event_id = ?", eventType, providerEventID).
			First(&existing).Error
		if err == nil {
			zap.L().Info("concurrent delivery already holds this webhook event",
				zap.String("event_type", eventType),
				zap.String("event_id", providerEventID))
			return false, nil
		}
		return false, createErr
	}
	return true, nil
}

// finishWebhookEvent marks the event consumed. Replays are rejected only
// after this point.
func finishWebhookEvent(eventType, providerEventID, processingNote string) error {
	if providerEventID == "" {
		return nil
	}
	now := time.Now()
	return database.DB.Model(&models.WebhookEvent{}).
		Where("event_type = ? AND provider_event_id = ?", eventType, providerEventID).
		Updates(map[string]interface{}{
			"processed_at":     now,
			"processing_error": processingNote,
		}).Error
}

// markWebhookEventFailed records why processing failed while leaving the
// event unconsumed, so the provider's redelivery gets another attempt.
func markWebhookEventFailed(eventType, providerEventID, processingError string) {
	if providerEventID == "" {
		return
	}
	err := database.DB.Model(&models.WebhookEvent{}).
		Where("event_type = ? AND provider_event_id = ?", eventType, providerEventID).
		Update("processing_error", processingError).Error
	if err != nil {
		zap.L().Error("failed to record webhook processing error",
			zap.String("event_type", eventType),
			zap.String("event_id", providerEventID),
			zap.Error(err))
	}
}

func decodeSelectedStyles(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var styles []string
	if err := json.Unmarshal(raw, &styles); err != nil {
		return nil
	}
	return styles
}
