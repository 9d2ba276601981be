package services

import (
	"context"
	"errors"
	"time"

	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"
	"profilephoto-backend/internal/provider"

	"go.uber.org/zap"
)

// ModelPoller periodically probes the provider for every request still in
// creating and advances the state machine: creating -> ready (training
// triggered) or creating -> failed. Once training is running it keeps
// reading the training status until a trained version (or a failure) comes
// back. The provider also pushes webhooks for the same transitions; both
// paths write idempotently so whichever signal lands first wins.
type ModelPoller struct {
	Client   *provider.Client
	Interval time.Duration

	// CreateTimeout bounds how long a request may sit in creating before it
	// is failed. A permanently unreachable provider would otherwise pin
	// requests in creating forever.
	CreateTimeout time.Duration
}

func NewModelPoller(client *provider.Client) *ModelPoller {
	return &ModelPoller{
		Client:        client,
		Interval:      time.Minute,
		CreateTimeout: 24 * time.Hour,
	}
}

func (p *ModelPoller) Run(ctx context.Context) {
	zap.L().Info("model poller started", zap.Duration("interval", p.Interval))
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("model poller stopped")
			return
		case <-ticker.C:
			if err := p.Tick(ctx); err != nil {
				zap.L().Error("model poll tick failed", zap.Error(err))
			}
		}
	}
}

// Tick processes every pending request once. Each request is handled and
// committed independently; one request's failure never blocks the rest of
// the batch.
func (p *ModelPoller) Tick(ctx context.Context) error {
	var pending []models.ModelCreationRequest
	err := database.DB.
		Where("status = ?", models.ModelRequestStatusCreating).
		Order("created_at asc").
		Find(&pending).Error
	if err != nil {
		return err
	}

	for i := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.pollOne(ctx, &pending[i])
	}

	var inTraining []models.ModelCreationRequest
	err = database.DB.
		Where("status = ? AND remote_training_id <> '' AND trained_model_version = ''",
			models.ModelRequestStatusTraining).
		Order("created_at asc").
		Find(&inTraining).Error
	if err != nil {
		return err
	}

	for i := range inTraining {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.checkTraining(ctx, &inTraining[i])
	}
	return nil
}

// checkTraining reads the provider's view of a running training job and
// applies the same terminal writes a training-complete webhook would. The
// webhook usually lands first; this path covers deliveries that never do.
func (p *ModelPoller) checkTraining(ctx context.Context, request *models.ModelCreationRequest) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("training status check panicked",
				zap.Uint("request_id", request.ID),
				zap.Any("panic", r))
		}
	}()

	result, err := p.Client.GetTrainingStatus(ctx, request.RemoteTrainingID)
	if err != nil {
		// Not-found and transient errors alike: the job stays pollable,
		// read again next tick.
		zap.L().Warn("training status read failed",
			zap.Uint("request_id", request.ID),
			zap.String("training_id", request.RemoteTrainingID),
			zap.Error(err))
		return
	}

	switch result.Status {
	case provider.StatusSucceeded:
		if result.Version == "" {
			zap.L().Warn("training succeeded without a model version",
				zap.Uint("request_id", request.ID),
				zap.String("training_id", request.RemoteTrainingID))
			return
		}
		if err := persistTrainingSuccess(request, request.ProfileID, result.Version); err != nil {
			zap.L().Error("failed to persist training result",
				zap.Uint("request_id", request.ID),
				zap.Error(err))
		}
	case provider.StatusFailed, provider.StatusCanceled:
		message := result.Error
		if message == "" {
			message = "training reported status " + result.Status
		}
		if err := persistTrainingFailure(request, message); err != nil {
			zap.L().Error("failed to persist training failure",
				zap.Uint("request_id", request.ID),
				zap.Error(err))
		}
	}
}

func (p *ModelPoller) pollOne(ctx context.Context, request *models.ModelCreationRequest) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("model poll panicked",
				zap.Uint("request_id", request.ID),
				zap.Any("panic", r))
		}
	}()

	if time.Since(request.CreatedAt) > p.CreateTimeout {
		p.fail(request, "model creation timed out waiting for the provider")
		return
	}

	// Requests whose create call was accepted but returned no identifier
	// can never resolve; age them out via the timeout above.
	if request.RemoteModelID == "" {
		return
	}

	err := p.Client.ProbeModel(ctx, request.RemoteModelID)
	switch {
	case err == nil:
		p.markReady(ctx, request)
	case errors.Is(err, provider.ErrNotFound):
		// Still provisioning; no state change, probed again next tick.
	case provider.IsDefinitive(err):
		p.fail(request, err.Error())
	default:
		// Transient (network, 5xx): leave the request untouched, retry on
		// the next tick.
		zap.L().Warn("model probe failed transiently",
			zap.Uint("request_id", request.ID),
			zap.Error(err))
	}
}

// markReady advances creating -> ready and, when a training bundle is
// attached, immediately starts training. A rejected training start records
// the error and moves the request to failed; the remote model itself exists,
// so the request never returns to creating.
func (p *ModelPoller) markReady(ctx context.Context, request *models.ModelCreationRequest) {
	now := time.Now()

	// Guarded write keeps this idempotent against the webhook racing us.
	res := database.DB.Model(&models.ModelCreationRequest{}).
		Where("id = ? AND status = ?", request.ID, models.ModelRequestStatusCreating).
		Updates(map[string]interface{}{
			"status":       models.ModelRequestStatusReady,
			"completed_at": now,
		})
	if res.Error != nil {
		zap.L().Error("failed to mark request ready", zap.Uint("request_id", request.ID), zap.Error(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		return // someone else advanced it first
	}

	zap.L().Info("remote model ready",
		zap.Uint("request_id", request.ID),
		zap.String("remote_model_id", request.RemoteModelID))

	if request.TrainingBundleURL == "" {
		return
	}

	training, err := p.Client.CreateTraining(ctx, request.RemoteModelID, request.ProfileID, request.TrainingBundleURL)
	if err != nil {
		database.DB.Model(&models.ModelCreationRequest{}).
			Where("id = ? AND status = ?", request.ID, models.ModelRequestStatusReady).
			Updates(map[string]interface{}{
				"status":        models.ModelRequestStatusFailed,
				"error_message": "model created but training failed to start: " + err.Error(),
			})
		zap.L().Error("failed to start training",
			zap.Uint("request_id", request.ID),
			zap.Error(err))
		return
	}

	database.DB.Model(&models.ModelCreationRequest{}).
		Where("id = ? AND status = ?", request.ID, models.ModelRequestStatusReady).
		Updates(map[string]interface{}{
			"status":             models.ModelRequestStatusTraining,
			"remote_training_id": training.ID,
		})
	zap.L().Info("training started",
		zap.Uint("request_id", request.ID),
		zap.String("training_id", training.ID))
}

func (p *ModelPoller) fail(request *models.ModelCreationRequest, message string) {
	now := time.Now()
	res := database.DB.Model(&models.ModelCreationRequest{}).
		Where("id = ? AND status = ?", request.ID, models.ModelRequestStatusCreating).
		Updates(map[string]interface{}{
			"status":        models.ModelRequestStatusFailed,
			"completed_at":  now,
			"error_message": message,
		})
	if res.Error != nil {
		zap.L().Error("failed to mark request failed", zap.Uint("request_id", request.ID), zap.Error(res.Error))
		return
	}
	if res.RowsAffected > 0 {
		zap.L().Warn("model creation failed",
			zap.Uint("request_id", request.ID),
			zap.String("reason", message))
	}
}
