package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"
	"profilephoto-backend/internal/provider"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const GenerationQueueKey = "generation_queue"

var (
	ErrModelNotTrained    = errors.New("profile has no trained model")
	ErrStyleNotFound      = errors.New("style not found")
	ErrPredictionNotFound = errors.New("prediction not found")
)

type generationJob struct {
	ProfileID uint   `json:"profile_id"`
	Style     string `json:"style"`
}

// RequestGeneration charges one credit and asks the provider to generate
// images in the given style from the profile's trained model. Returns
// (nil, false, nil) when no ledger can cover the charge — a normal refusal.
// A provider rejection after the charge refunds the ledger that paid.
func RequestGeneration(ctx context.Context, client *provider.Client, profileID uint, styleName string) (*provider.PredictionResult, bool, error) {
	var profile models.Profile
	if err := database.DB.First(&profile, profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrProfileNotFound
		}
		return nil, false, err
	}
	if profile.TrainedModelVersion == "" {
		return nil, false, ErrModelNotTrained
	}

	var style models.Style
	err := database.DB.Where("name = ? AND is_active = ?", styleName, true).First(&style).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrStyleNotFound
		}
		return nil, false, err
	}

	kind, ok, err := ConsumeForGeneration(profileID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	prediction, err := client.CreatePrediction(ctx, profile.TrainedModelVersion, &profile, &style)
	if err != nil {
		if refundErr := RefundCredits(profileID, kind, 1); refundErr != nil {
			zap.L().Error("refund after rejected prediction failed",
				zap.Uint("profile_id", profileID), zap.Error(refundErr))
		}
		return nil, false, err
	}

	zap.L().Info("generation requested",
		zap.Uint("profile_id", profileID),
		zap.String("style", styleName),
		zap.String("prediction_id", prediction.ID),
		zap.String("paid_by", string(kind)))
	return prediction, true, nil
}

// GetGenerationStatus proxies the provider's view of a prediction for UI
// polling. When the run already succeeded but its completion webhook never
// landed, the outputs are stored here so they are not lost.
func GetGenerationStatus(ctx context.Context, client *provider.Client, profileID uint, predictionID string) (*provider.PredictionResult, error) {
	// A prediction whose artifacts belong to another profile is not yours
	// to read.
	var claimed int64
	err := database.DB.Model(&models.GeneratedArtifact{}).
		Where("prediction_id = ? AND profile_id <> ?", predictionID, profileID).
		Count(&claimed).Error
	if err != nil {
		return nil, err
	}
	if claimed > 0 {
		return nil, ErrPredictionNotFound
	}

	result, err := client.GetPredictionStatus(ctx, predictionID)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return nil, ErrPredictionNotFound
		}
		return nil, err
	}

	if result.Status == provider.StatusSucceeded && len(result.Output) > 0 {
		if err := backfillPredictionArtifacts(profileID, predictionID, result); err != nil {
			zap.L().Error("failed to store prediction outputs from status read",
				zap.Uint("profile_id", profileID),
				zap.String("prediction_id", predictionID),
				zap.Error(err))
		}
	}
	return result, nil
}

func backfillPredictionArtifacts(profileID uint, predictionID string, result *provider.PredictionResult) error {
	var existing int64
	err := database.DB.Model(&models.GeneratedArtifact{}).
		Where("prediction_id = ?", predictionID).Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil // the webhook got here first
	}

	style, _ := result.Input["style"].(string)
	for _, url := range result.Output {
		artifact := NewGeneratedArtifact(profileID, url, style, predictionID, false)
		if err := database.DB.Create(&artifact).Error; err != nil {
			return err
		}
		MirrorArtifactAsync(artifact.ID)
	}
	zap.L().Info("prediction outputs stored from status read",
		zap.Uint("profile_id", profileID),
		zap.String("prediction_id", predictionID),
		zap.Int("artifacts", len(result.Output)))
	return nil
}

// EnqueueStyles pushes one generation job per style onto the redis queue.
// The worker drains it; training-complete uses this to start the styles the
// user selected up front.
func EnqueueStyles(profileID uint, styles []string) error {
	for _, style := range styles {
		job, err := json.Marshal(generationJob{ProfileID: profileID, Style: style})
		if err != nil {
			return err
		}
		if err := database.RedisClient.RPush(database.Ctx, GenerationQueueKey, job).Err(); err != nil {
			return err
		}
	}
	return nil
}

// StartGenerationWorker drains the generation queue. Pops use a short block
// timeout so cancellation is observed promptly; redis errors back off rather
// than spin.
func StartGenerationWorker(ctx context.Context, client *provider.Client) {
	zap.L().Info("generation worker started")
	for {
		if ctx.Err() != nil {
			zap.L().Info("generation worker stopped")
			return
		}

		result, err := database.RedisClient.BLPop(ctx, time.Second, GenerationQueueKey).Result()
		if err != nil {
			if err == redis.Nil || errors.Is(err, context.Canceled) {
				continue
			}
			zap.L().Error("generation queue pop failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		// result[0] is the key, result[1] is the value
		var job generationJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			zap.L().Error("invalid generation job", zap.String("raw", result[1]), zap.Error(err))
			continue
		}

		processGenerationJob(ctx, client, job)
	}
}

func processGenerationJob(ctx context.Context, client *provider.Client, job generationJob) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("generation job panicked",
				zap.Uint("profile_id", job.ProfileID),
				zap.Any("panic", r))
		}
	}()

	_, ok, err := RequestGeneration(ctx, client, job.ProfileID, job.Style)
	if err != nil {
		zap.L().Error("queued generation failed",
			zap.Uint("profile_id", job.ProfileID),
			zap.String("style", job.Style),
			zap.Error(err))
		return
	}
	if !ok {
		zap.L().Warn("queued generation refused for insufficient credits",
			zap.Uint("profile_id", job.ProfileID),
			zap.String("style", job.Style))
	}
}
