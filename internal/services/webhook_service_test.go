package services

import (
	"fmt"
	"testing"
	"time"

	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupWebhookTestDB() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.Migrator().DropTable(&models.Profile{}, &models.ModelCreationRequest{},
		&models.GeneratedArtifact{}, &models.WebhookEvent{})
	db.AutoMigrate(&models.Profile{}, &models.ModelCreationRequest{},
		&models.GeneratedArtifact{}, &models.WebhookEvent{})

	database.DB = db
}

func setupWebhookTestRedis() *miniredis.Miniredis {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}

	database.RedisClient = redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return mr
}

func TestHandleTrainingComplete_Success(t *testing.T) {
	setupWebhookTestDB()
	mr := setupWebhookTestRedis()
	defer mr.Close()

	profile := models.Profile{
		Email:          "train@test.com",
		Password:       "x",
		SelectedStyles: datatypes.JSON([]byte(`["professional","casual"]`)),
	}
	database.DB.Create(&profile)

	request := models.ModelCreationRequest{
		ProfileID:        profile.ID,
		ModelName:        "headshots",
		RemoteModelID:    "profile-1/headshots",
		Status:           models.ModelRequestStatusTraining,
		RemoteTrainingID: "trn_1",
	}
	database.DB.Create(&request)

	payload := fmt.Sprintf(`{
		"id": "trn_1",
		"status": "succeeded",
		"input": {"profile_id": %d},
		"output": {"version": "owner/headshots:abc123"}
	}`, profile.ID)

	err := HandleTrainingComplete([]byte(payload))
	assert.NoError(t, err)

	var updatedRequest models.ModelCreationRequest
	database.DB.First(&updatedRequest, request.ID)
	assert.Equal(t, "owner/headshots:abc123", updatedRequest.TrainedModelVersion)
	assert.Equal(t, models.ModelRequestStatusTraining, updatedRequest.Status)
	assert.NotNil(t, updatedRequest.CompletedAt)

	var updatedProfile models.Profile
	database.DB.First(&updatedProfile, profile.ID)
	assert.Equal(t, "owner/headshots:abc123", updatedProfile.TrainedModelVersion)

	// The selected styles land on the generation queue
	queued, err := database.RedisClient.LLen(database.Ctx, GenerationQueueKey).Result()
	assert.NoError(t, err)
	assert.Equal(t, int64(2), queued)

	var event models.WebhookEvent
	database.DB.Where("provider_event_id = ?", "trn_1").First(&event)
	assert.NotNil(t, event.ProcessedAt)
	assert.Empty(t, event.ProcessingError)
}

func TestHandleTrainingComplete_Replay(t *testing.T) {
	setupWebhookTestDB()
	mr := setupWebhookTestRedis()
	defer mr.Close()

	profile := models.Profile{
		Email:          "replay@test.com",
		Password:       "x",
		SelectedStyles: datatypes.JSON([]byte(`["professional"]`)),
	}
	database.DB.Create(&profile)

	payload := fmt.Sprintf(`{
		"id": "trn_replay",
		"status": "succeeded",
		"input": {"profile_id": %d},
		"output": {"version": "owner/headshots:abc123"}
	}`, profile.ID)

	assert.NoError(t, HandleTrainingComplete([]byte(payload)))
	assert.NoError(t, HandleTrainingComplete([]byte(payload)))

	// The replay enqueues nothing and records no second event
	queued, _ := database.RedisClient.LLen(database.Ctx, GenerationQueueKey).Result()
	assert.Equal(t, int64(1), queued)

	var count int64
	database.DB.Model(&models.WebhookEvent{}).Where("provider_event_id = ?", "trn_replay").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestHandleTrainingComplete_Failure(t *testing.T) {
	setupWebhookTestDB()
	mr := setupWebhookTestRedis()
	defer mr.Close()

	profile := models.Profile{Email: "fail@test.com", Password: "x"}
	database.DB.Create(&profile)

	request := models.ModelCreationRequest{
		ProfileID:        profile.ID,
		ModelName:        "headshots",
		Status:           models.ModelRequestStatusTraining,
		RemoteTrainingID: "trn_fail",
	}
	database.DB.Create(&request)

	payload := fmt.Sprintf(`{
		"id": "trn_fail",
		"status": "failed",
		"input": {"profile_id": %d},
		"error": "out of memory"
	}`, profile.ID)

	err := HandleTrainingComplete([]byte(payload))
	assert.NoError(t, err)

	var updated models.ModelCreationRequest
	database.DB.First(&updated, request.ID)
	assert.Equal(t, models.ModelRequestStatusFailed, updated.Status)
	assert.Equal(t, "out of memory", updated.ErrorMessage)

	var updatedProfile models.Profile
	database.DB.First(&updatedProfile, profile.ID)
	assert.Empty(t, updatedProfile.TrainedModelVersion)
}

func TestHandleTrainingComplete_MissingProfileID(t *testing.T) {
	setupWebhookTestDB()
	mr := setupWebhookTestRedis()
	defer mr.Close()

	payload := `{
		"id": "trn_anon",
		"status": "succeeded",
		"input": {},
		"output": {"version": "owner/headshots:abc123"}
	}`

	// Logged and dropped, never an error (an error would trigger redelivery)
	err := HandleTrainingComplete([]byte(payload))
	assert.NoError(t, err)

	var event models.WebhookEvent
	database.DB.Where("provider_event_id = ?", "trn_anon").First(&event)
	assert.Equal(t, "payload missing profile_id", event.ProcessingError)
}

func TestHandleTrainingComplete_RetriedAfterTransientFailure(t *testing.T) {
	setupWebhookTestDB()
	mr := setupWebhookTestRedis()
	defer mr.Close()

	profile := models.Profile{Email: "retry@test.com", Password: "x"}
	database.DB.Create(&profile)

	request := models.ModelCreationRequest{
		ProfileID:        profile.ID,
		ModelName:        "headshots",
		Status:           models.ModelRequestStatusTraining,
		RemoteTrainingID: "trn_retry",
	}
	database.DB.Create(&request)

	payload := fmt.Sprintf(`{
		"id": "trn_retry",
		"status": "succeeded",
		"input": {"profile_id": %d},
		"output": {"version": "owner/headshots:abc123"}
	}`, profile.ID)

	// The profiles table vanishes mid-apply: the delivery must surface the
	// failure so the provider redelivers instead of acking a lost result.
	database.DB.Migrator().DropTable(&models.Profile{})
	err := HandleTrainingComplete([]byte(payload))
	assert.Error(t, err)

	var event models.WebhookEvent
	database.DB.Where("provider_event_id = ?", "trn_retry").First(&event)
	assert.Nil(t, event.ProcessedAt)
	assert.NotEmpty(t, event.ProcessingError)

	// Redelivery after the store recovers applies the result
	database.DB.AutoMigrate(&models.Profile{})
	restored := models.Profile{ID: profile.ID, Email: "retry@test.com", Password: "x"}
	database.DB.Create(&restored)

	assert.NoError(t, HandleTrainingComplete([]byte(payload)))

	var updatedProfile models.Profile
	database.DB.First(&updatedProfile, profile.ID)
	assert.Equal(t, "owner/headshots:abc123", updatedProfile.TrainedModelVersion)

	database.DB.Where("provider_event_id = ?", "trn_retry").First(&event)
	assert.NotNil(t, event.ProcessedAt)
	assert.Empty(t, event.ProcessingError)
}

func TestHandlePredictionComplete_Success(t *testing.T) {
	setupWebhookTestDB()
	mr := setupWebhookTestRedis()
	defer mr.Close()

	profile := models.Profile{Email: "pred@test.com", Password: "x"}
	database.DB.Create(&profile)

	payload := fmt.Sprintf(`{
		"id": "pred_1",
		"status": "succeeded",
		"input": {"profile_id": %d, "style": "professional"},
		"output": ["https://provider.example/a.png", "https://provider.example/b.png"]
	}`, profile.ID)

	err := HandlePredictionComplete([]byte(payload))
	assert.NoError(t, err)

	var artifacts []models.GeneratedArtifact
	database.DB.Where("profile_id = ?", profile.ID).Order("id asc").Find(&artifacts)
	assert.Len(t, artifacts, 2)
	assert.Equal(t, "https://provider.example/a.png", artifacts[0].SourceURL)
	assert.Equal(t, "professional", artifacts[0].Style)
	assert.Equal(t, "pred_1", artifacts[0].PredictionID)
	assert.True(t, artifacts[0].IsGenerated)
	assert.WithinDuration(t, time.Now().Add(GeneratedRetention), artifacts[0].ScheduledDeletionDate, 5*time.Second)
}

func TestHandlePredictionComplete_Replay(t *testing.T) {
	setupWebhookTestDB()
	mr := setupWebhookTestRedis()
	defer mr.Close()

	profile := models.Profile{Email: "predreplay@test.com", Password: "x"}
	database.DB.Create(&profile)

	payload := fmt.Sprintf(`{
		"id": "pred_replay",
		"status": "succeeded",
		"input": {"profile_id": %d, "style": "casual"},
		"output": ["https://provider.example/a.png"]
	}`, profile.ID)

	assert.NoError(t, HandlePredictionComplete([]byte(payload)))
	assert.NoError(t, HandlePredictionComplete([]byte(payload)))

	var count int64
	database.DB.Model(&models.GeneratedArtifact{}).Where("profile_id = ?", profile.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestHandlePredictionComplete_RetriedAfterTransientFailure(t *testing.T) {
	setupWebhookTestDB()
	mr := setupWebhookTestRedis()
	defer mr.Close()

	profile := models.Profile{Email: "predretry@test.com", Password: "x"}
	database.DB.Create(&profile)

	payload := fmt.Sprintf(`{
		"id": "pred_retry",
		"status": "succeeded",
		"input": {"profile_id": %d, "style": "casual"},
		"output": ["https://provider.example/a.png", "https://provider.example/b.png"]
	}`, profile.ID)

	// Artifact writes fail: the delivery must not be acked as processed
	database.DB.Migrator().DropTable(&models.GeneratedArtifact{})
	err := HandlePredictionComplete([]byte(payload))
	assert.Error(t, err)

	var event models.WebhookEvent
	database.DB.Where("provider_event_id = ?", "pred_retry").First(&event)
	assert.Nil(t, event.ProcessedAt)
	assert.NotEmpty(t, event.ProcessingError)

	// Redelivery stores the outputs once the store recovers
	database.DB.AutoMigrate(&models.GeneratedArtifact{})
	assert.NoError(t, HandlePredictionComplete([]byte(payload)))

	var count int64
	database.DB.Model(&models.GeneratedArtifact{}).Where("prediction_id = ?", "pred_retry").Count(&count)
	assert.Equal(t, int64(2), count)

	// A further delivery is now a plain duplicate
	assert.NoError(t, HandlePredictionComplete([]byte(payload)))
	database.DB.Model(&models.GeneratedArtifact{}).Where("prediction_id = ?", "pred_retry").Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestHandlePredictionComplete_DeletedProfile(t *testing.T) {
	setupWebhookTestDB()
	mr := setupWebhookTestRedis()
	defer mr.Close()

	payload := `{
		"id": "pred_orphan",
		"status": "succeeded",
		"input": {"profile_id": 424242, "style": "casual"},
		"output": ["https://provider.example/a.png"]
	}`

	// Account deleted between request and completion: silent no-op
	err := HandlePredictionComplete([]byte(payload))
	assert.NoError(t, err)

	var count int64
	database.DB.Model(&models.GeneratedArtifact{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestHandlePredictionComplete_FailedRun(t *testing.T) {
	setupWebhookTestDB()
	mr := setupWebhookTestRedis()
	defer mr.Close()

	profile := models.Profile{Email: "predfail@test.com", Password: "x"}
	database.DB.Create(&profile)

	payload := fmt.Sprintf(`{
		"id": "pred_failed",
		"status": "failed",
		"input": {"profile_id": %d, "style": "casual"},
		"error": "nsfw content detected"
	}`, profile.ID)

	err := HandlePredictionComplete([]byte(payload))
	assert.NoError(t, err)

	var count int64
	database.DB.Model(&models.GeneratedArtifact{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestFindTrainingRequest_Fallback(t *testing.T) {
	setupWebhookTestDB()

	inFlight := models.ModelCreationRequest{
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ProfileID: 7,
		ModelName: "v1",
		Status:    models.ModelRequestStatusTraining,
	}
	aborted := models.ModelCreationRequest{
		CreatedAt: time.Now().Add(-time.Hour),
		ProfileID: 7,
		ModelName: "v2",
		Status:    models.ModelRequestStatusFailed,
	}
	database.DB.Create(&inFlight)
	database.DB.Create(&aborted)

	// An unknown training id falls back to the latest request still awaiting
	// a result; the newer failed request is not a candidate
	found, err := findTrainingRequest(7, "trn_unknown")
	assert.NoError(t, err)
	assert.NotNil(t, found)
	assert.Equal(t, inFlight.ID, found.ID)

	// A request still provisioning cannot have started training
	creating := models.ModelCreationRequest{ProfileID: 8, ModelName: "v1", Status: models.ModelRequestStatusCreating}
	database.DB.Create(&creating)
	found, err = findTrainingRequest(8, "trn_unknown")
	assert.NoError(t, err)
	assert.Nil(t, found)

	found, err = findTrainingRequest(9, "")
	assert.NoError(t, err)
	assert.Nil(t, found)
}
