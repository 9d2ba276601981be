package services

import (
	"context"
	"net/http"
	"testing"

	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRequestTestDB() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.Migrator().DropTable(&models.ModelCreationRequest{})
	db.AutoMigrate(&models.ModelCreationRequest{})

	database.DB = db
}

func TestCreateModelRequest(t *testing.T) {
	setupRequestTestDB()
	client, server := generationClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Write([]byte(`{"owner":"profile-1","name":"headshots"}`))
	})
	defer server.Close()

	request, err := CreateModelRequest(context.Background(), client, 1, "headshots", "https://cdn.example/bundle.zip")
	assert.NoError(t, err)
	assert.Equal(t, models.ModelRequestStatusCreating, request.Status)
	assert.Equal(t, "profile-1/headshots", request.RemoteModelID)

	var stored models.ModelCreationRequest
	database.DB.First(&stored, request.ID)
	assert.Equal(t, "profile-1/headshots", stored.RemoteModelID)
	assert.Equal(t, "https://cdn.example/bundle.zip", stored.TrainingBundleURL)
}

func TestCreateModelRequest_ProviderRejection(t *testing.T) {
	setupRequestTestDB()
	client, server := generationClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"name already taken"}`))
	})
	defer server.Close()

	request, err := CreateModelRequest(context.Background(), client, 1, "headshots", "https://cdn.example/bundle.zip")
	assert.Error(t, err)

	// The row survives as the audit record of the failed attempt
	assert.NotNil(t, request)
	assert.Equal(t, models.ModelRequestStatusFailed, request.Status)
	assert.Contains(t, request.ErrorMessage, "provider rejected model creation")
	assert.NotNil(t, request.CompletedAt)

	var stored models.ModelCreationRequest
	database.DB.First(&stored, request.ID)
	assert.Equal(t, models.ModelRequestStatusFailed, stored.Status)
}

func TestGetModelRequestByID_NotFound(t *testing.T) {
	setupRequestTestDB()

	_, err := GetModelRequestByID(999)
	assert.ErrorIs(t, err, ErrModelRequestNotFound)

	_, err = LatestModelRequest(999)
	assert.ErrorIs(t, err, ErrModelRequestNotFound)
}
