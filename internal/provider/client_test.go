package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"profilephoto-backend/config"
	"profilephoto-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func testClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(&config.Config{
		ProviderBaseURL: server.URL,
		ProviderToken:   "test-token",
		PublicBaseURL:   "https://app.example.com",
	})
	return client, server
}

func TestProbeModel_ErrorTaxonomy(t *testing.T) {
	status := http.StatusNotFound
	client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(`{"detail":"whatever"}`))
	})
	defer server.Close()

	// 404 means "still provisioning", a dedicated sentinel
	err := client.ProbeModel(context.Background(), "owner/model")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsDefinitive(err))

	// Non-404 4xx is definitive
	status = http.StatusUnprocessableEntity
	err = client.ProbeModel(context.Background(), "owner/model")
	assert.True(t, IsDefinitive(err))
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.StatusCode)

	// 5xx is transient
	status = http.StatusBadGateway
	err = client.ProbeModel(context.Background(), "owner/model")
	assert.Error(t, err)
	assert.False(t, IsDefinitive(err))
	assert.NotErrorIs(t, err, ErrNotFound)

	status = http.StatusOK
	assert.NoError(t, client.ProbeModel(context.Background(), "owner/model"))
}

func TestIsDefinitive_NetworkError(t *testing.T) {
	client := NewClient(&config.Config{
		ProviderBaseURL: "http://127.0.0.1:1", // nothing listens here
		ProviderToken:   "test-token",
	})

	err := client.ProbeModel(context.Background(), "owner/model")
	assert.Error(t, err)
	assert.False(t, IsDefinitive(err))
}

func TestCreateModel(t *testing.T) {
	var received map[string]interface{}
	client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewDecoder(r.Body).Decode(&received)
		w.Write([]byte(`{"owner":"profile-42","name":"headshots"}`))
	})
	defer server.Close()

	id, err := client.CreateModel(context.Background(), 42, "headshots")
	assert.NoError(t, err)
	assert.Equal(t, "profile-42/headshots", id)
	assert.Equal(t, "private", received["visibility"])
}

func TestCreateTraining(t *testing.T) {
	var received map[string]interface{}
	client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trainings", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&received)
		w.Write([]byte(`{"id":"trn_1","status":"starting"}`))
	})
	defer server.Close()

	result, err := client.CreateTraining(context.Background(), "profile-42/headshots", 42, "https://cdn.example/bundle.zip")
	assert.NoError(t, err)
	assert.Equal(t, "trn_1", result.ID)

	// The webhook is registered and the profile id echoed through input
	assert.Equal(t, "https://app.example.com/api/v1/webhooks/training-complete", received["webhook"])
	input := received["input"].(map[string]interface{})
	assert.Equal(t, float64(42), input["profile_id"])
	assert.Equal(t, "https://cdn.example/bundle.zip", input["input_images"])
}

func TestCreatePrediction(t *testing.T) {
	var received map[string]interface{}
	client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predictions", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&received)
		w.Write([]byte(`{"id":"pred_1","status":"starting"}`))
	})
	defer server.Close()

	profile := &models.Profile{Gender: "woman"}
	profile.ID = 42
	style := &models.Style{Name: "professional", Prompt: "corporate photo of {gender}"}

	result, err := client.CreatePrediction(context.Background(), "owner/headshots:abc", profile, style)
	assert.NoError(t, err)
	assert.Equal(t, "pred_1", result.ID)

	assert.Equal(t, "owner/headshots:abc", received["version"])
	assert.Equal(t, "https://app.example.com/api/v1/webhooks/prediction-complete", received["webhook"])
	input := received["input"].(map[string]interface{})
	assert.Equal(t, float64(42), input["profile_id"])
	assert.Equal(t, "professional", input["style"])
	assert.Equal(t, float64(4), input["num_outputs"])
	assert.Contains(t, input["prompt"], "corporate photo of woman")
}

func TestWebhookPayload_ProfileID(t *testing.T) {
	p := WebhookPayload{Input: map[string]interface{}{"profile_id": float64(7)}}
	id, ok := p.ProfileID()
	assert.True(t, ok)
	assert.Equal(t, uint(7), id)

	p = WebhookPayload{Input: map[string]interface{}{"profile_id": "7"}}
	id, ok = p.ProfileID()
	assert.True(t, ok)
	assert.Equal(t, uint(7), id)

	p = WebhookPayload{Input: map[string]interface{}{}}
	_, ok = p.ProfileID()
	assert.False(t, ok)

	p = WebhookPayload{Input: map[string]interface{}{"profile_id": float64(0)}}
	_, ok = p.ProfileID()
	assert.False(t, ok)
}

func TestWebhookPayload_Output(t *testing.T) {
	p := WebhookPayload{Output: json.RawMessage(`{"version":"owner/m:abc"}`)}
	assert.Equal(t, "owner/m:abc", p.TrainedVersion())
	assert.Nil(t, p.OutputURLs())

	p = WebhookPayload{Output: json.RawMessage(`["https://a.png","https://b.png"]`)}
	assert.Equal(t, []string{"https://a.png", "https://b.png"}, p.OutputURLs())
	assert.Empty(t, p.TrainedVersion())

	p = WebhookPayload{}
	assert.Empty(t, p.TrainedVersion())
	assert.Nil(t, p.OutputURLs())
}
