package webhook

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"profilephoto-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupWebhookRouter(t *testing.T) *gin.Engine {
	t.Setenv("WEBHOOK_SECRET", "test-webhook-secret")
	gin.SetMode(gin.TestMode)

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postWebhook(router *gin.Engine, path string, body []byte, signature string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTrainingComplete_ValidSignature(t *testing.T) {
	router := setupWebhookRouter(t)

	body := []byte(`{"id":"","status":"succeeded","input":{}}`)
	sig := utils.ComputeSignature(body, "test-webhook-secret")

	w := postWebhook(router, "/api/v1/webhooks/training-complete", body, sig)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTrainingComplete_InvalidSignature(t *testing.T) {
	router := setupWebhookRouter(t)

	body := []byte(`{"id":"trn_1","status":"succeeded","input":{"profile_id":1}}`)

	w := postWebhook(router, "/api/v1/webhooks/training-complete", body, "deadbeef")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postWebhook(router, "/api/v1/webhooks/training-complete", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrainingComplete_TamperedBody(t *testing.T) {
	router := setupWebhookRouter(t)

	body := []byte(`{"id":"","status":"succeeded","input":{}}`)
	sig := utils.ComputeSignature(body, "test-webhook-secret")

	tampered := []byte(`{"id":"","status":"failed","input":{}}`)
	w := postWebhook(router, "/api/v1/webhooks/training-complete", tampered, sig)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPredictionComplete_SignatureRequired(t *testing.T) {
	router := setupWebhookRouter(t)

	body := []byte(`{"id":"","status":"succeeded","input":{}}`)
	sig := utils.ComputeSignature(body, "test-webhook-secret")

	w := postWebhook(router, "/api/v1/webhooks/prediction-complete", body, sig)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postWebhook(router, "/api/v1/webhooks/prediction-complete", body, "bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
