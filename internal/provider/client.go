package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"profilephoto-backend/config"
	"profilephoto-backend/internal/models"
	"profilephoto-backend/internal/utils"
)

// Client wraps the remote AI training/generation API. It is stateless apart
// from HTTP configuration; it performs no local retries, callers own the
// retry policy.
type Client struct {
	baseURL       string
	token         string
	publicBaseURL string
	http          *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:       cfg.ProviderBaseURL,
		token:         cfg.ProviderToken,
		publicBaseURL: cfg.PublicBaseURL,
		http:          utils.NewHTTPClient(30 * time.Second),
	}
}

func (c *Client) webhookURL(kind string) string {
	return fmt.Sprintf("%s/api/v1/webhooks/%s", c.publicBaseURL, kind)
}

// doJSON issues one request and decodes the response into out. 404 maps to
// ErrNotFound, other non-2xx statuses to *APIError.
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("provider: failed to decode response: %w", err)
		}
	}
	return nil
}

// CreateModel asks the provider to provision an empty model placeholder for
// the profile. The returned identifier is polled via ProbeModel until the
// resource resolves.
func (c *Client) CreateModel(ctx context.Context, profileID uint, name string) (string, error) {
	reqBody := map[string]interface{}{
		"owner":       fmt.Sprintf("profile-%d", profileID),
		"name":        name,
		"visibility":  "private",
		"description": "per-user profile photo model",
	}

	var resp struct {
		Owner string `json:"owner"`
		Name  string `json:"name"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/models", reqBody, &resp); err != nil {
		return "", err
	}
	if resp.Owner == "" || resp.Name == "" {
		return "", fmt.Errorf("provider: create model response missing identifier")
	}
	return resp.Owner + "/" + resp.Name, nil
}

// ProbeModel checks whether the remote model resource resolves yet. Returns
// nil once it exists, ErrNotFound while it is still provisioning, and an
// *APIError or wrapped network error otherwise.
func (c *Client) ProbeModel(ctx context.Context, remoteModelID string) error {
	return c.doJSON(ctx, http.MethodGet, "/models/"+remoteModelID, nil, nil)
}

// CreateTraining starts training the remote model against the zipped image
// bundle. A completion webhook is registered on the job in addition to the
// pollable status endpoint.
func (c *Client) CreateTraining(ctx context.Context, remoteModelID string, profileID uint, bundleURL string) (*TrainingResult, error) {
	reqBody := map[string]interface{}{
		"destination": remoteModelID,
		"input": map[string]interface{}{
			"input_images": bundleURL,
			"profile_id":   profileID,
		},
		"webhook": c.webhookURL("training-complete"),
	}

	var result TrainingResult
	if err := c.doJSON(ctx, http.MethodPost, "/trainings", reqBody, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTrainingStatus is a pure read of a training job. Not-found is reported
// as ErrNotFound, distinct from other errors.
func (c *Client) GetTrainingStatus(ctx context.Context, trainingID string) (*TrainingResult, error) {
	var result TrainingResult
	if err := c.doJSON(ctx, http.MethodGet, "/trainings/"+trainingID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreatePrediction requests image generation from a trained model version.
// The prompt pair is built from the style catalog entry plus the profile's
// demographic hints.
func (c *Client) CreatePrediction(ctx context.Context, trainedVersion string, profile *models.Profile, style *models.Style) (*PredictionResult, error) {
	prompt, negative := BuildPrompt(style, profile)

	reqBody := map[string]interface{}{
		"version": trainedVersion,
		"input": map[string]interface{}{
			"prompt":          prompt,
			"negative_prompt": negative,
			"profile_id":      profile.ID,
			"style":           style.Name,
			"num_outputs":     4,
		},
		"webhook": c.webhookURL("prediction-complete"),
	}

	var result PredictionResult
	if err := c.doJSON(ctx, http.MethodPost, "/predictions", reqBody, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPredictionStatus is a pure read of a generation job.
func (c *Client) GetPredictionStatus(ctx context.Context, predictionID string) (*PredictionResult, error) {
	var result PredictionResult
	if err := c.doJSON(ctx, http.MethodGet, "/predictions/"+predictionID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
