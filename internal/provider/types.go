package provider

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Remote job status values as reported by the provider.
const (
	StatusStarting  = "starting"
	StatusQueued    = "queued"
	StatusRunning   = "processing"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// ErrNotFound reports that the remote resource does not (yet) exist. Callers
// must branch on it: during model creation a 404 means "still provisioning",
// not a failure.
var ErrNotFound = errors.New("provider: resource not found")

// APIError is a non-404 HTTP error from the provider. 4xx errors are
// definitive (the request will never succeed as issued); 5xx are transient.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider: api returned status %d: %s", e.StatusCode, e.Body)
}

// Definitive reports whether retrying the same call is pointless.
func (e *APIError) Definitive() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsDefinitive classifies err per the error taxonomy: true only for non-404
// 4xx provider responses. Network failures, 5xx and not-found are not
// definitive.
func IsDefinitive(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Definitive()
	}
	return false
}

// TrainingResult is the provider's view of a training job.
type TrainingResult struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Version string `json:"version,omitempty"` // usable model version once succeeded
	Error   string `json:"error,omitempty"`
}

// PredictionResult is the provider's view of a generation job. Input echoes
// back the original request parameters on status reads.
type PredictionResult struct {
	ID     string                 `json:"id"`
	Status string                 `json:"status"`
	Input  map[string]interface{} `json:"input,omitempty"`
	Output []string               `json:"output,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// WebhookPayload is the body the provider pushes on completion. Input echoes
// back the original request parameters; profile id and style are recovered
// from it.
type WebhookPayload struct {
	ID     string                 `json:"id"`
	Status string                 `json:"status"`
	Input  map[string]interface{} `json:"input"`
	Output json.RawMessage        `json:"output,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// ProfileID extracts the echoed profile id from the payload input. JSON
// numbers decode as float64.
func (p *WebhookPayload) ProfileID() (uint, bool) {
	v, ok := p.Input["profile_id"]
	if !ok {
		return 0, false
	}
	switch id := v.(type) {
	case float64:
		if id <= 0 {
			return 0, false
		}
		return uint(id), true
	case string:
		var parsed float64
		if _, err := fmt.Sscanf(id, "%f", &parsed); err != nil || parsed <= 0 {
			return 0, false
		}
		return uint(parsed), true
	default:
		return 0, false
	}
}

// StyleName extracts the echoed style from the payload input.
func (p *WebhookPayload) StyleName() (string, bool) {
	s, ok := p.Input["style"].(string)
	return s, ok && s != ""
}

// TrainedVersion extracts the trained model version from a training-complete
// payload output.
func (p *WebhookPayload) TrainedVersion() string {
	if len(p.Output) == 0 {
		return ""
	}
	var out struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(p.Output, &out); err != nil {
		return ""
	}
	return out.Version
}

// OutputURLs extracts the generated image URLs from a prediction-complete
// payload output.
func (p *WebhookPayload) OutputURLs() []string {
	if len(p.Output) == 0 {
		return nil
	}
	var urls []string
	if err := json.Unmarshal(p.Output, &urls); err != nil {
		return nil
	}
	return urls
}
