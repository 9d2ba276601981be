package services

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"profilephoto-backend/config"
	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ObjectUploader stores a stream under a key and returns its public URL.
type ObjectUploader interface {
	Upload(objectKey string, body io.Reader) (string, error)
}

var artifactUploader ObjectUploader

// SetArtifactUploader wires the uploader used for mirroring. Nil disables
// mirroring; artifacts then keep only the provider URL.
func SetArtifactUploader(u ObjectUploader) {
	artifactUploader = u
}

// OSSUploader stores objects in an Aliyun OSS bucket.
type OSSUploader struct {
	bucket    *oss.Bucket
	publicURL string
}

func NewOSSUploader(cfg *config.Config) (*OSSUploader, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSKeyID, cfg.OSSKeySecret,
		oss.Timeout(60, 120)) // connect 60s, read/write 120s
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.OSSBucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &OSSUploader{
		bucket:    bucket,
		publicURL: fmt.Sprintf("https://%s.%s", cfg.OSSBucketName, cfg.OSSEndpoint),
	}, nil
}

func (u *OSSUploader) Upload(objectKey string, body io.Reader) (string, error) {
	if err := u.bucket.PutObject(objectKey, body); err != nil {
		return "", fmt.Errorf("failed to upload to oss: %w", err)
	}
	return u.publicURL + "/" + objectKey, nil
}

// MirrorArtifactAsync copies a provider output into our own bucket in the
// background. Provider URLs expire; the mirror is what the UI serves
// long-term. Best effort, a failed mirror leaves the provider URL in place.
func MirrorArtifactAsync(artifactID uint) {
	if artifactUploader == nil {
		return
	}
	go mirrorArtifact(artifactID)
}

func mirrorArtifact(artifactID uint) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("artifact mirror panicked", zap.Uint("artifact_id", artifactID), zap.Any("panic", r))
		}
	}()

	var artifact models.GeneratedArtifact
	if err := database.DB.First(&artifact, artifactID).Error; err != nil {
		return
	}
	if artifact.MirrorURL != "" || artifact.SourceURL == "" {
		return
	}

	httpClient := &http.Client{Timeout: 2 * time.Minute}
	resp, err := httpClient.Get(artifact.SourceURL)
	if err != nil {
		zap.L().Warn("failed to download artifact for mirroring",
			zap.Uint("artifact_id", artifactID), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		zap.L().Warn("artifact download returned non-200",
			zap.Uint("artifact_id", artifactID), zap.Int("status", resp.StatusCode))
		return
	}

	objectKey := fmt.Sprintf("artifacts/%d/%s%s",
		artifact.ProfileID, uuid.New().String(), urlExtension(artifact.SourceURL))

	mirrorURL, err := artifactUploader.Upload(objectKey, resp.Body)
	if err != nil {
		zap.L().Warn("failed to mirror artifact",
			zap.Uint("artifact_id", artifactID), zap.Error(err))
		return
	}

	database.DB.Model(&models.GeneratedArtifact{}).
		Where("id = ?", artifactID).
		UpdateColumn("mirror_url", mirrorURL)
}

func urlExtension(url string) string {
	if idx := strings.LastIndex(url, "."); idx != -1 {
		ext := url[idx:]
		if len(ext) < 10 && !strings.Contains(ext, "/") { // sanity check
			return ext
		}
	}
	return ""
}
