package services

import (
	"context"
	"time"

	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"

	"go.uber.org/zap"
)

// RetentionSweeper drives the scheduled -> marked -> soft-deleted progression
// over artifact rows.
type RetentionSweeper struct {
	Interval time.Duration
}

func NewRetentionSweeper() *RetentionSweeper {
	return &RetentionSweeper{Interval: 6 * time.Hour}
}

func (s *RetentionSweeper) Run(ctx context.Context) {
	zap.L().Info("retention sweeper started", zap.Duration("interval", s.Interval))
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("retention sweeper stopped")
			return
		case <-ticker.C:
			marked, deleted, err := SweepRetention(time.Now())
			if err != nil {
				zap.L().Error("retention sweep failed", zap.Error(err))
				continue
			}
			if marked > 0 || deleted > 0 {
				zap.L().Info("retention sweep applied",
					zap.Int("marked", marked),
					zap.Int("soft_deleted", deleted))
			}
		}
	}
}

// SweepRetention applies one sweep tick: marked artifacts one day past their
// original schedule (not one day past marking) are soft-deleted, then
// artifacts whose schedule has elapsed are marked. Soft-deletion runs first so
// an artifact always survives at least one full tick in the marked state.
// Each artifact commits on its own so a shutdown mid-sweep only loses the
// remainder.
func SweepRetention(now time.Time) (marked, deleted int, err error) {
	cutoff := now.Add(-SoftDeleteLag)
	var expired []models.GeneratedArtifact
	err = database.DB.
		Where("is_deleted = ? AND is_marked_for_deletion = ? AND scheduled_deletion_date <= ?", false, true, cutoff).
		Find(&expired).Error
	if err != nil {
		return 0, 0, err
	}
	for _, a := range expired {
		res := database.DB.Model(&models.GeneratedArtifact{}).
			Where("id = ? AND is_deleted = ?", a.ID, false).
			Updates(map[string]interface{}{
				"is_deleted": true,
				"deleted_at": now,
			})
		if res.Error != nil {
			zap.L().Error("failed to soft-delete artifact", zap.Uint("artifact_id", a.ID), zap.Error(res.Error))
			continue
		}
		if res.RowsAffected > 0 {
			deleted++
		}
	}

	var due []models.GeneratedArtifact
	err = database.DB.
		Where("is_deleted = ? AND is_marked_for_deletion = ? AND scheduled_deletion_date <= ?", false, false, now).
		Find(&due).Error
	if err != nil {
		return 0, deleted, err
	}
	for _, a := range due {
		res := database.DB.Model(&models.GeneratedArtifact{}).
			Where("id = ? AND is_deleted = ? AND is_marked_for_deletion = ?", a.ID, false, false).
			UpdateColumn("is_marked_for_deletion", true)
		if res.Error != nil {
			zap.L().Error("failed to mark artifact", zap.Uint("artifact_id", a.ID), zap.Error(res.Error))
			continue
		}
		if res.RowsAffected > 0 {
			marked++
		}
	}

	return marked, deleted, nil
}
