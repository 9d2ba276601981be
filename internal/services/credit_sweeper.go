package services

import (
	"context"
	"time"

	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreditResetLoop proactively re-arms due weekly allowances so that profiles
// which never touch the API still reset on schedule (aggregate reporting
// reads the stored balances directly).
type CreditResetLoop struct {
	Interval time.Duration
}

func NewCreditResetLoop() *CreditResetLoop {
	return &CreditResetLoop{Interval: time.Hour}
}

func (l *CreditResetLoop) Run(ctx context.Context) {
	zap.L().Info("credit reset loop started", zap.Duration("interval", l.Interval))
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("credit reset loop stopped")
			return
		case <-ticker.C:
			if n, err := SweepWeeklyResets(time.Now()); err != nil {
				zap.L().Error("weekly reset sweep failed", zap.Error(err))
			} else if n > 0 {
				zap.L().Info("weekly reset sweep applied", zap.Int("profiles", n))
			}
		}
	}
}

// SweepWeeklyResets resets every profile whose period has elapsed. Each
// profile commits independently; one failure is logged and skipped.
func SweepWeeklyResets(now time.Time) (int, error) {
	var ids []uint
	err := database.DB.Model(&models.Profile{}).
		Where("last_credit_reset <= ?", now.Add(-WeeklyResetPeriod)).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, id := range ids {
		ok, err := ResetWeeklyIfDue(id)
		if err != nil {
			zap.L().Error("weekly reset failed", zap.Uint("profile_id", id), zap.Error(err))
			continue
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}

// PackageExpirationLoop zeroes out package balances whose expiration date has
// passed. Consumption already refuses expired packages on its own; the sweep
// keeps stored balances honest for reporting.
type PackageExpirationLoop struct {
	Interval time.Duration
}

func NewPackageExpirationLoop() *PackageExpirationLoop {
	return &PackageExpirationLoop{Interval: 4 * time.Hour}
}

func (l *PackageExpirationLoop) Run(ctx context.Context) {
	zap.L().Info("package expiration loop started", zap.Duration("interval", l.Interval))
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("package expiration loop stopped")
			return
		case <-ticker.C:
			if n, err := SweepExpiredPackages(time.Now()); err != nil {
				zap.L().Error("package expiration sweep failed", zap.Error(err))
			} else if n > 0 {
				zap.L().Info("package expiration sweep applied", zap.Int("profiles", n))
			}
		}
	}
}

// SweepExpiredPackages forfeits remaining credits on expired packages,
// journaling the forfeit per profile. Commits per item.
func SweepExpiredPackages(now time.Time) (int, error) {
	var profiles []models.Profile
	err := database.DB.
		Where("package_credits > 0 AND package_expires_at IS NOT NULL AND package_expires_at <= ?", now).
		Find(&profiles).Error
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, p := range profiles {
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Profile{}).
				Where("id = ? AND package_credits > 0 AND package_expires_at <= ?", p.ID, now).
				UpdateColumn("package_credits", 0)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil // consumed or re-granted since the scan
			}
			return appendUsageLog(tx, p.ID, CreditKindPackage, models.UsageActionPackageExpire, -p.PackageCredits, 0)
		})
		if err != nil {
			zap.L().Error("package expiration failed", zap.Uint("profile_id", p.ID), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}
