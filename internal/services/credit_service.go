package services

import (
	"errors"
	"fmt"
	"time"

	"profilephoto-backend/config"
	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreditKind selects one of the three ledgers kept on a profile.
type CreditKind string

const (
	CreditKindWeekly    CreditKind = "weekly"    // re-arms to a fixed quota every period
	CreditKindPurchased CreditKind = "purchased" // never expires, never resets
	CreditKindPackage   CreditKind = "package"   // bounded by a hard expiration date
)

// WeeklyResetPeriod is how long a weekly allowance lasts before it re-arms.
const WeeklyResetPeriod = 7 * 24 * time.Hour

var ErrProfileNotFound = errors.New("profile not found")

func balanceColumn(kind CreditKind) string {
	switch kind {
	case CreditKindWeekly:
		return "weekly_credits"
	case CreditKindPurchased:
		return "purchased_credits"
	case CreditKindPackage:
		return "package_credits"
	}
	return ""
}

// ResetWeeklyIfDue re-arms the weekly allowance when a full period has
// elapsed since the last reset. The check-and-reset is a single conditional
// update so concurrent callers cannot double-reset. Returns whether a reset
// was applied.
func ResetWeeklyIfDue(profileID uint) (bool, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return false, err
	}

	now := time.Now()
	var applied bool
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Profile{}).
			Where("id = ? AND last_credit_reset <= ?", profileID, now.Add(-WeeklyResetPeriod)).
			Updates(map[string]interface{}{
				"weekly_credits":    cfg.WeeklyCreditQuota,
				"last_credit_reset": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // not due, or profile missing; caller's read resolves which
		}
		applied = true
		return appendUsageLog(tx, profileID, CreditKindWeekly, models.UsageActionWeeklyReset,
			cfg.WeeklyCreditQuota, cfg.WeeklyCreditQuota)
	})
	return applied, err
}

// GetAvailableCredits returns the current balance for one ledger, applying a
// due weekly reset first. An expired package reads as zero regardless of its
// remaining balance.
func GetAvailableCredits(profileID uint, kind CreditKind) (int, error) {
	if kind == CreditKindWeekly {
		if _, err := ResetWeeklyIfDue(profileID); err != nil {
			return 0, err
		}
	}

	var profile models.Profile
	if err := database.DB.First(&profile, profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrProfileNotFound
		}
		return 0, err
	}

	switch kind {
	case CreditKindWeekly:
		return profile.WeeklyCredits, nil
	case CreditKindPurchased:
		return profile.PurchasedCredits, nil
	case CreditKindPackage:
		if profile.PackageExpiresAt == nil || !profile.PackageExpiresAt.After(time.Now()) {
			return 0, nil
		}
		return profile.PackageCredits, nil
	}
	return 0, fmt.Errorf("unknown credit kind: %s", kind)
}

// HasAvailableCredits reports whether the ledger can cover amount.
func HasAvailableCredits(profileID uint, kind CreditKind, amount int) (bool, error) {
	balance, err := GetAvailableCredits(profileID, kind)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// ConsumeCredits atomically decrements one ledger and appends a usage-log row
// in the same transaction. It returns false with no mutation and no log entry
// when the balance cannot cover amount (or the package has expired) — an
// expected refusal, not an error. The decrement is a single conditional
// update so two concurrent requests cannot both win the last credit.
func ConsumeCredits(profileID uint, kind CreditKind, amount int, action models.UsageAction) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("consume amount must be positive, got %d", amount)
	}

	if kind == CreditKindWeekly {
		if _, err := ResetWeeklyIfDue(profileID); err != nil {
			return false, err
		}
	}

	col := balanceColumn(kind)
	if col == "" {
		return false, fmt.Errorf("unknown credit kind: %s", kind)
	}

	consumed := false
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Profile{}).
			Where("id = ? AND "+col+" >= ?", profileID, amount)
		if kind == CreditKindPackage {
			q = q.Where("package_expires_at IS NOT NULL AND package_expires_at > ?", time.Now())
		}

		res := q.UpdateColumn(col, gorm.Expr(col+" - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Distinguish "insufficient" from "no such profile"
			var count int64
			if err := tx.Model(&models.Profile{}).Where("id = ?", profileID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrProfileNotFound
			}
			return nil
		}

		balance, err := readBalance(tx, profileID, kind)
		if err != nil {
			return err
		}
		if err := appendUsageLog(tx, profileID, kind, action, -amount, balance); err != nil {
			return err
		}
		consumed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return consumed, nil
}

// AddPurchasedCredits credits a completed purchase. The payment flow itself
// lives outside this service; this is its only entry point into the ledger.
func AddPurchasedCredits(profileID uint, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("topup amount must be positive, got %d", amount)
	}
	return addCredits(profileID, CreditKindPurchased, amount, models.UsageActionPurchaseTopup)
}

// GrantPackage activates a bounded credit package on the profile, replacing
// any previous package.
func GrantPackage(profileID uint, credits int, expiresAt time.Time) error {
	if credits <= 0 {
		return fmt.Errorf("package credits must be positive, got %d", credits)
	}
	return database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Profile{}).Where("id = ?", profileID).
			Updates(map[string]interface{}{
				"package_credits":    credits,
				"package_expires_at": expiresAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProfileNotFound
		}
		return appendUsageLog(tx, profileID, CreditKindPackage, models.UsageActionPackageGrant, credits, credits)
	})
}

// RefundCredits returns credits to the ledger they were consumed from, e.g.
// when the provider rejects a generation request after the charge.
func RefundCredits(profileID uint, kind CreditKind, amount int) error {
	return addCredits(profileID, kind, amount, models.UsageActionRefund)
}

func addCredits(profileID uint, kind CreditKind, amount int, action models.UsageAction) error {
	col := balanceColumn(kind)
	if col == "" {
		return fmt.Errorf("unknown credit kind: %s", kind)
	}
	return database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Profile{}).Where("id = ?", profileID).
			UpdateColumn(col, gorm.Expr(col+" + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProfileNotFound
		}
		balance, err := readBalance(tx, profileID, kind)
		if err != nil {
			return err
		}
		return appendUsageLog(tx, profileID, kind, action, amount, balance)
	})
}

// ConsumeForGeneration charges one generation, trying the ledgers in order:
// package first (it expires), then weekly, then purchased. Returns which
// ledger paid.
func ConsumeForGeneration(profileID uint) (CreditKind, bool, error) {
	for _, kind := range []CreditKind{CreditKindPackage, CreditKindWeekly, CreditKindPurchased} {
		ok, err := ConsumeCredits(profileID, kind, 1, models.UsageActionGenerate)
		if err != nil {
			return "", false, err
		}
		if ok {
			return kind, true, nil
		}
	}
	return "", false, nil
}

// CreditStatusView is the combined balance view exposed for UI display.
type CreditStatusView struct {
	WeeklyCredits    int        `json:"weekly_credits"`
	NextWeeklyReset  time.Time  `json:"next_weekly_reset"`
	PurchasedCredits int        `json:"purchased_credits"`
	PackageCredits   int        `json:"package_credits"`
	PackageExpiresAt *time.Time `json:"package_expires_at,omitempty"`
	PackageExpired   bool       `json:"package_expired"`
}

// GetCreditStatus returns the combined view of all three ledgers, applying a
// due weekly reset first.
func GetCreditStatus(profileID uint) (*CreditStatusView, error) {
	if _, err := ResetWeeklyIfDue(profileID); err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := database.DB.First(&profile, profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	view := &CreditStatusView{
		WeeklyCredits:    profile.WeeklyCredits,
		NextWeeklyReset:  profile.LastCreditReset.Add(WeeklyResetPeriod),
		PurchasedCredits: profile.PurchasedCredits,
		PackageCredits:   profile.PackageCredits,
		PackageExpiresAt: profile.PackageExpiresAt,
	}
	if profile.PackageExpiresAt != nil && !profile.PackageExpiresAt.After(time.Now()) {
		view.PackageExpired = true
		view.PackageCredits = 0
	}
	return view, nil
}

// GetUsageLogs returns the append-only journal for one profile, newest first.
func GetUsageLogs(profileID uint, limit int) ([]models.UsageLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.UsageLog
	err := database.DB.Where("profile_id = ?", profileID).
		Order("created_at desc").Limit(limit).Find(&logs).Error
	return logs, err
}

func readBalance(tx *gorm.DB, profileID uint, kind CreditKind) (int, error) {
	var balance int
	err := tx.Model(&models.Profile{}).Where("id = ?", profileID).
		Select(balanceColumn(kind)).Scan(&balance).Error
	return balance, err
}

func appendUsageLog(tx *gorm.DB, profileID uint, kind CreditKind, action models.UsageAction, amount, balanceAfter int) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	entry := models.UsageLog{
		CreatedAt:    time.Now(),
		ProfileID:    profileID,
		Kind:         string(kind),
		Action:       action,
		Amount:       amount,
		BalanceAfter: balanceAfter,
	}
	entry.Hash = entry.GenerateHash(cfg.JWTSecret)

	if err := tx.Create(&entry).Error; err != nil {
		zap.L().Error("failed to append usage log",
			zap.Uint("profile_id", profileID),
			zap.String("action", string(action)),
			zap.Error(err))
		return err
	}
	return nil
}
