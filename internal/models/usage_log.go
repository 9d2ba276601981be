package models

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

type UsageAction string

const (
	UsageActionGenerate      UsageAction = "generate"
	UsageActionRefund        UsageAction = "refund"
	UsageActionWeeklyReset   UsageAction = "weekly_reset"
	UsageActionPurchaseTopup UsageAction = "purchase_topup"
	UsageActionPackageGrant  UsageAction = "package_grant"
	UsageActionPackageExpire UsageAction = "package_expire"
)

// UsageLog is the append-only ledger journal. Rows are written in the same
// transaction as the balance change they describe and are never mutated.
type UsageLog struct {
	ID           uint        `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time   `gorm:"precision:3" json:"created_at"` // Millisecond precision
	ProfileID    uint        `gorm:"index;not null" json:"profile_id"`
	Kind         string      `gorm:"type:varchar(20);index;not null" json:"kind"`
	Action       UsageAction `gorm:"type:varchar(30);index;not null" json:"action"`
	Amount       int         `gorm:"not null" json:"amount"`
	BalanceAfter int         `gorm:"not null" json:"balance_after"`
	Hash         string      `gorm:"type:varchar(64);default:''" json:"hash"` // HMAC SHA256
}

func (UsageLog) TableName() string {
	return "usage_logs"
}

// GenerateHash generates a tamper-proof hash for the log entry
func (l *UsageLog) GenerateHash(secret string) string {
	data := fmt.Sprintf("%d|%d|%s|%s|%d|%d",
		l.ProfileID, l.CreatedAt.UnixNano(), l.Kind, l.Action, l.Amount, l.BalanceAfter)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
