package models

import (
	"time"

	"gorm.io/datatypes"
)

// Profile is the user account record. It carries the three credit balances
// gating image generation: weekly credits that re-arm on a fixed period,
// purchased credits that never expire, and package credits bound to a hard
// expiration date.
type Profile struct {
	ID        uint `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Role      string    `gorm:"not null;default:'user'" json:"role"`
	Version   int       `gorm:"default:1" json:"version"`

	// Demographic hints fed into the generation prompt
	Gender    string `json:"gender"`
	AgeRange  string `json:"age_range"`
	Ethnicity string `json:"ethnicity"`

	// Styles the user picked for automatic generation after training
	SelectedStyles datatypes.JSON `gorm:"type:jsonb" json:"selected_styles" swaggertype:"array,string"`

	// Set once training completes; identifies the per-user model on the provider
	TrainedModelVersion string `json:"trained_model_version"`

	WeeklyCredits    int       `gorm:"not null;default:0" json:"weekly_credits"`
	LastCreditReset  time.Time `json:"last_credit_reset"`
	PurchasedCredits int       `gorm:"not null;default:0" json:"purchased_credits"`
	PackageCredits   int       `gorm:"not null;default:0" json:"package_credits"`
	PackageExpiresAt *time.Time `json:"package_expires_at,omitempty"`
}

func (Profile) TableName() string {
	return "profiles"
}
