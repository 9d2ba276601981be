package models

import "time"

// Style is one entry of the style catalog: a named prompt/negative-prompt
// template pair used when building generation requests.
type Style struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Name           string    `gorm:"uniqueIndex;not null" json:"name"`
	Description    string    `json:"description"`
	Prompt         string    `gorm:"type:text;not null" json:"prompt"`
	NegativePrompt string    `gorm:"type:text" json:"negative_prompt"`
	IsActive       bool      `gorm:"index;not null;default:true" json:"is_active"`
}

func (Style) TableName() string {
	return "styles"
}
