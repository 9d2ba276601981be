package services

import (
	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"

	"go.uber.org/zap"
)

// ListStyles returns the active style catalog.
func ListStyles() ([]models.Style, error) {
	var styles []models.Style
	err := database.DB.Where("is_active = ?", true).Order("name asc").Find(&styles).Error
	return styles, err
}

// SeedDefaultStyles installs the built-in catalog on first boot. Existing
// entries are left alone so operators can tune prompts in place.
func SeedDefaultStyles() error {
	defaults := []models.Style{
		{
			Name:           "professional",
			Description:    "Corporate headshot",
			Prompt:         "professional studio headshot of a {age_range} {ethnicity} {gender}, business attire, neutral background, soft lighting, sharp focus",
			NegativePrompt: "casual clothing, busy background, harsh shadows",
			IsActive:       true,
		},
		{
			Name:           "casual",
			Description:    "Relaxed outdoor portrait",
			Prompt:         "candid outdoor portrait of a {age_range} {ethnicity} {gender}, natural light, shallow depth of field, warm tones",
			IsActive:       true,
		},
		{
			Name:           "creative",
			Description:    "Stylized artistic portrait",
			Prompt:         "artistic portrait of a {age_range} {ethnicity} {gender}, dramatic rim lighting, cinematic color grade, high detail",
			NegativePrompt: "flat lighting, washed out colors",
			IsActive:       true,
		},
	}

	for _, style := range defaults {
		var count int64
		if err := database.DB.Model(&models.Style{}).Where("name = ?", style.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := database.DB.Create(&style).Error; err != nil {
			return err
		}
		zap.L().Info("seeded style", zap.String("name", style.Name))
	}
	return nil
}
