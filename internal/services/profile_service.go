package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FindProfileByID loads a profile, serving from the redis cache when warm.
func FindProfileByID(profileID uint) (models.Profile, error) {
	cacheKey := fmt.Sprintf("profile:%d", profileID)
	if database.RedisClient != nil {
		val, err := database.RedisClient.Get(database.Ctx, cacheKey).Result()
		if err == nil {
			var profile models.Profile
			if err := json.Unmarshal([]byte(val), &profile); err == nil {
				return profile, nil
			}
		}
	}

	var profile models.Profile
	if err := database.DB.First(&profile, profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return profile, ErrProfileNotFound
		}
		return profile, err
	}

	if database.RedisClient != nil {
		if data, err := json.Marshal(profile); err == nil {
			database.RedisClient.Set(database.Ctx, cacheKey, data, time.Hour)
		}
	}

	return profile, nil
}

// UpdateDemographics stores the prompt hints used when building generation
// requests.
func UpdateDemographics(profileID uint, gender, ageRange, ethnicity string) error {
	res := database.DB.Model(&models.Profile{}).Where("id = ?", profileID).
		Updates(map[string]interface{}{
			"gender":    gender,
			"age_range": ageRange,
			"ethnicity": ethnicity,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	invalidateProfileCache(profileID)
	return nil
}

// SetSelectedStyles stores the styles generated automatically once training
// completes.
func SetSelectedStyles(profileID uint, styles []string) error {
	data, err := json.Marshal(styles)
	if err != nil {
		return err
	}
	res := database.DB.Model(&models.Profile{}).Where("id = ?", profileID).
		UpdateColumn("selected_styles", datatypes.JSON(data))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	invalidateProfileCache(profileID)
	return nil
}

func invalidateProfileCache(profileID uint) {
	if database.RedisClient != nil {
		database.RedisClient.Del(database.Ctx, fmt.Sprintf("profile:%d", profileID))
	}
}
