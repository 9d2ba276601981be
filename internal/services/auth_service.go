package services

import (
	"errors"
	"time"

	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"
	"profilephoto-backend/internal/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// Register creates a profile with a hashed password. The weekly allowance
// starts armed so a new user can generate right away.
func Register(email, password string, weeklyQuota int) (*models.Profile, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	profile := models.Profile{
		Email:           email,
		Password:        string(hashed),
		Role:            "user",
		WeeklyCredits:   weeklyQuota,
		LastCreditReset: time.Now(),
	}
	if err := database.DB.Create(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Login verifies credentials and issues a JWT.
func Login(email, password string) (string, *models.Profile, error) {
	var profile models.Profile
	if err := database.DB.Where("email = ?", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(profile.ID, profile.Role)
	if err != nil {
		return "", nil, err
	}
	return token, &profile, nil
}
