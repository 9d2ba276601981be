package services

import (
	"testing"

	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStyleTestDB() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.Migrator().DropTable(&models.Style{})
	db.AutoMigrate(&models.Style{})

	database.DB = db
}

func TestSeedDefaultStyles(t *testing.T) {
	setupStyleTestDB()

	assert.NoError(t, SeedDefaultStyles())

	styles, err := ListStyles()
	assert.NoError(t, err)
	assert.Len(t, styles, 3)

	// Reseeding leaves tuned entries alone
	database.DB.Model(&models.Style{}).Where("name = ?", "casual").
		Update("prompt", "tuned prompt")
	assert.NoError(t, SeedDefaultStyles())

	var casual models.Style
	database.DB.Where("name = ?", "casual").First(&casual)
	assert.Equal(t, "tuned prompt", casual.Prompt)

	var count int64
	database.DB.Model(&models.Style{}).Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestListStyles_ActiveOnly(t *testing.T) {
	setupStyleTestDB()

	database.DB.Create(&models.Style{Name: "active", Prompt: "x", IsActive: true})
	database.DB.Create(&models.Style{Name: "retired", Prompt: "x", IsActive: false})

	styles, err := ListStyles()
	assert.NoError(t, err)
	assert.Len(t, styles, 1)
	assert.Equal(t, "active", styles[0].Name)
}
