package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"profilephoto-backend/config"
	"profilephoto-backend/internal/api"
	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/models"
	"profilephoto-backend/internal/provider"
	"profilephoto-backend/internal/services"
	"profilephoto-backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// @title profilephoto-backend API
// @version 1.0
// @description Backend for AI profile photo generation: custom model training,
// @description credit ledgers and artifact retention.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	err = logger.InitLogger(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	client := provider.NewClient(cfg)

	router, err := api.NewRouter(client)
	if err != nil {
		log.Fatalf("failed to create router: %v", err)
	}

	// Migrate the schema
	err = database.DB.AutoMigrate(
		&models.Profile{},
		&models.ModelCreationRequest{},
		&models.GeneratedArtifact{},
		&models.UsageLog{},
		&models.WebhookEvent{},
		&models.Style{},
	)
	if err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	initAdminProfile(cfg)

	if err := services.SeedDefaultStyles(); err != nil {
		log.Fatalf("failed to seed styles: %v", err)
	}

	if cfg.OSSBucketName != "" {
		uploader, err := services.NewOSSUploader(cfg)
		if err != nil {
			log.Fatalf("failed to initialize OSS uploader: %v", err)
		}
		services.SetArtifactUploader(uploader)
	} else {
		zap.L().Warn("OSS not configured, generated artifacts will not be mirrored")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go services.NewModelPoller(client).Run(ctx)
	go services.NewCreditResetLoop().Run(ctx)
	go services.NewPackageExpirationLoop().Run(ctx)
	go services.NewRetentionSweeper().Run(ctx)
	go services.StartGenerationWorker(ctx, client)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}

func initAdminProfile(cfg *config.Config) {
	adminEmail := "admin@admin.com"
	adminPassword := "ChangeMe1234"

	var admin models.Profile
	result := database.DB.Where("email = ?", adminEmail).First(&admin)

	if result.Error != nil {
		if result.Error.Error() == "record not found" {
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
			if err != nil {
				log.Fatalf("failed to hash admin password: %v", err)
			}

			admin = models.Profile{
				Email:    adminEmail,
				Password: string(hashedPassword),
				Role:     "admin",
			}

			if err := database.DB.Create(&admin).Error; err != nil {
				log.Fatalf("failed to create admin profile: %v", err)
			}
			log.Println("Admin profile created successfully!")
		} else {
			log.Fatalf("failed to check for admin profile: %v", result.Error)
		}
	} else {
		log.Println("Admin profile already exists.")
	}
}
