package api

import (
	"profilephoto-backend/config"
	_ "profilephoto-backend/docs"
	"profilephoto-backend/internal/api/v1/artifacts"
	"profilephoto-backend/internal/api/v1/auth"
	"profilephoto-backend/internal/api/v1/credits"
	"profilephoto-backend/internal/api/v1/generation"
	"profilephoto-backend/internal/api/v1/modelrequest"
	profileRoutes "profilephoto-backend/internal/api/v1/profile"
	"profilephoto-backend/internal/api/v1/webhook"
	"profilephoto-backend/internal/database"
	"profilephoto-backend/internal/middleware"
	"profilephoto-backend/internal/provider"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(client *provider.Client) (*gin.Engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	_, err = database.Connect(cfg.DSN())
	if err != nil {
		return nil, err
	}

	err = database.ConnectRedis(cfg)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.Logger(), gin.Recovery())

	// Configure CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:8080"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1
	v1 := router.Group("/api/v1")
	{
		auth.RegisterRoutes(v1)

		// Provider callbacks authenticate with an HMAC signature, not a JWT
		webhook.RegisterRoutes(v1)

		authorized := v1.Group("/")
		authorized.Use(middleware.AuthMiddleware())
		{
			profileRoutes.RegisterRoutes(authorized)
			modelrequest.RegisterRoutes(authorized, client)
			generation.RegisterRoutes(authorized, client)
			credits.RegisterRoutes(authorized)
			artifacts.RegisterRoutes(authorized)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			credits.RegisterAdminRoutes(admin)
		}
	}

	return router, nil
}
