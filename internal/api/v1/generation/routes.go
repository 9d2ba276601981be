package generation

import (
	"profilephoto-backend/internal/provider"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, client *provider.Client) {
	providerClient = client
	router.POST("/generations", Generate)
	router.GET("/generations/:id", GetGeneration)
}
