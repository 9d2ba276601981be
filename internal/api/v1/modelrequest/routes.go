package modelrequest

import (
	"profilephoto-backend/internal/provider"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, client *provider.Client) {
	providerClient = client
	group := router.Group("/model-requests")
	{
		group.POST("", CreateModelRequest)
		group.GET("", ListModelRequests)
		group.GET("/:id", GetModelRequest)
	}
}
