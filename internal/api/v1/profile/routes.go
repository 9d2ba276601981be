package profile

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/profile")
	{
		group.GET("", GetProfile)
		group.PUT("/demographics", UpdateDemographics)
		group.PUT("/styles", SelectStyles)
	}
	router.GET("/styles", ListStyles)
}
