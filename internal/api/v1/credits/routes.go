package credits

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/credits")
	{
		group.GET("", GetCreditStatus)
		group.GET("/usage", GetUsageLogs)
	}
}

func RegisterAdminRoutes(router *gin.RouterGroup) {
	group := router.Group("/credits")
	{
		group.POST("/topup", TopUp)
		group.POST("/package", GrantPackage)
	}
}
