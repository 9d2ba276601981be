package artifacts

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/artifacts")
	{
		group.GET("/scheduled", ListScheduled)
		group.GET("/:id/retention", GetRetentionInfo)
		group.POST("/:id/restore", RestoreArtifact)
		group.DELETE("/:id", DeleteArtifact)
		group.DELETE("", DeleteAllArtifacts)
	}
}
