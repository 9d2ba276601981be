package webhook

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the provider callbacks. These sit outside the JWT
// middleware; the HMAC signature check is their authentication.
func RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/webhooks")
	{
		group.POST("/training-complete", TrainingComplete)
		group.POST("/prediction-complete", PredictionComplete)
	}
}
