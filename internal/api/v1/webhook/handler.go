package webhook

import (
	"io"
	"net/http"

	"profilephoto-backend/config"
	"profilephoto-backend/internal/services"
	"profilephoto-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const signatureHeader = "X-Webhook-Signature"

// readSignedBody reads the raw request body and verifies its HMAC signature
// before anything parses it. Returns nil after writing the error response
// when the signature is missing or wrong.
func readSignedBody(c *gin.Context) []byte {
	cfg, err := config.LoadConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Configuration unavailable"))
		return nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Failed to read request body"))
		return nil
	}

	signature := c.GetHeader(signatureHeader)
	if !utils.VerifySignature(body, signature, cfg.WebhookSecret) {
		zap.L().Warn("webhook signature rejected",
			zap.String("path", c.FullPath()),
			zap.String("remote", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Invalid signature"))
		return nil
	}
	return body
}

// TrainingComplete godoc
// @Summary Provider callback for finished training runs
// @Description Authenticated by HMAC signature over the raw body, not by JWT
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Webhook-Signature header string true "HMAC-SHA256 of the raw body"
// @Success 200 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /webhooks/training-complete [post]
func TrainingComplete(c *gin.Context) {
	body := readSignedBody(c)
	if body == nil {
		return
	}

	if err := services.HandleTrainingComplete(body); err != nil {
		// Signal the provider to redeliver; processing is idempotent.
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Webhook processed", nil))
}

// PredictionComplete godoc
// @Summary Provider callback for finished generation runs
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Webhook-Signature header string true "HMAC-SHA256 of the raw body"
// @Success 200 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /webhooks/prediction-complete [post]
func PredictionComplete(c *gin.Context) {
	body := readSignedBody(c)
	if body == nil {
		return
	}

	if err := services.HandlePredictionComplete(body); err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Webhook processed", nil))
}
