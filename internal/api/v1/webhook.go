package v1

import (
	"io"
	"net/http"

	"github.com/flexprice/paysync/internal/api/dto"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/service"
	"github.com/gin-gonic/gin"
)

// maxWebhookBodyBytes bounds gateway webhook bodies
const maxWebhookBodyBytes = 1 << 20

type WebhookHandler struct {
	service         service.GatewayWebhookService
	signatureHeader string
	log             *logger.Logger
}

func NewWebhookHandler(service service.GatewayWebhookService, signatureHeader string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service:         service,
		signatureHeader: signatureHeader,
		log:             log,
	}
}

// @Summary Paystack webhook
// @Description Receives signed transaction events from Paystack
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param x-paystack-signature header string true "HMAC-SHA512 of the raw body"
// @Success 200 {object} dto.WebhookAckResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 401 {object} ierr.ErrorResponse
// @Failure 500 {object} dto.WebhookAckResponse
// @Router /webhooks/paystack [post]
func (h *WebhookHandler) HandlePaystackWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Could not read webhook body").
			Mark(ierr.ErrValidation))
		return
	}

	ack, err := h.service.HandlePaystackWebhook(c.Request.Context(), body, c.GetHeader(h.signatureHeader))
	if err != nil {
		if ierr.IsSignatureInvalid(err) || ierr.IsValidation(err) {
			c.Error(err)
			return
		}
		// any other failure asks the gateway to deliver again
		h.log.Errorw("failed to process paystack webhook", "error", err)
		c.JSON(http.StatusInternalServerError, dto.WebhookAckResponse{Received: false})
		return
	}

	c.JSON(http.StatusOK, ack)
}
