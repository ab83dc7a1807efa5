package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soulbahprojet/solutions224-backend/internal/dto"
	"github.com/soulbahprojet/solutions224-backend/internal/provider"
	"github.com/soulbahprojet/solutions224-backend/internal/service"
)

// WebhookHandler принимает события платёжного провайдера.
type WebhookHandler struct {
	escrows *service.EscrowService
	secret  string
}

// NewWebhookHandler создаёт хэндлер.
// Пустой secret отключает проверку подписи (локальная разработка).
func NewWebhookHandler(escrows *service.EscrowService, secret string) *WebhookHandler {
	return &WebhookHandler{escrows: escrows, secret: secret}
}

// HandlePayment обрабатывает POST /api/webhooks/payment.
// Подпись проверяется по сырому телу до разбора JSON.
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "не удалось прочитать тело запроса"})
		return
	}

	signature := c.GetHeader(provider.SignatureHeader)
	if !provider.VerifySignature(body, signature, h.secret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "подпись webhook невалидна"})
		return
	}

	event, err := provider.ParseWebhook(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "тело webhook не является валидным событием"})
		return
	}

	if err := h.escrows.ProcessWebhook(c.Request.Context(), event); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.WebhookAck{Received: true})
}
