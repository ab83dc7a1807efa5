package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Типы событий провайдера, известные платформе.
const (
	EventPaymentLinkSucceeded = "payment_link.payment_succeeded"
	EventInvoiceSucceeded     = "invoice.payment_succeeded"
)

// SignatureHeader — заголовок с HMAC подписью тела webhook.
const SignatureHeader = "X-Webhook-Signature"

// WebhookEvent — конверт события провайдера.
type WebhookEvent struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data WebhookEventData `json:"data"`
}

// WebhookEventData содержит вложенный объект события.
type WebhookEventData struct {
	Object WebhookObject `json:"object"`
}

// WebhookObject — платёжный объект события. draft_order_id в метаданных —
// обязательный ключ корреляции для payment_link.payment_succeeded.
type WebhookObject struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	Charge        string            `json:"charge"`
	Customer      string            `json:"customer"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// ParseWebhook разбирает тело webhook в конверт события.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("provider: разбор webhook: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("provider: webhook без поля type")
	}
	return &event, nil
}

// VerifySignature проверяет HMAC-SHA256 подпись тела webhook.
// Пустой secret отключает проверку (режим разработки).
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignBody подписывает тело webhook; используется в тестах и эмуляции провайдера.
func SignBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
