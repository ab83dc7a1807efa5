// Package dto содержит общие формы ответов HTTP API.
package dto

// ErrorResponse — стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse — стандартный успешный ответ.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// WebhookAck — подтверждение приёма webhook провайдеру.
type WebhookAck struct {
	Received bool `json:"received"`
}
