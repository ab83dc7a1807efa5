package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/soulbahprojet/solutions224-backend/internal/logger"
)

// TransferRequest описывает выплату доли продавца.
type TransferRequest struct {
	EscrowID    string `json:"escrow_id"`
	Destination string `json:"destination"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

// RefundRequest описывает возврат полной суммы покупателю.
type RefundRequest struct {
	EscrowID string `json:"escrow_id"`
	ChargeID string `json:"charge_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Reason   string `json:"reason"`
}

// Client выполняет запросы к платёжному провайдеру.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient создаёт клиент провайдера.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Transfer переводит средства продавцу.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) error {
	return c.post(ctx, "/v1/transfers", req)
}

// Refund возвращает средства покупателю.
func (c *Client) Refund(ctx context.Context, req RefundRequest) error {
	return c.post(ctx, "/v1/refunds", req)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("provider: marshal request %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("provider: build request %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("provider: %s %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("provider: %s вернул %d: %s", path, resp.StatusCode, string(raw))
	}

	return nil
}

// NoopMover — заглушка перевода средств: подтверждает операции без вызова
// провайдера. Используется, пока PROVIDER_BASE_URL не задан; реальный перевод
// денег остаётся за границей этого интерфейса.
type NoopMover struct{}

// Transfer всегда подтверждает перевод.
func (NoopMover) Transfer(ctx context.Context, req TransferRequest) error {
	if logger.Log != nil {
		logger.Log.WithField("escrow_id", req.EscrowID).Warn("provider: noop transfer, средства не переведены")
	}
	return nil
}

// Refund всегда подтверждает возврат.
func (NoopMover) Refund(ctx context.Context, req RefundRequest) error {
	if logger.Log != nil {
		logger.Log.WithField("escrow_id", req.EscrowID).Warn("provider: noop refund, средства не возвращены")
	}
	return nil
}
