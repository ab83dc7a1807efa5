package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/soulbahprojet/solutions224-backend/internal/models"
)

// LedgerRepository отвечает за чтение леджера и платёжных событий.
// Запись выполняет только EscrowRepository внутри своих транзакций —
// леджер append-only.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository создаёт экземпляр репозитория.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// ListForUser возвращает записи леджера по заказам, в которых пользователь
// участвует как продавец или покупатель.
func (r *LedgerRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	query := `
		SELECT l.id, l.order_id, l.escrow_id, l.user_from, l.user_to, l.type,
		       l.amount, l.currency, l.reference_id, l.reference_type, l.description, l.created_at
		FROM payment_ledger l
		JOIN draft_orders o ON o.id = l.order_id
		WHERE o.seller_id = $1 OR o.buyer_id = $1
		ORDER BY l.created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &entries, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("ledger repository: list for user %w", err)
	}
	return entries, nil
}

// ListForEscrow возвращает записи леджера одного escrow.
func (r *LedgerRepository) ListForEscrow(ctx context.Context, escrowID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	query := `
		SELECT id, order_id, escrow_id, user_from, user_to, type,
		       amount, currency, reference_id, reference_type, description, created_at
		FROM payment_ledger
		WHERE escrow_id = $1
		ORDER BY created_at
	`
	if err := r.db.SelectContext(ctx, &entries, query, escrowID); err != nil {
		return nil, fmt.Errorf("ledger repository: list for escrow %w", err)
	}
	return entries, nil
}

// ListEventsForUser возвращает платёжные события, адресованные пользователю.
func (r *LedgerRepository) ListEventsForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	query := `
		SELECT id, order_id, escrow_id, user_id, type, title, message, severity, created_at
		FROM payment_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &events, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("ledger repository: list events %w", err)
	}
	return events, nil
}
