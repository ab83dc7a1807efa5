package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/soulbahprojet/solutions224-backend/internal/models"
	"github.com/soulbahprojet/solutions224-backend/internal/repository/common"
)

// ErrOrderNotFound возвращается, когда draft order не найден.
var ErrOrderNotFound = fmt.Errorf("draft order: %w", common.ErrNotFound)

// OrderRepository отвечает за работу с таблицей draft_orders.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository создаёт экземпляр репозитория.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create создаёт новый draft order со статусом draft.
func (r *OrderRepository) Create(ctx context.Context, order *models.DraftOrder) error {
	query := `
		INSERT INTO draft_orders (pi_number, seller_id, total_amount, currency, status)
		VALUES ($1, $2, $3, $4, 'draft')
		RETURNING id, status, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		order.PINumber, order.SellerID, order.TotalAmount, order.Currency,
	).Scan(&order.ID, &order.Status, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("order repository: create %w", err)
	}
	return nil
}

// GetByID возвращает draft order по идентификатору.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DraftOrder, error) {
	var order models.DraftOrder
	query := `
		SELECT id, pi_number, seller_id, buyer_id, total_amount, currency, status,
		       paid_at, escrow_created_at, created_at, updated_at
		FROM draft_orders
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("order repository: get by id %w", err)
	}
	return &order, nil
}

// GetByPINumber возвращает заказ по человекочитаемому номеру.
func (r *OrderRepository) GetByPINumber(ctx context.Context, piNumber string) (*models.DraftOrder, error) {
	var order models.DraftOrder
	query := `
		SELECT id, pi_number, seller_id, buyer_id, total_amount, currency, status,
		       paid_at, escrow_created_at, created_at, updated_at
		FROM draft_orders
		WHERE pi_number = $1
	`
	if err := r.db.GetContext(ctx, &order, query, piNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("order repository: get by pi number %w", err)
	}
	return &order, nil
}

// ListForUser возвращает заказы, где пользователь — продавец или покупатель.
func (r *OrderRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.DraftOrder, error) {
	var orders []models.DraftOrder
	query := `
		SELECT id, pi_number, seller_id, buyer_id, total_amount, currency, status,
		       paid_at, escrow_created_at, created_at, updated_at
		FROM draft_orders
		WHERE seller_id = $1 OR buyer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &orders, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("order repository: list for user %w", err)
	}
	return orders, nil
}
