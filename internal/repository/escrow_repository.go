package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/soulbahprojet/solutions224-backend/internal/models"
	"github.com/soulbahprojet/solutions224-backend/internal/repository/common"
)

var (
	// ErrEscrowNotFound возвращается, когда escrow не найден.
	ErrEscrowNotFound = fmt.Errorf("escrow: %w", common.ErrNotFound)
	// ErrEscrowProcessed возвращается при попытке повторно обработать escrow
	// в терминальном статусе (released/refunded).
	ErrEscrowProcessed = errors.New("escrow already processed")
)

// PaymentCapture описывает успешную оплату, пришедшую из webhook провайдера.
type PaymentCapture struct {
	OrderID         uuid.UUID
	BuyerID         *uuid.UUID
	PaymentIntentID *string
	ChargeID        *string
	CustomerID      *string
	CommissionRate  float64
	AutoReleaseDays int
}

// EscrowRepository отвечает за таблицы payment_escrows, payment_ledger и payment_events.
// Все мутации проходят в одной транзакции, поэтому частично записанных
// состояний (заказ оплачен без escrow и наоборот) не бывает.
type EscrowRepository struct {
	db *sqlx.DB
}

// NewEscrowRepository создаёт экземпляр репозитория.
func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

const escrowColumns = `
	id, order_id, payment_intent_id, charge_id, customer_id,
	total_amount, seller_amount, commission_amount, commission_rate,
	currency, status, auto_release_days, resolution, released_at, created_at
`

const escrowWithOrderQuery = `
	SELECT e.id, e.order_id, e.payment_intent_id, e.charge_id, e.customer_id,
	       e.total_amount, e.seller_amount, e.commission_amount, e.commission_rate,
	       e.currency, e.status, e.auto_release_days, e.resolution, e.released_at, e.created_at,
	       o.pi_number, o.seller_id, o.buyer_id, o.status AS order_status
	FROM payment_escrows e
	JOIN draft_orders o ON o.id = e.order_id
`

// CreateFromPayment фиксирует оплату заказа: создаёт escrow, помечает заказ
// оплаченным, пишет charge в леджер и два события продавцу. Повторная
// доставка того же webhook — no-op: возвращается существующий escrow и
// created == false.
func (r *EscrowRepository) CreateFromPayment(ctx context.Context, capture PaymentCapture) (*models.Escrow, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	// Блокируем заказ, чтобы конкурентные доставки webhook сериализовались.
	var order models.DraftOrder
	err = tx.GetContext(ctx, &order, `
		SELECT id, pi_number, seller_id, buyer_id, total_amount, currency, status,
		       paid_at, escrow_created_at, created_at, updated_at
		FROM draft_orders WHERE id = $1 FOR UPDATE
	`, capture.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrOrderNotFound
		}
		return nil, false, fmt.Errorf("escrow repository: load order %w", err)
	}

	// Уже оплачен — escrow существует, дубликат webhook игнорируем.
	if order.Status != models.OrderStatusDraft {
		var existing models.Escrow
		err = tx.GetContext(ctx, &existing,
			`SELECT `+escrowColumns+` FROM payment_escrows WHERE order_id = $1`, capture.OrderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, false, fmt.Errorf("escrow repository: order %s paid without escrow", capture.OrderID)
			}
			return nil, false, fmt.Errorf("escrow repository: load existing escrow %w", err)
		}
		return &existing, false, tx.Commit()
	}

	commission, seller := models.SplitAmount(order.TotalAmount, capture.CommissionRate)

	var escrow models.Escrow
	err = tx.GetContext(ctx, &escrow, `
		INSERT INTO payment_escrows (
			order_id, payment_intent_id, charge_id, customer_id,
			total_amount, seller_amount, commission_amount, commission_rate,
			currency, status, auto_release_days
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'held', $10)
		RETURNING `+escrowColumns,
		capture.OrderID, capture.PaymentIntentID, capture.ChargeID, capture.CustomerID,
		order.TotalAmount, seller, commission, capture.CommissionRate,
		order.Currency, capture.AutoReleaseDays)
	if err != nil {
		return nil, false, fmt.Errorf("escrow repository: insert escrow %w", err)
	}

	// Переводим заказ в paid строго из draft.
	res, err := tx.ExecContext(ctx, `
		UPDATE draft_orders
		SET status = 'paid', buyer_id = $2, paid_at = NOW(), escrow_created_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'draft'
	`, capture.OrderID, capture.BuyerID)
	if err != nil {
		return nil, false, fmt.Errorf("escrow repository: mark order paid %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, false, fmt.Errorf("escrow repository: order %s left draft status concurrently", capture.OrderID)
	}

	// Запись charge: деньги пришли от покупателя на платформу.
	if err := insertLedgerEntry(ctx, tx, &models.LedgerEntry{
		OrderID:       order.ID,
		EscrowID:      escrow.ID,
		UserFrom:      capture.BuyerID,
		Type:          models.LedgerTypeCharge,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		ReferenceID:   capture.ChargeID,
		ReferenceType: strPtr("charge"),
		Description:   strPtr(fmt.Sprintf("Оплата заказа %s", order.PINumber)),
	}); err != nil {
		return nil, false, err
	}

	events := []models.PaymentEvent{
		{
			OrderID:  order.ID,
			EscrowID: escrow.ID,
			UserID:   order.SellerID,
			Type:     models.EventPaymentReceived,
			Title:    "Оплата получена",
			Message:  fmt.Sprintf("Заказ %s оплачен на сумму %d %s", order.PINumber, order.TotalAmount, order.Currency),
			Severity: models.EventSeveritySuccess,
		},
		{
			OrderID:  order.ID,
			EscrowID: escrow.ID,
			UserID:   order.SellerID,
			Type:     models.EventEscrowCreated,
			Title:    "Средства на удержании",
			Message:  fmt.Sprintf("Ваша доля %d %s будет выплачена после подтверждения заказа %s", seller, order.Currency, order.PINumber),
			Severity: models.EventSeverityInfo,
		},
	}
	for i := range events {
		if err := insertPaymentEvent(ctx, tx, &events[i]); err != nil {
			return nil, false, err
		}
	}

	return &escrow, true, tx.Commit()
}

// Release переводит escrow из held в released и закрывает заказ.
// confirm вызывается под блокировкой строки до записи терминального статуса:
// если перевод средств провайдером не подтвердился, транзакция откатывается
// и escrow остаётся held. Конкурентный release сериализуется блокировкой и
// получает ErrEscrowProcessed.
func (r *EscrowRepository) Release(ctx context.Context, escrowID uuid.UUID, confirm func(*models.EscrowWithOrder) error) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := lockEscrow(ctx, tx, escrowID)
	if err != nil {
		return nil, err
	}

	if confirm != nil {
		if err := confirm(escrow); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`UPDATE payment_escrows SET status = 'released', released_at = $2 WHERE id = $1 AND status = 'held'`,
		escrow.ID, now)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: release %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrEscrowProcessed
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE draft_orders SET status = 'released', updated_at = NOW() WHERE id = $1`,
		escrow.OrderID); err != nil {
		return nil, fmt.Errorf("escrow repository: release order %w", err)
	}

	// Перевод: доля продавца уходит с платформы продавцу.
	if err := insertLedgerEntry(ctx, tx, &models.LedgerEntry{
		OrderID:     escrow.OrderID,
		EscrowID:    escrow.ID,
		UserTo:      &escrow.SellerID,
		Type:        models.LedgerTypeTransfer,
		Amount:      escrow.SellerAmount,
		Currency:    escrow.Currency,
		Description: strPtr(fmt.Sprintf("Выплата продавцу по заказу %s", escrow.PINumber)),
	}); err != nil {
		return nil, err
	}

	if err := insertPaymentEvent(ctx, tx, &models.PaymentEvent{
		OrderID:  escrow.OrderID,
		EscrowID: escrow.ID,
		UserID:   escrow.SellerID,
		Type:     models.EventEscrowReleased,
		Title:    "Средства выплачены",
		Message:  fmt.Sprintf("По заказу %s выплачено %d %s", escrow.PINumber, escrow.SellerAmount, escrow.Currency),
		Severity: models.EventSeveritySuccess,
	}); err != nil {
		return nil, err
	}

	released := escrow.Escrow
	released.Status = models.EscrowStatusReleased
	released.ReleasedAt = &now

	return &released, tx.Commit()
}

// Refund переводит escrow из held в refunded, полная сумма возвращается покупателю.
// Семантика confirm та же, что и у Release.
func (r *EscrowRepository) Refund(ctx context.Context, escrowID uuid.UUID, reason string, confirm func(*models.EscrowWithOrder) error) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := lockEscrow(ctx, tx, escrowID)
	if err != nil {
		return nil, err
	}

	if confirm != nil {
		if err := confirm(escrow); err != nil {
			return nil, err
		}
	}

	// released_at заполняется только при выплате продавцу, для возврата
	// фиксируем лишь причину в resolution.
	res, err := tx.ExecContext(ctx,
		`UPDATE payment_escrows SET status = 'refunded', resolution = $2 WHERE id = $1 AND status = 'held'`,
		escrow.ID, reason)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: refund %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrEscrowProcessed
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE draft_orders SET status = 'refunded', updated_at = NOW() WHERE id = $1`,
		escrow.OrderID); err != nil {
		return nil, fmt.Errorf("escrow repository: refund order %w", err)
	}

	// Возврат: полная сумма уходит с платформы покупателю.
	if err := insertLedgerEntry(ctx, tx, &models.LedgerEntry{
		OrderID:     escrow.OrderID,
		EscrowID:    escrow.ID,
		UserTo:      escrow.BuyerID,
		Type:        models.LedgerTypeRefund,
		Amount:      escrow.TotalAmount,
		Currency:    escrow.Currency,
		Description: strPtr(fmt.Sprintf("Возврат по заказу %s: %s", escrow.PINumber, reason)),
	}); err != nil {
		return nil, err
	}

	if escrow.BuyerID != nil {
		if err := insertPaymentEvent(ctx, tx, &models.PaymentEvent{
			OrderID:  escrow.OrderID,
			EscrowID: escrow.ID,
			UserID:   *escrow.BuyerID,
			Type:     models.EventEscrowRefunded,
			Title:    "Средства возвращены",
			Message:  fmt.Sprintf("По заказу %s возвращено %d %s", escrow.PINumber, escrow.TotalAmount, escrow.Currency),
			Severity: models.EventSeverityWarning,
		}); err != nil {
			return nil, err
		}
	}

	refunded := escrow.Escrow
	refunded.Status = models.EscrowStatusRefunded
	refunded.Resolution = &reason

	return &refunded, tx.Commit()
}

// GetByID возвращает escrow вместе с данными заказа.
func (r *EscrowRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowWithOrder, error) {
	var escrow models.EscrowWithOrder
	if err := r.db.GetContext(ctx, &escrow, escrowWithOrderQuery+` WHERE e.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("escrow repository: get by id %w", err)
	}
	return &escrow, nil
}

// GetByOrderID возвращает escrow по заказу.
func (r *EscrowRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.EscrowWithOrder, error) {
	var escrow models.EscrowWithOrder
	if err := r.db.GetContext(ctx, &escrow, escrowWithOrderQuery+` WHERE e.order_id = $1`, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("escrow repository: get by order id %w", err)
	}
	return &escrow, nil
}

// ListForUser возвращает escrow, где пользователь — продавец или покупатель заказа.
// Фильтрация выполняется в предикате запроса, а не в коде приложения.
func (r *EscrowRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.EscrowWithOrder, error) {
	var escrows []models.EscrowWithOrder
	query := escrowWithOrderQuery + `
		WHERE o.seller_id = $1 OR o.buyer_id = $1
		ORDER BY e.created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &escrows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("escrow repository: list for user %w", err)
	}
	return escrows, nil
}

// ListAll возвращает все escrow (админский обзор).
func (r *EscrowRepository) ListAll(ctx context.Context, limit, offset int) ([]models.EscrowWithOrder, error) {
	var escrows []models.EscrowWithOrder
	query := escrowWithOrderQuery + `
		ORDER BY e.created_at DESC
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &escrows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("escrow repository: list all %w", err)
	}
	return escrows, nil
}

// ListExpiredHeld возвращает идентификаторы held escrow, у которых истёк
// срок авто-release.
func (r *EscrowRepository) ListExpiredHeld(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `
		SELECT id FROM payment_escrows
		WHERE status = 'held'
		  AND auto_release_days > 0
		  AND created_at + auto_release_days * INTERVAL '1 day' < NOW()
		ORDER BY created_at
		LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &ids, query, limit); err != nil {
		return nil, fmt.Errorf("escrow repository: list expired %w", err)
	}
	return ids, nil
}

// lockEscrow читает escrow с заказом под FOR UPDATE и проверяет, что он ещё held.
func lockEscrow(ctx context.Context, tx *sqlx.Tx, escrowID uuid.UUID) (*models.EscrowWithOrder, error) {
	var escrow models.EscrowWithOrder
	err := tx.GetContext(ctx, &escrow, escrowWithOrderQuery+` WHERE e.id = $1 FOR UPDATE OF e`, escrowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("escrow repository: lock escrow %w", err)
	}
	if escrow.Status != models.EscrowStatusHeld {
		return nil, ErrEscrowProcessed
	}
	return &escrow, nil
}

func insertLedgerEntry(ctx context.Context, tx *sqlx.Tx, entry *models.LedgerEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payment_ledger (order_id, escrow_id, user_from, user_to, type, amount, currency, reference_id, reference_type, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.OrderID, entry.EscrowID, entry.UserFrom, entry.UserTo, entry.Type,
		entry.Amount, entry.Currency, entry.ReferenceID, entry.ReferenceType, entry.Description)
	if err != nil {
		return fmt.Errorf("escrow repository: insert ledger entry %w", err)
	}
	return nil
}

func insertPaymentEvent(ctx context.Context, tx *sqlx.Tx, event *models.PaymentEvent) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payment_events (order_id, escrow_id, user_id, type, title, message, severity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.OrderID, event.EscrowID, event.UserID, event.Type, event.Title, event.Message, event.Severity)
	if err != nil {
		return fmt.Errorf("escrow repository: insert payment event %w", err)
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}
