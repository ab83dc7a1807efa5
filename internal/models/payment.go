package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Статусы draft order
const (
	OrderStatusDraft    = "draft"
	OrderStatusPaid     = "paid"
	OrderStatusReleased = "released"
	OrderStatusRefunded = "refunded"
)

// Статусы escrow
const (
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
	EscrowStatusRefunded = "refunded"
)

// Типы записей леджера
const (
	LedgerTypeCharge   = "charge"
	LedgerTypeTransfer = "transfer"
	LedgerTypeRefund   = "refund"
)

// Типы платёжных событий
const (
	EventPaymentReceived = "payment_received"
	EventEscrowCreated   = "escrow_created"
	EventEscrowReleased  = "escrow_released"
	EventEscrowRefunded  = "escrow_refunded"
)

// Серьёзность платёжных событий
const (
	EventSeverityInfo    = "info"
	EventSeveritySuccess = "success"
	EventSeverityWarning = "warning"
)

// DefaultCurrency — валюта платформы по умолчанию (гвинейский франк).
const DefaultCurrency = "GNF"

// DraftOrder представляет продажу до и в момент оплаты.
// buyer_id остаётся NULL до успешного webhook от платёжного провайдера.
type DraftOrder struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PINumber        string     `db:"pi_number" json:"pi_number"`
	SellerID        uuid.UUID  `db:"seller_id" json:"seller_id"`
	BuyerID         *uuid.UUID `db:"buyer_id" json:"buyer_id,omitempty"`
	TotalAmount     int64      `db:"total_amount" json:"total_amount"`
	Currency        string     `db:"currency" json:"currency"`
	Status          string     `db:"status" json:"status"`
	PaidAt          *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	EscrowCreatedAt *time.Time `db:"escrow_created_at" json:"escrow_created_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Escrow представляет средства, удержанные платформой по одному заказу.
// На оплаченный заказ существует ровно один escrow (уникальность по order_id).
type Escrow struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	OrderID          uuid.UUID  `db:"order_id" json:"order_id"`
	PaymentIntentID  *string    `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	ChargeID         *string    `db:"charge_id" json:"charge_id,omitempty"`
	CustomerID       *string    `db:"customer_id" json:"customer_id,omitempty"`
	TotalAmount      int64      `db:"total_amount" json:"total_amount"`
	SellerAmount     int64      `db:"seller_amount" json:"seller_amount"`
	CommissionAmount int64      `db:"commission_amount" json:"commission_amount"`
	CommissionRate   float64    `db:"commission_rate" json:"commission_rate"`
	Currency         string     `db:"currency" json:"currency"`
	Status           string     `db:"status" json:"status"`
	AutoReleaseDays  int        `db:"auto_release_days" json:"auto_release_days"`
	Resolution       *string    `db:"resolution" json:"resolution,omitempty"`
	ReleasedAt       *time.Time `db:"released_at" json:"released_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// EscrowWithOrder объединяет escrow с данными его заказа для выдачи участникам.
type EscrowWithOrder struct {
	Escrow
	PINumber    string     `db:"pi_number" json:"pi_number"`
	SellerID    uuid.UUID  `db:"seller_id" json:"seller_id"`
	BuyerID     *uuid.UUID `db:"buyer_id" json:"buyer_id,omitempty"`
	OrderStatus string     `db:"order_status" json:"order_status"`
}

// LedgerEntry представляет запись о движении средств.
// Леджер append-only: записи не обновляются и не удаляются.
// NULL в user_from/user_to означает платформу.
type LedgerEntry struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	OrderID       uuid.UUID  `db:"order_id" json:"order_id"`
	EscrowID      uuid.UUID  `db:"escrow_id" json:"escrow_id"`
	UserFrom      *uuid.UUID `db:"user_from" json:"user_from,omitempty"`
	UserTo        *uuid.UUID `db:"user_to" json:"user_to,omitempty"`
	Type          string     `db:"type" json:"type"`
	Amount        int64      `db:"amount" json:"amount"`
	Currency      string     `db:"currency" json:"currency"`
	ReferenceID   *string    `db:"reference_id" json:"reference_id,omitempty"`
	ReferenceType *string    `db:"reference_type" json:"reference_type,omitempty"`
	Description   *string    `db:"description" json:"description,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// PaymentEvent представляет запись аудита, адресованную пользователю.
// События информационные и не влияют на движение денег.
type PaymentEvent struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrderID   uuid.UUID `db:"order_id" json:"order_id"`
	EscrowID  uuid.UUID `db:"escrow_id" json:"escrow_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Severity  string    `db:"severity" json:"severity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SplitAmount делит сумму заказа на комиссию платформы и долю продавца.
// Считаем в целых минимальных единицах валюты, комиссия округляется
// арифметически (half-up), поэтому всегда commission + seller == total.
func SplitAmount(total int64, rate float64) (commission, seller int64) {
	commission = int64(math.Floor(float64(total)*rate + 0.5))
	if commission < 0 {
		commission = 0
	}
	if commission > total {
		commission = total
	}
	seller = total - commission
	return commission, seller
}
