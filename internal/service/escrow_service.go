package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/soulbahprojet/solutions224-backend/internal/logger"
	"github.com/soulbahprojet/solutions224-backend/internal/metrics"
	"github.com/soulbahprojet/solutions224-backend/internal/models"
	"github.com/soulbahprojet/solutions224-backend/internal/pkg/apperror"
	"github.com/soulbahprojet/solutions224-backend/internal/provider"
	"github.com/soulbahprojet/solutions224-backend/internal/repository"
	"github.com/soulbahprojet/solutions224-backend/internal/validation"
)

// MetadataOrderIDKey — ключ корреляции webhook с draft order.
const MetadataOrderIDKey = "draft_order_id"

// MetadataBuyerIDKey — необязательный идентификатор покупателя в метаданных.
const MetadataBuyerIDKey = "buyer_id"

// EscrowStore описывает зависимости EscrowService от слоя хранилища.
type EscrowStore interface {
	CreateFromPayment(ctx context.Context, capture repository.PaymentCapture) (*models.Escrow, bool, error)
	Release(ctx context.Context, escrowID uuid.UUID, confirm func(*models.EscrowWithOrder) error) (*models.Escrow, error)
	Refund(ctx context.Context, escrowID uuid.UUID, reason string, confirm func(*models.EscrowWithOrder) error) (*models.Escrow, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowWithOrder, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.EscrowWithOrder, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.EscrowWithOrder, error)
	ListExpiredHeld(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// FundsMover — граница реального движения денег у провайдера.
// Статус escrow меняется только после подтверждения операции мувером.
type FundsMover interface {
	Transfer(ctx context.Context, req provider.TransferRequest) error
	Refund(ctx context.Context, req provider.RefundRequest) error
}

// EscrowEvent — событие жизненного цикла escrow для внешних потребителей.
type EscrowEvent struct {
	EscrowID string `json:"escrow_id"`
	OrderID  string `json:"order_id"`
	PINumber string `json:"pi_number"`
	SellerID string `json:"seller_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// EventPublisher публикует события escrow во внешнюю шину.
type EventPublisher interface {
	Publish(event EscrowEvent) error
}

// Notifier доставляет платёжные события подключённым пользователям.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// EscrowService реализует платёжный контур: приём webhook, release и refund.
type EscrowService struct {
	store           EscrowStore
	mover           FundsMover
	publisher       EventPublisher
	notifier        Notifier
	commissionRate  float64
	autoReleaseDays int
}

// NewEscrowService создаёт сервис escrow.
func NewEscrowService(store EscrowStore, mover FundsMover, commissionRate float64, autoReleaseDays int) *EscrowService {
	return &EscrowService{
		store:           store,
		mover:           mover,
		commissionRate:  commissionRate,
		autoReleaseDays: autoReleaseDays,
	}
}

// SetPublisher подключает шину событий (опционально).
func (s *EscrowService) SetPublisher(publisher EventPublisher) {
	s.publisher = publisher
}

// SetNotifier подключает realtime уведомления (опционально).
func (s *EscrowService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// ProcessWebhook обрабатывает событие платёжного провайдера.
// Неизвестные и invoice-события — no-op: провайдеру всегда отвечаем 200,
// чтобы он не ретраил то, что мы сознательно пропускаем.
func (s *EscrowService) ProcessWebhook(ctx context.Context, event *provider.WebhookEvent) error {
	metrics.WebhooksReceivedTotal.WithLabelValues(event.Type).Inc()

	switch event.Type {
	case provider.EventPaymentLinkSucceeded:
		return s.handlePaymentSucceeded(ctx, event)
	case provider.EventInvoiceSucceeded:
		if logger.Log != nil {
			logger.Log.WithField("event_id", event.ID).Info("escrow service: invoice webhook принят без обработки")
		}
		return nil
	default:
		if logger.Log != nil {
			logger.Log.WithField("type", event.Type).Debug("escrow service: неизвестный тип webhook")
		}
		return nil
	}
}

// handlePaymentSucceeded создаёт escrow по успешной оплате payment link.
func (s *EscrowService) handlePaymentSucceeded(ctx context.Context, event *provider.WebhookEvent) error {
	object := event.Data.Object

	orderIDRaw, ok := object.Metadata[MetadataOrderIDKey]
	if !ok || orderIDRaw == "" {
		return apperror.ErrMissingReference
	}

	orderID, err := uuid.Parse(orderIDRaw)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "draft_order_id имеет неверный формат")
	}

	capture := repository.PaymentCapture{
		OrderID:         orderID,
		PaymentIntentID: optional(object.PaymentIntent),
		ChargeID:        optional(object.Charge),
		CustomerID:      optional(object.Customer),
		CommissionRate:  s.commissionRate,
		AutoReleaseDays: s.autoReleaseDays,
	}

	if buyerRaw, ok := object.Metadata[MetadataBuyerIDKey]; ok && buyerRaw != "" {
		buyerID, err := uuid.Parse(buyerRaw)
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeValidation, "buyer_id имеет неверный формат")
		}
		capture.BuyerID = &buyerID
	}

	escrow, created, err := s.store.CreateFromPayment(ctx, capture)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return apperror.ErrOrderNotFound
		}
		return err
	}

	if !created {
		// Повторная доставка webhook: escrow уже существует, ничего не пишем.
		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"order_id":  orderID,
				"escrow_id": escrow.ID,
			}).Info("escrow service: дубликат webhook проигнорирован")
		}
		metrics.WebhooksDuplicateTotal.Inc()
		return nil
	}

	metrics.EscrowsCreatedTotal.Inc()
	metrics.EscrowsCreatedAmountTotal.Add(float64(escrow.TotalAmount))

	s.emit(ctx, escrow.ID, models.EventEscrowCreated)

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"order_id":   orderID,
			"escrow_id":  escrow.ID,
			"total":      escrow.TotalAmount,
			"seller":     escrow.SellerAmount,
			"commission": escrow.CommissionAmount,
		}).Info("escrow service: escrow создан")
	}

	return nil
}

// ReleaseEscrow выплачивает долю продавцу и закрывает escrow.
// Разрешено продавцу заказа и админу.
func (s *EscrowService) ReleaseEscrow(ctx context.Context, escrowID, callerID uuid.UUID, callerRole string) (*models.Escrow, error) {
	current, err := s.store.GetByID(ctx, escrowID)
	if err != nil {
		return nil, mapEscrowErr(err)
	}

	if callerRole != models.RoleAdmin && current.SellerID != callerID {
		return nil, apperror.ErrForbidden
	}

	return s.release(ctx, escrowID)
}

// release выполняет переход held -> released с подтверждением мувера.
func (s *EscrowService) release(ctx context.Context, escrowID uuid.UUID) (*models.Escrow, error) {
	released, err := s.store.Release(ctx, escrowID, func(escrow *models.EscrowWithOrder) error {
		err := s.mover.Transfer(ctx, provider.TransferRequest{
			EscrowID:    escrow.ID.String(),
			Destination: escrow.SellerID.String(),
			Amount:      escrow.SellerAmount,
			Currency:    escrow.Currency,
		})
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeProvider, "провайдер не подтвердил перевод средств")
		}
		return nil
	})
	if err != nil {
		return nil, mapEscrowErr(err)
	}

	metrics.EscrowsReleasedTotal.Inc()
	metrics.EscrowsReleasedAmountTotal.Add(float64(released.SellerAmount))

	s.emit(ctx, released.ID, models.EventEscrowReleased)

	return released, nil
}

// RefundEscrow возвращает полную сумму покупателю.
// Разрешено покупателю заказа и админу.
func (s *EscrowService) RefundEscrow(ctx context.Context, escrowID uuid.UUID, reason string, callerID uuid.UUID, callerRole string) (*models.Escrow, error) {
	if err := validation.ValidateReason(reason); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	current, err := s.store.GetByID(ctx, escrowID)
	if err != nil {
		return nil, mapEscrowErr(err)
	}

	isBuyer := current.BuyerID != nil && *current.BuyerID == callerID
	if callerRole != models.RoleAdmin && !isBuyer {
		return nil, apperror.ErrForbidden
	}

	refunded, err := s.store.Refund(ctx, escrowID, reason, func(escrow *models.EscrowWithOrder) error {
		chargeID := ""
		if escrow.ChargeID != nil {
			chargeID = *escrow.ChargeID
		}
		err := s.mover.Refund(ctx, provider.RefundRequest{
			EscrowID: escrow.ID.String(),
			ChargeID: chargeID,
			Amount:   escrow.TotalAmount,
			Currency: escrow.Currency,
			Reason:   reason,
		})
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeProvider, "провайдер не подтвердил возврат средств")
		}
		return nil
	})
	if err != nil {
		return nil, mapEscrowErr(err)
	}

	metrics.EscrowsRefundedTotal.Inc()
	metrics.EscrowsRefundedAmountTotal.Add(float64(refunded.TotalAmount))

	s.emit(ctx, refunded.ID, models.EventEscrowRefunded)

	return refunded, nil
}

// GetEscrow возвращает escrow участнику заказа или админу.
func (s *EscrowService) GetEscrow(ctx context.Context, escrowID, callerID uuid.UUID, callerRole string) (*models.EscrowWithOrder, error) {
	escrow, err := s.store.GetByID(ctx, escrowID)
	if err != nil {
		return nil, mapEscrowErr(err)
	}

	isParticipant := escrow.SellerID == callerID || (escrow.BuyerID != nil && *escrow.BuyerID == callerID)
	if callerRole != models.RoleAdmin && !isParticipant {
		return nil, apperror.ErrForbidden
	}

	return escrow, nil
}

// ListMyEscrows возвращает escrow, где пользователь — продавец или покупатель.
func (s *EscrowService) ListMyEscrows(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.EscrowWithOrder, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListForUser(ctx, userID, limit, offset)
}

// ListAllEscrows возвращает все escrow (только админ).
func (s *EscrowService) ListAllEscrows(ctx context.Context, callerRole string, limit, offset int) ([]models.EscrowWithOrder, error) {
	if callerRole != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListAll(ctx, limit, offset)
}

// ReleaseExpired выплачивает held escrow с истёкшим сроком авто-release.
// Ошибка по одному escrow не прерывает обработку остальных.
func (s *EscrowService) ReleaseExpired(ctx context.Context) error {
	ids, err := s.store.ListExpiredHeld(ctx, 100)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := s.release(ctx, id); err != nil {
			// Конкурентный release того же escrow — не ошибка.
			if apperror.IsConflict(err) {
				continue
			}
			if logger.Log != nil {
				logger.Log.WithError(err).WithField("escrow_id", id).Error("escrow service: авто-release не удался")
			}
			continue
		}
		metrics.EscrowsAutoReleasedTotal.Inc()
	}

	return nil
}

// emit рассылает событие жизненного цикла: в шину и подключённым пользователям.
// Доставка best-effort: деньги уже записаны, сбой доставки только логируется.
func (s *EscrowService) emit(ctx context.Context, escrowID uuid.UUID, eventType string) {
	escrow, err := s.store.GetByID(ctx, escrowID)
	if err != nil {
		if logger.Log != nil {
			logger.Log.WithError(err).Warn("escrow service: не удалось загрузить escrow для события")
		}
		return
	}

	if s.publisher != nil {
		event := EscrowEvent{
			EscrowID: escrow.ID.String(),
			OrderID:  escrow.OrderID.String(),
			PINumber: escrow.PINumber,
			SellerID: escrow.SellerID.String(),
			Status:   escrow.Status,
			Amount:   escrow.TotalAmount,
			Currency: escrow.Currency,
		}
		if err := s.publisher.Publish(event); err != nil && logger.Log != nil {
			logger.Log.WithError(err).Warn("escrow service: публикация события не удалась")
		}
	}

	if s.notifier != nil {
		if err := s.notifier.BroadcastToUser(escrow.SellerID, eventType, escrow); err != nil && logger.Log != nil {
			logger.Log.WithError(err).Warn("escrow service: уведомление продавца не доставлено")
		}
		if escrow.BuyerID != nil {
			if err := s.notifier.BroadcastToUser(*escrow.BuyerID, eventType, escrow); err != nil && logger.Log != nil {
				logger.Log.WithError(err).Warn("escrow service: уведомление покупателя не доставлено")
			}
		}
	}
}

// mapEscrowErr переводит ошибки хранилища в ошибки приложения.
func mapEscrowErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrEscrowNotFound):
		return apperror.ErrEscrowNotFound
	case errors.Is(err, repository.ErrEscrowProcessed):
		return apperror.ErrAlreadyProcessed
	case errors.Is(err, repository.ErrOrderNotFound):
		return apperror.ErrOrderNotFound
	default:
		return err
	}
}

// optional возвращает nil для пустой строки.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
