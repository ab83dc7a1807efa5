package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/soulbahprojet/solutions224-backend/internal/models"
	"github.com/soulbahprojet/solutions224-backend/internal/pkg/apperror"
	"github.com/soulbahprojet/solutions224-backend/internal/provider"
	"github.com/soulbahprojet/solutions224-backend/internal/repository"
)

type mockEscrowStore struct {
	mock.Mock
}

func (m *mockEscrowStore) CreateFromPayment(ctx context.Context, capture repository.PaymentCapture) (*models.Escrow, bool, error) {
	args := m.Called(ctx, capture)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Escrow), args.Bool(1), args.Error(2)
}

// Release имитирует транзакционную семантику хранилища:
// ошибка confirm отменяет переход статуса.
func (m *mockEscrowStore) Release(ctx context.Context, escrowID uuid.UUID, confirm func(*models.EscrowWithOrder) error) (*models.Escrow, error) {
	args := m.Called(ctx, escrowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	locked := args.Get(0).(*models.EscrowWithOrder)
	if err := confirm(locked); err != nil {
		return nil, err
	}
	released := locked.Escrow
	released.Status = models.EscrowStatusReleased
	return &released, args.Error(1)
}

func (m *mockEscrowStore) Refund(ctx context.Context, escrowID uuid.UUID, reason string, confirm func(*models.EscrowWithOrder) error) (*models.Escrow, error) {
	args := m.Called(ctx, escrowID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	locked := args.Get(0).(*models.EscrowWithOrder)
	if err := confirm(locked); err != nil {
		return nil, err
	}
	refunded := locked.Escrow
	refunded.Status = models.EscrowStatusRefunded
	refunded.Resolution = &reason
	return &refunded, args.Error(1)
}

func (m *mockEscrowStore) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowWithOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowWithOrder), args.Error(1)
}

func (m *mockEscrowStore) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.EscrowWithOrder, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.EscrowWithOrder), args.Error(1)
}

func (m *mockEscrowStore) ListAll(ctx context.Context, limit, offset int) ([]models.EscrowWithOrder, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.EscrowWithOrder), args.Error(1)
}

func (m *mockEscrowStore) ListExpiredHeld(ctx context.Context, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type mockMover struct {
	mock.Mock
}

func (m *mockMover) Transfer(ctx context.Context, req provider.TransferRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockMover) Refund(ctx context.Context, req provider.RefundRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func heldEscrow(sellerID uuid.UUID, buyerID *uuid.UUID) *models.EscrowWithOrder {
	chargeID := "ch_123"
	return &models.EscrowWithOrder{
		Escrow: models.Escrow{
			ID:               uuid.New(),
			OrderID:          uuid.New(),
			ChargeID:         &chargeID,
			TotalAmount:      150000,
			SellerAmount:     120000,
			CommissionAmount: 30000,
			CommissionRate:   0.20,
			Currency:         models.DefaultCurrency,
			Status:           models.EscrowStatusHeld,
		},
		PINumber:    "PI-ABCDEF2345",
		SellerID:    sellerID,
		BuyerID:     buyerID,
		OrderStatus: models.OrderStatusPaid,
	}
}

func paymentWebhook(orderID string) *provider.WebhookEvent {
	return &provider.WebhookEvent{
		ID:   "evt_1",
		Type: provider.EventPaymentLinkSucceeded,
		Data: provider.WebhookEventData{
			Object: provider.WebhookObject{
				ID:            "pl_1",
				PaymentIntent: "pi_1",
				Charge:        "ch_1",
				Customer:      "cus_1",
				Amount:        150000,
				Currency:      "GNF",
				Metadata:      map[string]string{MetadataOrderIDKey: orderID},
			},
		},
	}
}

func TestEscrowService_ProcessWebhook_CreatesEscrow(t *testing.T) {
	store := new(mockEscrowStore)
	svc := NewEscrowService(store, new(mockMover), 0.20, 7)
	ctx := context.Background()
	orderID := uuid.New()

	escrow := &models.Escrow{
		ID:               uuid.New(),
		OrderID:          orderID,
		TotalAmount:      150000,
		SellerAmount:     120000,
		CommissionAmount: 30000,
		Status:           models.EscrowStatusHeld,
	}

	store.On("CreateFromPayment", ctx, mock.MatchedBy(func(c repository.PaymentCapture) bool {
		return c.OrderID == orderID && c.CommissionRate == 0.20 && c.AutoReleaseDays == 7 &&
			c.PaymentIntentID != nil && *c.PaymentIntentID == "pi_1"
	})).Return(escrow, true, nil)
	store.On("GetByID", ctx, escrow.ID).Return(nil, repository.ErrEscrowNotFound)

	err := svc.ProcessWebhook(ctx, paymentWebhook(orderID.String()))

	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestEscrowService_ProcessWebhook_DuplicateDelivery(t *testing.T) {
	store := new(mockEscrowStore)
	svc := NewEscrowService(store, new(mockMover), 0.20, 7)
	ctx := context.Background()
	orderID := uuid.New()

	existing := &models.Escrow{ID: uuid.New(), OrderID: orderID, Status: models.EscrowStatusHeld}
	store.On("CreateFromPayment", ctx, mock.Anything).Return(existing, false, nil)

	err := svc.ProcessWebhook(ctx, paymentWebhook(orderID.String()))

	assert.NoError(t, err)
	store.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestEscrowService_ProcessWebhook_MissingOrderReference(t *testing.T) {
	store := new(mockEscrowStore)
	svc := NewEscrowService(store, new(mockMover), 0.20, 7)

	event := paymentWebhook(uuid.NewString())
	delete(event.Data.Object.Metadata, MetadataOrderIDKey)

	err := svc.ProcessWebhook(context.Background(), event)

	assert.ErrorIs(t, err, apperror.ErrMissingReference)
	store.AssertNotCalled(t, "CreateFromPayment", mock.Anything, mock.Anything)
}

func TestEscrowService_ProcessWebhook_InvalidOrderID(t *testing.T) {
	store := new(mockEscrowStore)
	svc := NewEscrowService(store, new(mockMover), 0.20, 7)

	err := svc.ProcessWebhook(context.Background(), paymentWebhook("not-a-uuid"))

	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperror.HTTPStatusOf(err))
}

func TestEscrowService_ProcessWebhook_OrderNotFound(t *testing.T) {
	store := new(mockEscrowStore)
	svc := NewEscrowService(store, new(mockMover), 0.20, 7)
	ctx := context.Background()

	store.On("CreateFromPayment", ctx, mock.Anything).Return(nil, false, repository.ErrOrderNotFound)

	err := svc.ProcessWebhook(ctx, paymentWebhook(uuid.NewString()))

	assert.ErrorIs(t, err, apperror.ErrOrderNotFound)
}

func TestEscrowService_ProcessWebhook_IgnoredTypes(t *testing.T) {
	store := new(mockEscrowStore)
	svc := NewEscrowService(store, new(mockMover), 0.20, 7)

	for _, typ := range []string{provider.EventInvoiceSucceeded, "customer.created"} {
		err := svc.ProcessWebhook(context.Background(), &provider.WebhookEvent{ID: "evt", Type: typ})
		assert.NoError(t, err)
	}
	store.AssertNotCalled(t, "CreateFromPayment", mock.Anything, mock.Anything)
}

func TestEscrowService_Release_BySeller(t *testing.T) {
	store := new(mockEscrowStore)
	mover := new(mockMover)
	svc := NewEscrowService(store, mover, 0.20, 7)
	ctx := context.Background()

	sellerID := uuid.New()
	escrow := heldEscrow(sellerID, nil)

	store.On("GetByID", ctx, escrow.ID).Return(escrow, nil)
	store.On("Release", ctx, escrow.ID).Return(escrow, nil)
	mover.On("Transfer", ctx, mock.MatchedBy(func(req provider.TransferRequest) bool {
		return req.Amount == escrow.SellerAmount && req.Destination == sellerID.String()
	})).Return(nil)

	released, err := svc.ReleaseEscrow(ctx, escrow.ID, sellerID, models.RoleVendor)

	assert.NoError(t, err)
	assert.Equal(t, models.EscrowStatusReleased, released.Status)
	mover.AssertExpectations(t)
}

func TestEscrowService_Release_ForbiddenForStranger(t *testing.T) {
	store := new(mockEscrowStore)
	mover := new(mockMover)
	svc := NewEscrowService(store, mover, 0.20, 7)
	ctx := context.Background()

	escrow := heldEscrow(uuid.New(), nil)
	store.On("GetByID", ctx, escrow.ID).Return(escrow, nil)

	_, err := svc.ReleaseEscrow(ctx, escrow.ID, uuid.New(), models.RoleClient)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	mover.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestEscrowService_Release_AdminAllowed(t *testing.T) {
	store := new(mockEscrowStore)
	mover := new(mockMover)
	svc := NewEscrowService(store, mover, 0.20, 7)
	ctx := context.Background()

	escrow := heldEscrow(uuid.New(), nil)
	store.On("GetByID", ctx, escrow.ID).Return(escrow, nil)
	store.On("Release", ctx, escrow.ID).Return(escrow, nil)
	mover.On("Transfer", ctx, mock.Anything).Return(nil)

	_, err := svc.ReleaseEscrow(ctx, escrow.ID, uuid.New(), models.RoleAdmin)

	assert.NoError(t, err)
}

func TestEscrowService_Release_AlreadyProcessed(t *testing.T) {
	store := new(mockEscrowStore)
	mover := new(mockMover)
	svc := NewEscrowService(store, mover, 0.20, 7)
	ctx := context.Background()

	sellerID := uuid.New()
	escrow := heldEscrow(sellerID, nil)
	store.On("GetByID", ctx, escrow.ID).Return(escrow, nil)
	store.On("Release", ctx, escrow.ID).Return(nil, repository.ErrEscrowProcessed)

	_, err := svc.ReleaseEscrow(ctx, escrow.ID, sellerID, models.RoleVendor)

	assert.ErrorIs(t, err, apperror.ErrAlreadyProcessed)
	assert.True(t, apperror.IsConflict(err))
	assert.Equal(t, http.StatusConflict, apperror.HTTPStatusOf(err))
}

func TestEscrowService_Release_MoverFailureKeepsEscrowHeld(t *testing.T) {
	store := new(mockEscrowStore)
	mover := new(mockMover)
	svc := NewEscrowService(store, mover, 0.20, 7)
	ctx := context.Background()

	sellerID := uuid.New()
	escrow := heldEscrow(sellerID, nil)
	store.On("GetByID", ctx, escrow.ID).Return(escrow, nil)
	store.On("Release", ctx, escrow.ID).Return(escrow, nil)
	mover.On("Transfer", ctx, mock.Anything).Return(errors.New("gateway timeout"))

	_, err := svc.ReleaseEscrow(ctx, escrow.ID, sellerID, models.RoleVendor)

	assert.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, apperror.HTTPStatusOf(err))
	assert.Equal(t, models.EscrowStatusHeld, escrow.Status)
}

func TestEscrowService_Refund_ByBuyer(t *testing.T) {
	store := new(mockEscrowStore)
	mover := new(mockMover)
	svc := NewEscrowService(store, mover, 0.20, 7)
	ctx := context.Background()

	buyerID := uuid.New()
	escrow := heldEscrow(uuid.New(), &buyerID)

	store.On("GetByID", ctx, escrow.ID).Return(escrow, nil)
	store.On("Refund", ctx, escrow.ID, "товар не доставлен").Return(escrow, nil)
	mover.On("Refund", ctx, mock.MatchedBy(func(req provider.RefundRequest) bool {
		return req.Amount == escrow.TotalAmount && req.ChargeID == "ch_123"
	})).Return(nil)

	refunded, err := svc.RefundEscrow(ctx, escrow.ID, "товар не доставлен", buyerID, models.RoleClient)

	assert.NoError(t, err)
	assert.Equal(t, models.EscrowStatusRefunded, refunded.Status)
	require.NotNil(t, refunded.Resolution)
	assert.Equal(t, "товар не доставлен", *refunded.Resolution)
	assert.Nil(t, refunded.ReleasedAt)
	mover.AssertExpectations(t)
}

func TestEscrowService_Refund_ForbiddenForSeller(t *testing.T) {
	store := new(mockEscrowStore)
	svc := NewEscrowService(store, new(mockMover), 0.20, 7)
	ctx := context.Background()

	sellerID := uuid.New()
	buyerID := uuid.New()
	escrow := heldEscrow(sellerID, &buyerID)
	store.On("GetByID", ctx, escrow.ID).Return(escrow, nil)

	_, err := svc.RefundEscrow(ctx, escrow.ID, "передумал", sellerID, models.RoleVendor)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestEscrowService_Refund_EmptyReason(t *testing.T) {
	store := new(mockEscrowStore)
	svc := NewEscrowService(store, new(mockMover), 0.20, 7)

	_, err := svc.RefundEscrow(context.Background(), uuid.New(), "   ", uuid.New(), models.RoleAdmin)

	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperror.HTTPStatusOf(err))
	store.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything)
}

func TestEscrowService_GetEscrow_VisibleToParticipantsOnly(t *testing.T) {
	store := new(mockEscrowStore)
	svc := NewEscrowService(store, new(mockMover), 0.20, 7)
	ctx := context.Background()

	sellerID := uuid.New()
	buyerID := uuid.New()
	escrow := heldEscrow(sellerID, &buyerID)
	store.On("GetByID", ctx, escrow.ID).Return(escrow, nil)

	_, err := svc.GetEscrow(ctx, escrow.ID, sellerID, models.RoleVendor)
	assert.NoError(t, err)

	_, err = svc.GetEscrow(ctx, escrow.ID, buyerID, models.RoleClient)
	assert.NoError(t, err)

	_, err = svc.GetEscrow(ctx, escrow.ID, uuid.New(), models.RoleClient)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestEscrowService_ListAll_AdminOnly(t *testing.T) {
	store := new(mockEscrowStore)
	svc := NewEscrowService(store, new(mockMover), 0.20, 7)
	ctx := context.Background()

	store.On("ListAll", ctx, 20, 0).Return([]models.EscrowWithOrder{}, nil)

	_, err := svc.ListAllEscrows(ctx, models.RoleVendor, 20, 0)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.ListAllEscrows(ctx, models.RoleAdmin, 20, 0)
	assert.NoError(t, err)
}

func TestEscrowService_ReleaseExpired_ContinuesAfterConflict(t *testing.T) {
	store := new(mockEscrowStore)
	mover := new(mockMover)
	svc := NewEscrowService(store, mover, 0.20, 7)
	ctx := context.Background()

	first := heldEscrow(uuid.New(), nil)
	second := heldEscrow(uuid.New(), nil)

	store.On("ListExpiredHeld", ctx, 100).Return([]uuid.UUID{first.ID, second.ID}, nil)
	// Первый escrow уже обработан конкурентным запросом.
	store.On("Release", ctx, first.ID).Return(nil, repository.ErrEscrowProcessed)
	store.On("Release", ctx, second.ID).Return(second, nil)
	store.On("GetByID", ctx, second.ID).Return(second, nil)
	mover.On("Transfer", ctx, mock.Anything).Return(nil)

	err := svc.ReleaseExpired(ctx)

	assert.NoError(t, err)
	store.AssertExpectations(t)
}
