package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/soulbahprojet/solutions224-backend/internal/models"
	"github.com/soulbahprojet/solutions224-backend/internal/pkg/apperror"
	"github.com/soulbahprojet/solutions224-backend/internal/repository"
)

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, order *models.DraftOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DraftOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DraftOrder), args.Error(1)
}

func (m *mockOrderRepo) GetByPINumber(ctx context.Context, piNumber string) (*models.DraftOrder, error) {
	args := m.Called(ctx, piNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DraftOrder), args.Error(1)
}

func (m *mockOrderRepo) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.DraftOrder, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.DraftOrder), args.Error(1)
}

func TestOrderService_CreateOrder(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewOrderService(repo, models.DefaultCurrency)
	ctx := context.Background()
	sellerID := uuid.New()

	repo.On("Create", ctx, mock.AnythingOfType("*models.DraftOrder")).Return(nil)

	order, err := svc.CreateOrder(ctx, CreateOrderInput{
		SellerID:    sellerID,
		TotalAmount: 150000,
	})

	require.NoError(t, err)
	assert.Equal(t, sellerID, order.SellerID)
	assert.Equal(t, int64(150000), order.TotalAmount)
	assert.Equal(t, models.DefaultCurrency, order.Currency)
	assert.True(t, strings.HasPrefix(order.PINumber, "PI-"))
	assert.Len(t, order.PINumber, 13)
}

func TestOrderService_CreateOrder_InvalidAmount(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewOrderService(repo, models.DefaultCurrency)

	for _, amount := range []int64{0, -100} {
		_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
			SellerID:    uuid.New(),
			TotalAmount: amount,
		})
		assert.Error(t, err)
	}
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_InvalidCurrency(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewOrderService(repo, models.DefaultCurrency)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SellerID:    uuid.New(),
		TotalAmount: 1000,
		Currency:    "gnf",
	})

	assert.Error(t, err)
}

func TestOrderService_GetOrder_ParticipantsAndAdmin(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewOrderService(repo, models.DefaultCurrency)
	ctx := context.Background()

	sellerID := uuid.New()
	buyerID := uuid.New()
	order := &models.DraftOrder{
		ID:       uuid.New(),
		SellerID: sellerID,
		BuyerID:  &buyerID,
		Status:   models.OrderStatusPaid,
	}
	repo.On("GetByID", ctx, order.ID).Return(order, nil)

	_, err := svc.GetOrder(ctx, order.ID, sellerID, models.RoleVendor)
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, order.ID, buyerID, models.RoleClient)
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, order.ID, uuid.New(), models.RoleAdmin)
	assert.NoError(t, err)

	_, err = svc.GetOrder(ctx, order.ID, uuid.New(), models.RoleClient)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestOrderService_GetOrder_NotFound(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewOrderService(repo, models.DefaultCurrency)
	ctx := context.Background()
	orderID := uuid.New()

	repo.On("GetByID", ctx, orderID).Return(nil, repository.ErrOrderNotFound)

	_, err := svc.GetOrder(ctx, orderID, uuid.New(), models.RoleAdmin)

	assert.ErrorIs(t, err, apperror.ErrOrderNotFound)
}

func TestOrderService_GetOrderByPINumber_NormalizesInput(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewOrderService(repo, models.DefaultCurrency)
	ctx := context.Background()

	order := &models.DraftOrder{ID: uuid.New(), PINumber: "PI-ABCDEF2345"}
	repo.On("GetByPINumber", ctx, "PI-ABCDEF2345").Return(order, nil)

	found, err := svc.GetOrderByPINumber(ctx, "  pi-abcdef2345 ")

	assert.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
}

func TestOrderService_ListMyOrders_ClampsLimit(t *testing.T) {
	repo := new(mockOrderRepo)
	svc := NewOrderService(repo, models.DefaultCurrency)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("ListForUser", ctx, userID, 20, 0).Return([]models.DraftOrder{}, nil)

	_, err := svc.ListMyOrders(ctx, userID, 500, -3)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
