package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"

	"github.com/soulbahprojet/solutions224-backend/internal/models"
	"github.com/soulbahprojet/solutions224-backend/internal/pkg/apperror"
	"github.com/soulbahprojet/solutions224-backend/internal/repository"
	"github.com/soulbahprojet/solutions224-backend/internal/validation"
)

// OrderRepository описывает зависимости OrderService от слоя хранилища.
type OrderRepository interface {
	Create(ctx context.Context, order *models.DraftOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DraftOrder, error)
	GetByPINumber(ctx context.Context, piNumber string) (*models.DraftOrder, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.DraftOrder, error)
}

// OrderService содержит бизнес-логику draft orders.
type OrderService struct {
	repo            OrderRepository
	defaultCurrency string
	newPINumber     func() string
}

// CreateOrderInput содержит данные продажи.
type CreateOrderInput struct {
	SellerID    uuid.UUID
	TotalAmount int64
	Currency    string
}

// NewOrderService создаёт сервис заказов.
func NewOrderService(repo OrderRepository, defaultCurrency string) *OrderService {
	// Алфавит без похожих символов: PI номер диктуется покупателю голосом.
	gen, err := nanoid.CustomASCII("23456789ABCDEFGHJKLMNPQRSTUVWXYZ", 10)
	if err != nil {
		panic(fmt.Sprintf("order service: nanoid init: %v", err))
	}
	return &OrderService{
		repo:            repo,
		defaultCurrency: defaultCurrency,
		newPINumber:     func() string { return "PI-" + gen() },
	}
}

// CreateOrder создаёт draft order с человекочитаемым PI номером.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.DraftOrder, error) {
	if err := validation.ValidateAmount(in.TotalAmount); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	currency := in.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}
	if err := validation.ValidateCurrency(currency); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	order := &models.DraftOrder{
		PINumber:    s.newPINumber(),
		SellerID:    in.SellerID,
		TotalAmount: in.TotalAmount,
		Currency:    currency,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrder возвращает заказ, доступный только его участникам или админу.
func (s *OrderService) GetOrder(ctx context.Context, id, callerID uuid.UUID, callerRole string) (*models.DraftOrder, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, err
	}

	if !orderParticipant(order, callerID) && callerRole != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}

	return order, nil
}

// GetOrderByPINumber возвращает заказ по его человекочитаемому номеру.
// Доступен любому авторизованному пользователю: покупатель находит заказ
// по номеру, продиктованному продавцом, до момента оплаты.
func (s *OrderService) GetOrderByPINumber(ctx context.Context, piNumber string) (*models.DraftOrder, error) {
	order, err := s.repo.GetByPINumber(ctx, strings.ToUpper(strings.TrimSpace(piNumber)))
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// ListMyOrders возвращает заказы пользователя.
func (s *OrderService) ListMyOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.DraftOrder, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListForUser(ctx, userID, limit, offset)
}

// orderParticipant сообщает, участвует ли пользователь в заказе.
func orderParticipant(order *models.DraftOrder, userID uuid.UUID) bool {
	if order.SellerID == userID {
		return true
	}
	return order.BuyerID != nil && *order.BuyerID == userID
}
