package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soulbahprojet/solutions224-backend/internal/http/handlers/common"
	"github.com/soulbahprojet/solutions224-backend/internal/service"
)

// OrderHandler предоставляет HTTP слой для draft заказов.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler создаёт хэндлер.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Create обрабатывает POST /api/orders.
// Продавец создаёт draft заказ и получает PI номер для покупателя.
func (h *OrderHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req struct {
		TotalAmount int64  `json:"total_amount" binding:"required"`
		Currency    string `json:"currency"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		SellerID:    userID,
		TotalAmount: req.TotalAmount,
		Currency:    req.Currency,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// Get обрабатывает GET /api/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	role, _ := common.CurrentUserRole(c)

	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID, userID, role)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// GetByPINumber обрабатывает GET /api/orders/pi/:number.
// Покупатель находит заказ по номеру, полученному от продавца.
func (h *OrderHandler) GetByPINumber(c *gin.Context) {
	if _, err := common.CurrentUserID(c); err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	number := c.Param("number")
	if number == "" {
		common.RespondBadRequest(c, "номер заказа обязателен")
		return
	}

	order, err := h.orders.GetOrderByPINumber(c.Request.Context(), number)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ListMy обрабатывает GET /api/orders/my.
func (h *OrderHandler) ListMy(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.PageParams(c)

	orders, err := h.orders.ListMyOrders(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
