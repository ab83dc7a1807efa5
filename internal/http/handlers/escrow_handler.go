package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soulbahprojet/solutions224-backend/internal/http/handlers/common"
	"github.com/soulbahprojet/solutions224-backend/internal/service"
)

// EscrowHandler предоставляет HTTP слой для операций над escrow.
type EscrowHandler struct {
	escrows *service.EscrowService
}

// NewEscrowHandler создаёт хэндлер.
func NewEscrowHandler(escrows *service.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrows: escrows}
}

// Release обрабатывает POST /api/escrows/:id/release.
func (h *EscrowHandler) Release(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	role, _ := common.CurrentUserRole(c)

	escrowID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.ReleaseEscrow(c.Request.Context(), escrowID, userID, role)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"escrow": escrow})
}

// Refund обрабатывает POST /api/escrows/:id/refund.
func (h *EscrowHandler) Refund(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	role, _ := common.CurrentUserRole(c)

	escrowID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	escrow, err := h.escrows.RefundEscrow(c.Request.Context(), escrowID, req.Reason, userID, role)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"escrow": escrow})
}

// Get обрабатывает GET /api/escrows/:id.
func (h *EscrowHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	role, _ := common.CurrentUserRole(c)

	escrowID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.GetEscrow(c.Request.Context(), escrowID, userID, role)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"escrow": escrow})
}

// ListMy обрабатывает GET /api/escrows.
// Пользователь видит только escrow своих заказов.
func (h *EscrowHandler) ListMy(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.PageParams(c)

	escrows, err := h.escrows.ListMyEscrows(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"escrows": escrows})
}

// ListAll обрабатывает GET /api/admin/escrows.
func (h *EscrowHandler) ListAll(c *gin.Context) {
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.PageParams(c)

	escrows, err := h.escrows.ListAllEscrows(c.Request.Context(), role, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"escrows": escrows})
}
