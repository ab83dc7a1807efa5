package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soulbahprojet/solutions224-backend/internal/http/handlers/common"
	"github.com/soulbahprojet/solutions224-backend/internal/repository"
)

// LedgerHandler отдаёт историю движений средств и платёжные события.
type LedgerHandler struct {
	ledger *repository.LedgerRepository
}

// NewLedgerHandler создаёт хэндлер.
func NewLedgerHandler(ledger *repository.LedgerRepository) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// ListMy обрабатывает GET /api/ledger.
// Видны только записи по заказам, где пользователь — участник.
func (h *LedgerHandler) ListMy(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.PageParams(c)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := h.ledger.ListForUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ListMyEvents обрабатывает GET /api/events.
func (h *LedgerHandler) ListMyEvents(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.PageParams(c)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	events, err := h.ledger.ListEventsForUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}
