package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/gatebit/p2ptrader/internal/pkg/response"
	"github.com/gatebit/p2ptrader/internal/service"
)

// TransactionHandler exposes cached payout state and the trading workflow.
type TransactionHandler struct {
	cache  *service.TransactionCache
	trader *service.TraderService
}

func NewTransactionHandler(cache *service.TransactionCache, trader *service.TraderService) *TransactionHandler {
	return &TransactionHandler{cache: cache, trader: trader}
}

// Get handles GET /api/v1/transactions/:id
func (h *TransactionHandler) Get(c *gin.Context) {
	id := c.Param("id")
	record, err := h.cache.GetTransaction(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if record == nil {
		response.NotFound(c, "transaction not found: "+id)
		return
	}
	response.Success(c, record)
}

// Process handles POST /api/v1/transactions/:id/process
func (h *TransactionHandler) Process(c *gin.Context) {
	result, err := h.trader.ProcessPayout(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, result)
}

// Invalidate handles DELETE /api/v1/transactions/:id/cache
func (h *TransactionHandler) Invalidate(c *gin.Context) {
	h.cache.RemoveFromCache(c.Param("id"))
	response.Success(c, gin.H{"invalidated": c.Param("id")})
}

// ClearCache handles POST /api/v1/transactions/cache/clear
func (h *TransactionHandler) ClearCache(c *gin.Context) {
	h.cache.ClearCache()
	response.Success(c, gin.H{"cleared": true})
}
