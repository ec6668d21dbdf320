package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/gatebit/p2ptrader/internal/pkg/apperrors"
	"github.com/gatebit/p2ptrader/internal/pkg/response"
	"github.com/gatebit/p2ptrader/internal/service"
)

// AccountHandler exposes the account pool over the admin API.
type AccountHandler struct {
	pool *service.AccountPool
}

func NewAccountHandler(pool *service.AccountPool) *AccountHandler {
	return &AccountHandler{pool: pool}
}

// CreateGateAccountRequest is the add-gate-account payload.
type CreateGateAccountRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateBybitAccountRequest is the add-bybit-account payload.
type CreateBybitAccountRequest struct {
	Name      string `json:"name" binding:"required"`
	APIKey    string `json:"api_key" binding:"required"`
	APISecret string `json:"api_secret" binding:"required"`
}

// UpdateBalanceRequest carries the new balance as a decimal string.
type UpdateBalanceRequest struct {
	Balance string `json:"balance" binding:"required"`
}

// ListGateAccounts handles GET /api/v1/accounts/gate
func (h *AccountHandler) ListGateAccounts(c *gin.Context) {
	response.Success(c, h.pool.ListActiveGateAccounts())
}

// CreateGateAccount handles POST /api/v1/accounts/gate
func (h *AccountHandler) CreateGateAccount(c *gin.Context) {
	var req CreateGateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	id, err := h.pool.AddGateAccount(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writePoolError(c, err)
		return
	}
	response.Created(c, gin.H{"id": id})
}

// ListBybitAccounts handles GET /api/v1/accounts/bybit
func (h *AccountHandler) ListBybitAccounts(c *gin.Context) {
	response.Success(c, h.pool.ListBybitAccounts())
}

// CreateBybitAccount handles POST /api/v1/accounts/bybit
func (h *AccountHandler) CreateBybitAccount(c *gin.Context) {
	var req CreateBybitAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	id, err := h.pool.AddBybitAccount(c.Request.Context(), req.Name, req.APIKey, req.APISecret)
	if err != nil {
		writePoolError(c, err)
		return
	}
	response.Created(c, gin.H{"id": id})
}

// UpdateGateBalance handles PUT /api/v1/accounts/gate/:id/balance
func (h *AccountHandler) UpdateGateBalance(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}

	var req UpdateBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	balance, err := decimal.NewFromString(req.Balance)
	if err != nil {
		response.BadRequest(c, "invalid balance: "+req.Balance)
		return
	}

	if err := h.pool.UpdateGateBalance(c.Request.Context(), id, balance); err != nil {
		writePoolError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "balance": balance.String()})
}

// ReleaseAdSlot handles POST /api/v1/accounts/bybit/:id/release
func (h *AccountHandler) ReleaseAdSlot(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}
	if err := h.pool.ReleaseBybitAdSlot(c.Request.Context(), id); err != nil {
		writePoolError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

// Stats handles GET /api/v1/stats
func (h *AccountHandler) Stats(c *gin.Context) {
	response.Success(c, h.pool.GetStats())
}

func writePoolError(c *gin.Context, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindDuplicateAccount:
		response.Conflict(c, err.Error())
	case apperrors.KindNotFound:
		response.NotFound(c, err.Error())
	case apperrors.KindValidation:
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err.Error())
	}
}
