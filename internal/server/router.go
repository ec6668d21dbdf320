package server

import (
	"github.com/gin-gonic/gin"

	"github.com/gatebit/p2ptrader/internal/config"
	"github.com/gatebit/p2ptrader/internal/handler"
	"github.com/gatebit/p2ptrader/internal/middleware"
)

// NewRouter assembles the admin API. Everything under /api/v1 requires the
// admin bearer token; /health stays open for probes.
func NewRouter(cfg *config.Config, accounts *handler.AccountHandler, transactions *handler.TransactionHandler) *gin.Engine {
	gin.SetMode(ginMode(cfg.Server.Mode))
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.AdminAuth(cfg.Admin.Token))
	{
		api.GET("/stats", accounts.Stats)

		api.GET("/accounts/gate", accounts.ListGateAccounts)
		api.POST("/accounts/gate", accounts.CreateGateAccount)
		api.PUT("/accounts/gate/:id/balance", accounts.UpdateGateBalance)

		api.GET("/accounts/bybit", accounts.ListBybitAccounts)
		api.POST("/accounts/bybit", accounts.CreateBybitAccount)
		api.POST("/accounts/bybit/:id/release", accounts.ReleaseAdSlot)

		api.GET("/transactions/:id", transactions.Get)
		api.POST("/transactions/:id/process", transactions.Process)
		api.DELETE("/transactions/:id/cache", transactions.Invalidate)
		api.POST("/transactions/cache/clear", transactions.ClearCache)
	}

	return r
}

func ginMode(mode string) string {
	if mode == "debug" {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}
