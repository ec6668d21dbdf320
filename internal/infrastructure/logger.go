package infrastructure

import (
	"go.uber.org/zap"

	"github.com/gatebit/p2ptrader/internal/config"
)

// InitLogger builds the process logger: human-readable in debug mode,
// JSON otherwise.
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.Mode == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
