package infrastructure

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gatebit/p2ptrader/internal/config"
)

// InitDB opens the Postgres connection for the postgres snapshot store.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{}
	if cfg.Server.Mode == "debug" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}
	return gorm.Open(postgres.Open(cfg.Database.DSN()), gormConfig)
}
