package db

import (
	"fmt"

	"github.com/smallbiznis/gstinvoice/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect opens the configured backend. Only backends that support
// INSERT .. ON CONFLICT .. RETURNING are accepted, because invoice numbers
// are issued with it.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch cfg.DBType {
	case "postgres":
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
			cfg.DBPort,
			cfg.DBSSLMode,
		)), nil
	case "sqlite":
		return sqlite.Open(cfg.DBName + ".db"), nil
	case "mysql":
		return nil, fmt.Errorf("unsupported %s type: invoice numbering needs ON CONFLICT .. RETURNING, use postgres", cfg.DBType)
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.DBType)
	}
}
