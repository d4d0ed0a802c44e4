package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/tutorly/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect picks the gorm driver for cfg.DBType. Server-side statement
// timeouts are set to the directory query timeout so a slow store call
// surfaces as a timeout rather than holding a pooled connection.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.DBType)) {
	case "postgres", "postgresql":
		return postgres.Open(postgresDSN(cfg)), nil
	case "mysql":
		return mysql.Open(mysqlDSN(cfg)), nil
	case "sqlite":
		name := cfg.DBName
		if name == "" {
			name = "tutorly.db"
		}
		return sqlite.Open(name + "?_foreign_keys=on"), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.DBType)
	}
}

func postgresDSN(cfg config.Config) string {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC application_name=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode, appName(cfg))
	if timeout := statementTimeout(cfg); timeout > 0 {
		dsn += fmt.Sprintf(" statement_timeout=%d", timeout.Milliseconds())
	}
	return dsn
}

func mysqlDSN(cfg config.Config) string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if timeout := statementTimeout(cfg); timeout > 0 {
		dsn += "&readTimeout=" + timeout.String()
	}
	return dsn
}

// statementTimeout allows the longer of the query and bulk timeouts; the
// per-call context deadline is still the tighter bound.
func statementTimeout(cfg config.Config) time.Duration {
	return max(cfg.Directory.QueryTimeout, cfg.Directory.BulkTimeout)
}

func appName(cfg config.Config) string {
	if name := strings.TrimSpace(cfg.AppName); name != "" {
		return name
	}
	return "tutorly"
}
