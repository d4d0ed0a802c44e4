package db

import (
	"testing"
	"time"

	"github.com/smallbiznis/tutorly/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSNCarriesStatementTimeout(t *testing.T) {
	cfg := config.Config{
		DBHost: "db", DBPort: "5432", DBUser: "app", DBName: "tutorly", DBSSLMode: "disable",
		Directory: config.DirectoryConfig{QueryTimeout: 2 * time.Second, BulkTimeout: 5 * time.Second},
	}
	dsn := postgresDSN(cfg)
	assert.Contains(t, dsn, "statement_timeout=5000")
	assert.Contains(t, dsn, "application_name=tutorly")
}

func TestMySQLDSNWithoutTimeout(t *testing.T) {
	dsn := mysqlDSN(config.Config{DBUser: "app", DBHost: "db", DBPort: "3306", DBName: "tutorly"})
	assert.NotContains(t, dsn, "readTimeout")
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(config.Config{DBType: "oracle"})
	require.Error(t, err)

	d, err := Dialect(config.Config{DBType: "Postgres"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}
