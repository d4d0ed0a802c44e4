// Package testutil opens in-memory SQLite databases carrying the directory
// schema and seeds rows with raw SQL.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE accounts (
		id INTEGER PRIMARY KEY,
		org_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE members (
		id INTEGER PRIMARY KEY,
		org_id INTEGER NOT NULL,
		account_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		grade TEXT NOT NULL DEFAULT '',
		school TEXT NOT NULL DEFAULT '',
		birth_year INTEGER,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE enrollments (
		id INTEGER PRIMARY KEY,
		org_id INTEGER NOT NULL,
		account_id INTEGER NOT NULL,
		member_id INTEGER,
		service_name TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE ledger_entries (
		id INTEGER PRIMARY KEY,
		org_id INTEGER NOT NULL,
		account_id INTEGER NOT NULL,
		number TEXT NOT NULL,
		status TEXT NOT NULL,
		balance_due TEXT NOT NULL,
		currency TEXT NOT NULL,
		due_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_ledger_entries_org_number ON ledger_entries (org_id, number)`,
	// Reporting view: one row per (member, entry) pair. Summing over it
	// multiplies balances by the member count.
	`CREATE VIEW account_ledger_view AS
		SELECT a.id AS account_id, a.org_id, m.id AS member_id, l.id AS entry_id,
		       l.status AS entry_status, l.balance_due
		FROM accounts a
		LEFT JOIN members m ON m.account_id = a.id
		LEFT JOIN ledger_entries l ON l.account_id = a.id`,
}

// OpenDB returns an isolated in-memory database with the directory schema.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

// MustNode returns a snowflake node for test id generation.
func MustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

// Seeder inserts rows for one organization.
type Seeder struct {
	t     *testing.T
	db    *gorm.DB
	node  *snowflake.Node
	OrgID snowflake.ID
	now   time.Time
}

func NewSeeder(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID) *Seeder {
	return &Seeder{
		t:     t,
		db:    db,
		node:  node,
		OrgID: orgID,
		now:   time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// AccountOpts carries optional account fields.
type AccountOpts struct {
	Status string
	Email  string
	Phone  string
}

// Account inserts an account; each call is one second newer than the last.
func (s *Seeder) Account(name string, opts AccountOpts) snowflake.ID {
	s.t.Helper()
	if opts.Status == "" {
		opts.Status = "active"
	}
	id := s.node.Generate()
	s.now = s.now.Add(time.Second)
	require.NoError(s.t, s.db.Exec(
		`INSERT INTO accounts (id, org_id, name, status, email, phone, notes, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, '', '{}', ?, ?)`,
		id, s.OrgID, name, opts.Status, opts.Email, opts.Phone, s.now, s.now,
	).Error)
	return id
}

func (s *Seeder) Member(accountID snowflake.ID, name string) snowflake.ID {
	s.t.Helper()
	id := s.node.Generate()
	require.NoError(s.t, s.db.Exec(
		`INSERT INTO members (id, org_id, account_id, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, s.OrgID, accountID, name, s.now, s.now,
	).Error)
	return id
}

func (s *Seeder) Entry(accountID snowflake.ID, status string, balanceDue string) snowflake.ID {
	s.t.Helper()
	id := s.node.Generate()
	require.NoError(s.t, s.db.Exec(
		`INSERT INTO ledger_entries (id, org_id, account_id, number, status, balance_due, currency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'USD', ?, ?)`,
		id, s.OrgID, accountID, "INV-"+id.String(), status, decimal.RequireFromString(balanceDue), s.now, s.now,
	).Error)
	return id
}

func (s *Seeder) Enrollment(accountID snowflake.ID, serviceName string) snowflake.ID {
	s.t.Helper()
	id := s.node.Generate()
	require.NoError(s.t, s.db.Exec(
		`INSERT INTO enrollments (id, org_id, account_id, service_name, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'active', ?, ?)`,
		id, s.OrgID, accountID, serviceName, s.now, s.now,
	).Error)
	return id
}
