package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountrepo "github.com/smallbiznis/tutorly/internal/account/repository"
	"github.com/smallbiznis/tutorly/internal/clock"
	ledgerdomain "github.com/smallbiznis/tutorly/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/tutorly/internal/ledger/repository"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
	"github.com/smallbiznis/tutorly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc  ledgerdomain.Service
	db   *gorm.DB
	seed *testutil.Seeder
	ctx  context.Context
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.MustNode(t)
	orgID := node.Generate()

	svc := NewService(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.NewFakeClock(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)),
		Repo:        ledgerrepo.Provide(),
		AccountRepo: accountrepo.Provide(),
	})

	return fixture{
		svc:  svc,
		db:   db,
		seed: testutil.NewSeeder(t, db, node, orgID),
		ctx:  orgcontext.WithOrgID(context.Background(), orgID.Int64()),
	}
}

func seedEntries(f fixture, accountID snowflake.ID) {
	f.seed.Entry(accountID, "sent", "10")
	f.seed.Entry(accountID, "partial", "20")
	f.seed.Entry(accountID, "overdue", "30")
	f.seed.Entry(accountID, "void", "1000")
	f.seed.Entry(accountID, "paid", "5")
	f.seed.Entry(accountID, "draft", "7")
}

func TestBalancesCountsEachOpenEntryOnce(t *testing.T) {
	f := setup(t)

	none := f.seed.Account("No Members", testutil.AccountOpts{})
	one := f.seed.Account("One Member", testutil.AccountOpts{})
	three := f.seed.Account("Three Members", testutil.AccountOpts{})
	f.seed.Member(one, "Ana")
	for _, name := range []string{"Ben", "Cai", "Dee"} {
		f.seed.Member(three, name)
	}
	for _, id := range []snowflake.ID{none, one, three} {
		seedEntries(f, id)
	}
	idle := f.seed.Account("Idle", testutil.AccountOpts{})

	balances, err := f.svc.Balances(f.ctx, []snowflake.ID{none, one, three, idle})
	require.NoError(t, err)
	require.Len(t, balances, 4)

	assert.Equal(t, "60", balances[none].String())
	assert.Equal(t, "60", balances[one].String())
	assert.Equal(t, "60", balances[three].String())
	assert.True(t, balances[idle].IsZero())
}

func TestFanOutViewMultipliesBalances(t *testing.T) {
	f := setup(t)

	three := f.seed.Account("Three Members", testutil.AccountOpts{})
	for _, name := range []string{"Ben", "Cai", "Dee"} {
		f.seed.Member(three, name)
	}
	seedEntries(f, three)

	var viewSum float64
	require.NoError(t, f.db.Raw(
		`SELECT COALESCE(SUM(balance_due), 0) FROM account_ledger_view
		 WHERE account_id = ? AND entry_status IN ?`,
		three, ledgerdomain.OpenStatuses,
	).Scan(&viewSum).Error)
	assert.Equal(t, float64(180), viewSum)

	balances, err := f.svc.Balances(f.ctx, []snowflake.ID{three})
	require.NoError(t, err)
	assert.Equal(t, "60", balances[three].String())
}

func TestBalancesEmptyInput(t *testing.T) {
	f := setup(t)

	balances, err := f.svc.Balances(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestBalancesRequiresOrganization(t *testing.T) {
	f := setup(t)
	id := f.seed.Account("Acme", testutil.AccountOpts{})

	_, err := f.svc.Balances(context.Background(), []snowflake.ID{id})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidOrganization)
}

func TestBalancesAcrossChunks(t *testing.T) {
	f := setup(t)

	ids := make([]snowflake.ID, 0, balanceChunkSize+20)
	for i := 0; i < balanceChunkSize+20; i++ {
		id := f.seed.Account("Bulk", testutil.AccountOpts{})
		f.seed.Entry(id, "sent", "1.25")
		ids = append(ids, id)
	}

	balances, err := f.svc.Balances(f.ctx, ids)
	require.NoError(t, err)
	require.Len(t, balances, len(ids))
	for _, id := range ids {
		assert.Equal(t, "1.25", balances[id].String())
	}
}

func TestBalancesIgnoresOtherOrganizations(t *testing.T) {
	f := setup(t)
	id := f.seed.Account("Acme", testutil.AccountOpts{})
	f.seed.Entry(id, "sent", "10")

	require.NoError(t, f.db.Exec(
		`INSERT INTO ledger_entries (id, org_id, account_id, number, status, balance_due, currency, created_at, updated_at)
		 VALUES (?, ?, ?, 'X-1', 'sent', '99', 'USD', ?, ?)`,
		testutil.MustNode(t).Generate()+1, f.seed.OrgID+1, id, time.Now(), time.Now(),
	).Error)

	balances, err := f.svc.Balances(f.ctx, []snowflake.ID{id})
	require.NoError(t, err)
	assert.Equal(t, "10", balances[id].String())
}

func TestCreateEntryAndCloseIt(t *testing.T) {
	f := setup(t)
	id := f.seed.Account("Acme", testutil.AccountOpts{})

	entry, err := f.svc.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{
		AccountID:  id.String(),
		Number:     "INV-1",
		Status:     "sent",
		BalanceDue: "42.50",
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", entry.Currency)

	balances, err := f.svc.Balances(f.ctx, []snowflake.ID{id})
	require.NoError(t, err)
	assert.Equal(t, "42.5", balances[id].String())

	updated, err := f.svc.UpdateStatus(f.ctx, ledgerdomain.UpdateStatusRequest{ID: entry.ID.String(), Status: "paid"})
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStatusPaid, updated.Status)

	balances, err = f.svc.Balances(f.ctx, []snowflake.ID{id})
	require.NoError(t, err)
	assert.True(t, balances[id].IsZero())
}

func TestCreateEntryRejectsDuplicateNumber(t *testing.T) {
	f := setup(t)
	id := f.seed.Account("Acme", testutil.AccountOpts{})
	req := ledgerdomain.CreateEntryRequest{AccountID: id.String(), Number: "INV-7", BalanceDue: "10"}

	_, err := f.svc.CreateEntry(f.ctx, req)
	require.NoError(t, err)

	_, err = f.svc.CreateEntry(f.ctx, req)
	assert.ErrorIs(t, err, ledgerdomain.ErrDuplicateNumber)
}

func TestCreateEntryValidation(t *testing.T) {
	f := setup(t)
	id := f.seed.Account("Acme", testutil.AccountOpts{})

	cases := []struct {
		name string
		req  ledgerdomain.CreateEntryRequest
		err  error
	}{
		{"bad account", ledgerdomain.CreateEntryRequest{AccountID: "x", Number: "1", BalanceDue: "1"}, ledgerdomain.ErrInvalidAccount},
		{"missing number", ledgerdomain.CreateEntryRequest{AccountID: id.String(), BalanceDue: "1"}, ledgerdomain.ErrInvalidNumber},
		{"bad status", ledgerdomain.CreateEntryRequest{AccountID: id.String(), Number: "1", Status: "lost", BalanceDue: "1"}, ledgerdomain.ErrInvalidStatus},
		{"negative balance", ledgerdomain.CreateEntryRequest{AccountID: id.String(), Number: "1", BalanceDue: "-1"}, ledgerdomain.ErrInvalidBalance},
		{"bad currency", ledgerdomain.CreateEntryRequest{AccountID: id.String(), Number: "1", BalanceDue: "1", Currency: "DOLLAR"}, ledgerdomain.ErrInvalidCurrency},
		{"unknown account", ledgerdomain.CreateEntryRequest{AccountID: "12345", Number: "1", BalanceDue: "1"}, ledgerdomain.ErrAccountNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateEntry(f.ctx, tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}
