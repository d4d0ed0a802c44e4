package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	accountrepo "github.com/smallbiznis/tutorly/internal/account/repository"
	accountservice "github.com/smallbiznis/tutorly/internal/account/service"
	"github.com/smallbiznis/tutorly/internal/clock"
	"github.com/smallbiznis/tutorly/internal/config"
	"github.com/smallbiznis/tutorly/internal/directory/bulk"
	"github.com/smallbiznis/tutorly/internal/directory/search"
	"github.com/smallbiznis/tutorly/internal/directory/selection"
	directoryservice "github.com/smallbiznis/tutorly/internal/directory/service"
	"github.com/smallbiznis/tutorly/internal/directory/session"
	enrollmentrepo "github.com/smallbiznis/tutorly/internal/enrollment/repository"
	enrollmentservice "github.com/smallbiznis/tutorly/internal/enrollment/service"
	ledgerrepo "github.com/smallbiznis/tutorly/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/tutorly/internal/ledger/service"
	"github.com/smallbiznis/tutorly/internal/observability"
	"github.com/smallbiznis/tutorly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	engine *gin.Engine
	seed   *testutil.Seeder
	orgID  snowflake.ID
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	node := testutil.MustNode(t)
	orgID := node.Generate()
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	holder := config.NewDirectoryConfigHolder(config.DefaultDirectoryConfig())
	log := zap.NewNop()

	accounts := accountrepo.Provide()
	entries := ledgerrepo.Provide()
	enrollments := enrollmentrepo.Provide()

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: entries, AccountRepo: accounts,
	})
	directorySvc := directoryservice.New(directoryservice.Params{
		DB:   db,
		Log:  log,
		Repo: accounts,
		Searcher: search.NewResolver(search.Params{
			DB: db, Log: log, Repo: accounts, Config: holder,
		}),
		Balances: ledgerSvc,
		Config:   holder,
	})

	engine := NewEngine(observability.Config{Environment: "test"}, nil)
	NewServer(ServerParams{
		Gin:   engine,
		Cfg:   config.Config{Environment: "test"},
		Log:   log,
		Clock: clk,
		AccountSvc: accountservice.New(accountservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk, Repo: accounts,
		}),
		EnrollmentSvc: enrollmentservice.New(enrollmentservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk, Repo: enrollments, AccountRepo: accounts,
		}),
		LedgerSvc:    ledgerSvc,
		DirectorySvc: directorySvc,
		BulkSvc: bulk.New(bulk.Params{
			DB:             db,
			Log:            log,
			Clock:          clk,
			AccountRepo:    accounts,
			EnrollmentRepo: enrollments,
			LedgerRepo:     entries,
			Balances:       ledgerSvc,
			Config:         holder,
		}),
		Selections: selection.NewManager(selection.Params{
			Store:  selection.NewMemoryStore(clk.Now),
			Config: holder,
			Log:    log,
		}),
		Sessions: session.NewRegistry(session.Params{
			Service: directorySvc,
			Clock:   clk,
			Config:  holder,
			Log:     log,
		}),
	})

	return testServer{
		engine: engine,
		seed:   testutil.NewSeeder(t, db, node, orgID),
		orgID:  orgID,
	}
}

func (s testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderOrg, s.orgID.String())
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error errorPayload    `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMissingOrgHeaderIsRejected(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "validation_error", env.Error.Type)
	require.Len(t, env.Error.Errors, 1)
	assert.Equal(t, "organization", env.Error.Errors[0].Field)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAccountAndMember(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/accounts", gin.H{"name": "Okafor", "email": "okafor@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))
	assert.Equal(t, "lead", created.Status)

	rec = srv.do(t, http.MethodPost, "/api/accounts/"+created.ID+"/members", gin.H{"name": "Ada", "grade": "5"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/accounts/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched struct {
		Name    string `json:"name"`
		Members []struct {
			Name string `json:"name"`
		} `json:"members"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &fetched))
	assert.Equal(t, "Okafor", fetched.Name)
	require.Len(t, fetched.Members, 1)
	assert.Equal(t, "Ada", fetched.Members[0].Name)
}

func TestCreateAccountValidation(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodPost, "/api/accounts", gin.H{"name": "  "})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	require.Len(t, env.Error.Errors, 1)
	assert.Equal(t, "name", env.Error.Errors[0].Field)
}

func TestListAccountsSortedByBalance(t *testing.T) {
	srv := newTestServer(t)
	for i, balance := range []string{"50", "10", "40", "20", "30"} {
		id := srv.seed.Account(string(rune('A'+i))+" family", testutil.AccountOpts{})
		srv.seed.Member(id, "Kid")
		srv.seed.Entry(id, "sent", balance)
	}

	rec := srv.do(t, http.MethodGet, "/api/accounts?sort=total_balance&direction=desc&page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page struct {
		Accounts []struct {
			TotalBalance string `json:"total_balance"`
		} `json:"accounts"`
		PageInfo struct {
			TotalCount int64 `json:"total_count"`
		} `json:"page_info"`
		Strategy string `json:"strategy"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	require.Len(t, page.Accounts, 2)
	assert.Equal(t, "50", page.Accounts[0].TotalBalance)
	assert.Equal(t, "40", page.Accounts[1].TotalBalance)
	assert.EqualValues(t, 5, page.PageInfo.TotalCount)
	assert.Equal(t, "aggregate", page.Strategy)
}

func TestListAccountsRejectsUnknownSort(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/api/accounts?sort=shoe_size", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "validation_error", env.Error.Type)
	require.Len(t, env.Error.Errors, 1)
	assert.Equal(t, "sort", env.Error.Errors[0].Field)
	assert.Equal(t, "unsupported", env.Error.Errors[0].Code)
}

func TestBulkStatusPartialFailure(t *testing.T) {
	srv := newTestServer(t)
	id := srv.seed.Account("Nguyen", testutil.AccountOpts{})
	missing := snowflake.ID(42)

	rec := srv.do(t, http.MethodPost, "/api/accounts/bulk/status", gin.H{
		"ids":    []string{id.String(), missing.String()},
		"status": "active",
	})
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())

	var result struct {
		Updated []string `json:"updated"`
		Failed  []struct {
			ID     string `json:"id"`
			Reason string `json:"reason"`
		} `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.Equal(t, []string{id.String()}, result.Updated)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, missing.String(), result.Failed[0].ID)
	assert.Equal(t, "not_found", result.Failed[0].Reason)
}

func TestBulkDeleteBlockedByEnrollment(t *testing.T) {
	srv := newTestServer(t)
	free := srv.seed.Account("Free", testutil.AccountOpts{})
	busy := srv.seed.Account("Busy", testutil.AccountOpts{})
	srv.seed.Enrollment(busy, "Math tutoring")

	rec := srv.do(t, http.MethodPost, "/api/accounts/bulk/delete", gin.H{"ids": []string{free.String(), busy.String()}})
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	env := decode(t, rec)
	assert.Equal(t, "referential_integrity", env.Error.Type)
	require.Len(t, env.Error.Blocking, 1)
	assert.Equal(t, busy, env.Error.Blocking[0].ID)

	rec = srv.do(t, http.MethodPost, "/api/accounts/bulk/delete", gin.H{"ids": []string{free.String()}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestExportAccounts(t *testing.T) {
	srv := newTestServer(t)
	id := srv.seed.Account("Patel", testutil.AccountOpts{Email: "patel@example.com"})
	srv.seed.Entry(id, "overdue", "12.5")

	rec := srv.do(t, http.MethodPost, "/api/accounts/export", gin.H{
		"ids":    []string{id.String()},
		"fields": []string{"name", "email", "total_balance"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "accounts-20250301-090000.csv")
	assert.Equal(t, "\"Name\",\"Email\",\"Outstanding Balance\"\n\"Patel\",\"patel@example.com\",\"12.50\"\n", rec.Body.String())
}

func TestExportFilenameIsSlugged(t *testing.T) {
	srv := newTestServer(t)
	id := srv.seed.Account("Patel", testutil.AccountOpts{})

	rec := srv.do(t, http.MethodPost, "/api/accounts/export", gin.H{"ids": []string{id.String()}, "name": "Overdue Families!"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "overdue-families-20250301-090000.csv")
}

func TestExportRejectsUnknownField(t *testing.T) {
	srv := newTestServer(t)
	id := srv.seed.Account("Patel", testutil.AccountOpts{})

	rec := srv.do(t, http.MethodPost, "/api/accounts/export", gin.H{"ids": []string{id.String()}, "fields": []string{"ssn"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	require.Len(t, env.Error.Errors, 1)
	assert.Equal(t, "fields", env.Error.Errors[0].Field)
	assert.Equal(t, "ssn", env.Error.Errors[0].Message)
}

func TestSelectionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	a := srv.seed.Account("A", testutil.AccountOpts{})
	b := srv.seed.Account("B", testutil.AccountOpts{})

	rec := srv.do(t, http.MethodPost, "/api/selections", gin.H{"ids": []string{a.String()}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created selectionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))
	require.NotEmpty(t, created.Key)
	assert.Equal(t, 1, created.Count)

	rec = srv.do(t, http.MethodPost, "/api/selections/"+created.Key+"/toggle", gin.H{"id": b.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var toggled selectionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &toggled))
	require.NotNil(t, toggled.Selected)
	assert.True(t, *toggled.Selected)
	assert.Equal(t, 2, toggled.Count)

	rec = srv.do(t, http.MethodPut, "/api/selections/"+created.Key, gin.H{"remove": []string{a.String()}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated selectionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &updated))
	assert.Equal(t, []string{b.String()}, updated.IDs)

	rec = srv.do(t, http.MethodDelete, "/api/selections/"+created.Key, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/selections/"+created.Key, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionQueryAndState(t *testing.T) {
	srv := newTestServer(t)
	srv.seed.Account("Smith", testutil.AccountOpts{})

	rec := srv.do(t, http.MethodGet, "/api/directory/sessions/desk-1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/directory/sessions/desk-1/query", gin.H{"sort": "name"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var outcome struct {
		Seq     uint64 `json:"seq"`
		Applied bool   `json:"applied"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &outcome))
	assert.EqualValues(t, 1, outcome.Seq)
	assert.True(t, outcome.Applied)

	rec = srv.do(t, http.MethodGet, "/api/directory/sessions/desk-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		Seq  uint64 `json:"seq"`
		Page struct {
			Accounts []struct {
				Name string `json:"name"`
			} `json:"accounts"`
		} `json:"page"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &state))
	assert.EqualValues(t, 1, state.Seq)
	require.Len(t, state.Page.Accounts, 1)
	assert.Equal(t, "Smith", state.Page.Accounts[0].Name)
}

func TestLedgerEntryAndEnrollment(t *testing.T) {
	srv := newTestServer(t)
	id := srv.seed.Account("Garcia", testutil.AccountOpts{})

	rec := srv.do(t, http.MethodPost, "/api/ledger/entries", gin.H{
		"account_id":  id.String(),
		"number":      "INV-001",
		"status":      "sent",
		"balance_due": "75.00",
		"due_at":      "2025-03-31",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &entry))

	rec = srv.do(t, http.MethodPatch, "/api/ledger/entries/"+entry.ID, gin.H{"status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/ledger/entries", gin.H{"account_id": id.String(), "number": "INV-002", "balance_due": "abc"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/enrollments", gin.H{"account_id": id.String(), "service_name": "Chess club"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/enrollments", gin.H{"account_id": snowflake.ID(7).String(), "service_name": "Chess club"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
