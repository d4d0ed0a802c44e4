package bulk

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/tutorly/internal/account/domain"
	"github.com/smallbiznis/tutorly/internal/directory/domain"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
	"go.uber.org/zap"
)

type exportRow struct {
	account accountdomain.Account
	balance decimal.Decimal
}

type exportField struct {
	label string
	value func(exportRow) string
}

var exportFields = map[string]exportField{
	"id":     {"ID", func(r exportRow) string { return r.account.ID.String() }},
	"name":   {"Name", func(r exportRow) string { return r.account.Name }},
	"status": {"Status", func(r exportRow) string { return string(r.account.Status) }},
	"email":  {"Email", func(r exportRow) string { return r.account.Email }},
	"phone":  {"Phone", func(r exportRow) string { return r.account.Phone }},
	"notes":  {"Notes", func(r exportRow) string { return r.account.Notes }},
	"member_count": {"Members", func(r exportRow) string {
		return strconv.Itoa(len(r.account.Members))
	}},
	"members": {"Member Names", func(r exportRow) string {
		names := make([]string, 0, len(r.account.Members))
		for _, member := range r.account.Members {
			names = append(names, member.Name)
		}
		return strings.Join(names, "; ")
	}},
	"total_balance": {"Outstanding Balance", func(r exportRow) string { return r.balance.StringFixed(2) }},
	"created_at":    {"Created At", func(r exportRow) string { return r.account.CreatedAt.UTC().Format(time.RFC3339) }},
}

var defaultExportFields = []string{"id", "name", "status", "email", "phone", "member_count", "total_balance"}

// ExportCSV renders the given accounts, in the given order, as CSV.
func (s *Service) ExportCSV(ctx context.Context, ids []snowflake.ID, fields []string) ([]byte, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	columns, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, domain.NewValidationError("ids", "required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Get().BulkTimeout)
	defer cancel()

	byID := make(map[snowflake.ID]accountdomain.Account, len(ids))
	for _, chunk := range batches(ids, s.chunkSize) {
		accounts, err := s.accountRepo.FindByIDs(ctx, s.db, orgID, chunk)
		if err != nil {
			return nil, err
		}
		for _, account := range accounts {
			byID[account.ID] = account
		}
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}
	}

	if wants(columns, "members", "member_count") {
		for _, chunk := range batches(ids, s.chunkSize) {
			members, err := s.accountRepo.LoadMembers(ctx, s.db, orgID, chunk)
			if err != nil {
				return nil, err
			}
			for _, id := range chunk {
				account := byID[id]
				account.Members = members[id]
				byID[id] = account
			}
		}
	}

	var balances map[snowflake.ID]decimal.Decimal
	if wants(columns, "total_balance") {
		balances, err = s.balances.Balances(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	w := &csvWriter{}
	header := make([]string, 0, len(columns))
	for _, column := range columns {
		header = append(header, exportFields[column].label)
	}
	w.writeRow(header)

	record := make([]string, len(columns))
	for _, id := range ids {
		row := exportRow{account: byID[id], balance: balances[id]}
		for i, column := range columns {
			record[i] = exportFields[column].value(row)
		}
		w.writeRow(record)
	}

	s.metrics.RecordBulkOperation(ctx, "export", "success", len(ids))
	s.log.Debug("accounts exported", zap.Int("rows", len(ids)), zap.Strings("fields", columns))
	return w.Bytes(), nil
}

func normalizeFields(fields []string) ([]string, error) {
	if len(fields) == 0 {
		return defaultExportFields, nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		key := strings.ToLower(strings.TrimSpace(field))
		if _, ok := exportFields[key]; !ok {
			return nil, &domain.ValidationError{Field: "fields", Code: "unsupported", Detail: field}
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out, nil
}

func wants(columns []string, names ...string) bool {
	for _, column := range columns {
		for _, name := range names {
			if column == name {
				return true
			}
		}
	}
	return false
}
