package repository

import (
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"
)

// containsMatch is a case-insensitive substring predicate. Postgres and
// MySQL fold with LOWER. SQLite's LOWER folds ASCII only, so there the
// query becomes a GLOB pattern with a character class per cased rune.
type containsMatch struct {
	format  string
	pattern string
}

func containsMatcher(db *gorm.DB, query string) containsMatch {
	if db.Dialector != nil && db.Dialector.Name() == "sqlite" {
		return containsMatch{format: "%s GLOB ?", pattern: globPattern(query)}
	}
	return containsMatch{format: "LOWER(%s) LIKE ? ESCAPE '!'", pattern: likePattern(query)}
}

// anyOf ORs the predicate over columns.
func (m containsMatch) anyOf(columns ...string) (string, []any) {
	clauses := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, column := range columns {
		clauses = append(clauses, fmt.Sprintf(m.format, column))
		args = append(args, m.pattern)
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// likePattern builds a lower-cased substring pattern escaped with '!'.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(query))) + "%"
}

// globPattern builds "*q*" where every rune with case variants becomes a
// class of its full fold orbit and GLOB metacharacters are bracketed.
func globPattern(query string) string {
	var b strings.Builder
	b.WriteByte('*')
	for _, r := range strings.TrimSpace(query) {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
			continue
		}
		fold := unicode.SimpleFold(r)
		if fold == r {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('[')
		b.WriteRune(r)
		for ; fold != r; fold = unicode.SimpleFold(fold) {
			b.WriteRune(fold)
		}
		b.WriteByte(']')
	}
	b.WriteByte('*')
	return b.String()
}
