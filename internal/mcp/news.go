package mcp

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

// NewsQuery selects recent articles from the contents table. A non-empty SQL
// replaces the generated statement.
type NewsQuery struct {
	Days   int
	Search string
	SQL    string
}

// Statement renders the query for the window ending at now.
func (q NewsQuery) Statement(now time.Time) (string, error) {
	if custom := strings.TrimSpace(q.SQL); custom != "" {
		return custom, nil
	}
	if !slices.Contains(constants.NewsQuery.Windows, q.Days) {
		return "", errors.NewValidationError(
			fmt.Sprintf("days must be one of %v", constants.NewsQuery.Windows), "days", q.Days)
	}

	since := now.Add(-time.Duration(q.Days) * 24 * time.Hour).UnixMilli()
	where := fmt.Sprintf("createtime >= %d AND isDelete = 0", since)
	if term := strings.TrimSpace(q.Search); term != "" {
		like := sqlLiteral("%" + term + "%")
		where += fmt.Sprintf(" AND (title LIKE %s OR text LIKE %s)", like, like)
	}

	return fmt.Sprintf(
		"SELECT id, title, text, url, createtime, tags, type FROM contents WHERE %s ORDER BY createtime DESC LIMIT %d",
		where, constants.NewsQuery.Limit), nil
}

// sqlLiteral quotes s as a single-quoted SQL string. The tool takes raw SQL
// with no bind parameters.
func sqlLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
