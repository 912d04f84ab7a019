package mcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/reader-sim-go/pkg/errors"
)

func TestNewsQueryStatement(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	sql, err := NewsQuery{Days: 7}.Statement(now)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, title, text, url, createtime, tags, type FROM contents WHERE createtime >= 1699395200000 AND isDelete = 0 ORDER BY createtime DESC LIMIT 100",
		sql)

	sql, err = NewsQuery{Days: 1, Search: " O'Neil "}.Statement(now)
	require.NoError(t, err)
	assert.Contains(t, sql, "createtime >= 1699913600000")
	assert.Contains(t, sql, "(title LIKE '%O''Neil%' OR text LIKE '%O''Neil%')")
}

func TestNewsQueryCustomSQLWins(t *testing.T) {
	sql, err := NewsQuery{Days: 3, Search: "ignored", SQL: " SELECT * FROM contents "}.Statement(time.Now())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM contents", sql)
}

func TestNewsQueryRejectsUnknownWindow(t *testing.T) {
	for _, days := range []int{0, 3, 30} {
		_, err := NewsQuery{Days: days}.Statement(time.Now())
		var verr *errors.ValidationError
		require.ErrorAs(t, err, &verr, "days=%d", days)
	}
}
