package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/mcp"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

type stubTools struct {
	tools    []mcp.Tool
	replies  map[string]string
	calls    []string
	args     map[string]map[string]any
	connects int
}

func (s *stubTools) Connect(context.Context) error { s.connects++; return nil }

func (s *stubTools) ListTools(context.Context) ([]mcp.Tool, error) { return s.tools, nil }

func (s *stubTools) Execute(_ context.Context, name string, args map[string]any) (*mcp.CallResult, error) {
	s.calls = append(s.calls, name)
	if s.args == nil {
		s.args = map[string]map[string]any{}
	}
	s.args[name] = args
	return &mcp.CallResult{Content: []mcp.Content{{Type: "text", Text: s.replies[name]}}}, nil
}

func (s *stubTools) Disconnect() error { return nil }

func newsStub() *stubTools {
	return &stubTools{
		tools: []mcp.Tool{{Name: "get_database_names"}, {Name: "query_databases"}},
		replies: map[string]string{
			"get_database_names": `{"database_names":["news"]}`,
			"query_databases":    `[{"contents":[{"id":1,"title":"Rice prices climb","createtime":1700000000000,"tags":"[\"food\"]"}]}]`,
		},
	}
}

func TestQueryNewsProbesWhenFeatureUnknown(t *testing.T) {
	ts := newsStub()

	result, err := queryNews(context.Background(), ts, nil, mcp.NewsQuery{Days: 1}, nil, time.Now())
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Rice prices climb", result.Rows[0].Title)
	assert.Equal(t, 2, ts.connects)
	assert.Equal(t, []string{"get_database_names", "query_databases"}, ts.calls)
	assert.Equal(t, []string{"news"}, ts.args["query_databases"]["database_names"])
}

func TestQueryNewsSkipsListingWhenDatabasesGiven(t *testing.T) {
	ts := newsStub()

	_, err := queryNews(context.Background(), ts, domain.Bool(true), mcp.NewsQuery{SQL: "SELECT 1"}, []string{"blogs"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"query_databases"}, ts.calls)
	assert.Equal(t, "SELECT 1", ts.args["query_databases"]["sql"])
	assert.Equal(t, []string{"blogs"}, ts.args["query_databases"]["database_names"])
}

func TestQueryNewsRefusesWhenDisabled(t *testing.T) {
	ts := newsStub()

	_, err := queryNews(context.Background(), ts, domain.Bool(false), mcp.NewsQuery{Days: 7}, nil, time.Now())
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.CodeMisconfigured, appErr.Code)
	assert.Zero(t, ts.connects)
}

func TestQueryNewsRefusesWhenServerLacksDatabaseTools(t *testing.T) {
	ts := newsStub()
	ts.tools = []mcp.Tool{{Name: "browser_search"}}

	_, err := queryNews(context.Background(), ts, nil, mcp.NewsQuery{Days: 7}, nil, time.Now())
	require.Error(t, err)
	assert.Empty(t, ts.calls)
}

func TestNewsCommandRejectsUnknownWindow(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"news", "--days", "3"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "days must be one of")
}
