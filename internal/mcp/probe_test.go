package mcp

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/reader-sim-go/pkg/errors"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func TestFindBrowserSearchMatchesAliases(t *testing.T) {
	tools := []Tool{{Name: "query_databases"}, {Name: "Browser_Search"}}

	got, ok := FindBrowserSearch(tools)
	require.True(t, ok)
	assert.Equal(t, "Browser_Search", got.Name)

	_, ok = FindBrowserSearch([]Tool{{Name: "weather"}})
	assert.False(t, ok)
}

func TestSearchArgsFollowsSchema(t *testing.T) {
	plain := Tool{Name: "browser.browser_search"}
	assert.Equal(t, map[string]any{"query": "ai"}, SearchArgs(plain, "ai"))

	withQuery := Tool{InputSchema: json.RawMessage(`{"properties":{"query":{"type":"string"},"limit":{"type":"number"}}}`)}
	assert.Equal(t, map[string]any{"query": "ai"}, SearchArgs(withQuery, "ai"))

	withKeyword := Tool{InputSchema: json.RawMessage(`{"properties":{"keyword":{"type":"string"}},"required":["keyword"]}`)}
	assert.Equal(t, map[string]any{"keyword": "ai"}, SearchArgs(withKeyword, "ai"))
}

func TestProbeReportsFeatures(t *testing.T) {
	s := &fakeServer{tools: []Tool{{Name: "browser__browser_search"}, {Name: "get_database_names"}}}
	c := newTestClient(t, s)

	status, tools, err := Probe(context.Background(), c)
	require.NoError(t, err)
	assert.Len(t, tools, 2)
	require.NotNil(t, status.BrowserSearch)
	require.NotNil(t, status.DatabaseQuery)
	assert.True(t, *status.BrowserSearch)
	assert.True(t, *status.DatabaseQuery)
}

func TestProbeUnreachableReportsDisabled(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", 0, nil)
	status, _, err := Probe(context.Background(), c)
	require.Error(t, err)
	assert.False(t, *status.BrowserSearch)
	assert.False(t, *status.DatabaseQuery)
}

func TestListDatabases(t *testing.T) {
	var got map[string]any
	s := &fakeServer{
		call: func(name string, args map[string]any) (any, *rpcError) {
			if name != "get_database_names" {
				return nil, &rpcError{Code: -1, Message: "unexpected tool"}
			}
			got = args
			return textResult(map[string]any{"database_names": []string{"articles"}}), nil
		},
	}
	c := newTestClient(t, s)
	require.NoError(t, c.Connect(context.Background()))

	names, err := ListDatabases(context.Background(), c, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"articles"}, names.Names)
	assert.Equal(t, map[string]any{"random_string": "dummy"}, got)
}

func TestListDatabasesUsesAdvertisedSchema(t *testing.T) {
	var got map[string]any
	s := &fakeServer{
		call: func(_ string, args map[string]any) (any, *rpcError) {
			got = args
			return textResult(map[string]any{"database_names": []string{"news", "blogs"}}), nil
		},
	}
	c := newTestClient(t, s)
	require.NoError(t, c.Connect(context.Background()))

	tools := []Tool{{
		Name:        "get_database_names",
		InputSchema: json.RawMessage(`{"properties":{"placeholder":{"type":"string"},"verbose":{"type":"boolean"}},"required":["placeholder","verbose"]}`),
	}}
	names, err := ListDatabases(context.Background(), c, tools)
	require.NoError(t, err)
	assert.Equal(t, []string{"news", "blogs"}, names.Names)
	assert.Equal(t, map[string]any{"placeholder": "dummy"}, got)
}

func TestListDatabasesArgs(t *testing.T) {
	assert.Equal(t, map[string]any{"random_string": "dummy"}, ListDatabasesArgs(Tool{}))
	assert.Equal(t, map[string]any{"random_string": "dummy"}, ListDatabasesArgs(Tool{InputSchema: json.RawMessage(`{"type":"object"}`)}))
	assert.Equal(t, map[string]any{"random_string": "dummy"}, ListDatabasesArgs(Tool{
		InputSchema: json.RawMessage(`{"properties":{"random_string":{"type":"string"}},"required":["random_string"]}`),
	}))
	assert.Equal(t, map[string]any{}, ListDatabasesArgs(Tool{
		InputSchema: json.RawMessage(`{"properties":{"filter":{"type":"string"}}}`),
	}))
}

func TestQueryDatabasesSendsNamesAndSQL(t *testing.T) {
	var gotName string
	var gotArgs map[string]any
	s := &fakeServer{
		call: func(name string, args map[string]any) (any, *rpcError) {
			gotName, gotArgs = name, args
			return textResult([]map[string]any{
				{"contents": []map[string]any{
					{"id": 42, "title": "Rice prices climb", "text": "Prices rose.", "url": "https://example.com/rice",
						"createtime": 1700000000000, "tags": `["economy","food"]`, "type": "news"},
					{"id": "b-7", "title": "", "text": "", "type": "news"},
				}},
				{"contents": []map[string]any{
					{"id": "c-1", "title": "", "text": "Body only", "tags": []string{"misc"}},
				}},
			}), nil
		},
	}
	c := newTestClient(t, s)
	require.NoError(t, c.Connect(context.Background()))

	result, err := QueryDatabases(context.Background(), c, []string{"news"}, "SELECT 1")
	require.NoError(t, err)

	assert.Equal(t, "query_databases", gotName)
	assert.Equal(t, []any{"news"}, gotArgs["database_names"])
	assert.Equal(t, "SELECT 1", gotArgs["sql"])

	require.Len(t, result.Rows, 2)
	assert.Equal(t, DatabaseRow{
		ID:        "42",
		Title:     "Rice prices climb",
		Text:      "Prices rose.",
		URL:       "https://example.com/rice",
		CreatedAt: time.UnixMilli(1700000000000).UTC(),
		Tags:      []string{"economy", "food"},
		Type:      "news",
	}, result.Rows[0])
	assert.Equal(t, "Untitled", result.Rows[1].Title)
	assert.Equal(t, []string{"misc"}, result.Rows[1].Tags)
	assert.Equal(t, "news", result.Rows[1].Type)
}

func TestQueryDatabasesRejectsBadInput(t *testing.T) {
	s := &fakeServer{
		call: func(string, map[string]any) (any, *rpcError) {
			return CallResult{Content: []Content{{Type: "text", Text: "no such table: contents"}}, IsError: true}, nil
		},
	}
	c := newTestClient(t, s)
	require.NoError(t, c.Connect(context.Background()))

	_, err := QueryDatabases(context.Background(), c, nil, "  ")
	var verr *errors.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = QueryDatabases(context.Background(), c, nil, "SELECT * FROM contents")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
}

func TestDecodeDatabaseResultRejectsMalformedRows(t *testing.T) {
	_, err := DecodeDatabaseResult(&CallResult{Content: []Content{{Text: `{"contents":[]}`}}})
	require.Error(t, err)

	_, err = DecodeDatabaseResult(&CallResult{Content: []Content{{Text: `[{"contents":[{"title":"x","createtime":"yesterday"}]}]`}}})
	require.Error(t, err)

	empty, err := DecodeDatabaseResult(&CallResult{Content: []Content{{Text: `[]`}}})
	require.NoError(t, err)
	assert.Empty(t, empty.Rows)
}
