package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

// FindBrowserSearch returns the first tool whose name is a known alias of the
// browser search tool.
func FindBrowserSearch(tools []Tool) (Tool, bool) {
	for _, alias := range constants.ToolNames.BrowserSearch {
		for _, t := range tools {
			if strings.EqualFold(t.Name, alias) {
				return t, true
			}
		}
	}
	return Tool{}, false
}

func hasTool(tools []Tool, name string) bool {
	for _, t := range tools {
		if strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

// SearchArgs builds the arguments for a search tool: the query goes under
// "query" unless the schema names a different single string property.
func SearchArgs(t Tool, query string) map[string]any {
	key := "query"

	var schema struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if len(t.InputSchema) > 0 && json.Unmarshal(t.InputSchema, &schema) == nil {
		if _, ok := schema.Properties["query"]; !ok {
			for _, candidate := range append(schema.Required, "q", "keyword", "keywords") {
				if p, ok := schema.Properties[candidate]; ok && (p.Type == "" || p.Type == "string") {
					key = candidate
					break
				}
			}
		}
	}

	return map[string]any{key: query}
}

// Probe connects to the server behind ts and reports which tools it offers.
func Probe(ctx context.Context, ts ToolService) (domain.FeatureStatus, []Tool, error) {
	if err := ts.Connect(ctx); err != nil {
		return domain.FeatureStatus{BrowserSearch: domain.Bool(false), DatabaseQuery: domain.Bool(false)}, nil, err
	}
	defer ts.Disconnect()

	tools, err := ts.ListTools(ctx)
	if err != nil {
		return domain.FeatureStatus{BrowserSearch: domain.Bool(false), DatabaseQuery: domain.Bool(false)}, nil, err
	}

	_, browser := FindBrowserSearch(tools)
	database := hasTool(tools, constants.ToolNames.DatabaseQuery) || hasTool(tools, constants.ToolNames.DatabaseListDB)

	return domain.FeatureStatus{
		BrowserSearch: domain.Bool(browser),
		DatabaseQuery: domain.Bool(database),
	}, tools, nil
}

// ListDatabasesArgs builds the get_database_names arguments. The tool takes
// no real input, but some servers declare a placeholder string that must be
// present, so every required string property gets a dummy value.
func ListDatabasesArgs(t Tool) map[string]any {
	var schema struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if len(t.InputSchema) == 0 || json.Unmarshal(t.InputSchema, &schema) != nil || len(schema.Properties) == 0 {
		return map[string]any{"random_string": "dummy"}
	}

	args := map[string]any{}
	for _, name := range schema.Required {
		if p, ok := schema.Properties[name]; ok && (p.Type == "" || p.Type == "string") {
			args[name] = "dummy"
		}
	}
	return args
}

// ListDatabases calls the get_database_names tool. tools is the server's
// tools/list answer; when it does not describe the tool the placeholder
// argument is sent.
func ListDatabases(ctx context.Context, ts ToolService, tools []Tool) (*DatabaseNames, error) {
	tool := Tool{Name: constants.ToolNames.DatabaseListDB}
	for _, t := range tools {
		if strings.EqualFold(t.Name, tool.Name) {
			tool = t
			break
		}
	}

	res, err := ts.Execute(ctx, tool.Name, ListDatabasesArgs(tool))
	if err != nil {
		return nil, err
	}
	return DecodeDatabaseNames(res)
}

// QueryDatabases runs sql against the named databases through the
// query_databases tool. An empty names list lets the server pick.
func QueryDatabases(ctx context.Context, ts ToolService, names []string, sql string) (*DatabaseResult, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, errors.NewValidationError("sql is required", "sql", sql)
	}
	if names == nil {
		names = []string{}
	}

	res, err := ts.Execute(ctx, constants.ToolNames.DatabaseQuery, map[string]any{
		"database_names": names,
		"sql":            sql,
	})
	if err != nil {
		return nil, err
	}
	return DecodeDatabaseResult(res)
}
