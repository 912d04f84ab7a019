package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tool is one entry of a tools/list answer.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Content is one item of a tools/call result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallResult is the tools/call payload. Tool outputs arrive as JSON text in
// the first content item.
type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// FirstText returns the first text content item.
func (r *CallResult) FirstText() (string, error) {
	if r == nil || len(r.Content) == 0 {
		return "", fmt.Errorf("tool result has no content")
	}
	for _, c := range r.Content {
		if c.Type == "" || c.Type == "text" {
			return c.Text, nil
		}
	}
	return "", fmt.Errorf("tool result has no text content")
}

type SearchItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

// SearchResult is the browser-search tool's output.
type SearchResult struct {
	Success bool         `json:"success"`
	Items   []SearchItem `json:"items"`
}

// DecodeSearchResult validates a browser-search answer at the boundary.
func DecodeSearchResult(r *CallResult) (*SearchResult, error) {
	if r != nil && r.IsError {
		text, _ := r.FirstText()
		return nil, fmt.Errorf("search tool reported an error: %s", text)
	}
	text, err := r.FirstText()
	if err != nil {
		return nil, err
	}

	var result SearchResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("search tool returned success=false")
	}

	items := result.Items[:0]
	for _, item := range result.Items {
		if strings.TrimSpace(item.Title) == "" && strings.TrimSpace(item.Description) == "" {
			continue
		}
		items = append(items, item)
	}
	result.Items = items
	return &result, nil
}

// DatabaseNames is the get_database_names tool's output.
type DatabaseNames struct {
	Names []string `json:"database_names"`
}

func DecodeDatabaseNames(r *CallResult) (*DatabaseNames, error) {
	text, err := r.FirstText()
	if err != nil {
		return nil, err
	}

	var names DatabaseNames
	if err := json.Unmarshal([]byte(text), &names); err != nil {
		return nil, fmt.Errorf("decode database names: %w", err)
	}
	if names.Names == nil {
		names.Names = []string{}
	}
	return &names, nil
}

// DatabaseRow is one article row returned by query_databases.
type DatabaseRow struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Tags      []string  `json:"tags"`
	Type      string    `json:"type"`
}

// DatabaseResult is the flattened query_databases output across every
// database that answered.
type DatabaseResult struct {
	Rows []DatabaseRow `json:"rows"`
}

// rawDatabaseRow mirrors what the tool actually sends: ids may be numbers or
// strings, tags may be a JSON-encoded string, createtime is epoch millis.
type rawDatabaseRow struct {
	ID         json.RawMessage `json:"id"`
	Title      string          `json:"title"`
	Text       string          `json:"text"`
	URL        string          `json:"url"`
	CreateTime json.Number     `json:"createtime"`
	Tags       json.RawMessage `json:"tags"`
	Type       string          `json:"type"`
}

// DecodeDatabaseResult validates a query_databases answer at the boundary.
// Rows with neither title nor text are dropped.
func DecodeDatabaseResult(r *CallResult) (*DatabaseResult, error) {
	if r != nil && r.IsError {
		text, _ := r.FirstText()
		return nil, fmt.Errorf("database tool reported an error: %s", text)
	}
	text, err := r.FirstText()
	if err != nil {
		return nil, err
	}

	var groups []struct {
		Contents []rawDatabaseRow `json:"contents"`
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&groups); err != nil {
		return nil, fmt.Errorf("decode database result: %w", err)
	}

	result := &DatabaseResult{Rows: []DatabaseRow{}}
	for _, g := range groups {
		for _, raw := range g.Contents {
			row, err := raw.normalize()
			if err != nil {
				return nil, err
			}
			if row.Title == "" && row.Text == "" {
				continue
			}
			if row.Title == "" {
				row.Title = "Untitled"
			}
			result.Rows = append(result.Rows, row)
		}
	}
	return result, nil
}

func (raw rawDatabaseRow) normalize() (DatabaseRow, error) {
	row := DatabaseRow{
		ID:    strings.Trim(string(bytes.TrimSpace(raw.ID)), `"`),
		Title: strings.TrimSpace(raw.Title),
		Text:  strings.TrimSpace(raw.Text),
		URL:   strings.TrimSpace(raw.URL),
		Type:  raw.Type,
		Tags:  []string{},
	}
	if row.ID == "null" {
		row.ID = ""
	}
	if row.Type == "" {
		row.Type = "news"
	}

	if raw.CreateTime != "" {
		ms, err := strconv.ParseInt(raw.CreateTime.String(), 10, 64)
		if err != nil {
			return DatabaseRow{}, fmt.Errorf("row %q: bad createtime %q", row.ID, raw.CreateTime)
		}
		row.CreatedAt = time.UnixMilli(ms).UTC()
	}

	tags := bytes.TrimSpace(raw.Tags)
	if len(tags) > 0 && !bytes.Equal(tags, []byte("null")) {
		// Some stores keep tags as a JSON array encoded into a string column.
		var encoded string
		if json.Unmarshal(tags, &encoded) == nil {
			tags = []byte(encoded)
		}
		if len(bytes.TrimSpace(tags)) > 0 {
			if err := json.Unmarshal(tags, &row.Tags); err != nil {
				return DatabaseRow{}, fmt.Errorf("row %q: bad tags: %w", row.ID, err)
			}
		}
	}
	return row, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ServerInfo is what initialize reports about the peer.
type ServerInfo struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ProtocolVersion string `json:"-"`
}
