package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/pkg/errors"
)

type fakeServer struct {
	mu       sync.Mutex
	methods  []string
	sessions []string
	tools    []Tool
	call     func(name string, args map[string]any) (any, *rpcError)
	sse      bool
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     *int64          `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.methods = append(s.methods, req.Method)
	s.sessions = append(s.sessions, r.Header.Get(sessionHeader))
	s.mu.Unlock()

	if req.ID == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	var result any
	var rpcErr *rpcError
	switch req.Method {
	case "initialize":
		w.Header().Set(sessionHeader, "session-1")
		result = map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo":      map[string]string{"name": "fake", "version": "0.1"},
		}
	case "tools/list":
		result = map[string]any{"tools": s.tools}
	case "tools/call":
		var p struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		_ = json.Unmarshal(req.Params, &p)
		if s.call != nil {
			result, rpcErr = s.call(p.Name, p.Arguments)
		}
	case "ping":
		result = map[string]any{}
	default:
		rpcErr = &rpcError{Code: -32601, Message: "method not found"}
	}

	payload, _ := json.Marshal(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: mustJSON(result), Error: rpcErr})
	if s.sse {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func mustJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, _ := json.Marshal(v)
	return b
}

func textResult(v any) CallResult {
	b, _ := json.Marshal(v)
	return CallResult{Content: []Content{{Type: "text", Text: string(b)}}}
}

func newTestClient(t *testing.T, s *fakeServer) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, 2*time.Second, zap.NewNop())
}

func TestHTTPClientHandshakeKeepsSession(t *testing.T) {
	s := &fakeServer{tools: []Tool{{Name: "browser.browser_search"}}}
	c := newTestClient(t, s)
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "fake", c.Server().Name)
	assert.Equal(t, "2024-11-05", c.Server().ProtocolVersion)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, []string{"initialize", "notifications/initialized", "tools/list"}, s.methods)
	assert.Equal(t, "", s.sessions[0])
	assert.Equal(t, "session-1", s.sessions[2])
}

func TestHTTPClientExecuteDecodesSearch(t *testing.T) {
	var gotArgs map[string]any
	s := &fakeServer{
		sse: true,
		call: func(name string, args map[string]any) (any, *rpcError) {
			gotArgs = args
			return textResult(SearchResult{
				Success: true,
				Items: []SearchItem{
					{Title: "Remote work", Description: "Trends for 2024"},
					{Title: " ", Description: ""},
				},
			}), nil
		},
	}
	c := newTestClient(t, s)
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	res, err := c.Execute(ctx, "browser.browser_search", map[string]any{"query": "remote work"})
	require.NoError(t, err)
	assert.Equal(t, "remote work", gotArgs["query"])

	search, err := DecodeSearchResult(res)
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	assert.Equal(t, "Remote work", search.Items[0].Title)
}

func TestHTTPClientRequiresConnect(t *testing.T) {
	c := newTestClient(t, &fakeServer{})

	_, err := c.ListTools(context.Background())
	require.Error(t, err)

	var toolErr *errors.ToolError
	assert.True(t, errors.As(err, &toolErr))
}

func TestHTTPClientRPCErrorBecomesToolError(t *testing.T) {
	s := &fakeServer{
		call: func(string, map[string]any) (any, *rpcError) {
			return nil, &rpcError{Code: -32000, Message: "search backend down"}
		},
	}
	c := newTestClient(t, s)
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	_, err := c.Execute(ctx, "browser.browser_search", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search backend down")

	var toolErr *errors.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "browser.browser_search", toolErr.Tool)
}

func TestHTTPClientHTTPStatusPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, zap.NewNop())
	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, errors.StatusOf(err))
}

func TestHTTPClientUnreachable(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", 500*time.Millisecond, zap.NewNop())
	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, errors.StatusOf(err))
}

func TestReadSSEDataTakesLastEvent(t *testing.T) {
	stream := "event: message\ndata: {\"a\":1}\n\nevent: message\ndata: {\"b\":\ndata: 2}\n\n"
	data, err := readSSEData(stringsReader(stream))
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, string(data))

	_, err = readSSEData(stringsReader(": keepalive\n\n"))
	assert.Error(t, err)
}

func TestDecodeSearchResultRejectsFailures(t *testing.T) {
	failed := textResult(map[string]any{"success": false})
	_, err := DecodeSearchResult(&failed)
	assert.Error(t, err)

	broken := CallResult{Content: []Content{{Type: "text", Text: "not json"}}}
	_, err = DecodeSearchResult(&broken)
	assert.Error(t, err)

	_, err = DecodeSearchResult(&CallResult{})
	assert.Error(t, err)

	flagged := CallResult{IsError: true, Content: []Content{{Type: "text", Text: "quota"}}}
	_, err = DecodeSearchResult(&flagged)
	assert.ErrorContains(t, err, "quota")
}
