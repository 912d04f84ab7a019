// Package mcp is a small Model Context Protocol client over HTTP JSON-RPC.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

const sessionHeader = "Mcp-Session-Id"

// ToolService is the tool-execution surface the pipeline uses. A fresh
// instance is created per enrichment attempt.
type ToolService interface {
	Connect(ctx context.Context) error
	ListTools(ctx context.Context) ([]Tool, error)
	Execute(ctx context.Context, name string, args map[string]any) (*CallResult, error)
	Disconnect() error
}

// Factory creates a ToolService for a base URL.
type Factory func(baseURL string) ToolService

// NewHTTPFactory returns a Factory producing HTTP clients with the given
// timeout.
func NewHTTPFactory(timeout time.Duration, logger *zap.Logger) Factory {
	return func(baseURL string) ToolService {
		return NewHTTPClient(baseURL, timeout, logger)
	}
}

// HTTPClient implements ToolService over plain HTTP POSTs.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger

	nextID atomic.Int64

	mu        sync.RWMutex
	connected bool
	sessionID string
	server    ServerInfo
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = constants.MCPDefaults.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Connect runs the initialize handshake.
func (c *HTTPClient) Connect(ctx context.Context) error {
	resp, err := c.call(ctx, "initialize", map[string]any{
		"protocolVersion": constants.MCPDefaults.ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]string{
			"name":    constants.MCPDefaults.ClientName,
			"version": constants.MCPDefaults.ClientVersion,
		},
	})
	if err != nil {
		return errors.NewToolError(fmt.Sprintf("connect to MCP server at %s", c.baseURL), "initialize", errors.StatusOf(err), err)
	}

	var result struct {
		ProtocolVersion string     `json:"protocolVersion"`
		ServerInfo      ServerInfo `json:"serverInfo"`
	}
	if len(resp) > 0 {
		if err := json.Unmarshal(resp, &result); err != nil {
			c.logger.Debug("MCP initialize result not understood", zap.Error(err))
		}
	}
	result.ServerInfo.ProtocolVersion = result.ProtocolVersion

	c.mu.Lock()
	c.connected = true
	c.server = result.ServerInfo
	c.mu.Unlock()

	if err := c.notify(ctx, "notifications/initialized"); err != nil {
		c.logger.Debug("MCP initialized notification failed", zap.Error(err))
	}

	c.logger.Debug("MCP client connected",
		zap.String("url", c.baseURL),
		zap.String("server", result.ServerInfo.Name),
		zap.String("protocol", result.ProtocolVersion),
	)
	return nil
}

// Disconnect forgets the session. HTTP transport holds no live connection.
func (c *HTTPClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	c.sessionID = ""
	return nil
}

func (c *HTTPClient) Server() ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.server
}

func (c *HTTPClient) ListTools(ctx context.Context) ([]Tool, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	resp, err := c.call(ctx, "tools/list", map[string]any{})
	if err != nil {
		return nil, errors.NewToolError("list tools", "tools/list", errors.StatusOf(err), err)
	}

	var result struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, errors.NewToolError("decode tools/list result", "tools/list", 0, err)
	}
	return result.Tools, nil
}

func (c *HTTPClient) Execute(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}

	start := time.Now()
	resp, err := c.call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return nil, errors.NewToolError("call tool", name, errors.StatusOf(err), err)
	}

	var result CallResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, errors.NewToolError("decode tools/call result", name, 0, err)
	}

	c.logger.Debug("MCP tool executed",
		zap.String("tool", name),
		zap.Duration("latency", time.Since(start)),
		zap.Bool("is_error", result.IsError),
	)
	return &result, nil
}

// Ping checks the server answers JSON-RPC.
func (c *HTTPClient) Ping(ctx context.Context) error {
	if _, err := c.call(ctx, "ping", nil); err != nil {
		return errors.NewToolError("ping MCP server", "ping", errors.StatusOf(err), err)
	}
	return nil
}

func (c *HTTPClient) ensureConnected() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return errors.NewToolError("not connected to MCP server", "", 0, nil)
	}
	return nil
}

func (c *HTTPClient) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	body, err := c.post(ctx, rpcRequest{JSONRPC: "2.0", ID: &id, Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("MCP error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

func (c *HTTPClient) notify(ctx context.Context, method string) error {
	_, err := c.post(ctx, rpcRequest{JSONRPC: "2.0", Method: method})
	return err
}

// post sends one JSON-RPC message and returns the JSON body of the answer,
// unwrapping a single-event SSE stream when the server prefers that.
func (c *HTTPClient) post(ctx context.Context, msg rpcRequest) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", msg.Method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", msg.Method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	c.mu.RLock()
	if c.sessionID != "" {
		req.Header.Set(sessionHeader, c.sessionID)
	}
	c.mu.RUnlock()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", msg.Method, err)
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get(sessionHeader); sid != "" {
		c.mu.Lock()
		c.sessionID = sid
		c.mu.Unlock()
	}

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.NewAPIError(
			fmt.Sprintf("MCP server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))),
			resp.StatusCode,
			map[string]any{"method": msg.Method},
		)
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return readSSEData(resp.Body)
	}
	return io.ReadAll(resp.Body)
}

// readSSEData returns the data of the last event in the stream.
func readSSEData(r io.Reader) ([]byte, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var current, last []byte
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			if len(current) > 0 {
				current = append(current, '\n')
			}
			current = append(current, data...)
		case line == "":
			if len(current) > 0 {
				last, current = current, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}
	if len(current) > 0 {
		last = current
	}
	if len(last) == 0 {
		return nil, fmt.Errorf("event stream carried no data")
	}
	return last, nil
}
