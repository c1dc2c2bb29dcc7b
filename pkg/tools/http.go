package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPInvoker dispatches tool calls to the workspace API over HTTP.
// Each call POSTs {toolName, params} to <base>/tools/call and decodes
// {result, error}.
type HTTPInvoker struct {
	baseURL string
	client  *http.Client
}

// Verify interface compliance.
var _ Invoker = (*HTTPInvoker)(nil)

// NewHTTPInvoker creates an invoker for the workspace API at baseURL.
func NewHTTPInvoker(baseURL string) *HTTPInvoker {
	return &HTTPInvoker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Invoke performs one remote tool call.
func (h *HTTPInvoker) Invoke(ctx context.Context, fullName string, params any) (any, error) {
	body, err := json.Marshal(map[string]any{
		"toolName": fullName,
		"params":   params,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/tools/call", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling workspace API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("workspace API returned %d: %s", resp.StatusCode, b)
	}

	var out struct {
		Result any    `json:"result"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%s", out.Error)
	}
	return out.Result, nil
}

// UnavailableInvoker fails every call with a fixed message. Used when no
// workspace API is configured; scripts then see the documented
// remote-failure shape instead of a crash.
type UnavailableInvoker struct{}

var _ Invoker = UnavailableInvoker{}

// Invoke always fails.
func (UnavailableInvoker) Invoke(ctx context.Context, fullName string, params any) (any, error) {
	return nil, fmt.Errorf("no workspace API configured")
}
