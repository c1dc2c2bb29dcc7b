package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/acordeiro/cellbook/pkg/domain"
)

// Invoker performs the remote procedure behind a tool identifier. The
// wire format is the invoker's concern; the proxy treats it as an opaque
// asynchronous function.
type Invoker interface {
	Invoke(ctx context.Context, fullName string, params any) (any, error)
}

// CallResult is the outcome of one proxied tool call. Exactly one of
// Result and Err is meaningful; Err is non-empty on failure.
type CallResult struct {
	Result any    `json:"result,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Proxy routes tool identifiers to remote invocations. Call never
// panics or returns a Go error: all failures, including unknown
// identifiers, become CallResult.Err. Each invocation dispatches the
// remote call at most once; retries are the caller's concern.
type Proxy struct {
	registry *Registry
	invoker  Invoker
}

// NewProxy creates a Proxy over the given registry and invoker.
func NewProxy(registry *Registry, invoker Invoker) *Proxy {
	return &Proxy{registry: registry, invoker: invoker}
}

// Call validates the identifier and parameters, then dispatches the
// remote call.
func (p *Proxy) Call(ctx context.Context, fullName string, params any) CallResult {
	desc, ok := p.registry.Lookup(fullName)
	if !ok {
		return CallResult{Err: fmt.Sprintf("Unknown tool: %s", fullName)}
	}

	if err := validateParams(desc.Params, params); err != nil {
		return CallResult{Err: fmt.Sprintf("Invalid parameters for %s: %v", fullName, err)}
	}

	slog.Debug("Proxying tool call", "tool", fullName, "params", params)

	result, err := p.invoker.Invoke(ctx, desc.FullName, params)
	if err != nil {
		slog.Debug("Tool call failed", "tool", fullName, "error", err)
		return CallResult{Err: err.Error()}
	}
	return CallResult{Result: result}
}

// validateParams checks params against the descriptor's schema: required
// keys must be present and declared properties must hold values of the
// declared primitive type. Unknown keys pass through untouched.
func validateParams(schema domain.ParamSchema, params any) error {
	if len(schema.Required) == 0 && len(schema.Properties) == 0 {
		return nil
	}
	obj, ok := params.(map[string]any)
	if !ok {
		if params == nil && len(schema.Required) == 0 {
			return nil
		}
		return fmt.Errorf("expected an object")
	}
	for _, key := range schema.Required {
		if _, present := obj[key]; !present {
			return fmt.Errorf("missing required field %q", key)
		}
	}
	for key, typeName := range schema.Properties {
		v, present := obj[key]
		if !present || v == nil {
			continue
		}
		if !matchesType(v, typeName) {
			return fmt.Errorf("field %q: expected %s", key, typeName)
		}
	}
	return nil
}

func matchesType(v any, typeName string) bool {
	switch typeName {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		switch v.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	default:
		return true
	}
}
