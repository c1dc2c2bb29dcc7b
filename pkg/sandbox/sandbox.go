// Package sandbox defines the script execution contract: one script
// cell's source runs against a capability environment through which all
// external effects must flow.
package sandbox

import (
	"context"

	"github.com/acordeiro/cellbook/pkg/domain"
	"github.com/acordeiro/cellbook/pkg/tools"
)

// Result is the outcome of one script execution. It is transient: the
// cell runner folds it into cell outputs and discards it.
type Result struct {
	// Success is true when the script body ran to completion.
	Success bool
	// Output is the script's return value (success only). Values are
	// exported from the script engine: objects become map[string]any,
	// arrays []any, integers int64.
	Output any
	// Err is the failure message (failure only).
	Err string
	// ExternalCallCount is the number of tool invocations made through
	// the capability object, including calls made before a failure.
	ExternalCallCount int
}

// Caller is the tool-call delegate behind the capability object's tool
// functions. Implemented by tools.Proxy.
type Caller interface {
	Call(ctx context.Context, fullName string, params any) tools.CallResult
}

// Env is the capability environment for one execution. It is built per
// run and bound to the notebook snapshot current at run start.
type Env struct {
	// Resolve backs the script-visible getCellOutput function. The
	// second return reports whether the cell had a usable output;
	// false surfaces as undefined in the script.
	Resolve func(cellID string) (any, bool)
	// Caller dispatches tool calls.
	Caller Caller
	// Descriptors lists the tools exposed to the script, grouped into
	// per-app namespaces by the executor.
	Descriptors []domain.ToolDescriptor
}

// Executor runs script source against a capability environment. Execute
// never panics and never returns a Go error: every failure mode is
// reported inside the Result.
type Executor interface {
	Execute(ctx context.Context, source string, env *Env) Result
}
