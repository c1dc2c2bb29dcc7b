// Package js executes script cells on an embedded ECMAScript engine
// (goja). The source text runs as the body of an async function with
// exactly one global binding, the capability object `env`. Isolation is
// convention-level: the script gets no network or storage handles, but
// no time or memory limits are imposed.
package js

import (
	"context"

	"github.com/dop251/goja"

	"github.com/acordeiro/cellbook/pkg/sandbox"
)

// Executor runs script cells on a fresh goja VM per execution.
type Executor struct{}

// Verify interface compliance.
var _ sandbox.Executor = (*Executor)(nil)

// New creates an Executor.
func New() *Executor {
	return &Executor{}
}

// Execute runs source against env. The script's return value becomes
// Output on the success path; synchronous throws and rejected promises
// become failures with the thrown message. Tool calls made through env
// are counted before they dispatch, so the count is exact even when the
// script caches a tool function reference or fails midway. Cancelling
// ctx interrupts the VM cooperatively.
func (e *Executor) Execute(ctx context.Context, source string, env *sandbox.Env) sandbox.Result {
	vm := goja.New()
	calls := 0

	if err := vm.Set("env", buildCapability(ctx, vm, env, &calls)); err != nil {
		return sandbox.Result{Err: err.Error(), ExternalCallCount: calls}
	}

	// Interrupt the VM if the context is cancelled mid-run.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt("execution cancelled")
		case <-done:
		}
	}()

	// The body runs as an implicit async function so scripts can use
	// top-level await and an explicit return for the result value.
	wrapped := "(async () => {\n" + source + "\n})();"

	value, err := vm.RunString(wrapped)
	if err != nil {
		return sandbox.Result{Err: thrownMessage(err), ExternalCallCount: calls}
	}

	promise, ok := value.Export().(*goja.Promise)
	if !ok {
		// Not reachable with the async wrapper, but harmless.
		return sandbox.Result{Success: true, Output: value.Export(), ExternalCallCount: calls}
	}

	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return sandbox.Result{Success: true, Output: promise.Result().Export(), ExternalCallCount: calls}
	case goja.PromiseStateRejected:
		return sandbox.Result{Err: valueMessage(promise.Result()), ExternalCallCount: calls}
	default:
		// All tool delegates are synchronous, so a promise still
		// pending after the job queue drains can never settle.
		return sandbox.Result{Err: "script did not settle", ExternalCallCount: calls}
	}
}

// buildCapability constructs the single object exposed to the script:
// getCellOutput plus one namespace per app, each namespace holding
// pre-wrapped tool closures that bump the shared call counter before
// delegating. The wrapping lives in the closure rather than in property
// interception, so cached references still count.
func buildCapability(ctx context.Context, vm *goja.Runtime, env *sandbox.Env, calls *int) *goja.Object {
	capability := vm.NewObject()

	capability.Set("getCellOutput", func(call goja.FunctionCall) goja.Value {
		cellID := call.Argument(0).String()
		v, ok := env.Resolve(cellID)
		if !ok {
			return goja.Undefined()
		}
		return vm.ToValue(v)
	})

	namespaces := make(map[string]*goja.Object)
	for _, desc := range env.Descriptors {
		ns, ok := namespaces[desc.AppName]
		if !ok {
			ns = vm.NewObject()
			namespaces[desc.AppName] = ns
			capability.Set(desc.AppName, ns)
		}

		fullName := desc.FullName
		ns.Set(desc.Name, func(call goja.FunctionCall) goja.Value {
			*calls++
			params := call.Argument(0).Export()
			res := env.Caller.Call(ctx, fullName, params)
			if res.Err != "" {
				// Tool failures surface to the script as a value,
				// never as a throw.
				return vm.ToValue(map[string]any{"error": res.Err})
			}
			return vm.ToValue(res.Result)
		})
	}

	return capability
}

// thrownMessage extracts a human-readable message from a RunString error.
func thrownMessage(err error) string {
	if ex, ok := err.(*goja.Exception); ok {
		return valueMessage(ex.Value())
	}
	return err.Error()
}

// valueMessage renders a thrown/rejected value the way a browser surfaces
// error.message: Error objects yield their message property, anything
// else its string form.
func valueMessage(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok {
		if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) {
			return m.String()
		}
	}
	return v.String()
}
