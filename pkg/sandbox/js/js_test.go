package js

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/acordeiro/cellbook/pkg/domain"
	"github.com/acordeiro/cellbook/pkg/sandbox"
	"github.com/acordeiro/cellbook/pkg/tools"
)

type recordingCaller struct {
	calls   []string
	results map[string]any
	failAll string
}

func (c *recordingCaller) Call(ctx context.Context, fullName string, params any) tools.CallResult {
	c.calls = append(c.calls, fullName)
	if c.failAll != "" {
		return tools.CallResult{Err: c.failAll}
	}
	return tools.CallResult{Result: c.results[fullName]}
}

func testEnv(caller sandbox.Caller) *sandbox.Env {
	return &sandbox.Env{
		Resolve: func(cellID string) (any, bool) { return nil, false },
		Caller:  caller,
		Descriptors: []domain.ToolDescriptor{
			{AppName: "DATABASES", Name: "RUN_SQL", FullName: "DATABASES_RUN_SQL"},
			{AppName: "TEAMS", Name: "LIST", FullName: "TEAMS_LIST"},
		},
	}
}

func TestExecuteReturnValue(t *testing.T) {
	res := New().Execute(context.Background(), "return 1 + 1;", testEnv(&recordingCaller{}))

	if !res.Success {
		t.Fatalf("Execute failed: %s", res.Err)
	}
	if res.Output != int64(2) {
		t.Errorf("Output = %v (%T), want int64(2)", res.Output, res.Output)
	}
	if res.ExternalCallCount != 0 {
		t.Errorf("ExternalCallCount = %d, want 0", res.ExternalCallCount)
	}
}

func TestExecuteNoReturn(t *testing.T) {
	res := New().Execute(context.Background(), "const x = 5;", testEnv(&recordingCaller{}))
	if !res.Success {
		t.Fatalf("Execute failed: %s", res.Err)
	}
	if res.Output != nil {
		t.Errorf("Output = %v, want nil", res.Output)
	}
}

func TestExecuteCountsToolCalls(t *testing.T) {
	caller := &recordingCaller{results: map[string]any{
		"DATABASES_RUN_SQL": map[string]any{"rows": []any{}},
		"TEAMS_LIST":        []any{"team-a"},
	}}
	source := `
const run = env.DATABASES.RUN_SQL;
await run({ sql: "SELECT 1" });
await env.DATABASES.RUN_SQL({ sql: "SELECT 2" });
await env.TEAMS.LIST({});
return "done";
`
	res := New().Execute(context.Background(), source, testEnv(caller))

	if !res.Success {
		t.Fatalf("Execute failed: %s", res.Err)
	}
	// The cached reference on line one still counts.
	if res.ExternalCallCount != 3 {
		t.Errorf("ExternalCallCount = %d, want 3", res.ExternalCallCount)
	}
	want := []string{"DATABASES_RUN_SQL", "DATABASES_RUN_SQL", "TEAMS_LIST"}
	if !reflect.DeepEqual(caller.calls, want) {
		t.Errorf("dispatched calls = %v, want %v", caller.calls, want)
	}
}

func TestExecuteThrowAfterCallKeepsCount(t *testing.T) {
	caller := &recordingCaller{}
	source := `
await env.TEAMS.LIST({});
throw new Error("boom");
`
	res := New().Execute(context.Background(), source, testEnv(caller))

	if res.Success {
		t.Fatal("Execute succeeded, want failure")
	}
	if res.Err != "boom" {
		t.Errorf("Err = %q, want %q", res.Err, "boom")
	}
	if res.ExternalCallCount != 1 {
		t.Errorf("ExternalCallCount = %d, want 1", res.ExternalCallCount)
	}
}

func TestExecuteSyntaxError(t *testing.T) {
	res := New().Execute(context.Background(), "return ((;", testEnv(&recordingCaller{}))
	if res.Success {
		t.Fatal("Execute succeeded on invalid source")
	}
	if res.Err == "" {
		t.Error("Err is empty")
	}
}

func TestExecuteRejectedPromise(t *testing.T) {
	res := New().Execute(context.Background(), `return Promise.reject(new Error("nope"));`, testEnv(&recordingCaller{}))
	if res.Success {
		t.Fatal("Execute succeeded, want rejection")
	}
	if res.Err != "nope" {
		t.Errorf("Err = %q, want %q", res.Err, "nope")
	}
}

func TestExecuteThrowNonError(t *testing.T) {
	res := New().Execute(context.Background(), `throw "plain string";`, testEnv(&recordingCaller{}))
	if res.Success {
		t.Fatal("Execute succeeded, want failure")
	}
	if res.Err != "plain string" {
		t.Errorf("Err = %q, want %q", res.Err, "plain string")
	}
}

func TestExecuteToolErrorIsValueNotThrow(t *testing.T) {
	caller := &recordingCaller{failAll: "Unknown tool: TEAMS_LIST"}
	source := `
const r = await env.TEAMS.LIST({});
return r.error;
`
	res := New().Execute(context.Background(), source, testEnv(caller))

	if !res.Success {
		t.Fatalf("tool error should not fail the script: %s", res.Err)
	}
	if res.Output != "Unknown tool: TEAMS_LIST" {
		t.Errorf("Output = %v, want the error message", res.Output)
	}
	if res.ExternalCallCount != 1 {
		t.Errorf("ExternalCallCount = %d, want 1", res.ExternalCallCount)
	}
}

func TestExecuteGetCellOutput(t *testing.T) {
	env := testEnv(&recordingCaller{})
	env.Resolve = func(cellID string) (any, bool) {
		if cellID == "cell-1" {
			return map[string]any{"count": float64(7)}, true
		}
		return nil, false
	}

	res := New().Execute(context.Background(), `return env.getCellOutput("cell-1").count;`, env)
	if !res.Success {
		t.Fatalf("Execute failed: %s", res.Err)
	}
	// Whole numbers come back from the engine as int64.
	if res.Output != int64(7) {
		t.Errorf("Output = %v (%T), want int64(7)", res.Output, res.Output)
	}
	if res.ExternalCallCount != 0 {
		t.Errorf("getCellOutput counted as external call: %d", res.ExternalCallCount)
	}
}

func TestExecuteGetCellOutputMissing(t *testing.T) {
	res := New().Execute(context.Background(), `return env.getCellOutput("missing") === undefined;`, testEnv(&recordingCaller{}))
	if !res.Success {
		t.Fatalf("Execute failed: %s", res.Err)
	}
	if res.Output != true {
		t.Errorf("Output = %v, want true", res.Output)
	}
}

func TestExecuteCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan sandbox.Result, 1)
	go func() {
		done <- New().Execute(ctx, "for (;;) {}", testEnv(&recordingCaller{}))
	}()

	select {
	case res := <-done:
		if res.Success {
			t.Error("Execute succeeded, want interrupt failure")
		}
		if res.Err == "" {
			t.Error("Err is empty")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return after cancellation")
	}
}
