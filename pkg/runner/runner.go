// Package runner orchestrates one run of one cell: script cells go
// through the sandbox executor, markdown cells through the generation
// round trip, and every outcome is folded into a new notebook snapshot.
// Nothing escapes a run as a panic or unhandled error; every failure
// mode terminates in the error cell state with a readable message.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/acordeiro/cellbook/pkg/domain"
	"github.com/acordeiro/cellbook/pkg/generate"
	"github.com/acordeiro/cellbook/pkg/govern"
	"github.com/acordeiro/cellbook/pkg/notebook"
	"github.com/acordeiro/cellbook/pkg/sandbox"
	"github.com/acordeiro/cellbook/pkg/tools"
)

// Runner drives cell runs. Safe for concurrent use; each run operates on
// the snapshot it was given and returns a new one.
type Runner struct {
	executor sandbox.Executor
	registry *tools.Registry
	proxy    *tools.Proxy
	gen      *generate.Client

	// OnUpdate, when set, receives the intermediate snapshot after the
	// transition to running, so callers can render a spinner while
	// outputs are being replaced. Optional.
	OnUpdate func(*domain.Notebook)

	executing atomic.Int32
}

// New creates a Runner.
func New(executor sandbox.Executor, registry *tools.Registry, proxy *tools.Proxy, gen *generate.Client) *Runner {
	return &Runner{
		executor: executor,
		registry: registry,
		proxy:    proxy,
		gen:      gen,
	}
}

// Executing reports whether any run is in flight. Advisory only; it does
// not serialize execution.
func (r *Runner) Executing() bool {
	return r.executing.Load() > 0
}

// Run executes the cell at index and returns the resulting snapshot.
// A Go error is returned only for requests with no defined behavior
// (index out of range, non-runnable cell type); every failure inside an
// accepted run lands in the cell's error state instead.
func (r *Runner) Run(ctx context.Context, nb *domain.Notebook, index int) (result *domain.Notebook, err error) {
	if index < 0 || index >= len(nb.Cells) {
		return nil, fmt.Errorf("cell index %d out of range", index)
	}
	cell := nb.Cells[index]
	if !cell.Type.Runnable() {
		return nil, fmt.Errorf("cell type %q is not runnable", cell.Type)
	}

	r.executing.Add(1)
	defer r.executing.Add(-1)

	start := time.Now()

	// Prior outputs are discarded at the start of the run, not the end,
	// so a long run never shows stale success outputs next to a spinner.
	current := notebook.UpdateCell(nb, index, func(c *domain.Cell) {
		c.Status = domain.StatusRunning
		c.Outputs = nil
		c.OmitOutputToAI = false
		c.ExecutionTime = 0
	})
	if r.OnUpdate != nil {
		r.OnUpdate(current)
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Cell run panicked", "cell", cell.ID, "panic", rec)
			result = finish(current, index, domain.StatusError, time.Since(start), false,
				domain.Output{Type: domain.OutputError, Content: fmt.Sprintf("%v", rec)})
			err = nil
		}
	}()

	if cell.Type == domain.CellTypeScript {
		return r.runScript(ctx, current, index, start), nil
	}
	return r.runMarkdown(ctx, current, index, start), nil
}

// runScript drives the sandbox executor and records its outputs: a
// human-readable return-value line followed by the structured payload.
func (r *Runner) runScript(ctx context.Context, nb *domain.Notebook, index int, start time.Time) *domain.Notebook {
	cell := nb.Cells[index]

	env := &sandbox.Env{
		Resolve: func(cellID string) (any, bool) {
			return notebook.Resolve(nb, cellID)
		},
		Caller:      r.proxy,
		Descriptors: r.registry.Descriptors(),
	}

	res := r.executor.Execute(ctx, cell.Content, env)
	elapsed := time.Since(start)

	if !res.Success {
		slog.Debug("Script cell failed", "cell", cell.ID, "error", res.Err,
			"externalCalls", res.ExternalCallCount, "duration", elapsed)
		return finish(nb, index, domain.StatusError, elapsed, false,
			domain.Output{Type: domain.OutputText, Content: "Error: " + res.Err},
			domain.Output{Type: domain.OutputError, Content: res.Err},
		)
	}

	decision := govern.Govern(res.Output, govern.Budget(nb))
	slog.Debug("Script cell finished", "cell", cell.ID,
		"externalCalls", res.ExternalCallCount, "duration", elapsed,
		"outputBytes", len(decision.ForPersistence), "tooLarge", decision.FlaggedTooLarge)

	return finish(nb, index, domain.StatusSuccess, elapsed, decision.FlaggedTooLarge,
		domain.Output{Type: domain.OutputText, Content: "Return value: " + decision.ForPersistence},
		domain.Output{Type: domain.OutputJSON, Content: decision.ForPersistence},
	)
}

// runMarkdown drives the generation round trip and splices the returned
// cells after the trigger cell. Zero cells, endpoint failure and
// malformed responses all land in the error state; logs keep the causes
// apart.
func (r *Runner) runMarkdown(ctx context.Context, nb *domain.Notebook, index int, start time.Time) *domain.Notebook {
	cell := nb.Cells[index]

	drafts, genErr := r.gen.Generate(ctx, nb, index)
	elapsed := time.Since(start)

	if genErr != nil || len(drafts) == 0 {
		if genErr != nil {
			slog.Error("Cell generation failed", "cell", cell.ID, "error", genErr)
		} else {
			slog.Warn("Cell generation returned no cells", "cell", cell.ID)
		}
		return finish(nb, index, domain.StatusError, elapsed, false,
			domain.Output{Type: domain.OutputText, Content: "No cells generated"})
	}

	newCells := make([]domain.Cell, 0, len(drafts))
	for _, d := range drafts {
		newCells = append(newCells, notebook.NewCell(d.Type, d.Content))
	}

	slog.Debug("Generated cells", "cell", cell.ID, "count", len(newCells), "duration", elapsed)

	next := notebook.InsertCellsAfter(nb, index, newCells)
	return finish(next, index, domain.StatusSuccess, elapsed, false,
		domain.Output{
			Type:    domain.OutputText,
			Content: fmt.Sprintf("Generated %d new cell(s) after cell %d", len(newCells), index),
		})
}

// finish applies the terminal transition to the cell at index.
func finish(nb *domain.Notebook, index int, status domain.CellStatus, elapsed time.Duration, omitToAI bool, outputs ...domain.Output) *domain.Notebook {
	return notebook.UpdateCell(nb, index, func(c *domain.Cell) {
		c.Status = status
		c.Outputs = outputs
		c.ExecutionTime = elapsed
		c.OmitOutputToAI = omitToAI
	})
}
