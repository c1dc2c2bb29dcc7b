package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/acordeiro/cellbook/pkg/domain"
	"github.com/acordeiro/cellbook/pkg/generate"
	"github.com/acordeiro/cellbook/pkg/generate/gemini"
	"github.com/acordeiro/cellbook/pkg/runner"
	"github.com/acordeiro/cellbook/pkg/sandbox/js"
	"github.com/acordeiro/cellbook/pkg/server"
	"github.com/acordeiro/cellbook/pkg/store/sqlite"
	"github.com/acordeiro/cellbook/pkg/tools"
)

func main() {
	// Setup logger.
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
	slog.SetDefault(logger)

	// Config.
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		slog.Error("GEMINI_API_KEY environment variable not set")
		os.Exit(1)
	}
	addr := os.Getenv("CELLBOOK_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	dbPath := os.Getenv("CELLBOOK_DB")
	if dbPath == "" {
		wd, _ := os.Getwd()
		dbPath = filepath.Join(wd, "data", "cellbook.db")
	}
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	ctx := context.Background()

	// Initialize store.
	notebooks, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer notebooks.Close()

	// Tool catalog and proxy. Without a workspace API every tool call
	// fails with the documented remote-failure shape.
	registry := tools.DefaultCatalog()
	var invoker tools.Invoker
	if base := os.Getenv("WORKSPACE_API_URL"); base != "" {
		invoker = tools.NewHTTPInvoker(base)
	} else {
		slog.Warn("WORKSPACE_API_URL not set; tool calls will fail")
		invoker = tools.UnavailableInvoker{}
	}
	proxy := tools.NewProxy(registry, invoker)

	// Generation client.
	gen, err := gemini.New(ctx, apiKey, os.Getenv("GEMINI_MODEL"))
	if err != nil {
		slog.Error("Failed to initialize Gemini generator", "error", err)
		os.Exit(1)
	}

	// Cell runner. Intermediate running snapshots are persisted so
	// watchers see the spinner state.
	run := runner.New(js.New(), registry, proxy, generate.New(gen, registry))
	run.OnUpdate = func(nb *domain.Notebook) {
		if err := notebooks.Update(context.Background(), nb); err != nil {
			slog.Error("Failed to persist running snapshot", "notebook", nb.ID, "error", err)
		}
	}

	// Start server.
	srv := server.New(notebooks, run, registry)
	if err := srv.Start(addr); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
