// Package store defines notebook persistence. The engine itself is
// snapshot-in/snapshot-out; the store owns the current snapshot between
// runs.
package store

import (
	"context"

	"github.com/acordeiro/cellbook/pkg/domain"
)

// NotebookStore manages notebook documents. Save semantics are
// whole-snapshot: Update replaces the stored cells and outputs with the
// snapshot's.
type NotebookStore interface {
	// Create persists a new notebook. The ID must be set by the caller.
	Create(ctx context.Context, nb *domain.Notebook) error

	// Get retrieves a notebook with its full ordered cell/output tree.
	// Returns an error if the notebook does not exist.
	Get(ctx context.Context, id string) (*domain.Notebook, error)

	// List returns all notebooks, ordered by creation time descending.
	List(ctx context.Context) ([]domain.Notebook, error)

	// Update replaces the stored snapshot with nb. The stored
	// updated_at never moves backward.
	Update(ctx context.Context, nb *domain.Notebook) error

	// Delete removes a notebook and its cells.
	Delete(ctx context.Context, id string) error

	// Subscribe returns a channel that emits notebook IDs whenever a
	// notebook is written. Used by the websocket layer to push fresh
	// snapshots.
	Subscribe() <-chan string

	// Unsubscribe removes and closes a channel previously returned by
	// Subscribe.
	Unsubscribe(ch <-chan string)
}
