// Package sqlite persists notebooks in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/acordeiro/cellbook/pkg/domain"
	"github.com/acordeiro/cellbook/pkg/store"
)

// Store implements store.NotebookStore using SQLite.
type Store struct {
	db          *sql.DB
	subscribers []chan string
	mu          sync.RWMutex
}

// Verify interface compliance at compile time.
var _ store.NotebookStore = (*Store)(nil)

// New opens (or creates) a SQLite database at the given path and runs
// migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notebooks (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL DEFAULT '',
		output_max_size INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS cells (
		id TEXT PRIMARY KEY,
		notebook_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'idle',
		omit_output_to_ai INTEGER NOT NULL DEFAULT 0,
		execution_time_ns INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (notebook_id) REFERENCES notebooks(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_cells_notebook_position ON cells(notebook_id, position);

	CREATE TABLE IF NOT EXISTS outputs (
		cell_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (cell_id, position),
		FOREIGN KEY (cell_id) REFERENCES cells(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create persists a new notebook snapshot.
func (s *Store) Create(ctx context.Context, nb *domain.Notebook) error {
	now := time.Now().UTC()
	if nb.CreatedAt.IsZero() {
		nb.CreatedAt = now
	}
	if nb.UpdatedAt.IsZero() {
		nb.UpdatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO notebooks (id, path, output_max_size, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		nb.ID, nb.Path, nb.Settings.OutputMaxSize, nb.CreatedAt, nb.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if err := insertCells(ctx, tx, nb); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.notifySubscribers(nb.ID)
	return nil
}

// Get retrieves a notebook with its ordered cells and outputs.
func (s *Store) Get(ctx context.Context, id string) (*domain.Notebook, error) {
	nb := &domain.Notebook{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, path, output_max_size, created_at, updated_at FROM notebooks WHERE id = ?`, id,
	).Scan(&nb.ID, &nb.Path, &nb.Settings.OutputMaxSize, &nb.CreatedAt, &nb.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("notebook not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	cells, err := s.loadCells(ctx, id)
	if err != nil {
		return nil, err
	}
	nb.Cells = cells
	return nb, nil
}

// List returns all notebooks with their cells, newest first.
func (s *Store) List(ctx context.Context) ([]domain.Notebook, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, output_max_size, created_at, updated_at FROM notebooks ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nbs []domain.Notebook
	for rows.Next() {
		var nb domain.Notebook
		if err := rows.Scan(&nb.ID, &nb.Path, &nb.Settings.OutputMaxSize, &nb.CreatedAt, &nb.UpdatedAt); err != nil {
			return nil, err
		}
		nbs = append(nbs, nb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range nbs {
		cells, err := s.loadCells(ctx, nbs[i].ID)
		if err != nil {
			return nil, err
		}
		nbs[i].Cells = cells
	}
	return nbs, nil
}

// Update replaces the stored snapshot with nb. Cells and outputs are
// rewritten wholesale; updated_at never moves backward.
func (s *Store) Update(ctx context.Context, nb *domain.Notebook) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE notebooks SET path=?, output_max_size=?, updated_at=MAX(updated_at, ?) WHERE id=?`,
		nb.Path, nb.Settings.OutputMaxSize, nb.UpdatedAt, nb.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("notebook not found: %s", nb.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE notebook_id=?`, nb.ID); err != nil {
		return err
	}
	if err := insertCells(ctx, tx, nb); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.notifySubscribers(nb.ID)
	return nil
}

// Delete removes a notebook; cells and outputs cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notebooks WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("notebook not found: %s", id)
	}
	s.notifySubscribers(id)
	return nil
}

// Subscribe returns a channel that emits notebook IDs on every write.
func (s *Store) Subscribe() <-chan string {
	ch := make(chan string, 64)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (s *Store) Unsubscribe(ch <-chan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.subscribers {
		if c == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(c)
			return
		}
	}
}

func (s *Store) notifySubscribers(notebookID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- notebookID:
		default:
			// Drop if subscriber is not consuming fast enough.
		}
	}
}

func insertCells(ctx context.Context, tx *sql.Tx, nb *domain.Notebook) error {
	for i, cell := range nb.Cells {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cells (id, notebook_id, position, type, content, status, omit_output_to_ai, execution_time_ns, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			cell.ID, nb.ID, i, cell.Type, cell.Content, cell.Status,
			cell.OmitOutputToAI, int64(cell.ExecutionTime), cell.CreatedAt, cell.UpdatedAt,
		)
		if err != nil {
			return err
		}
		for j, out := range cell.Outputs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO outputs (cell_id, position, type, content) VALUES (?, ?, ?, ?)`,
				cell.ID, j, out.Type, out.Content,
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) loadCells(ctx context.Context, notebookID string) ([]domain.Cell, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, content, status, omit_output_to_ai, execution_time_ns, created_at, updated_at
		 FROM cells WHERE notebook_id=? ORDER BY position ASC`, notebookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cells []domain.Cell
	for rows.Next() {
		var cell domain.Cell
		var execNS int64
		if err := rows.Scan(&cell.ID, &cell.Type, &cell.Content, &cell.Status,
			&cell.OmitOutputToAI, &execNS, &cell.CreatedAt, &cell.UpdatedAt); err != nil {
			return nil, err
		}
		cell.ExecutionTime = time.Duration(execNS)
		cells = append(cells, cell)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range cells {
		outs, err := s.loadOutputs(ctx, cells[i].ID)
		if err != nil {
			return nil, err
		}
		cells[i].Outputs = outs
	}
	return cells, nil
}

func (s *Store) loadOutputs(ctx context.Context, cellID string) ([]domain.Output, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, content FROM outputs WHERE cell_id=? ORDER BY position ASC`, cellID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outs []domain.Output
	for rows.Next() {
		var out domain.Output
		if err := rows.Scan(&out.Type, &out.Content); err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, rows.Err()
}
