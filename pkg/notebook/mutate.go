// Package notebook provides pure transforms over notebook snapshots:
// cell insertion, update and deletion, plus cross-cell output resolution.
// Every function returns a new snapshot and leaves its input untouched.
package notebook

import (
	"time"

	"github.com/google/uuid"

	"github.com/acordeiro/cellbook/pkg/domain"
)

// NewCell constructs an idle cell of the given type.
func NewCell(cellType domain.CellType, content string) domain.Cell {
	now := time.Now().UTC()
	return domain.Cell{
		ID:        uuid.New().String(),
		Type:      cellType,
		Content:   content,
		Status:    domain.StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// New constructs a notebook at the given path seeded with a single empty
// markdown cell. Notebooks never hold zero cells.
func New(path string) *domain.Notebook {
	now := time.Now().UTC()
	return &domain.Notebook{
		ID:        uuid.New().String(),
		Path:      path,
		Cells:     []domain.Cell{NewCell(domain.CellTypeMarkdown, "")},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// clone copies the notebook and its cell slice. Cell Outputs slices are
// shared with the input until a cell is replaced; callers that modify a
// cell must assign a fresh cell value (see UpdateCell).
func clone(nb *domain.Notebook) *domain.Notebook {
	out := *nb
	out.Cells = make([]domain.Cell, len(nb.Cells))
	copy(out.Cells, nb.Cells)
	return &out
}

// touch advances the notebook's UpdatedAt, keeping it monotonically
// non-decreasing.
func touch(nb *domain.Notebook) {
	if now := time.Now().UTC(); now.After(nb.UpdatedAt) {
		nb.UpdatedAt = now
	}
}

// InsertCellsAfter returns a snapshot with newCells spliced immediately
// after index. Existing cells keep their identity and order. An index
// beyond the last cell appends.
func InsertCellsAfter(nb *domain.Notebook, index int, newCells []domain.Cell) *domain.Notebook {
	out := *nb
	if index < 0 {
		index = -1
	}
	if index >= len(nb.Cells) {
		index = len(nb.Cells) - 1
	}
	cells := make([]domain.Cell, 0, len(nb.Cells)+len(newCells))
	cells = append(cells, nb.Cells[:index+1]...)
	cells = append(cells, newCells...)
	cells = append(cells, nb.Cells[index+1:]...)
	out.Cells = cells
	touch(&out)
	return &out
}

// AppendCell returns a snapshot with the cell added at the end.
func AppendCell(nb *domain.Notebook, cell domain.Cell) *domain.Notebook {
	return InsertCellsAfter(nb, len(nb.Cells)-1, []domain.Cell{cell})
}

// UpdateCell returns a snapshot where the cell at index has been passed
// through mutate. The callback receives a copy; the input snapshot's
// cell is never modified. Out-of-range indexes return the input
// unchanged.
func UpdateCell(nb *domain.Notebook, index int, mutate func(*domain.Cell)) *domain.Notebook {
	if index < 0 || index >= len(nb.Cells) {
		return nb
	}
	out := clone(nb)
	cell := out.Cells[index]
	cell.Outputs = append([]domain.Output(nil), cell.Outputs...)
	mutate(&cell)
	cell.UpdatedAt = time.Now().UTC()
	out.Cells[index] = cell
	touch(out)
	return out
}

// DeleteCell returns a snapshot without the cell at index. Deleting the
// sole remaining cell clears its content, outputs and status instead of
// removing it: a notebook never reaches zero cells.
func DeleteCell(nb *domain.Notebook, index int) *domain.Notebook {
	if index < 0 || index >= len(nb.Cells) {
		return nb
	}
	if len(nb.Cells) == 1 {
		return UpdateCell(nb, index, func(c *domain.Cell) {
			c.Content = ""
			c.Outputs = nil
			c.Status = domain.StatusIdle
			c.OmitOutputToAI = false
			c.ExecutionTime = 0
		})
	}
	out := *nb
	cells := make([]domain.Cell, 0, len(nb.Cells)-1)
	cells = append(cells, nb.Cells[:index]...)
	cells = append(cells, nb.Cells[index+1:]...)
	out.Cells = cells
	touch(&out)
	return &out
}
