package notebook

import (
	"encoding/json"

	"github.com/acordeiro/cellbook/pkg/domain"
)

// Resolve returns the authoritative output value of the cell with the
// given id, for consumption by other cells.
//
// The most recent structured (json) output wins over any textual output,
// regardless of relative position: a script cell that logged text after
// returning a value still resolves to the value. JSON content is parsed;
// content that fails to parse is returned as the raw string. With no
// structured output present, the most recent text or html output is
// returned verbatim. The second return is false when the cell does not
// exist or has no usable output.
func Resolve(nb *domain.Notebook, cellID string) (any, bool) {
	var cell *domain.Cell
	for i := range nb.Cells {
		if nb.Cells[i].ID == cellID {
			cell = &nb.Cells[i]
			break
		}
	}
	if cell == nil || len(cell.Outputs) == 0 {
		return nil, false
	}

	for i := len(cell.Outputs) - 1; i >= 0; i-- {
		out := cell.Outputs[i]
		if out.Type != domain.OutputJSON {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(out.Content), &parsed); err != nil {
			return out.Content, true
		}
		return parsed, true
	}

	for i := len(cell.Outputs) - 1; i >= 0; i-- {
		out := cell.Outputs[i]
		if out.Type == domain.OutputText || out.Type == domain.OutputHTML {
			return out.Content, true
		}
	}

	return nil, false
}
