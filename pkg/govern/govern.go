// Package govern implements the output-size policy: what gets persisted,
// what gets forwarded to the generation context, and when a cell's
// outputs are flagged as too large to forward at all.
package govern

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/acordeiro/cellbook/pkg/domain"
)

// DefaultBudget is the output size budget in bytes when the notebook
// settings do not override it.
const DefaultBudget = 6000

// ContentBudget caps each cell's source content when serialized into the
// generation context. Independent of the output budget.
const ContentBudget = 2000

// Decision is the outcome of governing one raw output value.
type Decision struct {
	// ForPersistence always holds the full serialized value; oversized
	// outputs stay intact for on-screen display.
	ForPersistence string
	// ForAIContext is what the generation prompt may include: empty
	// when the output is over budget (excluded, not truncated), the
	// full serialized value otherwise.
	ForAIContext string
	// FlaggedTooLarge is true when the serialized value exceeds the
	// budget. The caller must set the cell's omit-output flag.
	FlaggedTooLarge bool
}

// Budget returns the effective output budget for a notebook.
func Budget(nb *domain.Notebook) int {
	if nb != nil && nb.Settings.OutputMaxSize > 0 {
		return nb.Settings.OutputMaxSize
	}
	return DefaultBudget
}

// Serialize renders a raw output value to its canonical text form:
// strings pass through, everything else is JSON.
func Serialize(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// Govern applies the size policy to one raw output value. budgetBytes <= 0
// falls back to DefaultBudget.
func Govern(raw any, budgetBytes int) Decision {
	if budgetBytes <= 0 {
		budgetBytes = DefaultBudget
	}
	s := Serialize(raw)
	d := Decision{ForPersistence: s}
	if len(s) > budgetBytes {
		d.FlaggedTooLarge = true
		return d
	}
	d.ForAIContext = s
	return d
}

// Truncate caps s to max bytes by slicing. Used for outputs that survive
// into the generation context and for the per-cell content cap; the
// slice itself is the contract, there is no marker. A cut that would
// split a multi-byte rune backs up to the rune boundary so the result
// stays valid UTF-8.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
