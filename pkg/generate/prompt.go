package generate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/acordeiro/cellbook/pkg/domain"
	"github.com/acordeiro/cellbook/pkg/govern"
)

// contextCell is the bounded per-cell view serialized into the prompt.
type contextCell struct {
	Index   int             `json:"index"`
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Content string          `json:"content"`
	Outputs []contextOutput `json:"outputs,omitempty"`
}

type contextOutput struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// buildContext serializes every cell into its bounded view: content
// capped to the per-cell character budget, outputs capped to the
// notebook's output budget, and outputs dropped entirely for cells
// flagged as too large to forward.
func buildContext(nb *domain.Notebook) []contextCell {
	budget := govern.Budget(nb)
	cells := make([]contextCell, 0, len(nb.Cells))
	for i, cell := range nb.Cells {
		cc := contextCell{
			Index:   i,
			ID:      cell.ID,
			Type:    string(cell.Type),
			Content: govern.Truncate(cell.Content, govern.ContentBudget),
		}
		if !cell.OmitOutputToAI {
			for _, out := range cell.Outputs {
				cc.Outputs = append(cc.Outputs, contextOutput{
					Type:    string(out.Type),
					Content: govern.Truncate(out.Content, budget),
				})
			}
		}
		cells = append(cells, cc)
	}
	return cells
}

// buildPrompt composes the generation instruction: the full bounded
// notebook context, the trigger cell, the rules generated cells must
// follow, and the tool catalog with one usage example per tool.
func buildPrompt(nb *domain.Notebook, triggerIndex int, descriptors []domain.ToolDescriptor) string {
	contextJSON, _ := json.Marshal(buildContext(nb))
	trigger := nb.Cells[triggerIndex]

	var examples []string
	for _, d := range descriptors {
		examples = append(examples, "- "+strings.TrimSpace(d.Example))
	}

	var b strings.Builder
	b.WriteString("You are a code generator for script cells inside a notebook.\n\n")
	b.WriteString("CONTEXT0: FULL NOTEBOOK (cells with type, content and outputs; outputs are truncated and omitted where flagged)\n")
	b.Write(contextJSON)
	b.WriteString("\n\nCONTEXT1: TRIGGER CELL\n")
	fmt.Fprintf(&b, "Index: %d\n", triggerIndex)
	fmt.Fprintf(&b, "ID: %s\n", trigger.ID)
	fmt.Fprintf(&b, "Type: %s\n", trigger.Type)
	fmt.Fprintf(&b, "Content: %s\n\n", trigger.Content)
	b.WriteString("RULES:\n")
	b.WriteString("1) If the trigger cell is markdown, generate ONLY a new cell { type: \"script\", content: \"...\" }.\n")
	b.WriteString("2) Generated code MUST end with a return <value> representing the main result (that value is captured as the cell's output).\n")
	b.WriteString("3) To reuse data from other cells, call env.getCellOutput(\"<id>\").\n")
	b.WriteString("4) To use tools, call env.APP.TOOL(params) as in the examples below.\n")
	b.WriteString("5) Do not restate the markdown as text; implement the request directly in code.\n\n")
	b.WriteString("AVAILABLE TOOLS:\n")
	b.WriteString(strings.Join(examples, "\n"))
	return b.String()
}
