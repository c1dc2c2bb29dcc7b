// Package generate implements the AI cell-generation round trip: a
// bounded view of the notebook plus the triggering cell goes out as a
// prompt with a strict output schema, and the structured response comes
// back as a list of new cell drafts.
package generate

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/acordeiro/cellbook/pkg/domain"
	"github.com/acordeiro/cellbook/pkg/tools"
)

// ObjectGenerator is the external generation endpoint seam: prompt and
// schema in, raw structured JSON out.
type ObjectGenerator interface {
	GenerateObject(ctx context.Context, prompt string, schema *genai.Schema) (json.RawMessage, error)
}

// CellDraft is one generated cell before it is assigned an identity and
// spliced into the notebook.
type CellDraft struct {
	Type    domain.CellType `json:"type"`
	Content string          `json:"content"`
}

// Client drives the generation round trip.
type Client struct {
	gen      ObjectGenerator
	registry *tools.Registry
}

// New creates a Client over the given endpoint and tool catalog.
func New(gen ObjectGenerator, registry *tools.Registry) *Client {
	return &Client{gen: gen, registry: registry}
}

// Generate runs the round trip for the cell at triggerIndex. Endpoint
// failures and malformed responses return an error alongside an empty
// draft list; both are recoverable outcomes that the caller folds into
// the error cell state. Response entries with a type outside the
// generatable set or non-textual content are discarded silently.
func (c *Client) Generate(ctx context.Context, nb *domain.Notebook, triggerIndex int) ([]CellDraft, error) {
	if triggerIndex < 0 || triggerIndex >= len(nb.Cells) {
		return nil, fmt.Errorf("cell index %d out of range", triggerIndex)
	}

	prompt := buildPrompt(nb, triggerIndex, c.registry.Descriptors())

	raw, err := c.gen.GenerateObject(ctx, prompt, ResponseSchema())
	if err != nil {
		return nil, fmt.Errorf("generation endpoint: %w", err)
	}

	var resp struct {
		CellsToAdd []struct {
			Type    string `json:"type"`
			Content any    `json:"content"`
		} `json:"cellsToAdd"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding generation response: %w", err)
	}

	var drafts []CellDraft
	for _, entry := range resp.CellsToAdd {
		cellType := domain.CellType(entry.Type)
		content, ok := entry.Content.(string)
		if !ok || !cellType.Generatable() {
			continue
		}
		drafts = append(drafts, CellDraft{Type: cellType, Content: content})
	}
	return drafts, nil
}

// ResponseSchema is the strict output schema submitted with every
// generation request: an object with a single cellsToAdd array of typed
// cell drafts.
func ResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"cellsToAdd": {
				Type:        genai.TypeArray,
				Description: "Array of new cells to add to the notebook",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"type": {
							Type:        genai.TypeString,
							Enum:        []string{string(domain.CellTypeMarkdown), string(domain.CellTypeScript)},
							Description: "Type of cell to create",
						},
						"content": {
							Type:        genai.TypeString,
							Description: "Content for the cell. For markdown: explanatory text or analysis. For script: executable code that can call workspace tools via env.APP_NAME.TOOL_NAME(params).",
						},
					},
					Required: []string{"type", "content"},
				},
			},
		},
		Required: []string{"cellsToAdd"},
	}
}
