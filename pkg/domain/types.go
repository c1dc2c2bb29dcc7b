package domain

import "time"

// Notebook is an ordered sequence of cells plus document-level metadata.
// It is always handled as an immutable snapshot: mutations produce a new
// Notebook value and never modify the one passed in.
type Notebook struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"` // e.g. "/2025/jan/27/index.json"
	Cells     []Cell    `json:"cells"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Settings holds per-notebook tunables.
type Settings struct {
	// OutputMaxSize is the output size budget in bytes. Zero means
	// the default budget applies.
	OutputMaxSize int `json:"output_max_size,omitempty"`
}

// Cell is one unit of notebook content.
type Cell struct {
	ID      string     `json:"id"`
	Type    CellType   `json:"type"`
	Content string     `json:"content"`
	Status  CellStatus `json:"status"`
	Outputs []Output   `json:"outputs,omitempty"`

	// OmitOutputToAI marks the cell's outputs as too large to forward
	// to the generation context. Set by the output governor on run
	// completion, never by the user.
	OmitOutputToAI bool `json:"omit_output_to_ai,omitempty"`

	// ExecutionTime is the duration of the most recent run.
	ExecutionTime time.Duration `json:"execution_time,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Output is a single result value attached to a cell. Outputs are
// appended during a run and replaced wholesale on re-run.
type Output struct {
	Type    OutputType `json:"type"`
	Content string     `json:"content"`
}

// ToolDescriptor describes one remote tool exposed to script cells and
// advertised to the generation prompt. Descriptors are loaded once at
// startup and never mutated.
type ToolDescriptor struct {
	AppName     string      `json:"app_name"`
	Name        string      `json:"name"`
	FullName    string      `json:"full_name"`
	Description string      `json:"description"`
	Params      ParamSchema `json:"params"`
	// Example is a one-line usage snippet included in the generation
	// prompt's tool catalog.
	Example string `json:"example"`
}

// ParamSchema is a minimal parameter shape validated at the proxy
// boundary: named properties with primitive type names and a required
// list. It is deliberately not full JSON Schema.
type ParamSchema struct {
	Properties map[string]string `json:"properties,omitempty"` // name -> "string"|"number"|"boolean"|"array"|"object"
	Required   []string          `json:"required,omitempty"`
}
