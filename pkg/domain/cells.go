package domain

// CellType identifies the editor/content kind of a cell. The set is
// closed; only markdown and script cells participate in execution.
type CellType string

const (
	// CellTypeMarkdown is rendered rich text. Running a markdown cell
	// triggers the AI generation round trip.
	CellTypeMarkdown CellType = "markdown"
	// CellTypeScript is executable script content. Running a script
	// cell executes it in the sandbox.
	CellTypeScript CellType = "script"
	// CellTypeDrawing is canvas content owned by the editor layer.
	CellTypeDrawing CellType = "drawing"
	// CellTypeHTML is raw markup previewed in an iframe by the editor layer.
	CellTypeHTML CellType = "html"
)

// Runnable reports whether running the cell type has defined behavior.
func (t CellType) Runnable() bool {
	return t == CellTypeMarkdown || t == CellTypeScript
}

// Generatable reports whether the generation flow may produce cells of
// this type.
func (t CellType) Generatable() bool {
	return t == CellTypeMarkdown || t == CellTypeScript
}

// CellStatus is the run-lifecycle state of a cell.
type CellStatus string

const (
	StatusIdle    CellStatus = "idle"
	StatusRunning CellStatus = "running"
	StatusSuccess CellStatus = "success"
	StatusError   CellStatus = "error"
)

// OutputType identifies the kind of an output value.
type OutputType string

const (
	// OutputJSON is a structured, machine-consumable value.
	OutputJSON OutputType = "json"
	// OutputText is plain human-readable text.
	OutputText OutputType = "text"
	// OutputHTML is rendered markup.
	OutputHTML OutputType = "html"
	// OutputError is a failure message.
	OutputError OutputType = "error"
)
