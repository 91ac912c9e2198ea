package types

// CycleType labels what kind of edges close a dependency cycle.
type CycleType string

const (
	CycleImport      CycleType = "import"
	CycleInheritance CycleType = "inheritance"
	CycleReference   CycleType = "reference"
)

// CycleSeverity grades how urgently a cycle needs attention.
type CycleSeverity string

const (
	SeverityError   CycleSeverity = "error"
	SeverityWarning CycleSeverity = "warning"
)

// CycleEdge is one directed edge participating in a cycle.
type CycleEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DependencyCycle is the detector's result surface for one cycle: the module
// ids closing on themselves, classification, severity, and advisory text.
type DependencyCycle struct {
	Cycle        []string      `json:"cycle"`
	Edges        []CycleEdge   `json:"edges"`
	Type         CycleType     `json:"type"`
	Severity     CycleSeverity `json:"severity"`
	Description  string        `json:"description"`
	SuggestedFix string        `json:"suggested_fix"`
}
