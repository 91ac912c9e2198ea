package types

// RelationshipKind classifies a directed edge between entities or files.
type RelationshipKind string

const (
	RelImports    RelationshipKind = "imports"
	RelInherits   RelationshipKind = "inherits"
	RelImplements RelationshipKind = "implements"
	RelCalls      RelationshipKind = "calls"
	RelContains   RelationshipKind = "contains"
	RelReferences RelationshipKind = "references"
	RelUses       RelationshipKind = "uses"
)

// TargetKind discriminates the Target sum type.
type TargetKind uint8

const (
	// TargetResolved means Value is an entity id known to this analysis.
	TargetResolved TargetKind = iota
	// TargetUnresolved means Value is a best-effort symbolic name (e.g. a
	// call target with no file qualifier). Consumers must handle both cases.
	TargetUnresolved
)

// Target is a relationship endpoint: either a resolved entity id or an
// unresolved symbolic name. Relationships are best-effort edges, so a loosely
// typed string is not enough; the discriminant forces downstream code to
// decide what an unresolved name means for it.
type Target struct {
	Kind  TargetKind `json:"kind"`
	Value string     `json:"value"`
}

// ResolvedTarget wraps a known entity id.
func ResolvedTarget(id string) Target {
	return Target{Kind: TargetResolved, Value: id}
}

// UnresolvedTarget wraps a symbolic name that could not be resolved.
func UnresolvedTarget(name string) Target {
	return Target{Kind: TargetUnresolved, Value: name}
}

// IsResolved reports whether the target names a concrete entity id.
func (t Target) IsResolved() bool { return t.Kind == TargetResolved }

// Relationship is the normalized edge every language analyzer produces.
type Relationship struct {
	From       Target            `json:"from"`
	To         Target            `json:"to"`
	Kind       RelationshipKind  `json:"kind"`
	SourceFile string            `json:"source_file,omitempty"`
	TargetFile string            `json:"target_file,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Import records one import statement discovered in a file, before any path
// resolution. Specifier keeps the raw module path exactly as written.
type Import struct {
	Specifier string `json:"specifier"`
	Alias     string `json:"alias,omitempty"`
	Line      int    `json:"line"`
}
