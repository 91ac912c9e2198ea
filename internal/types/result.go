package types

import "time"

// AnalysisResult is what one analyzer invocation returns: the entities and
// best-effort relationships accumulated during a single bounded traversal,
// plus the raw imports for the dependency detector. Partial on circuit-breaker
// abort, never nil slices replaced by errors.
type AnalysisResult struct {
	Entities      []*Entity       `json:"entities"`
	Relationships []*Relationship `json:"relationships,omitempty"`
	Imports       []Import        `json:"imports,omitempty"`
	// Partial is true when a circuit breaker cut the traversal short and
	// the result covers only the portion of the tree visited before abort.
	Partial bool `json:"partial,omitempty"`
}

// ParseResult is the full per-file result surface produced by the engine.
type ParseResult struct {
	FilePath      string          `json:"file_path"`
	Language      string          `json:"language"`
	Entities      []*Entity       `json:"entities"`
	Relationships []*Relationship `json:"relationships,omitempty"`
	Imports       []Import        `json:"imports,omitempty"`
	ContentHash   string          `json:"content_hash"`
	Timestamp     time.Time       `json:"timestamp"`
	ParseTimeMs   float64         `json:"parse_time_ms"`
	FromCache     bool            `json:"from_cache"`
	Partial       bool            `json:"partial,omitempty"`
}
