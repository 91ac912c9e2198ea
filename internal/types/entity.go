package types

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// EntityKind classifies an extracted entity independent of source language.
type EntityKind string

const (
	KindModule    EntityKind = "module"
	KindNamespace EntityKind = "namespace"
	KindClass     EntityKind = "class"
	KindStruct    EntityKind = "struct"
	KindInterface EntityKind = "interface"
	KindEnum      EntityKind = "enum"
	KindFunction  EntityKind = "function"
	KindMethod    EntityKind = "method"
	KindField     EntityKind = "field"
	KindVariable  EntityKind = "variable"
	KindConstant  EntityKind = "constant"
	KindTypeAlias EntityKind = "type_alias"
)

// Span locates an entity in source text with full byte and line/column fidelity.
type Span struct {
	StartLine int  `json:"start_line"` // 1-based
	StartCol  int  `json:"start_col"`  // 0-based
	StartByte uint `json:"start_byte"`
	EndLine   int  `json:"end_line"`
	EndCol    int  `json:"end_col"`
	EndByte   uint `json:"end_byte"`
}

// Parameter describes one formal parameter of a function or method entity.
type Parameter struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// Entity is the normalized node every language analyzer produces.
// Common fields are typed; Attributes holds only analyzer-specific extras
// (e.g. a Rust analyzer recording trait bounds). Entities are immutable once
// the analyze call that produced them returns.
//
// ID uniqueness is NOT enforced here: repeated analyses of the same file
// produce equal IDs, so downstream consumers dedupe by (FilePath, ID).
type Entity struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Kind       EntityKind        `json:"kind"`
	FilePath   string            `json:"file_path"`
	Span       Span              `json:"span"`
	Modifiers  []string          `json:"modifiers,omitempty"`
	Parameters []Parameter       `json:"parameters,omitempty"`
	ReturnType string            `json:"return_type,omitempty"`
	Children   []*Entity         `json:"children,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// HasModifier reports whether the entity carries the given modifier.
func (e *Entity) HasModifier(mod string) bool {
	for _, m := range e.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}

// GenerateEntityID derives an opaque, stable id for an entity when the
// analyzer does not supply one. Stable across repeated analyses of identical
// content: the same (file, kind, name, position) always hashes the same.
func GenerateEntityID(filePath string, kind EntityKind, name string, startByte uint) string {
	h := xxhash.New()
	_, _ = h.WriteString(filePath)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(string(kind))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(name)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(strconv.FormatUint(uint64(startByte), 10))
	return strconv.FormatUint(h.Sum64(), 36)
}
