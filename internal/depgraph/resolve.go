package depgraph

import "strings"

// NormalizeModuleID turns a file path into a dependency-graph node id:
// extension stripped, separators normalized to "/". Pure string work, no
// filesystem lookups.
func NormalizeModuleID(path string) string {
	id := strings.Trim(strings.ReplaceAll(path, "\\", "/"), "/")
	if dot := strings.LastIndex(id, "."); dot > strings.LastIndex(id, "/") {
		id = id[:dot]
	}
	return id
}

// ResolveImport resolves an import specifier against the importing file's
// module id and returns the target module id. Leading "." markers make the
// specifier relative: the first marker means the importer's directory, each
// additional marker ascends one level; the remainder's dots become path
// separators. Without a leading marker the specifier is an absolute module
// path. Empty specifiers resolve to nothing (skipped, not an error).
func ResolveImport(specifier, importerModule string) (string, bool) {
	specifier = strings.TrimSpace(strings.ReplaceAll(specifier, "\\", "/"))
	if specifier == "" {
		return "", false
	}

	markers := 0
	for markers < len(specifier) && specifier[markers] == '.' {
		markers++
	}
	remainder := specifier[markers:]

	if markers == 0 {
		// Absolute module path: dots are separators.
		resolved := strings.ReplaceAll(remainder, ".", "/")
		resolved = strings.Trim(resolved, "/")
		if resolved == "" {
			return "", false
		}
		return resolved, true
	}

	// Relative: drop the importer's file segment for the first marker and
	// one more segment per additional marker, never ascending past the
	// top-level segment.
	base := NormalizeModuleID(importerModule)
	parts := strings.Split(base, "/")
	keep := len(parts) - markers
	if keep < 1 {
		keep = 1
	}
	resolved := strings.Join(parts[:keep], "/")
	if remainder != "" {
		tail := strings.Trim(strings.ReplaceAll(remainder, ".", "/"), "/")
		if resolved != "" && tail != "" {
			resolved += "/"
		}
		resolved += tail
	}
	if resolved == "" {
		return "", false
	}
	return resolved, true
}
