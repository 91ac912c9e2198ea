package cst

import "strings"

// LanguageForExtension maps a file extension to the language name used for
// provider lookup. Empty string means unsupported.
func LanguageForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".jsx", ".mjs":
		return "javascript"
	default:
		return ""
	}
}
