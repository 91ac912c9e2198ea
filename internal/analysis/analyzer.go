// Package analysis defines the language analyzer contract and the reference
// Go analyzer. Every analyzer satisfies the bounded traversal contract: one
// synchronous Analyze call per file that recovers circuit-breaker aborts
// internally and returns whatever was accumulated, never an error for that
// case.
package analysis

import (
	"github.com/sirupsen/logrus"

	"github.com/standardbeagle/codegraph/internal/cst"
	"github.com/standardbeagle/codegraph/internal/types"
)

// Analyzer is implemented once per supported language grammar.
type Analyzer interface {
	// Language returns the grammar name ("go", "python", ...).
	Language() string

	// Analyze walks the CST rooted at root and returns the normalized
	// entities, best-effort relationships, and raw imports for filePath.
	// A pathological input degrades to a partial result (Result.Partial),
	// never a hang, crash, or propagated circuit-breaker failure.
	Analyze(root cst.Node, filePath string) *types.AnalysisResult
}

// nopLogger returns log or a discarding logger when nil, so analyzers can
// log unconditionally.
func nopLogger(log *logrus.Logger) *logrus.Logger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}
