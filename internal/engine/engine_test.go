package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/standardbeagle/codegraph/internal/config"
	"github.com/standardbeagle/codegraph/internal/cst"
	cgerrors "github.com/standardbeagle/codegraph/internal/errors"
	"github.com/standardbeagle/codegraph/internal/types"
)

const goSource = `package demo

import "fmt"

func Greet(name string) string {
	return fmt.Sprintf("hello %s", name)
}
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(config.DefaultConfig(), nil)
	t.Cleanup(e.Close)
	return e
}

func TestAnalyzeFileExtractsEntities(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.AnalyzeFile("demo/greet.go", []byte(goSource))
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if result.Language != "go" {
		t.Errorf("language = %q, want go", result.Language)
	}
	if result.FromCache {
		t.Error("first analysis must not come from cache")
	}
	if result.ContentHash == "" {
		t.Error("content hash must be populated")
	}
	if len(result.Entities) == 0 {
		t.Fatal("expected extracted entities")
	}
	if len(result.Imports) != 1 || result.Imports[0].Specifier != "fmt" {
		t.Errorf("imports = %+v, want fmt", result.Imports)
	}
}

func TestAnalyzeFileCacheHitIsPure(t *testing.T) {
	e := newTestEngine(t)

	first, err := e.AnalyzeFile("demo/greet.go", []byte(goSource))
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	second, err := e.AnalyzeFile("demo/greet.go", []byte(goSource))
	if err != nil {
		t.Fatalf("second analyze failed: %v", err)
	}

	if !second.FromCache {
		t.Error("identical content must hit the cache")
	}
	if second.ParseTimeMs != 0 {
		t.Errorf("cached parse time = %.3fms, want 0", second.ParseTimeMs)
	}
	if len(second.Entities) != len(first.Entities) {
		t.Errorf("cached entities = %d, fresh = %d; hit must be indistinguishable",
			len(second.Entities), len(first.Entities))
	}
	if second.ContentHash != first.ContentHash {
		t.Error("content hash must be stable across identical content")
	}
}

func TestAnalyzeFileChangedContentMisses(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.AnalyzeFile("demo/greet.go", []byte(goSource)); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	changed := strings.Replace(goSource, "Greet", "Salute", 1)
	result, err := e.AnalyzeFile("demo/greet.go", []byte(changed))
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if result.FromCache {
		t.Error("changed content must reparse")
	}
}

func TestAnalyzeFileUnsupportedLanguage(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.AnalyzeFile("script.rb", []byte("puts 1"))
	var unsupported *cgerrors.UnsupportedLanguageError
	if !errors.As(err, &unsupported) {
		t.Fatalf("want UnsupportedLanguageError, got %v", err)
	}
}

func TestAnalyzeFileIncremental(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.AnalyzeFile("demo/greet.go", []byte(goSource)); err != nil {
		t.Fatalf("initial analyze failed: %v", err)
	}

	// "Greet" -> "GreetAll": 5 old bytes replaced by 8 new ones.
	newSource := strings.Replace(goSource, "Greet", "GreetAll", 1)
	start := uint(strings.Index(goSource, "Greet"))
	edits := []cst.Edit{{
		StartByte:  start,
		OldEndByte: start + 5,
		NewEndByte: start + 8,
	}}

	incremental, err := e.AnalyzeFileIncremental("demo/greet.go", edits, []byte(newSource))
	if err != nil {
		t.Fatalf("incremental analyze failed: %v", err)
	}
	fresh := New(config.DefaultConfig(), nil)
	defer fresh.Close()
	full, err := fresh.AnalyzeFile("demo/greet.go", []byte(newSource))
	if err != nil {
		t.Fatalf("full analyze failed: %v", err)
	}

	if incremental.FromCache {
		t.Error("incremental result should be a fresh parse")
	}
	if len(incremental.Entities) != len(full.Entities) {
		t.Errorf("incremental entities = %d, full = %d; results must match",
			len(incremental.Entities), len(full.Entities))
	}
}

func TestIncrementalReparseDetachesPreviousEntry(t *testing.T) {
	e := newTestEngine(t)

	first, err := e.AnalyzeFile("demo/greet.go", []byte(goSource))
	if err != nil {
		t.Fatalf("initial analyze failed: %v", err)
	}

	newSource := strings.Replace(goSource, "Greet", "GreetAll", 1)
	start := uint(strings.Index(goSource, "Greet"))
	edits := []cst.Edit{{
		StartByte:  start,
		OldEndByte: start + 5,
		NewEndByte: start + 8,
	}}
	if _, err := e.AnalyzeFileIncremental("demo/greet.go", edits, []byte(newSource)); err != nil {
		t.Fatalf("incremental analyze failed: %v", err)
	}

	// The previous entry left the cache when its tree was handed to the
	// reparse, so only the new content remains stored.
	if got := e.Cache().Len(); got != 1 {
		t.Errorf("cache len = %d after incremental, want 1", got)
	}
	latest := e.Cache().Latest("demo/greet.go")
	if latest == nil {
		t.Fatal("expected a latest entry for the new content")
	}
	if latest.ContentHash == first.ContentHash {
		t.Error("latest entry still carries the pre-edit content hash")
	}

	// Re-analyzing the old content must be a full miss; its edited tree is
	// gone, not lurking behind the old hash.
	again, err := e.AnalyzeFile("demo/greet.go", []byte(goSource))
	if err != nil {
		t.Fatalf("re-analyze failed: %v", err)
	}
	if again.FromCache {
		t.Error("pre-edit content must reparse from scratch")
	}
	if len(again.Entities) != len(first.Entities) {
		t.Errorf("re-analysis entities = %d, want %d", len(again.Entities), len(first.Entities))
	}
}

func TestDetectCyclesAcrossFiles(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.AnalyzeFile("proj/a.py", []byte("from proj import b\n"))
	if err != nil {
		t.Fatalf("analyze a failed: %v", err)
	}
	if cycles := e.DetectCycles(a); len(cycles) != 0 {
		t.Fatalf("no cycle should be visible after one file, got %d", len(cycles))
	}

	c, err := e.AnalyzeFile("loop/x.py", []byte("import loop.y\n"))
	if err != nil {
		t.Fatalf("analyze x failed: %v", err)
	}
	e.DetectCycles(c)
	d, err := e.AnalyzeFile("loop/y.py", []byte("import loop.x\n"))
	if err != nil {
		t.Fatalf("analyze y failed: %v", err)
	}
	cycles := e.DetectCycles(d)
	if len(cycles) != 1 {
		t.Fatalf("expected the loop/x <-> loop/y cycle, got %d", len(cycles))
	}
	if cycles[0].Type != types.CycleImport {
		t.Errorf("cycle type = %s, want %s", cycles[0].Type, types.CycleImport)
	}
}

func TestDetectCyclesClassifiesCrossFileInheritance(t *testing.T) {
	e := newTestEngine(t)

	base, err := e.AnalyzeFile("shapes/base.py",
		[]byte("import shapes.circle\n\nclass Shape:\n    pass\n"))
	if err != nil {
		t.Fatalf("analyze base failed: %v", err)
	}
	e.DetectCycles(base)

	circle, err := e.AnalyzeFile("shapes/circle.py",
		[]byte("import shapes.base\n\nclass Circle(shapes.base.Shape):\n    pass\n"))
	if err != nil {
		t.Fatalf("analyze circle failed: %v", err)
	}
	cycles := e.DetectCycles(circle)
	if len(cycles) != 1 {
		t.Fatalf("expected the shapes/base <-> shapes/circle cycle, got %d", len(cycles))
	}
	if cycles[0].Type != types.CycleInheritance {
		t.Errorf("cycle type = %s, want %s; the qualified base class names an imported module",
			cycles[0].Type, types.CycleInheritance)
	}
}

func TestConcurrentAnalyze(t *testing.T) {
	e := newTestEngine(t)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			src := fmt.Sprintf("package p%d\n\nfunc F%d() {}\n", i%4, i)
			if _, err := e.AnalyzeFile(fmt.Sprintf("p/f%d.go", i%8), []byte(src)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent analyze failed: %v", err)
	}
}
