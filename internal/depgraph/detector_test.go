package depgraph

import (
	"strings"
	"testing"

	"github.com/standardbeagle/codegraph/internal/types"
)

func imports(specs ...string) []types.Import {
	out := make([]types.Import, 0, len(specs))
	for _, s := range specs {
		out = append(out, types.Import{Specifier: s})
	}
	return out
}

func TestDetectMutualImportCycle(t *testing.T) {
	d := NewDetector(NewStore(), nil)

	// First file alone: no cycle visible yet.
	cycles := d.Detect(FileInput{FilePath: "proj/a.py", Imports: imports("proj.b")})
	if len(cycles) != 0 {
		t.Fatalf("expected no cycles after first file, got %d", len(cycles))
	}

	cycles = d.Detect(FileInput{FilePath: "proj/b.py", Imports: imports("proj.a")})
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle after second file, got %d", len(cycles))
	}

	c := cycles[0]
	if c.Type != types.CycleImport {
		t.Errorf("cycle type = %s, want %s", c.Type, types.CycleImport)
	}
	if c.Severity != types.SeverityError {
		t.Errorf("length-2 cycle severity = %s, want %s", c.Severity, types.SeverityError)
	}
	if len(c.Cycle) != 2 {
		t.Errorf("cycle length = %d, want 2", len(c.Cycle))
	}
	if len(c.Edges) != 2 {
		t.Errorf("edge count = %d, want 2", len(c.Edges))
	}
	if c.Description == "" || c.SuggestedFix == "" {
		t.Error("description and suggested fix must be populated")
	}
}

func TestDetectSelfImport(t *testing.T) {
	d := NewDetector(NewStore(), nil)

	cycles := d.Detect(FileInput{FilePath: "proj/loop.py", Imports: imports("proj.loop")})
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	c := cycles[0]
	if len(c.Cycle) != 1 || c.Cycle[0] != "proj/loop" {
		t.Errorf("self-import cycle = %v, want [proj/loop]", c.Cycle)
	}
	if !strings.Contains(c.Description, "imports itself") {
		t.Errorf("unexpected description: %q", c.Description)
	}
}

func TestDetectRotationDedup(t *testing.T) {
	store := NewStore()
	// Pre-seed a 3-cycle so a single detection pass sees it from every
	// starting node; rotations must collapse to one report.
	store.Seed("a", "b")
	store.Seed("b", "c")
	store.Seed("c", "a")
	d := NewDetector(store, nil)

	cycles := d.Detect(FileInput{FilePath: "d.py", Imports: imports("a")})
	if len(cycles) != 1 {
		t.Fatalf("expected 1 deduplicated cycle, got %d", len(cycles))
	}
}

func TestDetectInheritancePrecedence(t *testing.T) {
	d := NewDetector(NewStore(), nil)

	d.Detect(FileInput{FilePath: "proj/base.py", Imports: imports("proj.derived")})
	cycles := d.Detect(FileInput{
		FilePath: "proj/derived.py",
		Imports:  imports("proj.base"),
		Inheritance: []*types.Relationship{{
			Kind:       types.RelInherits,
			SourceFile: "proj/derived.py",
			TargetFile: "proj/base.py",
		}},
	})
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	// Both an import and an inheritance edge close the loop; inheritance
	// wins classification.
	if cycles[0].Type != types.CycleInheritance {
		t.Errorf("cycle type = %s, want %s", cycles[0].Type, types.CycleInheritance)
	}
}

func TestDetectReferenceOnlyClassification(t *testing.T) {
	store := NewStore()
	store.Seed("x", "y")
	d := NewDetector(store, nil)

	cycles := d.Detect(FileInput{
		FilePath: "y.py",
		References: []*types.Relationship{{
			Kind:       types.RelReferences,
			SourceFile: "y.py",
			TargetFile: "x.py",
		}},
	})
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if cycles[0].Type != types.CycleReference {
		t.Errorf("cycle type = %s, want %s", cycles[0].Type, types.CycleReference)
	}
}

func TestDetectCoreMarkerSeverity(t *testing.T) {
	store := NewStore()
	store.Seed("app/core/engine", "app/feature/one")
	store.Seed("app/feature/one", "app/feature/two")
	store.Seed("app/feature/two", "app/feature/three")
	d := NewDetector(store, nil)

	cycles := d.Detect(FileInput{
		FilePath: "app/feature/three.py",
		Imports:  imports("app.core.engine"),
	})
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	c := cycles[0]
	if len(c.Cycle) != 4 {
		t.Fatalf("cycle length = %d, want 4", len(c.Cycle))
	}
	// Longer than 3, but a member sits on a core path.
	if c.Severity != types.SeverityError {
		t.Errorf("severity = %s, want %s", c.Severity, types.SeverityError)
	}
}

func TestDetectLongCycleWarning(t *testing.T) {
	store := NewStore()
	store.Seed("m1", "m2")
	store.Seed("m2", "m3")
	store.Seed("m3", "m4")
	d := NewDetector(store, nil)

	cycles := d.Detect(FileInput{FilePath: "m4.py", Imports: imports("m1")})
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if cycles[0].Severity != types.SeverityWarning {
		t.Errorf("severity = %s, want %s", cycles[0].Severity, types.SeverityWarning)
	}
}

func TestUpdateReplacesStaleEdges(t *testing.T) {
	d := NewDetector(NewStore(), nil)

	d.Detect(FileInput{FilePath: "a.py", Imports: imports("b")})
	d.Detect(FileInput{FilePath: "b.py", Imports: imports("a")})

	// a no longer imports b; re-analysis must drop the stale edge and the
	// cycle with it.
	d.Detect(FileInput{FilePath: "a.py", Imports: imports("c")})
	cycles := d.Detect(FileInput{FilePath: "b.py", Imports: imports("a")})
	if len(cycles) != 0 {
		t.Fatalf("stale edge survived re-analysis: %v", cycles[0].Cycle)
	}
}

func TestDetectUnresolvableImportsSkipped(t *testing.T) {
	d := NewDetector(NewStore(), nil)

	cycles := d.Detect(FileInput{FilePath: "a.py", Imports: imports("", "b")})
	if len(cycles) != 0 {
		t.Fatalf("expected no cycles, got %d", len(cycles))
	}
	snapshot := d.store.Snapshot()
	if got := len(snapshot["a"]); got != 1 {
		t.Errorf("stored edges for a = %d, want 1", got)
	}
}

func TestSuggestedFixNamesLowestOutDegreeMember(t *testing.T) {
	store := NewStore()
	// "hub" has extra out-edges; "leaf" has only the cycle edge.
	store.Seed("hub", "leaf", "other1", "other2")
	d := NewDetector(store, nil)

	cycles := d.Detect(FileInput{FilePath: "leaf.py", Imports: imports("hub")})
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if !strings.Contains(cycles[0].SuggestedFix, "leaf") {
		t.Errorf("suggested fix should name the lowest-out-degree member, got %q", cycles[0].SuggestedFix)
	}
}
