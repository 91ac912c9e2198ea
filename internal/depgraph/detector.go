// Package depgraph builds the cross-file dependency graph one analyzed file
// at a time and reports circular dependencies with classification, severity,
// and a refactoring suggestion.
package depgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/standardbeagle/codegraph/internal/types"
)

// coreMarkers are path segments whose presence in a cycle member upgrades
// severity: a cycle through foundational modules hurts everything above them.
var coreMarkers = map[string]struct{}{
	"core":   {},
	"common": {},
	"shared": {},
	"base":   {},
	"kernel": {},
}

// FileInput is one file's contribution to the dependency graph.
type FileInput struct {
	// FilePath of the file just analyzed; normalized into the module id.
	FilePath string
	// Imports are the file's raw import statements.
	Imports []types.Import
	// Inheritance holds base-class relationships already collected for
	// this file (subclass file -> base-class file), used to classify
	// cycles as inheritance rather than plain import.
	Inheritance []*types.Relationship
	// References holds generic reference relationships with known target
	// files, the weakest edge source.
	References []*types.Relationship
}

// Detector runs cycle detection over the working graph formed by the store's
// accumulated edges plus the current file's edges.
type Detector struct {
	store *Store
	log   *logrus.Logger
}

// NewDetector creates a detector over an injected store.
func NewDetector(store *Store, log *logrus.Logger) *Detector {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Detector{store: store, log: log}
}

// edgeKey identifies a directed edge for classification lookups.
type edgeKey struct{ from, to string }

// Detect ingests one file's edges and returns every cycle visible in the
// resulting graph. Edges from earlier calls are visible through the store,
// so analyzing A then B reports the A<->B cycle on the second call.
func (d *Detector) Detect(input FileInput) []*types.DependencyCycle {
	module := NormalizeModuleID(input.FilePath)

	// Resolve the file's imports. Unresolvable specifiers are skipped,
	// not errors.
	importEdges := make(map[edgeKey]struct{})
	var deps []string
	for _, imp := range input.Imports {
		target, ok := ResolveImport(imp.Specifier, module)
		if !ok || target == module {
			if target == module && ok {
				// Self-import is a real edge and a length-1 cycle.
				deps = append(deps, target)
				importEdges[edgeKey{module, target}] = struct{}{}
			}
			continue
		}
		deps = append(deps, target)
		importEdges[edgeKey{module, target}] = struct{}{}
	}

	inhEdges := relationshipEdges(input.Inheritance)
	for key := range inhEdges {
		if key.from == module {
			deps = append(deps, key.to)
		}
	}
	for key := range relationshipEdges(input.References) {
		if key.from == module {
			deps = append(deps, key.to)
		}
	}

	// Seed the working graph from the process-wide store, overlay the
	// current file, then write the file's edges back (replacing its old
	// set so stale edges from a previous analysis drop out).
	graph := d.store.Snapshot()
	graph[module] = mergeDeps(nil, deps)
	d.store.Update(module, graph[module])

	cycles := enumerateCycles(graph)
	if len(cycles) == 0 {
		return nil
	}

	results := make([]*types.DependencyCycle, 0, len(cycles))
	for _, cycle := range cycles {
		results = append(results, d.describe(cycle, graph, importEdges, inhEdges))
	}
	d.log.WithFields(logrus.Fields{
		"module": module,
		"cycles": len(results),
	}).Debug("dependency cycle detection complete")
	return results
}

func relationshipEdges(rels []*types.Relationship) map[edgeKey]struct{} {
	edges := make(map[edgeKey]struct{}, len(rels))
	for _, rel := range rels {
		if rel == nil || rel.SourceFile == "" || rel.TargetFile == "" {
			continue
		}
		edges[edgeKey{
			from: NormalizeModuleID(rel.SourceFile),
			to:   NormalizeModuleID(rel.TargetFile),
		}] = struct{}{}
	}
	return edges
}

func mergeDeps(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(extra))
	merged := make([]string, 0, len(existing)+len(extra))
	for _, lists := range [][]string{existing, extra} {
		for _, dep := range lists {
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			merged = append(merged, dep)
		}
	}
	return merged
}

// rawCycle is an enumerated cycle before classification.
type rawCycle struct {
	path  []string
	edges []types.CycleEdge
}

// enumerateCycles runs a DFS from every node, recording a cycle whenever a
// neighbor already on the recursion stack is revisited. Cycles with the same
// unordered member set collapse to one. Deterministic: nodes and neighbors
// are visited in sorted order.
func enumerateCycles(graph map[string][]string) []rawCycle {
	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	visited := make(map[string]bool, len(graph))
	onStack := make(map[string]int, len(graph)) // node -> index in path
	var path []string
	var cycles []rawCycle
	seen := make(map[string]struct{})

	var dfs func(node string)
	dfs = func(node string) {
		onStack[node] = len(path)
		path = append(path, node)

		neighbors := append([]string(nil), graph[node]...)
		sort.Strings(neighbors)
		for _, next := range neighbors {
			if idx, ok := onStack[next]; ok {
				recordCycle(path[idx:], &cycles, seen)
				continue
			}
			if !visited[next] {
				dfs(next)
			}
		}

		path = path[:len(path)-1]
		delete(onStack, node)
		visited[node] = true
	}

	for _, node := range nodes {
		if !visited[node] {
			dfs(node)
		}
	}
	return cycles
}

// recordCycle dedupes by unordered member set and captures the edge list,
// including the closing edge back to the first member.
func recordCycle(members []string, cycles *[]rawCycle, seen map[string]struct{}) {
	key := setKey(members)
	if _, ok := seen[key]; ok {
		return
	}
	seen[key] = struct{}{}

	path := append([]string(nil), members...)
	edges := make([]types.CycleEdge, 0, len(path))
	for i, from := range path {
		to := path[(i+1)%len(path)]
		edges = append(edges, types.CycleEdge{From: from, To: to})
	}
	*cycles = append(*cycles, rawCycle{path: path, edges: edges})
}

func setKey(members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

// describe classifies a cycle, grades its severity, and derives the advisory
// description and fix suggestion.
func (d *Detector) describe(cycle rawCycle, graph map[string][]string, importEdges, inhEdges map[edgeKey]struct{}) *types.DependencyCycle {
	cycleType := types.CycleReference
	for _, edge := range cycle.edges {
		key := edgeKey{edge.From, edge.To}
		reverse := edgeKey{edge.To, edge.From}
		if _, ok := inhEdges[key]; ok {
			cycleType = types.CycleInheritance
			break
		}
		if _, ok := inhEdges[reverse]; ok {
			cycleType = types.CycleInheritance
			break
		}
		if _, ok := importEdges[key]; ok {
			cycleType = types.CycleImport
		}
	}

	severity := types.SeverityWarning
	if len(cycle.path) <= 3 {
		severity = types.SeverityError
	} else {
		for _, member := range cycle.path {
			if touchesCoreModule(member) {
				severity = types.SeverityError
				break
			}
		}
	}

	weakLink := lowestOutDegree(cycle.path, graph)

	return &types.DependencyCycle{
		Cycle:        cycle.path,
		Edges:        cycle.edges,
		Type:         cycleType,
		Severity:     severity,
		Description:  describeCycle(cycle.path, cycleType),
		SuggestedFix: suggestFix(weakLink, cycleType),
	}
}

func touchesCoreModule(module string) bool {
	for _, segment := range strings.Split(module, "/") {
		if _, ok := coreMarkers[strings.ToLower(segment)]; ok {
			return true
		}
	}
	return false
}

// lowestOutDegree picks the cycle member with the fewest outgoing edges: the
// node most plausible to refactor away from the cycle.
func lowestOutDegree(members []string, graph map[string][]string) string {
	weak := members[0]
	best := len(graph[weak])
	for _, member := range members[1:] {
		if deg := len(graph[member]); deg < best {
			weak, best = member, deg
		}
	}
	return weak
}

func describeCycle(members []string, cycleType types.CycleType) string {
	loop := strings.Join(members, " -> ") + " -> " + members[0]
	if len(members) == 1 {
		return fmt.Sprintf("Module %s imports itself", members[0])
	}
	return fmt.Sprintf("Circular %s dependency between %d modules: %s", cycleType, len(members), loop)
}

func suggestFix(weakLink string, cycleType types.CycleType) string {
	if cycleType == types.CycleInheritance {
		return fmt.Sprintf("Break the inheritance cycle by introducing an interface or composing instead of extending in %s", weakLink)
	}
	return fmt.Sprintf("Consider extracting the functionality shared through %s into a separate module both sides can depend on", weakLink)
}
