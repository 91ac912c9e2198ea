package depgraph

import "sync"

// Store is the process-wide dependency edge cache: module id -> set of
// module ids it depends on. It is injected into the detector rather than
// living as a package-level static, so ownership and test isolation are
// explicit. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	edges map[string]map[string]struct{}
}

// NewStore creates an empty dependency store.
func NewStore() *Store {
	return &Store{edges: make(map[string]map[string]struct{})}
}

// Update replaces a module's outgoing edge set. Replacing rather than
// merging means re-analyzing a changed file drops edges that no longer
// exist, so a later cycle search cannot report stale edges for it.
func (s *Store) Update(module string, deps []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make(map[string]struct{}, len(deps))
	for _, dep := range deps {
		set[dep] = struct{}{}
	}
	s.edges[module] = set
}

// Seed merges edges into a module's set without dropping existing ones.
// Used to warm a store from previously persisted data and by tests.
func (s *Store) Seed(module string, deps ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.edges[module]
	if !ok {
		set = make(map[string]struct{}, len(deps))
		s.edges[module] = set
	}
	for _, dep := range deps {
		set[dep] = struct{}{}
	}
}

// Snapshot copies the full edge map for merging into a working graph.
func (s *Store) Snapshot() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.edges))
	for module, set := range s.edges {
		deps := make([]string, 0, len(set))
		for dep := range set {
			deps = append(deps, dep)
		}
		out[module] = deps
	}
	return out
}

// Len returns the number of modules with recorded edges.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// Reset drops every recorded edge.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = make(map[string]map[string]struct{})
}
