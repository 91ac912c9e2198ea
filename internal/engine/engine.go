// Package engine wires the CST provider registry, the parse cache, the
// per-language analyzers, and the dependency detector into the one-call
// extraction surface: give it a file's path and content, get entities,
// relationships, and imports back.
package engine

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/standardbeagle/codegraph/internal/analysis"
	"github.com/standardbeagle/codegraph/internal/config"
	"github.com/standardbeagle/codegraph/internal/cst"
	"github.com/standardbeagle/codegraph/internal/depgraph"
	cgerrors "github.com/standardbeagle/codegraph/internal/errors"
	"github.com/standardbeagle/codegraph/internal/parsecache"
	"github.com/standardbeagle/codegraph/internal/traversal"
	"github.com/standardbeagle/codegraph/internal/types"
)

// Engine is safe for concurrent use: one AnalyzeFile call is synchronous and
// single-threaded, and the parse cache and dependency store are the only
// shared mutable state, each guarded by its own lock.
type Engine struct {
	cfg       *config.Config
	registry  *cst.Registry
	cache     *parsecache.Cache
	analyzers map[string]analysis.Analyzer
	store     *depgraph.Store
	detector  *depgraph.Detector
	log       *logrus.Logger
}

// New builds an engine from the configuration. A nil logger is silent.
func New(cfg *config.Config, log *logrus.Logger) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}

	limits := traversalLimits(cfg)
	store := depgraph.NewStore()

	e := &Engine{
		cfg:      cfg,
		registry: cst.NewSitterRegistry(),
		cache: parsecache.New(parsecache.Config{
			MaxTotalBytes: int64(cfg.Cache.MaxTotalMB) << 20,
			TTL:           time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
		}),
		analyzers: make(map[string]analysis.Analyzer),
		store:     store,
		detector:  depgraph.NewDetector(store, log),
		log:       log,
	}

	for _, a := range []analysis.Analyzer{
		analysis.NewGoAnalyzer(limits, log),
		analysis.NewPythonAnalyzer(limits, log),
		analysis.NewJavaScriptAnalyzer(limits, log),
	} {
		e.analyzers[a.Language()] = a
	}
	return e
}

// AnalyzeFile parses and analyzes one file. A cache hit returns the stored
// results with FromCache set and no parse cost; a miss parses, analyzes,
// and stores the tree with its extraction output.
func (e *Engine) AnalyzeFile(filePath string, content []byte) (*types.ParseResult, error) {
	language := cst.LanguageForExtension(filepath.Ext(filePath))
	if language == "" {
		return nil, cgerrors.NewUnsupportedLanguageError(filePath, filepath.Ext(filePath))
	}
	analyzer, ok := e.analyzers[language]
	if !ok {
		return nil, cgerrors.NewUnsupportedLanguageError(filePath, filepath.Ext(filePath))
	}

	hash := contentHash(content)
	if entry := e.cache.Get(filePath, hash); entry != nil {
		return e.resultFrom(filePath, language, entry, true, 0), nil
	}

	provider, ok := e.registry.Provider(language)
	if !ok {
		return nil, cgerrors.NewUnsupportedLanguageError(filePath, filepath.Ext(filePath))
	}

	started := time.Now()
	tree, err := provider.Parse(content)
	if err != nil {
		return nil, cgerrors.NewParseError(filePath, language, err)
	}

	result := analyzer.Analyze(tree.Root(), filePath)
	elapsed := time.Since(started)

	entry := &parsecache.Entry{
		Tree:          tree,
		Entities:      result.Entities,
		Relationships: result.Relationships,
		Imports:       result.Imports,
		ContentHash:   hash,
	}
	if result.Partial {
		// A circuit-breaker trip produced incomplete output; caching it
		// would replay the truncation on every later hit. Dispose the
		// tree here instead, since the cache never saw it.
		tree.Close()
	} else {
		e.cache.Put(filePath, hash, entry)
	}

	e.log.WithFields(logrus.Fields{
		"file":     filePath,
		"language": language,
		"entities": len(result.Entities),
		"ms":       elapsed.Milliseconds(),
		"partial":  result.Partial,
	}).Debug("analyzed file")

	pr := e.resultFrom(filePath, language, entry, false, elapsed)
	pr.Partial = result.Partial
	return pr, nil
}

// AnalyzeFileIncremental reuses the file's previous tree via the provider's
// incremental path. Without a previous tree it degrades to a full analyze.
func (e *Engine) AnalyzeFileIncremental(filePath string, edits []cst.Edit, newContent []byte) (*types.ParseResult, error) {
	language := cst.LanguageForExtension(filepath.Ext(filePath))
	if language == "" {
		return nil, cgerrors.NewUnsupportedLanguageError(filePath, filepath.Ext(filePath))
	}

	hash := contentHash(newContent)
	if entry := e.cache.Get(filePath, hash); entry != nil {
		return e.resultFrom(filePath, language, entry, true, 0), nil
	}
	if len(edits) == 0 {
		return e.AnalyzeFile(filePath, newContent)
	}

	// Take the previous entry out of the cache before touching its tree:
	// Reparse edits the tree in place, and a tree still inside the cache
	// can be disposed by a concurrent eviction mid-edit. Once taken, the
	// tree is this call's to edit and to close.
	prev := e.cache.TakeLatest(filePath)
	if prev == nil {
		return e.AnalyzeFile(filePath, newContent)
	}

	provider, ok := e.registry.Provider(language)
	if !ok {
		prev.Tree.Close()
		return nil, cgerrors.NewUnsupportedLanguageError(filePath, filepath.Ext(filePath))
	}
	analyzer := e.analyzers[language]

	started := time.Now()
	tree, err := provider.Reparse(prev.Tree, edits, newContent)
	prev.Tree.Close()
	if err != nil {
		return nil, cgerrors.NewParseError(filePath, language, err)
	}

	result := analyzer.Analyze(tree.Root(), filePath)
	elapsed := time.Since(started)

	entry := &parsecache.Entry{
		Tree:          tree,
		Entities:      result.Entities,
		Relationships: result.Relationships,
		Imports:       result.Imports,
		ContentHash:   hash,
	}
	if result.Partial {
		tree.Close()
	} else {
		e.cache.Put(filePath, hash, entry)
	}

	pr := e.resultFrom(filePath, language, entry, false, elapsed)
	pr.Partial = result.Partial
	return pr, nil
}

// DetectCycles feeds one analyzed file into the dependency graph and returns
// every cycle now visible. Inheritance edges whose base name is qualified by
// an imported module ("pkg.Base", "m.Shape" under an alias) are resolved to
// that module through the file's import list; edges that name an unqualified
// or unimported base participate only if the analyzer set TargetFile itself.
func (e *Engine) DetectCycles(result *types.ParseResult) []*types.DependencyCycle {
	module := depgraph.NormalizeModuleID(result.FilePath)
	input := depgraph.FileInput{
		FilePath: result.FilePath,
		Imports:  result.Imports,
	}
	for _, rel := range result.Relationships {
		switch rel.Kind {
		case types.RelInherits, types.RelImplements:
			if rel.TargetFile != "" {
				input.Inheritance = append(input.Inheritance, rel)
				continue
			}
			target, ok := baseModule(rel.To, result.Imports, module)
			if !ok {
				continue
			}
			// Copy before enriching: the relationship slice is shared
			// with the cached entry.
			resolved := *rel
			resolved.TargetFile = target
			input.Inheritance = append(input.Inheritance, &resolved)
		case types.RelReferences, types.RelUses:
			if rel.TargetFile != "" {
				input.References = append(input.References, rel)
			}
		}
	}
	return e.detector.Detect(input)
}

// baseModule maps a qualified base-class name like "pkg.mod.Base" to the
// module its qualifier imports. Unqualified names live in their own file and
// contribute no cross-module edge.
func baseModule(to types.Target, imports []types.Import, module string) (string, bool) {
	if to.IsResolved() {
		return "", false
	}
	idx := strings.LastIndex(to.Value, ".")
	if idx <= 0 {
		return "", false
	}
	qualifier := to.Value[:idx]
	for _, imp := range imports {
		if !importBinds(imp, qualifier) {
			continue
		}
		if target, ok := depgraph.ResolveImport(imp.Specifier, module); ok {
			return target, true
		}
	}
	return "", false
}

// importBinds reports whether an import statement makes the qualifier name
// available in the file: by alias, by full dotted path, or by the last
// segment of the specifier.
func importBinds(imp types.Import, qualifier string) bool {
	if imp.Alias != "" {
		return imp.Alias == qualifier
	}
	spec := imp.Specifier
	if spec == qualifier {
		return true
	}
	if i := strings.LastIndexAny(spec, "./"); i >= 0 {
		return spec[i+1:] == qualifier
	}
	return false
}

// Store exposes the process-wide dependency store for warm starts.
func (e *Engine) Store() *depgraph.Store { return e.store }

// Cache exposes the parse cache for stats and shutdown.
func (e *Engine) Cache() *parsecache.Cache { return e.cache }

// Close releases every cached tree handle.
func (e *Engine) Close() {
	e.cache.Purge()
}

func (e *Engine) resultFrom(filePath, language string, entry *parsecache.Entry, fromCache bool, elapsed time.Duration) *types.ParseResult {
	return &types.ParseResult{
		FilePath:      filePath,
		Language:      language,
		Entities:      entry.Entities,
		Relationships: entry.Relationships,
		Imports:       entry.Imports,
		ContentHash:   entry.ContentHash,
		Timestamp:     time.Now(),
		ParseTimeMs:   float64(elapsed.Microseconds()) / 1000,
		FromCache:     fromCache,
	}
}

func contentHash(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

func traversalLimits(cfg *config.Config) traversal.Limits {
	return traversal.Limits{
		MaxDepth: cfg.Traversal.MaxRecursionDepth,
		Budget:   time.Duration(cfg.EffectiveTimeoutMs()) * time.Millisecond,
	}
}
