// Package traversal implements the bounded walk every language analyzer is
// built on: an explicit work-list over CST nodes with a recursion-depth
// counter and a wall-clock deadline checked on every step, plus an explicit
// container stack for the current module/type/function nesting.
//
// Source files are untrusted in size and shape. Both bounds are required:
// a flat-but-huge file defeats a depth bound, a deeply-recursive-but-small
// file defeats a time bound only after the fact. When either trips, the walk
// aborts with a circuit-breaker failure that analyzers recover at their own
// boundary, returning whatever was accumulated so far.
package traversal

import (
	"errors"
	"fmt"
	"time"

	"github.com/standardbeagle/codegraph/internal/cst"
	"github.com/standardbeagle/codegraph/internal/types"
)

const (
	// DefaultMaxDepth bounds CST nesting before the breaker trips.
	DefaultMaxDepth = 50
	// DefaultBudget bounds wall-clock time for one walk.
	DefaultBudget = 5 * time.Second
	// VerboseBudgetFactor extends the budget under verbose/debug mode.
	VerboseBudgetFactor = 6
)

// ErrCircuitBreaker is the distinguished failure signaled when a traversal
// bound is exceeded. Matched with errors.Is.
var ErrCircuitBreaker = errors.New("traversal circuit breaker tripped")

// BreakerReason says which bound tripped.
type BreakerReason string

const (
	BreakerDepth BreakerReason = "max_depth"
	BreakerTime  BreakerReason = "timeout"
)

// BreakerError carries the tripped bound and where the walk stopped.
type BreakerError struct {
	Reason BreakerReason
	Depth  int
	Spent  time.Duration
}

func (e *BreakerError) Error() string {
	return fmt.Sprintf("circuit breaker: %s at depth %d after %s", e.Reason, e.Depth, e.Spent)
}

func (e *BreakerError) Unwrap() error { return ErrCircuitBreaker }

// Limits configures the two traversal bounds.
type Limits struct {
	MaxDepth int
	Budget   time.Duration
}

// DefaultLimits returns the default bounds.
func DefaultLimits() Limits {
	return Limits{MaxDepth: DefaultMaxDepth, Budget: DefaultBudget}
}

// Visitor is implemented by language analyzers. Enter is called before a
// node's children are walked and decides whether to descend; returning a
// non-nil container makes the walker push it for the node's subtree and pop
// it on exit, on every exit path. Exit runs after the subtree (or not at all
// when the walk aborted inside it).
type Visitor interface {
	Enter(node cst.Node, ctx *Context) (descend bool, container *types.Entity)
	Exit(node cst.Node, ctx *Context)
}

// Context is the state threaded through one walk: bounds, accumulated
// output, and the explicit container stack. It is single-threaded; a fresh
// Context is built per analyze call.
type Context struct {
	FilePath string

	maxDepth int
	deadline time.Time
	started  time.Time

	depth      int
	containers []*types.Entity

	entities      []*types.Entity
	relationships []*types.Relationship
	imports       []types.Import
}

// NewContext builds the per-call traversal state. The deadline is computed
// once here and only compared during the walk.
func NewContext(filePath string, limits Limits) *Context {
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = DefaultMaxDepth
	}
	if limits.Budget <= 0 {
		limits.Budget = DefaultBudget
	}
	now := time.Now()
	return &Context{
		FilePath: filePath,
		maxDepth: limits.MaxDepth,
		deadline: now.Add(limits.Budget),
		started:  now,
	}
}

// Depth returns the current recursion depth.
func (ctx *Context) Depth() int { return ctx.depth }

// CurrentContainer returns the innermost enclosing container entity, or nil
// at file scope.
func (ctx *Context) CurrentContainer() *types.Entity {
	if len(ctx.containers) == 0 {
		return nil
	}
	return ctx.containers[len(ctx.containers)-1]
}

// ContainerDepth returns how many containers are currently open.
func (ctx *Context) ContainerDepth() int { return len(ctx.containers) }

// AddEntity records an extracted entity, nesting it under the current
// container when one is open.
func (ctx *Context) AddEntity(e *types.Entity) {
	if parent := ctx.CurrentContainer(); parent != nil {
		parent.Children = append(parent.Children, e)
		return
	}
	ctx.entities = append(ctx.entities, e)
}

// AddRelationship records a best-effort edge.
func (ctx *Context) AddRelationship(r *types.Relationship) {
	ctx.relationships = append(ctx.relationships, r)
}

// AddImport records a raw import statement.
func (ctx *Context) AddImport(imp types.Import) {
	ctx.imports = append(ctx.imports, imp)
}

// Result snapshots the accumulated output. Called by analyzers after the
// walk, including after a circuit-breaker abort.
func (ctx *Context) Result(partial bool) *types.AnalysisResult {
	return &types.AnalysisResult{
		Entities:      ctx.entities,
		Relationships: ctx.relationships,
		Imports:       ctx.imports,
		Partial:       partial,
	}
}

// unwind clears container state left behind by an aborted walk so partially
// pushed containers are never visible to the caller.
func (ctx *Context) unwind() {
	ctx.containers = ctx.containers[:0]
	ctx.depth = 0
}

// frame is one work-list slot. A node is pushed once, entered once, and its
// frame stays on the stack until every child frame above it is done, so
// depth and container pops pair exactly with their pushes.
type frame struct {
	node      cst.Node
	entered   bool
	container bool
}

// Walk drives the visitor over the tree with an explicit stack. The depth
// counter is the number of entered frames, which makes the depth bound exact
// regardless of host call-stack behavior. Returns nil on completion or a
// *BreakerError (wrapping ErrCircuitBreaker) on abort; the context keeps
// everything accumulated before the abort either way.
func Walk(root cst.Node, v Visitor, ctx *Context) error {
	if root == nil {
		return nil
	}

	stack := make([]frame, 0, 64)
	stack = append(stack, frame{node: root})

	for len(stack) > 0 {
		f := &stack[len(stack)-1]

		if f.entered {
			stack = stack[:len(stack)-1]
			ctx.depth--
			if f.container {
				ctx.containers = ctx.containers[:len(ctx.containers)-1]
			}
			v.Exit(f.node, ctx)
			continue
		}

		// Circuit breakers, checked on every step. A step either
		// continues or aborts; it never yields.
		ctx.depth++
		if ctx.depth > ctx.maxDepth {
			err := &BreakerError{Reason: BreakerDepth, Depth: ctx.depth, Spent: time.Since(ctx.started)}
			ctx.unwind()
			return err
		}
		if time.Now().After(ctx.deadline) {
			err := &BreakerError{Reason: BreakerTime, Depth: ctx.depth, Spent: time.Since(ctx.started)}
			ctx.unwind()
			return err
		}

		f.entered = true
		descend, container := v.Enter(f.node, ctx)
		if container != nil {
			ctx.containers = append(ctx.containers, container)
			f.container = true
		}
		if !descend {
			continue
		}

		// Children pushed in reverse so they pop in source order.
		for i := f.node.NamedChildCount() - 1; i >= 0; i-- {
			child := f.node.NamedChild(i)
			if child == nil {
				continue
			}
			stack = append(stack, frame{node: child})
		}
	}

	return nil
}
