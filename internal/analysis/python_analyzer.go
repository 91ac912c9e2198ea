package analysis

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/standardbeagle/codegraph/internal/cst"
	"github.com/standardbeagle/codegraph/internal/traversal"
	"github.com/standardbeagle/codegraph/internal/types"
)

// PythonAnalyzer extracts entities and relationships from Python CSTs.
// Relative import specifiers keep their leading dots so the dependency
// resolver can interpret them.
type PythonAnalyzer struct {
	limits traversal.Limits
	log    *logrus.Logger
}

func NewPythonAnalyzer(limits traversal.Limits, log *logrus.Logger) *PythonAnalyzer {
	return &PythonAnalyzer{limits: limits, log: nopLogger(log)}
}

func (a *PythonAnalyzer) Language() string { return "python" }

func (a *PythonAnalyzer) Analyze(root cst.Node, filePath string) *types.AnalysisResult {
	ctx := traversal.NewContext(filePath, a.limits)
	v := &pyVisitor{filePath: filePath}

	if err := traversal.Walk(root, v, ctx); err != nil {
		if errors.Is(err, traversal.ErrCircuitBreaker) {
			a.log.WithFields(logrus.Fields{
				"file":  filePath,
				"error": err.Error(),
			}).Warn("analysis aborted by circuit breaker, returning partial results")
		}
		return ctx.Result(true)
	}
	return ctx.Result(false)
}

type pyVisitor struct {
	filePath string
	module   *types.Entity
}

func (v *pyVisitor) Enter(node cst.Node, ctx *traversal.Context) (bool, *types.Entity) {
	switch node.Kind() {
	case "module":
		name := strings.TrimSuffix(filepath.Base(v.filePath), ".py")
		v.module = &types.Entity{
			ID:       types.GenerateEntityID(v.filePath, types.KindModule, name, node.StartByte()),
			Name:     name,
			Kind:     types.KindModule,
			FilePath: v.filePath,
			Span:     spanOf(node),
		}
		ctx.AddEntity(v.module)
		return true, v.module

	case "import_statement":
		v.addPlainImports(node, ctx)
		return false, nil

	case "import_from_statement":
		v.addFromImport(node, ctx)
		return false, nil

	case "class_definition":
		e := v.classEntity(node, ctx)
		ctx.AddEntity(e)
		return true, e

	case "function_definition":
		kind := types.KindFunction
		if c := ctx.CurrentContainer(); c != nil && c.Kind == types.KindClass {
			kind = types.KindMethod
		}
		e := v.callableEntity(node, kind)
		ctx.AddEntity(e)
		return true, e

	case "decorated_definition":
		return true, nil

	case "call":
		v.addCall(node, ctx)
		return true, nil
	}

	return true, nil
}

func (v *pyVisitor) Exit(cst.Node, *traversal.Context) {}

// addPlainImports handles `import a.b, c as d`.
func (v *pyVisitor) addPlainImports(node cst.Node, ctx *traversal.Context) {
	for i := 0; i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			v.recordImport(child.Text(), "", child, ctx)
		case "aliased_import":
			name := fieldText(child, "name")
			v.recordImport(name, fieldText(child, "alias"), child, ctx)
		}
	}
}

// addFromImport handles `from .pkg import x`: the specifier is the module
// clause only, dots included, which is what the edge resolver needs.
func (v *pyVisitor) addFromImport(node cst.Node, ctx *traversal.Context) {
	mod := node.ChildByField("module_name")
	if mod == nil {
		return
	}
	v.recordImport(mod.Text(), "", mod, ctx)
}

func (v *pyVisitor) recordImport(specifier, alias string, node cst.Node, ctx *traversal.Context) {
	if specifier == "" {
		return
	}
	ctx.AddImport(types.Import{
		Specifier: specifier,
		Alias:     alias,
		Line:      int(node.StartPoint().Row) + 1,
	})
	ctx.AddRelationship(&types.Relationship{
		From:       types.ResolvedTarget(v.module.ID),
		To:         types.UnresolvedTarget(specifier),
		Kind:       types.RelImports,
		SourceFile: v.filePath,
	})
}

func (v *pyVisitor) classEntity(node cst.Node, ctx *traversal.Context) *types.Entity {
	name := fieldText(node, "name")
	e := &types.Entity{
		ID:       types.GenerateEntityID(v.filePath, types.KindClass, name, node.StartByte()),
		Name:     name,
		Kind:     types.KindClass,
		FilePath: v.filePath,
		Span:     spanOf(node),
	}

	if supers := node.ChildByField("superclasses"); supers != nil {
		for i := 0; i < supers.NamedChildCount(); i++ {
			base := supers.NamedChild(i)
			if base == nil {
				continue
			}
			switch base.Kind() {
			case "identifier", "attribute", "dotted_name":
				ctx.AddRelationship(&types.Relationship{
					From:       types.ResolvedTarget(e.ID),
					To:         types.UnresolvedTarget(base.Text()),
					Kind:       types.RelInherits,
					SourceFile: v.filePath,
				})
			}
		}
	}
	return e
}

func (v *pyVisitor) callableEntity(node cst.Node, kind types.EntityKind) *types.Entity {
	name := fieldText(node, "name")
	e := &types.Entity{
		ID:         types.GenerateEntityID(v.filePath, kind, name, node.StartByte()),
		Name:       name,
		Kind:       kind,
		FilePath:   v.filePath,
		Span:       spanOf(node),
		Parameters: pyParameters(node.ChildByField("parameters")),
	}
	if ret := node.ChildByField("return_type"); ret != nil {
		e.ReturnType = ret.Text()
	}
	if strings.HasPrefix(name, "_") && !strings.HasPrefix(name, "__") {
		e.Modifiers = append(e.Modifiers, "private")
	}
	return e
}

func (v *pyVisitor) addCall(node cst.Node, ctx *traversal.Context) {
	fn := node.ChildByField("function")
	if fn == nil {
		return
	}
	var callee string
	switch fn.Kind() {
	case "identifier":
		callee = fn.Text()
	case "attribute":
		callee = fieldText(fn, "attribute")
	default:
		return
	}
	if callee == "" {
		return
	}

	from := types.UnresolvedTarget(v.filePath)
	if c := ctx.CurrentContainer(); c != nil {
		from = types.ResolvedTarget(c.ID)
	}
	ctx.AddRelationship(&types.Relationship{
		From:       from,
		To:         types.UnresolvedTarget(callee),
		Kind:       types.RelCalls,
		SourceFile: v.filePath,
	})
}

func pyParameters(list cst.Node) []types.Parameter {
	if list == nil {
		return nil
	}
	var params []types.Parameter
	for i := 0; i < list.NamedChildCount(); i++ {
		p := list.NamedChild(i)
		if p == nil {
			continue
		}
		switch p.Kind() {
		case "identifier":
			params = append(params, types.Parameter{Name: p.Text()})
		case "typed_parameter":
			param := types.Parameter{Type: fieldText(p, "type")}
			for j := 0; j < p.NamedChildCount(); j++ {
				if id := p.NamedChild(j); id != nil && id.Kind() == "identifier" {
					param.Name = id.Text()
					break
				}
			}
			params = append(params, param)
		case "default_parameter":
			params = append(params, types.Parameter{
				Name:     fieldText(p, "name"),
				Optional: true,
			})
		case "typed_default_parameter":
			params = append(params, types.Parameter{
				Name:     fieldText(p, "name"),
				Type:     fieldText(p, "type"),
				Optional: true,
			})
		}
	}
	return params
}
