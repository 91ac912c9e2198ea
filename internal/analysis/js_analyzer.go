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

// JavaScriptAnalyzer extracts entities and relationships from JavaScript
// CSTs. Both ES module imports and top-level require() calls yield import
// records.
type JavaScriptAnalyzer struct {
	limits traversal.Limits
	log    *logrus.Logger
}

func NewJavaScriptAnalyzer(limits traversal.Limits, log *logrus.Logger) *JavaScriptAnalyzer {
	return &JavaScriptAnalyzer{limits: limits, log: nopLogger(log)}
}

func (a *JavaScriptAnalyzer) Language() string { return "javascript" }

func (a *JavaScriptAnalyzer) Analyze(root cst.Node, filePath string) *types.AnalysisResult {
	ctx := traversal.NewContext(filePath, a.limits)
	v := &jsVisitor{filePath: filePath}

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

type jsVisitor struct {
	filePath string
	module   *types.Entity
}

func (v *jsVisitor) Enter(node cst.Node, ctx *traversal.Context) (bool, *types.Entity) {
	switch node.Kind() {
	case "program":
		name := strings.TrimSuffix(filepath.Base(v.filePath), filepath.Ext(v.filePath))
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
		if src := node.ChildByField("source"); src != nil {
			v.recordImport(strings.Trim(src.Text(), "'\"`"), node, ctx)
		}
		return false, nil

	case "class_declaration":
		e := v.classEntity(node, ctx)
		ctx.AddEntity(e)
		return true, e

	case "method_definition":
		name := fieldText(node, "name")
		e := &types.Entity{
			ID:         types.GenerateEntityID(v.filePath, types.KindMethod, name, node.StartByte()),
			Name:       name,
			Kind:       types.KindMethod,
			FilePath:   v.filePath,
			Span:       spanOf(node),
			Parameters: jsParameters(node.ChildByField("parameters")),
		}
		ctx.AddEntity(e)
		return true, e

	case "function_declaration", "generator_function_declaration":
		name := fieldText(node, "name")
		e := &types.Entity{
			ID:         types.GenerateEntityID(v.filePath, types.KindFunction, name, node.StartByte()),
			Name:       name,
			Kind:       types.KindFunction,
			FilePath:   v.filePath,
			Span:       spanOf(node),
			Parameters: jsParameters(node.ChildByField("parameters")),
		}
		ctx.AddEntity(e)
		return true, e

	case "variable_declarator":
		v.addDeclarator(node, ctx)
		return true, nil

	case "call_expression":
		v.addCall(node, ctx)
		return true, nil
	}

	return true, nil
}

func (v *jsVisitor) Exit(cst.Node, *traversal.Context) {}

func (v *jsVisitor) recordImport(specifier string, node cst.Node, ctx *traversal.Context) {
	if specifier == "" {
		return
	}
	ctx.AddImport(types.Import{
		Specifier: specifier,
		Line:      int(node.StartPoint().Row) + 1,
	})
	ctx.AddRelationship(&types.Relationship{
		From:       types.ResolvedTarget(v.module.ID),
		To:         types.UnresolvedTarget(specifier),
		Kind:       types.RelImports,
		SourceFile: v.filePath,
	})
}

func (v *jsVisitor) classEntity(node cst.Node, ctx *traversal.Context) *types.Entity {
	name := fieldText(node, "name")
	e := &types.Entity{
		ID:       types.GenerateEntityID(v.filePath, types.KindClass, name, node.StartByte()),
		Name:     name,
		Kind:     types.KindClass,
		FilePath: v.filePath,
		Span:     spanOf(node),
	}

	// class_heritage wraps the `extends` clause.
	for i := 0; i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() != "class_heritage" {
			continue
		}
		for j := 0; j < child.NamedChildCount(); j++ {
			base := child.NamedChild(j)
			if base == nil {
				continue
			}
			switch base.Kind() {
			case "identifier", "member_expression":
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

// addDeclarator records `const x = ...`; a require() initializer also counts
// as an import.
func (v *jsVisitor) addDeclarator(node cst.Node, ctx *traversal.Context) {
	name := fieldText(node, "name")
	if name == "" {
		return
	}
	ctx.AddEntity(&types.Entity{
		ID:       types.GenerateEntityID(v.filePath, types.KindVariable, name, node.StartByte()),
		Name:     name,
		Kind:     types.KindVariable,
		FilePath: v.filePath,
		Span:     spanOf(node),
	})

	value := node.ChildByField("value")
	if value == nil || value.Kind() != "call_expression" {
		return
	}
	fn := value.ChildByField("function")
	if fn == nil || fn.Text() != "require" {
		return
	}
	args := value.ChildByField("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return
	}
	if arg := args.NamedChild(0); arg != nil && arg.Kind() == "string" {
		v.recordImport(strings.Trim(arg.Text(), "'\"`"), node, ctx)
	}
}

func (v *jsVisitor) addCall(node cst.Node, ctx *traversal.Context) {
	fn := node.ChildByField("function")
	if fn == nil {
		return
	}
	var callee string
	switch fn.Kind() {
	case "identifier":
		callee = fn.Text()
	case "member_expression":
		callee = fieldText(fn, "property")
	default:
		return
	}
	if callee == "" || callee == "require" {
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

func jsParameters(list cst.Node) []types.Parameter {
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
		case "assignment_pattern":
			params = append(params, types.Parameter{
				Name:     fieldText(p, "left"),
				Optional: true,
			})
		case "rest_pattern":
			params = append(params, types.Parameter{Name: strings.TrimPrefix(p.Text(), "...")})
		}
	}
	return params
}
