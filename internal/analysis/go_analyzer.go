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

// GoAnalyzer extracts entities and relationships from Go CSTs. It is the
// reference implementation of the bounded traversal contract; analyzers for
// other grammars follow the same shape with different node-kind tables.
type GoAnalyzer struct {
	limits traversal.Limits
	log    *logrus.Logger
}

// NewGoAnalyzer creates a Go analyzer with the given traversal bounds.
func NewGoAnalyzer(limits traversal.Limits, log *logrus.Logger) *GoAnalyzer {
	return &GoAnalyzer{limits: limits, log: nopLogger(log)}
}

// Language returns the grammar name.
func (a *GoAnalyzer) Language() string { return "go" }

// Analyze walks the CST and returns normalized entities, relationships, and
// imports. A circuit-breaker abort is recovered here: the result is marked
// partial and carries everything accumulated before the trip.
func (a *GoAnalyzer) Analyze(root cst.Node, filePath string) *types.AnalysisResult {
	ctx := traversal.NewContext(filePath, a.limits)
	v := &goVisitor{filePath: filePath}

	if err := traversal.Walk(root, v, ctx); err != nil {
		if errors.Is(err, traversal.ErrCircuitBreaker) {
			a.log.WithFields(logrus.Fields{
				"file":  filePath,
				"error": err.Error(),
			}).Warn("analysis aborted by circuit breaker, returning partial results")
			return ctx.Result(true)
		}
		// Walk signals no other failure today; treat anything new the
		// same way rather than drop accumulated output.
		return ctx.Result(true)
	}
	return ctx.Result(false)
}

// goVisitor holds per-walk state beyond the traversal context.
type goVisitor struct {
	filePath string
	module   *types.Entity
}

func (v *goVisitor) Enter(node cst.Node, ctx *traversal.Context) (bool, *types.Entity) {
	switch node.Kind() {
	case "source_file":
		v.module = v.moduleEntity(node)
		ctx.AddEntity(v.module)
		return true, v.module

	case "import_declaration":
		return true, nil

	case "import_spec":
		v.addImport(node, ctx)
		return false, nil

	case "function_declaration":
		e := v.callableEntity(node, types.KindFunction)
		ctx.AddEntity(e)
		return true, e

	case "method_declaration":
		e := v.callableEntity(node, types.KindMethod)
		if recv := node.ChildByField("receiver"); recv != nil {
			e.Attributes = map[string]string{"receiver": strings.TrimSpace(recv.Text())}
		}
		ctx.AddEntity(e)
		return true, e

	case "type_spec":
		e := v.typeEntity(node)
		ctx.AddEntity(e)
		return true, e

	case "field_declaration":
		v.addFields(node, ctx)
		return false, nil

	case "method_spec", "method_elem":
		e := v.callableEntity(node, types.KindMethod)
		ctx.AddEntity(e)
		return false, nil

	case "const_spec":
		v.addValueNames(node, types.KindConstant, ctx)
		return false, nil

	case "var_spec":
		v.addValueNames(node, types.KindVariable, ctx)
		return false, nil

	case "call_expression":
		v.addCall(node, ctx)
		return true, nil
	}

	return true, nil
}

func (v *goVisitor) Exit(cst.Node, *traversal.Context) {}

// moduleEntity builds the file-scope container from the package clause.
func (v *goVisitor) moduleEntity(root cst.Node) *types.Entity {
	name := strings.TrimSuffix(filepath.Base(v.filePath), ".go")
	for i := 0; i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child == nil || child.Kind() != "package_clause" {
			continue
		}
		for j := 0; j < child.NamedChildCount(); j++ {
			if id := child.NamedChild(j); id != nil && id.Kind() == "package_identifier" {
				name = id.Text()
			}
		}
		break
	}
	return &types.Entity{
		ID:       types.GenerateEntityID(v.filePath, types.KindModule, name, root.StartByte()),
		Name:     name,
		Kind:     types.KindModule,
		FilePath: v.filePath,
		Span:     spanOf(root),
	}
}

func (v *goVisitor) addImport(node cst.Node, ctx *traversal.Context) {
	path := node.ChildByField("path")
	if path == nil {
		return
	}
	specifier := strings.Trim(path.Text(), "\"`")
	if specifier == "" {
		return
	}
	imp := types.Import{
		Specifier: specifier,
		Line:      int(node.StartPoint().Row) + 1,
	}
	if alias := node.ChildByField("name"); alias != nil {
		imp.Alias = alias.Text()
	}
	ctx.AddImport(imp)
	ctx.AddRelationship(&types.Relationship{
		From:       types.ResolvedTarget(v.module.ID),
		To:         types.UnresolvedTarget(specifier),
		Kind:       types.RelImports,
		SourceFile: v.filePath,
	})
}

// callableEntity builds a function or method entity with its signature.
func (v *goVisitor) callableEntity(node cst.Node, kind types.EntityKind) *types.Entity {
	name := fieldText(node, "name")
	e := &types.Entity{
		ID:         types.GenerateEntityID(v.filePath, kind, name, node.StartByte()),
		Name:       name,
		Kind:       kind,
		FilePath:   v.filePath,
		Span:       spanOf(node),
		Parameters: extractParameters(node.ChildByField("parameters")),
	}
	if result := node.ChildByField("result"); result != nil {
		e.ReturnType = result.Text()
	}
	if isExported(name) {
		e.Modifiers = append(e.Modifiers, "exported")
	}
	return e
}

func (v *goVisitor) typeEntity(node cst.Node) *types.Entity {
	name := fieldText(node, "name")
	kind := types.KindTypeAlias
	if t := node.ChildByField("type"); t != nil {
		switch t.Kind() {
		case "struct_type":
			kind = types.KindStruct
		case "interface_type":
			kind = types.KindInterface
		}
	}
	e := &types.Entity{
		ID:       types.GenerateEntityID(v.filePath, kind, name, node.StartByte()),
		Name:     name,
		Kind:     kind,
		FilePath: v.filePath,
		Span:     spanOf(node),
	}
	if isExported(name) {
		e.Modifiers = append(e.Modifiers, "exported")
	}
	return e
}

// addFields emits field entities for a struct field declaration. An embedded
// type (no field name) becomes an inherits edge instead.
func (v *goVisitor) addFields(node cst.Node, ctx *traversal.Context) {
	typeText := fieldText(node, "type")

	var named bool
	for i := 0; i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() != "field_identifier" {
			continue
		}
		named = true
		ctx.AddEntity(&types.Entity{
			ID:         types.GenerateEntityID(v.filePath, types.KindField, child.Text(), child.StartByte()),
			Name:       child.Text(),
			Kind:       types.KindField,
			FilePath:   v.filePath,
			Span:       spanOf(node),
			ReturnType: typeText,
		})
	}

	if !named {
		// Embedded type: the whole declaration is the type name.
		base := strings.TrimPrefix(strings.TrimSpace(node.Text()), "*")
		if base == "" {
			return
		}
		from := types.UnresolvedTarget(v.filePath)
		if c := ctx.CurrentContainer(); c != nil {
			from = types.ResolvedTarget(c.ID)
		}
		ctx.AddRelationship(&types.Relationship{
			From:       from,
			To:         types.UnresolvedTarget(base),
			Kind:       types.RelInherits,
			SourceFile: v.filePath,
		})
	}
}

func (v *goVisitor) addValueNames(node cst.Node, kind types.EntityKind, ctx *traversal.Context) {
	typeText := fieldText(node, "type")
	for i := 0; i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() != "identifier" {
			continue
		}
		ctx.AddEntity(&types.Entity{
			ID:         types.GenerateEntityID(v.filePath, kind, child.Text(), child.StartByte()),
			Name:       child.Text(),
			Kind:       kind,
			FilePath:   v.filePath,
			Span:       spanOf(node),
			ReturnType: typeText,
		})
	}
}

// addCall records a best-effort call edge from the innermost container to
// the callee name. The target stays symbolic; cross-file resolution is the
// dependency detector's job.
func (v *goVisitor) addCall(node cst.Node, ctx *traversal.Context) {
	fn := node.ChildByField("function")
	if fn == nil {
		return
	}
	var callee string
	switch fn.Kind() {
	case "identifier":
		callee = fn.Text()
	case "selector_expression":
		callee = fieldText(fn, "field")
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

// extractParameters flattens a parameter_list into the normalized shape.
func extractParameters(list cst.Node) []types.Parameter {
	if list == nil {
		return nil
	}
	var params []types.Parameter
	for i := 0; i < list.NamedChildCount(); i++ {
		decl := list.NamedChild(i)
		if decl == nil {
			continue
		}
		switch decl.Kind() {
		case "parameter_declaration", "variadic_parameter_declaration":
		default:
			continue
		}
		typeText := fieldText(decl, "type")

		var named bool
		for j := 0; j < decl.NamedChildCount(); j++ {
			id := decl.NamedChild(j)
			if id == nil || id.Kind() != "identifier" {
				continue
			}
			named = true
			params = append(params, types.Parameter{Name: id.Text(), Type: typeText})
		}
		if !named && typeText != "" {
			// Unnamed parameter, e.g. in interface method specs.
			params = append(params, types.Parameter{Type: typeText})
		}
	}
	return params
}

func fieldText(node cst.Node, field string) string {
	if child := node.ChildByField(field); child != nil {
		return child.Text()
	}
	return ""
}

func spanOf(node cst.Node) types.Span {
	start, end := node.StartPoint(), node.EndPoint()
	return types.Span{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column),
		StartByte: node.StartByte(),
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column),
		EndByte:   node.EndByte(),
	}
}

func isExported(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}
