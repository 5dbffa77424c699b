package chtl_eval_test

import (
	"testing"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_ast"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_eval"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_testutil"
)

func num(v string, unit string) chtl_ast.Expr {
	return chtl_ast.Expr{Data: &chtl_ast.ENumberLiteral{Value: v, Unit: unit}}
}

func TestArithmeticAddsAndReconcilesUnit(t *testing.T) {
	expr := chtl_ast.Expr{Data: &chtl_ast.EInfix{Left: num("100", "px"), Op: "+", Right: num("50", "")}}
	got := chtl_eval.Eval(expr, nil, nil, nil)
	n, ok := got.(chtl_eval.Number)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, n.Value, 150.0)
	chtl_testutil.AssertEqual(t, n.Unit, "px")
}

func TestUnitMismatchIsAnError(t *testing.T) {
	expr := chtl_ast.Expr{Data: &chtl_ast.EInfix{Left: num("100", "px"), Op: "+", Right: num("50", "em")}}
	got := chtl_eval.Eval(expr, nil, nil, nil)
	_, ok := got.(chtl_eval.Error)
	chtl_testutil.AssertEqual(t, ok, true)
}

func TestComparisonProducesBoolean(t *testing.T) {
	expr := chtl_ast.Expr{Data: &chtl_ast.EInfix{Left: num("100", "px"), Op: ">", Right: num("50", "px")}}
	got := chtl_eval.Eval(expr, nil, nil, nil)
	b, ok := got.(chtl_eval.Boolean)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, b.Value, true)
}

func TestConditionalSelectsThenOrElse(t *testing.T) {
	cond := chtl_ast.Expr{Data: &chtl_ast.EInfix{Left: num("100", "px"), Op: ">", Right: num("50", "px")}}
	thenE := chtl_ast.Expr{Data: &chtl_ast.EStringLiteral{Value: "red"}}
	elseE := chtl_ast.Expr{Data: &chtl_ast.EStringLiteral{Value: "blue"}}
	expr := chtl_ast.Expr{Data: &chtl_ast.EConditional{Cond: cond, Then: thenE, Else: &elseE}}
	got := chtl_eval.Eval(expr, nil, nil, nil)
	s, ok := got.(chtl_eval.String)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, s.Value, "red")
}

func TestConditionalOnNonBooleanIsAnError(t *testing.T) {
	cond := chtl_ast.Expr{Data: &chtl_ast.EStringLiteral{Value: "not a bool"}}
	thenE := chtl_ast.Expr{Data: &chtl_ast.EStringLiteral{Value: "x"}}
	expr := chtl_ast.Expr{Data: &chtl_ast.EConditional{Cond: cond, Then: thenE}}
	got := chtl_eval.Eval(expr, nil, nil, nil)
	_, ok := got.(chtl_eval.Error)
	chtl_testutil.AssertEqual(t, ok, true)
}

func TestPropertyAccessReadsFromDocumentMap(t *testing.T) {
	doc := chtl_eval.DocumentMap{"box": {"width": num("100", "px")}}
	expr := chtl_ast.Expr{Data: &chtl_ast.EPropertyAccess{
		Object:   chtl_ast.Expr{Data: &chtl_ast.EUnquotedLiteral{Value: "#box"}},
		Property: "width",
	}}
	got := chtl_eval.Eval(expr, nil, nil, doc)
	n, ok := got.(chtl_eval.Number)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, n.Value, 100.0)
	chtl_testutil.AssertEqual(t, n.Unit, "px")
}

func TestPropertyAccessMissingElementIsAnError(t *testing.T) {
	expr := chtl_ast.Expr{Data: &chtl_ast.EPropertyAccess{
		Object:   chtl_ast.Expr{Data: &chtl_ast.EUnquotedLiteral{Value: "#missing"}},
		Property: "width",
	}}
	got := chtl_eval.Eval(expr, nil, nil, chtl_eval.DocumentMap{})
	_, ok := got.(chtl_eval.Error)
	chtl_testutil.AssertEqual(t, ok, true)
}

func TestVarTemplateFunctionCallLooksUpAttribute(t *testing.T) {
	v := chtl_ast.Expr{Data: &chtl_ast.EStringLiteral{Value: "16px"}}
	def := &chtl_ast.STemplateDefinition{
		Name: "Theme", Kind: chtl_ast.VarKind,
		Body: []chtl_ast.Stmt{{Data: &chtl_ast.SAttribute{Name: "base", Value: &v}}},
	}
	lookup := func(name string) (*chtl_ast.STemplateDefinition, bool) {
		if name == "Theme" {
			return def, true
		}
		return nil, false
	}
	expr := chtl_ast.Expr{Data: &chtl_ast.EFunctionCall{
		Callee: chtl_ast.Expr{Data: &chtl_ast.EIdentifier{Name: "Theme"}},
		Args:   []chtl_ast.Expr{{Data: &chtl_ast.EIdentifier{Name: "base"}}},
	}}
	got := chtl_eval.Eval(expr, nil, lookup, nil)
	s, ok := got.(chtl_eval.String)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, s.Value, "16px")
}

func TestIdentifierResolvesAgainstEnvBeforeFallingBackToItsOwnName(t *testing.T) {
	env := chtl_eval.Env{"width": chtl_eval.Number{Value: 100, Unit: "px"}}
	expr := chtl_ast.Expr{Data: &chtl_ast.EIdentifier{Name: "width"}}
	got := chtl_eval.Eval(expr, env, nil, nil)
	n, ok := got.(chtl_eval.Number)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, n.Value, 100.0)

	expr2 := chtl_ast.Expr{Data: &chtl_ast.EIdentifier{Name: "unbound"}}
	got2 := chtl_eval.Eval(expr2, env, nil, nil)
	s, ok := got2.(chtl_eval.String)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, s.Value, "unbound")
}

func TestStringifyFormatsNumberWithUnit(t *testing.T) {
	n := chtl_eval.Number{Value: 150, Unit: "px"}
	chtl_testutil.AssertEqual(t, n.Stringify(), "150px")
}
