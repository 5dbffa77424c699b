// Package chtl_eval implements the pure expression evaluator described in
// spec section 4.4: a function of (expression, environment, template
// lookup, document map) that always returns exactly one Object — numbers
// carry a unit, errors are values rather than panics.
package chtl_eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_ast"
)

// Object is the runtime value produced by evaluating an Expression.
type Object interface {
	isObject()
	// Stringify renders the value the way it should appear in generated
	// HTML/CSS text: numbers as "<value><unit>", booleans as "true"/"false",
	// strings verbatim, errors as the empty string (spec 4.4/4.7).
	Stringify() string
	// Truthy implements spec 4.4's truthiness rule for `if`/conditional.
	Truthy() bool
}

type Number struct {
	Value float64
	Unit  string
}

type String struct{ Value string }

type Boolean struct{ Value bool }

type Error struct{ Message string }

func (Number) isObject()  {}
func (String) isObject()  {}
func (Boolean) isObject() {}
func (Error) isObject()   {}

func (n Number) Stringify() string { return formatNumber(n.Value) + n.Unit }
func (s String) Stringify() string { return s.Value }
func (b Boolean) Stringify() string {
	if b.Value {
		return "true"
	}
	return "false"
}
func (Error) Stringify() string { return "" }

func (n Number) Truthy() bool  { return n.Value != 0 }
func (s String) Truthy() bool  { return s.Value != "" }
func (b Boolean) Truthy() bool { return b.Value }
func (Error) Truthy() bool     { return false }

func formatNumber(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Env is the environment expressions are evaluated against: property names
// (or var-template argument names) already bound to a value within the
// current style block or var template.
type Env map[string]Object

// TemplateLookup resolves a template name visible from the current
// compilation context to its definition, used for FunctionCall and
// PropertyAccess. It is supplied by the resolver/generator, not this
// package, to keep the evaluator free of namespace-resolution state.
type TemplateLookup func(name string) (*chtl_ast.STemplateDefinition, bool)

// DocumentMap maps an element id to its raw (unevaluated) property
// expressions, populated by the generator for cross-element references
// (spec section 3's DocumentMap, section 4.8 step 2).
type DocumentMap map[string]map[string]chtl_ast.Expr

// Eval is the pure evaluator entry point.
func Eval(expr chtl_ast.Expr, env Env, templates TemplateLookup, doc DocumentMap) Object {
	switch e := expr.Data.(type) {
	case *chtl_ast.EStringLiteral:
		return String{Value: e.Value}

	case *chtl_ast.ENumberLiteral:
		v, err := strconv.ParseFloat(e.Value, 64)
		if err != nil {
			return Error{Message: "invalid number literal " + e.Value}
		}
		return Number{Value: v, Unit: e.Unit}

	case *chtl_ast.EIdentifier:
		if env != nil {
			if v, ok := env[e.Name]; ok {
				return v
			}
		}
		return String{Value: e.Name}

	case *chtl_ast.EUnquotedLiteral:
		if env != nil {
			if v, ok := env[e.Value]; ok {
				return v
			}
		}
		return String{Value: e.Value}

	case *chtl_ast.EInfix:
		return evalInfix(e, env, templates, doc)

	case *chtl_ast.EConditional:
		cond := Eval(e.Cond, env, templates, doc)
		b, ok := cond.(Boolean)
		if !ok {
			return Error{Message: "condition must evaluate to a boolean"}
		}
		if b.Value {
			return Eval(e.Then, env, templates, doc)
		}
		if e.Else == nil {
			return String{Value: ""}
		}
		return Eval(*e.Else, env, templates, doc)

	case *chtl_ast.EFunctionCall:
		return evalFunctionCall(e, templates)

	case *chtl_ast.EPropertyAccess:
		return evalPropertyAccess(e, env, templates, doc)

	case *chtl_ast.EIndex:
		// Index expressions ("Name[k]") only appear as ElementSpecializer
		// insert/delete targets, never as evaluable value expressions; the
		// evaluator has no well-defined semantics for them.
		return Error{Message: "index expression is not a value"}

	case *chtl_ast.EResponsiveValue:
		return String{Value: "$" + e.Name + "$"}
	}
	return Error{Message: "unknown expression"}
}

func evalInfix(e *chtl_ast.EInfix, env Env, templates TemplateLookup, doc DocumentMap) Object {
	left := Eval(e.Left, env, templates, doc)
	right := Eval(e.Right, env, templates, doc)

	ln, lok := left.(Number)
	rn, rok := right.(Number)
	if !lok || !rok {
		return Error{Message: fmt.Sprintf("type mismatch for operator %s", e.Op)}
	}
	if ln.Unit != "" && rn.Unit != "" && ln.Unit != rn.Unit {
		return Error{Message: fmt.Sprintf("unit mismatch: %s and %s", ln.Unit, rn.Unit)}
	}
	unit := ln.Unit
	if unit == "" {
		unit = rn.Unit
	}

	switch e.Op {
	case "+":
		return Number{Value: ln.Value + rn.Value, Unit: unit}
	case "-":
		return Number{Value: ln.Value - rn.Value, Unit: unit}
	case "*":
		return Number{Value: ln.Value * rn.Value, Unit: unit}
	case "/":
		return Number{Value: ln.Value / rn.Value, Unit: unit}
	case "%":
		return Number{Value: math.Mod(ln.Value, rn.Value), Unit: unit}
	case "**":
		return Number{Value: math.Pow(ln.Value, rn.Value), Unit: unit}
	case ">":
		return Boolean{Value: ln.Value > rn.Value}
	case "<":
		return Boolean{Value: ln.Value < rn.Value}
	}
	return Error{Message: "unknown operator " + e.Op}
}

func evalFunctionCall(e *chtl_ast.EFunctionCall, templates TemplateLookup) Object {
	callee, ok := e.Callee.Data.(*chtl_ast.EIdentifier)
	if !ok {
		return Error{Message: "function call target must be an identifier"}
	}
	if templates == nil || len(e.Args) == 0 {
		return Error{Message: "unknown function " + callee.Name}
	}
	def, ok := templates(callee.Name)
	if !ok || def.Kind != chtl_ast.VarKind {
		return Error{Message: "no var template named " + callee.Name}
	}
	argIdent, ok := e.Args[0].Data.(*chtl_ast.EIdentifier)
	if !ok {
		return Error{Message: "var template argument must be an identifier"}
	}
	for _, stmt := range def.Body {
		attr, ok := stmt.Data.(*chtl_ast.SAttribute)
		if !ok || attr.Name != argIdent.Name || attr.Value == nil {
			continue
		}
		return Eval(*attr.Value, nil, templates, nil)
	}
	return Error{Message: "var template " + callee.Name + " has no attribute " + argIdent.Name}
}

func evalPropertyAccess(e *chtl_ast.EPropertyAccess, env Env, templates TemplateLookup, doc DocumentMap) Object {
	obj := Eval(e.Object, env, templates, doc)
	s, ok := obj.(String)
	if !ok {
		return Error{Message: "property access target must evaluate to a string"}
	}
	id := strings.TrimLeft(s.Value, "#.")
	if doc == nil {
		return Error{Message: "element " + id + " not found"}
	}
	props, ok := doc[id]
	if !ok {
		return Error{Message: "element " + id + " not found"}
	}
	raw, ok := props[e.Property]
	if !ok {
		return Error{Message: "element " + id + " has no property " + e.Property}
	}
	// Evaluated with an empty environment: this deliberately disallows
	// circular intra-element references (spec 4.4).
	return Eval(raw, nil, templates, doc)
}
