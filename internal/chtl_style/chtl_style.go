// Package chtl_style implements the style expansion algorithm of spec
// section 4.6: applying a Style-kind template (with inheritance and nested
// usage) into a target property map, processing a specialization body's
// overrides and deletes, and emitting global CSS for style-rule children.
package chtl_style

import (
	"sort"
	"strings"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_ast"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_eval"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_logger"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_resolve"
)

// Apply expands def (a Style-kind template defined in definingNS) into
// target, evaluating against env, then layers specBody's overrides/deletes
// on top. env and target are both mutated: target gains the effective
// properties, env gains them too so later evaluations in the enclosing
// style block see the values (spec 4.6 step 5).
func Apply(
	r *chtl_resolve.Resolver,
	log chtl_logger.Log,
	def *chtl_ast.STemplateDefinition,
	definingNS string,
	env chtl_eval.Env,
	target chtl_eval.Env,
	specBody []chtl_ast.Stmt,
	templates chtl_eval.TemplateLookup,
	doc chtl_eval.DocumentMap,
) {
	applied := chtl_eval.Env{}
	expandBase(r, log, def.Body, definingNS, applied, env, templates, doc)

	for _, stmt := range specBody {
		switch s := stmt.Data.(type) {
		case *chtl_ast.SAttribute:
			if s.Value == nil {
				continue
			}
			val := chtl_eval.Eval(*s.Value, env, templates, doc)
			applied[s.Name] = val
			env[s.Name] = val
		case *chtl_ast.SDelete:
			for _, t := range s.Targets {
				applyDelete(r, applied, env, t)
			}
		}
	}

	for k, v := range applied {
		target[k] = v
	}
}

// expandBase walks a Style template's body once, per spec 4.6 steps 1-3:
// Inherit recurses with no specialization, Attribute evaluates into
// applied+env, nested UseTemplate(style) recurses with no specialization.
func expandBase(
	r *chtl_resolve.Resolver,
	log chtl_logger.Log,
	body []chtl_ast.Stmt,
	ns string,
	applied chtl_eval.Env,
	env chtl_eval.Env,
	templates chtl_eval.TemplateLookup,
	doc chtl_eval.DocumentMap,
) {
	for _, stmt := range body {
		switch s := stmt.Data.(type) {
		case *chtl_ast.SInherit:
			if s.Kind != chtl_ast.StyleKind {
				continue
			}
			def, defNS, ok := r.Lookup(ns, s.FromNS, s.Name, chtl_ast.StyleKind)
			if !ok {
				log.AddWarningNoLoc("inherited style template not found: " + s.Name)
				continue
			}
			expandBase(r, log, def.Body, defNS, applied, env, templates, doc)

		case *chtl_ast.SAttribute:
			if s.Value == nil {
				continue
			}
			val := chtl_eval.Eval(*s.Value, env, templates, doc)
			applied[s.Name] = val
			env[s.Name] = val

		case *chtl_ast.SUseTemplate:
			if s.Kind != chtl_ast.StyleKind {
				continue
			}
			def, defNS, ok := r.Lookup(ns, s.FromNS, s.Name, chtl_ast.StyleKind)
			if !ok {
				log.AddWarningNoLoc("style template not found: " + s.Name)
				continue
			}
			expandBase(r, log, def.Body, defNS, applied, env, templates, doc)
		}
	}
}

func applyDelete(r *chtl_resolve.Resolver, applied chtl_eval.Env, env chtl_eval.Env, target chtl_ast.Expr) {
	switch t := target.Data.(type) {
	case *chtl_ast.EIdentifier:
		delete(applied, t.Name)
		delete(env, t.Name)
	case *chtl_ast.EUnquotedLiteral:
		if !strings.HasPrefix(t.Value, "@Style ") && !strings.HasPrefix(t.Value, "@style ") {
			return
		}
		name := strings.TrimSpace(t.Value[len("@Style "):])
		def, ok := findStyleTemplateAnywhere(r, name)
		if !ok {
			return
		}
		for _, prop := range contributedNames(def) {
			delete(applied, prop)
			delete(env, prop)
		}
	}
}

// findStyleTemplateAnywhere searches every namespace for a Style template
// with the given name, per spec 4.6.4.b's "looked up across all
// namespaces". Namespace keys are visited in sorted order so the result is
// deterministic when more than one namespace defines the same name.
func findStyleTemplateAnywhere(r *chtl_resolve.Resolver, name string) (*chtl_ast.STemplateDefinition, bool) {
	keys := make([]string, 0, len(r.Table))
	for k := range r.Table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if def, _, ok := r.Lookup(k, "", name, chtl_ast.StyleKind); ok {
			return def, true
		}
	}
	return nil, false
}

// contributedNames returns the property names declared directly in a Style
// template's own body, without evaluating any value (used only to know what a
// Delete("@Style X") wipes). Names that reach the template through inherit or
// a nested @Style use are not included.
func contributedNames(def *chtl_ast.STemplateDefinition) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(body []chtl_ast.Stmt)
	walk = func(body []chtl_ast.Stmt) {
		for _, stmt := range body {
			switch s := stmt.Data.(type) {
			case *chtl_ast.SAttribute:
				if !seen[s.Name] {
					seen[s.Name] = true
					out = append(out, s.Name)
				}
			}
		}
	}
	walk(def.Body)
	return out
}

// InlineStyleValue serializes a property map the way it appears in a
// style="..." attribute: alphabetical by name, "k:v" pairs joined by ";".
func InlineStyleValue(props chtl_eval.Env) string {
	if len(props) == 0 {
		return ""
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + props[k].Stringify()
	}
	return strings.Join(parts, ";")
}

// NominateClassAndID scans a style block's direct StyleRule children (not
// recursing into nested selectors) for the first class and id selector,
// per spec 4.6's auto-injection rule.
func NominateClassAndID(body []chtl_ast.Stmt) (class string, id string) {
	for _, stmt := range body {
		rule, ok := stmt.Data.(*chtl_ast.SStyleRule)
		if !ok {
			continue
		}
		if class == "" && strings.HasPrefix(rule.Selector, ".") {
			class = rule.Selector[1:]
		}
		if id == "" && strings.HasPrefix(rule.Selector, "#") {
			id = rule.Selector[1:]
		}
	}
	return class, id
}

// ContextSelector implements spec 4.6's leading-"&" substitution target:
// the first ".class" rule selector, else the first "#id" rule selector,
// else the first existing class attribute as ".first", else the existing
// id attribute as "#id", else empty.
func ContextSelector(body []chtl_ast.Stmt, existingClass, existingID string) string {
	class, id := NominateClassAndID(body)
	if class != "" {
		return "." + class
	}
	if id != "" {
		return "#" + id
	}
	if existingClass != "" {
		first := strings.Fields(existingClass)
		if len(first) > 0 {
			return "." + first[0]
		}
	}
	if existingID != "" {
		return "#" + existingID
	}
	return ""
}

// EmitRule evaluates a StyleRule's direct Attribute children in source
// order (CSS rule bodies are insertion-order, unlike the alphabetized
// inline style attribute) and renders "selector{k1:v1;k2:v2;}". A leading
// "&" in the selector is replaced with contextSelector.
func EmitRule(rule *chtl_ast.SStyleRule, contextSelector string, env chtl_eval.Env, templates chtl_eval.TemplateLookup, doc chtl_eval.DocumentMap) string {
	selector := rule.Selector
	if strings.HasPrefix(selector, "&") {
		selector = contextSelector + selector[1:]
	}

	scoped := make(chtl_eval.Env, len(env))
	for k, v := range env {
		scoped[k] = v
	}

	var b strings.Builder
	b.WriteString(selector)
	b.WriteByte('{')
	for _, stmt := range rule.Body {
		attr, ok := stmt.Data.(*chtl_ast.SAttribute)
		if !ok || attr.Value == nil {
			continue
		}
		val := chtl_eval.Eval(*attr.Value, scoped, templates, doc)
		b.WriteString(attr.Name)
		b.WriteByte(':')
		b.WriteString(val.Stringify())
		b.WriteByte(';')
	}
	b.WriteByte('}')
	return b.String()
}
