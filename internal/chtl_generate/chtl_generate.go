// Package chtl_generate implements the orchestrator of spec section 4.8: it
// walks a resolved Program, applies except-stack forbiddance rules,
// specializes element/style template uses, auto-injects class/id selectors,
// and concatenates the final HTML/CSS/JS document.
package chtl_generate

import (
	"sort"
	"strings"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_ast"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_config"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_eval"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_logger"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_resolve"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_specialize"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_style"
)

// Generator holds the cross-element state accumulated while walking one
// Program: the document map for property-access expressions, the global CSS
// buffer, the deferred script buffer, and the active except-constraint
// stack.
type Generator struct {
	log      chtl_logger.Log
	resolver *chtl_resolve.Resolver
	config   *chtl_config.Store

	doc         chtl_eval.DocumentMap
	globalCSS   []string
	dynamicJS   []string
	html5       bool
	exceptStack [][]chtl_ast.Expr
}

func New(log chtl_logger.Log, resolver *chtl_resolve.Resolver, config *chtl_config.Store) *Generator {
	return &Generator{
		log:      log,
		resolver: resolver,
		config:   config,
		doc:      chtl_eval.DocumentMap{},
	}
}

// Generate renders prog (already indexed into the resolver under nsKey) to
// its final document text: an optional doctype, a single global <style>
// block, the body markup in source order, and a single trailing <script>
// block (spec 4.8 step 6's concatenation order).
func (g *Generator) Generate(prog *chtl_ast.Program, nsKey string) string {
	g.populateDocumentMap(prog.Stmts)

	templates := g.templateLookup(nsKey)
	env := chtl_eval.Env{}
	attrs := map[string]chtl_eval.Object{}
	styleProps := chtl_eval.Env{}
	var body []string
	var styleRules []chtl_ast.Stmt
	for _, stmt := range prog.Stmts {
		switch s := stmt.Data.(type) {
		case *chtl_ast.SUse:
			if s.IsHTML5 {
				g.html5 = true
			}
		case *chtl_ast.STemplateDefinition, *chtl_ast.SImport, *chtl_ast.SNamespace,
			*chtl_ast.SConfiguration, *chtl_ast.SInfo, *chtl_ast.SExport, *chtl_ast.SNameBlock:
			// Structural statements already consumed by the config pass and
			// the resolver; they contribute nothing to document output.
		default:
			g.emitChildStmt(stmt, nsKey, env, templates, attrs, styleProps, &body, &styleRules)
		}
	}

	for _, stmt := range styleRules {
		rule := stmt.Data.(*chtl_ast.SStyleRule)
		g.globalCSS = append(g.globalCSS, chtl_style.EmitRule(rule, chtl_style.ContextSelector(styleRules, "", ""), env, templates, g.doc))
	}
	if len(styleProps) > 0 {
		g.log.AddWarningNoLoc("top-level style properties have no enclosing element to attach to")
	}

	var b strings.Builder
	if g.html5 {
		b.WriteString("<!DOCTYPE html>")
	}
	if len(g.globalCSS) > 0 {
		b.WriteString("<style>")
		b.WriteString(strings.Join(g.globalCSS, ""))
		b.WriteString("</style>")
	}
	b.WriteString(strings.Join(body, ""))
	if len(g.dynamicJS) > 0 {
		b.WriteString("<script>")
		b.WriteString(strings.Join(g.dynamicJS, "\n"))
		b.WriteString("</script>")
	}
	return b.String()
}

func (g *Generator) templateLookup(nsKey string) chtl_eval.TemplateLookup {
	return func(name string) (*chtl_ast.STemplateDefinition, bool) {
		def, _, ok := g.resolver.Lookup(nsKey, "", name, chtl_ast.VarKind)
		return def, ok
	}
}

// populateDocumentMap implements spec 4.8 step 2: for every Element with a
// literal "id" attribute, record every direct attribute and every direct
// style-block property by its raw (unevaluated) expression, keyed by id.
// Only the literal source tree is walked; ids introduced by template
// specialization's inserted/merged elements are not indexed, since that
// expansion happens lazily during emission rather than as a standalone pass.
func (g *Generator) populateDocumentMap(stmts []chtl_ast.Stmt) {
	for _, stmt := range stmts {
		switch s := stmt.Data.(type) {
		case *chtl_ast.SElement:
			if id := literalIDOf(s.Body); id != "" {
				g.doc[id] = collectRawProps(s.Body)
			}
			g.populateDocumentMap(s.Body)
		case *chtl_ast.SUseTemplate:
			g.populateDocumentMap(s.Body)
		case *chtl_ast.SIf:
			g.populateDocumentMap(s.Then)
			g.populateDocumentMap(s.Else)
		}
	}
}

func literalIDOf(body []chtl_ast.Stmt) string {
	for _, stmt := range body {
		attr, ok := stmt.Data.(*chtl_ast.SAttribute)
		if !ok || !strings.EqualFold(attr.Name, "id") || attr.Value == nil {
			continue
		}
		switch v := attr.Value.Data.(type) {
		case *chtl_ast.EStringLiteral:
			return v.Value
		case *chtl_ast.EUnquotedLiteral:
			return v.Value
		case *chtl_ast.EIdentifier:
			return v.Name
		}
	}
	return ""
}

func collectRawProps(body []chtl_ast.Stmt) map[string]chtl_ast.Expr {
	props := map[string]chtl_ast.Expr{}
	for _, stmt := range body {
		switch s := stmt.Data.(type) {
		case *chtl_ast.SAttribute:
			if s.Value != nil {
				props[s.Name] = *s.Value
			}
		case *chtl_ast.SStyle:
			for _, sstmt := range s.Body {
				if attr, ok := sstmt.Data.(*chtl_ast.SAttribute); ok && attr.Value != nil {
					props[attr.Name] = *attr.Value
				}
			}
		}
	}
	return props
}

// emitElement renders one Element, including its auto-injected class/id and
// the global CSS its style block contributes.
func (g *Generator) emitElement(el *chtl_ast.SElement, ns string, templates chtl_eval.TemplateLookup) string {
	env := chtl_eval.Env{}
	attrs := map[string]chtl_eval.Object{}
	styleProps := chtl_eval.Env{}
	var children []string
	var styleRules []chtl_ast.Stmt

	g.exceptStack = append(g.exceptStack, collectExceptTargets(el.Body))
	for _, stmt := range el.Body {
		g.emitChildStmt(stmt, ns, env, templates, attrs, styleProps, &children, &styleRules)
	}
	g.exceptStack = g.exceptStack[:len(g.exceptStack)-1]

	if len(styleRules) > 0 {
		class, id := chtl_style.NominateClassAndID(styleRules)
		if class != "" {
			if _, ok := attrs["class"]; !ok {
				attrs["class"] = chtl_eval.String{Value: class}
			}
		}
		if id != "" {
			if _, ok := attrs["id"]; !ok {
				attrs["id"] = chtl_eval.String{Value: id}
			}
		}
	}

	existingClass, existingID := "", ""
	if v, ok := attrs["class"]; ok {
		existingClass = v.Stringify()
	}
	if v, ok := attrs["id"]; ok {
		existingID = v.Stringify()
	}
	ctxSel := chtl_style.ContextSelector(styleRules, existingClass, existingID)
	for _, stmt := range styleRules {
		rule := stmt.Data.(*chtl_ast.SStyleRule)
		g.globalCSS = append(g.globalCSS, chtl_style.EmitRule(rule, ctxSel, env, templates, g.doc))
	}

	if len(styleProps) > 0 {
		inline := chtl_style.InlineStyleValue(styleProps)
		if existing, ok := attrs["style"]; ok && existing.Stringify() != "" {
			inline = existing.Stringify() + ";" + inline
		}
		attrs["style"] = chtl_eval.String{Value: inline}
	}

	var b strings.Builder
	b.WriteString("<")
	b.WriteString(el.Name)
	if attrHTML := renderAttrs(attrs); attrHTML != "" {
		b.WriteString(" ")
		b.WriteString(attrHTML)
	}
	b.WriteString(">")
	b.WriteString(strings.Join(children, ""))
	b.WriteString("</")
	b.WriteString(el.Name)
	b.WriteString(">")
	return b.String()
}

// emitChildStmt processes one body statement against the enclosing
// element's (or splice target's) attrs/styleProps/children/styleRules. It is
// reused for an element's direct body, for an element-template's expanded
// splice, and for an if-chain's taken branch, since all three contribute
// directly into the same enclosing scope rather than a new wrapper element.
func (g *Generator) emitChildStmt(
	stmt chtl_ast.Stmt,
	ns string,
	env chtl_eval.Env,
	templates chtl_eval.TemplateLookup,
	attrs map[string]chtl_eval.Object,
	styleProps chtl_eval.Env,
	children *[]string,
	styleRules *[]chtl_ast.Stmt,
) {
	if g.isForbidden(stmt.Data) {
		return
	}
	switch s := stmt.Data.(type) {
	case *chtl_ast.SAttribute:
		if s.Value == nil {
			return
		}
		val := chtl_eval.Eval(*s.Value, env, templates, g.doc)
		attrs[s.Name] = val
		env[s.Name] = val

	case *chtl_ast.SText:
		val := chtl_eval.Eval(s.Value, env, templates, g.doc)
		*children = append(*children, val.Stringify())

	case *chtl_ast.SElement:
		*children = append(*children, g.emitElement(s, ns, templates))

	case *chtl_ast.SStyle:
		g.processStyleBlock(s, ns, env, styleProps, templates, styleRules)

	case *chtl_ast.SUseTemplate:
		g.emitUseTemplate(s, ns, env, templates, attrs, styleProps, children, styleRules)

	case *chtl_ast.SOrigin:
		switch {
		case strings.EqualFold(s.Type, "Html"):
			*children = append(*children, s.Raw)
		case strings.EqualFold(s.Type, "JavaScript") || strings.EqualFold(s.Type, "Js"):
			g.dynamicJS = append(g.dynamicJS, s.Raw)
		case strings.EqualFold(s.Type, "Style"):
			g.globalCSS = append(g.globalCSS, s.Raw)
		default:
			g.log.AddWarningNoLoc("unrecognized origin type @" + s.Type + " left unemitted")
		}

	case *chtl_ast.SScript:
		g.dynamicJS = append(g.dynamicJS, s.Raw)

	case *chtl_ast.SComment:
		if s.Generator && g.config != nil && g.config.DebugMode {
			*children = append(*children, "<!--"+s.Text+"-->")
		}

	case *chtl_ast.SIf:
		g.emitIfChain(s, ns, env, templates, attrs, styleProps, children, styleRules)

	case *chtl_ast.SExcept, *chtl_ast.SInherit, *chtl_ast.SDelete, *chtl_ast.SInsert:
		// Carry no direct rendering of their own: Except only shapes the
		// constraint stack (collected up front), and Inherit/Delete/Insert
		// only have meaning inside a template definition or specialization
		// body, never as a plain element-body statement.
	}
}

// emitUseTemplate resolves and specializes a template use, splicing the
// result into the enclosing scope rather than wrapping it in a new element
// (spec 4.8's "use expands in place" rule).
func (g *Generator) emitUseTemplate(
	s *chtl_ast.SUseTemplate,
	ns string,
	env chtl_eval.Env,
	templates chtl_eval.TemplateLookup,
	attrs map[string]chtl_eval.Object,
	styleProps chtl_eval.Env,
	children *[]string,
	styleRules *[]chtl_ast.Stmt,
) {
	switch s.Kind {
	case chtl_ast.ElementKind:
		def, defNS, ok := g.resolver.Lookup(ns, s.FromNS, s.Name, chtl_ast.ElementKind)
		if !ok {
			g.log.AddWarningNoLoc("element template not found: " + s.Name)
			return
		}
		var specBody []chtl_ast.Stmt
		if s.HasBody {
			specBody = s.Body
		}
		expanded := chtl_specialize.Apply(def, specBody, g.log)
		defTemplates := g.templateLookup(defNS)
		for _, est := range expanded {
			g.emitChildStmt(est, defNS, chtl_eval.Env{}, defTemplates, attrs, styleProps, children, styleRules)
		}

	case chtl_ast.StyleKind:
		def, defNS, ok := g.resolver.Lookup(ns, s.FromNS, s.Name, chtl_ast.StyleKind)
		if !ok {
			g.log.AddWarningNoLoc("style template not found: " + s.Name)
			return
		}
		var specBody []chtl_ast.Stmt
		if s.HasBody {
			specBody = s.Body
		}
		chtl_style.Apply(g.resolver, g.log, def, defNS, env, styleProps, specBody, templates, g.doc)

	case chtl_ast.VarKind:
		// A bare "@var Name;" statement has no standalone rendering
		// semantics; var templates are only consulted through property
		// access/function-call expressions.
	}
}

func (g *Generator) processStyleBlock(
	style *chtl_ast.SStyle,
	ns string,
	env chtl_eval.Env,
	styleProps chtl_eval.Env,
	templates chtl_eval.TemplateLookup,
	styleRules *[]chtl_ast.Stmt,
) {
	for _, stmt := range style.Body {
		switch s := stmt.Data.(type) {
		case *chtl_ast.SAttribute:
			if s.Value == nil {
				continue
			}
			val := chtl_eval.Eval(*s.Value, env, templates, g.doc)
			styleProps[s.Name] = val
			env[s.Name] = val

		case *chtl_ast.SStyleRule:
			*styleRules = append(*styleRules, stmt)

		case *chtl_ast.SUseTemplate:
			if s.Kind != chtl_ast.StyleKind {
				continue
			}
			def, defNS, ok := g.resolver.Lookup(ns, s.FromNS, s.Name, chtl_ast.StyleKind)
			if !ok {
				g.log.AddWarningNoLoc("style template not found: " + s.Name)
				continue
			}
			var specBody []chtl_ast.Stmt
			if s.HasBody {
				specBody = s.Body
			}
			chtl_style.Apply(g.resolver, g.log, def, defNS, env, styleProps, specBody, templates, g.doc)
		}
	}
}

func (g *Generator) emitIfChain(
	s *chtl_ast.SIf,
	ns string,
	env chtl_eval.Env,
	templates chtl_eval.TemplateLookup,
	attrs map[string]chtl_eval.Object,
	styleProps chtl_eval.Env,
	children *[]string,
	styleRules *[]chtl_ast.Stmt,
) {
	cond := chtl_eval.Eval(s.Condition, env, templates, g.doc)
	if cond.Truthy() {
		for _, st := range s.Then {
			g.emitChildStmt(st, ns, env, templates, attrs, styleProps, children, styleRules)
		}
		return
	}
	if s.ElseIf != nil {
		if elseIf, ok := s.ElseIf.Data.(*chtl_ast.SIf); ok {
			g.emitIfChain(elseIf, ns, env, templates, attrs, styleProps, children, styleRules)
		}
		return
	}
	for _, st := range s.Else {
		g.emitChildStmt(st, ns, env, templates, attrs, styleProps, children, styleRules)
	}
}

func collectExceptTargets(body []chtl_ast.Stmt) []chtl_ast.Expr {
	var out []chtl_ast.Expr
	for _, stmt := range body {
		if ex, ok := stmt.Data.(*chtl_ast.SExcept); ok {
			out = append(out, ex.Targets...)
		}
	}
	return out
}

// isForbidden implements spec 4.8's forbiddance rules: an Element is
// forbidden by a matching tag-name constraint, an @Html Origin by the "@Html"
// literal, a Var-kind UseTemplate by "[Template]@Var", and any UseTemplate at
// all by "[Custom]". Constraints accumulate down the ancestor chain.
func (g *Generator) isForbidden(data chtl_ast.StmtData) bool {
	for _, targets := range g.exceptStack {
		for _, t := range targets {
			switch v := t.Data.(type) {
			case *chtl_ast.EIdentifier:
				if el, ok := data.(*chtl_ast.SElement); ok && el.Name == v.Name {
					return true
				}
			case *chtl_ast.EUnquotedLiteral:
				switch {
				case strings.EqualFold(v.Value, "@Html"):
					if orig, ok := data.(*chtl_ast.SOrigin); ok && strings.EqualFold(orig.Type, "Html") {
						return true
					}
				case strings.EqualFold(v.Value, "[Template]@Var"):
					if use, ok := data.(*chtl_ast.SUseTemplate); ok && use.Kind == chtl_ast.VarKind {
						return true
					}
				case strings.EqualFold(v.Value, "[Custom]"):
					if _, ok := data.(*chtl_ast.SUseTemplate); ok {
						return true
					}
				}
			}
		}
	}
	return false
}

// renderAttrs serializes attrs alphabetically by name (case-insensitive), so
// a whole opening tag reads deterministically regardless of authoring order.
func renderAttrs(attrs map[string]chtl_eval.Object) string {
	if len(attrs) == 0 {
		return ""
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return strings.ToLower(names[i]) < strings.ToLower(names[j]) })
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + `="` + escapeAttr(attrs[name].Stringify()) + `"`
	}
	return strings.Join(parts, " ")
}

func escapeAttr(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
