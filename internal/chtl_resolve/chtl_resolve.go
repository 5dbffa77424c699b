// Package chtl_resolve implements the import/namespace/export pass
// described in spec section 4.5: it recursively walks a Program and its
// imports, indexing every TemplateDefinition/Info/Export by namespace key
// and splicing in cross-file template definitions that pass export policy.
package chtl_resolve

import (
	"path/filepath"
	"strings"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_ast"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_logger"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_parser"
)

// ModuleStore resolves an import path relative to the file that referenced
// it into a canonical identity and its source text. Implementations decide
// search order, archive extraction, and caching (spec section 6).
type ModuleStore interface {
	Resolve(currentFileIdentity string, importPath string) (canonicalID string, sourceText string, ok bool)
}

// Namespace holds everything a single namespace key contributes: its
// template definitions (keyed by kind+name), and its optional Info/Export
// blocks.
type Namespace struct {
	Templates map[string]*chtl_ast.STemplateDefinition
	Info      *chtl_ast.SInfo
	Export    *chtl_ast.SExport
}

func newNamespace() *Namespace {
	return &Namespace{Templates: map[string]*chtl_ast.STemplateDefinition{}}
}

func templateKey(kind chtl_ast.TemplateKind, name string) string {
	return kind.String() + "::" + name
}

// Resolver owns the NamespaceTable being built across one compilation's
// transitive imports.
type Resolver struct {
	log   chtl_logger.Log
	store ModuleStore

	Table map[string]*Namespace
	// byID remembers which namespace key a canonical file identity resolved
	// to, so a file imported twice resolves to one namespace (spec 4.5's
	// module-identity guarantee) without reparsing it.
	byID map[string]string
}

func NewResolver(log chtl_logger.Log, store ModuleStore) *Resolver {
	return &Resolver{
		log:   log,
		store: store,
		Table: map[string]*Namespace{},
		byID:  map[string]string{},
	}
}

func (r *Resolver) ensure(nsKey string) *Namespace {
	ns, ok := r.Table[nsKey]
	if !ok {
		ns = newNamespace()
		r.Table[nsKey] = ns
	}
	return ns
}

func namespaceKeyFor(prog *chtl_ast.Program, fileIdentity string) string {
	for _, stmt := range prog.Stmts {
		if ns, ok := stmt.Data.(*chtl_ast.SNamespace); ok {
			return ns.Name
		}
	}
	stem := strings.TrimSuffix(filepath.Base(fileIdentity), filepath.Ext(fileIdentity))
	if stem != "" {
		return stem
	}
	return "::default"
}

// Process indexes prog under its namespace key (derived from its first
// Namespace statement, else the filename stem of fileIdentity, else
// "::default"), recursing into every Import, and returns that namespace
// key.
func (r *Resolver) Process(prog *chtl_ast.Program, fileIdentity string) string {
	nsKey := namespaceKeyFor(prog, fileIdentity)
	r.ensure(nsKey)
	r.byID[fileIdentity] = nsKey

	for _, stmt := range prog.Stmts {
		switch s := stmt.Data.(type) {
		case *chtl_ast.STemplateDefinition:
			r.Table[nsKey].Templates[templateKey(s.Kind, s.Name)] = s
		case *chtl_ast.SInfo:
			r.Table[nsKey].Info = s
		case *chtl_ast.SExport:
			r.Table[nsKey].Export = s
		case *chtl_ast.SImport:
			r.processImport(nsKey, fileIdentity, s)
		}
	}
	return nsKey
}

func (r *Resolver) processImport(currentNS, fileIdentity string, imp *chtl_ast.SImport) {
	if r.store == nil {
		r.log.AddWarningNoLoc("no module store configured, dropping import of " + imp.Path)
		return
	}
	canonicalID, text, ok := r.store.Resolve(fileIdentity, imp.Path)
	if !ok {
		r.log.AddWarningNoLoc("unresolved import " + imp.Path)
		return
	}

	importedNS, already := r.byID[canonicalID]
	if !already {
		fileKind := imp.FileKind
		if imp.SpecifierKind == chtl_ast.ItemImportSpecifier {
			fileKind = "Chtl"
		}
		if !strings.EqualFold(fileKind, "Chtl") && fileKind != "" {
			// Html/JavaScript/CJmod payloads are opaque to the template
			// resolver: spec's Non-goals exclude parsing them as CHTL.
			r.byID[canonicalID] = ""
			return
		}
		source := &chtl_logger.Source{PrettyPath: canonicalID, Contents: text}
		importedProg, _, _ := chtl_parser.ParseFile(r.log, source)
		importedNS = r.Process(importedProg, canonicalID)
	}
	if importedNS == "" {
		return
	}

	if imp.SpecifierKind == chtl_ast.FileImportSpecifier {
		// All of the imported namespace's templates are already indexed
		// under its own key; nothing more to do (spec 4.5.2.d).
		return
	}

	r.spliceItemImport(currentNS, importedNS, imp)
}

// spliceItemImport implements spec 4.5.2.e: iterate the imported
// namespace's templates, match on (category, type, name), verify export
// policy, clone matches into the current namespace, renaming to alias iff
// a name was specified.
func (r *Resolver) spliceItemImport(currentNS, importedNS string, imp *chtl_ast.SImport) {
	src, ok := r.Table[importedNS]
	if !ok {
		return
	}
	for _, def := range src.Templates {
		if !matchesCategory(imp.Category, def.IsCustom) {
			continue
		}
		if imp.Type != "" && !strings.EqualFold(imp.Type, def.Kind.String()) {
			continue
		}
		if imp.Name != "" && imp.Name != def.Name {
			continue
		}
		if !r.IsExported(importedNS, def.Name, def.Kind) {
			r.log.AddWarningNoLoc("template " + def.Name + " is not exported by " + importedNS)
			continue
		}
		clonedName := def.Name
		if imp.Name != "" && imp.Alias != "" {
			clonedName = imp.Alias
		}
		cloned := &chtl_ast.STemplateDefinition{
			Name:     clonedName,
			Kind:     def.Kind,
			Body:     chtl_ast.CloneStmts(def.Body),
			IsCustom: def.IsCustom,
		}
		r.Table[currentNS].Templates[templateKey(cloned.Kind, cloned.Name)] = cloned
	}
}

func matchesCategory(category string, isCustom bool) bool {
	switch strings.ToLower(category) {
	case "":
		return true
	case "custom":
		return isCustom
	case "template":
		return !isCustom
	default:
		return false
	}
}

// IsExported implements spec 4.5.3's export policy: visible when the
// namespace has no Export block, or when the block lists an item whose
// type matches kind (case-insensitively) and whose names contains name.
func (r *Resolver) IsExported(nsKey, name string, kind chtl_ast.TemplateKind) bool {
	ns, ok := r.Table[nsKey]
	if !ok || ns.Export == nil {
		return true
	}
	for _, item := range ns.Export.Items {
		if !strings.EqualFold(item.Type, kind.String()) {
			continue
		}
		for _, n := range item.Names {
			if n == name {
				return true
			}
		}
	}
	return false
}

// Lookup resolves a template reference the way UseTemplate/Inherit do: an
// explicit fromNS if given, else the calling namespace.
func (r *Resolver) Lookup(callingNS, fromNS, name string, kind chtl_ast.TemplateKind) (*chtl_ast.STemplateDefinition, string, bool) {
	nsKey := fromNS
	if nsKey == "" {
		nsKey = callingNS
	}
	ns, ok := r.Table[nsKey]
	if !ok {
		return nil, nsKey, false
	}
	def, ok := ns.Templates[templateKey(kind, name)]
	if !ok {
		return nil, nsKey, false
	}
	if fromNS != "" && fromNS != callingNS && !r.IsExported(nsKey, name, kind) {
		return nil, nsKey, false
	}
	return def, nsKey, true
}
