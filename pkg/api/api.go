// Package api is the public entrypoint to the CHTL compiler: a single
// Compile function wiring ParseFile, the Resolver, and the Generator,
// per spec section 6's external interface contract.
package api

import (
	"context"
	"os"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_ast"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_generate"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_logger"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_parser"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_resolve"
)

// ModuleStore resolves an import path relative to the importing file into a
// canonical identity and source text. Re-exported from chtl_resolve so
// callers never need to import an internal package to implement one.
type ModuleStore = chtl_resolve.ModuleStore

type CompileOptions struct {
	InputPath  string
	OutputPath string // not read by Compile, which never writes output to disk; the caller decides where the HTML goes
}

// NamespaceInfo surfaces a namespace's optional [Info] block for host
// tooling (author/version/description-shaped free-form pairs).
type NamespaceInfo struct {
	Attrs []chtl_ast.KV
}

type CompileResult struct {
	HTML        string
	Diagnostics []chtl_logger.Msg
	Namespaces  map[string]NamespaceInfo
}

// Compile reads opts.InputPath, resolves its imports against store, and
// generates the final document. The returned int is 0 on success and 1 if
// the parser reported any error, in which case no document is generated,
// matching spec.md section 7's "only a
// parser error is fatal" rule. ctx is accepted purely so CLI callers can
// thread cancellation through cobra's command context; the synchronous core
// never reads it.
func Compile(ctx context.Context, store ModuleStore, opts CompileOptions) (CompileResult, int) {
	log := chtl_logger.NewDeferLog()

	contents, err := os.ReadFile(opts.InputPath)
	if err != nil {
		log.AddErrorNoLoc("cannot read " + opts.InputPath + ": " + err.Error())
		return CompileResult{Diagnostics: log.Done()}, 1
	}
	source := &chtl_logger.Source{PrettyPath: opts.InputPath, Contents: string(contents)}

	prog, config, errCount := chtl_parser.ParseFile(log, source)
	if errCount > 0 {
		return CompileResult{Diagnostics: log.Done()}, 1
	}

	resolver := chtl_resolve.NewResolver(log, store)
	nsKey := resolver.Process(prog, opts.InputPath)

	gen := chtl_generate.New(log, resolver, config)
	html := gen.Generate(prog, nsKey)

	namespaces := make(map[string]NamespaceInfo, len(resolver.Table))
	for key, ns := range resolver.Table {
		if ns.Info != nil {
			namespaces[key] = NamespaceInfo{Attrs: ns.Info.Attrs}
		}
	}

	result := CompileResult{
		HTML:        html,
		Diagnostics: log.Done(),
		Namespaces:  namespaces,
	}
	return result, 0
}
