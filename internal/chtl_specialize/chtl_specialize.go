// Package chtl_specialize implements the ElementSpecializer of spec
// section 4.7: turning an Element-kind template plus a call-site
// specialization body into a new statement list via Insert, Delete, and
// Merge phases, in that order.
package chtl_specialize

import (
	"sort"
	"strconv"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_ast"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_logger"
)

// Apply clones def's body and applies specBody's Insert, Delete, and Merge
// phases against the clone, returning the resulting statement list that
// replaces the UseTemplate at the call site.
func Apply(def *chtl_ast.STemplateDefinition, specBody []chtl_ast.Stmt, log chtl_logger.Log) []chtl_ast.Stmt {
	body := chtl_ast.CloneStmts(def.Body)
	body = applyInserts(body, specBody, log)
	body = applyDeletes(body, specBody, log)
	mergeElements(body, specBody, log)
	return body
}

type insertPair struct {
	ins *chtl_ast.SInsert
	idx int
}

// applyInserts implements spec 4.7 phase 1: resolve every Insert's target
// index against the pre-mutation body, sort descending, then splice.
func applyInserts(body []chtl_ast.Stmt, specBody []chtl_ast.Stmt, log chtl_logger.Log) []chtl_ast.Stmt {
	var pairs []insertPair
	for _, stmt := range specBody {
		ins, ok := stmt.Data.(*chtl_ast.SInsert)
		if !ok {
			continue
		}
		idx, ok := resolveInsertIndex(body, ins)
		if !ok {
			log.AddWarningNoLoc("insert target not found")
			continue
		}
		pairs = append(pairs, insertPair{ins, idx})
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].idx > pairs[j].idx })

	for _, p := range pairs {
		switch p.ins.Position {
		case chtl_ast.InsertBefore, chtl_ast.InsertAtTop:
			body = spliceInsert(body, p.idx, p.ins.Body)
		case chtl_ast.InsertAfter:
			body = spliceInsert(body, p.idx+1, p.ins.Body)
		case chtl_ast.InsertReplace:
			body = spliceReplace(body, p.idx, p.ins.Body)
		case chtl_ast.InsertAtBottom:
			body = append(body, p.ins.Body...)
		}
	}
	return body
}

func resolveInsertIndex(body []chtl_ast.Stmt, ins *chtl_ast.SInsert) (int, bool) {
	switch ins.Position {
	case chtl_ast.InsertAtTop:
		return 0, true
	case chtl_ast.InsertAtBottom:
		return len(body), true
	default:
		if ins.Target == nil {
			return 0, false
		}
		return resolveTargetIndex(body, *ins.Target)
	}
}

func spliceInsert(body []chtl_ast.Stmt, idx int, items []chtl_ast.Stmt) []chtl_ast.Stmt {
	out := make([]chtl_ast.Stmt, 0, len(body)+len(items))
	out = append(out, body[:idx]...)
	out = append(out, items...)
	out = append(out, body[idx:]...)
	return out
}

func spliceReplace(body []chtl_ast.Stmt, idx int, items []chtl_ast.Stmt) []chtl_ast.Stmt {
	out := make([]chtl_ast.Stmt, 0, len(body)-1+len(items))
	out = append(out, body[:idx]...)
	out = append(out, items...)
	out = append(out, body[idx+1:]...)
	return out
}

// applyDeletes implements spec 4.7 phase 2: collect matching indices,
// dedupe, sort descending, remove.
func applyDeletes(body []chtl_ast.Stmt, specBody []chtl_ast.Stmt, log chtl_logger.Log) []chtl_ast.Stmt {
	var indices []int
	seen := map[int]bool{}
	for _, stmt := range specBody {
		del, ok := stmt.Data.(*chtl_ast.SDelete)
		if !ok {
			continue
		}
		for _, t := range del.Targets {
			idx, ok := resolveTargetIndex(body, t)
			if !ok {
				log.AddWarningNoLoc("delete target not found")
				continue
			}
			if !seen[idx] {
				seen[idx] = true
				indices = append(indices, idx)
			}
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(indices)))
	for _, idx := range indices {
		body = append(body[:idx], body[idx+1:]...)
	}
	return body
}

// mergeElements implements spec 4.7 phase 3, recursively: for each Element
// in specBody in order, find the k-th Element in targetBody with the same
// tag (k counts same-tag occurrences seen so far in specBody), overwrite
// or append its attributes and style, then recurse into the matched
// node's children with the specialization element's remaining children.
func mergeElements(targetBody []chtl_ast.Stmt, specBody []chtl_ast.Stmt, log chtl_logger.Log) {
	tagCount := map[string]int{}
	for _, stmt := range specBody {
		el, ok := stmt.Data.(*chtl_ast.SElement)
		if !ok {
			continue
		}
		k := tagCount[el.Name]
		tagCount[el.Name]++
		idx := kthElementIndex(targetBody, el.Name, k)
		if idx < 0 {
			log.AddWarningNoLoc("merge target not found: " + el.Name)
			continue
		}
		target, ok := targetBody[idx].Data.(*chtl_ast.SElement)
		if !ok {
			continue
		}
		mergeAttributesAndStyle(target, el)

		var specChildren []chtl_ast.Stmt
		for _, s := range el.Body {
			if _, ok := s.Data.(*chtl_ast.SElement); ok {
				specChildren = append(specChildren, s)
			}
		}
		if len(specChildren) > 0 {
			mergeElements(target.Body, specChildren, log)
		}
	}
}

func mergeAttributesAndStyle(target *chtl_ast.SElement, spec *chtl_ast.SElement) {
	for _, stmt := range spec.Body {
		switch s := stmt.Data.(type) {
		case *chtl_ast.SAttribute:
			replaced := false
			for i, ts := range target.Body {
				ta, ok := ts.Data.(*chtl_ast.SAttribute)
				if !ok || ta.Name != s.Name {
					continue
				}
				target.Body[i] = chtl_ast.Stmt{Loc: ts.Loc, Data: &chtl_ast.SAttribute{Name: s.Name, Value: s.Value}}
				replaced = true
				break
			}
			if !replaced {
				target.Body = append(target.Body, stmt)
			}

		case *chtl_ast.SStyle:
			found := false
			for i, ts := range target.Body {
				tstyle, ok := ts.Data.(*chtl_ast.SStyle)
				if !ok {
					continue
				}
				merged := &chtl_ast.SStyle{Body: append(append([]chtl_ast.Stmt{}, tstyle.Body...), s.Body...)}
				target.Body[i] = chtl_ast.Stmt{Loc: ts.Loc, Data: merged}
				found = true
				break
			}
			if !found {
				target.Body = append(target.Body, stmt)
			}
		}
	}
}

// resolveTargetIndex implements the shared target-resolution rule used by
// both Insert and Delete (spec 4.7 phase 1): an Identifier or
// UnquotedLiteral matches the first Element whose tag equals that name; an
// Index expression Name[k] matches the k-th (zero-based) occurrence.
func resolveTargetIndex(body []chtl_ast.Stmt, target chtl_ast.Expr) (int, bool) {
	switch t := target.Data.(type) {
	case *chtl_ast.EIdentifier:
		return firstElementIndex(body, t.Name)
	case *chtl_ast.EUnquotedLiteral:
		return firstElementIndex(body, t.Value)
	case *chtl_ast.EIndex:
		name, ok := exprName(t.Left)
		if !ok {
			return 0, false
		}
		k, ok := literalIndexValue(t.Index)
		if !ok {
			return 0, false
		}
		idx := kthElementIndex(body, name, k)
		return idx, idx >= 0
	}
	return 0, false
}

func firstElementIndex(body []chtl_ast.Stmt, name string) (int, bool) {
	for i, s := range body {
		if el, ok := s.Data.(*chtl_ast.SElement); ok && el.Name == name {
			return i, true
		}
	}
	return 0, false
}

func kthElementIndex(body []chtl_ast.Stmt, name string, k int) int {
	count := 0
	for i, s := range body {
		el, ok := s.Data.(*chtl_ast.SElement)
		if !ok || el.Name != name {
			continue
		}
		if count == k {
			return i
		}
		count++
	}
	return -1
}

func exprName(e chtl_ast.Expr) (string, bool) {
	switch v := e.Data.(type) {
	case *chtl_ast.EIdentifier:
		return v.Name, true
	case *chtl_ast.EUnquotedLiteral:
		return v.Value, true
	}
	return "", false
}

func literalIndexValue(e chtl_ast.Expr) (int, bool) {
	n, ok := e.Data.(*chtl_ast.ENumberLiteral)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, false
	}
	return v, true
}
