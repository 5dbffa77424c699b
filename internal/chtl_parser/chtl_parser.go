// Package chtl_parser turns a CHTL token stream into a Program (spec
// section 4.3). It is a single-pass recursive-descent parser with Pratt
// precedence for expressions, plus the two-pass configuration pre-pass
// described in spec section 4.1 (ParseFile).
package chtl_parser

import (
	"fmt"
	"strings"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_ast"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_config"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_lexer"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_logger"
)

// L is the expression precedence ladder from spec section 4.3, lowest to
// highest.
type L uint8

const (
	LLowest L = iota
	LConditional
	LCompare
	LSum
	LProduct
	LPower
	LCall
	LPropertyAccess
)

type Parser struct {
	lx     *chtl_lexer.Lexer
	log    chtl_logger.Log
	source *chtl_logger.Source
	config *chtl_config.Store
	errors int
}

func New(log chtl_logger.Log, source *chtl_logger.Source, config *chtl_config.Store) *Parser {
	return &Parser{
		lx:     chtl_lexer.NewLexer(log, source, config),
		log:    log,
		source: source,
		config: config,
	}
}

// ErrorCount is the number of parse-mismatch diagnostics raised; per spec
// section 7, any non-empty count aborts code generation.
func (p *Parser) ErrorCount() int { return p.errors }

func (p *Parser) cur() chtl_lexer.Token { return p.lx.Token }

func (p *Parser) next() { p.lx.Next() }

func (p *Parser) fail(format string, args ...interface{}) {
	p.errors++
	p.log.AddError(p.source, chtl_logger.Loc{Start: p.cur().Loc}, fmt.Sprintf(format, args...))
}

func (p *Parser) warn(format string, args ...interface{}) {
	p.log.AddWarning(p.source, chtl_logger.Loc{Start: p.cur().Loc}, fmt.Sprintf(format, args...))
}

// expect consumes the current token if it matches kind, else records a
// parse-mismatch diagnostic and leaves the token stream where it is so the
// caller can attempt to resynchronize at the next statement boundary.
func (p *Parser) expect(kind chtl_lexer.T) bool {
	if p.cur().Kind != kind {
		p.fail("expected %s but found %s", kind, p.cur().Kind)
		return false
	}
	p.next()
	return true
}

func (p *Parser) isKeyword(slot chtl_config.KeywordSlot) bool {
	return p.cur().Kind == chtl_lexer.TKeyword && p.cur().Slot == slot
}

func (p *Parser) expectKeyword(slot chtl_config.KeywordSlot) bool {
	if !p.isKeyword(slot) {
		p.fail("expected keyword %q but found %s", p.config.Spelling(slot), p.cur().Kind)
		return false
	}
	p.next()
	return true
}

// ---- top level ----

// Parse runs a single pass with the given ConfigStore and returns the
// resulting Program together with the number of parse errors encountered.
func Parse(log chtl_logger.Log, source *chtl_logger.Source, config *chtl_config.Store) (*chtl_ast.Program, int) {
	p := New(log, source, config)
	prog := &chtl_ast.Program{}
	for p.cur().Kind != chtl_lexer.TEOF {
		if stmt, ok := p.parseStmt(); ok {
			prog.Stmts = append(prog.Stmts, stmt)
		} else {
			p.resync()
		}
	}
	return prog, p.errors
}

// ParseFile implements spec section 4.1 end to end: a first pass with
// defaults to discover [Configuration] blocks and any "use @Config name;"
// selection, then a second pass with the selected configuration applied.
func ParseFile(log chtl_logger.Log, source *chtl_logger.Source) (*chtl_ast.Program, *chtl_config.Store, int) {
	defaults := chtl_config.NewDefaultStore()
	firstPass, _ := Parse(chtl_logger.NewDeferLog(), source, defaults)

	var unnamed *chtl_ast.SConfiguration
	named := map[string]*chtl_ast.SConfiguration{}
	selected := ""
	for _, stmt := range firstPass.Stmts {
		switch s := stmt.Data.(type) {
		case *chtl_ast.SConfiguration:
			if s.Name == "" {
				if unnamed == nil {
					unnamed = s
				}
			} else {
				named[s.Name] = s
			}
		case *chtl_ast.SUse:
			if !s.IsHTML5 && s.ConfigName != "" {
				selected = s.ConfigName
			}
		}
	}

	final := chtl_config.NewDefaultStore()
	var chosen *chtl_ast.SConfiguration
	if selected != "" {
		chosen = named[selected]
	}
	if chosen == nil {
		chosen = unnamed
	}
	if chosen != nil {
		for _, d := range chtl_config.Apply(final, chosen) {
			log.AddWarningNoLoc(d.Text)
		}
	}

	prog, errCount := Parse(log, source, final)
	return prog, final, errCount
}

// resync skips to the next statement boundary (a semicolon or a closing
// brace) after a parse mismatch, per spec section 7: "parsing continues at
// the next statement boundary where possible."
func (p *Parser) resync() {
	for {
		switch p.cur().Kind {
		case chtl_lexer.TEOF:
			return
		case chtl_lexer.TSemicolon:
			p.next()
			return
		case chtl_lexer.TCloseBrace:
			return
		}
		p.next()
	}
}

func (p *Parser) parseStmtList(terminator chtl_lexer.T) []chtl_ast.Stmt {
	var out []chtl_ast.Stmt
	for p.cur().Kind != terminator && p.cur().Kind != chtl_lexer.TEOF {
		if stmt, ok := p.parseStmt(); ok {
			out = append(out, stmt)
		} else {
			p.resync()
		}
	}
	return out
}

// parseStmt dispatches on the current token, per spec section 4.3.
func (p *Parser) parseStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc

	switch p.cur().Kind {
	case chtl_lexer.TLineComment, chtl_lexer.TBlockComment:
		// Tokenized-but-discarded at the parser boundary (spec 4.2).
		p.next()
		return chtl_ast.Stmt{}, false

	case chtl_lexer.TGeneratorComment:
		text := p.cur().Text
		p.next()
		return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SComment{Text: text, Generator: true}}, true

	case chtl_lexer.TOpenBracket:
		return p.parseBracketDirective()

	case chtl_lexer.TAt:
		return p.parseUseTemplateStmt()

	case chtl_lexer.TKeyword:
		switch p.cur().Slot {
		case chtl_config.SlotText:
			return p.parseTextOrAttribute()
		case chtl_config.SlotStyle:
			return p.parseStyleStmt()
		case chtl_config.SlotScript:
			return p.parseScriptStmt()
		case chtl_config.SlotIf:
			return p.parseIfStmt()
		case chtl_config.SlotDelete:
			return p.parseDeleteStmt()
		case chtl_config.SlotInsert:
			return p.parseInsertStmt()
		case chtl_config.SlotInherit:
			return p.parseInheritStmt()
		case chtl_config.SlotExcept:
			return p.parseExceptStmt()
		case chtl_config.SlotUse:
			return p.parseUseStmt()
		default:
			// Any other keyword (var, element, origin, import, namespace,
			// configuration, from, as, html, javascript, chtl, cjmod, config,
			// info, export, name, after, before, replace, custom, template,
			// else, at-top, at-bottom) is also a legal bareword outside its
			// special syntactic position — e.g. "html { ... }" as a tag.
			return p.parseElementOrAttribute(p.cur().Text)
		}

	case chtl_lexer.TIdentifier:
		return p.parseElementOrAttribute(p.cur().Text)

	default:
		p.fail("unexpected token %s", p.cur().Kind)
		return chtl_ast.Stmt{}, false
	}
}

func (p *Parser) parseElementOrAttribute(name string) (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next()
	switch p.cur().Kind {
	case chtl_lexer.TOpenBrace:
		p.next()
		body := p.parseStmtList(chtl_lexer.TCloseBrace)
		if !p.expect(chtl_lexer.TCloseBrace) {
			return chtl_ast.Stmt{}, false
		}
		return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SElement{Name: name, Body: body}}, true

	case chtl_lexer.TColon:
		p.next()
		var val *chtl_ast.Expr
		if p.cur().Kind != chtl_lexer.TSemicolon && p.cur().Kind != chtl_lexer.TCloseBrace {
			e := p.parseExpr(LLowest)
			val = &e
		}
		if p.cur().Kind == chtl_lexer.TSemicolon {
			p.next()
		}
		return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SAttribute{Name: name, Value: val}}, true

	case chtl_lexer.TSemicolon, chtl_lexer.TCloseBrace:
		// Valueless attribute, e.g. inside an import/export category list.
		if p.cur().Kind == chtl_lexer.TSemicolon {
			p.next()
		}
		return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SAttribute{Name: name}}, true

	default:
		p.fail("expected \"{\" or \":\" after %q", name)
		return chtl_ast.Stmt{}, false
	}
}

func (p *Parser) parseTextOrAttribute() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	name := p.cur().Text
	p.next()
	if p.cur().Kind == chtl_lexer.TOpenBrace {
		p.next()
		var val chtl_ast.Expr
		switch p.cur().Kind {
		case chtl_lexer.TString:
			val = chtl_ast.Expr{Loc: chtl_ast.Loc{Start: p.cur().Loc}, Data: &chtl_ast.EStringLiteral{Value: p.cur().Text}}
			p.next()
		default:
			val = p.parseExpr(LLowest)
		}
		if p.cur().Kind == chtl_lexer.TSemicolon {
			p.next()
		}
		if !p.expect(chtl_lexer.TCloseBrace) {
			return chtl_ast.Stmt{}, false
		}
		return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SText{Value: val}}, true
	}
	// "text" used without braces; parseElementOrAttributeContinue folds
	// the ":" form back into SText since both spellings mean child text.
	return p.parseElementOrAttributeContinue(name, loc)
}

// parseElementOrAttributeContinue resumes parseElementOrAttribute's switch
// after the name token has already been consumed (used when "text" turns
// out to be an attribute name rather than a block keyword).
func (p *Parser) parseElementOrAttributeContinue(name string, loc int32) (chtl_ast.Stmt, bool) {
	switch p.cur().Kind {
	case chtl_lexer.TOpenBrace:
		p.next()
		body := p.parseStmtList(chtl_lexer.TCloseBrace)
		if !p.expect(chtl_lexer.TCloseBrace) {
			return chtl_ast.Stmt{}, false
		}
		return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SElement{Name: name, Body: body}}, true
	case chtl_lexer.TColon:
		p.next()
		var val *chtl_ast.Expr
		if p.cur().Kind != chtl_lexer.TSemicolon && p.cur().Kind != chtl_lexer.TCloseBrace {
			e := p.parseExpr(LLowest)
			val = &e
		}
		if p.cur().Kind == chtl_lexer.TSemicolon {
			p.next()
		}
		if slot, ok := p.config.LookupSlot(name); ok && slot == chtl_config.SlotText {
			// "text: expr;" shorthand carries the same child-text
			// semantics as the block form, never an HTML attribute.
			if val == nil {
				val = &chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EStringLiteral{Value: ""}}
			}
			return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SText{Value: *val}}, true
		}
		return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SAttribute{Name: name, Value: val}}, true
	case chtl_lexer.TSemicolon, chtl_lexer.TCloseBrace:
		if p.cur().Kind == chtl_lexer.TSemicolon {
			p.next()
		}
		return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SAttribute{Name: name}}, true
	default:
		p.fail("expected \"{\" or \":\" after %q", name)
		return chtl_ast.Stmt{}, false
	}
}

// ---- style blocks ----

func (p *Parser) parseStyleStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next()
	if !p.expect(chtl_lexer.TOpenBrace) {
		return chtl_ast.Stmt{}, false
	}
	var body []chtl_ast.Stmt
	for p.cur().Kind != chtl_lexer.TCloseBrace && p.cur().Kind != chtl_lexer.TEOF {
		if stmt, ok := p.parseStyleBodyStmt(); ok {
			body = append(body, stmt)
		} else {
			p.resync()
		}
	}
	if !p.expect(chtl_lexer.TCloseBrace) {
		return chtl_ast.Stmt{}, false
	}
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SStyle{Body: body}}, true
}

func (p *Parser) parseStyleBodyStmt() (chtl_ast.Stmt, bool) {
	switch p.cur().Kind {
	case chtl_lexer.TAt:
		return p.parseUseTemplateStmt()
	case chtl_lexer.TLineComment, chtl_lexer.TBlockComment:
		p.next()
		return chtl_ast.Stmt{}, false
	case chtl_lexer.TGeneratorComment:
		loc := p.cur().Loc
		text := p.cur().Text
		p.next()
		return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SComment{Text: text, Generator: true}}, true
	}
	if p.looksLikeStyleRule() {
		return p.parseStyleRule()
	}
	switch p.cur().Kind {
	case chtl_lexer.TIdentifier, chtl_lexer.TKeyword:
		stmt, ok := p.parseElementOrAttribute(p.cur().Text)
		if el, isElement := stmt.Data.(*chtl_ast.SElement); ok && isElement {
			// An identifier followed by "{" inside a style block is a
			// tag-selector rule, not a child element.
			stmt.Data = &chtl_ast.SStyleRule{Selector: el.Name, Body: el.Body}
		}
		return stmt, ok
	default:
		p.fail("unexpected token in style block: %s", p.cur().Kind)
		return chtl_ast.Stmt{}, false
	}
}

// looksLikeStyleRule reports whether the current position begins a
// selector-based style rule rather than a plain property: a token that
// begins ".", "#", or "&". A rule led by an identifier followed by "{" is
// recognised after parsing, in parseStyleBodyStmt.
func (p *Parser) looksLikeStyleRule() bool {
	switch p.cur().Kind {
	case chtl_lexer.TDot, chtl_lexer.THash, chtl_lexer.TAmpersand:
		return true
	}
	return false
}

func (p *Parser) parseStyleRule() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	selector := p.parseSelector()
	if !p.expect(chtl_lexer.TOpenBrace) {
		return chtl_ast.Stmt{}, false
	}
	var body []chtl_ast.Stmt
	for p.cur().Kind != chtl_lexer.TCloseBrace && p.cur().Kind != chtl_lexer.TEOF {
		if stmt, ok := p.parseStyleBodyStmt(); ok {
			body = append(body, stmt)
		} else {
			p.resync()
		}
	}
	if !p.expect(chtl_lexer.TCloseBrace) {
		return chtl_ast.Stmt{}, false
	}
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SStyleRule{Selector: selector, Body: body}}, true
}

// parseSelector joins tokens with "&", ":", "::", identifier, ".", "#" into
// a single selector string, inserting a descendant-combinator space between
// two identifier-ish tokens but not between punctuation and an adjacent
// identifier (spec 4.3).
func (p *Parser) parseSelector() string {
	var b strings.Builder
	prevWasWord := false
	for {
		switch p.cur().Kind {
		case chtl_lexer.TDot:
			b.WriteByte('.')
			p.next()
			prevWasWord = false
			continue
		case chtl_lexer.THash:
			b.WriteByte('#')
			p.next()
			prevWasWord = false
			continue
		case chtl_lexer.TAmpersand:
			b.WriteByte('&')
			p.next()
			prevWasWord = false
			continue
		case chtl_lexer.TColon:
			b.WriteByte(':')
			p.next()
			if p.cur().Kind == chtl_lexer.TColon {
				b.WriteByte(':')
				p.next()
			}
			prevWasWord = false
			continue
		case chtl_lexer.TIdentifier, chtl_lexer.TKeyword:
			if prevWasWord {
				b.WriteByte(' ')
			}
			b.WriteString(p.cur().Text)
			p.next()
			prevWasWord = true
			continue
		}
		break
	}
	return b.String()
}

// ---- script / origin (raw bodies) ----

func (p *Parser) parseScriptStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next()
	if !p.expect(chtl_lexer.TOpenBrace) {
		return chtl_ast.Stmt{}, false
	}
	raw := p.lx.ReadRawBody()
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SScript{Raw: raw}}, true
}

func (p *Parser) parseOriginStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next() // consume [Origin]'s Origin keyword; caller already consumed "["
	if !p.expect(chtl_lexer.TCloseBracket) {
		return chtl_ast.Stmt{}, false
	}
	if !p.expect(chtl_lexer.TAt) {
		return chtl_ast.Stmt{}, false
	}
	originType := p.cur().Text
	p.next()
	name := ""
	if p.cur().Kind == chtl_lexer.TIdentifier {
		name = p.cur().Text
		p.next()
	}
	if !p.expect(chtl_lexer.TOpenBrace) {
		return chtl_ast.Stmt{}, false
	}
	raw := p.lx.ReadRawBody()
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SOrigin{Type: originType, Name: name, Raw: raw}}, true
}

// ---- if / else ----

func (p *Parser) parseIfStmt() (chtl_ast.Stmt, bool) {
	stmt, ok := p.parseIfClause()
	return stmt, ok
}

func (p *Parser) parseIfClause() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	if !p.expectKeyword(chtl_config.SlotIf) {
		return chtl_ast.Stmt{}, false
	}
	if !p.expect(chtl_lexer.TOpenBrace) {
		return chtl_ast.Stmt{}, false
	}
	if p.cur().Kind != chtl_lexer.TIdentifier || p.cur().Text != "condition" {
		p.fail("expected \"condition\"")
		return chtl_ast.Stmt{}, false
	}
	p.next()
	if !p.expect(chtl_lexer.TColon) {
		return chtl_ast.Stmt{}, false
	}
	cond := p.parseExpr(LLowest)
	if p.cur().Kind == chtl_lexer.TSemicolon {
		p.next()
	}
	then := p.parseStmtList(chtl_lexer.TCloseBrace)
	if !p.expect(chtl_lexer.TCloseBrace) {
		return chtl_ast.Stmt{}, false
	}

	ifStmt := &chtl_ast.SIf{Condition: cond, Then: then}

	if p.isKeyword(chtl_config.SlotElse) {
		p.next()
		if p.isKeyword(chtl_config.SlotIf) {
			elseIf, ok := p.parseIfClause()
			if !ok {
				return chtl_ast.Stmt{}, false
			}
			ifStmt.ElseIf = &elseIf
		} else {
			if !p.expect(chtl_lexer.TOpenBrace) {
				return chtl_ast.Stmt{}, false
			}
			ifStmt.Else = p.parseStmtList(chtl_lexer.TCloseBrace)
			if !p.expect(chtl_lexer.TCloseBrace) {
				return chtl_ast.Stmt{}, false
			}
		}
	}

	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: ifStmt}, true
}

// ---- except / delete / insert / inherit ----

func (p *Parser) parseExceptStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next()
	var targets []chtl_ast.Expr
	targets = append(targets, p.parseExceptTarget())
	for p.cur().Kind == chtl_lexer.TComma {
		p.next()
		targets = append(targets, p.parseExceptTarget())
	}
	if p.cur().Kind == chtl_lexer.TSemicolon {
		p.next()
	}
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SExcept{Targets: targets}}, true
}

// parseExceptTarget parses one constraint expression per the forbiddance
// rules in spec section 4.8: a plain tag name, a bare "@Html"-shaped kind
// literal, or a "[Category]@Kind" shaped category+kind literal (category
// alone, e.g. "[Custom]", is also legal).
func (p *Parser) parseExceptTarget() chtl_ast.Expr {
	loc := p.cur().Loc
	if p.cur().Kind == chtl_lexer.TOpenBracket {
		p.next()
		category := p.cur().Text
		p.next()
		p.expect(chtl_lexer.TCloseBracket)
		text := "[" + category + "]"
		if p.cur().Kind == chtl_lexer.TAt {
			p.next()
			kind := p.cur().Text
			p.next()
			text += "@" + kind
		}
		return chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EUnquotedLiteral{Value: text}}
	}
	if p.cur().Kind == chtl_lexer.TAt {
		p.next()
		kind := p.cur().Text
		p.next()
		return chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EUnquotedLiteral{Value: "@" + kind}}
	}
	name := p.cur().Text
	p.next()
	return chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EIdentifier{Name: name}}
}

func (p *Parser) parseDeleteStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next()
	targets := p.parseTargetList()
	if p.cur().Kind == chtl_lexer.TSemicolon {
		p.next()
	}
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SDelete{Targets: targets}}, true
}

func (p *Parser) parseTargetList() []chtl_ast.Expr {
	var out []chtl_ast.Expr
	out = append(out, p.parseTarget())
	for p.cur().Kind == chtl_lexer.TComma {
		p.next()
		out = append(out, p.parseTarget())
	}
	return out
}

// parseTarget parses an Insert/Delete target: either "@Style Name" (an
// UnquotedLiteral shorthand), "Tag[k]" (an Index expression), or a plain
// identifier (spec 4.7).
func (p *Parser) parseTarget() chtl_ast.Expr {
	loc := p.cur().Loc
	if p.cur().Kind == chtl_lexer.TAt {
		p.next()
		kind := p.cur().Text
		p.next()
		name := ""
		if p.cur().Kind == chtl_lexer.TIdentifier {
			name = p.cur().Text
			p.next()
		}
		text := "@" + kind
		if name != "" {
			text += " " + name
		}
		return chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EUnquotedLiteral{Value: text}}
	}

	name := p.cur().Text
	p.next()
	left := chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EIdentifier{Name: name}}
	if p.cur().Kind == chtl_lexer.TOpenBracket {
		p.next()
		idx := p.parseExpr(LLowest)
		if p.cur().Kind == chtl_lexer.TCloseBracket {
			p.next()
		}
		return chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EIndex{Left: left, Index: idx}}
	}
	return left
}

func (p *Parser) parseInsertStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next()

	var position chtl_ast.InsertPosition
	var target *chtl_ast.Expr

	switch {
	case p.isKeyword(chtl_config.SlotAfter):
		p.next()
		position = chtl_ast.InsertAfter
		t := p.parseTarget()
		target = &t
	case p.isKeyword(chtl_config.SlotBefore):
		p.next()
		position = chtl_ast.InsertBefore
		t := p.parseTarget()
		target = &t
	case p.isKeyword(chtl_config.SlotReplace):
		p.next()
		position = chtl_ast.InsertReplace
		t := p.parseTarget()
		target = &t
	case p.cur().Kind == chtl_lexer.TIdentifier && strings.EqualFold(p.cur().Text, "at"):
		p.next()
		if p.isKeyword(chtl_config.SlotAtTop) {
			position = chtl_ast.InsertAtTop
		} else if p.isKeyword(chtl_config.SlotAtBottom) {
			position = chtl_ast.InsertAtBottom
		} else {
			p.fail("expected \"top\" or \"bottom\" after \"at\"")
			return chtl_ast.Stmt{}, false
		}
		p.next()
	default:
		p.fail("expected insert position (after/before/replace/at top/at bottom)")
		return chtl_ast.Stmt{}, false
	}

	if !p.expect(chtl_lexer.TOpenBrace) {
		return chtl_ast.Stmt{}, false
	}
	body := p.parseStmtList(chtl_lexer.TCloseBrace)
	if !p.expect(chtl_lexer.TCloseBrace) {
		return chtl_ast.Stmt{}, false
	}
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SInsert{Position: position, Target: target, Body: body}}, true
}

func (p *Parser) parseInheritStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next()
	if !p.expect(chtl_lexer.TAt) {
		return chtl_ast.Stmt{}, false
	}
	kind, ok := p.parseTemplateKindKeyword()
	if !ok {
		return chtl_ast.Stmt{}, false
	}
	name := p.cur().Text
	p.next()
	fromNS := ""
	if p.isKeyword(chtl_config.SlotFrom) {
		p.next()
		fromNS = p.cur().Text
		p.next()
	}
	if p.cur().Kind == chtl_lexer.TSemicolon {
		p.next()
	}
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SInherit{Kind: kind, Name: name, FromNS: fromNS}}, true
}

func (p *Parser) parseTemplateKindKeyword() (chtl_ast.TemplateKind, bool) {
	var kind chtl_ast.TemplateKind
	switch {
	case p.isKeyword(chtl_config.SlotStyle):
		kind = chtl_ast.StyleKind
	case p.isKeyword(chtl_config.SlotElement):
		kind = chtl_ast.ElementKind
	case p.isKeyword(chtl_config.SlotVar):
		kind = chtl_ast.VarKind
	default:
		p.fail("expected style, element, or var after \"@\"")
		return 0, false
	}
	p.next()
	return kind, true
}

// ---- @style/@element/@var usage ----

func (p *Parser) parseUseTemplateStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next() // consume "@"
	kind, ok := p.parseTemplateKindKeyword()
	if !ok {
		return chtl_ast.Stmt{}, false
	}
	name := p.cur().Text
	p.next()

	fromNS := ""
	if p.isKeyword(chtl_config.SlotFrom) {
		p.next()
		fromNS = p.cur().Text
		p.next()
	}

	var body []chtl_ast.Stmt
	hasBody := false
	if p.cur().Kind == chtl_lexer.TOpenBrace {
		hasBody = true
		p.next()
		body = p.parseStmtList(chtl_lexer.TCloseBrace)
		if !p.expect(chtl_lexer.TCloseBrace) {
			return chtl_ast.Stmt{}, false
		}
	} else if p.cur().Kind == chtl_lexer.TSemicolon {
		p.next()
	}

	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SUseTemplate{
		Name: name, Kind: kind, FromNS: fromNS, Body: body, HasBody: hasBody,
	}}, true
}

// ---- use html5; / use @Config Name; ----

func (p *Parser) parseUseStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next()
	if p.isKeyword(chtl_config.SlotHTML) {
		p.next()
		if p.cur().Kind == chtl_lexer.TSemicolon {
			p.next()
		}
		return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SUse{IsHTML5: true}}, true
	}
	if p.cur().Kind == chtl_lexer.TAt {
		p.next()
		if !p.expectKeyword(chtl_config.SlotConfig) {
			return chtl_ast.Stmt{}, false
		}
		name := p.cur().Text
		p.next()
		if p.cur().Kind == chtl_lexer.TSemicolon {
			p.next()
		}
		return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SUse{ConfigName: name}}, true
	}
	p.fail("expected \"html5\" or \"@Config\" after \"use\"")
	return chtl_ast.Stmt{}, false
}

// ---- bracket directives: [Template]/[Custom], [Import], [Namespace],
// [Info], [Export], [Configuration], [Origin] ----

func (p *Parser) parseBracketDirective() (chtl_ast.Stmt, bool) {
	p.next() // consume "["
	switch {
	case p.isKeyword(chtl_config.SlotTemplate):
		return p.parseTemplateDefinition(false)
	case p.isKeyword(chtl_config.SlotCustom):
		return p.parseTemplateDefinition(true)
	case p.isKeyword(chtl_config.SlotImport):
		return p.parseImportStmt()
	case p.isKeyword(chtl_config.SlotNamespace):
		return p.parseNamespaceStmt()
	case p.isKeyword(chtl_config.SlotInfo):
		return p.parseInfoStmt()
	case p.isKeyword(chtl_config.SlotExport):
		return p.parseExportStmt()
	case p.isKeyword(chtl_config.SlotConfiguration):
		return p.parseConfigurationStmt()
	case p.isKeyword(chtl_config.SlotOrigin):
		return p.parseOriginStmt()
	default:
		p.fail("unexpected token after \"[\": %s", p.cur().Kind)
		return chtl_ast.Stmt{}, false
	}
}

func (p *Parser) parseTemplateDefinition(isCustom bool) (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next() // consume Template/Custom keyword
	if !p.expect(chtl_lexer.TCloseBracket) {
		return chtl_ast.Stmt{}, false
	}
	if !p.expect(chtl_lexer.TAt) {
		return chtl_ast.Stmt{}, false
	}
	kind, ok := p.parseTemplateKindKeyword()
	if !ok {
		return chtl_ast.Stmt{}, false
	}
	name := p.cur().Text
	p.next()
	if !p.expect(chtl_lexer.TOpenBrace) {
		return chtl_ast.Stmt{}, false
	}
	body := p.parseStmtList(chtl_lexer.TCloseBrace)
	if !p.expect(chtl_lexer.TCloseBrace) {
		return chtl_ast.Stmt{}, false
	}
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.STemplateDefinition{
		Name: name, Kind: kind, Body: body, IsCustom: isCustom,
	}}, true
}

// parsePath implements spec 4.3's "from" path grammar: either a quoted
// string, or identifier/dot/slash/number/file-kind tokens concatenated
// without whitespace.
func (p *Parser) parsePath() string {
	if p.cur().Kind == chtl_lexer.TString {
		text := p.cur().Text
		p.next()
		return text
	}
	var b strings.Builder
	for {
		switch p.cur().Kind {
		case chtl_lexer.TIdentifier, chtl_lexer.TKeyword:
			b.WriteString(p.cur().Text)
		case chtl_lexer.TDot:
			b.WriteByte('.')
		case chtl_lexer.TSlash:
			b.WriteByte('/')
		case chtl_lexer.TNumber:
			b.WriteString(p.cur().Text)
			b.WriteString(p.cur().Unit)
		default:
			return b.String()
		}
		p.next()
	}
}

func (p *Parser) parseImportStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next() // consume Import keyword
	if !p.expect(chtl_lexer.TCloseBracket) {
		return chtl_ast.Stmt{}, false
	}

	imp := &chtl_ast.SImport{}

	if p.cur().Kind == chtl_lexer.TAt {
		// "@<file-kind>" => FileImport
		p.next()
		imp.SpecifierKind = chtl_ast.FileImportSpecifier
		imp.FileKind = p.cur().Text
		p.next()
	} else if p.cur().Kind == chtl_lexer.TOpenBracket {
		// "[Custom|Template|Origin|Configuration] @<type> <Name?>" => ItemImport
		p.next()
		imp.SpecifierKind = chtl_ast.ItemImportSpecifier
		imp.Category = p.cur().Text
		p.next()
		if !p.expect(chtl_lexer.TCloseBracket) {
			return chtl_ast.Stmt{}, false
		}
		if !p.expect(chtl_lexer.TAt) {
			return chtl_ast.Stmt{}, false
		}
		imp.Type = p.cur().Text
		p.next()
		if p.cur().Kind == chtl_lexer.TIdentifier {
			imp.Name = p.cur().Text
			p.next()
		}
	} else {
		p.fail("expected \"@\" or \"[\" after [Import]")
		return chtl_ast.Stmt{}, false
	}

	if p.isKeyword(chtl_config.SlotAs) {
		p.next()
		imp.Alias = p.cur().Text
		p.next()
	}

	if !p.expectKeyword(chtl_config.SlotFrom) {
		return chtl_ast.Stmt{}, false
	}
	imp.Path = p.parsePath()
	if p.cur().Kind == chtl_lexer.TSemicolon {
		p.next()
	}
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: imp}, true
}

func (p *Parser) parseNamespaceStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next() // consume Namespace keyword
	if !p.expect(chtl_lexer.TCloseBracket) {
		return chtl_ast.Stmt{}, false
	}
	name := p.cur().Text
	p.next()
	if p.cur().Kind == chtl_lexer.TSemicolon {
		p.next()
	}
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SNamespace{Name: name}}, true
}

func (p *Parser) parseInfoStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next() // consume Info keyword
	if !p.expect(chtl_lexer.TCloseBracket) {
		return chtl_ast.Stmt{}, false
	}
	if !p.expect(chtl_lexer.TOpenBrace) {
		return chtl_ast.Stmt{}, false
	}
	var kvs []chtl_ast.KV
	for p.cur().Kind != chtl_lexer.TCloseBrace && p.cur().Kind != chtl_lexer.TEOF {
		key := p.cur().Text
		p.next()
		if !p.expect(chtl_lexer.TColon) {
			p.resync()
			continue
		}
		val := p.parseExpr(LLowest)
		if p.cur().Kind == chtl_lexer.TSemicolon {
			p.next()
		}
		kvs = append(kvs, chtl_ast.KV{Key: key, Value: exprLiteralText(val)})
	}
	if !p.expect(chtl_lexer.TCloseBrace) {
		return chtl_ast.Stmt{}, false
	}
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SInfo{Attrs: kvs}}, true
}

func exprLiteralText(e chtl_ast.Expr) string {
	switch v := e.Data.(type) {
	case *chtl_ast.EStringLiteral:
		return v.Value
	case *chtl_ast.EIdentifier:
		return v.Name
	case *chtl_ast.EUnquotedLiteral:
		return v.Value
	case *chtl_ast.ENumberLiteral:
		return v.Value + v.Unit
	}
	return ""
}

func (p *Parser) parseExportStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next() // consume Export keyword
	if !p.expect(chtl_lexer.TCloseBracket) {
		return chtl_ast.Stmt{}, false
	}
	if !p.expect(chtl_lexer.TOpenBrace) {
		return chtl_ast.Stmt{}, false
	}
	var items []chtl_ast.ExportItem
	for p.cur().Kind != chtl_lexer.TCloseBrace && p.cur().Kind != chtl_lexer.TEOF {
		item := chtl_ast.ExportItem{}
		if p.cur().Kind == chtl_lexer.TOpenBracket {
			p.next()
			item.Category = p.cur().Text
			p.next()
			if !p.expect(chtl_lexer.TCloseBracket) {
				p.resync()
				continue
			}
		}
		if !p.expect(chtl_lexer.TAt) {
			p.resync()
			continue
		}
		item.Type = p.cur().Text
		p.next()
		for p.cur().Kind == chtl_lexer.TIdentifier {
			item.Names = append(item.Names, p.cur().Text)
			p.next()
			if p.cur().Kind == chtl_lexer.TComma {
				p.next()
				continue
			}
			break
		}
		if p.cur().Kind == chtl_lexer.TSemicolon {
			p.next()
		}
		items = append(items, item)
	}
	if !p.expect(chtl_lexer.TCloseBrace) {
		return chtl_ast.Stmt{}, false
	}
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SExport{Items: items}}, true
}

func (p *Parser) parseConfigurationStmt() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next() // consume Configuration keyword
	if !p.expect(chtl_lexer.TCloseBracket) {
		return chtl_ast.Stmt{}, false
	}
	name := ""
	if p.cur().Kind == chtl_lexer.TAt {
		p.next()
		if !p.expectKeyword(chtl_config.SlotConfig) {
			return chtl_ast.Stmt{}, false
		}
		name = p.cur().Text
		p.next()
	}
	if !p.expect(chtl_lexer.TOpenBrace) {
		return chtl_ast.Stmt{}, false
	}
	var body []chtl_ast.Stmt
	for p.cur().Kind != chtl_lexer.TCloseBrace && p.cur().Kind != chtl_lexer.TEOF {
		if p.cur().Kind == chtl_lexer.TOpenBracket {
			if stmt, ok := p.parseNameBlock(); ok {
				body = append(body, stmt)
			} else {
				p.resync()
			}
			continue
		}
		key := p.cur().Text
		loc2 := p.cur().Loc
		p.next()
		if !p.expect(chtl_lexer.TColon) {
			p.resync()
			continue
		}
		val := p.parseExpr(LLowest)
		if p.cur().Kind == chtl_lexer.TSemicolon {
			p.next()
		}
		body = append(body, chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc2}, Data: &chtl_ast.SAttribute{Name: key, Value: &val}})
	}
	if !p.expect(chtl_lexer.TCloseBrace) {
		return chtl_ast.Stmt{}, false
	}
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SConfiguration{Name: name, Body: body}}, true
}

func (p *Parser) parseNameBlock() (chtl_ast.Stmt, bool) {
	loc := p.cur().Loc
	p.next() // consume "["
	if !p.expectKeyword(chtl_config.SlotName) {
		return chtl_ast.Stmt{}, false
	}
	if !p.expect(chtl_lexer.TCloseBracket) {
		return chtl_ast.Stmt{}, false
	}
	if !p.expect(chtl_lexer.TOpenBrace) {
		return chtl_ast.Stmt{}, false
	}
	var settings []chtl_ast.NameSetting
	for p.cur().Kind != chtl_lexer.TCloseBrace && p.cur().Kind != chtl_lexer.TEOF {
		key := p.cur().Text
		p.next()
		if !p.expect(chtl_lexer.TColon) {
			p.resync()
			continue
		}
		var values []string
		if p.cur().Kind == chtl_lexer.TOpenBracket {
			p.next()
			for p.cur().Kind != chtl_lexer.TCloseBracket && p.cur().Kind != chtl_lexer.TEOF {
				values = append(values, literalText(p.parseExpr(LLowest)))
				if p.cur().Kind == chtl_lexer.TComma {
					p.next()
				}
			}
			if p.cur().Kind == chtl_lexer.TCloseBracket {
				p.next()
			}
		} else {
			values = []string{literalText(p.parseExpr(LLowest))}
		}
		if p.cur().Kind == chtl_lexer.TSemicolon {
			p.next()
		}
		settings = append(settings, chtl_ast.NameSetting{Key: key, Values: values})
	}
	if !p.expect(chtl_lexer.TCloseBrace) {
		return chtl_ast.Stmt{}, false
	}
	return chtl_ast.Stmt{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.SNameBlock{Settings: settings}}, true
}

func literalText(e chtl_ast.Expr) string {
	return exprLiteralText(e)
}

// ---- Pratt expression parser ----

func (p *Parser) parseExpr(level L) chtl_ast.Expr {
	left := p.parsePrefix()
	return p.parseSuffix(left, level)
}

func (p *Parser) parsePrefix() chtl_ast.Expr {
	loc := p.cur().Loc
	switch p.cur().Kind {
	case chtl_lexer.TNumber:
		tok := p.cur()
		p.next()
		return chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.ENumberLiteral{Value: tok.Text, Unit: tok.Unit}}

	case chtl_lexer.TString:
		text := p.cur().Text
		p.next()
		return chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EStringLiteral{Value: text}}

	case chtl_lexer.TResponsive:
		name := p.cur().Text
		p.next()
		return chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EResponsiveValue{Name: name}}

	case chtl_lexer.THash:
		p.next()
		name := p.cur().Text
		p.next()
		return chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EUnquotedLiteral{Value: "#" + name}}

	case chtl_lexer.TDot:
		p.next()
		name := p.cur().Text
		p.next()
		return chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EUnquotedLiteral{Value: "." + name}}

	case chtl_lexer.TOpenParen:
		p.next()
		inner := p.parseExpr(LLowest)
		p.expect(chtl_lexer.TCloseParen)
		return inner

	case chtl_lexer.TIdentifier:
		name := p.cur().Text
		p.next()
		return chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EIdentifier{Name: name}}

	case chtl_lexer.TKeyword:
		name := p.cur().Text
		p.next()
		return chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EIdentifier{Name: name}}

	default:
		p.fail("unexpected token in expression: %s", p.cur().Kind)
		p.next()
		return chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EStringLiteral{Value: ""}}
	}
}

func (p *Parser) parseSuffix(left chtl_ast.Expr, level L) chtl_ast.Expr {
	for {
		switch p.cur().Kind {
		case chtl_lexer.TGreaterThan, chtl_lexer.TLessThan:
			if level >= LCompare {
				return left
			}
			op := "<"
			if p.cur().Kind == chtl_lexer.TGreaterThan {
				op = ">"
			}
			loc := p.cur().Loc
			p.next()
			right := p.parseExpr(LCompare)
			left = chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EInfix{Left: left, Op: op, Right: right}}

		case chtl_lexer.TPlus, chtl_lexer.TMinus:
			if level >= LSum {
				return left
			}
			op := "+"
			if p.cur().Kind == chtl_lexer.TMinus {
				op = "-"
			}
			loc := p.cur().Loc
			p.next()
			right := p.parseExpr(LSum)
			left = chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EInfix{Left: left, Op: op, Right: right}}

		case chtl_lexer.TStar, chtl_lexer.TSlash, chtl_lexer.TPercent:
			if level >= LProduct {
				return left
			}
			op := map[chtl_lexer.T]string{chtl_lexer.TStar: "*", chtl_lexer.TSlash: "/", chtl_lexer.TPercent: "%"}[p.cur().Kind]
			loc := p.cur().Loc
			p.next()
			right := p.parseExpr(LProduct)
			left = chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EInfix{Left: left, Op: op, Right: right}}

		case chtl_lexer.TPower:
			if level >= LPower {
				return left
			}
			loc := p.cur().Loc
			p.next()
			right := p.parseExpr(LPower)
			left = chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EInfix{Left: left, Op: "**", Right: right}}

		case chtl_lexer.TOpenParen:
			if level >= LCall {
				return left
			}
			loc := p.cur().Loc
			p.next()
			var args []chtl_ast.Expr
			for p.cur().Kind != chtl_lexer.TCloseParen && p.cur().Kind != chtl_lexer.TEOF {
				args = append(args, p.parseExpr(LLowest))
				if p.cur().Kind == chtl_lexer.TComma {
					p.next()
				}
			}
			p.expect(chtl_lexer.TCloseParen)
			left = chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EFunctionCall{Callee: left, Args: args}}

		case chtl_lexer.TDot:
			if level >= LPropertyAccess {
				return left
			}
			loc := p.cur().Loc
			p.next()
			prop := p.cur().Text
			p.next()
			left = chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EPropertyAccess{Object: left, Property: prop}}

		case chtl_lexer.TQuestion:
			if level >= LConditional {
				return left
			}
			loc := p.cur().Loc
			p.next()
			then := p.parseExpr(LConditional)
			var elsePtr *chtl_ast.Expr
			if p.cur().Kind == chtl_lexer.TColon {
				p.next()
				e := p.parseExpr(LConditional)
				elsePtr = &e
			}
			left = chtl_ast.Expr{Loc: chtl_ast.Loc{Start: loc}, Data: &chtl_ast.EConditional{Cond: left, Then: then, Else: elsePtr}}

		default:
			return left
		}
	}
}
