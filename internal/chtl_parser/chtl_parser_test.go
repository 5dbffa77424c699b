package chtl_parser_test

import (
	"testing"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_ast"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_logger"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_parser"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_testutil"
)

func parse(t *testing.T, src string) *chtl_ast.Program {
	t.Helper()
	log := chtl_logger.NewDeferLog()
	source := chtl_testutil.SourceForTest(src)
	prog, _, errCount := chtl_parser.ParseFile(log, source)
	if errCount > 0 {
		for _, msg := range log.Done() {
			t.Log(msg.String())
		}
		t.Fatalf("unexpected parse errors: %d", errCount)
	}
	return prog
}

func TestParsesSingleElementWithTextBlock(t *testing.T) {
	prog := parse(t, `div { text { "hi" } }`)
	chtl_testutil.AssertEqual(t, len(prog.Stmts), 1)
	el, ok := prog.Stmts[0].Data.(*chtl_ast.SElement)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, el.Name, "div")
	chtl_testutil.AssertEqual(t, len(el.Body), 1)
	_, isText := el.Body[0].Data.(*chtl_ast.SText)
	chtl_testutil.AssertEqual(t, isText, true)
}

func TestTextColonShorthandProducesTextStatementNotAttribute(t *testing.T) {
	prog := parse(t, `div { text: "hi"; }`)
	el := prog.Stmts[0].Data.(*chtl_ast.SElement)
	chtl_testutil.AssertEqual(t, len(el.Body), 1)
	text, ok := el.Body[0].Data.(*chtl_ast.SText)
	chtl_testutil.AssertEqual(t, ok, true)
	str, ok := text.Value.Data.(*chtl_ast.EStringLiteral)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, str.Value, "hi")
}

func TestPlainAttributeColonShorthand(t *testing.T) {
	prog := parse(t, `div { id: "box"; }`)
	el := prog.Stmts[0].Data.(*chtl_ast.SElement)
	attr, ok := el.Body[0].Data.(*chtl_ast.SAttribute)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, attr.Name, "id")
}

func TestNestedElements(t *testing.T) {
	prog := parse(t, `div { span { text { "leaf" } } }`)
	outer := prog.Stmts[0].Data.(*chtl_ast.SElement)
	inner := outer.Body[0].Data.(*chtl_ast.SElement)
	chtl_testutil.AssertEqual(t, inner.Name, "span")
}

func TestStyleBlockWithRuleAndProperty(t *testing.T) {
	prog := parse(t, `div { style { width: 100px; .box { color: red; } } }`)
	el := prog.Stmts[0].Data.(*chtl_ast.SElement)
	style, ok := el.Body[0].Data.(*chtl_ast.SStyle)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, len(style.Body), 2)
	_, isAttr := style.Body[0].Data.(*chtl_ast.SAttribute)
	chtl_testutil.AssertEqual(t, isAttr, true)
	_, isRule := style.Body[1].Data.(*chtl_ast.SStyleRule)
	chtl_testutil.AssertEqual(t, isRule, true)
}

func TestArithmeticExpressionPrecedence(t *testing.T) {
	prog := parse(t, `div { style { width: 100px + 50 * 2; } }`)
	el := prog.Stmts[0].Data.(*chtl_ast.SElement)
	style := el.Body[0].Data.(*chtl_ast.SStyle)
	attr := style.Body[0].Data.(*chtl_ast.SAttribute)
	infix, ok := attr.Value.Data.(*chtl_ast.EInfix)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, infix.Op, "+")
	rightInfix, ok := infix.Right.Data.(*chtl_ast.EInfix)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, rightInfix.Op, "*")
}

func TestConditionalExpression(t *testing.T) {
	prog := parse(t, `div { style { color: width > 50px ? "red" : "blue"; } }`)
	el := prog.Stmts[0].Data.(*chtl_ast.SElement)
	style := el.Body[0].Data.(*chtl_ast.SStyle)
	attr := style.Body[0].Data.(*chtl_ast.SAttribute)
	_, ok := attr.Value.Data.(*chtl_ast.EConditional)
	chtl_testutil.AssertEqual(t, ok, true)
}

func TestPropertyAccessExpression(t *testing.T) {
	prog := parse(t, `span { style { height: #box.width; } }`)
	el := prog.Stmts[0].Data.(*chtl_ast.SElement)
	style := el.Body[0].Data.(*chtl_ast.SStyle)
	attr := style.Body[0].Data.(*chtl_ast.SAttribute)
	access, ok := attr.Value.Data.(*chtl_ast.EPropertyAccess)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, access.Property, "width")
}

func TestTemplateDefinitionAndUse(t *testing.T) {
	prog := parse(t, `[Template] @Style Base { color: red; } div { style { @Style Base; } }`)
	chtl_testutil.AssertEqual(t, len(prog.Stmts), 2)
	def, ok := prog.Stmts[0].Data.(*chtl_ast.STemplateDefinition)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, def.Name, "Base")
	chtl_testutil.AssertEqual(t, def.Kind, chtl_ast.StyleKind)
}

func TestCustomElementTemplateWithSpecialization(t *testing.T) {
	prog := parse(t, `[Custom] @Element C { p{text:"1"} } body{ @Element C { delete p; } }`)
	body := prog.Stmts[1].Data.(*chtl_ast.SElement)
	use, ok := body.Body[0].Data.(*chtl_ast.SUseTemplate)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, use.Name, "C")
	chtl_testutil.AssertEqual(t, use.HasBody, true)
}

func TestUseHTML5Statement(t *testing.T) {
	prog := parse(t, `use html5;`)
	use, ok := prog.Stmts[0].Data.(*chtl_ast.SUse)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, use.IsHTML5, true)
}

func TestExceptStatementParsesTagTarget(t *testing.T) {
	prog := parse(t, `div { except span; }`)
	el := prog.Stmts[0].Data.(*chtl_ast.SElement)
	except, ok := el.Body[0].Data.(*chtl_ast.SExcept)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, len(except.Targets), 1)
}

func TestOriginHtmlBlockCapturesRawBody(t *testing.T) {
	prog := parse(t, `div { [Origin] @Html { <b>raw</b> } }`)
	el := prog.Stmts[0].Data.(*chtl_ast.SElement)
	origin, ok := el.Body[0].Data.(*chtl_ast.SOrigin)
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, origin.Type, "Html")
}
