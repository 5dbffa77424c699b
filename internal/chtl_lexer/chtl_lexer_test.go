package chtl_lexer_test

import (
	"testing"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_config"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_lexer"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_logger"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_testutil"
)

func newLexer(t *testing.T, src string) *chtl_lexer.Lexer {
	t.Helper()
	log := chtl_logger.NewDeferLog()
	source := chtl_testutil.SourceForTest(src)
	return chtl_lexer.NewLexer(log, source, chtl_config.NewDefaultStore())
}

func TestKeywordVsIdentifier(t *testing.T) {
	lx := newLexer(t, "div style mything")
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TIdentifier)
	chtl_testutil.AssertEqual(t, lx.Token.Text, "div")
	lx.Next()
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TKeyword)
	chtl_testutil.AssertEqual(t, lx.Token.Slot, chtl_config.SlotStyle)
	lx.Next()
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TIdentifier)
}

func TestColonEqualsEquivalence(t *testing.T) {
	lx := newLexer(t, ":")
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TColon)
	lx2 := newLexer(t, "=")
	chtl_testutil.AssertEqual(t, lx2.Token.Kind, chtl_lexer.TColon)
}

func TestNumberWithUnit(t *testing.T) {
	lx := newLexer(t, "100px")
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TNumber)
	chtl_testutil.AssertEqual(t, lx.Token.Text, "100")
	chtl_testutil.AssertEqual(t, lx.Token.Unit, "px")
}

func TestNumberWithFraction(t *testing.T) {
	lx := newLexer(t, "0.5em")
	chtl_testutil.AssertEqual(t, lx.Token.Text, "0.5")
	chtl_testutil.AssertEqual(t, lx.Token.Unit, "em")
}

func TestNumberWithoutFractionDigitsLeavesDotAlone(t *testing.T) {
	lx := newLexer(t, "100.")
	chtl_testutil.AssertEqual(t, lx.Token.Text, "100")
	lx.Next()
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TDot)
}

func TestStringLiteralBothQuoteStyles(t *testing.T) {
	lx := newLexer(t, `"hi" 'there'`)
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TString)
	chtl_testutil.AssertEqual(t, lx.Token.Text, "hi")
	lx.Next()
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TString)
	chtl_testutil.AssertEqual(t, lx.Token.Text, "there")
}

func TestGeneratorCommentRequiresSpace(t *testing.T) {
	lx := newLexer(t, "# a generator comment\n#nota")
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TGeneratorComment)
	chtl_testutil.AssertEqual(t, lx.Token.Text, "a generator comment")
	lx.Next()
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.THash)
}

func TestDoubleAmpersandVsSingle(t *testing.T) {
	lx := newLexer(t, "&& &")
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TAndAnd)
	lx.Next()
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TAmpersand)
}

func TestLineAndBlockComments(t *testing.T) {
	lx := newLexer(t, "// line\n/* block */ div")
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TLineComment)
	lx.Next()
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TBlockComment)
	chtl_testutil.AssertEqual(t, lx.Token.Text, " block ")
	lx.Next()
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TIdentifier)
}

func TestReadRawBodyTracksBraceDepth(t *testing.T) {
	log := chtl_logger.NewDeferLog()
	source := chtl_testutil.SourceForTest("{ a { b } c }more")
	lx := chtl_lexer.NewLexer(log, source, chtl_config.NewDefaultStore())
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TOpenBrace)
	lx.Next()
	raw := lx.ReadRawBody()
	chtl_testutil.AssertEqual(t, raw, " a { b } c ")
	chtl_testutil.AssertEqual(t, lx.Token.Text, "more")
}

func TestRebindKeywordSpellingChangesClassification(t *testing.T) {
	cfg := chtl_config.NewDefaultStore()
	cfg.Rebind(chtl_config.SlotStyle, []string{"css"})
	log := chtl_logger.NewDeferLog()
	source := chtl_testutil.SourceForTest("style css")
	lx := chtl_lexer.NewLexer(log, source, cfg)
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TIdentifier)
	lx.Next()
	chtl_testutil.AssertEqual(t, lx.Token.Kind, chtl_lexer.TKeyword)
	chtl_testutil.AssertEqual(t, lx.Token.Slot, chtl_config.SlotStyle)
}
