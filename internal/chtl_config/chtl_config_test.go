package chtl_config_test

import (
	"testing"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_ast"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_config"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_testutil"
)

func TestDefaultSpellings(t *testing.T) {
	s := chtl_config.NewDefaultStore()
	chtl_testutil.AssertEqual(t, s.Spelling(chtl_config.SlotHTML), "html5")
	chtl_testutil.AssertEqual(t, s.Spelling(chtl_config.SlotText), "text")
	slot, ok := s.LookupSlot("STYLE")
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, slot, chtl_config.SlotStyle)
}

func TestRebindChangesCanonicalSpelling(t *testing.T) {
	s := chtl_config.NewDefaultStore()
	s.Rebind(chtl_config.SlotText, []string{"txt", "text"})
	chtl_testutil.AssertEqual(t, s.Spelling(chtl_config.SlotText), "txt")
	_, oldStillBound := s.LookupSlot("text")
	chtl_testutil.AssertEqual(t, oldStillBound, true)
	slot, ok := s.LookupSlot("TXT")
	chtl_testutil.AssertEqual(t, ok, true)
	chtl_testutil.AssertEqual(t, slot, chtl_config.SlotText)
}

func TestRebindWithEmptyValueLeavesBindingIntact(t *testing.T) {
	s := chtl_config.NewDefaultStore()
	s.Rebind(chtl_config.SlotText, nil)
	chtl_testutil.AssertEqual(t, s.Spelling(chtl_config.SlotText), "text")

	s.Rebind(chtl_config.SlotStyle, []string{"css", ""})
	chtl_testutil.AssertEqual(t, s.Spelling(chtl_config.SlotStyle), "style")
}

func TestCloneIsIndependent(t *testing.T) {
	s := chtl_config.NewDefaultStore()
	clone := s.Clone()
	clone.Rebind(chtl_config.SlotText, []string{"txt"})
	chtl_testutil.AssertEqual(t, s.Spelling(chtl_config.SlotText), "text")
	chtl_testutil.AssertEqual(t, clone.Spelling(chtl_config.SlotText), "txt")
}

func strAttr(name, value string) chtl_ast.Stmt {
	v := chtl_ast.Expr{Data: &chtl_ast.EStringLiteral{Value: value}}
	return chtl_ast.Stmt{Data: &chtl_ast.SAttribute{Name: name, Value: &v}}
}

func TestApplyScalarSettings(t *testing.T) {
	s := chtl_config.NewDefaultStore()
	cfg := &chtl_ast.SConfiguration{Body: []chtl_ast.Stmt{
		strAttr("DEBUG_MODE", "true"),
		strAttr("INDEX_INITIAL_COUNT", "1"),
	}}
	diags := chtl_config.Apply(s, cfg)
	chtl_testutil.AssertEqual(t, len(diags), 0)
	chtl_testutil.AssertEqual(t, s.DebugMode, true)
}

func TestApplyUnknownScalarWarns(t *testing.T) {
	s := chtl_config.NewDefaultStore()
	cfg := &chtl_ast.SConfiguration{Body: []chtl_ast.Stmt{
		strAttr("NOT_A_REAL_SETTING", "1"),
	}}
	diags := chtl_config.Apply(s, cfg)
	chtl_testutil.AssertEqual(t, len(diags), 1)
}

func TestApplyNameBlockRebindsKeyword(t *testing.T) {
	s := chtl_config.NewDefaultStore()
	cfg := &chtl_ast.SConfiguration{Body: []chtl_ast.Stmt{
		{Data: &chtl_ast.SNameBlock{Settings: []chtl_ast.NameSetting{
			{Key: "KEYWORD_TEXT", Values: []string{"txt"}},
		}}},
	}}
	chtl_config.Apply(s, cfg)
	chtl_testutil.AssertEqual(t, s.Spelling(chtl_config.SlotText), "txt")
}

func TestApplyNameBlockSkippedWhenDisabled(t *testing.T) {
	s := chtl_config.NewDefaultStore()
	s.DisableNameGroup = true
	cfg := &chtl_ast.SConfiguration{Body: []chtl_ast.Stmt{
		{Data: &chtl_ast.SNameBlock{Settings: []chtl_ast.NameSetting{
			{Key: "KEYWORD_TEXT", Values: []string{"txt"}},
		}}},
	}}
	chtl_config.Apply(s, cfg)
	chtl_testutil.AssertEqual(t, s.Spelling(chtl_config.SlotText), "text")
}
