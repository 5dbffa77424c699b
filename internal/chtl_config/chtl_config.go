// Package chtl_config implements the ConfigStore described in spec section
// 4.1: a process-lifetime-scoped mapping from internal keyword slots to the
// surface spellings the lexer recognizes, plus a handful of scalar options.
// It is populated by a pre-pass over the source (see chtl_parser.ParseFile)
// and then borrowed read-only by the lexer for the main pass.
package chtl_config

import (
	"strings"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_ast"
)

// KeywordSlot identifies a reserved keyword's stable identity. Its surface
// spelling can be rebound by a [Configuration] block's [Name] settings, but
// the slot itself never changes.
type KeywordSlot uint8

const (
	SlotText KeywordSlot = iota
	SlotStyle
	SlotScript
	SlotTemplate
	SlotCustom
	SlotElement
	SlotVar
	SlotOrigin
	SlotImport
	SlotNamespace
	SlotConfiguration
	SlotUse
	SlotIf
	SlotElse
	SlotExcept
	SlotInherit
	SlotDelete
	SlotInsert
	SlotAfter
	SlotBefore
	SlotReplace
	SlotFrom
	SlotAs
	SlotHTML
	SlotJavaScript
	SlotChtl
	SlotCjmod
	SlotConfig
	SlotInfo
	SlotExport
	SlotName
	SlotAtTop
	SlotAtBottom

	slotCount
)

// defaultSpellings gives every slot its out-of-the-box, case-insensitive
// surface spelling. These are the values scenario inputs in spec section 8
// are written against.
var defaultSpellings = [slotCount]string{
	SlotText:          "text",
	SlotStyle:         "style",
	SlotScript:        "script",
	SlotTemplate:      "template",
	SlotCustom:        "custom",
	SlotElement:       "element",
	SlotVar:           "var",
	SlotOrigin:        "origin",
	SlotImport:        "import",
	SlotNamespace:     "namespace",
	SlotConfiguration: "configuration",
	SlotUse:           "use",
	SlotIf:            "if",
	SlotElse:          "else",
	SlotExcept:        "except",
	SlotInherit:       "inherit",
	SlotDelete:        "delete",
	SlotInsert:        "insert",
	SlotAfter:         "after",
	SlotBefore:        "before",
	SlotReplace:       "replace",
	SlotFrom:          "from",
	SlotAs:            "as",
	SlotHTML:          "html5",
	SlotJavaScript:    "javascript",
	SlotChtl:          "chtl",
	SlotCjmod:         "cjmod",
	SlotConfig:        "config",
	SlotInfo:          "info",
	SlotExport:        "export",
	SlotName:          "name",
	SlotAtTop:         "top",
	SlotAtBottom:      "bottom",
}

// Setting keys for the scalar configuration options (as opposed to keyword
// rebinding). They appear as attributes directly in a [Configuration] body,
// not inside its [Name] block; applyScalar maps each to a Store field.
const (
	settingIndexInitialCount = "INDEX_INITIAL_COUNT"
	settingDebugMode         = "DEBUG_MODE"
	settingDisableNameGroup  = "DISABLE_NAME_GROUP"
)

// slotSettingName maps a KEYWORD_X setting key (as it appears inside a
// [Name] block) to the keyword slot it rebinds. Keys are matched
// case-insensitively.
var slotSettingName = map[string]KeywordSlot{
	"KEYWORD_TEXT":          SlotText,
	"KEYWORD_STYLE":         SlotStyle,
	"KEYWORD_SCRIPT":        SlotScript,
	"KEYWORD_TEMPLATE":      SlotTemplate,
	"KEYWORD_CUSTOM":        SlotCustom,
	"KEYWORD_ELEMENT":       SlotElement,
	"KEYWORD_VAR":           SlotVar,
	"KEYWORD_ORIGIN":        SlotOrigin,
	"KEYWORD_IMPORT":        SlotImport,
	"KEYWORD_NAMESPACE":     SlotNamespace,
	"KEYWORD_CONFIGURATION": SlotConfiguration,
	"KEYWORD_USE":           SlotUse,
	"KEYWORD_IF":            SlotIf,
	"KEYWORD_ELSE":          SlotElse,
	"KEYWORD_EXCEPT":        SlotExcept,
	"KEYWORD_INHERIT":       SlotInherit,
	"KEYWORD_DELETE":        SlotDelete,
	"KEYWORD_INSERT":        SlotInsert,
	"KEYWORD_AFTER":         SlotAfter,
	"KEYWORD_BEFORE":        SlotBefore,
	"KEYWORD_REPLACE":       SlotReplace,
	"KEYWORD_FROM":          SlotFrom,
	"KEYWORD_AS":            SlotAs,
	"KEYWORD_HTML":          SlotHTML,
	"KEYWORD_JAVASCRIPT":    SlotJavaScript,
	"KEYWORD_CHTL":          SlotChtl,
	"KEYWORD_CJMOD":         SlotCjmod,
	"KEYWORD_CONFIG":        SlotConfig,
	"KEYWORD_INFO":          SlotInfo,
	"KEYWORD_EXPORT":        SlotExport,
	"KEYWORD_NAME":          SlotName,
	"KEYWORD_AT_TOP":        SlotAtTop,
	"KEYWORD_AT_BOTTOM":     SlotAtBottom,
}

// Store is a keyword cross-map (slot<->spelling) plus scalar fields. The
// zero value is not usable; construct one with NewDefaultStore.
type Store struct {
	slotToSpelling map[KeywordSlot]string
	spellingToSlot map[string]KeywordSlot // case-folded spelling -> slot

	IndexInitialCount int64
	DebugMode         bool
	DisableNameGroup  bool
}

// NewDefaultStore builds a Store with every slot bound to its default
// spelling and all scalar options at their zero value.
func NewDefaultStore() *Store {
	s := &Store{
		slotToSpelling: make(map[KeywordSlot]string, slotCount),
		spellingToSlot: make(map[string]KeywordSlot, slotCount),
	}
	for slot := KeywordSlot(0); slot < slotCount; slot++ {
		spelling := defaultSpellings[slot]
		s.slotToSpelling[slot] = spelling
		s.spellingToSlot[strings.ToLower(spelling)] = slot
	}
	return s
}

// Clone deep-copies the keyword tables so a pre-pass Store can be mutated
// without touching the default the lexer's first pass used.
func (s *Store) Clone() *Store {
	out := &Store{
		slotToSpelling:    make(map[KeywordSlot]string, len(s.slotToSpelling)),
		spellingToSlot:    make(map[string]KeywordSlot, len(s.spellingToSlot)),
		IndexInitialCount: s.IndexInitialCount,
		DebugMode:         s.DebugMode,
		DisableNameGroup:  s.DisableNameGroup,
	}
	for k, v := range s.slotToSpelling {
		out.slotToSpelling[k] = v
	}
	for k, v := range s.spellingToSlot {
		out.spellingToSlot[k] = v
	}
	return out
}

// LookupSlot resolves a surface spelling (case-insensitively) to its slot.
func (s *Store) LookupSlot(spelling string) (KeywordSlot, bool) {
	slot, ok := s.spellingToSlot[strings.ToLower(spelling)]
	return slot, ok
}

// Spelling returns a slot's current canonical surface spelling.
func (s *Store) Spelling(slot KeywordSlot) string {
	return s.slotToSpelling[slot]
}

// Rebind removes the slot's current canonical spelling and binds every
// entry of newSpellings to the slot; other spellings bound to the slot by an
// earlier Rebind stay bound. The canonical spelling (returned by Spelling)
// becomes newSpellings[0].
// Rebind is atomic: on an empty or otherwise invalid newSpellings it leaves
// the store untouched, per spec 4.1's "If V evaluates to nothing
// recognizable, restore the previous binding."
func (s *Store) Rebind(slot KeywordSlot, newSpellings []string) {
	if len(newSpellings) == 0 {
		return
	}
	for _, sp := range newSpellings {
		if sp == "" {
			return
		}
	}

	old := s.slotToSpelling[slot]
	delete(s.spellingToSlot, strings.ToLower(old))

	for _, sp := range newSpellings {
		s.spellingToSlot[strings.ToLower(sp)] = slot
	}
	s.slotToSpelling[slot] = newSpellings[0]
}

// Diagnostic is a warning produced while applying a [Configuration] block;
// unlike the parser's own errors these never abort compilation.
type Diagnostic struct{ Text string }

// Apply implements spec 4.1's apply_config: scalar attributes set typed
// fields on the store, and (unless DisableNameGroup) a [Name] block
// rewrites keyword spellings. Returns warnings for unknown scalar settings;
// it never returns an error because a malformed configuration block simply
// leaves the affected field or slot untouched.
func Apply(store *Store, cfg *chtl_ast.SConfiguration) []Diagnostic {
	var diags []Diagnostic

	for _, stmt := range cfg.Body {
		switch s := stmt.Data.(type) {
		case *chtl_ast.SAttribute:
			applyScalar(store, s, &diags)
		case *chtl_ast.SNameBlock:
			if !store.DisableNameGroup {
				applyNameBlock(store, s)
			}
		}
	}
	return diags
}

func applyScalar(store *Store, attr *chtl_ast.SAttribute, diags *[]Diagnostic) {
	if attr.Value == nil {
		return
	}
	switch strings.ToUpper(attr.Name) {
	case settingIndexInitialCount:
		if n, ok := literalInt(attr.Value); ok {
			store.IndexInitialCount = n
		}
	case settingDebugMode:
		if b, ok := literalBool(attr.Value); ok {
			store.DebugMode = b
		}
	case settingDisableNameGroup:
		if b, ok := literalBool(attr.Value); ok {
			store.DisableNameGroup = b
		}
	default:
		*diags = append(*diags, Diagnostic{Text: "unknown configuration setting " + attr.Name})
	}
}

func applyNameBlock(store *Store, block *chtl_ast.SNameBlock) {
	for _, setting := range block.Settings {
		slot, ok := slotSettingName[strings.ToUpper(setting.Key)]
		if !ok {
			continue
		}
		store.Rebind(slot, setting.Values)
	}
}

func literalInt(e *chtl_ast.Expr) (int64, bool) {
	switch v := e.Data.(type) {
	case *chtl_ast.ENumberLiteral:
		var n int64
		var neg bool
		text := v.Value
		if len(text) > 0 && (text[0] == '-' || text[0] == '+') {
			neg = text[0] == '-'
			text = text[1:]
		}
		if text == "" {
			return 0, false
		}
		for _, c := range text {
			if c < '0' || c > '9' {
				return 0, false
			}
			n = n*10 + int64(c-'0')
		}
		if neg {
			n = -n
		}
		return n, true
	}
	return 0, false
}

func literalBool(e *chtl_ast.Expr) (bool, bool) {
	switch v := e.Data.(type) {
	case *chtl_ast.EIdentifier:
		return parseBoolText(v.Name)
	case *chtl_ast.EUnquotedLiteral:
		return parseBoolText(v.Value)
	case *chtl_ast.EStringLiteral:
		return parseBoolText(v.Value)
	}
	return false, false
}

func parseBoolText(text string) (bool, bool) {
	switch strings.ToLower(text) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
