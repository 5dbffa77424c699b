// Package chtl_logger collects diagnostics produced while compiling a CHTL
// file. Every stage of the pipeline (lexer, parser, resolver, evaluator,
// style expander, specializer, generator) reports through a Log instead of
// printing directly, so the host (CLI, tests) decides what to do with the
// messages.
package chtl_logger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
	Note
)

func (k MsgKind) String() string {
	switch k {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		panic("internal error: unknown message kind")
	}
}

// Loc is a 0-based byte offset into a Source's contents.
type Loc struct {
	Start int32
}

// Range is a byte span starting at Loc and running Len bytes.
type Range struct {
	Loc Loc
	Len int32
}

func (r Range) End() int32 { return r.Loc.Start + r.Len }

// Source is the text being compiled, plus the path used in diagnostics.
type Source struct {
	Index      uint32
	PrettyPath string
	Contents   string
}

// LineColumn converts a byte offset into a 1-based line number and a
// 0-based byte column within that line.
func (s *Source) LineColumn(offset int32) (line int, column int) {
	line = 1
	lineStart := 0
	for i, c := range s.Contents {
		if int32(i) >= offset {
			break
		}
		if c == '\n' {
			line++
			lineStart = i + 1
		}
	}
	if int(offset) > len(s.Contents) {
		offset = int32(len(s.Contents))
	}
	column = int(offset) - lineStart
	return
}

type MsgLocation struct {
	File   string
	Line   int
	Column int
}

type MsgData struct {
	Text     string
	Location *MsgLocation
}

type Msg struct {
	Kind  MsgKind
	Data  MsgData
	Notes []MsgData
}

func (msg Msg) String() string {
	var b strings.Builder
	if loc := msg.Data.Location; loc != nil && loc.File != "" {
		fmt.Fprintf(&b, "%s:%d:%d: ", loc.File, loc.Line, loc.Column)
	}
	fmt.Fprintf(&b, "%s: %s", msg.Kind, msg.Data.Text)
	for _, note := range msg.Notes {
		b.WriteString("\n  note: ")
		b.WriteString(note.Text)
	}
	return b.String()
}

type sortableMsgs []Msg

func (a sortableMsgs) Len() int      { return len(a) }
func (a sortableMsgs) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a sortableMsgs) Less(i, j int) bool {
	ai, aj := a[i].Data.Location, a[j].Data.Location
	if ai == nil || aj == nil {
		return ai != nil
	}
	if ai.Line != aj.Line {
		return ai.Line < aj.Line
	}
	return ai.Column < aj.Column
}

// Log is an append-only sink for diagnostics, safe for concurrent use even
// though the compiler pipeline itself never calls it from more than one
// goroutine at a time.
type Log struct {
	AddMsg    func(Msg)
	HasErrors func() bool
	Done      func() []Msg
}

// NewDeferLog returns a Log that buffers every message until Done is called.
func NewDeferLog() Log {
	var mu sync.Mutex
	var msgs sortableMsgs
	var hasErrors bool

	return Log{
		AddMsg: func(msg Msg) {
			mu.Lock()
			defer mu.Unlock()
			if msg.Kind == Error {
				hasErrors = true
			}
			msgs = append(msgs, msg)
		},
		HasErrors: func() bool {
			mu.Lock()
			defer mu.Unlock()
			return hasErrors
		},
		Done: func() []Msg {
			mu.Lock()
			defer mu.Unlock()
			sort.Stable(msgs)
			return append([]Msg(nil), msgs...)
		},
	}
}

func loc(source *Source, l Loc) *MsgLocation {
	if source == nil {
		return nil
	}
	line, col := source.LineColumn(l.Start)
	return &MsgLocation{File: source.PrettyPath, Line: line, Column: col}
}

func (log Log) AddError(source *Source, l Loc, text string) {
	log.AddMsg(Msg{Kind: Error, Data: MsgData{Text: text, Location: loc(source, l)}})
}

func (log Log) AddWarning(source *Source, l Loc, text string) {
	log.AddMsg(Msg{Kind: Warning, Data: MsgData{Text: text, Location: loc(source, l)}})
}

func (log Log) AddErrorNoLoc(text string) {
	log.AddMsg(Msg{Kind: Error, Data: MsgData{Text: text}})
}

func (log Log) AddWarningNoLoc(text string) {
	log.AddMsg(Msg{Kind: Warning, Data: MsgData{Text: text}})
}
