package chtl_generate_test

import (
	"strings"
	"testing"

	"github.com/Yhlight/CHTL-FINAL/internal/chtl_generate"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_logger"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_parser"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_resolve"
	"github.com/Yhlight/CHTL-FINAL/internal/chtl_testutil"
)

func compile(t *testing.T, src string) string {
	t.Helper()
	log := chtl_logger.NewDeferLog()
	source := chtl_testutil.SourceForTest(src)
	prog, config, errCount := chtl_parser.ParseFile(log, source)
	if errCount > 0 {
		for _, msg := range log.Done() {
			t.Log(msg.String())
		}
		t.Fatalf("unexpected parse errors: %d", errCount)
	}
	resolver := chtl_resolve.NewResolver(log, nil)
	nsKey := resolver.Process(prog, "test.chtl")
	gen := chtl_generate.New(log, resolver, config)
	return gen.Generate(prog, nsKey)
}

func TestArithmeticWithUnits(t *testing.T) {
	html := compile(t, `div { style { width: 100px + 50; height: 200.5em - 0.5em; } }`)
	if !strings.Contains(html, `style="height:200em;width:150px"`) {
		t.Fatalf("got %q", html)
	}
}

func TestConditionalStyling(t *testing.T) {
	html := compile(t, `div { style { width: 100px; background-color: width > 50px ? "red" : "blue"; } }`)
	if !strings.Contains(html, `style="background-color:red;width:100px"`) {
		t.Fatalf("got %q", html)
	}
}

func TestContextualSelector(t *testing.T) {
	html := compile(t, `div { style { .box { color: "blue"; } &:hover { color: "red"; } } }`)
	want := `<style>.box{color:blue;}.box:hover{color:red;}</style><div class="box"></div>`
	if html != want {
		t.Fatalf("got %q want %q", html, want)
	}
}

func TestStyleTemplateInheritance(t *testing.T) {
	html := compile(t, `[template] @style Base { font-size: 16px; } [template] @style Derived { inherit @style Base; color: red; } div { style { @style Derived; } }`)
	if !strings.Contains(html, `style="color:red;font-size:16px"`) {
		t.Fatalf("got %q", html)
	}
}

func TestElementTemplateSpecialization(t *testing.T) {
	html := compile(t, `[custom] @element C { p{text:"1"} div{text:"2"} span{text:"3"} } body{ @element C { delete div; insert at top { h1{text:"0"} } } }`)
	want := `<body><h1>0</h1><p>1</p><span>3</span></body>`
	if html != want {
		t.Fatalf("got %q want %q", html, want)
	}
}

func TestCrossElementPropertyReference(t *testing.T) {
	html := compile(t, `div{id:"box"; style{width:100px;}} span{style{height:#box.width;}}`)
	want := `<div id="box" style="width:100px"></div><span style="height:100px"></span>`
	if html != want {
		t.Fatalf("got %q want %q", html, want)
	}
}

func TestAttributeStabilityAlphabeticalAndLastWins(t *testing.T) {
	html := compile(t, `div { id: "a"; class: "c"; id: "b"; }`)
	want := `<div class="c" id="b"></div>`
	if html != want {
		t.Fatalf("got %q want %q", html, want)
	}
}

func TestAutoInjectionLeavesExistingClassAlone(t *testing.T) {
	html := compile(t, `div { class: "mine"; style { .box { color: "red"; } } }`)
	if !strings.Contains(html, `class="mine"`) {
		t.Fatalf("expected existing class preserved, got %q", html)
	}
	if strings.Contains(html, `class="box"`) {
		t.Fatalf("auto-injected class should not overwrite existing one, got %q", html)
	}
}

func TestHTML5Doctype(t *testing.T) {
	html := compile(t, `use html5; div { text { "hi" } }`)
	if !strings.HasPrefix(html, "<!DOCTYPE html>") {
		t.Fatalf("expected doctype prefix, got %q", html)
	}
}

func TestExceptForbidsElement(t *testing.T) {
	html := compile(t, `div { except span; span { text { "nope" } } p { text { "ok" } } }`)
	if strings.Contains(html, "nope") {
		t.Fatalf("expected span forbidden, got %q", html)
	}
	if !strings.Contains(html, "ok") {
		t.Fatalf("expected p preserved, got %q", html)
	}
}
