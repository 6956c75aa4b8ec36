package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/dhamidi/styler/java/parser"
)

func makeContext(t *testing.T, source string) *Context {
	t.Helper()
	result := parser.Parse([]byte(source), parser.WithFile("Test.java"))
	if result.Fatal != nil {
		t.Fatalf("fatal parse error: %v", result.Fatal)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("parse errors: %v", result.Errors)
	}
	return NewContext(result, []byte(source), "Test.java", parser.DefaultSecurityLimits(), TypeResolutionConfig{})
}

func TestIndentationMixedTabFix(t *testing.T) {
	// Tab-indented line in space mode, width 4.
	ctx := makeContext(t, "class T {\n\tint x = 1;\n}")
	rule := NewIndentationRule()

	out, err := rule.Format(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "class T {\n    int x = 1;\n}"
	if out != want {
		t.Errorf("format:\n got %q\nwant %q", out, want)
	}

	violations, err := rule.Analyze(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 1 {
		t.Fatalf("violations: got %d, want 1", len(violations))
	}
	if violations[0].Line != 2 {
		t.Errorf("violation line: got %d, want 2", violations[0].Line)
	}
}

func TestIndentationBracesInStringsAreNotDepth(t *testing.T) {
	source := "class Test {\n    String s = \"{ braces } in string\";\n    int x = 1;\n}"
	ctx := makeContext(t, source)
	rule := NewIndentationRule()

	violations, err := rule.Analyze(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 0 {
		t.Errorf("violations: got %v, want none", violations)
	}

	out, err := rule.Format(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != source {
		t.Errorf("format changed already-correct input:\n got %q\nwant %q", out, source)
	}
}

func TestIndentationNestedBlocks(t *testing.T) {
	source := "class T {\nvoid f() {\nif (x) {\nrun();\n}\n}\n}"
	ctx := makeContext(t, source)
	rule := NewIndentationRule()

	out, err := rule.Format(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "class T {\n    void f() {\n        if (x) {\n            run();\n        }\n    }\n}"
	if out != want {
		t.Errorf("format:\n got %q\nwant %q", out, want)
	}
}

func TestIndentationSwitchCaseDepth(t *testing.T) {
	source := strings.Join([]string{
		"class T {",
		"    void f(int x) {",
		"        switch (x) {",
		"            case 1:",
		"                run();",
		"                break;",
		"            default:",
		"                stop();",
		"        }",
		"    }",
		"}",
	}, "\n")
	ctx := makeContext(t, source)
	rule := NewIndentationRule()

	violations, err := rule.Analyze(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 0 {
		t.Errorf("default case indentation rejected: %v", violations)
	}
}

func TestIndentationSwitchCaseFlush(t *testing.T) {
	source := strings.Join([]string{
		"class T {",
		"    void f(int x) {",
		"        switch (x) {",
		"        case 1:",
		"            run();",
		"        }",
		"    }",
		"}",
	}, "\n")
	ctx := makeContext(t, source)
	rule := NewIndentationRule()
	configs := []RuleConfig{{
		RuleID:  "indentation",
		Options: map[string]any{"indent_case_labels": false},
	}}

	violations, err := rule.Analyze(ctx, configs)
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 0 {
		t.Errorf("flush case style rejected with indent_case_labels=false: %v", violations)
	}
}

func TestIndentationArrowSwitch(t *testing.T) {
	source := strings.Join([]string{
		"class T {",
		"    int f(int x) {",
		"        return switch (x) {",
		"            case 1 -> {",
		"                yield 10;",
		"            }",
		"            default -> 0;",
		"        };",
		"    }",
		"}",
	}, "\n")
	ctx := makeContext(t, source)
	rule := NewIndentationRule()

	violations, err := rule.Analyze(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 0 {
		t.Errorf("arrow switch indentation rejected: %v", violations)
	}
}

func TestIndentationPreservesTextBlocks(t *testing.T) {
	source := "class T {\n    String s = \"\"\"\n  oddly\n      indented\n  \"\"\";\n}"
	ctx := makeContext(t, source)
	rule := NewIndentationRule()

	out, err := rule.Format(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != source {
		t.Errorf("text block interior was reindented:\n got %q\nwant %q", out, source)
	}
}

func TestIndentationBlankLinesVerbatim(t *testing.T) {
	source := "class T {\n\n    int x;\n\n}"
	ctx := makeContext(t, source)
	rule := NewIndentationRule()

	out, err := rule.Format(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != source {
		t.Errorf("blank lines were touched:\n got %q", out)
	}
}

func TestFormatIdempotent(t *testing.T) {
	sources := []string{
		"class T {\n\tint x = 1;\n\tvoid f() {\nrun();\n}\n}",
		"class Test {\n    String s = \"{ braces } in string\";\n    int x = 1;\n}",
	}
	rule := NewIndentationRule()
	for _, source := range sources {
		ctx := makeContext(t, source)
		once, err := rule.Format(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := rule.Format(makeContext(t, once), nil)
		if err != nil {
			t.Fatal(err)
		}
		if once != twice {
			t.Errorf("format not idempotent:\nonce  %q\ntwice %q", once, twice)
		}
	}
}

func TestImportSort(t *testing.T) {
	source := strings.Join([]string{
		"import org.apache.commons.io.IOUtils;",
		"import java.util.List;",
		"import java.io.File;",
		"",
		"class T {}",
	}, "\n")
	ctx := makeContext(t, source)
	rule := NewImportOrganizerRule()

	out, err := rule.Format(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"import java.io.File;",
		"import java.util.List;",
		"",
		"import org.apache.commons.io.IOUtils;",
		"",
		"class T {}",
	}, "\n")
	if out != want {
		t.Errorf("organized imports:\n got %q\nwant %q", out, want)
	}
}

func TestImportOrganizerPreservesSetWithoutClasspath(t *testing.T) {
	source := strings.Join([]string{
		"import java.util.*;",
		"import java.io.File;",
		"",
		"class T { List<File> files; }",
	}, "\n")
	ctx := makeContext(t, source)
	rule := NewImportOrganizerRule()
	configs := []RuleConfig{{
		RuleID:  "import-organizer",
		Options: map[string]any{"expand_wildcards": true},
	}}

	out, err := rule.Format(ctx, configs)
	if err != nil {
		t.Fatal(err)
	}
	// No classpath scanner: resolution is incomplete, so the wildcard
	// must survive.
	if !strings.Contains(out, "import java.util.*;") {
		t.Errorf("wildcard was expanded without a complete classpath:\n%s", out)
	}
	if !strings.Contains(out, "import java.io.File;") {
		t.Errorf("explicit import lost:\n%s", out)
	}
}

func TestImportOrganizerStaticPlacement(t *testing.T) {
	source := strings.Join([]string{
		"import static java.util.Collections.sort;",
		"import java.util.List;",
		"",
		"class T {}",
	}, "\n")

	ctx := makeContext(t, source)
	out, err := NewImportOrganizerRule().Format(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Default: static imports last.
	staticIdx := strings.Index(out, "import static")
	regularIdx := strings.Index(out, "import java.util.List;")
	if staticIdx < regularIdx {
		t.Errorf("static import should follow regular imports:\n%s", out)
	}

	ctx = makeContext(t, source)
	out, err = NewImportOrganizerRule().Format(ctx, []RuleConfig{{
		RuleID:  "import-organizer",
		Options: map[string]any{"static_imports_first": true},
	}})
	if err != nil {
		t.Fatal(err)
	}
	staticIdx = strings.Index(out, "import static")
	regularIdx = strings.Index(out, "import java.util.List;")
	if staticIdx > regularIdx {
		t.Errorf("static import should precede regular imports:\n%s", out)
	}
}

func TestImportFallbackExtraction(t *testing.T) {
	source := []byte("import java.util.List;\nimport static a.B.c;\nimport module java.base;\nimport java.io.*;\n")
	imports := extractImportsFallback(source)
	if len(imports) != 4 {
		t.Fatalf("got %d imports, want 4", len(imports))
	}
	if imports[0].Qualified != "java.util.List" || imports[0].Static || imports[0].Wildcard {
		t.Errorf("first: %+v", imports[0])
	}
	if !imports[1].Static {
		t.Errorf("second should be static: %+v", imports[1])
	}
	if !imports[2].Module {
		t.Errorf("third should be a module import: %+v", imports[2])
	}
	if !imports[3].Wildcard {
		t.Errorf("fourth should be a wildcard: %+v", imports[3])
	}
}

func TestWhitespaceEnhancedFor(t *testing.T) {
	ctx := makeContext(t, "class T { void f(java.util.List<String> list) { for(String s:list) { } } }")
	rule := NewWhitespaceRule()

	out, err := rule.Format(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "for (String s : list)") {
		t.Errorf("expected space after for and around colon, got %q", out)
	}
}

func TestWhitespaceCommas(t *testing.T) {
	ctx := makeContext(t, "class T { void f(int a ,int b) { g(a,b); } }")
	rule := NewWhitespaceRule()

	out, err := rule.Format(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "f(int a, int b)") || !strings.Contains(out, "g(a, b)") {
		t.Errorf("comma spacing wrong: %q", out)
	}
}

func TestWhitespaceLeavesStringsAlone(t *testing.T) {
	source := "class T { String s = \"a,b  ,  c\"; }"
	ctx := makeContext(t, source)
	rule := NewWhitespaceRule()

	out, err := rule.Format(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "\"a,b  ,  c\"") {
		t.Errorf("string contents were modified: %q", out)
	}
}

func TestBraceStyle(t *testing.T) {
	allman := "class T\n{\n    void f()\n    {\n    }\n}"
	knr := "class T {\n    void f() {\n    }\n}"

	ctx := makeContext(t, allman)
	violations, err := NewBraceStyleRule().Analyze(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 2 {
		t.Errorf("SAME_LINE violations on Allman input: got %d, want 2", len(violations))
	}

	out, err := NewBraceStyleRule().Format(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "class T {") || !strings.Contains(out, "void f() {") {
		t.Errorf("SAME_LINE format: %q", out)
	}

	ctx = makeContext(t, knr)
	configs := []RuleConfig{{RuleID: "brace-style", Options: map[string]any{"style": "NEXT_LINE"}}}
	violations, err = NewBraceStyleRule().Analyze(ctx, configs)
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 2 {
		t.Errorf("NEXT_LINE violations on K&R input: got %d, want 2", len(violations))
	}
}

func TestLineLengthAnalyze(t *testing.T) {
	long := strings.Repeat("x", 130)
	source := "class T {\n    // " + long + "\n}"
	ctx := makeContext(t, source)

	violations, err := NewLineLengthRule().Analyze(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 1 {
		t.Fatalf("violations: got %d, want 1", len(violations))
	}
	if violations[0].Line != 2 {
		t.Errorf("line: got %d, want 2", violations[0].Line)
	}
}

func TestLineLengthTabExpansion(t *testing.T) {
	// 10 tabs at width 8 = 80 columns, plus text pushes past 100.
	source := "class T {\n" + strings.Repeat("\t", 10) + "int " + strings.Repeat("y", 25) + ";\n}"
	ctx := makeContext(t, source)
	configs := []RuleConfig{{
		RuleID:  "line-length",
		Options: map[string]any{"max": 100, "tab_width": 8},
	}}

	violations, err := NewLineLengthRule().Analyze(ctx, configs)
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 1 {
		t.Errorf("violations: got %d, want 1", len(violations))
	}
}

func TestLineLengthWrapsArguments(t *testing.T) {
	args := make([]string, 6)
	for i := range args {
		args[i] = "argument" + strings.Repeat("x", 15) + "Name"
	}
	source := "class T {\n    void f() {\n        target(" + strings.Join(args, ", ") + ");\n    }\n}"
	ctx := makeContext(t, source)
	configs := []RuleConfig{{RuleID: "line-length", Options: map[string]any{"max": 80}}}

	out, err := NewLineLengthRule().Format(ctx, configs)
	if err != nil {
		t.Fatal(err)
	}
	if out == source {
		t.Fatal("overlong call was not wrapped")
	}
	for _, line := range strings.Split(out, "\n") {
		if expandedWidth(line, 4) > 80 {
			t.Errorf("line still exceeds limit: %q", line)
		}
	}
}

func TestDocRender(t *testing.T) {
	doc := Group(Concat(
		Text("f("),
		Indent(4, Concat(SoftLine(), Join(Concat(Text(","), Line()), []Doc{
			Text("aaaa"), Text("bbbb"), Text("cccc"),
		}))),
		SoftLine(),
		Text(")"),
	))

	// Fits: renders flat.
	if got := Render(doc, 40, 0); got != "f(aaaa, bbbb, cccc)" {
		t.Errorf("flat render: %q", got)
	}

	// Does not fit: breaks at soft lines.
	want := "f(\n    aaaa,\n    bbbb,\n    cccc\n)"
	if got := Render(doc, 10, 0); got != want {
		t.Errorf("broken render:\n got %q\nwant %q", got, want)
	}
}

func TestEngineAnalyzeOrdersViolations(t *testing.T) {
	source := "class T {\n\tint x = 1;\n   int y = 2;\n}"
	ctx := makeContext(t, source)
	engine := NewEngine(DefaultRegistry)

	violations, err := engine.Analyze(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(violations); i++ {
		if violations[i].Start < violations[i-1].Start {
			t.Fatal("violations not in source-position order")
		}
	}
	for _, v := range violations {
		if v.FilePath != "Test.java" {
			t.Errorf("violation missing file path: %+v", v)
		}
	}
}

func TestEngineFormatPipeline(t *testing.T) {
	source := "class T {\n\tint x=1;\n}"
	ctx := makeContext(t, source)
	engine := NewEngine(DefaultRegistry, WithIsolatedRules())

	result, err := engine.Format(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Changed {
		t.Fatal("expected a change")
	}
	if len(result.RuleErrors) != 0 {
		t.Fatalf("rule errors: %v", result.RuleErrors)
	}
	if !strings.Contains(result.NewSource, "int x = 1;") {
		t.Errorf("assignment spacing not fixed: %q", result.NewSource)
	}
	if !strings.Contains(result.NewSource, "\n    int x") {
		t.Errorf("indentation not fixed: %q", result.NewSource)
	}
}

func TestEngineFormatIdempotent(t *testing.T) {
	source := "class T {\n\tint x=1;\n\tvoid f()  {\n\t\trun( 1,2 );\n\t}\n}"
	engine := NewEngine(DefaultRegistry, WithIsolatedRules())

	once, err := engine.Format(makeContext(t, source), nil)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := engine.Format(makeContext(t, once.NewSource), nil)
	if err != nil {
		t.Fatal(err)
	}
	if once.NewSource != twice.NewSource {
		t.Errorf("engine format not idempotent:\nonce  %q\ntwice %q", once.NewSource, twice.NewSource)
	}
}

func TestContextDeadline(t *testing.T) {
	ctx := makeContext(t, "class T {}")
	if err := ctx.CheckDeadline(); err != nil {
		t.Fatalf("no deadline set but CheckDeadline failed: %v", err)
	}

	ctx.SetDeadline(time.Now().Add(-time.Millisecond))
	if err := ctx.CheckDeadline(); err == nil {
		t.Fatal("expired deadline not reported")
	}
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		rule    Rule
		options map[string]any
		wantBad bool
	}{
		{NewIndentationRule(), map[string]any{"width": 4}, false},
		{NewIndentationRule(), map[string]any{"width": 99}, true},
		{NewIndentationRule(), map[string]any{"type": "ELASTIC"}, true},
		{NewIndentationRule(), map[string]any{"typo": 1}, true},
		{NewLineLengthRule(), map[string]any{"max": 120}, false},
		{NewLineLengthRule(), map[string]any{"max": 10}, true},
		{NewBraceStyleRule(), map[string]any{"style": "SAME_LINE"}, false},
		{NewBraceStyleRule(), map[string]any{"style": "WEIRD"}, true},
		{NewImportOrganizerRule(), map[string]any{"custom_group_patterns": []string{"("}}, true},
	}

	for _, tt := range tests {
		problems := tt.rule.ValidateConfiguration(tt.options)
		if tt.wantBad && len(problems) == 0 {
			t.Errorf("%s: options %v should be rejected", tt.rule.ID(), tt.options)
		}
		if !tt.wantBad && len(problems) > 0 {
			t.Errorf("%s: options %v rejected: %v", tt.rule.ID(), tt.options, problems)
		}
	}
}
