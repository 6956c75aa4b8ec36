package parser

import (
	"strings"
	"testing"
	"time"
)

func parseUnit(t *testing.T, source string) *Result {
	t.Helper()
	result := Parse([]byte(source), WithFile("Test.java"))
	if result.Fatal != nil {
		t.Fatalf("fatal parse error: %v", result.Fatal)
	}
	return result
}

func firstOfKind(result *Result, kind NodeKind) NodeID {
	found := NoNode
	result.Arena.Walk(result.Root, func(id NodeID) bool {
		if found != NoNode {
			return false
		}
		if result.Arena.Kind(id) == kind {
			found = id
			return false
		}
		return true
	})
	return found
}

func countOfKind(result *Result, kind NodeKind) int {
	count := 0
	result.Arena.Walk(result.Root, func(id NodeID) bool {
		if result.Arena.Kind(id) == kind {
			count++
		}
		return true
	})
	return count
}

func TestParseMinimalClass(t *testing.T) {
	result := parseUnit(t, "class T {}")
	if !result.OK() {
		t.Fatalf("parse errors: %v", result.Errors)
	}

	a := result.Arena
	if a.Kind(result.Root) != KindCompilationUnit {
		t.Fatalf("root kind: got %v", a.Kind(result.Root))
	}

	kids := a.Children(result.Root)
	if len(kids) != 1 {
		t.Fatalf("root children: got %d, want 1", len(kids))
	}

	class := kids[0]
	if a.Kind(class) != KindClassDecl {
		t.Fatalf("child kind: got %v", a.Kind(class))
	}
	if a.Start(class) != 0 || a.End(class) != 10 {
		t.Errorf("class span: got [%d, %d), want [0, 10)", a.Start(class), a.End(class))
	}
	if a.NameOf(class) != "T" {
		t.Errorf("class name: got %q, want %q", a.NameOf(class), "T")
	}
}

func TestParseCompilationUnit(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty class", "class Foo {}"},
		{"class with package", "package com.example;\nclass Foo {}"},
		{"class with import", "import java.util.List;\nclass Foo {}"},
		{"static import", "import static java.util.Collections.emptyList;\nclass Foo {}"},
		{"wildcard import", "import java.util.*;\nclass Foo {}"},
		{"module import", "import module java.base;\nclass Foo {}"},
		{"class with field", "class Foo { int x; }"},
		{"class with method", "class Foo { void bar() {} }"},
		{"class with constructor", "class Foo { Foo() {} }"},
		{"generic class", "class Foo<T extends Comparable<T>> {}"},
		{"class extends", "class Foo extends Bar {}"},
		{"class implements", "class Foo implements Bar, Baz {}"},
		{"sealed class", "sealed class Shape permits Circle, Square {}"},
		{"non-sealed class", "non-sealed class Circle extends Shape {}"},
		{"interface", "interface Foo { void bar(); }"},
		{"enum", "enum Color { RED, GREEN, BLUE }"},
		{"enum with body", "enum Op { PLUS { int apply(int a, int b) { return a + b; } }; abstract int apply(int a, int b); }"},
		{"record", "record Point(int x, int y) {}"},
		{"record with compact constructor", "record Range(int lo, int hi) { Range { if (lo > hi) throw new IllegalArgumentException(); } }"},
		{"annotation decl", "@interface Marker { String value() default \"\"; }"},
		{"annotated class", "@Deprecated public class Foo {}"},
		{"static initializer", "class Foo { static { init(); } }"},
		{"instance initializer", "class Foo { { init(); } }"},
		{"varargs", "class Foo { void bar(String... args) {} }"},
		{"text block field", "class Foo { String s = \"\"\"\n  hello\n  \"\"\"; }"},
		{"lambda", "class Foo { Runnable r = () -> run(); }"},
		{"typed lambda", "class Foo { BinaryOperator<Integer> f = (Integer a, Integer b) -> a + b; }"},
		{"method ref", "class Foo { Supplier<List<String>> s = ArrayList::new; }"},
		{"switch statement", "class Foo { void f(int x) { switch (x) { case 1: break; default: } } }"},
		{"switch expression", "class Foo { int f(int x) { return switch (x) { case 1 -> 10; default -> 0; }; } }"},
		{"switch with yield", "class Foo { int f(int x) { return switch (x) { case 1: yield 10; default: yield 0; }; } }"},
		{"type pattern", "class Foo { void f(Object o) { if (o instanceof String s) { use(s); } } }"},
		{"record pattern", "class Foo { void f(Object o) { switch (o) { case Point(int x, int y) -> use(x); default -> {} } } }"},
		{"guarded pattern", "class Foo { void f(Object o) { switch (o) { case String s when s.isEmpty() -> use(s); default -> {} } } }"},
		{"unnamed pattern", "class Foo { void f(Object o) { switch (o) { case Point(int x, _) -> use(x); default -> {} } } }"},
		{"case null default", "class Foo { void f(Object o) { switch (o) { case null, default -> {} } } }"},
		{"primitive pattern", "class Foo { void f(Object o) { switch (o) { case int i -> use(i); default -> {} } } }"},
		{"try with resources", "class Foo { void f() { try (var in = open()) { read(in); } catch (IOException e) { } finally { done(); } } }"},
		{"try with resource reference", "class Foo { void f(AutoCloseable c) { try (c) { run(); } } }"},
		{"multi-catch", "class Foo { void f() { try { run(); } catch (A | B e) { } } }"},
		{"enhanced for", "class Foo { void f(List<String> list) { for (String s : list) { use(s); } } }"},
		{"classic for", "class Foo { void f() { for (int i = 0; i < 10; i++) { use(i); } } }"},
		{"labeled statement", "class Foo { void f() { outer: for (;;) { break outer; } } }"},
		{"synchronized", "class Foo { void f() { synchronized (this) { run(); } } }"},
		{"assert", "class Foo { void f(int x) { assert x > 0 : \"positive\"; } }"},
		{"anonymous class", "class Foo { Runnable r = new Runnable() { public void run() {} }; }"},
		{"array init", "class Foo { int[] xs = {1, 2, 3}; }"},
		{"multi-dim array", "class Foo { int[][] grid = new int[10][10]; }"},
		{"ternary", "class Foo { int f(boolean b) { return b ? 1 : 0; } }"},
		{"cast", "class Foo { int f(Object o) { return (int) o; } }"},
		{"intersection cast", "class Foo { Object f(Object o) { return (Runnable & Serializable) o; } }"},
		{"class literal", "class Foo { Class<?> c = String[].class; }"},
		{"local record", "class Foo { void f() { record Pair(int a, int b) {} } }"},
		{"record as variable name", "class Foo { void f() { int record = 1; use(record); } }"},
		{"var declaration", "class Foo { void f() { var x = 1; } }"},
		{"unnamed variable", "class Foo { void f() { var _ = open(); } }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseUnit(t, tt.input)
			if !result.OK() {
				t.Errorf("parse errors: %v (lex: %v)", result.Errors, result.LexErrors)
			}
		})
	}
}

func TestParseCompactCompilationUnit(t *testing.T) {
	result := parseUnit(t, "void main() {\n    greet();\n}")
	if !result.OK() {
		t.Fatalf("parse errors: %v", result.Errors)
	}
	method := firstOfKind(result, KindMethodDecl)
	if method == NoNode {
		t.Fatal("top-level method missing")
	}
	if result.Arena.NameOf(method) != "main" {
		t.Errorf("method name: got %q", result.Arena.NameOf(method))
	}
	if firstOfKind(result, KindClassDecl) != NoNode {
		t.Error("compact unit should not synthesize a class declaration")
	}
}

func TestParseModuleInfo(t *testing.T) {
	source := `module com.example.app {
    requires transitive java.sql;
    exports com.example.api to com.example.client;
    opens com.example.internal;
    uses com.example.spi.Service;
    provides com.example.spi.Service with com.example.impl.ServiceImpl;
}`
	result := Parse([]byte(source), WithFile("module-info.java"))
	if result.Fatal != nil || !result.OK() {
		t.Fatalf("parse failed: fatal=%v errors=%v", result.Fatal, result.Errors)
	}

	module := firstOfKind(result, KindModuleDecl)
	if module == NoNode {
		t.Fatal("no module declaration")
	}
	if result.Arena.NameOf(module) != "com.example.app" {
		t.Errorf("module name: got %q", result.Arena.NameOf(module))
	}

	for _, kind := range []NodeKind{
		KindRequiresDirective, KindExportsDirective, KindOpensDirective,
		KindUsesDirective, KindProvidesDirective,
	} {
		if firstOfKind(result, kind) == NoNode {
			t.Errorf("missing %v", kind)
		}
	}
}

func TestEnhancedForDisambiguation(t *testing.T) {
	result := parseUnit(t, "class Foo { void f(List<String> list) { for (String s : list) { } } }")
	if !result.OK() {
		t.Fatalf("parse errors: %v", result.Errors)
	}
	if firstOfKind(result, KindEnhancedForStmt) == NoNode {
		t.Error("expected an EnhancedForStmt")
	}
	if firstOfKind(result, KindForStmt) != NoNode {
		t.Error("classic ForStmt should not appear")
	}
}

func TestSplitShiftInGenerics(t *testing.T) {
	result := parseUnit(t, "class Foo { Map<String,List<Integer>> m; }")
	if !result.OK() {
		t.Fatalf("parse errors: %v", result.Errors)
	}
	// Both type-argument lists close cleanly even though the lexer
	// produced a single ">>" token.
	if got := countOfKind(result, KindTypeArguments); got != 2 {
		t.Errorf("type argument lists: got %d, want 2", got)
	}
	field := firstOfKind(result, KindFieldDecl)
	if field == NoNode {
		t.Fatal("field declaration missing")
	}
}

func TestDeeplyNestedGenerics(t *testing.T) {
	result := parseUnit(t, "class Foo { Map<String, Map<String, List<Integer>>> m; }")
	if !result.OK() {
		t.Fatalf("parse errors: %v", result.Errors)
	}
	if got := countOfKind(result, KindTypeArguments); got != 3 {
		t.Errorf("type argument lists: got %d, want 3", got)
	}
}

func TestImportAttributes(t *testing.T) {
	source := strings.Join([]string{
		"import java.util.List;",
		"import static java.util.Collections.sort;",
		"import java.io.*;",
		"import module java.base;",
		"class Foo {}",
	}, "\n")
	result := parseUnit(t, source)
	if !result.OK() {
		t.Fatalf("parse errors: %v", result.Errors)
	}

	a := result.Arena
	var imports []NodeID
	a.Walk(result.Root, func(id NodeID) bool {
		if a.Kind(id) == KindImportDecl {
			imports = append(imports, id)
		}
		return true
	})
	if len(imports) != 3 {
		t.Fatalf("import decls: got %d, want 3", len(imports))
	}

	first := a.ImportAttrOf(imports[0])
	if first.QualifiedName != "java.util.List" || first.IsStatic || first.IsWildcard {
		t.Errorf("first import attr: %+v", first)
	}
	second := a.ImportAttrOf(imports[1])
	if second.QualifiedName != "java.util.Collections.sort" || !second.IsStatic {
		t.Errorf("second import attr: %+v", second)
	}
	third := a.ImportAttrOf(imports[2])
	if third.QualifiedName != "java.io" || !third.IsWildcard {
		t.Errorf("third import attr: %+v", third)
	}

	moduleImport := firstOfKind(result, KindModuleImportDecl)
	if moduleImport == NoNode {
		t.Fatal("module import missing")
	}
	if a.ModuleImportAttrOf(moduleImport).ModuleName != "java.base" {
		t.Errorf("module import attr: %+v", a.ModuleImportAttrOf(moduleImport))
	}
}

func TestStaticModuleImportRejected(t *testing.T) {
	result := Parse([]byte("import static module java.base;\nclass Foo {}"))
	if result.Fatal != nil {
		t.Fatalf("fatal: %v", result.Fatal)
	}
	if len(result.Errors) == 0 {
		t.Error("expected a recorded parse error for static module import")
	}
}

func TestErrorRecovery(t *testing.T) {
	// The bad member is reported and skipped; the following method
	// still parses.
	source := "class Foo { int x = ; void ok() { run(); } }"
	result := Parse([]byte(source))
	if result.Fatal != nil {
		t.Fatalf("fatal: %v", result.Fatal)
	}
	if len(result.Errors) == 0 {
		t.Fatal("expected parse errors")
	}
	if firstOfKind(result, KindMethodDecl) == NoNode {
		t.Error("method after the error was lost")
	}
	if firstOfKind(result, KindError) == NoNode {
		t.Error("expected an Error placeholder node in the tree")
	}
}

func TestArenaInvariants(t *testing.T) {
	source := `package com.example;

import java.util.List;

public class Foo<T> extends Base implements Iface {
    private int count;

    public Foo(int count) { this.count = count; }

    public List<T> items(boolean copy) {
        if (copy) {
            return new ArrayList<>(list);
        }
        for (int i = 0; i < count; i++) {
            use(i);
        }
        return list;
    }
}`
	result := parseUnit(t, source)
	if !result.OK() {
		t.Fatalf("parse errors: %v", result.Errors)
	}

	a := result.Arena
	srcLen := int32(len(source))
	a.Walk(result.Root, func(id NodeID) bool {
		start, end := a.Start(id), a.End(id)
		if start < 0 || start > end || end > srcLen {
			t.Errorf("node %d (%v): invalid range [%d, %d)", id, a.Kind(id), start, end)
		}
		var prevStart int32 = -1
		for _, c := range a.Children(id) {
			if a.Parent(c) != id {
				t.Errorf("child %d of %d has parent %d", c, id, a.Parent(c))
			}
			if a.Start(c) < start || a.End(c) > end {
				t.Errorf("child %d [%d, %d) escapes parent %d [%d, %d)",
					c, a.Start(c), a.End(c), id, start, end)
			}
			if a.Start(c) < prevStart {
				t.Errorf("children of %d not ordered by start", id)
			}
			prevStart = a.Start(c)
		}
		return true
	})

	if a.Parent(result.Root) != NoNode {
		t.Error("root parent is not the sentinel")
	}
}

func TestParserDeterminism(t *testing.T) {
	source := `class Foo { int f(int a, int b) { return a * b + a % b; } }`

	left := parseUnit(t, source)
	right := parseUnit(t, source)

	la, ra := left.Arena, right.Arena
	if la.Len() != ra.Len() {
		t.Fatalf("arena sizes differ: %d vs %d", la.Len(), ra.Len())
	}
	for i := 0; i < la.Len(); i++ {
		id := NodeID(i)
		if la.Kind(id) != ra.Kind(id) || la.Start(id) != ra.Start(id) ||
			la.End(id) != ra.End(id) || la.Parent(id) != ra.Parent(id) {
			t.Errorf("node %d differs between parses", id)
		}
	}
}

func TestDepthBudget(t *testing.T) {
	depth := 2000
	source := "class Foo { int x = " + strings.Repeat("(", depth) + "1" + strings.Repeat(")", depth) + "; }"
	result := Parse([]byte(source), WithLimits(SecurityLimits{
		MaxParseDepth: 100,
		MaxArenaNodes: 1 << 20,
	}))
	if result.Fatal != ErrDepthExceeded {
		t.Errorf("got fatal %v, want ErrDepthExceeded", result.Fatal)
	}
}

func TestParseDeadline(t *testing.T) {
	result := Parse([]byte("class Foo { void f() { run(); } }"),
		WithDeadline(time.Now().Add(-time.Second)))
	if result.Fatal != ErrDeadlineExceeded {
		t.Errorf("got fatal %v, want ErrDeadlineExceeded", result.Fatal)
	}
	// Once the deadline has passed no node survives; the partial
	// arena may hold garbage but the root is never produced.
	if result.Root != NoNode {
		t.Error("aborted parse still produced a root")
	}
}

func TestArenaReuse(t *testing.T) {
	arena := NewArena(0)
	first := Parse([]byte("class A {}"), WithArena(arena))
	firstLen := arena.Len()
	second := Parse([]byte("class B {}"), WithArena(arena))

	if first.Arena != second.Arena {
		t.Fatal("arena was not reused")
	}
	if arena.Len() != firstLen {
		t.Errorf("reused arena length: got %d, want %d", arena.Len(), firstLen)
	}
	if second.Arena.NameOf(second.Arena.Children(second.Root)[0]) != "B" {
		t.Error("second parse content wrong after reset")
	}
}

func TestCommentTrivia(t *testing.T) {
	source := `class Foo {
    // leading comment
    int x; // trailing comment
}`
	result := parseUnit(t, source)
	if !result.OK() {
		t.Fatalf("parse errors: %v", result.Errors)
	}

	field := firstOfKind(result, KindFieldDecl)
	if field == NoNode {
		t.Fatal("field missing")
	}

	leading := result.Trivia.Leading[field]
	if len(leading) != 1 || leading[0].Text != "// leading comment" {
		t.Errorf("leading trivia: %+v", leading)
	}
	trailing := result.Trivia.Trailing[field]
	if len(trailing) != 1 || trailing[0].Text != "// trailing comment" {
		t.Errorf("trailing trivia: %+v", trailing)
	}
}
