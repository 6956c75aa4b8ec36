package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListPackageClasses(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"com/example/Foo.class",
		"com/example/Bar.java",
		"com/example/Outer$Inner.class",
		"com/example/package-info.class",
		"com/example/notes.txt",
		"com/example/sub/Nested.class",
	)

	s := New([]string{root})
	classes := s.ListPackageClasses("com.example")

	want := []string{"com.example.Foo", "com.example.Bar", "com.example.Outer.Inner"}
	if len(classes) != len(want) {
		t.Fatalf("got %d classes %v, want %d", len(classes), classes, len(want))
	}
	for _, name := range want {
		if _, ok := classes[name]; !ok {
			t.Errorf("missing %s", name)
		}
	}
}

func TestClassExists(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"com/example/Foo.class",
		"com/example/Outer$Inner.class",
	)

	s := New([]string{root})

	tests := []struct {
		name string
		want bool
	}{
		{"com.example.Foo", true},
		{"com.example.Outer.Inner", true},
		{"com.example.Missing", false},
		{"org.other.Foo", false},
	}
	for _, tt := range tests {
		if got := s.ClassExists(tt.name); got != tt.want {
			t.Errorf("ClassExists(%q): got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMissingRootContributesNothing(t *testing.T) {
	s := New([]string{"/does/not/exist"})
	if s.Empty() {
		t.Error("scanner with a root should not report empty")
	}
	if len(s.ListPackageClasses("com.example")) != 0 {
		t.Error("missing root produced classes")
	}
}

func TestNormalizeNested(t *testing.T) {
	if got := NormalizeNested("a.b.Outer$Inner$Deep"); got != "a.b.Outer.Inner.Deep" {
		t.Errorf("got %q", got)
	}
}
