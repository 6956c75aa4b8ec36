// Package scanner resolves qualified class names against classpath and
// module-path roots. Roots may be directories of .class/.java files or
// jar archives; lookups are memoized per package.
package scanner

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ClasspathScanner answers the two questions symbol resolution needs.
// Implementations may report nested classes in the internal Foo$Bar
// form; NormalizeNested maps that to the dotted display form.
type ClasspathScanner interface {
	ClassExists(qualifiedName string) bool
	ListPackageClasses(pkg string) map[string]struct{}
}

// NormalizeNested converts the internal nested-class separator to the
// dotted form used for display and import matching.
func NormalizeNested(qualifiedName string) string {
	return strings.ReplaceAll(qualifiedName, "$", ".")
}

// PathScanner scans directory and jar roots. It is safe for concurrent
// use; package listings are computed once and cached.
type PathScanner struct {
	roots []string

	mu    sync.RWMutex
	cache map[string]map[string]struct{}
}

// New builds a scanner over the given roots. Nonexistent roots are
// kept: they simply contribute no classes, mirroring how the JVM
// treats stale classpath entries.
func New(roots []string) *PathScanner {
	return &PathScanner{
		roots: roots,
		cache: make(map[string]map[string]struct{}),
	}
}

// Empty reports whether the scanner has no roots at all, in which case
// resolution against it can never be complete.
func (s *PathScanner) Empty() bool {
	return len(s.roots) == 0
}

func (s *PathScanner) ClassExists(qualifiedName string) bool {
	// a.b.Outer.Inner lives in package a.b as Outer$Inner; listing
	// normalizes the separator, so probing each ancestor package
	// covers nesting of any depth.
	pkg, _ := splitQualified(qualifiedName)
	for {
		if _, ok := s.ListPackageClasses(pkg)[qualifiedName]; ok {
			return true
		}
		if pkg == "" {
			return false
		}
		pkg, _ = splitQualified(pkg)
	}
}

func (s *PathScanner) ListPackageClasses(pkg string) map[string]struct{} {
	s.mu.RLock()
	cached, ok := s.cache[pkg]
	s.mu.RUnlock()
	if ok {
		return cached
	}

	classes := make(map[string]struct{})
	rel := filepath.FromSlash(strings.ReplaceAll(pkg, ".", "/"))
	for _, root := range s.roots {
		if strings.HasSuffix(root, ".jar") || strings.HasSuffix(root, ".zip") {
			s.listFromArchive(root, pkg, classes)
		} else {
			s.listFromDirectory(filepath.Join(root, rel), pkg, classes)
		}
	}

	s.mu.Lock()
	s.cache[pkg] = classes
	s.mu.Unlock()
	return classes
}

func (s *PathScanner) listFromDirectory(dir, pkg string, classes map[string]struct{}) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := classFileName(entry.Name()); ok {
			classes[pkg+"."+NormalizeNested(name)] = struct{}{}
		}
	}
}

func (s *PathScanner) listFromArchive(path, pkg string, classes map[string]struct{}) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return
	}
	defer r.Close()

	prefix := strings.ReplaceAll(pkg, ".", "/") + "/"
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		rest := f.Name[len(prefix):]
		if strings.ContainsRune(rest, '/') {
			continue
		}
		if name, ok := classFileName(rest); ok {
			classes[pkg+"."+NormalizeNested(name)] = struct{}{}
		}
	}
}

// classFileName strips the .class or .java suffix, rejecting anything
// else (resources, module-info, package-info).
func classFileName(file string) (string, bool) {
	var name string
	switch {
	case strings.HasSuffix(file, ".class"):
		name = file[:len(file)-len(".class")]
	case strings.HasSuffix(file, ".java"):
		name = file[:len(file)-len(".java")]
	default:
		return "", false
	}
	if name == "module-info" || name == "package-info" {
		return "", false
	}
	return name, true
}

func splitQualified(qualifiedName string) (pkg, simple string) {
	i := strings.LastIndexByte(qualifiedName, '.')
	if i < 0 {
		return "", qualifiedName
	}
	return qualifiedName[:i], qualifiedName[i+1:]
}
