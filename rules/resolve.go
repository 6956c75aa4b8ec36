package rules

import (
	"regexp"
	"strings"

	"github.com/dhamidi/styler/java/parser"
)

// javaLangClasses are implicitly imported into every compilation unit.
var javaLangClasses = map[string]bool{
	"AbstractMethodError": true, "Appendable": true, "ArithmeticException": true,
	"ArrayIndexOutOfBoundsException": true, "ArrayStoreException": true,
	"AssertionError": true, "AutoCloseable": true, "Boolean": true, "Byte": true,
	"CharSequence": true, "Character": true, "Class": true, "ClassCastException": true,
	"ClassLoader": true, "ClassNotFoundException": true, "CloneNotSupportedException": true,
	"Cloneable": true, "Comparable": true, "Deprecated": true, "Double": true,
	"Enum": true, "Error": true, "Exception": true, "Float": true,
	"FunctionalInterface": true, "IllegalAccessException": true,
	"IllegalArgumentException": true, "IllegalStateException": true,
	"IndexOutOfBoundsException": true, "Integer": true, "InterruptedException": true,
	"Iterable": true, "Long": true, "Math": true, "NegativeArraySizeException": true,
	"NoSuchFieldException": true, "NoSuchMethodException": true,
	"NullPointerException": true, "Number": true, "NumberFormatException": true,
	"Object": true, "Override": true, "Process": true, "ProcessBuilder": true,
	"Record": true, "Runnable": true, "Runtime": true, "RuntimeException": true,
	"SafeVarargs": true, "SecurityException": true, "Short": true,
	"StackOverflowError": true, "StackTraceElement": true, "StrictMath": true,
	"String": true, "StringBuilder": true, "StringBuffer": true,
	"StringIndexOutOfBoundsException": true, "SuppressWarnings": true, "System": true,
	"Thread": true, "ThreadLocal": true, "Throwable": true,
	"UnsupportedOperationException": true, "Void": true,
}

// importInfo is one import declaration pulled out of the AST.
type importInfo struct {
	Node      parser.NodeID
	Qualified string
	Static    bool
	Wildcard  bool
	Module    bool
}

func (i importInfo) simpleName() string {
	if idx := strings.LastIndexByte(i.Qualified, '.'); idx >= 0 {
		return i.Qualified[idx+1:]
	}
	return i.Qualified
}

// extractImports reads import declarations from the arena. This is the
// primary extraction path; the regex fallback below is for source that
// did not parse.
func extractImports(ctx *Context) []importInfo {
	var imports []importInfo
	for _, id := range ctx.Index().NodesByKind(parser.KindImportDecl) {
		attr := ctx.Arena().ImportAttrOf(id)
		imports = append(imports, importInfo{
			Node:      id,
			Qualified: attr.QualifiedName,
			Static:    attr.IsStatic,
			Wildcard:  attr.IsWildcard,
		})
	}
	for _, id := range ctx.Index().NodesByKind(parser.KindModuleImportDecl) {
		attr := ctx.Arena().ModuleImportAttrOf(id)
		imports = append(imports, importInfo{
			Node:      id,
			Qualified: attr.ModuleName,
			Module:    true,
		})
	}
	return imports
}

var importLinePattern = regexp.MustCompile(`(?m)^\s*import\s+(static\s+)?(module\s+)?([\w.]+)(\.\*)?\s*;`)

// extractImportsFallback pulls imports out of raw text with a regex.
// It is LOSSY: a string or comment containing the word "import" can
// produce phantom entries, and node anchors are absent. Use it only
// when the source did not parse; extractImports is the real path.
func extractImportsFallback(source []byte) []importInfo {
	var imports []importInfo
	for _, m := range importLinePattern.FindAllSubmatch(source, -1) {
		imports = append(imports, importInfo{
			Node:      parser.NoNode,
			Qualified: string(m[3]),
			Static:    len(m[1]) > 0,
			Module:    len(m[2]) > 0,
			Wildcard:  len(m[4]) > 0,
		})
	}
	return imports
}

// resolution is the outcome of matching every used type name against
// the import set and classpath. Destructive edits (wildcard expansion)
// require Complete.
type resolution struct {
	// resolved maps simple names to qualified names; wildcardSource
	// records which wildcard package supplied each.
	resolved       map[string]string
	wildcardSource map[string]string
	unresolved     []string
	complete       bool
}

// resolveSymbols applies the fixed resolution order: explicit import,
// wildcard package contents, java.lang, locally declared types, same
// package. Lowercase identifiers are variables or methods and never
// need imports. Any unresolved uppercase identifier marks the
// classpath incomplete.
func resolveSymbols(ctx *Context, imports []importInfo) resolution {
	res := resolution{
		resolved:       make(map[string]string),
		wildcardSource: make(map[string]string),
		complete:       true,
	}

	explicit := make(map[string]string)
	var wildcardPackages []string
	for _, imp := range imports {
		if imp.Static || imp.Module {
			continue
		}
		if imp.Wildcard {
			wildcardPackages = append(wildcardPackages, imp.Qualified)
			continue
		}
		explicit[imp.simpleName()] = imp.Qualified
	}

	local := locallyDeclaredTypes(ctx)
	scannerImpl := ctx.TypeResolution().Scanner
	pkg := packageName(ctx)

	for _, name := range usedTypeNames(ctx) {
		if qualified, ok := explicit[name]; ok {
			res.resolved[name] = qualified
			continue
		}

		fromWildcard := ""
		for _, wpkg := range wildcardPackages {
			if scannerImpl == nil {
				continue
			}
			if _, ok := scannerImpl.ListPackageClasses(wpkg)[wpkg+"."+name]; ok {
				fromWildcard = wpkg
				break
			}
		}
		if fromWildcard != "" {
			res.resolved[name] = fromWildcard + "." + name
			res.wildcardSource[name] = fromWildcard
			continue
		}

		if javaLangClasses[name] {
			res.resolved[name] = "java.lang." + name
			continue
		}
		if local[name] {
			res.resolved[name] = name
			continue
		}
		if pkg != "" && scannerImpl != nil {
			if _, ok := scannerImpl.ListPackageClasses(pkg)[pkg+"."+name]; ok {
				res.resolved[name] = pkg + "." + name
				continue
			}
		}

		res.unresolved = append(res.unresolved, name)
		res.complete = false
	}

	if scannerImpl == nil && len(wildcardPackages) > 0 {
		res.complete = false
	}
	return res
}

func packageName(ctx *Context) string {
	decls := ctx.Index().NodesByKind(parser.KindPackageDecl)
	if len(decls) == 0 {
		return ""
	}
	return ctx.Arena().NameOf(decls[0])
}

// locallyDeclaredTypes collects the simple names of every type
// declared in the compilation unit, nested ones included.
func locallyDeclaredTypes(ctx *Context) map[string]bool {
	local := make(map[string]bool)
	arena := ctx.Arena()
	arena.Walk(ctx.Root(), func(id parser.NodeID) bool {
		if arena.Kind(id).IsTypeDecl() {
			if name := arena.NameOf(id); name != "" {
				local[name] = true
			}
		}
		return true
	})
	return local
}

// usedTypeNames collects the uppercase-initial identifiers appearing
// outside import and package declarations, deduplicated in first-use
// order.
func usedTypeNames(ctx *Context) []string {
	arena := ctx.Arena()
	seen := make(map[string]bool)
	var names []string

	for _, id := range ctx.Index().NodesByKind(parser.KindIdentifier) {
		if insideImportOrPackage(arena, id) {
			continue
		}
		text := ctx.TextOf(id)
		if text == "" || !isUpperASCII(text[0]) || seen[text] {
			continue
		}
		seen[text] = true
		names = append(names, text)
	}
	return names
}

func insideImportOrPackage(arena *parser.Arena, id parser.NodeID) bool {
	for node := id; node != parser.NoNode; node = arena.Parent(node) {
		switch arena.Kind(node) {
		case parser.KindImportDecl, parser.KindModuleImportDecl, parser.KindPackageDecl:
			return true
		case parser.KindCompilationUnit:
			return false
		}
	}
	return false
}

func isUpperASCII(b byte) bool {
	return b >= 'A' && b <= 'Z'
}
