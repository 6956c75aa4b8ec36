package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ImportOrganizerConfig controls grouping and ordering. Each entry of
// Groups is a comma-separated list of package prefixes forming one
// group; imports matching no group (and no custom pattern) form the
// trailing group. Wildcard expansion only happens when every used
// symbol resolved (fail closed).
type ImportOrganizerConfig struct {
	Groups              []string `mapstructure:"groups"`
	CustomGroupPatterns []string `mapstructure:"custom_group_patterns"`
	StaticImportsFirst  bool     `mapstructure:"static_imports_first"`
	ExpandWildcards     bool     `mapstructure:"expand_wildcards"`
}

func defaultImportOrganizerConfig() ImportOrganizerConfig {
	return ImportOrganizerConfig{
		Groups: []string{"java,javax"},
	}
}

func (c ImportOrganizerConfig) validate() []string {
	var problems []string
	for _, pattern := range c.CustomGroupPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			problems = append(problems, fmt.Sprintf("invalid group pattern %q: %v", pattern, err))
		}
	}
	return problems
}

type ImportOrganizerRule struct{}

func NewImportOrganizerRule() *ImportOrganizerRule { return &ImportOrganizerRule{} }

func (r *ImportOrganizerRule) ID() string   { return "import-organizer" }
func (r *ImportOrganizerRule) Name() string { return "Import organizer" }
func (r *ImportOrganizerRule) Description() string {
	return "Groups, sorts and (with a complete classpath) expands imports"
}
func (r *ImportOrganizerRule) DefaultSeverity() Severity { return SeverityInfo }

func (r *ImportOrganizerRule) ValidateConfiguration(options map[string]any) []string {
	cfg := defaultImportOrganizerConfig()
	if err := DecodeOptions(options, &cfg); err != nil {
		return []string{err.Error()}
	}
	return cfg.validate()
}

func (r *ImportOrganizerRule) config(configs []RuleConfig) (ImportOrganizerConfig, error) {
	cfg := defaultImportOrganizerConfig()
	if err := DecodeOptions(MergeOptions(configs, r.ID()), &cfg); err != nil {
		return cfg, err
	}
	if problems := cfg.validate(); len(problems) > 0 {
		return cfg, fmt.Errorf("invalid import-organizer config: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

func (r *ImportOrganizerRule) Analyze(ctx *Context, configs []RuleConfig) ([]Violation, error) {
	cfg, err := r.config(configs)
	if err != nil {
		return nil, err
	}

	imports := extractImports(ctx)
	if len(imports) == 0 {
		return nil, nil
	}
	if err := ctx.CheckDeadline(); err != nil {
		return nil, err
	}

	region, ok := importRegion(ctx, imports)
	if !ok {
		return nil, nil
	}
	organized := r.organize(ctx, cfg, imports)
	current := string(ctx.Source()[region.Start:region.End])
	if normalizeTrailing(current) == normalizeTrailing(organized) {
		return nil, nil
	}

	v := NewViolation(r.ID(), r.DefaultSeverity(),
		"imports are not grouped and sorted",
		ctx.LineOf(region.Start), 1, region.Start, region.End)
	v.SuggestedFixes = []Fix{{
		Description: "reorganize imports",
		Edits:       []TextEdit{{Start: region.Start, End: region.End, NewText: organized}},
	}}
	return []Violation{v}, nil
}

func (r *ImportOrganizerRule) Format(ctx *Context, configs []RuleConfig) (string, error) {
	cfg, err := r.config(configs)
	if err != nil {
		return "", err
	}

	imports := extractImports(ctx)
	if len(imports) == 0 {
		return string(ctx.Source()), nil
	}
	if err := ctx.CheckDeadline(); err != nil {
		return "", err
	}

	region, ok := importRegion(ctx, imports)
	if !ok {
		return string(ctx.Source()), nil
	}
	organized := r.organize(ctx, cfg, imports)
	return applyEdits(ctx.Source(), []TextEdit{{
		Start:   region.Start,
		End:     region.End,
		NewText: organized,
	}}), nil
}

type region struct {
	Start int32
	End   int32
}

// importRegion spans from the first to the last import declaration.
// Comments inside the region are preserved ahead of the reorganized
// block.
func importRegion(ctx *Context, imports []importInfo) (region, bool) {
	arena := ctx.Arena()
	start := int32(-1)
	end := int32(-1)
	for _, imp := range imports {
		s, e := arena.Start(imp.Node), arena.End(imp.Node)
		if start < 0 || s < start {
			start = s
		}
		if e > end {
			end = e
		}
	}
	if start < 0 {
		return region{}, false
	}
	return region{Start: start, End: end}, true
}

// organize renders the reorganized import block. Module imports lead,
// then static imports (first or last by configuration), then regular
// imports partitioned into prefix groups, custom pattern groups and a
// trailing group, each sorted, with exactly one blank line between
// non-empty groups.
func (r *ImportOrganizerRule) organize(ctx *Context, cfg ImportOrganizerConfig, imports []importInfo) string {
	res := resolveSymbols(ctx, imports)

	var module, static, regular []importInfo
	for _, imp := range imports {
		switch {
		case imp.Module:
			module = append(module, imp)
		case imp.Static:
			static = append(static, imp)
		default:
			regular = append(regular, imp)
		}
	}

	regular = r.expandWildcards(ctx, cfg, regular, res)

	prefixGroups := make([][]string, len(cfg.Groups))
	for i, group := range cfg.Groups {
		for _, prefix := range strings.Split(group, ",") {
			prefixGroups[i] = append(prefixGroups[i], strings.TrimSpace(prefix))
		}
	}
	patterns := make([]*regexp.Regexp, len(cfg.CustomGroupPatterns))
	for i, p := range cfg.CustomGroupPatterns {
		patterns[i] = regexp.MustCompile(p)
	}

	groupCount := len(prefixGroups) + len(patterns) + 1
	grouped := make([][]importInfo, groupCount)
	for _, imp := range regular {
		grouped[r.groupOf(imp.Qualified, prefixGroups, patterns)] = append(grouped[r.groupOf(imp.Qualified, prefixGroups, patterns)], imp)
	}

	var blocks [][]string
	if len(module) > 0 {
		blocks = append(blocks, renderImports(module))
	}
	if cfg.StaticImportsFirst && len(static) > 0 {
		blocks = append(blocks, renderImports(static))
	}
	for _, group := range grouped {
		if len(group) > 0 {
			blocks = append(blocks, renderImports(group))
		}
	}
	if !cfg.StaticImportsFirst && len(static) > 0 {
		blocks = append(blocks, renderImports(static))
	}

	var parts []string
	for _, block := range blocks {
		parts = append(parts, strings.Join(block, "\n"))
	}

	// Comments inside the replaced region go ahead of the block so the
	// rewrite keeps them.
	var leading strings.Builder
	if reg, ok := importRegion(ctx, imports); ok {
		for _, c := range ctx.Comments() {
			if c.Start >= reg.Start && c.End <= reg.End {
				leading.Write(ctx.Source()[c.Start:c.End])
				leading.WriteString("\n")
			}
		}
	}
	return leading.String() + strings.Join(parts, "\n\n")
}

func (r *ImportOrganizerRule) groupOf(qualified string, prefixGroups [][]string, patterns []*regexp.Regexp) int {
	for i, prefixes := range prefixGroups {
		for _, prefix := range prefixes {
			if qualified == prefix || strings.HasPrefix(qualified, prefix+".") {
				return i
			}
		}
	}
	for i, pattern := range patterns {
		if pattern.MatchString(qualified) {
			return len(prefixGroups) + i
		}
	}
	return len(prefixGroups) + len(patterns)
}

// expandWildcards replaces wildcard imports with explicit imports of
// the symbols actually used, but only when every used symbol resolved:
// with an incomplete classpath the wildcard set stays untouched so no
// import silently disappears.
func (r *ImportOrganizerRule) expandWildcards(ctx *Context, cfg ImportOrganizerConfig, regular []importInfo, res resolution) []importInfo {
	if !cfg.ExpandWildcards || !res.complete {
		return regular
	}

	var out []importInfo
	for _, imp := range regular {
		if !imp.Wildcard {
			out = append(out, imp)
			continue
		}
		var expanded []importInfo
		for name, pkg := range res.wildcardSource {
			if pkg == imp.Qualified {
				expanded = append(expanded, importInfo{
					Qualified: pkg + "." + name,
				})
			}
		}
		if len(expanded) == 0 {
			// Nothing used the wildcard; keep it rather than delete
			// an import.
			out = append(out, imp)
			continue
		}
		out = append(out, expanded...)
	}
	return out
}

func renderImports(imports []importInfo) []string {
	sorted := make([]importInfo, len(imports))
	copy(sorted, imports)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Qualified < sorted[j].Qualified
	})

	var lines []string
	seen := make(map[string]bool)
	for _, imp := range sorted {
		line := renderImport(imp)
		if seen[line] {
			continue
		}
		seen[line] = true
		lines = append(lines, line)
	}
	return lines
}

func renderImport(imp importInfo) string {
	switch {
	case imp.Module:
		return "import module " + imp.Qualified + ";"
	case imp.Static && imp.Wildcard:
		return "import static " + imp.Qualified + ".*;"
	case imp.Static:
		return "import static " + imp.Qualified + ";"
	case imp.Wildcard:
		return "import " + imp.Qualified + ".*;"
	default:
		return "import " + imp.Qualified + ";"
	}
}

func normalizeTrailing(s string) string {
	return strings.TrimRight(s, "\n\t ")
}
