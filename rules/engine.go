package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dhamidi/styler/errs"
	"github.com/dhamidi/styler/java/parser"
)

// Rule is a single style rule. Implementations must be safe to call
// concurrently from different goroutines on different files; calls on
// the same file are serialized by the pipeline. Analyze must not
// mutate the arena. Format returns the complete new source text.
type Rule interface {
	ID() string
	Name() string
	Description() string
	DefaultSeverity() Severity
	Analyze(ctx *Context, configs []RuleConfig) ([]Violation, error)
	Format(ctx *Context, configs []RuleConfig) (string, error)
	ValidateConfiguration(options map[string]any) []string
}

// Registry holds rules by ID. The built-in rules register themselves
// at init; user-provided rules may be added at runtime.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

func (r *Registry) Register(rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID()]; ok {
		return fmt.Errorf("rule already registered: %s", rule.ID())
	}
	r.rules[rule.ID()] = rule
	return nil
}

func (r *Registry) Get(id string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	return rule, ok
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rules))
	for id := range r.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultRegistry carries the built-in rules.
var DefaultRegistry = NewRegistry()

func init() {
	for _, rule := range []Rule{
		NewImportOrganizerRule(),
		NewBraceStyleRule(),
		NewWhitespaceRule(),
		NewIndentationRule(),
		NewLineLengthRule(),
	} {
		if err := DefaultRegistry.Register(rule); err != nil {
			panic(err)
		}
	}
}

// FormatOrder is the fixed order rules rewrite in: structural edits
// first (imports, braces), then token spacing, then indentation, with
// line wrapping last so it sees final indents.
var FormatOrder = []string{
	"import-organizer",
	"brace-style",
	"whitespace",
	"indentation",
	"line-length",
}

// Engine runs a set of rules against one file's context.
type Engine struct {
	registry *Registry
	enabled  []string

	// isolateRules keeps formatting going when one rule fails: the
	// failing rule's input text is retained and the error reported
	// alongside the result.
	isolateRules bool
}

type EngineOption func(*Engine)

func WithIsolatedRules() EngineOption {
	return func(e *Engine) { e.isolateRules = true }
}

// WithEnabledRules restricts the engine to the given rule IDs, in
// FormatOrder for formatting.
func WithEnabledRules(ids ...string) EngineOption {
	return func(e *Engine) { e.enabled = ids }
}

func NewEngine(registry *Registry, opts ...EngineOption) *Engine {
	e := &Engine{registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) ruleIDs() []string {
	if e.enabled != nil {
		return e.enabled
	}
	return e.registry.IDs()
}

// formatRuleIDs returns the enabled rules in FormatOrder; enabled
// rules outside FormatOrder run last, in the order of the enabled list
// (sorted by ID when no list was given).
func (e *Engine) formatRuleIDs() []string {
	enabled := make(map[string]bool)
	for _, id := range e.ruleIDs() {
		enabled[id] = true
	}
	var ordered []string
	for _, id := range FormatOrder {
		if enabled[id] {
			ordered = append(ordered, id)
			delete(enabled, id)
		}
	}
	for _, id := range e.ruleIDs() {
		if enabled[id] {
			ordered = append(ordered, id)
		}
	}
	return ordered
}

// ValidateConfigs runs every config entry through its rule's schema
// check. Unknown rule IDs are reported too.
func (e *Engine) ValidateConfigs(configs []RuleConfig) []string {
	var problems []string
	for _, cfg := range configs {
		rule, ok := e.registry.Get(cfg.RuleID)
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown rule: %s", cfg.RuleID))
			continue
		}
		for _, msg := range rule.ValidateConfiguration(cfg.Options) {
			problems = append(problems, fmt.Sprintf("%s: %s", cfg.RuleID, msg))
		}
	}
	return problems
}

// Analyze runs every enabled rule's Analyze and returns the combined
// violations in source-position order.
func (e *Engine) Analyze(ctx *Context, configs []RuleConfig) ([]Violation, error) {
	var all []Violation
	for _, id := range e.ruleIDs() {
		rule, ok := e.registry.Get(id)
		if !ok {
			continue
		}
		if err := ctx.CheckDeadline(); err != nil {
			return nil, err
		}
		violations, err := rule.Analyze(ctx, configs)
		if err != nil {
			return nil, err
		}
		for i := range violations {
			violations[i].FilePath = ctx.FilePath()
		}
		all = append(all, violations...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].RuleID < all[j].RuleID
	})
	return all, nil
}

// FormatResult is the outcome of a full formatting pass.
type FormatResult struct {
	NewSource string
	Changed   bool

	// RuleErrors holds per-rule failures when rules are isolated; the
	// failing rules' input text was preserved.
	RuleErrors map[string]error
}

// Format applies every enabled rule's Format in FormatOrder. After a
// rule rewrites the text, the source is reparsed so the next rule sees
// the current tree. A rule whose output fails to parse or exceeds the
// output budget is treated as failed; its input text is kept.
func (e *Engine) Format(ctx *Context, configs []RuleConfig) (*FormatResult, error) {
	current := string(ctx.Source())
	original := current
	ruleErrors := make(map[string]error)
	stepCtx := ctx

	for _, id := range e.formatRuleIDs() {
		rule, ok := e.registry.Get(id)
		if !ok {
			continue
		}
		if err := ctx.CheckDeadline(); err != nil {
			return nil, err
		}

		out, err := rule.Format(stepCtx, configs)
		if err == nil && len(out) > stepCtx.Security().MaxOutputBytes {
			err = errs.WrapFile(errs.KindSecurity, ctx.FilePath(),
				fmt.Errorf("rule %s output %d bytes exceeds limit", id, len(out)))
		}
		if err != nil {
			if !e.isolateRules {
				return nil, errs.WrapFile(errs.KindFormat, ctx.FilePath(), err)
			}
			ruleErrors[id] = err
			continue
		}
		if out == current {
			continue
		}

		// Reparse so the following rules see the rewritten tree. A
		// rule that broke the parse is rolled back like any other
		// failure.
		next, reparseErr := reparse(ctx, out)
		if reparseErr != nil {
			if !e.isolateRules {
				return nil, errs.WrapFile(errs.KindFormat, ctx.FilePath(), reparseErr)
			}
			ruleErrors[id] = reparseErr
			continue
		}
		current = out
		stepCtx = next
	}

	return &FormatResult{
		NewSource:  current,
		Changed:    current != original,
		RuleErrors: ruleErrors,
	}, nil
}

func reparse(base *Context, source string) (*Context, error) {
	result := parser.Parse([]byte(source),
		parser.WithFile(base.FilePath()),
		parser.WithLimits(base.Security()),
		parser.WithDeadline(base.Deadline()))
	if result.Fatal != nil {
		return nil, result.Fatal
	}
	if len(result.Errors) > 0 || len(result.LexErrors) > 0 {
		return nil, fmt.Errorf("rule output no longer parses: %v", firstError(result))
	}
	next := NewContext(result, []byte(source), base.FilePath(), base.Security(), base.TypeResolution())
	next.SetDeadline(base.Deadline())
	return next, nil
}

func firstError(result *parser.Result) error {
	if len(result.Errors) > 0 {
		return result.Errors[0]
	}
	if len(result.LexErrors) > 0 {
		return result.LexErrors[0]
	}
	return nil
}
