package rules

import (
	"fmt"
	"strings"

	"github.com/dhamidi/styler/java/parser"
)

const (
	BraceNextLine = "NEXT_LINE" // Allman
	BraceSameLine = "SAME_LINE" // K&R
)

type BraceStyleConfig struct {
	Style string `mapstructure:"style"`
}

func defaultBraceStyleConfig() BraceStyleConfig {
	return BraceStyleConfig{Style: BraceSameLine}
}

func (c BraceStyleConfig) validate() []string {
	if c.Style != BraceNextLine && c.Style != BraceSameLine {
		return []string{fmt.Sprintf("style must be NEXT_LINE or SAME_LINE, got %q", c.Style)}
	}
	return nil
}

type BraceStyleRule struct{}

func NewBraceStyleRule() *BraceStyleRule { return &BraceStyleRule{} }

func (r *BraceStyleRule) ID() string   { return "brace-style" }
func (r *BraceStyleRule) Name() string { return "Brace style" }
func (r *BraceStyleRule) Description() string {
	return "Places declaration and block braces on the configured line"
}
func (r *BraceStyleRule) DefaultSeverity() Severity { return SeverityWarning }

func (r *BraceStyleRule) ValidateConfiguration(options map[string]any) []string {
	cfg := defaultBraceStyleConfig()
	if err := DecodeOptions(options, &cfg); err != nil {
		return []string{err.Error()}
	}
	return cfg.validate()
}

func (r *BraceStyleRule) config(configs []RuleConfig) (BraceStyleConfig, error) {
	cfg := defaultBraceStyleConfig()
	if err := DecodeOptions(MergeOptions(configs, r.ID()), &cfg); err != nil {
		return cfg, err
	}
	if problems := cfg.validate(); len(problems) > 0 {
		return cfg, fmt.Errorf("invalid brace-style config: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// braceParents are the node kinds whose block braces the rule governs.
// Array initializers, switch bodies and lambdas keep their layout.
var braceParents = map[parser.NodeKind]bool{
	parser.KindClassDecl:        true,
	parser.KindInterfaceDecl:    true,
	parser.KindRecordDecl:       true,
	parser.KindAnnotationDecl:   true,
	parser.KindMethodDecl:       true,
	parser.KindConstructorDecl:  true,
	parser.KindInitializerBlock: true,
	parser.KindIfStmt:           true,
	parser.KindForStmt:          true,
	parser.KindEnhancedForStmt:  true,
	parser.KindWhileStmt:        true,
	parser.KindDoStmt:           true,
	parser.KindTryStmt:          true,
	parser.KindCatchClause:      true,
	parser.KindFinallyClause:    true,
	parser.KindSynchronizedStmt: true,
}

func (r *BraceStyleRule) Analyze(ctx *Context, configs []RuleConfig) ([]Violation, error) {
	cfg, err := r.config(configs)
	if err != nil {
		return nil, err
	}
	var violations []Violation
	err = r.eachBrace(ctx, func(brace int32, onOwnLine bool) error {
		switch cfg.Style {
		case BraceNextLine:
			if !onOwnLine {
				violations = append(violations, NewViolation(r.ID(), r.DefaultSeverity(),
					"opening brace belongs on its own line",
					ctx.LineOf(brace), ctx.ColumnOf(brace), brace, brace+1))
			}
		case BraceSameLine:
			if onOwnLine {
				violations = append(violations, NewViolation(r.ID(), r.DefaultSeverity(),
					"opening brace belongs on the previous line",
					ctx.LineOf(brace), ctx.ColumnOf(brace), brace, brace+1))
			}
		}
		return nil
	})
	return violations, err
}

func (r *BraceStyleRule) Format(ctx *Context, configs []RuleConfig) (string, error) {
	cfg, err := r.config(configs)
	if err != nil {
		return "", err
	}

	source := ctx.Source()
	var edits []TextEdit
	err = r.eachBrace(ctx, func(brace int32, onOwnLine bool) error {
		switch {
		case cfg.Style == BraceSameLine && onOwnLine:
			// Join the brace to the previous code line: the
			// whitespace run before it (including the newline)
			// becomes one space.
			start := brace
			for start > 0 && isSpaceByte(source[start-1]) {
				start--
			}
			if start == 0 {
				return nil
			}
			edits = append(edits, TextEdit{Start: start, End: brace, NewText: " "})
		case cfg.Style == BraceNextLine && !onOwnLine:
			// Push the brace to its own line at the indentation of
			// the line it was on.
			lineStart := ctx.Index().LineStart(ctx.LineOf(brace))
			indent := ""
			for i := lineStart; i < brace && isSpaceByte(source[i]); i++ {
				indent += string(source[i])
			}
			start := brace
			for start > 0 && (source[start-1] == ' ' || source[start-1] == '\t') {
				start--
			}
			edits = append(edits, TextEdit{Start: start, End: brace, NewText: "\n" + indent})
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return applyEdits(source, edits), nil
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// eachBrace visits the opening brace of every governed block, with
// whether it currently sits on its own line.
func (r *BraceStyleRule) eachBrace(ctx *Context, fn func(brace int32, onOwnLine bool) error) error {
	arena := ctx.Arena()
	source := ctx.Source()

	visit := func(brace int32) error {
		if source[brace] != '{' {
			return nil
		}
		lineStart := ctx.Index().LineStart(ctx.LineOf(brace))
		onOwnLine := true
		for i := lineStart; i < brace; i++ {
			if source[i] != ' ' && source[i] != '\t' {
				onOwnLine = false
				break
			}
		}
		return fn(brace, onOwnLine)
	}

	for _, block := range ctx.Index().NodesByKind(parser.KindBlock) {
		if err := ctx.CheckDeadline(); err != nil {
			return err
		}
		parent := arena.Parent(block)
		if parent == parser.NoNode || !braceParents[arena.Kind(parent)] {
			continue
		}
		if err := visit(arena.Start(block)); err != nil {
			return err
		}
	}

	// Enum bodies own their braces directly; find the first "{" token
	// inside the declaration.
	for _, enum := range ctx.Index().NodesByKind(parser.KindEnumDecl) {
		if brace, ok := firstBraceIn(ctx, enum); ok {
			if err := visit(brace); err != nil {
				return err
			}
		}
	}
	return nil
}

func firstBraceIn(ctx *Context, node parser.NodeID) (int32, bool) {
	start, end := ctx.Arena().Start(node), ctx.Arena().End(node)
	for _, tok := range ctx.Tokens() {
		if tok.Start < start {
			continue
		}
		if tok.Start >= end {
			break
		}
		if tok.Kind == parser.TokenLBrace {
			return tok.Start, true
		}
	}
	return 0, false
}
