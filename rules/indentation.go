package rules

import (
	"fmt"
	"strings"

	"github.com/dhamidi/styler/java/parser"
)

const (
	IndentSpaces = "SPACES"
	IndentTabs   = "TABS"
)

// IndentationConfig controls the indentation rule. The default keeps
// the observed style: four spaces, case labels one level deeper than
// the switch brace.
type IndentationConfig struct {
	Type              string `mapstructure:"type"`
	Width             int    `mapstructure:"width"`
	ContinuationWidth int    `mapstructure:"continuation_width"`
	IndentCaseLabels  bool   `mapstructure:"indent_case_labels"`
}

func defaultIndentationConfig() IndentationConfig {
	return IndentationConfig{
		Type:              IndentSpaces,
		Width:             4,
		ContinuationWidth: 8,
		IndentCaseLabels:  true,
	}
}

func (c IndentationConfig) validate() []string {
	var problems []string
	if c.Type != IndentSpaces && c.Type != IndentTabs {
		problems = append(problems, fmt.Sprintf("type must be SPACES or TABS, got %q", c.Type))
	}
	if c.Width < 1 || c.Width > 16 {
		problems = append(problems, fmt.Sprintf("width must be in 1..16, got %d", c.Width))
	}
	if c.ContinuationWidth < 1 || c.ContinuationWidth > 16 {
		problems = append(problems, fmt.Sprintf("continuation_width must be in 1..16, got %d", c.ContinuationWidth))
	}
	return problems
}

type IndentationRule struct{}

func NewIndentationRule() *IndentationRule { return &IndentationRule{} }

func (r *IndentationRule) ID() string   { return "indentation" }
func (r *IndentationRule) Name() string { return "Indentation" }
func (r *IndentationRule) Description() string {
	return "Aligns each line's leading whitespace with its AST depth"
}
func (r *IndentationRule) DefaultSeverity() Severity { return SeverityWarning }

func (r *IndentationRule) ValidateConfiguration(options map[string]any) []string {
	cfg := defaultIndentationConfig()
	if err := DecodeOptions(options, &cfg); err != nil {
		return []string{err.Error()}
	}
	return cfg.validate()
}

func (r *IndentationRule) config(configs []RuleConfig) (IndentationConfig, error) {
	cfg := defaultIndentationConfig()
	if err := DecodeOptions(MergeOptions(configs, r.ID()), &cfg); err != nil {
		return cfg, err
	}
	if problems := cfg.validate(); len(problems) > 0 {
		return cfg, fmt.Errorf("invalid indentation config: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

func (r *IndentationRule) Analyze(ctx *Context, configs []RuleConfig) ([]Violation, error) {
	cfg, err := r.config(configs)
	if err != nil {
		return nil, err
	}

	var violations []Violation
	err = r.eachLine(ctx, cfg, func(line sourceLine, want string) error {
		got := leadingWhitespace(ctx.Source(), line)
		if got != want {
			v := NewViolation(r.ID(), r.DefaultSeverity(),
				fmt.Sprintf("expected indentation of %d, found %d",
					expandedWidth(want, cfg.Width), expandedWidth(got, cfg.Width)),
				ctx.LineOf(line.Start), 1, line.Start, line.Start+int32(len(got)))
			v.SuggestedFixes = []Fix{{
				Description: "reindent line",
				Edits: []TextEdit{{
					Start:   line.Start,
					End:     line.Start + int32(len(got)),
					NewText: want,
				}},
			}}
			violations = append(violations, v)
		}
		return nil
	})
	return violations, err
}

func (r *IndentationRule) Format(ctx *Context, configs []RuleConfig) (string, error) {
	cfg, err := r.config(configs)
	if err != nil {
		return "", err
	}

	var edits []TextEdit
	err = r.eachLine(ctx, cfg, func(line sourceLine, want string) error {
		got := leadingWhitespace(ctx.Source(), line)
		if got != want {
			edits = append(edits, TextEdit{
				Start:   line.Start,
				End:     line.Start + int32(len(got)),
				NewText: want,
			})
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return applyEdits(ctx.Source(), edits), nil
}

// eachLine computes the target indentation of every reformattable line
// and hands it to fn. Blank lines, text-block interiors and block
// comment continuations are skipped (preserved verbatim).
func (r *IndentationRule) eachLine(ctx *Context, cfg IndentationConfig, fn func(line sourceLine, want string) error) error {
	source := ctx.Source()
	lines := splitLines(source)
	merged := mergeTokens(ctx.Tokens(), ctx.Comments())
	depths := r.lineDepths(ctx, cfg, lines, merged)

	unit := strings.Repeat(" ", cfg.Width)
	if cfg.Type == IndentTabs {
		unit = "\t"
	}
	contUnit := strings.Repeat(" ", cfg.ContinuationWidth)
	if cfg.Type == IndentTabs {
		contUnit = "\t"
	}

	for i, line := range lines {
		if err := ctx.CheckDeadline(); err != nil {
			return err
		}
		first := firstNonBlank(source, line)
		if first < 0 {
			continue // blank lines stay verbatim
		}
		if tok, ok := tokenCovering(merged, first); ok && tok.Start < line.Start {
			// The line continues a text block or a multi-line
			// comment; its interior is not ours to touch.
			if tok.Kind == parser.TokenTextBlock || tok.Kind == parser.TokenError {
				continue
			}
			if tok.Kind == parser.TokenComment {
				continue
			}
		}

		d := depths[i]
		want := strings.Repeat(unit, d.depth)
		if d.continuation {
			want += contUnit
		}
		if err := fn(line, want); err != nil {
			return err
		}
	}
	return nil
}

type lineDepth struct {
	depth        int
	continuation bool
}

// lineStartKinds maps each byte offset at which a reachable node
// begins to the outermost such node's kind. Parents precede children
// in the walk, so the first registration is the outermost.
func lineStartKinds(ctx *Context) map[int32]parser.NodeKind {
	kinds := make(map[int32]parser.NodeKind)
	arena := ctx.Arena()
	arena.Walk(ctx.Root(), func(id parser.NodeID) bool {
		if _, ok := kinds[arena.Start(id)]; !ok {
			kinds[arena.Start(id)] = arena.Kind(id)
		}
		return true
	})
	return kinds
}

// lineDepths derives each line's target depth from the token stream
// and the AST. Braces inside strings, chars and comments never count:
// they are opaque token content. Case bodies sit one level below their
// label; the label itself sits at the switch brace depth plus one when
// IndentCaseLabels is set.
func (r *IndentationRule) lineDepths(ctx *Context, cfg IndentationConfig, lines []sourceLine, merged []parser.Token) []lineDepth {
	depths := make([]lineDepth, len(lines))

	// Brace depth entering each line.
	depthAt := make([]int, len(lines))
	depth := 0
	lineIdx := 0
	var prevCode parser.Token
	prevCodeByLine := make([]parser.Token, len(lines))
	for _, tok := range merged {
		for lineIdx < len(lines)-1 && tok.Start >= lines[lineIdx+1].Start {
			lineIdx++
			depthAt[lineIdx] = depth
			prevCodeByLine[lineIdx] = prevCode
		}
		switch tok.Kind {
		case parser.TokenLBrace:
			depth++
		case parser.TokenRBrace:
			depth--
		}
		if !tok.IsComment() {
			prevCode = tok
		}
	}
	for lineIdx < len(lines)-1 {
		lineIdx++
		depthAt[lineIdx] = depth
		prevCodeByLine[lineIdx] = prevCode
	}

	startKinds := lineStartKinds(ctx)
	source := ctx.Source()
	for i, line := range lines {
		first := firstNonBlank(source, line)
		if first < 0 {
			continue
		}
		d := depthAt[i]

		// Leading closers de-indent their own line.
		for j := first; j < line.End && source[j] == '}'; j++ {
			d--
		}

		d += r.switchAdjust(ctx, first, cfg.IndentCaseLabels)

		if d < 0 {
			d = 0
		}
		depths[i] = lineDepth{
			depth:        d,
			continuation: r.isContinuation(source, merged, startKinds, prevCodeByLine[i], first),
		}
	}
	return depths
}

// switchAdjust moves lines inside switches relative to the brace depth
// the token scan charged, accumulating across nested switches. With
// indent_case_labels set (the default), labels sit one level inside
// the switch and case bodies one deeper; unset, labels align with the
// switch brace contents and bodies sit one inside.
func (r *IndentationRule) switchAdjust(ctx *Context, offset int32, indentCaseLabels bool) int {
	arena := ctx.Arena()
	node := ctx.Index().NodeAt(offset)

	// When the line starts inside a case label, that label's own
	// SwitchCase is adjusted differently from the enclosing ones.
	labelOwner := parser.NoNode
	for n := node; n != parser.NoNode; n = arena.Parent(n) {
		if arena.Kind(n) == parser.KindSwitchLabel {
			labelOwner = arena.Parent(n)
			break
		}
		if arena.Kind(n) == parser.KindSwitchCase {
			break
		}
	}

	adjust := 0
	child := parser.NoNode
	for n := node; n != parser.NoNode; n = arena.Parent(n) {
		if arena.Kind(n) == parser.KindSwitchCase {
			switch {
			case n == labelOwner:
				if !indentCaseLabels {
					adjust--
				}
			case child != parser.NoNode && arena.Kind(child) == parser.KindBlock:
				// A braced case body ("case 1 -> { ... }" or a block
				// statement right after the label) already pays its
				// own brace; no extra level.
			case indentCaseLabels:
				adjust++
			}
		}
		child = n
	}
	return adjust
}

// isContinuation reports whether the line carries on an unfinished
// construct from the previous code line. A line beginning a statement,
// declaration, annotation or label is never a continuation; neither is
// one opening with a dangling keyword (else, catch, finally, while).
func (r *IndentationRule) isContinuation(source []byte, merged []parser.Token, startKinds map[int32]parser.NodeKind, prev parser.Token, first int32) bool {
	if prev.End == 0 {
		return false
	}
	switch prev.Kind {
	case parser.TokenSemicolon, parser.TokenLBrace, parser.TokenRBrace,
		parser.TokenColon, parser.TokenArrow, parser.TokenComma, parser.TokenEOF:
		return false
	}
	switch source[first] {
	case '}', '{':
		return false
	}

	if tok, ok := tokenCovering(merged, first); ok && tok.Start == first {
		switch tok.Kind {
		case parser.TokenCase, parser.TokenDefault, parser.TokenElse,
			parser.TokenCatch, parser.TokenFinally, parser.TokenWhile,
			parser.TokenComment, parser.TokenLineComment, parser.TokenAt:
			return false
		}
	}

	if kind, ok := startKinds[first]; ok {
		if kind.IsStatement() || kind.IsTypeDecl() {
			return false
		}
		switch kind {
		case parser.KindFieldDecl, parser.KindMethodDecl, parser.KindConstructorDecl,
			parser.KindEnumConstant, parser.KindInitializerBlock,
			parser.KindModifiers, parser.KindModifier, parser.KindAnnotation,
			parser.KindSwitchLabel, parser.KindSwitchCase,
			parser.KindCatchClause, parser.KindFinallyClause,
			parser.KindPackageDecl, parser.KindImportDecl, parser.KindModuleImportDecl,
			parser.KindModuleDecl, parser.KindRequiresDirective, parser.KindExportsDirective,
			parser.KindOpensDirective, parser.KindUsesDirective, parser.KindProvidesDirective:
			return false
		}
	}

	return true
}
