package rules

import (
	"fmt"
	"strings"

	"github.com/dhamidi/styler/java/parser"
)

// WhitespaceConfig toggles spacing normalization per category. All
// categories default to on.
type WhitespaceConfig struct {
	AroundBinaryOperators bool `mapstructure:"around_binary_operators"`
	AfterCommas           bool `mapstructure:"after_commas"`
	AfterControlKeywords  bool `mapstructure:"after_control_keywords"`
	AroundArrow           bool `mapstructure:"around_arrow"`
	AroundEnhancedForColon bool `mapstructure:"around_enhanced_for_colon"`
	AroundAssignment      bool `mapstructure:"around_assignment"`
	AroundMethodReference bool `mapstructure:"around_method_reference"`
}

func defaultWhitespaceConfig() WhitespaceConfig {
	return WhitespaceConfig{
		AroundBinaryOperators:  true,
		AfterCommas:            true,
		AfterControlKeywords:   true,
		AroundArrow:            true,
		AroundEnhancedForColon: true,
		AroundAssignment:       true,
		AroundMethodReference:  true,
	}
}

type WhitespaceRule struct{}

func NewWhitespaceRule() *WhitespaceRule { return &WhitespaceRule{} }

func (r *WhitespaceRule) ID() string   { return "whitespace" }
func (r *WhitespaceRule) Name() string { return "Whitespace" }
func (r *WhitespaceRule) Description() string {
	return "Normalizes spacing between tokens; comments and string contents stay verbatim"
}
func (r *WhitespaceRule) DefaultSeverity() Severity { return SeverityInfo }

func (r *WhitespaceRule) ValidateConfiguration(options map[string]any) []string {
	cfg := defaultWhitespaceConfig()
	if err := DecodeOptions(options, &cfg); err != nil {
		return []string{err.Error()}
	}
	return nil
}

func (r *WhitespaceRule) config(configs []RuleConfig) (WhitespaceConfig, error) {
	cfg := defaultWhitespaceConfig()
	err := DecodeOptions(MergeOptions(configs, r.ID()), &cfg)
	return cfg, err
}

func (r *WhitespaceRule) Analyze(ctx *Context, configs []RuleConfig) ([]Violation, error) {
	cfg, err := r.config(configs)
	if err != nil {
		return nil, err
	}
	var violations []Violation
	err = r.eachGap(ctx, cfg, func(gapStart, gapEnd int32, want string, what string) error {
		got := string(ctx.Source()[gapStart:gapEnd])
		if got == want {
			return nil
		}
		v := NewViolation(r.ID(), r.DefaultSeverity(),
			fmt.Sprintf("expected %s %s", describeGap(want), what),
			ctx.LineOf(gapStart), ctx.ColumnOf(gapStart), gapStart, gapEnd)
		v.SuggestedFixes = []Fix{{
			Description: "adjust spacing",
			Edits:       []TextEdit{{Start: gapStart, End: gapEnd, NewText: want}},
		}}
		violations = append(violations, v)
		return nil
	})
	return violations, err
}

func (r *WhitespaceRule) Format(ctx *Context, configs []RuleConfig) (string, error) {
	cfg, err := r.config(configs)
	if err != nil {
		return "", err
	}
	var edits []TextEdit
	err = r.eachGap(ctx, cfg, func(gapStart, gapEnd int32, want string, what string) error {
		if string(ctx.Source()[gapStart:gapEnd]) != want {
			edits = append(edits, TextEdit{Start: gapStart, End: gapEnd, NewText: want})
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return applyEdits(ctx.Source(), edits), nil
}

func describeGap(want string) string {
	if want == "" {
		return "no space"
	}
	return "one space"
}

// eachGap visits every same-line gap between adjacent tokens that a
// configured category constrains. Gaps containing a line terminator or
// adjoining a comment are never touched.
func (r *WhitespaceRule) eachGap(ctx *Context, cfg WhitespaceConfig, fn func(gapStart, gapEnd int32, want, what string) error) error {
	merged := mergeTokens(ctx.Tokens(), ctx.Comments())
	source := ctx.Source()

	for i := 0; i+1 < len(merged); i++ {
		if i%256 == 0 {
			if err := ctx.CheckDeadline(); err != nil {
				return err
			}
		}
		a, b := merged[i], merged[i+1]
		if a.IsComment() || b.IsComment() {
			continue
		}
		gap := source[a.End:b.Start]
		if strings.ContainsAny(string(gap), "\n\r") {
			continue
		}

		if want, what, ok := r.gapRule(ctx, cfg, a, b); ok {
			if err := fn(a.End, b.Start, want, what); err != nil {
				return err
			}
		}
	}
	return nil
}

// gapRule decides the required gap between two adjacent tokens, when a
// category covers the pair.
func (r *WhitespaceRule) gapRule(ctx *Context, cfg WhitespaceConfig, a, b parser.Token) (string, string, bool) {
	// After commas: one space after, none before.
	if cfg.AfterCommas {
		if a.Kind == parser.TokenComma {
			return " ", "after comma", true
		}
		if b.Kind == parser.TokenComma {
			return "", "before comma", true
		}
	}

	if cfg.AfterControlKeywords {
		switch a.Kind {
		case parser.TokenIf, parser.TokenFor, parser.TokenWhile,
			parser.TokenSwitch, parser.TokenCatch, parser.TokenSynchronized:
			if b.Kind == parser.TokenLParen {
				return " ", "after control keyword", true
			}
		}
	}

	if cfg.AroundArrow {
		if a.Kind == parser.TokenArrow {
			return " ", "after arrow", true
		}
		if b.Kind == parser.TokenArrow {
			return " ", "before arrow", true
		}
	}

	if cfg.AroundMethodReference {
		if a.Kind == parser.TokenColonColon {
			return "", "after method reference separator", true
		}
		if b.Kind == parser.TokenColonColon {
			return "", "before method reference separator", true
		}
	}

	if cfg.AroundAssignment {
		if isAssignToken(a.Kind) {
			return " ", "after assignment operator", true
		}
		if isAssignToken(b.Kind) {
			return " ", "before assignment operator", true
		}
	}

	if cfg.AroundEnhancedForColon {
		if a.Kind == parser.TokenColon && r.isEnhancedForColon(ctx, a) {
			return " ", "after enhanced-for colon", true
		}
		if b.Kind == parser.TokenColon && r.isEnhancedForColon(ctx, b) {
			return " ", "before enhanced-for colon", true
		}
	}

	if cfg.AroundBinaryOperators {
		if isUnambiguousBinaryOp(a.Kind) {
			return " ", "after binary operator", true
		}
		if isUnambiguousBinaryOp(b.Kind) {
			return " ", "before binary operator", true
		}
	}

	return "", "", false
}

func isAssignToken(kind parser.TokenKind) bool {
	switch kind {
	case parser.TokenAssign, parser.TokenPlusAssign, parser.TokenMinusAssign,
		parser.TokenStarAssign, parser.TokenSlashAssign, parser.TokenPercentAssign,
		parser.TokenAndAssign, parser.TokenOrAssign, parser.TokenXorAssign,
		parser.TokenShlAssign, parser.TokenShrAssign, parser.TokenUShrAssign:
		return true
	}
	return false
}

// isUnambiguousBinaryOp covers operators that are always binary and
// never part of a generic type or a unary expression. "<", ">", "&",
// "|", "*", "+", "-" stay untouched: the cost of a misread there is a
// broken generic or a mangled unary sign.
func isUnambiguousBinaryOp(kind parser.TokenKind) bool {
	switch kind {
	case parser.TokenEQ, parser.TokenNE, parser.TokenLE, parser.TokenGE,
		parser.TokenAnd, parser.TokenOr, parser.TokenPercent,
		parser.TokenInstanceof:
		return true
	}
	return false
}

// isEnhancedForColon checks the AST: the colon of an enhanced for is
// enclosed directly by the EnhancedForStmt node, not by a label,
// ternary or switch case.
func (r *WhitespaceRule) isEnhancedForColon(ctx *Context, tok parser.Token) bool {
	node := ctx.Index().NodeAt(tok.Start)
	if node == parser.NoNode {
		return false
	}
	return ctx.Arena().Kind(node) == parser.KindEnhancedForStmt
}
