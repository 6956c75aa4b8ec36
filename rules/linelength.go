package rules

import (
	"fmt"
	"strings"

	"github.com/dhamidi/styler/java/parser"
)

// Wrap positions relative to the joint's separator.
const (
	WrapBefore = "BEFORE"
	WrapAfter  = "AFTER"
	WrapNever  = "NEVER"
)

// Wrappable construct names used as WrapStrategies keys.
const (
	WrapMethodChains    = "method_chains"
	WrapArgumentLists   = "argument_lists"
	WrapBinaryOperators = "binary_operators"
	WrapTernaries       = "ternaries"
	WrapArrayInits      = "array_initializers"
	WrapAnnotationArgs  = "annotation_arguments"
	WrapTypeArguments   = "type_arguments"
)

type LineLengthConfig struct {
	Max                int               `mapstructure:"max"`
	TabWidth           int               `mapstructure:"tab_width"`
	ContinuationIndent int               `mapstructure:"continuation_indent"`
	WrapStrategies     map[string]string `mapstructure:"wrap_strategies"`
}

func defaultLineLengthConfig() LineLengthConfig {
	return LineLengthConfig{
		Max:                120,
		TabWidth:           4,
		ContinuationIndent: 8,
		WrapStrategies: map[string]string{
			WrapMethodChains:    WrapBefore,
			WrapArgumentLists:   WrapAfter,
			WrapBinaryOperators: WrapBefore,
			WrapTernaries:       WrapBefore,
			WrapArrayInits:      WrapAfter,
			WrapAnnotationArgs:  WrapAfter,
			WrapTypeArguments:   WrapNever,
		},
	}
}

func (c LineLengthConfig) validate() []string {
	var problems []string
	if c.Max < 40 || c.Max > 500 {
		problems = append(problems, fmt.Sprintf("max must be in 40..500, got %d", c.Max))
	}
	if c.TabWidth < 1 || c.TabWidth > 16 {
		problems = append(problems, fmt.Sprintf("tab_width must be in 1..16, got %d", c.TabWidth))
	}
	if c.ContinuationIndent < 1 || c.ContinuationIndent > 16 {
		problems = append(problems, fmt.Sprintf("continuation_indent must be in 1..16, got %d", c.ContinuationIndent))
	}
	for construct, strategy := range c.WrapStrategies {
		switch strategy {
		case WrapBefore, WrapAfter, WrapNever:
		default:
			problems = append(problems, fmt.Sprintf("wrap strategy for %s must be BEFORE, AFTER or NEVER, got %q", construct, strategy))
		}
	}
	return problems
}

func (c LineLengthConfig) strategy(construct string) string {
	if s, ok := c.WrapStrategies[construct]; ok {
		return s
	}
	return WrapNever
}

type LineLengthRule struct{}

func NewLineLengthRule() *LineLengthRule { return &LineLengthRule{} }

func (r *LineLengthRule) ID() string   { return "line-length" }
func (r *LineLengthRule) Name() string { return "Line length" }
func (r *LineLengthRule) Description() string {
	return "Reports overlong lines and wraps them at semantic joints"
}
func (r *LineLengthRule) DefaultSeverity() Severity { return SeverityWarning }

func (r *LineLengthRule) ValidateConfiguration(options map[string]any) []string {
	cfg := defaultLineLengthConfig()
	if err := DecodeOptions(options, &cfg); err != nil {
		return []string{err.Error()}
	}
	return cfg.validate()
}

func (r *LineLengthRule) config(configs []RuleConfig) (LineLengthConfig, error) {
	cfg := defaultLineLengthConfig()
	if err := DecodeOptions(MergeOptions(configs, r.ID()), &cfg); err != nil {
		return cfg, err
	}
	if problems := cfg.validate(); len(problems) > 0 {
		return cfg, fmt.Errorf("invalid line-length config: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

func (r *LineLengthRule) Analyze(ctx *Context, configs []RuleConfig) ([]Violation, error) {
	cfg, err := r.config(configs)
	if err != nil {
		return nil, err
	}

	var violations []Violation
	for i, line := range splitLines(ctx.Source()) {
		if i%256 == 0 {
			if err := ctx.CheckDeadline(); err != nil {
				return nil, err
			}
		}
		width := expandedWidth(line.text(ctx.Source()), cfg.TabWidth)
		if width > cfg.Max {
			violations = append(violations, NewViolation(r.ID(), r.DefaultSeverity(),
				fmt.Sprintf("line is %d columns, limit is %d", width, cfg.Max),
				ctx.LineOf(line.Start), cfg.Max+1, line.Start, line.End))
		}
	}
	return violations, nil
}

// Format rewraps overlong statements at semantic joints. Each overlong
// line's enclosing statement is re-laid-out through the document IR;
// constructs whose strategy is NEVER render flat. Statements touching
// text blocks are left alone.
func (r *LineLengthRule) Format(ctx *Context, configs []RuleConfig) (string, error) {
	cfg, err := r.config(configs)
	if err != nil {
		return "", err
	}

	source := ctx.Source()
	var edits []TextEdit
	seen := make(map[parser.NodeID]bool)

	for _, line := range splitLines(source) {
		if err := ctx.CheckDeadline(); err != nil {
			return "", err
		}
		if expandedWidth(line.text(source), cfg.TabWidth) <= cfg.Max {
			continue
		}
		first := firstNonBlank(source, line)
		if first < 0 {
			continue
		}

		stmt := r.enclosingStatement(ctx, first)
		if stmt == parser.NoNode || seen[stmt] {
			continue
		}
		seen[stmt] = true
		if r.containsTextBlock(ctx, stmt) {
			continue
		}

		indent := leadingWhitespace(source, sourceLine{Start: stmtLineStart(ctx, stmt), End: ctx.Arena().Start(stmt)})
		base := expandedWidth(indent, cfg.TabWidth)

		w := &wrapper{ctx: ctx, cfg: cfg}
		doc := w.toDoc(stmt)
		rendered := Render(Indent(base, doc), cfg.Max, base)
		// Re-anchor continuation indentation onto the statement's own
		// prefix so tabs survive.
		rendered = strings.ReplaceAll(rendered, "\n"+strings.Repeat(" ", base), "\n"+indent)

		current := string(source[ctx.Arena().Start(stmt):ctx.Arena().End(stmt)])
		if rendered != current {
			edits = append(edits, TextEdit{
				Start:   ctx.Arena().Start(stmt),
				End:     ctx.Arena().End(stmt),
				NewText: rendered,
			})
		}
	}

	return applyEdits(source, edits), nil
}

func stmtLineStart(ctx *Context, stmt parser.NodeID) int32 {
	return ctx.Index().LineStart(ctx.LineOf(ctx.Arena().Start(stmt)))
}

// enclosingStatement walks up to the single-line statement that owns
// the offset. Multi-line constructs (blocks, declarations with bodies)
// are not rewrapped as a whole.
func (r *LineLengthRule) enclosingStatement(ctx *Context, offset int32) parser.NodeID {
	arena := ctx.Arena()
	node := ctx.Index().NodeAt(offset)
	for node != parser.NoNode {
		kind := arena.Kind(node)
		if kind == parser.KindBlock || kind.IsTypeDecl() {
			return parser.NoNode
		}
		switch kind {
		case parser.KindAnnotation:
			// A long annotation wraps on its own, independent of the
			// declaration it decorates.
			if ctx.LineOf(arena.Start(node)) == ctx.LineOf(arena.End(node)-1) {
				return node
			}
			return parser.NoNode
		case parser.KindExprStmt, parser.KindLocalVarDecl, parser.KindReturnStmt,
			parser.KindThrowStmt, parser.KindYieldStmt, parser.KindFieldDecl,
			parser.KindAssertStmt:
			// Only rewrap when the statement itself is single-line.
			if ctx.LineOf(arena.Start(node)) == ctx.LineOf(arena.End(node)-1) {
				return node
			}
			return parser.NoNode
		}
		node = arena.Parent(node)
	}
	return parser.NoNode
}

func (r *LineLengthRule) containsTextBlock(ctx *Context, node parser.NodeID) bool {
	start, end := ctx.Arena().Start(node), ctx.Arena().End(node)
	for _, tok := range ctx.Tokens() {
		if tok.Start >= end {
			return false
		}
		if tok.Start >= start && tok.Kind == parser.TokenTextBlock {
			return true
		}
	}
	return false
}

// wrapper lowers AST nodes into the document IR, descending only into
// wrap joints and emitting everything else as verbatim source.
type wrapper struct {
	ctx *Context
	cfg LineLengthConfig
}

func (w *wrapper) verbatim(id parser.NodeID) Doc {
	return Text(w.ctx.TextOf(id))
}

func (w *wrapper) toDoc(id parser.NodeID) Doc {
	arena := w.ctx.Arena()
	switch arena.Kind(id) {
	case parser.KindExprStmt:
		kids := arena.Children(id)
		if len(kids) == 1 {
			return Concat(w.toDoc(kids[0]), Text(";"))
		}
	case parser.KindReturnStmt:
		kids := arena.Children(id)
		if len(kids) == 1 {
			return Concat(Text("return "), w.toDoc(kids[0]), Text(";"))
		}
		return w.verbatim(id)
	case parser.KindThrowStmt:
		kids := arena.Children(id)
		if len(kids) == 1 {
			return Concat(Text("throw "), w.toDoc(kids[0]), Text(";"))
		}
	case parser.KindYieldStmt:
		kids := arena.Children(id)
		if len(kids) == 1 {
			return Concat(Text("yield "), w.toDoc(kids[0]), Text(";"))
		}
	case parser.KindLocalVarDecl, parser.KindFieldDecl:
		return w.declToDoc(id)
	case parser.KindCallExpr:
		return w.callToDoc(id)
	case parser.KindBinaryExpr:
		return w.binaryToDoc(id)
	case parser.KindTernaryExpr:
		return w.ternaryToDoc(id)
	case parser.KindArrayInit:
		return w.arrayInitToDoc(id)
	case parser.KindAssignExpr:
		return w.assignToDoc(id)
	case parser.KindAnnotation:
		return w.annotationToDoc(id)
	}
	return w.verbatim(id)
}

// annotationToDoc wraps @Name(value, value) argument lists; marker and
// single-value annotations without parentheses render verbatim.
func (w *wrapper) annotationToDoc(id parser.NodeID) Doc {
	if w.cfg.strategy(WrapAnnotationArgs) == WrapNever {
		return w.verbatim(id)
	}
	arena := w.ctx.Arena()
	kids := arena.Children(id)
	if len(kids) < 2 || !strings.HasSuffix(w.ctx.TextOf(id), ")") {
		return w.verbatim(id)
	}
	name := kids[0]
	items := make([]Doc, 0, len(kids)-1)
	for _, kid := range kids[1:] {
		items = append(items, w.toDoc(kid))
	}
	return Group(Concat(
		Text("@"+w.ctx.TextOf(name)+"("),
		Indent(w.cfg.ContinuationIndent, Concat(SoftLine(), Join(Concat(Text(","), Line()), items))),
		SoftLine(),
		Text(")"),
	))
}

// declToDoc keeps the declaration head verbatim and wraps the
// initializer.
func (w *wrapper) declToDoc(id parser.NodeID) Doc {
	arena := w.ctx.Arena()
	kids := arena.Children(id)
	if len(kids) == 0 {
		return w.verbatim(id)
	}
	last := kids[len(kids)-1]
	switch arena.Kind(last) {
	case parser.KindCallExpr, parser.KindBinaryExpr, parser.KindTernaryExpr,
		parser.KindArrayInit, parser.KindNewExpr, parser.KindLambdaExpr:
		head := string(w.ctx.Source()[arena.Start(id):arena.Start(last)])
		return Concat(Text(head), w.toDoc(last), Text(";"))
	}
	return w.verbatim(id)
}

// callToDoc splits a call into its method chain and wraps either the
// chain links or the final argument list.
func (w *wrapper) callToDoc(id parser.NodeID) Doc {
	arena := w.ctx.Arena()
	kids := arena.Children(id)
	if len(kids) != 2 {
		return w.verbatim(id)
	}
	target, args := kids[0], kids[1]

	if w.cfg.strategy(WrapMethodChains) != WrapNever {
		if links, receiver, ok := w.methodChain(id); ok && len(links) >= 3 {
			var parts []Doc
			parts = append(parts, Text(w.ctx.TextOf(receiver)))
			for _, link := range links {
				parts = append(parts, SoftLine(), Text(link))
			}
			return Group(Concat(parts[0], Indent(w.cfg.ContinuationIndent, Concat(parts[1:]...))))
		}
	}

	return Concat(Text(w.ctx.TextOf(target)), w.argsToDoc(args, WrapArgumentLists))
}

// methodChain flattens target.a(...).b(...).c(...) into a receiver
// and its ".name(args)" links. Only clean chains (call on field access
// all the way down) qualify.
func (w *wrapper) methodChain(id parser.NodeID) (links []string, receiver parser.NodeID, ok bool) {
	arena := w.ctx.Arena()
	node := id
	for arena.Kind(node) == parser.KindCallExpr {
		kids := arena.Children(node)
		if len(kids) != 2 {
			return nil, parser.NoNode, false
		}
		access, args := kids[0], kids[1]
		if arena.Kind(access) != parser.KindFieldAccess {
			return nil, parser.NoNode, false
		}
		accessKids := arena.Children(access)
		if len(accessKids) != 2 {
			return nil, parser.NoNode, false
		}
		name := accessKids[len(accessKids)-1]
		link := "." + w.ctx.TextOf(name) + w.ctx.TextOf(args)
		links = append([]string{link}, links...)
		node = accessKids[0]
	}
	if len(links) == 0 {
		return nil, parser.NoNode, false
	}
	return links, node, true
}

// argsToDoc renders an argument list with one argument per line when
// broken. Both strategies break after the opening delimiter and after
// each separator; AFTER also puts the closing delimiter on its own
// line, while BEFORE keeps it at the end of the last argument.
func (w *wrapper) argsToDoc(args parser.NodeID, construct string) Doc {
	arena := w.ctx.Arena()
	kids := arena.Children(args)
	if len(kids) == 0 || w.cfg.strategy(construct) == WrapNever {
		return w.verbatim(args)
	}

	items := make([]Doc, len(kids))
	for i, kid := range kids {
		items[i] = w.toDoc(kid)
	}

	openDelim, closeDelim := "(", ")"
	if arena.Kind(args) == parser.KindArrayInit {
		openDelim, closeDelim = "{", "}"
	}

	if w.cfg.strategy(construct) == WrapBefore {
		// Break lands before each item.
		return Group(Concat(
			Text(openDelim),
			Indent(w.cfg.ContinuationIndent, Concat(SoftLine(), Join(Concat(Text(","), Line()), items))),
			Text(closeDelim),
		))
	}
	// AFTER: the opening delimiter ends the previous fragment's line.
	return Group(Concat(
		Text(openDelim),
		Indent(w.cfg.ContinuationIndent, Concat(SoftLine(), Join(Concat(Text(","), Line()), items))),
		SoftLine(),
		Text(closeDelim),
	))
}

func (w *wrapper) binaryToDoc(id parser.NodeID) Doc {
	if w.cfg.strategy(WrapBinaryOperators) == WrapNever {
		return w.verbatim(id)
	}
	arena := w.ctx.Arena()

	// Flatten same-precedence chains so a + b + c breaks as one
	// group.
	var operands []Doc
	var ops []string
	var flatten func(parser.NodeID)
	flatten = func(node parser.NodeID) {
		if arena.Kind(node) == parser.KindBinaryExpr {
			kids := arena.Children(node)
			if len(kids) == 2 {
				flatten(kids[0])
				ops = append(ops, arena.OperatorOf(node).String())
				operands = append(operands, w.toDoc(kids[1]))
				return
			}
		}
		operands = append(operands, w.verbatim(node))
	}
	flatten(id)

	parts := []Doc{operands[0]}
	for i, op := range ops {
		if w.cfg.strategy(WrapBinaryOperators) == WrapBefore {
			parts = append(parts, Line(), Text(op+" "), operands[i+1])
		} else {
			parts = append(parts, Text(" "+op), Line(), operands[i+1])
		}
	}
	return Group(Concat(parts[0], Indent(w.cfg.ContinuationIndent, Concat(parts[1:]...))))
}

func (w *wrapper) ternaryToDoc(id parser.NodeID) Doc {
	if w.cfg.strategy(WrapTernaries) == WrapNever {
		return w.verbatim(id)
	}
	arena := w.ctx.Arena()
	kids := arena.Children(id)
	if len(kids) != 3 {
		return w.verbatim(id)
	}
	cond, then, els := w.verbatim(kids[0]), w.toDoc(kids[1]), w.toDoc(kids[2])
	if w.cfg.strategy(WrapTernaries) == WrapBefore {
		return Group(Concat(cond, Indent(w.cfg.ContinuationIndent, Concat(
			Line(), Text("? "), then,
			Line(), Text(": "), els,
		))))
	}
	return Group(Concat(cond, Text(" ?"), Indent(w.cfg.ContinuationIndent, Concat(
		Line(), then, Text(" :"), Line(), els,
	))))
}

func (w *wrapper) arrayInitToDoc(id parser.NodeID) Doc {
	return w.argsToDoc(id, WrapArrayInits)
}

func (w *wrapper) assignToDoc(id parser.NodeID) Doc {
	arena := w.ctx.Arena()
	kids := arena.Children(id)
	if len(kids) != 2 {
		return w.verbatim(id)
	}
	op := arena.OperatorOf(id).String()
	return Concat(w.verbatim(kids[0]), Text(" "+op+" "), w.toDoc(kids[1]))
}
