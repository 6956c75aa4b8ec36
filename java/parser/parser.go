// Package parser turns Java source bytes into an index-overlay AST.
//
// The grammar is hand-written recursive descent over an eagerly lexed
// token slice. Each production allocates one arena node, attaches the
// children produced by its sub-productions and closes the node at the
// last consumed token. The parser never rewinds bytes; speculation
// saves and restores the token position only.
package parser

import (
	"errors"
	"fmt"
	"time"
)

// Typed abort causes. They end the parse for the whole file, unlike
// ParseError values which are recorded and recovered from.
var (
	ErrDepthExceeded    = errors.New("maximum parse depth exceeded")
	ErrDeadlineExceeded = errors.New("parse deadline exceeded")
)

// SecurityLimits bounds resource use on adversarial input.
type SecurityLimits struct {
	MaxParseDepth  int
	MaxArenaNodes  int32
	MaxOutputBytes int
	Budget         time.Duration
}

func DefaultSecurityLimits() SecurityLimits {
	return SecurityLimits{
		MaxParseDepth:  512,
		MaxArenaNodes:  4 << 20,
		MaxOutputBytes: 64 << 20,
		Budget:         30 * time.Second,
	}
}

// ParseError is a recoverable mismatch. The parser records it,
// synchronizes to a statement-level anchor and keeps going; an Error
// placeholder node marks the spot in the tree.
type ParseError struct {
	Message  string
	Expected []TokenKind
	Found    TokenKind
	Offset   int32
}

func (e ParseError) Error() string {
	return fmt.Sprintf("offset %d: %s (found %s)", e.Offset, e.Message, e.Found)
}

// Result is the outcome of one parse. A failed parse still carries the
// partial arena for downstream diagnostics.
type Result struct {
	Arena     *Arena
	Root      NodeID
	Tokens    []Token
	Comments  []Token
	Errors    []ParseError
	LexErrors []LexError
	Trivia    Trivia

	// Fatal is non-nil when the parse aborted on a security bound or
	// the deadline; Root is NoNode in that case.
	Fatal error
}

func (r *Result) OK() bool {
	return r.Fatal == nil && len(r.Errors) == 0 && len(r.LexErrors) == 0
}

type Option func(*Parser)

func WithFile(path string) Option {
	return func(p *Parser) { p.file = path }
}

// WithArena parses into an existing arena (reset first), so a worker
// can reuse one arena across many files.
func WithArena(a *Arena) Option {
	return func(p *Parser) { p.arena = a }
}

func WithLimits(limits SecurityLimits) Option {
	return func(p *Parser) { p.limits = limits }
}

// WithDeadline sets the wall-clock instant after which the parse
// aborts with ErrDeadlineExceeded. The deadline is polled on every
// production entry.
func WithDeadline(deadline time.Time) Option {
	return func(p *Parser) { p.deadline = deadline }
}

type Parser struct {
	file     string
	source   []byte
	limits   SecurityLimits
	deadline time.Time

	arena    *Arena
	tokens   []Token
	comments []Token
	pos      int
	errors   []ParseError
	depth    int
}

type parseAbort struct{ err error }

// Parse lexes and parses a complete compilation unit.
func Parse(source []byte, opts ...Option) *Result {
	p := &Parser{source: source, limits: DefaultSecurityLimits()}
	for _, opt := range opts {
		opt(p)
	}
	if p.arena == nil {
		p.arena = NewArena(p.limits.MaxArenaNodes)
	} else {
		p.arena.Reset()
	}

	lexer := NewLexer(source, p.file)
	p.tokens, p.comments = lexer.Tokenize()

	result := &Result{
		Arena:     p.arena,
		Root:      NoNode,
		Tokens:    p.tokens,
		Comments:  p.comments,
		LexErrors: lexer.Errors(),
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				abort, ok := r.(parseAbort)
				if !ok {
					panic(r)
				}
				result.Fatal = abort.err
			}
		}()
		result.Root = p.parseCompilationUnit()
	}()

	result.Errors = p.errors
	if result.Fatal == nil {
		result.Trivia = attachComments(p.arena, result.Root, p.comments, p.tokens, source)
	}
	return result
}

// enter guards every recursive production: it enforces the depth
// budget and polls the deadline. Both are unrecoverable for the file.
func (p *Parser) enter() {
	p.depth++
	if p.depth > p.limits.MaxParseDepth {
		panic(parseAbort{ErrDepthExceeded})
	}
	if !p.deadline.IsZero() && time.Now().After(p.deadline) {
		panic(parseAbort{ErrDeadlineExceeded})
	}
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokenEOF, Start: int32(len(p.source)), End: int32(len(p.source))}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekN(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return Token{Kind: TokenEOF, Start: int32(len(p.source)), End: int32(len(p.source))}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(kind TokenKind) (Token, bool) {
	tok := p.peek()
	if tok.Kind == kind {
		p.advance()
		return tok, true
	}
	return tok, false
}

func (p *Parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) match(kinds ...TokenKind) bool {
	for _, kind := range kinds {
		if p.check(kind) {
			return true
		}
	}
	return false
}

func (p *Parser) prevEnd() int32 {
	if p.pos > 0 && p.pos <= len(p.tokens) {
		return p.tokens[p.pos-1].End
	}
	return 0
}

// mustProgress returns a closure that reports whether the position
// advanced since the call; when it did not, the current token is
// skipped so list loops cannot spin.
func (p *Parser) mustProgress() func() bool {
	saved := p.pos
	return func() bool {
		if p.pos == saved {
			if !p.check(TokenEOF) {
				p.advance()
			}
			return false
		}
		return true
	}
}

// isIdentifierLike treats contextual keywords as identifiers outside
// their keyword positions.
func (p *Parser) isIdentifierLike() bool {
	switch p.peek().Kind {
	case TokenIdent,
		TokenModule, TokenOpen, TokenRequires, TokenTransitive,
		TokenExports, TokenOpens, TokenTo, TokenUses, TokenProvides, TokenWith,
		TokenVar, TokenYield, TokenRecord, TokenSealed, TokenNonSealed,
		TokenPermits, TokenWhen:
		return true
	}
	return false
}

func (p *Parser) expectIdentifier() (Token, bool) {
	if p.isIdentifierLike() {
		return p.advance(), true
	}
	return p.peek(), false
}

// openNode accumulates children for one in-flight arena node.
type openNode struct {
	id   NodeID
	kids []NodeID
}

func (on *openNode) add(child NodeID) {
	if child != NoNode {
		on.kids = append(on.kids, child)
	}
}

func (p *Parser) startNode(kind NodeKind) *openNode {
	return p.startNodeAt(kind, p.peek().Start)
}

func (p *Parser) startNodeAt(kind NodeKind, start int32) *openNode {
	id, err := p.arena.Allocate(kind, start)
	if err != nil {
		panic(parseAbort{err})
	}
	return &openNode{id: id}
}

func (p *Parser) finishNode(on *openNode) NodeID {
	end := p.prevEnd()
	if len(on.kids) > 0 {
		if first := p.arena.Start(on.kids[0]); first < p.arena.Start(on.id) {
			p.arena.SetStart(on.id, first)
		}
		if last := p.arena.End(on.kids[len(on.kids)-1]); last > end {
			end = last
		}
	}
	if end < p.arena.Start(on.id) {
		end = p.arena.Start(on.id)
	}
	p.arena.Close(on.id, end)
	p.arena.SetChildren(on.id, on.kids)
	return on.id
}

func (p *Parser) leaf(kind NodeKind, tok Token) NodeID {
	id, err := p.arena.Allocate(kind, tok.Start)
	if err != nil {
		panic(parseAbort{err})
	}
	p.arena.Close(id, tok.End)
	return id
}

// errorNode records a recoverable parse error, emits an Error
// placeholder node and synchronizes to one of the given anchors.
func (p *Parser) errorNode(msg string, recoverTo []TokenKind, expected ...TokenKind) NodeID {
	tok := p.peek()
	p.errors = append(p.errors, ParseError{
		Message:  msg,
		Expected: expected,
		Found:    tok.Kind,
		Offset:   tok.Start,
	})
	id, err := p.arena.Allocate(KindError, tok.Start)
	if err != nil {
		panic(parseAbort{err})
	}
	p.arena.Close(id, tok.End)
	p.recoverTo(recoverTo)
	return id
}

// recoverTo discards tokens until a statement-level anchor. The
// current token is always consumed so recovery makes progress.
func (p *Parser) recoverTo(kinds []TokenKind) {
	if !p.check(TokenEOF) {
		p.advance()
	}
	if len(kinds) == 0 {
		return
	}
	for !p.check(TokenEOF) {
		for _, kind := range kinds {
			if p.check(kind) {
				return
			}
		}
		p.advance()
	}
}

// declAnchors are the tokens parseTypeDecl and parseClassMember resync
// on: statement terminators plus anything that can begin a new
// declaration.
var declAnchors = []TokenKind{
	TokenSemicolon, TokenRBrace,
	TokenAt, TokenPublic, TokenPrivate, TokenProtected,
	TokenAbstract, TokenStatic, TokenFinal, TokenStrictfp,
	TokenClass, TokenInterface, TokenEnum, TokenRecord,
}

func (p *Parser) parseCompilationUnit() NodeID {
	node := p.startNode(KindCompilationUnit)

	if p.check(TokenPackage) || p.isAnnotatedPackage() {
		node.add(p.parsePackageDecl())
	}

	for p.check(TokenImport) {
		node.add(p.parseImportDecl())
	}

	switch {
	case p.isModularCompilationUnit():
		node.add(p.parseModuleDecl())
	case p.isCompactCompilationUnit():
		// Compact source files hold bare members at the top level.
		for !p.check(TokenEOF) {
			node.add(p.parseClassMember())
		}
	default:
		for !p.check(TokenEOF) {
			if p.check(TokenSemicolon) {
				p.advance()
				continue
			}
			node.add(p.parseTypeDecl())
		}
	}

	id := p.finishNode(node)
	// The root always spans the whole file.
	p.arena.SetStart(id, 0)
	p.arena.Close(id, int32(len(p.source)))
	return id
}

func (p *Parser) isAnnotatedPackage() bool {
	if !p.check(TokenAt) {
		return false
	}
	save := p.pos
	for p.check(TokenAt) {
		p.skipAnnotation()
	}
	result := p.check(TokenPackage)
	p.pos = save
	return result
}

// isCompactCompilationUnit detects compact source files: the unit
// starts with something other than a type declaration.
func (p *Parser) isCompactCompilationUnit() bool {
	if p.check(TokenEOF) {
		return false
	}
	save := p.pos
	defer func() { p.pos = save }()

	p.skipModifiers()

	switch p.peek().Kind {
	case TokenClass, TokenInterface, TokenEnum, TokenSemicolon:
		return false
	case TokenRecord:
		return !p.isRecordDecl()
	case TokenAt:
		return p.peekN(1).Kind != TokenInterface
	}
	return true
}

func (p *Parser) isModularCompilationUnit() bool {
	if p.check(TokenEOF) {
		return false
	}
	save := p.pos
	for p.check(TokenAt) {
		p.skipAnnotation()
	}
	if p.check(TokenOpen) {
		p.advance()
	}
	isModule := p.check(TokenModule)
	p.pos = save
	return isModule
}

func (p *Parser) parsePackageDecl() NodeID {
	p.enter()
	defer p.leave()
	node := p.startNode(KindPackageDecl)

	for p.check(TokenAt) {
		node.add(p.parseAnnotation())
	}

	p.expect(TokenPackage)
	name, text := p.parseQualifiedNameText()
	node.add(name)
	p.expect(TokenSemicolon)

	id := p.finishNode(node)
	p.arena.SetName(id, text)
	return id
}

func (p *Parser) parseImportDecl() NodeID {
	p.enter()
	defer p.leave()
	node := p.startNode(KindImportDecl)
	p.expect(TokenImport)

	if p.check(TokenModule) && p.peekN(1).Kind != TokenSemicolon && p.peekN(1).Kind != TokenDot {
		// import module <qualified-name> ;
		p.advance()
		name, text := p.parseQualifiedNameText()
		node.add(name)
		p.expect(TokenSemicolon)
		id := p.finishNode(node)
		p.arena.kinds[id] = KindModuleImportDecl
		p.arena.SetModuleImportAttr(id, ModuleImportAttr{ModuleName: text})
		return id
	}

	isStatic := false
	if p.check(TokenStatic) {
		isStatic = true
		tok := p.advance()
		node.add(p.leaf(KindModifier, tok))
		// "import static module ..." is not a thing; the module form
		// cannot combine with static.
		if p.check(TokenModule) && p.peekN(1).Kind != TokenSemicolon && p.peekN(1).Kind != TokenDot {
			p.errors = append(p.errors, ParseError{
				Message: "module import cannot be static",
				Found:   p.peek().Kind,
				Offset:  p.peek().Start,
			})
		}
	}

	name, text := p.parseQualifiedNameText()
	node.add(name)

	wildcard := false
	if p.check(TokenDot) && p.peekN(1).Kind == TokenStar {
		p.advance()
		p.advance()
		wildcard = true
	}

	p.expect(TokenSemicolon)
	id := p.finishNode(node)
	p.arena.SetImportAttr(id, ImportAttr{
		QualifiedName: text,
		IsStatic:      isStatic,
		IsWildcard:    wildcard,
	})
	return id
}

// parseQualifiedName parses a dotted identifier chain into a
// KindQualifiedName node (or a bare KindIdentifier for a single
// segment).
func (p *Parser) parseQualifiedName() NodeID {
	id, _ := p.parseQualifiedNameText()
	return id
}

func (p *Parser) parseQualifiedNameText() (NodeID, string) {
	tok, ok := p.expectIdentifier()
	if !ok {
		return p.errorNode("expected identifier", nil, TokenIdent), ""
	}
	text := tok.Text

	if !(p.check(TokenDot) && p.peekN(1).Kind == TokenIdent) {
		return p.leaf(KindIdentifier, tok), text
	}

	node := p.startNodeAt(KindQualifiedName, tok.Start)
	node.add(p.leaf(KindIdentifier, tok))
	for p.check(TokenDot) && p.peekN(1).Kind == TokenIdent {
		p.advance()
		seg := p.advance()
		text += "." + seg.Text
		node.add(p.leaf(KindIdentifier, seg))
	}
	return p.finishNode(node), text
}

func (p *Parser) skipQualifiedName() bool {
	if !p.isIdentifierLike() {
		return false
	}
	p.advance()
	for p.check(TokenDot) && p.peekN(1).Kind == TokenIdent {
		p.advance()
		p.advance()
	}
	return true
}

func (p *Parser) parseModuleDecl() NodeID {
	p.enter()
	defer p.leave()
	node := p.startNode(KindModuleDecl)

	for p.check(TokenAt) {
		node.add(p.parseAnnotation())
	}

	if p.check(TokenOpen) {
		tok := p.advance()
		node.add(p.leaf(KindModifier, tok))
	}

	p.expect(TokenModule)
	name, text := p.parseQualifiedNameText()
	node.add(name)

	p.expect(TokenLBrace)
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		node.add(p.parseModuleDirective())
	}
	p.expect(TokenRBrace)

	id := p.finishNode(node)
	p.arena.SetName(id, text)
	return id
}

func (p *Parser) parseModuleDirective() NodeID {
	switch {
	case p.check(TokenRequires):
		return p.parseRequiresDirective()
	case p.check(TokenExports):
		return p.parseQualifiedDirective(KindExportsDirective, TokenExports)
	case p.check(TokenOpens):
		return p.parseQualifiedDirective(KindOpensDirective, TokenOpens)
	case p.check(TokenUses):
		return p.parseUsesDirective()
	case p.check(TokenProvides):
		return p.parseProvidesDirective()
	default:
		return p.errorNode("expected module directive", []TokenKind{
			TokenRequires, TokenExports, TokenOpens, TokenUses, TokenProvides, TokenRBrace,
		})
	}
}

func (p *Parser) parseRequiresDirective() NodeID {
	node := p.startNode(KindRequiresDirective)
	p.expect(TokenRequires)

	for p.check(TokenTransitive) || p.check(TokenStatic) {
		tok := p.advance()
		node.add(p.leaf(KindModifier, tok))
	}

	node.add(p.parseQualifiedName())
	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

// parseQualifiedDirective covers "exports" and "opens", which share
// the  <package> [to <module> {, <module>}] ;  shape.
func (p *Parser) parseQualifiedDirective(kind NodeKind, keyword TokenKind) NodeID {
	node := p.startNode(kind)
	p.expect(keyword)

	node.add(p.parseQualifiedName())

	if p.check(TokenTo) {
		p.advance()
		node.add(p.parseQualifiedName())
		for p.check(TokenComma) {
			p.advance()
			node.add(p.parseQualifiedName())
		}
	}

	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseUsesDirective() NodeID {
	node := p.startNode(KindUsesDirective)
	p.expect(TokenUses)
	node.add(p.parseQualifiedName())
	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseProvidesDirective() NodeID {
	node := p.startNode(KindProvidesDirective)
	p.expect(TokenProvides)
	node.add(p.parseQualifiedName())

	p.expect(TokenWith)
	node.add(p.parseQualifiedName())
	for p.check(TokenComma) {
		p.advance()
		node.add(p.parseQualifiedName())
	}

	p.expect(TokenSemicolon)
	return p.finishNode(node)
}
