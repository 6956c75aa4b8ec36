package parser

func (p *Parser) parseBlock() NodeID {
	p.enter()
	defer p.leave()
	node := p.startNode(KindBlock)
	p.expect(TokenLBrace)

	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		node.add(p.parseStatement())
	}

	p.expect(TokenRBrace)
	return p.finishNode(node)
}

func (p *Parser) parseStatement() NodeID {
	p.enter()
	defer p.leave()

	switch p.peek().Kind {
	case TokenLBrace:
		return p.parseBlock()
	case TokenSemicolon:
		node := p.startNode(KindEmptyStmt)
		p.advance()
		return p.finishNode(node)
	case TokenIf:
		return p.parseIfStmt()
	case TokenFor:
		return p.parseForStmt()
	case TokenWhile:
		return p.parseWhileStmt()
	case TokenDo:
		return p.parseDoStmt()
	case TokenSwitch:
		return p.parseSwitchStmt()
	case TokenReturn:
		return p.parseReturnStmt()
	case TokenBreak:
		return p.parseBreakStmt()
	case TokenContinue:
		return p.parseContinueStmt()
	case TokenThrow:
		return p.parseThrowStmt()
	case TokenTry:
		return p.parseTryStmt()
	case TokenSynchronized:
		return p.parseSynchronizedStmt()
	case TokenAssert:
		return p.parseAssertStmt()
	case TokenYield:
		// "yield" is contextual: a statement only when something
		// yields; "yield = 1;" or "yield.run()" keeps it a name.
		if p.peekN(1).Kind != TokenAssign && p.peekN(1).Kind != TokenDot &&
			p.peekN(1).Kind != TokenLParen && p.peekN(1).Kind != TokenColonColon {
			return p.parseYieldStmt()
		}
		return p.parseLocalVarOrExprStmt()
	case TokenClass, TokenInterface, TokenEnum:
		return p.parseLocalClassDecl()
	case TokenRecord:
		if p.isRecordDecl() {
			return p.parseLocalClassDecl()
		}
		return p.parseLocalVarOrExprStmt()
	case TokenIdent:
		if p.peekN(1).Kind == TokenColon {
			return p.parseLabeledStmt()
		}
		return p.parseLocalVarOrExprStmt()
	default:
		return p.parseLocalVarOrExprStmt()
	}
}

func (p *Parser) parseLocalVarOrExprStmt() NodeID {
	if p.isLocalVarDecl() {
		return p.parseLocalVarDecl(true)
	}
	return p.parseExprStmt()
}

// isLocalVarDecl speculates over  [annotations] [final] Type Ident .
// The position is always restored.
func (p *Parser) isLocalVarDecl() bool {
	save := p.pos
	defer func() { p.pos = save }()

	for p.check(TokenAt) {
		p.skipAnnotation()
	}

	if p.check(TokenFinal) {
		p.advance()
	}

	for p.check(TokenAt) {
		p.skipAnnotation()
	}

	switch p.peek().Kind {
	case TokenBoolean, TokenByte, TokenChar, TokenShort,
		TokenInt, TokenLong, TokenFloat, TokenDouble, TokenVar:
		return true
	}

	if !p.isIdentifierLike() {
		return false
	}
	p.skipQualifiedName()
	if p.check(TokenLT) {
		p.skipTypeArguments()
	}
	for p.check(TokenLBracket) {
		p.advance()
		if !p.check(TokenRBracket) {
			return false
		}
		p.advance()
	}
	return p.isIdentifierLike() || p.isUnnamedVariable()
}

func (p *Parser) parseLocalVarDecl(wantSemi bool) NodeID {
	node := p.startNode(KindLocalVarDecl)
	node.add(p.parseModifiers())

	if p.check(TokenVar) {
		tok := p.advance()
		node.add(p.leaf(KindType, tok))
	} else {
		node.add(p.parseType())
	}

	for {
		progress := p.mustProgress()
		node.add(p.parseVariableDeclaratorID())

		for p.check(TokenLBracket) {
			p.advance()
			p.expect(TokenRBracket)
		}

		if p.check(TokenAssign) {
			p.advance()
			node.add(p.parseVarInitializer())
		}

		if !p.check(TokenComma) {
			break
		}
		p.advance()
		if !progress() {
			break
		}
	}

	if wantSemi {
		p.expect(TokenSemicolon)
	}
	return p.finishNode(node)
}

func (p *Parser) parseExprStmt() NodeID {
	node := p.startNode(KindExprStmt)
	node.add(p.parseExpression())
	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseLocalClassDecl() NodeID {
	node := p.startNode(KindLocalClassDecl)
	modifiers := p.parseModifiers()
	switch p.peek().Kind {
	case TokenClass:
		node.add(p.parseClassDecl(modifiers))
	case TokenInterface:
		node.add(p.parseInterfaceDecl(modifiers))
	case TokenEnum:
		node.add(p.parseEnumDecl(modifiers))
	case TokenRecord:
		node.add(p.parseRecordDecl(modifiers))
	}
	return p.finishNode(node)
}

func (p *Parser) parseIfStmt() NodeID {
	node := p.startNode(KindIfStmt)
	p.expect(TokenIf)
	p.expect(TokenLParen)
	node.add(p.parseExpression())
	p.expect(TokenRParen)
	node.add(p.parseStatement())

	if p.check(TokenElse) {
		p.advance()
		node.add(p.parseStatement())
	}

	return p.finishNode(node)
}

func (p *Parser) parseForStmt() NodeID {
	start := p.peek().Start
	p.expect(TokenFor)
	p.expect(TokenLParen)

	if p.isEnhancedFor() {
		return p.parseEnhancedForStmt(start)
	}

	node := p.startNodeAt(KindForStmt, start)

	initNode := p.startNode(KindForInit)
	if !p.check(TokenSemicolon) {
		if p.isLocalVarDecl() {
			initNode.add(p.parseLocalVarDecl(false))
		} else {
			for {
				initNode.add(p.parseExpression())
				if !p.check(TokenComma) {
					break
				}
				p.advance()
			}
		}
	}
	node.add(p.finishNode(initNode))
	p.expect(TokenSemicolon)

	if !p.check(TokenSemicolon) {
		node.add(p.parseExpression())
	}
	p.expect(TokenSemicolon)

	updateNode := p.startNode(KindForUpdate)
	if !p.check(TokenRParen) {
		for {
			updateNode.add(p.parseExpression())
			if !p.check(TokenComma) {
				break
			}
			p.advance()
		}
	}
	node.add(p.finishNode(updateNode))
	p.expect(TokenRParen)

	node.add(p.parseStatement())
	return p.finishNode(node)
}

// isEnhancedFor speculatively parses
// [annotations] [final] Type Identifier :
// at a checkpoint; the position is restored either way.
func (p *Parser) isEnhancedFor() bool {
	save := p.pos
	defer func() { p.pos = save }()

	for p.check(TokenAt) {
		p.skipAnnotation()
	}

	if p.check(TokenFinal) {
		p.advance()
	}

	for p.check(TokenAt) {
		p.skipAnnotation()
	}

	switch p.peek().Kind {
	case TokenBoolean, TokenByte, TokenChar, TokenShort,
		TokenInt, TokenLong, TokenFloat, TokenDouble, TokenVar:
		p.advance()
	case TokenIdent:
		p.skipQualifiedName()
		if p.check(TokenLT) {
			p.skipTypeArguments()
		}
	default:
		return false
	}

	for p.check(TokenLBracket) {
		p.advance()
		if p.check(TokenRBracket) {
			p.advance()
		}
	}

	if !p.check(TokenIdent) {
		return false
	}
	p.advance()

	return p.check(TokenColon)
}

func (p *Parser) parseEnhancedForStmt(start int32) NodeID {
	node := p.startNodeAt(KindEnhancedForStmt, start)

	node.add(p.parseModifiers())

	if p.check(TokenVar) {
		tok := p.advance()
		node.add(p.leaf(KindType, tok))
	} else {
		node.add(p.parseType())
	}

	node.add(p.parseVariableDeclaratorID())

	p.expect(TokenColon)
	node.add(p.parseExpression())
	p.expect(TokenRParen)
	node.add(p.parseStatement())

	return p.finishNode(node)
}

func (p *Parser) parseWhileStmt() NodeID {
	node := p.startNode(KindWhileStmt)
	p.expect(TokenWhile)
	p.expect(TokenLParen)
	node.add(p.parseExpression())
	p.expect(TokenRParen)
	node.add(p.parseStatement())
	return p.finishNode(node)
}

func (p *Parser) parseDoStmt() NodeID {
	node := p.startNode(KindDoStmt)
	p.expect(TokenDo)
	node.add(p.parseStatement())
	p.expect(TokenWhile)
	p.expect(TokenLParen)
	node.add(p.parseExpression())
	p.expect(TokenRParen)
	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseSwitchStmt() NodeID {
	node := p.startNode(KindSwitchStmt)
	p.expect(TokenSwitch)
	p.expect(TokenLParen)
	node.add(p.parseExpression())
	p.expect(TokenRParen)
	p.expect(TokenLBrace)

	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		node.add(p.parseSwitchCase())
	}

	p.expect(TokenRBrace)
	return p.finishNode(node)
}

func (p *Parser) parseSwitchCase() NodeID {
	node := p.startNode(KindSwitchCase)

	isArrowCase := false
	for p.check(TokenCase) || p.check(TokenDefault) {
		label, arrow := p.parseSwitchLabel()
		node.add(label)
		if arrow {
			isArrowCase = true
			break
		}
	}

	if isArrowCase {
		switch p.peek().Kind {
		case TokenLBrace:
			node.add(p.parseBlock())
		case TokenThrow:
			node.add(p.parseThrowStmt())
		default:
			exprNode := p.startNode(KindExprStmt)
			exprNode.add(p.parseExpression())
			p.expect(TokenSemicolon)
			node.add(p.finishNode(exprNode))
		}
	} else {
		for !p.check(TokenCase) && !p.check(TokenDefault) && !p.check(TokenRBrace) && !p.check(TokenEOF) {
			node.add(p.parseStatement())
		}
	}

	return p.finishNode(node)
}

func (p *Parser) parseSwitchLabel() (NodeID, bool) {
	node := p.startNode(KindSwitchLabel)

	if p.check(TokenCase) {
		p.advance()
		for {
			progress := p.mustProgress()
			if p.looksLikePattern() {
				node.add(p.parsePattern())
			} else {
				node.add(p.parseCaseLabelExpression())
			}
			if !p.check(TokenComma) {
				break
			}
			p.advance()
			// case null, default -> ...
			if p.check(TokenDefault) {
				tok := p.advance()
				node.add(p.leaf(KindModifier, tok))
				break
			}
			if !progress() {
				break
			}
		}
		if p.check(TokenWhen) {
			node.add(p.parseGuard())
		}
	} else {
		p.expect(TokenDefault)
	}

	arrow := false
	if p.check(TokenArrow) {
		p.advance()
		arrow = true
	} else {
		p.expect(TokenColon)
	}

	return p.finishNode(node), arrow
}

// looksLikePattern decides between a case pattern and a case
// expression: a type followed by an identifier, "_" or "(" is a
// pattern (type, record or unnamed); anything else parses as an
// expression.
func (p *Parser) looksLikePattern() bool {
	if p.looksLikeMatchAllPattern() {
		return true
	}

	save := p.pos
	defer func() { p.pos = save }()

	for p.check(TokenAt) {
		p.skipAnnotation()
	}

	switch p.peek().Kind {
	case TokenBoolean, TokenByte, TokenChar, TokenShort,
		TokenInt, TokenLong, TokenFloat, TokenDouble:
		p.advance()
	case TokenIdent:
		p.skipQualifiedName()
		if p.check(TokenLT) {
			p.skipTypeArguments()
		}
	default:
		return false
	}

	for p.check(TokenLBracket) {
		p.advance()
		if !p.check(TokenRBracket) {
			return false
		}
		p.advance()
	}

	return p.check(TokenIdent) || p.check(TokenLParen)
}

func (p *Parser) parsePattern() NodeID {
	p.enter()
	defer p.leave()

	if p.looksLikeMatchAllPattern() {
		node := p.startNode(KindMatchAllPattern)
		p.advance()
		return p.finishNode(node)
	}

	typeNode := p.parseType()

	if p.check(TokenLParen) {
		// RecordPattern: Type ( ComponentPatternList )
		node := p.startNodeAt(KindRecordPattern, p.arena.Start(typeNode))
		node.add(typeNode)
		p.advance()
		if !p.check(TokenRParen) {
			for {
				progress := p.mustProgress()
				node.add(p.parsePattern())
				if !p.check(TokenComma) {
					break
				}
				p.advance()
				if !progress() {
					break
				}
			}
		}
		p.expect(TokenRParen)
		return p.finishNode(node)
	}

	// TypePattern: Type Identifier
	node := p.startNodeAt(KindTypePattern, p.arena.Start(typeNode))
	node.add(typeNode)
	if p.check(TokenIdent) {
		tok := p.advance()
		node.add(p.leaf(KindIdentifier, tok))
	}
	return p.finishNode(node)
}

func (p *Parser) parseGuard() NodeID {
	node := p.startNode(KindGuard)
	p.expect(TokenWhen)
	node.add(p.parseExpression())
	return p.finishNode(node)
}

func (p *Parser) looksLikeMatchAllPattern() bool {
	if !p.check(TokenIdent) || p.peek().Text != "_" {
		return false
	}
	next := p.peekN(1).Kind
	return next == TokenColon || next == TokenArrow || next == TokenComma || next == TokenRParen
}

func (p *Parser) parseReturnStmt() NodeID {
	node := p.startNode(KindReturnStmt)
	p.expect(TokenReturn)

	if !p.check(TokenSemicolon) {
		node.add(p.parseExpression())
	}

	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseBreakStmt() NodeID {
	node := p.startNode(KindBreakStmt)
	p.expect(TokenBreak)

	if tok, ok := p.expect(TokenIdent); ok {
		node.add(p.leaf(KindIdentifier, tok))
	}

	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseContinueStmt() NodeID {
	node := p.startNode(KindContinueStmt)
	p.expect(TokenContinue)

	if tok, ok := p.expect(TokenIdent); ok {
		node.add(p.leaf(KindIdentifier, tok))
	}

	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseThrowStmt() NodeID {
	node := p.startNode(KindThrowStmt)
	p.expect(TokenThrow)
	node.add(p.parseExpression())
	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseTryStmt() NodeID {
	node := p.startNode(KindTryStmt)
	p.expect(TokenTry)

	if p.check(TokenLParen) {
		p.advance()
		for !p.check(TokenRParen) && !p.check(TokenEOF) {
			node.add(p.parseResource())
			if p.check(TokenSemicolon) {
				p.advance()
			}
			if p.check(TokenRParen) {
				break
			}
		}
		p.expect(TokenRParen)
	}

	node.add(p.parseBlock())

	for p.check(TokenCatch) {
		node.add(p.parseCatchClause())
	}

	if p.check(TokenFinally) {
		node.add(p.parseFinallyClause())
	}

	return p.finishNode(node)
}

// parseResource handles both resource forms: a declaration
// (Type name = expr) and a bare variable reference.
func (p *Parser) parseResource() NodeID {
	if p.isLocalVarDecl() {
		node := p.startNode(KindLocalVarDecl)
		node.add(p.parseModifiers())
		if p.check(TokenVar) {
			tok := p.advance()
			node.add(p.leaf(KindType, tok))
		} else {
			node.add(p.parseType())
		}
		node.add(p.parseVariableDeclaratorID())
		if p.check(TokenAssign) {
			p.advance()
			node.add(p.parseExpression())
		}
		return p.finishNode(node)
	}
	return p.parseExpression()
}

func (p *Parser) parseCatchClause() NodeID {
	node := p.startNode(KindCatchClause)
	p.expect(TokenCatch)
	p.expect(TokenLParen)

	node.add(p.parseModifiers())

	typeNode := p.startNode(KindType)
	typeNode.add(p.parseType())
	for p.check(TokenBitOr) {
		p.advance()
		typeNode.add(p.parseType())
	}
	node.add(p.finishNode(typeNode))

	node.add(p.parseVariableDeclaratorID())

	p.expect(TokenRParen)
	node.add(p.parseBlock())

	return p.finishNode(node)
}

func (p *Parser) parseFinallyClause() NodeID {
	node := p.startNode(KindFinallyClause)
	p.expect(TokenFinally)
	node.add(p.parseBlock())
	return p.finishNode(node)
}

func (p *Parser) parseSynchronizedStmt() NodeID {
	node := p.startNode(KindSynchronizedStmt)
	p.expect(TokenSynchronized)
	p.expect(TokenLParen)
	node.add(p.parseExpression())
	p.expect(TokenRParen)
	node.add(p.parseBlock())
	return p.finishNode(node)
}

func (p *Parser) parseAssertStmt() NodeID {
	node := p.startNode(KindAssertStmt)
	p.expect(TokenAssert)
	node.add(p.parseExpression())

	if p.check(TokenColon) {
		p.advance()
		node.add(p.parseExpression())
	}

	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseYieldStmt() NodeID {
	node := p.startNode(KindYieldStmt)
	p.expect(TokenYield)
	node.add(p.parseExpression())
	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseLabeledStmt() NodeID {
	node := p.startNode(KindLabeledStmt)

	if tok, ok := p.expect(TokenIdent); ok {
		node.add(p.leaf(KindIdentifier, tok))
	}
	p.expect(TokenColon)
	node.add(p.parseStatement())

	return p.finishNode(node)
}
