package parser

func (p *Parser) parseExpression() NodeID {
	p.enter()
	defer p.leave()
	return p.parseAssignmentExpr()
}

// parseCaseLabelExpression parses a case-label constant with a
// logical-or precedence ceiling: no ternary, so the case arm's ":" is
// never consumed as the ternary separator.
func (p *Parser) parseCaseLabelExpression() NodeID {
	p.enter()
	defer p.leave()
	return p.parseOrExpr()
}

func (p *Parser) parseAssignmentExpr() NodeID {
	if p.isLambda() {
		return p.parseLambdaExpr()
	}

	left := p.parseTernaryExpr()

	if op := p.peek().Kind; p.isAssignOp() {
		node := p.startNodeAt(KindAssignExpr, p.arena.Start(left))
		node.add(left)
		p.advance()
		node.add(p.parseAssignmentExpr())
		id := p.finishNode(node)
		p.arena.SetOperator(id, op)
		return id
	}

	return left
}

func (p *Parser) isAssignOp() bool {
	switch p.peek().Kind {
	case TokenAssign, TokenPlusAssign, TokenMinusAssign,
		TokenStarAssign, TokenSlashAssign, TokenPercentAssign,
		TokenAndAssign, TokenOrAssign, TokenXorAssign,
		TokenShlAssign, TokenShrAssign, TokenUShrAssign:
		return true
	}
	return false
}

func (p *Parser) isLambda() bool {
	if p.isIdentifierLike() && p.peekN(1).Kind == TokenArrow {
		return true
	}

	if !p.check(TokenLParen) {
		return false
	}

	save := p.pos
	defer func() { p.pos = save }()

	p.advance()
	depth := 1
	for depth > 0 && !p.check(TokenEOF) {
		switch p.peek().Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		}
		if depth > 0 {
			p.advance()
		}
	}
	if p.check(TokenRParen) {
		p.advance()
	}
	return p.check(TokenArrow)
}

func (p *Parser) parseLambdaExpr() NodeID {
	node := p.startNode(KindLambdaExpr)

	if p.isIdentifierLike() && !p.check(TokenLParen) {
		tok := p.advance()
		params := p.startNodeAt(KindParameters, tok.Start)
		params.add(p.leaf(KindIdentifier, tok))
		node.add(p.finishNode(params))
	} else {
		node.add(p.parseLambdaParameters())
	}

	p.expect(TokenArrow)

	if p.check(TokenLBrace) {
		node.add(p.parseBlock())
	} else {
		node.add(p.parseExpression())
	}

	return p.finishNode(node)
}

func (p *Parser) parseLambdaParameters() NodeID {
	node := p.startNode(KindParameters)
	p.expect(TokenLParen)

	if !p.check(TokenRParen) {
		for {
			progress := p.mustProgress()
			if p.isLambdaTypedParam() {
				node.add(p.parseParameter())
			} else if p.isUnnamedVariable() {
				unnamed := p.startNode(KindUnnamedVariable)
				p.advance()
				node.add(p.finishNode(unnamed))
			} else if tok, ok := p.expect(TokenIdent); ok {
				node.add(p.leaf(KindIdentifier, tok))
			}
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

func (p *Parser) isLambdaTypedParam() bool {
	switch p.peek().Kind {
	case TokenFinal, TokenAt:
		return true
	case TokenBoolean, TokenByte, TokenChar, TokenShort,
		TokenInt, TokenLong, TokenFloat, TokenDouble, TokenVar:
		return true
	case TokenIdent:
		return p.peekN(1).Kind == TokenIdent || p.peekN(1).Kind == TokenLT ||
			p.peekN(1).Kind == TokenDot || p.peekN(1).Kind == TokenLBracket
	}
	return false
}

func (p *Parser) parseTernaryExpr() NodeID {
	cond := p.parseOrExpr()

	if p.check(TokenQuestion) {
		node := p.startNodeAt(KindTernaryExpr, p.arena.Start(cond))
		node.add(cond)
		p.advance()
		node.add(p.parseExpression())
		p.expect(TokenColon)
		if p.isLambda() {
			node.add(p.parseLambdaExpr())
		} else {
			node.add(p.parseTernaryExpr())
		}
		return p.finishNode(node)
	}

	return cond
}

// parseBinaryChain folds a left-associative chain of the given
// operator tokens into BinaryExpr nodes, with the operator recorded in
// the side table.
func (p *Parser) parseBinaryChain(next func() NodeID, ops ...TokenKind) NodeID {
	left := next()

	for p.match(ops...) {
		op := p.peek().Kind
		node := p.startNodeAt(KindBinaryExpr, p.arena.Start(left))
		node.add(left)
		p.advance()
		node.add(next())
		left = p.finishNode(node)
		p.arena.SetOperator(left, op)
	}

	return left
}

func (p *Parser) parseOrExpr() NodeID {
	return p.parseBinaryChain(p.parseAndExpr, TokenOr)
}

func (p *Parser) parseAndExpr() NodeID {
	return p.parseBinaryChain(p.parseBitOrExpr, TokenAnd)
}

func (p *Parser) parseBitOrExpr() NodeID {
	return p.parseBinaryChain(p.parseBitXorExpr, TokenBitOr)
}

func (p *Parser) parseBitXorExpr() NodeID {
	return p.parseBinaryChain(p.parseBitAndExpr, TokenBitXor)
}

func (p *Parser) parseBitAndExpr() NodeID {
	return p.parseBinaryChain(p.parseEqualityExpr, TokenBitAnd)
}

func (p *Parser) parseEqualityExpr() NodeID {
	return p.parseBinaryChain(p.parseRelationalExpr, TokenEQ, TokenNE)
}

func (p *Parser) parseRelationalExpr() NodeID {
	left := p.parseShiftExpr()

	for {
		if p.match(TokenLT, TokenLE, TokenGT, TokenGE) {
			op := p.peek().Kind
			node := p.startNodeAt(KindBinaryExpr, p.arena.Start(left))
			node.add(left)
			p.advance()
			node.add(p.parseShiftExpr())
			left = p.finishNode(node)
			p.arena.SetOperator(left, op)
		} else if p.check(TokenInstanceof) {
			node := p.startNodeAt(KindInstanceofExpr, p.arena.Start(left))
			node.add(left)
			p.advance()
			if p.looksLikePattern() {
				node.add(p.parsePattern())
			} else {
				node.add(p.parseType())
			}
			left = p.finishNode(node)
		} else {
			break
		}
	}

	return left
}

func (p *Parser) parseShiftExpr() NodeID {
	return p.parseBinaryChain(p.parseAdditiveExpr, TokenShl, TokenShr, TokenUShr)
}

func (p *Parser) parseAdditiveExpr() NodeID {
	return p.parseBinaryChain(p.parseMultiplicativeExpr, TokenPlus, TokenMinus)
}

func (p *Parser) parseMultiplicativeExpr() NodeID {
	return p.parseBinaryChain(p.parseUnaryExpr, TokenStar, TokenSlash, TokenPercent)
}

func (p *Parser) parseUnaryExpr() NodeID {
	p.enter()
	defer p.leave()

	switch p.peek().Kind {
	case TokenIncrement, TokenDecrement, TokenPlus, TokenMinus, TokenNot, TokenBitNot:
		op := p.peek().Kind
		node := p.startNode(KindUnaryExpr)
		p.advance()
		node.add(p.parseUnaryExpr())
		id := p.finishNode(node)
		p.arena.SetOperator(id, op)
		return id
	case TokenLParen:
		if p.isCast() {
			return p.parseCastExpr()
		}
	}

	return p.parsePostfixExpr()
}

func (p *Parser) isCast() bool {
	if !p.check(TokenLParen) {
		return false
	}

	save := p.pos
	defer func() { p.pos = save }()

	p.advance()

	for p.check(TokenAt) {
		p.skipAnnotation()
	}

	switch p.peek().Kind {
	case TokenBoolean, TokenByte, TokenChar, TokenShort,
		TokenInt, TokenLong, TokenFloat, TokenDouble:
		return true
	case TokenIdent:
		p.skipQualifiedName()
		if p.check(TokenLT) {
			p.skipTypeArguments()
		}
		for p.check(TokenLBracket) {
			p.advance()
			if p.check(TokenRBracket) {
				p.advance()
			}
		}
		// Intersection casts: (Type & Type2)
		for p.check(TokenBitAnd) {
			p.advance()
			p.skipQualifiedName()
			if p.check(TokenLT) {
				p.skipTypeArguments()
			}
		}
		if !p.check(TokenRParen) {
			return false
		}
		p.advance()
		switch p.peek().Kind {
		case TokenIdent, TokenThis, TokenSuper, TokenNew,
			TokenLParen, TokenNot, TokenBitNot,
			TokenIntLiteral, TokenFloatLiteral,
			TokenCharLiteral, TokenStringLiteral,
			TokenTextBlock, TokenTrue, TokenFalse, TokenNull,
			TokenSwitch:
			return true
		}
		return false
	}

	return false
}

func (p *Parser) parseCastExpr() NodeID {
	node := p.startNode(KindCastExpr)
	p.expect(TokenLParen)

	typeNode := p.startNode(KindType)
	typeNode.add(p.parseType())
	for p.check(TokenBitAnd) {
		p.advance()
		typeNode.add(p.parseType())
	}
	node.add(p.finishNode(typeNode))

	p.expect(TokenRParen)
	// Cast to lambda: (Supplier<T>) () -> value
	if p.isLambda() {
		node.add(p.parseLambdaExpr())
	} else {
		node.add(p.parseUnaryExpr())
	}
	return p.finishNode(node)
}

func (p *Parser) parsePostfixExpr() NodeID {
	expr := p.parsePrimaryExpr()
	return p.parsePostfixSuffix(expr)
}

func (p *Parser) parsePostfixSuffix(expr NodeID) NodeID {
	for {
		progress := p.mustProgress()
		switch p.peek().Kind {
		case TokenIncrement, TokenDecrement:
			op := p.peek().Kind
			node := p.startNodeAt(KindPostfixExpr, p.arena.Start(expr))
			node.add(expr)
			p.advance()
			expr = p.finishNode(node)
			p.arena.SetOperator(expr, op)
		case TokenDot:
			p.advance()
			expr = p.parseSelection(expr)
		case TokenLBracket:
			// String[].class and String[]::new suffixes
			if p.peekN(1).Kind == TokenRBracket {
				if result := p.tryParseArrayClassLiteralOrMethodRef(expr); result != NoNode {
					expr = result
					continue
				}
			}
			p.advance()
			node := p.startNodeAt(KindArrayAccess, p.arena.Start(expr))
			node.add(expr)
			node.add(p.parseExpression())
			p.expect(TokenRBracket)
			expr = p.finishNode(node)
		case TokenLParen:
			expr = p.parseMethodCall(expr)
		case TokenColonColon:
			expr = p.parseMethodRef(expr)
		case TokenLT:
			// Class<?>[]::new and Class<?>.class forms
			if result := p.tryParseParameterizedTypeSpecialForm(expr); result != NoNode {
				expr = result
				continue
			}
			return expr
		default:
			return expr
		}
		if !progress() {
			return expr
		}
	}
}

// parseSelection handles everything that can follow a "." on a
// primary.
func (p *Parser) parseSelection(expr NodeID) NodeID {
	switch {
	case p.check(TokenNew):
		return p.parseInnerNewExpr(expr)
	case p.check(TokenClass):
		node := p.startNodeAt(KindClassLiteral, p.arena.Start(expr))
		node.add(expr)
		p.advance()
		return p.finishNode(node)
	case p.check(TokenThis):
		node := p.startNodeAt(KindFieldAccess, p.arena.Start(expr))
		node.add(expr)
		tok := p.advance()
		node.add(p.leaf(KindThis, tok))
		return p.finishNode(node)
	case p.check(TokenSuper):
		node := p.startNodeAt(KindFieldAccess, p.arena.Start(expr))
		node.add(expr)
		tok := p.advance()
		node.add(p.leaf(KindSuper, tok))
		return p.finishNode(node)
	case p.check(TokenLT):
		typeArgs := p.parseTypeArguments()
		if p.isIdentifierLike() {
			tok := p.advance()
			node := p.startNodeAt(KindFieldAccess, p.arena.Start(expr))
			node.add(expr)
			node.add(typeArgs)
			node.add(p.leaf(KindIdentifier, tok))
			out := p.finishNode(node)
			if p.check(TokenLParen) {
				out = p.parseMethodCall(out)
			}
			return out
		}
		return expr
	case p.isIdentifierLike():
		tok := p.advance()
		node := p.startNodeAt(KindFieldAccess, p.arena.Start(expr))
		node.add(expr)
		node.add(p.leaf(KindIdentifier, tok))
		out := p.finishNode(node)
		if p.check(TokenLParen) {
			out = p.parseMethodCall(out)
		}
		return out
	default:
		return expr
	}
}

func (p *Parser) parseMethodCall(target NodeID) NodeID {
	node := p.startNodeAt(KindCallExpr, p.arena.Start(target))
	node.add(target)
	node.add(p.parseArguments())
	return p.finishNode(node)
}

func (p *Parser) parseArguments() NodeID {
	node := p.startNode(KindArguments)
	p.expect(TokenLParen)

	if !p.check(TokenRParen) {
		for {
			progress := p.mustProgress()
			node.add(p.parseExpression())
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

func (p *Parser) parseMethodRef(target NodeID) NodeID {
	node := p.startNodeAt(KindMethodRef, p.arena.Start(target))
	node.add(target)
	p.expect(TokenColonColon)

	if p.check(TokenLT) {
		node.add(p.parseTypeArguments())
	}

	if p.check(TokenNew) {
		tok := p.advance()
		node.add(p.leaf(KindIdentifier, tok))
	} else if tok, ok := p.expectIdentifier(); ok {
		node.add(p.leaf(KindIdentifier, tok))
	}

	return p.finishNode(node)
}

func (p *Parser) parsePrimaryExpr() NodeID {
	switch p.peek().Kind {
	case TokenIntLiteral, TokenFloatLiteral, TokenCharLiteral,
		TokenStringLiteral, TokenTextBlock, TokenTrue, TokenFalse, TokenNull:
		tok := p.advance()
		id := p.leaf(KindLiteral, tok)
		switch tok.Kind {
		case TokenIntLiteral, TokenFloatLiteral, TokenTrue, TokenFalse, TokenNull:
			p.arena.SetLiteral(id, tok.Text)
		}
		return id

	case TokenThis:
		tok := p.advance()
		return p.leaf(KindThis, tok)

	case TokenSuper:
		tok := p.advance()
		id := p.leaf(KindSuper, tok)
		if p.check(TokenDot) || p.check(TokenLParen) {
			return p.parsePostfixSuffix(id)
		}
		return id

	case TokenNew:
		return p.parseNewExpr()

	case TokenLParen:
		return p.parseParenExpr()

	case TokenSwitch:
		return p.parseSwitchExpr()

	case TokenBoolean, TokenByte, TokenChar, TokenShort,
		TokenInt, TokenLong, TokenFloat, TokenDouble, TokenVoid:
		return p.parsePrimitiveClassLiteral()

	default:
		if p.isIdentifierLike() {
			tok := p.advance()
			return p.leaf(KindIdentifier, tok)
		}
		return p.errorNode("expected expression", []TokenKind{
			TokenSemicolon, TokenComma, TokenRParen, TokenRBrace, TokenRBracket,
		})
	}
}

func (p *Parser) parseParenExpr() NodeID {
	node := p.startNode(KindParenExpr)
	p.expect(TokenLParen)
	node.add(p.parseExpression())
	p.expect(TokenRParen)
	return p.finishNode(node)
}

func (p *Parser) parseNewExpr() NodeID {
	start := p.peek().Start
	p.expect(TokenNew)

	if p.check(TokenLT) {
		p.parseTypeArguments()
	}

	for p.check(TokenAt) {
		p.skipAnnotation()
	}

	switch p.peek().Kind {
	case TokenBoolean, TokenByte, TokenChar, TokenShort,
		TokenInt, TokenLong, TokenFloat, TokenDouble:
		return p.parseNewArrayExpr(start)
	}

	qualName := p.parseQualifiedName()

	var typeArgs NodeID = NoNode
	if p.check(TokenLT) {
		typeArgs = p.parseTypeArguments()
	}

	if p.check(TokenAt) || p.check(TokenLBracket) {
		node := p.startNodeAt(KindNewArrayExpr, start)
		node.add(qualName)
		node.add(typeArgs)
		p.parseArrayDims(node)
		if p.check(TokenLBrace) {
			node.add(p.parseArrayInitializer())
		}
		return p.finishNode(node)
	}

	node := p.startNodeAt(KindNewExpr, start)
	node.add(qualName)
	node.add(typeArgs)
	node.add(p.parseArguments())

	if p.check(TokenLBrace) {
		node.add(p.parseClassBody())
	}

	return p.finishNode(node)
}

func (p *Parser) parseArrayDims(node *openNode) {
	for p.check(TokenAt) || p.check(TokenLBracket) {
		progress := p.mustProgress()
		for p.check(TokenAt) {
			node.add(p.parseAnnotation())
		}
		if !p.check(TokenLBracket) {
			break
		}
		p.advance()
		if !p.check(TokenRBracket) {
			node.add(p.parseExpression())
		}
		p.expect(TokenRBracket)
		if !progress() {
			break
		}
	}
}

func (p *Parser) parseNewArrayExpr(start int32) NodeID {
	node := p.startNodeAt(KindNewArrayExpr, start)
	tok := p.advance()
	node.add(p.leaf(KindType, tok))

	p.parseArrayDims(node)

	if p.check(TokenLBrace) {
		node.add(p.parseArrayInitializer())
	}

	return p.finishNode(node)
}

func (p *Parser) parseInnerNewExpr(outer NodeID) NodeID {
	p.expect(TokenNew)

	if p.check(TokenLT) {
		p.parseTypeArguments()
	}

	node := p.startNodeAt(KindNewExpr, p.arena.Start(outer))
	node.add(outer)

	if tok, ok := p.expect(TokenIdent); ok {
		node.add(p.leaf(KindIdentifier, tok))
	}

	if p.check(TokenLT) {
		node.add(p.parseTypeArguments())
	}

	node.add(p.parseArguments())

	if p.check(TokenLBrace) {
		node.add(p.parseClassBody())
	}

	return p.finishNode(node)
}

func (p *Parser) parsePrimitiveClassLiteral() NodeID {
	node := p.startNode(KindClassLiteral)
	tok := p.advance()
	typeNode := p.leaf(KindType, tok)

	for p.check(TokenLBracket) {
		p.advance()
		p.expect(TokenRBracket)
		wrapper := p.startNodeAt(KindArrayType, p.arena.Start(typeNode))
		wrapper.add(typeNode)
		typeNode = p.finishNode(wrapper)
	}

	node.add(typeNode)
	p.expect(TokenDot)
	p.expect(TokenClass)
	return p.finishNode(node)
}

// tryParseArrayClassLiteralOrMethodRef parses String[].class and
// String[]::new style suffixes. Returns NoNode (position unchanged)
// when the brackets turn out to be something else.
func (p *Parser) tryParseArrayClassLiteralOrMethodRef(baseExpr NodeID) NodeID {
	save := p.pos

	dims := 0
	for p.check(TokenLBracket) && p.peekN(1).Kind == TokenRBracket {
		p.advance()
		p.advance()
		dims++
	}

	if dims == 0 {
		p.pos = save
		return NoNode
	}

	buildArrayType := func() NodeID {
		typeNode := baseExpr
		for i := 0; i < dims; i++ {
			wrapper := p.startNodeAt(KindArrayType, p.arena.Start(baseExpr))
			wrapper.add(typeNode)
			typeNode = p.finishNode(wrapper)
		}
		return typeNode
	}

	if p.check(TokenDot) && p.peekN(1).Kind == TokenClass {
		p.advance()
		p.advance()
		node := p.startNodeAt(KindClassLiteral, p.arena.Start(baseExpr))
		node.add(buildArrayType())
		return p.finishNode(node)
	}

	if p.check(TokenColonColon) && p.peekN(1).Kind == TokenNew {
		p.advance()
		tok := p.advance()
		node := p.startNodeAt(KindMethodRef, p.arena.Start(baseExpr))
		node.add(buildArrayType())
		node.add(p.leaf(KindIdentifier, tok))
		return p.finishNode(node)
	}

	p.pos = save
	return NoNode
}

// tryParseParameterizedTypeSpecialForm parses Class<?>[]::new and
// Class<?>.class. Returns NoNode (position unchanged) when the "<" was
// a comparison after all.
func (p *Parser) tryParseParameterizedTypeSpecialForm(baseExpr NodeID) NodeID {
	if !p.check(TokenLT) {
		return NoNode
	}

	save := p.pos
	if !p.looksLikeTypeArgumentsThenSpecialForm() {
		return NoNode
	}

	typeArgs := p.parseTypeArguments()

	paramType := p.startNodeAt(KindType, p.arena.Start(baseExpr))
	paramType.add(baseExpr)
	paramType.add(typeArgs)
	typ := p.finishNode(paramType)

	if p.check(TokenLBracket) && p.peekN(1).Kind == TokenRBracket {
		if result := p.tryParseArrayClassLiteralOrMethodRef(typ); result != NoNode {
			return result
		}
	}

	if p.check(TokenDot) && p.peekN(1).Kind == TokenClass {
		p.advance()
		p.advance()
		node := p.startNodeAt(KindClassLiteral, p.arena.Start(baseExpr))
		node.add(typ)
		return p.finishNode(node)
	}

	if p.check(TokenColonColon) {
		return p.parseMethodRef(typ)
	}

	p.pos = save
	return NoNode
}

// looksLikeTypeArgumentsThenSpecialForm speculates without allocating:
// balanced type arguments followed by [], ".class" or "::".
func (p *Parser) looksLikeTypeArgumentsThenSpecialForm() bool {
	save := p.pos
	defer func() { p.pos = save }()

	p.skipTypeArguments()
	if p.pos == save {
		return false
	}
	switch p.peek().Kind {
	case TokenColonColon:
		return true
	case TokenLBracket:
		return p.peekN(1).Kind == TokenRBracket
	case TokenDot:
		return p.peekN(1).Kind == TokenClass
	}
	return false
}

func (p *Parser) parseSwitchExpr() NodeID {
	node := p.startNode(KindSwitchExpr)
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
