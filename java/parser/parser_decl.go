package parser

func (p *Parser) parseTypeDecl() NodeID {
	p.enter()
	defer p.leave()

	modifiers := p.parseModifiers()

	switch p.peek().Kind {
	case TokenClass:
		return p.parseClassDecl(modifiers)
	case TokenInterface:
		return p.parseInterfaceDecl(modifiers)
	case TokenEnum:
		return p.parseEnumDecl(modifiers)
	case TokenRecord:
		if p.isRecordDecl() {
			return p.parseRecordDecl(modifiers)
		}
	case TokenAt:
		if p.peekN(1).Kind == TokenInterface {
			return p.parseAnnotationDecl(modifiers)
		}
	}

	return p.errorNode("expected class, interface, enum, record, or @interface", declAnchors)
}

// isRecordDecl distinguishes the record declaration from "record" used
// as an identifier: a declaration is exactly  record Ident ( .
func (p *Parser) isRecordDecl() bool {
	return p.check(TokenRecord) &&
		p.peekN(1).Kind == TokenIdent &&
		p.peekN(2).Kind == TokenLParen
}

// parseModifiers returns NoNode when no modifier or annotation is
// present, so empty modifier lists occupy no arena space.
func (p *Parser) parseModifiers() NodeID {
	var node *openNode
	for {
		switch p.peek().Kind {
		case TokenAt:
			if p.peekN(1).Kind == TokenInterface {
				goto done
			}
			if node == nil {
				node = p.startNode(KindModifiers)
			}
			node.add(p.parseAnnotation())
		case TokenPublic, TokenProtected, TokenPrivate,
			TokenAbstract, TokenStatic, TokenFinal,
			TokenStrictfp, TokenNative, TokenSynchronized,
			TokenTransient, TokenVolatile, TokenDefault,
			TokenSealed, TokenNonSealed:
			if node == nil {
				node = p.startNode(KindModifiers)
			}
			tok := p.advance()
			node.add(p.leaf(KindModifier, tok))
		default:
			goto done
		}
	}
done:
	if node == nil {
		return NoNode
	}
	return p.finishNode(node)
}

func (p *Parser) skipModifiers() {
	for {
		switch p.peek().Kind {
		case TokenAt:
			if p.peekN(1).Kind == TokenInterface {
				return
			}
			p.skipAnnotation()
		case TokenPublic, TokenProtected, TokenPrivate,
			TokenAbstract, TokenStatic, TokenFinal,
			TokenStrictfp, TokenNative, TokenSynchronized,
			TokenTransient, TokenVolatile, TokenDefault,
			TokenSealed, TokenNonSealed:
			p.advance()
		default:
			return
		}
	}
}

func (p *Parser) parseAnnotation() NodeID {
	p.enter()
	defer p.leave()
	node := p.startNode(KindAnnotation)
	p.expect(TokenAt)
	node.add(p.parseQualifiedName())

	if p.check(TokenLParen) {
		p.advance()
		if !p.check(TokenRParen) {
			if p.peekN(1).Kind == TokenAssign {
				for {
					progress := p.mustProgress()
					node.add(p.parseAnnotationElement())
					if !p.check(TokenComma) {
						break
					}
					p.advance()
					if !progress() {
						break
					}
				}
			} else {
				node.add(p.parseAnnotationValue())
			}
		}
		p.expect(TokenRParen)
	}

	return p.finishNode(node)
}

// skipAnnotation consumes an annotation without allocating, for use
// inside speculation.
func (p *Parser) skipAnnotation() {
	if !p.check(TokenAt) {
		return
	}
	p.advance()
	p.skipQualifiedName()
	if p.check(TokenLParen) {
		p.advance()
		depth := 1
		for depth > 0 && !p.check(TokenEOF) {
			switch p.peek().Kind {
			case TokenLParen:
				depth++
			case TokenRParen:
				depth--
			}
			p.advance()
		}
	}
}

func (p *Parser) parseAnnotationElement() NodeID {
	node := p.startNode(KindAnnotationElement)
	if tok, ok := p.expect(TokenIdent); ok {
		node.add(p.leaf(KindIdentifier, tok))
	}
	p.expect(TokenAssign)
	node.add(p.parseAnnotationValue())
	return p.finishNode(node)
}

func (p *Parser) parseAnnotationValue() NodeID {
	p.enter()
	defer p.leave()
	if p.check(TokenAt) {
		return p.parseAnnotation()
	}
	if p.check(TokenLBrace) {
		node := p.startNode(KindArrayInit)
		p.advance()
		for !p.check(TokenRBrace) && !p.check(TokenEOF) {
			node.add(p.parseAnnotationValue())
			if !p.check(TokenComma) {
				break
			}
			p.advance()
		}
		p.expect(TokenRBrace)
		return p.finishNode(node)
	}
	return p.parseExpression()
}

// declStart picks the start offset for a declaration node whose
// modifiers were parsed before the node was opened.
func (p *Parser) declStart(modifiers NodeID) int32 {
	if modifiers != NoNode {
		return p.arena.Start(modifiers)
	}
	return p.peek().Start
}

func (p *Parser) parseClassDecl(modifiers NodeID) NodeID {
	node := p.startNodeAt(KindClassDecl, p.declStart(modifiers))
	node.add(modifiers)

	p.expect(TokenClass)

	name := ""
	if tok, ok := p.expect(TokenIdent); ok {
		name = tok.Text
		node.add(p.leaf(KindIdentifier, tok))
	}

	if p.check(TokenLT) {
		node.add(p.parseTypeParameters())
	}

	if p.check(TokenExtends) {
		p.advance()
		node.add(p.parseType())
	}

	if p.check(TokenImplements) {
		p.advance()
		p.parseTypeList(node)
	}

	if p.check(TokenPermits) {
		p.advance()
		p.parseTypeList(node)
	}

	node.add(p.parseClassBody())
	id := p.finishNode(node)
	p.arena.SetName(id, name)
	return id
}

func (p *Parser) parseTypeList(node *openNode) {
	for {
		progress := p.mustProgress()
		node.add(p.parseType())
		if !p.check(TokenComma) {
			break
		}
		p.advance()
		if !progress() {
			break
		}
	}
}

func (p *Parser) parseInterfaceDecl(modifiers NodeID) NodeID {
	node := p.startNodeAt(KindInterfaceDecl, p.declStart(modifiers))
	node.add(modifiers)

	p.expect(TokenInterface)

	name := ""
	if tok, ok := p.expect(TokenIdent); ok {
		name = tok.Text
		node.add(p.leaf(KindIdentifier, tok))
	}

	if p.check(TokenLT) {
		node.add(p.parseTypeParameters())
	}

	if p.check(TokenExtends) {
		p.advance()
		p.parseTypeList(node)
	}

	if p.check(TokenPermits) {
		p.advance()
		p.parseTypeList(node)
	}

	node.add(p.parseClassBody())
	id := p.finishNode(node)
	p.arena.SetName(id, name)
	return id
}

func (p *Parser) parseEnumDecl(modifiers NodeID) NodeID {
	node := p.startNodeAt(KindEnumDecl, p.declStart(modifiers))
	node.add(modifiers)

	p.expect(TokenEnum)

	name := ""
	if tok, ok := p.expect(TokenIdent); ok {
		name = tok.Text
		node.add(p.leaf(KindIdentifier, tok))
	}

	if p.check(TokenImplements) {
		p.advance()
		p.parseTypeList(node)
	}

	p.expect(TokenLBrace)

	for p.check(TokenIdent) || p.check(TokenAt) {
		node.add(p.parseEnumConstant())
		if p.check(TokenComma) {
			p.advance()
		} else {
			break
		}
	}

	if p.check(TokenSemicolon) {
		p.advance()
		for !p.check(TokenRBrace) && !p.check(TokenEOF) {
			node.add(p.parseClassMember())
		}
	}

	p.expect(TokenRBrace)
	id := p.finishNode(node)
	p.arena.SetName(id, name)
	return id
}

func (p *Parser) parseEnumConstant() NodeID {
	node := p.startNode(KindEnumConstant)

	for p.check(TokenAt) {
		node.add(p.parseAnnotation())
	}

	if tok, ok := p.expect(TokenIdent); ok {
		node.add(p.leaf(KindIdentifier, tok))
	}

	if p.check(TokenLParen) {
		node.add(p.parseArguments())
	}

	if p.check(TokenLBrace) {
		node.add(p.parseClassBody())
	}

	return p.finishNode(node)
}

func (p *Parser) parseRecordDecl(modifiers NodeID) NodeID {
	node := p.startNodeAt(KindRecordDecl, p.declStart(modifiers))
	node.add(modifiers)

	p.expect(TokenRecord)

	name := ""
	if tok, ok := p.expect(TokenIdent); ok {
		name = tok.Text
		node.add(p.leaf(KindIdentifier, tok))
	}

	if p.check(TokenLT) {
		node.add(p.parseTypeParameters())
	}

	node.add(p.parseParameters())

	if p.check(TokenImplements) {
		p.advance()
		p.parseTypeList(node)
	}

	node.add(p.parseClassBody())
	id := p.finishNode(node)
	p.arena.SetName(id, name)
	return id
}

func (p *Parser) parseAnnotationDecl(modifiers NodeID) NodeID {
	node := p.startNodeAt(KindAnnotationDecl, p.declStart(modifiers))
	node.add(modifiers)

	p.expect(TokenAt)
	p.expect(TokenInterface)

	name := ""
	if tok, ok := p.expect(TokenIdent); ok {
		name = tok.Text
		node.add(p.leaf(KindIdentifier, tok))
	}

	node.add(p.parseClassBody())
	id := p.finishNode(node)
	p.arena.SetName(id, name)
	return id
}

func (p *Parser) parseTypeParameters() NodeID {
	node := p.startNode(KindTypeParameters)
	p.expect(TokenLT)

	for {
		progress := p.mustProgress()
		node.add(p.parseTypeParameter())
		if !p.check(TokenComma) {
			break
		}
		p.advance()
		if !progress() {
			break
		}
	}

	p.expectGT()
	return p.finishNode(node)
}

func (p *Parser) parseTypeParameter() NodeID {
	node := p.startNode(KindTypeParameter)

	for p.check(TokenAt) {
		node.add(p.parseAnnotation())
	}

	if tok, ok := p.expect(TokenIdent); ok {
		node.add(p.leaf(KindIdentifier, tok))
	}

	if p.check(TokenExtends) {
		p.advance()
		for {
			node.add(p.parseType())
			if !p.check(TokenBitAnd) {
				break
			}
			p.advance()
		}
	}

	return p.finishNode(node)
}

func (p *Parser) parseType() NodeID {
	p.enter()
	defer p.leave()
	node := p.startNode(KindType)

	for p.check(TokenAt) {
		node.add(p.parseAnnotation())
	}

	switch p.peek().Kind {
	case TokenBoolean, TokenByte, TokenChar, TokenShort,
		TokenInt, TokenLong, TokenFloat, TokenDouble, TokenVoid, TokenVar:
		tok := p.advance()
		node.add(p.leaf(KindIdentifier, tok))
	case TokenIdent:
		node.add(p.parseQualifiedName())
		if p.check(TokenLT) {
			node.add(p.parseTypeArguments())
		}
		// Parameterized inner class types: Outer<T>.Inner<U>
		for p.check(TokenDot) && p.peekN(1).Kind == TokenIdent {
			p.advance()
			node.add(p.parseQualifiedName())
			if p.check(TokenLT) {
				node.add(p.parseTypeArguments())
			}
		}
	default:
		return p.errorNode("expected type", []TokenKind{TokenIdent, TokenSemicolon, TokenRParen, TokenComma, TokenRBrace})
	}

	id := p.finishNode(node)

	for p.check(TokenAt) || p.check(TokenLBracket) {
		progress := p.mustProgress()
		wrapper := p.startNodeAt(KindArrayType, p.arena.Start(id))
		for p.check(TokenAt) {
			wrapper.add(p.parseAnnotation())
		}
		if !p.check(TokenLBracket) {
			// Annotations seen but no dimension: leave them attached
			// to the wrapper and stop.
			wrapper.add(id)
			return p.finishNode(wrapper)
		}
		p.advance()
		p.expect(TokenRBracket)
		wrapper.add(id)
		id = p.finishNode(wrapper)
		if !progress() {
			break
		}
	}

	return id
}

func (p *Parser) parseTypeArguments() NodeID {
	node := p.startNode(KindTypeArguments)
	p.expect(TokenLT)

	if p.check(TokenGT) {
		// Diamond: <>
		p.advance()
		return p.finishNode(node)
	}

	for {
		progress := p.mustProgress()
		node.add(p.parseTypeArgument())
		if !p.check(TokenComma) {
			break
		}
		p.advance()
		if !progress() {
			break
		}
	}

	p.expectGT()
	return p.finishNode(node)
}

func (p *Parser) parseTypeArgument() NodeID {
	if p.check(TokenQuestion) {
		return p.parseWildcard()
	}
	return p.parseType()
}

func (p *Parser) parseWildcard() NodeID {
	node := p.startNode(KindWildcard)
	p.expect(TokenQuestion)

	if p.check(TokenExtends) || p.check(TokenSuper) {
		tok := p.advance()
		node.add(p.leaf(KindModifier, tok))
		node.add(p.parseType())
	}

	return p.finishNode(node)
}

// expectGT consumes one ">" in generic position. When the lexer
// produced a composite shift or comparison token, the token is split
// in place: one ">" worth is consumed and the residual kind replaces
// the token at the current position, with its range narrowed. The
// token buffer is never rewound.
func (p *Parser) expectGT() bool {
	switch p.peek().Kind {
	case TokenGT:
		p.advance()
		return true
	case TokenShr:
		p.splitToken(TokenGT)
		return true
	case TokenUShr:
		p.splitToken(TokenShr)
		return true
	case TokenGE:
		p.splitToken(TokenAssign)
		return true
	case TokenShrAssign:
		p.splitToken(TokenGE)
		return true
	case TokenUShrAssign:
		p.splitToken(TokenShrAssign)
		return true
	}
	return false
}

// splitToken consumes the leading ">" of the composite token at the
// current position and leaves the remainder in its place.
func (p *Parser) splitToken(remainder TokenKind) {
	tok := p.tokens[p.pos]
	p.tokens[p.pos] = Token{
		Kind:  remainder,
		Start: tok.Start + 1,
		End:   tok.End,
	}
}

// skipTypeArguments consumes a balanced type-argument list without
// allocating; composite shift tokens count for their ">" content.
func (p *Parser) skipTypeArguments() {
	if !p.check(TokenLT) {
		return
	}
	p.advance()
	depth := 1
	for depth > 0 && !p.check(TokenEOF) {
		switch p.peek().Kind {
		case TokenLT:
			depth++
		case TokenGT:
			depth--
		case TokenShr:
			depth -= 2
		case TokenUShr:
			depth -= 3
		case TokenSemicolon, TokenLBrace:
			// A type-argument list never spans these; bail out so
			// speculation cannot run away.
			return
		}
		p.advance()
	}
}

func (p *Parser) parseClassBody() NodeID {
	p.enter()
	defer p.leave()
	node := p.startNode(KindBlock)
	p.expect(TokenLBrace)

	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		node.add(p.parseClassMember())
	}

	p.expect(TokenRBrace)
	return p.finishNode(node)
}

func (p *Parser) parseClassMember() NodeID {
	p.enter()
	defer p.leave()

	if p.check(TokenLBrace) {
		node := p.startNode(KindInitializerBlock)
		node.add(p.parseBlock())
		return p.finishNode(node)
	}

	if p.check(TokenStatic) && p.peekN(1).Kind == TokenLBrace {
		node := p.startNode(KindInitializerBlock)
		tok := p.advance()
		node.add(p.leaf(KindModifier, tok))
		node.add(p.parseBlock())
		return p.finishNode(node)
	}

	if p.check(TokenSemicolon) {
		node := p.startNode(KindEmptyStmt)
		p.advance()
		return p.finishNode(node)
	}

	modifiers := p.parseModifiers()

	switch p.peek().Kind {
	case TokenClass:
		return p.parseClassDecl(modifiers)
	case TokenInterface:
		return p.parseInterfaceDecl(modifiers)
	case TokenEnum:
		return p.parseEnumDecl(modifiers)
	case TokenRecord:
		if p.isRecordDecl() {
			return p.parseRecordDecl(modifiers)
		}
	case TokenAt:
		if p.peekN(1).Kind == TokenInterface {
			return p.parseAnnotationDecl(modifiers)
		}
	}

	if p.check(TokenLT) {
		typeParams := p.parseTypeParameters()
		if p.isIdentifierLike() && p.peekN(1).Kind == TokenLParen {
			return p.parseConstructor(modifiers, typeParams)
		}
		typ := p.parseType()
		return p.parseMethod(modifiers, typeParams, typ)
	}

	if p.isIdentifierLike() && p.peekN(1).Kind == TokenLParen {
		return p.parseConstructor(modifiers, NoNode)
	}

	// Compact constructor for records: public Name { ... }
	if p.isIdentifierLike() && p.peekN(1).Kind == TokenLBrace {
		return p.parseCompactConstructor(modifiers)
	}

	typ := p.parseType()

	if p.isIdentifierLike() {
		if p.peekN(1).Kind == TokenLParen {
			return p.parseMethod(modifiers, NoNode, typ)
		}
		return p.parseField(modifiers, typ)
	}

	return p.errorNode("expected member declaration", declAnchors)
}

func (p *Parser) memberStart(modifiers, typeParams NodeID) int32 {
	if modifiers != NoNode {
		return p.arena.Start(modifiers)
	}
	if typeParams != NoNode {
		return p.arena.Start(typeParams)
	}
	return p.peek().Start
}

func (p *Parser) parseConstructor(modifiers, typeParams NodeID) NodeID {
	node := p.startNodeAt(KindConstructorDecl, p.memberStart(modifiers, typeParams))
	node.add(modifiers)
	node.add(typeParams)

	name := ""
	if tok, ok := p.expectIdentifier(); ok {
		name = tok.Text
		node.add(p.leaf(KindIdentifier, tok))
	}

	node.add(p.parseParameters())

	if p.check(TokenThrows) {
		node.add(p.parseThrowsList())
	}

	node.add(p.parseConstructorBody())
	id := p.finishNode(node)
	p.arena.SetName(id, name)
	return id
}

func (p *Parser) parseCompactConstructor(modifiers NodeID) NodeID {
	node := p.startNodeAt(KindConstructorDecl, p.memberStart(modifiers, NoNode))
	node.add(modifiers)

	name := ""
	if tok, ok := p.expectIdentifier(); ok {
		name = tok.Text
		node.add(p.leaf(KindIdentifier, tok))
	}

	node.add(p.parseBlock())
	id := p.finishNode(node)
	p.arena.SetName(id, name)
	return id
}

func (p *Parser) parseConstructorBody() NodeID {
	node := p.startNode(KindBlock)
	p.expect(TokenLBrace)

	if p.isExplicitConstructorInvocation() {
		node.add(p.parseExplicitConstructorInvocation())
	}

	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		node.add(p.parseStatement())
	}

	p.expect(TokenRBrace)
	return p.finishNode(node)
}

func (p *Parser) isExplicitConstructorInvocation() bool {
	save := p.pos
	defer func() { p.pos = save }()

	if p.check(TokenLT) {
		p.skipTypeArguments()
	}

	if p.check(TokenThis) || p.check(TokenSuper) {
		p.advance()
		return p.check(TokenLParen)
	}

	// Qualified super: expr.super(...) with an identifier chain
	// qualifier.
	if p.check(TokenIdent) {
		for p.check(TokenIdent) {
			p.advance()
			if !p.check(TokenDot) {
				return false
			}
			p.advance()
			if p.check(TokenSuper) {
				p.advance()
				return p.check(TokenLParen)
			}
		}
	}

	return false
}

func (p *Parser) parseExplicitConstructorInvocation() NodeID {
	node := p.startNode(KindExplicitConstructorInvocation)

	if !p.check(TokenLT) && !p.check(TokenThis) && !p.check(TokenSuper) {
		// Qualified super: consume the identifier chain up to the dot
		// before "super".
		qual := p.startNode(KindQualifiedName)
		for p.check(TokenIdent) {
			tok := p.advance()
			qual.add(p.leaf(KindIdentifier, tok))
			if p.check(TokenDot) {
				p.advance()
			}
			if p.check(TokenSuper) {
				break
			}
		}
		node.add(p.finishNode(qual))
	}

	if p.check(TokenLT) {
		node.add(p.parseTypeArguments())
	}

	if p.check(TokenThis) {
		tok := p.advance()
		node.add(p.leaf(KindThis, tok))
	} else if p.check(TokenSuper) {
		tok := p.advance()
		node.add(p.leaf(KindSuper, tok))
	}

	node.add(p.parseArguments())
	p.expect(TokenSemicolon)

	return p.finishNode(node)
}

func (p *Parser) parseMethod(modifiers, typeParams, returnType NodeID) NodeID {
	start := p.memberStart(modifiers, typeParams)
	if modifiers == NoNode && typeParams == NoNode && returnType != NoNode {
		start = p.arena.Start(returnType)
	}
	node := p.startNodeAt(KindMethodDecl, start)
	node.add(modifiers)
	node.add(typeParams)
	node.add(returnType)

	name := ""
	if tok, ok := p.expectIdentifier(); ok {
		name = tok.Text
		node.add(p.leaf(KindIdentifier, tok))
	}

	node.add(p.parseParameters())

	for p.check(TokenLBracket) {
		p.advance()
		p.expect(TokenRBracket)
	}

	if p.check(TokenThrows) {
		node.add(p.parseThrowsList())
	}

	if p.check(TokenLBrace) {
		node.add(p.parseBlock())
	} else if p.check(TokenDefault) {
		p.advance()
		node.add(p.parseAnnotationValue())
		p.expect(TokenSemicolon)
	} else {
		p.expect(TokenSemicolon)
	}

	id := p.finishNode(node)
	p.arena.SetName(id, name)
	return id
}

func (p *Parser) parseField(modifiers, typ NodeID) NodeID {
	start := p.memberStart(modifiers, NoNode)
	if modifiers == NoNode && typ != NoNode {
		start = p.arena.Start(typ)
	}
	node := p.startNodeAt(KindFieldDecl, start)
	node.add(modifiers)
	node.add(typ)

	for {
		progress := p.mustProgress()
		if tok, ok := p.expect(TokenIdent); ok {
			node.add(p.leaf(KindIdentifier, tok))
		}

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

	p.expect(TokenSemicolon)
	return p.finishNode(node)
}

func (p *Parser) parseVarInitializer() NodeID {
	if p.check(TokenLBrace) {
		return p.parseArrayInitializer()
	}
	return p.parseExpression()
}

func (p *Parser) parseArrayInitializer() NodeID {
	p.enter()
	defer p.leave()
	node := p.startNode(KindArrayInit)
	p.expect(TokenLBrace)

	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		node.add(p.parseVarInitializer())
		if !p.check(TokenComma) {
			break
		}
		p.advance()
		if p.check(TokenRBrace) {
			break
		}
	}

	p.expect(TokenRBrace)
	return p.finishNode(node)
}

func (p *Parser) parseParameters() NodeID {
	node := p.startNode(KindParameters)
	p.expect(TokenLParen)

	if !p.check(TokenRParen) {
		if p.isReceiverParameter() {
			node.add(p.parseReceiverParameter())
			if p.check(TokenComma) {
				p.advance()
			}
		}
		for !p.check(TokenRParen) && !p.check(TokenEOF) {
			node.add(p.parseParameter())
			if !p.check(TokenComma) {
				break
			}
			p.advance()
		}
	}

	p.expect(TokenRParen)
	return p.finishNode(node)
}

func (p *Parser) isReceiverParameter() bool {
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

	if p.check(TokenThis) {
		return true
	}
	if p.check(TokenIdent) {
		p.advance()
		if p.check(TokenDot) {
			p.advance()
			return p.check(TokenThis)
		}
	}
	return false
}

func (p *Parser) parseReceiverParameter() NodeID {
	node := p.startNode(KindReceiverParameter)

	for p.check(TokenAt) {
		node.add(p.parseAnnotation())
	}

	node.add(p.parseType())

	if p.check(TokenIdent) {
		tok := p.advance()
		node.add(p.leaf(KindIdentifier, tok))
		p.expect(TokenDot)
	}

	p.expect(TokenThis)
	return p.finishNode(node)
}

func (p *Parser) parseParameter() NodeID {
	node := p.startNode(KindParameter)
	node.add(p.parseModifiers())

	node.add(p.parseType())

	if p.check(TokenEllipsis) {
		tok := p.advance()
		node.add(p.leaf(KindModifier, tok))
	}

	node.add(p.parseVariableDeclaratorID())

	for p.check(TokenLBracket) {
		p.advance()
		p.expect(TokenRBracket)
	}

	return p.finishNode(node)
}

func (p *Parser) parseThrowsList() NodeID {
	node := p.startNode(KindThrowsList)
	p.expect(TokenThrows)

	for {
		progress := p.mustProgress()
		node.add(p.parseType())
		if !p.check(TokenComma) {
			break
		}
		p.advance()
		if !progress() {
			break
		}
	}

	return p.finishNode(node)
}

func (p *Parser) isUnnamedVariable() bool {
	return p.check(TokenIdent) && p.peek().Text == "_"
}

func (p *Parser) parseVariableDeclaratorID() NodeID {
	if p.isUnnamedVariable() {
		node := p.startNode(KindUnnamedVariable)
		p.advance()
		return p.finishNode(node)
	}
	if p.isIdentifierLike() {
		tok := p.advance()
		return p.leaf(KindIdentifier, tok)
	}
	return NoNode
}
