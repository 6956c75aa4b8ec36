package parser

import "testing"

func TestLexer(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenKind
	}{
		{"", []TokenKind{TokenEOF}},
		{"class", []TokenKind{TokenClass, TokenEOF}},
		{"public class Main {}", []TokenKind{TokenPublic, TokenClass, TokenIdent, TokenLBrace, TokenRBrace, TokenEOF}},
		{"123", []TokenKind{TokenIntLiteral, TokenEOF}},
		{"1_000_000L", []TokenKind{TokenIntLiteral, TokenEOF}},
		{"0x1F", []TokenKind{TokenIntLiteral, TokenEOF}},
		{"0b1010", []TokenKind{TokenIntLiteral, TokenEOF}},
		{"3.14", []TokenKind{TokenFloatLiteral, TokenEOF}},
		{"1e10f", []TokenKind{TokenFloatLiteral, TokenEOF}},
		{"2d", []TokenKind{TokenFloatLiteral, TokenEOF}},
		{"\"hello\"", []TokenKind{TokenStringLiteral, TokenEOF}},
		{"'a'", []TokenKind{TokenCharLiteral, TokenEOF}},
		{"'\\n'", []TokenKind{TokenCharLiteral, TokenEOF}},
		{"\"\"\"\nhello\n\"\"\"", []TokenKind{TokenTextBlock, TokenEOF}},
		{"// comment\nclass", []TokenKind{TokenClass, TokenEOF}},
		{"/* block */ class", []TokenKind{TokenClass, TokenEOF}},
		{"+ - * / %", []TokenKind{TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent, TokenEOF}},
		{"== != < <= > >=", []TokenKind{TokenEQ, TokenNE, TokenLT, TokenLE, TokenGT, TokenGE, TokenEOF}},
		{"&& || !", []TokenKind{TokenAnd, TokenOr, TokenNot, TokenEOF}},
		{"<< >> >>>", []TokenKind{TokenShl, TokenShr, TokenUShr, TokenEOF}},
		{">>= >>>=", []TokenKind{TokenShrAssign, TokenUShrAssign, TokenEOF}},
		{"++ --", []TokenKind{TokenIncrement, TokenDecrement, TokenEOF}},
		{"->", []TokenKind{TokenArrow, TokenEOF}},
		{"::", []TokenKind{TokenColonColon, TokenEOF}},
		{"...", []TokenKind{TokenEllipsis, TokenEOF}},
		{"@", []TokenKind{TokenAt, TokenEOF}},
		{"sealed record var yield when", []TokenKind{TokenSealed, TokenRecord, TokenVar, TokenYield, TokenWhen, TokenEOF}},
		{"non-sealed", []TokenKind{TokenNonSealed, TokenEOF}},
		{"non-sealedish", []TokenKind{TokenIdent, TokenMinus, TokenIdent, TokenEOF}},
		{"requires opens", []TokenKind{TokenIdent, TokenIdent, TokenEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lexer := NewLexer([]byte(tt.input), "Test.java")
			tokens, _ := lexer.Tokenize()
			if len(tokens) != len(tt.expected) {
				t.Fatalf("got %d tokens, want %d", len(tokens), len(tt.expected))
			}
			for i := range tokens {
				if tokens[i].Kind != tt.expected[i] {
					t.Errorf("token %d: got %v, want %v", i, tokens[i].Kind, tt.expected[i])
				}
			}
		})
	}
}

func TestLexerModuleInfoKeywords(t *testing.T) {
	lexer := NewLexer([]byte("requires transitive java.base;"), "module-info.java")
	tokens, _ := lexer.Tokenize()
	want := []TokenKind{TokenRequires, TokenTransitive, TokenIdent, TokenDot, TokenIdent, TokenSemicolon, TokenEOF}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i := range tokens {
		if tokens[i].Kind != want[i] {
			t.Errorf("token %d: got %v, want %v", i, tokens[i].Kind, want[i])
		}
	}
}

func TestLexerOffsets(t *testing.T) {
	input := "class T {}"
	lexer := NewLexer([]byte(input), "T.java")
	tokens, _ := lexer.Tokenize()

	var prev int32 = -1
	for _, tok := range tokens {
		if tok.Start < prev {
			t.Errorf("token %v starts at %d before previous %d", tok.Kind, tok.Start, prev)
		}
		if tok.Start > tok.End {
			t.Errorf("token %v has start %d > end %d", tok.Kind, tok.Start, tok.End)
		}
		prev = tok.Start
	}

	last := tokens[len(tokens)-1]
	if last.Kind != TokenEOF || last.Start != int32(len(input)) {
		t.Errorf("EOF terminator missing or misplaced: %+v", last)
	}
}

func TestLexerUnterminated(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		offset int32
		what   string
	}{
		{"string", "class T { String s = \"oops\n int x; }", 21, "string literal"},
		{"text block", "class T { String s = \"\"\"oops", 21, "text block"},
		{"block comment", "class T {} /* trailing", 11, "block comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := NewLexer([]byte(tt.input), "T.java")
			lexer.Tokenize()
			errs := lexer.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d lex errors, want 1", len(errs))
			}
			if errs[0].Offset != tt.offset {
				t.Errorf("error offset: got %d, want %d", errs[0].Offset, tt.offset)
			}
			if errs[0].What != tt.what {
				t.Errorf("error kind: got %q, want %q", errs[0].What, tt.what)
			}
		})
	}
}

func TestLexerUnterminatedStringRecovers(t *testing.T) {
	// After an unterminated string the lexer resumes at the next line
	// start, so the rest of the file still produces tokens.
	input := "String s = \"oops\nint x;"
	lexer := NewLexer([]byte(input), "T.java")
	tokens, _ := lexer.Tokenize()

	sawInt := false
	for _, tok := range tokens {
		if tok.Kind == TokenInt {
			sawInt = true
		}
	}
	if !sawInt {
		t.Error("tokens after unterminated string were lost")
	}
}

func TestIdentifierInterning(t *testing.T) {
	lexer := NewLexer([]byte("foo foo foo"), "T.java")
	tokens, _ := lexer.Tokenize()
	if len(tokens) != 4 {
		t.Fatalf("got %d tokens, want 4", len(tokens))
	}
	// Interned identifiers share backing storage.
	if tokens[0].Text != tokens[1].Text || tokens[1].Text != tokens[2].Text {
		t.Error("identifier text differs across occurrences")
	}
}
