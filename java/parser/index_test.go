package parser

import (
	"strings"
	"testing"
)

func TestLineAndColumn(t *testing.T) {
	source := "class T {\n    int x;\n}"
	result := parseUnit(t, source)
	idx := NewPositionIndex(result.Arena, result.Root, []byte(source))

	tests := []struct {
		offset int32
		line   int
		column int
	}{
		{0, 1, 1},   // 'c' of class
		{6, 1, 7},   // 'T'
		{10, 2, 1},  // first space of line 2
		{14, 2, 5},  // 'i' of int
		{21, 3, 1},  // '}'
	}

	for _, tt := range tests {
		if got := idx.LineOf(tt.offset); got != tt.line {
			t.Errorf("LineOf(%d): got %d, want %d", tt.offset, got, tt.line)
		}
		if got := idx.ColumnOf(tt.offset); got != tt.column {
			t.Errorf("ColumnOf(%d): got %d, want %d", tt.offset, got, tt.column)
		}
	}

	if idx.LineCount() != 3 {
		t.Errorf("LineCount: got %d, want 3", idx.LineCount())
	}
}

func TestLineOffsetsCRLF(t *testing.T) {
	idx := NewPositionIndex(NewArena(0), NoNode, []byte("a\r\nb\r\nc"))
	if idx.LineCount() != 3 {
		t.Fatalf("LineCount: got %d, want 3", idx.LineCount())
	}
	// 'b' sits right after the \r\n pair.
	if got := idx.LineOf(3); got != 2 {
		t.Errorf("LineOf(3): got %d, want 2", got)
	}
	if got := idx.ColumnOf(3); got != 1 {
		t.Errorf("ColumnOf(3): got %d, want 1", got)
	}
}

func TestNodesByKind(t *testing.T) {
	source := "class T { int a; int b; void f() {} }"
	result := parseUnit(t, source)
	idx := NewPositionIndex(result.Arena, result.Root, []byte(source))

	fields := idx.NodesByKind(KindFieldDecl)
	if len(fields) != 2 {
		t.Fatalf("fields: got %d, want 2", len(fields))
	}
	if result.Arena.Start(fields[0]) >= result.Arena.Start(fields[1]) {
		t.Error("fields not in source order")
	}

	if len(idx.NodesByKind(KindMethodDecl)) != 1 {
		t.Error("method count wrong")
	}
	if len(idx.NodesByKind(KindEnumDecl)) != 0 {
		t.Error("phantom enums")
	}
}

func TestNodeAt(t *testing.T) {
	source := "class T { void f() { int x = 1; } }"
	result := parseUnit(t, source)
	idx := NewPositionIndex(result.Arena, result.Root, []byte(source))

	// Offset of "x" in the local declaration.
	offset := int32(strings.Index(source, "x ="))
	node := idx.NodeAt(offset)
	if node == NoNode {
		t.Fatal("NodeAt returned no node")
	}
	// The deepest node at "x" is the identifier leaf.
	if result.Arena.Kind(node) != KindIdentifier {
		t.Errorf("NodeAt kind: got %v, want Identifier", result.Arena.Kind(node))
	}

	// Out-of-range offsets return no node.
	if idx.NodeAt(int32(len(source))) != NoNode {
		t.Error("NodeAt past EOF should return no node")
	}
}

func TestNodeAtDeepest(t *testing.T) {
	source := "class T { int x = a + b * c; }"
	result := parseUnit(t, source)
	idx := NewPositionIndex(result.Arena, result.Root, []byte(source))

	offset := int32(strings.Index(source, "b *"))
	node := idx.NodeAt(offset)
	if result.Arena.Kind(node) != KindIdentifier {
		t.Fatalf("got %v, want Identifier", result.Arena.Kind(node))
	}
	// Walking up reaches the multiplicative chain before the additive
	// one.
	parent := result.Arena.Parent(node)
	if result.Arena.Kind(parent) != KindBinaryExpr {
		t.Fatalf("parent: got %v, want BinaryExpr", result.Arena.Kind(parent))
	}
	if result.Arena.OperatorOf(parent) != TokenStar {
		t.Errorf("parent operator: got %v, want *", result.Arena.OperatorOf(parent))
	}
}
