package parser

import (
	"errors"
	"fmt"
)

// NodeID indexes into an Arena. Node identity is the index; attributes
// live in parallel columns keyed by it.
type NodeID int32

// NoNode is the sentinel parent of the root and the result of failed
// lookups.
const NoNode NodeID = -1

// ErrArenaFull is returned when the capacity policy refuses growth.
var ErrArenaFull = errors.New("arena full")

// ImportAttr is attached to KindImportDecl nodes.
type ImportAttr struct {
	QualifiedName string
	IsStatic      bool
	IsWildcard    bool
}

// ModuleImportAttr is attached to KindModuleImportDecl nodes.
type ModuleImportAttr struct {
	ModuleName string
}

// Arena stores one compilation unit's AST as parallel columns indexed
// by NodeID. It is append-only while a parse runs; afterwards it is
// read-only and freely shareable across goroutines. The columnar
// layout keeps by-kind and by-parent passes sequential in memory and
// divorces node identity from heap addresses.
type Arena struct {
	kinds   []NodeKind
	starts  []int32
	ends    []int32
	parents []NodeID

	childStart []int32
	childCount []int32
	children   []NodeID

	imports       map[NodeID]ImportAttr
	moduleImports map[NodeID]ModuleImportAttr
	names         map[NodeID]string
	literals      map[NodeID]string
	operators     map[NodeID]TokenKind

	maxNodes int32
}

// NewArena returns an empty arena. maxNodes bounds growth; zero or
// negative means unbounded.
func NewArena(maxNodes int32) *Arena {
	return &Arena{
		imports:       make(map[NodeID]ImportAttr),
		moduleImports: make(map[NodeID]ModuleImportAttr),
		names:         make(map[NodeID]string),
		literals:      make(map[NodeID]string),
		operators:     make(map[NodeID]TokenKind),
		maxNodes:      maxNodes,
	}
}

// Allocate appends a node with an open end. The caller closes it via
// Close once its extent is known.
func (a *Arena) Allocate(kind NodeKind, start int32) (NodeID, error) {
	if a.maxNodes > 0 && int32(len(a.kinds)) >= a.maxNodes {
		return NoNode, ErrArenaFull
	}
	id := NodeID(len(a.kinds))
	a.kinds = append(a.kinds, kind)
	a.starts = append(a.starts, start)
	a.ends = append(a.ends, start)
	a.parents = append(a.parents, NoNode)
	a.childStart = append(a.childStart, 0)
	a.childCount = append(a.childCount, 0)
	return id, nil
}

func (a *Arena) Close(id NodeID, end int32) {
	a.ends[id] = end
}

// SetStart widens a node leftwards; used when leading children (for
// example modifiers) were parsed before the node itself was opened.
func (a *Arena) SetStart(id NodeID, start int32) {
	a.starts[id] = start
}

// SetChildren records the node's children in one contiguous run of the
// shared children buffer and fixes up their parent links. It must be
// called at most once per parent.
func (a *Arena) SetChildren(parent NodeID, kids []NodeID) {
	if len(kids) == 0 {
		return
	}
	a.childStart[parent] = int32(len(a.children))
	a.childCount[parent] = int32(len(kids))
	a.children = append(a.children, kids...)
	for _, c := range kids {
		a.parents[c] = parent
	}
}

func (a *Arena) Len() int { return len(a.kinds) }

func (a *Arena) Kind(id NodeID) NodeKind { return a.kinds[id] }
func (a *Arena) Start(id NodeID) int32   { return a.starts[id] }
func (a *Arena) End(id NodeID) int32     { return a.ends[id] }
func (a *Arena) Parent(id NodeID) NodeID { return a.parents[id] }

// Children returns the node's children in source order. The returned
// slice aliases arena storage and must not be mutated.
func (a *Arena) Children(id NodeID) []NodeID {
	start := a.childStart[id]
	return a.children[start : start+a.childCount[id]]
}

// FirstChildOfKind returns the first direct child with the given kind,
// or NoNode.
func (a *Arena) FirstChildOfKind(id NodeID, kind NodeKind) NodeID {
	for _, c := range a.Children(id) {
		if a.kinds[c] == kind {
			return c
		}
	}
	return NoNode
}

// ChildrenOfKind collects the direct children with the given kind.
func (a *Arena) ChildrenOfKind(id NodeID, kind NodeKind) []NodeID {
	var out []NodeID
	for _, c := range a.Children(id) {
		if a.kinds[c] == kind {
			out = append(out, c)
		}
	}
	return out
}

func (a *Arena) SetImportAttr(id NodeID, attr ImportAttr) {
	a.imports[id] = attr
}

func (a *Arena) SetModuleImportAttr(id NodeID, attr ModuleImportAttr) {
	a.moduleImports[id] = attr
}

func (a *Arena) SetName(id NodeID, name string) {
	a.names[id] = name
}

func (a *Arena) SetLiteral(id NodeID, value string) {
	a.literals[id] = value
}

func (a *Arena) SetOperator(id NodeID, op TokenKind) {
	a.operators[id] = op
}

// ImportAttrOf panics with a contract violation when called on a node
// that is not an import declaration; side tables exist exactly for the
// kinds documented to own them.
func (a *Arena) ImportAttrOf(id NodeID) ImportAttr {
	attr, ok := a.imports[id]
	if !ok {
		panic(fmt.Sprintf("node %d (%s) carries no import attribute", id, a.kinds[id]))
	}
	return attr
}

func (a *Arena) ModuleImportAttrOf(id NodeID) ModuleImportAttr {
	attr, ok := a.moduleImports[id]
	if !ok {
		panic(fmt.Sprintf("node %d (%s) carries no module import attribute", id, a.kinds[id]))
	}
	return attr
}

// NameOf returns the declared simple name of a type declaration, or ""
// when none was recorded (error recovery).
func (a *Arena) NameOf(id NodeID) string {
	return a.names[id]
}

// LiteralOf returns the decoded literal value when decoding was cheap;
// callers fall back to the source bytes otherwise.
func (a *Arena) LiteralOf(id NodeID) (string, bool) {
	v, ok := a.literals[id]
	return v, ok
}

// OperatorOf returns the operator token of binary, unary, postfix and
// assignment expression nodes.
func (a *Arena) OperatorOf(id NodeID) TokenKind {
	return a.operators[id]
}

// Walk visits id and every node below it in depth-first source order.
// Returning false from fn prunes the subtree.
func (a *Arena) Walk(id NodeID, fn func(NodeID) bool) {
	if id == NoNode || !fn(id) {
		return
	}
	for _, c := range a.Children(id) {
		a.Walk(c, fn)
	}
}

// Reset returns the arena to empty in O(1), keeping backing storage so
// a worker can reuse one arena across files.
func (a *Arena) Reset() {
	a.kinds = a.kinds[:0]
	a.starts = a.starts[:0]
	a.ends = a.ends[:0]
	a.parents = a.parents[:0]
	a.childStart = a.childStart[:0]
	a.childCount = a.childCount[:0]
	a.children = a.children[:0]
	clear(a.imports)
	clear(a.moduleImports)
	clear(a.names)
	clear(a.literals)
	clear(a.operators)
}
