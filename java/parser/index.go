package parser

import "sort"

// PositionIndex provides spatial and by-kind lookup over a completed
// arena plus line/column mapping over the source. It is built in a
// single walk and is read-only afterwards, so it shares freely across
// goroutines.
type PositionIndex struct {
	arena  *Arena
	root   NodeID
	byKind map[NodeKind][]NodeID

	// lineOffsets holds the byte offset of each line start, ascending;
	// lineOffsets[0] is always 0.
	lineOffsets []int32
}

// NewPositionIndex walks the reachable nodes under root once and scans
// the source for line starts. A \r\n sequence counts as one
// terminator.
func NewPositionIndex(arena *Arena, root NodeID, source []byte) *PositionIndex {
	idx := &PositionIndex{
		arena:  arena,
		root:   root,
		byKind: make(map[NodeKind][]NodeID),
	}

	arena.Walk(root, func(id NodeID) bool {
		idx.byKind[arena.Kind(id)] = append(idx.byKind[arena.Kind(id)], id)
		return true
	})
	// Wrapper nodes (binary chains, array types) are allocated after
	// their first child yet share its start; order each bucket by
	// position, outermost first.
	for _, ids := range idx.byKind {
		sort.SliceStable(ids, func(i, j int) bool {
			if arena.Start(ids[i]) != arena.Start(ids[j]) {
				return arena.Start(ids[i]) < arena.Start(ids[j])
			}
			return arena.End(ids[i]) > arena.End(ids[j])
		})
	}

	idx.lineOffsets = scanLineOffsets(source)
	return idx
}

func scanLineOffsets(source []byte) []int32 {
	offsets := []int32{0}
	for i, b := range source {
		if b == '\n' {
			offsets = append(offsets, int32(i)+1)
		}
	}
	return offsets
}

// NodesByKind returns every reachable node of the given kind in source
// order. The slice is shared; callers must not mutate it.
func (idx *PositionIndex) NodesByKind(kind NodeKind) []NodeID {
	return idx.byKind[kind]
}

// NodeAt returns the deepest node whose range contains offset, or
// NoNode when offset lies outside the root.
func (idx *PositionIndex) NodeAt(offset int32) NodeID {
	a := idx.arena
	if idx.root == NoNode || offset < a.Start(idx.root) || offset >= a.End(idx.root) {
		return NoNode
	}
	node := idx.root
	for {
		kids := a.Children(node)
		// Children are in non-decreasing start order; binary search
		// for the last child starting at or before offset, then walk
		// left over zero-width siblings.
		lo := sort.Search(len(kids), func(i int) bool {
			return a.Start(kids[i]) > offset
		})
		descended := false
		for i := lo - 1; i >= 0; i-- {
			c := kids[i]
			if a.Start(c) <= offset && offset < a.End(c) {
				node = c
				descended = true
				break
			}
			if a.End(c) <= offset {
				break
			}
		}
		if !descended {
			return node
		}
	}
}

// LineCount reports the number of lines in the source.
func (idx *PositionIndex) LineCount() int {
	return len(idx.lineOffsets)
}

// LineOf returns the 1-based line containing the byte offset.
func (idx *PositionIndex) LineOf(offset int32) int {
	line := sort.Search(len(idx.lineOffsets), func(i int) bool {
		return idx.lineOffsets[i] > offset
	})
	return line
}

// ColumnOf returns the 1-based column of the byte offset, counting
// bytes (not code points) per Java source convention.
func (idx *PositionIndex) ColumnOf(offset int32) int {
	line := idx.LineOf(offset)
	return int(offset-idx.lineOffsets[line-1]) + 1
}

// LineStart returns the byte offset of the given 1-based line.
func (idx *PositionIndex) LineStart(line int) int32 {
	return idx.lineOffsets[line-1]
}
