package rules

import (
	"sort"

	"github.com/dhamidi/styler/java/parser"
)

// sourceLine is one physical line of the input, newline excluded.
// Start is the byte offset of the first character; End points at the
// terminator (or EOF).
type sourceLine struct {
	Start int32
	End   int32
}

func (l sourceLine) text(source []byte) string {
	return string(source[l.Start:l.End])
}

func splitLines(source []byte) []sourceLine {
	var lines []sourceLine
	start := int32(0)
	for i, b := range source {
		if b == '\n' {
			end := int32(i)
			if end > start && source[end-1] == '\r' {
				end--
			}
			lines = append(lines, sourceLine{Start: start, End: end})
			start = int32(i) + 1
		}
	}
	lines = append(lines, sourceLine{Start: start, End: int32(len(source))})
	return lines
}

// firstNonBlank returns the offset of the line's first non-blank byte,
// or -1 for a blank line.
func firstNonBlank(source []byte, line sourceLine) int32 {
	for i := line.Start; i < line.End; i++ {
		if source[i] != ' ' && source[i] != '\t' {
			return i
		}
	}
	return -1
}

// leadingWhitespace returns the line's whitespace prefix.
func leadingWhitespace(source []byte, line sourceLine) string {
	i := line.Start
	for i < line.End && (source[i] == ' ' || source[i] == '\t') {
		i++
	}
	return string(source[line.Start:i])
}

// mergeTokens interleaves code tokens and comment tokens by offset.
// The EOF terminator is dropped.
func mergeTokens(tokens, comments []parser.Token) []parser.Token {
	merged := make([]parser.Token, 0, len(tokens)+len(comments))
	for _, t := range tokens {
		if t.Kind != parser.TokenEOF {
			merged = append(merged, t)
		}
	}
	merged = append(merged, comments...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start < merged[j].Start
	})
	return merged
}

// tokenCovering returns the merged token containing the offset, if
// any. Used to detect offsets inside text blocks and block comments,
// which formatting must leave verbatim.
func tokenCovering(merged []parser.Token, offset int32) (parser.Token, bool) {
	i := sort.Search(len(merged), func(i int) bool {
		return merged[i].Start > offset
	})
	if i == 0 {
		return parser.Token{}, false
	}
	tok := merged[i-1]
	if offset >= tok.Start && offset < tok.End {
		return tok, true
	}
	return parser.Token{}, false
}

// applyEdits replaces the given ranges, which must be non-overlapping,
// in one pass.
func applyEdits(source []byte, edits []TextEdit) string {
	if len(edits) == 0 {
		return string(source)
	}
	sorted := make([]TextEdit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []byte
	pos := int32(0)
	for _, e := range sorted {
		out = append(out, source[pos:e.Start]...)
		out = append(out, e.NewText...)
		pos = e.End
	}
	out = append(out, source[pos:]...)
	return string(out)
}

// expandedWidth counts display columns with tabs expanded to the next
// tab stop.
func expandedWidth(line string, tabWidth int) int {
	width := 0
	for _, b := range []byte(line) {
		if b == '\t' {
			width += tabWidth - width%tabWidth
		} else {
			width++
		}
	}
	return width
}
