package rules

import "strings"

// A Doc is a layout description in the Wadler style: text fragments
// composed with groups that render flat when they fit the remaining
// width and break at their soft lines otherwise.
type Doc interface{ isDoc() }

type docText string

type docConcat []Doc

type docGroup struct{ doc Doc }

type docIndent struct {
	by  int
	doc Doc
}

// docLine renders as its flat text inside a fitting group and as a
// newline plus indentation otherwise. A hard line never renders flat.
type docLine struct {
	flat string
	hard bool
}

func (docText) isDoc()   {}
func (docConcat) isDoc() {}
func (docGroup) isDoc()  {}
func (docIndent) isDoc() {}
func (docLine) isDoc()   {}

func Text(s string) Doc          { return docText(s) }
func Concat(docs ...Doc) Doc     { return docConcat(docs) }
func Group(doc Doc) Doc          { return docGroup{doc} }
func Indent(by int, doc Doc) Doc { return docIndent{by, doc} }

// SoftLine is nothing when flat, a line break otherwise.
func SoftLine() Doc { return docLine{flat: ""} }

// Line is a space when flat, a line break otherwise.
func Line() Doc { return docLine{flat: " "} }

// HardLine always breaks.
func HardLine() Doc { return docLine{hard: true} }

// Join interleaves sep between items.
func Join(sep Doc, items []Doc) Doc {
	var out []Doc
	for i, item := range items {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, item)
	}
	return docConcat(out)
}

type renderMode int

const (
	modeFlat renderMode = iota
	modeBreak
)

type renderFrame struct {
	doc    Doc
	indent int
	mode   renderMode
}

// Render lays the document out against the given maximum width. The
// base indent offsets the width accounting for text already emitted on
// the first line.
func Render(doc Doc, maxWidth, baseColumn int) string {
	var sb strings.Builder
	column := baseColumn
	stack := []renderFrame{{doc: doc, mode: modeBreak}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch d := frame.doc.(type) {
		case docText:
			sb.WriteString(string(d))
			column += len(d)
		case docConcat:
			for i := len(d) - 1; i >= 0; i-- {
				stack = append(stack, renderFrame{doc: d[i], indent: frame.indent, mode: frame.mode})
			}
		case docIndent:
			stack = append(stack, renderFrame{doc: d.doc, indent: frame.indent + d.by, mode: frame.mode})
		case docGroup:
			mode := modeFlat
			if !fits(d.doc, maxWidth-column) {
				mode = modeBreak
			}
			stack = append(stack, renderFrame{doc: d.doc, indent: frame.indent, mode: mode})
		case docLine:
			if frame.mode == modeFlat && !d.hard {
				sb.WriteString(d.flat)
				column += len(d.flat)
			} else {
				sb.WriteString("\n")
				sb.WriteString(strings.Repeat(" ", frame.indent))
				column = frame.indent
			}
		}
	}
	return sb.String()
}

// fits reports whether the document's flat rendering fits the
// remaining width. Hard lines never fit flat.
func fits(doc Doc, remaining int) bool {
	if remaining < 0 {
		return false
	}
	stack := []Doc{doc}
	for len(stack) > 0 && remaining >= 0 {
		switch d := stack[len(stack)-1].(type) {
		case docText:
			stack = stack[:len(stack)-1]
			remaining -= len(d)
		case docConcat:
			stack = stack[:len(stack)-1]
			for i := len(d) - 1; i >= 0; i-- {
				stack = append(stack, d[i])
			}
		case docIndent:
			stack[len(stack)-1] = d.doc
		case docGroup:
			stack[len(stack)-1] = d.doc
		case docLine:
			if d.hard {
				return false
			}
			stack = stack[:len(stack)-1]
			remaining -= len(d.flat)
		}
	}
	return remaining >= 0
}
