package transform

import (
	"sort"
	"strings"

	"luajitpro/buffer"
	"luajitpro/token"
)

// spanEdit replaces buffer columns [startCol, endCol) (1-based, as in
// token.Position) on one line with replacement text.
type spanEdit struct {
	startCol int
	endCol   int
	text     string
}

// patchLine applies edits to line, rightmost column first, so an
// earlier (leftmost) edit's column offsets are never invalidated by a
// later edit changing the line's length.
func patchLine(buf *buffer.Buffer, line int, edits []spanEdit) {
	sort.Slice(edits, func(i, j int) bool { return edits[i].startCol > edits[j].startCol })
	content := buf.Line(line)
	for _, e := range edits {
		lo, hi := clamp(content, e.startCol-1), clamp(content, e.endCol-1)
		if lo > hi {
			lo, hi = hi, lo
		}
		content = content[:lo] + e.text + content[hi:]
	}
	buf.SetLine(line, content)
}

func clamp(s string, i int) int {
	if i < 0 {
		return 0
	}
	if i > len(s) {
		return len(s)
	}
	return i
}

// rewriteSpec fully describes one construct's rewrite: the head
// template that replaces the receiver-through-arrow/brace span, the
// optional inline substitution applied to the return/predicate token
// (empty for foreach), and the tail text that replaces the closing
// brace.
type rewriteSpec struct {
	headStart token.Token // receiver, or the construct's leftmost token
	headEnd   token.Token // last token the head text replaces through (arrow, or open brace for Simple)
	headText  string

	bodyStart token.Token // first real body token (padded on multi-line)

	hasReturn  bool // whether returnTok/returnText apply an inline substitution
	returnTok  token.Token
	returnText string

	closeBrace token.Token
	tailText   string
}

// apply performs the single-line or multi-line rewrite described by
// spec against buf.
func apply(buf *buffer.Buffer, spec rewriteSpec) {
	singleLine := spec.headStart.Start.Line == spec.bodyStart.Start.Line &&
		spec.headStart.Start.Line == spec.closeBrace.Start.Line

	if singleLine {
		line := spec.headStart.Start.Line
		edits := []spanEdit{
			{spec.headStart.Start.Column, spec.headEnd.End.Column, spec.headText},
			{spec.closeBrace.Start.Column, spec.closeBrace.End.Column, spec.tailText},
		}
		if spec.hasReturn {
			edits = append(edits, spanEdit{spec.returnTok.Start.Column, spec.returnTok.End.Column, spec.returnText})
		}
		patchLine(buf, line, edits)
		return
	}

	headLine := spec.headStart.Start.Line
	bodyLine := spec.bodyStart.Start.Line
	closeLine := spec.closeBrace.Start.Line

	perLine := map[int][]spanEdit{}
	if bodyLine == headLine {
		perLine[headLine] = append(perLine[headLine], spanEdit{spec.headStart.Start.Column, spec.headEnd.End.Column, spec.headText})
	} else {
		buf.SetLine(headLine, spec.headText)
		buf.KeepSpan(headLine, bodyLine)
		orig := buf.Line(bodyLine)
		col := spec.bodyStart.Start.Column
		buf.SetLine(bodyLine, strings.Repeat(" ", clamp(orig, col-1))+orig[clamp(orig, col-1):])
	}

	perLine[closeLine] = append(perLine[closeLine], spanEdit{spec.closeBrace.Start.Column, spec.closeBrace.End.Column, spec.tailText})
	if spec.hasReturn {
		rline := spec.returnTok.Start.Line
		perLine[rline] = append(perLine[rline], spanEdit{spec.returnTok.Start.Column, spec.returnTok.End.Column, spec.returnText})
	}
	for ln, edits := range perLine {
		patchLine(buf, ln, edits)
	}
}

// applyFull replaces the entire span from start through end (inclusive)
// with a single literal string, used by the Simple shapes whose
// output is a fixed template rather than a derivation of the original
// spacing.
func applyFull(buf *buffer.Buffer, start, end token.Token, text string) {
	if start.Start.Line == end.End.Line {
		patchLine(buf, start.Start.Line, []spanEdit{{start.Start.Column, end.End.Column, text}})
		return
	}
	buf.SetLine(start.Start.Line, text)
	buf.KeepSpan(start.Start.Line, end.End.Line)
	line := end.End.Line
	content := buf.Line(line)
	hi := clamp(content, end.End.Column-1)
	buf.SetLine(line, content[hi:])
}
