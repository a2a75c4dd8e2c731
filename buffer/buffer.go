// Package buffer holds the mutable line buffer that transform passes
// rewrite in place, plus the positional helpers and dedup sets used
// to keep rewrites line-preserving and idempotent (spec §3, §4.C).
package buffer

import (
	"strings"

	"luajitpro/token"
)

// LineKeeper is spliced into any source line consumed by a multi-line
// construct other than its body-start line, to preserve line count.
const LineKeeper = "--[[line keeper]]"

// Span identifies a (line, column) pair. Dedup sets key on the pair,
// never on line or column alone — keying on either independently is
// the "latent bug" spec.md §9 calls out in the original, and this
// implementation deliberately avoids it.
type Span struct {
	Line   int
	Column int
}

// Buffer is an ordered, 1-indexed sequence of source lines, mutated in
// place by transform passes. No token is ever deleted from the token
// stream; only buffer contents change.
type Buffer struct {
	lines []string // lines[0] unused; lines[i] is line i

	processed map[Span]bool
	replaced  map[Span]bool
}

// New splits src on '\n' and wraps it in a 1-indexed Buffer.
func New(src string) *Buffer {
	raw := strings.Split(src, "\n")
	lines := make([]string, len(raw)+1)
	copy(lines[1:], raw)
	return &Buffer{
		lines:     lines,
		processed: make(map[Span]bool),
		replaced:  make(map[Span]bool),
	}
}

// Len returns the number of source lines (not counting the unused
// sentinel slot 0).
func (b *Buffer) Len() int {
	return len(b.lines) - 1
}

// Line returns the content of 1-indexed line n.
func (b *Buffer) Line(n int) string {
	if n < 1 || n >= len(b.lines) {
		return ""
	}
	return b.lines[n]
}

// SetLine overwrites 1-indexed line n in place.
func (b *Buffer) SetLine(n int, content string) {
	if n < 1 || n >= len(b.lines) {
		return
	}
	b.lines[n] = content
}

// Keep replaces 1-indexed line n with the line-keeper sentinel,
// preserving line count while discarding the line's source text.
func (b *Buffer) Keep(n int) {
	b.SetLine(n, LineKeeper)
}

// String reassembles the buffer into a single '\n'-joined string.
func (b *Buffer) String() string {
	return strings.Join(b.lines[1:], "\n")
}

// MarkProcessed records that the construct rooted at span has been
// recognized, so nested recursion skips re-recognizing it (invariant
// 2: set before any recursive descent).
func (b *Buffer) MarkProcessed(s Span) {
	b.processed[s] = true
}

// IsProcessed reports whether span has already been recognized.
func (b *Buffer) IsProcessed(s Span) bool {
	return b.processed[s]
}

// MarkReplaced records that span's line buffer has been mutated.
func (b *Buffer) MarkReplaced(s Span) {
	b.replaced[s] = true
}

// IsReplaced reports whether span has already been mutated. Every
// mutation must check this first (invariant 3: at most one mutation
// per outer span).
func (b *Buffer) IsReplaced(s Span) bool {
	return b.replaced[s]
}

// SpanOf returns the dedup key for a token's start position.
func SpanOf(t token.Token) Span {
	return Span{Line: t.Start.Line, Column: t.Start.Column}
}

// GetContentBetween returns the text running from the end of a's span
// to the start of b's span, read directly from the (possibly already
// mutated) line buffer. When a and b share a line this is a simple
// substring; when they don't, the interior lines are joined on '\n'.
func (b *Buffer) GetContentBetween(a, bTok token.Token) string {
	startLine, startCol := a.End.Line, a.End.Column
	endLine, endCol := bTok.Start.Line, bTok.Start.Column

	if startLine == endLine {
		line := b.Line(startLine)
		lo, hi := clampCol(line, startCol-1), clampCol(line, endCol-1)
		if lo > hi {
			return ""
		}
		return line[lo:hi]
	}

	var sb strings.Builder
	first := b.Line(startLine)
	lo := clampCol(first, startCol-1)
	sb.WriteString(first[lo:])
	for ln := startLine + 1; ln < endLine; ln++ {
		sb.WriteString("\n")
		sb.WriteString(b.Line(ln))
	}
	sb.WriteString("\n")
	last := b.Line(endLine)
	hi := clampCol(last, endCol-1)
	sb.WriteString(last[:hi])
	return sb.String()
}

func clampCol(line string, col int) int {
	if col < 0 {
		return 0
	}
	if col > len(line) {
		return len(line)
	}
	return col
}

// KeepSpan replaces every line strictly between start and end with the
// line-keeper sentinel, leaving start and end themselves untouched for
// the caller to rewrite directly. Used whenever a construct spans more
// than two source lines.
func (b *Buffer) KeepSpan(start, end int) {
	for ln := start + 1; ln < end; ln++ {
		b.Keep(ln)
	}
}

// PadBodyStart prepends n spaces to line's existing content, used to
// preserve original column positions inside a lambda body when the
// construct's head line was rewritten onto a shorter prologue.
func (b *Buffer) PadBodyStart(line, n int) {
	if n <= 0 {
		return
	}
	b.SetLine(line, strings.Repeat(" ", n)+b.Line(line))
}
