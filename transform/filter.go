package transform

import (
	"fmt"

	"luajitpro/buffer"
	"luajitpro/errs"
	"luajitpro/token"
)

// runFilter recognizes and rewrites the filter construct whose keyword
// token sits at kwPos. Recursion is restricted to filter's own kind
// only, mirroring runMap (spec §4.D.3).
func (t *Transformer) runFilter(kwPos int) (int, error) {
	c, err := classify(t.toks, kwPos, t.path)
	if err != nil {
		return 0, err
	}

	target, err := findAssignment(t.toks, c.receiver.Index, t.path)
	if err != nil {
		return 0, err
	}

	span := buffer.SpanOf(c.receiver)
	closeIdx := c.closeBrace.Index

	if t.buf.IsProcessed(span) {
		return closeIdx + 1, nil
	}
	t.buf.MarkProcessed(span)

	if c.shape != shapeSimple {
		if err := t.dispatchRange(c.bodyStart.Index, closeIdx, only(token.Filter)); err != nil {
			return 0, err
		}
	}

	if t.buf.IsReplaced(span) {
		return closeIdx + 1, nil
	}

	switch c.shape {
	case shapeSimple:
		text := fmt.Sprintf("%s = {}; for _, ref in ipairs(%s) do if %s(ref) then _tinsert(%s, ref) end end", target.Lexeme, c.receiver.Lexeme, c.funcRef.Lexeme, target.Lexeme)
		applyFull(t.buf, target, c.closeBrace, text)
	default:
		openIdx := c.openBrace.Index
		retTok, ok := findReturn(t.toks, openIdx, closeIdx)
		if !ok {
			return 0, errs.At(errs.MissingReturn, t.path, c.keyword.Start.Line, c.keyword.Start.Column, "filter body has no return")
		}
		idx := "_"
		if c.idxName != "" {
			idx = c.idxName
		}
		head := fmt.Sprintf("%s = {}; for %s, %s in ipairs(%s) do ", target.Lexeme, idx, c.elemName, c.receiver.Lexeme)
		apply(t.buf, rewriteSpec{
			headStart:  target,
			headEnd:    c.arrow,
			headText:   head,
			bodyStart:  c.bodyStart,
			hasReturn:  true,
			returnTok:  retTok,
			returnText: "if",
			closeBrace: c.closeBrace,
			tailText:   fmt.Sprintf(" then _tinsert(%s, %s) end end", target.Lexeme, c.elemName),
		})
	}

	t.buf.MarkReplaced(span)
	return closeIdx + 1, nil
}
