package transform

import (
	"fmt"

	"luajitpro/buffer"
)

// runForeach recognizes and rewrites the foreach construct whose
// keyword token sits at kwPos, recursing into its interior with the
// full pass set before mutating (spec §4.D.1 and the foreach-nesting
// half of P-N).
func (t *Transformer) runForeach(kwPos int) (int, error) {
	c, err := classify(t.toks, kwPos, t.path)
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
		if err := t.dispatchRange(c.bodyStart.Index, closeIdx, fullDispatch); err != nil {
			return 0, err
		}
	}

	if t.buf.IsReplaced(span) {
		return closeIdx + 1, nil
	}

	switch c.shape {
	case shapeSimple:
		text := fmt.Sprintf("for _, ref in ipairs(%s) do %s(ref) end", c.receiver.Lexeme, c.funcRef.Lexeme)
		applyFull(t.buf, c.receiver, c.closeBrace, text)
	default:
		idx := "_"
		if c.idxName != "" {
			idx = c.idxName
		}
		head := fmt.Sprintf("for %s, %s in ipairs(%s) do", idx, c.elemName, c.receiver.Lexeme)
		apply(t.buf, rewriteSpec{
			headStart:  c.receiver,
			headEnd:    c.arrow,
			headText:   head,
			bodyStart:  c.bodyStart,
			closeBrace: c.closeBrace,
			tailText:   "end",
		})
	}

	t.buf.MarkReplaced(span)
	return closeIdx + 1, nil
}
