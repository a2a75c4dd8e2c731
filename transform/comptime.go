package transform

import (
	"fmt"

	"luajitpro/buffer"
	"luajitpro/errs"
	"luajitpro/ljplog"
	"luajitpro/token"
)

// runCompTime recognizes `$comp_time` optionally followed by `(name)`,
// then a braced body, hands the body to the sidecar evaluator, and
// splices the evaluated result back in place of the construct (spec
// §4.D.4). The body is never itself dispatched back through this
// package: it runs in the sidecar, not in luajitpro's own token stream.
func (t *Transformer) runCompTime(kwPos int) (int, error) {
	kw := t.toks[kwPos]

	next := kwPos + 1
	name := "Unknown"
	if next < len(t.toks) && t.toks[next].Lexeme == "(" {
		ident := t.toks[next+1]
		rp := t.toks[next+2]
		if ident.Kind != token.Identifier || rp.Lexeme != ")" {
			return 0, errs.At(errs.UnexpectedToken, t.path, ident.Start.Line, ident.Start.Column, "expected a single identifier in $comp_time(...)")
		}
		name = ident.Lexeme
		next += 3
	}

	if next >= len(t.toks) || t.toks[next].Lexeme != "{" {
		return 0, errs.At(errs.UnexpectedToken, t.path, kw.Start.Line, kw.Start.Column, "expected '{' after $comp_time")
	}
	open := t.toks[next]

	closeIdx, err := matchBrace(t.toks, next, t.path)
	if err != nil {
		return 0, err
	}
	closeTok := t.toks[closeIdx]

	span := buffer.SpanOf(kw)
	if t.buf.IsProcessed(span) {
		return closeIdx + 1, nil
	}
	t.buf.MarkProcessed(span)
	if t.buf.IsReplaced(span) {
		return closeIdx + 1, nil
	}

	tag := fmt.Sprintf("%s/compTime/%s:%d", t.path, name, kw.Start.Line)

	body := t.buf.GetContentBetween(open, closeTok)
	result, err := t.eval.Eval(tag, body)
	if err != nil {
		return 0, err
	}
	if t.verbose {
		ljplog.CompTimeEval(tag, result)
	}

	insertion := "--[[comp_time]]" + result

	if kw.Start.Line == closeTok.Start.Line {
		patchLine(t.buf, kw.Start.Line, []spanEdit{{kw.Start.Column, closeTok.End.Column, insertion}})
	} else {
		line := t.buf.Line(kw.Start.Line)
		prefix := line[:clamp(line, kw.Start.Column-1)]
		t.buf.SetLine(kw.Start.Line, prefix+insertion)
		t.buf.KeepSpan(kw.Start.Line, closeTok.Start.Line)
		closeLine := t.buf.Line(closeTok.Start.Line)
		t.buf.SetLine(closeTok.Start.Line, closeLine[clamp(closeLine, closeTok.End.Column-1):])
	}

	t.buf.MarkReplaced(span)
	return closeIdx + 1, nil
}
