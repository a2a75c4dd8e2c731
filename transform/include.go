package transform

import (
	"strings"

	"luajitpro/buffer"
	"luajitpro/errs"
	"luajitpro/token"
)

// runInclude recognizes $include(EXPR), resolves EXPR through the
// Includer, recursively transforms the target file, strips its Lua
// comments, and splices the result back as a single line (spec §4.D.5).
// EXPR is not evaluated: its text has surrounding quotes trimmed and is
// taken literally as the module name.
// t.visiting guards against resolving into a file already on the
// current inclusion chain, the cycle gate spec §9 flags the original
// as missing.
func (t *Transformer) runInclude(kwPos int) (int, error) {
	kw := t.toks[kwPos]

	openIdx := kwPos + 1
	if openIdx >= len(t.toks) || t.toks[openIdx].Lexeme != "(" {
		return 0, errs.At(errs.UnexpectedToken, t.path, kw.Start.Line, kw.Start.Column, "expected '(' after $include")
	}
	open := t.toks[openIdx]

	closeIdx, err := matchParen(t.toks, openIdx, t.path)
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

	exprText := strings.TrimSpace(t.buf.GetContentBetween(open, closeTok))
	exprText = strings.Trim(exprText, `"'`)

	resolved, err := t.inc.Resolve(exprText, t.path)
	if err != nil {
		return 0, err
	}

	if t.visiting[resolved] {
		return 0, errs.At(errs.UnexpectedToken, t.path, kw.Start.Line, kw.Start.Column, "circular $include of "+resolved)
	}
	t.visiting[resolved] = true
	content, err := t.inc.Transform(resolved)
	delete(t.visiting, resolved)
	if err != nil {
		return 0, err
	}

	var oneLiner string
	if strings.TrimSpace(content) == "" {
		oneLiner = "--[[include file error or empty]]"
	} else {
		oneLiner = collapseToOneLine(stripLuaComments(content))
	}

	if kw.Start.Line == closeTok.Start.Line {
		patchLine(t.buf, kw.Start.Line, []spanEdit{{kw.Start.Column, closeTok.End.Column, oneLiner}})
	} else {
		line := t.buf.Line(kw.Start.Line)
		prefix := line[:clamp(line, kw.Start.Column-1)]
		t.buf.SetLine(kw.Start.Line, prefix+oneLiner)
		t.buf.KeepSpan(kw.Start.Line, closeTok.Start.Line)
		closeLine := t.buf.Line(closeTok.Start.Line)
		t.buf.SetLine(closeTok.Start.Line, closeLine[clamp(closeLine, closeTok.End.Column-1):])
	}

	t.buf.MarkReplaced(span)
	return closeIdx + 1, nil
}

// matchParen mirrors matchBrace for '(' / ')' depth counting.
func matchParen(toks []token.Token, openIdx int, path string) (int, error) {
	depth := 0
	for i := openIdx; i < len(toks); i++ {
		tk := toks[i]
		if tk.Kind == token.EOF {
			break
		}
		if tk.Lexeme == "(" {
			depth++
		}
		if tk.Lexeme == ")" {
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	start := toks[openIdx]
	return 0, errs.At(errs.UnmatchedBrace, path, start.Start.Line, start.Start.Column, "unterminated '(' in $include")
}

// stripLuaComments replaces each Lua line (--...) or block (--[[...]])
// comment in s with a single space, leaving the surrounding code and
// every line break outside a block comment intact (a block comment's
// own line breaks go with it). A space rather than an empty string stands
// in for the removed comment so a comment sitting flush against
// adjacent code never fuses two tokens together once the lines are
// later collapsed.
func stripLuaComments(s string) string {
	var out strings.Builder
	n := len(s)
	i := 0
	for i < n {
		if i+1 < n && s[i] == '-' && s[i+1] == '-' {
			if i+3 < n && s[i+2] == '[' && s[i+3] == '[' {
				j := i + 4
				for j+1 < n && !(s[j] == ']' && s[j+1] == ']') {
					j++
				}
				i = j + 2
				out.WriteByte(' ')
				continue
			}
			j := i
			for j < n && s[j] != '\n' {
				j++
			}
			i = j
			out.WriteByte(' ')
			continue
		}
		out.WriteByte(s[i])
		i++
	}
	return out.String()
}

// collapseToOneLine joins s's lines on single spaces, verbatim and
// unfiltered, used to splice an included file's whole content onto the
// single line the $include call previously occupied.
func collapseToOneLine(s string) string {
	return strings.Join(strings.Split(s, "\n"), " ")
}
