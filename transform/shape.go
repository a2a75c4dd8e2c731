package transform

import (
	"luajitpro/errs"
	"luajitpro/token"
)

// shape is the recognized syntactic form of a foreach/map/filter
// construct (spec §4.D.1–3's four-shape table, shared across all
// three collection passes).
type shape int

const (
	shapePlain        shape = iota // T.kw{ x => BODY }
	shapeSimple                    // T.kw{ F }
	shapeSuffixZip                 // T.kw.zipWithIndex{ (x, i) => BODY }
	shapePrefixZip                 // T.zipWithIndex.kw{ (i, x) => BODY }
)

// construct captures everything a collection pass needs to know about
// one recognized T.foreach/map/filter{...} occurrence.
type construct struct {
	shape    shape
	receiver token.Token // the identifier immediately before the chain
	keyword  token.Token // the foreach/map/filter token itself

	// elemName/idxName are the bound loop variable names. idxName is
	// "" for shapePlain/shapeSimple.
	elemName string
	idxName  string

	// funcRef is set only for shapeSimple: the identifier used as a
	// function reference.
	funcRef token.Token

	// arrow is the `=>` token, set for shapePlain/shapeSuffixZip/shapePrefixZip.
	arrow token.Token

	openBrace  token.Token
	closeBrace token.Token
	bodyStart  token.Token // first token of the body (or funcRef for Simple)
}

// classify recognizes the construct whose keyword token sits at
// position kwPos in toks, per spec §4.D's two-before/two-after rule.
func classify(toks []token.Token, kwPos int, path string) (*construct, error) {
	kw := toks[kwPos]

	if kwPos < 2 || toks[kwPos-1].Kind != token.Symbol || toks[kwPos-1].Lexeme != "." {
		return nil, errs.At(errs.UnexpectedToken, path, kw.Start.Line, kw.Start.Column,
			"expected receiver '.' before "+kw.Kind.String())
	}

	c := &construct{keyword: kw}
	twoBefore := toks[kwPos-2]

	switch twoBefore.Kind {
	case token.Identifier:
		c.receiver = twoBefore
		// Either T.kw{...} directly, or T.kw.zipWithIndex{...}.
		next := kwPos + 1
		if toks[next].Kind == token.Symbol && toks[next].Lexeme == "." &&
			toks[next+1].Kind == token.ZipWithIndex {
			c.shape = shapeSuffixZip
			braceIdx := next + 2
			if toks[braceIdx].Kind != token.Symbol || toks[braceIdx].Lexeme != "{" {
				return nil, errs.At(errs.UnexpectedToken, path, toks[braceIdx].Start.Line, toks[braceIdx].Start.Column, "expected '{' after zipWithIndex")
			}
			c.openBrace = toks[braceIdx]
		} else {
			if toks[next].Kind != token.Symbol || toks[next].Lexeme != "{" {
				return nil, errs.At(errs.UnexpectedToken, path, toks[next].Start.Line, toks[next].Start.Column, "expected '{' after "+kw.Kind.String())
			}
			c.openBrace = toks[next]
		}
	case token.ZipWithIndex:
		// T.zipWithIndex.kw{...}
		if kwPos < 4 || toks[kwPos-3].Kind != token.Symbol || toks[kwPos-3].Lexeme != "." ||
			toks[kwPos-4].Kind != token.Identifier {
			return nil, errs.At(errs.UnexpectedToken, path, kw.Start.Line, kw.Start.Column, "expected identifier.zipWithIndex before "+kw.Kind.String())
		}
		c.receiver = toks[kwPos-4]
		c.shape = shapePrefixZip
		braceIdx := kwPos + 1
		if toks[braceIdx].Kind != token.Symbol || toks[braceIdx].Lexeme != "{" {
			return nil, errs.At(errs.UnexpectedToken, path, toks[braceIdx].Start.Line, toks[braceIdx].Start.Column, "expected '{' after "+kw.Kind.String())
		}
		c.openBrace = toks[braceIdx]
	default:
		return nil, errs.At(errs.UnexpectedToken, path, kw.Start.Line, kw.Start.Column,
			"unexpected token before "+kw.Kind.String())
	}

	closeIdx, err := matchBrace(toks, indexOf(toks, c.openBrace), path)
	if err != nil {
		return nil, err
	}
	c.closeBrace = toks[closeIdx]

	first := toks[indexOf(toks, c.openBrace)+1]

	switch c.shape {
	case shapeSuffixZip, shapePrefixZip:
		if err := c.bindZipParams(toks, indexOf(toks, c.openBrace), path); err != nil {
			return nil, err
		}
	default:
		// Plain or Simple: first content token after '{' is always an
		// Identifier (lambda param, or the Simple function reference).
		if first.Kind != token.Identifier {
			return nil, errs.At(errs.UnexpectedToken, path, first.Start.Line, first.Start.Column, "expected identifier after '{'")
		}
		openIdx := indexOf(toks, c.openBrace)
		second := toks[openIdx+2]
		switch {
		case second.Kind == token.Symbol && second.Lexeme == "}":
			// T.kw{ F } — Simple shape.
			c.shape = shapeSimple
			c.funcRef = first
			c.bodyStart = first
		case second.Kind == token.Symbol && second.Lexeme == "=>":
			c.shape = shapePlain
			c.elemName = first.Lexeme
			c.arrow = second
			c.bodyStart = toks[openIdx+3]
		default:
			return nil, errs.At(errs.UnexpectedToken, path, second.Start.Line, second.Start.Column, "expected '=>' or '}' after identifier")
		}
	}

	return c, nil
}

// bindZipParams parses the "( a , b )" parameter list following a
// zip-variant's open brace and binds elemName/idxName according to
// whether this is the suffix (x, i) or prefix (i, x) ordering.
func (c *construct) bindZipParams(toks []token.Token, openIdx int, path string) error {
	lp := toks[openIdx+1]
	if lp.Kind != token.Symbol || lp.Lexeme != "(" {
		return errs.At(errs.UnexpectedToken, path, lp.Start.Line, lp.Start.Column, "expected '(' in zipWithIndex parameter list")
	}
	a := toks[openIdx+2]
	comma := toks[openIdx+3]
	b := toks[openIdx+4]
	rp := toks[openIdx+5]
	arrow := toks[openIdx+6]
	if a.Kind != token.Identifier || comma.Lexeme != "," || b.Kind != token.Identifier ||
		rp.Lexeme != ")" || arrow.Lexeme != "=>" {
		return errs.At(errs.UnexpectedToken, path, lp.Start.Line, lp.Start.Column, "malformed zipWithIndex parameter list")
	}
	if c.shape == shapeSuffixZip {
		c.elemName, c.idxName = a.Lexeme, b.Lexeme // (x, i)
	} else {
		c.idxName, c.elemName = a.Lexeme, b.Lexeme // (i, x)
	}
	c.arrow = arrow
	c.bodyStart = toks[openIdx+7]
	return nil
}

// matchBrace scans forward from openIdx (pointing at a '{' token) and
// returns the index of its matching '}' by simple depth counting.
// EOF before the count returns to zero is a fatal UnmatchedBrace.
func matchBrace(toks []token.Token, openIdx int, path string) (int, error) {
	depth := 0
	for i := openIdx; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == token.EOF {
			return 0, errs.At(errs.UnmatchedBrace, path, toks[openIdx].Start.Line, toks[openIdx].Start.Column, "unterminated brace")
		}
		if t.Kind == token.Symbol && t.Lexeme == "{" {
			depth++
		}
		if t.Kind == token.Symbol && t.Lexeme == "}" {
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, errs.At(errs.UnmatchedBrace, path, toks[openIdx].Start.Line, toks[openIdx].Start.Column, "unterminated brace")
}

// indexOf finds t's position in toks by its global sequential Index,
// which equals its slice position since Tokenize assigns indices in
// order with no gaps.
func indexOf(toks []token.Token, t token.Token) int {
	return t.Index
}

// findAssignment looks immediately before a map/filter construct's
// receiver for the "R =" assignment target spec.md §4.D.2/3 requires
// ("R = T.map{...}"), returning the target identifier token.
func findAssignment(toks []token.Token, receiverIdx int, path string) (token.Token, error) {
	if receiverIdx < 2 {
		return token.Token{}, errs.At(errs.UnexpectedToken, path, toks[receiverIdx].Start.Line, toks[receiverIdx].Start.Column, "expected 'R =' before map/filter receiver")
	}
	eq := toks[receiverIdx-1]
	target := toks[receiverIdx-2]
	if eq.Kind != token.Symbol || eq.Lexeme != "=" || target.Kind != token.Identifier {
		return token.Token{}, errs.At(errs.UnexpectedToken, path, toks[receiverIdx].Start.Line, toks[receiverIdx].Start.Column, "expected 'R =' before map/filter receiver")
	}
	return target, nil
}

// findReturn locates the innermost Return token directly owned by the
// block spanning (openIdx, closeIdx) — one at brace-depth 0 relative
// to the block's own interior, so a nested same-kind construct's own
// return is never mistaken for the outer one.
func findReturn(toks []token.Token, openIdx, closeIdx int) (token.Token, bool) {
	depth := 0
	for i := openIdx + 1; i < closeIdx; i++ {
		t := toks[i]
		if t.Kind == token.Symbol && t.Lexeme == "{" {
			depth++
			continue
		}
		if t.Kind == token.Symbol && t.Lexeme == "}" {
			depth--
			continue
		}
		if depth == 0 && t.Kind == token.Return {
			return t, true
		}
	}
	return token.Token{}, false
}
