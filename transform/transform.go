// Package transform implements the multi-pass, token-positional
// rewriter: one pass per syntactic construct (foreach, map, filter,
// $comp_time, $include), all operating on a shared token stream and
// line buffer (spec §4.D).
package transform

import (
	"luajitpro/buffer"
	"luajitpro/cache"
	"luajitpro/lexer"
	"luajitpro/sidecar"
	"luajitpro/token"
)

// Includer resolves and recursively transforms $include targets. The
// package-search resolution (component G) and the preprocess driver's
// re-entrant A→B→D→E pipeline (component A) both live outside this
// package; Includer is the seam that lets transform stay ignorant of
// either, matching how spec §1 treats the host and its package-search
// mechanism as external collaborators.
type Includer interface {
	// Resolve turns a $include package expression into an absolute
	// path, the way package.searchpath(pkgExpr, package.path) would.
	Resolve(pkgExpr, fromFile string) (string, error)
	// Transform recursively runs the whole pipeline over path and
	// returns its final transformed content (cache-backed).
	Transform(path string) (string, error)
}

// Transformer rewrites one file's token stream and line buffer. It is
// scoped to a single file; its token stream and buffer are discarded
// once the caller has pulled String().
type Transformer struct {
	toks []token.Token
	buf  *buffer.Buffer
	path string
	eval sidecar.Evaluator
	inc  Includer

	// visiting guards $include against cycles (spec §9 flags the
	// original's lack of a visited-set gate as a bug to fix here).
	visiting map[string]bool

	// verbose mirrors LJP_VERBOSE_DO_STRING: when set, runCompTime
	// echoes each $comp_time snippet's returned code through ljplog.
	verbose bool
}

// SetVerbose toggles LJP_VERBOSE_DO_STRING-style echoing of each
// $comp_time snippet's returned code.
func (t *Transformer) SetVerbose(v bool) {
	t.verbose = v
}

// New builds a Transformer over src, tokenizing it immediately.
func New(src, path string, eval sidecar.Evaluator, inc Includer, visiting map[string]bool) *Transformer {
	if visiting == nil {
		visiting = map[string]bool{}
	}
	return &Transformer{
		toks:     lexer.Tokenize(src),
		buf:      buffer.New(src),
		path:     path,
		eval:     eval,
		inc:      inc,
		visiting: visiting,
	}
}

// kindSet is a small membership set over token.Kind, used to restrict
// which constructs a recursive descent is allowed to touch.
type kindSet map[token.Kind]bool

var fullDispatch = kindSet{
	token.Foreach:  true,
	token.Map:      true,
	token.Filter:   true,
	token.CompTime: true,
	token.Include:  true,
}

func only(k token.Kind) kindSet { return kindSet{k: true} }

// Run performs the single top-level dispatch pass over the whole
// token stream and returns the transformed source (buffer.String()).
func (t *Transformer) Run() (string, error) {
	if err := t.dispatchRange(0, len(t.toks), fullDispatch); err != nil {
		return "", err
	}
	return t.buf.String(), nil
}

// dispatchRange scans toks[lo:hi) in order, invoking the matching
// pass for any token kind present in allowed. Each pass reports how
// far it consumed (past its construct's closing brace); dispatchRange
// resumes scanning from there rather than re-entering already-handled
// territory, so a non-recursed-into inner construct (e.g. a foreach
// nested directly inside a map, which map's own-pass-only recursion
// does not recurse into) is left as literal, untouched source — the
// deliberate asymmetry spec §4.D.1 and §9 call out.
func (t *Transformer) dispatchRange(lo, hi int, allowed kindSet) error {
	i := lo
	for i < hi {
		kind := t.toks[i].Kind
		if !allowed[kind] {
			i++
			continue
		}
		var (
			next int
			err  error
		)
		switch kind {
		case token.Foreach:
			next, err = t.runForeach(i)
		case token.Map:
			next, err = t.runMap(i)
		case token.Filter:
			next, err = t.runFilter(i)
		case token.CompTime:
			next, err = t.runCompTime(i)
		case token.Include:
			next, err = t.runInclude(i)
		default:
			next = i + 1
		}
		if err != nil {
			return err
		}
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return nil
}

// TokenizeOnly exposes the shared lexer for callers that want to
// report a pre-flight token count without running a transform.
func TokenizeOnly(src string) []token.Token {
	return lexer.Tokenize(src)
}

// CacheKeyed is a convenience wrapper gluing a Transformer's output
// into a *cache.Cache under path. Nothing in this module calls it;
// loader.Pipeline registers its output with cache.Register directly.
func CacheKeyed(c *cache.Cache, path, content string) error {
	return c.Register(path, content)
}
