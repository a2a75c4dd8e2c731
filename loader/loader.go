// Package loader implements the host-facing half of the pipeline:
// component F, a pull-based reader adapter that streams either raw or
// transformed bytes depending on first-access sentinel detection; and
// component G, a package searcher that extends host module resolution
// with the transform's companion suffixes. Both are grounded on the
// teacher's per-connection, mutex-guarded state in server/connection.go
// — here scoped to one open load instead of one socket.
package loader

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"luajitpro/cache"
	"luajitpro/config"
	"luajitpro/errs"
	"luajitpro/preprocess"
	"luajitpro/transform"
)

// Pipeline is the concrete A->B->D->E glue a Reader needs to populate
// the cache for a path: preprocess, tokenize/transform, register.
// Inc is the transform.Includer handed to every Transformer the
// pipeline builds; callers (cmd/luajitpro, the tests) set it to a
// Searcher over the same Pipeline, whose Transform calls back into
// Pipeline.Run.
type Pipeline struct {
	Cache  *cache.Cache
	Config *config.Settings
	Eval   transformEvaluator
	Inc    transform.Includer

	// visiting is shared by every Transformer this pipeline builds, so
	// the $include cycle check sees the whole inclusion chain across
	// recursive Run calls.
	visiting map[string]bool
}

// transformEvaluator is the narrow slice of sidecar.Evaluator Pipeline
// needs, kept local so loader doesn't need to import sidecar just to
// name the type.
type transformEvaluator interface {
	Eval(tag, src string) (string, error)
}

// Run executes the whole pipeline for path: preprocess, transform,
// register with the cache, and return the final transformed text. A
// MissingSentinel error from preprocess is returned as is; cmd/luajitpro
// and Searcher.Transform treat it as "use the raw bytes instead", and
// Reader only calls Run once it has seen the sentinel itself.
func (p *Pipeline) Run(path string) (string, error) {
	if content, ok := p.Cache.Content(path); ok {
		return content, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errs.Wrap(errs.CannotOpen, path, err)
	}
	return p.RunSource(path, string(data))
}

// RunSource is Run's core, taking source text directly so $include can
// hand in content it already has in hand (e.g. from a prior cache
// registration) without a redundant disk read.
func (p *Pipeline) RunSource(path, src string) (string, error) {
	pre, err := preprocess.RunSource(path, src, p.Config)
	if err != nil {
		return "", err
	}
	if err := p.Cache.RegisterProcessed(path, pre.Text); err != nil {
		return "", err
	}

	if p.visiting == nil {
		p.visiting = map[string]bool{}
	}
	tf := transform.New(pre.Text, path, p.Eval, p.Inc, p.visiting)
	tf.SetVerbose(p.Config.VerboseDoString)
	out, err := tf.Run()
	if err != nil {
		return "", err
	}

	if err := p.Cache.Register(path, out); err != nil {
		return "", err
	}

	// GenOnly mirrors the original Rust implementation's build-cache
	// mode (original_source/src/lib.rs:298-303): the artifact is
	// written and the cache entry populated for $include to find, but
	// the caller gets nothing back.
	if p.Config.GenOnly {
		return "", nil
	}
	return out, nil
}

// Reader implements the host's pull-based reader contract (spec §6):
// a reader callback that streams bytes until it returns a zero-length
// read, at which point the host treats it as EOF. State is scoped to
// one open load, mirroring server.Connection's one-state-per-socket
// shape.
type Reader struct {
	mu sync.Mutex

	path    string
	file    *os.File
	native  *bufio.Reader
	pipe    *Pipeline

	firstAccess bool
	transformed bool
}

// NewReader opens path and returns a Reader ready for its first pull.
func NewReader(path string, pipe *Pipeline) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.CannotOpen, path, err)
	}
	return &Reader{
		path:        path,
		file:        f,
		native:      bufio.NewReader(f),
		pipe:        pipe,
		firstAccess: true,
	}, nil
}

// Read fills buf with the next chunk of bytes per spec §4.F's
// three-step contract, returning 0 to signal EOF to the host.
func (r *Reader) Read(buf []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.firstAccess {
		r.firstAccess = false

		firstLine, err := r.native.ReadString('\n')
		if err != nil && err != io.EOF {
			return 0, errs.Wrap(errs.CannotOpen, r.path, err)
		}

		if strings.Contains(firstLine, preprocess.Sentinel) {
			if _, err := r.pipe.Run(r.path); err != nil {
				return 0, err
			}
			r.transformed = true
		}

		if _, err := r.file.Seek(0, io.SeekStart); err != nil {
			return 0, errs.Wrap(errs.CannotOpen, r.path, err)
		}
		r.native.Reset(r.file)
	}

	if r.transformed {
		if r.pipe.Cache.EOF(r.path) {
			return 0, nil
		}
		return r.pipe.Cache.Read(r.path, buf)
	}

	n, err := r.native.Read(buf)
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
