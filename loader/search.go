package loader

import (
	"os"
	"path/filepath"
	"strings"

	"luajitpro/errs"
)

// suffixes is the fixed, ordered list of companion file extensions the
// package searcher tries for each path-template alternative (spec
// §4.G); Searcher appends config.Settings.ExtraSuffixes after these.
var suffixes = []string{".lua", ".tl", ".d.tl", ".luau"}

// Searcher implements transform.Includer on top of a Pipeline: Resolve
// walks the host's standard path-template mechanism (component G),
// Transform re-enters the whole pipeline for the resolved path
// (closing the A->B->D->E loop $include needs).
type Searcher struct {
	Pipeline *Pipeline

	// LuaPath/TlPath/LuauPath are ';'-joined path templates with '?'
	// standing in for the module-as-path, mirroring package.path, with
	// the trailing suffix left off (Resolve tries each suffix in turn).
	// Overridden respectively by cfg.LuaPath/TlPath/LuauPath
	// (LUA_PATH/TL_PATH/LUAU_PATH).
	LuaPath  string
	TlPath   string
	LuauPath string
}

// NewSearcher builds a Searcher from pipe.Config's path overrides,
// falling back to a "current directory" default template when unset.
func NewSearcher(pipe *Pipeline) *Searcher {
	s := &Searcher{Pipeline: pipe, LuaPath: "./?", TlPath: "./?", LuauPath: "./?"}
	if pipe.Config != nil {
		if pipe.Config.LuaPath != "" {
			s.LuaPath = pipe.Config.LuaPath
		}
		if pipe.Config.TlPath != "" {
			s.TlPath = pipe.Config.TlPath
		}
		if pipe.Config.LuauPath != "" {
			s.LuauPath = pipe.Config.LuauPath
		}
	}
	return s
}

// Resolve turns a module expression (a dotted package name, the way
// package.searchpath expects it) into an absolute file path by trying
// every path-template alternative against every recognized suffix, in
// the fixed order spec §4.G prescribes: .lua, .tl, .d.tl, .luau, then
// any configured extra suffixes.
func (s *Searcher) Resolve(pkgExpr, fromFile string) (string, error) {
	asPath := strings.ReplaceAll(pkgExpr, ".", string(filepath.Separator))
	base := "."
	if fromFile != "" {
		base = filepath.Dir(fromFile)
	}

	for _, suf := range s.extraSuffixes() {
		for _, tmpl := range []string{s.LuaPath, s.TlPath, s.LuauPath} {
			for _, alt := range strings.Split(tmpl, ";") {
				if alt == "" {
					continue
				}
				candidate := strings.ReplaceAll(alt, "?", asPath) + suf
				full := candidate
				if !filepath.IsAbs(full) {
					full = filepath.Join(base, candidate)
				}
				if _, err := os.Stat(full); err == nil {
					return full, nil
				}
			}
		}
	}

	return "", errs.New(errs.CannotOpen, pkgExpr, "module not found on search path")
}

func (s *Searcher) extraSuffixes() []string {
	if s.Pipeline.Config != nil && len(s.Pipeline.Config.ExtraSuffixes) > 0 {
		return append(append([]string{}, suffixes...), s.Pipeline.Config.ExtraSuffixes...)
	}
	return suffixes
}

// Transform recursively runs the whole pipeline over path and returns
// its final transformed content, satisfying transform.Includer. A
// MissingSentinel result (the resolved file has no sentinel of its
// own) is not an error here: the raw file content is the correct
// "transformed" output for an untransformed file.
func (s *Searcher) Transform(path string) (string, error) {
	out, err := s.Pipeline.Run(path)
	if err != nil {
		if e, ok := err.(*errs.Error); ok && e.Kind == errs.MissingSentinel {
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				return "", errs.Wrap(errs.CannotOpen, path, readErr)
			}
			return string(data), nil
		}
		return "", err
	}
	return out, nil
}
