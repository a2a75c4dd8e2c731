// Package config centralizes the environment-variable and optional
// YAML-file configuration the pipeline reads once at process start,
// matching the teacher's pattern of resolving configuration eagerly
// (cmd/barn's flag.Parse) rather than re-reading env on every call.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Settings is the process-wide configuration resolved once at start
// of day from environment variables, an optional .luajitpro.yaml file,
// and (for the CLI) command-line flags, in that increasing order of
// precedence.
type Settings struct {
	// NoPidDir selects a shared cache directory instead of a
	// per-process one (LJP_NO_PID_DIR).
	NoPidDir bool
	// KeepFile keeps the intermediate .1.proccessed.lua/.2.transformed.lua
	// artifacts past process exit instead of the default of cleaning
	// them up via an exit hook (LJP_KEEP_FILE).
	KeepFile bool
	// WithPidSuffix appends the PID to intermediate filenames
	// (LJP_WITH_PID_SUFFIX).
	WithPidSuffix bool
	// VerboseDoString echoes each $comp_time snippet's returned code
	// (LJP_VERBOSE_DO_STRING).
	VerboseDoString bool

	// NoCache and GenOnly are carried over from the original Rust
	// implementation's on-disk build cache (LJP_NO_CACHE, LJP_GEN_ONLY).
	NoCache bool
	GenOnly bool
	// OutDir mirrors LJP_OUT_DIR: when set, cmd/luajitpro writes the
	// cache artifacts here instead of under CacheDir (and removes it at
	// exit unless KeepFile is true).
	OutDir string

	// LuaPath, TlPath, LuauPath override the respective package-search
	// base paths (LUA_PATH, TL_PATH, LUAU_PATH).
	LuaPath  string
	TlPath   string
	LuauPath string

	// CacheDir is the resolved temp-artifact directory: ./.luajit_pro
	// (or the YAML config file's override) plus a /<PID> subdirectory
	// unless NoPidDir is set.
	CacheDir string
	// ExtraSuffixes, if set in the YAML config file, are tried by the
	// package searcher after the fixed .lua/.tl/.d.tl/.luau suffixes.
	ExtraSuffixes []string
	// PreprocessCmd overrides the external C-preprocessor invocation
	// (default: "cpp -E").
	PreprocessCmd []string
}

const defaultCacheDir = ".luajit_pro"

// fileConfig mirrors the optional YAML config file's shape.
type fileConfig struct {
	CacheDir      string   `yaml:"cache_dir"`
	ExtraSuffixes []string `yaml:"extra_suffixes"`
	PreprocessCmd []string `yaml:"preprocess_cmd"`
}

func boolEnv(name string) bool {
	return os.Getenv(name) == "1"
}

// Load resolves Settings from the environment and, if present, a
// .luajitpro.yaml file found by walking up from dir.
func Load(dir string) (*Settings, error) {
	s := &Settings{
		NoPidDir:        boolEnv("LJP_NO_PID_DIR"),
		KeepFile:        boolEnv("LJP_KEEP_FILE"),
		WithPidSuffix:   boolEnv("LJP_WITH_PID_SUFFIX"),
		VerboseDoString: boolEnv("LJP_VERBOSE_DO_STRING"),
		NoCache:         boolEnv("LJP_NO_CACHE"),
		GenOnly:         boolEnv("LJP_GEN_ONLY"),
		OutDir:          os.Getenv("LJP_OUT_DIR"),
		LuaPath:         os.Getenv("LUA_PATH"),
		TlPath:          os.Getenv("TL_PATH"),
		LuauPath:        os.Getenv("LUAU_PATH"),
		CacheDir:        defaultCacheDir,
		PreprocessCmd:   []string{"cpp", "-E"},
	}

	fc, path, err := findConfigFile(dir)
	if err != nil {
		return nil, err
	}
	if fc != nil {
		if fc.CacheDir != "" {
			s.CacheDir = fc.CacheDir
		}
		if len(fc.ExtraSuffixes) > 0 {
			s.ExtraSuffixes = fc.ExtraSuffixes
		}
		if len(fc.PreprocessCmd) > 0 {
			s.PreprocessCmd = fc.PreprocessCmd
		}
		_ = path
	}

	if !s.NoPidDir {
		s.CacheDir = filepath.Join(s.CacheDir, strconv.Itoa(os.Getpid()))
	}

	return s, nil
}

// findConfigFile walks upward from dir looking for .luajitpro.yaml,
// stopping at the filesystem root.
func findConfigFile(dir string) (*fileConfig, string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", err
	}
	for {
		candidate := filepath.Join(abs, ".luajitpro.yaml")
		if data, err := os.ReadFile(candidate); err == nil {
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return nil, "", err
			}
			return &fc, candidate, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return nil, "", nil
		}
		abs = parent
	}
}
