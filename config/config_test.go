package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestLoadAppendsPidDirByDefault(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := filepath.Join(defaultCacheDir, strconv.Itoa(os.Getpid()))
	if s.CacheDir != want {
		t.Fatalf("CacheDir = %q, want %q", s.CacheDir, want)
	}
}

func TestLoadHonorsNoPidDir(t *testing.T) {
	t.Setenv("LJP_NO_PID_DIR", "1")
	dir := t.TempDir()
	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.CacheDir != defaultCacheDir {
		t.Fatalf("CacheDir = %q, want %q", s.CacheDir, defaultCacheDir)
	}
}

func TestLoadReadsYamlOverride(t *testing.T) {
	t.Setenv("LJP_NO_PID_DIR", "1")
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, ".luajitpro.yaml")
	body := "cache_dir: /tmp/custom-cache\nextra_suffixes:\n  - \".foo\"\n"
	if err := os.WriteFile(yamlPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.CacheDir != "/tmp/custom-cache" {
		t.Fatalf("CacheDir = %q, want override", s.CacheDir)
	}
	if len(s.ExtraSuffixes) != 1 || s.ExtraSuffixes[0] != ".foo" {
		t.Fatalf("ExtraSuffixes = %v", s.ExtraSuffixes)
	}
}
