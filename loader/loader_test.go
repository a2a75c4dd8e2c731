package loader

import (
	"os"
	"path/filepath"
	"testing"

	"luajitpro/cache"
	"luajitpro/config"
	"luajitpro/sidecar"
)

func readAll(t *testing.T, r *Reader) string {
	t.Helper()
	var got []byte
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if n == 0 {
			break
		}
		got = append(got, buf[:n]...)
	}
	return string(got)
}

// TestReaderPassthroughNoSentinel exercises component F's raw path: a
// file with no luajit-pro sentinel is streamed byte-for-byte, never
// touching the pipeline at all.
func TestReaderPassthroughNoSentinel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.lua")
	content := "print('no sentinel here')\nlocal x = 1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(path, nil)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	if got := readAll(t, r); got != content {
		t.Fatalf("passthrough mismatch:\n got: %q\nwant: %q", got, content)
	}
}

// TestReaderTransformsWithSentinel exercises the first-access sniff
// driving the whole A->B->D->E pipeline, then streams the cached
// transformed bytes back out.
func TestReaderTransformsWithSentinel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentinel.lua")
	content := "--[[luajit-pro]]\nT.foreach{ x => print(x) }\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Settings{}
	pipe := &Pipeline{Cache: cache.New(false, "", false), Config: cfg, Eval: sidecar.NewFake()}
	pipe.Inc = NewSearcher(pipe)

	r, err := NewReader(path, pipe)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	want := "--[[luajit-pro]]\nfor _, x in ipairs(T) do print(x) end\n"
	if got := readAll(t, r); got != want {
		t.Fatalf("transformed mismatch:\n got: %q\nwant: %q", got, want)
	}
}

// TestRunSourceGenOnlyReturnsEmpty covers comment 4's short-circuit:
// GenOnly still registers the artifact (so $include can find it) but
// hands the caller nothing back.
func TestRunSourceGenOnlyReturnsEmpty(t *testing.T) {
	cfg := &config.Settings{GenOnly: true}
	pipe := &Pipeline{Cache: cache.New(false, "", false), Config: cfg, Eval: sidecar.NewFake()}
	pipe.Inc = NewSearcher(pipe)

	out, err := pipe.RunSource("gen.lua", "--[[luajit-pro]]\nT.foreach{ x => print(x) }\n")
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if out != "" {
		t.Fatalf("expected empty output under GenOnly, got %q", out)
	}
	if !pipe.Cache.Has("gen.lua") {
		t.Fatal("expected GenOnly to still register the transformed content in the cache")
	}
}
