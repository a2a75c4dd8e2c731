package cache

import (
	"os"
	"strconv"
	"strings"
	"testing"
)

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestRegisterWritesTransformedArtifactWhenMirrored(t *testing.T) {
	dir := t.TempDir()
	c := New(true, dir, false)
	if err := c.Register("/src/foo.lua", "transformed body"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	names := listNames(t, dir)
	if len(names) != 1 || !strings.HasSuffix(names[0], ".2.transformed.lua") {
		t.Fatalf("expected one .2.transformed.lua artifact, got %v", names)
	}
}

func TestRegisterProcessedWritesStageOneArtifactWithoutCachingContent(t *testing.T) {
	dir := t.TempDir()
	c := New(true, dir, false)
	if err := c.RegisterProcessed("/src/foo.lua", "preprocessed body"); err != nil {
		t.Fatalf("RegisterProcessed: %v", err)
	}
	if c.Has("/src/foo.lua") {
		t.Fatal("RegisterProcessed must not populate the in-memory entries map")
	}
	names := listNames(t, dir)
	if len(names) != 1 || !strings.HasSuffix(names[0], ".1.proccessed.lua") {
		t.Fatalf("expected one .1.proccessed.lua artifact, got %v", names)
	}
}

func TestWriteStageAddsPidSuffixWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	plain := New(true, dir, false)
	if err := plain.Register("/src/foo.lua", "body"); err != nil {
		t.Fatalf("Register (no suffix): %v", err)
	}
	plainNames := listNames(t, dir)
	if len(plainNames) != 1 {
		t.Fatalf("expected one artifact, got %v", plainNames)
	}

	dir2 := t.TempDir()
	suffixed := New(true, dir2, true)
	if err := suffixed.Register("/src/foo.lua", "body"); err != nil {
		t.Fatalf("Register (pid suffix): %v", err)
	}
	suffixedNames := listNames(t, dir2)
	if len(suffixedNames) != 1 {
		t.Fatalf("expected one artifact, got %v", suffixedNames)
	}

	pidPart := "." + strconv.Itoa(os.Getpid()) + "."
	if !strings.Contains(suffixedNames[0], pidPart) {
		t.Fatalf("expected pid segment %q in %q", pidPart, suffixedNames[0])
	}
	if strings.Contains(plainNames[0], pidPart) {
		t.Fatalf("did not expect a pid segment without withPidSuffix, got %q", plainNames[0])
	}
}

func TestRegisterProcessedNoopWithoutMirror(t *testing.T) {
	dir := t.TempDir()
	c := New(false, dir, false)
	if err := c.RegisterProcessed("/src/foo.lua", "body"); err != nil {
		t.Fatalf("RegisterProcessed: %v", err)
	}
	if names := listNames(t, dir); len(names) != 0 {
		t.Fatalf("expected no artifacts written when mirror is disabled, got %v", names)
	}
}

func TestDuplicateRegisterRejected(t *testing.T) {
	c := New(false, "", false)
	if err := c.Register("/src/foo.lua", "a"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := c.Register("/src/foo.lua", "b"); err == nil {
		t.Fatal("expected a DuplicateRegister error on re-register")
	}
}

func TestReadAdvancesCursorToEOF(t *testing.T) {
	c := New(false, "", false)
	if err := c.Register("/src/foo.lua", "abc"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	buf := make([]byte, 2)
	n, err := c.Read("/src/foo.lua", buf)
	if err != nil || n != 2 {
		t.Fatalf("first Read: n=%d err=%v", n, err)
	}
	if c.EOF("/src/foo.lua") {
		t.Fatal("expected not at EOF after partial read")
	}
	n, err = c.Read("/src/foo.lua", buf)
	if err != nil || n != 1 {
		t.Fatalf("second Read: n=%d err=%v", n, err)
	}
	if !c.EOF("/src/foo.lua") {
		t.Fatal("expected EOF after consuming all content")
	}
}
