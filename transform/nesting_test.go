package transform

import (
	"testing"

	"luajitpro/sidecar"
)

// run transforms src as a standalone file, with no $include targets in
// play, for the nesting-asymmetry cases below (spec's dispatcher
// asymmetry: foreach recurses through the full pass set, map/filter
// recurse through only their own kind).
func run(t *testing.T, src string) string {
	t.Helper()
	tf := New(src, "nest.lua", sidecar.NewFake(), nil, nil)
	got, err := tf.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return got
}

func TestNestingForeachInForeach(t *testing.T) {
	input := "--[[luajit-pro]]\n" +
		"T.foreach{ x =>\n" +
		"S.foreach{ y =>\n" +
		"print(x,y)\n" +
		"}\n" +
		"}\n"
	want := "--[[luajit-pro]]\n" +
		"for _, x in ipairs(T) do\n" +
		"for _, y in ipairs(S) do\n" +
		"print(x,y)\n" +
		"end\n" +
		"end\n"

	if got := run(t, input); got != want {
		t.Fatalf("foreach-in-foreach mismatch:\n got: %q\nwant: %q", got, want)
	}
}

// TestNestingMapInForeach confirms foreach's full-pass recursion
// reaches into its body and rewrites a nested map construct.
func TestNestingMapInForeach(t *testing.T) {
	input := "--[[luajit-pro]]\n" +
		"T.foreach{ x =>\n" +
		"R = S.map{ y =>\n" +
		"return y*2\n" +
		"}\n" +
		"}\n"
	want := "--[[luajit-pro]]\n" +
		"for _, x in ipairs(T) do\n" +
		"R = {}; for _, y in ipairs(S) do \n" +
		"_tinsert(R, y*2\n" +
		") end\n" +
		"end\n"

	if got := run(t, input); got != want {
		t.Fatalf("map-in-foreach mismatch:\n got: %q\nwant: %q", got, want)
	}
}

// TestNestingForeachInMapUntouched confirms the asymmetric half of
// P-N: map's own-kind-only recursion never descends into a nested
// foreach, which must survive as literal, untouched source.
func TestNestingForeachInMapUntouched(t *testing.T) {
	input := "--[[luajit-pro]]\n" +
		"R = T.map{ x =>\n" +
		"S.foreach{ y => print(y) }\n" +
		"return x\n" +
		"}\n"
	want := "--[[luajit-pro]]\n" +
		"R = {}; for _, x in ipairs(T) do \n" +
		"S.foreach{ y => print(y) }\n" +
		"_tinsert(R, x\n" +
		") end\n"

	if got := run(t, input); got != want {
		t.Fatalf("foreach-in-map mismatch:\n got: %q\nwant: %q", got, want)
	}
}

// TestNestingMapInMap confirms map's own-kind recursion does descend
// into a nested map, rewriting the inner construct before the outer
// one is itself rewritten.
func TestNestingMapInMap(t *testing.T) {
	input := "--[[luajit-pro]]\n" +
		"R = T.map{ x =>\n" +
		"R = S.map{ y =>\n" +
		"return y*3\n" +
		"}\n" +
		"return x\n" +
		"}\n"
	want := "--[[luajit-pro]]\n" +
		"R = {}; for _, x in ipairs(T) do \n" +
		"R = {}; for _, y in ipairs(S) do \n" +
		"_tinsert(R, y*3\n" +
		") end\n" +
		"_tinsert(R, x\n" +
		") end\n"

	if got := run(t, input); got != want {
		t.Fatalf("map-in-map mismatch:\n got: %q\nwant: %q", got, want)
	}
}
