package preprocess

import (
	"testing"

	"luajitpro/config"
	"luajitpro/errs"
)

func TestRunSourceMissingSentinel(t *testing.T) {
	src := "print('no sentinel here')\n"
	_, err := RunSource("plain.lua", src, &config.Settings{})
	if err == nil {
		t.Fatal("expected a MissingSentinel error, got nil")
	}
	e, ok := err.(*errs.Error)
	if !ok || e.Kind != errs.MissingSentinel {
		t.Fatalf("expected MissingSentinel, got %v", err)
	}
}

func TestRunSourceSkipsCppWhenDirected(t *testing.T) {
	src := Sentinel + "{preprocess: false}\nlocal x = 1\n"
	res, err := RunSource("f.lua", src, &config.Settings{PreprocessCmd: []string{"does-not-exist"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Preprocessed {
		t.Fatal("expected Preprocessed=false when the directive disables cpp")
	}
	if res.Text != src {
		t.Fatalf("expected unmodified text, got %q", res.Text)
	}
}

func TestRunSourceParsesParamTable(t *testing.T) {
	src := Sentinel + `{foo = "bar"}` + "\nlocal x = 1\n"
	res, err := RunSource("f.lua", src, &config.Settings{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Params["foo"] != "bar" {
		t.Fatalf("expected param foo=bar, got %v", res.Params)
	}
	if !res.Preprocessed {
		t.Fatal("expected Preprocessed=true when no preprocess:false directive is present")
	}
}
