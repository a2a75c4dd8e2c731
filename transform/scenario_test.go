package transform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"luajitpro/sidecar"
)

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

func loadScenarios(t *testing.T, path string) []Scenario {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	var sf scenarioFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}
	return sf.Scenarios
}

// fakeIncluder resolves module names directly against an in-memory
// file map, standing in for the package searcher in these unit tests.
type fakeIncluder struct {
	files map[string]string
	eval  sidecar.Evaluator
}

func (f *fakeIncluder) Resolve(pkgExpr, fromFile string) (string, error) {
	return pkgExpr, nil
}

func (f *fakeIncluder) Transform(path string) (string, error) {
	src, ok := f.files[path]
	if !ok {
		return "", nil
	}
	tf := New(src, path, f.eval, f, map[string]bool{})
	return tf.Run()
}

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	if err != nil {
		t.Fatalf("glob testdata/scenarios: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario fixtures found under testdata/scenarios")
	}

	for _, file := range files {
		file := file
		t.Run(filepath.Base(file), func(t *testing.T) {
			for _, sc := range loadScenarios(t, file) {
				sc := sc
				t.Run(sc.Name, func(t *testing.T) {
					eval := sidecar.NewFake()
					inc := &fakeIncluder{
						files: map[string]string{"M": "-- a comment\nlocal x = 1\n"},
						eval:  eval,
					}

					tf := New(sc.Input, "scenario.lua", eval, inc, nil)
					got, err := tf.Run()

					if sc.WantErr != "" {
						if err == nil || !strings.Contains(err.Error(), sc.WantErr) {
							t.Fatalf("want error containing %q, got %v", sc.WantErr, err)
						}
						return
					}
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}
					if got != sc.Want {
						t.Fatalf("mismatch:\n got: %q\nwant: %q", got, sc.Want)
					}

					wantLines := strings.Count(sc.Input, "\n")
					gotLines := strings.Count(got, "\n")
					if wantLines != gotLines {
						t.Fatalf("P-LineCount violated: input has %d newlines, output has %d", wantLines, gotLines)
					}

					again, err := New(got, "scenario.lua", eval, inc, nil).Run()
					if err != nil {
						t.Fatalf("re-running pipeline on its own output failed: %v", err)
					}
					if again != got {
						t.Fatalf("P-Idempotence violated:\n first: %q\nsecond: %q", got, again)
					}
				})
			}
		})
	}
}
