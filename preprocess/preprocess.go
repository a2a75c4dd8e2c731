// Package preprocess implements component A: sentinel detection, the
// first-line `preprocess: false` directive and parameter table, and the
// optional external C-preprocessor pass (spec §4.A). The env knobs that
// govern how intermediate artifacts are named and kept are read by
// package config.
package preprocess

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"luajitpro/config"
	"luajitpro/errs"
)

// Sentinel is the literal marker that must appear on a file's first
// line for the pipeline to engage.
const Sentinel = "--[[luajit-pro]]"

var directiveRe = regexp.MustCompile(`preprocess:\s*(\w+)`)

// Result is the canonical input text produced by the driver, along
// with whatever first-line parameter table it carried.
type Result struct {
	Text      string
	Params    map[string]string
	RawLine1  string
	Preprocessed bool // whether cpp -E actually ran
}

// Run executes component A over the file at path: open, sentinel
// check, optional cpp -E expansion, returning the canonical text ready
// for the tokenizer. A file without the sentinel is reported as an
// *errs.Error of kind errs.MissingSentinel (not a hard error — the caller passes the original
// bytes straight through, per spec §4.A step 2 and §7's
// MissingSentinel disposition).
func Run(path string, cfg *config.Settings) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.CannotOpen, path, err)
	}
	return RunSource(path, string(data), cfg)
}

// RunSource is Run's testable core: it takes the raw source directly
// rather than reading path from disk, so preprocess's own tests (and
// $include's recursive re-entry once the file is already in memory)
// don't need a filesystem.
func RunSource(path, src string, cfg *config.Settings) (*Result, error) {
	firstLine, _ := splitFirstLine(src)
	if !strings.Contains(firstLine, Sentinel) {
		return nil, errs.New(errs.MissingSentinel, path, "first line lacks the luajit-pro sentinel")
	}

	params, _ := ParseParamTable(firstLine)

	skipPreprocess := false
	if m := directiveRe.FindStringSubmatch(firstLine); m != nil && strings.EqualFold(m[1], "false") {
		skipPreprocess = true
	}

	text := src
	preprocessed := false
	if !skipPreprocess {
		out, err := runCPP(path, src, cfg)
		if err != nil {
			return nil, err
		}
		text = out
		preprocessed = true
	}

	return &Result{
		Text:         text,
		Params:       params,
		RawLine1:     firstLine,
		Preprocessed: preprocessed,
	}, nil
}

// splitFirstLine returns the file's first line (without its trailing
// newline) and everything after it.
func splitFirstLine(src string) (string, string) {
	i := strings.IndexByte(src, '\n')
	if i < 0 {
		return src, ""
	}
	return src[:i], src[i+1:]
}

// runCPP shells out to the external C-preprocessor (cfg.PreprocessCmd,
// default "cpp -E") and discards any line beginning with '#' from its
// output, matching spec §4.A step 4. This is the one genuinely
// external-process dependency the spec calls out by name; preprocess
// never falls back to an embedded macro expander.
func runCPP(path, src string, cfg *config.Settings) (string, error) {
	if len(cfg.PreprocessCmd) == 0 {
		return src, nil
	}
	name := cfg.PreprocessCmd[0]
	args := append(append([]string{}, cfg.PreprocessCmd[1:]...), "-")

	cmd := exec.Command(name, args...)
	cmd.Stdin = bytes.NewBufferString(src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", errs.Wrap(errs.CannotOpen, path, fmt.Errorf("%s: %w: %s", name, err, stderr.String()))
	}

	var out strings.Builder
	for _, line := range strings.Split(stdout.String(), "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return strings.TrimSuffix(out.String(), "\n"), nil
}
