// Package sidecar models the `evalSnippet` contract: an independent
// scripting interpreter instance used solely to evaluate $comp_time
// bodies ($include arguments are resolved by transform.Includer, not
// evaluated here). Per spec §1 the
// sidecar's internals are an external collaborator; this package
// pins down only the contract (Evaluator) plus one concrete,
// swappable implementation that shells out to an external
// interpreter binary, the same way the teacher's toast_oracle command
// shells out to an external MOO emergency-mode binary and scrapes its
// stdout.
package sidecar

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"luajitpro/errs"
)

// Evaluator is the evalSnippet contract: run src tagged as tag, return
// the snippet's returned string. Neither implementation in this
// package carries state from one call to the next: Process starts a
// new interpreter per call, and Fake only pattern-matches src, so
// globals set by one snippet are not visible to the next.
type Evaluator interface {
	Eval(tag, src string) (string, error)
}

// prelude is injected ahead of every snippet, providing the globals
// and helpers the sidecar contract requires: __code_name__, print
// (tag-prefixed), render (mustache-style {{key}} expansion), strip,
// and an env lookup surface.
const prelude = `
local __code_name__ = %q
local function print(...)
  local parts = {}
  for i, v in ipairs({...}) do parts[i] = tostring(v) end
  io.stderr:write("[" .. __code_name__ .. "] " .. table.concat(parts, "\t") .. "\n")
end
local function render(template, vars)
  return (template:gsub("{{(.-)}}", function(key)
    return tostring(vars[key] or "")
  end))
end
local function strip(s, suffix)
  if s:sub(-#suffix) == suffix then
    return s:sub(1, -#suffix - 1)
  end
  return s
end
local env = setmetatable({}, { __index = function(_, k) return os.getenv(k) end })
`

// Process is a concrete Evaluator backed by an external interpreter
// binary invoked once per Eval call, with stdin/stdout captured the
// way the teacher's evaluateExpression captures an external
// emergency-mode session.
type Process struct {
	mu  sync.Mutex
	bin string
}

// NewProcess returns a Process-backed Evaluator invoking bin (e.g.
// "lua" or "luajit") for each snippet. One Process value can serve a
// whole run, but each Eval still starts a separate interpreter
// process, so no interpreter state survives between calls.
func NewProcess(bin string) *Process {
	if bin == "" {
		bin = "lua"
	}
	return &Process{bin: bin}
}

// Eval runs src, tagged as tag, in a fresh interpreter process with
// the sidecar prelude prepended, returning whatever the script's
// top-level `return` produced on stdout.
func (p *Process) Eval(tag, src string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	script := fmt.Sprintf(prelude, tag) + "\nio.stdout:write(tostring((function()\n" + src + "\nend)()))\n"

	cmd := exec.Command(p.bin, "-")
	cmd.Stdin = bytes.NewBufferString(script)
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", errs.Wrap(errs.CompTimeEvalFailed, tag, fmt.Errorf("%w: %s\nsource:\n%s", err, stderr.String(), src))
	}
	return stdout.String(), nil
}

// Fake is a deterministic, in-process Evaluator for tests: it
// recognizes the one-liner `return "<literal>"` and `return '<literal>'`
// shapes used throughout spec §8's scenarios, and otherwise returns an
// empty string. It never shells out, so tests exercising it carry no
// external-binary dependency.
type Fake struct {
	mu      sync.Mutex
	Globals map[string]string
	Calls   []FakeCall
}

// FakeCall records one Eval invocation, useful for asserting the
// sidecar was invoked with the expected tag/source.
type FakeCall struct {
	Tag string
	Src string
}

// NewFake returns a ready-to-use Fake evaluator.
func NewFake() *Fake {
	return &Fake{Globals: make(map[string]string)}
}

// Eval implements Evaluator by pattern-matching the trivial
// `return "..."` / `return '...'` shape most $comp_time bodies in
// these fixtures use.
func (f *Fake) Eval(tag, src string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, FakeCall{Tag: tag, Src: src})

	trimmed := trimSpace(src)
	const retDouble = `return "`
	const retSingle = `return '`
	if hasPrefix(trimmed, retDouble) {
		rest := trimmed[len(retDouble):]
		if i := indexByte(rest, '"'); i >= 0 {
			return rest[:i], nil
		}
	}
	if hasPrefix(trimmed, retSingle) {
		rest := trimmed[len(retSingle):]
		if i := indexByte(rest, '\''); i >= 0 {
			return rest[:i], nil
		}
	}
	return "", nil
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
