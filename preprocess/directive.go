package preprocess

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ParseParamTable recognizes the optional brace-delimited parameter
// table trailing the sentinel on line 1
// (`--[[luajit-pro]]{ key = val, ... }`), a grammar the distilled
// spec.md doesn't carry but the Rust original (lib.rs) parses and
// re-serializes with environment-resolved values. It returns the
// key/value pairs found between the first '{' and the last '}' on the
// line; a line with no such table returns an empty, non-nil map.
func ParseParamTable(line string) (map[string]string, bool) {
	open := strings.IndexByte(line, '{')
	close := strings.LastIndexByte(line, '}')
	if open < 0 || close < 0 || close < open {
		return map[string]string{}, false
	}
	body := line[open+1 : close]

	params := map[string]string{}
	for _, pair := range strings.Split(body, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.Trim(strings.TrimSpace(kv[1]), `"'`)
		params[key] = val
	}
	return params, true
}

// SerializeParamTable re-renders params as a sentinel-line parameter
// table, each value resolved against its identically-named environment
// variable (the original's env-override contract). Keys are sorted for
// deterministic output.
func SerializeParamTable(params map[string]string) string {
	if len(params) == 0 {
		return Sentinel
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := params[k]
		if override := os.Getenv(k); override != "" {
			v = override
		}
		parts = append(parts, fmt.Sprintf("%s = %q", k, v))
	}
	return Sentinel + "{" + strings.Join(parts, ", ") + "}"
}

// NeedsRebuild reports whether any key in params has an identically
// named environment variable set to a value different from the one
// recorded in params. The pipeline does not call it: cache.Register
// takes no rebuild flag and never invalidates an entry.
func NeedsRebuild(params map[string]string) bool {
	for k, v := range params {
		if override, ok := os.LookupEnv(k); ok && override != v {
			return true
		}
	}
	return false
}
