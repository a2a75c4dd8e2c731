// Package ljplog provides a process-wide, filter-matched tracer for
// pipeline diagnostics, in the same shape as the teacher's trace
// package: a lazily-initialized singleton, mutex-guarded, writing
// through an io.Writer.
package ljplog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Tracer emits filtered diagnostic lines for the transform pipeline.
type Tracer struct {
	enabled bool
	filters []string
	writer  io.Writer
	mu      sync.Mutex
}

var globalTracer *Tracer

// Init initializes the global tracer. Passing a nil writer defaults to
// os.Stderr.
func Init(enabled bool, filters []string, writer io.Writer) {
	if writer == nil {
		writer = os.Stderr
	}
	globalTracer = &Tracer{enabled: enabled, filters: filters, writer: writer}
}

// IsEnabled reports whether the global tracer was initialized enabled.
func IsEnabled() bool {
	return globalTracer != nil && globalTracer.enabled
}

func (t *Tracer) matchesFilter(phase string) bool {
	if len(t.filters) == 0 {
		return true
	}
	for _, pattern := range t.filters {
		if matched, _ := filepath.Match(pattern, phase); matched {
			return true
		}
	}
	return false
}

// Pass logs a transform pass event (dispatcher recognizing, mutating,
// or skipping a construct at a given phase).
func (t *Tracer) Pass(phase, file string, line, column int, detail string) {
	if !t.enabled || !t.matchesFilter(phase) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE] %s %s:%d:%d %s\n", phase, file, line, column, detail)
}

// CompTimeEval logs a compile-time snippet's returned code. Unlike
// Pass, it is not gated on the tracer's own enabled flag: callers gate
// it themselves on LJP_VERBOSE_DO_STRING, a separate knob from -trace.
func (t *Tracer) CompTimeEval(tag, code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE] comp_time %s => %s\n", tag, code)
}

// Pass logs through the global tracer, a no-op if uninitialized.
func Pass(phase, file string, line, column int, detail string) {
	if globalTracer != nil {
		globalTracer.Pass(phase, file, line, column, detail)
	}
}

// CompTimeEval logs through the global tracer, a no-op if
// uninitialized.
func CompTimeEval(tag, code string) {
	if globalTracer != nil {
		globalTracer.CompTimeEval(tag, code)
	}
}
