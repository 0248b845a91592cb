// Package monitoring exposes a bounded in-memory window of recent trace
// lines over HTTP, so that an engineer can watch dispatch flows of a running
// process from a browser. It keeps no persistent trace history.
package monitoring

import (
	"sync"

	"github.com/sarchlab/sigtrace/tracing"
)

const defaultCapacity = 1024

// A TraceMonitor records the most recent trace lines in a fixed-size ring.
//
// The ring is mutex-guarded because HTTP reads race with the dispatching
// thread; the tracer feeding it stays single-threaded.
type TraceMonitor struct {
	lock     sync.Mutex
	capacity int
	lines    []string
	start    int
	count    int
	total    uint64
}

// NewTraceMonitor creates a monitor holding the default number of lines.
func NewTraceMonitor() *TraceMonitor {
	return &TraceMonitor{capacity: defaultCapacity}
}

// WithCapacity sets how many recent lines the monitor keeps. It must be
// called before the first line is recorded.
func (m *TraceMonitor) WithCapacity(n int) *TraceMonitor {
	if n <= 0 {
		panic("monitor capacity must be positive")
	}

	if m.lines != nil {
		panic("monitor capacity cannot change after recording started")
	}

	m.capacity = n

	return m
}

// Sink returns a tracing sink that records lines into the monitor.
func (m *TraceMonitor) Sink() tracing.Sink {
	return m.record
}

func (m *TraceMonitor) record(line string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.lines == nil {
		m.lines = make([]string, m.capacity)
	}

	end := (m.start + m.count) % m.capacity
	m.lines[end] = line

	if m.count < m.capacity {
		m.count++
	} else {
		m.start = (m.start + 1) % m.capacity
	}

	m.total++
}

// Lines returns a snapshot of the retained lines, oldest first.
func (m *TraceMonitor) Lines() []string {
	m.lock.Lock()
	defer m.lock.Unlock()

	snapshot := make([]string, m.count)
	for i := 0; i < m.count; i++ {
		snapshot[i] = m.lines[(m.start+i)%m.capacity]
	}

	return snapshot
}

// TotalLines returns how many lines the monitor has seen, including ones
// that already fell out of the window.
func (m *TraceMonitor) TotalLines() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.total
}
