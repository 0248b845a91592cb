// Package tracing instruments dispatch channels so that every send and every
// handler invocation produces a structured, human-readable trace line,
// without changing the channel's behavior.
//
// The package is single-threaded by design: a Tracer owns one call-context
// stack and one sequence counter, and concurrent dispatches through the same
// tracer will corrupt the depth bookkeeping. Callers that need concurrency
// must give each goroutine its own Tracer and an externally synchronized
// Sequencer.
package tracing

import (
	"github.com/sarchlab/sigtrace/dispatch"
)

// A DispatchCall records one logical send. It is created when the send
// enters the tracer and shared by every nested receive of that dispatch.
type DispatchCall struct {
	Sequence  int
	Kind      dispatch.SendKind
	Container string
	Channel   string
	Sender    any
	Payload   dispatch.Payload
}

// QualifiedChannel returns "container.channel", or just the channel name
// when no container is known.
func (c *DispatchCall) QualifiedChannel() string {
	if c.Container != "" {
		return c.Container + "." + c.Channel
	}

	return c.Channel
}

// A Sequencer hands out dispatch sequence numbers, strictly increasing from
// 1 for its own lifetime. Tracers sharing a Sequencer share one numbering.
type Sequencer struct {
	last int
}

// NewSequencer creates a sequencer that starts numbering at 1.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Next returns the next sequence number.
func (s *Sequencer) Next() int {
	s.last++
	return s.last
}
