package tracing

import (
	"log"
	"os"

	"github.com/sarchlab/sigtrace/dispatch"
)

const defaultIndent = "    "

// A Tracer is the interceptor that traces dispatches. Install it on a
// channel, or on a registry to cover every channel registered there.
//
// A Tracer owns its call-context stack and sequence counter and is therefore
// strictly single-threaded. See the package comment.
type Tracer struct {
	output          Sink
	suppress        map[string]struct{}
	sequencer       *Sequencer
	names           *NameResolver
	handlerResolver HandlerResolver
	wrappers        *wrapperRegistry
	indent          string

	current *CallContext
	depth   int
}

// NewTracer creates a tracer that writes to stderr, suppresses nothing, and
// numbers dispatches from 1.
func NewTracer() *Tracer {
	t := &Tracer{
		output:          LoggerSink(log.New(os.Stderr, "", 0)),
		suppress:        make(map[string]struct{}),
		sequencer:       NewSequencer(),
		names:           NewNameResolver(),
		handlerResolver: IdentityResolver{},
		indent:          defaultIndent,
	}
	t.wrappers = newWrapperRegistry(t)

	return t
}

// WithOutput sets the sink that consumes formatted trace lines.
func (t *Tracer) WithOutput(s Sink) *Tracer {
	t.output = s
	return t
}

// WithSuppress drops all output for the named channels. Their handlers still
// run and their return values are unaffected.
func (t *Tracer) WithSuppress(names ...string) *Tracer {
	for _, name := range names {
		t.suppress[name] = struct{}{}
	}

	return t
}

// WithSequencer replaces the sequence number source, for sharing one
// numbering across tracers.
func (t *Tracer) WithSequencer(s *Sequencer) *Tracer {
	t.sequencer = s
	return t
}

// WithHandlerResolver plugs in a proxy-unwrapping adapter.
func (t *Tracer) WithHandlerResolver(r HandlerResolver) *Tracer {
	t.handlerResolver = r
	return t
}

// WithNameResolver replaces the channel/handler name resolver.
func (t *Tracer) WithNameResolver(n *NameResolver) *Tracer {
	t.names = n
	return t
}

// WithIndent sets the indentation unit per nesting level.
func (t *Tracer) WithIndent(indent string) *Tracer {
	t.indent = indent
	return t
}

// Names returns the tracer's name resolver, e.g. to record referrers for
// unregistered channels.
func (t *Tracer) Names() *NameResolver {
	return t.names
}

// Send implements dispatch.Interceptor. It opens a root call context, logs
// the call header, and delegates to the wrapped entry point inside the
// context. Errors from the dispatch pass through untouched.
func (t *Tracer) Send(
	c *dispatch.Channel,
	kind dispatch.SendKind,
	sender any,
	payload dispatch.Payload,
	next func() ([]dispatch.Response, error),
) ([]dispatch.Response, error) {
	container, name := t.names.ResolveChannelName(c)

	ctx := t.beginCall(kind, container, name, sender, payload)
	ctx.logCall()

	ctx.enter()
	defer ctx.exit()

	return next()
}

// Enumerate implements dispatch.Interceptor. It substitutes each live
// handler with its logging wrapper.
func (t *Tracer) Enumerate(
	_ *dispatch.Channel,
	regs []*dispatch.Registration,
) []*dispatch.Registration {
	wrapped := make([]*dispatch.Registration, len(regs))
	for i, reg := range regs {
		wrapped[i] = t.wrappers.wrap(reg)
	}

	return wrapped
}
