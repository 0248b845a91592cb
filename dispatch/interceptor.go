package dispatch

// An Interceptor is a layer that a channel calls through on every dispatch.
// Channels are built to call interceptors by design, so instrumentation never
// has to rewrite a live channel's entry points.
//
// An interceptor must be transparent: it must not change the handler set
// beyond substituting equivalent wrappers, and it must not alter or swallow
// the responses or errors flowing through it.
type Interceptor interface {
	// Enumerate observes or substitutes the live handlers of a dispatch.
	Enumerate(c *Channel, regs []*Registration) []*Registration

	// Send wraps one send. kind tells which entry point is dispatching.
	// Implementations must call next exactly once and return its results
	// unchanged.
	Send(
		c *Channel,
		kind SendKind,
		sender any,
		payload Payload,
		next func() ([]Response, error),
	) ([]Response, error)
}
