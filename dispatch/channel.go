// Package dispatch provides publish/subscribe channels that handlers register
// against and senders dispatch through. Channels call through an explicit
// interceptor chain, which is how instrumentation layers such as tracing are
// attached without changing dispatch behavior.
package dispatch

import (
	"github.com/rs/xid"
)

// Payload carries the keyword arguments of one dispatch.
type Payload map[string]any

// HandlerFunc is a callable that can be connected to a Channel.
type HandlerFunc func(sender any, payload Payload) (any, error)

// SendKind distinguishes the send entry points of a channel.
type SendKind string

// The send entry points a channel exposes.
const (
	KindSend       SendKind = "SEND"
	KindSendRobust SendKind = "SEND_ROBUST"
)

// A Registration is one handler connected to a channel. It is the identity
// that instrumentation layers key on.
type Registration struct {
	id      string
	name    string
	handler HandlerFunc
}

// ID returns the unique ID assigned when the handler was connected.
func (r *Registration) ID() string {
	return r.id
}

// Name returns the explicit display name of the handler, or an empty string
// if none was given.
func (r *Registration) Name() string {
	return r.name
}

// Handler returns the callable behind the registration.
func (r *Registration) Handler() HandlerFunc {
	return r.handler
}

// Call invokes the handler.
func (r *Registration) Call(sender any, payload Payload) (any, error) {
	return r.handler(sender, payload)
}

// WrapHandler returns a registration that shares r's identity and name but
// invokes h instead.
func (r *Registration) WrapHandler(h HandlerFunc) *Registration {
	return &Registration{id: r.id, name: r.name, handler: h}
}

// A Response is the outcome of invoking one handler during a dispatch.
type Response struct {
	Registration *Registration
	Value        any
	Err          error
}

// A Channel is a publish/subscribe dispatch point.
//
// Channels are not safe for concurrent use. Install or remove interceptors
// only while no dispatch is in flight.
type Channel struct {
	name          string
	registry      *Registry
	registrations []*Registration
	interceptors  []Interceptor
}

// NewChannel creates an unregistered channel. Register it in a Registry to
// give it an explicit name.
func NewChannel() *Channel {
	return &Channel{}
}

// Name returns the name the channel was registered under, or an empty string
// for an unregistered channel.
func (c *Channel) Name() string {
	return c.name
}

// Connect registers a handler on the channel and returns its registration.
func (c *Channel) Connect(h HandlerFunc) *Registration {
	return c.ConnectNamed("", h)
}

// ConnectNamed registers a handler together with an explicit display name.
func (c *Channel) ConnectNamed(name string, h HandlerFunc) *Registration {
	handlerMustNotBeNil(h)

	r := &Registration{
		id:      xid.New().String(),
		name:    name,
		handler: h,
	}
	c.registrations = append(c.registrations, r)

	return r
}

// Disconnect removes a registration from the channel. It returns false if the
// registration is not connected.
func (c *Channel) Disconnect(r *Registration) bool {
	for i, reg := range c.registrations {
		if reg == r {
			c.registrations = append(
				c.registrations[:i], c.registrations[i+1:]...)
			return true
		}
	}

	return false
}

// LiveHandlers returns the handlers eligible for the next dispatch, in
// connection order, after passing them through the Enumerate stage of each
// interceptor, innermost layer first.
func (c *Channel) LiveHandlers() []*Registration {
	regs := make([]*Registration, len(c.registrations))
	copy(regs, c.registrations)

	for _, interceptor := range c.chain() {
		regs = interceptor.Enumerate(c, regs)
	}

	return regs
}

// Send dispatches synchronously to all live handlers in connection order. It
// stops at the first handler error, returning the responses collected so far
// together with that error.
func (c *Channel) Send(sender any, payload Payload) ([]Response, error) {
	return c.dispatch(KindSend, sender, payload)
}

// SendRobust dispatches to all live handlers, isolating failures: each
// handler's error is captured in its Response and the dispatch continues.
func (c *Channel) SendRobust(sender any, payload Payload) []Response {
	responses, _ := c.dispatch(KindSendRobust, sender, payload)
	return responses
}

func (c *Channel) dispatch(
	kind SendKind,
	sender any,
	payload Payload,
) ([]Response, error) {
	next := func() ([]Response, error) {
		return c.deliver(kind, sender, payload)
	}

	for _, interceptor := range c.chain() {
		inner := next
		ic := interceptor
		next = func() ([]Response, error) {
			return ic.Send(c, kind, sender, payload, inner)
		}
	}

	return next()
}

func (c *Channel) deliver(
	kind SendKind,
	sender any,
	payload Payload,
) ([]Response, error) {
	regs := c.LiveHandlers()
	responses := make([]Response, 0, len(regs))

	for _, r := range regs {
		value, err := r.Call(sender, payload)
		if err != nil && kind == KindSend {
			return responses, err
		}

		responses = append(responses, Response{
			Registration: r,
			Value:        value,
			Err:          err,
		})
	}

	return responses, nil
}

// AddInterceptor appends an interceptor layer on this channel only. Layers
// added later wrap layers added earlier.
func (c *Channel) AddInterceptor(i Interceptor) {
	c.interceptors = append(c.interceptors, i)
}

// RemoveTopInterceptor removes and returns the most recently added
// channel-level interceptor. It panics if the channel has none.
func (c *Channel) RemoveTopInterceptor() Interceptor {
	if len(c.interceptors) == 0 {
		panic("channel has no interceptor to remove")
	}

	top := c.interceptors[len(c.interceptors)-1]
	c.interceptors = c.interceptors[:len(c.interceptors)-1]

	return top
}

// chain returns the interceptors to apply, innermost first. Channel-level
// layers are inner, registry-level layers are outer.
func (c *Channel) chain() []Interceptor {
	if c.registry == nil {
		return c.interceptors
	}

	chain := make([]Interceptor, 0,
		len(c.interceptors)+len(c.registry.interceptors))
	chain = append(chain, c.interceptors...)
	chain = append(chain, c.registry.interceptors...)

	return chain
}

func handlerMustNotBeNil(h HandlerFunc) {
	if h == nil {
		panic("handler must not be nil")
	}
}
