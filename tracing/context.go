package tracing

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/sarchlab/sigtrace/dispatch"
)

// PrimaryKeyer is implemented by senders that expose a primary-key-like
// identifier, which is then included in the call header.
type PrimaryKeyer interface {
	PrimaryKey() any
}

// A CallContext is one frame of the tracer's call stack. A root context
// carries a newly allocated DispatchCall; a nested receive context inherits
// its parent's call, so nested lines report the same sequence number.
type CallContext struct {
	tracer *Tracer
	call   *DispatchCall
	parent *CallContext
}

// beginCall allocates the next sequence number, builds the DispatchCall, and
// returns a root context whose parent is whatever context is active now.
func (t *Tracer) beginCall(
	kind dispatch.SendKind,
	container string,
	name string,
	sender any,
	payload dispatch.Payload,
) *CallContext {
	call := &DispatchCall{
		Sequence:  t.sequencer.Next(),
		Kind:      kind,
		Container: container,
		Channel:   name,
		Sender:    sender,
		Payload:   payload,
	}

	return &CallContext{tracer: t, call: call, parent: t.current}
}

// nested returns a context that inherits the active context's DispatchCall.
func (t *Tracer) nested() *CallContext {
	return &CallContext{
		tracer: t,
		call:   t.current.call,
		parent: t.current,
	}
}

// enter pushes the context as current and deepens the indentation.
func (c *CallContext) enter() {
	c.tracer.current = c
	c.tracer.depth++
}

// exit restores the parent as current. It must run on every path out of the
// matching enter, so callers defer it.
func (c *CallContext) exit() {
	c.tracer.current = c.parent
	c.tracer.depth--
}

// log emits the message at the current depth, unless the call's channel is
// suppressed.
func (c *CallContext) log(msg string) {
	if _, ok := c.tracer.suppress[c.call.Channel]; ok {
		return
	}

	c.tracer.output(strings.Repeat(c.tracer.indent, c.tracer.depth) + msg)
}

// logCall emits the call header of the dispatch.
func (c *CallContext) logCall() {
	c.log(fmt.Sprintf("%s %d %s %s",
		c.call.Kind,
		c.call.Sequence,
		c.call.QualifiedChannel(),
		senderDescriptor(c.call.Sender)))
}

// logReceive emits the receive line for one handler of the dispatch.
func (c *CallContext) logReceive(reg *dispatch.Registration) {
	real := c.tracer.handlerResolver.Resolve(reg)
	name := c.tracer.names.HandlerDisplayName(real)

	c.log(fmt.Sprintf("RECEIVING %d %s: %s",
		c.call.Sequence, c.call.Channel, name))
}

// senderDescriptor renders the sender as its type name plus its primary key
// when it exposes one, and as a generic representation otherwise.
func senderDescriptor(sender any) string {
	if sender == nil {
		return "<nil>"
	}

	if pk, ok := sender.(PrimaryKeyer); ok {
		return fmt.Sprintf("%s (%v)", typeName(sender), pk.PrimaryKey())
	}

	return fmt.Sprintf("%v", sender)
}

func typeName(value any) string {
	t := reflect.TypeOf(value)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Name() != "" {
		return t.Name()
	}

	return t.String()
}
