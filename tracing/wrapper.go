package tracing

import (
	"github.com/sarchlab/sigtrace/dispatch"
)

// A wrapperEntry ties a handler identity to its currently active logging
// wrapper and remembers the install cycle that built it.
type wrapperEntry struct {
	original *dispatch.Registration
	wrapped  *dispatch.Registration
	cycle    int
}

// A wrapperRegistry guarantees at most one active logging wrapper per
// handler identity, no matter how many times enumeration runs. It replaces
// stale wrappers from earlier install cycles instead of stacking new layers
// on top of them.
type wrapperRegistry struct {
	tracer     *Tracer
	cycle      int
	byOriginal map[*dispatch.Registration]*wrapperEntry
	byWrapper  map[*dispatch.Registration]*wrapperEntry
}

func newWrapperRegistry(t *Tracer) *wrapperRegistry {
	return &wrapperRegistry{
		tracer:     t,
		byOriginal: make(map[*dispatch.Registration]*wrapperEntry),
		byWrapper:  make(map[*dispatch.Registration]*wrapperEntry),
	}
}

// newCycle starts a new install cycle. Wrappers from earlier cycles become
// stale and are replaced the next time they are seen.
func (w *wrapperRegistry) newCycle() {
	w.cycle++
}

// wrap returns the registration to hand to the dispatcher in place of reg.
func (w *wrapperRegistry) wrap(
	reg *dispatch.Registration,
) *dispatch.Registration {
	if entry, ok := w.byWrapper[reg]; ok {
		if entry.cycle == w.cycle {
			return reg
		}

		// A wrapper from an earlier install: replace, never stack.
		reg = entry.original
	}

	if entry, ok := w.byOriginal[reg]; ok {
		if entry.cycle == w.cycle {
			return entry.wrapped
		}

		delete(w.byWrapper, entry.wrapped)
	}

	entry := &wrapperEntry{original: reg, cycle: w.cycle}
	entry.wrapped = w.buildWrapper(reg)
	w.byOriginal[reg] = entry
	w.byWrapper[entry.wrapped] = entry

	return entry.wrapped
}

// buildWrapper makes the logging wrapper for one handler. On invocation it
// logs the receive line at the current depth, then runs the real handler
// inside a nested context so that dispatches the handler triggers are
// indented one level deeper. It never catches or alters the handler's error.
func (w *wrapperRegistry) buildWrapper(
	reg *dispatch.Registration,
) *dispatch.Registration {
	t := w.tracer

	return reg.WrapHandler(func(
		sender any,
		payload dispatch.Payload,
	) (any, error) {
		if t.current == nil {
			// Invoked outside any traced dispatch. Stay transparent.
			return reg.Call(sender, payload)
		}

		t.current.logReceive(reg)

		nested := t.nested()
		nested.enter()
		defer nested.exit()

		return reg.Call(sender, payload)
	})
}
