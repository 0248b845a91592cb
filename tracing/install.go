package tracing

import (
	"github.com/sarchlab/sigtrace/dispatch"
)

// An InstallTarget accepts interceptor layers. *dispatch.Channel is the
// single-instance target; *dispatch.Registry is the registry-wide target.
type InstallTarget interface {
	AddInterceptor(i dispatch.Interceptor)
	RemoveTopInterceptor() dispatch.Interceptor
}

// An InstallHandle undoes one installed instrumentation layer.
type InstallHandle struct {
	target   InstallTarget
	tracer   *Tracer
	reverted bool
}

// Install attaches the tracer to the target and returns a handle that
// reverts it.
//
// Install is not idempotent: each call adds another layer, and stacked
// layers each log. Layers must be reverted in LIFO order. This mirrors the
// underlying chain semantics and is a documented limitation rather than a
// feature.
func (t *Tracer) Install(target InstallTarget) *InstallHandle {
	t.wrappers.newCycle()
	target.AddInterceptor(t)

	return &InstallHandle{target: target, tracer: t}
}

// Revert removes the most recently installed layer, restoring the target's
// previous dispatch behavior exactly. It panics if this handle's layer is
// not the top one, or if the handle was already reverted.
func (h *InstallHandle) Revert() {
	if h.reverted {
		panic("instrumentation layer is already reverted")
	}

	top := h.target.RemoveTopInterceptor()
	if top != dispatch.Interceptor(h.tracer) {
		h.target.AddInterceptor(top)
		panic("layers must be reverted in LIFO order")
	}

	h.reverted = true
}

// Trace installs the tracer on the target, runs body, and reverts on every
// exit path, including a panicking body.
func (t *Tracer) Trace(target InstallTarget, body func()) {
	h := t.Install(target)
	defer h.Revert()

	body()
}
