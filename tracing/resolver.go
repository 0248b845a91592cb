package tracing

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"

	"github.com/sarchlab/sigtrace/dispatch"
)

// A HandlerResolver maps a registered handler to the real target it stands
// for, so that delegating proxies show up in trace output under the name of
// the handler they forward to. The zero behavior is identity; integrations
// with their own proxy conventions plug in an adapter per Tracer.
type HandlerResolver interface {
	Resolve(reg *dispatch.Registration) *dispatch.Registration
}

// IdentityResolver is the default HandlerResolver. It resolves every handler
// to itself.
type IdentityResolver struct{}

// Resolve returns reg unchanged.
func (IdentityResolver) Resolve(
	reg *dispatch.Registration,
) *dispatch.Registration {
	return reg
}

// coreContainerPrefix marks containers that belong to the dispatch framework
// rather than to application code.
const coreContainerPrefix = "dispatch."

type referrer struct {
	container string
	attr      string
}

// A NameResolver recovers human-meaningful names for channels and handlers.
//
// Registered channels carry their own explicit name and skip every
// heuristic. For unregistered channels the resolver falls back to an
// explicit referrer index: containers that hold the channel under some
// attribute record themselves here, and the best candidate is picked by a
// deterministic preference order.
type NameResolver struct {
	referrers map[*dispatch.Channel][]referrer
}

// NewNameResolver creates a resolver with an empty referrer index.
func NewNameResolver() *NameResolver {
	return &NameResolver{
		referrers: make(map[*dispatch.Channel][]referrer),
	}
}

// AddReferrer records that container holds c under the given attribute name.
func (n *NameResolver) AddReferrer(
	container string,
	attr string,
	c *dispatch.Channel,
) {
	n.referrers[c] = append(n.referrers[c],
		referrer{container: container, attr: attr})
}

// ResolveChannelName returns the (container, name) pair for a channel.
//
// A registered channel resolves to ("", registeredName). Otherwise the
// referrer index is consulted and the best candidate wins by, in order:
// a named container over an unnamed one, a core-framework container over
// application code, a non-private attribute over a private one, a longer
// attribute over a shorter one, and lexicographic order as the final
// tie-break. Finding no referrer is not an error: the container comes back
// empty and the name falls back to a generic representation.
func (n *NameResolver) ResolveChannelName(
	c *dispatch.Channel,
) (container, name string) {
	if c.Name() != "" {
		return "", c.Name()
	}

	entries := n.referrers[c]
	if len(entries) == 0 {
		return "", fmt.Sprintf("%p", c)
	}

	best := entries[0]
	for _, entry := range entries[1:] {
		if preferReferrer(entry, best) {
			best = entry
		}
	}

	return best.container, best.attr
}

// preferReferrer reports whether a names the channel better than b.
func preferReferrer(a, b referrer) bool {
	aKey := referrerKey(a)
	bKey := referrerKey(b)

	for i := range aKey {
		if aKey[i] != bKey[i] {
			return aKey[i] > bKey[i]
		}
	}

	return a.container+"\x00"+a.attr > b.container+"\x00"+b.attr
}

func referrerKey(r referrer) [4]int {
	var key [4]int

	if r.container != "" {
		key[0] = 1
	}

	if strings.HasPrefix(r.container, coreContainerPrefix) {
		key[1] = 1
	}

	if !strings.HasPrefix(r.attr, "_") {
		key[2] = 1
	}

	key[3] = len(r.attr)

	return key
}

// HandlerDisplayName works out a displayable name for a handler. An explicit
// registration name wins; otherwise the handler function's fully qualified
// symbol is used, which reads as "package/path.funcName".
func (n *NameResolver) HandlerDisplayName(reg *dispatch.Registration) string {
	if reg.Name() != "" {
		return reg.Name()
	}

	if h := reg.Handler(); h != nil {
		fn := runtime.FuncForPC(reflect.ValueOf(h).Pointer())
		if fn != nil {
			return fn.Name()
		}
	}

	return fmt.Sprintf("handler %s", reg.ID())
}

// sortedReferrers returns the index entries for a channel ordered from least
// to most preferred. Exposed for tests of the preference order.
func (n *NameResolver) sortedReferrers(c *dispatch.Channel) []referrer {
	entries := make([]referrer, len(n.referrers[c]))
	copy(entries, n.referrers[c])

	sort.Slice(entries, func(i, j int) bool {
		return preferReferrer(entries[j], entries[i])
	})

	return entries
}
