package dispatch

import (
	"sort"
	"strings"
)

// A Registry maps explicit names to channels. Names are mandatory at
// registration time so that trace output never has to guess what a channel is
// called.
//
// A registry is also an interceptor target: a layer added here applies to
// every channel registered in it.
type Registry struct {
	channels     map[string]*Channel
	interceptors []Interceptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]*Channel),
	}
}

// Register binds a channel under an explicit name. It panics if the name is
// invalid or taken, or if the channel is already registered.
func (r *Registry) Register(name string, c *Channel) {
	channelNameMustBeValid(name)

	if _, ok := r.channels[name]; ok {
		panic("channel name " + name + " is already registered")
	}

	if c.registry != nil {
		panic("channel is already registered as " + c.name)
	}

	c.name = name
	c.registry = r
	r.channels[name] = c
}

// NewChannel creates a channel and registers it under name.
func (r *Registry) NewChannel(name string) *Channel {
	c := NewChannel()
	r.Register(name, c)

	return c
}

// Channel returns the channel registered under name, or nil.
func (r *Registry) Channel(name string) *Channel {
	return r.channels[name]
}

// ChannelNames returns all registered names in sorted order.
func (r *Registry) ChannelNames() []string {
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// AddInterceptor appends a registry-wide interceptor layer. Registry layers
// wrap channel-level layers.
func (r *Registry) AddInterceptor(i Interceptor) {
	r.interceptors = append(r.interceptors, i)
}

// RemoveTopInterceptor removes and returns the most recently added
// registry-wide interceptor. It panics if the registry has none.
func (r *Registry) RemoveTopInterceptor() Interceptor {
	if len(r.interceptors) == 0 {
		panic("registry has no interceptor to remove")
	}

	top := r.interceptors[len(r.interceptors)-1]
	r.interceptors = r.interceptors[:len(r.interceptors)-1]

	return top
}

// channelNameMustBeValid panics unless the name is a dot-separated sequence
// of non-empty tokens, such as "orders.created".
func channelNameMustBeValid(name string) {
	if name == "" {
		panic("channel name must not be empty")
	}

	for _, token := range strings.Split(name, ".") {
		if token == "" {
			panic("channel name " + name + " must not have empty segments")
		}
	}
}
