package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sigtrace/dispatch"
)

var _ = Describe("WrapperRegistry", func() {
	var (
		registry *wrapperRegistry
		channel  *dispatch.Channel
		reg      *dispatch.Registration
	)

	BeforeEach(func() {
		tracer := NewTracer().WithOutput(func(string) {})
		registry = tracer.wrappers
		registry.newCycle()

		channel = dispatch.NewChannel()
		reg = channel.Connect(func(any, dispatch.Payload) (any, error) {
			return nil, nil
		})
	})

	It("should wrap an unwrapped handler", func() {
		wrapped := registry.wrap(reg)

		Expect(wrapped).ToNot(BeIdenticalTo(reg))
		Expect(wrapped.ID()).To(Equal(reg.ID()))
	})

	It("should reuse the wrapper within one cycle", func() {
		first := registry.wrap(reg)
		second := registry.wrap(reg)

		Expect(second).To(BeIdenticalTo(first))
	})

	It("should return a current-cycle wrapper unchanged", func() {
		wrapped := registry.wrap(reg)

		Expect(registry.wrap(wrapped)).To(BeIdenticalTo(wrapped))
	})

	It("should replace a stale wrapper instead of stacking", func() {
		stale := registry.wrap(reg)

		registry.newCycle()
		fresh := registry.wrap(stale)

		Expect(fresh).ToNot(BeIdenticalTo(stale))
		Expect(registry.byOriginal[reg].wrapped).To(BeIdenticalTo(fresh))
		Expect(registry.byWrapper).ToNot(HaveKey(stale))
	})

	It("should rewrap the original after a new cycle", func() {
		stale := registry.wrap(reg)

		registry.newCycle()
		fresh := registry.wrap(reg)

		Expect(fresh).ToNot(BeIdenticalTo(stale))
		Expect(registry.wrap(reg)).To(BeIdenticalTo(fresh))
	})

	It("should stay transparent when invoked outside a dispatch", func() {
		invoked := false
		reg = channel.Connect(func(any, dispatch.Payload) (any, error) {
			invoked = true
			return "value", nil
		})

		wrapped := registry.wrap(reg)
		value, err := wrapped.Call(nil, nil)

		Expect(err).ToNot(HaveOccurred())
		Expect(value).To(Equal("value"))
		Expect(invoked).To(BeTrue())
	})
})
