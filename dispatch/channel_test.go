package dispatch

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("Channel", func() {
	var c *Channel

	BeforeEach(func() {
		c = NewChannel()
	})

	It("should invoke handlers in connection order", func() {
		var order []string
		c.Connect(func(any, Payload) (any, error) {
			order = append(order, "first")
			return 1, nil
		})
		c.Connect(func(any, Payload) (any, error) {
			order = append(order, "second")
			return 2, nil
		})

		responses, err := c.Send("sender", Payload{})

		Expect(err).ToNot(HaveOccurred())
		Expect(order).To(Equal([]string{"first", "second"}))
		Expect(responses).To(HaveLen(2))
		Expect(responses[0].Value).To(Equal(1))
		Expect(responses[1].Value).To(Equal(2))
	})

	It("should pass sender and payload to handlers", func() {
		var gotSender any
		var gotPayload Payload
		c.Connect(func(sender any, payload Payload) (any, error) {
			gotSender = sender
			gotPayload = payload
			return nil, nil
		})

		_, err := c.Send("order-service", Payload{"id": 42})

		Expect(err).ToNot(HaveOccurred())
		Expect(gotSender).To(Equal("order-service"))
		Expect(gotPayload).To(HaveKeyWithValue("id", 42))
	})

	It("should stop at the first handler error on Send", func() {
		boom := errors.New("boom")
		invoked := false
		c.Connect(func(any, Payload) (any, error) {
			return nil, boom
		})
		c.Connect(func(any, Payload) (any, error) {
			invoked = true
			return nil, nil
		})

		responses, err := c.Send(nil, nil)

		Expect(err).To(MatchError(boom))
		Expect(responses).To(BeEmpty())
		Expect(invoked).To(BeFalse())
	})

	It("should isolate handler errors on SendRobust", func() {
		boom := errors.New("boom")
		c.Connect(func(any, Payload) (any, error) {
			return nil, boom
		})
		c.Connect(func(any, Payload) (any, error) {
			return "ok", nil
		})

		responses := c.SendRobust(nil, nil)

		Expect(responses).To(HaveLen(2))
		Expect(responses[0].Err).To(MatchError(boom))
		Expect(responses[1].Err).ToNot(HaveOccurred())
		Expect(responses[1].Value).To(Equal("ok"))
	})

	It("should disconnect handlers", func() {
		r := c.Connect(func(any, Payload) (any, error) {
			return nil, nil
		})

		Expect(c.Disconnect(r)).To(BeTrue())
		Expect(c.LiveHandlers()).To(BeEmpty())
		Expect(c.Disconnect(r)).To(BeFalse())
	})

	It("should keep identity and name on wrapped registrations", func() {
		r := c.ConnectNamed("module.on_created",
			func(any, Payload) (any, error) {
				return nil, nil
			})

		w := r.WrapHandler(func(any, Payload) (any, error) {
			return nil, nil
		})

		Expect(w.ID()).To(Equal(r.ID()))
		Expect(w.Name()).To(Equal(r.Name()))
		Expect(w).ToNot(BeIdenticalTo(r))
	})

	It("should panic when connecting a nil handler", func() {
		Expect(func() {
			c.Connect(nil)
		}).To(Panic())
	})

	Context("with interceptors", func() {
		var (
			mockCtrl *gomock.Controller
			inner    *MockInterceptor
			outer    *MockInterceptor
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			inner = NewMockInterceptor(mockCtrl)
			outer = NewMockInterceptor(mockCtrl)
		})

		It("should call later-added layers outermost", func() {
			var order []string
			c.AddInterceptor(inner)
			c.AddInterceptor(outer)

			inner.EXPECT().
				Send(c, KindSend, nil, gomock.Nil(), gomock.Any()).
				DoAndReturn(func(
					_ *Channel, _ SendKind, _ any, _ Payload,
					next func() ([]Response, error),
				) ([]Response, error) {
					order = append(order, "inner")
					return next()
				})
			outer.EXPECT().
				Send(c, KindSend, nil, gomock.Nil(), gomock.Any()).
				DoAndReturn(func(
					_ *Channel, _ SendKind, _ any, _ Payload,
					next func() ([]Response, error),
				) ([]Response, error) {
					order = append(order, "outer")
					return next()
				})
			inner.EXPECT().
				Enumerate(c, gomock.Any()).
				DoAndReturn(func(
					_ *Channel, regs []*Registration,
				) []*Registration {
					order = append(order, "enumerate-inner")
					return regs
				})
			outer.EXPECT().
				Enumerate(c, gomock.Any()).
				DoAndReturn(func(
					_ *Channel, regs []*Registration,
				) []*Registration {
					order = append(order, "enumerate-outer")
					return regs
				})

			_, err := c.Send(nil, nil)

			Expect(err).ToNot(HaveOccurred())
			Expect(order).To(Equal([]string{
				"outer", "inner",
				"enumerate-inner", "enumerate-outer",
			}))
		})

		It("should not change responses when interceptors pass through", func() {
			c.Connect(func(any, Payload) (any, error) {
				return "value", nil
			})
			c.AddInterceptor(inner)

			inner.EXPECT().
				Send(c, KindSendRobust, nil, gomock.Nil(), gomock.Any()).
				DoAndReturn(func(
					_ *Channel, _ SendKind, _ any, _ Payload,
					next func() ([]Response, error),
				) ([]Response, error) {
					return next()
				})
			inner.EXPECT().
				Enumerate(c, gomock.Any()).
				DoAndReturn(func(
					_ *Channel, regs []*Registration,
				) []*Registration {
					return regs
				})

			responses := c.SendRobust(nil, nil)

			Expect(responses).To(HaveLen(1))
			Expect(responses[0].Value).To(Equal("value"))
		})

		It("should remove layers in LIFO order", func() {
			c.AddInterceptor(inner)
			c.AddInterceptor(outer)

			Expect(c.RemoveTopInterceptor()).To(
				BeIdenticalTo(Interceptor(outer)))
			Expect(c.RemoveTopInterceptor()).To(
				BeIdenticalTo(Interceptor(inner)))
		})

		It("should panic when removing from an empty chain", func() {
			Expect(func() {
				c.RemoveTopInterceptor()
			}).To(Panic())
		})
	})
})
