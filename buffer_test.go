package tlsbench

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ConnectedBuffer", func() {
	It("reports would-block on an empty read", func() {
		buf := NewConnectedBuffer()
		n, err := buf.Read(make([]byte, 16))
		Expect(n).To(BeZero())
		Expect(errors.Is(err, ErrWouldBlock)).To(BeTrue())
	})

	It("delivers writes to the inverse view", func() {
		server := NewConnectedBuffer()
		client := server.Inverse()

		n, err := client.Write([]byte("hello"))
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(5))

		out := make([]byte, 5)
		n, err = server.Read(out)
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(5))
		Expect(out).To(Equal([]byte("hello")))

		// Nothing travels in the other direction.
		_, err = client.Read(out)
		Expect(errors.Is(err, ErrWouldBlock)).To(BeTrue())
	})

	It("drains large writes across short reads", func() {
		server := NewConnectedBuffer()
		client := server.Inverse()

		payload := make([]byte, 40000)
		for i := range payload {
			payload[i] = byte(i)
		}
		_, err := client.Write(payload)
		Expect(err).ToNot(HaveOccurred())

		var got []byte
		chunk := make([]byte, 777)
		for len(got) < len(payload) {
			n, err := server.Read(chunk)
			Expect(err).ToNot(HaveOccurred())
			got = append(got, chunk[:n]...)
		}
		Expect(got).To(Equal(payload))
		_, err = server.Read(chunk)
		Expect(errors.Is(err, ErrWouldBlock)).To(BeTrue())
	})

	It("is its own double inverse", func() {
		buf := NewConnectedBuffer()
		Expect(buf.Inverse().Inverse().Equal(buf)).To(BeTrue())
	})

	It("recognizes inverse pairs", func() {
		buf := NewConnectedBuffer()
		inv := buf.Inverse()
		Expect(buf.IsInverseOf(inv)).To(BeTrue())
		Expect(inv.IsInverseOf(buf)).To(BeTrue())
		Expect(buf.IsInverseOf(buf)).To(BeFalse())
		Expect(buf.IsInverseOf(NewConnectedBuffer())).To(BeFalse())
	})

	It("distinguishes identity from equal content", func() {
		a := NewConnectedBuffer()
		b := NewConnectedBuffer()
		Expect(a.Equal(a)).To(BeTrue())
		Expect(a.Equal(b)).To(BeFalse())
	})

	It("shrinks pending data away and keeps working", func() {
		server := NewConnectedBuffer()
		client := server.Inverse()

		_, err := client.Write(make([]byte, 12345))
		Expect(err).ToNot(HaveOccurred())
		server.Shrink()
		server.Shrink()

		_, err = server.Read(make([]byte, 1))
		Expect(errors.Is(err, ErrWouldBlock)).To(BeTrue())

		_, err = client.Write([]byte("after"))
		Expect(err).ToNot(HaveOccurred())
		out := make([]byte, 5)
		_, err = server.Read(out)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal([]byte("after")))
	})
})
