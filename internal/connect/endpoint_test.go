/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package connect_test

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/connect"
	"github.com/abhivijay96/voltdb-client-go/internal/errors"
	"github.com/abhivijay96/voltdb-client-go/internal/permit"
	"github.com/abhivijay96/voltdb-client-go/internal/promise"
	"github.com/abhivijay96/voltdb-client-go/internal/registry"
)

// harness bundles one endpoint over a pipe with the far (server) side.
type harness struct {
	ep     *connect.Endpoint
	server net.Conn

	reg     *registry.Registry
	permits *permit.Semaphore

	mu       sync.Mutex
	inbound  [][]byte
	downOnce chan struct{}
}

func newHarness(extra func(*connect.Options)) *harness {
	clientSide, serverSide := net.Pipe()

	h := &harness{
		server:   serverSide,
		reg:      registry.New(100, 80, 20, nil, nil),
		permits:  permit.New(10),
		downOnce: make(chan struct{}),
	}

	opts := connect.Options{
		Registry: h.reg,
		Permits:  h.permits,
		Inbound: func(_ *connect.Endpoint, frame []byte) {
			h.mu.Lock()
			h.inbound = append(h.inbound, frame)
			h.mu.Unlock()
		},
		OnDown: func(_ *connect.Endpoint) {
			close(h.downOnce)
		},
	}
	if extra != nil {
		extra(&opts)
	}

	h.ep = connect.NewEndpoint(clientSide, "test:21212", opts)
	h.ep.Start()
	return h
}

func (h *harness) pending(handle int64, timeout time.Duration) *registry.Pending {
	p := &registry.Pending{
		Handle:  handle,
		Seq:     h.reg.NextSeq(),
		Inv:     codec.NewInvocation("Echo", handle),
		Promise: promise.New[*codec.Response](),
		Start:   time.Now(),
		Timeout: timeout,
		Conn:    h.ep,
	}
	return p
}

// readFrame reads one length-prefixed record off the server side.
func (h *harness) readFrame(timeout time.Duration) ([]byte, error) {
	_ = h.server.SetReadDeadline(time.Now().Add(timeout))

	var lenBuf [4]byte
	if _, err := io.ReadFull(h.server, lenBuf[:]); err != nil {
		return nil, err
	}
	frame := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
	if _, err := io.ReadFull(h.server, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// writeFrame pushes one length-prefixed record at the endpoint.
func (h *harness) writeFrame(body []byte) error {
	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(buf, uint32(len(body)))
	copy(buf[4:], body)
	_, err := h.server.Write(buf)
	return err
}

var _ = Describe("Connection endpoint", func() {
	It("delivers inbound frames to the callback", func() {
		h := newHarness(nil)
		defer h.ep.Teardown()

		resp := codec.MarshalResponse(&codec.Response{Handle: 42, Status: codec.StatusSuccess})
		Expect(h.writeFrame(resp)).To(Succeed())

		Eventually(func() int {
			h.mu.Lock()
			defer h.mu.Unlock()
			return len(h.inbound)
		}, time.Second).Should(Equal(1))
	})

	It("sends an enqueued request as a length-prefixed invocation", func() {
		h := newHarness(nil)
		defer h.ep.Teardown()

		p := h.pending(7, time.Minute)
		Expect(h.reg.Admit(p)).To(BeNil())
		Expect(h.ep.Enqueue(p)).To(BeNil())

		frame, err := h.readFrame(time.Second)
		Expect(err).ToNot(HaveOccurred())

		dec, derr := codec.ReadFrom(frame)
		Expect(derr).ToNot(HaveOccurred())
		Expect(dec.Procedure).To(Equal("Echo"))
		Expect(dec.Handle).To(Equal(int64(7)))

		// The handle is active for the timeout scanner, and the request
		// holds its send permit.
		Eventually(func() bool { return h.reg.IsActive(7) }, time.Second).Should(BeTrue())
		Expect(p.HoldsPermit()).To(BeTrue())
		Expect(h.permits.Available()).To(Equal(9))
	})

	It("fails queued and in-flight requests with connection-lost on teardown", func() {
		h := newHarness(nil)

		p := h.pending(1, time.Minute)
		Expect(h.reg.Admit(p)).To(BeNil())
		Expect(h.ep.Enqueue(p)).To(BeNil())

		// Let it reach the wire, then kill the connection.
		_, err := h.readFrame(time.Second)
		Expect(err).ToNot(HaveOccurred())
		h.ep.Teardown()

		Eventually(p.Promise.Done(), time.Second).Should(BeClosed())
		_, perr := p.Promise.Wait(context.Background())
		Expect(perr).To(HaveOccurred())
		Expect(errors.Has(perr, connect.CodeConnectionLost)).To(BeTrue())

		// Its permit came back.
		Expect(h.permits.Available()).To(Equal(10))
		Expect(h.reg.Size()).To(BeZero())
	})

	It("refuses enqueue after teardown", func() {
		h := newHarness(nil)
		h.ep.Teardown()
		Eventually(h.downOnce, time.Second).Should(BeClosed())

		p := h.pending(3, time.Minute)
		Expect(h.ep.Enqueue(p)).ToNot(BeNil())
	})

	It("tears down when the peer closes the socket", func() {
		h := newHarness(nil)
		Expect(h.server.Close()).To(Succeed())

		Eventually(h.downOnce, time.Second).Should(BeClosed())
		Expect(h.ep.IsConnected()).To(BeFalse())
	})

	It("stamps last-response time on inbound traffic", func() {
		h := newHarness(nil)
		defer h.ep.Teardown()

		time.Sleep(50 * time.Millisecond)
		before := h.ep.SinceLastResponse()
		Expect(before).To(BeNumerically(">=", 40*time.Millisecond))

		resp := codec.MarshalResponse(&codec.Response{Handle: 1, Status: codec.StatusSuccess})
		Expect(h.writeFrame(resp)).To(Succeed())

		Eventually(func() time.Duration {
			return h.ep.SinceLastResponse()
		}, time.Second).Should(BeNumerically("<", before))
	})
})
