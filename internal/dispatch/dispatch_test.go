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

package dispatch_test

import (
	"context"
	"math"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/dispatch"
	"github.com/abhivijay96/voltdb-client-go/internal/permit"
	"github.com/abhivijay96/voltdb-client-go/internal/promise"
	"github.com/abhivijay96/voltdb-client-go/internal/registry"
	"github.com/abhivijay96/voltdb-client-go/internal/statsreport"
)

type dispatchHarness struct {
	reg   *registry.Registry
	perms *permit.Semaphore
	d     *dispatch.Dispatcher

	mu      sync.Mutex
	topo    []*codec.Response
	catalog []*codec.Response
	late    []int64
}

func newDispatchHarness() *dispatchHarness {
	h := &dispatchHarness{
		reg:   registry.New(100, 80, 20, nil, nil),
		perms: permit.New(10),
	}

	h.d = dispatch.New(dispatch.Options{
		Registry: h.reg,
		Permits:  h.perms,
		Stats:    statsreport.New(),
		Workers:  2,
		OnTopology: func(r *codec.Response) {
			h.mu.Lock()
			h.topo = append(h.topo, r)
			h.mu.Unlock()
		},
		OnCatalog: func(r *codec.Response) {
			h.mu.Lock()
			h.catalog = append(h.catalog, r)
			h.mu.Unlock()
		},
		OnLateResponse: func(handle int64, _ string) {
			h.mu.Lock()
			h.late = append(h.late, handle)
			h.mu.Unlock()
		},
	})
	return h
}

func (h *dispatchHarness) admit(handle int64, holdsPermit bool) *registry.Pending {
	p := &registry.Pending{
		Handle:  handle,
		Seq:     h.reg.NextSeq(),
		Inv:     codec.NewInvocation("Echo", handle),
		Promise: promise.New[*codec.Response](),
		Start:   time.Now(),
		Timeout: time.Minute,
	}
	Expect(h.reg.Admit(p)).To(BeNil())
	if holdsPermit {
		Expect(h.perms.TryAcquire()).To(BeTrue())
		p.SetHoldsPermit(true)
	}
	return p
}

func frame(r *codec.Response) []byte {
	return codec.MarshalResponse(r)
}

var _ = Describe("Response dispatcher", func() {
	var h *dispatchHarness

	BeforeEach(func() {
		h = newDispatchHarness()
	})

	It("completes the matching pending record and releases its permit", func() {
		p := h.admit(7, true)
		Expect(h.perms.Available()).To(Equal(9))

		h.d.Submit("a:21212", frame(&codec.Response{Handle: 7, Status: codec.StatusSuccess}))

		Eventually(p.Promise.Done(), time.Second).Should(BeClosed())
		resp, err := p.Promise.Wait(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(resp.Status).To(Equal(codec.StatusSuccess))
		Expect(resp.RoundTripNanos).To(BeNumerically(">", 0))

		Expect(h.reg.Size()).To(BeZero())
		Eventually(h.perms.Available, time.Second).Should(Equal(10))
	})

	It("notifies late responses without touching permits", func() {
		h.d.Submit("a:21212", frame(&codec.Response{Handle: 99, Status: codec.StatusSuccess}))

		Eventually(func() []int64 {
			h.mu.Lock()
			defer h.mu.Unlock()
			return append([]int64(nil), h.late...)
		}, time.Second).Should(Equal([]int64{99}))

		Expect(h.perms.Available()).To(Equal(10))
	})

	It("completes internal system calls on negative handles", func() {
		p := &registry.Pending{
			Handle:  -3,
			Seq:     h.reg.NextSeq(),
			Inv:     codec.NewInvocation("@Ping", -3),
			Promise: promise.New[*codec.Response](),
			Start:   time.Now(),
			Timeout: time.Second,
		}
		Expect(h.reg.AdmitSystem(p)).To(BeNil())

		h.d.Submit("a:21212", frame(&codec.Response{Handle: -3, Status: codec.StatusSuccess}))

		Eventually(p.Promise.Done(), time.Second).Should(BeClosed())
	})

	It("routes the magic topology and catalog handles", func() {
		h.d.Submit("a:21212", frame(&codec.Response{Handle: codec.HandleTopologyUpdate, Status: codec.StatusSuccess}))
		h.d.Submit("a:21212", frame(&codec.Response{Handle: codec.HandleCatalogUpdate, Status: codec.StatusSuccess}))

		Eventually(func() int {
			h.mu.Lock()
			defer h.mu.Unlock()
			return len(h.topo) + len(h.catalog)
		}, time.Second).Should(Equal(2))
	})

	It("drops unknown magic handles", func() {
		h.d.Submit("a:21212", frame(&codec.Response{Handle: math.MaxInt64, Status: codec.StatusSuccess}))

		Consistently(func() int {
			h.mu.Lock()
			defer h.mu.Unlock()
			return len(h.topo) + len(h.catalog) + len(h.late)
		}, 100*time.Millisecond).Should(BeZero())
	})

	It("drops undecodable frames", func() {
		Expect(func() {
			h.d.Submit("a:21212", []byte{0x01})
			Expect(h.d.Drain(context.Background())).To(Succeed())
		}).ToNot(Panic())
	})

	It("drains once all in-flight completions finish", func() {
		for i := int64(1); i <= 20; i++ {
			p := h.admit(i, false)
			h.d.Submit("a:21212", frame(&codec.Response{Handle: p.Handle, Status: codec.StatusSuccess}))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		Expect(h.d.Drain(ctx)).To(Succeed())
		Expect(h.reg.Size()).To(BeZero())
	})
})
