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

package schedule_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/errors"
	"github.com/abhivijay96/voltdb-client-go/internal/permit"
	"github.com/abhivijay96/voltdb-client-go/internal/promise"
	"github.com/abhivijay96/voltdb-client-go/internal/registry"
	"github.com/abhivijay96/voltdb-client-go/internal/schedule"
)

func newSched(reg *registry.Registry, perms *permit.Semaphore) *schedule.Scheduler {
	return schedule.New(schedule.Options{
		Registry: reg,
		Permits:  perms,
	})
}

func sentPending(reg *registry.Registry, handle int64, proc string, timeout time.Duration) *registry.Pending {
	p := &registry.Pending{
		Handle:  handle,
		Seq:     reg.NextSeq(),
		Inv:     codec.NewInvocation(proc, handle),
		Promise: promise.New[*codec.Response](),
		Start:   time.Now(),
		Timeout: timeout,
	}
	Expect(reg.Admit(p)).To(BeNil())
	reg.MarkActive(p)
	return p
}

var _ = Describe("Long-operation exemption", func() {
	It("matches exactly the two known long operations", func() {
		Expect(schedule.IsLongOp("@UpdateApplicationCatalog")).To(BeTrue())
		Expect(schedule.IsLongOp("@SnapshotSave")).To(BeTrue())
	})

	It("rejects everything else", func() {
		Expect(schedule.IsLongOp("@Ping")).To(BeFalse())
		Expect(schedule.IsLongOp("@SnapshotRestore")).To(BeFalse())
		Expect(schedule.IsLongOp("SnapshotSave")).To(BeFalse())
		Expect(schedule.IsLongOp("")).To(BeFalse())
		Expect(schedule.IsLongOp("Vote")).To(BeFalse())
	})
})

var _ = Describe("Timeout scheduler", func() {
	var (
		reg   *registry.Registry
		perms *permit.Semaphore
		s     *schedule.Scheduler
	)

	BeforeEach(func() {
		reg = registry.New(100, 80, 20, nil, nil)
		perms = permit.New(10)
		s = newSched(reg, perms)
	})

	Describe("one-shot sub-second timeouts", func() {
		It("expires an active request right after its budget", func() {
			p := sentPending(reg, 1, "Echo", 50*time.Millisecond)
			p.SetHoldsPermit(true)
			Expect(perms.TryAcquire()).To(BeTrue())

			s.OneShot(p)

			Eventually(p.Promise.Done(), time.Second).Should(BeClosed())
			_, err := p.Promise.Wait(context.Background())
			Expect(errors.Has(err, schedule.CodeResponseTimeout)).To(BeTrue())

			// Record gone, permit back, registry drained.
			Expect(reg.Size()).To(BeZero())
			Expect(perms.Available()).To(Equal(10))
		})

		It("does nothing when the handle already completed", func() {
			p := sentPending(reg, 2, "Echo", 20*time.Millisecond)

			// A response beat the timer: the record leaves the registry.
			rec, ok := reg.Remove(2)
			Expect(ok).To(BeTrue())
			rec.Promise.Complete(&codec.Response{Handle: 2, Status: codec.StatusSuccess}, nil)

			s.OneShot(p)
			Consistently(func() int { return reg.Size() }, 100*time.Millisecond).Should(BeZero())

			resp, err := p.Promise.Wait(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Status).To(Equal(codec.StatusSuccess))
		})

		It("never arms for exempt long operations", func() {
			p := sentPending(reg, 3, "@SnapshotSave", 10*time.Millisecond)
			s.OneShot(p)

			Consistently(p.Promise.Done(), 200*time.Millisecond).ShouldNot(BeClosed())
		})
	})

	Describe("per-second coarse scan", func() {
		It("expires overdue requests on the next tick", func() {
			s.Start()
			defer s.Stop()

			p := sentPending(reg, 4, "Echo", 200*time.Millisecond)

			Eventually(p.Promise.Done(), 3*time.Second).Should(BeClosed())
			_, err := p.Promise.Wait(context.Background())
			Expect(errors.Has(err, schedule.CodeResponseTimeout)).To(BeTrue())
		})

		It("leaves in-budget requests alone", func() {
			s.Start()
			defer s.Stop()

			p := sentPending(reg, 5, "Echo", time.Minute)
			Consistently(p.Promise.Done(), 2*time.Second).ShouldNot(BeClosed())
		})
	})

	Describe("deferred tasks", func() {
		It("runs submitted tasks and reports idle after", func() {
			s.Start()
			defer s.Stop()

			ran := make(chan struct{})
			Expect(s.Submit(func() { close(ran) })).To(BeTrue())

			Eventually(ran, time.Second).Should(BeClosed())
			Eventually(s.TasksIdle, time.Second).Should(BeTrue())
		})

		It("runs delayed tasks after the delay", func() {
			s.Start()
			defer s.Stop()

			ran := make(chan time.Time, 1)
			start := time.Now()
			s.SubmitAfter(50*time.Millisecond, func() { ran <- time.Now() })

			var at time.Time
			Eventually(ran, time.Second).Should(Receive(&at))
			Expect(at.Sub(start)).To(BeNumerically(">=", 50*time.Millisecond))
		})

		It("contains task panics", func() {
			s.Start()
			defer s.Stop()

			Expect(s.Submit(func() { panic("task bug") })).To(BeTrue())
			Eventually(s.TasksIdle, time.Second).Should(BeTrue())

			// The executor survived.
			ran := make(chan struct{})
			Expect(s.Submit(func() { close(ran) })).To(BeTrue())
			Eventually(ran, time.Second).Should(BeClosed())
		})
	})
})
