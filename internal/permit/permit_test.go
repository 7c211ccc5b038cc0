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

package permit_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abhivijay96/voltdb-client-go/internal/permit"
)

var _ = Describe("Send-permit semaphore", func() {
	Describe("acquire and release", func() {
		It("hands out exactly the configured number of permits", func() {
			s := permit.New(3)

			Expect(s.TryAcquire()).To(BeTrue())
			Expect(s.TryAcquire()).To(BeTrue())
			Expect(s.TryAcquire()).To(BeTrue())
			Expect(s.TryAcquire()).To(BeFalse())

			s.Release(1)
			Expect(s.TryAcquire()).To(BeTrue())
		})

		It("keeps held plus available equal to the limit", func() {
			s := permit.New(5)

			Expect(s.TryAcquire()).To(BeTrue())
			Expect(s.TryAcquire()).To(BeTrue())

			Expect(s.Available() + 2).To(Equal(s.Limit()))
		})

		It("restores a released permit to the free pool", func() {
			s := permit.New(2)
			Expect(s.TryAcquire()).To(BeTrue())
			Expect(s.TryAcquire()).To(BeTrue())

			s.Release(2)
			Expect(s.Available()).To(Equal(2))
		})

		It("times out a blocking acquire when nothing frees up", func() {
			s := permit.New(1)
			Expect(s.TryAcquire()).To(BeTrue())

			start := time.Now()
			Expect(s.Acquire(30 * time.Millisecond)).To(BeFalse())
			Expect(time.Since(start)).To(BeNumerically(">=", 30*time.Millisecond))
		})

		It("unblocks a waiting acquire on release", func() {
			s := permit.New(1)
			Expect(s.TryAcquire()).To(BeTrue())

			done := make(chan bool, 1)
			go func() {
				done <- s.Acquire(2 * time.Second)
			}()

			time.Sleep(20 * time.Millisecond)
			s.Release(1)

			Eventually(done).Should(Receive(BeTrue()))
		})
	})

	Describe("resizing", func() {
		It("grows by releasing the delta", func() {
			s := permit.New(2)
			Expect(s.Resize(5)).To(Succeed())
			Expect(s.Limit()).To(Equal(5))
			Expect(s.Available()).To(Equal(5))
		})

		It("shrinks by draining free permits", func() {
			s := permit.New(5)
			Expect(s.Resize(2)).To(Succeed())
			Expect(s.Limit()).To(Equal(2))
			Expect(s.Available()).To(Equal(2))
		})

		It("refuses a shrink that would over-commit held permits", func() {
			s := permit.New(3)
			Expect(s.TryAcquire()).To(BeTrue())
			Expect(s.TryAcquire()).To(BeTrue())

			err := s.Resize(1)
			Expect(err).To(HaveOccurred())
			Expect(s.Limit()).To(Equal(3))

			// The refused shrink must not have eaten the free permit.
			Expect(s.Available()).To(Equal(1))
		})

		It("rejects non-positive limits", func() {
			s := permit.New(1)
			Expect(s.Resize(0)).To(HaveOccurred())
			Expect(s.Resize(-4)).To(HaveOccurred())
		})
	})
})
