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

package registry_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/errors"
	"github.com/abhivijay96/voltdb-client-go/internal/promise"
	"github.com/abhivijay96/voltdb-client-go/internal/registry"
)

func pend(r *registry.Registry, handle int64) *registry.Pending {
	return &registry.Pending{
		Handle:  handle,
		Seq:     r.NextSeq(),
		Inv:     codec.NewInvocation("Echo", handle),
		Promise: promise.New[*codec.Response](),
		Start:   time.Now(),
		Timeout: time.Minute,
	}
}

var _ = Describe("Request registry", func() {
	Describe("hard cap", func() {
		It("admits up to the cap and refuses the next", func() {
			r := registry.New(3, 3, 1, nil, nil)

			for h := int64(1); h <= 3; h++ {
				Expect(r.Admit(pend(r, h))).To(BeNil())
			}
			Expect(r.Size()).To(Equal(3))

			err := r.Admit(pend(r, 4))
			Expect(err).ToNot(BeNil())
			Expect(err.HasCode(registry.CodeRequestLimit)).To(BeTrue())
			Expect(r.Size()).To(Equal(3))
		})

		It("frees capacity when records are removed", func() {
			r := registry.New(2, 2, 1, nil, nil)

			Expect(r.Admit(pend(r, 1))).To(BeNil())
			Expect(r.Admit(pend(r, 2))).To(BeNil())

			_, ok := r.Remove(1)
			Expect(ok).To(BeTrue())
			Expect(r.Admit(pend(r, 3))).To(BeNil())
		})

		It("admits system calls past the cap", func() {
			r := registry.New(1, 1, 1, nil, nil)
			Expect(r.Admit(pend(r, 1))).To(BeNil())
			Expect(r.AdmitSystem(pend(r, -5))).To(BeNil())
			Expect(r.Size()).To(Equal(2))
		})
	})

	Describe("removal ownership", func() {
		It("lets exactly one remover win", func() {
			r := registry.New(10, 10, 1, nil, nil)
			Expect(r.Admit(pend(r, 7))).To(BeNil())

			var wins int
			var mu sync.Mutex
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, ok := r.Remove(7); ok {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			Expect(wins).To(Equal(1))
			Expect(r.Size()).To(BeZero())
		})
	})

	Describe("active-handle set", func() {
		It("tracks only marked handles and drops them on removal", func() {
			r := registry.New(10, 10, 1, nil, nil)

			p := pend(r, 1)
			Expect(r.Admit(p)).To(BeNil())
			Expect(r.IsActive(1)).To(BeFalse())

			got, ok := r.Lookup(1)
			Expect(ok).To(BeTrue())
			Expect(got).To(BeIdenticalTo(p))

			r.MarkActive(p)
			Expect(r.IsActive(1)).To(BeTrue())

			_, ok = r.Remove(1)
			Expect(ok).To(BeTrue())
			Expect(r.IsActive(1)).To(BeFalse())
		})
	})

	Describe("warning and resume transitions", func() {
		It("alternates strictly true, false, true", func() {
			var mu sync.Mutex
			var seen []bool
			handler := func(on bool) {
				mu.Lock()
				seen = append(seen, on)
				mu.Unlock()
			}

			r := registry.New(100, 5, 2, handler, nil)

			// Cross the warning level going up: exactly one true.
			for h := int64(1); h <= 8; h++ {
				Expect(r.Admit(pend(r, h))).To(BeNil())
			}
			Expect(r.Backpressured()).To(BeTrue())

			// Drain below resume: exactly one false.
			for h := int64(1); h <= 7; h++ {
				r.Remove(h)
				r.TestResume()
			}
			Expect(r.Backpressured()).To(BeFalse())

			mu.Lock()
			defer mu.Unlock()
			Expect(seen).To(Equal([]bool{true, false}))
		})

		It("never reports resume while still above the resume level", func() {
			r := registry.New(100, 4, 1, nil, nil)

			for h := int64(1); h <= 6; h++ {
				Expect(r.Admit(pend(r, h))).To(BeNil())
			}
			Expect(r.Backpressured()).To(BeTrue())

			r.Remove(1)
			r.TestResume()
			Expect(r.Backpressured()).To(BeTrue())
		})

		It("re-raises after a resume when load returns", func() {
			var mu sync.Mutex
			var seen []bool
			r := registry.New(100, 3, 1, func(on bool) {
				mu.Lock()
				seen = append(seen, on)
				mu.Unlock()
			}, nil)

			for h := int64(1); h <= 3; h++ {
				Expect(r.Admit(pend(r, h))).To(BeNil())
			}
			for h := int64(1); h <= 2; h++ {
				r.Remove(h)
				r.TestResume()
			}
			for h := int64(10); h <= 12; h++ {
				Expect(r.Admit(pend(r, h))).To(BeNil())
			}

			mu.Lock()
			defer mu.Unlock()
			Expect(seen).To(Equal([]bool{true, false, true}))
		})

		It("swallows handler panics", func() {
			r := registry.New(100, 1, 1, func(on bool) {
				panic("handler bug")
			}, nil)

			Expect(func() {
				_ = r.Admit(pend(r, 1))
			}).ToNot(Panic())
		})
	})

	Describe("permit bookkeeping", func() {
		It("transfers the held permit to exactly one taker", func() {
			p := pend(registry.New(10, 10, 1, nil, nil), 1)
			p.SetHoldsPermit(true)

			Expect(p.TakePermit()).To(BeTrue())
			Expect(p.TakePermit()).To(BeFalse())
			Expect(p.HoldsPermit()).To(BeFalse())
		})
	})
})

var _ = Describe("Registry error codes", func() {
	It("keeps the request-limit code inside the registry range", func() {
		Expect(registry.CodeRequestLimit.Int()).To(BeNumerically(">=", errors.MinPkgRegistry))
	})
})
