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

package pool_test

import (
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abhivijay96/voltdb-client-go/internal/errors"
	"github.com/abhivijay96/voltdb-client-go/internal/errors/pool"
)

var _ = Describe("Error pool", func() {
	It("starts empty", func() {
		p := pool.New()
		Expect(p.Len()).To(BeZero())
		Expect(p.Error()).To(BeNil())
		Expect(p.Last()).To(BeNil())
	})

	It("collects in insertion order and skips nils", func() {
		p := pool.New()
		p.Add(fmt.Errorf("one"), nil, fmt.Errorf("two"))
		p.Add(nil)

		Expect(p.Len()).To(Equal(uint64(2)))
		Expect(p.Get(0)).To(MatchError("one"))
		Expect(p.Get(1)).To(MatchError("two"))
		Expect(p.Get(2)).To(BeNil())
		Expect(p.Last()).To(MatchError("two"))
	})

	It("collapses the collection into one combined error", func() {
		p := pool.New()
		p.Add(fmt.Errorf("n0 refused"), fmt.Errorf("n1 refused"))

		combined := p.Error()
		Expect(combined).ToNot(BeNil())

		e := errors.Get(combined)
		Expect(e).ToNot(BeNil())
		Expect(e.GetParent(false)).To(HaveLen(2))
	})

	It("clears back to empty", func() {
		p := pool.New()
		p.Add(fmt.Errorf("x"))
		p.Clear()

		Expect(p.Len()).To(BeZero())
		Expect(p.Error()).To(BeNil())
	})

	It("is safe under concurrent adders", func() {
		p := pool.New()

		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					p.Add(fmt.Errorf("worker %d failure %d", w, i))
				}
			}(w)
		}
		wg.Wait()

		Expect(p.Len()).To(Equal(uint64(800)))
		Expect(p.Slice()).To(HaveLen(800))
	})
})
