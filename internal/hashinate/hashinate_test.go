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

package hashinate_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abhivijay96/voltdb-client-go/internal/hashinate"
)

var _ = Describe("reference Hashinator", func() {
	It("always returns a partition id within range", func() {
		h := hashinate.NewReference(8)
		for i := 0; i < 100; i++ {
			pid, err := h.Hash(hashinate.ParamTypeInteger, []byte{byte(i), byte(i * 7)})
			Expect(err).ToNot(HaveOccurred())
			Expect(pid).To(BeNumerically(">=", 0))
			Expect(pid).To(BeNumerically("<", 8))
		}
	})

	It("is deterministic for the same value", func() {
		h := hashinate.NewReference(16)
		v := []byte("some-key")
		a, err := h.Hash(hashinate.ParamTypeString, v)
		Expect(err).ToNot(HaveOccurred())
		b, err := h.Hash(hashinate.ParamTypeString, v)
		Expect(err).ToNot(HaveOccurred())
		Expect(a).To(Equal(b))
	})

	It("clamps a non-positive partition count to 1", func() {
		h := hashinate.NewReference(0)
		Expect(h.PartitionCount()).To(Equal(1))
	})
})
