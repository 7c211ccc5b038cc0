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

package codec_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
)

var _ = Describe("Response codec", func() {
	It("round-trips a response with typed result tables", func() {
		in := &codec.Response{
			Handle:           77,
			Status:           codec.StatusSuccess,
			StatusString:     "ok",
			ClusterRTTMillis: 12,
			Results: []*codec.ResultTable{{
				Columns: []codec.Column{
					{Name: "Partition", Type: codec.ColBigInt},
					{Name: "Sites", Type: codec.ColString},
					{Name: "Blob", Type: codec.ColVarbinary},
				},
				Rows: [][]any{
					{int64(0), "0,1", []byte{0xAA, 0xBB}},
					{int64(1), "1,2", []byte{}},
				},
			}},
		}

		out, err := codec.ReadResponse(codec.MarshalResponse(in))
		Expect(err).ToNot(HaveOccurred())

		Expect(out.Handle).To(Equal(int64(77)))
		Expect(out.Status).To(Equal(codec.StatusSuccess))
		Expect(out.StatusString).To(Equal("ok"))
		Expect(out.ClusterRTTMillis).To(Equal(uint32(12)))

		t := out.Table(0)
		Expect(t).ToNot(BeNil())
		Expect(t.RowCount()).To(Equal(2))

		pid, ok := t.Int64At(1, "Partition")
		Expect(ok).To(BeTrue())
		Expect(pid).To(Equal(int64(1)))

		sites, ok := t.StringAt(0, "Sites")
		Expect(ok).To(BeTrue())
		Expect(sites).To(Equal("0,1"))

		blob, ok := t.BytesAt(0, "Blob")
		Expect(ok).To(BeTrue())
		Expect(blob).To(Equal([]byte{0xAA, 0xBB}))
	})

	It("rejects truncated response frames", func() {
		full := codec.MarshalResponse(&codec.Response{Handle: 1, Status: codec.StatusSuccess})
		_, err := codec.ReadResponse(full[:5])
		Expect(err).To(HaveOccurred())
	})

	It("classifies abort statuses apart from failures", func() {
		Expect(codec.StatusUserAbort.IsAbort()).To(BeTrue())
		Expect(codec.StatusGracefulFailure.IsAbort()).To(BeTrue())
		Expect(codec.StatusUnexpectedFailure.IsAbort()).To(BeFalse())
		Expect(codec.StatusSuccess.IsAbort()).To(BeFalse())
	})
})

var _ = Describe("Handle space partitioning", func() {
	It("separates user, system and magic handles", func() {
		Expect(codec.IsUserHandle(1)).To(BeTrue())
		Expect(codec.IsUserHandle(codec.MaxUserHandle)).To(BeTrue())
		Expect(codec.IsUserHandle(codec.HandleTopologyUpdate)).To(BeFalse())

		Expect(codec.IsSystemHandle(-1)).To(BeTrue())
		Expect(codec.IsSystemHandle(0)).To(BeFalse())

		Expect(codec.IsMagicHandle(codec.HandleTopologyUpdate)).To(BeTrue())
		Expect(codec.IsMagicHandle(codec.HandleCatalogUpdate)).To(BeTrue())
		Expect(codec.IsMagicHandle(math.MaxInt64)).To(BeFalse())
	})
})
