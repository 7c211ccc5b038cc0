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
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
)

// fakeParamCodec encodes/decodes a []any of int32s as a flat big-endian
// blob, just enough to exercise the codec's lazy-parsing and size contracts
// without depending on the (out-of-scope) real VoltDB parameter wire types.
type fakeParamCodec struct{}

func (fakeParamCodec) EncodeParams(values []any) ([]byte, error) {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint32(buf[i*4:], uint32(v.(int32)))
	}
	return buf, nil
}

func (fakeParamCodec) DecodeParams(raw []byte) ([]any, error) {
	out := make([]any, len(raw)/4)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

var _ = Describe("Invocation codec", func() {
	var enc fakeParamCodec

	Describe("priority clamping", func() {
		It("leaves in-range priorities untouched", func() {
			Expect(codec.ClampPriority(1)).To(Equal(uint8(1)))
			Expect(codec.ClampPriority(8)).To(Equal(uint8(8)))
		})

		It("clamps out-of-range priorities to the lowest priority", func() {
			Expect(codec.ClampPriority(0)).To(Equal(codec.MaxPriority))
			Expect(codec.ClampPriority(9)).To(Equal(codec.MaxPriority))
		})
	})

	Describe("round-tripping a version-2 invocation with no extension", func() {
		It("writes exactly SerializedSize bytes and reads them back", func() {
			inv := codec.NewInvocation("Insert", 42, int32(7), int32(9))

			size, err := inv.SerializedSize(enc)
			Expect(err).ToNot(HaveOccurred())

			buf := make([]byte, size)
			n, err := inv.WriteTo(buf, enc)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(size))

			dec, err := codec.ReadFrom(buf)
			Expect(err).ToNot(HaveOccurred())
			Expect(dec.Version).To(Equal(byte(2)))
			Expect(dec.Procedure).To(Equal("Insert"))
			Expect(dec.Handle).To(Equal(int64(42)))
			Expect(dec.BatchTimeoutMillis).To(Equal(codec.NoBatchTimeout))

			vals, err := dec.Params(enc)
			Expect(err).ToNot(HaveOccurred())
			Expect(vals).To(Equal([]any{int32(7), int32(9)}))
		})
	})

	Describe("round-tripping a batch-timeout extension", func() {
		It("carries the override through write and read", func() {
			inv := codec.NewInvocation("Select", 1).WithBatchTimeout(1500)

			size, err := inv.SerializedSize(enc)
			Expect(err).ToNot(HaveOccurred())

			buf := make([]byte, size)
			_, err = inv.WriteTo(buf, enc)
			Expect(err).ToNot(HaveOccurred())

			dec, err := codec.ReadFrom(buf)
			Expect(err).ToNot(HaveOccurred())
			Expect(dec.BatchTimeoutMillis).To(Equal(int32(1500)))
		})
	})

	Describe("pre-serialized parameter slabs", func() {
		It("is written and read back as an opaque byte slab", func() {
			raw := []byte{0x00, 0x01, 0x02}
			inv := codec.NewInvocationRaw("Raw", 5, raw)

			size, err := inv.SerializedSize(nil)
			Expect(err).ToNot(HaveOccurred())

			buf := make([]byte, size)
			_, err = inv.WriteTo(buf, nil)
			Expect(err).ToNot(HaveOccurred())

			dec, err := codec.ReadFrom(buf)
			Expect(err).ToNot(HaveOccurred())
			Expect(dec.RawParams()).To(Equal(raw))
		})
	})

	Describe("invalid parameter set size", func() {
		It("rejects an encoder producing fewer than 3 bytes for a non-empty set", func() {
			inv := codec.NewInvocation("Tiny", 1, int32(1))
			shortEnc := shortEncoder{}
			_, err := inv.SerializedSize(shortEnc)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("missing encoder", func() {
		It("fails when a deferred parameter sequence has no encoder", func() {
			inv := codec.NewInvocation("NeedsEncoder", 1, int32(1))
			_, err := inv.SerializedSize(nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("buffer too small", func() {
		It("fails WriteTo when the destination buffer is undersized", func() {
			inv := codec.NewInvocation("X", 1)
			size, err := inv.SerializedSize(enc)
			Expect(err).ToNot(HaveOccurred())

			_, err = inv.WriteTo(make([]byte, size-1), enc)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("unsupported version", func() {
		It("rejects a version byte with no registered decoder", func() {
			_, err := codec.ReadFrom([]byte{9})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("version 0", func() {
		It("has no extensions at all", func() {
			buf := encodeV0Fixture("Ping", 3, nil)
			dec, err := codec.ReadFrom(buf)
			Expect(err).ToNot(HaveOccurred())
			Expect(dec.Version).To(Equal(byte(0)))
			Expect(dec.BatchTimeoutMillis).To(Equal(codec.NoBatchTimeout))
		})
	})

	Describe("version 1's suspicious fallthrough", func() {
		It("still decodes a record with no batch timeout, consuming 5 extra bytes as an unknown extension", func() {
			// name, handle, presence=0, then 5 bytes that decodeV1 will
			// swallow as an "unknown extension" before reaching params.
			buf := encodeV1Fixture("Legacy", 9, false, 0)
			buf = append(buf, []byte{1, 2, 3, 4, 5, 6, 7, 8}...) // the actual params
			dec, err := codec.ReadFrom(buf)
			Expect(err).ToNot(HaveOccurred())
			Expect(dec.Version).To(Equal(byte(1)))
			Expect(dec.BatchTimeoutMillis).To(Equal(codec.NoBatchTimeout))
			// the first 5 of those 8 bytes were swallowed as a bogus
			// "unknown extension" body, leaving only the last 3 as params.
			Expect(dec.RawParams()).To(Equal([]byte{6, 7, 8}))
		})

		It("decodes the batch timeout when the presence byte is set", func() {
			buf := encodeV1Fixture("Legacy", 9, true, 2500)
			// decodeV1's fallthrough still swallows 5 bytes afterward even
			// on this branch; pad so that skip has something to consume.
			buf = append(buf, []byte{0, 0, 0, 0, 0}...)
			dec, err := codec.ReadFrom(buf)
			Expect(err).ToNot(HaveOccurred())
			Expect(dec.BatchTimeoutMillis).To(Equal(int32(2500)))
		})
	})
})

type shortEncoder struct{}

func (shortEncoder) EncodeParams(values []any) ([]byte, error) {
	return []byte{0x01}, nil
}

func encodeV0Fixture(name string, handle int64, params []byte) []byte {
	buf := make([]byte, 0, 1+4+len(name)+8+len(params))
	buf = append(buf, 0)
	nl := make([]byte, 4)
	binary.BigEndian.PutUint32(nl, uint32(len(name)))
	buf = append(buf, nl...)
	buf = append(buf, name...)
	hb := make([]byte, 8)
	binary.BigEndian.PutUint64(hb, uint64(handle))
	buf = append(buf, hb...)
	buf = append(buf, params...)
	return buf
}

func encodeV1Fixture(name string, handle int64, hasBatchTimeout bool, batchTimeout int32) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, 1)
	nl := make([]byte, 4)
	binary.BigEndian.PutUint32(nl, uint32(len(name)))
	buf = append(buf, nl...)
	buf = append(buf, name...)
	hb := make([]byte, 8)
	binary.BigEndian.PutUint64(hb, uint64(handle))
	buf = append(buf, hb...)

	if hasBatchTimeout {
		buf = append(buf, 1)
		bt := make([]byte, 4)
		binary.BigEndian.PutUint32(bt, uint32(batchTimeout))
		buf = append(buf, bt...)
	} else {
		buf = append(buf, 0)
	}
	return buf
}
