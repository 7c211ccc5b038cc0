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

package client

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Parameter type tags of the default parameter codec. The parameter block
// is opaque to the core pipeline; this codec exists so the client is
// usable out of the box, and applications with a richer server-side type
// system plug their own codec via Config.ParamCodec.
const (
	paramTagTinyInt   byte = 3
	paramTagSmallInt  byte = 4
	paramTagInteger   byte = 5
	paramTagBigInt    byte = 6
	paramTagFloat     byte = 8
	paramTagString    byte = 9
	paramTagVarbinary byte = 25
)

// defaultParamCodec encodes a parameter sequence as a 2-byte big-endian
// count followed by tag-prefixed values. The empty sequence encodes to
// nothing at all, matching the invocation codec's "no parameters" case.
type defaultParamCodec struct{}

func (defaultParamCodec) EncodeParams(values []any) ([]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}
	buf := make([]byte, 2, 2+8*len(values))
	binary.BigEndian.PutUint16(buf, uint16(len(values)))

	for _, v := range values {
		var err error
		buf, err = appendParam(buf, v)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendParam(buf []byte, v any) ([]byte, error) {
	switch x := v.(type) {
	case int8:
		return append(buf, paramTagTinyInt, byte(x)), nil
	case int16:
		buf = append(buf, paramTagSmallInt)
		return binary.BigEndian.AppendUint16(buf, uint16(x)), nil
	case int32:
		buf = append(buf, paramTagInteger)
		return binary.BigEndian.AppendUint32(buf, uint32(x)), nil
	case int:
		buf = append(buf, paramTagBigInt)
		return binary.BigEndian.AppendUint64(buf, uint64(int64(x))), nil
	case int64:
		buf = append(buf, paramTagBigInt)
		return binary.BigEndian.AppendUint64(buf, uint64(x)), nil
	case float64:
		buf = append(buf, paramTagFloat)
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(x)), nil
	case string:
		buf = append(buf, paramTagString)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(x)))
		return append(buf, x...), nil
	case []byte:
		buf = append(buf, paramTagVarbinary)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(x)))
		return append(buf, x...), nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %T", v)
	}
}

func (defaultParamCodec) DecodeParams(raw []byte) ([]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("parameter block truncated: %d bytes", len(raw))
	}

	count := int(binary.BigEndian.Uint16(raw))
	off := 2
	out := make([]any, 0, count)

	for i := 0; i < count; i++ {
		if off >= len(raw) {
			return nil, fmt.Errorf("parameter block truncated at value %d", i)
		}

		tag := raw[off]
		off++

		v, n, err := readParam(raw, off, tag)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		off = n
	}
	return out, nil
}

func readParam(raw []byte, off int, tag byte) (any, int, error) {
	need := func(n int) error {
		if len(raw) < off+n {
			return fmt.Errorf("parameter block truncated reading tag %d", tag)
		}
		return nil
	}

	switch tag {
	case paramTagTinyInt:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return int8(raw[off]), off + 1, nil
	case paramTagSmallInt:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return int16(binary.BigEndian.Uint16(raw[off:])), off + 2, nil
	case paramTagInteger:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return int32(binary.BigEndian.Uint32(raw[off:])), off + 4, nil
	case paramTagBigInt:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return int64(binary.BigEndian.Uint64(raw[off:])), off + 8, nil
	case paramTagFloat:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(raw[off:])), off + 8, nil
	case paramTagString:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		l := int(binary.BigEndian.Uint32(raw[off:]))
		off += 4
		if err := need(l); err != nil {
			return nil, 0, err
		}
		return string(raw[off : off+l]), off + l, nil
	case paramTagVarbinary:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		l := int(binary.BigEndian.Uint32(raw[off:]))
		off += 4
		if err := need(l); err != nil {
			return nil, 0, err
		}
		b := make([]byte, l)
		copy(b, raw[off:])
		return b, off + l, nil
	default:
		return nil, 0, fmt.Errorf("unknown parameter tag %d", tag)
	}
}
