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

package hashinate

import (
	"encoding/binary"
)

// ValueBytes renders one parameter value into the byte form the hashing
// contract consumes for type t. Integer types are big-endian at their wire
// width; strings and varbinaries hash their content bytes directly. A
// value whose Go type cannot serve t yields ok=false, which the router
// maps to the multi-partition sentinel rather than an error surfaced to
// the caller.
func ValueBytes(t ParamType, v any) ([]byte, bool) {
	switch t {
	case ParamTypeTinyInt:
		i, ok := asInt64(v)
		if !ok {
			return nil, false
		}
		return []byte{byte(int8(i))}, true

	case ParamTypeSmallInt:
		i, ok := asInt64(v)
		if !ok {
			return nil, false
		}
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(int16(i)))
		return b, true

	case ParamTypeInteger:
		i, ok := asInt64(v)
		if !ok {
			return nil, false
		}
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(int32(i)))
		return b, true

	case ParamTypeBigInt:
		i, ok := asInt64(v)
		if !ok {
			return nil, false
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(i))
		return b, true

	case ParamTypeString:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		return []byte(s), true

	case ParamTypeVarbinary:
		b, ok := v.([]byte)
		if !ok {
			return nil, false
		}
		return b, true
	}
	return nil, false
}

func asInt64(v any) (int64, bool) {
	switch i := v.(type) {
	case int8:
		return int64(i), true
	case int16:
		return int64(i), true
	case int32:
		return int64(i), true
	case int64:
		return i, true
	case int:
		return int64(i), true
	case uint8:
		return int64(i), true
	case uint16:
		return int64(i), true
	case uint32:
		return int64(i), true
	}
	return 0, false
}
