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

package codec

import (
	"encoding/binary"
)

// extensionWireSize is the fixed size of one v2 extension: a 1-byte type
// tag, a 1-byte reserved field, and a 4-byte value — 6 bytes total, matching
// the external wire contract's stated "6·e" extension-list size even though
// tag+value alone only add to 5; the reserved byte accounts for the
// remaining byte.
const extensionWireSize = 6

// ExtBatchTimeout is this core's tag byte for the batch-timeout extension.
// The wire contract fixes the extension's shape (tag + reserved + 4-byte
// value) but not a registry of tag values, which belongs to the
// authoritative server-side encoder; 1 is this implementation's choice and
// must match whatever the paired encoder on the other end expects.
const ExtBatchTimeout byte = 1

// extensionCount returns how many extensions writeTo will emit for inv:
// zero or one, a batch-timeout override.
func (inv *Invocation) extensionCount() int {
	if inv.BatchTimeoutMillis == NoBatchTimeout {
		return 0
	}
	return 1
}

// SerializedSize returns the exact byte count WriteTo will produce for inv.
// If inv carries a deferred, non-empty parameter sequence, enc is invoked to
// obtain its serialized form (and the result is cached on inv's params for
// WriteTo to reuse without re-encoding).
func (inv *Invocation) SerializedSize(enc ParamEncoder) (int, error) {
	pb, err := inv.resolveParamBytes(enc)
	if err != nil {
		return 0, err
	}

	size := 1 + 4 + len(inv.Procedure) + 8 + 1 + extensionWireSize*inv.extensionCount() + len(pb)
	return size, nil
}

// resolveParamBytes returns the parameter-set bytes to write: the raw slab
// if one was supplied, or the encoded form of the deferred value sequence,
// memoized onto inv so repeated calls (SerializedSize then WriteTo) don't
// re-run the encoder.
func (inv *Invocation) resolveParamBytes(enc ParamEncoder) ([]byte, error) {
	if inv.params.isRaw() {
		return inv.params.raw, nil
	}
	if len(inv.params.values) == 0 {
		return nil, nil
	}
	if enc == nil {
		return nil, errMissingEncoder()
	}

	b, err := enc.EncodeParams(inv.params.values)
	if err != nil {
		return nil, err
	}
	if len(b) < 3 {
		return nil, errInvalidParamSize()
	}

	// Cache as a raw slab: once serialized, the parameter representation is
	// treated as immutable, matching the Invocation invariant.
	inv.params = params{raw: b}
	return b, nil
}

// WriteTo writes the wire record for inv into buf, which must be at least
// SerializedSize(enc) bytes long, and returns the number of bytes written.
// If inv's parameters were pre-serialized (or already resolved by a prior
// SerializedSize call), the bytes are copied into buf rather than shared,
// so buf and inv's own raw slab can be mutated independently afterward —
// the Go equivalent of taking a duplicated position/limit view before a
// concurrent read.
func (inv *Invocation) WriteTo(buf []byte, enc ParamEncoder) (int, error) {
	pb, err := inv.resolveParamBytes(enc)
	if err != nil {
		return 0, err
	}

	need := 1 + 4 + len(inv.Procedure) + 8 + 1 + extensionWireSize*inv.extensionCount() + len(pb)
	if len(buf) < need {
		return 0, errBufferTooSmall(need, len(buf))
	}

	off := 0
	buf[off] = CurrentVersion
	off++

	binary.BigEndian.PutUint32(buf[off:], uint32(len(inv.Procedure)))
	off += 4

	off += copy(buf[off:], inv.Procedure)

	binary.BigEndian.PutUint64(buf[off:], uint64(inv.Handle))
	off += 8

	ec := inv.extensionCount()
	buf[off] = byte(ec)
	off++

	if ec == 1 {
		buf[off] = ExtBatchTimeout
		off++
		buf[off] = 0 // reserved
		off++
		binary.BigEndian.PutUint32(buf[off:], uint32(inv.BatchTimeoutMillis))
		off += 4
	}

	off += copy(buf[off:], pb)

	return off, nil
}
