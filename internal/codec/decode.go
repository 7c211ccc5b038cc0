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
	"sync"
)

// Decoded is a received invocation record. Parameter parsing is lazy: raw
// carries the unparsed parameter-set bytes and Params() memoizes the first
// decode outcome, error included, via a sync.Once thunk, matching the codec contract that
// readFrom must not eagerly parse the parameter set.
type Decoded struct {
	Version            byte
	Procedure          string
	Handle             int64
	BatchTimeoutMillis int32

	raw []byte

	once    sync.Once
	decVals []any
	decErr  error
}

// Params lazily decodes the parameter-set bytes using dec, memoizing the
// result. Subsequent calls (even with a different dec) return the first
// outcome.
func (d *Decoded) Params(dec ParamDecoder) ([]any, error) {
	d.once.Do(func() {
		if dec == nil {
			return
		}
		d.decVals, d.decErr = dec.DecodeParams(d.raw)
	})
	return d.decVals, d.decErr
}

// RawParams returns the undecoded parameter-set bytes, opaque to this core.
func (d *Decoded) RawParams() []byte {
	return d.raw
}

type versionDecoder func(buf []byte) (*Decoded, error)

// versionDecoders dispatches readFrom by wire version. Adding a
// hypothetical version 3 is one entry here, not a change to ReadFrom.
var versionDecoders = map[byte]versionDecoder{
	0: decodeV0,
	1: decodeV1,
	2: decodeV2,
}

// ReadFrom peeks the version byte at the front of buf and dispatches to the
// version-specific decoder. buf must contain exactly one invocation record
// (the caller has already stripped the 4-byte length prefix).
func ReadFrom(buf []byte) (*Decoded, error) {
	if len(buf) < 1 {
		return nil, errTruncatedRecord("version byte")
	}

	dec, ok := versionDecoders[buf[0]]
	if !ok {
		return nil, errUnsupportedVersion(buf[0])
	}
	return dec(buf)
}

// readNameAndHandle reads the common procedure-name + client-handle prefix
// shared by every version, starting right after the version byte. It
// returns the name, handle, and the offset of the first unread byte.
func readNameAndHandle(buf []byte) (name string, handle int64, off int, err error) {
	off = 1
	if len(buf) < off+4 {
		return "", 0, 0, errTruncatedRecord("procedure-name length")
	}

	nameLen := int32(binary.BigEndian.Uint32(buf[off:]))
	off += 4

	if nameLen == -1 {
		return "", 0, 0, errNullProcedureName()
	}
	if nameLen < 0 || len(buf) < off+int(nameLen)+8 {
		return "", 0, 0, errTruncatedRecord("procedure-name bytes or client handle")
	}

	name = string(buf[off : off+int(nameLen)])
	off += int(nameLen)

	handle = int64(binary.BigEndian.Uint64(buf[off:]))
	off += 8

	return name, handle, off, nil
}

// decodeV0 reads a version-0 record: no extensions at all.
func decodeV0(buf []byte) (*Decoded, error) {
	name, handle, off, err := readNameAndHandle(buf)
	if err != nil {
		return nil, err
	}

	return &Decoded{
		Version:            0,
		Procedure:          name,
		Handle:             handle,
		BatchTimeoutMillis: NoBatchTimeout,
		raw:                buf[off:],
	}, nil
}

// decodeV1 reads a version-1 record: a single presence byte precedes a
// possible batch-timeout int.
//
// This reproduces, deliberately, the suspicious switch/fallthrough behavior
// flagged as an open question in the external interface: as written, the
// "has batch timeout" branch always calls skipUnknownExtension afterward,
// and so does the "no batch timeout" branch — meaning a version-1 record
// with no batch-timeout override still has 5 bytes of whatever follows
// silently consumed as if they were an unknown extension body. This is kept
// faithful to the documented original rather than "fixed" here; a real
// deployment must validate this against its actual server-side encoder.
func decodeV1(buf []byte) (*Decoded, error) {
	name, handle, off, err := readNameAndHandle(buf)
	if err != nil {
		return nil, err
	}

	if len(buf) < off+1 {
		return nil, errTruncatedRecord("batch-timeout presence byte")
	}
	hasBatchTimeout := buf[off]
	off++

	batchTimeout := NoBatchTimeout

	switch hasBatchTimeout {
	case 1:
		if len(buf) < off+4 {
			return nil, errTruncatedRecord("batch-timeout value")
		}
		batchTimeout = int32(binary.BigEndian.Uint32(buf[off:]))
		off += 4
		fallthrough
	default:
		off, err = skipUnknownExtension(buf, off)
		if err != nil {
			return nil, err
		}
	}

	return &Decoded{
		Version:            1,
		Procedure:          name,
		Handle:             handle,
		BatchTimeoutMillis: batchTimeout,
		raw:                buf[off:],
	}, nil
}

// decodeV2 reads a version-2 record: an extension count byte (0 or 1 here)
// followed by that many 6-byte extensions.
func decodeV2(buf []byte) (*Decoded, error) {
	name, handle, off, err := readNameAndHandle(buf)
	if err != nil {
		return nil, err
	}

	if len(buf) < off+1 {
		return nil, errTruncatedRecord("extension count")
	}
	count := int(buf[off])
	off++

	batchTimeout := NoBatchTimeout

	for i := 0; i < count; i++ {
		if len(buf) < off+1 {
			return nil, errTruncatedRecord("extension tag")
		}
		tag := buf[off]
		off++

		switch tag {
		case ExtBatchTimeout:
			if len(buf) < off+extensionWireSize-1 {
				return nil, errTruncatedRecord("batch-timeout extension body")
			}
			batchTimeout = int32(binary.BigEndian.Uint32(buf[off+1:]))
			off += extensionWireSize - 1
		default:
			off, err = skipUnknownExtension(buf, off)
			if err != nil {
				return nil, err
			}
		}
	}

	return &Decoded{
		Version:            2,
		Procedure:          name,
		Handle:             handle,
		BatchTimeoutMillis: batchTimeout,
		raw:                buf[off:],
	}, nil
}

// skipUnknownExtension advances past one type-specific extension body of
// unknown shape. Every extension this core knows about — currently just the
// batch-timeout one — fits the fixed 6-byte tag+reserved+value layout, so an
// unrecognized tag is skipped by that same fixed width; a future extension
// with a variable-length body would need its own length-aware skip, which
// the external wire contract anticipates but does not yet require.
func skipUnknownExtension(buf []byte, off int) (int, error) {
	const skipLen = extensionWireSize - 1 // tag byte already consumed by the caller's off
	if len(buf) < off+skipLen {
		return 0, errTruncatedRecord("unknown extension body")
	}
	return off + skipLen, nil
}
