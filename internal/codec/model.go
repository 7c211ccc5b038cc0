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

// RouteByParameter is the PartitionID sentinel meaning "let the router hash
// the parameter at the procedure's declared partition index", rather than a
// caller-pinned destination partition.
const RouteByParameter int32 = -1

// NoBatchTimeout is the BatchTimeoutMillis sentinel meaning "use the
// connection default", i.e. no per-call override.
const NoBatchTimeout int32 = -1

// CurrentVersion is the only wire version this codec ever produces.
// Versions 0 and 1 are accepted by readFrom but are otherwise read-only.
const CurrentVersion byte = 2

// MinPriority/MaxPriority bound the request priority; values outside this
// range clamp to MaxPriority (lowest priority), never to MinPriority.
const (
	MinPriority uint8 = 1
	MaxPriority uint8 = 8
)

// ClampPriority applies the invocation's priority clamp rule.
func ClampPriority(p uint8) uint8 {
	if p < MinPriority || p > MaxPriority {
		return MaxPriority
	}
	return p
}

// ParamEncoder turns a deferred parameter sequence into the opaque
// parameter-set bytes the wire format carries. Parameter wire typing is an
// external collaborator's contract (out of scope for this core); callers
// supply the concrete encoder (e.g. the VoltDB-style typed parameter
// writer) at serialization time.
type ParamEncoder interface {
	EncodeParams(values []any) ([]byte, error)
}

// ParamDecoder is the counterpart used by Decoded.Params to lazily parse the
// opaque parameter-set bytes carried by a received invocation.
type ParamDecoder interface {
	DecodeParams(raw []byte) ([]any, error)
}

// params holds exactly one of a deferred value sequence or an
// already-serialized byte slab, per the Invocation invariant.
type params struct {
	values []any
	raw    []byte
}

func (p params) isRaw() bool {
	return p.raw != nil
}

func (p params) isEmpty() bool {
	return p.raw == nil && len(p.values) == 0
}

// Invocation is an immutable descriptor of one stored-procedure call.
// Construct with NewInvocation; the zero value is not meaningful.
type Invocation struct {
	Procedure          string
	Handle             int64
	PartitionID        int32
	Priority           uint8
	BatchTimeoutMillis int32
	params             params
}

// NewInvocation builds an Invocation carrying a deferred parameter sequence.
// Pass no values for a parameterless call.
func NewInvocation(procedure string, handle int64, values ...any) *Invocation {
	return &Invocation{
		Procedure:          procedure,
		Handle:             handle,
		PartitionID:        RouteByParameter,
		Priority:           MaxPriority,
		BatchTimeoutMillis: NoBatchTimeout,
		params:             params{values: values},
	}
}

// NewInvocationRaw builds an Invocation whose parameter set is already
// serialized. raw is treated as immutable from this point on; callers must
// not mutate the slice after passing it in.
func NewInvocationRaw(procedure string, handle int64, raw []byte) *Invocation {
	return &Invocation{
		Procedure:          procedure,
		Handle:             handle,
		PartitionID:        RouteByParameter,
		Priority:           MaxPriority,
		BatchTimeoutMillis: NoBatchTimeout,
		params:             params{raw: raw},
	}
}

// WithPartition pins the destination partition, bypassing parameter-based
// routing.
func (inv *Invocation) WithPartition(partitionID int32) *Invocation {
	inv.PartitionID = partitionID
	return inv
}

// WithPriority sets the request priority, clamped per ClampPriority.
func (inv *Invocation) WithPriority(priority uint8) *Invocation {
	inv.Priority = ClampPriority(priority)
	return inv
}

// WithBatchTimeout overrides the batch timeout for this call, in
// milliseconds.
func (inv *Invocation) WithBatchTimeout(millis int32) *Invocation {
	inv.BatchTimeoutMillis = millis
	return inv
}

// HasRawParams reports whether this invocation's parameter set is already
// serialized, as opposed to a deferred value sequence.
func (inv *Invocation) HasRawParams() bool {
	return inv.params.isRaw()
}

// IsEmptyParams reports whether this invocation carries no parameters at
// all (neither a raw slab nor any deferred values).
func (inv *Invocation) IsEmptyParams() bool {
	return inv.params.isEmpty()
}

// ParamAt returns the i-th deferred parameter value. It reports false when
// the parameters are already serialized (the router cannot hash into an
// opaque slab) or i is out of range.
func (inv *Invocation) ParamAt(i int) (any, bool) {
	if inv.params.isRaw() || i < 0 || i >= len(inv.params.values) {
		return nil, false
	}
	return inv.params.values[i], true
}
