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

package registry

import (
	"sync/atomic"
	"time"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/promise"
)

// Conn is the slice of a connection endpoint the registry needs: enough to
// tell whether the bound connection is still alive and to identify it when
// a teardown sweeps the registry for its casualties.
type Conn interface {
	IsConnected() bool
	Target() string
}

// Pending is the record of one admitted, not-yet-completed call.
type Pending struct {
	// Handle is the registry key; immutable after admission.
	Handle int64

	// Seq is the FIFO tiebreak inside a connection's priority queue,
	// assigned from a single monotonically increasing counter at admission.
	Seq uint64

	Inv     *codec.Invocation
	Promise *promise.Promise[*codec.Response]

	// Start is the admission instant; time.Time carries a monotonic reading
	// so elapsed-time math is immune to wall-clock steps.
	Start time.Time

	// Timeout is this call's whole budget, spanning queue wait, permit
	// wait, network-backpressure wait and the in-flight wait.
	Timeout time.Duration

	// Conn is the endpoint the router bound this call to; nil until routed.
	Conn Conn

	holdsPermit atomic.Bool
}

// Remaining returns how much of the call's budget is left as of now.
func (p *Pending) Remaining() time.Duration {
	return p.Timeout - time.Since(p.Start)
}

// Expired reports whether the call's whole budget has elapsed.
func (p *Pending) Expired() bool {
	return time.Since(p.Start) > p.Timeout
}

// SetHoldsPermit records whether this request currently holds one global
// send permit.
func (p *Pending) SetHoldsPermit(v bool) {
	p.holdsPermit.Store(v)
}

// HoldsPermit reports whether this request holds a global send permit. The
// terminal-outcome paths use it to decide whether a permit must be
// released.
func (p *Pending) HoldsPermit() bool {
	return p.holdsPermit.Load()
}

// TakePermit atomically transfers ownership of the held permit to the
// caller: it returns true at most once per held permit, so exactly one of
// the competing terminal paths performs the release.
func (p *Pending) TakePermit() bool {
	return p.holdsPermit.CompareAndSwap(true, false)
}
