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

package connect

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/abhivijay96/voltdb-client-go/internal/errors"
	"github.com/abhivijay96/voltdb-client-go/internal/registry"
)

// sendLoop is the per-connection send pipeline: dequeue by priority, pace,
// serialize, acquire a global send permit, wait out network backpressure,
// mark the handle active for the timeout scanner, then hand the bytes to
// the outbound queue. One goroutine per endpoint; it exits when the queue
// closes during teardown.
func (e *Endpoint) sendLoop() {
	defer e.wg.Done()

	for {
		p, ok := e.queue.pop()
		if !ok {
			return
		}

		if !e.connected.Load() {
			e.completeLocal(p, errInterrupted())
			continue
		}

		e.process(p)
	}
}

// process runs one request through the pipeline. Every early exit is a
// terminal outcome delivered through the response path, never a silent
// drop.
func (e *Endpoint) process(p *registry.Pending) {
	// Pace against the global rate limiter, inside the call's own budget.
	if e.opts.Limiter.Limited() {
		ctx, cancel := context.WithTimeout(context.Background(), p.Remaining())
		err := e.opts.Limiter.Wait(ctx)
		cancel()
		if err != nil {
			e.completeLocal(p, errRequestTimeout("rate limiter"))
			return
		}
	}

	// Serialize to a length-prefixed frame.
	size, serr := p.Inv.SerializedSize(e.opts.ParamEncoder)
	if serr != nil {
		e.completeLocal(p, errNotSent(serr))
		return
	}

	frame := make([]byte, 4+size)
	binary.BigEndian.PutUint32(frame, uint32(size))
	if _, serr = p.Inv.WriteTo(frame[4:], e.opts.ParamEncoder); serr != nil {
		e.completeLocal(p, errNotSent(serr))
		return
	}

	// Acquire a global send permit: fast path first, then wait with
	// whatever budget the call has left.
	if !e.opts.Permits.TryAcquire() {
		remaining := p.Remaining()
		if remaining <= 0 || !e.opts.Permits.Acquire(remaining) {
			e.completeLocal(p, errRequestTimeout("send permit"))
			return
		}
	}
	p.SetHoldsPermit(true)

	// Wait out network backpressure on this connection.
	if e.NetworkBackpressure() {
		remaining := p.Remaining()
		if remaining <= 0 || !e.waitClear(remaining) {
			if !e.connected.Load() {
				e.completeLocal(p, errInterrupted())
			} else {
				e.completeLocal(p, errRequestTimeout("network backpressure"))
			}
			return
		}
	}

	// From here the response, the scanner or a teardown owns the record.
	e.opts.Registry.MarkActive(p)

	// Sub-second budgets get a dedicated one-shot task: the per-second
	// scan is too coarse for them. The budget may have died during the
	// permit or clearance waits, so re-check before arming.
	if p.Timeout < time.Second && e.opts.ShortTimeout != nil {
		if p.Expired() {
			e.completeLocal(p, errRequestTimeout("send pipeline"))
			return
		}
		e.opts.ShortTimeout(p)
	}

	e.writeToNetwork(frame)
}

// completeLocal applies a pre-send terminal outcome: whoever removes the
// handle from the registry completes the promise, releases any held
// permit, and re-tests resume.
func (e *Endpoint) completeLocal(p *registry.Pending, cause errors.Error) {
	rec, ok := e.opts.Registry.Remove(p.Handle)
	if !ok {
		return
	}
	if rec.TakePermit() {
		e.opts.Permits.Release(1)
	}
	rec.Promise.Complete(nil, cause)
	e.opts.Registry.TestResume()
}
