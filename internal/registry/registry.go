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
	"sync"
	"sync/atomic"

	"github.com/abhivijay96/voltdb-client-go/internal/errors"
	"github.com/abhivijay96/voltdb-client-go/internal/logx"
	"github.com/sirupsen/logrus"
)

// pendingTable is the lock-free handle→record map backing both the
// in-flight table and the sent-and-waiting set. sync.Map fits the access
// pattern exactly: disjoint goroutines insert and remove their own
// handles, and the timeout scanner iterates without blocking either.
type pendingTable struct {
	m sync.Map
}

func (t *pendingTable) load(handle int64) (*Pending, bool) {
	v, ok := t.m.Load(handle)
	if !ok {
		return nil, false
	}
	return v.(*Pending), true
}

func (t *pendingTable) store(p *Pending) {
	t.m.Store(p.Handle, p)
}

// take removes and returns the record; at most one caller wins it.
func (t *pendingTable) take(handle int64) (*Pending, bool) {
	v, ok := t.m.LoadAndDelete(handle)
	if !ok {
		return nil, false
	}
	return v.(*Pending), true
}

func (t *pendingTable) drop(handle int64) {
	t.m.Delete(handle)
}

func (t *pendingTable) each(f func(p *Pending) bool) {
	t.m.Range(func(_, v any) bool {
		return f(v.(*Pending))
	})
}

// Default admission limits.
const (
	DefaultHardLimit    = 1000
	DefaultWarningLevel = 800
	DefaultResumeLevel  = 200
)

// BackpressureHandler receives the application-facing request-backpressure
// transitions. Deliveries strictly alternate true/false; the first delivery
// is always true.
type BackpressureHandler func(on bool)

// Registry is the in-flight call table plus the request-backpressure state
// machine. All methods are safe for concurrent use.
type Registry struct {
	entries pendingTable
	active  pendingTable

	size atomic.Int64
	seq  atomic.Uint64

	hardLimit int64
	warning   int64
	resume    int64

	bpMu sync.Mutex
	bpOn bool
	bpFn BackpressureHandler

	log logx.Source
}

// New builds a Registry with the given limits. Non-positive limits fall
// back to the defaults; warning is floored at resume so the transition pair
// stays ordered.
func New(hardLimit, warning, resume int, bp BackpressureHandler, log logx.Source) *Registry {
	if hardLimit <= 0 {
		hardLimit = DefaultHardLimit
	}
	if warning <= 0 {
		warning = DefaultWarningLevel
	}
	if resume <= 0 {
		resume = DefaultResumeLevel
	}
	if warning < resume {
		warning = resume
	}

	return &Registry{
		hardLimit: int64(hardLimit),
		warning:   int64(warning),
		resume:    int64(resume),
		bpFn:      bp,
		log:       log,
	}
}

// NextSeq hands out the next FIFO-tiebreak sequence number.
func (r *Registry) NextSeq() uint64 {
	return r.seq.Add(1)
}

// Size returns the current number of in-flight calls.
func (r *Registry) Size() int {
	return int(r.size.Load())
}

// Admit inserts p, enforcing the hard cap. The check precedes the insert,
// so two racing admissions at the boundary may leave the registry one over
// the cap transiently; that is the documented tolerance, not a defect to
// lock away.
func (r *Registry) Admit(p *Pending) errors.Error {
	if r.size.Load() >= r.hardLimit {
		return errRequestLimit(int(r.hardLimit))
	}

	r.entries.store(p)
	n := r.size.Add(1)

	if n >= r.warning {
		r.raiseBackpressure()
	}
	return nil
}

// AdmitSystem inserts an internal system call, bypassing the hard cap and
// the warning threshold: a keepalive must not be refused by the very
// saturation it exists to detect.
func (r *Registry) AdmitSystem(p *Pending) errors.Error {
	r.entries.store(p)
	r.size.Add(1)
	return nil
}

// Lookup returns the pending record for handle without removing it.
func (r *Registry) Lookup(handle int64) (*Pending, bool) {
	return r.entries.load(handle)
}

// Remove takes handle out of the registry. The caller that gets ok=true is
// the sole owner of the record's terminal outcome; everyone else must walk
// away. The active-handles entry is dropped alongside.
func (r *Registry) Remove(handle int64) (*Pending, bool) {
	p, ok := r.entries.take(handle)
	if !ok {
		return nil, false
	}

	r.active.drop(handle)
	r.size.Add(-1)
	return p, true
}

// MarkActive records that p's bytes are about to hit the wire, making the
// handle visible to the timeout scheduler's per-tick scan.
func (r *Registry) MarkActive(p *Pending) {
	r.active.store(p)
}

// IsActive reports whether handle is in the sent-and-waiting set.
func (r *Registry) IsActive(handle int64) bool {
	_, ok := r.active.load(handle)
	return ok
}

// RangeActive iterates the sent-and-waiting set; f returning false stops
// the walk.
func (r *Registry) RangeActive(f func(p *Pending) bool) {
	r.active.each(f)
}

// Range iterates every in-flight record, sent or not.
func (r *Registry) Range(f func(p *Pending) bool) {
	r.entries.each(f)
}

// TestResume re-checks the resume threshold after a record left the
// registry. Called by every release path (response, timeout, connection
// loss) so the false transition is never missed.
func (r *Registry) TestResume() {
	r.bpMu.Lock()
	defer r.bpMu.Unlock()

	if r.bpOn && r.size.Load() <= r.resume {
		r.bpOn = false
		r.notify(false)
	}
}

// raiseBackpressure flips the state to on exactly once per episode.
func (r *Registry) raiseBackpressure() {
	r.bpMu.Lock()
	defer r.bpMu.Unlock()

	if !r.bpOn {
		r.bpOn = true
		r.notify(true)
	}
}

// Backpressured reports the current application-facing backpressure state.
func (r *Registry) Backpressured() bool {
	r.bpMu.Lock()
	defer r.bpMu.Unlock()
	return r.bpOn
}

// notify runs under bpMu so on/off deliveries can never reorder. Handler
// panics are contained and logged; a notification is fire-and-forget.
func (r *Registry) notify(on bool) {
	if r.bpFn == nil {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			logx.New(r.log).
				Level(logrus.ErrorLevel).
				Message("request backpressure handler panicked").
				Field("state", on).
				Field("panic", rec).
				Log()
		}
	}()
	r.bpFn(on)
}
