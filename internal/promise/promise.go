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

package promise

import (
	"context"
	"sync"
)

// result bundles the pair a Promise can be completed with.
type result[T any] struct {
	val T
	err error
}

// Promise is a single-assignment completion value for one in-flight
// invocation. The first call to Complete wins; every later call is a no-op.
// Zero value is not usable — construct with New.
type Promise[T any] struct {
	once sync.Once
	done chan struct{}

	mu  sync.Mutex
	res result[T]
}

// New returns a Promise ready to be completed and waited on.
func New[T any]() *Promise[T] {
	return &Promise[T]{
		done: make(chan struct{}),
	}
}

// Complete assigns the promise's value, exactly once. It reports whether
// this call was the one that completed it; a false return means a previous
// Complete already ran.
func (p *Promise[T]) Complete(val T, err error) bool {
	won := false
	p.once.Do(func() {
		p.mu.Lock()
		p.res = result[T]{val: val, err: err}
		p.mu.Unlock()
		won = true
		close(p.done)
	})
	return won
}

// Done returns a channel closed once the promise has been completed.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// IsDone reports whether the promise has already been completed, without
// blocking.
func (p *Promise[T]) IsDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the promise completes or ctx is done, whichever comes
// first. A ctx cancellation does not complete the promise itself — the
// caller that gave up is merely no longer waiting on it; whoever eventually
// calls Complete (e.g. a late response, or a timeout task) still wins the
// race as usual.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.res.val, p.res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// WhenComplete registers fn to run once the promise completes. fn always
// runs on its own goroutine, never on the goroutine that called Complete —
// a response-dispatch goroutine completing a promise must not end up
// running arbitrary application callback code inline.
func (p *Promise[T]) WhenComplete(fn func(T, error)) {
	if fn == nil {
		return
	}
	go func() {
		<-p.done
		p.mu.Lock()
		r := p.res
		p.mu.Unlock()
		fn(r.val, r.err)
	}()
}
