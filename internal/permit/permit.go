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

package permit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// maxLimit bounds how far the semaphore can ever be grown; it fixes the
// token channel's capacity, since a channel cannot be reallocated in place.
const maxLimit = 1 << 20

// Semaphore is a counting semaphore whose capacity can be resized while
// permits are in flight. Construct with New; the zero value is unusable.
type Semaphore struct {
	tokens chan struct{}

	mu    sync.Mutex
	limit atomic.Int64
}

// New builds a Semaphore holding limit free permits. limit is clamped to
// [1, maxLimit].
func New(limit int) *Semaphore {
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	s := &Semaphore{
		tokens: make(chan struct{}, maxLimit),
	}
	s.limit.Store(int64(limit))

	for i := 0; i < limit; i++ {
		s.tokens <- struct{}{}
	}
	return s
}

// TryAcquire takes one permit without blocking, reporting success.
func (s *Semaphore) TryAcquire() bool {
	select {
	case <-s.tokens:
		return true
	default:
		return false
	}
}

// Acquire blocks for up to timeout waiting for one permit. It returns
// false when the budget is exhausted first. A non-positive timeout
// degenerates to TryAcquire.
func (s *Semaphore) Acquire(timeout time.Duration) bool {
	if timeout <= 0 {
		return s.TryAcquire()
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-s.tokens:
		return true
	case <-t.C:
		return false
	}
}

// AcquireCtx blocks until a permit is free or ctx is done.
func (s *Semaphore) AcquireCtx(ctx context.Context) error {
	select {
	case <-s.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns n permits to the pool. Correct balance is the caller's
// responsibility: every release path funnels through the pending record's
// one-shot permit transfer, so a permit can never be released twice. The
// non-blocking send below is NOT a backstop against that — the token
// channel's capacity is the fixed allocation maximum, not the current
// Resize limit, so an unbalanced release would inflate the pool well
// before the default case ever fired.
func (s *Semaphore) Release(n int) {
	for i := 0; i < n; i++ {
		select {
		case s.tokens <- struct{}{}:
		default:
			return
		}
	}
}

// Limit returns the current configured capacity.
func (s *Semaphore) Limit() int {
	return int(s.limit.Load())
}

// Available returns how many permits are currently free.
func (s *Semaphore) Available() int {
	return len(s.tokens)
}

// Resize changes the capacity to newLimit. Growing releases the delta as
// fresh permits. Shrinking reclaims the delta from the free pool; when
// fewer free permits exist than the shrink needs, everything reclaimed so
// far is put back and the resize fails, leaving the old limit in force.
func (s *Semaphore) Resize(newLimit int) error {
	if newLimit < 1 || newLimit > maxLimit {
		return errLimitOutOfRange(newLimit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := int(s.limit.Load())
	switch {
	case newLimit == cur:
		return nil

	case newLimit > cur:
		for i := 0; i < newLimit-cur; i++ {
			s.tokens <- struct{}{}
		}

	default:
		need := cur - newLimit
		drained := 0
		for drained < need {
			select {
			case <-s.tokens:
				drained++
			default:
				// Not enough free permits: undo and refuse the shrink.
				for i := 0; i < drained; i++ {
					s.tokens <- struct{}{}
				}
				return errShrinkOverCommit(cur, newLimit, drained)
			}
		}
	}

	s.limit.Store(int64(newLimit))
	return nil
}
