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
	"container/heap"
	"sync"

	"github.com/abhivijay96/voltdb-client-go/internal/registry"
)

// pqItems orders pending requests by (priority asc, sequence asc): the
// lower priority number wins, ties break FIFO on the admission sequence.
type pqItems []*registry.Pending

func (q pqItems) Len() int { return len(q) }

func (q pqItems) Less(i, j int) bool {
	pi, pj := q[i].Inv.Priority, q[j].Inv.Priority
	if pi != pj {
		return pi < pj
	}
	return q[i].Seq < q[j].Seq
}

func (q pqItems) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pqItems) Push(x any) { *q = append(*q, x.(*registry.Pending)) }

func (q *pqItems) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}

// prioQueue is the blocking priority queue one send worker drains. It is
// bounded only by the registry's global hard cap, never locally.
type prioQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  pqItems
	closed bool
}

func newPrioQueue() *prioQueue {
	q := &prioQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push enqueues p. It fails once the queue is closed; a request refused
// here must be failed by the caller.
func (q *prioQueue) push(p *registry.Pending) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	heap.Push(&q.items, p)
	q.cond.Signal()
	return true
}

// pop blocks until an item is available or the queue closes. ok=false
// means closed and empty: the worker must exit.
func (q *prioQueue) pop() (*registry.Pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.items) == 0 {
		return nil, false
	}
	return heap.Pop(&q.items).(*registry.Pending), true
}

// close marks the queue closed, wakes the worker, and hands back whatever
// was still queued so the teardown path can fail each request.
func (q *prioQueue) close() []*registry.Pending {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	rest := make([]*registry.Pending, len(q.items))
	copy(rest, q.items)
	q.items = nil
	q.cond.Broadcast()
	return rest
}

func (q *prioQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
