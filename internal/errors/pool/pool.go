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

// Package pool collects errors from one or more workers, safely across
// goroutines — the connect attempts of the public Connect call — and
// collapses them into one combined Error when every attempt has reported.
package pool

import (
	"sync"

	liberr "github.com/abhivijay96/voltdb-client-go/internal/errors"
)

// Pool is a thread-safe, insertion-ordered error collection.
type Pool interface {
	// Add appends every non-nil error; nils are ignored.
	Add(e ...error)

	// Get returns the i-th collected error (0-based), nil out of range.
	Get(i uint64) error

	// Last returns the most recently collected error, nil when empty.
	Last() error

	// Slice returns the collected errors in insertion order.
	Slice() []error

	// Len returns how many errors were collected.
	Len() uint64

	// Error collapses the collection into one combined Error, nil when
	// empty.
	Error() error

	// Clear drops every collected error.
	Clear()
}

// New returns an empty Pool.
func New() Pool {
	return &pool{}
}

type pool struct {
	mu   sync.Mutex
	errs []error
}

func (p *pool) Add(e ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, err := range e {
		if err != nil {
			p.errs = append(p.errs, err)
		}
	}
}

func (p *pool) Get(i uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i >= uint64(len(p.errs)) {
		return nil
	}
	return p.errs[i]
}

func (p *pool) Last() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.errs) == 0 {
		return nil
	}
	return p.errs[len(p.errs)-1]
}

func (p *pool) Slice() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.errs...)
}

func (p *pool) Len() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return uint64(len(p.errs))
}

func (p *pool) Error() error {
	errs := p.Slice()
	if len(errs) == 0 {
		return nil
	}
	return liberr.UnknownError.IfError(errs...)
}

func (p *pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = nil
}
