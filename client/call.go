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

package client

import (
	"context"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/promise"
)

// Call is the async handle on one admitted (or refused) procedure call.
// Its promise always resolves: with a response, or with exactly one of
// the public error kinds.
type Call struct {
	handle int64
	p      *promise.Promise[*codec.Response]
}

// Handle returns the client handle assigned to this call, or a negative
// value when admission failed before a handle bound anything.
func (c *Call) Handle() int64 {
	return c.handle
}

// Done returns a channel closed once the call resolved either way.
func (c *Call) Done() <-chan struct{} {
	return c.p.Done()
}

// Get blocks for the call's outcome. The error, when set, wraps one of
// the public error kinds; ctx expiry returns ctx.Err() without resolving
// the call itself.
func (c *Call) Get(ctx context.Context) (*Response, error) {
	resp, err := c.p.Wait(ctx)
	if err != nil {
		return nil, wrapTerminal(err)
	}
	return newResponse(resp), nil
}

// OnComplete registers fn to run once the call resolves. fn runs on its
// own goroutine, never on a network or dispatch goroutine.
func (c *Call) OnComplete(fn func(*Response, error)) {
	c.p.WhenComplete(func(r *codec.Response, err error) {
		fn(newResponse(r), wrapTerminal(err))
	})
}

// failedCall builds a Call already resolved with err, for admission-time
// refusals: the caller gets the same promise-shaped surface either way.
func failedCall(handle int64, err error) *Call {
	p := promise.New[*codec.Response]()
	p.Complete(nil, err)
	return &Call{handle: handle, p: p}
}
