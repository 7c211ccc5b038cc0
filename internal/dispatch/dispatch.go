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

package dispatch

import (
	"context"
	"time"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/logx"
	"github.com/abhivijay96/voltdb-client-go/internal/permit"
	"github.com/abhivijay96/voltdb-client-go/internal/registry"
	"github.com/abhivijay96/voltdb-client-go/internal/statsreport"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the response pool size when the application does not
// configure one.
const DefaultWorkers = 4

// Options wires a Dispatcher to its collaborators.
type Options struct {
	Registry *registry.Registry
	Permits  *permit.Semaphore
	Stats    *statsreport.Stats
	Log      logx.Source

	// Workers bounds how many response completions run concurrently.
	Workers int

	// OnTopology receives responses carrying the topology magic handle.
	OnTopology func(r *codec.Response)

	// OnCatalog receives responses carrying the catalog magic handle.
	OnCatalog func(r *codec.Response)

	// OnLateResponse is the fire-and-forget late-response notification.
	OnLateResponse func(handle int64, connection string)
}

// Dispatcher fans inbound frames across a fixed-size worker pool.
type Dispatcher struct {
	opts Options
	pool *semaphore.Weighted
	size int64
}

// New builds a Dispatcher with opts. A non-positive worker count falls
// back to DefaultWorkers.
func New(opts Options) *Dispatcher {
	n := opts.Workers
	if n <= 0 {
		n = DefaultWorkers
	}
	return &Dispatcher{
		opts: opts,
		pool: semaphore.NewWeighted(int64(n)),
		size: int64(n),
	}
}

// Submit hands one inbound frame to the pool. The caller is the network
// goroutine: Submit blocks only while every worker slot is busy, which is
// the pool's admission backpressure, and the decode itself always runs on
// a pool goroutine.
func (d *Dispatcher) Submit(connection string, frame []byte) {
	if err := d.pool.Acquire(context.Background(), 1); err != nil {
		return
	}

	go func() {
		defer d.pool.Release(1)
		d.handle(connection, frame)
	}()
}

// Drain blocks until every in-flight completion finished or ctx is done.
func (d *Dispatcher) Drain(ctx context.Context) error {
	if err := d.pool.Acquire(ctx, d.size); err != nil {
		return err
	}
	d.pool.Release(d.size)
	return nil
}

func (d *Dispatcher) handle(connection string, frame []byte) {
	resp, err := codec.ReadResponse(frame)
	if err != nil {
		logx.New(d.opts.Log).
			Level(logrus.WarnLevel).
			Message("dropping undecodable response frame").
			Field(logx.FieldConnection, connection).
			Error(err).
			Log()
		return
	}

	switch {
	case resp.Handle == codec.HandleTopologyUpdate:
		if d.opts.OnTopology != nil {
			d.opts.OnTopology(resp)
		}

	case resp.Handle == codec.HandleCatalogUpdate:
		if d.opts.OnCatalog != nil {
			d.opts.OnCatalog(resp)
		}

	case codec.IsUserHandle(resp.Handle):
		d.completeUser(connection, resp)

	case codec.IsSystemHandle(resp.Handle):
		d.completeSystem(connection, resp)

	default:
		// A positive handle above the user cap that is not one of the two
		// known magic values: nothing to route it to.
		logx.New(d.opts.Log).
			Level(logrus.WarnLevel).
			Message("dropping response with unknown magic handle").
			Field(logx.FieldConnection, connection).
			Field(logx.FieldHandle, resp.Handle).
			Log()
	}

	if d.opts.Registry.Backpressured() {
		d.opts.Registry.TestResume()
	}
}

// completeUser applies the normal-response terminal outcome.
func (d *Dispatcher) completeUser(connection string, resp *codec.Response) {
	rec, ok := d.opts.Registry.Remove(resp.Handle)
	if !ok {
		// The record left at timeout; its permit went with it.
		logx.New(d.opts.Log).
			Level(logrus.DebugLevel).
			Message("late response").
			Field(logx.FieldConnection, connection).
			Field(logx.FieldHandle, resp.Handle).
			Log()
		if d.opts.OnLateResponse != nil {
			d.opts.OnLateResponse(resp.Handle, connection)
		}
		return
	}

	if rec.TakePermit() {
		d.opts.Permits.Release(1)
	}

	rtt := time.Since(rec.Start)
	resp.RoundTripNanos = rtt.Nanoseconds()

	d.opts.Stats.Observe(connection, rec.Inv.Procedure, classify(resp.Status), rtt)
	d.opts.Stats.SetInFlight(d.opts.Registry.Size())

	rec.Promise.Complete(resp, nil)
}

// completeSystem resolves an internal system call's promise.
func (d *Dispatcher) completeSystem(connection string, resp *codec.Response) {
	rec, ok := d.opts.Registry.Remove(resp.Handle)
	if !ok {
		logx.New(d.opts.Log).
			Level(logrus.DebugLevel).
			Message("late system response").
			Field(logx.FieldConnection, connection).
			Field(logx.FieldHandle, resp.Handle).
			Log()
		return
	}

	if rec.TakePermit() {
		d.opts.Permits.Release(1)
	}
	rec.Promise.Complete(resp, nil)
}

func classify(s codec.Status) statsreport.Outcome {
	switch {
	case s == codec.StatusSuccess:
		return statsreport.OutcomeSuccess
	case s.IsAbort():
		return statsreport.OutcomeAbort
	default:
		return statsreport.OutcomeFail
	}
}
