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
	"sync/atomic"
	"time"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/connect"
	"github.com/abhivijay96/voltdb-client-go/internal/dispatch"
	"github.com/abhivijay96/voltdb-client-go/internal/errors"
	"github.com/abhivijay96/voltdb-client-go/internal/errors/pool"
	"github.com/abhivijay96/voltdb-client-go/internal/logx"
	"github.com/abhivijay96/voltdb-client-go/internal/permit"
	"github.com/abhivijay96/voltdb-client-go/internal/promise"
	"github.com/abhivijay96/voltdb-client-go/internal/ratelimit"
	"github.com/abhivijay96/voltdb-client-go/internal/registry"
	"github.com/abhivijay96/voltdb-client-go/internal/router"
	"github.com/abhivijay96/voltdb-client-go/internal/schedule"
	"github.com/abhivijay96/voltdb-client-go/internal/statsreport"
	"github.com/abhivijay96/voltdb-client-go/internal/topology"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// shutdownGrace bounds how long Shutdown waits on the response pool.
const shutdownGrace = 10 * time.Second

// drainPoll is the polling period of Drain and the shutdown drain.
const drainPoll = 50 * time.Millisecond

// partKeysMaxAge is how stale the partition-key cache may be before an
// all-partition call forces a reload.
const partKeysMaxAge = time.Minute

// Client is one client runtime instance: caller goroutines admit calls,
// per-connection send workers move them, the response pool completes
// them.
type Client struct {
	cfg Config
	log logx.Source

	reg     *registry.Registry
	permits *permit.Semaphore
	limiter *ratelimit.Limiter
	stats   *statsreport.Stats
	disp    *dispatch.Dispatcher
	sched   *schedule.Scheduler
	rtr     *router.Router
	topo    *topology.Manager

	paramCodec ParamCodec

	handles    atomic.Int64
	sysHandles atomic.Int64

	down atomic.Bool
}

// New builds and starts a Client from cfg. No connection is opened; call
// Connect next.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg}

	c.log = func() *logrus.Logger {
		if cfg.Logger != nil {
			return cfg.Logger
		}
		return logrus.StandardLogger()
	}

	c.paramCodec = cfg.ParamCodec
	if c.paramCodec == nil {
		c.paramCodec = defaultParamCodec{}
	}

	c.stats = statsreport.New()
	c.permits = permit.New(cfg.OutstandingTxnLimit)
	c.limiter = ratelimit.New(cfg.TxnPerSecRateLimit)
	c.reg = registry.New(
		cfg.RequestHardLimit,
		cfg.RequestWarningLevel,
		cfg.RequestResumeLevel,
		registry.BackpressureHandler(cfg.Notify.RequestBackpressure),
		c.log,
	)

	c.rtr = router.New(func() []*connect.Endpoint {
		return c.topo.Conns()
	}, c.stats)

	c.disp = dispatch.New(dispatch.Options{
		Registry: c.reg,
		Permits:  c.permits,
		Stats:    c.stats,
		Log:      c.log,
		Workers:  cfg.ResponseThreadCount,
		OnTopology: func(r *codec.Response) {
			c.topo.HandleTopoPush(r)
		},
		OnCatalog: func(r *codec.Response) {
			c.topo.HandleCatalogPush(r)
		},
		OnLateResponse: c.notifyLateResponse,
	})

	c.sched = schedule.New(schedule.Options{
		Registry:                  c.reg,
		Permits:                   c.permits,
		Log:                       c.log,
		Conns:                     func() []*connect.Endpoint { return c.topo.Conns() },
		ConnectionResponseTimeout: c.cfg.ConnectionResponseTimeout.Time(),
	})

	c.topo = topology.New(topology.Options{
		Registry:       c.reg,
		Router:         c.rtr,
		Sched:          c.sched,
		Log:            c.log,
		SysHandle:      c.nextSysHandle,
		Dial:           c.dial,
		RetryDelay:     cfg.ReconnectRetryDelay.Time(),
		ReconnectDelay: cfg.ReconnectDelay.Time(),
		Disabled:       cfg.DisableConnectionMgmt,
		OnConnUp: func(e *connect.Endpoint) {
			c.notifyConn(cfg.Notify.ConnectionUp, e)
		},
		OnConnDown: func(e *connect.Endpoint) {
			c.notifyConn(cfg.Notify.ConnectionDown, e)
		},
		OnConnFailure: func(target string, err error) {
			if cfg.Notify.ConnectionFailure != nil {
				cfg.Notify.ConnectionFailure(target, err)
			}
		},
	})

	c.sched.Start()
	return c, nil
}

// Connect dials each target and registers the connection. The first
// successful target decides the cluster identity; later mismatches are
// refused. At least one success is required; when every target fails, the
// collected failures come back as one error.
func (c *Client) Connect(targets ...string) error {
	if c.down.Load() {
		return errShutdown()
	}

	failures := pool.New()
	ok := 0
	for _, target := range targets {
		if err := c.topo.Connect(target); err != nil {
			failures.Add(err)
			logx.New(c.log).
				Level(logrus.WarnLevel).
				Message("connect failed").
				Field(logx.FieldConnection, target).
				Error(err).
				Log()
			if c.cfg.Notify.ConnectionFailure != nil {
				c.cfg.Notify.ConnectionFailure(target, err)
			}
			continue
		}
		ok++
	}

	if ok == 0 && failures.Len() > 0 {
		return failures.Error()
	}
	return nil
}

// dial opens one endpoint with the client's full wiring.
func (c *Client) dial(target string) (*connect.Endpoint, errors.Error) {
	e, err := connect.Dial(target, c.cfg.ConnectionSetupTimeout.Time(), connect.Options{
		Registry: c.reg,
		Permits:  c.permits,
		Limiter:  c.limiter,
		Stats:    c.stats,
		Log:      c.log,
		Inbound: func(e *connect.Endpoint, frame []byte) {
			c.disp.Submit(e.Target(), frame)
		},
		OnDown:            c.topo.OnConnectionDown,
		ShortTimeout:      c.sched.OneShot,
		SysHandle:         c.nextSysHandle,
		ParamEncoder:      c.paramCodec,
		Handshake:         c.cfg.Handshake,
		BackpressureLevel: c.cfg.NetworkBackpressureLevel,
		PingTimeout:       c.cfg.ConnectionResponseTimeout.Time() / 3,
	})
	if err != nil {
		return nil, err
	}

	e.Start()
	return e, nil
}

// Call admits an async call with the default timeout and priority. The
// returned Call always resolves; admission failures resolve it
// exceptionally with the matching public error kind.
func (c *Client) Call(procedure string, params ...any) *Call {
	return c.call(c.cfg.ProcedureCallTimeout.Time(), c.cfg.RequestPriority, codec.RouteByParameter, procedure, params)
}

// CallTimeout is Call with a per-call budget override.
func (c *Client) CallTimeout(timeout time.Duration, procedure string, params ...any) *Call {
	return c.call(timeout, c.cfg.RequestPriority, codec.RouteByParameter, procedure, params)
}

// CallPriority is Call with a per-call priority override (1 highest .. 8
// lowest, out-of-range clamps to 8).
func (c *Client) CallPriority(priority uint8, procedure string, params ...any) *Call {
	return c.call(c.cfg.ProcedureCallTimeout.Time(), priority, codec.RouteByParameter, procedure, params)
}

// CallPartition pins the call to an explicit partition, bypassing
// parameter-based routing.
func (c *Client) CallPartition(partitionID int32, procedure string, params ...any) *Call {
	return c.call(c.cfg.ProcedureCallTimeout.Time(), c.cfg.RequestPriority, partitionID, procedure, params)
}

// CallSync runs Call and waits, surfacing a non-SUCCESS response as a
// procedure-call error.
func (c *Client) CallSync(ctx context.Context, procedure string, params ...any) (*Response, error) {
	return c.await(ctx, c.Call(procedure, params...), procedure)
}

// CallSyncTimeout is CallSync with a per-call budget override.
func (c *Client) CallSyncTimeout(ctx context.Context, timeout time.Duration, procedure string, params ...any) (*Response, error) {
	return c.await(ctx, c.CallTimeout(timeout, procedure, params...), procedure)
}

func (c *Client) await(ctx context.Context, call *Call, procedure string) (*Response, error) {
	resp, err := call.Get(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Status() != StatusSuccess {
		return resp, errProcedureCall(procedure, resp.Status().String(), resp.StatusString())
	}
	return resp, nil
}

// CallAllPartitions runs one single-partition call per partition in the
// partition-key cache and returns every Call in a map keyed by partition
// id; the map carries no ordering. The partition-key sample value is
// appended as the call's last parameter.
func (c *Client) CallAllPartitions(procedure string, params ...any) (map[int32]*Call, error) {
	if c.down.Load() {
		return nil, errShutdown()
	}

	keys, err := c.topo.PartitionKeys(partKeysMaxAge)
	if err != nil {
		return nil, err
	}

	out := make(map[int32]*Call, len(keys))
	for pid, key := range keys {
		p := make([]any, 0, len(params)+1)
		p = append(p, params...)
		p = append(p, key)
		out[pid] = c.call(c.cfg.ProcedureCallTimeout.Time(), c.cfg.RequestPriority, pid, procedure, p)
	}
	return out, nil
}

// call is the single admission path: handle assignment, registry insert,
// route, enqueue. The record's terminal outcome is owned by whoever
// removes the handle; admission-time refusals resolve the Call before it
// is returned.
func (c *Client) call(timeout time.Duration, priority uint8, partitionID int32, procedure string, params []any) *Call {
	if c.down.Load() {
		return failedCall(-1, errShutdown())
	}

	handle := c.handles.Add(1)
	if handle > codec.MaxUserHandle {
		return failedCall(-1, errHandlesExhausted())
	}

	if timeout <= 0 {
		timeout = c.cfg.ProcedureCallTimeout.Time()
	}

	inv := codec.NewInvocation(procedure, handle, params...).WithPriority(priority)
	if partitionID != codec.RouteByParameter {
		inv.WithPartition(partitionID)
	}

	p := &registry.Pending{
		Handle:  handle,
		Seq:     c.reg.NextSeq(),
		Inv:     inv,
		Promise: promise.New[*codec.Response](),
		Start:   time.Now(),
		Timeout: timeout,
	}
	call := &Call{handle: handle, p: p.Promise}

	if err := c.reg.Admit(p); err != nil {
		p.Promise.Complete(nil, wrapTerminal(err))
		return call
	}
	c.stats.SetInFlight(c.reg.Size())

	conn, rerr := c.rtr.Route(inv)
	if rerr != nil {
		c.failAdmitted(p, rerr)
		return call
	}

	p.Conn = conn
	if qerr := conn.Enqueue(p); qerr != nil {
		c.failAdmitted(p, qerr)
		return call
	}
	return call
}

// failAdmitted rolls an admitted record back out with a terminal error.
func (c *Client) failAdmitted(p *registry.Pending, cause error) {
	rec, ok := c.reg.Remove(p.Handle)
	if !ok {
		return
	}
	rec.Promise.Complete(nil, wrapTerminal(cause))
	c.reg.TestResume()
}

// Backpressured reports the application-facing request-backpressure
// state.
func (c *Client) Backpressured() bool {
	return c.reg.Backpressured()
}

// InFlight returns how many calls are currently admitted and unresolved.
func (c *Client) InFlight() int {
	return c.reg.Size()
}

// ConnectedCount returns the number of live connections.
func (c *Client) ConnectedCount() int {
	return c.topo.ConnCount()
}

// SetOutstandingTxnLimit resizes the global send-permit semaphore at
// runtime. Shrinking below the permits currently free is refused.
func (c *Client) SetOutstandingTxnLimit(limit int) error {
	return c.permits.Resize(limit)
}

// Collectors exposes the client's prometheus collectors for registration
// in the application's registry.
func (c *Client) Collectors() []prometheus.Collector {
	return c.stats.Collectors()
}

// Drain blocks until no call is in flight and no background task is
// pending, or ctx expires.
func (c *Client) Drain(ctx context.Context) error {
	for {
		if c.reg.Size() == 0 && c.topo.Idle() && c.sched.TasksIdle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(drainPoll):
		}
	}
}

// Shutdown is the global soft stop: refuse new calls, drain tasks and
// requests within ctx, stop the pools with a bounded grace, tear down
// every connection and clear the topology snapshots. Always returns the
// drain error, if any; the teardown itself cannot fail.
func (c *Client) Shutdown(ctx context.Context) error {
	if !c.down.CompareAndSwap(false, true) {
		return nil
	}

	drainErr := c.Drain(ctx)

	c.topo.Shutdown()
	c.sched.Stop()

	grace, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	_ = c.disp.Drain(grace)
	cancel()

	c.rtr.Clear()

	logx.New(c.log).
		Level(logrus.InfoLevel).
		Message("client shut down").
		Log()
	return drainErr
}

// nextSysHandle allocates the next negative internal-call handle.
func (c *Client) nextSysHandle() int64 {
	return -c.sysHandles.Add(1)
}

func (c *Client) notifyConn(fn func(target string, hostID int64), e *connect.Endpoint) {
	if fn == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logx.New(c.log).
				Level(logrus.ErrorLevel).
				Message("connection notification panicked").
				Field("panic", rec).
				Log()
		}
	}()
	fn(e.Target(), e.HostID())
}

func (c *Client) notifyLateResponse(handle int64, connection string) {
	if c.cfg.Notify.LateResponse == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logx.New(c.log).
				Level(logrus.ErrorLevel).
				Message("late-response notification panicked").
				Field("panic", rec).
				Log()
		}
	}()
	c.cfg.Notify.LateResponse(handle, connection)
}
