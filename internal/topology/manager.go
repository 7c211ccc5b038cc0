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

package topology

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/connect"
	"github.com/abhivijay96/voltdb-client-go/internal/errors"
	"github.com/abhivijay96/voltdb-client-go/internal/logx"
	"github.com/abhivijay96/voltdb-client-go/internal/promise"
	"github.com/abhivijay96/voltdb-client-go/internal/registry"
	"github.com/abhivijay96/voltdb-client-go/internal/router"
	"github.com/abhivijay96/voltdb-client-go/internal/schedule"
	"github.com/sirupsen/logrus"
)

// Default task delays.
const (
	DefaultSysCallTimeout    = 10 * time.Second
	DefaultResubFailureDelay = 10 * time.Second
	DefaultResubShortDelay   = 100 * time.Millisecond
	DefaultRetryDelay        = 10 * time.Second
	DefaultReconnectDelay    = time.Second
)

// Options wires a Manager to its collaborators.
type Options struct {
	Registry *registry.Registry
	Router   *router.Router
	Sched    *schedule.Scheduler
	Log      logx.Source

	// SysHandle allocates negative internal-call handles.
	SysHandle func() int64

	// Dial opens and starts a new endpoint to target; the manager
	// registers it on success.
	Dial func(target string) (*connect.Endpoint, errors.Error)

	SysCallTimeout    time.Duration
	ResubFailureDelay time.Duration
	ResubShortDelay   time.Duration
	RetryDelay        time.Duration
	ReconnectDelay    time.Duration

	// Disabled turns off autonomous connection management: topology is
	// still tracked, but no new-node or recovery dialing happens.
	Disabled bool

	OnConnUp      func(e *connect.Endpoint)
	OnConnDown    func(e *connect.Endpoint)
	OnConnFailure func(target string, err error)
}

func (o *Options) fill() {
	if o.SysCallTimeout <= 0 {
		o.SysCallTimeout = DefaultSysCallTimeout
	}
	if o.ResubFailureDelay <= 0 {
		o.ResubFailureDelay = DefaultResubFailureDelay
	}
	if o.ResubShortDelay <= 0 {
		o.ResubShortDelay = DefaultResubShortDelay
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
}

// Manager owns the connection list and the background topology tasks.
type Manager struct {
	opts Options

	mu           sync.Mutex
	conns        []*connect.Endpoint
	history      map[string]struct{}
	identity     connect.HandshakeInfo
	haveIdentity bool

	// snap is the copy-on-write connection list: rebuilt under mu on every
	// mutation, read lock-free everywhere else.
	snap atomic.Pointer[[]*connect.Endpoint]

	subscriber atomic.Pointer[connect.Endpoint]

	subscribePending atomic.Bool
	refreshPending   atomic.Bool
	connectPending   atomic.Bool
	recoverPending   atomic.Bool

	unconnMu    sync.Mutex
	unconnected map[int64]struct{}

	portKeyChosen atomic.Bool
	portKeyAdmin  atomic.Bool

	keys partKeyCache

	down atomic.Bool
}

// New builds a Manager.
func New(opts Options) *Manager {
	opts.fill()

	return &Manager{
		opts:        opts,
		history:     make(map[string]struct{}),
		unconnected: make(map[int64]struct{}),
	}
}

// Conns returns the lock-free connection-list snapshot.
func (m *Manager) Conns() []*connect.Endpoint {
	if p := m.snap.Load(); p != nil {
		return *p
	}
	return nil
}

// ConnCount returns how many connections are currently registered.
func (m *Manager) ConnCount() int {
	return len(m.Conns())
}

// Register adds a freshly connected endpoint: it checks cluster identity,
// records the target in the reconnect history, publishes the new list
// snapshot, then schedules subscribe (first subscriber) or a topology
// refresh (new node without a topology event).
func (m *Manager) Register(e *connect.Endpoint) errors.Error {
	if m.down.Load() {
		return errShutdown()
	}

	m.mu.Lock()

	hs := e.Handshake()
	if hs.ClusterStartTime != 0 || hs.LeaderAddr != "" {
		if m.haveIdentity {
			if m.identity.ClusterStartTime != hs.ClusterStartTime || m.identity.LeaderAddr != hs.LeaderAddr {
				m.mu.Unlock()
				return errClusterMismatch(e.Target())
			}
		} else {
			m.identity = hs
			m.haveIdentity = true
		}
	}

	next := make([]*connect.Endpoint, 0, len(m.conns)+1)
	next = append(next, m.conns...)
	next = append(next, e)
	m.conns = next
	m.history[e.Target()] = struct{}{}
	m.snap.Store(&next)
	m.mu.Unlock()

	logx.New(m.opts.Log).
		Level(logrus.InfoLevel).
		Message("connection registered").
		Field(logx.FieldConnection, e.Target()).
		Field(logx.FieldHost, e.HostID()).
		Log()

	if m.opts.OnConnUp != nil {
		m.opts.OnConnUp(e)
	}

	if m.subscriber.Load() == nil {
		m.ScheduleSubscribe(0)
	} else {
		m.ScheduleRefresh()
	}
	return nil
}

// Connect dials target and registers the endpoint, tearing it straight
// back down when registration refuses it.
func (m *Manager) Connect(target string) errors.Error {
	e, err := m.opts.Dial(target)
	if err != nil {
		return err
	}

	if rerr := m.Register(e); rerr != nil {
		e.Teardown()
		return rerr
	}
	return nil
}

// OnConnectionDown is wired as every endpoint's OnDown callback. It prunes
// the list, re-arms the subscription when the subscriber died, and starts
// the first-connection recovery loop when nothing is left.
func (m *Manager) OnConnectionDown(e *connect.Endpoint) {
	m.mu.Lock()
	next := make([]*connect.Endpoint, 0, len(m.conns))
	for _, c := range m.conns {
		if c != e {
			next = append(next, c)
		}
	}
	m.conns = next
	m.snap.Store(&next)
	remaining := len(next)
	m.mu.Unlock()

	if m.opts.OnConnDown != nil {
		m.opts.OnConnDown(e)
	}

	if m.down.Load() {
		return
	}

	if m.subscriber.CompareAndSwap(e, nil) && remaining > 0 {
		m.ScheduleSubscribe(m.opts.ResubShortDelay)
	}

	if remaining == 0 && !m.opts.Disabled {
		m.scheduleRecovery()
	}
}

// Idle reports whether no background task is pending, for the shutdown
// drain poll.
func (m *Manager) Idle() bool {
	return !m.subscribePending.Load() &&
		!m.refreshPending.Load() &&
		!m.connectPending.Load() &&
		!m.recoverPending.Load()
}

// Shutdown stops all future task scheduling and tears down every
// connection.
func (m *Manager) Shutdown() {
	m.down.Store(true)
	m.subscriber.Store(nil)

	for _, e := range m.Conns() {
		e.Teardown()
	}

	m.mu.Lock()
	m.conns = nil
	m.snap.Store(nil)
	m.mu.Unlock()
}

// anyConn returns an arbitrary live connection.
func (m *Manager) anyConn() *connect.Endpoint {
	for _, e := range m.Conns() {
		if e.IsConnected() {
			return e
		}
	}
	return nil
}

// hostMap indexes the current connections by learned host id.
func (m *Manager) hostMap() map[int64]*connect.Endpoint {
	out := make(map[int64]*connect.Endpoint)
	for _, e := range m.Conns() {
		if id := e.HostID(); id >= 0 {
			out[id] = e
		}
	}
	return out
}

// sysCall issues one internal system procedure on e and waits for its
// response. The pending record rides the normal pipeline (registry, send
// worker, dispatcher); when the wait gives up first, the record is left
// for the timeout scanner, which owns releasing its permit.
func (m *Manager) sysCall(e *connect.Endpoint, proc string, params ...any) (*codec.Response, errors.Error) {
	inv := codec.NewInvocation(proc, 0, params...).WithPriority(codec.MinPriority)
	inv.Handle = m.opts.SysHandle()

	p := &registry.Pending{
		Handle:  inv.Handle,
		Seq:     m.opts.Registry.NextSeq(),
		Inv:     inv,
		Promise: promise.New[*codec.Response](),
		Start:   time.Now(),
		Timeout: m.opts.SysCallTimeout,
		Conn:    e,
	}

	if err := m.opts.Registry.AdmitSystem(p); err != nil {
		return nil, errSysCallFailed(proc, err)
	}
	if err := e.Enqueue(p); err != nil {
		if rec, ok := m.opts.Registry.Remove(p.Handle); ok {
			rec.Promise.Complete(nil, err)
		}
		return nil, errSysCallFailed(proc, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.SysCallTimeout+schedule.TickInterval)
	defer cancel()

	resp, err := p.Promise.Wait(ctx)
	if err != nil {
		return nil, errSysCallFailed(proc, err)
	}
	if resp.Status != codec.StatusSuccess {
		return nil, errSysCallBadStatus(proc, resp.Status.String())
	}
	return resp, nil
}
