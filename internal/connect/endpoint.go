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
	"encoding/binary"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/errors"
	"github.com/abhivijay96/voltdb-client-go/internal/logx"
	"github.com/abhivijay96/voltdb-client-go/internal/permit"
	"github.com/abhivijay96/voltdb-client-go/internal/promise"
	"github.com/abhivijay96/voltdb-client-go/internal/ratelimit"
	"github.com/abhivijay96/voltdb-client-go/internal/registry"
	"github.com/abhivijay96/voltdb-client-go/internal/statsreport"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultBackpressureLevel is how many frames may sit in the outbound byte
// queue before the endpoint raises network backpressure.
const DefaultBackpressureLevel = 256

// maxFrameLen rejects absurd inbound length prefixes before allocation.
const maxFrameLen = 64 << 20

// HandshakeInfo is what the (externally defined) post-dial handshake
// learns about the node: its host id and the cluster identity used to
// refuse cross-cluster connections.
type HandshakeInfo struct {
	HostID           int64
	ClusterStartTime int64
	LeaderAddr       string
}

// HandshakeFunc runs the post-dial handshake. A nil HandshakeFunc skips
// the exchange and leaves the host id unknown until topology learns it.
type HandshakeFunc func(conn net.Conn) (HandshakeInfo, error)

// Options carries the collaborators an Endpoint needs. Registry and
// Permits are mandatory; everything else has a workable zero value.
type Options struct {
	Registry *registry.Registry
	Permits  *permit.Semaphore
	Limiter  *ratelimit.Limiter
	Stats    *statsreport.Stats
	Log      logx.Source

	// Inbound receives every decoded-length frame read off the socket.
	// It must not block: dispatch hands frames to its own worker pool.
	Inbound func(e *Endpoint, frame []byte)

	// OnDown fires once, after the endpoint finished tearing down and all
	// its in-flight requests were failed.
	OnDown func(e *Endpoint)

	// ShortTimeout schedules the one-shot sub-second timeout task for a
	// request about to hit the wire. Wired to the timeout scheduler; nil
	// leaves short timeouts to the coarse per-second scan.
	ShortTimeout func(p *registry.Pending)

	// SysHandle allocates the next negative internal-call handle.
	SysHandle func() int64

	// ParamEncoder serializes deferred parameter sequences.
	ParamEncoder codec.ParamEncoder

	// Handshake, when set, runs right after the dial on the fresh socket.
	Handshake HandshakeFunc

	// BackpressureLevel overrides DefaultBackpressureLevel when positive.
	BackpressureLevel int

	// PingTimeout bounds the internal @Ping call issued by keepalives.
	PingTimeout time.Duration
}

// Endpoint is one connection to one cluster node.
type Endpoint struct {
	id     string
	target string
	conn   net.Conn
	opts   Options

	queue *prioQueue
	out   chan []byte
	done  chan struct{}

	bpLevel int
	bpMu    sync.Mutex
	bpCond  *sync.Cond
	bpOn    bool

	hostID    atomic.Int64
	adminPort atomic.Bool

	handshake HandshakeInfo

	connected atomic.Bool
	downOnce  sync.Once

	lastResponse    atomic.Int64
	pingOutstanding atomic.Bool

	wg sync.WaitGroup
}

// Dial connects to target within setupTimeout, runs the optional
// handshake, and returns a started Endpoint.
func Dial(target string, setupTimeout time.Duration, opts Options) (*Endpoint, errors.Error) {
	conn, err := net.DialTimeout("tcp", target, setupTimeout)
	if err != nil {
		return nil, errDialFailed(target, err)
	}

	info := HandshakeInfo{HostID: -1}
	if opts.Handshake != nil {
		if setupTimeout > 0 {
			_ = conn.SetDeadline(time.Now().Add(setupTimeout))
		}
		info, err = opts.Handshake(conn)
		if err != nil {
			_ = conn.Close()
			return nil, errDialFailed(target, err)
		}
		_ = conn.SetDeadline(time.Time{})
	}

	e := NewEndpoint(conn, target, opts)
	e.hostID.Store(info.HostID)
	e.handshake = info
	return e, nil
}

// NewEndpoint wraps an already-connected socket. Call Start to launch the
// reader, writer and send worker.
func NewEndpoint(conn net.Conn, target string, opts Options) *Endpoint {
	lvl := opts.BackpressureLevel
	if lvl <= 0 {
		lvl = DefaultBackpressureLevel
	}

	e := &Endpoint{
		id:      uuid.NewString(),
		target:  target,
		conn:    conn,
		opts:    opts,
		queue:   newPrioQueue(),
		out:     make(chan []byte, lvl*2),
		done:    make(chan struct{}),
		bpLevel: lvl,
	}
	e.bpCond = sync.NewCond(&e.bpMu)
	e.hostID.Store(-1)
	e.lastResponse.Store(time.Now().UnixNano())
	e.connected.Store(true)
	return e
}

// Start launches the endpoint's three goroutines.
func (e *Endpoint) Start() {
	e.wg.Add(3)
	go e.readLoop()
	go e.writeLoop()
	go e.sendLoop()
}

// ID returns the endpoint's unique identifier, stable for its lifetime
// and distinct across reconnects to the same target.
func (e *Endpoint) ID() string {
	return e.id
}

// Target returns the host:port this endpoint dialed.
func (e *Endpoint) Target() string {
	return e.target
}

// IsConnected reports whether the endpoint is still usable.
func (e *Endpoint) IsConnected() bool {
	return e.connected.Load()
}

// HostID returns the cluster host id behind this connection, or -1 when
// not yet learned.
func (e *Endpoint) HostID() int64 {
	return e.hostID.Load()
}

// Handshake returns what the post-dial handshake learned. Zero values mean
// the handshake was skipped.
func (e *Endpoint) Handshake() HandshakeInfo {
	return e.handshake
}

// SetHostID records the host id once topology has learned it.
func (e *Endpoint) SetHostID(id int64) {
	e.hostID.Store(id)
}

// SetAdminPort records that this connection targets the node's admin port;
// the new-node connection task uses it to pick which port column to dial.
func (e *Endpoint) SetAdminPort(v bool) {
	e.adminPort.Store(v)
}

// UsesAdminPort reports whether this connection targets an admin port.
func (e *Endpoint) UsesAdminPort() bool {
	return e.adminPort.Load()
}

// QueueDepth returns how many requests wait in the send queue, for the
// demo CLI and tests.
func (e *Endpoint) QueueDepth() int {
	return e.queue.len()
}

// Enqueue hands p to the send worker. On a closed queue the request is NOT
// failed here; the caller removes and fails the record itself.
func (e *Endpoint) Enqueue(p *registry.Pending) errors.Error {
	if !e.connected.Load() || !e.queue.push(p) {
		return errQueueClosed(e.target)
	}
	return nil
}

// SinceLastResponse returns how long ago the last inbound frame arrived.
func (e *Endpoint) SinceLastResponse() time.Duration {
	return time.Duration(time.Now().UnixNano() - e.lastResponse.Load())
}

// PingOutstanding reports whether a keepalive ping is in flight.
func (e *Endpoint) PingOutstanding() bool {
	return e.pingOutstanding.Load()
}

// SendPing issues the internal @Ping system call on this connection. It is
// a no-op when a ping is already outstanding or no handle allocator was
// wired.
func (e *Endpoint) SendPing() {
	if e.opts.SysHandle == nil || !e.pingOutstanding.CompareAndSwap(false, true) {
		return
	}

	timeout := e.opts.PingTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	p := &registry.Pending{
		Handle:  e.opts.SysHandle(),
		Seq:     e.opts.Registry.NextSeq(),
		Inv:     codec.NewInvocation("@Ping", 0).WithPriority(codec.MinPriority),
		Promise: promise.New[*codec.Response](),
		Start:   time.Now(),
		Timeout: timeout,
		Conn:    e,
	}
	p.Inv.Handle = p.Handle

	if err := e.opts.Registry.AdmitSystem(p); err != nil {
		e.pingOutstanding.Store(false)
		return
	}
	if err := e.Enqueue(p); err != nil {
		if rec, ok := e.opts.Registry.Remove(p.Handle); ok {
			rec.Promise.Complete(nil, err)
		}
		e.pingOutstanding.Store(false)
	}
}

// NetworkBackpressure reports the level-triggered write-side signal.
func (e *Endpoint) NetworkBackpressure() bool {
	e.bpMu.Lock()
	defer e.bpMu.Unlock()
	return e.bpOn
}

// setBackpressure toggles the level-triggered flag. Duplicate "on" events
// are idempotent; "off" wakes every waiter.
func (e *Endpoint) setBackpressure(on bool) {
	e.bpMu.Lock()
	defer e.bpMu.Unlock()

	if e.bpOn == on {
		return
	}
	e.bpOn = on
	if !on {
		e.bpCond.Broadcast()
	}
}

// waitClear blocks until the backpressure flag drops, the endpoint dies,
// or budget runs out. It reports whether the caller may write.
func (e *Endpoint) waitClear(budget time.Duration) bool {
	deadline := time.Now().Add(budget)

	e.bpMu.Lock()
	defer e.bpMu.Unlock()

	for e.bpOn && e.connected.Load() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}

		// Condition variables have no timed wait that releases early on
		// signal AND deadline; arm a waker that re-broadcasts at expiry.
		t := time.AfterFunc(remaining, func() {
			e.bpMu.Lock()
			e.bpCond.Broadcast()
			e.bpMu.Unlock()
		})
		e.bpCond.Wait()
		t.Stop()
	}
	return e.connected.Load()
}

// writeToNetwork puts one serialized frame on the outbound byte queue,
// raising network backpressure once the queue crosses the level. A
// teardown racing the send wins; the frame is dropped and the request
// fails through the teardown sweep instead.
func (e *Endpoint) writeToNetwork(frame []byte) {
	select {
	case e.out <- frame:
	case <-e.done:
		return
	}

	if len(e.out) >= e.bpLevel {
		e.setBackpressure(true)
	}
}

// writeLoop drains the outbound byte queue onto the socket.
func (e *Endpoint) writeLoop() {
	defer e.wg.Done()

	for {
		var frame []byte
		select {
		case <-e.done:
			return
		case frame = <-e.out:
		}

		if _, err := e.conn.Write(frame); err != nil {
			if e.connected.Load() {
				logx.New(e.opts.Log).
					Level(logrus.WarnLevel).
					Message("connection write failed").
					Field(logx.FieldConnection, e.target).
					Error(err).
					Log()
			}
			go e.Teardown()
			return
		}

		if len(e.out) == 0 {
			e.setBackpressure(false)
		}
	}
}

// readLoop reads length-prefixed frames and hands them to the inbound
// callback. Any read error tears the endpoint down.
func (e *Endpoint) readLoop() {
	defer e.wg.Done()

	var lenBuf [4]byte
	for {
		if _, err := io.ReadFull(e.conn, lenBuf[:]); err != nil {
			break
		}

		n := binary.BigEndian.Uint32(lenBuf[:])
		if n == 0 || n > maxFrameLen {
			break
		}

		frame := make([]byte, n)
		if _, err := io.ReadFull(e.conn, frame); err != nil {
			break
		}

		e.lastResponse.Store(time.Now().UnixNano())
		e.pingOutstanding.Store(false)

		if e.opts.Inbound != nil {
			e.opts.Inbound(e, frame)
		}
	}

	go e.Teardown()
}

// Teardown shuts the endpoint once: closes the socket, stops the worker,
// fails everything queued or in flight on this connection via the normal
// terminal paths, then fires OnDown. Safe to call from any goroutine,
// any number of times.
func (e *Endpoint) Teardown() {
	e.downOnce.Do(func() {
		e.connected.Store(false)
		close(e.done)
		_ = e.conn.Close()

		// Wake the send worker out of any backpressure wait.
		e.bpMu.Lock()
		e.bpCond.Broadcast()
		e.bpMu.Unlock()

		// Stop the worker and fail whatever never left the queue.
		for _, p := range e.queue.close() {
			e.failPending(p)
		}

		// Fail every in-flight request bound to this endpoint.
		e.opts.Registry.Range(func(p *registry.Pending) bool {
			if c, ok := p.Conn.(*Endpoint); ok && c == e {
				e.failPending(p)
			}
			return true
		})

		logx.New(e.opts.Log).
			Level(logrus.InfoLevel).
			Message("connection closed").
			Field(logx.FieldConnection, e.target).
			Field("id", e.id).
			Field(logx.FieldHost, e.hostID.Load()).
			Log()

		if e.opts.OnDown != nil {
			e.opts.OnDown(e)
		}
	})
}

// failPending applies the connection-lost terminal outcome to p, if p is
// still in the registry.
func (e *Endpoint) failPending(p *registry.Pending) {
	rec, ok := e.opts.Registry.Remove(p.Handle)
	if !ok {
		return
	}
	if rec.TakePermit() {
		e.opts.Permits.Release(1)
	}
	rec.Promise.Complete(nil, errConnectionLost(e.target))
	e.opts.Registry.TestResume()
}
