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

package schedule

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/abhivijay96/voltdb-client-go/internal/connect"
	"github.com/abhivijay96/voltdb-client-go/internal/logx"
	"github.com/abhivijay96/voltdb-client-go/internal/permit"
	"github.com/abhivijay96/voltdb-client-go/internal/registry"
	"github.com/sirupsen/logrus"
)

// TickInterval is the coarse scan period.
const TickInterval = time.Second

// taskQueueDepth bounds how many deferred tasks can wait; topology's
// pending flags keep the real count at a handful.
const taskQueueDepth = 64

// Options wires a Scheduler to its collaborators.
type Options struct {
	Registry *registry.Registry
	Permits  *permit.Semaphore
	Log      logx.Source

	// Conns snapshots the current connection list for the keepalive pass.
	Conns func() []*connect.Endpoint

	// ConnectionResponseTimeout is the silence threshold: a connection with
	// an outstanding ping and this much silence is torn down; a connection
	// a third as silent gets pinged.
	ConnectionResponseTimeout time.Duration
}

// Scheduler owns the timer thread and the deferred-task executor.
type Scheduler struct {
	opts Options

	tasks   chan func()
	pending atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a stopped Scheduler; call Start.
func New(opts Options) *Scheduler {
	return &Scheduler{
		opts:  opts,
		tasks: make(chan func(), taskQueueDepth),
		stop:  make(chan struct{}),
	}
}

// Start launches the tick loop and the task executor.
func (s *Scheduler) Start() {
	s.wg.Add(2)
	go s.tickLoop()
	go s.taskLoop()
}

// Stop halts both loops. Queued tasks that never ran are discarded.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}

// Submit queues a deferred task on the scheduler's serial executor. It
// reports false when the scheduler is stopping or saturated; callers with
// a pending flag must clear it on refusal.
func (s *Scheduler) Submit(task func()) bool {
	select {
	case <-s.stop:
		return false
	default:
	}

	select {
	case s.tasks <- task:
		s.pending.Add(1)
		return true
	default:
		return false
	}
}

// SubmitAfter runs task on the serial executor after delay, unless the
// scheduler stops first.
func (s *Scheduler) SubmitAfter(delay time.Duration, task func()) {
	s.pending.Add(1)
	time.AfterFunc(delay, func() {
		defer s.pending.Add(-1)
		select {
		case <-s.stop:
		default:
			s.Submit(task)
		}
	})
}

// TasksIdle reports whether no deferred task is queued or running, for the
// shutdown drain poll.
func (s *Scheduler) TasksIdle() bool {
	return s.pending.Load() == 0
}

// OneShot arms the dedicated sub-second timeout task for p. The task only
// acts if the handle is still active when it fires; long-running exempt
// procedures never get one.
func (s *Scheduler) OneShot(p *registry.Pending) {
	if IsLongOp(p.Inv.Procedure) {
		return
	}

	remaining := p.Remaining()
	if remaining < 0 {
		remaining = 0
	}

	time.AfterFunc(remaining, func() {
		if s.opts.Registry.IsActive(p.Handle) {
			s.expire(p)
		}
	})
}

func (s *Scheduler) taskLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stop:
			return
		case task := <-s.tasks:
			s.runTask(task)
		}
	}
}

func (s *Scheduler) runTask(task func()) {
	defer s.pending.Add(-1)
	defer func() {
		if rec := recover(); rec != nil {
			logx.New(s.opts.Log).
				Level(logrus.ErrorLevel).
				Message("deferred task panicked").
				Field("panic", rec).
				Log()
		}
	}()
	task()
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	tick := time.NewTicker(TickInterval)
	defer tick.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-tick.C:
			s.keepalives()
			s.scanTimeouts()
		}
	}
}

// keepalives walks every connection once per tick: too much silence with a
// ping outstanding unregisters the connection, a third of the threshold
// without one sends @Ping.
func (s *Scheduler) keepalives() {
	if s.opts.Conns == nil || s.opts.ConnectionResponseTimeout <= 0 {
		return
	}

	for _, e := range s.opts.Conns() {
		if !e.IsConnected() {
			continue
		}

		silence := e.SinceLastResponse()
		switch {
		case e.PingOutstanding() && silence > s.opts.ConnectionResponseTimeout:
			logx.New(s.opts.Log).
				Level(logrus.WarnLevel).
				Message("connection unresponsive; unregistering").
				Field(logx.FieldConnection, e.Target()).
				Field("silence", silence.String()).
				Log()
			go e.Teardown()

		case !e.PingOutstanding() && silence > s.opts.ConnectionResponseTimeout/3:
			e.SendPing()
		}
	}
}

// scanTimeouts sweeps the active-handles set for calls past their budget.
// Exempt long operations only expire past the 30-minute floor.
func (s *Scheduler) scanTimeouts() {
	now := time.Now()

	s.opts.Registry.RangeActive(func(p *registry.Pending) bool {
		elapsed := now.Sub(p.Start)
		if elapsed <= p.Timeout {
			return true
		}
		if IsLongOp(p.Inv.Procedure) && elapsed <= MinLongOpTimeout {
			return true
		}

		s.expire(p)
		return true
	})
}

// expire applies the response-timeout terminal outcome: remove wins
// completion, a held permit is released exactly once, resume is re-tested.
func (s *Scheduler) expire(p *registry.Pending) {
	rec, ok := s.opts.Registry.Remove(p.Handle)
	if !ok {
		return
	}

	if rec.TakePermit() {
		s.opts.Permits.Release(1)
	}
	rec.Promise.Complete(nil, errResponseTimeout(rec.Inv.Procedure, time.Since(rec.Start)))
	s.opts.Registry.TestResume()
}
