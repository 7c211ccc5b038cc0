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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/connect"
	"github.com/abhivijay96/voltdb-client-go/internal/hashinate"
	"github.com/abhivijay96/voltdb-client-go/internal/logx"
	"github.com/sirupsen/logrus"
)

// ScheduleSubscribe queues the subscribe task after delay, unless one is
// already queued.
func (m *Manager) ScheduleSubscribe(delay time.Duration) {
	if m.down.Load() || !m.subscribePending.CompareAndSwap(false, true) {
		return
	}

	if delay > 0 {
		m.opts.Sched.SubmitAfter(delay, m.runSubscribe)
		return
	}
	if !m.opts.Sched.Submit(m.runSubscribe) {
		m.subscribePending.Store(false)
	}
}

// ScheduleRefresh queues the topology-refresh task, unless one is already
// queued. Triggered when a new connection appears without a corresponding
// topology change push.
func (m *Manager) ScheduleRefresh() {
	if m.down.Load() || !m.refreshPending.CompareAndSwap(false, true) {
		return
	}
	if !m.opts.Sched.Submit(m.runRefresh) {
		m.refreshPending.Store(false)
	}
}

// runSubscribe selects an arbitrary connection and issues, in order, the
// topology subscription, a topology statistics pull, and a procedure
// catalog pull. Any failure re-arms the whole task.
func (m *Manager) runSubscribe() {
	m.subscribePending.Store(false)
	if m.down.Load() {
		return
	}

	e := m.anyConn()
	if e == nil {
		return
	}

	if _, err := m.sysCall(e, "@Subscribe", "TOPOLOGY"); err != nil {
		m.logTaskFailure("subscribe", e, err)
		m.rearmSubscribe()
		return
	}
	m.subscriber.Store(e)

	topo, err := m.sysCall(e, "@Statistics", "TOPO", int32(0))
	if err != nil {
		m.logTaskFailure("subscribe topology pull", e, err)
		m.rearmSubscribe()
		return
	}
	m.applyTopoStats(topo)

	cat, err := m.sysCall(e, "@SystemCatalog", "PROCEDURES")
	if err != nil {
		m.logTaskFailure("subscribe catalog pull", e, err)
		m.rearmSubscribe()
		return
	}
	m.applyCatalog(cat)
}

func (m *Manager) rearmSubscribe() {
	if m.down.Load() || !m.subscribePending.CompareAndSwap(false, true) {
		return
	}
	m.opts.Sched.SubmitAfter(m.opts.ResubFailureDelay, m.runSubscribe)
}

// runRefresh pulls topology statistics only.
func (m *Manager) runRefresh() {
	m.refreshPending.Store(false)
	if m.down.Load() {
		return
	}

	e := m.anyConn()
	if e == nil {
		return
	}

	topo, err := m.sysCall(e, "@Statistics", "TOPO", int32(0))
	if err != nil {
		m.logTaskFailure("topology refresh", e, err)
		if m.refreshPending.CompareAndSwap(false, true) {
			m.opts.Sched.SubmitAfter(m.opts.RetryDelay, m.runRefresh)
		}
		return
	}
	m.applyTopoStats(topo)
}

// HandleTopoPush routes an unsolicited topology-change push (magic
// topology handle) into the refresh completion.
func (m *Manager) HandleTopoPush(resp *codec.Response) {
	if m.down.Load() {
		return
	}
	m.opts.Sched.Submit(func() { m.applyTopoStats(resp) })
}

// HandleCatalogPush routes an unsolicited catalog push (magic catalog
// handle) into the catalog completion.
func (m *Manager) HandleCatalogPush(resp *codec.Response) {
	if m.down.Load() {
		return
	}
	m.opts.Sched.Submit(func() { m.applyCatalog(resp) })
}

// applyTopoStats is the topology completion: it invalidates the
// partition-key cache, installs the new hashinator from the HASHCONFIG
// varbinary of the second result set, rebuilds the partition-leader map
// from the (Partition, Leader, Sites) rows of the first, and queues the
// connection task for any host present in Sites without a connection.
func (m *Manager) applyTopoStats(resp *codec.Response) {
	m.keys.invalidate()

	if hc := resp.Table(1); hc != nil && hc.RowCount() > 0 {
		if blob, ok := hc.BytesAt(0, "HASHCONFIG"); ok {
			if h, err := hashinate.FromConfig(blob); err == nil {
				m.opts.Router.SetHashinator(h)
			} else {
				logx.New(m.opts.Log).
					Level(logrus.WarnLevel).
					Message("ignoring unusable hashinator config").
					Error(err).
					Log()
			}
		}
	}

	topo := resp.Table(0)
	if topo == nil {
		logx.New(m.opts.Log).
			Level(logrus.WarnLevel).
			Message("topology statistics without a topology table").
			Log()
		return
	}

	byHost := m.hostMap()
	leaders := make(map[int32]*connect.Endpoint, topo.RowCount())
	unconnected := make(map[int64]struct{})

	for i := 0; i < topo.RowCount(); i++ {
		pid, ok := topo.Int64At(i, "Partition")
		if !ok {
			continue
		}

		if leader, ok := topo.Int64At(i, "Leader"); ok {
			if e, up := byHost[leader]; up && e.IsConnected() {
				leaders[int32(pid)] = e
			}
		}

		for _, hid := range parseSites(topo, i) {
			if _, up := byHost[hid]; !up {
				unconnected[hid] = struct{}{}
			}
		}
	}

	m.opts.Router.SetLeaders(leaders)

	if len(unconnected) > 0 && !m.opts.Disabled {
		m.scheduleConnect(unconnected)
	}
}

// parseSites extracts the host ids of one topology row's Sites column,
// accepting either a comma-separated string or a single integer.
func parseSites(t *codec.ResultTable, row int) []int64 {
	if s, ok := t.StringAt(row, "Sites"); ok {
		var out []int64
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			// Accept "host" and "host:site" forms.
			if idx := strings.IndexByte(part, ':'); idx >= 0 {
				part = part[:idx]
			}
			if id, err := strconv.ParseInt(part, 10, 64); err == nil {
				out = append(out, id)
			}
		}
		return out
	}

	if id, ok := t.Int64At(row, "Sites"); ok {
		return []int64{id}
	}
	return nil
}

// scheduleConnect merges hosts into the unconnected set and queues the
// two-stage connection task.
func (m *Manager) scheduleConnect(hosts map[int64]struct{}) {
	m.unconnMu.Lock()
	for h := range hosts {
		m.unconnected[h] = struct{}{}
	}
	m.unconnMu.Unlock()

	if m.down.Load() || !m.connectPending.CompareAndSwap(false, true) {
		return
	}
	if !m.opts.Sched.Submit(m.runConnect) {
		m.connectPending.Store(false)
	}
}

// runConnect is the two-stage new-node task. Stage one asks the cluster
// for host addresses and ports; stage two dials whatever is still
// unconnected. Hosts that resist stay in the set and the task re-arms
// after the retry delay.
func (m *Manager) runConnect() {
	m.connectPending.Store(false)
	if m.down.Load() {
		return
	}

	e := m.anyConn()
	if e == nil {
		return
	}

	over, err := m.sysCall(e, "@SystemInformation", "OVERVIEW")
	if err != nil {
		m.logTaskFailure("system overview", e, err)
		m.rearmConnect()
		return
	}

	addrs := m.hostAddresses(over)
	byHost := m.hostMap()

	m.unconnMu.Lock()
	want := make([]int64, 0, len(m.unconnected))
	for h := range m.unconnected {
		want = append(want, h)
	}
	m.unconnMu.Unlock()

	for _, h := range want {
		if _, up := byHost[h]; up {
			m.forgetUnconnected(h)
			continue
		}

		target, ok := addrs[h]
		if !ok {
			continue
		}

		if cerr := m.Connect(target); cerr != nil {
			logx.New(m.opts.Log).
				Level(logrus.WarnLevel).
				Message("new-node connect failed").
				Field(logx.FieldHost, h).
				Field(logx.FieldConnection, target).
				Error(cerr).
				Log()
			if m.opts.OnConnFailure != nil {
				m.opts.OnConnFailure(target, cerr)
			}
			continue
		}
		m.forgetUnconnected(h)
	}

	m.unconnMu.Lock()
	remaining := len(m.unconnected)
	m.unconnMu.Unlock()

	if remaining > 0 {
		m.rearmConnect()
	}
}

func (m *Manager) forgetUnconnected(h int64) {
	m.unconnMu.Lock()
	delete(m.unconnected, h)
	m.unconnMu.Unlock()
}

func (m *Manager) rearmConnect() {
	if m.down.Load() || !m.connectPending.CompareAndSwap(false, true) {
		return
	}
	m.opts.Sched.SubmitAfter(m.opts.RetryDelay, m.runConnect)
}

// hostAddresses distills an OVERVIEW result (HOST_ID, KEY, VALUE rows)
// into host-id → dial target, picking the admin port iff every existing
// connection already uses admin ports. The port-key choice is made once
// and remembered.
func (m *Manager) hostAddresses(resp *codec.Response) map[int64]string {
	t := resp.Table(0)
	if t == nil {
		return nil
	}

	if m.portKeyChosen.CompareAndSwap(false, true) {
		admin := true
		conns := m.Conns()
		for _, c := range conns {
			if !c.UsesAdminPort() {
				admin = false
				break
			}
		}
		m.portKeyAdmin.Store(admin && len(conns) > 0)
	}

	portKey := "CLIENTPORT"
	if m.portKeyAdmin.Load() {
		portKey = "ADMINPORT"
	}

	ips := make(map[int64]string)
	ports := make(map[int64]string)

	for i := 0; i < t.RowCount(); i++ {
		hid, ok := t.Int64At(i, "HOST_ID")
		if !ok {
			continue
		}
		key, _ := t.StringAt(i, "KEY")
		val, _ := t.StringAt(i, "VALUE")

		switch key {
		case "IPADDRESS":
			ips[hid] = val
		case portKey:
			ports[hid] = val
		}
	}

	out := make(map[int64]string, len(ips))
	for hid, ip := range ips {
		if port, ok := ports[hid]; ok {
			out[hid] = fmt.Sprintf("%s:%s", ip, port)
		}
	}
	return out
}

// scheduleRecovery starts the first-connection recovery loop. The pending
// flag stays set for the loop's whole lifetime so exactly one recovery
// task exists however many teardowns race here.
func (m *Manager) scheduleRecovery() {
	if m.down.Load() || !m.recoverPending.CompareAndSwap(false, true) {
		return
	}
	m.opts.Sched.SubmitAfter(m.opts.ReconnectDelay, m.runRecovery)
}

// runRecovery walks the historical connect targets until one accepts,
// re-arming indefinitely until the client shuts down.
func (m *Manager) runRecovery() {
	if m.down.Load() {
		m.recoverPending.Store(false)
		return
	}

	m.mu.Lock()
	targets := make([]string, 0, len(m.history))
	for t := range m.history {
		targets = append(targets, t)
	}
	m.mu.Unlock()

	for _, target := range targets {
		if m.down.Load() {
			m.recoverPending.Store(false)
			return
		}

		if err := m.Connect(target); err != nil {
			logx.New(m.opts.Log).
				Level(logrus.DebugLevel).
				Message("recovery connect failed").
				Field(logx.FieldConnection, target).
				Error(err).
				Log()
			if m.opts.OnConnFailure != nil {
				m.opts.OnConnFailure(target, err)
			}
			continue
		}

		m.recoverPending.Store(false)
		return
	}

	m.opts.Sched.SubmitAfter(m.opts.RetryDelay, m.runRecovery)
}

func (m *Manager) logTaskFailure(task string, e *connect.Endpoint, err error) {
	logx.New(m.opts.Log).
		Level(logrus.WarnLevel).
		Message("background task failed").
		Field("task", task).
		Field(logx.FieldConnection, e.Target()).
		Error(err).
		Log()
}
