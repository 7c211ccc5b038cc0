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

package router

import (
	"sync/atomic"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
	"github.com/abhivijay96/voltdb-client-go/internal/connect"
	"github.com/abhivijay96/voltdb-client-go/internal/errors"
	"github.com/abhivijay96/voltdb-client-go/internal/hashinate"
	"github.com/abhivijay96/voltdb-client-go/internal/statsreport"
)

// ProcInfo is the routing-relevant slice of one catalog procedure entry.
type ProcInfo struct {
	MultiPartition bool
	ReadOnly       bool

	// PartitionParam is the index of the partitioning parameter for
	// single-partition procedures; -1 when not applicable.
	PartitionParam int

	// ParamType is the wire type of the partitioning parameter.
	ParamType hashinate.ParamType
}

// hashSnap boxes the hashinator interface so the atomic pointer has a
// concrete type to point at, and "no hashinator yet" stays a nil pointer.
type hashSnap struct {
	h hashinate.Hashinator
}

// Router computes the destination connection for each admitted call. All
// topology inputs are atomically swapped snapshot pointers, replaced
// wholesale on each topology update; Route never locks.
type Router struct {
	hasher  atomic.Pointer[hashSnap]
	leaders atomic.Pointer[map[int32]*connect.Endpoint]
	procs   atomic.Pointer[map[string]ProcInfo]

	conns  func() []*connect.Endpoint
	cursor atomic.Uint64
	stats  *statsreport.Stats
}

// New builds a Router over the given connection-list snapshot source. The
// snapshot pointers start nil: no hashinator, no leaders, no catalog.
func New(conns func() []*connect.Endpoint, stats *statsreport.Stats) *Router {
	return &Router{
		conns: conns,
		stats: stats,
	}
}

// SetHashinator installs a new hashinator snapshot.
func (r *Router) SetHashinator(h hashinate.Hashinator) {
	r.hasher.Store(&hashSnap{h: h})
}

// Hashinator returns the current hashinator snapshot, possibly nil.
func (r *Router) Hashinator() hashinate.Hashinator {
	if p := r.hasher.Load(); p != nil {
		return p.h
	}
	return nil
}

// SetLeaders installs a new partition-to-connection map wholesale.
func (r *Router) SetLeaders(m map[int32]*connect.Endpoint) {
	r.leaders.Store(&m)
}

// Leaders returns the current partition-leader snapshot.
func (r *Router) Leaders() map[int32]*connect.Endpoint {
	if p := r.leaders.Load(); p != nil {
		return *p
	}
	return nil
}

// SetProcedures installs a new procedure catalog wholesale.
func (r *Router) SetProcedures(m map[string]ProcInfo) {
	r.procs.Store(&m)
}

// Procedures returns the current procedure-catalog snapshot.
func (r *Router) Procedures() map[string]ProcInfo {
	if p := r.procs.Load(); p != nil {
		return *p
	}
	return nil
}

// Clear drops every snapshot, for shutdown.
func (r *Router) Clear() {
	r.hasher.Store(nil)
	r.leaders.Store(nil)
	r.procs.Store(nil)
}

// Route picks the connection for inv. The partition id used for the
// affinity lookup is, in order: the caller's explicit pin, the hashinator
// over the procedure's partition parameter, the multi-partition sentinel
// for multi-partition (or index-out-of-range) procedures, or no affinity
// at all when the catalog and hashinator are silent.
func (r *Router) Route(inv *codec.Invocation) (*connect.Endpoint, errors.Error) {
	pid := inv.PartitionID
	readOnly := false

	if pid == codec.RouteByParameter {
		pid = hashinate.NoAffinitySentinel

		procs := r.Procedures()
		hasher := r.Hashinator()
		if info, ok := procs[inv.Procedure]; ok && hasher != nil {
			readOnly = info.ReadOnly
			pid = r.hashPartition(inv, info, hasher)
		}
	}

	var selected *connect.Endpoint
	byAffinity := false

	if pid != hashinate.NoAffinitySentinel {
		if c, ok := r.Leaders()[pid]; ok && c.IsConnected() {
			selected = c
			byAffinity = true
		}
	}

	if selected == nil {
		selected = r.roundRobin()
	}
	if selected == nil {
		return nil, errNoConnections()
	}

	if pid != hashinate.NoAffinitySentinel {
		route := statsreport.RouteRoundRobin
		if byAffinity {
			route = statsreport.RouteAffinity
		}
		r.stats.Routed(route, readOnly)
	}
	return selected, nil
}

// hashPartition maps inv to a partition id through info and hasher. A
// multi-partition procedure, an out-of-range parameter index, or an
// unhashable value all land on the multi-partition sentinel.
func (r *Router) hashPartition(inv *codec.Invocation, info ProcInfo, hasher hashinate.Hashinator) int32 {
	if info.MultiPartition {
		return hashinate.MultiPartitionSentinel
	}

	v, ok := inv.ParamAt(info.PartitionParam)
	if !ok {
		return hashinate.MultiPartitionSentinel
	}

	b, ok := hashinate.ValueBytes(info.ParamType, v)
	if !ok {
		return hashinate.MultiPartitionSentinel
	}

	pid, err := hasher.Hash(info.ParamType, b)
	if err != nil {
		return hashinate.MultiPartitionSentinel
	}
	return pid
}

// roundRobin snapshots the connection list and makes up to two passes from
// a shared cursor: the first pass skips connections under network
// backpressure, the second accepts any connected endpoint. The cursor
// advance is a race-tolerant hint, not a fairness guarantee.
func (r *Router) roundRobin() *connect.Endpoint {
	list := r.conns()
	n := len(list)
	if n == 0 {
		return nil
	}

	start := int(r.cursor.Add(1) % uint64(n))

	for pass := 0; pass < 2; pass++ {
		for i := 0; i < n; i++ {
			c := list[(start+i)%n]
			if !c.IsConnected() {
				continue
			}
			if pass == 0 && c.NetworkBackpressure() {
				continue
			}
			return c
		}
	}
	return nil
}
