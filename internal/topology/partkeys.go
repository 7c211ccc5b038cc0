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
	"sync"
	"time"

	"github.com/abhivijay96/voltdb-client-go/internal/errors"
)

// partKeyCache holds one sample key per partition, refreshed on demand.
// A single refresh may be in flight; later callers queue behind it on the
// inflight channel rather than stacking duplicate system calls.
type partKeyCache struct {
	mu       sync.Mutex
	keys     map[int32]int64
	tsMillis int64
	inflight chan struct{}
}

// invalidate zeroes the timestamp, forcing a reload on the next
// all-partition call.
func (c *partKeyCache) invalidate() {
	c.mu.Lock()
	c.tsMillis = 0
	c.mu.Unlock()
}

// snapshot returns a copy of the cache when it is younger than maxAge.
func (c *partKeyCache) snapshot(maxAge time.Duration) (map[int32]int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tsMillis == 0 || c.keys == nil {
		return nil, false
	}
	if time.Since(time.UnixMilli(c.tsMillis)) > maxAge {
		return nil, false
	}

	out := make(map[int32]int64, len(c.keys))
	for k, v := range c.keys {
		out[k] = v
	}
	return out, true
}

func (c *partKeyCache) store(keys map[int32]int64) {
	c.mu.Lock()
	c.keys = keys
	c.tsMillis = time.Now().UnixMilli()
	c.mu.Unlock()
}

// PartitionKeys returns the partition-id → sample-key map, refreshing it
// through @GetPartitionKeys when the cache is older than maxAge. Callers
// arriving during a refresh wait for that refresh instead of issuing
// their own.
func (m *Manager) PartitionKeys(maxAge time.Duration) (map[int32]int64, errors.Error) {
	for {
		if keys, ok := m.keys.snapshot(maxAge); ok {
			return keys, nil
		}

		m.keys.mu.Lock()
		if m.keys.inflight != nil {
			wait := m.keys.inflight
			m.keys.mu.Unlock()
			<-wait
			// Re-check: the refresh may have failed, in which case the
			// next loop iteration becomes the new refresher.
			if keys, ok := m.keys.snapshot(maxAge); ok {
				return keys, nil
			}
			continue
		}
		done := make(chan struct{})
		m.keys.inflight = done
		m.keys.mu.Unlock()

		err := m.refreshPartitionKeys()

		m.keys.mu.Lock()
		m.keys.inflight = nil
		m.keys.mu.Unlock()
		close(done)

		if err != nil {
			return nil, err
		}
	}
}

// refreshPartitionKeys pulls @GetPartitionKeys(INTEGER) on an arbitrary
// connection and replaces the cache.
func (m *Manager) refreshPartitionKeys() errors.Error {
	e := m.anyConn()
	if e == nil {
		return errNoConnection()
	}

	resp, err := m.sysCall(e, "@GetPartitionKeys", "INTEGER")
	if err != nil {
		return err
	}

	t := resp.Table(0)
	if t == nil {
		return errBadResult("@GetPartitionKeys", "key table")
	}

	keys := make(map[int32]int64, t.RowCount())
	for i := 0; i < t.RowCount(); i++ {
		pid, ok := t.Int64At(i, "PARTITION_ID")
		if !ok {
			continue
		}
		key, ok := t.Int64At(i, "PARTITION_KEY")
		if !ok {
			continue
		}
		keys[int32(pid)] = key
	}

	m.keys.store(keys)
	return nil
}
