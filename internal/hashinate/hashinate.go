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

package hashinate

import (
	"encoding/binary"
	"hash/crc32"
)

// MultiPartitionSentinel is the partition id meaning "route to the
// multi-partition coordinator" rather than a single leader.
const MultiPartitionSentinel int32 = -2

// NoAffinitySentinel is the partition id meaning "no affinity could be
// determined" — used when there is neither an explicit partition id nor
// enough procedure/hashinator information to compute one.
const NoAffinitySentinel int32 = -1

// ParamType identifies the wire type of the value being hashed, mirroring
// the handful of types the partitioning contract actually cares about.
type ParamType byte

const (
	ParamTypeTinyInt ParamType = iota
	ParamTypeSmallInt
	ParamTypeInteger
	ParamTypeBigInt
	ParamTypeString
	ParamTypeVarbinary
)

// Hashinator maps a single parameter value to a partition id. Implementations
// are installed wholesale by the topology manager whenever a HASHCONFIG
// update arrives and read through an atomic snapshot
// reference, so Hash must be safe for concurrent use without its own
// locking.
type Hashinator interface {
	// Hash returns the partition id that owns value, interpreted as t.
	Hash(t ParamType, value []byte) (partitionID int32, err error)

	// PartitionCount reports how many partitions this hashinator currently
	// knows about, for diagnostics and the demo CLI.
	PartitionCount() int
}

// crc32Hashinator is a reference Hashinator good enough for tests and a
// server that exposes a fixed partition count without a real HASHCONFIG.
// It is explicitly not the algorithm a production VoltDB-style cluster
// uses — that algorithm ships with the server and is installed at runtime
// from HASHCONFIG — but it satisfies the same contract shape so the rest
// of the router can be exercised end to end.
type crc32Hashinator struct {
	partitions int
}

// NewReference builds a reference Hashinator over partitions partitions.
// partitions must be at least 1.
func NewReference(partitions int) Hashinator {
	if partitions < 1 {
		partitions = 1
	}
	return &crc32Hashinator{partitions: partitions}
}

func (h *crc32Hashinator) PartitionCount() int {
	return h.partitions
}

func (h *crc32Hashinator) Hash(_ ParamType, value []byte) (int32, error) {
	sum := crc32.ChecksumIEEE(value)
	return int32(sum % uint32(h.partitions)), nil
}

// FromConfig installs a Hashinator from the HASHCONFIG varbinary a
// topology statistics result carries: a 4-byte big-endian partition count.
// Richer server-side configs belong to the external hashing collaborator;
// anything shorter than the count prefix is rejected.
func FromConfig(config []byte) (Hashinator, error) {
	if len(config) < 4 {
		return nil, errBadConfig(len(config))
	}

	count := int(binary.BigEndian.Uint32(config))
	if count < 1 {
		return nil, errBadConfig(len(config))
	}
	return NewReference(count), nil
}
