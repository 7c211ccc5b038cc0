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

package codec

import (
	"math"
)

// Handle partitioning of the 64-bit client-handle space. Positive values up
// to MaxUserHandle are ordinary user calls; the two sentinel values above
// that cap identify unsolicited topology and catalog pushes; negative
// values are internal system-procedure calls issued by the client itself.
const (
	// MaxUserHandle is the largest handle the client ever assigns to an
	// application call.
	MaxUserHandle int64 = math.MaxInt64 - 3

	// HandleTopologyUpdate marks an unsolicited topology-change push or the
	// response to the client's own topology statistics call.
	HandleTopologyUpdate int64 = math.MaxInt64 - 1

	// HandleCatalogUpdate marks an unsolicited procedure-catalog push or
	// the response to the client's own system-catalog call.
	HandleCatalogUpdate int64 = math.MaxInt64 - 2
)

// IsUserHandle reports whether h identifies an ordinary application call.
func IsUserHandle(h int64) bool {
	return h >= 0 && h <= MaxUserHandle
}

// IsSystemHandle reports whether h identifies an internal system call
// issued by the client runtime itself.
func IsSystemHandle(h int64) bool {
	return h < 0
}

// IsMagicHandle reports whether h is one of the reserved sentinel values.
func IsMagicHandle(h int64) bool {
	return h == HandleTopologyUpdate || h == HandleCatalogUpdate
}
