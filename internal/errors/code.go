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

package errors

import (
	"sort"
	"strconv"
	"sync"
)

// CodeError classifies an error inside one component's reserved range.
// Zero is the unknown / unclassified code.
type CodeError uint16

const (
	// UnknownError is the fallback code for errors raised without a
	// classification, and the code the pool's combined error carries.
	UnknownError CodeError = 0

	// UnknownMessage is what Message returns for an unregistered code.
	UnknownMessage = "unknown error"

	// NullMessage is the empty message a registry function returns for a
	// code outside its range.
	NullMessage = ""
)

// Message resolves one code of a registered range to its human-readable
// text.
type Message func(code CodeError) string

var (
	msgMu     sync.RWMutex
	msgRanges []CodeError
	msgFns    = map[CodeError]Message{}
)

// RegisterIdFctMessage registers the message function for every code at or
// above minCode, up to the next registered range. Each internal package
// registers its own range once, from an init function.
func RegisterIdFctMessage(minCode CodeError, fct Message) {
	msgMu.Lock()
	defer msgMu.Unlock()

	if _, ok := msgFns[minCode]; !ok {
		msgRanges = append(msgRanges, minCode)
		sort.Slice(msgRanges, func(i, j int) bool { return msgRanges[i] < msgRanges[j] })
	}
	msgFns[minCode] = fct
}

// rangeFor returns the registered range floor owning code.
func rangeFor(code CodeError) (CodeError, bool) {
	msgMu.RLock()
	defer msgMu.RUnlock()

	found := false
	var floor CodeError
	for _, min := range msgRanges {
		if min > code {
			break
		}
		floor, found = min, true
	}
	return floor, found
}

// Uint16 returns the code's raw value.
func (c CodeError) Uint16() uint16 {
	return uint16(c)
}

// Int returns the code's raw value as an int.
func (c CodeError) Int() int {
	return int(c)
}

// String returns the code's decimal form.
func (c CodeError) String() string {
	return strconv.Itoa(int(c))
}

// Message returns the registered text for this code, or UnknownMessage
// when no range claims it.
func (c CodeError) Message() string {
	if floor, ok := rangeFor(c); ok {
		msgMu.RLock()
		fct := msgFns[floor]
		msgMu.RUnlock()

		if m := fct(c); m != NullMessage {
			return m
		}
	}
	return UnknownMessage
}

// Error builds an Error carrying this code, its registered message, and
// any non-nil parents.
func (c CodeError) Error(parent ...error) Error {
	return newError(c, c.Message(), parent...)
}

// IfError returns nil when every given error is nil, otherwise an Error
// with this code wrapping the non-nil ones. It is how the error pool
// collapses its collection into one value.
func (c CodeError) IfError(e ...error) Error {
	keep := make([]error, 0, len(e))
	for _, err := range e {
		if err != nil {
			keep = append(keep, err)
		}
	}
	if len(keep) == 0 {
		return nil
	}
	return newError(c, c.Message(), keep...)
}
