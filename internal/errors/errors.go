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
	"fmt"
	"runtime"
	"strings"
	"sync"
)

// ers is the one concrete Error of this package. The parent chain is
// guarded by its own mutex: a terminal outcome is built on one goroutine
// but may gain causes (Add) on the path that wraps it for the application.
type ers struct {
	code    CodeError
	message string
	trace   string

	mu      sync.Mutex
	parents []error
}

// callerSkip is how many frames separate runtime.Caller from the package
// constructor the component invoked (newError <- New/Newf/Error/IfError).
const callerSkip = 3

func newError(code CodeError, message string, parent ...error) *ers {
	e := &ers{
		code:    code,
		message: message,
		trace:   caller(),
	}
	e.Add(parent...)
	return e
}

func newErrorf(code CodeError, pattern string, args ...any) *ers {
	return &ers{
		code:    code,
		message: fmt.Sprintf(pattern, args...),
		trace:   caller(),
	}
}

// caller resolves the component call site that raised the error, trimmed
// to the last two path elements the way the logs print file references.
func caller() string {
	_, file, line, ok := runtime.Caller(callerSkip)
	if !ok {
		return ""
	}

	parts := strings.Split(file, "/")
	if len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func (e *ers) GetCode() CodeError {
	return e.code
}

func (e *ers) IsCode(code CodeError) bool {
	return e.code == code
}

func (e *ers) HasCode(code CodeError) bool {
	if e.code == code {
		return true
	}

	for _, p := range e.snapshot() {
		if sub := Get(p); sub != nil && sub.HasCode(code) {
			return true
		}
	}
	return false
}

func (e *ers) Add(parent ...error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range parent {
		if p != nil {
			e.parents = append(e.parents, p)
		}
	}
}

func (e *ers) HasParent() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.parents) > 0
}

func (e *ers) GetParent(withMainError bool) []error {
	parents := e.snapshot()

	out := make([]error, 0, len(parents)+1)
	if withMainError {
		out = append(out, e)
	}
	return append(out, parents...)
}

func (e *ers) StringError() string {
	return e.message
}

func (e *ers) GetTrace() string {
	return e.trace
}

// Error renders the message followed by every parent's, innermost last,
// joined the way the sync façade surfaces one combined line.
func (e *ers) Error() string {
	parts := []string{e.message}
	for _, p := range e.snapshot() {
		parts = append(parts, p.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ers) Unwrap() []error {
	return e.snapshot()
}

// Is matches another error of this package by code and message, making
// stderr.Is usable on wrapped terminal outcomes.
func (e *ers) Is(err error) bool {
	if o, ok := err.(*ers); ok {
		return o.code == e.code && o.message == e.message
	}
	return false
}

func (e *ers) snapshot() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]error(nil), e.parents...)
}
