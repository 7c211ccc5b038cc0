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

// Package errors is the client runtime's code-classified error type: every
// terminal outcome a component can raise carries a CodeError from that
// component's reserved range (see modules.go), a message, the file:line it
// was raised at, and the chain of lower-level causes that led to it. The
// public surface wraps a component error by adding it as a parent, so a
// caller can walk from "call not sent" down to the codec failure that
// caused it with one HasCode probe.
package errors

import (
	stderr "errors"
)

// Error extends the standard error with the code classification and the
// parent chain the client's terminal outcomes are built from.
type Error interface {
	error

	// GetCode returns this error's own code.
	GetCode() CodeError

	// IsCode reports whether this error's own code is code; parents are
	// not consulted.
	IsCode(code CodeError) bool

	// HasCode reports whether this error or any parent carries code.
	HasCode(code CodeError) bool

	// Add appends every non-nil err to the parent chain.
	Add(parent ...error)

	// HasParent reports whether any parent is attached.
	HasParent() bool

	// GetParent returns the parent chain. With withMainError the receiver
	// itself leads the slice.
	GetParent(withMainError bool) []error

	// StringError returns this error's own message, without parents.
	StringError() string

	// GetTrace returns the "file:line" this error was raised at, or the
	// empty string when the call site could not be resolved.
	GetTrace() string

	// Unwrap exposes the parent chain to the standard errors.Is / As.
	Unwrap() []error
}

// New builds an Error with the given code and message, capturing the
// caller's file:line and attaching any non-nil parents.
func New(code uint16, message string, parent ...error) Error {
	return newError(CodeError(code), message, parent...)
}

// Newf is New with a format string and no parents.
func Newf(code uint16, pattern string, args ...any) Error {
	return newErrorf(CodeError(code), pattern, args...)
}

// Get returns e as an Error when e is (or wraps) one, nil otherwise.
func Get(e error) Error {
	var err Error
	if stderr.As(e, &err) {
		return err
	}
	return nil
}

// Has reports whether e is (or wraps) an Error carrying code, on itself
// or any parent.
func Has(e error, code CodeError) bool {
	if err := Get(e); err != nil {
		return err.HasCode(code)
	}
	return false
}
