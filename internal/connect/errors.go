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
	"github.com/abhivijay96/voltdb-client-go/internal/errors"
)

const (
	// CodeDialFailed wraps the socket-level error of a failed connect.
	CodeDialFailed errors.CodeError = errors.MinPkgConnect + iota

	// CodeNotSent is the local serialization-failure outcome: the request
	// never reached the wire.
	CodeNotSent

	// CodeRequestTimeout is the pre-send timeout: the call's budget ran out
	// while waiting for a send permit or for network clearance.
	CodeRequestTimeout

	// CodeConnectionLost is the terminal outcome of every request bound to
	// a connection that tore down before its response arrived.
	CodeConnectionLost

	// CodeInterrupted is the shutdown outcome for the request the send
	// worker held when it was told to stop.
	CodeInterrupted

	// CodeQueueClosed means a request was handed to an endpoint whose
	// queue had already shut.
	CodeQueueClosed
)

func errDialFailed(target string, cause error) errors.Error {
	e := errors.Newf(CodeDialFailed.Uint16(), "cannot connect to %s", target)
	if cause != nil {
		e.Add(cause)
	}
	return e
}

func errNotSent(cause error) errors.Error {
	e := errors.New(CodeNotSent.Uint16(), "request not sent: serialization failed")
	if cause != nil {
		e.Add(cause)
	}
	return e
}

func errRequestTimeout(stage string) errors.Error {
	return errors.Newf(CodeRequestTimeout.Uint16(), "request timed out before send while waiting for %s", stage)
}

func errConnectionLost(target string) errors.Error {
	return errors.Newf(CodeConnectionLost.Uint16(), "connection to %s lost with the request outstanding", target)
}

func errInterrupted() errors.Error {
	return errors.New(CodeInterrupted.Uint16(), "send worker interrupted before the request was written")
}

func errQueueClosed(target string) errors.Error {
	return errors.Newf(CodeQueueClosed.Uint16(), "connection to %s is shutting down; request not enqueued", target)
}
