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

package client

import (
	"github.com/abhivijay96/voltdb-client-go/internal/connect"
	"github.com/abhivijay96/voltdb-client-go/internal/errors"
	"github.com/abhivijay96/voltdb-client-go/internal/registry"
	"github.com/abhivijay96/voltdb-client-go/internal/router"
	"github.com/abhivijay96/voltdb-client-go/internal/schedule"
)

// Application-facing error kinds. Each wraps the lower-level error from
// whichever component raised it, so HasCode can walk down to the
// proximate cause.
const (
	// CodeRequestLimit refuses admission at or above the hard cap.
	CodeRequestLimit errors.CodeError = errors.MinPkgClient + iota

	// CodeNotSent covers local serialization failure and "no connection
	// available": the request never reached the wire.
	CodeNotSent

	// CodeRequestTimeout is the pre-send budget expiry.
	CodeRequestTimeout

	// CodeResponseTimeout is the post-send budget expiry.
	CodeResponseTimeout

	// CodeConnectionLost means the bound connection dropped with the
	// request outstanding.
	CodeConnectionLost

	// CodeProcedureCall is the sync surface's wrapper for a response whose
	// status is not SUCCESS.
	CodeProcedureCall

	// CodeHandlesExhausted means the client assigned its last user handle.
	CodeHandlesExhausted

	// CodeShutdown refuses calls on a client that was shut down.
	CodeShutdown
)

func init() {
	errors.RegisterIdFctMessage(errors.MinPkgClient, func(code errors.CodeError) string {
		switch code {
		case CodeRequestLimit:
			return "request limit exceeded"
		case CodeNotSent:
			return "request not sent"
		case CodeRequestTimeout:
			return "request timed out before send"
		case CodeResponseTimeout:
			return "no response within the call budget"
		case CodeConnectionLost:
			return "connection lost with the request outstanding"
		case CodeProcedureCall:
			return "procedure call returned a non-success status"
		case CodeHandlesExhausted:
			return "client handle space exhausted"
		case CodeShutdown:
			return "client is shut down"
		}
		return errors.NullMessage
	})
}

// wrapTerminal lifts a component-level terminal error into the matching
// public kind. Unrecognized causes pass through untouched.
func wrapTerminal(cause error) error {
	if cause == nil {
		return nil
	}

	e := errors.Get(cause)
	if e == nil {
		return cause
	}

	switch {
	case e.HasCode(registry.CodeRequestLimit):
		return errors.New(CodeRequestLimit.Uint16(), "call refused: request limit exceeded", cause)
	case e.HasCode(router.CodeNoConnections), e.HasCode(connect.CodeNotSent), e.HasCode(connect.CodeQueueClosed):
		return errors.New(CodeNotSent.Uint16(), "call not sent", cause)
	case e.HasCode(connect.CodeRequestTimeout), e.HasCode(connect.CodeInterrupted):
		return errors.New(CodeRequestTimeout.Uint16(), "call timed out before send", cause)
	case e.HasCode(schedule.CodeResponseTimeout):
		return errors.New(CodeResponseTimeout.Uint16(), "call timed out awaiting response", cause)
	case e.HasCode(connect.CodeConnectionLost):
		return errors.New(CodeConnectionLost.Uint16(), "connection lost with call outstanding", cause)
	}
	return cause
}

// IsRequestLimit reports whether err is (or wraps) the hard-cap refusal.
func IsRequestLimit(err error) bool { return errors.Has(err, CodeRequestLimit) }

// IsNotSent reports whether err means the call never reached the wire.
func IsNotSent(err error) bool { return errors.Has(err, CodeNotSent) }

// IsRequestTimeout reports whether err is the pre-send timeout.
func IsRequestTimeout(err error) bool { return errors.Has(err, CodeRequestTimeout) }

// IsResponseTimeout reports whether err is the post-send timeout.
func IsResponseTimeout(err error) bool { return errors.Has(err, CodeResponseTimeout) }

// IsTimeout reports whether err is either timeout kind.
func IsTimeout(err error) bool { return IsRequestTimeout(err) || IsResponseTimeout(err) }

// IsConnectionLost reports whether err is the connection-lost outcome.
func IsConnectionLost(err error) bool { return errors.Has(err, CodeConnectionLost) }

// IsProcedureCallError reports whether err wraps a non-SUCCESS response
// surfaced by the sync façade.
func IsProcedureCallError(err error) bool { return errors.Has(err, CodeProcedureCall) }

func errShutdown() errors.Error {
	return errors.New(CodeShutdown.Uint16(), "client is shut down")
}

func errHandlesExhausted() errors.Error {
	return errors.New(CodeHandlesExhausted.Uint16(), "client handle space exhausted")
}

func errProcedureCall(procedure, status, detail string) errors.Error {
	if detail != "" {
		return errors.Newf(CodeProcedureCall.Uint16(), "procedure %s failed with status %s: %s", procedure, status, detail)
	}
	return errors.Newf(CodeProcedureCall.Uint16(), "procedure %s failed with status %s", procedure, status)
}
