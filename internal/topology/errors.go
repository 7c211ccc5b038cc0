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
	"github.com/abhivijay96/voltdb-client-go/internal/errors"
)

const (
	// CodeClusterMismatch rejects a connection whose handshake identity
	// differs from the cluster this client first connected to.
	CodeClusterMismatch errors.CodeError = errors.MinPkgTopology + iota

	// CodeSysCallFailed wraps a failed internal system call.
	CodeSysCallFailed

	// CodeSysCallBadStatus marks a system call whose response was not
	// SUCCESS.
	CodeSysCallBadStatus

	// CodeNoConnection means a task found no live connection to run on.
	CodeNoConnection

	// CodeBadResult marks a system-call result set missing the expected
	// shape.
	CodeBadResult

	// CodeShutdown refuses work on a manager that was shut down.
	CodeShutdown
)

func errClusterMismatch(target string) errors.Error {
	return errors.Newf(CodeClusterMismatch.Uint16(), "connection to %s belongs to a different cluster", target)
}

func errSysCallFailed(proc string, cause error) errors.Error {
	e := errors.Newf(CodeSysCallFailed.Uint16(), "system call %s failed", proc)
	if cause != nil {
		e.Add(cause)
	}
	return e
}

func errSysCallBadStatus(proc, status string) errors.Error {
	return errors.Newf(CodeSysCallBadStatus.Uint16(), "system call %s returned %s", proc, status)
}

func errNoConnection() errors.Error {
	return errors.New(CodeNoConnection.Uint16(), "no live connection for background task")
}

func errBadResult(proc, what string) errors.Error {
	return errors.Newf(CodeBadResult.Uint16(), "system call %s: malformed result, missing %s", proc, what)
}

func errShutdown() errors.Error {
	return errors.New(CodeShutdown.Uint16(), "topology manager is shut down")
}
