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

package permit

import (
	"github.com/abhivijay96/voltdb-client-go/internal/errors"
)

const (
	CodeLimitOutOfRange errors.CodeError = errors.MinPkgPermit + iota
	CodeShrinkOverCommit
)

func errLimitOutOfRange(limit int) errors.Error {
	return errors.Newf(CodeLimitOutOfRange.Uint16(), "semaphore limit out of range: %d", limit)
}

func errShrinkOverCommit(cur, want, drained int) errors.Error {
	return errors.Newf(CodeShrinkOverCommit.Uint16(),
		"cannot shrink semaphore from %d to %d: only %d free permits to reclaim", cur, want, drained)
}
