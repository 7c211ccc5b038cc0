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
	"github.com/abhivijay96/voltdb-client-go/internal/errors"
)

const (
	CodeInvalidParamSize errors.CodeError = errors.MinPkgCodec + iota
	CodeMissingEncoder
	CodeBufferTooSmall
	CodeUnsupportedVersion
	CodeTruncatedRecord
	CodeNullProcedureName
	CodeUnsupportedColumnType
)

func errInvalidParamSize() errors.Error {
	return errors.New(CodeInvalidParamSize.Uint16(), "invalid parameter set size: serialized parameter block must be at least 3 bytes")
}

func errMissingEncoder() errors.Error {
	return errors.New(CodeMissingEncoder.Uint16(), "invocation carries deferred parameters but no ParamEncoder was supplied")
}

func errBufferTooSmall(need, have int) errors.Error {
	return errors.Newf(CodeBufferTooSmall.Uint16(), "buffer too small: need %d bytes, have %d", need, have)
}

func errUnsupportedVersion(v byte) errors.Error {
	return errors.Newf(CodeUnsupportedVersion.Uint16(), "unsupported invocation wire version: %d", v)
}

func errTruncatedRecord(want string) errors.Error {
	return errors.Newf(CodeTruncatedRecord.Uint16(), "truncated invocation record while reading %s", want)
}

func errNullProcedureName() errors.Error {
	return errors.New(CodeNullProcedureName.Uint16(), "procedure-name length was -1 (null); not expected on this core")
}

func errUnsupportedColumnType(t byte) errors.Error {
	return errors.Newf(CodeUnsupportedColumnType.Uint16(), "unsupported result-table column type: %d", t)
}
