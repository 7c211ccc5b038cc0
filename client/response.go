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
	"time"

	"github.com/abhivijay96/voltdb-client-go/internal/codec"
)

// Status is the server-side outcome of one call.
type Status int8

const (
	StatusSuccess            Status = Status(codec.StatusSuccess)
	StatusUserAbort          Status = Status(codec.StatusUserAbort)
	StatusGracefulFailure    Status = Status(codec.StatusGracefulFailure)
	StatusUnexpectedFailure  Status = Status(codec.StatusUnexpectedFailure)
	StatusConnectionLost     Status = Status(codec.StatusConnectionLost)
	StatusServerUnavailable  Status = Status(codec.StatusServerUnavailable)
	StatusConnectionTimeout  Status = Status(codec.StatusConnectionTimeout)
	StatusResponseUnknown    Status = Status(codec.StatusResponseUnknown)
	StatusTxnRestart         Status = Status(codec.StatusTxnRestart)
	StatusOperationalFailure Status = Status(codec.StatusOperationalFailure)
)

func (s Status) String() string {
	return codec.Status(s).String()
}

// Response is one completed call's result.
type Response struct {
	inner *codec.Response
}

func newResponse(r *codec.Response) *Response {
	if r == nil {
		return nil
	}
	return &Response{inner: r}
}

// Handle returns the client handle the response answered.
func (r *Response) Handle() int64 {
	return r.inner.Handle
}

// Status returns the server-side outcome.
func (r *Response) Status() Status {
	return Status(r.inner.Status)
}

// StatusString returns the server's human-readable status detail, often
// empty on success.
func (r *Response) StatusString() string {
	return r.inner.StatusString
}

// RoundTrip returns the client-measured latency from admission to
// completion.
func (r *Response) RoundTrip() time.Duration {
	return time.Duration(r.inner.RoundTripNanos)
}

// TableCount returns how many result sets the response carries.
func (r *Response) TableCount() int {
	return len(r.inner.Results)
}

// Table returns result set i, or nil when out of range.
func (r *Response) Table(i int) *Table {
	t := r.inner.Table(i)
	if t == nil {
		return nil
	}
	return &Table{inner: t}
}

// Table is one result set of a Response.
type Table struct {
	inner *codec.ResultTable
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return t.inner.RowCount()
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.inner.Columns))
	for i := range t.inner.Columns {
		out[i] = t.inner.Columns[i].Name
	}
	return out
}

// Int64 returns the integer value of the named column in row.
func (t *Table) Int64(row int, column string) (int64, bool) {
	return t.inner.Int64At(row, column)
}

// String returns the string value of the named column in row.
func (t *Table) String(row int, column string) (string, bool) {
	return t.inner.StringAt(row, column)
}

// Bytes returns the varbinary value of the named column in row.
func (t *Table) Bytes(row int, column string) ([]byte, bool) {
	return t.inner.BytesAt(row, column)
}

// Row returns the raw values of one row; integer columns come back as
// int64, floats as float64, strings and varbinaries as themselves.
func (t *Table) Row(row int) []any {
	if row < 0 || row >= len(t.inner.Rows) {
		return nil
	}
	out := make([]any, len(t.inner.Rows[row]))
	copy(out, t.inner.Rows[row])
	return out
}
