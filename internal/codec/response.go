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
	"encoding/binary"
	"math"
)

// Status is the server-side outcome of one stored-procedure call, carried
// in the response header. Positive success, negative failure classes.
type Status int8

const (
	StatusSuccess            Status = 1
	StatusUserAbort          Status = -1
	StatusGracefulFailure    Status = -2
	StatusUnexpectedFailure  Status = -3
	StatusConnectionLost     Status = -4
	StatusServerUnavailable  Status = -5
	StatusConnectionTimeout  Status = -6
	StatusResponseUnknown    Status = -7
	StatusTxnRestart         Status = -8
	StatusOperationalFailure Status = -9
)

// IsAbort reports whether s is the deliberate-abort class, as opposed to an
// unexpected failure.
func (s Status) IsAbort() bool {
	return s == StatusUserAbort || s == StatusGracefulFailure
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusUserAbort:
		return "USER_ABORT"
	case StatusGracefulFailure:
		return "GRACEFUL_FAILURE"
	case StatusUnexpectedFailure:
		return "UNEXPECTED_FAILURE"
	case StatusConnectionLost:
		return "CONNECTION_LOST"
	case StatusServerUnavailable:
		return "SERVER_UNAVAILABLE"
	case StatusConnectionTimeout:
		return "CONNECTION_TIMEOUT"
	case StatusResponseUnknown:
		return "RESPONSE_UNKNOWN"
	case StatusTxnRestart:
		return "TXN_RESTART"
	case StatusOperationalFailure:
		return "OPERATIONAL_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// ColumnType tags one column of a result table.
type ColumnType byte

const (
	ColTinyInt   ColumnType = 3
	ColSmallInt  ColumnType = 4
	ColInteger   ColumnType = 5
	ColBigInt    ColumnType = 6
	ColFloat     ColumnType = 8
	ColString    ColumnType = 9
	ColVarbinary ColumnType = 25
)

// Column is one typed, named column of a ResultTable.
type Column struct {
	Name string
	Type ColumnType
}

// ResultTable is one decoded result set of a Response. Rows hold values as
// int64 / float64 / string / []byte / nil according to the column type.
type ResultTable struct {
	Columns []Column
	Rows    [][]any
}

// ColumnIndex returns the index of the named column, or -1 when absent.
func (t *ResultTable) ColumnIndex(name string) int {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

// Int64At returns the integer value of the named column in row. The second
// return is false when the column is absent, the row is out of range, or
// the value is not an integer type.
func (t *ResultTable) Int64At(row int, name string) (int64, bool) {
	c := t.ColumnIndex(name)
	if c < 0 || row < 0 || row >= len(t.Rows) {
		return 0, false
	}
	v, ok := t.Rows[row][c].(int64)
	return v, ok
}

// StringAt returns the string value of the named column in row.
func (t *ResultTable) StringAt(row int, name string) (string, bool) {
	c := t.ColumnIndex(name)
	if c < 0 || row < 0 || row >= len(t.Rows) {
		return "", false
	}
	v, ok := t.Rows[row][c].(string)
	return v, ok
}

// BytesAt returns the varbinary value of the named column in row.
func (t *ResultTable) BytesAt(row int, name string) ([]byte, bool) {
	c := t.ColumnIndex(name)
	if c < 0 || row < 0 || row >= len(t.Rows) {
		return nil, false
	}
	v, ok := t.Rows[row][c].([]byte)
	return v, ok
}

// RowCount returns how many rows the table carries.
func (t *ResultTable) RowCount() int {
	return len(t.Rows)
}

// Response is one decoded stored-procedure response.
type Response struct {
	Version          byte
	Handle           int64
	Status           Status
	StatusString     string
	ClusterRTTMillis uint32
	Results          []*ResultTable

	// RoundTripNanos is stamped by the dispatcher from the pending record's
	// start time; it never travels on the wire.
	RoundTripNanos int64
}

// Table returns result set i, or nil when out of range.
func (r *Response) Table(i int) *ResultTable {
	if i < 0 || i >= len(r.Results) {
		return nil
	}
	return r.Results[i]
}

// MarshalResponse encodes r to the response wire record (without the 4-byte
// length prefix). Used by tests and the in-process test server; the
// production client only ever decodes.
func MarshalResponse(r *Response) []byte {
	buf := make([]byte, 0, 64)

	v := r.Version
	if v == 0 {
		v = CurrentVersion
	}
	buf = append(buf, v)

	var h [8]byte
	binary.BigEndian.PutUint64(h[:], uint64(r.Handle))
	buf = append(buf, h[:]...)

	buf = append(buf, byte(r.Status))
	buf = appendString(buf, r.StatusString)

	var rtt [4]byte
	binary.BigEndian.PutUint32(rtt[:], r.ClusterRTTMillis)
	buf = append(buf, rtt[:]...)

	var tc [2]byte
	binary.BigEndian.PutUint16(tc[:], uint16(len(r.Results)))
	buf = append(buf, tc[:]...)

	for _, t := range r.Results {
		buf = appendTable(buf, t)
	}
	return buf
}

func appendString(buf []byte, s string) []byte {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(s)))
	buf = append(buf, l[:]...)
	return append(buf, s...)
}

func appendBytes(buf, b []byte) []byte {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	buf = append(buf, l[:]...)
	return append(buf, b...)
}

func appendTable(buf []byte, t *ResultTable) []byte {
	var cc [2]byte
	binary.BigEndian.PutUint16(cc[:], uint16(len(t.Columns)))
	buf = append(buf, cc[:]...)

	for _, c := range t.Columns {
		buf = append(buf, byte(c.Type))
		buf = appendString(buf, c.Name)
	}

	var rc [4]byte
	binary.BigEndian.PutUint32(rc[:], uint32(len(t.Rows)))
	buf = append(buf, rc[:]...)

	for _, row := range t.Rows {
		for i, c := range t.Columns {
			buf = appendValue(buf, c.Type, row[i])
		}
	}
	return buf
}

func appendValue(buf []byte, ct ColumnType, v any) []byte {
	switch ct {
	case ColTinyInt:
		return append(buf, byte(int8(v.(int64))))
	case ColSmallInt:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(int16(v.(int64))))
		return append(buf, b[:]...)
	case ColInteger:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(int32(v.(int64))))
		return append(buf, b[:]...)
	case ColBigInt:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.(int64)))
		return append(buf, b[:]...)
	case ColFloat:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v.(float64)))
		return append(buf, b[:]...)
	case ColString:
		return appendString(buf, v.(string))
	case ColVarbinary:
		return appendBytes(buf, v.([]byte))
	}
	return buf
}

// ReadResponse decodes one response wire record (without the 4-byte length
// prefix).
func ReadResponse(buf []byte) (*Response, error) {
	off := 0
	if len(buf) < 1+8+1 {
		return nil, errTruncatedRecord("response header")
	}

	r := &Response{Version: buf[off]}
	off++

	r.Handle = int64(binary.BigEndian.Uint64(buf[off:]))
	off += 8

	r.Status = Status(int8(buf[off]))
	off++

	s, n, err := readString(buf, off)
	if err != nil {
		return nil, err
	}
	r.StatusString = s
	off = n

	if len(buf) < off+4+2 {
		return nil, errTruncatedRecord("response round-trip and table count")
	}
	r.ClusterRTTMillis = binary.BigEndian.Uint32(buf[off:])
	off += 4

	tables := int(binary.BigEndian.Uint16(buf[off:]))
	off += 2

	for i := 0; i < tables; i++ {
		t, n, err := readTable(buf, off)
		if err != nil {
			return nil, err
		}
		r.Results = append(r.Results, t)
		off = n
	}
	return r, nil
}

func readString(buf []byte, off int) (string, int, error) {
	if len(buf) < off+4 {
		return "", 0, errTruncatedRecord("string length")
	}
	l := int32(binary.BigEndian.Uint32(buf[off:]))
	off += 4
	if l == -1 {
		return "", off, nil
	}
	if l < 0 || len(buf) < off+int(l) {
		return "", 0, errTruncatedRecord("string bytes")
	}
	return string(buf[off : off+int(l)]), off + int(l), nil
}

func readBytes(buf []byte, off int) ([]byte, int, error) {
	if len(buf) < off+4 {
		return nil, 0, errTruncatedRecord("varbinary length")
	}
	l := int32(binary.BigEndian.Uint32(buf[off:]))
	off += 4
	if l == -1 {
		return nil, off, nil
	}
	if l < 0 || len(buf) < off+int(l) {
		return nil, 0, errTruncatedRecord("varbinary bytes")
	}
	out := make([]byte, l)
	copy(out, buf[off:])
	return out, off + int(l), nil
}

func readTable(buf []byte, off int) (*ResultTable, int, error) {
	if len(buf) < off+2 {
		return nil, 0, errTruncatedRecord("column count")
	}
	cols := int(binary.BigEndian.Uint16(buf[off:]))
	off += 2

	t := &ResultTable{Columns: make([]Column, 0, cols)}
	for i := 0; i < cols; i++ {
		if len(buf) < off+1 {
			return nil, 0, errTruncatedRecord("column type")
		}
		ct := ColumnType(buf[off])
		off++

		name, n, err := readString(buf, off)
		if err != nil {
			return nil, 0, err
		}
		off = n
		t.Columns = append(t.Columns, Column{Name: name, Type: ct})
	}

	if len(buf) < off+4 {
		return nil, 0, errTruncatedRecord("row count")
	}
	rows := int(binary.BigEndian.Uint32(buf[off:]))
	off += 4

	for i := 0; i < rows; i++ {
		row := make([]any, len(t.Columns))
		for c := range t.Columns {
			v, n, err := readValue(buf, off, t.Columns[c].Type)
			if err != nil {
				return nil, 0, err
			}
			row[c] = v
			off = n
		}
		t.Rows = append(t.Rows, row)
	}
	return t, off, nil
}

func readValue(buf []byte, off int, ct ColumnType) (any, int, error) {
	switch ct {
	case ColTinyInt:
		if len(buf) < off+1 {
			return nil, 0, errTruncatedRecord("tinyint value")
		}
		return int64(int8(buf[off])), off + 1, nil
	case ColSmallInt:
		if len(buf) < off+2 {
			return nil, 0, errTruncatedRecord("smallint value")
		}
		return int64(int16(binary.BigEndian.Uint16(buf[off:]))), off + 2, nil
	case ColInteger:
		if len(buf) < off+4 {
			return nil, 0, errTruncatedRecord("integer value")
		}
		return int64(int32(binary.BigEndian.Uint32(buf[off:]))), off + 4, nil
	case ColBigInt:
		if len(buf) < off+8 {
			return nil, 0, errTruncatedRecord("bigint value")
		}
		return int64(binary.BigEndian.Uint64(buf[off:])), off + 8, nil
	case ColFloat:
		if len(buf) < off+8 {
			return nil, 0, errTruncatedRecord("float value")
		}
		return math.Float64frombits(binary.BigEndian.Uint64(buf[off:])), off + 8, nil
	case ColString:
		return readStringAny(buf, off)
	case ColVarbinary:
		return readBytesAny(buf, off)
	}
	return nil, 0, errUnsupportedColumnType(byte(ct))
}

func readStringAny(buf []byte, off int) (any, int, error) {
	s, n, err := readString(buf, off)
	return s, n, err
}

func readBytesAny(buf []byte, off int) (any, int, error) {
	b, n, err := readBytes(buf, off)
	return b, n, err
}
