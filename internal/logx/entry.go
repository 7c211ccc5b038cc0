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

package logx

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Fields are free-form structured attributes attached to an Entry.
type Fields map[string]interface{}

// Source is the function signature every component receives to obtain the
// logger configured by the application, so the client never assumes a
// global logger exists.
type Source func() *logrus.Logger

// Entry is a single structured log line under construction.
type Entry struct {
	src     Source
	time    time.Time
	level   logrus.Level
	message string
	fields  Fields
	errs    []error
}

// New starts a new Entry bound to the logger returned by src.
// A nil src falls back to logrus.StandardLogger().
func New(src Source) *Entry {
	if src == nil {
		src = logrus.StandardLogger
	}

	return &Entry{
		src:    src,
		time:   time.Now(),
		level:  logrus.InfoLevel,
		fields: make(Fields),
	}
}

func (e *Entry) Level(l logrus.Level) *Entry {
	e.level = l
	return e
}

func (e *Entry) Message(msg string) *Entry {
	e.message = msg
	return e
}

func (e *Entry) Field(key string, val interface{}) *Entry {
	if e.fields == nil {
		e.fields = make(Fields)
	}
	e.fields[key] = val
	return e
}

func (e *Entry) WithFields(f Fields) *Entry {
	for k, v := range f {
		e.Field(k, v)
	}
	return e
}

func (e *Entry) Error(errs ...error) *Entry {
	for _, err := range errs {
		if err != nil {
			e.errs = append(e.errs, err)
		}
	}
	return e
}

// Log emits the entry through the underlying logrus logger. Safe to call
// from any goroutine; never blocks on anything beyond logrus' own mutex.
func (e *Entry) Log() {
	log := e.src()
	if log == nil {
		return
	}

	fields := logrus.Fields{}
	for k, v := range e.fields {
		fields[k] = v
	}

	if len(e.errs) == 1 {
		fields[FieldError] = e.errs[0].Error()
	} else if len(e.errs) > 1 {
		msgs := make([]string, 0, len(e.errs))
		for _, err := range e.errs {
			msgs = append(msgs, err.Error())
		}
		fields[FieldError] = msgs
	}

	log.WithTime(e.time).WithFields(fields).Log(e.level, e.message)
}

const (
	FieldError      = "error"
	FieldConnection = "connection"
	FieldHandle     = "handle"
	FieldProcedure  = "procedure"
	FieldPartition  = "partition"
	FieldHost       = "host"
)
