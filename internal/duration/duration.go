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

// Package duration is the configuration-facing duration type of the
// client: a time.Duration that parses and prints a day-aware form
// ("1d12h30m") and round-trips through every config encoding the client
// loads (text, JSON, YAML, TOML, CBOR). All public timeout and delay
// options are declared with it; the runtime converts to time.Duration at
// the component boundary via Time.
package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration with day-aware text forms.
type Duration time.Duration

const day = 24 * time.Hour

// Parse reads a duration string. On top of the standard time.ParseDuration
// units, a leading day count is accepted: "2d", "1d12h", "3d45m10s".
// Surrounding quotes (as produced by lax config writers) are tolerated.
func Parse(s string) (Duration, error) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`))
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	var days int64
	if i := strings.IndexByte(s, 'd'); i > 0 {
		if n, err := strconv.ParseInt(s[:i], 10, 64); err == nil {
			days = n
			s = s[i+1:]
		}
	}

	var rest time.Duration
	if s != "" {
		var err error
		if rest, err = time.ParseDuration(s); err != nil {
			return 0, err
		}
	}

	return Duration(time.Duration(days)*day + rest), nil
}

// ParseByte is Parse over a raw byte slice.
func ParseByte(p []byte) (Duration, error) {
	return Parse(string(p))
}

// ParseDuration converts a standard time.Duration.
func ParseDuration(d time.Duration) Duration {
	return Duration(d)
}

// Seconds returns a Duration of i seconds.
func Seconds(i int64) Duration {
	return Duration(time.Duration(i) * time.Second)
}

// Minutes returns a Duration of i minutes.
func Minutes(i int64) Duration {
	return Duration(time.Duration(i) * time.Minute)
}

// Hours returns a Duration of i hours.
func Hours(i int64) Duration {
	return Duration(time.Duration(i) * time.Hour)
}

// Days returns a Duration of i days.
func Days(i int64) Duration {
	return Duration(time.Duration(i) * day)
}

// Time converts back to the standard time.Duration.
func (d Duration) Time() time.Duration {
	return time.Duration(d)
}

// Days returns the whole days this duration spans; negative durations
// report zero days and print in the standard form only.
func (d Duration) Days() int64 {
	if d <= 0 {
		return 0
	}
	return int64(d.Time() / day)
}

// String prints the day-aware form Parse accepts: "2d", "1d12h0m0s", or
// the plain time.Duration form when under one day.
func (d Duration) String() string {
	n := d.Days()
	if n == 0 {
		return d.Time().String()
	}

	rest := d.Time() - time.Duration(n)*day
	if rest == 0 {
		return fmt.Sprintf("%dd", n)
	}
	return fmt.Sprintf("%dd%s", n, rest)
}
