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

package duration

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Every encoding travels as the String form and parses back through
// Parse; one assign helper keeps the unmarshalers symmetric.

func (d *Duration) assign(s string) error {
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler; it is also what lets
// viper's text-unmarshaller hook decode config values into Duration.
func (d *Duration) UnmarshalText(p []byte) error {
	return d.assign(string(p))
}

// MarshalJSON encodes the duration as a JSON string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a JSON string in any form Parse reads.
func (d *Duration) UnmarshalJSON(p []byte) error {
	var s string
	if err := json.Unmarshal(p, &s); err != nil {
		return err
	}
	return d.assign(s)
}

// MarshalYAML encodes the duration as a YAML scalar.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML accepts a YAML scalar in any form Parse reads.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.assign(value.Value)
}

// MarshalTOML encodes the duration as a TOML string.
func (d Duration) MarshalTOML() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalTOML accepts whatever scalar the TOML decoder hands over.
func (d *Duration) UnmarshalTOML(i interface{}) error {
	switch v := i.(type) {
	case string:
		return d.assign(v)
	case []byte:
		return d.assign(string(v))
	case int64:
		*d = Seconds(v)
		return nil
	default:
		return fmt.Errorf("cannot decode %T as a duration", i)
	}
}

// MarshalCBOR encodes the duration as a CBOR string.
func (d Duration) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(d.String())
}

// UnmarshalCBOR accepts a CBOR string in any form Parse reads.
func (d *Duration) UnmarshalCBOR(p []byte) error {
	var s string
	if err := cbor.Unmarshal(p, &s); err != nil {
		return err
	}
	return d.assign(s)
}
