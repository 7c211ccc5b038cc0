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

package duration_test

import (
	"encoding/json"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abhivijay96/voltdb-client-go/internal/duration"
)

var _ = Describe("Duration parsing", func() {
	It("reads the standard unit forms", func() {
		d, err := duration.Parse("1200ms")
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Time()).To(Equal(1200 * time.Millisecond))

		d, err = duration.Parse("2m30s")
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Time()).To(Equal(2*time.Minute + 30*time.Second))
	})

	It("reads day-prefixed forms", func() {
		d, err := duration.Parse("2d")
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Time()).To(Equal(48 * time.Hour))

		d, err = duration.Parse("1d12h30m")
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Time()).To(Equal(36*time.Hour + 30*time.Minute))
	})

	It("tolerates quotes from lax config writers", func() {
		d, err := duration.Parse(`"10s"`)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Time()).To(Equal(10 * time.Second))
	})

	It("reads raw bytes the way the text decoders do", func() {
		d, err := duration.ParseByte([]byte("90s"))
		Expect(err).ToNot(HaveOccurred())
		Expect(d).To(Equal(duration.Seconds(90)))
	})

	It("rejects garbage and the empty string", func() {
		_, err := duration.Parse("")
		Expect(err).To(HaveOccurred())

		_, err = duration.Parse("banana")
		Expect(err).To(HaveOccurred())

		_, err = duration.Parse("1dbanana")
		Expect(err).To(HaveOccurred())
	})

	It("round-trips String through Parse", func() {
		for _, d := range []duration.Duration{
			duration.Seconds(90),
			duration.Minutes(2),
			duration.Hours(36),
			duration.Days(2),
			duration.Days(1) + duration.Minutes(30),
			duration.ParseDuration(1200 * time.Millisecond),
		} {
			back, err := duration.Parse(d.String())
			Expect(err).ToNot(HaveOccurred())
			Expect(back).To(Equal(d), "round-tripping %s", d.String())
		}
	})

	It("prints day-aware forms", func() {
		Expect(duration.Days(2).String()).To(Equal("2d"))
		Expect(duration.Hours(36).String()).To(Equal("1d12h0m0s"))
		Expect(duration.Seconds(30).String()).To(Equal("30s"))
	})
})

var _ = Describe("Duration encodings", func() {
	type box struct {
		Timeout duration.Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
	}

	It("round-trips through JSON", func() {
		raw, err := json.Marshal(box{Timeout: duration.Minutes(2)})
		Expect(err).ToNot(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring(`"2m0s"`))

		var out box
		Expect(json.Unmarshal(raw, &out)).To(Succeed())
		Expect(out.Timeout).To(Equal(duration.Minutes(2)))
	})

	It("round-trips through YAML", func() {
		raw, err := yaml.Marshal(box{Timeout: duration.Days(1) + duration.Hours(6)})
		Expect(err).ToNot(HaveOccurred())

		var out box
		Expect(yaml.Unmarshal(raw, &out)).To(Succeed())
		Expect(out.Timeout).To(Equal(duration.Hours(30)))
	})

	It("round-trips through TOML", func() {
		raw, err := toml.Marshal(box{Timeout: duration.Seconds(45)})
		Expect(err).ToNot(HaveOccurred())

		var out box
		Expect(toml.Unmarshal(raw, &out)).To(Succeed())
		Expect(out.Timeout).To(Equal(duration.Seconds(45)))
	})

	It("round-trips through CBOR", func() {
		raw, err := cbor.Marshal(duration.Minutes(90))
		Expect(err).ToNot(HaveOccurred())

		var out duration.Duration
		Expect(cbor.Unmarshal(raw, &out)).To(Succeed())
		Expect(out).To(Equal(duration.Minutes(90)))
	})

	It("decodes text for the config loader", func() {
		var d duration.Duration
		Expect(d.UnmarshalText([]byte("1d2h"))).To(Succeed())
		Expect(d.Time()).To(Equal(26 * time.Hour))
	})
})
