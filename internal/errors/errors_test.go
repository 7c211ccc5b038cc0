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

package errors_test

import (
	stderr "errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abhivijay96/voltdb-client-go/internal/errors"
)

// Codes picked from the free range so they collide with no component.
const (
	testCodeA errors.CodeError = errors.MinAvailable + 10
	testCodeB errors.CodeError = errors.MinAvailable + 11
)

var _ = Describe("Code-classified errors", func() {
	Describe("construction", func() {
		It("carries its code and message", func() {
			e := errors.New(testCodeA.Uint16(), "boom")
			Expect(e.GetCode()).To(Equal(testCodeA))
			Expect(e.IsCode(testCodeA)).To(BeTrue())
			Expect(e.IsCode(testCodeB)).To(BeFalse())
			Expect(e.StringError()).To(Equal("boom"))
		})

		It("formats through Newf", func() {
			e := errors.Newf(testCodeA.Uint16(), "boom %d on %s", 7, "n0")
			Expect(e.StringError()).To(Equal("boom 7 on n0"))
		})

		It("records the raising call site", func() {
			e := errors.New(testCodeA.Uint16(), "boom")
			Expect(e.GetTrace()).To(ContainSubstring("errors_test.go:"))
		})
	})

	Describe("parent chains", func() {
		It("wraps causes and finds their codes", func() {
			cause := errors.New(testCodeB.Uint16(), "low-level")
			e := errors.New(testCodeA.Uint16(), "terminal", cause)

			Expect(e.HasParent()).To(BeTrue())
			Expect(e.HasCode(testCodeA)).To(BeTrue())
			Expect(e.HasCode(testCodeB)).To(BeTrue())
			Expect(e.IsCode(testCodeB)).To(BeFalse())
		})

		It("ignores nil parents", func() {
			e := errors.New(testCodeA.Uint16(), "terminal", nil, nil)
			Expect(e.HasParent()).To(BeFalse())
		})

		It("grows via Add and renders every layer", func() {
			e := errors.New(testCodeA.Uint16(), "terminal")
			e.Add(fmt.Errorf("socket reset"))

			Expect(e.Error()).To(Equal("terminal: socket reset"))
			Expect(e.GetParent(true)).To(HaveLen(2))
			Expect(e.GetParent(false)).To(HaveLen(1))
		})

		It("cooperates with the standard errors.As and Is", func() {
			inner := errors.New(testCodeB.Uint16(), "cause")
			wrapped := fmt.Errorf("outer: %w", inner)

			Expect(errors.Get(wrapped)).ToNot(BeNil())
			Expect(errors.Has(wrapped, testCodeB)).To(BeTrue())
			Expect(stderr.Is(wrapped, inner)).To(BeTrue())
		})

		It("returns nothing for plain errors", func() {
			Expect(errors.Get(fmt.Errorf("plain"))).To(BeNil())
			Expect(errors.Has(fmt.Errorf("plain"), testCodeA)).To(BeFalse())
			Expect(errors.Has(nil, testCodeA)).To(BeFalse())
		})
	})

	Describe("message registry", func() {
		It("resolves registered ranges and falls back otherwise", func() {
			errors.RegisterIdFctMessage(testCodeA, func(code errors.CodeError) string {
				if code == testCodeA {
					return "known failure"
				}
				return errors.NullMessage
			})

			Expect(testCodeA.Message()).To(Equal("known failure"))
			Expect((testCodeA + 50).Message()).To(Equal(errors.UnknownMessage))
		})
	})

	Describe("IfError", func() {
		It("is nil for all-nil input", func() {
			Expect(errors.UnknownError.IfError(nil, nil)).To(BeNil())
		})

		It("wraps only the non-nil errors", func() {
			e := errors.UnknownError.IfError(nil, fmt.Errorf("one"), nil, fmt.Errorf("two"))
			Expect(e).ToNot(BeNil())
			Expect(e.GetParent(false)).To(HaveLen(2))
		})
	})
})
