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

package ratelimit_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abhivijay96/voltdb-client-go/internal/ratelimit"
)

var _ = Describe("Send rate limiter", func() {
	It("treats a non-positive rate as unlimited", func() {
		l := ratelimit.New(0)
		Expect(l.Limited()).To(BeFalse())

		start := time.Now()
		for i := 0; i < 100; i++ {
			Expect(l.Wait(context.Background())).To(Succeed())
		}
		Expect(time.Since(start)).To(BeNumerically("<", 50*time.Millisecond))
	})

	It("treats a nil limiter as unlimited", func() {
		var l *ratelimit.Limiter
		Expect(l.Limited()).To(BeFalse())
		Expect(l.Wait(context.Background())).To(Succeed())
	})

	It("paces waits at the configured rate", func() {
		l := ratelimit.New(50)
		Expect(l.Limited()).To(BeTrue())

		start := time.Now()
		for i := 0; i < 5; i++ {
			Expect(l.Wait(context.Background())).To(Succeed())
		}
		// Burst of one: four of the five waits pay the 20ms pace.
		Expect(time.Since(start)).To(BeNumerically(">=", 60*time.Millisecond))
	})

	It("gives up when the context dies first", func() {
		l := ratelimit.New(1)
		Expect(l.Wait(context.Background())).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(l.Wait(ctx)).ToNot(Succeed())
	})
})
