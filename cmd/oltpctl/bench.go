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

package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abhivijay96/voltdb-client-go/client"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

func newBenchCommand() *cobra.Command {
	var (
		count   int
		workers int
	)

	cmd := &cobra.Command{
		Use:   "bench <procedure> [param...]",
		Short: "issue many concurrent calls and report outcomes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := buildClient()
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				_ = cl.Shutdown(ctx)
				cancel()
			}()

			params := parseParams(args[1:])

			progress := mpb.New(mpb.WithWidth(48))
			bar := progress.AddBar(int64(count),
				mpb.PrependDecorators(
					decor.Name("calls "),
					decor.CountersNoUnit("%d / %d"),
				),
				mpb.AppendDecorators(
					decor.Percentage(),
					decor.Name("  "),
					decor.AverageSpeed(0, "% .0f/s"),
				),
			)

			var okCount, failCount atomic.Int64
			var wg sync.WaitGroup
			sem := make(chan struct{}, workers)

			start := time.Now()
			for i := 0; i < count; i++ {
				sem <- struct{}{}
				wg.Add(1)

				call := cl.Call(args[0], params...)
				go func() {
					defer wg.Done()
					defer func() { <-sem }()

					resp, err := call.Get(cmd.Context())
					if err != nil || resp.Status() != client.StatusSuccess {
						failCount.Add(1)
					} else {
						okCount.Add(1)
					}
					bar.Increment()
				}()
			}

			wg.Wait()
			progress.Wait()
			elapsed := time.Since(start)

			color.Green("ok   %d", okCount.Load())
			if failCount.Load() > 0 {
				color.Red("fail %d", failCount.Load())
			}
			color.White("%.0f calls/s over %s", float64(count)/elapsed.Seconds(), elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1000, "total calls to issue")
	cmd.Flags().IntVarP(&workers, "parallel", "p", 64, "max calls in flight from the CLI side")
	return cmd
}
