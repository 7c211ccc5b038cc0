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

// oltpctl is a small operational companion for the client library: issue
// one-off procedure calls, run a concurrent benchmark against a cluster,
// and watch the send-permit / backpressure machinery at work.
package main

import (
	"os"
	"strconv"
	"time"

	"github.com/abhivijay96/voltdb-client-go/client"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flagServers []string
	flagConfig  string
	flagTimeout time.Duration
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:   "oltpctl",
		Short: "operational companion for the OLTP client runtime",
	}

	root.PersistentFlags().StringSliceVarP(&flagServers, "servers", "s", []string{"127.0.0.1:21212"}, "cluster node addresses (host:port)")
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "client config file (yaml/json)")
	root.PersistentFlags().DurationVarP(&flagTimeout, "timeout", "t", 0, "per-call timeout override")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newCallCommand())
	root.AddCommand(newBenchCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildClient assembles a connected client from the persistent flags.
func buildClient() (*client.Client, error) {
	cfg := client.DefaultConfig()

	if flagConfig != "" {
		v := viper.New()
		v.SetConfigFile(flagConfig)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		var err error
		cfg, err = client.FromViper(v)
		if err != nil {
			return nil, err
		}
	}

	log := logrus.New()
	log.SetOutput(colorable.NewColorableStderr())
	if flagVerbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	cfg.Logger = log

	if flagTimeout > 0 {
		cfg.WithProcedureCallTimeout(int64(flagTimeout), 1)
	}

	cl, err := client.New(cfg)
	if err != nil {
		return nil, err
	}

	if err := cl.Connect(flagServers...); err != nil {
		return nil, err
	}
	return cl, nil
}

// parseParams turns positional CLI arguments into typed call parameters:
// integers become int64, floats float64, everything else stays a string.
func parseParams(args []string) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		if i, err := strconv.ParseInt(a, 10, 64); err == nil {
			out = append(out, i)
			continue
		}
		if f, err := strconv.ParseFloat(a, 64); err == nil {
			out = append(out, f)
			continue
		}
		out = append(out, a)
	}
	return out
}
