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

package statsreport

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome classifies one completed call for the per-procedure counters.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeAbort   Outcome = "abort"
	OutcomeFail    Outcome = "fail"
)

// Route classifies how the router picked a call's connection.
type Route string

const (
	RouteAffinity   Route = "affinity"
	RouteRoundRobin Route = "round_robin"
)

// Stats is the set of collectors one client instance owns. Construct with
// New; every connection and the router share the same instance and label
// their own series.
type Stats struct {
	calls     *prometheus.CounterVec
	roundTrip *prometheus.HistogramVec
	routed    *prometheus.CounterVec
	inFlight  prometheus.Gauge
}

// New builds the collector set. Nothing is registered with any prometheus
// registry here; the application collects via Collectors and registers
// wherever it scrapes from.
func New() *Stats {
	return &Stats{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oltp_client",
			Name:      "calls_total",
			Help:      "Completed procedure calls by connection, procedure and outcome.",
		}, []string{"connection", "procedure", "outcome"}),

		roundTrip: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oltp_client",
			Name:      "round_trip_seconds",
			Help:      "Round-trip latency of completed procedure calls.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"connection", "procedure"}),

		routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oltp_client",
			Name:      "routed_total",
			Help:      "Routing decisions by mechanism and read/write class.",
		}, []string{"route", "class"}),

		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oltp_client",
			Name:      "in_flight_requests",
			Help:      "Requests currently admitted and not yet completed.",
		}),
	}
}

// Observe records one completed call.
func (s *Stats) Observe(connection, procedure string, out Outcome, rtt time.Duration) {
	if s == nil {
		return
	}
	s.calls.WithLabelValues(connection, procedure, string(out)).Inc()
	s.roundTrip.WithLabelValues(connection, procedure).Observe(rtt.Seconds())
}

// Routed records one routing decision. readOnly selects the class label.
func (s *Stats) Routed(route Route, readOnly bool) {
	if s == nil {
		return
	}
	class := "write"
	if readOnly {
		class = "read"
	}
	s.routed.WithLabelValues(string(route), class).Inc()
}

// SetInFlight updates the in-flight gauge to the registry's current size.
func (s *Stats) SetInFlight(n int) {
	if s == nil {
		return
	}
	s.inFlight.Set(float64(n))
}

// Collectors returns every collector for registration by the application.
func (s *Stats) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.calls, s.roundTrip, s.routed, s.inFlight}
}
