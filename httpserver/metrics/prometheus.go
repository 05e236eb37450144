/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector mirrors a Metrics aggregate's counters into Prometheus
// counters, for hosts that want a /metrics endpoint. It is
// additive: nothing in the request path depends on it (spec §5.10).
type Collector struct {
	m *Metrics

	requests  *prometheus.Desc
	bytesIn   *prometheus.Desc
	bytesOut  *prometheus.Desc
	phaseTime *prometheus.Desc
}

// NewCollector wraps m for registration with a prometheus.Registry.
func NewCollector(m *Metrics, namespace string) *Collector {
	return &Collector{
		m: m,
		requests: prometheus.NewDesc(
			namespace+"_requests_total", "Total requests folded into the current stats buffer.", nil, nil),
		bytesIn: prometheus.NewDesc(
			namespace+"_bytes_in_total", "Total request bytes read.", nil, nil),
		bytesOut: prometheus.NewDesc(
			namespace+"_bytes_out_total", "Total response bytes written.", nil, nil),
		phaseTime: prometheus.NewDesc(
			namespace+"_phase_seconds_total", "Total time spent per named request-lifecycle phase.", []string{"phase"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.bytesIn
	ch <- c.bytesOut
	ch <- c.phaseTime
}

// Collect implements prometheus.Collector, reading the current (in-
// progress) buffer so the endpoint always reflects live counters.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.m.current.Load().Snapshot()

	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(snap.Requests))
	ch <- prometheus.MustNewConstMetric(c.bytesIn, prometheus.CounterValue, float64(snap.Counters["bytes_in"]))
	ch <- prometheus.MustNewConstMetric(c.bytesOut, prometheus.CounterValue, float64(snap.Counters["bytes_out"]))

	for name, p := range snap.Phases {
		ch <- prometheus.MustNewConstMetric(c.phaseTime, prometheus.CounterValue, p.Total.Seconds(), name)
	}
}
