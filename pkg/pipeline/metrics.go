// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsPipeline holds Prometheus metrics for the overall six-stage run,
// one histogram per stage plus output-cardinality counters.
type metricsPipeline struct {
	once sync.Once

	stageDuration *prometheus.HistogramVec
	segmentsTotal prometheus.Counter
	frameworksTotal prometheus.Counter
	groundingFailures prometheus.Counter
}

var pipeMetrics metricsPipeline

func (m *metricsPipeline) init() {
	m.once.Do(func() {
		buckets := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
		m.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hcaa_stage_duration_seconds",
			Help:    "Duration of one pipeline stage",
			Buckets: buckets,
		}, []string{"stage"})
		m.segmentsTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "hcaa_segments_extracted_total", Help: "Code segments extracted across all runs"})
		m.frameworksTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "hcaa_framework_detected_total", Help: "Frameworks detected across all runs"})
		m.groundingFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "hcaa_llm_grounding_failures_total", Help: "Stage-5 grounding calls that fell back to the tentative domain list"})

		prometheus.MustRegister(m.stageDuration, m.segmentsTotal, m.frameworksTotal, m.groundingFailures)
	})
}

// RecordStageDuration records how long one named stage took.
func RecordStageDuration(stage string, seconds float64) {
	pipeMetrics.init()
	pipeMetrics.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordOutputCardinality records how many segments and frameworks one
// run produced.
func RecordOutputCardinality(segments, frameworks int) {
	pipeMetrics.init()
	pipeMetrics.segmentsTotal.Add(float64(segments))
	pipeMetrics.frameworksTotal.Add(float64(frameworks))
}

// RecordGroundingFallback records one stage-5 call that fell back to the
// tentative domain list instead of a parsed grounding response.
func RecordGroundingFallback() {
	pipeMetrics.init()
	pipeMetrics.groundingFailures.Add(1)
}
