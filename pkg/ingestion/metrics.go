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

package ingestion

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIngestion holds Prometheus metrics for the segment-extraction
// stage of the pipeline.
type metricsIngestion struct {
	once sync.Once

	filesParsed      prometheus.Counter
	filesFailed      prometheus.Counter
	segmentsExtracted prometheus.Counter
	codeTextTruncated prometheus.Counter

	parseDuration prometheus.Histogram
}

var ingMetrics metricsIngestion

func (m *metricsIngestion) init() {
	m.once.Do(func() {
		m.filesParsed = prometheus.NewCounter(prometheus.CounterOpts{Name: "hcaa_ingestion_files_parsed_total", Help: "Source files successfully parsed"})
		m.filesFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "hcaa_ingestion_files_failed_total", Help: "Source files that failed to parse"})
		m.segmentsExtracted = prometheus.NewCounter(prometheus.CounterOpts{Name: "hcaa_ingestion_segments_extracted_total", Help: "Code segments extracted"})
		m.codeTextTruncated = prometheus.NewCounter(prometheus.CounterOpts{Name: "hcaa_ingestion_code_text_truncated_total", Help: "Segments whose code text was truncated"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
		m.parseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "hcaa_ingestion_parse_seconds", Help: "Duration of stage-2 segment extraction", Buckets: buckets})

		prometheus.MustRegister(
			m.filesParsed, m.filesFailed, m.segmentsExtracted, m.codeTextTruncated, m.parseDuration,
		)
	})
}

// RecordParseRun records the outcome of one stage-2 run.
func RecordParseRun(filesParsed, filesFailed, segments, truncated int, seconds float64) {
	ingMetrics.init()
	ingMetrics.filesParsed.Add(float64(filesParsed))
	ingMetrics.filesFailed.Add(float64(filesFailed))
	ingMetrics.segmentsExtracted.Add(float64(segments))
	ingMetrics.codeTextTruncated.Add(float64(truncated))
	ingMetrics.parseDuration.Observe(seconds)
}
