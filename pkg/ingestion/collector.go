// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/kraklabs/hcaa/pkg/model"
)

// maxParseWorkers bounds the worker pool regardless of host core count.
const maxParseWorkers = 8

// SegmentCollector accumulates segments from concurrent ParseFile calls
// and produces a single totally-ordered result: segments are sorted by
// ID once collection finishes, so the output is identical regardless of
// how the worker pool interleaved completions.
type SegmentCollector struct {
	mu       sync.Mutex
	segments []model.CodeSegment
}

// Add appends segments found in one file. Safe for concurrent use.
func (c *SegmentCollector) Add(segments []model.CodeSegment) {
	if len(segments) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments = append(c.segments, segments...)
}

// Segments returns the collected segments sorted by ID.
func (c *SegmentCollector) Segments() []model.CodeSegment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.CodeSegment, len(c.segments))
	copy(out, c.segments)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ExtractSegments runs stage 2 of the pipeline: it walks files on a
// bounded worker pool, invoking parser for each, and returns the
// collected segments plus a diagnostic for every file that failed to
// parse. A parse failure never aborts the run.
func ExtractSegments(ctx context.Context, files []FileInfo, parser CodeParser, workerCount int) ([]model.CodeSegment, []model.Diagnostic, int) {
	collector := &SegmentCollector{}
	var diagnostics []model.Diagnostic
	var diagMu sync.Mutex
	var errorCount int32

	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if workerCount > maxParseWorkers {
		workerCount = maxParseWorkers
	}
	if len(files) == 0 {
		return nil, nil, 0
	}
	if len(files) < workerCount {
		workerCount = len(files)
	}

	jobs := make(chan FileInfo, len(files))
	var wg sync.WaitGroup

	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fileInfo := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				result, err := parser.ParseFile(fileInfo)
				if err != nil {
					atomic.AddInt32(&errorCount, 1)
					diagMu.Lock()
					diagnostics = append(diagnostics, model.Diagnostic{
						Severity:  model.DiagnosticWarning,
						Component: "ingestion",
						Message:   err.Error(),
						File:      fileInfo.Path,
					})
					diagMu.Unlock()
					continue
				}
				collector.Add(result.Segments)
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	return collector.Segments(), diagnostics, int(errorCount)
}

// NewDefaultParser builds the standard TreeSitterParser used by stage 2,
// honoring an optional logger.
func NewDefaultParser(logger *slog.Logger) CodeParser {
	return NewTreeSitterParser(logger)
}
