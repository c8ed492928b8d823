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

package context

import (
	"fmt"

	"github.com/kraklabs/hcaa/pkg/model"
)

// Manager is the hierarchical context manager: it owns one run's segment
// arena, its cross-reference relations, and the three-tier cache that
// makes BuildSegmentContext cheap to call repeatedly for the same
// segment within a run.
type Manager struct {
	arena   *SegmentArena
	cache   *TieredCache
	project model.ProjectContext
	absRoot string
}

// NewManager creates a context manager for one analysis run over the
// given project context and segment set. Segments should already be in
// their final, deterministic order (e.g. sorted by ID) before being
// passed in, since the arena preserves input order and every later
// derived artifact (file contexts, enhanced segment contexts) inherits
// that order.
func NewManager(absRoot string, project model.ProjectContext, segments []model.CodeSegment) *Manager {
	return &Manager{
		arena:   NewSegmentArena(segments),
		cache:   NewTieredCache(),
		project: project,
		absRoot: absRoot,
	}
}

// BuildSegmentContext returns the enhanced context for one segment ID:
// the project context by reference, the file context (imports and
// sibling segment IDs), the segment's cross-referenced related segments,
// and any business hints carried on the segment itself. Same inputs
// yield byte-identical output within one run, since the arena and its
// relations are computed once at construction and never mutated after.
func (m *Manager) BuildSegmentContext(segmentID string) (model.EnhancedSegmentContext, error) {
	seg, ok := m.arena.Lookup(segmentID)
	if !ok {
		return model.EnhancedSegmentContext{}, fmt.Errorf("context: unknown segment id %q", segmentID)
	}

	absPath := AbsPath(seg.FilePath)
	if cached, ok := m.cache.GetSegment(absPath, segmentID); ok {
		return cached, nil
	}

	fileCtx := m.fileContext(seg)

	enhanced := model.EnhancedSegmentContext{
		SegmentID:      segmentID,
		ProjectContext: m.project,
		File:           fileCtx,
		Related:        m.arena.Related(segmentID),
		BusinessHints:  seg.BusinessIndicators,
	}

	m.cache.PutSegment(absPath, segmentID, enhanced)
	return enhanced, nil
}

// fileContext derives (or serves from cache) the file-tier context for
// the file a segment belongs to.
func (m *Manager) fileContext(seg model.CodeSegment) model.FileContext {
	absPath := AbsPath(seg.FilePath)
	contentHash := HashContent([]byte(seg.CodeText))

	if cached, ok := m.cache.GetFile(absPath, contentHash); ok {
		return cached
	}

	fileCtx := model.FileContext{
		FilePath:          seg.FilePath,
		Imports:           seg.Metadata.ImportsUsed,
		SiblingSegmentIDs: m.arena.Siblings(seg.FilePath),
	}

	m.cache.PutFile(absPath, contentHash, fileCtx)
	return fileCtx
}

// ProjectContext returns the project context this manager was built
// with, for callers that need it without going through a segment.
func (m *Manager) ProjectContext() model.ProjectContext {
	return m.project
}

// SegmentCount returns the number of segments held in the arena.
func (m *Manager) SegmentCount() int {
	return m.arena.Len()
}

// Segments returns every segment in the arena, in arena order.
func (m *Manager) Segments() []model.CodeSegment {
	out := make([]model.CodeSegment, m.arena.Len())
	for i := 0; i < m.arena.Len(); i++ {
		out[i] = m.arena.Segment(i)
	}
	return out
}
