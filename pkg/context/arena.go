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
	"path/filepath"
	"strings"

	"github.com/kraklabs/hcaa/pkg/model"
)

// SegmentArena stores every segment from one analysis run exactly once,
// in a fixed order, and resolves cross-references by index rather than
// by pointer. This is what lets caller/callee relations form cycles
// without the arena itself ever holding a cycle: a relation is just two
// integers into the same backing slice.
type SegmentArena struct {
	segments []model.CodeSegment
	indexByID map[string]int
	relations [][]model.RelatedSegment // parallel to segments
}

// NewSegmentArena builds an arena from a segment slice. The input order
// is preserved; callers that need a deterministic arena should sort
// their segments (e.g. by ID) before calling this.
func NewSegmentArena(segments []model.CodeSegment) *SegmentArena {
	a := &SegmentArena{
		segments:  segments,
		indexByID: make(map[string]int, len(segments)),
		relations: make([][]model.RelatedSegment, len(segments)),
	}
	for i, seg := range segments {
		a.indexByID[seg.ID] = i
	}
	a.computeRelations()
	return a
}

// Len returns the number of segments in the arena.
func (a *SegmentArena) Len() int {
	return len(a.segments)
}

// Segment returns the segment stored at index i.
func (a *SegmentArena) Segment(i int) model.CodeSegment {
	return a.segments[i]
}

// Lookup returns the segment with the given ID and whether it was found.
func (a *SegmentArena) Lookup(id string) (model.CodeSegment, bool) {
	i, ok := a.indexByID[id]
	if !ok {
		return model.CodeSegment{}, false
	}
	return a.segments[i], true
}

// Related returns the related-segment cross-references for a segment ID.
func (a *SegmentArena) Related(id string) []model.RelatedSegment {
	i, ok := a.indexByID[id]
	if !ok {
		return nil
	}
	return a.relations[i]
}

// Siblings returns the IDs of every other segment in the same file,
// in arena order.
func (a *SegmentArena) Siblings(filePath string) []string {
	var ids []string
	for _, seg := range a.segments {
		if seg.FilePath == filePath {
			ids = append(ids, seg.ID)
		}
	}
	return ids
}

// computeRelations derives the four closed relation labels between every
// pair of segments in the arena:
//
//   - same-module: segments that live in the same directory.
//   - caller/callee: segment A's ImportsUsed or code text mentions
//     segment B's name.
//   - same-decorator-class: segments sharing a non-empty ParentClass.
//
// This is O(n^2) over segment count per run, which is acceptable at the
// per-project scale this tool analyzes; it is not meant to scale to
// monorepo-wide cross-reference graphs.
func (a *SegmentArena) computeRelations() {
	for i, seg := range a.segments {
		dirI := filepath.Dir(seg.FilePath)
		for j, other := range a.segments {
			if i == j {
				continue
			}

			if filepath.Dir(other.FilePath) == dirI {
				a.relations[i] = append(a.relations[i], model.RelatedSegment{
					SegmentID: other.ID,
					Relation:  model.RelationSameModule,
				})
			}

			if other.Metadata.Name != "" && mentionsSymbol(seg, other.Metadata.Name) {
				a.relations[i] = append(a.relations[i], model.RelatedSegment{
					SegmentID: other.ID,
					Relation:  model.RelationCallee,
				})
				a.relations[j] = append(a.relations[j], model.RelatedSegment{
					SegmentID: seg.ID,
					Relation:  model.RelationCaller,
				})
			}

			if seg.Metadata.ParentClass != "" && seg.Metadata.ParentClass == other.Metadata.ParentClass {
				a.relations[i] = append(a.relations[i], model.RelatedSegment{
					SegmentID: other.ID,
					Relation:  model.RelationSameDecoratorClass,
				})
			}
		}
	}
}

// mentionsSymbol reports whether seg's code text or import list
// references name. The check is a plain substring match rather than a
// proper reference resolver, which keeps this dependency-free and
// matches the rest of the pipeline's best-effort, AST-shallow approach.
func mentionsSymbol(seg model.CodeSegment, name string) bool {
	if len(name) < 3 {
		return false
	}
	for _, imp := range seg.Metadata.ImportsUsed {
		if imp == name {
			return true
		}
	}
	return strings.Contains(seg.CodeText, name)
}
