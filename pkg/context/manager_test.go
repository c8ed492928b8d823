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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/hcaa/pkg/model"
)

func sampleSegments() []model.CodeSegment {
	return []model.CodeSegment{
		{
			ID:       "seg-a",
			FilePath: "src/auth/login.go",
			CodeText: "func login() { validateSession() }",
			Metadata: model.StructuralMetadata{Name: "login"},
		},
		{
			ID:       "seg-b",
			FilePath: "src/auth/session.go",
			CodeText: "func validateSession() {}",
			Metadata: model.StructuralMetadata{Name: "validateSession"},
		},
		{
			ID:       "seg-c",
			FilePath: "src/reports/summary.go",
			CodeText: "func summarize() {}",
			Metadata: model.StructuralMetadata{Name: "summarize", ParentClass: "Report"},
		},
		{
			ID:       "seg-d",
			FilePath: "src/reports/detail.go",
			CodeText: "func detail() {}",
			Metadata: model.StructuralMetadata{Name: "detail", ParentClass: "Report"},
		},
	}
}

func TestSegmentArenaLookupAndLen(t *testing.T) {
	arena := NewSegmentArena(sampleSegments())
	assert.Equal(t, 4, arena.Len())

	seg, ok := arena.Lookup("seg-b")
	require.True(t, ok)
	assert.Equal(t, "src/auth/session.go", seg.FilePath)

	_, ok = arena.Lookup("missing")
	assert.False(t, ok)
}

func TestSegmentArenaDerivesCallerCalleeRelation(t *testing.T) {
	arena := NewSegmentArena(sampleSegments())

	relatedA := arena.Related("seg-a")
	assert.Contains(t, relatedA, model.RelatedSegment{SegmentID: "seg-b", Relation: model.RelationCallee})

	relatedB := arena.Related("seg-b")
	assert.Contains(t, relatedB, model.RelatedSegment{SegmentID: "seg-a", Relation: model.RelationCaller})
}

func TestSegmentArenaDerivesSameModuleRelation(t *testing.T) {
	arena := NewSegmentArena(sampleSegments())

	relatedA := arena.Related("seg-a")
	assert.Contains(t, relatedA, model.RelatedSegment{SegmentID: "seg-b", Relation: model.RelationSameModule})
}

func TestSegmentArenaDerivesSameDecoratorClassRelation(t *testing.T) {
	arena := NewSegmentArena(sampleSegments())

	relatedC := arena.Related("seg-c")
	assert.Contains(t, relatedC, model.RelatedSegment{SegmentID: "seg-d", Relation: model.RelationSameDecoratorClass})
}

func TestSegmentArenaSiblings(t *testing.T) {
	arena := NewSegmentArena(sampleSegments())

	siblings := arena.Siblings("src/reports/summary.go")
	assert.ElementsMatch(t, []string{"seg-c", "seg-d"}, siblings)
}

func TestTieredCacheInvalidatesOnHashMismatch(t *testing.T) {
	c := NewTieredCache()
	c.PutFile("/abs/file.go", HashContent([]byte("v1")), model.FileContext{FilePath: "file.go"})

	_, ok := c.GetFile("/abs/file.go", HashContent([]byte("v2")))
	assert.False(t, ok)

	ctx, ok := c.GetFile("/abs/file.go", HashContent([]byte("v1")))
	require.True(t, ok)
	assert.Equal(t, "file.go", ctx.FilePath)
}

func TestManagerBuildSegmentContextReturnsRelatedAndBusinessHints(t *testing.T) {
	segments := sampleSegments()
	segments[0].BusinessIndicators = []string{"authentication"}

	mgr := NewManager("/abs/root", model.ProjectContext{ProjectType: model.ProjectTypeAPIService}, segments)
	assert.Equal(t, 4, mgr.SegmentCount())

	enhanced, err := mgr.BuildSegmentContext("seg-a")
	require.NoError(t, err)
	assert.Equal(t, "seg-a", enhanced.SegmentID)
	assert.Equal(t, model.ProjectTypeAPIService, enhanced.ProjectContext.ProjectType)
	assert.Equal(t, []string{"authentication"}, enhanced.BusinessHints)
	assert.NotEmpty(t, enhanced.Related)
	assert.ElementsMatch(t, []string{"seg-a", "seg-b"}, enhanced.File.SiblingSegmentIDs)
}

func TestManagerBuildSegmentContextUnknownIDErrors(t *testing.T) {
	mgr := NewManager("/abs/root", model.ProjectContext{}, sampleSegments())

	_, err := mgr.BuildSegmentContext("does-not-exist")
	assert.Error(t, err)
}

func TestManagerBuildSegmentContextIsCached(t *testing.T) {
	mgr := NewManager("/abs/root", model.ProjectContext{}, sampleSegments())

	first, err := mgr.BuildSegmentContext("seg-a")
	require.NoError(t, err)
	second, err := mgr.BuildSegmentContext("seg-a")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
