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

package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/hcaa/pkg/model"
)

func TestDetectMatchesAllFourEvidenceSources(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	manifest := model.ManifestMetadata{Dependencies: map[string]string{"express": "^4.18.0"}}
	segments := []model.CodeSegment{
		{
			ID:       "seg1",
			CodeText: `app.get("/orders", handler)`,
			Metadata: model.StructuralMetadata{ImportsUsed: []string{"express"}},
		},
	}
	topDirs := []string{"routes"}

	results := d.Detect(manifest, segments, topDirs)
	require.NotEmpty(t, results)

	var express *model.DetectedFramework
	for i := range results {
		if results[i].Name == "express" {
			express = &results[i]
		}
	}
	require.NotNil(t, express)
	assert.InDelta(t, 1.0, express.Confidence, 0.001)
	assert.False(t, express.Low)
	assert.Len(t, express.Evidence, 4)
}

func TestDetectReturnsNoResultWithoutEvidence(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	results := d.Detect(model.ManifestMetadata{}, nil, nil)
	assert.Empty(t, results)
}

func TestDetectDiscardsBelowLowThreshold(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	// A lone import hit (weight 0.20) falls below the 0.30 discard
	// threshold and must not be reported at all.
	segments := []model.CodeSegment{
		{ID: "seg1", Metadata: model.StructuralMetadata{ImportsUsed: []string{"vue"}}},
	}

	results := d.Detect(model.ManifestMetadata{}, segments, nil)
	assert.Empty(t, results)
}

func TestDetectMarksLowConfidenceInBand(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	// A lone dependency hit (weight 0.30) lands exactly on the low-band
	// boundary: reported, but flagged Low since it's under 0.50.
	manifest := model.ManifestMetadata{Dependencies: map[string]string{"vue": "^3.0.0"}}

	results := d.Detect(manifest, nil, nil)
	require.Len(t, results, 1)
	assert.True(t, results[0].Low)
	assert.InDelta(t, 0.3, results[0].Confidence, 0.001)
}

func TestDetectOrdersByDescendingConfidenceThenName(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	manifest := model.ManifestMetadata{
		Dependencies: map[string]string{
			"express": "^4.18.0",
			"vue":     "^3.0.0",
		},
	}

	results := d.Detect(manifest, nil, nil)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Confidence, results[1].Confidence)
}

func TestDetectMarksSecondaryOnlyAboveReportThresholdWithSharedEvidence(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	// Dependency (0.30) + import (0.20) puts both frameworks at exactly
	// 0.50 confidence, sharing the same two evidence sources — react's
	// longer dependency citation keeps it primary, vue is demoted.
	manifest := model.ManifestMetadata{
		Dependencies: map[string]string{"react": "^18.0.0", "vue": "^3.0.0"},
	}
	segments := []model.CodeSegment{
		{ID: "seg1", Metadata: model.StructuralMetadata{ImportsUsed: []string{"react"}}},
		{ID: "seg2", Metadata: model.StructuralMetadata{ImportsUsed: []string{"vue"}}},
	}

	results := d.Detect(manifest, segments, nil)
	require.Len(t, results, 2)

	var react, vue *model.DetectedFramework
	for i := range results {
		switch results[i].Name {
		case "react":
			react = &results[i]
		case "vue":
			vue = &results[i]
		}
	}
	require.NotNil(t, react)
	require.NotNil(t, vue)
	assert.InDelta(t, 0.5, react.Confidence, 0.001)
	assert.InDelta(t, 0.5, vue.Confidence, 0.001)
	assert.False(t, react.Secondary)
	assert.True(t, vue.Secondary)
}

func TestDetectDoesNotDemoteSameLanguageFrameworksBelowReportThreshold(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	// Dependency-only evidence (0.30 each) never clears the 0.50
	// report threshold, so neither framework is eligible for demotion
	// even though both are typescript.
	manifest := model.ManifestMetadata{
		Dependencies: map[string]string{"react": "^18.0.0", "vue": "^3.0.0"},
	}

	results := d.Detect(manifest, nil, nil)
	require.Len(t, results, 2)
	assert.False(t, results[0].Secondary)
	assert.False(t, results[1].Secondary)
}

func TestDetectDoesNotDemoteWithoutSharedEvidence(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	// react clears report threshold via dependency+import (0.50);
	// angular clears it via content+file-structure (0.50). Both are
	// typescript and both exceed 0.50, but their evidence-source sets
	// are disjoint, so neither is demoted.
	manifest := model.ManifestMetadata{
		Dependencies: map[string]string{"react": "^18.0.0"},
	}
	segments := []model.CodeSegment{
		{
			ID:       "seg1",
			Metadata: model.StructuralMetadata{ImportsUsed: []string{"react"}},
		},
		{
			ID:       "seg2",
			CodeText: "@Component({})",
		},
	}
	topDirs := []string{"app"}

	results := d.Detect(manifest, segments, topDirs)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Secondary, "%s should not be demoted", r.Name)
	}
}
