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

package docs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/hcaa/pkg/model"
)

func TestExtractClaimsFindsFeatureCueUnderTopHeading(t *testing.T) {
	dir := t.TempDir()
	readme := "# Billing Service\n\nThis service supports recurring invoices and refunds.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte(readme), 0644))

	claims, err := ExtractClaims(dir)
	require.NoError(t, err)
	require.NotEmpty(t, claims)

	found := false
	for _, c := range claims {
		if c.Kind == model.ClaimKindFeature {
			found = true
			assert.Equal(t, model.ClaimPriorityHigh, c.Priority)
			assert.Equal(t, "README.md", c.Location.DocPath)
		}
	}
	assert.True(t, found)
}

func TestExtractClaimsSkipsMissingDocFiles(t *testing.T) {
	dir := t.TempDir()

	claims, err := ExtractClaims(dir)
	require.NoError(t, err)
	assert.Empty(t, claims)
}

func TestAssessRealityAbsentWhenNoSegmentMatches(t *testing.T) {
	claims := []model.DocumentationClaim{
		{ID: "c1", Text: "supports webhooks notifications delivery"},
	}
	realities := AssessReality(claims, nil)
	require.Len(t, realities, 1)
	assert.Equal(t, model.RealityAbsent, realities[0].Classification)
}

func TestAssessRealityPlaceholderWhenMarkerPresent(t *testing.T) {
	claims := []model.DocumentationClaim{
		{ID: "c1", Text: "supports webhook delivery retries"},
	}
	segments := []model.CodeSegment{
		{
			ID:        "seg1",
			FilePath:  "src/webhook/delivery.go",
			CodeText:  `func deliver() { panic("todo: implement retries") }`,
			StartLine: 1,
			EndLine:   30,
			Metadata:  model.StructuralMetadata{Name: "deliver"},
		},
	}

	realities := AssessReality(claims, segments)
	require.Len(t, realities, 1)
	assert.Equal(t, model.RealityPlaceholder, realities[0].Classification)
	assert.Equal(t, []string{"seg1"}, realities[0].SupportingSegments)
}

func TestAssessRealityCompleteWhenSubstantialMatches(t *testing.T) {
	claims := []model.DocumentationClaim{
		{ID: "c1", Text: "webhook delivery retries notifications"},
	}
	segments := []model.CodeSegment{
		{ID: "seg1", FilePath: "src/webhook/delivery.go", CodeText: "func deliver() {}", StartLine: 1, EndLine: 30, Metadata: model.StructuralMetadata{Name: "deliver"}},
		{ID: "seg2", FilePath: "src/webhook/retries.go", CodeText: "func retries() {}", StartLine: 1, EndLine: 25, Metadata: model.StructuralMetadata{Name: "retries"}},
		{ID: "seg3", FilePath: "src/webhook/notifications.go", CodeText: "func notifications() {}", StartLine: 1, EndLine: 10, Metadata: model.StructuralMetadata{Name: "notifications"}},
	}

	realities := AssessReality(claims, segments)
	require.Len(t, realities, 1)
	assert.Equal(t, model.RealityComplete, realities[0].Classification)
}

func TestResolveConflictsEscalatesAbsentHighPriorityToCritical(t *testing.T) {
	claims := []model.DocumentationClaim{
		{ID: "c1", Text: "supports single sign-on", Priority: model.ClaimPriorityHigh},
	}
	realities := []model.ImplementationReality{
		{ClaimID: "c1", Classification: model.RealityAbsent},
	}

	records := ResolveConflicts(claims, realities)
	require.Len(t, records, 1)
	assert.Equal(t, model.SeverityCritical, records[0].Severity)
	assert.Equal(t, model.ResolutionFlagInconsistent, records[0].Strategy)
}

func TestResolveConflictsKeepsCompleteClaimsInformational(t *testing.T) {
	claims := []model.DocumentationClaim{
		{ID: "c1", Text: "supports single sign-on", Priority: model.ClaimPriorityHigh},
	}
	realities := []model.ImplementationReality{
		{ClaimID: "c1", Classification: model.RealityComplete, SupportingSegments: []string{"seg1", "seg2", "seg3"}},
	}

	records := ResolveConflicts(claims, realities)
	require.Len(t, records, 1)
	assert.Equal(t, model.SeverityInformational, records[0].Severity)
	assert.Equal(t, model.ResolutionMerge, records[0].Strategy)
}

func TestResolveConflictsSkipsUnmatchedReality(t *testing.T) {
	claims := []model.DocumentationClaim{
		{ID: "c1", Text: "supports single sign-on"},
	}
	realities := []model.ImplementationReality{
		{ClaimID: "different-claim", Classification: model.RealityComplete},
	}

	records := ResolveConflicts(claims, realities)
	assert.Empty(t, records)
}
