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

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/hcaa/pkg/model"
)

func TestScoreNoEvidenceReturnsNil(t *testing.T) {
	e := NewEngine()
	results := e.Score(nil, nil)
	assert.Nil(t, results)
}

func TestScoreKeywordMatchProducesResult(t *testing.T) {
	e := NewEngine()
	segments := []model.CodeSegment{
		{ID: "seg1", FilePath: "src/auth/login.ts", Metadata: model.StructuralMetadata{Name: "loginHandler"}},
		{ID: "seg2", FilePath: "src/auth/session.ts", Metadata: model.StructuralMetadata{Name: "createSession"}},
	}

	results := e.Score(segments, nil)
	require.NotEmpty(t, results)
	assert.Equal(t, model.DomainAuthentication, results[0].Domain)
	assert.Greater(t, results[0].Confidence, 0.0)
	assert.LessOrEqual(t, results[0].Confidence, 1.0)
	assert.NotEmpty(t, results[0].Evidence)
}

func TestScoreOrdersByDescendingConfidence(t *testing.T) {
	e := NewEngine()
	segments := []model.CodeSegment{
		{ID: "seg1", FilePath: "src/auth/login.ts"},
		{ID: "seg2", FilePath: "src/auth/session.ts"},
		{ID: "seg3", FilePath: "src/auth/oauth.ts"},
		{ID: "seg4", FilePath: "src/reports/summary.ts"},
	}

	results := e.Score(segments, nil)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Confidence, results[1].Confidence)
}

func TestScoreDirectoryHintOutweighsSingleKeyword(t *testing.T) {
	e := NewEngine()
	segments := []model.CodeSegment{
		{ID: "seg1", FilePath: "src/reports/summary.ts"},
	}

	withoutHint := e.Score(segments, nil)
	withHint := e.Score(segments, []string{"reporting"})

	require.NotEmpty(t, withoutHint)
	require.NotEmpty(t, withHint)

	var confWithout, confWith float64
	for _, r := range withoutHint {
		if r.Domain == model.DomainReporting {
			confWithout = r.Confidence
		}
	}
	for _, r := range withHint {
		if r.Domain == model.DomainReporting {
			confWith = r.Confidence
		}
	}
	assert.Greater(t, confWith, confWithout)
}

func TestRelationshipsComplementaryWhenCompanionPresent(t *testing.T) {
	e := NewEngine()
	segments := []model.CodeSegment{
		{ID: "seg1", FilePath: "src/auth/login.ts"},
		{ID: "seg2", FilePath: "src/users/profile.ts"},
	}

	results := e.Score(segments, nil)
	var authResult *model.BusinessDomainResult
	for i := range results {
		if results[i].Domain == model.DomainAuthentication {
			authResult = &results[i]
		}
	}
	require.NotNil(t, authResult)
	assert.Contains(t, authResult.Relationships, model.RelationshipComplementary)
}

func TestRelationshipsPossiblyDistinctWhenCompanionAbsent(t *testing.T) {
	e := NewEngine()
	segments := []model.CodeSegment{
		{ID: "seg1", FilePath: "src/auth/login.ts"},
	}

	results := e.Score(segments, nil)
	var authResult *model.BusinessDomainResult
	for i := range results {
		if results[i].Domain == model.DomainAuthentication {
			authResult = &results[i]
		}
	}
	require.NotNil(t, authResult)
	assert.Contains(t, authResult.Relationships, model.RelationshipPossiblyDistinct)
}
