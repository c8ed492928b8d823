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

package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/hcaa/pkg/model"
)

func TestFuseWithoutGroundingRedistributesWeights(t *testing.T) {
	in := Input{
		ProjectDomains: []model.BusinessDomainResult{
			{Domain: model.DomainAuthentication, Confidence: 1.0, Strategy: model.StrategyComprehensive},
		},
	}

	result := Fuse(in)
	require.Len(t, result.BusinessDomains, 1)
	assert.InDelta(t, weightProjectContextNoLLM, result.BusinessDomains[0].Confidence, 0.001)
	assert.Nil(t, result.TierBreakdown.LLMGrounding)
}

func TestFuseWithGroundingUsesFullWeights(t *testing.T) {
	in := Input{
		ProjectDomains: []model.BusinessDomainResult{
			{Domain: model.DomainAuthentication, Confidence: 1.0, Strategy: model.StrategyComprehensive},
		},
		Grounding: &model.GroundingResult{
			PrimaryBusinessDomain: model.DomainAuthentication,
			ConfidenceScore:       1.0,
		},
	}

	result := Fuse(in)
	require.Len(t, result.BusinessDomains, 1)
	expected := weightProjectContext + weightLLMGrounding
	assert.InDelta(t, expected, result.BusinessDomains[0].Confidence, 0.001)
	assert.NotNil(t, result.TierBreakdown.LLMGrounding)
}

func TestFuseAppliesConfidenceFloor(t *testing.T) {
	in := Input{
		ProjectDomains: []model.BusinessDomainResult{
			{Domain: model.DomainAnalytics, Confidence: 0.1, Strategy: model.StrategyMentionOnly},
		},
	}

	result := Fuse(in)
	assert.Empty(t, result.BusinessDomains)
}

func TestFuseFrameworkDomainHintContributes(t *testing.T) {
	in := Input{
		Frameworks: []model.DetectedFramework{
			{Name: "express", Confidence: 0.9},
		},
	}

	result := Fuse(in)
	require.Len(t, result.BusinessDomains, 1)
	assert.Equal(t, model.DomainAPIGateway, result.BusinessDomains[0].Domain)
}

func TestFusePrimaryDomainTieBreaksByEarliestFilePath(t *testing.T) {
	in := Input{
		ProjectDomains: []model.BusinessDomainResult{
			{
				Domain:     model.DomainAuthentication,
				Confidence: 1.0,
				Evidence:   []model.EvidenceCitation{{FilePath: "z/login.ts"}},
			},
			{
				Domain:     model.DomainUserManagement,
				Confidence: 1.0,
				Evidence:   []model.EvidenceCitation{{FilePath: "a/profile.ts"}},
			},
		},
	}

	result := Fuse(in)
	require.NotEmpty(t, result.BusinessDomains)
	assert.Equal(t, model.DomainUserManagement, result.PrimaryDomain)
}

func TestReadinessScorePenalizesMajorConflicts(t *testing.T) {
	fused := []model.BusinessDomainResult{
		{Domain: model.DomainAuthentication, Confidence: 0.9},
	}

	clean := readinessScore(fused, nil)
	withConflict := readinessScore(fused, []model.ConflictRecord{
		{Severity: model.SeverityMajor},
	})

	assert.Greater(t, clean, withConflict)
	assert.InDelta(t, 0.1, clean-withConflict, 0.0001)
}

func TestReadinessScoreNeverNegative(t *testing.T) {
	fused := []model.BusinessDomainResult{
		{Domain: model.DomainAuthentication, Confidence: 0.1},
	}
	score := readinessScore(fused, []model.ConflictRecord{
		{Severity: model.SeverityCritical},
		{Severity: model.SeverityCritical},
		{Severity: model.SeverityCritical},
	})
	assert.Equal(t, 0.0, score)
}

func TestFuseEmptyInputProducesNoBusinessDomains(t *testing.T) {
	result := Fuse(Input{})
	assert.Empty(t, result.BusinessDomains)
	assert.Equal(t, model.BusinessDomain(""), result.PrimaryDomain)
}
