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

package fusion

import (
	"sort"

	"github.com/kraklabs/hcaa/pkg/model"
)

// Fixed tier weights when all three tiers are present, and the
// redistributed pair when grounding is unavailable: 0.3 of 0.4+0.3+0.3
// is proportionally split across the remaining 0.4 and 0.3, giving
// 0.4/0.7=0.571... and 0.3/0.7=0.428... rounded to 0.57/0.43.
const (
	weightProjectContext    = 0.4
	weightFrameworkDetection = 0.3
	weightLLMGrounding      = 0.3

	weightProjectContextNoLLM    = 0.57
	weightFrameworkDetectionNoLLM = 0.43

	domainFloor = 0.30
	majorConflictPenalty = 0.1
)

// frameworkDomainHints is a coarse, intentionally small map from a
// detected framework to the business domain it weakly correlates with.
// This is the framework-detection tier's contribution to domain fusion:
// a framework alone rarely proves a business domain, so its vote is
// capped well below the keyword/directory-hint tier's.
var frameworkDomainHints = map[string]model.BusinessDomain{
	"express":    model.DomainAPIGateway,
	"fastapi":    model.DomainAPIGateway,
	"spring":     model.DomainAPIGateway,
	"actix-web":  model.DomainAPIGateway,
	"django":     model.DomainContentManagement,
	"rails":      model.DomainContentManagement,
	"nextjs":     model.DomainContentManagement,
}

// Input bundles the per-tier signal the fusion engine combines into one
// FusedResult. Any tier may be empty; Frameworks is always populated and
// passed through to the result unchanged (frameworks are stage-3 output,
// not themselves fused).
type Input struct {
	ProjectContext   model.ProjectContext
	Frameworks       []model.DetectedFramework
	ProjectDomains   []model.BusinessDomainResult // project-context tier (keyword/directory-hint engine)
	Grounding        *model.GroundingResult       // nil when stage 5 was skipped
	Conflicts        []model.ConflictRecord
	Timing           model.AnalysisTiming
	Diagnostics      []model.Diagnostic
}

// Fuse combines the tiers in in into the final FusedResult.
func Fuse(in Input) model.FusedResult {
	groundingEnabled := in.Grounding != nil

	wProject, wFramework, wGrounding := weightProjectContext, weightFrameworkDetection, weightLLMGrounding
	if !groundingEnabled {
		wProject, wFramework, wGrounding = weightProjectContextNoLLM, weightFrameworkDetectionNoLLM, 0
	}

	projectScores := make(map[string]float64)
	for _, d := range in.ProjectDomains {
		projectScores[string(d.Domain)] = d.Confidence
	}

	frameworkScores := make(map[string]float64)
	for _, f := range in.Frameworks {
		if domain, ok := frameworkDomainHints[f.Name]; ok {
			if f.Confidence > frameworkScores[string(domain)] {
				frameworkScores[string(domain)] = f.Confidence
			}
		}
	}

	groundingScores := make(map[string]float64)
	if groundingEnabled && in.Grounding.PrimaryBusinessDomain != "" {
		groundingScores[string(in.Grounding.PrimaryBusinessDomain)] = in.Grounding.ConfidenceScore
	}

	candidates := make(map[string]bool)
	for k := range projectScores {
		candidates[k] = true
	}
	for k := range frameworkScores {
		candidates[k] = true
	}
	for k := range groundingScores {
		candidates[k] = true
	}

	evidenceByDomain := make(map[string][]model.EvidenceCitation)
	for _, d := range in.ProjectDomains {
		evidenceByDomain[string(d.Domain)] = d.Evidence
	}

	var fused []model.BusinessDomainResult
	for name := range candidates {
		confidence := wProject*projectScores[name] + wFramework*frameworkScores[name] + wGrounding*groundingScores[name]
		confidence = model.Clamp01(confidence)
		if confidence < domainFloor {
			continue
		}

		var strategy model.StoryStrategy
		var relationships []model.DomainRelationship
		for _, d := range in.ProjectDomains {
			if string(d.Domain) == name {
				strategy = d.Strategy
				relationships = d.Relationships
				break
			}
		}
		if strategy == "" {
			strategy = strategyFor(confidence)
		}

		fused = append(fused, model.BusinessDomainResult{
			Domain:        model.BusinessDomain(name),
			Confidence:    confidence,
			Evidence:      evidenceByDomain[name],
			Strategy:      strategy,
			Relationships: relationships,
		})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Confidence != fused[j].Confidence {
			return fused[i].Confidence > fused[j].Confidence
		}
		return earliestFilePath(fused[i].Evidence) < earliestFilePath(fused[j].Evidence)
	})

	var primary model.BusinessDomain
	if len(fused) > 0 {
		primary = fused[0].Domain
	}

	tierBreakdown := model.TierBreakdown{
		ProjectContext:     projectScores,
		FrameworkDetection: frameworkScores,
	}
	if groundingEnabled {
		tierBreakdown.LLMGrounding = groundingScores
	}

	readiness := readinessScore(fused, in.Conflicts)

	return model.FusedResult{
		ProjectContext: in.ProjectContext,
		Frameworks:     in.Frameworks,
		BusinessDomains: fused,
		PrimaryDomain:  primary,
		Conflicts:      in.Conflicts,
		TierBreakdown:  tierBreakdown,
		ReadinessScore: readiness,
		Timing:         in.Timing,
		Diagnostics:    in.Diagnostics,
	}
}

// readinessScore is the mean of the top three fused domain confidences,
// penalized 0.1 per conflict of severity major or critical.
func readinessScore(fused []model.BusinessDomainResult, conflicts []model.ConflictRecord) float64 {
	n := len(fused)
	if n > 3 {
		n = 3
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += fused[i].Confidence
	}

	var mean float64
	if n > 0 {
		mean = sum / float64(n)
	}

	penalty := 0.0
	for _, c := range conflicts {
		if c.Severity == model.SeverityMajor || c.Severity == model.SeverityCritical {
			penalty += majorConflictPenalty
		}
	}

	return model.Clamp01(mean - penalty)
}

// earliestFilePath returns the lexicographically earliest file path
// among a domain's evidence citations, used as the primary-domain
// tie-break per the fusion spec.
func earliestFilePath(evidence []model.EvidenceCitation) string {
	earliest := ""
	for _, e := range evidence {
		if earliest == "" || e.FilePath < earliest {
			earliest = e.FilePath
		}
	}
	return earliest
}

func strategyFor(confidence float64) model.StoryStrategy {
	switch {
	case confidence >= 0.80:
		return model.StrategyComprehensive
	case confidence >= 0.60:
		return model.StrategyCoreWithCaveats
	default:
		return model.StrategyMentionOnly
	}
}
