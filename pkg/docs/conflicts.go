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
	"fmt"

	"github.com/kraklabs/hcaa/pkg/model"
)

// ResolveConflicts pairs each claim with its matching reality assessment
// (by ClaimID) and assigns a resolution strategy and severity based on
// the claim's priority and how far its reality falls short of "complete".
//
// claims and realities are expected to be the same length and produced
// from the same claim slice; a reality with no matching claim is
// skipped defensively rather than treated as an error.
func ResolveConflicts(claims []model.DocumentationClaim, realities []model.ImplementationReality) []model.ConflictRecord {
	realityByClaim := make(map[string]model.ImplementationReality, len(realities))
	for _, r := range realities {
		realityByClaim[r.ClaimID] = r
	}

	var records []model.ConflictRecord
	for _, claim := range claims {
		reality, ok := realityByClaim[claim.ID]
		if !ok {
			continue
		}

		strategy, severity := resolve(claim.Priority, reality.Classification)
		records = append(records, model.ConflictRecord{
			Claim:     claim,
			Reality:   reality,
			Strategy:  strategy,
			Severity:  severity,
			Narrative: narrativeFor(claim, reality, severity),
		})
	}

	return records
}

// resolve maps a claim priority and reality classification to a
// resolution strategy and severity. A claim fully backed by code never
// produces more than an informational record regardless of priority;
// an absent or placeholder claim escalates with priority since it is
// documentation asserting something that does not exist in the code.
func resolve(priority model.ClaimPriority, classification model.RealityClassification) (model.ResolutionStrategy, model.ConflictSeverity) {
	switch classification {
	case model.RealityComplete:
		return model.ResolutionMerge, model.SeverityInformational
	case model.RealityPartial:
		return model.ResolutionMerge, model.SeverityMinor
	case model.RealitySkeleton:
		return model.ResolutionPreferCode, severityByPriority(priority, model.SeverityMinor, model.SeverityMajor)
	case model.RealityPlaceholder:
		return model.ResolutionFlagInconsistent, severityByPriority(priority, model.SeverityMajor, model.SeverityCritical)
	case model.RealityAbsent:
		return model.ResolutionFlagInconsistent, severityByPriority(priority, model.SeverityMajor, model.SeverityCritical)
	default:
		return model.ResolutionPreferCode, model.SeverityMinor
	}
}

// severityByPriority returns the low severity for low/medium priority
// claims and the high severity for high-priority claims.
func severityByPriority(priority model.ClaimPriority, low, high model.ConflictSeverity) model.ConflictSeverity {
	if priority == model.ClaimPriorityHigh {
		return high
	}
	return low
}

func narrativeFor(claim model.DocumentationClaim, reality model.ImplementationReality, severity model.ConflictSeverity) string {
	switch reality.Classification {
	case model.RealityComplete:
		return fmt.Sprintf("documentation claim %q is backed by %d code segment(s)", claim.Text, len(reality.SupportingSegments))
	case model.RealityPartial:
		return fmt.Sprintf("documentation claim %q is only partially realized in the code", claim.Text)
	case model.RealitySkeleton:
		return fmt.Sprintf("documentation claim %q matches code that is too small to fulfill it", claim.Text)
	case model.RealityPlaceholder:
		return fmt.Sprintf("documentation claim %q points at code that is still a stub (%s severity)", claim.Text, severity)
	case model.RealityAbsent:
		return fmt.Sprintf("documentation claim %q has no corresponding code (%s severity)", claim.Text, severity)
	default:
		return fmt.Sprintf("documentation claim %q could not be reconciled with the code", claim.Text)
	}
}
