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
	"strings"

	"github.com/kraklabs/hcaa/pkg/model"
)

// placeholderMarkers flag a segment's body as an unfinished stub rather
// than a real implementation.
var placeholderMarkers = []string{"todo", "fixme", "not implemented", "unimplemented", "panic(\"todo", "throw new error(\"not implemented"}

// AssessReality matches each claim against the segment set by keyword
// overlap between the claim text and a segment's name/path, then
// classifies the best-matching segment's completeness.
func AssessReality(claims []model.DocumentationClaim, segments []model.CodeSegment) []model.ImplementationReality {
	results := make([]model.ImplementationReality, 0, len(claims))

	for _, claim := range claims {
		matches := matchingSegments(claim, segments)
		if len(matches) == 0 {
			results = append(results, model.ImplementationReality{
				ClaimID:        claim.ID,
				Classification: model.RealityAbsent,
				Rationale:      "no code segment's name or path overlaps with the claim text",
			})
			continue
		}

		var ids []string
		placeholder := false
		totalLines := 0
		for _, seg := range matches {
			ids = append(ids, seg.ID)
			totalLines += seg.EndLine - seg.StartLine
			lower := strings.ToLower(seg.CodeText)
			for _, marker := range placeholderMarkers {
				if strings.Contains(lower, marker) {
					placeholder = true
				}
			}
		}

		classification := classifyCompleteness(len(matches), totalLines, placeholder)
		results = append(results, model.ImplementationReality{
			ClaimID:            claim.ID,
			Classification:     classification,
			SupportingSegments: ids,
			Rationale:          rationaleFor(classification, len(matches)),
		})
	}

	return results
}

// matchingSegments finds segments whose name or file path shares a
// significant word with the claim text.
func matchingSegments(claim model.DocumentationClaim, segments []model.CodeSegment) []model.CodeSegment {
	words := significantWords(claim.Text)
	if len(words) == 0 {
		return nil
	}

	var matches []model.CodeSegment
	for _, seg := range segments {
		haystack := strings.ToLower(seg.Metadata.Name + " " + seg.FilePath)
		for _, w := range words {
			if strings.Contains(haystack, w) {
				matches = append(matches, seg)
				break
			}
		}
	}
	return matches
}

// significantWords lowercases and filters claim text down to words of
// four or more characters, which cuts stopword noise without needing a
// stopword list.
func significantWords(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?():;\"'")
		if len(w) >= 4 {
			out = append(out, w)
		}
	}
	return out
}

func classifyCompleteness(matchCount, totalLines int, placeholder bool) model.RealityClassification {
	switch {
	case placeholder:
		return model.RealityPlaceholder
	case matchCount >= 3 && totalLines >= 20:
		return model.RealityComplete
	case matchCount >= 1 && totalLines >= 5:
		return model.RealityPartial
	default:
		return model.RealitySkeleton
	}
}

func rationaleFor(classification model.RealityClassification, matchCount int) string {
	switch classification {
	case model.RealityComplete:
		return "multiple substantial segments implement the claimed behavior"
	case model.RealityPartial:
		return "at least one segment implements part of the claimed behavior"
	case model.RealityPlaceholder:
		return "matching segment contains a TODO/unimplemented marker"
	case model.RealitySkeleton:
		return "matching segment is too small to cover the claim"
	default:
		return "no matching segment found"
	}
}
