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
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kraklabs/hcaa/pkg/model"
)

// claimCueTable maps each claim kind to the lowercase phrase cues that
// signal a documentation sentence is asserting that kind of claim.
// Maintained as data alongside the extractor rather than a config file
// since, unlike the framework/domain tables, these cues are tightly
// coupled to the extraction heuristic's sentence-level logic below.
var claimCueTable = map[model.DocClaimKind][]string{
	model.ClaimKindFeature:      {"supports", "provides", "includes", "feature"},
	model.ClaimKindCapability:   {"can", "is able to", "capable of"},
	model.ClaimKindIntegration:  {"integrates with", "connects to", "works with"},
	model.ClaimKindAPIEndpoint:  {"endpoint", "api route", "http"},
	model.ClaimKindStatus:       {"done", "complete", "implemented", "planned", "todo", "coming soon"},
	model.ClaimKindPerformance:  {"fast", "scalable", "latency", "throughput"},
	model.ClaimKindSecurity:     {"secure", "encrypted", "authenticated", "authorized"},
	model.ClaimKindArchitecture: {"architecture", "designed", "built on", "powered by"},
}

// DocFiles are the documentation file names the extractor scans, in
// priority order. Only markdown/plain-text prose is considered; this
// is not a general-purpose documentation-generator parser.
var DocFiles = []string{"README.md", "docs/README.md", "CHANGELOG.md", "ARCHITECTURE.md"}

// ExtractClaims scans a project's documentation files for sentences
// matching the claim-cue table and returns one DocumentationClaim per
// match, in file order.
func ExtractClaims(root string) ([]model.DocumentationClaim, error) {
	var claims []model.DocumentationClaim

	for _, rel := range DocFiles {
		path := filepath.Join(root, rel)
		fileClaims, err := extractClaimsFromFile(path, rel)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("extract claims from %s: %w", rel, err)
		}
		claims = append(claims, fileClaims...)
	}

	return claims, nil
}

func extractClaimsFromFile(path, relPath string) ([]model.DocumentationClaim, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var claims []model.DocumentationClaim
	scanner := bufio.NewScanner(f)
	lineNo := 0
	headingDepth := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			headingDepth = strings.Index(line, " ")
			continue
		}

		lower := strings.ToLower(line)
		for kind, cues := range claimCueTable {
			for _, cue := range cues {
				if strings.Contains(lower, cue) {
					claims = append(claims, model.DocumentationClaim{
						ID:         claimID(relPath, lineNo, line),
						Kind:       kind,
						Text:       line,
						Priority:   priorityForHeading(headingDepth),
						Location:   model.SourceLocation{DocPath: relPath, StartLine: lineNo, EndLine: lineNo},
						Confidence: 0.6,
					})
					break
				}
			}
		}
	}

	return claims, scanner.Err()
}

// priorityForHeading treats claims under a top-level (#) or second-
// level (##) heading as higher priority than deeply nested ones.
func priorityForHeading(depth int) model.ClaimPriority {
	switch {
	case depth > 0 && depth <= 2:
		return model.ClaimPriorityHigh
	case depth > 2 && depth <= 4:
		return model.ClaimPriorityMedium
	default:
		return model.ClaimPriorityLow
	}
}

func claimID(docPath string, line int, text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", docPath, line, text)))
	return "claim:" + hex.EncodeToString(sum[:8])
}
