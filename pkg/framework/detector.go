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
	_ "embed"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/hcaa/pkg/model"
)

//go:embed data/frameworks.yaml
var frameworksYAML []byte

// frameworkDefinition is one entry of the embedded evidence table.
type frameworkDefinition struct {
	Name             string   `yaml:"name"`
	Language         string   `yaml:"language"`
	Dependencies     []string `yaml:"dependencies"`
	Imports          []string `yaml:"imports"`
	ContentPatterns  []string `yaml:"content_patterns"`
	Directories      []string `yaml:"directories"`
}

type frameworksFile struct {
	Frameworks []frameworkDefinition `yaml:"frameworks"`
}

// Detector scores candidate frameworks against a project's manifest
// dependencies, a segment set's imports and code text, and the
// project's top-level directories.
type Detector struct {
	definitions []frameworkDefinition
}

// NewDetector loads the embedded framework evidence table.
func NewDetector() (*Detector, error) {
	var parsed frameworksFile
	if err := yaml.Unmarshal(frameworksYAML, &parsed); err != nil {
		return nil, err
	}
	return &Detector{definitions: parsed.Frameworks}, nil
}

// Evidence weights and confidence bands, fixed by the detection scheme:
// dependency and content-pattern signals are the strongest (a manifest
// entry or a framework-specific API call), import and file-structure
// signals corroborate them. A framework scoring below reportThreshold
// is noise and is dropped entirely; one scoring between the two
// thresholds is reported but flagged Low.
const (
	weightDependency     = 0.30
	weightImport         = 0.20
	weightContentPattern = 0.30
	weightFileStructure  = 0.20

	lowThreshold    = 0.30
	reportThreshold = 0.50
)

// Detect scores every known framework against the given evidence
// sources and returns the ones clearing lowThreshold, ordered by
// descending confidence then name.
func (d *Detector) Detect(manifest model.ManifestMetadata, segments []model.CodeSegment, topDirs []string) []model.DetectedFramework {
	dirSet := make(map[string]bool, len(topDirs))
	for _, dir := range topDirs {
		dirSet[strings.ToLower(dir)] = true
	}

	var results []model.DetectedFramework
	for _, def := range d.definitions {
		var evidence []model.Evidence
		var confidence float64

		for depName := range manifest.Dependencies {
			if matchesAnyToken(depName, def.Dependencies) {
				evidence = append(evidence, model.Evidence{Source: model.EvidenceDependency, Cite: depName, Weight: weightDependency})
				confidence += weightDependency
				break
			}
		}

		importHit := false
		contentHit := false
		for _, seg := range segments {
			if !importHit {
				for _, imp := range seg.Metadata.ImportsUsed {
					if matchesAnyToken(imp, def.Imports) {
						evidence = append(evidence, model.Evidence{Source: model.EvidenceImport, Cite: imp, Weight: weightImport, SegmentID: seg.ID})
						confidence += weightImport
						importHit = true
						break
					}
				}
			}
			if !contentHit {
				for _, pattern := range def.ContentPatterns {
					if strings.Contains(seg.CodeText, pattern) {
						evidence = append(evidence, model.Evidence{Source: model.EvidenceContentPattern, Cite: pattern, Weight: weightContentPattern, SegmentID: seg.ID})
						confidence += weightContentPattern
						contentHit = true
						break
					}
				}
			}
			if importHit && contentHit {
				break
			}
		}

		for _, dir := range def.Directories {
			if dirSet[strings.ToLower(dir)] {
				evidence = append(evidence, model.Evidence{Source: model.EvidenceFileStructure, Cite: dir, Weight: weightFileStructure})
				confidence += weightFileStructure
				break
			}
		}

		if len(evidence) == 0 {
			continue
		}

		confidence = model.Clamp01(confidence)
		if confidence < lowThreshold {
			continue
		}

		results = append(results, model.DetectedFramework{
			Name:       def.Name,
			Language:   model.SourceLanguage(def.Language),
			Confidence: confidence,
			Low:        confidence < reportThreshold,
			Evidence:   evidence,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Name < results[j].Name
	})

	markSecondary(results)

	return results
}

// markSecondary demotes a framework to secondary only when another
// framework of the same language also clears reportThreshold and
// shares at least half its evidence sources — a true overlap, not just
// a shared language. Between two overlapping candidates the one with
// the longer (more specific) dependency citation keeps primary status.
func markSecondary(results []model.DetectedFramework) {
	primaryByLanguage := make(map[model.SourceLanguage]int)
	for i := range results {
		if results[i].Confidence < reportThreshold {
			continue
		}
		lang := results[i].Language
		primaryIdx, ok := primaryByLanguage[lang]
		if !ok {
			primaryByLanguage[lang] = i
			continue
		}
		if !sharesHalfEvidenceSources(results[primaryIdx], results[i]) {
			continue
		}
		if dependencyCiteLen(results[i]) > dependencyCiteLen(results[primaryIdx]) {
			results[primaryIdx].Secondary = true
			primaryByLanguage[lang] = i
		} else {
			results[i].Secondary = true
		}
	}
}

// sharesHalfEvidenceSources reports whether a and b's evidence-source
// kinds overlap by at least half of the smaller evidence set.
func sharesHalfEvidenceSources(a, b model.DetectedFramework) bool {
	setA := evidenceSourceSet(a)
	setB := evidenceSourceSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return false
	}

	shared := 0
	for source := range setA {
		if setB[source] {
			shared++
		}
	}

	smaller := len(setA)
	if len(setB) < smaller {
		smaller = len(setB)
	}
	return float64(shared)/float64(smaller) >= 0.5
}

func evidenceSourceSet(f model.DetectedFramework) map[model.EvidenceSource]bool {
	set := make(map[model.EvidenceSource]bool, len(f.Evidence))
	for _, e := range f.Evidence {
		set[e.Source] = true
	}
	return set
}

// dependencyCiteLen returns the length of f's dependency-evidence
// citation, or 0 if it has none, used as the "longer dep match wins"
// tie-break between two overlapping same-language frameworks.
func dependencyCiteLen(f model.DetectedFramework) int {
	for _, e := range f.Evidence {
		if e.Source == model.EvidenceDependency {
			return len(e.Cite)
		}
	}
	return 0
}

func matchesAnyToken(value string, tokens []string) bool {
	lower := strings.ToLower(value)
	for _, token := range tokens {
		if strings.Contains(lower, strings.ToLower(token)) {
			return true
		}
	}
	return false
}
