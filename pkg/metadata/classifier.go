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

package metadata

import (
	"os"
	"sort"
	"strings"

	"github.com/kraklabs/hcaa/pkg/model"
)

// ClassifierConfig tunes how aggressively the classifier walks the
// project tree and which directories it ignores.
type ClassifierConfig struct {
	MaxAnalysisDepth int
	IgnoreDirs       []string
}

// DefaultClassifierConfig returns the classifier's default tuning.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		MaxAnalysisDepth: 6,
		IgnoreDirs: []string{
			"node_modules", ".git", ".vscode", ".idea", "target", "dist", "build",
			"vendor", "__pycache__", ".pytest_cache", "coverage",
		},
	}
}

// typeSignal maps a dependency or directory-purpose signal to the
// ProjectType it most strongly indicates.
type typeSignal struct {
	projectType model.ProjectType
	weight      float64
}

// dependencySignals is the Open-Question-(a) token table: dependency
// names (as they appear in a manifest) mapped to the project type they
// indicate. Kept as data here (not YAML) since it is small and
// maintained alongside the classifier; framework-detection's larger
// per-framework evidence table lives in pkg/framework/data as YAML.
var dependencySignals = map[string]typeSignal{
	"react": {model.ProjectTypeWebApplication, 0.5}, "vue": {model.ProjectTypeWebApplication, 0.5},
	"next": {model.ProjectTypeWebApplication, 0.6}, "@angular/core": {model.ProjectTypeWebApplication, 0.5},
	"express": {model.ProjectTypeAPIService, 0.5}, "fastapi": {model.ProjectTypeAPIService, 0.6},
	"django": {model.ProjectTypeWebApplication, 0.5}, "flask": {model.ProjectTypeAPIService, 0.4},
	"spring-boot": {model.ProjectTypeAPIService, 0.5}, "actix-web": {model.ProjectTypeAPIService, 0.5},
	"tokio": {model.ProjectTypeNetworkingTool, 0.3}, "grpc": {model.ProjectTypeAPIService, 0.4},
	"electron": {model.ProjectTypeDesktop, 0.6}, "tauri": {model.ProjectTypeDesktop, 0.6},
	"react-native": {model.ProjectTypeMobile, 0.7}, "flutter": {model.ProjectTypeMobile, 0.7},
	"torch": {model.ProjectTypeMachineLearning, 0.6}, "tensorflow": {model.ProjectTypeMachineLearning, 0.6},
	"scikit-learn": {model.ProjectTypeMachineLearning, 0.6}, "pandas": {model.ProjectTypeDataPipeline, 0.3},
	"apache-airflow": {model.ProjectTypeDataPipeline, 0.6}, "kafka": {model.ProjectTypeDataPipeline, 0.4},
	"jest": {model.ProjectTypeTestingFramework, 0.2}, "pytest": {model.ProjectTypeTestingFramework, 0.2},
	"cobra": {model.ProjectTypeCLITool, 0.6}, "clap": {model.ProjectTypeCLITool, 0.6}, "click": {model.ProjectTypeCLITool, 0.6},
	"prometheus-client": {model.ProjectTypeMonitoringSystem, 0.4}, "grafana": {model.ProjectTypeMonitoringSystem, 0.4},
	"web3": {model.ProjectTypeBlockchainApp, 0.6}, "ethers": {model.ProjectTypeBlockchainApp, 0.6},
	"discord.js": {model.ProjectTypeChatBot, 0.6}, "telegraf": {model.ProjectTypeChatBot, 0.6},
	"ffmpeg": {model.ProjectTypeMediaProcessor, 0.5}, "sharp": {model.ProjectTypeMediaProcessor, 0.4},
	"numpy": {model.ProjectTypeScientificComputing, 0.3}, "scipy": {model.ProjectTypeScientificComputing, 0.4},
}

// directoryPurposeSignals is the Open-Question-(b) token table mapping
// top-level directory names to the project type they suggest.
var directoryPurposeSignals = map[string]typeSignal{
	"pages": {model.ProjectTypeWebApplication, 0.3}, "components": {model.ProjectTypeWebApplication, 0.3},
	"routes": {model.ProjectTypeAPIService, 0.3}, "controllers": {model.ProjectTypeAPIService, 0.3},
	"migrations": {model.ProjectTypeDatabaseSystem, 0.3}, "models": {model.ProjectTypeDatabaseSystem, 0.2},
	"notebooks": {model.ProjectTypeScientificComputing, 0.4}, "training": {model.ProjectTypeMachineLearning, 0.3},
	"cmd": {model.ProjectTypeCLITool, 0.2}, "terraform": {model.ProjectTypeDevOps, 0.5}, "ansible": {model.ProjectTypeDevOps, 0.5},
	"docs": {model.ProjectTypeDocumentationSite, 0.2}, "security": {model.ProjectTypeSecurityTool, 0.3},
	"firmware": {model.ProjectTypeEmbeddedSystem, 0.6},
}

// Classifier builds a model.ProjectContext from a project's manifest and
// directory structure. It is stage 1 of the pipeline and runs before any
// source file is parsed.
type Classifier struct {
	config ClassifierConfig
}

// NewClassifier creates a Classifier with the given tuning.
func NewClassifier(config ClassifierConfig) *Classifier {
	return &Classifier{config: config}
}

// Classify reads the manifest at root and walks its directory structure
// to produce the project's context. It never returns an error for a
// project with no recognized manifest: an empty manifest plus
// directory-structure-only classification is a valid, lower-confidence
// result.
func (c *Classifier) Classify(root string) (model.ProjectContext, error) {
	manifest, entryPoints, err := ReadManifest(root)
	if err != nil {
		return model.ProjectContext{}, err
	}

	topDirs := c.topLevelDirs(root)

	scores := make(map[model.ProjectType]float64)
	for dep := range manifest.Dependencies {
		for token, signal := range dependencySignals {
			if strings.Contains(strings.ToLower(dep), token) {
				scores[signal.projectType] += signal.weight
			}
		}
	}
	for _, dir := range topDirs {
		if signal, ok := directoryPurposeSignals[strings.ToLower(dir)]; ok {
			scores[signal.projectType] += signal.weight
		}
	}
	if isLibraryShaped(manifest, topDirs) {
		scores[model.ProjectTypeLibrary] += 0.3
	}

	primary, secondary := rankTypes(scores)
	if primary == "" {
		primary = model.ProjectTypeLibrary
	}

	domainHints := directoryDomainHints(topDirs)

	return model.ProjectContext{
		ProjectType:    primary,
		SecondaryTypes: secondary,
		Purpose:        "",
		EntryPoints:    entryPoints,
		DomainHints:    domainHints,
		Manifest:       manifest,
	}, nil
}

// TopLevelDirs lists the immediate subdirectories of root, excluding
// the classifier's ignore list. Exported so later pipeline stages
// (framework detection) can reuse the same directory set Classify saw
// without re-walking or re-deriving the ignore list.
func (c *Classifier) TopLevelDirs(root string) []string {
	return c.topLevelDirs(root)
}

// topLevelDirs lists the immediate subdirectories of root, excluding
// the classifier's ignore list.
func (c *Classifier) topLevelDirs(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	ignore := make(map[string]bool, len(c.config.IgnoreDirs))
	for _, d := range c.config.IgnoreDirs {
		ignore[d] = true
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || ignore[e.Name()] {
			continue
		}
		dirs = append(dirs, e.Name())
	}
	return dirs
}

// isLibraryShaped reports whether the project looks like a library:
// no web/CLI entry point and no dependency-based signal at all.
func isLibraryShaped(manifest model.ManifestMetadata, topDirs []string) bool {
	hasFrameworkDep := false
	for dep := range manifest.Dependencies {
		for token := range dependencySignals {
			if strings.Contains(strings.ToLower(dep), token) {
				hasFrameworkDep = true
			}
		}
	}
	hasAppDir := false
	for _, d := range topDirs {
		if d == "cmd" || d == "pages" || d == "app" || d == "src" {
			hasAppDir = true
		}
	}
	return !hasFrameworkDep && !hasAppDir
}

// rankTypes picks the highest-scoring project type as primary and
// returns any other type scoring at least half the primary's weight as
// secondary, in descending score order.
func rankTypes(scores map[model.ProjectType]float64) (model.ProjectType, []model.ProjectType) {
	if len(scores) == 0 {
		return "", nil
	}
	type entry struct {
		t model.ProjectType
		s float64
	}
	var entries []entry
	for t, s := range scores {
		entries = append(entries, entry{t, s})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].s != entries[j].s {
			return entries[i].s > entries[j].s
		}
		return entries[i].t < entries[j].t
	})

	primary := entries[0].t
	var secondary []model.ProjectType
	for _, e := range entries[1:] {
		if e.s >= entries[0].s/2 {
			secondary = append(secondary, e.t)
		}
	}
	return primary, secondary
}

// directoryDomainHints turns directory names into coarse business-domain
// hints consumed by pkg/domain as a prior alongside segment evidence.
func directoryDomainHints(topDirs []string) []string {
	hintMap := map[string]string{
		"auth": "authentication", "users": "user-management", "billing": "payment-processing",
		"payments": "payment-processing", "cart": "e-commerce", "products": "e-commerce",
		"cms": "content-management", "notifications": "notification", "analytics": "analytics",
		"chat": "communication", "messages": "communication", "etl": "data-pipeline",
		"gateway": "api-gateway", "reports": "reporting",
	}
	var hints []string
	for _, d := range topDirs {
		if hint, ok := hintMap[strings.ToLower(d)]; ok {
			hints = append(hints, hint)
		}
	}
	return hints
}
