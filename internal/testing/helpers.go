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

// Package testing provides fixture builders shared by the hcaa test
// suites. It has no dependency on the production pipeline packages so
// it can be imported from any package's _test.go without import cycles.
package testing

import (
	"testing"

	"github.com/kraklabs/hcaa/pkg/model"
)

// NewSegment builds a minimal, valid model.CodeSegment for tests,
// overriding only the fields a test cares about.
//
// Example:
//
//	seg := testing.NewSegment(t, "auth.ts", model.SegmentFunction, "login")
func NewSegment(t *testing.T, filePath string, kind model.SegmentKind, name string) model.CodeSegment {
	t.Helper()

	return model.CodeSegment{
		ID:        "seg:" + filePath + ":" + name,
		Kind:      kind,
		Language:  model.LanguageTypeScript,
		FilePath:  filePath,
		Range:     model.ByteRange{Start: 0, End: 1},
		StartLine: 1,
		EndLine:   1,
		CodeText:  "// " + name,
		Metadata:  model.StructuralMetadata{Name: name},
	}
}

// NewProjectContext builds a minimal ProjectContext for tests.
func NewProjectContext(t *testing.T, projectType model.ProjectType) model.ProjectContext {
	t.Helper()

	return model.ProjectContext{
		ProjectType: projectType,
		Purpose:     "test fixture",
		EntryPoints: []model.EntryPoint{{Path: "src/index.ts", Kind: model.EntryPointWebEntry}},
		Manifest:    model.ManifestMetadata{PackageName: "fixture"},
	}
}

// NewClaim builds a minimal DocumentationClaim for tests.
func NewClaim(t *testing.T, id, text string) model.DocumentationClaim {
	t.Helper()

	return model.DocumentationClaim{
		ID:       id,
		Kind:     model.ClaimKindFeature,
		Text:     text,
		Priority: model.ClaimPriorityMedium,
		Location: model.SourceLocation{DocPath: "README.md", StartLine: 1, EndLine: 1},
	}
}
