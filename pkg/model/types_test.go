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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidProjectTypeAcceptsEnumeratedVariant(t *testing.T) {
	assert.True(t, IsValidProjectType(ProjectTypeAPIService))
	assert.False(t, IsValidProjectType(ProjectType("not-a-real-type")))
}

func TestClamp01BoundsToUnitInterval(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.42, Clamp01(0.42))
}

func TestHasErrorDiagnosticDetectsErrorSeverity(t *testing.T) {
	clean := FusedResult{Diagnostics: []Diagnostic{{Severity: DiagnosticWarning}}}
	assert.False(t, clean.HasErrorDiagnostic())

	withError := FusedResult{Diagnostics: []Diagnostic{
		{Severity: DiagnosticWarning},
		{Severity: DiagnosticError},
	}}
	assert.True(t, withError.HasErrorDiagnostic())
}
