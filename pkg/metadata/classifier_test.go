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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/hcaa/pkg/model"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644))
}

func TestClassifyDetectsAPIServiceFromPackageJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{
		"name": "orders-api",
		"version": "1.2.0",
		"main": "src/index.js",
		"dependencies": {"express": "^4.18.0"}
	}`)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "routes"), 0755))

	c := NewClassifier(DefaultClassifierConfig())
	ctx, err := c.Classify(dir)
	require.NoError(t, err)

	assert.Equal(t, model.ProjectTypeAPIService, ctx.ProjectType)
	assert.Equal(t, "orders-api", ctx.Manifest.PackageName)
	assert.Equal(t, "1.2.0", ctx.Manifest.Version)
	require.Len(t, ctx.EntryPoints, 1)
	assert.Equal(t, "src/index.js", ctx.EntryPoints[0].Path)
}

func TestClassifyFallsBackToLibraryWithNoManifestOrAppDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "lib"), 0755))

	c := NewClassifier(DefaultClassifierConfig())
	ctx, err := c.Classify(dir)
	require.NoError(t, err)

	assert.Equal(t, model.ProjectTypeLibrary, ctx.ProjectType)
}

func TestClassifyDerivesDomainHintsFromTopLevelDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "auth"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "billing"), 0755))

	c := NewClassifier(DefaultClassifierConfig())
	ctx, err := c.Classify(dir)
	require.NoError(t, err)

	assert.Contains(t, ctx.DomainHints, "authentication")
	assert.Contains(t, ctx.DomainHints, "payment-processing")
}

func TestTopLevelDirsExcludesIgnoredAndHiddenEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "node_modules"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0755))
	writeFile(t, dir, "README.md", "# hi")

	c := NewClassifier(DefaultClassifierConfig())
	dirs := c.TopLevelDirs(dir)

	assert.ElementsMatch(t, []string{"src"}, dirs)
}

func TestReadManifestPrefersPackageJSONOverOtherManifests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name": "svc", "dependencies": {}}`)
	writeFile(t, dir, "requirements.txt", "flask==2.0.0\n")

	manifest, _, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "svc", manifest.PackageName)
}

func TestReadManifestReturnsEmptyWhenNoneFound(t *testing.T) {
	dir := t.TempDir()

	manifest, entryPoints, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Empty(t, manifest.PackageName)
	assert.Nil(t, entryPoints)
}
