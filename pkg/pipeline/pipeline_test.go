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

package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/hcaa/internal/config"
	"github.com/kraklabs/hcaa/pkg/cache"
	"github.com/kraklabs/hcaa/pkg/model"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeProjectFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func newTestProject(t *testing.T) string {
	dir := t.TempDir()
	writeProjectFile(t, dir, "package.json", `{
		"name": "orders-api",
		"version": "0.1.0",
		"dependencies": {"express": "^4.18.0"}
	}`)
	writeProjectFile(t, dir, "README.md", "# Orders API\n\nThis service supports order creation and refunds.\n")
	writeProjectFile(t, dir, "routes/orders.ts", `import express from "express";

export function listOrders(req, res) {
  res.json({ orders: [] });
}

const router = express.Router();
router.get("/orders", listOrders);
export default router;
`)
	return dir
}

func TestPipelineRunProducesFusedResultWithoutGrounding(t *testing.T) {
	dir := newTestProject(t)
	cfg, err := config.Load(dir, config.Config{})
	require.NoError(t, err)
	cfg.Cache.Enabled = false

	p := New(cfg, silentLogger(), nil)
	result, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.ProjectTypeAPIService, result.Fused.ProjectContext.ProjectType)
	assert.NotEmpty(t, result.Fused.Frameworks)
	assert.Nil(t, result.Fused.TierBreakdown.LLMGrounding)
	assert.NotNil(t, result.Context)
	assert.Greater(t, result.Context.SegmentCount(), 0)
}

func TestPipelineRunWithGroundingEnabledFallsBackOnUnparsableMockResponse(t *testing.T) {
	dir := newTestProject(t)
	cfg, err := config.Load(dir, config.Config{
		LLM: config.LLMConfig{Enabled: true, Provider: "mock"},
	})
	require.NoError(t, err)
	cfg.Cache.Enabled = false

	p := New(cfg, silentLogger(), nil)
	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, result.Fused.TierBreakdown.LLMGrounding)
	assert.False(t, result.Fused.HasErrorDiagnostic())
}

func TestPipelineRunHitsCacheOnSecondInvocation(t *testing.T) {
	dir := newTestProject(t)
	cfg, err := config.Load(dir, config.Config{})
	require.NoError(t, err)
	store := cache.NewMemoryStore()

	p := New(cfg, silentLogger(), store)
	first, err := p.Run(context.Background())
	require.NoError(t, err)

	second, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Fused.PrimaryDomain, second.Fused.PrimaryDomain)
	assert.Nil(t, second.Context)
}

func TestPipelineRunInvalidatesCacheOnSourceEditWithoutManifestBump(t *testing.T) {
	dir := newTestProject(t)
	cfg, err := config.Load(dir, config.Config{})
	require.NoError(t, err)
	store := cache.NewMemoryStore()

	p := New(cfg, silentLogger(), store)
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	loadResult, err := p.loadRepository(dir)
	require.NoError(t, err)
	firstKey, err := p.cacheKey(dir, loadResult.Files)
	require.NoError(t, err)

	// Edit a source file without touching package.json's version — the
	// cache key must still change.
	writeProjectFile(t, dir, "routes/orders.ts", `import express from "express";

export function listOrders(req, res) {
  res.json({ orders: [], total: 0 });
}

const router = express.Router();
router.get("/orders", listOrders);
export default router;
`)

	loadResult, err = p.loadRepository(dir)
	require.NoError(t, err)
	secondKey, err := p.cacheKey(dir, loadResult.Files)
	require.NoError(t, err)

	assert.NotEqual(t, firstKey, secondKey)
}
