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

package context

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sync"

	"github.com/kraklabs/hcaa/pkg/model"
)

// cacheKey pairs an absolute path with a content hash. Two entries with
// the same path but different hashes are different cache generations;
// a lookup with a stale hash is a deliberate miss, not an error.
type cacheKey struct {
	absPath string
	hash    string
}

// HashContent returns the hex-encoded SHA-256 digest of content, used as
// the cache-invalidation half of every tier's key.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// TieredCache holds the three cache tiers the hierarchical context
// manager reads from: one project-level entry, one file-level entry per
// parsed file, and one segment-level entry per extracted segment. All
// three are keyed by absolute path + content hash so a changed file (or
// a changed project manifest) invalidates only the entries whose hash no
// longer matches, rather than the whole cache.
type TieredCache struct {
	mu       sync.RWMutex
	project  map[cacheKey]model.ProjectContext
	files    map[cacheKey]model.FileContext
	segments map[cacheKey]model.EnhancedSegmentContext
}

// NewTieredCache creates an empty three-tier cache.
func NewTieredCache() *TieredCache {
	return &TieredCache{
		project:  make(map[cacheKey]model.ProjectContext),
		files:    make(map[cacheKey]model.FileContext),
		segments: make(map[cacheKey]model.EnhancedSegmentContext),
	}
}

// PutProject stores the project-tier entry keyed by the project root's
// absolute path and a hash of its manifest content.
func (c *TieredCache) PutProject(absRoot string, manifestHash string, ctx model.ProjectContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project[cacheKey{absPath: absRoot, hash: manifestHash}] = ctx
}

// GetProject returns the cached project context if absRoot's manifest
// hash still matches what was stored.
func (c *TieredCache) GetProject(absRoot, manifestHash string) (model.ProjectContext, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ctx, ok := c.project[cacheKey{absPath: absRoot, hash: manifestHash}]
	return ctx, ok
}

// PutFile stores the file-tier entry keyed by an absolute file path and
// a hash of that file's content.
func (c *TieredCache) PutFile(absPath, contentHash string, ctx model.FileContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[cacheKey{absPath: absPath, hash: contentHash}] = ctx
}

// GetFile returns the cached file context if absPath's content hash
// still matches what was stored; a hash mismatch is a cache miss, not
// an error, and the caller re-derives the file context from the arena.
func (c *TieredCache) GetFile(absPath, contentHash string) (model.FileContext, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ctx, ok := c.files[cacheKey{absPath: absPath, hash: contentHash}]
	return ctx, ok
}

// PutSegment stores the segment-tier entry keyed by the segment's ID
// (already content-addressed, so the hash component is fixed) and the
// enclosing file's absolute path.
func (c *TieredCache) PutSegment(absPath, segmentID string, ctx model.EnhancedSegmentContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments[cacheKey{absPath: absPath, hash: segmentID}] = ctx
}

// GetSegment returns the cached enhanced segment context, if present.
func (c *TieredCache) GetSegment(absPath, segmentID string) (model.EnhancedSegmentContext, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ctx, ok := c.segments[cacheKey{absPath: absPath, hash: segmentID}]
	return ctx, ok
}

// AbsPath is a small wrapper around filepath.Abs that collapses the
// error case to the original path, since the context manager treats an
// unresolvable absolute path as a plain (and therefore always-missing)
// cache key rather than a hard failure.
func AbsPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
