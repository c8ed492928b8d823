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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/kraklabs/hcaa/internal/config"
	hcaacontext "github.com/kraklabs/hcaa/pkg/context"
	"github.com/kraklabs/hcaa/pkg/docs"
	"github.com/kraklabs/hcaa/pkg/domain"
	"github.com/kraklabs/hcaa/pkg/framework"
	"github.com/kraklabs/hcaa/pkg/fusion"
	"github.com/kraklabs/hcaa/pkg/ingestion"
	"github.com/kraklabs/hcaa/pkg/llm"
	"github.com/kraklabs/hcaa/pkg/metadata"
	"github.com/kraklabs/hcaa/pkg/model"

	"github.com/kraklabs/hcaa/pkg/cache"
)

// Pipeline orchestrates the six analysis stages against one project root.
// A Pipeline is built once per run from an immutable config.Config; it
// holds no mutable run state between calls to Run.
type Pipeline struct {
	config config.Config
	logger *slog.Logger
	store  cache.Store
}

// New creates a Pipeline for the given config. store may be nil, in
// which case the run-level cache short-circuit is skipped.
func New(cfg config.Config, logger *slog.Logger, store cache.Store) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{config: cfg, logger: logger, store: store}
}

// Result is everything one pipeline run produces: the stable FusedResult
// document plus the in-memory context manager built over its segments,
// which a caller (the CLI, or a future query surface) can use to look up
// a single segment's enhanced context without re-deriving the arena.
type Result struct {
	Fused   model.FusedResult
	Context *hcaacontext.Manager
}

// Run executes all six stages against root and returns the final fused
// result. A cache hit short-circuits everything after the repository
// file list is walked, before the expensive tree-sitter parse.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	root := p.config.ProjectRoot
	p.logger.Info("pipeline.run.start", "root", root)

	var diagnostics []model.Diagnostic
	var timing model.AnalysisTiming

	// Stage 1: project context.
	stage1Start := time.Now()
	project, claims, err := p.buildProjectContext(root)
	if err != nil {
		return nil, fmt.Errorf("stage 1 (project context): %w", err)
	}
	timing.ProjectContextMS = time.Since(stage1Start).Milliseconds()
	RecordStageDuration("project_context", time.Since(stage1Start).Seconds())
	p.logger.Info("pipeline.stage1.complete", "project_type", project.ProjectType, "claims", len(claims))

	loadResult, err := p.loadRepository(root)
	if err != nil {
		return nil, fmt.Errorf("stage 2 (repository load): %w", err)
	}

	cacheKey, err := p.cacheKey(root, loadResult.Files)
	if err != nil {
		p.logger.Warn("pipeline.cache.key.error", "err", err)
	} else if cached, ok := p.readCache(cacheKey); ok {
		p.logger.Info("pipeline.cache.hit", "key", cacheKey)
		return &Result{Fused: cached}, nil
	}

	// Stage 2: segment extraction.
	stage2Start := time.Now()
	segments, segDiagnostics, err := p.extractSegments(ctx, loadResult)
	if err != nil {
		return nil, fmt.Errorf("stage 2 (segment extraction): %w", err)
	}
	diagnostics = append(diagnostics, segDiagnostics...)
	timing.SegmentExtractionMS = time.Since(stage2Start).Milliseconds()
	RecordStageDuration("segment_extraction", time.Since(stage2Start).Seconds())
	p.logger.Info("pipeline.stage2.complete", "segments", len(segments))

	contextMgr := hcaacontext.NewManager(root, project, segments)

	// Stage 3: framework detection.
	stage3Start := time.Now()
	classifier := metadata.NewClassifier(metadata.DefaultClassifierConfig())
	topDirs := classifier.TopLevelDirs(root)
	detector, err := framework.NewDetector()
	if err != nil {
		return nil, fmt.Errorf("stage 3 (framework detector init): %w", err)
	}
	frameworks := detector.Detect(project.Manifest, segments, topDirs)
	timing.FrameworkDetectionMS = time.Since(stage3Start).Milliseconds()
	RecordStageDuration("framework_detection", time.Since(stage3Start).Seconds())
	p.logger.Info("pipeline.stage3.complete", "frameworks", len(frameworks))
	RecordOutputCardinality(len(segments), len(frameworks))

	// Documentation reality and conflicts do not depend on grounding, so
	// they're computed once and reused by both the initial and final fusion.
	realities := docs.AssessReality(claims, segments)
	conflicts := docs.ResolveConflicts(claims, realities)
	domainEngine := domain.NewEngine()
	projectDomains := domainEngine.Score(segments, project.DomainHints)

	// Stage 4: initial fusion (no grounding yet).
	stage4Start := time.Now()
	initial := fusion.Fuse(fusion.Input{
		ProjectContext: project,
		Frameworks:     frameworks,
		ProjectDomains: projectDomains,
		Conflicts:      conflicts,
		Timing:         timing,
		Diagnostics:    diagnostics,
	})
	timing.FusionMS = time.Since(stage4Start).Milliseconds()
	RecordStageDuration("initial_fusion", time.Since(stage4Start).Seconds())
	p.logger.Info("pipeline.stage4.complete", "primary_domain", initial.PrimaryDomain, "domains", len(initial.BusinessDomains))

	// Stage 5: optional LLM grounding.
	var grounding *model.GroundingResult
	if p.config.LLM.Enabled {
		stage5Start := time.Now()
		result, groundErr := p.ground(ctx, project, frameworks, initial.BusinessDomains, segments)
		timing.LLMGroundingMS = time.Since(stage5Start).Milliseconds()
		RecordStageDuration("llm_grounding", time.Since(stage5Start).Seconds())
		if groundErr != nil {
			p.logger.Warn("pipeline.stage5.skipped", "err", groundErr)
			diagnostics = append(diagnostics, model.Diagnostic{
				Severity:  model.DiagnosticWarning,
				Component: "llm",
				Message:   groundErr.Error(),
			})
			RecordGroundingFallback()
		} else {
			grounding = result
			if result.Fallback {
				RecordGroundingFallback()
			}
			p.logger.Info("pipeline.stage5.complete", "primary_domain", result.PrimaryBusinessDomain, "fallback", result.Fallback)
		}
	} else {
		p.logger.Info("pipeline.stage5.skipped", "reason", "grounding_disabled")
	}

	timing.TotalMS = time.Since(start).Milliseconds()

	// Stage 6: final fused result.
	final := fusion.Fuse(fusion.Input{
		ProjectContext: project,
		Frameworks:     frameworks,
		ProjectDomains: projectDomains,
		Grounding:      grounding,
		Conflicts:      conflicts,
		Timing:         timing,
		Diagnostics:    diagnostics,
	})
	p.logger.Info("pipeline.stage6.complete",
		"primary_domain", final.PrimaryDomain,
		"readiness_score", final.ReadinessScore,
		"total_ms", timing.TotalMS,
	)

	if cacheKey != "" {
		p.writeCache(cacheKey, final)
	}

	return &Result{Fused: final, Context: contextMgr}, nil
}

// buildProjectContext runs the stage-1 classifier and documentation
// claims extractor, then folds the claims into the project's
// documentation analysis and derives a one-line purpose from the
// highest-priority claim when the classifier couldn't infer one.
func (p *Pipeline) buildProjectContext(root string) (model.ProjectContext, []model.DocumentationClaim, error) {
	classifier := metadata.NewClassifier(metadata.DefaultClassifierConfig())
	project, err := classifier.Classify(root)
	if err != nil {
		return model.ProjectContext{}, nil, err
	}

	claims, err := docs.ExtractClaims(root)
	if err != nil {
		p.logger.Warn("pipeline.stage1.claims.error", "err", err)
		claims = nil
	}
	project.Documentation = model.DocumentationAnalysis{Claims: claims}
	project.Purpose = purposeFromClaims(claims)

	return project, claims, nil
}

// purposeFromClaims picks the text of the earliest high-priority claim as
// a one-line purpose description, falling back to the first claim of any
// priority, or an empty string if there are none.
func purposeFromClaims(claims []model.DocumentationClaim) string {
	for _, c := range claims {
		if c.Priority == model.ClaimPriorityHigh {
			return c.Text
		}
	}
	if len(claims) > 0 {
		return claims[0].Text
	}
	return ""
}

// loadRepository walks the project tree once, ahead of segment
// extraction, so the cache key can be derived from the file list before
// paying for the much more expensive tree-sitter parse.
func (p *Pipeline) loadRepository(root string) (*ingestion.LoadResult, error) {
	loader := ingestion.NewRepoLoader(p.logger)
	loadResult, err := loader.LoadRepository(root, p.config.ExcludeGlobs, p.config.MaxFileSizeBytes)
	if err != nil {
		return nil, err
	}
	sort.Slice(loadResult.Files, func(i, j int) bool { return loadResult.Files[i].Path < loadResult.Files[j].Path })
	return loadResult, nil
}

// extractSegments runs stage 2: parse every surviving file on a bounded
// worker pool.
func (p *Pipeline) extractSegments(ctx context.Context, loadResult *ingestion.LoadResult) ([]model.CodeSegment, []model.Diagnostic, error) {
	parser := ingestion.NewDefaultParser(p.logger)
	if p.config.MaxFileSizeBytes > 0 {
		parser.SetMaxCodeTextSize(p.config.MaxFileSizeBytes)
	}

	segments, diagnostics, failed := ingestion.ExtractSegments(ctx, loadResult.Files, parser, p.config.ParseWorkers)
	if failed > 0 {
		p.logger.Warn("pipeline.stage2.parse_errors", "failed", failed, "total", len(loadResult.Files))
	}
	return segments, diagnostics, nil
}

// ground runs stage 5: it builds a provider from config, wraps it in a
// GroundingEngine, and — only if the provider is actually reachable —
// issues the single grounding call for this run.
func (p *Pipeline) ground(ctx context.Context, project model.ProjectContext, frameworks []model.DetectedFramework, tentative []model.BusinessDomainResult, segments []model.CodeSegment) (*model.GroundingResult, error) {
	provider, err := llm.NewProvider(llm.ProviderConfig{
		Type:         p.config.LLM.Provider,
		BaseURL:      p.config.LLM.BaseURL,
		APIKey:       p.config.LLM.APIKey,
		DefaultModel: p.config.LLM.Model,
		Timeout:      p.config.LLM.Timeout,
		MaxRetries:   p.config.LLM.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("build llm provider: %w", err)
	}

	engine := llm.NewGroundingEngine(provider)
	if !engine.Available(ctx) {
		return nil, fmt.Errorf("llm provider %q is not reachable", p.config.LLM.Provider)
	}

	result, err := engine.Ground(ctx, llm.GroundingRequest{
		ProjectType:      project.ProjectType,
		Purpose:          project.Purpose,
		Excerpts:         representativeExcerpts(segments),
		Frameworks:       frameworks,
		TentativeDomains: tentative,
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// representativeExcerpts picks up to the grounding engine's excerpt
// cap worth of source, preferring the segments with the richest
// business indicators so the prompt's limited budget spends on the
// most informative code.
func representativeExcerpts(segments []model.CodeSegment) []llm.Excerpt {
	ranked := make([]model.CodeSegment, len(segments))
	copy(ranked, segments)
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ranked[i].BusinessIndicators) > len(ranked[j].BusinessIndicators)
	})

	const cap = 8 // engine trims further; a small surplus lets it pick the best fit
	if len(ranked) > cap {
		ranked = ranked[:cap]
	}

	excerpts := make([]llm.Excerpt, 0, len(ranked))
	for _, seg := range ranked {
		excerpts = append(excerpts, llm.Excerpt{FilePath: seg.FilePath, Text: seg.CodeText})
	}
	return excerpts
}

// analyzerVersion is folded into the cache key so a change to the
// detection or fusion logic invalidates every previously cached result,
// not just a change to the analyzed project's own files.
const analyzerVersion = "1.0.0"

// cacheKey derives this run's cache key from the project root path, the
// sorted list of per-file content hashes, and analyzerVersion, so a
// source edit that leaves the manifest untouched still invalidates a
// previously cached FusedResult.
func (p *Pipeline) cacheKey(root string, files []ingestion.FileInfo) (string, error) {
	hashes := make([]string, len(files))
	for i, f := range files {
		data, err := os.ReadFile(f.FullPath)
		if err != nil {
			return "", fmt.Errorf("hash %s: %w", f.Path, err)
		}
		sum := sha256.Sum256(data)
		hashes[i] = f.Path + ":" + hex.EncodeToString(sum[:])
	}
	sort.Strings(hashes)

	parts := append([]string{root, analyzerVersion}, hashes...)
	return cache.Key(parts...), nil
}

func (p *Pipeline) readCache(key string) (model.FusedResult, bool) {
	if p.store == nil || !p.config.Cache.Enabled {
		return model.FusedResult{}, false
	}
	data, err := p.store.Get(key)
	if err != nil {
		return model.FusedResult{}, false
	}
	var result model.FusedResult
	if err := json.Unmarshal(data, &result); err != nil {
		return model.FusedResult{}, false
	}
	return result, true
}

func (p *Pipeline) writeCache(key string, result model.FusedResult) {
	if p.store == nil || !p.config.Cache.Enabled {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		p.logger.Warn("pipeline.cache.write.error", "err", err)
		return
	}
	ttl := p.config.Cache.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	if err := p.store.Put(key, data, ttl); err != nil {
		p.logger.Warn("pipeline.cache.write.error", "err", err)
	}
}
