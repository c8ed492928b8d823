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

package domain

import (
	"sort"
	"strings"

	"github.com/kraklabs/hcaa/pkg/model"
)

// keywordTable maps each business domain to the name/path substrings
// that indicate its presence in a segment.
var keywordTable = map[model.BusinessDomain][]string{
	model.DomainAuthentication:    {"auth", "login", "session", "jwt", "oauth", "password"},
	model.DomainUserManagement:    {"user", "profile", "account", "member"},
	model.DomainPaymentProcessing: {"payment", "invoice", "billing", "checkout", "stripe", "charge"},
	model.DomainECommerce:         {"cart", "product", "order", "catalog", "inventory", "sku"},
	model.DomainContentManagement: {"cms", "article", "post", "page", "content", "media"},
	model.DomainNotification:      {"notify", "notification", "alert", "email", "sms", "push"},
	model.DomainAnalytics:         {"analytics", "tracking", "metric", "event", "telemetry"},
	model.DomainCommunication:     {"chat", "message", "conversation", "channel", "thread"},
	model.DomainDataPipeline:      {"etl", "pipeline", "ingest", "transform", "batch", "stream"},
	model.DomainAPIGateway:        {"gateway", "proxy", "router", "middleware", "ratelimit"},
	model.DomainReporting:         {"report", "dashboard", "summary", "export", "aggregate"},
}

// relatedDomains records which domain pairs commonly coexist in one
// codebase versus which usually indicate distinct services; used to
// annotate each result's Relationships field.
var relatedDomains = map[model.BusinessDomain][]model.BusinessDomain{
	model.DomainAuthentication:    {model.DomainUserManagement},
	model.DomainUserManagement:    {model.DomainAuthentication},
	model.DomainECommerce:         {model.DomainPaymentProcessing},
	model.DomainPaymentProcessing: {model.DomainECommerce},
	model.DomainAnalytics:         {model.DomainReporting},
	model.DomainReporting:         {model.DomainAnalytics},
}

// Engine scores the closed set of business domains against a project's
// segments and directory/domain hints.
type Engine struct{}

// NewEngine creates a domain-scoring Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Score evaluates every segment's name, file path, and business
// indicators against the keyword table and returns a result for every
// domain with at least one hit, ordered by descending confidence.
func (e *Engine) Score(segments []model.CodeSegment, domainHints []string) []model.BusinessDomainResult {
	hitCounts := make(map[model.BusinessDomain]int)
	citations := make(map[model.BusinessDomain][]model.EvidenceCitation)

	for _, hint := range domainHints {
		d := model.BusinessDomain(hint)
		hitCounts[d] += 2 // a directory-level hint is stronger than one keyword hit
	}

	for _, seg := range segments {
		haystack := strings.ToLower(seg.FilePath + " " + seg.Metadata.Name + " " + strings.Join(seg.BusinessIndicators, " "))
		for d, keywords := range keywordTable {
			for _, kw := range keywords {
				if strings.Contains(haystack, kw) {
					hitCounts[d]++
					if len(citations[d]) < 5 {
						citations[d] = append(citations[d], model.EvidenceCitation{
							SegmentID: seg.ID,
							FilePath:  seg.FilePath,
							Rationale: "matched keyword \"" + kw + "\" in " + seg.FilePath,
						})
					}
					break
				}
			}
		}
	}

	maxHits := 0
	for _, n := range hitCounts {
		if n > maxHits {
			maxHits = n
		}
	}
	if maxHits == 0 {
		return nil
	}

	var results []model.BusinessDomainResult
	for d, n := range hitCounts {
		if n == 0 {
			continue
		}
		confidence := model.Clamp01(float64(n) / float64(maxHits+2))
		results = append(results, model.BusinessDomainResult{
			Domain:        d,
			Confidence:    confidence,
			Evidence:      citations[d],
			Strategy:      strategyFor(confidence),
			Relationships: relationshipsFor(d, hitCounts),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Domain < results[j].Domain
	})

	return results
}

func strategyFor(confidence float64) model.StoryStrategy {
	switch {
	case confidence >= 0.80:
		return model.StrategyComprehensive
	case confidence >= 0.60:
		return model.StrategyCoreWithCaveats
	default:
		return model.StrategyMentionOnly
	}
}

// relationshipsFor annotates whether a domain's usual companions were
// also detected (complementary) or were conspicuously absent, which
// suggests the companion lives in a separate service.
func relationshipsFor(d model.BusinessDomain, hitCounts map[model.BusinessDomain]int) []model.DomainRelationship {
	companions, ok := relatedDomains[d]
	if !ok {
		return nil
	}
	var out []model.DomainRelationship
	for _, c := range companions {
		if hitCounts[c] > 0 {
			out = append(out, model.RelationshipComplementary)
		} else {
			out = append(out, model.RelationshipPossiblyDistinct)
		}
	}
	return out
}
