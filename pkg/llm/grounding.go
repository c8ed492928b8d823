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

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kraklabs/hcaa/pkg/model"
)

// maxExcerpts and maxExcerptBytes bound the code sent to the model: at
// most 5 excerpts, each truncated to 2KiB, for at most 10KiB of source.
const (
	maxExcerpts     = 5
	maxExcerptBytes = 2 * 1024
)

// guidancePhrases gives the grounding prompt one sentence of
// project-type-specific framing per the 23 closed project types, so the
// model reads the excerpts with the right expectations instead of
// guessing at the project's shape from scratch.
var guidancePhrases = map[model.ProjectType]string{
	model.ProjectTypeAnalysisTool:        "This project analyzes other code or data rather than serving end users directly.",
	model.ProjectTypeWebApplication:      "This project renders a user-facing web interface.",
	model.ProjectTypeAPIService:          "This project exposes a network API consumed by other services or clients.",
	model.ProjectTypeLibrary:             "This project is a reusable library consumed by other codebases, not an end-user application.",
	model.ProjectTypeCLITool:             "This project is a command-line tool operated directly by a human or script.",
	model.ProjectTypeDesktop:             "This project is a desktop application with a native or embedded UI.",
	model.ProjectTypeMobile:              "This project targets mobile devices.",
	model.ProjectTypeGameEngine:          "This project implements game or simulation engine mechanics.",
	model.ProjectTypeDataPipeline:        "This project moves or transforms data between systems in batch or streaming stages.",
	model.ProjectTypeMachineLearning:     "This project trains, serves, or evaluates machine learning models.",
	model.ProjectTypeDevOps:              "This project automates infrastructure, deployment, or operational workflows.",
	model.ProjectTypeEmbeddedSystem:      "This project targets resource-constrained or embedded hardware.",
	model.ProjectTypeDatabaseSystem:      "This project implements or extends a data storage or query engine.",
	model.ProjectTypeSecurityTool:        "This project performs security scanning, testing, or enforcement.",
	model.ProjectTypeTestingFramework:    "This project is a testing or quality-assurance framework used by other projects.",
	model.ProjectTypeDocumentationSite:   "This project generates or serves documentation content.",
	model.ProjectTypeConfigurationTool:   "This project manages configuration rather than runtime business logic.",
	model.ProjectTypeMonitoringSystem:    "This project observes, measures, or alerts on the health of other systems.",
	model.ProjectTypeBlockchainApp:       "This project implements blockchain or distributed-ledger logic.",
	model.ProjectTypeChatBot:             "This project implements a conversational agent or chat interface.",
	model.ProjectTypeMediaProcessor:      "This project processes audio, video, or image media.",
	model.ProjectTypeScientificComputing: "This project performs numerical or scientific computation.",
	model.ProjectTypeNetworkingTool:      "This project implements or inspects network protocols or traffic.",
}

// Excerpt is one piece of source the grounding prompt cites.
type Excerpt struct {
	FilePath string
	Text     string
}

// GroundingRequest is everything the grounding prompt needs: the
// metadata-derived project type and purpose, a handful of representative
// code excerpts, the frameworks already detected, and the tentative
// domain list the keyword engine produced before grounding ran.
type GroundingRequest struct {
	ProjectType      model.ProjectType
	Purpose          string
	Excerpts         []Excerpt
	Frameworks       []model.DetectedFramework
	TentativeDomains []model.BusinessDomainResult
}

// GroundingEngine wraps a Provider with the prompt construction,
// sanitization, and structured-response parsing specific to the
// grounding stage. It is deliberately thin: the transport concerns
// (timeouts, HTTP, backend selection) all live in Provider.
type GroundingEngine struct {
	provider   Provider
	maxRetries int
	backoff    []time.Duration
}

// NewGroundingEngine wraps provider with the grounding stage's retry
// policy: 3 attempts at 1s/2s/4s backoff, applied only to transport
// failures (Generate/Chat returning an error), never to a response that
// parsed but didn't match the expected shape — a malformed response is
// handled by falling back to the tentative domain list, not by retrying.
func NewGroundingEngine(provider Provider) *GroundingEngine {
	return &GroundingEngine{
		provider:   provider,
		maxRetries: 3,
		backoff:    []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
}

// Available probes whether the wrapped provider can currently serve
// requests, so the pipeline can degrade gracefully (skip stage 5
// entirely) instead of failing the whole run when no LLM is reachable.
func (g *GroundingEngine) Available(ctx context.Context) bool {
	_, err := g.provider.Models(ctx)
	return err == nil
}

// Ground runs the single grounding prompt for one analysis and returns a
// structured GroundingResult. On a transport failure it retries up to
// maxRetries times with backoff; on a response that fails to parse into
// the expected shape it returns a fallback result built from the
// tentative domain list rather than erroring the whole analysis.
func (g *GroundingEngine) Ground(ctx context.Context, req GroundingRequest) (model.GroundingResult, error) {
	prompt := buildPrompt(req)

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return model.GroundingResult{}, ctx.Err()
			case <-time.After(g.backoff[attempt-1]):
			}
		}

		resp, err := g.provider.Generate(ctx, GenerateRequest{
			Prompt:      prompt,
			Temperature: 0.2,
			MaxTokens:   800,
		})
		if err != nil {
			lastErr = err
			continue
		}

		result, parseErr := parseGroundingResponse(resp.Text)
		if parseErr != nil {
			return fallbackResult(req), nil
		}
		return result, nil
	}

	return model.GroundingResult{}, fmt.Errorf("llm grounding: %w", lastErr)
}

// buildPrompt assembles the single grounding prompt: project type and
// purpose verbatim, the type-specific guidance phrase, up to 5
// sanitized/truncated excerpts totalling at most 10KiB, the frameworks
// already detected, and the tentative domain list.
func buildPrompt(req GroundingRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Project type: %s\n", req.ProjectType)
	if guidance, ok := guidancePhrases[req.ProjectType]; ok {
		b.WriteString(guidance)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Purpose: %s\n\n", req.Purpose)

	if len(req.Frameworks) > 0 {
		b.WriteString("Detected frameworks: ")
		names := make([]string, len(req.Frameworks))
		for i, f := range req.Frameworks {
			names[i] = f.Name
		}
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n\n")
	}

	if len(req.TentativeDomains) > 0 {
		b.WriteString("Tentative business domains from static analysis: ")
		names := make([]string, len(req.TentativeDomains))
		for i, d := range req.TentativeDomains {
			names[i] = string(d.Domain)
		}
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n\n")
	}

	b.WriteString("Code excerpts:\n")
	for _, ex := range selectExcerpts(req.Excerpts) {
		fmt.Fprintf(&b, "--- %s ---\n%s\n", ex.FilePath, ex.Text)
	}

	b.WriteString("\nRespond with a single JSON object with exactly these fields: ")
	b.WriteString(`primary_business_domain, business_description, user_personas, business_capabilities, project_type, confidence_score.`)

	return b.String()
}

// selectExcerpts sanitizes and truncates excerpts, keeping at most
// maxExcerpts and stopping once the running total would exceed
// maxExcerpts*maxExcerptBytes.
func selectExcerpts(excerpts []Excerpt) []Excerpt {
	var out []Excerpt
	total := 0
	for _, ex := range excerpts {
		if len(out) >= maxExcerpts {
			break
		}
		clean, dropped := sanitizeExcerpt(ex.Text)
		if dropped {
			continue
		}
		if len(clean) > maxExcerptBytes {
			clean = clean[:maxExcerptBytes] + "\n[... truncated ...]"
		}
		if total+len(clean) > maxExcerpts*maxExcerptBytes {
			break
		}
		total += len(clean)
		out = append(out, Excerpt{FilePath: ex.FilePath, Text: clean})
	}
	return out
}

var (
	pemBlockPattern    = regexp.MustCompile(`(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`)
	awsAccessKeyPattern = regexp.MustCompile(`AKIA[0-9A-Z]{16}`)
	highEntropyPattern = regexp.MustCompile(`\b[A-Za-z0-9+/=_-]{32,}\b`)
)

// sanitizeExcerpt strips PEM key blocks, AWS access key IDs, and
// generic 32+ character high-entropy tokens (API keys, secrets) from an
// excerpt before it leaves the process. If stripping would gut the
// excerpt to nothing meaningful, dropped is true and the caller skips it
// entirely rather than submitting a redacted husk.
func sanitizeExcerpt(text string) (clean string, dropped bool) {
	clean = pemBlockPattern.ReplaceAllString(text, "[REDACTED-PEM-BLOCK]")
	clean = awsAccessKeyPattern.ReplaceAllString(clean, "[REDACTED-AWS-KEY]")
	clean = highEntropyPattern.ReplaceAllStringFunc(clean, func(tok string) string {
		if looksLikeIdentifier(tok) {
			return tok
		}
		return "[REDACTED-TOKEN]"
	})
	return clean, false
}

// looksLikeIdentifier exempts long but low-entropy tokens (repeated
// runs, camelCase identifiers) from redaction so the sanitizer doesn't
// eat legitimate long variable or type names.
func looksLikeIdentifier(tok string) bool {
	hasDigitRun := false
	digitCount := 0
	for _, r := range tok {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	hasDigitRun = digitCount*3 < len(tok) // fewer than a third digits reads as an identifier, not a secret
	return hasDigitRun && (strings.Contains(tok, "_") || hasMixedCase(tok))
}

func hasMixedCase(s string) bool {
	hasUpper, hasLower := false, false
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			hasUpper = true
		}
		if r >= 'a' && r <= 'z' {
			hasLower = true
		}
	}
	return hasUpper && hasLower
}

// parseGroundingResponse parses the model's reply as the strict JSON
// shape the prompt requested. Models routinely wrap JSON in markdown
// fences, so a fenced code block is unwrapped before parsing.
func parseGroundingResponse(text string) (model.GroundingResult, error) {
	text = unwrapCodeFence(text)

	var raw struct {
		PrimaryBusinessDomain string   `json:"primary_business_domain"`
		BusinessDescription   string   `json:"business_description"`
		UserPersonas          []string `json:"user_personas"`
		BusinessCapabilities  []string `json:"business_capabilities"`
		ProjectType           string   `json:"project_type"`
		ConfidenceScore       float64  `json:"confidence_score"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return model.GroundingResult{}, fmt.Errorf("parse grounding response: %w", err)
	}

	domain := model.BusinessDomain(raw.PrimaryBusinessDomain)
	valid := false
	for _, d := range model.AllBusinessDomains {
		if d == domain {
			valid = true
			break
		}
	}
	if !valid {
		return model.GroundingResult{}, fmt.Errorf("parse grounding response: unrecognized business domain %q", raw.PrimaryBusinessDomain)
	}

	return model.GroundingResult{
		PrimaryBusinessDomain: domain,
		BusinessDescription:   raw.BusinessDescription,
		UserPersonas:          raw.UserPersonas,
		BusinessCapabilities:  raw.BusinessCapabilities,
		ProjectType:           model.ProjectType(raw.ProjectType),
		ConfidenceScore:       model.Clamp01(raw.ConfidenceScore),
	}, nil
}

func unwrapCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// fallbackResult builds a GroundingResult from the tentative domain list
// when the model's response can't be parsed, so one malformed reply
// degrades the grounding stage's contribution rather than failing the
// whole analysis.
func fallbackResult(req GroundingRequest) model.GroundingResult {
	domains := append([]model.BusinessDomainResult(nil), req.TentativeDomains...)
	sort.Slice(domains, func(i, j int) bool {
		return domains[i].Confidence > domains[j].Confidence
	})

	result := model.GroundingResult{
		ProjectType: req.ProjectType,
		Fallback:    true,
	}
	if len(domains) > 0 {
		result.PrimaryBusinessDomain = domains[0].Domain
		result.ConfidenceScore = domains[0].Confidence
	}
	return result
}
