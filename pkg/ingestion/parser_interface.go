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

package ingestion

import "github.com/kraklabs/hcaa/pkg/model"

// ParseResult is the outcome of parsing a single source file.
type ParseResult struct {
	Segments []model.CodeSegment
}

// CodeParser defines the interface for language front-ends. Each
// front-end extracts model.CodeSegment values from one file's contents.
type CodeParser interface {
	// ParseFile parses a source file and extracts code segments.
	ParseFile(fileInfo FileInfo) (*ParseResult, error)

	// SetMaxCodeTextSize sets the maximum size for CodeText (in bytes).
	SetMaxCodeTextSize(size int64)

	// GetTruncatedCount returns the number of CodeTexts that were truncated.
	GetTruncatedCount() int

	// ResetTruncatedCount resets the truncation counter.
	ResetTruncatedCount()
}

// Ensure implementations satisfy the interface.
var _ CodeParser = (*TreeSitterParser)(nil)

// ParserMode determines which parser implementation to use for a language.
type ParserMode string

const (
	// ParserModeTreeSitter uses Tree-sitter for accurate AST-based parsing.
	ParserModeTreeSitter ParserMode = "treesitter"

	// ParserModeAuto selects Tree-sitter when a grammar is registered for
	// the file's language, and otherwise yields no segments.
	ParserModeAuto ParserMode = "auto"
)

// DefaultParserMode is the default parser mode.
const DefaultParserMode = ParserModeAuto
