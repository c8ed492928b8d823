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

package ingestion

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	tsx "github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kraklabs/hcaa/pkg/model"
)

const defaultMaxCodeTextSize = 16 * 1024

// TreeSitterParser extracts code segments from source files using
// Tree-sitter grammars. A single instance is safe to share across the
// worker pool: state mutated per-parse (truncation counters) uses
// atomic operations, and the underlying sitter.Parser objects are
// built fresh per call so concurrent ParseFile invocations don't race
// on tree-sitter's internal parser state.
type TreeSitterParser struct {
	logger          *slog.Logger
	maxCodeTextSize int64
	truncatedCount  int64
}

// NewTreeSitterParser creates a parser that dispatches to the
// appropriate language grammar based on FileInfo.Language.
func NewTreeSitterParser(logger *slog.Logger) *TreeSitterParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &TreeSitterParser{
		logger:          logger,
		maxCodeTextSize: defaultMaxCodeTextSize,
	}
}

// SetMaxCodeTextSize sets the maximum size for CodeText (in bytes).
func (p *TreeSitterParser) SetMaxCodeTextSize(size int64) {
	if size > 0 {
		p.maxCodeTextSize = size
	}
}

// GetTruncatedCount returns the number of CodeTexts that were truncated.
func (p *TreeSitterParser) GetTruncatedCount() int {
	return int(atomic.LoadInt64(&p.truncatedCount))
}

// ResetTruncatedCount resets the truncation counter.
func (p *TreeSitterParser) ResetTruncatedCount() {
	atomic.StoreInt64(&p.truncatedCount, 0)
}

// ParseFile dispatches to the language-specific walker for the file's
// detected language. Files in languages without a registered front-end
// yield an empty result, not an error.
func (p *TreeSitterParser) ParseFile(fileInfo FileInfo) (*ParseResult, error) {
	content, err := readFileBounded(fileInfo.FullPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileInfo.Path, err)
	}

	var segments []model.CodeSegment

	switch fileInfo.Language {
	case "typescript":
		segments, err = p.parseWithGrammar(content, fileInfo.Path, typescript.GetLanguage(), model.LanguageTypeScript)
	case "tsx":
		segments, err = p.parseWithGrammar(content, fileInfo.Path, tsx.GetLanguage(), model.LanguageTypeScript)
	case "javascript":
		segments, err = p.parseWithGrammar(content, fileInfo.Path, javascript.GetLanguage(), model.LanguageJavaScript)
	case "java":
		segments, err = p.parseJavaAST(content, fileInfo.Path)
	case "python":
		segments, err = p.parsePythonAST(content, fileInfo.Path)
	case "rust":
		segments, err = p.parseRustAST(content, fileInfo.Path)
	default:
		return &ParseResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	return &ParseResult{Segments: segments}, nil
}

// truncateCodeText bounds codeText to p.maxCodeTextSize, marking the
// segment truncated and bumping the shared counter when it cuts.
func (p *TreeSitterParser) truncateCodeText(codeText string) (string, bool) {
	if int64(len(codeText)) <= p.maxCodeTextSize {
		return codeText, false
	}
	atomic.AddInt64(&p.truncatedCount, 1)
	return codeText[:p.maxCodeTextSize] + "\n// ... truncated", true
}

// countErrors counts ERROR nodes in a tree-sitter parse tree.
func countErrors(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	if node.HasError() && node.Type() == "ERROR" {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countErrors(node.Child(i))
	}
	return count
}

// nodeText extracts the source text spanned by a node.
func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return string(content[node.StartByte():node.EndByte()])
}

// segmentRange builds the line/column/byte metadata shared by every
// language front-end's segment construction.
func segmentRange(node *sitter.Node) (startLine, endLine int, rng model.ByteRange) {
	startLine = int(node.StartPoint().Row) + 1
	endLine = int(node.EndPoint().Row) + 1
	rng = model.ByteRange{Start: int(node.StartByte()), End: int(node.EndByte())}
	return
}

// readFileBounded reads a file's contents in full; size gating already
// happened in repo_loader's walk (maxFileSize), so no further bound is
// applied here.
func readFileBounded(path string) ([]byte, error) {
	return os.ReadFile(path)
}
