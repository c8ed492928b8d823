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
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/kraklabs/hcaa/pkg/model"
)

// parseRustAST extracts code segments from Rust source using Tree-sitter.
func (p *TreeSitterParser) parseRustAST(content []byte, filePath string) ([]model.CodeSegment, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(rust.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		if errorCount := countErrors(rootNode); errorCount > 0 {
			p.logger.Warn("parser.treesitter.rust.syntax_errors", "path", filePath, "error_count", errorCount)
		}
	}

	var segments []model.CodeSegment
	p.walkRustAST(rootNode, content, filePath, &segments)
	return segments, nil
}

func (p *TreeSitterParser) walkRustAST(node *sitter.Node, content []byte, filePath string, segments *[]model.CodeSegment) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "struct_item":
		if seg := p.extractRustStruct(node, content, filePath); seg != nil {
			*segments = append(*segments, *seg)
		}
	case "trait_item":
		if seg := p.extractRustTrait(node, content, filePath); seg != nil {
			*segments = append(*segments, *seg)
		}
	case "function_item":
		if seg := p.extractRustFunction(node, content, filePath); seg != nil {
			*segments = append(*segments, *seg)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkRustAST(node.Child(i), content, filePath, segments)
	}
}

func (p *TreeSitterParser) extractRustStruct(node *sitter.Node, content []byte, filePath string) *model.CodeSegment {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nodeText(nameNode, content)
	startLine, endLine, rng := segmentRange(node)
	codeText, truncated := p.truncateCodeText(nodeText(node, content))

	kind := model.SegmentModel
	attrs := rustAttributes(node, content)
	for _, a := range attrs {
		if strings.Contains(a, "middleware") {
			kind = model.SegmentMiddleware
		}
	}

	id := GenerateSegmentID(filePath, string(kind), name, rng.Start, rng.End)
	return &model.CodeSegment{
		ID: id, Kind: kind, Language: model.LanguageRust, FilePath: filePath,
		Range: rng, StartLine: startLine, EndLine: endLine, CodeText: codeText, Truncated: truncated,
		Metadata: model.StructuralMetadata{Name: name, Decorators: attrs},
	}
}

func (p *TreeSitterParser) extractRustTrait(node *sitter.Node, content []byte, filePath string) *model.CodeSegment {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nodeText(nameNode, content)
	startLine, endLine, rng := segmentRange(node)
	codeText, truncated := p.truncateCodeText(nodeText(node, content))

	id := GenerateSegmentID(filePath, "interface", name, rng.Start, rng.End)
	return &model.CodeSegment{
		ID: id, Kind: model.SegmentInterface, Language: model.LanguageRust, FilePath: filePath,
		Range: rng, StartLine: startLine, EndLine: endLine, CodeText: codeText, Truncated: truncated,
		Metadata: model.StructuralMetadata{Name: name},
	}
}

func (p *TreeSitterParser) extractRustFunction(node *sitter.Node, content []byte, filePath string) *model.CodeSegment {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nodeText(nameNode, content)
	startLine, endLine, rng := segmentRange(node)
	codeText, truncated := p.truncateCodeText(nodeText(node, content))

	kind := model.SegmentFunction
	meta := model.StructuralMetadata{Name: name}
	attrs := rustAttributes(node, content)
	meta.Decorators = attrs
	for _, a := range attrs {
		switch {
		case strings.Contains(a, "get("), strings.Contains(a, "actix_web::get"):
			kind, meta.HTTPMethod = model.SegmentRoute, "GET"
		case strings.Contains(a, "post("):
			kind, meta.HTTPMethod = model.SegmentRoute, "POST"
		case strings.Contains(a, "put("):
			kind, meta.HTTPMethod = model.SegmentRoute, "PUT"
		case strings.Contains(a, "delete("):
			kind, meta.HTTPMethod = model.SegmentRoute, "DELETE"
		}
	}
	if parent := enclosingRustImplType(node, content); parent != "" {
		meta.ParentClass = parent
	}

	id := GenerateSegmentID(filePath, string(kind), name, rng.Start, rng.End)
	return &model.CodeSegment{
		ID: id, Kind: kind, Language: model.LanguageRust, FilePath: filePath,
		Range: rng, StartLine: startLine, EndLine: endLine, CodeText: codeText, Truncated: truncated,
		Metadata: meta,
	}
}

// rustAttributes collects #[...] attribute text immediately preceding a node.
func rustAttributes(node *sitter.Node, content []byte) []string {
	var out []string
	for sib := node.PrevSibling(); sib != nil; sib = sib.PrevSibling() {
		if sib.Type() != "attribute_item" {
			break
		}
		out = append([]string{nodeText(sib, content)}, out...)
	}
	return out
}

// enclosingRustImplType walks up to the nearest impl_item ancestor and
// returns the type it implements for.
func enclosingRustImplType(node *sitter.Node, content []byte) string {
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		if parent.Type() == "impl_item" {
			typeNode := parent.ChildByFieldName("type")
			if typeNode != nil {
				return nodeText(typeNode, content)
			}
		}
	}
	return ""
}
