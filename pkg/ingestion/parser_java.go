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
	"github.com/smacker/go-tree-sitter/java"

	"github.com/kraklabs/hcaa/pkg/model"
)

// parseJavaAST extracts code segments from Java source using Tree-sitter.
func (p *TreeSitterParser) parseJavaAST(content []byte, filePath string) ([]model.CodeSegment, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		if errorCount := countErrors(rootNode); errorCount > 0 {
			p.logger.Warn("parser.treesitter.java.syntax_errors", "path", filePath, "error_count", errorCount)
		}
	}

	var segments []model.CodeSegment
	p.walkJavaAST(rootNode, content, filePath, &segments)
	return segments, nil
}

func (p *TreeSitterParser) walkJavaAST(node *sitter.Node, content []byte, filePath string, segments *[]model.CodeSegment) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "class_declaration", "interface_declaration":
		if seg := p.extractJavaType(node, content, filePath); seg != nil {
			*segments = append(*segments, *seg)
		}
	case "method_declaration", "constructor_declaration":
		if seg := p.extractJavaMethod(node, content, filePath); seg != nil {
			*segments = append(*segments, *seg)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkJavaAST(node.Child(i), content, filePath, segments)
	}
}

func (p *TreeSitterParser) extractJavaType(node *sitter.Node, content []byte, filePath string) *model.CodeSegment {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nodeText(nameNode, content)
	startLine, endLine, rng := segmentRange(node)
	codeText, truncated := p.truncateCodeText(nodeText(node, content))

	kind := model.SegmentClass
	if node.Type() == "interface_declaration" {
		kind = model.SegmentInterface
	}

	annotations := javaAnnotations(node, content)
	for _, a := range annotations {
		switch {
		case strings.Contains(a, "RestController"), strings.Contains(a, "Controller"):
			kind = model.SegmentRoute
		case strings.Contains(a, "Service"), strings.Contains(a, "Component"), strings.Contains(a, "Repository"):
			kind = model.SegmentService
		case strings.Contains(a, "Entity"):
			kind = model.SegmentModel
		case strings.Contains(a, "Configuration"), strings.Contains(a, "ConfigurationProperties"):
			kind = model.SegmentConfiguration
		}
	}

	id := GenerateSegmentID(filePath, string(kind), name, rng.Start, rng.End)
	return &model.CodeSegment{
		ID: id, Kind: kind, Language: model.LanguageJava, FilePath: filePath,
		Range: rng, StartLine: startLine, EndLine: endLine, CodeText: codeText, Truncated: truncated,
		Metadata: model.StructuralMetadata{Name: name, Decorators: annotations},
	}
}

func (p *TreeSitterParser) extractJavaMethod(node *sitter.Node, content []byte, filePath string) *model.CodeSegment {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nodeText(nameNode, content)
	startLine, endLine, rng := segmentRange(node)
	codeText, truncated := p.truncateCodeText(nodeText(node, content))

	kind := model.SegmentFunction
	meta := model.StructuralMetadata{Name: name}
	annotations := javaAnnotations(node, content)
	meta.Decorators = annotations
	for _, a := range annotations {
		if strings.Contains(a, "Mapping") { // @GetMapping, @PostMapping, @RequestMapping, ...
			kind = model.SegmentRoute
			meta.HTTPMethod = javaHTTPMethodFromAnnotation(a)
			break
		}
	}
	if parent := enclosingClassName(node, content); parent != "" {
		meta.ParentClass = parent
	}

	id := GenerateSegmentID(filePath, string(kind), name, rng.Start, rng.End)
	return &model.CodeSegment{
		ID: id, Kind: kind, Language: model.LanguageJava, FilePath: filePath,
		Range: rng, StartLine: startLine, EndLine: endLine, CodeText: codeText, Truncated: truncated,
		Metadata: meta,
	}
}

// javaAnnotations collects the marker/annotation names immediately
// preceding a declaration (modifiers sibling child of the node).
func javaAnnotations(node *sitter.Node, content []byte) []string {
	modifiers := node.ChildByFieldName("modifiers")
	if modifiers == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(modifiers.ChildCount()); i++ {
		child := modifiers.Child(i)
		if child.Type() == "annotation" || child.Type() == "marker_annotation" {
			name := nodeText(child, content)
			out = append(out, strings.TrimPrefix(name, "@"))
		}
	}
	return out
}

func javaHTTPMethodFromAnnotation(annotation string) string {
	switch {
	case strings.HasPrefix(annotation, "GetMapping"):
		return "GET"
	case strings.HasPrefix(annotation, "PostMapping"):
		return "POST"
	case strings.HasPrefix(annotation, "PutMapping"):
		return "PUT"
	case strings.HasPrefix(annotation, "DeleteMapping"):
		return "DELETE"
	case strings.HasPrefix(annotation, "PatchMapping"):
		return "PATCH"
	default:
		return "ANY"
	}
}

// enclosingClassName walks up to the nearest class_declaration ancestor.
func enclosingClassName(node *sitter.Node, content []byte) string {
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		if parent.Type() == "class_declaration" || parent.Type() == "interface_declaration" {
			nameNode := parent.ChildByFieldName("name")
			if nameNode != nil {
				return nodeText(nameNode, content)
			}
		}
	}
	return ""
}
