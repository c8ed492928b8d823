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
	"github.com/smacker/go-tree-sitter/python"

	"github.com/kraklabs/hcaa/pkg/model"
)

// parsePythonAST extracts code segments from Python source using Tree-sitter.
func (p *TreeSitterParser) parsePythonAST(content []byte, filePath string) ([]model.CodeSegment, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		if errorCount := countErrors(rootNode); errorCount > 0 {
			p.logger.Warn("parser.treesitter.python.syntax_errors", "path", filePath, "error_count", errorCount)
		}
	}

	var segments []model.CodeSegment
	p.walkPythonAST(rootNode, content, filePath, &segments)
	return segments, nil
}

func (p *TreeSitterParser) walkPythonAST(node *sitter.Node, content []byte, filePath string, segments *[]model.CodeSegment) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "class_definition":
		if seg := p.extractPythonClass(node, content, filePath); seg != nil {
			*segments = append(*segments, *seg)
		}
	case "function_definition", "decorated_definition":
		defNode := node
		if node.Type() == "decorated_definition" {
			defNode = node.ChildByFieldName("definition")
		}
		if defNode != nil && defNode.Type() == "function_definition" {
			if seg := p.extractPythonFunction(node, defNode, content, filePath); seg != nil {
				*segments = append(*segments, *seg)
			}
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkPythonAST(node.Child(i), content, filePath, segments)
	}
}

func (p *TreeSitterParser) extractPythonClass(node *sitter.Node, content []byte, filePath string) *model.CodeSegment {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nodeText(nameNode, content)
	startLine, endLine, rng := segmentRange(node)
	codeText, truncated := p.truncateCodeText(nodeText(node, content))

	kind := model.SegmentClass
	bases := pythonBaseClasses(node, content)
	for _, b := range bases {
		switch {
		case strings.Contains(b, "BaseModel"), strings.Contains(b, "Model"):
			kind = model.SegmentModel
		case strings.Contains(b, "APIView"), strings.Contains(b, "Resource"), strings.Contains(b, "ViewSet"):
			kind = model.SegmentRoute
		}
	}

	id := GenerateSegmentID(filePath, string(kind), name, rng.Start, rng.End)
	return &model.CodeSegment{
		ID: id, Kind: kind, Language: model.LanguagePython, FilePath: filePath,
		Range: rng, StartLine: startLine, EndLine: endLine, CodeText: codeText, Truncated: truncated,
		Metadata: model.StructuralMetadata{Name: name, ParentClass: strings.Join(bases, ",")},
	}
}

func (p *TreeSitterParser) extractPythonFunction(outerNode, defNode *sitter.Node, content []byte, filePath string) *model.CodeSegment {
	nameNode := defNode.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nodeText(nameNode, content)
	startLine, endLine, rng := segmentRange(outerNode)
	codeText, truncated := p.truncateCodeText(nodeText(outerNode, content))

	decorators := pythonDecorators(outerNode, content)
	kind := model.SegmentFunction
	meta := model.StructuralMetadata{Name: name, Decorators: decorators}

	for _, d := range decorators {
		switch {
		case strings.Contains(d, ".route"), strings.Contains(d, ".get"), strings.Contains(d, ".post"),
			strings.Contains(d, ".put"), strings.Contains(d, ".delete"), strings.Contains(d, ".patch"):
			kind = model.SegmentRoute
			meta.HTTPMethod = pythonHTTPMethodFromDecorator(d)
		case strings.Contains(d, "middleware"):
			kind = model.SegmentMiddleware
		}
	}
	if parent := enclosingPythonClassName(defNode, content); parent != "" {
		meta.ParentClass = parent
	}

	id := GenerateSegmentID(filePath, string(kind), name, rng.Start, rng.End)
	return &model.CodeSegment{
		ID: id, Kind: kind, Language: model.LanguagePython, FilePath: filePath,
		Range: rng, StartLine: startLine, EndLine: endLine, CodeText: codeText, Truncated: truncated,
		Metadata: meta,
	}
}

func pythonBaseClasses(classNode *sitter.Node, content []byte) []string {
	argList := classNode.ChildByFieldName("superclasses")
	if argList == nil {
		return nil
	}
	var bases []string
	for i := 0; i < int(argList.ChildCount()); i++ {
		child := argList.Child(i)
		if child.Type() == "identifier" || child.Type() == "attribute" {
			bases = append(bases, nodeText(child, content))
		}
	}
	return bases
}

func pythonDecorators(node *sitter.Node, content []byte) []string {
	if node.Type() != "decorated_definition" {
		return nil
	}
	var out []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "decorator" {
			out = append(out, strings.TrimPrefix(nodeText(child, content), "@"))
		}
	}
	return out
}

func pythonHTTPMethodFromDecorator(decorator string) string {
	switch {
	case strings.Contains(decorator, ".get"):
		return "GET"
	case strings.Contains(decorator, ".post"):
		return "POST"
	case strings.Contains(decorator, ".put"):
		return "PUT"
	case strings.Contains(decorator, ".delete"):
		return "DELETE"
	case strings.Contains(decorator, ".patch"):
		return "PATCH"
	default:
		return "ANY"
	}
}

func enclosingPythonClassName(node *sitter.Node, content []byte) string {
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		if parent.Type() == "class_definition" {
			nameNode := parent.ChildByFieldName("name")
			if nameNode != nil {
				return nodeText(nameNode, content)
			}
		}
	}
	return ""
}
