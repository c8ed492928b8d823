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
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/hcaa/pkg/model"
)

// =============================================================================
// TYPESCRIPT / JAVASCRIPT PARSER
// =============================================================================

// parseWithGrammar extracts code segments from TypeScript, TSX, or plain
// JavaScript source using the given Tree-sitter grammar.
func (p *TreeSitterParser) parseWithGrammar(content []byte, filePath string, lang *sitter.Language, srcLang model.SourceLanguage) ([]model.CodeSegment, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		if errorCount := countErrors(rootNode); errorCount > 0 {
			p.logger.Warn("parser.treesitter.typescript.syntax_errors",
				"path", filePath,
				"error_count", errorCount,
			)
		}
	}

	var segments []model.CodeSegment
	p.walkTSFunctions(rootNode, content, filePath, srcLang, &segments)
	p.walkTSTypes(rootNode, content, filePath, srcLang, &segments)

	return segments, nil
}

// walkTSFunctions walks the AST collecting function-shaped segments:
// declarations, arrow/function-valued variables, methods, and the
// interface/ambient signature forms TypeScript adds on top of JS.
func (p *TreeSitterParser) walkTSFunctions(node *sitter.Node, content []byte, filePath string, srcLang model.SourceLanguage, segments *[]model.CodeSegment) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_declaration":
		if seg := p.extractTSFunction(node, content, filePath, srcLang); seg != nil {
			*segments = append(*segments, *seg)
		}
	case "variable_declarator":
		nameNode := node.ChildByFieldName("name")
		valueNode := node.ChildByFieldName("value")
		if nameNode != nil && valueNode != nil {
			switch valueNode.Type() {
			case "arrow_function", "function_expression", "function":
				if seg := p.extractTSNamedValue(nameNode, valueNode, node, content, filePath, srcLang); seg != nil {
					*segments = append(*segments, *seg)
				}
			}
		}
	case "method_definition":
		if seg := p.extractTSFunction(node, content, filePath, srcLang); seg != nil {
			*segments = append(*segments, *seg)
		}
	case "method_signature", "function_signature":
		if seg := p.extractTSFunction(node, content, filePath, srcLang); seg != nil {
			*segments = append(*segments, *seg)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkTSFunctions(node.Child(i), content, filePath, srcLang, segments)
	}
}

// extractTSFunction builds a segment for any function-like node that
// carries its own "name" field (declarations, methods, signatures).
func (p *TreeSitterParser) extractTSFunction(node *sitter.Node, content []byte, filePath string, srcLang model.SourceLanguage) *model.CodeSegment {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nodeText(nameNode, content)
	return p.buildFunctionSegment(node, name, content, filePath, srcLang)
}

// extractTSNamedValue builds a segment for `const name = (...) => {...}`
// style declarations, using the enclosing declarator's full range.
func (p *TreeSitterParser) extractTSNamedValue(nameNode, valueNode, declNode *sitter.Node, content []byte, filePath string, srcLang model.SourceLanguage) *model.CodeSegment {
	name := nodeText(nameNode, content)
	return p.buildFunctionSegment(declNode, name, content, filePath, srcLang)
}

// buildFunctionSegment classifies a function-shaped node as a React
// component, an HTTP route handler, or a plain function, and emits the
// corresponding segment.
func (p *TreeSitterParser) buildFunctionSegment(node *sitter.Node, name string, content []byte, filePath string, srcLang model.SourceLanguage) *model.CodeSegment {
	startLine, endLine, rng := segmentRange(node)
	codeText, truncated := p.truncateCodeText(nodeText(node, content))

	kind := model.SegmentFunction
	meta := model.StructuralMetadata{Name: name}

	if isComponentName(name) && strings.Contains(nodeText(node, content), "<") {
		kind = model.SegmentComponent
	}
	if httpMethod, routePath, ok := inferRouteFromPath(filePath); ok {
		kind = model.SegmentRoute
		meta.HTTPMethod = httpMethod
		meta.RoutePath = routePath
	}

	id := GenerateSegmentID(filePath, string(kind), name, rng.Start, rng.End)

	return &model.CodeSegment{
		ID:        id,
		Kind:      kind,
		Language:  srcLang,
		FilePath:  filePath,
		Range:     rng,
		StartLine: startLine,
		EndLine:   endLine,
		CodeText:  codeText,
		Truncated: truncated,
		Metadata:  meta,
	}
}

// isComponentName reports whether name follows the PascalCase
// convention React (and most component frameworks) use for components.
func isComponentName(name string) bool {
	if name == "" {
		return false
	}
	first := []rune(name)[0]
	return unicode.IsUpper(first)
}

// inferRouteFromPath recognizes common file-based-routing conventions
// (Next.js app/pages routers, Express-style api/ directories) and
// derives an HTTP method and route path from the file's location.
func inferRouteFromPath(filePath string) (method, route string, ok bool) {
	normalized := strings.ReplaceAll(filePath, "\\", "/")
	switch {
	case strings.Contains(normalized, "/api/"), strings.HasPrefix(normalized, "api/"):
		return "ANY", normalized, true
	case strings.Contains(normalized, "/pages/"), strings.Contains(normalized, "/app/"):
		if strings.HasSuffix(normalized, "route.ts") || strings.HasSuffix(normalized, "route.tsx") {
			return "ANY", normalized, true
		}
	case strings.Contains(normalized, "/routes/"), strings.Contains(normalized, "/router/"):
		return "ANY", normalized, true
	}
	return "", "", false
}

// =============================================================================
// TYPESCRIPT TYPE EXTRACTION
// =============================================================================

// walkTSTypes walks the AST collecting type-shaped segments: interfaces,
// classes, and type aliases.
func (p *TreeSitterParser) walkTSTypes(node *sitter.Node, content []byte, filePath string, srcLang model.SourceLanguage, segments *[]model.CodeSegment) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "interface_declaration":
		if seg := p.extractTSInterface(node, content, filePath, srcLang); seg != nil {
			*segments = append(*segments, *seg)
		}
	case "class_declaration":
		if seg := p.extractTSClass(node, content, filePath, srcLang); seg != nil {
			*segments = append(*segments, *seg)
		}
	case "type_alias_declaration":
		if seg := p.extractTSTypeAlias(node, content, filePath, srcLang); seg != nil {
			*segments = append(*segments, *seg)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkTSTypes(node.Child(i), content, filePath, srcLang, segments)
	}
}

func (p *TreeSitterParser) extractTSInterface(node *sitter.Node, content []byte, filePath string, srcLang model.SourceLanguage) *model.CodeSegment {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nodeText(nameNode, content)
	startLine, endLine, rng := segmentRange(node)
	codeText, truncated := p.truncateCodeText(nodeText(node, content))

	id := GenerateSegmentID(filePath, "interface", name, rng.Start, rng.End)
	return &model.CodeSegment{
		ID: id, Kind: model.SegmentInterface, Language: srcLang, FilePath: filePath,
		Range: rng, StartLine: startLine, EndLine: endLine, CodeText: codeText, Truncated: truncated,
		Metadata: model.StructuralMetadata{Name: name},
	}
}

func (p *TreeSitterParser) extractTSClass(node *sitter.Node, content []byte, filePath string, srcLang model.SourceLanguage) *model.CodeSegment {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nodeText(nameNode, content)
	startLine, endLine, rng := segmentRange(node)
	codeText, truncated := p.truncateCodeText(nodeText(node, content))

	kind := model.SegmentClass
	decorators := extractTSDecorators(node, content)
	if isComponentName(name) && strings.Contains(codeText, "render") {
		kind = model.SegmentComponent
	}
	for _, d := range decorators {
		switch {
		case strings.Contains(d, "Controller"):
			kind = model.SegmentRoute
		case strings.Contains(d, "Injectable"), strings.Contains(d, "Service"):
			kind = model.SegmentService
		case strings.Contains(d, "Middleware"):
			kind = model.SegmentMiddleware
		case strings.Contains(d, "Entity"), strings.Contains(d, "Model"):
			kind = model.SegmentModel
		}
	}

	id := GenerateSegmentID(filePath, "class", name, rng.Start, rng.End)
	return &model.CodeSegment{
		ID: id, Kind: kind, Language: srcLang, FilePath: filePath,
		Range: rng, StartLine: startLine, EndLine: endLine, CodeText: codeText, Truncated: truncated,
		Metadata: model.StructuralMetadata{Name: name, Decorators: decorators},
	}
}

func (p *TreeSitterParser) extractTSTypeAlias(node *sitter.Node, content []byte, filePath string, srcLang model.SourceLanguage) *model.CodeSegment {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := nodeText(nameNode, content)
	startLine, endLine, rng := segmentRange(node)
	codeText, truncated := p.truncateCodeText(nodeText(node, content))

	id := GenerateSegmentID(filePath, "model", name, rng.Start, rng.End)
	return &model.CodeSegment{
		ID: id, Kind: model.SegmentModel, Language: srcLang, FilePath: filePath,
		Range: rng, StartLine: startLine, EndLine: endLine, CodeText: codeText, Truncated: truncated,
		Metadata: model.StructuralMetadata{Name: name},
	}
}

// extractTSDecorators collects decorator names attached immediately
// above a class declaration (e.g. @Controller, @Injectable).
func extractTSDecorators(classNode *sitter.Node, content []byte) []string {
	parent := classNode.Parent()
	if parent == nil || parent.Type() != "export_statement" {
		parent = classNode
	}
	var decorators []string
	for i := 0; i < int(parent.ChildCount()); i++ {
		child := parent.Child(i)
		if child.Type() == "decorator" {
			decorators = append(decorators, strings.TrimPrefix(nodeText(child, content), "@"))
		}
	}
	return decorators
}
