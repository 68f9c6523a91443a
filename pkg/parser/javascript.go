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

package parser

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/hashid"
)

// JSFamilyResolver implements LanguageResolver for JavaScript and
// TypeScript, which share one grammar family closely enough to share all
// extraction logic; only the tree-sitter grammar loaded into the pool and
// the language tag differ between the two constructors below.
type JSFamilyResolver struct {
	language string
	grammar  *sitter.Language
	pool     sync.Pool
	once     sync.Once
}

// NewJavaScriptResolver handles .js/.jsx/.mjs files.
func NewJavaScriptResolver() *JSFamilyResolver {
	return &JSFamilyResolver{language: "javascript", grammar: javascript.GetLanguage()}
}

// NewTypeScriptResolver handles .ts/.tsx files. tsx's grammar is a superset
// that also parses plain .ts, so one instance covers both extensions.
func NewTypeScriptResolver(tsxDialect bool) *JSFamilyResolver {
	if tsxDialect {
		return &JSFamilyResolver{language: "typescript", grammar: tsx.GetLanguage()}
	}
	return &JSFamilyResolver{language: "typescript", grammar: typescript.GetLanguage()}
}

func (r *JSFamilyResolver) Language() string { return r.language }

func (r *JSFamilyResolver) initPool() {
	r.once.Do(func() {
		r.pool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(r.grammar)
			return p
		}
	})
}

func (r *JSFamilyResolver) ParseFile(filePath string, content []byte) (graph.FileIndex, error) {
	r.initPool()
	parserObj := r.pool.Get()
	p, ok := parserObj.(*sitter.Parser)
	if !ok {
		return graph.FileIndex{}, fmt.Errorf("invalid parser type from %s pool", r.language)
	}
	defer r.pool.Put(p)

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return graph.FileIndex{}, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	ctx := &jsWalkContext{content: content, isTS: r.language == "typescript"}
	walkJSNode(root, ctx)

	idx := graph.FileIndex{
		Path:        filePath,
		Definitions: ctx.definitions,
		References:  ctx.references,
		Imports:     extractJSImports(root, content),
	}
	return idx, nil
}

type jsWalkContext struct {
	content     []byte
	isTS        bool
	definitions []graph.PendingNode
	references  []graph.Reference
}

func walkJSNode(node *sitter.Node, ctx *jsWalkContext) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "function_declaration":
		def := extractJSFunctionDecl(node, ctx)
		ctx.definitions = append(ctx.definitions, def)
		walkJSCalls(node, ctx, def.Hash)
		return
	case "variable_declarator":
		nameNode := node.ChildByFieldName("name")
		valueNode := node.ChildByFieldName("value")
		if nameNode != nil && valueNode != nil {
			vt := valueNode.Type()
			if vt == "arrow_function" || vt == "function_expression" || vt == "function" {
				def := extractJSAssignedFunction(nameNode, valueNode, node, ctx)
				ctx.definitions = append(ctx.definitions, def)
				walkJSCalls(valueNode, ctx, def.Hash)
			}
		}
	case "method_definition":
		def := extractJSMethodDecl(node, ctx)
		ctx.definitions = append(ctx.definitions, def)
		walkJSCalls(node, ctx, def.Hash)
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkJSNode(node.Child(i), ctx)
	}
}

func walkJSCalls(fnNode *sitter.Node, ctx *jsWalkContext, callerHash string) {
	body := fnNode.ChildByFieldName("body")
	if body == nil {
		return
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call_expression" {
			fnExpr := n.ChildByFieldName("function")
			args := n.ChildByFieldName("arguments")
			if fnExpr != nil {
				name, qualifier := jsCalleeName(fnExpr, ctx.content)
				if name != "" {
					ctx.references = append(ctx.references, graph.Reference{
						Name:       name,
						Line:       int(n.StartPoint().Row) + 1,
						Kind:       graph.RefCall,
						CallerHash: callerHash,
						Qualifier:  qualifier,
						ArgCount:   countJSArgs(args),
					})
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
}

func countJSArgs(args *sitter.Node) int {
	if args == nil {
		return 0
	}
	return int(args.NamedChildCount())
}

func jsCalleeName(fnExpr *sitter.Node, content []byte) (name, qualifier string) {
	switch fnExpr.Type() {
	case "identifier":
		return jsNodeText(fnExpr, content), ""
	case "member_expression":
		object := fnExpr.ChildByFieldName("object")
		prop := fnExpr.ChildByFieldName("property")
		if prop == nil {
			return "", ""
		}
		name = jsNodeText(prop, content)
		if object != nil {
			qualifier = jsNodeText(object, content)
		}
		return name, qualifier
	default:
		return "", ""
	}
}

func jsNodeText(n *sitter.Node, content []byte) string {
	return string(content[n.StartByte():n.EndByte()])
}

func extractJSFunctionDecl(node *sitter.Node, ctx *jsWalkContext) graph.PendingNode {
	nameNode := node.ChildByFieldName("name")
	name := ""
	if nameNode != nil {
		name = jsNodeText(nameNode, ctx.content)
	}
	return buildJSPendingNode(node, name, node.ChildByFieldName("parameters"), node, ctx)
}

func extractJSAssignedFunction(nameNode, valueNode, declaratorNode *sitter.Node, ctx *jsWalkContext) graph.PendingNode {
	name := jsNodeText(nameNode, ctx.content)
	params := valueNode.ChildByFieldName("parameters")
	if params == nil {
		params = valueNode.ChildByFieldName("parameter")
	}
	return buildJSPendingNode(declaratorNode, name, params, valueNode, ctx)
}

func extractJSMethodDecl(node *sitter.Node, ctx *jsWalkContext) graph.PendingNode {
	nameNode := node.ChildByFieldName("name")
	name := ""
	if nameNode != nil {
		name = jsNodeText(nameNode, ctx.content)
	}
	return buildJSPendingNode(node, name, node.ChildByFieldName("parameters"), node, ctx)
}

// buildJSPendingNode assembles the common PendingNode fields for any of the
// three JS/TS function shapes (declaration, assigned arrow/expression,
// method). bodyNode is whichever node carries the "body" field and the
// end-line/position for hashing.
func buildJSPendingNode(spanNode *sitter.Node, name string, paramsNode, bodyNode *sitter.Node, ctx *jsWalkContext) graph.PendingNode {
	params := ""
	if paramsNode != nil {
		params = jsNodeText(paramsNode, ctx.content)
	}
	returnType := ""
	if ctx.isTS {
		if rt := bodyNode.ChildByFieldName("return_type"); rt != nil {
			returnType = jsNodeText(rt, ctx.content)
		}
	}

	signature := name + params
	if returnType != "" {
		signature += returnType
	}

	body := bodyNode.ChildByFieldName("body")
	bodyText := ""
	if body != nil {
		bodyText = normalizeJSBody(jsNodeText(body, ctx.content))
	}

	docstring := extractJSDocComment(spanNode, ctx.content)
	hasHints := ctx.isTS && (strings.Contains(params, ":") || returnType != "")
	if !ctx.isTS {
		hasHints = jsHasJSDocTypeHints(ctx.content, int(spanNode.StartPoint().Row)+1)
	}

	return graph.PendingNode{
		Hash:             hashid.Compute(signature, bodyText, docstring),
		BodyNormalized:   bodyText,
		Kind:             graph.KindFunction,
		Name:             name,
		Signature:        signature,
		LineStart:        int(spanNode.StartPoint().Row) + 1,
		LineEnd:          int(bodyNode.EndPoint().Row) + 1,
		Docstring:        docstring,
		IsPublic:         jsIsExported(ctx.content, int(spanNode.StartPoint().Row)+1),
		TypeHintsPresent: hasHints,
		HasDocstring:     docstring != "",
		ParamCount:       countJSParams(paramsNode),
		IsTest:           strings.Contains(name, "test") || strings.Contains(name, "Test"),
	}
}

func countJSParams(paramsNode *sitter.Node) int {
	if paramsNode == nil {
		return 0
	}
	if paramsNode.Type() != "formal_parameters" {
		return 1 // single bare identifier, e.g. x => x*2
	}
	return int(paramsNode.NamedChildCount())
}

func normalizeJSBody(body string) string {
	fields := strings.Fields(body)
	return strings.Join(fields, " ")
}

// extractJSDocComment walks preceding line/block comment siblings, giving
// priority to a /** ... */ JSDoc block immediately above the definition.
func extractJSDocComment(node *sitter.Node, content []byte) string {
	prev := node.PrevSibling()
	var lines []string
	for prev != nil && prev.Type() == "comment" {
		text := jsNodeText(prev, content)
		text = strings.TrimPrefix(text, "/**")
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimPrefix(text, "//")
		text = strings.TrimSuffix(text, "*/")
		lines = append([]string{strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "*"))}, lines...)
		prev = prev.PrevSibling()
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}

// jsIsExported reports whether the source line at lineNum (1-based)
// contains an "export" keyword, the conventional JS/TS visibility marker.
func jsIsExported(content []byte, lineNum int) bool {
	lines := strings.Split(string(content), "\n")
	idx := lineNum - 1
	if idx < 0 || idx >= len(lines) {
		return true
	}
	return strings.Contains(lines[idx], "export")
}

// jsHasJSDocTypeHints reports whether a /** ... */ block within the 15
// lines preceding fnLine documents @param or @returns, the plain-JS
// equivalent of a type hint.
func jsHasJSDocTypeHints(content []byte, fnLine int) bool {
	lines := strings.Split(string(content), "\n")
	if fnLine <= 0 || fnLine > len(lines) {
		return false
	}
	end := fnLine - 1
	start := end - 15
	if start < 0 {
		start = 0
	}
	inDoc := false
	found := false
	for _, line := range lines[start:end] {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "/**") {
			inDoc = true
			found = false
		}
		if inDoc && (strings.Contains(trimmed, "@param") || strings.Contains(trimmed, "@returns") || strings.Contains(trimmed, "@return ")) {
			found = true
		}
		if strings.Contains(trimmed, "*/") {
			if inDoc && found {
				return true
			}
			inDoc = false
		}
	}
	return false
}

// extractJSImports collects top-level import_statement sources, resolving
// named and default bindings into ImportedNames/Alias.
func extractJSImports(root *sitter.Node, content []byte) []graph.Import {
	var imports []graph.Import
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "import_statement" {
			continue
		}
		sourceNode := stmt.ChildByFieldName("source")
		source := ""
		if sourceNode != nil {
			source = strings.Trim(jsNodeText(sourceNode, content), `"'`)
		}
		imp := graph.Import{Source: source, Relative: strings.HasPrefix(source, ".")}

		clause := stmt.NamedChild(0)
		if clause != nil && clause.Type() == "import_clause" {
			for j := 0; j < int(clause.NamedChildCount()); j++ {
				part := clause.NamedChild(j)
				switch part.Type() {
				case "identifier":
					imp.Alias = jsNodeText(part, content)
				case "namespace_import":
					imp.Star = true
				case "named_imports":
					for k := 0; k < int(part.NamedChildCount()); k++ {
						spec := part.NamedChild(k)
						if spec.Type() == "import_specifier" {
							nameNode := spec.ChildByFieldName("name")
							if nameNode != nil {
								imp.ImportedNames = append(imp.ImportedNames, jsNodeText(nameNode, content))
							}
						}
					}
				}
			}
		}
		imports = append(imports, imp)
	}
	return imports
}

// ResolveCrossFile implements Tier 2 for JS/TS: a relative import resolves
// against a candidate under that joined, extension-stripped path; a bare
// module specifier falls back to matching the candidate file's basename
// against the import's last path segment (covers barrel re-exports and
// path-aliased imports well enough without a tsconfig resolver).
func (r *JSFamilyResolver) ResolveCrossFile(ref graph.Reference, fromFile graph.FileIndex, index *NameIndex) (ResolvedTarget, float64, bool) {
	candidates := index.ByName[ref.Name]
	if len(candidates) == 0 {
		return ResolvedTarget{}, 0, false
	}

	for _, imp := range index.Imports[fromFile.Path] {
		if len(imp.ImportedNames) > 0 {
			matched := false
			for _, n := range imp.ImportedNames {
				if n == ref.Name {
					matched = true
				}
			}
			if !matched && imp.Alias != ref.Name {
				continue
			}
		} else if imp.Alias != "" && imp.Alias != ref.Qualifier && imp.Alias != ref.Name {
			continue
		}

		if imp.Relative {
			joined := path.Join(path.Dir(fromFile.Path), imp.Source)
			for _, c := range candidates {
				stem := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(c.File, ".ts"), ".tsx"), ".js")
				if strings.HasSuffix(stem, joined) || stem == joined {
					return ResolvedTarget{File: c.File, Name: c.Node.Name}, 0.75, true
				}
			}
		}

		segments := strings.Split(imp.Source, "/")
		last := segments[len(segments)-1]
		for _, c := range candidates {
			if strings.Contains(path.Base(c.File), last) {
				return ResolvedTarget{File: c.File, Name: c.Node.Name}, 0.55, true
			}
		}
	}
	return ResolvedTarget{}, 0, false
}
