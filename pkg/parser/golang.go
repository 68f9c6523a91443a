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
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/hashid"
)

// GoResolver implements LanguageResolver for Go using tree-sitter for Tier 1
// and same-package/qualified-call heuristics for Tier 2.
type GoResolver struct {
	pool sync.Pool
	once sync.Once
}

// NewGoResolver constructs a Go resolver.
func NewGoResolver() *GoResolver {
	return &GoResolver{}
}

func (r *GoResolver) Language() string { return "go" }

func (r *GoResolver) initPool() {
	r.once.Do(func() {
		r.pool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(golang.GetLanguage())
			return p
		}
	})
}

// ParseFile extracts function/method declarations, same-file calls, and
// import statements from Go source.
func (r *GoResolver) ParseFile(path string, content []byte) (graph.FileIndex, error) {
	r.initPool()
	parserObj := r.pool.Get()
	p, ok := parserObj.(*sitter.Parser)
	if !ok {
		return graph.FileIndex{}, fmt.Errorf("invalid parser type from go pool")
	}
	defer r.pool.Put(p)

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return graph.FileIndex{}, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	ctx := &goWalkContext{content: content}
	walkGoNode(root, ctx)

	idx := graph.FileIndex{
		Path:        path,
		Definitions: ctx.definitions,
		References:  ctx.references,
		Imports:     extractGoImports(root, content),
	}
	return idx, nil
}

type goWalkContext struct {
	content     []byte
	definitions []graph.PendingNode
	references  []graph.Reference
	// callerStack tracks the enclosing function name for attributing calls.
	callerStack []string
}

func walkGoNode(node *sitter.Node, ctx *goWalkContext) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "function_declaration":
		def := extractGoFunction(node, ctx.content, false)
		ctx.definitions = append(ctx.definitions, def)
		ctx.callerStack = append(ctx.callerStack, def.Hash)
		walkGoCalls(node, ctx, def.Hash)
		ctx.callerStack = ctx.callerStack[:len(ctx.callerStack)-1]
		return
	case "method_declaration":
		def := extractGoFunction(node, ctx.content, true)
		ctx.definitions = append(ctx.definitions, def)
		ctx.callerStack = append(ctx.callerStack, def.Hash)
		walkGoCalls(node, ctx, def.Hash)
		ctx.callerStack = ctx.callerStack[:len(ctx.callerStack)-1]
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkGoNode(node.Child(i), ctx)
	}
}

// walkGoCalls scans fnNode's body for call_expression sites and records a
// Reference for each, attributing the caller by hash.
func walkGoCalls(fnNode *sitter.Node, ctx *goWalkContext, callerHash string) {
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
				name, qualifier := goCalleeName(fnExpr, ctx.content)
				argCount := 0
				if args != nil {
					for i := 0; i < int(args.ChildCount()); i++ {
						if args.Child(i).Type() != "(" && args.Child(i).Type() != ")" && args.Child(i).Type() != "," {
							argCount++
						}
					}
				}
				ctx.references = append(ctx.references, graph.Reference{
					Name:       name,
					Line:       int(n.StartPoint().Row) + 1,
					Kind:       graph.RefCall,
					CallerHash: callerHash,
					Qualifier:  qualifier,
					ArgCount:   argCount,
				})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
}

// goCalleeName extracts the called identifier and, for selector
// expressions (pkg.Name or recv.Method), its qualifier.
func goCalleeName(fnExpr *sitter.Node, content []byte) (name, qualifier string) {
	switch fnExpr.Type() {
	case "identifier":
		return nodeText(fnExpr, content), ""
	case "selector_expression":
		operand := fnExpr.ChildByFieldName("operand")
		field := fnExpr.ChildByFieldName("field")
		if field == nil {
			return "", ""
		}
		name = nodeText(field, content)
		if operand != nil {
			qualifier = nodeText(operand, content)
		}
		return name, qualifier
	default:
		return nodeText(fnExpr, content), ""
	}
}

func nodeText(n *sitter.Node, content []byte) string {
	return string(content[n.StartByte():n.EndByte()])
}

// extractGoFunction builds a PendingNode from a function_declaration or
// method_declaration node.
func extractGoFunction(node *sitter.Node, content []byte, isMethod bool) graph.PendingNode {
	nameNode := node.ChildByFieldName("name")
	name := ""
	if nameNode != nil {
		name = nodeText(nameNode, content)
	}

	paramsNode := node.ChildByFieldName("parameters")
	params := ""
	paramCount := 0
	if paramsNode != nil {
		params = nodeText(paramsNode, content)
		paramCount = countGoParams(paramsNode)
	}
	resultNode := node.ChildByFieldName("result")
	result := ""
	if resultNode != nil {
		result = " " + nodeText(resultNode, content)
	}

	var sig strings.Builder
	sig.WriteString("func ")
	if isMethod {
		if recv := node.ChildByFieldName("receiver"); recv != nil {
			sig.WriteString(nodeText(recv, content))
			sig.WriteString(" ")
		}
	}
	sig.WriteString(name)
	sig.WriteString(params)
	sig.WriteString(result)
	signature := sig.String()

	body := node.ChildByFieldName("body")
	bodyText := ""
	if body != nil {
		bodyText = normalizeGoBody(nodeText(body, content))
	}

	docstring := extractGoDocComment(node, content)

	return graph.PendingNode{
		Hash:             hashid.Compute(signature, bodyText, docstring),
		BodyNormalized:   bodyText,
		Kind:             graph.KindFunction,
		Name:             name,
		Signature:        signature,
		LineStart:        int(node.StartPoint().Row) + 1,
		LineEnd:          int(node.EndPoint().Row) + 1,
		Docstring:        docstring,
		IsPublic:         isGoExported(name),
		TypeHintsPresent: true, // Go is statically typed; always considered annotated.
		HasDocstring:     docstring != "",
		ParamCount:       paramCount,
		IsTest:           strings.HasPrefix(name, "Test") || strings.HasPrefix(name, "Benchmark"),
	}
}

func countGoParams(paramsNode *sitter.Node) int {
	count := 0
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		if paramsNode.Child(i).Type() == "parameter_declaration" {
			// Each parameter_declaration may bind multiple names sharing a
			// type (e.g. "a, b int"); count identifiers within it.
			names := 0
			child := paramsNode.Child(i)
			for j := 0; j < int(child.ChildCount()); j++ {
				if child.Child(j).Type() == "identifier" {
					names++
				}
			}
			if names == 0 {
				names = 1
			}
			count += names
		}
	}
	return count
}

// normalizeGoBody strips whitespace runs so formatting-only diffs don't
// change the content hash.
func normalizeGoBody(body string) string {
	fields := strings.Fields(body)
	return strings.Join(fields, " ")
}

// extractGoDocComment returns the comment block immediately preceding node,
// joined into one string with the leading "//" markers stripped.
func extractGoDocComment(node *sitter.Node, content []byte) string {
	prev := node.PrevSibling()
	var lines []string
	for prev != nil && prev.Type() == "comment" {
		text := nodeText(prev, content)
		text = strings.TrimPrefix(text, "//")
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimSuffix(text, "*/")
		lines = append([]string{strings.TrimSpace(text)}, lines...)
		prev = prev.PrevSibling()
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}

func isGoExported(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return unicode.IsUpper(r)
}

// ResolveCrossFile implements Tier 2 for Go: an unqualified call resolves
// against any definition in the same directory (same package, confidence
// 0.8); a qualified call (pkg.Name) resolves against a definition in a file
// whose import matches the qualifier (confidence 0.65).
func (r *GoResolver) ResolveCrossFile(ref graph.Reference, fromFile graph.FileIndex, index *NameIndex) (ResolvedTarget, float64, bool) {
	candidates := index.ByName[ref.Name]
	if len(candidates) == 0 {
		return ResolvedTarget{}, 0, false
	}

	if ref.Qualifier == "" {
		for _, c := range candidates {
			if sameDirectory(c.File, fromFile.Path) {
				return ResolvedTarget{File: c.File, Name: c.Node.Name}, 0.8, true
			}
		}
		return ResolvedTarget{}, 0, false
	}

	for _, imp := range index.Imports[fromFile.Path] {
		if !importQualifierMatches(ref.Qualifier, imp) {
			continue
		}
		for _, c := range candidates {
			if strings.Contains(c.File, strings.Trim(imp.Source, "/")) || path.Dir(c.File) != path.Dir(fromFile.Path) {
				return ResolvedTarget{File: c.File, Name: c.Node.Name}, 0.65, true
			}
		}
	}
	return ResolvedTarget{}, 0, false
}

// extractGoImports collects top-level import specs.
func extractGoImports(root *sitter.Node, content []byte) []graph.Import {
	var imports []graph.Import
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "import_spec" {
			pathNode := n.ChildByFieldName("path")
			nameNode := n.ChildByFieldName("name")
			if pathNode != nil {
				path := strings.Trim(nodeText(pathNode, content), `"`)
				alias := ""
				if nameNode != nil {
					alias = nodeText(nameNode, content)
				}
				imports = append(imports, graph.Import{Source: path, Alias: alias})
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return imports
}
