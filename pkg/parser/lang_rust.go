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
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/hashid"
)

// RustResolver implements LanguageResolver for Rust. Tier 2 resolves
// `mod foo;` declarations to a sibling file or foo/mod.rs, and `use`
// paths against the module tree built from those declarations.
type RustResolver struct {
	pool sync.Pool
	once sync.Once
}

func NewRustResolver() *RustResolver { return &RustResolver{} }

func (r *RustResolver) Language() string { return "rust" }

func (r *RustResolver) initPool() {
	r.once.Do(func() {
		r.pool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(rust.GetLanguage())
			return p
		}
	})
}

func (r *RustResolver) ParseFile(filePath string, content []byte) (graph.FileIndex, error) {
	r.initPool()
	parserObj := r.pool.Get()
	p, ok := parserObj.(*sitter.Parser)
	if !ok {
		return graph.FileIndex{}, fmt.Errorf("invalid parser type from rust pool")
	}
	defer r.pool.Put(p)

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return graph.FileIndex{}, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	ctx := &rustWalkContext{content: content}
	walkRustNode(root, ctx, "")

	idx := graph.FileIndex{
		Path:        filePath,
		Definitions: ctx.definitions,
		References:  ctx.references,
		Imports:     extractRustImports(root, content),
	}
	return idx, nil
}

type rustWalkContext struct {
	content     []byte
	definitions []graph.PendingNode
	references  []graph.Reference
}

// walkRustNode recurses the tree tracking the enclosing impl's type name so
// methods inside `impl Type { ... }` blocks record as "Type::method".
func walkRustNode(node *sitter.Node, ctx *rustWalkContext, implPrefix string) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "impl_item":
		typeNode := node.ChildByFieldName("type")
		prefix := ""
		if typeNode != nil {
			prefix = rustNodeText(typeNode, ctx.content)
		}
		body := node.ChildByFieldName("body")
		walkRustNode(body, ctx, prefix)
		return
	case "function_item":
		def := extractRustFunction(node, ctx.content, implPrefix)
		ctx.definitions = append(ctx.definitions, def)
		walkRustCalls(node, ctx, def.Hash)
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkRustNode(node.Child(i), ctx, implPrefix)
	}
}

func walkRustCalls(fnNode *sitter.Node, ctx *rustWalkContext, callerHash string) {
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
				name, qualifier := rustCalleeName(fnExpr, ctx.content)
				if name != "" {
					ctx.references = append(ctx.references, graph.Reference{
						Name:       name,
						Line:       int(n.StartPoint().Row) + 1,
						Kind:       graph.RefCall,
						CallerHash: callerHash,
						Qualifier:  qualifier,
						ArgCount:   countRustArgs(args),
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

func countRustArgs(args *sitter.Node) int {
	if args == nil {
		return 0
	}
	return int(args.NamedChildCount())
}

// rustCalleeName handles plain identifiers, field_expression (self.foo()),
// and scoped_identifier (module::function or Type::method) callees.
func rustCalleeName(fnExpr *sitter.Node, content []byte) (name, qualifier string) {
	switch fnExpr.Type() {
	case "identifier":
		return rustNodeText(fnExpr, content), ""
	case "field_expression":
		field := fnExpr.ChildByFieldName("field")
		value := fnExpr.ChildByFieldName("value")
		if field == nil {
			return "", ""
		}
		name = rustNodeText(field, content)
		if value != nil {
			qualifier = rustNodeText(value, content)
		}
		return name, qualifier
	case "scoped_identifier":
		nameNode := fnExpr.ChildByFieldName("name")
		pathNode := fnExpr.ChildByFieldName("path")
		if nameNode == nil {
			return "", ""
		}
		name = rustNodeText(nameNode, content)
		if pathNode != nil {
			qualifier = rustNodeText(pathNode, content)
		}
		return name, qualifier
	default:
		return "", ""
	}
}

func rustNodeText(n *sitter.Node, content []byte) string {
	return string(content[n.StartByte():n.EndByte()])
}

// extractRustFunction builds a PendingNode from a function_item node,
// prefixing with implPrefix ("Type::") when the function is an impl method.
func extractRustFunction(node *sitter.Node, content []byte, implPrefix string) graph.PendingNode {
	nameNode := node.ChildByFieldName("name")
	name := ""
	if nameNode != nil {
		name = rustNodeText(nameNode, content)
	}
	fullName := name
	if implPrefix != "" {
		fullName = implPrefix + "::" + name
	}

	paramsNode := node.ChildByFieldName("parameters")
	params := ""
	paramCount := 0
	if paramsNode != nil {
		params = rustNodeText(paramsNode, content)
		paramCount = countRustParams(paramsNode, content)
	}
	returnNode := node.ChildByFieldName("return_type")
	returnType := ""
	if returnNode != nil {
		returnType = " -> " + rustNodeText(returnNode, content)
	}

	isPublic := false
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "visibility_modifier" {
			isPublic = true
			break
		}
	}

	signature := "fn " + name + params + returnType

	body := node.ChildByFieldName("body")
	bodyText := ""
	if body != nil {
		bodyText = normalizeRustBody(rustNodeText(body, content))
	}

	docstring := extractRustDocComment(node, content)

	return graph.PendingNode{
		Hash:             hashid.Compute(signature, bodyText, docstring),
		BodyNormalized:   bodyText,
		Kind:             graph.KindFunction,
		Name:             fullName,
		Signature:        signature,
		LineStart:        int(node.StartPoint().Row) + 1,
		LineEnd:          int(node.EndPoint().Row) + 1,
		Docstring:        docstring,
		IsPublic:         isPublic,
		TypeHintsPresent: true, // Rust is statically typed; always considered annotated.
		HasDocstring:     docstring != "",
		ParamCount:       paramCount,
		IsTest:           strings.HasPrefix(name, "test_") || rustHasTestAttribute(node, content),
	}
}

// rustHasTestAttribute reports whether an #[test] attribute immediately
// precedes node, the idiomatic Rust test marker (no "Test" name prefix).
func rustHasTestAttribute(node *sitter.Node, content []byte) bool {
	prev := node.PrevSibling()
	for prev != nil && prev.Type() == "attribute_item" {
		if strings.Contains(rustNodeText(prev, content), "test") {
			return true
		}
		prev = prev.PrevSibling()
	}
	return false
}

func countRustParams(paramsNode *sitter.Node, content []byte) int {
	count := 0
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		child := paramsNode.NamedChild(i)
		if child.Type() == "self_parameter" {
			continue
		}
		count++
	}
	return count
}

func normalizeRustBody(body string) string {
	fields := strings.Fields(body)
	return strings.Join(fields, " ")
}

// extractRustDocComment walks preceding `///` / `//!` / block doc-comment
// siblings, stripping their markers.
func extractRustDocComment(node *sitter.Node, content []byte) string {
	prev := node.PrevSibling()
	var lines []string
	for prev != nil && (prev.Type() == "line_comment" || prev.Type() == "block_comment") {
		text := rustNodeText(prev, content)
		text = strings.TrimPrefix(text, "///")
		text = strings.TrimPrefix(text, "//!")
		text = strings.TrimPrefix(text, "//")
		text = strings.TrimPrefix(text, "/**")
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimSuffix(text, "*/")
		lines = append([]string{strings.TrimSpace(text)}, lines...)
		prev = prev.PrevSibling()
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}

// extractRustImports collects top-level `mod foo;` declarations (which
// Tier 2 resolves to a filesystem path) and `use` paths (imported names).
func extractRustImports(root *sitter.Node, content []byte) []graph.Import {
	var imports []graph.Import
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		switch stmt.Type() {
		case "mod_item":
			nameNode := stmt.ChildByFieldName("name")
			body := stmt.ChildByFieldName("body")
			if nameNode != nil && body == nil {
				// `mod foo;` declaration, not an inline `mod foo { ... }` block.
				imports = append(imports, graph.Import{Source: rustNodeText(nameNode, content), Relative: true})
			}
		case "use_declaration":
			argument := stmt.NamedChild(0)
			if argument != nil {
				imports = append(imports, rustUseToImport(argument, content))
			}
		}
	}
	return imports
}

func rustUseToImport(node *sitter.Node, content []byte) graph.Import {
	switch node.Type() {
	case "use_as_clause":
		path := node.ChildByFieldName("path")
		alias := node.ChildByFieldName("alias")
		imp := graph.Import{}
		if path != nil {
			imp.Source = rustNodeText(path, content)
		}
		if alias != nil {
			imp.Alias = rustNodeText(alias, content)
		}
		return imp
	case "use_wildcard":
		inner := node.NamedChild(0)
		src := ""
		if inner != nil {
			src = rustNodeText(inner, content)
		}
		return graph.Import{Source: src, Star: true}
	case "scoped_use_list":
		pathNode := node.ChildByFieldName("path")
		listNode := node.ChildByFieldName("list")
		src := ""
		if pathNode != nil {
			src = rustNodeText(pathNode, content)
		}
		var names []string
		if listNode != nil {
			for i := 0; i < int(listNode.NamedChildCount()); i++ {
				names = append(names, rustNodeText(listNode.NamedChild(i), content))
			}
		}
		return graph.Import{Source: src, ImportedNames: names}
	default:
		return graph.Import{Source: rustNodeText(node, content)}
	}
}

// ResolveCrossFile implements Tier 2 for Rust: a `mod foo;` import resolves
// against foo.rs or foo/mod.rs in the same directory (no exists-check here;
// the candidate set comes from files actually parsed this run), and a
// `use` path resolves against the last path segment matching a file whose
// module chain plausibly contains it.
func (r *RustResolver) ResolveCrossFile(ref graph.Reference, fromFile graph.FileIndex, index *NameIndex) (ResolvedTarget, float64, bool) {
	candidates := index.ByName[ref.Name]
	if len(candidates) == 0 {
		return ResolvedTarget{}, 0, false
	}

	dir := path.Dir(fromFile.Path)
	for _, imp := range index.Imports[fromFile.Path] {
		if imp.Relative {
			// mod declaration: candidate file is foo.rs or foo/mod.rs.
			asFile := path.Join(dir, imp.Source+".rs")
			asModRs := path.Join(dir, imp.Source, "mod.rs")
			for _, c := range candidates {
				if c.File == asFile || c.File == asModRs {
					return ResolvedTarget{File: c.File, Name: c.Node.Name}, 0.8, true
				}
			}
		}
	}

	for _, imp := range index.Imports[fromFile.Path] {
		segments := strings.Split(imp.Source, "::")
		last := segments[len(segments)-1]
		if last != ref.Qualifier && !containsName(imp.ImportedNames, ref.Name) {
			continue
		}
		for _, c := range candidates {
			if strings.Contains(c.File, last) {
				return ResolvedTarget{File: c.File, Name: c.Node.Name}, 0.6, true
			}
		}
	}
	return ResolvedTarget{}, 0, false
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
