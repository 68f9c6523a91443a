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
	"github.com/smacker/go-tree-sitter/python"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/hashid"
)

// PythonResolver implements LanguageResolver for Python. Tier 2 covers
// relative imports (dot-prefixed sources) and the common "from pkg import
// name" / "import pkg" forms; star imports resolve at reduced confidence
// since the imported surface can't be known without loading __all__.
type PythonResolver struct {
	pool sync.Pool
	once sync.Once
}

func NewPythonResolver() *PythonResolver { return &PythonResolver{} }

func (r *PythonResolver) Language() string { return "python" }

func (r *PythonResolver) initPool() {
	r.once.Do(func() {
		r.pool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(python.GetLanguage())
			return p
		}
	})
}

func (r *PythonResolver) ParseFile(filePath string, content []byte) (graph.FileIndex, error) {
	r.initPool()
	parserObj := r.pool.Get()
	p, ok := parserObj.(*sitter.Parser)
	if !ok {
		return graph.FileIndex{}, fmt.Errorf("invalid parser type from python pool")
	}
	defer r.pool.Put(p)

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return graph.FileIndex{}, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	ctx := &pyWalkContext{content: content}
	walkPyNode(root, ctx, "")

	idx := graph.FileIndex{
		Path:        filePath,
		Definitions: ctx.definitions,
		References:  ctx.references,
		Imports:     extractPyImports(root, content),
		AllExports:  extractPyAllExports(root, content),
	}
	return idx, nil
}

type pyWalkContext struct {
	content     []byte
	definitions []graph.PendingNode
	references  []graph.Reference
}

// walkPyNode recurses the tree, tracking the enclosing class name so method
// definitions can be recorded as "Class.method".
func walkPyNode(node *sitter.Node, ctx *pyWalkContext, classPrefix string) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "class_definition":
		className := ""
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			className = pyNodeText(nameNode, ctx.content)
		}
		body := node.ChildByFieldName("body")
		walkPyNode(body, ctx, className)
		return
	case "function_definition":
		def := extractPyFunction(node, ctx.content, classPrefix)
		ctx.definitions = append(ctx.definitions, def)
		walkPyCalls(node, ctx, def.Hash)
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkPyNode(node.Child(i), ctx, classPrefix)
	}
}

func walkPyCalls(fnNode *sitter.Node, ctx *pyWalkContext, callerHash string) {
	body := fnNode.ChildByFieldName("body")
	if body == nil {
		return
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call" {
			fnExpr := n.ChildByFieldName("function")
			args := n.ChildByFieldName("arguments")
			if fnExpr != nil {
				name, qualifier := pyCalleeName(fnExpr, ctx.content)
				if name != "" {
					ctx.references = append(ctx.references, graph.Reference{
						Name:       name,
						Line:       int(n.StartPoint().Row) + 1,
						Kind:       graph.RefCall,
						CallerHash: callerHash,
						Qualifier:  qualifier,
						ArgCount:   countPyArgs(args),
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

func countPyArgs(args *sitter.Node) int {
	if args == nil {
		return 0
	}
	count := 0
	for i := 0; i < int(args.NamedChildCount()); i++ {
		count++
	}
	return count
}

func pyCalleeName(fnExpr *sitter.Node, content []byte) (name, qualifier string) {
	switch fnExpr.Type() {
	case "identifier":
		return pyNodeText(fnExpr, content), ""
	case "attribute":
		object := fnExpr.ChildByFieldName("object")
		attr := fnExpr.ChildByFieldName("attribute")
		if attr == nil {
			return "", ""
		}
		name = pyNodeText(attr, content)
		if object != nil {
			qualifier = pyNodeText(object, content)
		}
		return name, qualifier
	default:
		return "", ""
	}
}

func pyNodeText(n *sitter.Node, content []byte) string {
	return string(content[n.StartByte():n.EndByte()])
}

// extractPyFunction builds a PendingNode from a function_definition node,
// prefixing the name with its enclosing class when classPrefix is set.
func extractPyFunction(node *sitter.Node, content []byte, classPrefix string) graph.PendingNode {
	nameNode := node.ChildByFieldName("name")
	name := ""
	if nameNode != nil {
		name = pyNodeText(nameNode, content)
	}
	fullName := name
	if classPrefix != "" {
		fullName = classPrefix + "." + name
	}

	paramsNode := node.ChildByFieldName("parameters")
	params := ""
	paramCount := 0
	hasParamHints := false
	if paramsNode != nil {
		params = pyNodeText(paramsNode, content)
		paramCount, hasParamHints = analyzePyParams(paramsNode, content)
	}

	returnNode := node.ChildByFieldName("return_type")
	returnType := ""
	if returnNode != nil {
		returnType = pyNodeText(returnNode, content)
	}

	signature := "def " + name + params
	if returnType != "" {
		signature += " -> " + returnType
	}

	body := node.ChildByFieldName("body")
	bodyText := ""
	if body != nil {
		bodyText = normalizePyBody(pyNodeText(body, content))
	}

	docstring := extractPyDocstring(body, content)

	return graph.PendingNode{
		Hash:             hashid.Compute(signature, bodyText, docstring),
		BodyNormalized:   bodyText,
		Kind:             graph.KindFunction,
		Name:             fullName,
		Signature:        signature,
		LineStart:        int(node.StartPoint().Row) + 1,
		LineEnd:          int(node.EndPoint().Row) + 1,
		Docstring:        docstring,
		IsPublic:         !strings.HasPrefix(name, "_"),
		TypeHintsPresent: hasParamHints && returnType != "",
		HasDocstring:     docstring != "",
		ParamCount:       paramCount,
		IsTest:           strings.HasPrefix(name, "test_"),
	}
}

// analyzePyParams counts parameters (excluding self/cls/*args-markers) and
// reports whether any carries a type annotation.
func analyzePyParams(paramsNode *sitter.Node, content []byte) (count int, hasHints bool) {
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		p := paramsNode.NamedChild(i)
		switch p.Type() {
		case "identifier":
			name := pyNodeText(p, content)
			if name == "self" || name == "cls" {
				continue
			}
			count++
		case "typed_parameter", "typed_default_parameter":
			count++
			hasHints = true
		case "default_parameter":
			count++
		}
	}
	return count, hasHints
}

// normalizePyBody strips whitespace runs so formatting-only diffs don't
// change the content hash.
func normalizePyBody(body string) string {
	fields := strings.Fields(body)
	return strings.Join(fields, " ")
}

// extractPyDocstring returns the first statement of body when it's a bare
// string literal, per Python's docstring convention.
func extractPyDocstring(body *sitter.Node, content []byte) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	text := pyNodeText(str, content)
	text = strings.Trim(text, `"'`)
	return strings.TrimSpace(text)
}

// extractPyImports collects top-level "import x" and "from x import y" forms.
func extractPyImports(root *sitter.Node, content []byte) []graph.Import {
	var imports []graph.Import
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		switch stmt.Type() {
		case "import_statement":
			for j := 0; j < int(stmt.NamedChildCount()); j++ {
				child := stmt.NamedChild(j)
				switch child.Type() {
				case "dotted_name":
					imports = append(imports, graph.Import{Source: pyNodeText(child, content)})
				case "aliased_import":
					nameNode := child.ChildByFieldName("name")
					aliasNode := child.ChildByFieldName("alias")
					if nameNode != nil {
						imp := graph.Import{Source: pyNodeText(nameNode, content)}
						if aliasNode != nil {
							imp.Alias = pyNodeText(aliasNode, content)
						}
						imports = append(imports, imp)
					}
				}
			}
		case "import_from_statement":
			moduleNode := stmt.ChildByFieldName("module_name")
			source := ""
			relative := false
			if moduleNode != nil {
				source = pyNodeText(moduleNode, content)
			}
			if strings.HasPrefix(source, ".") {
				relative = true
			}
			imp := graph.Import{Source: source, Relative: relative}
			star := false
			var names []string
			for j := 0; j < int(stmt.NamedChildCount()); j++ {
				child := stmt.NamedChild(j)
				if child.Type() == "wildcard_import" {
					star = true
				}
				if child.Type() == "dotted_name" && child != moduleNode {
					names = append(names, pyNodeText(child, content))
				}
				if child.Type() == "aliased_import" {
					if nameNode := child.ChildByFieldName("name"); nameNode != nil {
						names = append(names, pyNodeText(nameNode, content))
					}
				}
			}
			imp.Star = star
			imp.ImportedNames = names
			imports = append(imports, imp)
		}
	}
	return imports
}

// extractPyAllExports scans top-level statements for a module-level
// `__all__ = [...]` or `__all__ = (...)` assignment of string literals and
// returns the listed names, or nil if no such assignment exists.
func extractPyAllExports(root *sitter.Node, content []byte) []string {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "expression_statement" {
			continue
		}
		assign := stmt.NamedChild(0)
		if assign == nil || assign.Type() != "assignment" {
			continue
		}
		left := assign.ChildByFieldName("left")
		if left == nil || pyNodeText(left, content) != "__all__" {
			continue
		}
		right := assign.ChildByFieldName("right")
		if right == nil {
			continue
		}
		var names []string
		for j := 0; j < int(right.NamedChildCount()); j++ {
			item := right.NamedChild(j)
			if item.Type() != "string" {
				continue
			}
			names = append(names, strings.Trim(pyNodeText(item, content), `"'`))
		}
		return names
	}
	return nil
}

// ResolveCrossFile implements Tier 2 for Python. A relative import
// ("from . import x" / "from .sibling import x") resolves against a file in
// the same directory as the importing file (extra leading dots do not select
// a parent directory); an absolute "from pkg.mod import name"
// resolves against any candidate whose file path contains the dotted
// module path; a bare star import resolves against the target module's
// `__all__` list when one exists (0.65 listed, 0.50 public-but-unlisted),
// falling back to same-directory matching at reduced confidence when no
// star-import target can be identified at all.
func (r *PythonResolver) ResolveCrossFile(ref graph.Reference, fromFile graph.FileIndex, index *NameIndex) (ResolvedTarget, float64, bool) {
	candidates := index.ByName[ref.Name]
	if len(candidates) == 0 {
		return ResolvedTarget{}, 0, false
	}

	imports := index.Imports[fromFile.Path]
	var starImports []graph.Import
	for _, imp := range imports {
		if imp.Star {
			starImports = append(starImports, imp)
			continue
		}
		if imp.Relative {
			dir := path.Dir(fromFile.Path)
			for _, c := range candidates {
				if path.Dir(c.File) == dir {
					return ResolvedTarget{File: c.File, Name: c.Node.Name}, 0.7, true
				}
			}
		}
		for _, name := range imp.ImportedNames {
			if name == ref.Name {
				modulePath := strings.ReplaceAll(imp.Source, ".", "/")
				for _, c := range candidates {
					if strings.Contains(c.File, modulePath) {
						return ResolvedTarget{File: c.File, Name: c.Node.Name}, 0.65, true
					}
				}
			}
		}
	}

	if len(starImports) > 0 {
		type starMatch struct {
			target     ResolvedTarget
			confidence float64
		}
		var matches []starMatch
		for _, imp := range starImports {
			modulePath := strings.ReplaceAll(imp.Source, ".", "/")
			for _, c := range candidates {
				if !strings.Contains(c.File, modulePath) {
					continue
				}
				matches = append(matches, starMatch{
					target:     ResolvedTarget{File: c.File, Name: c.Node.Name},
					confidence: starImportConfidence(index, c.File, ref.Name),
				})
			}
		}
		switch len(matches) {
		case 0:
			// No star source could be matched to a candidate file; fall
			// back to same-directory matching at the generic star-import
			// confidence.
			dir := path.Dir(fromFile.Path)
			for _, c := range candidates {
				if path.Dir(c.File) == dir {
					return ResolvedTarget{File: c.File, Name: c.Node.Name}, 0.5, true
				}
			}
		case 1:
			return matches[0].target, matches[0].confidence, true
		default:
			// Ambiguous: the name is reachable through more than one star
			// import source.
			return matches[0].target, 0.40, true
		}
	}
	return ResolvedTarget{}, 0, false
}

// starImportConfidence scores a star-import resolution against the target
// file's own `__all__` list: 0.40 if the target itself chains another star
// import (its surface isn't fully known either), 0.65 if name is explicitly
// listed in the target's `__all__`, 0.50 otherwise (public-but-unlisted, or
// no `__all__` present at all).
func starImportConfidence(index *NameIndex, targetFile, name string) float64 {
	for _, imp := range index.Imports[targetFile] {
		if imp.Star {
			return 0.40
		}
	}
	for _, exported := range index.AllExports[targetFile] {
		if exported == name {
			return 0.65
		}
	}
	return 0.50
}
