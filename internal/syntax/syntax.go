// Package syntax provides tree-sitter backed parsers for verifying patched
// JavaScript and TypeScript sources.
package syntax

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/sokinpui/anchorpatch/engine"
)

// TreeSitter verifies a document by parsing it with a tree-sitter grammar
// and reporting the first ERROR or MISSING node.
type TreeSitter struct {
	name string
	lang *sitter.Language
}

var (
	JavaScript = &TreeSitter{name: "javascript", lang: javascript.GetLanguage()}
	TypeScript = &TreeSitter{name: "typescript", lang: typescript.GetLanguage()}
	TSX        = &TreeSitter{name: "tsx", lang: tsx.GetLanguage()}
)

var byExtension = map[string]*TreeSitter{
	".js":  JavaScript,
	".jsx": JavaScript,
	".mjs": JavaScript,
	".cjs": JavaScript,
	".ts":  TypeScript,
	".mts": TypeScript,
	".cts": TypeScript,
	".tsx": TSX,
}

// Name returns the grammar name.
func (t *TreeSitter) Name() string { return t.name }

// Parse implements engine.Parser.
func (t *TreeSitter) Parse(text string) error {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(t.lang)

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(text))
	if err != nil {
		return &engine.PostPatchInvalidError{Position: -1, Message: fmt.Sprintf("%s parser: %v", t.name, err)}
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}

	node := firstError(root)
	if node == nil {
		node = root
	}
	point := node.StartPoint()
	msg := fmt.Sprintf("%s: syntax error", t.name)
	if node.IsMissing() {
		msg = fmt.Sprintf("%s: missing %s", t.name, node.Type())
	}
	return &engine.PostPatchInvalidError{
		Position: int(node.StartByte()),
		Line:     int(point.Row) + 1,
		Column:   int(point.Column) + 1,
		Message:  msg,
	}
}

// firstError walks the tree in document order and returns the first ERROR
// or MISSING node.
func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if child.IsError() || child.IsMissing() {
			return child
		}
		if child.HasError() {
			if found := firstError(child); found != nil {
				return found
			}
		}
	}
	return nil
}

// ForPath returns the parser for a file extension, or nil when no grammar
// is registered for it.
func ForPath(path string) *TreeSitter {
	return byExtension[strings.ToLower(filepath.Ext(path))]
}

// Lookup is an engine.ParserLookup selecting the grammar by document path.
func Lookup(doc engine.Document) engine.Parser {
	if p := ForPath(doc.Path); p != nil {
		return p
	}
	return nil
}
