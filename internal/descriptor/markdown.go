package descriptor

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrNoCodeBlock is returned when markdown input has no fenced code block.
var ErrNoCodeBlock = errors.New("no fenced code block found")

// CodeBlock represents a parsed code block from markdown content.
type CodeBlock struct {
	// Lang is the language identifier of the code block (e.g., "json", "ts").
	Lang string
	// Content is the raw text inside the code block.
	Content string
}

// ExtractCodeBlocks uses a markdown AST to find all fenced code blocks.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block CodeBlock
		if fenced.Info != nil {
			block.Lang = strings.TrimSpace(string(fenced.Info.Text(source)))
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		block.Content = content.String()

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}

	return blocks, nil
}

var langAliases = map[string]string{
	"javascript": "js",
	"typescript": "ts",
	"jsonc":      "json",
}

// CodeBlockFor returns the content of the first fenced block whose language
// matches the extension of path, or of the first block when none does.
// The trailing newline is dropped so the block can be used as a
// replacement.
func CodeBlockFor(source []byte, path string) (string, error) {
	blocks, err := ExtractCodeBlocks(source)
	if err != nil {
		return "", err
	}
	if len(blocks) == 0 {
		return "", ErrNoCodeBlock
	}
	chosen := blocks[0]
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext != "" {
		for _, b := range blocks {
			if lang := normalizeLang(b.Lang); lang == ext {
				chosen = b
				break
			}
		}
	}
	return strings.TrimSuffix(chosen.Content, "\n"), nil
}

func normalizeLang(info string) string {
	lang := strings.ToLower(info)
	if i := strings.IndexAny(lang, " \t{"); i >= 0 {
		lang = lang[:i]
	}
	if alias, ok := langAliases[lang]; ok {
		return alias
	}
	return lang
}
