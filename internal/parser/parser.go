// Package parser extracts diagram sources from Markdown documents.
package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/stateful/diagrammer/internal/diagram"
)

var languages = map[string]bool{
	"mermaid": true,
	"mmd":     true,
}

type Parser struct {
	rootNode ast.Node
	src      []byte
}

func New(src []byte) *Parser {
	mdp := goldmark.DefaultParser()
	rootNode := mdp.Parse(text.NewReader(src))

	return &Parser{
		rootNode: rootNode,
		src:      src,
	}
}

// Block is a fenced mermaid code block.
type Block struct {
	// Index counts mermaid blocks from zero in document order.
	Index int
	// Title is the text of the closest heading above the block.
	Title  string
	Source string
	// Line is the 1-based line of the first source line.
	Line int
}

func (b Block) Kind() diagram.Kind {
	return diagram.Detect(b.Source)
}

func (b Block) Lines() int {
	return strings.Count(strings.TrimRight(b.Source, "\n"), "\n") + 1
}

// Blocks returns the mermaid blocks of the document, nested ones
// included, for example inside list items or block quotes.
func (p *Parser) Blocks() []Block {
	var (
		result []Block
		title  string
	)

	_ = ast.Walk(p.rootNode, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := n.(type) {
		case *ast.Heading:
			title = strings.TrimSpace(string(n.Text(p.src)))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			lang := strings.ToLower(string(n.Language(p.src)))
			if !languages[lang] {
				return ast.WalkSkipChildren, nil
			}

			var content bytes.Buffer
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				_, _ = content.Write(line.Value(p.src))
			}

			block := Block{
				Index:  len(result),
				Title:  title,
				Source: content.String(),
			}
			if lines.Len() > 0 {
				block.Line = bytes.Count(p.src[:lines.At(0).Start], []byte("\n")) + 1
			}
			result = append(result, block)
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})

	return result
}
