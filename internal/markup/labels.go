package markup

import (
	"strings"

	"golang.org/x/net/html"
)

// skipText are elements whose text is never a visible label.
var skipText = map[string]bool{
	"style":  true,
	"script": true,
	"title":  true,
	"desc":   true,
	"defs":   true,
}

// Labels returns the visible text of rendered markup in document order,
// without duplicates. These are the strings a user can click on and rename.
func Labels(markup string) []string {
	root := parseRoot(markup)
	if root == nil {
		return nil
	}

	var (
		result []string
		seen   = make(map[string]bool)
		walk   func(*html.Node)
	)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.ElementNode:
				if !skipText[strings.ToLower(c.Data)] {
					walk(c)
				}
			case html.TextNode:
				text := strings.Join(strings.Fields(c.Data), " ")
				if text != "" && !seen[text] {
					seen[text] = true
					result = append(result, text)
				}
			}
		}
	}
	walk(root)

	return result
}
