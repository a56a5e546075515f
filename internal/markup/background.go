package markup

import (
	"strings"

	"golang.org/x/net/html"
)

// WithBackground prepends a background color to the style of the root
// element. Markup that cannot be parsed is returned unchanged.
func WithBackground(markup, color string) string {
	root := parseRoot(markup)
	if root == nil || color == "" {
		return markup
	}

	decl := "background-color: " + color
	found := false
	for i, a := range root.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, "style") {
			root.Attr[i].Val = decl + "; " + strings.TrimSpace(a.Val)
			found = true
			break
		}
	}
	if !found {
		root.Attr = append(root.Attr, html.Attribute{Key: "style", Val: decl})
	}

	var b strings.Builder
	if err := html.Render(&b, root); err != nil {
		return markup
	}
	return b.String()
}
