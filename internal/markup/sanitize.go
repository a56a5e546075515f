// Package markup works on rendered diagram markup. All markup coming back
// from the renderer is untrusted and goes through [Sanitize] before it is
// handed to a client.
package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// deniedElements are dropped together with their subtrees.
var deniedElements = map[string]bool{
	"script":   true,
	"noscript": true,
	"iframe":   true,
	"frame":    true,
	"frameset": true,
	"object":   true,
	"embed":    true,
	"applet":   true,
	"base":     true,
	"form":     true,
	"input":    true,
	"button":   true,
	"textarea": true,
	"select":   true,
}

// deniedAttributes are dropped whatever their value is.
var deniedAttributes = map[string]bool{
	"href":       true,
	"xlink:href": true,
	"action":     true,
	"formaction": true,
}

var deniedPrefixes = []string{"on", "javascript:", "vbscript:", "data:"}

var deniedValuePrefixes = []string{"javascript:", "vbscript:", "data:"}

// Sanitize removes elements and attributes capable of running code or
// loading remote content. Only the first top-level element is kept.
//
// If no element can be found, the input is returned unchanged.
func Sanitize(markup string) string {
	root := parseRoot(markup)
	if root == nil {
		return markup
	}

	if deniedElements[strings.ToLower(root.Data)] {
		return ""
	}

	clean(root)

	var b strings.Builder
	if err := html.Render(&b, root); err != nil {
		return markup
	}
	return b.String()
}

func parseRoot(markup string) *html.Node {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			n.Parent, n.PrevSibling, n.NextSibling = nil, nil, nil
			return n
		}
	}
	return nil
}

func clean(n *html.Node) {
	n.Attr = cleanAttributes(n.Attr)

	var denied []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if deniedElements[strings.ToLower(c.Data)] {
			denied = append(denied, c)
			continue
		}
		clean(c)
	}
	for _, c := range denied {
		n.RemoveChild(c)
	}
}

func cleanAttributes(attrs []html.Attribute) []html.Attribute {
	result := attrs[:0]
	for _, a := range attrs {
		if !deniedAttribute(a) {
			result = append(result, a)
		}
	}
	return result
}

func deniedAttribute(a html.Attribute) bool {
	name := strings.ToLower(a.Key)
	if deniedAttributes[name] {
		return true
	}
	if a.Namespace != "" && deniedAttributes[strings.ToLower(a.Namespace)+":"+name] {
		return true
	}
	for _, p := range deniedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	value := normalizeValue(a.Val)
	for _, p := range deniedValuePrefixes {
		if strings.HasPrefix(value, p) {
			return true
		}
	}
	return false
}

// normalizeValue drops whitespace and control characters which browsers
// ignore inside URL schemes, e.g. "java\tscript:".
func normalizeValue(v string) string {
	return strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, strings.ToLower(v))
}
