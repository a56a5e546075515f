// Package rename maps an edit of rendered text back onto diagram source.
//
// There is no parser for the diagram language here. [RegexPatcher] tries
// a fixed, ordered list of syntax-aware rules and applies only the first
// one that matches. When the same name appears in several syntactic roles,
// occurrences outside of the winning rule are left untouched.
package rename

import (
	"regexp"
	"strings"
)

// Patcher rewrites source so that oldText reads newText.
type Patcher interface {
	Patch(source, oldText, newText string) Result
}

type Result struct {
	Source string
	// Rule names the rule that matched. It is empty when nothing matched.
	Rule    string
	Changed bool
}

// Rule surrounds the quoted old text with left and right context. Both
// Left and Right must contain exactly one capturing group each, which are
// kept in the replacement.
type Rule struct {
	Name  string
	Left  string
	Right string
}

const arrow = `(?:<<|<|x|o)?[-=.]{1,3}(?:>>|>|x|o|\))?[+-]?`

// DefaultRules are ordered by priority.
var DefaultRules = []Rule{
	{
		Name:  "declaration",
		Left:  `(?m)(^[ \t]*(?:participant|actor|class|state|entity|subgraph|section|title|object)[ \t]+"?)`,
		Right: `("?(?:[ \t]*$|[ \t]*[{\[:~(<]|[ \t]+as\b))`,
	},
	{
		Name:  "alias",
		Left:  `(?m)(\bas[ \t]+"?)`,
		Right: `("?[ \t]*$)`,
	},
	{
		Name:  "bracket-label",
		Left:  `(\[[ \t]*["(/\\]?)`,
		Right: `(["(/\\)]?[ \t]*\])`,
	},
	{
		Name:  "paren-label",
		Left:  `(\([ \t(]*"?)`,
		Right: `("?[ \t)]*\))`,
	},
	{
		Name:  "brace-label",
		Left:  `(\{[ \t{]*"?)`,
		Right: `("?[ \t}]*\})`,
	},
	{
		Name:  "edge-label",
		Left:  `(\|[ \t]*"?)`,
		Right: `("?[ \t]*\|)`,
	},
	{
		Name:  "arrow-sender",
		Left:  `(?m)(^[ \t]*)`,
		Right: `([ \t]*` + arrow + `)`,
	},
	{
		Name:  "arrow-receiver",
		Left:  `(?m)(` + arrow + `[ \t]*)`,
		Right: `([ \t]*(?::|$))`,
	},
	{
		Name:  "colon-body",
		Left:  `(?m)(:[ \t]*)`,
		Right: `([ \t]*$)`,
	},
	{
		Name:  "quoted",
		Left:  `(")`,
		Right: `(")`,
	},
}

type compiledRule struct {
	name  string
	left  string
	right string
}

// RegexPatcher is safe for concurrent use.
type RegexPatcher struct {
	rules []compiledRule
}

var _ Patcher = (*RegexPatcher)(nil)

func NewRegexPatcher(rules []Rule) *RegexPatcher {
	p := &RegexPatcher{}
	for _, r := range rules {
		// Validate the anchors eagerly so that a broken rule fails at
		// construction, not on the first rename.
		regexp.MustCompile(r.Left + "x" + r.Right)
		p.rules = append(p.rules, compiledRule{name: r.Name, left: r.Left, right: r.Right})
	}
	return p
}

// Default returns a patcher using [DefaultRules].
func Default() *RegexPatcher {
	return NewRegexPatcher(DefaultRules)
}

func (p *RegexPatcher) Patch(source, oldText, newText string) Result {
	result := Result{Source: source}
	if oldText == "" || newText == "" || oldText == newText {
		return result
	}

	quoted := regexp.QuoteMeta(oldText)
	replacement := "${1}" + escapeReplacement(newText) + "${2}"

	for _, r := range p.rules {
		re, err := regexp.Compile(r.left + quoted + r.right)
		if err != nil {
			continue
		}
		if !re.MatchString(source) {
			continue
		}
		result.Source = re.ReplaceAllString(source, replacement)
		result.Rule = r.name
		result.Changed = result.Source != source
		return result
	}

	re := regexp.MustCompile(wordBoundary(oldText, quoted))
	result.Source = re.ReplaceAllLiteralString(source, newText)
	if result.Source != source {
		result.Rule = "word"
		result.Changed = true
	}
	return result
}

// wordBoundary adds \b only on the sides of old text that start or end
// with a word character, otherwise the boundary could never match.
func wordBoundary(oldText, quoted string) string {
	var b strings.Builder
	if isWordByte(oldText[0]) {
		b.WriteString(`\b`)
	}
	b.WriteString(quoted)
	if isWordByte(oldText[len(oldText)-1]) {
		b.WriteString(`\b`)
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' ||
		('0' <= c && c <= '9') ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z')
}

func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
