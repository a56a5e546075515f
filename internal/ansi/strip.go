// Package ansi removes terminal escape sequences from process output.
package ansi

import "regexp"

const escapeSequence = "[\u001B\u009B][[\\]()#;?]*(?:(?:(?:[a-zA-Z\\d]*(?:;[a-zA-Z\\d]*)*)?\u0007)|(?:(?:\\d{1,4}(?:;\\d{0,4})*)?[\\dA-PRZcf-ntqry=><~]))"

var escapeSequenceRegexp = regexp.MustCompile(escapeSequence)

// Strip removes color and cursor control sequences from s.
func Strip(s string) string {
	return escapeSequenceRegexp.ReplaceAllString(s, "")
}
