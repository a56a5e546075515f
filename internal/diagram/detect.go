package diagram

import "regexp"

type detector struct {
	kind    Kind
	pattern *regexp.Regexp
}

// detectors are tried in order and the first match wins. This is a
// heuristic over header keywords, not a grammar.
var detectors = []detector{
	{KindSequence, regexp.MustCompile(`(?m)^\s*sequenceDiagram\b`)},
	{KindClass, regexp.MustCompile(`(?m)^\s*classDiagram(?:-v2)?\b`)},
	{KindState, regexp.MustCompile(`(?m)^\s*stateDiagram(?:-v2)?\b`)},
	{KindER, regexp.MustCompile(`(?m)^\s*erDiagram\b`)},
	{KindGantt, regexp.MustCompile(`(?m)^\s*gantt\b`)},
	{KindPie, regexp.MustCompile(`(?m)^\s*pie\b`)},
	{KindMindmap, regexp.MustCompile(`(?m)^\s*mindmap\b`)},
	{KindTimeline, regexp.MustCompile(`(?m)^\s*timeline\b`)},
	{KindQuadrant, regexp.MustCompile(`(?m)^\s*quadrantChart\b`)},
	{KindGitGraph, regexp.MustCompile(`(?m)^\s*gitGraph\b`)},
	{KindC4, regexp.MustCompile(`(?m)^\s*C4(?:Context|Container|Component|Dynamic|Deployment)\b`)},
	{KindSankey, regexp.MustCompile(`(?m)^\s*sankey(?:-beta)?\b`)},
	{KindBlock, regexp.MustCompile(`(?m)^\s*block(?:-beta)?\b`)},
	{KindJourney, regexp.MustCompile(`(?m)^\s*journey\b`)},
	{KindFlowchart, regexp.MustCompile(`(?m)^\s*(?:flowchart|graph)\b`)},
}

// Detect guesses the kind of a diagram source. It returns [DefaultKind]
// when no header keyword is recognized.
func Detect(source string) Kind {
	for _, d := range detectors {
		if d.pattern.MatchString(source) {
			return d.kind
		}
	}
	return DefaultKind
}
