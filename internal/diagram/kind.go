// Package diagram describes the diagram kinds and themes known to the
// editor, together with their starter templates and a best-effort kind
// detector for raw diagram source.
package diagram

import (
	"strings"

	"github.com/pkg/errors"
)

// Kind selects the default template of a session and is passed along
// to the renderer configuration.
type Kind string

const (
	KindFlowchart Kind = "flowchart"
	KindSequence  Kind = "sequence"
	KindClass     Kind = "class"
	KindState     Kind = "state"
	KindER        Kind = "er"
	KindGantt     Kind = "gantt"
	KindPie       Kind = "pie"
	KindMindmap   Kind = "mindmap"
	KindTimeline  Kind = "timeline"
	KindQuadrant  Kind = "quadrant"
	KindGitGraph  Kind = "gitgraph"
	KindC4        Kind = "c4"
	KindSankey    Kind = "sankey"
	KindBlock     Kind = "block"
	KindJourney   Kind = "journey"
)

// Kinds lists every supported kind in menu order.
var Kinds = []Kind{
	KindFlowchart,
	KindSequence,
	KindClass,
	KindState,
	KindER,
	KindGantt,
	KindPie,
	KindMindmap,
	KindTimeline,
	KindQuadrant,
	KindGitGraph,
	KindC4,
	KindSankey,
	KindBlock,
	KindJourney,
}

// DefaultKind is used when nothing else is known about a session.
const DefaultKind = KindFlowchart

func (k Kind) String() string { return string(k) }

// Valid reports whether k is one of [Kinds].
func (k Kind) Valid() bool {
	_, ok := templates[k]
	return ok
}

// ParseKind converts a user-provided name into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", errors.Errorf("unknown diagram kind %q", s)
	}
	return k, nil
}
