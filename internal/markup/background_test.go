package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithBackground(t *testing.T) {
	testCases := []struct {
		name   string
		markup string
		want   string
	}{
		{
			name:   "no style",
			markup: `<svg id="d"><g></g></svg>`,
			want:   `<svg id="d" style="background-color: #1e1e1e"><g></g></svg>`,
		},
		{
			name:   "existing style",
			markup: `<svg style="max-width: 100px;"></svg>`,
			want:   `<svg style="background-color: #1e1e1e; max-width: 100px;"></svg>`,
		},
		{
			name:   "unparseable",
			markup: `plain text`,
			want:   `plain text`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, WithBackground(tc.markup, "#1e1e1e"))
		})
	}
}
