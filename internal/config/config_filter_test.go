package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFilter(t *testing.T) {
	testCases := []struct {
		name           string
		typ            string
		condition      string
		env            interface{}
		expectedResult bool
	}{
		{
			name:           "empty file env",
			typ:            FilterTypeFile,
			condition:      "name != ''",
			env:            FilterFileEnv{},
			expectedResult: false,
		},
		{
			name:           "small file",
			typ:            FilterTypeFile,
			condition:      "ext == '.mmd' && size < 1000",
			env:            FilterFileEnv{Name: "a.mmd", Ext: ".mmd", Size: 10},
			expectedResult: true,
		},
		{
			name:           "empty block env",
			typ:            FilterTypeBlock,
			condition:      "title != ''",
			env:            FilterBlockEnv{},
			expectedResult: false,
		},
		{
			name:           "block kind",
			typ:            FilterTypeBlock,
			condition:      "kind in ['sequence', 'class']",
			env:            FilterBlockEnv{Kind: "sequence"},
			expectedResult: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			filter := Filter{
				Type:      tc.typ,
				Condition: tc.condition,
			}

			result, err := filter.Evaluate(tc.env)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedResult, result)
		})
	}
}

func TestConfigFilter_CompileError(t *testing.T) {
	filter := Filter{Type: FilterTypeFile, Condition: "size +"}
	_, err := filter.Evaluate(FilterFileEnv{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile filter program")
}

func TestMatch(t *testing.T) {
	filters := []*Filter{
		{Type: FilterTypeFile, Condition: "size < 100"},
		{Type: FilterTypeBlock, Condition: "false"},
	}

	ok, err := Match(filters, FilterTypeFile, FilterFileEnv{Size: 10})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Match(filters, FilterTypeFile, FilterFileEnv{Size: 1000})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Match(nil, FilterTypeBlock, FilterBlockEnv{})
	require.NoError(t, err)
	assert.True(t, ok)
}
