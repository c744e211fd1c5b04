package azure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeExclusions(t *testing.T) {
	tests := []struct {
		name      string
		current   []string
		requested []string
		expected  []string
	}{
		{
			name:      "adds new ids",
			current:   []string{"app-1"},
			requested: []string{"app-2"},
			expected:  []string{"app-1", "app-2"},
		},
		{
			name:      "already present id is not duplicated",
			current:   []string{"app-1", "app-2"},
			requested: []string{"app-2"},
			expected:  []string{"app-1", "app-2"},
		},
		{
			name:      "externally added exclusions survive",
			current:   []string{"app-1", "app-added-elsewhere"},
			requested: []string{"app-1", "app-2"},
			expected:  []string{"app-1", "app-added-elsewhere", "app-2"},
		},
		{
			name:      "empty current",
			current:   nil,
			requested: []string{"app-1"},
			expected:  []string{"app-1"},
		},
		{
			name:      "empty request keeps current",
			current:   []string{"app-1"},
			requested: nil,
			expected:  []string{"app-1"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, mergeExclusions(tc.current, tc.requested))
		})
	}
}

func TestEscapeODataLiteral(t *testing.T) {
	assert.Equal(t, "O''Connor", escapeODataLiteral("O'Connor"))
	assert.Equal(t, "PAW Users", escapeODataLiteral("PAW Users"))
}
