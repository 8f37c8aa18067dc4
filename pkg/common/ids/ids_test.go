package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		expected string
	}{
		{name: "empty collection", existing: nil, expected: "1"},
		{name: "sequential ids", existing: []string{"1", "2", "3"}, expected: "4"},
		{name: "gaps use the maximum", existing: []string{"7", "2"}, expected: "8"},
		{name: "non-numeric ids ignored", existing: []string{"abc", "5", "uuid-like"}, expected: "6"},
		{name: "only non-numeric ids", existing: []string{"x"}, expected: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Next(tt.existing))
		})
	}
}
