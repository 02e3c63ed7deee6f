package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimings(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected []string
	}{
		{
			name:     "count triple morning and night",
			line:     "Paracetamol 650mg 1-0-1",
			expected: []string{Morning, Night},
		},
		{
			name:     "count triple all three",
			line:     "Metformin 500mg 1-1-1",
			expected: []string{Morning, Noon, Night},
		},
		{
			name:     "count triple night only",
			line:     "Atorvastatin 10mg 0-0-1",
			expected: []string{Night},
		},
		{
			name:     "all-zero triple falls through to sentinel",
			line:     "Amoxicillin 250mg 0-0-0",
			expected: []string{AsDirected},
		},
		{
			name:     "all-zero triple falls through to keyword",
			line:     "Amoxicillin 250mg 0-0-0 at night",
			expected: []string{Night},
		},
		{
			name:     "later nonzero triple wins over a leading all-zero one",
			line:     "Paracetamol 650mg 0-0-0 1-0-1",
			expected: []string{Morning, Night},
		},
		{
			name:     "OD",
			line:     "Aspirin 75mg OD",
			expected: []string{Morning},
		},
		{
			name:     "BD",
			line:     "Cough Syrup 10ml BD",
			expected: []string{Morning, Night},
		},
		{
			name:     "twice daily phrase",
			line:     "Ibuprofen 400mg twice daily",
			expected: []string{Morning, Night},
		},
		{
			name:     "TDS",
			line:     "Azithromycin 500mg TDS",
			expected: []string{Morning, Noon, Night},
		},
		{
			name:     "three times daily phrase",
			line:     "Azithromycin 500mg three times daily",
			expected: []string{Morning, Noon, Night},
		},
		{
			name:     "HS",
			line:     "Pantoprazole 40mg HS",
			expected: []string{Night},
		},
		{
			name:     "lowercase hs",
			line:     "pantoprazole 40mg hs",
			expected: []string{Night},
		},
		{
			name:     "HS inside a word does not match",
			line:     "NHS formulary tablet",
			expected: []string{AsDirected},
		},
		{
			name:     "clock times verbatim",
			line:     "Insulin 10ml at 8:00 and 20:30",
			expected: []string{"8:00", "20:30"},
		},
		{
			name:     "clock overrides count triple and abbreviation",
			line:     "Levothyroxine 50mcg 1-0-1 BD 7:30",
			expected: []string{"7:30"},
		},
		{
			name:     "keywords are additive",
			line:     "Vitamin C tablet morning and evening",
			expected: []string{Morning, Night},
		},
		{
			name:     "afternoon maps to Noon",
			line:     "Calcium tablet every afternoon",
			expected: []string{Noon},
		},
		{
			name:     "no evidence yields sentinel",
			line:     "Multivitamin capsule",
			expected: []string{AsDirected},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Timings(tt.line))
		})
	}
}

func TestFirstTimingIndex(t *testing.T) {
	assert.Equal(t, -1, firstTimingIndex("Paracetamol 650mg"))
	assert.Equal(t, 18, firstTimingIndex("Paracetamol 650mg 1-0-1"))
	// Earliest of several tokens wins.
	assert.Equal(t, 8, firstTimingIndex("Insulin 8:00 1-0-1"))
}
