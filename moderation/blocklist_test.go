// moderation/blocklist_test.go
package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlocklist_Check(t *testing.T) {
	bl := NewBlocklist()

	testCases := []struct {
		name     string
		input    string // raw text, normalized before matching
		blocked  bool
		category string
	}{
		{
			name:     "clean threat",
			input:    "i will kill you",
			blocked:  true,
			category: CategoryThreat,
		},
		{
			name:    "benign text",
			input:   "hope you have a great day",
			blocked: false,
		},
		{
			name:     "kys abbreviation",
			input:    "kys",
			blocked:  true,
			category: CategorySelfHarm,
		},
		{
			name:     "spaced-out kys",
			input:    "k y s",
			blocked:  true,
			category: CategorySelfHarm,
		},
		{
			name:     "death wish",
			input:    "go die",
			blocked:  true,
			category: CategoryDeathWish,
		},
		{
			name:     "death wish with spacing evasion",
			input:    "you should d i e",
			blocked:  true,
			category: CategoryDeathWish,
		},
		{
			name:     "leetspeak slur",
			input:    "you n1gger",
			blocked:  true,
			category: CategoryHateSpeech,
		},
		{
			name:     "directed vulgarity",
			input:    "you suck",
			blocked:  true,
			category: CategoryHarassment,
		},
		{
			name:     "contraction evasion",
			input:    "why don't you just kill yourself",
			blocked:  true,
			category: CategorySelfHarm,
		},
		{
			name:    "benign word containing a flagged substring",
			input:   "this is a wholesale deal",
			blocked: false,
		},
		{
			name:    "compliment",
			input:   "loved your talk today, you were great",
			blocked: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := bl.Check(Normalize(tc.input))
			require.Equal(t, tc.blocked, result.Blocked)
			if tc.blocked {
				require.Equal(t, tc.category, result.Category)
				require.NotEmpty(t, result.Pattern)
			}
		})
	}
}

func TestBlocklist_FirstMatchWins(t *testing.T) {
	bl := NewBlocklist()

	// "kill yourself" appears in both the self-harm and harassment groups;
	// declaration order makes the self-harm entry authoritative.
	result := bl.Check(Normalize("kill yourself"))
	require.True(t, result.Blocked)
	require.Equal(t, CategorySelfHarm, result.Category)
}

func TestBlocklist_PatternPrefixIsBounded(t *testing.T) {
	bl := NewBlocklist()

	result := bl.Check(Normalize("i will kill you"))
	require.True(t, result.Blocked)
	require.LessOrEqual(t, len(result.Pattern), patternPrefixLen)
}

func TestBlocklist_NoEntriesMatchEmpty(t *testing.T) {
	bl := NewBlocklist()
	require.False(t, bl.Check("").Blocked)
	require.Positive(t, bl.Len())
}
