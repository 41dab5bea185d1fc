package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		line     string
		expected []Token
	}{
		{
			name: "Keywords are lowercased, literals kept verbatim",
			line: "  CREATE Story 'User  Profile' in project aik  ",
			expected: []Token{
				{Text: "CREATE", Word: "create"},
				{Text: "Story", Word: "story"},
				{Text: "User  Profile", Word: "User  Profile", Quoted: true},
				{Text: "in", Word: "in"},
				{Text: "project", Word: "project"},
				{Text: "aik", Word: "aik"},
			},
		},
		{
			name: "Double quotes and trailing punctuation",
			line: `comment "Looks good." on AIK-1.`,
			expected: []Token{
				{Text: "comment", Word: "comment"},
				{Text: "Looks good.", Word: "Looks good.", Quoted: true},
				{Text: "on", Word: "on"},
				{Text: "AIK-1", Word: "aik-1"},
			},
		},
		{
			name: "Typographic quotes are folded",
			line: "comment ‘Ship it’ on AIK-2",
			expected: []Token{
				{Text: "comment", Word: "comment"},
				{Text: "Ship it", Word: "Ship it", Quoted: true},
				{Text: "on", Word: "on"},
				{Text: "AIK-2", Word: "aik-2"},
			},
		},
		{
			name: "Apostrophes inside words and literals",
			line: "assign AIK-1 to O'Brien 'Don't panic'",
			expected: []Token{
				{Text: "assign", Word: "assign"},
				{Text: "AIK-1", Word: "aik-1"},
				{Text: "to", Word: "to"},
				{Text: "O'Brien", Word: "o'brien"},
				{Text: "Don't panic", Word: "Don't panic", Quoted: true},
			},
		},
		{
			name: "Literal followed by comma",
			line: "create task 'DB setup', in AIK",
			expected: []Token{
				{Text: "create", Word: "create"},
				{Text: "task", Word: "task"},
				{Text: "DB setup", Word: "DB setup", Quoted: true},
				{Text: "in", Word: "in"},
				{Text: "AIK", Word: "aik"},
			},
		},
		{
			name:     "Blank line",
			line:     "   ",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := Normalize(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, tokens)
		})
	}
}

func TestNormalizeUnbalancedQuotes(t *testing.T) {
	lines := []string{
		"create story 'User profile in project AIK",
		`comment "half open on AIK-1`,
		"add comment 'mixed\" to AIK-1",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			_, err := Normalize(line)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}
