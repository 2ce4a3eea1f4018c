package service

import (
	"testing"

	"github.com/haitranq/prepline/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestParseScoreAndFeedback(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		score    string
		feedback string
		wantErr  bool
	}{
		{
			"well formed",
			"Score: 7\nFeedback: Clear structure, weak conclusion.",
			"7",
			"Clear structure, weak conclusion.",
			false,
		},
		{
			"score only",
			"Score: 9",
			"9",
			"",
			false,
		},
		{
			"score with trailing words",
			"Score: 6 out of 10\nFeedback: Good vocabulary.",
			"6",
			"Good vocabulary.",
			false,
		},
		{
			"feedback without marker",
			"Score: 4\nThe response misses the second part of the prompt.",
			"4",
			"The response misses the second part of the prompt.",
			false,
		},
		{
			"no score marker",
			"This is an essay about travel.",
			"",
			"This is an essay about travel.",
			true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			score, feedback, err := parseScoreAndFeedback(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.score, score)
			assert.Equal(t, tc.feedback, feedback)
		})
	}
}

func TestExtractAnswerText(t *testing.T) {
	testCases := []struct {
		name     string
		payload  string
		expected string
	}{
		{"plain string", `"my essay text"`, "my essay text"},
		{"speaking transcript", `{"transcript":"spoken answer","recording":"ref123"}`, "spoken answer"},
		{"structured text field", `{"text":"typed answer"}`, "typed answer"},
		{"empty object", `{}`, ""},
		{"array payload", `[1,2,3]`, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := &model.StudentResponse{Response: datatypes.JSON(tc.payload)}
			assert.Equal(t, tc.expected, extractAnswerText(resp))
		})
	}
}
