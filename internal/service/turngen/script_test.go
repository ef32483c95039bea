package turngen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/service/turngen"
)

func TestLoadScript(t *testing.T) {
	t.Parallel()
	s, err := turngen.LoadScript()
	require.NoError(t, err)
	assert.Len(t, s.Questions, domain.QuestionCeiling)
	assert.NotEmpty(t, s.System)
	assert.NotEmpty(t, s.Rules)
}

func TestScript_Ack_FirstMatchWins(t *testing.T) {
	t.Parallel()
	s, err := turngen.LoadScript()
	require.NoError(t, err)

	// Mentions both a lookup and a pivot; the lookup rule comes first.
	ack := s.Ack("I'd use VLOOKUP before building a pivot table")
	assert.Contains(t, strings.ToLower(ack), "lookup")

	// Case-insensitive matching.
	assert.Equal(t, s.Ack("vlookup"), s.Ack("VLOOKUP"))
}

func TestScript_Ack_DefaultLast(t *testing.T) {
	t.Parallel()
	s, err := turngen.LoadScript()
	require.NoError(t, err)
	ack := s.Ack("I am not sure about any of this")
	assert.Equal(t, "Thank you for your answer.", ack)
}

func TestScript_NextQuestion(t *testing.T) {
	t.Parallel()
	s, err := turngen.LoadScript()
	require.NoError(t, err)

	// The welcome already asked question 0, so the reply to the first
	// answer asks question 1.
	assert.Equal(t, s.Questions[1], s.NextQuestion(0))
	assert.Equal(t, s.Questions[4], s.NextQuestion(3))

	// Past the end of the script the closing line is returned.
	closing := s.NextQuestion(4)
	assert.Contains(t, strings.ToLower(closing), "completes the interview")
	assert.Equal(t, closing, s.NextQuestion(10))
}
