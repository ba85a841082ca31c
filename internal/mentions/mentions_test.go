package mentions

import (
	"fmt"
	"strings"
	"testing"

	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Basic(t *testing.T) {
	tokens, err := Extract("hello @alice and @bob_2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob_2"}, tokens)
}

func TestExtract_NoMentions(t *testing.T) {
	tokens, err := Extract("no references here")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestExtract_Deduplicates(t *testing.T) {
	tokens, err := Extract("@sam @sam @sam and @pat")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sam", "pat"}, tokens)
}

func TestExtract_TokenLengthBound(t *testing.T) {
	long := strings.Repeat("x", 45)
	tokens, err := Extract("@" + long)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Len(t, tokens[0], 30, "token match is capped at 30 characters")
}

func TestExtract_InputTooLarge(t *testing.T) {
	tokens, err := Extract(strings.Repeat("a", MaxInputChars+1))
	assert.ErrorIs(t, err, domain.ErrInputTooLarge)
	assert.Nil(t, tokens)
}

func TestExtract_ExactCeilingAccepted(t *testing.T) {
	_, err := Extract(strings.Repeat("a", MaxInputChars))
	assert.NoError(t, err)
}

// The ceiling counts runes, not bytes. A multibyte text at the limit is
// accepted even though its byte length exceeds MaxInputChars.
func TestExtract_CeilingCountsRunes(t *testing.T) {
	tokens, err := Extract(strings.Repeat("é", MaxInputChars-8) + " @alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, tokens)

	_, err = Extract(strings.Repeat("é", MaxInputChars+1))
	assert.ErrorIs(t, err, domain.ErrInputTooLarge)
}

func TestExtract_DistinctCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, "@user%d ", i)
	}
	tokens, err := Extract(b.String())
	require.NoError(t, err)
	assert.Len(t, tokens, MaxMentions)

	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		_, dup := seen[tok]
		assert.False(t, dup, "token %q returned twice", tok)
		seen[tok] = struct{}{}
	}
}

func TestExtract_TokenAlphabet(t *testing.T) {
	tokens, err := Extract("@a-b @c.d @e!f")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c", "e"}, tokens, "token stops at non-word characters")
}

// Pathological inputs must scan in time linear in input length. RE2 plus the
// in-loop cap keeps this bounded; the test just exercises the worst shapes.
func TestExtract_PathologicalInput(t *testing.T) {
	cases := map[string]string{
		"repeated at":       strings.Repeat("@", MaxInputChars),
		"at-a pairs":        strings.Repeat("@a", MaxInputChars/2),
		"long single run":   "@" + strings.Repeat("a", MaxInputChars-1),
		"same token spam":   strings.Repeat("@aaaa ", MaxInputChars/6),
		"almost-mentions":   strings.Repeat("a@", MaxInputChars/2),
		"underscore floods": strings.Repeat("@_ ", MaxInputChars/3),
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			tokens, err := Extract(input)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(tokens), MaxMentions)
			for _, tok := range tokens {
				assert.GreaterOrEqual(t, len(tok), 1)
				assert.LessOrEqual(t, len(tok), 30)
			}
		})
	}
}
