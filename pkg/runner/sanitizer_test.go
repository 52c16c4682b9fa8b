package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput_Clean(t *testing.T) {
	out, err := SanitizeInput("hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestSanitizeInput_StripsControlChars(t *testing.T) {
	// ESC sequence typical of ANSI color injection
	out, err := SanitizeInput("safe\x1b[31mred\x07")
	require.NoError(t, err)
	assert.Equal(t, "safe[31mred", out)
}

func TestSanitizeInput_PreservesWhitespaceControls(t *testing.T) {
	out, err := SanitizeInput("line1\nline2\tend")
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\tend", out)
}

func TestSanitizeInput_RejectsOversized(t *testing.T) {
	_, err := SanitizeInput(strings.Repeat("a", DefaultMaxInputSize+1))
	assert.ErrorIs(t, err, ErrInputTooLarge)
}

func TestSanitizeInput_SizeOverride(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "10")
	_, err := SanitizeInput(strings.Repeat("a", 11))
	assert.ErrorIs(t, err, ErrInputTooLarge)

	out, err := SanitizeInput("short")
	require.NoError(t, err)
	assert.Equal(t, "short", out)
}

func TestSanitizeInput_RejectsInvalidUTF8(t *testing.T) {
	_, err := SanitizeInput(string([]byte{0xff, 0xfe}))
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
