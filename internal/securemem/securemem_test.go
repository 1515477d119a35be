package securemem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringLifecycle(t *testing.T) {
	s := NewString("sk-test-1234567890")
	assert.Equal(t, "sk-test-1234567890", s.String())
	assert.True(t, s.Equal("sk-test-1234567890"))
	assert.False(t, s.Equal("sk-other"))
	assert.Equal(t, "sk-…7890", s.Redacted())

	s.Destroy()
	assert.True(t, s.IsEmpty())
	assert.Equal(t, "", s.String())
	assert.NotPanics(t, s.Destroy)
}

func TestEmptyString(t *testing.T) {
	s := NewString("")
	assert.True(t, s.IsEmpty())
	assert.True(t, s.Equal(""))
	assert.Equal(t, "", s.Redacted())

	var nilString *String
	assert.Equal(t, "", nilString.String())
	assert.NotPanics(t, nilString.Destroy)
}

func TestShortSecretIsMasked(t *testing.T) {
	assert.Equal(t, "****", NewString("abc").Redacted())
}

func TestKeyring(t *testing.T) {
	k := NewKeyring()
	k.Set("openai", "sk-one")
	k.Set("groq", "gsk-two")

	assert.Equal(t, "sk-one", k.Get("openai"))
	assert.True(t, k.Has("groq"))
	assert.False(t, k.Has("anthropic"))
	assert.Equal(t, "", k.Get("anthropic"))
	assert.Equal(t, []string{"groq", "openai"}, k.Providers())

	k.Set("openai", "sk-rotated")
	assert.Equal(t, "sk-rotated", k.Get("openai"))

	k.Set("groq", "")
	assert.False(t, k.Has("groq"))

	k.Clear()
	assert.Empty(t, k.Providers())
}
