package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", SanitizeInput("  hello  "))
	assert.Equal(t, "line one\nline two", SanitizeInput("line one\nline two"))
	assert.Equal(t, "tabhere", SanitizeInput("tab\x00\x07here"))
	assert.Equal(t, "", SanitizeInput("   \t  "))

	long := strings.Repeat("a", 5000)
	assert.Len(t, SanitizeInput(long), 1000)
}

func TestGenerateReferenceCode(t *testing.T) {
	ref := GenerateReferenceCode("APT")
	assert.True(t, strings.HasPrefix(ref, "APT"))
	assert.Greater(t, len(ref), 10)

	// Two codes generated back to back should differ
	assert.NotEqual(t, GenerateReferenceCode("APT"), GenerateReferenceCode("APT"))
}
