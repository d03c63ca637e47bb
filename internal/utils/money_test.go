package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	out := FormatPrice("en-US", "USD", 1234.5)
	assert.Contains(t, out, "1,234.50")
	assert.Contains(t, out, "$")

	// Garbage settings still produce a readable price.
	out = FormatPrice("not a locale", "???", 99)
	assert.NotEmpty(t, out)
	assert.Contains(t, out, "99")
}
