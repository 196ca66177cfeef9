package identifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIsValidNameAccepts tests names that should pass validation
func TestIsValidNameAccepts(t *testing.T) {
	valid := []string{
		"valid_name",
		"_ok",
		`"Weird Name"`,
		"a",
		"sales",
		"db$shard1",
		`"has""doubled""quotes"`,
		strings.Repeat("x", 63),
	}

	for _, name := range valid {
		assert.True(t, IsValidName(name), "expected %q to be valid", name)
	}
}

// TestIsValidNameRejects tests names that should fail validation
func TestIsValidNameRejects(t *testing.T) {
	invalid := []string{
		"",
		"123bad",
		"bad-name!",
		strings.Repeat("x", 64),
		`"unbalanced`,
		`"bad"quote"`,
		`""`,
		"has space",
		"semi;colon",
	}

	for _, name := range invalid {
		assert.False(t, IsValidName(name), "expected %q to be invalid", name)
	}
}

// TestQuotedLengthLimit tests that the limit applies to the decoded body
func TestQuotedLengthLimit(t *testing.T) {
	assert.True(t, IsValidName(`"`+strings.Repeat("y", 63)+`"`))
	assert.False(t, IsValidName(`"`+strings.Repeat("y", 64)+`"`))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("fine"))

	err := Validate("not fine!")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	assert.Contains(t, err.Error(), "not fine!")
}

func TestEscapeLiteral(t *testing.T) {
	assert.Equal(t, "plain", EscapeLiteral("plain"))
	assert.Equal(t, "o''brien", EscapeLiteral("o'brien"))
	assert.Equal(t, "''''", EscapeLiteral("''"))
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"sales"`, QuoteIdentifier("sales"))
	assert.Equal(t, `"Weird Name"`, QuoteIdentifier(`"Weird Name"`))
	assert.Equal(t, `"with""quote"`, QuoteIdentifier(`with"quote`))

	// Already-quoted input is decoded before re-quoting, never double-wrapped.
	assert.Equal(t, `"db"`, QuoteIdentifier(`"db"`))
}
