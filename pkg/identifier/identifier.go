// Package identifier validates and escapes PostgreSQL database identifiers
// before they are embedded in subprocess arguments or SQL text.
package identifier

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidIdentifier indicates a name that failed validation and must not
// reach a subprocess or string-interpolated SQL.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// maxIdentifierLength matches the PostgreSQL NAMEDATALEN-1 limit.
const maxIdentifierLength = 63

// IsValidName reports whether name is acceptable as a database identifier.
// It accepts either an unquoted identifier (starts with a letter or
// underscore, letters/digits/underscore/$ only) or a double-quoted identifier
// with internal quotes doubled.
func IsValidName(name string) bool {
	if name == "" {
		return false
	}

	if strings.HasPrefix(name, `"`) {
		decoded, ok := decodeQuoted(name)
		if !ok {
			return false
		}
		return len(decoded) > 0 && len(decoded) <= maxIdentifierLength
	}

	if len(name) > maxIdentifierLength {
		return false
	}

	for i, r := range name {
		if i == 0 {
			if !isLetter(r) && r != '_' {
				return false
			}
			continue
		}
		if !isLetter(r) && !isDigit(r) && r != '_' && r != '$' {
			return false
		}
	}

	return true
}

// Validate returns ErrInvalidIdentifier wrapped with the offending name if
// name fails IsValidName.
func Validate(name string) error {
	if !IsValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// EscapeLiteral doubles single quotes so name can be placed inside a SQL
// string literal.
func EscapeLiteral(name string) string {
	return strings.ReplaceAll(name, "'", "''")
}

// QuoteIdentifier wraps name in double quotes for use as a SQL identifier,
// doubling any internal quotes. A name that is already properly quoted is
// decoded first so it is never double-wrapped.
func QuoteIdentifier(name string) string {
	if strings.HasPrefix(name, `"`) {
		if decoded, ok := decodeQuoted(name); ok {
			name = decoded
		}
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// decodeQuoted strips the surrounding double quotes and collapses doubled
// internal quotes. It returns false if the quoting is unbalanced.
func decodeQuoted(name string) (string, bool) {
	if len(name) < 2 || name[0] != '"' || name[len(name)-1] != '"' {
		return "", false
	}

	inner := name[1 : len(name)-1]
	var b strings.Builder

	for i := 0; i < len(inner); i++ {
		if inner[i] != '"' {
			b.WriteByte(inner[i])
			continue
		}
		// A quote inside the body must be doubled.
		if i+1 >= len(inner) || inner[i+1] != '"' {
			return "", false
		}
		b.WriteByte('"')
		i++
	}

	return b.String(), true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
