// Package security validates user input and keeps credentials out of logs
// and command output.
package security

import (
	"net/url"
	"regexp"
	"strings"

	"papertrade/internal/errors"
)

// MaxSymbolLength is the longest ticker accepted.
const MaxSymbolLength = 20

// Letters, digits and the separators used by share classes and pairs
// (BRK.B, M&M, BTC-USD).
var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.&-]*$`)

// ValidateSymbol checks that symbol, once normalised, is a plausible ticker.
func ValidateSymbol(symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	switch {
	case symbol == "":
		return errors.NewValidationError(errors.ErrInputValidation, "symbol", symbol, "must not be empty")
	case len(symbol) > MaxSymbolLength:
		return errors.NewValidationError(errors.ErrInputValidation, "symbol", symbol, "too long (max 20 characters)")
	case !symbolPattern.MatchString(symbol):
		return errors.NewValidationError(errors.ErrInputValidation, "symbol", symbol, "invalid symbol format")
	}
	return nil
}

// MaskCredential keeps at most the first and last four characters of value.
func MaskCredential(value string) string {
	switch {
	case value == "":
		return ""
	case len(value) <= 4:
		return strings.Repeat("*", len(value))
	case len(value) <= 8:
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// RedactURL hides the user info and query of a URL; webhook endpoints often
// carry their token there. Unparseable input is masked wholesale.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return MaskCredential(raw)
	}
	if u.User != nil {
		u.User = url.User("redacted")
	}
	if u.RawQuery != "" {
		u.RawQuery = "***"
	}
	return u.String()
}
