// Package postalcode normalizes and validates Japanese postal codes,
// as typed by users in Slack ("123-4567", "1234567", " 123 4567 ").
package postalcode

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// Length is the number of digits in a normalized postal code.
	Length = 7

	// HintMessage describes the accepted input formats to end users.
	HintMessage = "郵便番号は 123-4567 または 1234567 の形式で指定してください"
	// RequiredMessage asks end users to provide a postal code.
	RequiredMessage = "郵便番号を指定してください"
)

// ErrEmpty is returned by [Normalize] when there is nothing left after
// stripping formatting characters. Callers decide whether this means
// "show the search form" or "the field is required".
var ErrEmpty = errors.New(RequiredMessage)

// ValidationError is returned by [Normalize] for non-empty input
// that is not shaped like a postal code.
type ValidationError struct {
	Input   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var validate = validator.New()

// Code is a normalized postal code: exactly 7 ASCII digits.
// The zero value is not a valid code, use [Normalize] to create one.
type Code struct {
	digits string
}

// Digits returns the normalized form, e.g. "1234567".
func (c Code) Digits() string {
	return c.digits
}

// String returns the display form, with a hyphen after
// the third digit, e.g. "123-4567".
func (c Code) String() string {
	if len(c.digits) != Length {
		return c.digits
	}
	return c.digits[:3] + "-" + c.digits[3:]
}

// Normalize strips surrounding whitespace, inner spaces and hyphens from raw
// user input, and checks that exactly 7 ASCII digits remain. It returns
// [ErrEmpty] if nothing remains, or a [ValidationError] with [HintMessage].
func Normalize(raw string) (Code, error) {
	return normalize(raw, strings.NewReplacer("-", "", " ", "", "　", ""))
}

// ForLookup is like [Normalize], but also strips asterisks,
// which users sometimes type as wildcards in free-text commands.
func ForLookup(raw string) (Code, error) {
	return normalize(raw, strings.NewReplacer("-", "", " ", "", "　", "", "*", ""))
}

func normalize(raw string, r *strings.Replacer) (Code, error) {
	s := r.Replace(strings.TrimSpace(raw))
	if s == "" {
		return Code{}, ErrEmpty
	}

	// "number" accepts only ASCII digits, unlike "numeric" (signs and decimals).
	if err := validate.Var(s, "len=7,number"); err != nil {
		return Code{}, &ValidationError{Input: raw, Message: HintMessage}
	}

	return Code{digits: s}, nil
}
