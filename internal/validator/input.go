// Package validator checks user input before it is handed to a run.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrEmptyInput      = errors.New("input is empty")
	ErrInputTooLong    = errors.New("input too long")
	ErrInvalidEncoding = errors.New("invalid UTF-8 encoding")
)

// blankRegexp is compiled once at package init and reused across all Sanitize calls.
var blankRegexp = regexp.MustCompile(`[ \t]+`)

const DefaultMaxLength = 16000

type InputValidator struct {
	maxLength int
}

func NewInputValidator() *InputValidator {
	return &InputValidator{maxLength: DefaultMaxLength}
}

// WithMaxLength returns a validator accepting at most n characters.
func (v *InputValidator) WithMaxLength(n int) *InputValidator {
	if n <= 0 {
		n = DefaultMaxLength
	}
	return &InputValidator{maxLength: n}
}

func (v *InputValidator) Validate(query string) error {
	if !utf8.ValidString(query) {
		return ErrInvalidEncoding
	}

	if strings.TrimSpace(query) == "" {
		return ErrEmptyInput
	}

	if n := utf8.RuneCountInString(query); n > v.maxLength {
		return fmt.Errorf("%w: %d characters, maximum %d", ErrInputTooLong, n, v.maxLength)
	}

	return nil
}

// Sanitize trims the query, drops control characters and collapses runs of
// blanks. Line breaks are kept so pasted code and lists survive.
func (v *InputValidator) Sanitize(query string) string {
	query = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == '\r' || unicode.IsControl(r) {
			return -1
		}
		return r
	}, query)
	query = blankRegexp.ReplaceAllString(query, " ")
	return strings.TrimSpace(query)
}
