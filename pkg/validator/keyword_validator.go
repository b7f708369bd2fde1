package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const DefaultMaxLength = 512

// ErrEmptyKeyword is returned when no search keyword was given.
var ErrEmptyKeyword = errors.New("no keyword provided")

// KeywordValidator validates search keywords
type KeywordValidator interface {
	Validate(keyword string) error
}

type DefaultValidator struct {
	maxLength int
}

func NewDefaultValidator() KeywordValidator {
	return &DefaultValidator{maxLength: DefaultMaxLength}
}

func NewValidatorWithMaxLength(maxLength int) KeywordValidator {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &DefaultValidator{maxLength: maxLength}
}

func (v *DefaultValidator) Validate(keyword string) error {
	if strings.TrimSpace(keyword) == "" {
		return ErrEmptyKeyword
	}

	if !utf8.ValidString(keyword) {
		return fmt.Errorf("keyword is not valid UTF-8")
	}

	// Length is counted in characters, not bytes
	if n := utf8.RuneCountInString(keyword); n > v.maxLength {
		return fmt.Errorf("keyword is %d characters, maximum is %d", n, v.maxLength)
	}

	for _, r := range keyword {
		if unicode.IsControl(r) {
			return fmt.Errorf("keyword contains control characters")
		}
	}

	return nil
}
