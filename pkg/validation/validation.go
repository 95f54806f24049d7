// Package validation registers the custom validator tags used by request payloads.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	passwordSpecials  = "~!?@#$%^&*_-+()[]{}></\\|\"'.,:;"
)

// Password validation failures.
var (
	ErrPasswordLength     = fmt.Errorf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength)
	ErrPasswordUpper      = errors.New("password must contain an uppercase letter")
	ErrPasswordLower      = errors.New("password must contain a lowercase letter")
	ErrPasswordDigit      = errors.New("password must contain a digit")
	ErrPasswordWhitespace = errors.New("password must not contain whitespace")
	ErrPasswordCharset    = errors.New("password contains unsupported characters")
)

// ErrInvalidPhone is returned when a phone number cannot be normalised.
var ErrInvalidPhone = errors.New("phone must be a 10 or 11 digit number")

// New returns a validator with the password and phone tags registered.
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return ValidatePassword(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, err := NormalizePhone(fl.Field().String())
		return err == nil
	})
	return v
}

// ValidatePassword checks password complexity and returns the first rule violated.
func ValidatePassword(password string) error {
	length := len([]rune(password))
	if length < minPasswordLength || length > maxPasswordLength {
		return ErrPasswordLength
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsSpace(r):
			return ErrPasswordWhitespace
		case unicode.IsDigit(r):
			if r > unicode.MaxASCII {
				return ErrPasswordCharset
			}
			hasDigit = true
		case unicode.IsLetter(r):
			if !isLatinOrCyrillic(r) {
				return ErrPasswordCharset
			}
			if unicode.IsUpper(r) {
				hasUpper = true
			} else if unicode.IsLower(r) {
				hasLower = true
			}
		case strings.ContainsRune(passwordSpecials, r):
		default:
			return ErrPasswordCharset
		}
	}

	switch {
	case !hasUpper:
		return ErrPasswordUpper
	case !hasLower:
		return ErrPasswordLower
	case !hasDigit:
		return ErrPasswordDigit
	}
	return nil
}

func isLatinOrCyrillic(r rune) bool {
	if r <= unicode.MaxASCII {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}
	return unicode.Is(unicode.Cyrillic, r)
}

// NormalizePhone strips formatting and returns the number as +7XXXXXXXXXX.
// Ten digit numbers get the implicit country code; eleven digit numbers must
// start with 7 or 8.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}

	var digits strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", ErrInvalidPhone
		}
	}

	d := digits.String()
	switch len(d) {
	case 10:
		return "+7" + d, nil
	case 11:
		if d[0] != '7' && d[0] != '8' {
			return "", ErrInvalidPhone
		}
		return "+7" + d[1:], nil
	}
	return "", ErrInvalidPhone
}

// FormatPhone renders a phone as +7 (XXX) XXX-XX-XX.
func FormatPhone(raw string) (string, error) {
	normalized, err := NormalizePhone(raw)
	if err != nil {
		return "", err
	}
	d := normalized[2:]
	return fmt.Sprintf("+7 (%s) %s-%s-%s", d[0:3], d[3:6], d[6:8], d[8:10]), nil
}

// FormatValidationErrors turns validator errors into field messages. Other
// errors are returned as a single message.
func FormatValidationErrors(err error) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		var message string
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
		case "password":
			message = fmt.Sprintf("%s must be 8-128 characters with upper and lower case letters and a digit", field)
		case "phone":
			message = fmt.Sprintf("%s must be a valid phone number", field)
		default:
			message = fmt.Sprintf("%s failed on '%s'", field, fe.Tag())
		}
		messages = append(messages, message)
	}
	return messages
}
