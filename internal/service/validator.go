package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	passwordvalidator "github.com/wagslane/go-password-validator"

	"github.com/samandr77/microservices/account/internal/entity"
)

const (
	EmailMaxLen    = 255
	NameMaxLen     = 100
	PasswordMaxLen = 72 // bcrypt ignores anything longer
)

var (
	emailRegexp      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	whitespaceRegexp = regexp.MustCompile(`\s+`)
)

func ValidateEmail(email string) error {
	if len(email) > EmailMaxLen {
		return entity.ErrEmailInvalidLen
	}

	if !emailRegexp.MatchString(email) {
		return entity.ErrEmailInvalidFormat
	}

	if strings.Contains(email, "..") {
		return entity.ErrEmailInvalidFormat
	}

	return nil
}

// NormalizeEmail lower-cases the address and strips whitespace and wrapping
// brackets before validating it.
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	normalized = strings.NewReplacer("(", "", ")", "", "[", "", "]", "", "<", "", ">", "").Replace(normalized)
	normalized = whitespaceRegexp.ReplaceAllString(normalized, "")

	err := ValidateEmail(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %w", entity.ErrEmailNormalization, err)
	}

	return normalized, nil
}

// ValidatePassword checks the password entropy in bits against minEntropy.
func ValidatePassword(password string, minEntropy float64) error {
	if password == "" {
		return entity.ErrPasswordRequired
	}

	if len(password) > PasswordMaxLen {
		return fmt.Errorf("%w: longer than %d bytes", entity.ErrPasswordWeak, PasswordMaxLen)
	}

	err := passwordvalidator.Validate(password, minEntropy)
	if err != nil {
		return fmt.Errorf("%w: %w", entity.ErrPasswordWeak, err)
	}

	return nil
}

func ValidateName(name string) error {
	if utf8.RuneCountInString(name) > NameMaxLen {
		return fmt.Errorf("%w: name longer than %d characters", entity.ErrInvalidInput, NameMaxLen)
	}

	return nil
}
