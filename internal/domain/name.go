package domain

import "fmt"

const (
	MinAccountNameLength = 3
	MaxAccountNameLength = 16
)

// ValidateAccountName checks a ledger account name against the naming rules:
// 3-16 characters, lowercase letters, digits, dots and hyphens, where each
// dot-separated segment starts with a letter, ends with a letter or digit,
// and is at least three characters long.
func ValidateAccountName(name string) error {
	if len(name) < MinAccountNameLength || len(name) > MaxAccountNameLength {
		return fmt.Errorf("%w: name must be %d-%d characters", ErrInvalidIdentityFormat, MinAccountNameLength, MaxAccountNameLength)
	}

	start := 0
	for i := 0; i <= len(name); i++ {
		if i < len(name) && name[i] != '.' {
			continue
		}

		segment := name[start:i]
		if err := validateNameSegment(segment); err != nil {
			return err
		}
		start = i + 1
	}

	return nil
}

func validateNameSegment(segment string) error {
	if len(segment) < MinAccountNameLength {
		return fmt.Errorf("%w: each segment must be at least %d characters", ErrInvalidIdentityFormat, MinAccountNameLength)
	}
	if !isLowerAlpha(segment[0]) {
		return fmt.Errorf("%w: segments must start with a letter", ErrInvalidIdentityFormat)
	}
	last := segment[len(segment)-1]
	if !isLowerAlpha(last) && !isDigit(last) {
		return fmt.Errorf("%w: segments must end with a letter or digit", ErrInvalidIdentityFormat)
	}
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if !isLowerAlpha(c) && !isDigit(c) && c != '-' {
			return fmt.Errorf("%w: invalid character %q", ErrInvalidIdentityFormat, c)
		}
	}

	return nil
}

func isLowerAlpha(c byte) bool { return c >= 'a' && c <= 'z' }
func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
