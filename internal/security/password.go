package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Violation identifies a password strength rule that a candidate password breaks.
type Violation string

// WeakPasswordError wraps the full set of strength rules a proposed password
// violated, for callers that surface them to the user.
type WeakPasswordError struct {
	Violations []Violation
}

func (e *WeakPasswordError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = string(v)
	}
	return "weak password: " + strings.Join(parts, ", ")
}

const (
	ViolationTooShort       Violation = "too_short"
	ViolationTooLong        Violation = "too_long"
	ViolationNoUppercase    Violation = "no_uppercase"
	ViolationNoLowercase    Violation = "no_lowercase"
	ViolationNoDigit        Violation = "no_digit"
	ViolationNoSymbol       Violation = "no_symbol"
	ViolationCommonPassword Violation = "common_password"
	ViolationRepeatedChars  Violation = "repeated_characters"
	ViolationSequence       Violation = "sequential_characters"
)

const (
	// PasswordMinLength and PasswordMaxLength bound accepted passwords. The max
	// guards bcrypt's 72-byte input limit with margin for multi-byte runes.
	PasswordMinLength = 12
	PasswordMaxLength = 128

	// DefaultGeneratedLength is the length of generated passwords.
	DefaultGeneratedLength = 16
)

const (
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{};:,.?"
)

// commonPasswords is the deny-list checked case-insensitively by ValidateStrength.
var commonPasswords = map[string]bool{
	"password":      true,
	"password1":     true,
	"password123":   true,
	"passw0rd":      true,
	"123456":        true,
	"1234567890":    true,
	"12345678":      true,
	"qwerty":        true,
	"qwerty123":     true,
	"letmein":       true,
	"welcome":       true,
	"welcome1":      true,
	"admin":         true,
	"administrator": true,
	"iloveyou":      true,
	"monkey":        true,
	"dragon":        true,
	"sunshine":      true,
	"princess":      true,
	"football":      true,
	"baseball":      true,
	"trustno1":      true,
	"abc123":        true,
	"visitgate":     true,
}

// ValidateStrength checks password against all strength rules and returns every
// rule it violates, not just the first. A nil result means the password is accepted.
func ValidateStrength(password string) []Violation {
	var violations []Violation

	runes := []rune(password)
	if len(runes) < PasswordMinLength {
		violations = append(violations, ViolationTooShort)
	}
	if len(runes) > PasswordMaxLength {
		violations = append(violations, ViolationTooLong)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range runes {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper {
		violations = append(violations, ViolationNoUppercase)
	}
	if !hasLower {
		violations = append(violations, ViolationNoLowercase)
	}
	if !hasDigit {
		violations = append(violations, ViolationNoDigit)
	}
	if !hasSymbol {
		violations = append(violations, ViolationNoSymbol)
	}

	if commonPasswords[strings.ToLower(password)] {
		violations = append(violations, ViolationCommonPassword)
	}
	if hasRepeatedRun(runes) {
		violations = append(violations, ViolationRepeatedChars)
	}
	if hasSequentialRun(runes) {
		violations = append(violations, ViolationSequence)
	}

	return violations
}

// hasRepeatedRun reports whether password contains 3 or more identical
// consecutive characters (e.g. "aaa", "111").
func hasRepeatedRun(runes []rune) bool {
	for i := 2; i < len(runes); i++ {
		if runes[i] == runes[i-1] && runes[i] == runes[i-2] {
			return true
		}
	}
	return false
}

// hasSequentialRun reports whether password contains an ascending or descending
// run of 3 or more letters or digits ("abc", "CBA", "123", "987"). Letters are
// compared case-insensitively.
func hasSequentialRun(runes []rune) bool {
	lower := make([]rune, len(runes))
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		lower[i] = r
	}
	for i := 2; i < len(lower); i++ {
		a, b, c := lower[i-2], lower[i-1], lower[i]
		if !sameClass(a, b) || !sameClass(b, c) {
			continue
		}
		if b == a+1 && c == b+1 {
			return true
		}
		if b == a-1 && c == b-1 {
			return true
		}
	}
	return false
}

func sameClass(a, b rune) bool {
	alpha := func(r rune) bool { return r >= 'a' && r <= 'z' }
	digit := func(r rune) bool { return r >= '0' && r <= '9' }
	return (alpha(a) && alpha(b)) || (digit(a) && digit(b))
}

// GeneratePassword returns a random password of the given length (minimum
// PasswordMinLength; DefaultGeneratedLength when length <= 0) that satisfies
// ValidateStrength. One character from each required class is placed first, the
// remainder is filled from the combined alphabet, and the result is shuffled.
// Candidates that land on a repeated or sequential run are re-rolled.
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		length = DefaultGeneratedLength
	}
	if length < PasswordMinLength {
		length = PasswordMinLength
	}
	if length > PasswordMaxLength {
		length = PasswordMaxLength
	}

	combined := upperChars + lowerChars + digitChars + symbolChars

	const maxAttempts = 32
	for attempt := 0; attempt < maxAttempts; attempt++ {
		chars := make([]rune, 0, length)
		for _, class := range []string{upperChars, lowerChars, digitChars, symbolChars} {
			r, err := randomRune(class)
			if err != nil {
				return "", err
			}
			chars = append(chars, r)
		}
		for len(chars) < length {
			r, err := randomRune(combined)
			if err != nil {
				return "", err
			}
			chars = append(chars, r)
		}
		if err := shuffle(chars); err != nil {
			return "", err
		}
		candidate := string(chars)
		if len(ValidateStrength(candidate)) == 0 {
			return candidate, nil
		}
	}
	return "", errors.New("security: could not generate a valid password")
}

// GeneratePIN returns a 6-digit zero-padded PIN, uniform in [0, 999999].
// Used when provisioning terminal identities.
func GeneratePIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func randomRune(alphabet string) (rune, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return rune(alphabet[n.Int64()]), nil
}

// shuffle performs a Fisher-Yates shuffle using crypto/rand.
func shuffle(chars []rune) error {
	for i := len(chars) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		j := n.Int64()
		chars[i], chars[j] = chars[j], chars[i]
	}
	return nil
}
