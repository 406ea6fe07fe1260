package password

import (
	"strings"
	"unicode"
)

const minLength = 8

const symbols = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"

// ValidationResult is the outcome of a password policy check. Errors holds
// every violated rule, not just the first one.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks a candidate password against the registration policy.
// All rules are evaluated independently so a client can show the full list
// of problems at once.
func Validate(candidate string) ValidationResult {
	var errs []string

	if len(candidate) < minLength {
		errs = append(errs, "password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(symbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		errs = append(errs, "password must contain an uppercase letter")
	}
	if !hasLower {
		errs = append(errs, "password must contain a lowercase letter")
	}
	if !hasDigit {
		errs = append(errs, "password must contain a digit")
	}
	if !hasSymbol {
		errs = append(errs, "password must contain a symbol")
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidEmail is a syntactic gate, not a deliverability check: it requires a
// non-empty local part, a single "@", and a domain containing a dot.
func ValidEmail(candidate string) bool {
	at := strings.LastIndex(candidate, "@")
	if at <= 0 || at == len(candidate)-1 {
		return false
	}
	domain := candidate[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
