package utils

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// Regex to validate a normalized Vietnamese phone number
	phoneRegex = regexp.MustCompile(`^0[0-9]{9,10}$`)
	// Regex to remove non-digit characters
	digitsOnlyRegex = regexp.MustCompile(`[^0-9]`)
	// Any run of 10 or 11 digits, the shape used by the seeding heuristic
	phoneShapeRegex = regexp.MustCompile(`\d{10,11}`)
	// Vietnamese numbers written inside free text (+84 or leading 0)
	phoneInTextRegex = regexp.MustCompile(`(\+84|0)[0-9]{8,10}`)
)

// NormalizePhoneNumber removes all non-digit characters and converts the
// international prefix (+84) to the domestic leading zero
func NormalizePhoneNumber(phone string) (string, error) {
	if phone == "" {
		return "", errors.New("phone number cannot be empty")
	}

	normalized := digitsOnlyRegex.ReplaceAllString(phone, "")

	// Handle international format (+84)
	if strings.HasPrefix(normalized, "84") && len(normalized) >= 10 {
		normalized = "0" + normalized[2:]
	}

	if !phoneRegex.MatchString(normalized) {
		return "", errors.New("invalid Vietnamese phone number format")
	}

	return normalized, nil
}

// ContainsPhoneNumber reports whether text has a 10-11 digit phone-shaped run
func ContainsPhoneNumber(text string) bool {
	return phoneShapeRegex.MatchString(text)
}

// FindPhoneNumbers returns the distinct normalized phone numbers in text
func FindPhoneNumbers(text string) []string {
	matches := phoneInTextRegex.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	numbers := make([]string, 0, len(matches))
	for _, match := range matches {
		normalized, err := NormalizePhoneNumber(match)
		if err != nil || seen[normalized] {
			continue
		}
		seen[normalized] = true
		numbers = append(numbers, normalized)
	}
	return numbers
}
