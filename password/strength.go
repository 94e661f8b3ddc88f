package password

import (
	"strings"
	"unicode/utf8"
)

const (
	minStrengthLength  = 8
	goodStrengthLength = 12
	minValidScore      = 3
	maxScore           = 4
	specialCharacters  = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?"
)

var commonPasswords = []string{
	"password", "123456", "123456789", "qwerty", "abc123",
	"password123", "admin", "letmein", "welcome", "monkey",
}

// Strength is the result of [CheckStrength].
type Strength struct {
	IsValid  bool     `json:"isValid"`
	Score    int      `json:"score"`
	Feedback []string `json:"feedback"`
}

// CheckStrength scores password from 0 to 4. A password is valid only when it
// is at least 8 characters, scores at least 3 and produced no feedback at all.
func CheckStrength(password string) Strength {
	feedback := make([]string, 0, 4)
	score := 0
	length := utf8.RuneCountInString(password)

	if length < minStrengthLength {
		feedback = append(feedback, "Password must be at least 8 characters long")
	} else if length >= goodStrengthLength {
		score++
	}

	hasLower, hasUpper, hasDigit, hasSpecial := characterClasses(password)

	classes := []struct {
		present bool
		message string
	}{
		{hasLower, "Password must contain lowercase letters"},
		{hasUpper, "Password must contain uppercase letters"},
		{hasDigit, "Password must contain numbers"},
		{hasSpecial, "Password must contain special characters"},
	}
	for _, c := range classes {
		if c.present {
			score++
		} else {
			feedback = append(feedback, c.message)
		}
	}

	lowered := strings.ToLower(password)
	for _, common := range commonPasswords {
		if strings.Contains(lowered, common) {
			feedback = append(feedback, "Password contains common patterns")
			score = max(0, score-2)
			break
		}
	}

	if hasRepeatedRun(password, 3) {
		feedback = append(feedback, "Password should not contain repeated characters")
		score = max(0, score-1)
	}

	score = min(score, maxScore)

	return Strength{
		IsValid:  length >= minStrengthLength && score >= minValidScore && len(feedback) == 0,
		Score:    score,
		Feedback: feedback,
	}
}

// HasAllCharacterClasses reports whether s contains a lowercase letter, an
// uppercase letter, a digit and one of the special characters.
func HasAllCharacterClasses(s string) bool {
	lower, upper, digit, special := characterClasses(s)
	return lower && upper && digit && special
}

func characterClasses(s string) (lower, upper, digit, special bool) {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(specialCharacters, r):
			special = true
		}
	}
	return lower, upper, digit, special
}

func hasRepeatedRun(s string, n int) bool {
	run := 0
	var prev rune = -1
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}
