package impl

import (
	"unicode/utf8"

	"authcore/internal/domain"
)

const acceptableStrength = 60

// PasswordStrength scores a password from 0 to 100. Each character class
// present adds 15 and length thresholds at 8, 12 and 16 add 20, 10 and 10.
// The result is advisory and depends only on the input.
func PasswordStrength(password string) domain.StrengthResult {
	var (
		score    int
		feedback = []string{}
		n        = utf8.RuneCountInString(password)
	)

	if n >= 8 {
		score += 20
	}
	if n >= 12 {
		score += 10
	} else {
		feedback = append(feedback, "Use at least 12 characters")
	}
	if n >= 16 {
		score += 10
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	classes := []struct {
		present bool
		hint    string
	}{
		{lower, "Add lowercase letters"},
		{upper, "Add uppercase letters"},
		{digit, "Add digits"},
		{symbol, "Add symbols"},
	}
	for _, c := range classes {
		if c.present {
			score += 15
		} else {
			feedback = append(feedback, c.hint)
		}
	}

	return domain.StrengthResult{
		Score:      score,
		Level:      strengthLevel(score),
		Feedback:   feedback,
		Acceptable: score >= acceptableStrength,
	}
}

func strengthLevel(score int) string {
	switch {
	case score >= 80:
		return "strong"
	case score >= 60:
		return "medium"
	case score >= 40:
		return "weak"
	default:
		return "very_weak"
	}
}
