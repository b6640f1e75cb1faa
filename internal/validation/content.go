package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	minPostTextLength    = 3
	maxPostTextLength    = 200
	maxCommentLength     = 1000
	maxDisplayNameLength = 100
	maxBioLength         = 500
)

// ValidatePostText requires 3 to 200 characters after trimming.
func ValidatePostText(text string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n == 0 {
		return fmt.Errorf("text must not be empty")
	}
	if n < minPostTextLength || n > maxPostTextLength {
		return fmt.Errorf("text must be between %d and %d characters", minPostTextLength, maxPostTextLength)
	}
	return nil
}

// ValidateCommentContent requires 1 to 1000 characters after trimming.
func ValidateCommentContent(content string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n == 0 {
		return fmt.Errorf("content must not be empty")
	}
	if n > maxCommentLength {
		return fmt.Errorf("content must not exceed %d characters", maxCommentLength)
	}
	return nil
}

// ValidateProfile checks the free-text profile fields.
func ValidateProfile(displayName, bio string) error {
	if utf8.RuneCountInString(displayName) > maxDisplayNameLength {
		return fmt.Errorf("display name must not exceed %d characters", maxDisplayNameLength)
	}
	if utf8.RuneCountInString(bio) > maxBioLength {
		return fmt.Errorf("bio must not exceed %d characters", maxBioLength)
	}
	return nil
}
