package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "secret123", false},
		{"Exactly Min Length", "abc1234", false},
		{"Letters Only", "abcdefgh", false},
		{"Too Short", "abc123", true},
		{"Too Long", strings.Repeat("a", 73), true},
		{"Special Characters", "secret12!", true},
		{"Whitespace", "secret 123", true},
		{"Unicode Characters", "Ångström1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "test_user123", false},
		{"With Dot", "anna.karlsson", false},
		{"Too Short", "tu", true},
		{"Max Length", strings.Repeat("a", 50), false},
		{"Too Long", strings.Repeat("a", 51), true},
		{"Illegal Chars", "user@123", true},
		{"Reserved Route Name", "me", true},
		{"Reserved Case Insensitive", "Register", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateEmail("anna@example.com"))
	assert.Error(t, ValidateEmail("anna@example"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@example.com"))
}

func TestValidateContent(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidatePostText("Hello world"))
	assert.Error(t, ValidatePostText("   "))
	assert.Error(t, ValidatePostText("hi"))
	assert.Error(t, ValidatePostText(strings.Repeat("x", 201)))

	assert.NoError(t, ValidateCommentContent("k"))
	assert.Error(t, ValidateCommentContent(""))
	assert.Error(t, ValidateCommentContent(strings.Repeat("x", 1001)))

	assert.NoError(t, ValidateProfile("Anna", "Likes hiking"))
	assert.Error(t, ValidateProfile(strings.Repeat("x", 101), ""))
	assert.Error(t, ValidateProfile("", strings.Repeat("x", 501)))
}
