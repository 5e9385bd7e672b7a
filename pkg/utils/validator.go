package utils

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	codeRegex  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]{0,31}$`)
	controlRe  = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// MaxTitleLength bounds form titles after sanitizing
const MaxTitleLength = 200

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateCode validates a region or business unit code
func ValidateCode(field, code string) error {
	if !codeRegex.MatchString(code) {
		return fmt.Errorf("%s must be 1-32 letters, digits, '-' or '_': %q", field, code)
	}
	return nil
}

// ValidatePayload checks that a form payload is a JSON object. Empty is allowed.
func ValidatePayload(payload string) error {
	if strings.TrimSpace(payload) == "" {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return nil
}

// ValidateSignatureURL accepts an empty value or an absolute http(s) URL
func ValidateSignatureURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("signature URL must be an absolute http(s) URL: %s", raw)
	}
	return nil
}

// SanitizeString removes control characters other than tab and newlines
func SanitizeString(s string) string {
	return controlRe.ReplaceAllString(s, "")
}

// SanitizeTitle strips control characters, trims and bounds a title
func SanitizeTitle(s string) string {
	s = strings.TrimSpace(strings.Join(strings.Fields(SanitizeString(s)), " "))
	if r := []rune(s); len(r) > MaxTitleLength {
		s = string(r[:MaxTitleLength])
	}
	return s
}
