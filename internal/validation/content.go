package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateBody trims a post or reply body and enforces presence and length.
func ValidateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", errors.New("Body is required")
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return "", fmt.Errorf("Body must be at most %d characters", MaxBodyLength)
	}
	return body, nil
}

// NormalizeWebsite trims a profile website and adds an http:// scheme when none is given.
// An empty result means the field should be cleared.
func NormalizeWebsite(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	lower := strings.ToLower(website)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return website
	}
	return "http://" + website
}

// ValidateBio trims a profile bio and enforces its length.
func ValidateBio(bio string) (string, error) {
	bio = strings.TrimSpace(bio)
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return "", fmt.Errorf("Bio must be at most %d characters", MaxBioLength)
	}
	return bio, nil
}
