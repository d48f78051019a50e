// Package validation holds input checks shared by the HTTP handlers and
// the admin CLI.
package validation

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

var (
	// ErrInvalidSlug is returned when a slug contains characters that
	// cannot appear in a subdomain.
	ErrInvalidSlug = errors.New("slug may only contain lowercase letters, digits and inner hyphens")

	// ErrSlugTooShort is returned when a slug is too short
	ErrSlugTooShort = errors.New("slug must be at least 3 characters")

	// ErrSlugTooLong is returned when a slug is too long
	ErrSlugTooLong = errors.New("slug must be at most 63 characters")

	// ErrInvalidEmail is returned when an address fails RFC 5322 parsing
	ErrInvalidEmail = errors.New("invalid email address")

	// Slugs double as subdomains, so the shape is a DNS label:
	// lowercase alphanumerics with hyphens that never lead or trail.
	slugRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
)

// ValidateSlug validates a workspace short name:
// - Must be 3-63 characters long (DNS label limit)
// - Must start and end with lowercase alphanumeric (a-z, 0-9)
// - Can contain hyphens in the middle
// - No uppercase, no underscores, no other special characters
func ValidateSlug(slug string) error {
	// Normalize to lowercase
	slug = strings.ToLower(strings.TrimSpace(slug))

	// Check length
	if len(slug) < 3 {
		return ErrSlugTooShort
	}
	if len(slug) > 63 {
		return ErrSlugTooLong
	}

	// Check format
	if !slugRegex.MatchString(slug) {
		return ErrInvalidSlug
	}

	return nil
}

// NormalizeSlug normalizes a slug by converting to lowercase and trimming whitespace
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// NormalizeEmail normalizes an email address by converting to lowercase
// and trimming whitespace. Invitation matching is case-insensitive, so
// every address is normalized before it touches the database.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail validates an invitation target address. The address
// must already be normalized.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	if len(email) > 254 {
		return ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return ErrInvalidEmail
	}
	// Reject display-name forms like "Dana <dana@example.com>"; the
	// stored value must be the bare address.
	if addr.Address != email {
		return ErrInvalidEmail
	}

	return nil
}
