package errors

import (
	"strings"
	"unicode"
)

// ValidateTreeName validates a human-readable tree name.
// Names are stored verbatim, so only emptiness, length and control
// characters are rejected.
func ValidateTreeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "tree name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "tree name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "tree name contains invalid control characters")
		}
	}

	return nil
}

// ValidateKey validates a document key relative to a storage root.
// It prevents path traversal so a key can never escape the root.
//
// Validation rules:
//   - Key cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidPath, "key cannot be empty")
	}

	const maxKeyLength = 500
	if len(key) > maxKeyLength {
		return New(ErrCodeInvalidPath, "key too long (max %d characters)", maxKeyLength)
	}

	for _, r := range key {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "key contains invalid characters")
		}
	}

	if strings.HasPrefix(key, "/") {
		return New(ErrCodeInvalidPath, "key must be relative (cannot start with /)")
	}

	if strings.Contains(key, "..") {
		return New(ErrCodeInvalidPath, "key cannot contain path traversal sequences (..)")
	}

	if strings.Contains(key, "\\") {
		return New(ErrCodeInvalidPath, "key cannot contain backslashes")
	}

	return nil
}
