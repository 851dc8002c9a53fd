package middleware

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
)

// Input validation and sanitization utilities

// MaxDescriptionLength limit for the optional grower notes
const MaxDescriptionLength = 1000

// ValidatePhotoDataURI checks the upload the same way the dashboard form does:
// an image/* base64 data URI of at most 5MB.
func ValidatePhotoDataURI(uri string) error {
	if strings.TrimSpace(uri) == "" {
		return errors.New("photo_data_uri is required")
	}
	_, err := diagnosis.ParsePhoto(uri)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, diagnosis.ErrPhotoTooLarge):
		return errors.New("File size exceeds 5MB. Please choose a smaller image.")
	case errors.Is(err, diagnosis.ErrNotImage):
		return errors.New("Invalid file type. Please select an image (JPEG, PNG, GIF, WEBP).")
	default:
		return errors.New("photo_data_uri must be a base64 encoded image data URI")
	}
}

// ValidateDescription limits the free-text notes
func ValidateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", MaxDescriptionLength)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates the optional history limit; 0 means no limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 0
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
