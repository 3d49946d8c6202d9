package common

import (
	"fmt"
	"slices"
	"strings"

	"resumectl/internal/errors"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %v", format, supportedFormats), nil)
}

// ValidateJobDescription rejects drafts that are blank or longer than maxChars.
func ValidateJobDescription(text string, maxChars int) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "job description cannot be empty", nil)
	}
	if maxChars > 0 && len([]rune(text)) > maxChars {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("job description is too long (%d characters, max %d)", len([]rune(text)), maxChars), nil)
	}
	return nil
}
