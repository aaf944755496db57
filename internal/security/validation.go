package security

import (
	"fmt"
	"net/mail"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ValidationService centralizes input validation. All returned errors carry
// messages safe to show to end users.
type ValidationService struct {
	config *SecurityConfig
}

// NewValidationService creates a validation service with the given limits.
func NewValidationService(config *SecurityConfig) *ValidationService {
	return &ValidationService{config: config}
}

// ValidateEmail validates address format per RFC 5322.
func (v *ValidationService) ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 255 {
		return fmt.Errorf("email must be less than 255 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateRequired checks that a named field is non-blank.
func (v *ValidationService) ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// orderLetterExtensions is the attachment type allow-list.
var orderLetterExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ValidateOrderLetterFile checks a stored order-letter file reference:
// present, sane length, and an allowed document type.
func (v *ValidationService) ValidateOrderLetterFile(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("order letter attachment is required")
	}
	if utf8.RuneCountInString(filename) > 255 {
		return fmt.Errorf("attachment filename is too long")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !orderLetterExtensions[ext] {
		return fmt.Errorf("attachment must be a PDF or image file")
	}
	return nil
}

// ValidateRemarks bounds free-text remark fields.
func (v *ValidationService) ValidateRemarks(remarks string) error {
	if utf8.RuneCountInString(remarks) > v.config.MaxRemarksLength {
		return fmt.Errorf("remarks must be %d characters or less", v.config.MaxRemarksLength)
	}
	return nil
}
