package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestValidator() *ValidationService {
	return NewValidationService(DefaultSecurityConfig())
}

func TestValidateEmail(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid address", "asha@example.gov", false},
		{"valid with plus tag", "asha+nodues@example.gov", false},
		{"empty", "", true},
		{"missing domain", "asha@", true},
		{"missing local part", "@example.gov", true},
		{"not an address", "not-an-email", true},
		{"too long", strings.Repeat("a", 250) + "@example.gov", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRequired(t *testing.T) {
	v := newTestValidator()

	assert.NoError(t, v.ValidateRequired("name", "Asha"))
	assert.Error(t, v.ValidateRequired("name", ""))
	assert.Error(t, v.ValidateRequired("name", "   "))

	err := v.ValidateRequired("department", "")
	assert.Contains(t, err.Error(), "department")
}

func TestValidateOrderLetterFile(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"pdf", "order_letter.pdf", false},
		{"uppercase extension", "ORDER.PDF", false},
		{"png", "scan.png", false},
		{"jpeg", "scan.jpeg", false},
		{"jpg", "scan.jpg", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"no extension", "order_letter", true},
		{"executable", "order.exe", true},
		{"document", "order.docx", true},
		{"too long", strings.Repeat("a", 300) + ".pdf", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateOrderLetterFile(tt.filename)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRemarks(t *testing.T) {
	v := newTestValidator()

	assert.NoError(t, v.ValidateRemarks(""))
	assert.NoError(t, v.ValidateRemarks("all dues cleared"))
	assert.NoError(t, v.ValidateRemarks(strings.Repeat("x", 2000)))
	assert.Error(t, v.ValidateRemarks(strings.Repeat("x", 2001)))
}
