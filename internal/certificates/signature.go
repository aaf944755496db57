package certificates

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// maxSignatureBytes caps a decoded signature image. Anything larger is
// treated as invalid rather than embedded.
const maxSignatureBytes = 1 << 20

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

var errUnsupportedImage = errors.New("unsupported signature image format")

// Signature formats accepted on decoded payloads.
const (
	SignatureFormatPNG  = "png"
	SignatureFormatJPEG = "jpeg"
)

// DecodeSignature decodes a sub-form signature value into raw image bytes.
//
// The value may be a bare base64 string or a data URL
// ("data:image/png;base64,..."). The decoded bytes must carry a PNG or JPEG
// magic header and stay under the size ceiling; the declared MIME type in a
// data URL is ignored in favor of the actual header.
func DecodeSignature(value string) ([]byte, string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, "", errors.New("empty signature")
	}

	if strings.HasPrefix(value, "data:") {
		idx := strings.Index(value, ",")
		if idx < 0 {
			return nil, "", errors.New("malformed data URL")
		}
		value = value[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, "", fmt.Errorf("decode signature: %w", err)
	}
	if len(raw) > maxSignatureBytes {
		return nil, "", fmt.Errorf("signature image exceeds %d bytes", maxSignatureBytes)
	}

	switch {
	case bytes.HasPrefix(raw, pngMagic):
		return raw, SignatureFormatPNG, nil
	case bytes.HasPrefix(raw, jpegMagic):
		return raw, SignatureFormatJPEG, nil
	default:
		return nil, "", errUnsupportedImage
	}
}

// SignatureNote renders the human-readable signature line for a certificate.
// Invalid or missing signatures degrade to a placeholder instead of failing
// the whole artifact.
func SignatureNote(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Signature: not provided"
	}
	if _, format, err := DecodeSignature(value); err == nil {
		return "Signature: on file (" + format + ")"
	}
	return "Signature: invalid image, omitted"
}
