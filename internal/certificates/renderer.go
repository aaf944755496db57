package certificates

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Document is one renderable certificate: a completed sub-form plus its case
// identity.
type Document struct {
	CaseID   string
	FormType string
	Fields   map[string]any
}

// Renderer turns a document into artifact bytes. Implementations must honor
// ctx cancellation for long renders.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}

// formTypeTitles maps sub-form keys to the heading printed on the
// certificate.
var formTypeTitles = map[string]string{
	"disposalForm":    "Disposal Clearance Certificate",
	"efileForm":       "E-File Clearance Certificate",
	"form365Transfer": "Form 365 (Transfer) Certificate",
	"form365Disposal": "Form 365 (Disposal) Certificate",
}

// PDFRenderer produces single-page PDF certificates with no external
// tooling. The output is a minimal but well-formed PDF 1.4 document.
type PDFRenderer struct {
	now func() time.Time
}

// NewPDFRenderer creates a renderer stamping generation time with time.Now.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{now: time.Now}
}

// Render lays the document's fields out as text lines and assembles the PDF.
func (r *PDFRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	title := formTypeTitles[doc.FormType]
	if title == "" {
		title = "No-Dues Clearance Certificate"
	}

	lines := []string{
		title,
		"",
		"Application ID: " + doc.CaseID,
		"Generated: " + r.now().Format("02 Jan 2006 15:04 MST"),
		"",
	}

	keys := make([]string, 0, len(doc.Fields))
	for k := range doc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if k == "signature" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", fieldLabel(k), fieldValue(doc.Fields[k])))
	}

	if sig, ok := doc.Fields["signature"].(string); ok {
		lines = append(lines, "", SignatureNote(sig))
	}

	lines = append(lines, "", "This certificate confirms clearance of the above dues.")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return assemblePDF(lines), nil
}

// fieldLabel turns a camelCase field key into a readable label.
func fieldLabel(key string) string {
	var b strings.Builder
	for i, r := range key {
		if i == 0 {
			b.WriteRune(r - ('a' - 'A'))
			continue
		}
		if r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fieldValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case nil:
		return "-"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// assemblePDF builds a one-page PDF with the given text lines in Helvetica.
// Object layout: catalog, pages, page, content stream, font.
func assemblePDF(lines []string) []byte {
	var content bytes.Buffer
	content.WriteString("BT\n/F1 12 Tf\n50 790 Td\n14 TL\n")
	for i, line := range lines {
		if i == 0 {
			content.WriteString("/F1 16 Tf\n")
		} else if i == 1 {
			content.WriteString("/F1 12 Tf\n")
		}
		content.WriteString(fmt.Sprintf("(%s) Tj\nT*\n", escapePDFText(line)))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// escapePDFText escapes the characters PDF literal strings reserve and drops
// anything outside printable ASCII, which Helvetica with the standard
// encoding cannot show anyway.
func escapePDFText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			if r >= 32 && r < 127 {
				b.WriteRune(r)
			} else {
				b.WriteByte('?')
			}
		}
	}
	return b.String()
}
