package policy

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxDocumentSize is the largest certificate accepted, in bytes.
const MaxDocumentSize int64 = 5 << 20

// AllowedDocumentTypes are the MIME types a certificate may have.
var AllowedDocumentTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// NormalizeContentType lower-cases t, drops parameters and folds known aliases.
func NormalizeContentType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if t == "image/jpg" || t == "image/pjpeg" {
		return "image/jpeg"
	}
	return t
}

// CheckDocument applies the document policy to a file's declared type and
// size. It returns a message suitable for showing next to the file, or ""
// when the file is acceptable.
func CheckDocument(filename, contentType string, size int64) string {
	ct := NormalizeContentType(contentType)
	allowed := false
	for _, a := range AllowedDocumentTypes {
		if ct == a {
			allowed = true
			break
		}
	}
	if !allowed {
		if ct == "" {
			ct = "unknown"
		}
		return fmt.Sprintf("%s: file type %s is not allowed, upload JPG, PNG or PDF files", filename, ct)
	}
	if size <= 0 {
		return fmt.Sprintf("%s: file is empty", filename)
	}
	if size > MaxDocumentSize {
		return fmt.Sprintf("%s: file must be at most %dMB", filename, MaxDocumentSize>>20)
	}
	return ""
}

// DetectContentType reports the MIME type of data from its leading bytes.
// The allowed document types are reported in their canonical form; anything
// else is returned as detected so CheckDocument can name it.
func DetectContentType(data []byte) string {
	m := mimetype.Detect(data)
	for _, a := range AllowedDocumentTypes {
		if m.Is(a) {
			return a
		}
	}
	return NormalizeContentType(m.String())
}
