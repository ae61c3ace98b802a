// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package admission decides whether a candidate document may be sent for
// conversion. The same policy runs in the client before upload and in the
// reference server after receipt.
package admission

import (
	"fmt"
	"strings"

	"github.com/pdiddy/markitdown-web/pkg/types"
)

// MaxSizeBytes is the upload ceiling (30 MiB).
const MaxSizeBytes int64 = 30 * 1024 * 1024

// allowed lists the accepted extensions in display order.
var allowed = []string{".pptx", ".docx", ".xlsx", ".xls", ".pdf", ".md"}

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".md":   "text/markdown",
}

// Allowed returns the accepted extensions, lower case with a leading dot.
func Allowed() []string {
	out := make([]string, len(allowed))
	copy(out, allowed)
	return out
}

// Extension returns the lower-cased text after the last "." in name,
// including the dot. A name without a dot has no extension.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i:])
}

// IsAllowed reports whether ext (as returned by Extension) is accepted.
func IsAllowed(ext string) bool {
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

// MIMEType returns the content type registered for ext, or
// application/octet-stream.
func MIMEType(ext string) string {
	if m, ok := mimeTypes[ext]; ok {
		return m
	}
	return "application/octet-stream"
}

// Admit checks the extension, then the size.
func Admit(f types.CandidateFile) types.AdmissionResult {
	if !IsAllowed(Extension(f.Name)) {
		return types.AdmissionResult{Reason: types.KindUnsupportedType}
	}
	if f.SizeBytes > MaxSizeBytes {
		return types.AdmissionResult{Reason: types.KindTooLarge}
	}
	return types.AdmissionResult{Accepted: true}
}

// Message renders the user-facing text for a rejected admission. It
// returns "" for accepted results.
func Message(r types.AdmissionResult, f types.CandidateFile) string {
	switch {
	case r.Accepted:
		return ""
	case r.Reason == types.KindTooLarge:
		return fmt.Sprintf("File size exceeds 30MB limit. Current size: %.2fMB",
			float64(f.SizeBytes)/(1024*1024))
	default:
		ext := Extension(f.Name)
		if ext == "" {
			ext = "(none)"
		}
		return fmt.Sprintf("Unsupported file type: %s. Supported types are: %s",
			ext, strings.Join(allowed, ", "))
	}
}

// Failure converts a rejected admission into a classified failure.
func Failure(r types.AdmissionResult, f types.CandidateFile) types.Failure {
	return types.Failure{Kind: r.Reason, Message: Message(r, f)}
}
