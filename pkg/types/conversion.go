// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"io"
	"time"
)

// ErrorKind classifies why a conversion attempt failed.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindUnsupportedType ErrorKind = "unsupported_type"
	KindTooLarge        ErrorKind = "too_large"
	KindServerError     ErrorKind = "server_error"
	KindTLSError        ErrorKind = "tls_error"
	KindNetworkError    ErrorKind = "network_error"
	KindRequestError    ErrorKind = "request_error"
	KindUnknown         ErrorKind = "unknown"
)

// CandidateFile is a document offered for conversion. The core reads Body
// at most once, during the upload; Name and SizeBytes drive admission.
type CandidateFile struct {
	// Name is the original file name including its extension (e.g. "report.docx").
	Name string

	// SizeBytes is the size of the file as reported by its source.
	SizeBytes int64

	// MIMEHint is the content type reported by the source, if any.
	MIMEHint string

	// Body supplies the file bytes for upload.
	Body io.Reader
}

// AdmissionResult is the verdict of the admission policy for one candidate.
type AdmissionResult struct {
	Accepted bool
	Reason   ErrorKind
}

// Failure carries a classified, user-facing error.
type Failure struct {
	Kind    ErrorKind `json:"kind" yaml:"kind"`
	Message string    `json:"message" yaml:"message"`
}

func (f Failure) Error() string {
	return f.Message
}

// Outcome is the result of one transport call: either converted content
// with a filename, or a Failure.
type Outcome struct {
	Content  []byte
	Filename string
	Failure  *Failure
}

// OK reports whether the outcome carries converted content.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Succeeded builds a successful Outcome.
func Succeeded(content []byte, filename string) Outcome {
	return Outcome{Content: content, Filename: filename}
}

// Failed builds a failed Outcome.
func Failed(kind ErrorKind, message string) Outcome {
	return Outcome{Failure: &Failure{Kind: kind, Message: message}}
}

// Artifact is a converted document held by the workflow. It is never
// mutated after creation.
type Artifact struct {
	// Filename is the Markdown file name reported by the server or inferred
	// from the source name.
	Filename string `json:"filename" yaml:"filename"`

	// Content is the converted Markdown bytes.
	Content []byte `json:"-" yaml:"-"`

	// ConvertedAt is when the conversion result was received.
	ConvertedAt time.Time `json:"converted_at" yaml:"converted_at"`

	// OriginalSizeBytes is the size of the uploaded source document.
	OriginalSizeBytes int64 `json:"original_size_bytes" yaml:"original_size_bytes"`
}

// Phase is a state of the conversion workflow.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseUploading  Phase = "uploading"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// State is a snapshot of the workflow. Artifact is set only in
// PhaseSucceeded and Failure only in PhaseFailed.
type State struct {
	Phase    Phase
	File     string
	Artifact *Artifact
	Failure  *Failure
}
