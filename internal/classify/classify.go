// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify turns transport and server failures into the small set of
// user-facing error kinds shown by the client.
//
// Classification order is fixed: a received response wins, then a TLS
// signature, then any other network failure, then request setup errors, and
// finally everything else. A certificate failure carries no response, so it
// must be checked before the generic network case.
package classify

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/markitdown-web/pkg/types"
)

const (
	// FallbackMessage is used when an unknown error has no description.
	FallbackMessage = "An unexpected error occurred during file conversion."

	networkMessage = "Network error: Unable to reach the server. Please check your connection."
)

// tlsMarkers are substrings that identify certificate failures in error
// text. Matching is case sensitive.
var tlsMarkers = []string{"certificate", "SSL", "CERT", "x509"}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// NetworkError reports a request that was sent but produced no response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// RequestError reports a request that could not be constructed or sent.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return e.Err.Error() }
func (e *RequestError) Unwrap() error { return e.Err }

// Classifier maps errors to failures. ServerURL is quoted in TLS guidance.
type Classifier struct {
	ServerURL string
}

// Classify returns the failure for err. A nil err yields an Unknown failure
// with the fallback message.
func (c Classifier) Classify(err error) types.Failure {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return types.Failure{Kind: types.KindServerError, Message: serverMessage(statusErr)}
	}

	var reqErr *RequestError
	if isNetwork(err) && !errors.As(err, &reqErr) {
		if isTLS(err) {
			return types.Failure{Kind: types.KindTLSError, Message: c.tlsMessage()}
		}
		return types.Failure{Kind: types.KindNetworkError, Message: networkMessage}
	}

	if errors.As(err, &reqErr) {
		return types.Failure{Kind: types.KindRequestError, Message: "Request error: " + reqErr.Err.Error()}
	}

	msg := FallbackMessage
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return types.Failure{Kind: types.KindUnknown, Message: msg}
}

// serverMessage prefers a JSON "detail" string from the body. Parse errors
// are ignored and the status message is kept.
func serverMessage(e *StatusError) string {
	text := e.Status
	if text == "" || text == fmt.Sprint(e.StatusCode) {
		text = http.StatusText(e.StatusCode)
	}
	text = strings.TrimPrefix(text, fmt.Sprintf("%d ", e.StatusCode))
	msg := fmt.Sprintf("Server error (%d): %s", e.StatusCode, text)

	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return msg
	}
	if detail, ok := body.Detail.(string); ok && detail != "" {
		return detail
	}
	return msg
}

func (c Classifier) tlsMessage() string {
	target := "the server URL"
	if c.ServerURL != "" {
		target = c.ServerURL
	}
	return fmt.Sprintf("SSL Certificate Error: Please navigate to %s in your browser and accept "+
		"the self-signed certificate (or configure --ca-cert), then try again.", target)
}

func isNetwork(err error) bool {
	if err == nil {
		return false
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func isTLS(err error) bool {
	var (
		unknownAuth  x509.UnknownAuthorityError
		invalid      x509.CertificateInvalidError
		hostname     x509.HostnameError
		verification *tls.CertificateVerificationError
		recordHeader tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &unknownAuth),
		errors.As(err, &invalid),
		errors.As(err, &hostname),
		errors.As(err, &verification),
		errors.As(err, &recordHeader):
		return true
	}
	text := err.Error()
	for _, m := range tlsMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
