// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/markitdown-web/pkg/types"
)

func TestClassify(t *testing.T) {
	c := Classifier{ServerURL: "https://converter.local"}

	tests := []struct {
		name     string
		err      error
		wantKind types.ErrorKind
		wantMsg  string
	}{
		{
			name:     "server error with JSON detail",
			err:      &StatusError{StatusCode: 400, Status: "400 Bad Request", Body: []byte(`{"detail":"bad format"}`)},
			wantKind: types.KindServerError,
			wantMsg:  "bad format",
		},
		{
			name:     "server error with unparseable body",
			err:      &StatusError{StatusCode: 500, Status: "500 Internal Server Error", Body: []byte("<html>oops</html>")},
			wantKind: types.KindServerError,
			wantMsg:  "Server error (500): Internal Server Error",
		},
		{
			name:     "server error with empty detail",
			err:      &StatusError{StatusCode: 502, Body: []byte(`{"detail":""}`)},
			wantKind: types.KindServerError,
			wantMsg:  "Server error (502): Bad Gateway",
		},
		{
			name:     "server error with non-string detail",
			err:      &StatusError{StatusCode: 422, Body: []byte(`{"detail":[{"loc":["body","file"]}]}`)},
			wantKind: types.KindServerError,
			wantMsg:  "Server error (422): Unprocessable Entity",
		},
		{
			name:     "wrapped status error",
			err:      fmt.Errorf("posting: %w", &StatusError{StatusCode: 413, Body: []byte(`{"detail":"too big"}`)}),
			wantKind: types.KindServerError,
			wantMsg:  "too big",
		},
		{
			name:     "certificate text in network error",
			err:      &NetworkError{Err: errors.New("Post \"https://converter.local/api/convert\": tls: failed to verify certificate")},
			wantKind: types.KindTLSError,
		},
		{
			name:     "unknown authority",
			err:      &NetworkError{Err: &url.Error{Op: "Post", URL: "https://x", Err: x509.UnknownAuthorityError{}}},
			wantKind: types.KindTLSError,
		},
		{
			name:     "ERR_CERT marker",
			err:      &NetworkError{Err: errors.New("ERR_CERT_AUTHORITY_INVALID")},
			wantKind: types.KindTLSError,
		},
		{
			name:     "connection refused",
			err:      &NetworkError{Err: errors.New("dial tcp 127.0.0.1:443: connect: connection refused")},
			wantKind: types.KindNetworkError,
			wantMsg:  "Network error: Unable to reach the server. Please check your connection.",
		},
		{
			name:     "bare url error",
			err:      &url.Error{Op: "Post", URL: "https://x", Err: context.DeadlineExceeded},
			wantKind: types.KindNetworkError,
		},
		{
			name:     "request setup",
			err:      &RequestError{Err: errors.New("unsupported protocol scheme \"\"")},
			wantKind: types.KindRequestError,
			wantMsg:  "Request error: unsupported protocol scheme \"\"",
		},
		{
			name:     "request setup wrapping a url error",
			err:      &RequestError{Err: &url.Error{Op: "parse", URL: "::", Err: errors.New("missing protocol scheme")}},
			wantKind: types.KindRequestError,
		},
		{
			name:     "plain error",
			err:      errors.New("disk on fire"),
			wantKind: types.KindUnknown,
			wantMsg:  "disk on fire",
		},
		{
			name:     "nil error",
			err:      nil,
			wantKind: types.KindUnknown,
			wantMsg:  FallbackMessage,
		},
		{
			name:     "empty error text",
			err:      errors.New(""),
			wantKind: types.KindUnknown,
			wantMsg:  FallbackMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.err)
			assert.Equal(t, tt.wantKind, got.Kind)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, got.Message)
			}
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestClassify_TLSMessageNamesServer(t *testing.T) {
	got := Classifier{ServerURL: "https://10.0.0.5"}.Classify(&NetworkError{Err: errors.New("x509: certificate signed by unknown authority")})
	assert.Equal(t, types.KindTLSError, got.Kind)
	assert.Contains(t, got.Message, "https://10.0.0.5")
	assert.Contains(t, got.Message, "self-signed certificate")

	got = Classifier{}.Classify(&NetworkError{Err: errors.New("SSL handshake failed")})
	assert.Contains(t, got.Message, "the server URL")
}

func TestClassify_CertificateNeverNetwork(t *testing.T) {
	for _, msg := range []string{
		"certificate has expired",
		"remote error: tls: bad certificate",
		"SSL routines",
		"CERT_HAS_EXPIRED",
	} {
		got := Classifier{}.Classify(&NetworkError{Err: errors.New(msg)})
		assert.Equal(t, types.KindTLSError, got.Kind, msg)
	}
}

func TestClassify_ResponseBeatsTLSText(t *testing.T) {
	err := &StatusError{StatusCode: 495, Body: []byte(`{"detail":"SSL certificate error"}`)}
	got := Classifier{}.Classify(err)
	assert.Equal(t, types.KindServerError, got.Kind)
	assert.Equal(t, "SSL certificate error", got.Message)
}
