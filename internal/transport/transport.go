// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package transport uploads a document to the conversion server and turns
// the response into an Outcome. Every failure is classified; Convert never
// returns an error.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/markitdown-web/internal/admission"
	"github.com/pdiddy/markitdown-web/internal/classify"
	"github.com/pdiddy/markitdown-web/internal/httputil"
	"github.com/pdiddy/markitdown-web/pkg/types"
)

const (
	// ConvertPath is the upload endpoint relative to the base URL.
	ConvertPath = "/api/convert"
	// HealthPath is the liveness endpoint relative to the base URL.
	HealthPath = "/api/health"
	// FieldName is the multipart field carrying the document.
	FieldName = "file"
	// FallbackFilename is used when no name can be derived.
	FallbackFilename = "converted.md"

	defaultUserAgent = "markitdown-web/0.1"

	// maxErrorBody caps how much of an error response is read for a detail.
	maxErrorBody = 64 << 10
	// maxResponseBody caps converted content.
	maxResponseBody = 256 << 20
)

// Client uploads documents to one conversion server. All request settings,
// including the bearer token, are held per client.
type Client struct {
	http       *http.Client
	baseURL    string
	token      string
	userAgent  string
	classifier classify.Classifier
	log        zerolog.Logger
}

// New creates a Client. A nil httpClient is built from cfg with
// httputil.NewClient.
func New(cfg types.ClientConfig, httpClient *http.Client, log zerolog.Logger) (*Client, error) {
	if httpClient == nil {
		c, err := httputil.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		httpClient = c
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http:       httpClient,
		baseURL:    base,
		token:      cfg.Token,
		userAgent:  ua,
		classifier: classify.Classifier{ServerURL: base},
		log:        log,
	}, nil
}

// Convert uploads f and returns the converted content or a classified
// failure. The file is checked against the admission policy first; a
// rejected file never reaches the network.
func (c *Client) Convert(ctx context.Context, f types.CandidateFile) types.Outcome {
	if r := admission.Admit(f); !r.Accepted {
		fail := admission.Failure(r, f)
		return types.Outcome{Failure: &fail}
	}

	req, err := c.newUploadRequest(ctx, f)
	if err != nil {
		return c.fail(&classify.RequestError{Err: err})
	}

	c.log.Debug().Str("file", f.Name).Int64("size", f.SizeBytes).Str("url", req.URL.String()).Msg("uploading")

	resp, err := c.do(req)
	if err != nil {
		return c.fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.fail(&classify.StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: body})
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return c.fail(&classify.NetworkError{Err: fmt.Errorf("reading response: %w", err)})
	}

	name := OutputFilename(resp.Header.Get("Content-Disposition"), f.Name)
	c.log.Debug().Str("file", f.Name).Str("output", name).Int("bytes", len(content)).Msg("converted")
	return types.Succeeded(content, name)
}

// Health calls the server's health endpoint and returns its message.
func (c *Client) Health(ctx context.Context) (string, *types.Failure) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthPath, nil)
	if err == nil {
		err = checkAbsolute(req)
	}
	if err != nil {
		f := c.classifier.Classify(&classify.RequestError{Err: err})
		return "", &f
	}
	c.decorate(req)

	resp, err := c.do(req)
	if err != nil {
		f := c.classifier.Classify(err)
		return "", &f
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode != http.StatusOK {
		f := c.classifier.Classify(&classify.StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: body})
		return "", &f
	}

	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &msg); err != nil || msg.Message == "" {
		return strings.TrimSpace(string(body)), nil
	}
	return msg.Message, nil
}

// OutputFilename picks the saved name for a converted document: the
// Content-Disposition filename, else the source stem with ".md", else
// FallbackFilename.
func OutputFilename(disposition, sourceName string) string {
	if name := httputil.DispositionFilename(disposition); name != "" {
		return name
	}
	i := strings.LastIndex(sourceName, ".")
	if i <= 0 {
		return FallbackFilename
	}
	return sourceName[:i] + ".md"
}

func (c *Client) newUploadRequest(ctx context.Context, f types.CandidateFile) (*http.Request, error) {
	if f.Body == nil {
		return nil, fmt.Errorf("no content for %s", f.Name)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	contentType := f.MIMEHint
	if contentType == "" {
		contentType = admission.MIMEType(admission.Extension(f.Name))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldName, f.Name))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating multipart part: %w", err)
	}
	if _, err := io.Copy(part, f.Body); err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ConvertPath, &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if err := checkAbsolute(req); err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.decorate(req)
	return req, nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// do sends req. Any error from the client means no response was received.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &classify.NetworkError{Err: err}
	}
	return resp, nil
}

func (c *Client) fail(err error) types.Outcome {
	f := c.classifier.Classify(err)
	c.log.Warn().Err(err).Str("kind", string(f.Kind)).Msg("conversion failed")
	return types.Outcome{Failure: &f}
}

// errNoBaseURL reports a relative request URL. Browsers resolve these against
// the page origin; a CLI has no origin.
var errNoBaseURL = errors.New("no base URL configured; set base_url or --base-url")

func checkAbsolute(req *http.Request) error {
	if req.URL.Scheme == "" || req.URL.Host == "" {
		return errNoBaseURL
	}
	return nil
}
