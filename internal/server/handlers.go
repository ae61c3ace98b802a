// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/markitdown-web/internal/admission"
	"github.com/pdiddy/markitdown-web/internal/metrics"
	"github.com/pdiddy/markitdown-web/internal/transport"
	"github.com/pdiddy/markitdown-web/pkg/types"
)

// multipartSlack covers boundaries and part headers around the file.
const multipartSlack = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": healthMessage})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	status := s.convert(w, r)
	metrics.RecordServerConversion(strconv.Itoa(status))
}

// convert handles one upload and returns the status it answered with.
func (s *Server) convert(w http.ResponseWriter, r *http.Request) int {
	log := loggerFrom(r.Context(), s.log)
	r.Body = http.MaxBytesReader(w, r.Body, admission.MaxSizeBytes+multipartSlack)

	name, data, size, err := readUpload(r)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			size = max(r.ContentLength, tooBig.Limit)
			fail := admission.Failure(types.AdmissionResult{Reason: types.KindTooLarge}, types.CandidateFile{Name: name, SizeBytes: size})
			return writeDetail(w, http.StatusRequestEntityTooLarge, fail.Message)
		}
		return writeDetail(w, http.StatusBadRequest, err.Error())
	}

	f := types.CandidateFile{Name: name, SizeBytes: size}
	if res := admission.Admit(f); !res.Accepted {
		fail := admission.Failure(res, f)
		code := http.StatusBadRequest
		if res.Reason == types.KindTooLarge {
			code = http.StatusRequestEntityTooLarge
		}
		log.Info().Str("file", name).Str("reason", string(res.Reason)).Msg("rejected upload")
		return writeDetail(w, code, fail.Message)
	}

	start := time.Now()
	md, err := s.conv.Convert(r.Context(), bytes.NewReader(data), admission.Extension(name))
	metrics.ObserveServerConvert(time.Since(start))
	if err != nil {
		log.Error().Err(err).Str("file", name).Msg("conversion failed")
		return writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Error processing file: %v", err))
	}

	out := markdownName(name)
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out}))
	w.Header().Set("Content-Length", strconv.Itoa(len(md)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, md)

	log.Info().Str("file", name).Str("output", out).Int64("bytes_in", size).Int("bytes_out", len(md)).
		Dur("elapsed", time.Since(start)).Msg("converted")
	return http.StatusOK
}

// readUpload streams the multipart body to the file part. Size is capped
// one byte past the admission limit so oversize uploads are detected
// without buffering them whole.
func readUpload(r *http.Request) (name string, data []byte, size int64, err error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return "", nil, 0, fmt.Errorf("expected a multipart/form-data upload: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil, 0, fmt.Errorf("missing form field %q", transport.FieldName)
		}
		if err != nil {
			return "", nil, 0, err
		}
		if part.FormName() != transport.FieldName {
			part.Close()
			continue
		}

		name = filepath.Base(part.FileName())
		if name == "." || name == string(filepath.Separator) {
			name = ""
		}
		if !admission.IsAllowed(admission.Extension(name)) {
			// Extension is checked before size, so skip reading.
			return name, nil, 0, nil
		}
		data, err = io.ReadAll(io.LimitReader(part, admission.MaxSizeBytes+1))
		part.Close()
		if err != nil {
			return name, nil, 0, err
		}
		size = int64(len(data))
		if size > admission.MaxSizeBytes {
			// The part was cut short; Content-Length is the best estimate.
			size = max(size, r.ContentLength)
		}
		return name, data, size, nil
	}
}

// markdownName maps report.docx to report.md.
func markdownName(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		return transport.FallbackFilename
	}
	return stem + ".md"
}

func writeJSON(w http.ResponseWriter, code int, v any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
	return code
}

func writeDetail(w http.ResponseWriter, code int, detail string) int {
	return writeJSON(w, code, map[string]string{"detail": detail})
}
